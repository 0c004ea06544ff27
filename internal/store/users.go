package store

import (
	"github.com/jinzhu/gorm"

	"partscope/internal/models"
)

// UserStore reads operator accounts.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a user store over an open database handle.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// GetByUsername returns the user with the given username or ErrNotFound.
func (s *UserStore) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
