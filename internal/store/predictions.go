package store

import (
	"time"

	"github.com/jinzhu/gorm"

	"partscope/internal/models"
)

// PredictionStore appends and reads the auxiliary prediction log.
type PredictionStore struct {
	db *gorm.DB
}

// NewPredictionStore creates a prediction log over an open database handle.
func NewPredictionStore(db *gorm.DB) *PredictionStore {
	return &PredictionStore{db: db}
}

// Append records one classifier decision.
func (s *PredictionStore) Append(score float64, label int) error {
	row := models.PredictionLog{
		Score:     score,
		Label:     label,
		CreatedAt: float64(time.Now().UnixNano()) / float64(time.Second),
	}
	return s.db.Create(&row).Error
}

// Recent returns up to limit log rows, newest first.
func (s *PredictionStore) Recent(limit int) ([]models.PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.PredictionLog
	if err := s.db.Order("created_at desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
