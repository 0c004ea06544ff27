package store

import (
	"errors"

	"github.com/jinzhu/gorm"

	"partscope/internal/models"
)

// ErrNotFound is returned when a record id does not exist in the store.
var ErrNotFound = errors.New("record not found")

// InventoryStore persists inventory records in SQLite. A single record's
// read-modify-write goes through one UPDATE statement, so concurrent
// writers to the same id observe last-writer-wins.
type InventoryStore struct {
	db *gorm.DB
}

// NewInventoryStore creates a store over an open database handle.
func NewInventoryStore(db *gorm.DB) *InventoryStore {
	return &InventoryStore{db: db}
}

// Create inserts a new record.
func (s *InventoryStore) Create(item *models.InventoryItem) error {
	return s.db.Create(item).Error
}

// Get returns the record with the given id or ErrNotFound.
func (s *InventoryStore) Get(id string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.Where("id = ?", id).First(&item).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetMany returns the records matching ids. Unknown ids are simply absent
// from the result; the order is unspecified.
func (s *InventoryStore) GetMany(ids []string) ([]models.InventoryItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.InventoryItem
	if err := s.db.Where("id IN (?)", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListAll returns every record, newest-created first.
func (s *InventoryStore) ListAll() ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := s.db.Order("created_at desc, id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Update applies the supplied column values to the record with the given
// id and returns the updated record. An empty field map is a no-op, not an
// error; an unknown id yields ErrNotFound.
func (s *InventoryStore) Update(id string, fields map[string]interface{}) (*models.InventoryItem, error) {
	if len(fields) == 0 {
		return s.Get(id)
	}
	res := s.db.Model(&models.InventoryItem{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(id)
}

// Delete permanently removes the record with the given id.
func (s *InventoryStore) Delete(id string) error {
	res := s.db.Where("id = ?", id).Delete(&models.InventoryItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMany removes every record in ids and returns how many were removed.
func (s *InventoryStore) DeleteMany(ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.Where("id IN (?)", ids).Delete(&models.InventoryItem{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
