package models

import (
	"errors"
	"fmt"
	"strings"
)

// Workflow statuses an inventory item can be in.
const (
	StatusAwaitingReview = "awaiting_review"
	StatusInReview       = "in_review"
	StatusNeedsAttention = "needs_attention"
	StatusCleared        = "cleared"
)

var allowedStatuses = map[string]bool{
	StatusAwaitingReview: true,
	StatusInReview:       true,
	StatusNeedsAttention: true,
	StatusCleared:        true,
}

// ErrInvalidStatus is returned for a status outside the allowed set.
var ErrInvalidStatus = errors.New("status is not allowed")

// InventoryItem represents one inspected physical item with its
// classification and workflow metadata. Score and Label stay nil until the
// item has been run through the classifier; they are always set together.
type InventoryItem struct {
	ID        string   `gorm:"primary_key" json:"id"`
	Name      string   `json:"name"`
	Status    string   `gorm:"default:'awaiting_review'" json:"status"`
	Owner     string   `json:"owner"`
	CreatedAt float64  `json:"created_at"`
	ImagePath string   `json:"image_path"`
	Notes     string   `json:"notes"`
	Score     *float64 `json:"score"`
	Label     *int     `json:"label"`
}

// TableName returns the table name for GORM.
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// Classified reports whether the item carries a model prediction.
func (i InventoryItem) Classified() bool {
	return i.Score != nil && i.Label != nil
}

// ValidStatus reports whether value is a member of the allowed status set.
func ValidStatus(value string) bool {
	return allowedStatuses[value]
}

// EnsureValidStatus trims the candidate, defaults an empty value to
// awaiting_review and rejects anything outside the allowed set.
func EnsureValidStatus(value string) (string, error) {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		candidate = StatusAwaitingReview
	}
	if !allowedStatuses[candidate] {
		return "", fmt.Errorf("status %q: %w", value, ErrInvalidStatus)
	}
	return candidate, nil
}

// ItemUpdate carries the optional fields of a partial update. A nil field
// means "leave unchanged"; AppendNotes switches the notes field from
// replace to append-on-a-new-line semantics.
type ItemUpdate struct {
	Name        *string
	Status      *string
	Owner       *string
	Notes       *string
	AppendNotes bool
}

// IsZero reports whether the update carries no fields at all.
func (u ItemUpdate) IsZero() bool {
	return u.Name == nil && u.Status == nil && u.Owner == nil && u.Notes == nil
}

// Apply merges the update into a copy of item and returns it.
//
// Name and owner are trimmed; an empty name keeps the prior value while an
// empty owner clears it. A supplied status must validate against the fixed
// set after trimming (an empty one is ignored). Notes replace the existing
// text unless AppendNotes is set and the item already has notes, in which
// case the incoming text is appended on a new line.
func (u ItemUpdate) Apply(item InventoryItem) (InventoryItem, error) {
	if u.Name != nil {
		if candidate := strings.TrimSpace(*u.Name); candidate != "" {
			item.Name = candidate
		}
	}
	if u.Status != nil {
		if trimmed := strings.TrimSpace(*u.Status); trimmed != "" {
			status, err := EnsureValidStatus(trimmed)
			if err != nil {
				return InventoryItem{}, err
			}
			item.Status = status
		}
	}
	if u.Owner != nil {
		item.Owner = strings.TrimSpace(*u.Owner)
	}
	if u.Notes != nil {
		incoming := strings.TrimSpace(*u.Notes)
		switch {
		case u.AppendNotes && item.Notes != "" && incoming != "":
			item.Notes = item.Notes + "\n" + incoming
		case u.AppendNotes && item.Notes != "":
			// nothing to append
		default:
			item.Notes = incoming
		}
	}
	return item, nil
}
