package models

import "time"

// User is an operator account that can request API tokens.
type User struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"unique_index;not null" json:"username"`
	Email     string    `gorm:"unique_index;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (User) TableName() string {
	return "users"
}
