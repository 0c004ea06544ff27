package models

// PredictionLog records one classifier decision. Rows are append-only and
// kept separate from the inventory; classification never depends on the
// append succeeding.
type PredictionLog struct {
	ID        uint    `gorm:"primary_key" json:"id"`
	Score     float64 `json:"score"`
	Label     int     `json:"label"`
	CreatedAt float64 `json:"created_at"`
}

// TableName returns the table name for GORM.
func (PredictionLog) TableName() string {
	return "prediction_logs"
}
