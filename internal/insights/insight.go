package insights

import (
	"math"

	"partscope/internal/models"
)

// Priorities an insight can carry.
const (
	PriorityLow      = "low"
	PriorityElevated = "elevated"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Score thresholds the guidance is keyed on. All intervals are closed on
// the lower bound.
const (
	thresholdCritical   = 0.85
	thresholdHigh       = 0.65
	thresholdBorderline = 0.45
)

// Insight is a derived, non-persisted recommendation for one item.
type Insight struct {
	ItemID            string   `json:"item_id"`
	Name              string   `json:"name"`
	CurrentStatus     string   `json:"current_status"`
	RecommendedStatus string   `json:"recommended_status"`
	Priority          string   `json:"priority"`
	OwnerHint         string   `json:"owner_hint"`
	Confidence        *float64 `json:"confidence"`
	Summary           string   `json:"summary"`
	SuggestedNote     string   `json:"suggested_note"`
	Narrative         string   `json:"narrative,omitempty"`
}

// Build derives guidance from the item's current score and owner. It never
// mutates the record.
func Build(item models.InventoryItem) Insight {
	in := Insight{
		ItemID:        item.ID,
		Name:          item.Name,
		CurrentStatus: item.Status,
		OwnerHint:     item.Owner,
	}

	if item.Score == nil {
		in.RecommendedStatus = models.StatusAwaitingReview
		in.Priority = PriorityLow
		in.Summary = "No prediction data available; prompt the lab to classify this image."
		in.SuggestedNote = "Item has not been classified yet. Schedule inspection."
		if item.Owner == "" {
			in.OwnerHint = "Quality"
		}
		return in
	}

	score := *item.Score
	confidence := math.Round(score*1000) / 1000
	in.Confidence = &confidence

	switch {
	case score >= thresholdCritical:
		in.RecommendedStatus = models.StatusNeedsAttention
		in.Priority = PriorityCritical
		in.Summary = "Model flags this component as highly likely defective. Quarantine the lot immediately."
		in.SuggestedNote = "Hold shipment, escalate to reliability engineering, and initiate tear-down analysis."
		if item.Owner == "" {
			in.OwnerHint = "Reliability"
		}
	case score >= thresholdHigh:
		in.RecommendedStatus = models.StatusNeedsAttention
		in.Priority = PriorityHigh
		in.Summary = "Elevated defect probability; prioritize rework and secondary inspection."
		in.SuggestedNote = "Route to maintenance for rework and request ultrasonic verification."
		if item.Owner == "" {
			in.OwnerHint = "Maintenance"
		}
	case score >= thresholdBorderline:
		in.RecommendedStatus = models.StatusInReview
		in.Priority = PriorityElevated
		in.Summary = "Borderline reading; keep under observation and sample additional units."
		in.SuggestedNote = "Add to the monitoring queue and capture more samples from the same batch."
	default:
		in.RecommendedStatus = models.StatusCleared
		in.Priority = PriorityLow
		in.Summary = "Low likelihood of defect; release after visual confirmation."
		in.SuggestedNote = "Log QA spot check and release to assembly if no manual defects are found."
		if item.Owner == "" {
			in.OwnerHint = "Quality"
		}
	}
	return in
}
