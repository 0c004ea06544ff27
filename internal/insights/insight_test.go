package insights

import (
	"testing"

	"partscope/internal/models"
)

func scored(score float64, owner string) models.InventoryItem {
	return models.InventoryItem{
		ID:     "item-1",
		Name:   "Bracket",
		Status: models.StatusInReview,
		Owner:  owner,
		Score:  &score,
	}
}

func TestBuildUnclassified(t *testing.T) {
	in := Build(models.InventoryItem{ID: "item-1", Name: "Bracket", Status: models.StatusAwaitingReview})

	if in.RecommendedStatus != models.StatusAwaitingReview {
		t.Errorf("RecommendedStatus = %q, want awaiting_review", in.RecommendedStatus)
	}
	if in.Priority != PriorityLow {
		t.Errorf("Priority = %q, want low", in.Priority)
	}
	if in.OwnerHint != "Quality" {
		t.Errorf("OwnerHint = %q, want Quality", in.OwnerHint)
	}
	if in.Confidence != nil {
		t.Errorf("Confidence = %v, want absent", *in.Confidence)
	}
}

func TestBuildThresholds(t *testing.T) {
	tests := []struct {
		score      float64
		wantStatus string
		wantPrio   string
		wantHint   string
	}{
		{0.99, models.StatusNeedsAttention, PriorityCritical, "Reliability"},
		{0.85, models.StatusNeedsAttention, PriorityCritical, "Reliability"}, // closed lower bound
		{0.84, models.StatusNeedsAttention, PriorityHigh, "Maintenance"},
		{0.65, models.StatusNeedsAttention, PriorityHigh, "Maintenance"},
		{0.64, models.StatusInReview, PriorityElevated, ""},
		{0.45, models.StatusInReview, PriorityElevated, ""},
		{0.44, models.StatusCleared, PriorityLow, "Quality"},
		{0.0, models.StatusCleared, PriorityLow, "Quality"},
	}

	for _, tt := range tests {
		in := Build(scored(tt.score, ""))
		if in.RecommendedStatus != tt.wantStatus {
			t.Errorf("score %.2f: RecommendedStatus = %q, want %q", tt.score, in.RecommendedStatus, tt.wantStatus)
		}
		if in.Priority != tt.wantPrio {
			t.Errorf("score %.2f: Priority = %q, want %q", tt.score, in.Priority, tt.wantPrio)
		}
		if in.OwnerHint != tt.wantHint {
			t.Errorf("score %.2f: OwnerHint = %q, want %q", tt.score, in.OwnerHint, tt.wantHint)
		}
		if in.Summary == "" || in.SuggestedNote == "" {
			t.Errorf("score %.2f: guidance strings missing", tt.score)
		}
	}
}

func TestBuildKeepsExistingOwner(t *testing.T) {
	in := Build(scored(0.9, "Team Delta"))
	if in.OwnerHint != "Team Delta" {
		t.Errorf("OwnerHint = %q, want existing owner preserved", in.OwnerHint)
	}
}

func TestBuildRoundsConfidence(t *testing.T) {
	in := Build(scored(0.85678, ""))
	if in.Confidence == nil {
		t.Fatal("Confidence absent for a scored item")
	}
	if *in.Confidence != 0.857 {
		t.Errorf("Confidence = %v, want 0.857", *in.Confidence)
	}
}

func TestBuildNeverMutatesItem(t *testing.T) {
	score := 0.9
	item := models.InventoryItem{ID: "item-1", Status: models.StatusInReview, Score: &score}
	Build(item)
	if item.Status != models.StatusInReview || *item.Score != 0.9 {
		t.Error("Build mutated the record")
	}
}
