package inventory

import (
	"github.com/sirupsen/logrus"

	"partscope/internal/monitoring"
	"partscope/internal/store"
	"partscope/internal/vision"
)

// Notifier receives lifecycle events. Implementations must not block.
type Notifier interface {
	Publish(event string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, interface{}) {}

// Deps wires the collaborators of the lifecycle service. Classifier is the
// only mandatory field besides the stores; Notifier and Metrics may be nil.
type Deps struct {
	Store       *store.InventoryStore
	Predictions *store.PredictionStore
	Classifier  vision.Classifier
	ImagesDir   string
	Log         *logrus.Logger
	Metrics     *monitoring.Metrics
	Notifier    Notifier
}
