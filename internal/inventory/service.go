package inventory

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"partscope/internal/models"
	"partscope/internal/monitoring"
	"partscope/internal/store"
	"partscope/internal/vision"
)

// Events published to the notifier.
const (
	EventUploaded   = "inventory.uploaded"
	EventClassified = "inventory.classified"
	EventUpdated    = "inventory.updated"
	EventDeleted    = "inventory.deleted"
)

// UploadEntry is one element of a batch upload.
type UploadEntry struct {
	ImageBase64 string `json:"image_base64"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Owner       string `json:"owner"`
	Notes       string `json:"notes"`
}

// Service orchestrates the inventory lifecycle: upload, classification,
// partial and batch updates, deletion.
type Service struct {
	store       *store.InventoryStore
	predictions *store.PredictionStore
	classifier  vision.Classifier
	imagesDir   string
	log         *logrus.Logger
	metrics     *monitoring.Metrics
	notifier    Notifier
	narrator    Narrator
}

// NewService creates the lifecycle service from its dependencies.
func NewService(d Deps) *Service {
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Log == nil {
		d.Log = logrus.New()
	}
	return &Service{
		store:       d.Store,
		predictions: d.Predictions,
		classifier:  d.Classifier,
		imagesDir:   d.ImagesDir,
		log:         d.Log,
		metrics:     d.Metrics,
		notifier:    d.Notifier,
	}
}

// Upload stores each entry's image on disk and inserts a fresh record with
// no prediction. Entries are processed sequentially and the batch aborts on
// the first invalid one; entries persisted before the failure stay, so the
// operation is not atomic across a batch. Returns the full listing.
func (s *Service) Upload(ctx context.Context, entries []UploadEntry) ([]models.InventoryItem, error) {
	var created []models.InventoryItem
	for i, entry := range entries {
		payload := strings.TrimSpace(entry.ImageBase64)
		if payload == "" {
			return nil, validationErr("image_base64", "entry %d carries no image data", i)
		}
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, validationErr("image_base64", "entry %d is not valid base64", i)
		}
		status, err := models.EnsureValidStatus(entry.Status)
		if err != nil {
			return nil, validationErr("status", "entry %d: %v", i, err)
		}

		id := uuid.NewString()
		filename := id + ".png"
		if err := os.WriteFile(filepath.Join(s.imagesDir, filename), raw, 0o644); err != nil {
			return nil, err
		}

		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = "Item"
		}
		item := models.InventoryItem{
			ID:        id,
			Name:      name,
			Status:    status,
			Owner:     entry.Owner,
			CreatedAt: nowSeconds(),
			ImagePath: "/inventory/images/" + filename,
			Notes:     entry.Notes,
		}
		if err := s.store.Create(&item); err != nil {
			return nil, err
		}
		s.metrics.IncUpload()
		created = append(created, item)
	}

	if len(created) > 0 {
		s.notifier.Publish(EventUploaded, created)
	}
	return s.store.ListAll()
}

// Classify runs the classifier over the targeted records (all of them when
// ids is empty). A missing stored image or a per-item inference failure is
// recorded as a note on that item and does not abort the batch. A derived
// status overwrites any prior one. Returns the full updated listing.
func (s *Service) Classify(ctx context.Context, ids []string) ([]models.InventoryItem, error) {
	var (
		items []models.InventoryItem
		err   error
	)
	if len(ids) == 0 {
		items, err = s.store.ListAll()
	} else {
		items, err = s.store.GetMany(ids)
	}
	if err != nil {
		return nil, err
	}

	classified := 0
	for i := range items {
		if s.classifyOne(ctx, &items[i]) {
			classified++
		}
	}
	if classified > 0 {
		s.notifier.Publish(EventClassified, map[string]interface{}{"count": classified})
	}
	return s.store.ListAll()
}

// classifyOne reports whether the item received a fresh prediction.
func (s *Service) classifyOne(ctx context.Context, item *models.InventoryItem) bool {
	path := filepath.Join(s.imagesDir, filepath.Base(item.ImagePath))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.annotate(item.ID, "Missing image: "+path)
		} else {
			s.annotate(item.ID, "Unreadable image: "+err.Error())
		}
		s.metrics.IncClassifyFailure()
		return false
	}

	start := time.Now()
	score, label, err := s.classifier.Classify(ctx, data)
	if err != nil {
		s.annotate(item.ID, "Classification failed: "+err.Error())
		s.metrics.IncClassifyFailure()
		return false
	}
	s.metrics.ObserveInference(time.Since(start), label)

	status := models.StatusCleared
	if label == 1 {
		status = models.StatusNeedsAttention
	}
	if _, err := s.store.Update(item.ID, map[string]interface{}{
		"score":  score,
		"label":  label,
		"status": status,
	}); err != nil {
		s.log.WithError(err).WithField("item_id", item.ID).Error("failed to persist prediction")
		return false
	}

	if s.predictions != nil {
		if err := s.predictions.Append(score, label); err != nil {
			s.log.WithError(err).Warn("prediction log append failed")
		}
	}
	return true
}

// annotate appends a diagnostic line to the item's notes.
func (s *Service) annotate(id, line string) {
	item, err := s.store.Get(id)
	if err != nil {
		return
	}
	notes := line
	if item.Notes != "" {
		notes = item.Notes + "\n" + line
	}
	if _, err := s.store.Update(id, map[string]interface{}{"notes": notes}); err != nil {
		s.log.WithError(err).WithField("item_id", id).Warn("failed to annotate item")
	}
}

// PartialUpdate merges the patch into the record with the given id.
func (s *Service) PartialUpdate(ctx context.Context, id string, patch models.ItemUpdate) (*models.InventoryItem, error) {
	item, err := s.store.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if patch.IsZero() {
		return item, nil
	}

	merged, err := patch.Apply(*item)
	if err != nil {
		return nil, validationErr("status", "%v", err)
	}

	updated, err := s.store.Update(id, patchFields(patch, merged))
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(EventUpdated, updated)
	return updated, nil
}

// BatchUpdate applies the same patch to every existing id; unknown ids are
// silently skipped. Zero matches yield ErrNotFound. Returns the full
// updated listing.
func (s *Service) BatchUpdate(ctx context.Context, ids []string, patch models.ItemUpdate) ([]models.InventoryItem, error) {
	if patch.Status != nil {
		if trimmed := strings.TrimSpace(*patch.Status); trimmed != "" {
			if _, err := models.EnsureValidStatus(trimmed); err != nil {
				return nil, validationErr("status", "%v", err)
			}
		}
	}

	existing, err := s.store.GetMany(ids)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, ErrNotFound
	}

	for _, item := range existing {
		merged, err := patch.Apply(item)
		if err != nil {
			return nil, validationErr("status", "%v", err)
		}
		if _, err := s.store.Update(item.ID, patchFields(patch, merged)); err != nil {
			return nil, err
		}
	}

	s.notifier.Publish(EventUpdated, map[string]interface{}{"count": len(existing)})
	return s.store.ListAll()
}

// Delete permanently removes one record.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	s.notifier.Publish(EventDeleted, map[string]interface{}{"ids": []string{id}})
	return nil
}

// BatchDelete removes every record in ids and returns the removed count.
func (s *Service) BatchDelete(ctx context.Context, ids []string) (int64, error) {
	removed, err := s.store.DeleteMany(ids)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.notifier.Publish(EventDeleted, map[string]interface{}{"ids": ids})
	}
	return removed, nil
}

// Predict classifies a one-shot base64 payload without touching the
// inventory; only the prediction log records the outcome.
func (s *Service) Predict(ctx context.Context, imageBase64 string) (float64, int, error) {
	payload := strings.TrimSpace(imageBase64)
	if payload == "" {
		return 0, 0, validationErr("image_base64", "payload is empty")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return 0, 0, validationErr("image_base64", "must be valid base64-encoded data")
	}

	start := time.Now()
	score, label, err := s.classifier.Classify(ctx, raw)
	if err != nil {
		s.metrics.IncClassifyFailure()
		return 0, 0, err
	}
	s.metrics.ObserveInference(time.Since(start), label)

	if s.predictions != nil {
		if err := s.predictions.Append(score, label); err != nil {
			s.log.WithError(err).Warn("prediction log append failed")
		}
	}
	return score, label, nil
}

// ListAll returns every record, newest-created first.
func (s *Service) ListAll(ctx context.Context) ([]models.InventoryItem, error) {
	return s.store.ListAll()
}

// patchFields converts the merged record back into the column map for the
// fields the patch actually carried.
func patchFields(patch models.ItemUpdate, merged models.InventoryItem) map[string]interface{} {
	fields := map[string]interface{}{}
	if patch.Name != nil {
		fields["name"] = merged.Name
	}
	if patch.Status != nil {
		fields["status"] = merged.Status
	}
	if patch.Owner != nil {
		fields["owner"] = merged.Owner
	}
	if patch.Notes != nil {
		fields["notes"] = merged.Notes
	}
	return fields
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
