package vision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// With every weight at zero the conv stack produces zero features, so the
// logits reduce to the head bias. That makes the output exactly computable.
func biasOnlyClassifier(t *testing.T, bias0, bias1 float64) *NetClassifier {
	t.Helper()
	sd := StateDict{
		"classifier.2.bias": {Shape: []int{2}, Data: []float64{bias0, bias1}},
	}
	return &NetClassifier{net: NewNet(sd, testLogger()), log: testLogger()}
}

func TestClassifyDeterministicBias(t *testing.T) {
	c := biasOnlyClassifier(t, 0, 3)

	score, label, err := c.Classify(context.Background(), pngBytes(t, color.RGBA{R: 255, A: 255}))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	want := math.Exp(3) / (1 + math.Exp(3))
	if math.Abs(score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", score, want)
	}
	if label != 1 {
		t.Errorf("label = %d, want 1", label)
	}
}

func TestClassifyTieFavorsCleanLabel(t *testing.T) {
	c := biasOnlyClassifier(t, 0, 0)

	score, label, err := c.Classify(context.Background(), pngBytes(t, color.RGBA{G: 255, A: 255}))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if score != 0.5 {
		t.Errorf("score = %v, want 0.5", score)
	}
	if label != 0 {
		t.Errorf("label = %d, want 0 on equal logits", label)
	}
}

func TestClassifyScoreInRange(t *testing.T) {
	sd := StateDict{
		"classifier.2.weight": {Shape: []int{2, 32}, Data: make([]float64, 64)},
		"classifier.2.bias":   {Shape: []int{2}, Data: []float64{0.2, -0.1}},
	}
	c := &NetClassifier{net: NewNet(sd, testLogger()), log: testLogger()}

	score, label, err := c.Classify(context.Background(), pngBytes(t, color.RGBA{B: 255, A: 255}))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if score < 0 || score > 1 {
		t.Errorf("score = %v, want within [0,1]", score)
	}
	if label != 0 && label != 1 {
		t.Errorf("label = %d, want 0 or 1", label)
	}
}

func TestClassifyRejectsGarbage(t *testing.T) {
	c := biasOnlyClassifier(t, 0, 0)

	_, _, err := c.Classify(context.Background(), []byte("definitely not an image"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Classify error = %v, want ErrDecode", err)
	}
}

func TestClassifyHonorsContext(t *testing.T) {
	c := biasOnlyClassifier(t, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := c.Classify(ctx, pngBytes(t, color.White)); !errors.Is(err, context.Canceled) {
		t.Fatalf("Classify error = %v, want context.Canceled", err)
	}
}

func TestNewNetClassifierMissingCheckpoint(t *testing.T) {
	if _, err := NewNetClassifier("does-not-exist.json", testLogger()); err == nil {
		t.Fatal("NewNetClassifier with a missing checkpoint returned nil error")
	}
}

func TestNewNetClassifierFromFile(t *testing.T) {
	path := writeCheckpoint(t, `{"state_dict": {"classifier.2.bias": {"shape": [2], "data": [1, 0]}}}`)

	c, err := NewNetClassifier(path, testLogger())
	if err != nil {
		t.Fatalf("NewNetClassifier: %v", err)
	}

	score, label, err := c.Classify(context.Background(), pngBytes(t, color.Black))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if label != 0 {
		t.Errorf("label = %d, want 0 when the clean logit dominates", label)
	}
	if score >= 0.5 {
		t.Errorf("score = %v, want below 0.5", score)
	}
}
