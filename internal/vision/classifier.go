package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// ErrDecode reports bytes that could not be parsed as an image.
var ErrDecode = errors.New("could not parse image")

// Input geometry and the per-channel normalization constants the network
// was trained with.
const inputSide = 150

var (
	normMean = [3]float64{0.485, 0.456, 0.406}
	normStd  = [3]float64{0.229, 0.224, 0.225}
)

// Classifier produces a defect score and label for an image. score is the
// probability of the defect class in [0,1]; label is 0 or 1.
type Classifier interface {
	Classify(ctx context.Context, imageBytes []byte) (score float64, label int, err error)
}

// NetClassifier runs the checkpoint-backed network. It is stateless per
// call after construction and safe for concurrent invocation.
type NetClassifier struct {
	net *Net
	log *logrus.Logger
}

// NewNetClassifier loads the checkpoint at path and builds the classifier.
// A missing or unparseable checkpoint is returned as an error; the caller
// treats it as a fatal configuration problem.
func NewNetClassifier(checkpointPath string, log *logrus.Logger) (*NetClassifier, error) {
	sd, err := LoadCheckpoint(checkpointPath)
	if err != nil {
		return nil, err
	}
	return &NetClassifier{net: NewNet(sd, log), log: log}, nil
}

// Classify decodes the image, applies the fixed preprocessing pipeline and
// runs one forward pass.
func (c *NetClassifier) Classify(ctx context.Context, imageBytes []byte) (float64, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	img, err := imaging.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	resized := imaging.Resize(img, inputSide, inputSide, imaging.Lanczos)
	tensor := preprocess(resized)

	logits := c.net.Forward(tensor, 3, inputSide, inputSide)
	probs := softmax(logits)

	score := probs[1]
	label := 0
	if probs[1] > probs[0] {
		label = 1
	}
	return score, label, nil
}

// preprocess converts the resized image into a normalized CHW tensor.
func preprocess(img *image.NRGBA) []float64 {
	tensor := make([]float64, 3*inputSide*inputSide)
	for c := 0; c < 3; c++ {
		for y := 0; y < inputSide; y++ {
			row := y * img.Stride
			for x := 0; x < inputSide; x++ {
				v := float64(img.Pix[row+x*4+c]) / 255.0
				tensor[(c*inputSide+y)*inputSide+x] = (v - normMean[c]) / normStd[c]
			}
		}
	}
	return tensor
}
