package vision

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Tensor is one entry of a checkpoint weight map: a flat data slice plus
// its row-major shape.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// Elems returns the number of elements the shape describes.
func (t Tensor) Elems() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// StateDict maps parameter names to their tensors.
type StateDict map[string]Tensor

// Wrapper keys under which training scripts commonly nest the weight map.
var stateDictKeys = []string{"model_state_dict", "state_dict"}

// LoadCheckpoint reads a weight map from path. The file either holds the
// map at the top level or wraps it under a known key; the returned dict is
// already normalized (see NormalizeStateDict). A missing file is reported
// as an error for the caller to treat as fatal.
func LoadCheckpoint(path string) (StateDict, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint %s: %w", path, err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", path, err)
	}

	for _, key := range stateDictKeys {
		inner, ok := top[key]
		if !ok {
			continue
		}
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(inner, &nested); err == nil {
			top = nested
			break
		}
	}

	sd := make(StateDict, len(top))
	for name, value := range top {
		var t Tensor
		if err := json.Unmarshal(value, &t); err != nil {
			return nil, fmt.Errorf("checkpoint tensor %q: %w", name, err)
		}
		sd[name] = t
	}

	return NormalizeStateDict(sd), nil
}

// NormalizeStateDict rewrites checkpoint keys into the layout the network
// expects: a wrapper-module "backbone." prefix is stripped, and an
// alternate single-head pair at classifier.1 is renamed to the final
// classifier.2 linear layer.
func NormalizeStateDict(sd StateDict) StateDict {
	hasPrefix := false
	for name := range sd {
		if strings.HasPrefix(name, "backbone.") {
			hasPrefix = true
			break
		}
	}

	out := make(StateDict, len(sd))
	for name, t := range sd {
		if hasPrefix && strings.HasPrefix(name, "backbone.") {
			name = strings.TrimPrefix(name, "backbone.")
		}
		out[name] = t
	}

	if w, okW := out["classifier.1.weight"]; okW {
		if b, okB := out["classifier.1.bias"]; okB {
			out["classifier.2.weight"] = w
			out["classifier.2.bias"] = b
			delete(out, "classifier.1.weight")
			delete(out, "classifier.1.bias")
		}
	}

	return out
}
