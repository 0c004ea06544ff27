package vision

import (
	"math"

	"github.com/sirupsen/logrus"
)

// The network is a compact forward-only convolutional classifier: three
// 3x3 stride-2 conv blocks with ReLU, global average pooling and a
// two-logit linear head. Parameter names follow the sequential layout the
// checkpoints were trained with.
const (
	convKernel  = 3
	convStride  = 2
	convPadding = 1
	headInputs  = 32
	numClasses  = 2
)

type convLayer struct {
	weight  []float64 // out*in*k*k
	bias    []float64
	in, out int
}

type linearLayer struct {
	weight  []float64 // out*in
	bias    []float64
	in, out int
}

// Net evaluates the classifier. It is immutable after construction and
// safe for concurrent use.
type Net struct {
	blocks []convLayer
	head   linearLayer
}

type paramSpec struct {
	name  string
	shape []int
}

var netParams = []paramSpec{
	{"features.0.weight", []int{8, 3, convKernel, convKernel}},
	{"features.0.bias", []int{8}},
	{"features.2.weight", []int{16, 8, convKernel, convKernel}},
	{"features.2.bias", []int{16}},
	{"features.4.weight", []int{32, 16, convKernel, convKernel}},
	{"features.4.bias", []int{32}},
	{"classifier.2.weight", []int{numClasses, headInputs}},
	{"classifier.2.bias", []int{numClasses}},
}

// NewNet builds the network from a normalized state dict. Loading is
// non-strict: parameters absent from the dict stay zero and leftover keys
// are ignored; both cases are logged, never fatal.
func NewNet(sd StateDict, log *logrus.Logger) *Net {
	matched := make(map[string]bool, len(netParams))
	var missing []string

	take := func(spec paramSpec) []float64 {
		want := elems(spec.shape)
		t, ok := sd[spec.name]
		if !ok || !shapeEqual(t.Shape, spec.shape) || len(t.Data) != want {
			missing = append(missing, spec.name)
			return make([]float64, want)
		}
		matched[spec.name] = true
		return t.Data
	}

	specs := map[string][]float64{}
	for _, spec := range netParams {
		specs[spec.name] = take(spec)
	}

	net := &Net{
		blocks: []convLayer{
			{weight: specs["features.0.weight"], bias: specs["features.0.bias"], in: 3, out: 8},
			{weight: specs["features.2.weight"], bias: specs["features.2.bias"], in: 8, out: 16},
			{weight: specs["features.4.weight"], bias: specs["features.4.bias"], in: 16, out: 32},
		},
		head: linearLayer{
			weight: specs["classifier.2.weight"],
			bias:   specs["classifier.2.bias"],
			in:     headInputs,
			out:    numClasses,
		},
	}

	if log != nil {
		if len(missing) > 0 {
			log.WithField("keys", missing).Warn("checkpoint keys not loaded")
		}
		var unexpected []string
		for name := range sd {
			if !matched[name] {
				unexpected = append(unexpected, name)
			}
		}
		if len(unexpected) > 0 {
			log.WithField("keys", unexpected).Warn("unexpected checkpoint keys ignored")
		}
	}

	return net
}

// Forward runs one inference pass over a CHW tensor and returns the two
// class logits.
func (n *Net) Forward(x []float64, ch, h, w int) [numClasses]float64 {
	for _, blk := range n.blocks {
		x, ch, h, w = blk.apply(x, ch, h, w)
	}
	pooled := globalAvgPool(x, ch, h, w)
	return n.head.apply(pooled)
}

func (l convLayer) apply(in []float64, ch, h, w int) ([]float64, int, int, int) {
	oh := (h+2*convPadding-convKernel)/convStride + 1
	ow := (w+2*convPadding-convKernel)/convStride + 1
	out := make([]float64, l.out*oh*ow)
	for oc := 0; oc < l.out; oc++ {
		for oy := 0; oy < oh; oy++ {
			for ox := 0; ox < ow; ox++ {
				sum := l.bias[oc]
				for ic := 0; ic < ch; ic++ {
					for ky := 0; ky < convKernel; ky++ {
						iy := oy*convStride + ky - convPadding
						if iy < 0 || iy >= h {
							continue
						}
						for kx := 0; kx < convKernel; kx++ {
							ix := ox*convStride + kx - convPadding
							if ix < 0 || ix >= w {
								continue
							}
							sum += in[(ic*h+iy)*w+ix] * l.weight[((oc*ch+ic)*convKernel+ky)*convKernel+kx]
						}
					}
				}
				if sum < 0 { // ReLU
					sum = 0
				}
				out[(oc*oh+oy)*ow+ox] = sum
			}
		}
	}
	return out, l.out, oh, ow
}

func (l linearLayer) apply(in []float64) [numClasses]float64 {
	var out [numClasses]float64
	for o := 0; o < l.out; o++ {
		sum := l.bias[o]
		for i := 0; i < l.in; i++ {
			sum += l.weight[o*l.in+i] * in[i]
		}
		out[o] = sum
	}
	return out
}

func globalAvgPool(in []float64, ch, h, w int) []float64 {
	out := make([]float64, ch)
	area := float64(h * w)
	for c := 0; c < ch; c++ {
		sum := 0.0
		for i := c * h * w; i < (c+1)*h*w; i++ {
			sum += in[i]
		}
		out[c] = sum / area
	}
	return out
}

func softmax(logits [numClasses]float64) [numClasses]float64 {
	max := logits[0]
	for _, v := range logits {
		if v > max {
			max = v
		}
	}
	var sum float64
	var out [numClasses]float64
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func elems(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
