package visilearn

import (
	"fmt"
	"math"
)

// minVariance is the smallest local variance (in intensity units squared)
// for which a correlation is computed; flatter windows report 0.
const minVariance = 1e-3

// Comparator measures, for every pixel, the normalized cross-correlation
// between a model (background) image and a target image over a square window,
// together with a texture score sqrt(var_model * var_target) over the same
// window. When the model has a mask, only model pixels whose mask value is
// above the mask threshold contribute to the window statistics.
type Comparator struct {
	windowSize    int
	maskThreshold float32

	model  Mat
	mask   *Mat
	target Mat
	hasImg bool
	hasMdl bool
}

// NewComparator returns a comparator with an odd windowSize.
func NewComparator(windowSize int, maskThreshold float32) (*Comparator, error) {
	if windowSize < 1 || windowSize%2 == 0 {
		return nil, fmt.Errorf("comparator window size must be a positive odd number, got %d", windowSize)
	}
	return &Comparator{windowSize: windowSize, maskThreshold: maskThreshold}, nil
}

func (c *Comparator) WindowSize() int { return c.windowSize }

// SetModel sets the background image and its optional mask (nil for none).
// The comparator keeps references; the caller keeps ownership.
func (c *Comparator) SetModel(model Mat, mask *Mat) error {
	if model.Empty() {
		return fmt.Errorf("comparator: model image is empty")
	}
	if model.Channels() != 1 {
		return fmt.Errorf("comparator: model image has %d channels, expected 1", model.Channels())
	}
	if mask != nil {
		if err := checkSameSize("model mask", model, *mask); err != nil {
			return fmt.Errorf("comparator: %w", err)
		}
	}
	c.model = model
	c.mask = mask
	c.hasMdl = true
	return nil
}

// SetImage sets the target image; it must match the model dimensions.
func (c *Comparator) SetImage(target Mat) error {
	if !c.hasMdl {
		return fmt.Errorf("comparator: SetImage called before SetModel")
	}
	if err := checkSameSize("target image", c.model, target); err != nil {
		return fmt.Errorf("comparator: %w", err)
	}
	c.target = target
	c.hasImg = true
	return nil
}

// Compute returns the correlation and texture maps. The caller owns and must
// Close both.
func (c *Comparator) Compute() (ncc, texture Mat, err error) {
	if !c.hasMdl || !c.hasImg {
		return Mat{}, Mat{}, fmt.Errorf("comparator: model and target image must be set")
	}
	rows, cols := c.model.Rows(), c.model.Cols()
	n := rows * cols

	a, err := floatData("model image", c.model)
	if err != nil {
		return Mat{}, Mat{}, err
	}
	b, err := floatData("target image", c.target)
	if err != nil {
		return Mat{}, Mat{}, err
	}
	var m []float32
	if c.mask != nil {
		if m, err = floatData("model mask", *c.mask); err != nil {
			return Mat{}, Mat{}, err
		}
	}

	// Moments are taken around the global means to limit float32
	// cancellation in E[x^2] - E[x]^2.
	offA, offB := globalMean(a), globalMean(b)

	// Weighted moments, one plane each: w, wa, wb, waa, wbb, wab.
	var planes [6][]float32
	for i := range planes {
		planes[i] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		w := float32(1)
		if m != nil && !(m[i] > c.maskThreshold) {
			w = 0
		}
		ai, bi := a[i]-offA, b[i]-offB
		planes[0][i] = w
		planes[1][i] = w * ai
		planes[2][i] = w * bi
		planes[3][i] = w * ai * ai
		planes[4][i] = w * bi * bi
		planes[5][i] = w * ai * bi
	}

	var means [6][]float32
	for i, p := range planes {
		src := NewMatFromFloat32(rows, cols, p)
		dst := NewMat()
		boxMean(src, &dst, c.windowSize)
		means[i] = append([]float32(nil), dst.DataFloat32()...)
		src.Close()
		dst.Close()
	}

	nccOut := make([]float32, n)
	texOut := make([]float32, n)
	for i := 0; i < n; i++ {
		sw := float64(means[0][i])
		if sw <= 1e-6 {
			continue
		}
		ma := float64(means[1][i]) / sw
		mb := float64(means[2][i]) / sw
		va := math.Max(float64(means[3][i])/sw-ma*ma, 0)
		vb := math.Max(float64(means[4][i])/sw-mb*mb, 0)
		cov := float64(means[5][i])/sw - ma*mb

		tex := math.Sqrt(va * vb)
		texOut[i] = float32(tex)
		if va < minVariance || vb < minVariance {
			continue
		}
		nccOut[i] = float32(math.Max(-1, math.Min(1, cov/tex)))
	}

	return NewMatFromFloat32(rows, cols, nccOut), NewMatFromFloat32(rows, cols, texOut), nil
}

func globalMean(data []float32) float32 {
	var sum float64
	for _, v := range data {
		sum += float64(v)
	}
	return float32(sum / float64(len(data)))
}

// floatData returns the float32 pixels of m or an error when m is not a
// contiguous float32 image.
func floatData(what string, m Mat) ([]float32, error) {
	data := m.DataFloat32()
	if len(data) < m.Rows()*m.Cols() {
		return nil, fmt.Errorf("%s is not a float32 image", what)
	}
	return data, nil
}
