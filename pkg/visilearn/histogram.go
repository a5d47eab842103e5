package visilearn

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Binning describes the (correlation, texture) grid shared by both class
// histograms and their LUTs. There are Correlations+1 correlation bins and
// Textures+1 texture bins.
type Binning struct {
	Correlations   int     `json:"correlations"`
	Textures       int     `json:"textures"`
	CorrelationMin float64 `json:"correlation_min"`
	CorrelationMax float64 `json:"correlation_max"`
	TextureMin     float64 `json:"texture_min"`
	TextureMax     float64 `json:"texture_max"`
}

// DefaultBinning returns the 33 x 21 grid used by the reference model.
func DefaultBinning() Binning {
	return Binning{
		Correlations:   32,
		Textures:       20,
		CorrelationMin: -1,
		CorrelationMax: 1,
		TextureMin:     0,
		TextureMax:     2500,
	}
}

func (b Binning) Validate() error {
	if b.Correlations < 1 {
		return fmt.Errorf("correlations must be >= 1, got %d", b.Correlations)
	}
	if b.Textures < 1 {
		return fmt.Errorf("textures must be >= 1, got %d", b.Textures)
	}
	if !(b.CorrelationMax > b.CorrelationMin) {
		return fmt.Errorf("correlation range [%g, %g] is empty", b.CorrelationMin, b.CorrelationMax)
	}
	if !(b.TextureMax > b.TextureMin) {
		return fmt.Errorf("texture range [%g, %g] is empty", b.TextureMin, b.TextureMax)
	}
	return nil
}

// Size returns the number of bins of a grid: (Textures+1)*(Correlations+1).
func (b Binning) Size() int { return (b.Textures + 1) * (b.Correlations + 1) }

// Index maps a sample to its (texture row, correlation column) bin.
func (b Binning) Index(corr, texture float64) (t, c int) {
	t = BinIndex(texture, b.TextureMin, b.TextureMax, b.Textures)
	c = BinIndex(corr, b.CorrelationMin, b.CorrelationMax, b.Correlations)
	return t, c
}

// BinIndex linearly maps value from [axisMin, axisMax] onto [0, binCount].
// Values below axisMin (and NaN) land in bin 0, values at or above axisMax in
// bin binCount; nothing is ever discarded.
func BinIndex(value, axisMin, axisMax float64, binCount int) int {
	if !(value > axisMin) {
		return 0
	}
	if value >= axisMax {
		return binCount
	}
	idx := int(math.Floor((value - axisMin) / (axisMax - axisMin) * float64(binCount)))
	if idx < 0 {
		return 0
	}
	if idx > binCount {
		return binCount
	}
	return idx
}

// HistogramState is the lifecycle stage of a Histogram.
type HistogramState int

const (
	HistogramEmpty HistogramState = iota
	HistogramAccumulating
	HistogramNormalized
)

func (s HistogramState) String() string {
	switch s {
	case HistogramEmpty:
		return "Empty"
	case HistogramAccumulating:
		return "Accumulating"
	case HistogramNormalized:
		return "Normalized"
	default:
		return "Unknown"
	}
}

// Histogram accumulates weighted (correlation, texture) samples of one class.
// Rows of the grid are texture bins, columns correlation bins. The running
// total always equals the sum of the grid until Normalize, which turns the
// grid into probabilities and freezes it.
type Histogram struct {
	name    string
	binning Binning
	bins    *mat.Dense
	nelem   float64
	state   HistogramState
	lut     *LUT
}

// NewHistogram returns an empty, zero-filled histogram.
func NewHistogram(name string, binning Binning) (*Histogram, error) {
	if err := binning.Validate(); err != nil {
		return nil, fmt.Errorf("histogram %s: %w", name, err)
	}
	return &Histogram{
		name:    name,
		binning: binning,
		bins:    mat.NewDense(binning.Textures+1, binning.Correlations+1, nil),
	}, nil
}

func (h *Histogram) Name() string          { return h.name }
func (h *Histogram) Binning() Binning      { return h.binning }
func (h *Histogram) State() HistogramState { return h.state }

// Total returns the sum of all weights added so far.
func (h *Histogram) Total() float64 { return h.nelem }

// Count returns the accumulator of bin (t, c). After normalization it holds
// the smoothed probability.
func (h *Histogram) Count(t, c int) float64 { return h.bins.At(t, c) }

// Sum returns the sum over all bins.
func (h *Histogram) Sum() float64 { return mat.Sum(h.bins) }

// AddElem adds weight to the bin of (corr, texture).
func (h *Histogram) AddElem(corr, texture, weight float64) error {
	if h.state == HistogramNormalized {
		return fmt.Errorf("histogram %s: add: %w", h.name, ErrFinalized)
	}
	if !(weight > 0) || math.IsInf(weight, 1) {
		return fmt.Errorf("histogram %s: %w, got %g", h.name, ErrInvalidWeight, weight)
	}
	t, c := h.binning.Index(corr, texture)
	raw := h.bins.RawMatrix()
	raw.Data[t*raw.Stride+c] += weight
	h.nelem += weight
	h.state = HistogramAccumulating
	return nil
}

// Merge adds the bins and total of other into h. Both must share a binning
// and neither may be normalized.
func (h *Histogram) Merge(other *Histogram) error {
	if h.state == HistogramNormalized || other.state == HistogramNormalized {
		return fmt.Errorf("histogram %s: merge: %w", h.name, ErrFinalized)
	}
	if h.binning != other.binning {
		return fmt.Errorf("histogram %s: merge: binning %+v differs from %+v", h.name, other.binning, h.binning)
	}
	h.bins.Add(h.bins, other.bins)
	h.nelem += other.nelem
	if h.nelem > 0 {
		h.state = HistogramAccumulating
	}
	return nil
}

// Normalize replaces every bin by (bin + smoothing) / (total + smoothing*nbins).
// It can only be called once.
func (h *Histogram) Normalize(smoothing float64) error {
	if h.state == HistogramNormalized {
		return fmt.Errorf("histogram %s: normalize: %w", h.name, ErrFinalized)
	}
	if !(smoothing > 0) || math.IsInf(smoothing, 1) {
		return fmt.Errorf("histogram %s: %w, got %g", h.name, ErrInvalidSmoothing, smoothing)
	}
	if h.nelem == 0 {
		log.Printf("[Histogram] Warning: %s histogram has no samples, LUT is uniform", h.name)
	}

	denom := h.nelem + smoothing*float64(h.binning.Size())
	h.bins.Apply(func(_, _ int, v float64) float64 {
		return (v + smoothing) / denom
	}, h.bins)
	h.state = HistogramNormalized

	raw := h.bins.RawMatrix()
	values := make([]float32, 0, h.binning.Size())
	for t := 0; t < raw.Rows; t++ {
		for _, v := range raw.Data[t*raw.Stride : t*raw.Stride+raw.Cols] {
			values = append(values, float32(v))
		}
	}
	h.lut = &LUT{binning: h.binning, values: values}
	return nil
}

// LUT returns the finalized lookup table.
func (h *Histogram) LUT() (*LUT, error) {
	if h.state != HistogramNormalized {
		return nil, fmt.Errorf("histogram %s: %w", h.name, ErrNotNormalized)
	}
	return h.lut, nil
}

// SaveHistogram writes the finalized LUT to path.
func (h *Histogram) SaveHistogram(path string) error {
	lut, err := h.LUT()
	if err != nil {
		return err
	}
	return lut.Save(path)
}
