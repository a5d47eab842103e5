package visilearn

import (
	"fmt"
)

// LUT is a finalized probability table. Values are stored row-major with the
// texture bin as row and the correlation bin as column:
// index = t*(Correlations+1) + c.
type LUT struct {
	binning Binning
	values  []float32
}

// NewLUT builds a LUT from values laid out as described on LUT.
func NewLUT(binning Binning, values []float32) (*LUT, error) {
	if err := binning.Validate(); err != nil {
		return nil, err
	}
	if len(values) != binning.Size() {
		return nil, fmt.Errorf("lut has %d values, binning needs %d", len(values), binning.Size())
	}
	v := make([]float32, len(values))
	copy(v, values)
	return &LUT{binning: binning, values: v}, nil
}

func (l *LUT) Binning() Binning { return l.binning }
func (l *LUT) Len() int         { return len(l.values) }

// Values returns a copy of the flat table.
func (l *LUT) Values() []float32 {
	v := make([]float32, len(l.values))
	copy(v, l.values)
	return v
}

func (l *LUT) At(t, c int) float32 {
	return l.values[t*(l.binning.Correlations+1)+c]
}

// Probability looks up the likelihood of a (correlation, texture) measurement.
func (l *LUT) Probability(corr, texture float64) float32 {
	t, c := l.binning.Index(corr, texture)
	return l.At(t, c)
}

// Save writes the table as a (Textures+1) x (Correlations+1) matrix file.
func (l *LUT) Save(path string) error {
	return SaveMat(path, l.binning.Textures+1, l.binning.Correlations+1, l.values)
}

// LoadLUT reads a table written by Save and checks it against binning.
func LoadLUT(path string, binning Binning) (*LUT, error) {
	rows, cols, data, err := LoadMat(path)
	if err != nil {
		return nil, err
	}
	if rows != binning.Textures+1 || cols != binning.Correlations+1 {
		return nil, fmt.Errorf("%s: lut is %dx%d, binning expects %dx%d",
			path, rows, cols, binning.Textures+1, binning.Correlations+1)
	}
	return NewLUT(binning, data)
}
