package visilearn

import (
	"fmt"
	"io"
)

// SampleColumns is the column count of a training sample row:
// correlation, texture, ground-truth label.
const SampleColumns = 3

// GrowMat is a row-major float32 matrix with a fixed number of columns whose
// row count grows on demand. Capacity doubles when exhausted; rows already
// written are copied verbatim and never modified afterwards.
type GrowMat struct {
	data []float32
	rows int
	cols int
}

// NewGrowMat returns an empty matrix with room for capacity rows.
func NewGrowMat(capacity, cols int) *GrowMat {
	if capacity < 0 {
		capacity = 0
	}
	if cols < 1 {
		cols = 1
	}
	return &GrowMat{
		data: make([]float32, 0, capacity*cols),
		cols: cols,
	}
}

func (g *GrowMat) Rows() int { return g.rows }
func (g *GrowMat) Cols() int { return g.cols }

// Cap returns the number of rows that fit without reallocating.
func (g *GrowMat) Cap() int { return cap(g.data) / g.cols }

func (g *GrowMat) grow(n int) {
	need := (g.rows + n) * g.cols
	if need <= cap(g.data) {
		return
	}
	newCap := cap(g.data) * 2
	if newCap < need {
		newCap = need
	}
	data := make([]float32, len(g.data), newCap)
	copy(data, g.data)
	g.data = data
}

// Append adds one row. values must have exactly Cols() entries.
func (g *GrowMat) Append(values ...float32) error {
	if len(values) != g.cols {
		return fmt.Errorf("growmat: row has %d values, expected %d", len(values), g.cols)
	}
	g.grow(1)
	g.data = append(g.data, values...)
	g.rows++
	return nil
}

// AppendSample adds a (correlation, texture, label) row to a 3-column matrix.
func (g *GrowMat) AppendSample(corr, texture, label float32) error {
	return g.Append(corr, texture, label)
}

// AppendRows appends every row of other, in order.
func (g *GrowMat) AppendRows(other *GrowMat) error {
	if other.cols != g.cols {
		return fmt.Errorf("growmat: cannot append %d-column rows to %d-column matrix", other.cols, g.cols)
	}
	g.grow(other.rows)
	g.data = append(g.data, other.data...)
	g.rows += other.rows
	return nil
}

// Row returns a copy of row i.
func (g *GrowMat) Row(i int) []float32 {
	row := make([]float32, g.cols)
	copy(row, g.data[i*g.cols:(i+1)*g.cols])
	return row
}

func (g *GrowMat) At(i, j int) float32 {
	return g.data[i*g.cols+j]
}

// Encode writes the logical rows in the matrix file format.
func (g *GrowMat) Encode(w io.Writer) error {
	return WriteMat(w, g.rows, g.cols, g.data)
}

// Save writes the logical rows to a matrix file at path.
func (g *GrowMat) Save(path string) error {
	return SaveMat(path, g.rows, g.cols, g.data)
}
