//go:build purego || js

package visilearn

// Mat is a pure Go single-channel float32 matrix stored row-major.
type Mat struct {
	data []float32
	rows int
	cols int
}

func NewMat() Mat { return Mat{} }

func NewMatWithSize(rows, cols int) Mat {
	return Mat{
		data: make([]float32, rows*cols),
		rows: rows,
		cols: cols,
	}
}

// NewMatFromFloat32 copies data (row-major, rows*cols values) into a new Mat.
func NewMatFromFloat32(rows, cols int, data []float32) Mat {
	m := NewMatWithSize(rows, cols)
	copy(m.data, data)
	return m
}

func (m Mat) Rows() int     { return m.rows }
func (m Mat) Cols() int     { return m.cols }
func (m Mat) Channels() int { return 1 }
func (m Mat) Empty() bool   { return m.data == nil || m.rows == 0 || m.cols == 0 }

func (m Mat) Clone() Mat {
	return NewMatFromFloat32(m.rows, m.cols, m.data)
}

func (m *Mat) Close() {
	m.data = nil
	m.rows = 0
	m.cols = 0
}

// DataFloat32 returns the backing float32 slice.
func (m Mat) DataFloat32() []float32 {
	return m.data
}

func (m Mat) At(row, col int) float32 {
	return m.data[row*m.cols+col]
}

// --- Pure Go CV operations ---

// reflectIndex mirrors idx into [0, size) without repeating the edge sample
// (OpenCV BORDER_REFLECT_101).
func reflectIndex(idx, size int) int {
	if size == 1 {
		return 0
	}
	if idx < 0 {
		idx = -idx
	}
	for idx >= size {
		idx = 2*size - 2 - idx
		if idx < 0 {
			idx = -idx
		}
	}
	return idx
}

// boxMean writes the mean over a size x size window around every pixel of src
// into dst, mirroring the image at its borders (reflect-101).
func boxMean(src Mat, dst *Mat, size int) {
	rows, cols := src.rows, src.cols
	half := size / 2
	scale := 1 / float32(size)

	temp := make([]float32, rows*cols)

	// Horizontal pass
	for r := 0; r < rows; r++ {
		rowOff := r * cols
		for c := 0; c < cols; c++ {
			var sum float32
			if c >= half && c < cols-half {
				base := rowOff + c - half
				for k := 0; k < size; k++ {
					sum += src.data[base+k]
				}
			} else {
				for k := 0; k < size; k++ {
					sum += src.data[rowOff+reflectIndex(c+k-half, cols)]
				}
			}
			temp[rowOff+c] = sum * scale
		}
	}

	if dst.rows != rows || dst.cols != cols || dst.data == nil {
		*dst = NewMatWithSize(rows, cols)
	}

	// Vertical pass, row offsets computed once per output row
	rowOffs := make([]int, size)
	for r := 0; r < rows; r++ {
		for k := 0; k < size; k++ {
			rowOffs[k] = reflectIndex(r+k-half, rows) * cols
		}
		dstOff := r * cols
		for c := 0; c < cols; c++ {
			var sum float32
			for k := 0; k < size; k++ {
				sum += temp[rowOffs[k]+c]
			}
			dst.data[dstOff+c] = sum * scale
		}
	}
}
