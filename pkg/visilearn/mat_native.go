//go:build !purego && !js

package visilearn

import (
	"image"

	"gocv.io/x/gocv"
)

// Mat wraps a single-channel CV_32F gocv.Mat for the native OpenCV backend.
type Mat struct {
	m gocv.Mat
}

// WrapGocv takes ownership of a CV_32F single-channel gocv.Mat.
func WrapGocv(m gocv.Mat) Mat { return Mat{m: m} }

func NewMat() Mat                       { return Mat{m: gocv.NewMat()} }
func NewMatWithSize(rows, cols int) Mat { return Mat{m: gocv.Zeros(rows, cols, gocv.MatTypeCV32F)} }
func (mat Mat) Rows() int               { return mat.m.Rows() }
func (mat Mat) Cols() int               { return mat.m.Cols() }
func (mat Mat) Channels() int           { return mat.m.Channels() }
func (mat Mat) Empty() bool             { return mat.m.Empty() }
func (mat Mat) Clone() Mat              { return Mat{m: mat.m.Clone()} }
func (mat *Mat) Close()                 { mat.m.Close() }

// NewMatFromFloat32 copies data (row-major, rows*cols values) into a new Mat.
func NewMatFromFloat32(rows, cols int, data []float32) Mat {
	mat := NewMatWithSize(rows, cols)
	copy(mat.DataFloat32(), data)
	return mat
}

func (mat Mat) DataFloat32() []float32 {
	if mat.m.Type() != gocv.MatTypeCV32F {
		return nil
	}
	data, _ := mat.m.DataPtrFloat32()
	return data
}

func (mat Mat) At(row, col int) float32 {
	return mat.m.GetFloatAt(row, col)
}

// --- CV operations ---

// boxMean writes the mean over a size x size window around every pixel of src
// into dst, mirroring the image at its borders (reflect-101).
func boxMean(src Mat, dst *Mat, size int) {
	kernel := gocv.NewMatWithSize(size, 1, gocv.MatTypeCV32F)
	defer kernel.Close()
	k, _ := kernel.DataPtrFloat32()
	for i := range k {
		k[i] = 1 / float32(size)
	}
	gocv.SepFilter2D(src.m, &dst.m, gocv.MatTypeCV32F, kernel, kernel, image.Pt(-1, -1), 0, gocv.BorderReflect101)
}
