package visilearn

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Matrix files are little-endian:
//
//	[4]byte  magic "VMAT"
//	uint32   element type (matElemFloat32)
//	uint32   rows
//	uint32   cols
//	float32  rows*cols values, row-major
var matMagic = [4]byte{'V', 'M', 'A', 'T'}

const matElemFloat32 uint32 = 1

const (
	// maxMatElems bounds rows*cols of a matrix file (1 GiB of float32).
	maxMatElems  = 1 << 28
	matReadChunk = 1 << 16
)

type matHeader struct {
	Magic    [4]byte
	ElemType uint32
	Rows     uint32
	Cols     uint32
}

// WriteMat writes a dense float32 matrix to w.
func WriteMat(w io.Writer, rows, cols int, data []float32) error {
	if rows < 0 || cols < 0 || uint64(rows) > math.MaxUint32 || uint64(cols) > math.MaxUint32 {
		return fmt.Errorf("invalid matrix shape %dx%d", rows, cols)
	}
	if len(data) < rows*cols {
		return fmt.Errorf("matrix %dx%d needs %d values, got %d", rows, cols, rows*cols, len(data))
	}
	hdr := matHeader{Magic: matMagic, ElemType: matElemFloat32, Rows: uint32(rows), Cols: uint32(cols)}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("writing matrix header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, data[:rows*cols]); err != nil {
		return fmt.Errorf("writing matrix data: %w", err)
	}
	return nil
}

// ReadMat reads a matrix written by WriteMat.
func ReadMat(r io.Reader) (rows, cols int, data []float32, err error) {
	var hdr matHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return 0, 0, nil, fmt.Errorf("reading matrix header: %w", err)
	}
	if hdr.Magic != matMagic {
		return 0, 0, nil, fmt.Errorf("not a matrix file (magic %q)", hdr.Magic[:])
	}
	if hdr.ElemType != matElemFloat32 {
		return 0, 0, nil, fmt.Errorf("unsupported matrix element type %d", hdr.ElemType)
	}
	n := uint64(hdr.Rows) * uint64(hdr.Cols)
	if n > maxMatElems {
		return 0, 0, nil, fmt.Errorf("matrix %dx%d exceeds %d elements", hdr.Rows, hdr.Cols, maxMatElems)
	}
	rows, cols = int(hdr.Rows), int(hdr.Cols)

	// Read in chunks so a header claiming more data than the file holds
	// fails with io.ErrUnexpectedEOF before the full size is allocated.
	data = make([]float32, 0, min(n, matReadChunk))
	for remaining := int(n); remaining > 0; {
		chunk := make([]float32, min(remaining, matReadChunk))
		if err := binary.Read(r, binary.LittleEndian, chunk); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return 0, 0, nil, fmt.Errorf("reading %dx%d matrix data: %w", rows, cols, err)
		}
		data = append(data, chunk...)
		remaining -= len(chunk)
	}
	return rows, cols, data, nil
}

// SaveMat writes a matrix file at path.
func SaveMat(path string, rows, cols int, data []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create matrix file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := WriteMat(w, rows, cols, data); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// LoadMat reads a matrix file from path.
func LoadMat(path string) (rows, cols int, data []float32, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("open matrix file: %w", err)
	}
	defer f.Close()
	rows, cols, data, err = ReadMat(bufio.NewReader(f))
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, cols, data, nil
}
