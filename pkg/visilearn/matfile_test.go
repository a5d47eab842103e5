package visilearn

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatFile_RoundTrip(t *testing.T) {
	data := []float32{0, 1, -1, float32(math.Pi), math.SmallestNonzeroFloat32, math.MaxFloat32}
	var buf bytes.Buffer
	require.NoError(t, WriteMat(&buf, 2, 3, data))

	rows, cols, got, err := ReadMat(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, data, got)
}

func TestMatFile_Header(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMat(&buf, 1, 2, []float32{1, 2}))
	b := buf.Bytes()
	require.Len(t, b, 16+8)
	assert.Equal(t, []byte("VMAT"), b[:4])
	assert.Equal(t, []byte{1, 0, 0, 0}, b[4:8])
	assert.Equal(t, []byte{1, 0, 0, 0}, b[8:12])
	assert.Equal(t, []byte{2, 0, 0, 0}, b[12:16])
}

func TestMatFile_Errors(t *testing.T) {
	assert.Error(t, WriteMat(io.Discard, 2, 2, []float32{1, 2, 3}))
	assert.Error(t, WriteMat(io.Discard, -1, 2, nil))

	_, _, _, err := ReadMat(bytes.NewReader([]byte("NOPE\x01\x00\x00\x00\x01\x00\x00\x00\x01\x00\x00\x00")))
	assert.ErrorContains(t, err, "not a matrix file")

	var buf bytes.Buffer
	require.NoError(t, WriteMat(&buf, 2, 2, []float32{1, 2, 3, 4}))
	truncated := buf.Bytes()[:buf.Len()-3]
	_, _, _, err = ReadMat(bytes.NewReader(truncated))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	header := buf.Bytes()[:16]
	_, _, _, err = ReadMat(bytes.NewReader(header))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	bad := append([]byte(nil), buf.Bytes()...)
	bad[4] = 7
	_, _, _, err = ReadMat(bytes.NewReader(bad))
	assert.ErrorContains(t, err, "element type")

	_, _, _, err = ReadMat(bytes.NewReader(nil))
	assert.Error(t, err)

	huge := []byte("VMAT\x01\x00\x00\x00\xff\xff\xff\xff\xff\xff\xff\xff")
	_, _, _, err = ReadMat(bytes.NewReader(huge))
	assert.ErrorContains(t, err, "exceeds")

	// Claims 1024x1024 values but carries only a few.
	short := append([]byte("VMAT\x01\x00\x00\x00\x00\x04\x00\x00\x00\x04\x00\x00"), make([]byte, 40)...)
	_, _, _, err = ReadMat(bytes.NewReader(short))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestMatFile_MultiChunkRoundTrip(t *testing.T) {
	data := make([]float32, matReadChunk+7)
	for i := range data {
		data[i] = float32(i)
	}
	var buf bytes.Buffer
	require.NoError(t, WriteMat(&buf, 1, len(data), data))

	rows, cols, got, err := ReadMat(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
	assert.Equal(t, len(data), cols)
	assert.Equal(t, data, got)
}

func TestLUT_SaveLoadRoundTrip(t *testing.T) {
	b := smallBinning()
	h, err := NewHistogram("visible", b)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		require.NoError(t, h.AddElem(float64(i%20)/10-1, float64(i*30), 1))
	}
	require.NoError(t, h.Normalize(0.1))

	path := filepath.Join(t.TempDir(), VisibleLUTFile)
	require.NoError(t, h.SaveHistogram(path))

	loaded, err := LoadLUT(path, b)
	require.NoError(t, err)
	want, err := h.LUT()
	require.NoError(t, err)
	assert.Equal(t, want.Values(), loaded.Values())
	assert.Equal(t, b, loaded.Binning())

	other := b
	other.Correlations = 9
	_, err = LoadLUT(path, other)
	assert.ErrorContains(t, err, "binning expects")
}

func TestLUT_SaveBeforeNormalize(t *testing.T) {
	h, err := NewHistogram("visible", smallBinning())
	require.NoError(t, err)
	err = h.SaveHistogram(filepath.Join(t.TempDir(), "x.mat"))
	assert.ErrorIs(t, err, ErrNotNormalized)
}

func TestLoadMat_MissingFile(t *testing.T) {
	_, _, _, err := LoadMat(filepath.Join(t.TempDir(), "missing.mat"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewLUT_WrongLength(t *testing.T) {
	_, err := NewLUT(smallBinning(), []float32{1, 2, 3})
	assert.Error(t, err)
}
