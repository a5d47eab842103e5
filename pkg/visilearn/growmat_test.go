package visilearn

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowMat_AppendPreservesRows(t *testing.T) {
	g := NewGrowMat(2, SampleColumns)
	assert.Equal(t, 0, g.Rows())
	assert.Equal(t, 2, g.Cap())

	const k = 1000
	caps := map[int]bool{}
	for i := 0; i < k; i++ {
		require.NoError(t, g.AppendSample(float32(i), float32(-i), float32(i%256)))
		require.GreaterOrEqual(t, g.Cap(), g.Rows())
		caps[g.Cap()] = true
	}
	require.Equal(t, k, g.Rows())
	// 2, 4, 8, ..., 1024
	assert.Len(t, caps, 10)

	for i := 0; i < k; i++ {
		assert.Equal(t, []float32{float32(i), float32(-i), float32(i % 256)}, g.Row(i), "row %d", i)
	}
}

func TestGrowMat_ZeroCapacity(t *testing.T) {
	g := NewGrowMat(0, 2)
	require.NoError(t, g.Append(1, 2))
	require.NoError(t, g.Append(3, 4))
	assert.Equal(t, 2, g.Rows())
	assert.Equal(t, float32(4), g.At(1, 1))
}

func TestGrowMat_WrongArity(t *testing.T) {
	g := NewGrowMat(4, SampleColumns)
	assert.Error(t, g.Append(1, 2))
	assert.Error(t, g.Append(1, 2, 3, 4))
	assert.Equal(t, 0, g.Rows())
}

func TestGrowMat_RowIsCopy(t *testing.T) {
	g := NewGrowMat(1, 2)
	require.NoError(t, g.Append(1, 2))
	row := g.Row(0)
	row[0] = 99
	assert.Equal(t, float32(1), g.At(0, 0))
}

func TestGrowMat_AppendRows(t *testing.T) {
	a := NewGrowMat(1, 2)
	b := NewGrowMat(1, 2)
	require.NoError(t, a.Append(1, 2))
	require.NoError(t, b.Append(3, 4))
	require.NoError(t, b.Append(5, 6))

	require.NoError(t, a.AppendRows(b))
	require.Equal(t, 3, a.Rows())
	assert.Equal(t, []float32{1, 2}, a.Row(0))
	assert.Equal(t, []float32{3, 4}, a.Row(1))
	assert.Equal(t, []float32{5, 6}, a.Row(2))

	assert.Error(t, a.AppendRows(NewGrowMat(1, 3)))
}

func TestGrowMat_SaveRoundTrip(t *testing.T) {
	g := NewGrowMat(1, SampleColumns)
	for i := 0; i < 5; i++ {
		require.NoError(t, g.AppendSample(0.1*float32(i), 10*float32(i), 255))
	}

	path := filepath.Join(t.TempDir(), SamplesFile)
	require.NoError(t, g.Save(path))

	rows, cols, data, err := LoadMat(path)
	require.NoError(t, err)
	assert.Equal(t, 5, rows)
	assert.Equal(t, SampleColumns, cols)
	for i := 0; i < rows; i++ {
		assert.Equal(t, g.Row(i), data[i*cols:(i+1)*cols])
	}

	var buf bytes.Buffer
	require.NoError(t, g.Encode(&buf))
	assert.Equal(t, 16+5*SampleColumns*4, buf.Len())
}
