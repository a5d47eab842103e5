package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vl "visilearn/pkg/visilearn"
)

func TestParseArgs_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no sets", args: nil},
		{name: "three args", args: []string{"bg", "in", "gt"}},
		{name: "five args", args: []string{"bg", "in", "gt", "-", "bg2"}},
		{name: "unknown flag", args: []string{"-bogus", "bg", "in", "gt", "-"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			_, err := parseArgs(tt.args, &stderr)
			assert.ErrorIs(t, err, errUsage)
			assert.Contains(t, stderr.String(), "usage: visilearn")
		})
	}
}

func TestParseArgs_Flags(t *testing.T) {
	var stderr bytes.Buffer
	opts, err := parseArgs([]string{
		"-window", "5", "-smoothing", "0.5", "-workers", "3", "-samples", "px.mat", "-lang", "go", "-out", "models",
		"a", "b", "c", "-",
		"d", "e", "f", "m.png",
	}, &stderr)
	require.NoError(t, err)

	assert.Equal(t, 5, opts.cfg.WindowSize)
	assert.Equal(t, 0.5, opts.cfg.Smoothing)
	assert.Equal(t, 3, opts.cfg.Workers)
	assert.True(t, opts.cfg.CollectSamples)
	assert.Equal(t, "px.mat", opts.samples)
	assert.Equal(t, vl.LangGo, opts.lang)
	assert.Equal(t, "models", opts.outDir)
	assert.Equal(t, []vl.ExampleSet{
		{Background: "a", Input: "b", GroundTruth: "c", Mask: "-"},
		{Background: "d", Input: "e", GroundTruth: "f", Mask: "m.png"},
	}, opts.sets)
}

func TestParseArgs_InvalidValues(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseArgs([]string{"-window", "4", "a", "b", "c", "-"}, &stderr)
	assert.ErrorContains(t, err, "window_size")
	assert.NotErrorIs(t, err, errUsage)

	_, err = parseArgs([]string{"-lang", "rust", "a", "b", "c", "-"}, &stderr)
	assert.ErrorContains(t, err, "rust")
}

func TestParseArgs_ExplicitZeroIsRejected(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{flag: "-smoothing", want: "smoothing"},
		{flag: "-window", want: "window_size"},
		{flag: "-workers", want: "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			var stderr bytes.Buffer
			_, err := parseArgs([]string{tt.flag, "0", "a", "b", "c", "-"}, &stderr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.NotErrorIs(t, err, errUsage)
		})
	}
}

func TestParseArgs_UnsetFlagsKeepConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"window_size": 7, "smoothing": 0.5, "workers": 2}`), 0644))

	var stderr bytes.Buffer
	opts, err := parseArgs([]string{"-config", path, "-workers", "3", "a", "b", "c", "-"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, 7, opts.cfg.WindowSize)
	assert.Equal(t, 0.5, opts.cfg.Smoothing)
	assert.Equal(t, 3, opts.cfg.Workers)
}

func writePNG(t *testing.T, path string, f func(x, y int) uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 16; x++ {
			img.Pix[y*img.Stride+x] = f(x, y)
		}
	}
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, png.Encode(file, img))
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	bg := filepath.Join(dir, "bg.png")
	in := filepath.Join(dir, "in.png")
	gt := filepath.Join(dir, "gt.png")
	mask := filepath.Join(dir, "mask.png")
	writePNG(t, bg, func(x, y int) uint8 { return uint8(10*x + y*y) })
	writePNG(t, in, func(x, y int) uint8 { return uint8((x*37 + y*91) % 256) })
	writePNG(t, gt, func(x, y int) uint8 {
		if x < 8 {
			return 255
		}
		return 0
	})
	writePNG(t, mask, func(x, y int) uint8 {
		if y < 6 {
			return 255
		}
		return 0
	})

	out := filepath.Join(dir, "out")
	samples := filepath.Join(dir, vl.SamplesFile)
	var stdout, stderr bytes.Buffer
	err := run([]string{
		"-out", out, "-window", "3", "-samples", samples, "-workers", "2",
		bg, in, gt, "-",
		bg, in, gt, mask,
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	text := stdout.String()
	assert.Contains(t, text, "100% inside image mask.")
	assert.Contains(t, text, "50% inside image mask.")
	assert.Contains(t, text, "PF = 50%")
	assert.Contains(t, text, "288 pixels stored")

	for _, name := range []string{vl.VisibleLUTFile, vl.HiddenLUTFile, "ncc_proba.cpp"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
	v, err := vl.LoadLUT(filepath.Join(out, vl.VisibleLUTFile), vl.DefaultBinning())
	require.NoError(t, err)
	var sum float64
	for _, p := range v.Values() {
		sum += float64(p)
	}
	assert.InDelta(t, 1.0, sum, 1e-4)

	rows, cols, _, err := vl.LoadMat(samples)
	require.NoError(t, err)
	assert.Equal(t, 288, rows)
	assert.Equal(t, vl.SampleColumns, cols)
}

func TestRun_MissingImage(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	err := run([]string{"-out", dir, filepath.Join(dir, "nope.png"), "b", "c", "-"}, &stdout, &stderr)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "nope.png"), err.Error())
	assert.NotErrorIs(t, err, errUsage)
}
