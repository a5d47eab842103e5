package visilearn

import (
	"fmt"
	"os"
	"path/filepath"
)

// Default artifact names.
const (
	VisibleLUTFile = "ncc_proba_v.mat"
	HiddenLUTFile  = "ncc_proba_h.mat"
	SamplesFile    = "pixels.mat"
)

// Prior returns visible / (visible + hidden).
func Prior(visibleTotal, hiddenTotal float64) (float64, error) {
	total := visibleTotal + hiddenTotal
	if !(total > 0) {
		return 0, ErrNoSamples
	}
	return visibleTotal / total, nil
}

// Model is the exported result of a training run.
type Model struct {
	// Prior is the fraction of training samples labelled visible.
	Prior   float64
	Visible *LUT
	Hidden  *LUT
}

// Export computes the visibility prior and normalizes both histograms of acc
// with smoothing. acc cannot receive further samples afterwards.
func Export(acc *Accumulator, smoothing float64) (*Model, error) {
	prior, err := Prior(acc.Visible.Total(), acc.Hidden.Total())
	if err != nil {
		return nil, err
	}
	if err := acc.Visible.Normalize(smoothing); err != nil {
		return nil, err
	}
	if err := acc.Hidden.Normalize(smoothing); err != nil {
		return nil, err
	}
	v, err := acc.Visible.LUT()
	if err != nil {
		return nil, err
	}
	h, err := acc.Hidden.LUT()
	if err != nil {
		return nil, err
	}
	return &Model{Prior: prior, Visible: v, Hidden: h}, nil
}

// SaveOptions controls which artifacts Model.Save writes.
type SaveOptions struct {
	// Lang selects the generated source file; empty skips it.
	Lang SourceLang
	// Package is the package clause of generated Go source.
	Package string
}

// Save writes both LUT files and, if requested, the generated source file
// into dir. It returns the paths written.
func (m *Model) Save(dir string, opts SaveOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	var written []string

	vPath := filepath.Join(dir, VisibleLUTFile)
	if err := m.Visible.Save(vPath); err != nil {
		return written, err
	}
	written = append(written, vPath)

	hPath := filepath.Join(dir, HiddenLUTFile)
	if err := m.Hidden.Save(hPath); err != nil {
		return written, err
	}
	written = append(written, hPath)

	if opts.Lang == "" {
		return written, nil
	}
	srcPath := filepath.Join(dir, opts.Lang.FileName())
	f, err := os.Create(srcPath)
	if err != nil {
		return written, fmt.Errorf("create source file: %w", err)
	}
	if err := WriteSource(f, m, opts.Lang, opts.Package); err != nil {
		f.Close()
		return written, fmt.Errorf("%s: %w", srcPath, err)
	}
	if err := f.Close(); err != nil {
		return written, err
	}
	return append(written, srcPath), nil
}
