package visilearn

import (
	"errors"
	"fmt"
)

var (
	// ErrFinalized is returned when a normalized histogram is mutated or
	// normalized again.
	ErrFinalized = errors.New("histogram already normalized")
	// ErrNotNormalized is returned when a LUT is requested before Normalize.
	ErrNotNormalized = errors.New("histogram not normalized")
	// ErrInvalidWeight is returned for zero, negative or non-finite weights.
	ErrInvalidWeight = errors.New("weight must be positive and finite")
	// ErrInvalidSmoothing is returned for a smoothing constant <= 0.
	ErrInvalidSmoothing = errors.New("smoothing must be positive and finite")
	// ErrNoSamples is returned when the visibility prior is undefined because
	// neither class received a sample.
	ErrNoSamples = errors.New("no training samples accumulated")
	// ErrSizeMismatch is returned when images of one example set differ in size.
	ErrSizeMismatch = errors.New("image size mismatch")
)

func sizeMismatch(what string, a, b Mat) error {
	return fmt.Errorf("%w: %s is %dx%d, expected %dx%d",
		ErrSizeMismatch, what, b.Cols(), b.Rows(), a.Cols(), a.Rows())
}

// checkSameSize verifies that other is a non-empty single-channel image with
// the dimensions of ref.
func checkSameSize(what string, ref, other Mat) error {
	if other.Empty() {
		return fmt.Errorf("%s is empty", what)
	}
	if other.Channels() != 1 {
		return fmt.Errorf("%s has %d channels, expected 1", what, other.Channels())
	}
	if other.Rows() != ref.Rows() || other.Cols() != ref.Cols() {
		return sizeMismatch(what, ref, other)
	}
	return nil
}
