//go:build purego || js

package main

import (
	"fmt"
	"os"

	vl "visilearn/pkg/visilearn"
)

type imageLoader struct{}

// LoadGray decodes path and converts it to luminance in [0, 255].
func (imageLoader) LoadGray(path string) (vl.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return vl.Mat{}, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()
	return vl.DecodeGray(f)
}
