//go:build !purego && !js

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	vl "visilearn/pkg/visilearn"
)

type imageLoader struct{}

// LoadGray reads path as 8-bit grayscale and converts it to CV_32F in [0, 255].
// FITS files, which OpenCV cannot read, go through vl.DecodeGray.
func (imageLoader) LoadGray(path string) (vl.Mat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fits", ".fit", ".fts":
		return loadFITS(path)
	}

	src := gocv.IMRead(path, gocv.IMReadGrayScale)
	if src.Empty() {
		src.Close()
		return vl.Mat{}, fmt.Errorf("could not load image: %s", path)
	}
	defer src.Close()

	floatMat := gocv.NewMat()
	src.ConvertTo(&floatMat, gocv.MatTypeCV32F)
	return vl.WrapGocv(floatMat), nil
}

func loadFITS(path string) (vl.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return vl.Mat{}, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	return vl.DecodeGray(f)
}
