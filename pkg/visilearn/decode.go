package visilearn

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// DecodeGray decodes a PNG, JPEG, GIF, BMP or TIFF image and converts it to
// luminance in [0, 255].
func DecodeGray(r io.Reader) (Mat, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return Mat{}, fmt.Errorf("decoding image: %w", err)
	}
	return ImageToMat(img), nil
}

// ImageToMat converts img to a single-channel float32 Mat in [0, 255].
func ImageToMat(img image.Image) Mat {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]float32, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// Luminance in the 16-bit range, then scaled to 8 bits
			gray := (19595*r + 38470*g + 7471*b + 1<<15) >> 16
			pixels[y*w+x] = float32(gray) / 257
		}
	}

	return NewMatFromFloat32(h, w, pixels)
}
