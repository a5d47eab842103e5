package visilearn

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"
)

// FITS primary images are registered with the image package so DecodeGray
// (and image.Decode) read them like any other format. 8-bit data decodes to
// *image.Gray, everything else to *image.Gray16 after BSCALE/BZERO and
// clamping to [0, 65535]. Rows are kept in file order.

func init() {
	image.RegisterFormat("fits", "SIMPLE  =", decodeFITS, decodeFITSConfig)
}

const (
	fitsCardSize   = 80
	fitsBlockCards = 36

	maxFITSSide  = 1 << 16
	maxFITSBytes = 1 << 30
)

type fitsHeader struct {
	bitpix        int
	naxis         int
	width, height int
	bzero, bscale float64
	bayer         string
}

func readFITSHeader(r io.Reader) (*fitsHeader, error) {
	h := &fitsHeader{bscale: 1}
	card := make([]byte, fitsCardSize)
	for n := 1; ; n++ {
		if _, err := io.ReadFull(r, card); err != nil {
			return nil, fmt.Errorf("reading FITS header card: %w", err)
		}
		keyword := strings.TrimSpace(string(card[:8]))
		if keyword == "END" {
			if rest := n % fitsBlockCards; rest != 0 {
				pad := int64((fitsBlockCards - rest) * fitsCardSize)
				if _, err := io.CopyN(io.Discard, r, pad); err != nil {
					return nil, fmt.Errorf("skipping FITS header padding: %w", err)
				}
			}
			break
		}
		if card[8] != '=' || card[9] != ' ' {
			continue
		}
		raw := strings.TrimSpace(strings.SplitN(string(card[10:]), "/", 2)[0])

		var err error
		switch keyword {
		case "BITPIX":
			h.bitpix, err = strconv.Atoi(raw)
		case "NAXIS":
			h.naxis, err = strconv.Atoi(raw)
		case "NAXIS1":
			h.width, err = strconv.Atoi(raw)
		case "NAXIS2":
			h.height, err = strconv.Atoi(raw)
		case "BZERO":
			h.bzero, err = strconv.ParseFloat(raw, 64)
		case "BSCALE":
			h.bscale, err = strconv.ParseFloat(raw, 64)
		case "BAYERPAT":
			h.bayer = strings.ToUpper(strings.TrimSpace(strings.Trim(raw, "'")))
		}
		if err != nil {
			return nil, fmt.Errorf("FITS keyword %s: %w", keyword, err)
		}
	}

	if h.naxis < 2 || h.width <= 0 || h.height <= 0 {
		return nil, fmt.Errorf("invalid FITS: NAXIS=%d, NAXIS1=%d, NAXIS2=%d", h.naxis, h.width, h.height)
	}
	switch h.bitpix {
	case 8, 16, 32, -32, -64:
	default:
		return nil, fmt.Errorf("unsupported BITPIX: %d", h.bitpix)
	}
	if h.bayer != "" && h.bayer != "RGGB" {
		return nil, fmt.Errorf("unsupported BAYERPAT: %s", h.bayer)
	}
	if h.width > maxFITSSide || h.height > maxFITSSide ||
		uint64(h.width)*uint64(h.height)*uint64(h.bytesPerPixel()) > maxFITSBytes {
		return nil, fmt.Errorf("FITS image %dx%d at BITPIX %d is too large", h.width, h.height, h.bitpix)
	}
	return h, nil
}

func (h *fitsHeader) bytesPerPixel() int {
	if h.bitpix < 0 {
		return -h.bitpix / 8
	}
	return h.bitpix / 8
}

func (h *fitsHeader) colorModel() color.Model {
	if h.bitpix == 8 {
		return color.GrayModel
	}
	return color.Gray16Model
}

// physical returns pixel i of raw after BSCALE and BZERO.
func (h *fitsHeader) physical(raw []byte, i int) float64 {
	var v float64
	switch h.bitpix {
	case 8:
		v = float64(raw[i])
	case 16:
		v = float64(int16(binary.BigEndian.Uint16(raw[2*i:])))
	case 32:
		v = float64(int32(binary.BigEndian.Uint32(raw[4*i:])))
	case -32:
		v = float64(math.Float32frombits(binary.BigEndian.Uint32(raw[4*i:])))
	case -64:
		v = math.Float64frombits(binary.BigEndian.Uint64(raw[8*i:]))
	}
	return v*h.bscale + h.bzero
}

func decodeFITSConfig(r io.Reader) (image.Config, error) {
	h, err := readFITSHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: h.colorModel(), Width: h.width, Height: h.height}, nil
}

func decodeFITS(r io.Reader) (image.Image, error) {
	h, err := readFITSHeader(r)
	if err != nil {
		return nil, err
	}
	n := h.width * h.height
	size := int64(n * h.bytesPerPixel())
	// Bounded read: a truncated file never costs the full claimed size.
	raw, err := io.ReadAll(io.LimitReader(r, size))
	if err != nil {
		return nil, fmt.Errorf("reading %d-bit FITS pixel data: %w", h.bitpix, err)
	}
	if int64(len(raw)) < size {
		return nil, fmt.Errorf("reading %d-bit FITS pixel data: %w", h.bitpix, io.ErrUnexpectedEOF)
	}

	values := make([]float64, n)
	for i := range values {
		values[i] = h.physical(raw, i)
	}
	if h.bayer != "" {
		values = debayerRGGB(values, h.width, h.height)
	}

	rect := image.Rect(0, 0, h.width, h.height)
	if h.bitpix == 8 {
		img := image.NewGray(rect)
		for i, v := range values {
			img.Pix[i] = uint8(clampFloat(v, 0, 255) + 0.5)
		}
		return img, nil
	}
	img := image.NewGray16(rect)
	for i, v := range values {
		binary.BigEndian.PutUint16(img.Pix[2*i:], uint16(clampFloat(v, 0, 65535)+0.5))
	}
	return img, nil
}

// clampFloat maps NaN to lo.
func clampFloat(v, lo, hi float64) float64 {
	if !(v > lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// debayerRGGB interpolates a raw RGGB mosaic bilinearly and returns the
// luminance (R + G + B) / 3 of every pixel. Neighbors outside the image
// repeat the edge pixel.
//
//	(even row, even col) = R
//	(even row, odd  col) = G
//	(odd  row, even col) = G
//	(odd  row, odd  col) = B
func debayerRGGB(data []float64, width, height int) []float64 {
	px := func(x, y int) float64 {
		x = min(max(x, 0), width-1)
		y = min(max(y, 0), height-1)
		return data[y*width+x]
	}
	cross := func(x, y int) float64 {
		return (px(x-1, y) + px(x+1, y) + px(x, y-1) + px(x, y+1)) / 4
	}
	diagonal := func(x, y int) float64 {
		return (px(x-1, y-1) + px(x+1, y-1) + px(x-1, y+1) + px(x+1, y+1)) / 4
	}

	out := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var r, g, b float64
			switch {
			case y%2 == 0 && x%2 == 0:
				r, g, b = px(x, y), cross(x, y), diagonal(x, y)
			case y%2 == 0:
				r = (px(x-1, y) + px(x+1, y)) / 2
				g = px(x, y)
				b = (px(x, y-1) + px(x, y+1)) / 2
			case x%2 == 0:
				r = (px(x, y-1) + px(x, y+1)) / 2
				g = px(x, y)
				b = (px(x-1, y) + px(x+1, y)) / 2
			default:
				r, g, b = diagonal(x, y), cross(x, y), px(x, y)
			}
			out[y*width+x] = (r + g + b) / 3
		}
	}
	return out
}
