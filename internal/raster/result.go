package raster

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
)

// PNGDataURIPrefix prefixes every ImageData produced by this package.
const PNGDataURIPrefix = "data:image/png;base64,"

// Sentinel errors for capture post-processing.
var (
	ErrEmptyCapture  = errors.New("empty capture")
	ErrDecodeCapture = errors.New("failed to decode capture")
	ErrEncodePNG     = errors.New("failed to encode PNG")
	ErrInvalidScale  = errors.New("scale must be positive")
)

// Result is a rasterized replacement for a DOM node.
// Width and Height are logical (CSS) pixels, not device pixels.
// The zero value signals failure.
type Result struct {
	ImageData string
	Width     float64
	Height    float64
}

// OK reports whether r has positive area and image data.
func (r Result) OK() bool {
	return r.ImageData != "" && r.Width > 0 && r.Height > 0
}

// EncodePNG encodes img as a PNG data URI.
func EncodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncodePNG, err)
	}
	return PNGDataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURI returns the payload of a base64 data URI.
func DecodeDataURI(uri string) ([]byte, error) {
	_, payload, ok := strings.Cut(uri, ";base64,")
	if !ok || !strings.HasPrefix(uri, "data:") {
		return nil, fmt.Errorf("not a base64 data URI")
	}
	return base64.StdEncoding.DecodeString(payload)
}

// FromCapture trims a device-pixel PNG screenshot and reports its size in
// logical pixels. padding is in device pixels.
func FromCapture(data []byte, scale float64, padding int) (Result, error) {
	if len(data) == 0 {
		return Result{}, ErrEmptyCapture
	}
	if scale <= 0 {
		return Result{}, ErrInvalidScale
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDecodeCapture, err)
	}
	if img.Bounds().Empty() {
		return Result{}, ErrEmptyCapture
	}

	trimmed := Trim(img, padding)
	uri, err := EncodePNG(trimmed)
	if err != nil {
		return Result{}, err
	}

	b := trimmed.Bounds()
	return Result{
		ImageData: uri,
		Width:     float64(b.Dx()) / scale,
		Height:    float64(b.Dy()) / scale,
	}, nil
}
