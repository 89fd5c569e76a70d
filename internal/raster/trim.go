// Package raster turns captured or vector content into PNG bitmaps sized for
// inline <img> substitution.
package raster

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// whiteThreshold is the channel value at or above which a pixel counts as
// background. Anti-aliased edges of typeset glyphs fall just under it.
const whiteThreshold = 250

// BoundingBox holds inclusive pixel offsets into a raster buffer.
type BoundingBox struct {
	Top    int
	Bottom int
	Left   int
	Right  int
}

// Width returns the number of columns covered by the box.
func (b BoundingBox) Width() int { return b.Right - b.Left + 1 }

// Height returns the number of rows covered by the box.
func (b BoundingBox) Height() int { return b.Bottom - b.Top + 1 }

// Trim crops img to its non-background content plus padding on every side,
// clamped to the source bounds. The result is a new white-filled buffer with
// the source region copied at the origin; img is not modified.
//
// A fully blank input keeps the whole extent: each edge scan that finds no
// content leaves its boundary at the buffer's extreme.
func Trim(img image.Image, padding int) *image.RGBA {
	b := img.Bounds()
	if b.Empty() {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	box := FindBounds(img, padding)
	out := image.NewRGBA(image.Rect(0, 0, box.Width(), box.Height()))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	src := image.Point{X: b.Min.X + box.Left, Y: b.Min.Y + box.Top}
	draw.Draw(out, out.Bounds(), img, src, draw.Over)
	return out
}

// FindBounds returns the padded content box of img in coordinates relative to
// img.Bounds().Min.
func FindBounds(img image.Image, padding int) BoundingBox {
	if padding < 0 {
		padding = 0
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return BoundingBox{}
	}

	isContent := func(x, y int) bool {
		r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
		return r>>8 < whiteThreshold || g>>8 < whiteThreshold || bl>>8 < whiteThreshold
	}

	box := BoundingBox{Top: 0, Bottom: height - 1, Left: 0, Right: width - 1}

findTop:
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if isContent(x, y) {
				box.Top = y
				break findTop
			}
		}
	}

findBottom:
	for y := height - 1; y >= 0; y-- {
		for x := 0; x < width; x++ {
			if isContent(x, y) {
				box.Bottom = y
				break findBottom
			}
		}
	}

findLeft:
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			if isContent(x, y) {
				box.Left = x
				break findLeft
			}
		}
	}

findRight:
	for x := width - 1; x >= 0; x-- {
		for y := 0; y < height; y++ {
			if isContent(x, y) {
				box.Right = x
				break findRight
			}
		}
	}

	box.Top = max(0, box.Top-padding)
	box.Bottom = min(height-1, box.Bottom+padding)
	box.Left = max(0, box.Left-padding)
	box.Right = min(width-1, box.Right+padding)
	return box
}
