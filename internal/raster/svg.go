package raster

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-shiori/dom"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/net/html"
)

// Fallback size used when an SVG carries no usable dimensions, matching what a
// detached element measures as in a browser.
const (
	DefaultSVGWidth  = 400
	DefaultSVGHeight = 300
)

const (
	svgNamespace     = "http://www.w3.org/2000/svg"
	svgDataURIPrefix = "data:image/svg+xml;base64,"
	maxSVGDimension  = 8192
)

var (
	lengthPattern     = regexp.MustCompile(`^\s*([0-9]*\.?[0-9]+)\s*(px)?\s*$`)
	styleWidthPattern = regexp.MustCompile(`(?i)(?:^|[\s;])width\s*:\s*([0-9]*\.?[0-9]+)px`)
	styleHeightPtn    = regexp.MustCompile(`(?i)(?:^|[\s;])height\s*:\s*([0-9]*\.?[0-9]+)px`)
	numberPattern     = regexp.MustCompile(`^\s*[-+]?(?:[0-9]*\.[0-9]+|[0-9]+\.?)(?:[eE][-+]?[0-9]+)?(?:px|pt|pc|mm|cm|in|em|%)?\s*$`)
)

// geometryAttrs are the shape attributes oksvg parses as plain numbers.
var geometryAttrs = map[string]bool{
	"x": true, "y": true, "width": true, "height": true,
	"rx": true, "ry": true, "cx": true, "cy": true, "r": true,
	"x1": true, "y1": true, "x2": true, "y2": true,
}

// SVGRasterizer converts inline <svg> elements to PNG without a browser.
type SVGRasterizer struct {
	logger *zap.Logger
}

// NewSVGRasterizer returns a rasterizer logging to logger (nil means no-op).
func NewSVGRasterizer(logger *zap.Logger) *SVGRasterizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SVGRasterizer{logger: logger}
}

// RasterizeSVG renders svg at its display size on a white background.
// It never returns an error: any failure yields the zero Result and the caller
// keeps the original node. That includes graphics oksvg cannot draw in full,
// such as text labels. svg itself is never modified.
func (r *SVGRasterizer) RasterizeSVG(ctx context.Context, svg *html.Node) (result Result) {
	if svg == nil || ctx.Err() != nil {
		return Result{}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("svg rasterization panicked", zap.Any("panic", rec))
			result = Result{}
		}
	}()

	width, height := MeasureSVG(svg)

	clone := dom.Clone(svg, true)
	dom.SetAttribute(clone, "width", formatPixels(width))
	dom.SetAttribute(clone, "height", formatPixels(height))
	if !dom.HasAttribute(clone, "viewBox") {
		dom.SetAttribute(clone, "viewBox", "0 0 "+formatPixels(width)+" "+formatPixels(height))
	}
	if !dom.HasAttribute(clone, "xmlns") {
		dom.SetAttribute(clone, "xmlns", svgNamespace)
	}

	if err := checkGeometry(clone); err != nil {
		r.logger.Debug("svg kept as vector", zap.Error(err))
		return Result{}
	}

	uri := svgDataURIPrefix + base64.StdEncoding.EncodeToString([]byte(dom.OuterHTML(clone)))
	img, err := decodeSVGDataURI(uri, width, height)
	if err != nil {
		r.logger.Debug("svg rasterization failed", zap.Error(err))
		return Result{}
	}

	data, err := EncodePNG(img)
	if err != nil {
		r.logger.Debug("svg png encoding failed", zap.Error(err))
		return Result{}
	}

	return Result{ImageData: data, Width: float64(width), Height: float64(height)}
}

func decodeSVGDataURI(uri string, width, height int) (*image.RGBA, error) {
	raw, err := DecodeDataURI(uri)
	if err != nil {
		return nil, err
	}

	// Strict mode fails on elements oksvg would skip, such as <text> and
	// <foreignObject>, instead of drawing the graphic without them.
	icon, err := oksvg.ReadIconStream(bytes.NewReader(raw), oksvg.StrictErrorMode)
	if err != nil {
		return nil, err
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(width, height, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1)
	return rgba, nil
}

// checkGeometry rejects shapes oksvg would drop without an error: malformed
// path data and non-numeric geometry attributes.
func checkGeometry(svg *html.Node) error {
	for _, el := range dom.GetElementsByTagName(svg, "*") {
		switch el.Data {
		case "path":
			pc := oksvg.PathCursor{ErrorMode: oksvg.StrictErrorMode}
			if err := pc.CompilePath(dom.GetAttribute(el, "d")); err != nil {
				return fmt.Errorf("path d=%q: %w", dom.GetAttribute(el, "d"), err)
			}
		case "rect", "circle", "ellipse", "line":
			for _, a := range el.Attr {
				if geometryAttrs[a.Key] && !numberPattern.MatchString(a.Val) {
					return fmt.Errorf("%s %s=%q: not a number", el.Data, a.Key, a.Val)
				}
			}
		}
	}
	return nil
}

// MeasureSVG returns the display size of svg in whole pixels.
// Explicit width/height attributes win, then the viewBox, then inline style.
func MeasureSVG(svg *html.Node) (width, height int) {
	w := parseLength(dom.GetAttribute(svg, "width"))
	h := parseLength(dom.GetAttribute(svg, "height"))

	if w == 0 || h == 0 {
		if vw, vh := parseViewBox(dom.GetAttribute(svg, "viewBox")); vw > 0 && vh > 0 {
			switch {
			case w == 0 && h == 0:
				w, h = vw, vh
			case w == 0:
				w = h * vw / vh
			default:
				h = w * vh / vw
			}
		}
	}

	style := dom.GetAttribute(svg, "style")
	if w == 0 {
		w = styleLength(styleWidthPattern, style)
	}
	if h == 0 {
		h = styleLength(styleHeightPtn, style)
	}

	if w <= 0 || h <= 0 {
		return DefaultSVGWidth, DefaultSVGHeight
	}
	return clampDimension(w), clampDimension(h)
}

func parseLength(s string) float64 {
	m := lengthPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

func parseViewBox(s string) (float64, float64) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) != 4 {
		return 0, 0
	}
	w, errW := strconv.ParseFloat(fields[2], 64)
	h, errH := strconv.ParseFloat(fields[3], 64)
	if errW != nil || errH != nil {
		return 0, 0
	}
	return w, h
}

func styleLength(re *regexp.Regexp, style string) float64 {
	m := re.FindStringSubmatch(style)
	if m == nil {
		return 0
	}
	v, _ := strconv.ParseFloat(m[1], 64)
	return v
}

func clampDimension(v float64) int {
	n := int(v + 0.5)
	if n < 1 {
		n = 1
	}
	return min(n, maxSVGDimension)
}

func formatPixels(n int) string {
	return strconv.Itoa(n)
}
