package md2wechat

import (
	"context"
	"fmt"

	"github.com/alnah/go-md2wechat/internal/pipeline"
	"github.com/alnah/go-md2wechat/internal/raster"
	"golang.org/x/net/html"
)

// TOC depth bounds.
const (
	DefaultTOCMinDepth = 1
	DefaultTOCMaxDepth = 3
	maxHeadingLevel    = 6
)

// Input contains rendering parameters.
type Input struct {
	Markdown  string // Markdown content (required)
	SourceDir string // directory for relative image paths (optional)
	Title     string // preview page title (optional)
	Theme     string // theme name, overrides WithTheme (optional)
	CSS       string // extra CSS for the standalone preview page (optional)
	TOC       *TOC   // table of contents (optional, never exported)
}

// TOC configures the table of contents shown in the preview.
type TOC struct {
	Title    string
	MinDepth int // 0 means DefaultTOCMinDepth
	MaxDepth int // 0 means DefaultTOCMaxDepth
}

// Validate checks that TOC settings are valid.
// Returns nil if t is nil (nil means no TOC).
func (t *TOC) Validate() error {
	if t == nil {
		return nil
	}
	if t.MinDepth < 0 || t.MinDepth > maxHeadingLevel {
		return fmt.Errorf("%w: minDepth %d (must be 0-%d)", ErrInvalidTOCDepth, t.MinDepth, maxHeadingLevel)
	}
	if t.MaxDepth < 0 || t.MaxDepth > maxHeadingLevel {
		return fmt.Errorf("%w: maxDepth %d (must be 0-%d)", ErrInvalidTOCDepth, t.MaxDepth, maxHeadingLevel)
	}
	if t.MinDepth > 0 && t.MaxDepth > 0 && t.MinDepth > t.MaxDepth {
		return fmt.Errorf("%w: minDepth %d > maxDepth %d", ErrInvalidTOCDepth, t.MinDepth, t.MaxDepth)
	}
	return nil
}

func (t *TOC) options() pipeline.TOCOptions {
	minDepth, maxDepth := t.MinDepth, t.MaxDepth
	if minDepth == 0 {
		minDepth = DefaultTOCMinDepth
	}
	if maxDepth == 0 {
		maxDepth = max(DefaultTOCMaxDepth, minDepth)
	}
	return pipeline.TOCOptions{Title: t.Title, MinDepth: minDepth, MaxDepth: maxDepth}
}

// ExportStatus is the user-visible outcome of an export.
type ExportStatus int

const (
	StatusIdle ExportStatus = iota
	StatusSuccess
	StatusError
)

func (s ExportStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("ExportStatus(%d)", int(s))
	}
}

// StatusFunc receives status changes. The exporter only writes status.
type StatusFunc func(ExportStatus)

// ExportResult is what an export produced.
type ExportResult struct {
	HTML     string       // sanitized rich HTML
	Text     string       // plain text of the live preview
	Images   int          // nodes replaced by rasterized images
	Status   ExportStatus // final status reported for this export
	Fallback bool         // true when only plain text reached the clipboard
}

// RasterResult is a rasterized replacement image in logical pixels.
type RasterResult = raster.Result

// Heading is a numbered heading of a rendered document.
type Heading = pipeline.Heading

// FormulaRasterizer captures a rendered formula element as an image.
// Implementations fail soft: any failure returns the zero RasterResult.
type FormulaRasterizer interface {
	RasterizeElement(ctx context.Context, el *html.Node, isBlock bool) RasterResult
	Close() error
}

// VectorRasterizer converts an <svg> element to an image, failing soft.
type VectorRasterizer interface {
	RasterizeSVG(ctx context.Context, svg *html.Node) RasterResult
}

// Clipboard writes export output to the system clipboard.
type Clipboard interface {
	// WriteRich places html (with text as the plain alternative) on the
	// clipboard.
	WriteRich(ctx context.Context, html, text string) error
	// WriteText places plain text only.
	WriteText(text string) error
}
