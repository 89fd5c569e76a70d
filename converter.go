package md2wechat

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/alnah/go-md2wechat/internal/pipeline"
	"github.com/alnah/go-md2wechat/internal/raster"
	"github.com/alnah/go-md2wechat/internal/wechat"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.MarkdownPreprocessor = (*pipeline.CommonMarkPreprocessor)(nil)
	_ pipeline.HTMLConverter        = (*pipeline.GoldmarkConverter)(nil)
	_ pipeline.CSSInjector          = pipeline.HeadStyleInjector{}
	_ VectorRasterizer              = (*raster.SVGRasterizer)(nil)
	_ FormulaRasterizer             = (*rodCapturer)(nil)
	_ Clipboard                     = (*systemClipboard)(nil)
)

// Converter renders Markdown into a styled preview and exports previews as
// paste-safe rich HTML.
// Create with NewConverter, and Close when done to release the browser.
type Converter struct {
	cfg           converterConfig
	logger        *zap.Logger
	preprocessor  pipeline.MarkdownPreprocessor
	htmlConverter pipeline.HTMLConverter
	vectors       VectorRasterizer
	formulas      FormulaRasterizer
	clipboard     Clipboard

	busy atomic.Bool // set while an export runs
}

// NewConverter creates a Converter with default configuration.
// Use options to customize behavior (e.g., WithTimeout, WithTheme, WithClipboard).
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg:           defaultConfig(),
		logger:        zap.NewNop(),
		preprocessor:  &pipeline.CommonMarkPreprocessor{},
		htmlConverter: pipeline.NewGoldmarkConverter(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.cfg.captureScale < MinCaptureScale || c.cfg.captureScale > MaxCaptureScale {
		return nil, fmt.Errorf("%w: %g", ErrInvalidScale, c.cfg.captureScale)
	}
	if _, err := pipeline.LookupTheme(c.cfg.theme); err != nil {
		return nil, err
	}

	// Fill in collaborators that were not injected (e.g., by tests)
	if c.vectors == nil {
		c.vectors = raster.NewSVGRasterizer(c.logger)
	}
	if c.formulas == nil {
		c.formulas = newRodCapturer(c.cfg, c.logger)
	}
	if c.clipboard == nil {
		c.clipboard = newSystemClipboard()
	}

	return c, nil
}

// Render converts Markdown into a styled preview document.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Converter) Render(ctx context.Context, input Input) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if err := validateInput(input); err != nil {
		return nil, err
	}

	fm, body, err := pipeline.SplitFrontMatter(input.Markdown)
	if err != nil {
		return nil, err
	}

	// Explicit input wins over front matter, which wins over converter defaults.
	themeName := firstNonEmpty(input.Theme, fm.Theme, c.cfg.theme)
	title := firstNonEmpty(input.Title, fm.Title)
	theme, err := pipeline.LookupTheme(themeName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	defer cancel()

	mdContent := c.preprocessor.PreprocessMarkdown(ctx, body)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	fragment, err := c.htmlConverter.ToHTML(ctx, mdContent)
	if err != nil {
		return nil, fmt.Errorf("converting to HTML: %w", err)
	}

	// Highlight and underline markers become elements only now, so goldmark
	// never needs unsafe raw HTML.
	fragment = pipeline.ConvertPlaceholders(fragment)

	nodes, err := pipeline.ParseFragment(fragment)
	if err != nil {
		return nil, fmt.Errorf("parsing rendered HTML: %w", err)
	}
	root := newPreviewRoot()
	for _, n := range nodes {
		root.AppendChild(n)
	}

	headings := pipeline.NewStyler(theme).Style(root)

	if input.SourceDir != "" {
		inlined, issues := pipeline.InlineLocalImages(root, input.SourceDir, c.cfg.maxImageBytes)
		for _, issue := range issues {
			c.logger.Warn("local image skipped", zap.String("src", issue.Src), zap.Error(issue.Err))
		}
		c.logger.Debug("local images inlined", zap.Int("count", inlined))
	}

	if input.TOC != nil {
		if _, err := pipeline.InsertTOC(root, headings, input.TOC.options(), theme); err != nil {
			return nil, fmt.Errorf("inserting TOC: %w", err)
		}
	}

	return &Document{
		root:     root,
		headings: headings,
		theme:    theme,
		title:    title,
		css:      input.CSS,
	}, nil
}

// Copy renders input and exports it to the clipboard.
func (c *Converter) Copy(ctx context.Context, input Input, status StatusFunc) (*ExportResult, error) {
	doc, err := c.Render(ctx, input)
	if err != nil {
		return nil, err
	}
	return c.Export(ctx, doc, status)
}

// Close releases resources (headless Chrome browser).
func (c *Converter) Close() error {
	if c.formulas != nil {
		return c.formulas.Close()
	}
	return nil
}

// validateInput checks that required fields are present and valid.
//
// This is a TRUST BOUNDARY for direct library users who build Input manually.
// CLI users have their input validated earlier by Config.Validate() at config load time.
func validateInput(input Input) error {
	if input.Markdown == "" {
		return ErrEmptyMarkdown
	}
	return input.TOC.Validate()
}

func newPreviewRoot() *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
		Attr:     []html.Attribute{{Key: "id", Val: wechat.PreviewRootID}},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
