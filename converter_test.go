package md2wechat

// Notes:
// - Render runs the real goldmark pipeline; collaborators that need Chrome or
//   a clipboard are replaced through options.
// - mockHTMLConverter covers error wrapping without depending on goldmark
//   failure modes, which are practically unreachable.
// - Option validation (scale, theme) happens in NewConverter.

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-md2wechat/internal/pipeline"
	"github.com/go-shiori/dom"
)

type mockHTMLConverter struct {
	output string
	err    error
}

func (m *mockHTMLConverter) ToHTML(ctx context.Context, content string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

// ---------------------------------------------------------------------------
// TestNewConverter - Option validation
// ---------------------------------------------------------------------------

func TestNewConverter_Defaults(t *testing.T) {
	t.Parallel()

	c := newTestConverter(t)

	if c.cfg.timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", c.cfg.timeout, defaultTimeout)
	}
	if c.cfg.settleDelay != defaultSettleDelay {
		t.Errorf("settleDelay = %v, want %v", c.cfg.settleDelay, defaultSettleDelay)
	}
	if c.cfg.captureScale != defaultCaptureScale {
		t.Errorf("captureScale = %v, want %v", c.cfg.captureScale, defaultCaptureScale)
	}
	if c.cfg.liveMutation {
		t.Error("liveMutation should default to false")
	}
	if c.logger == nil {
		t.Error("logger should default to a no-op logger")
	}
}

func TestNewConverter_DefaultCollaborators(t *testing.T) {
	t.Parallel()

	c, err := NewConverter()
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	defer c.Close()

	if _, ok := c.formulas.(*rodCapturer); !ok {
		t.Errorf("formulas = %T, want *rodCapturer", c.formulas)
	}
	if _, ok := c.clipboard.(*systemClipboard); !ok {
		t.Errorf("clipboard = %T, want *systemClipboard", c.clipboard)
	}
	if c.vectors == nil {
		t.Error("vectors should default to the SVG rasterizer")
	}
}

func TestNewConverter_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{"scale below 1", []Option{WithCaptureScale(0.5)}, ErrInvalidScale},
		{"scale above 4", []Option{WithCaptureScale(8)}, ErrInvalidScale},
		{"unknown theme", []Option{WithTheme("neon")}, ErrUnknownTheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewConverter(tt.opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewConverter() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithTimeout_PanicsOnNonPositive(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("WithTimeout(0) should panic")
		}
	}()
	WithTimeout(0)
}

func TestOptions_IgnoreNegativeDurations(t *testing.T) {
	t.Parallel()

	c := newTestConverter(t, WithSettleDelay(-time.Second), WithResetDelay(-time.Second))
	if c.cfg.settleDelay != defaultSettleDelay {
		t.Errorf("settleDelay = %v, want default", c.cfg.settleDelay)
	}
	if c.cfg.resetDelay != 0 {
		t.Errorf("resetDelay = %v, want 0 (set by the test helper)", c.cfg.resetDelay)
	}
}

// ---------------------------------------------------------------------------
// TestRender - Validation and errors
// ---------------------------------------------------------------------------

func TestRender_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   Input
		wantErr error
	}{
		{"empty markdown", Input{}, ErrEmptyMarkdown},
		{"TOC depth out of range", Input{Markdown: "# A", TOC: &TOC{MaxDepth: 7}}, ErrInvalidTOCDepth},
		{"TOC min above max", Input{Markdown: "# A", TOC: &TOC{MinDepth: 3, MaxDepth: 2}}, ErrInvalidTOCDepth},
		{"unknown theme", Input{Markdown: "# A", Theme: "neon"}, ErrUnknownTheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestConverter(t)
			_, err := c.Render(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Render() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRender_HTMLConversionError(t *testing.T) {
	t.Parallel()

	c := newTestConverter(t)
	c.htmlConverter = &mockHTMLConverter{err: ErrHTMLConversion}

	_, err := c.Render(context.Background(), Input{Markdown: "# A"})
	if !errors.Is(err, ErrHTMLConversion) {
		t.Errorf("Render() error = %v, want ErrHTMLConversion", err)
	}
}

func TestRender_CancelledContext(t *testing.T) {
	t.Parallel()

	c := newTestConverter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Render(ctx, Input{Markdown: "# A"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
}

// ---------------------------------------------------------------------------
// TestRender - Output
// ---------------------------------------------------------------------------

func TestRender_Document(t *testing.T) {
	t.Parallel()

	c := newTestConverter(t)
	doc, err := c.Render(context.Background(), Input{
		Markdown: "# One\n\n## Two\n\nSome ==marked== and <u>underlined</u> text.\n",
		Title:    "Notes",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	root := doc.Root()
	if id := dom.GetAttribute(root, "id"); id != "preview-content-wechat" {
		t.Errorf("root id = %q, want preview-content-wechat", id)
	}

	headings := doc.Headings()
	if len(headings) != 2 {
		t.Fatalf("got %d headings, want 2", len(headings))
	}
	if headings[0].ID != "heading-0" || headings[1].ID != "heading-1" {
		t.Errorf("heading ids = %q, %q", headings[0].ID, headings[1].ID)
	}
	if dom.QuerySelector(root, "mark") == nil {
		t.Error("highlight placeholder should become <mark>")
	}

	page, err := doc.HTML()
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if !strings.Contains(page, "<title>Notes</title>") {
		t.Error("preview page should carry the title")
	}
}

func TestRender_HeadingIDsRestartPerRender(t *testing.T) {
	t.Parallel()

	c := newTestConverter(t)
	for i := 0; i < 2; i++ {
		doc, err := c.Render(context.Background(), Input{Markdown: "# A\n\n# B\n"})
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if h := doc.Headings(); h[0].ID != "heading-0" {
			t.Errorf("render %d: first heading id = %q, want heading-0", i, h[0].ID)
		}
	}
}

func TestRender_TOC(t *testing.T) {
	t.Parallel()

	c := newTestConverter(t)
	doc, err := c.Render(context.Background(), Input{
		Markdown: "# One\n\n## Two\n\n#### Deep\n",
		TOC:      &TOC{Title: "Contents"},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	nav := dom.QuerySelector(doc.Root(), "[data-toc]")
	if nav == nil {
		t.Fatal("TOC not inserted")
	}
	if doc.Root().FirstChild != nav {
		t.Error("TOC should be the first child of the preview root")
	}
	text := dom.TextContent(nav)
	if !strings.Contains(text, "Contents") || !strings.Contains(text, "1.1. Two") {
		t.Errorf("TOC text = %q", text)
	}
	if strings.Contains(text, "Deep") {
		t.Error("h4 should be outside the default depth range")
	}
}

func TestRender_Themes(t *testing.T) {
	t.Parallel()

	c := newTestConverter(t, WithTheme("dark"))

	dark, err := c.Render(context.Background(), Input{Markdown: "# A"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	light, err := c.Render(context.Background(), Input{Markdown: "# A", Theme: "default"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	darkPage, _ := dark.HTML()
	lightPage, _ := light.HTML()
	if darkPage == lightPage {
		t.Error("input theme should override the converter theme")
	}
}

func TestRender_InlinesLocalImages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "dot.png"))
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	c := newTestConverter(t)
	doc, err := c.Render(context.Background(), Input{
		Markdown:  "![dot](dot.png)\n\n![remote](https://example.com/a.png)\n",
		SourceDir: dir,
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	imgs := dom.QuerySelectorAll(doc.Root(), "img")
	if len(imgs) != 2 {
		t.Fatalf("got %d images, want 2", len(imgs))
	}
	if src := dom.GetAttribute(imgs[0], "src"); !strings.HasPrefix(src, "data:image/png;base64,") {
		t.Errorf("local image src = %.40q, want data URI", src)
	}
	if src := dom.GetAttribute(imgs[1], "src"); src != "https://example.com/a.png" {
		t.Errorf("remote image src = %q, want unchanged", src)
	}
}

// ---------------------------------------------------------------------------
// TestCopy
// ---------------------------------------------------------------------------

func TestCopy(t *testing.T) {
	t.Parallel()

	cb := &mockClipboard{}
	c := newTestConverter(t, WithClipboard(cb))
	rec := &statusRecorder{}

	res, err := c.Copy(context.Background(), Input{Markdown: "Hello **world**"}, rec.set)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if !strings.Contains(cb.html, "world") {
		t.Errorf("clipboard HTML = %q", cb.html)
	}
	if res.Status != StatusSuccess {
		t.Errorf("Status = %v, want success", res.Status)
	}
	if got := rec.values(); len(got) != 1 || got[0] != StatusSuccess {
		t.Errorf("status updates = %v, want [success]", got)
	}
}

func TestCopy_RenderError(t *testing.T) {
	t.Parallel()

	cb := &mockClipboard{}
	c := newTestConverter(t, WithClipboard(cb))

	if _, err := c.Copy(context.Background(), Input{}, nil); !errors.Is(err, ErrEmptyMarkdown) {
		t.Errorf("Copy() error = %v, want ErrEmptyMarkdown", err)
	}
	if cb.html != "" {
		t.Error("clipboard should not be written when rendering fails")
	}
}

func TestClose_ClosesFormulaRasterizer(t *testing.T) {
	t.Parallel()

	formulas := &mockFormulaRasterizer{}
	c, err := NewConverter(WithFormulaRasterizer(formulas), WithClipboard(&mockClipboard{}))
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !formulas.closed {
		t.Error("Close() should close the formula rasterizer")
	}
}

func TestRender_FrontMatter(t *testing.T) {
	t.Parallel()

	c := newTestConverter(t)

	t.Run("sets title and theme", func(t *testing.T) {
		t.Parallel()

		doc, err := c.Render(context.Background(), Input{Markdown: "---\ntitle: From YAML\ntheme: dark\n---\n# Body\n"})
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if doc.title != "From YAML" || doc.theme.Name != "dark" {
			t.Errorf("title = %q, theme = %q", doc.title, doc.theme.Name)
		}
		if frag := mustFragment(t, doc); strings.Contains(frag, "From YAML") {
			t.Error("front matter should not be rendered")
		}
	})

	t.Run("input overrides front matter", func(t *testing.T) {
		t.Parallel()

		doc, err := c.Render(context.Background(), Input{
			Markdown: "---\ntitle: From YAML\ntheme: dark\n---\ntext\n",
			Title:    "Explicit",
			Theme:    "default",
		})
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if doc.title != "Explicit" || doc.theme.Name != "default" {
			t.Errorf("title = %q, theme = %q", doc.title, doc.theme.Name)
		}
	})

	t.Run("malformed front matter", func(t *testing.T) {
		t.Parallel()

		_, err := c.Render(context.Background(), Input{Markdown: "---\ntitle: [x\n---\ntext"})
		if !errors.Is(err, pipeline.ErrFrontMatter) {
			t.Errorf("Render() error = %v, want ErrFrontMatter", err)
		}
	})
}
