//go:build integration

package md2wechat

import (
	"context"
	"strings"
	"testing"

	"github.com/alnah/go-md2wechat/internal/raster"
	"github.com/alnah/go-md2wechat/internal/wechat"
	"github.com/go-shiori/dom"
)

// TestRodCapturer_Integration captures real MathML in headless Chrome.
// Rod automatically downloads Chromium on first run if not found.
func TestRodCapturer_Integration(t *testing.T) {
	t.Parallel()

	c := acquireConverter(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	doc, err := c.Render(ctx, Input{Markdown: "Inline $a^2+b^2$ here.\n\n$$\n\\frac{1}{2}\n$$\n"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	root := doc.Root()

	t.Run("block formula", func(t *testing.T) {
		el := dom.QuerySelector(root, ".katex-display")
		if el == nil {
			t.Fatal("no display formula rendered")
		}
		r := c.formulas.RasterizeElement(ctx, el, true)
		if !r.OK() {
			t.Fatalf("RasterizeElement() = %+v, want non-empty result", r)
		}
		if !strings.HasPrefix(r.ImageData, raster.PNGDataURIPrefix) {
			t.Errorf("ImageData prefix = %.30q", r.ImageData)
		}
		// 8 logical pixels of padding on each side at least.
		if r.Width < 16 || r.Height < 16 {
			t.Errorf("size = %gx%g, want padding included", r.Width, r.Height)
		}
	})

	t.Run("inline formula", func(t *testing.T) {
		inline := wechat.InlineFormulas(root)
		if len(inline) == 0 {
			t.Fatal("no inline formula rendered")
		}
		el := inline[0]
		r := c.formulas.RasterizeElement(ctx, el, false)
		if !r.OK() {
			t.Fatalf("RasterizeElement() = %+v, want non-empty result", r)
		}
	})

	t.Run("cancelled context fails soft", func(t *testing.T) {
		cctx, ccancel := context.WithCancel(ctx)
		ccancel()
		el := dom.QuerySelector(root, ".katex")
		if r := c.formulas.RasterizeElement(cctx, el, false); r.OK() {
			t.Error("cancelled capture should return the zero result")
		}
	})
}

func TestExport_Integration(t *testing.T) {
	t.Parallel()

	c := acquireConverter(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	md := "# Report\n\n" +
		"Energy: $E=mc^2$.\n\n" +
		"$$\n\\sum_{i=1}^{n} i\n$$\n\n" +
		"```svg\n<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"60\" height=\"30\"><circle cx=\"15\" cy=\"15\" r=\"10\" fill=\"blue\"/></svg>\n```\n\n" +
		"```go\nfunc main() {}\n```\n"

	doc, err := c.Render(ctx, Input{Markdown: md, TOC: &TOC{}})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	before := mustFragment(t, doc)

	res, err := c.ExportHTML(ctx, doc)
	if err != nil {
		t.Fatalf("ExportHTML() error = %v", err)
	}

	if got := strings.Count(res.HTML, "<img"); got != 3 {
		t.Errorf("expected 3 <img>, got %d", got)
	}
	for _, bad := range []string{"box-shadow", "rgba(", "data-toc", "<math", "<svg"} {
		if strings.Contains(res.HTML, bad) {
			t.Errorf("output should not contain %q", bad)
		}
	}
	if !strings.Contains(res.HTML, `class="custom"`) {
		t.Error("code block should be converted")
	}
	if after := mustFragment(t, doc); after != before {
		t.Error("live document changed")
	}
}
