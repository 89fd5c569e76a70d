package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alnah/go-md2wechat/internal/wechat"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// ErrHTMLConversion indicates HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// CodeStyle is the chroma style inlined into code blocks. Its palette is
// the one the mdnice converter maps back to hljs classes.
const CodeStyle = "onedark"

// documentTemplate wraps a styled fragment for standalone preview.
const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body style="margin: 0; background: %s;">
<div id="%s" style="max-width: 720px; margin: 0 auto; padding: 24px 16px;">
%s
</div>
</body>
</html>`

// HTMLConverter abstracts Markdown to HTML conversion.
type HTMLConverter interface {
	ToHTML(ctx context.Context, content string) (string, error)
}

// GoldmarkConverter converts Markdown to an HTML fragment using goldmark.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter creates a GoldmarkConverter with GFM, footnotes,
// inline-styled syntax highlighting, TeX math and inline SVG diagrams.
func NewGoldmarkConverter() *GoldmarkConverter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithStyle(CodeStyle),
				highlighting.WithFormatOptions(
					// Stylesheets do not survive the paste, colors must be inline.
					chromahtml.WithClasses(false),
				),
				highlighting.WithWrapperRenderer(codeBlockWrapper),
			),
			&Math{},
			&Diagrams{},
		),
		goldmark.WithRendererOptions(
			goldhtml.WithHardWraps(),
			goldhtml.WithXHTML(),
			// WithUnsafe is not set: raw HTML is dropped. Highlight and
			// underline markers travel as placeholders instead.
		),
	)
	return &GoldmarkConverter{md: md}
}

// codeBlockWrapper wraps every highlighted block in a section carrying its
// language, which the styler turns into the block header.
func codeBlockWrapper(w util.BufWriter, c highlighting.CodeBlockContext, entering bool) {
	if !entering {
		_, _ = w.WriteString("</section>\n")
		return
	}
	lang := ""
	if l, ok := c.Language(); ok {
		lang = string(l)
	}
	_, _ = w.WriteString(`<section ` + CodeBlockAttr + `="true" ` + CodeLangAttr + `="`)
	_, _ = w.WriteString(html.EscapeString(lang))
	_, _ = w.WriteString(`">`)
}

// ToHTML converts Markdown content to an HTML fragment.
// Supports context cancellation via goroutine + select pattern since
// Goldmark doesn't natively support context.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: panic: %v", ErrHTMLConversion, r)}
			}
		}()
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// WrapDocument embeds a styled fragment in a standalone HTML5 page whose
// preview root carries the id the exporter looks for.
func WrapDocument(title, fragment string, theme Theme) string {
	if title == "" {
		title = "Document"
	}
	return fmt.Sprintf(documentTemplate, html.EscapeString(title), theme.PageBG, wechat.PreviewRootID, fragment)
}
