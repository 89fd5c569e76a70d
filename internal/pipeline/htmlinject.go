package pipeline

import (
	"context"
	"strings"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

// CSSInjector adds a stylesheet to a standalone preview page.
type CSSInjector interface {
	InjectCSS(ctx context.Context, page, css string) string
}

// HeadStyleInjector appends user CSS to the page head as a <style> element.
// Only previews carry it: the target editor drops <style> on paste, which is
// why the styler inlines every rule.
type HeadStyleInjector struct{}

// InjectCSS parses page, appends a <style> holding css to its <head> and
// re-serializes it. Blank css, a canceled ctx or an unparsable page leave
// page unchanged.
func (HeadStyleInjector) InjectCSS(ctx context.Context, page, css string) string {
	if strings.TrimSpace(css) == "" || ctx.Err() != nil {
		return page
	}

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return page
	}
	// The parser synthesizes <head> for fragments too.
	head := dom.QuerySelector(doc, "head")
	if head == nil {
		return page
	}

	style := dom.CreateElement("style")
	dom.AppendChild(style, dom.CreateTextNode(escapeStyleText(css)))
	dom.AppendChild(head, style)

	out, err := RenderNode(doc)
	if err != nil {
		return page
	}
	return out
}

// escapeStyleText keeps css from closing its <style> element early.
func escapeStyleText(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
