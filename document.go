package md2wechat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alnah/go-md2wechat/internal/pipeline"
	"github.com/alnah/go-md2wechat/internal/wechat"
	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

// Document is a rendered, styled preview. Its root is the element with id
// "preview-content-wechat".
//
// A Document may be shared between a re-rendering producer and an exporter:
// Replace and Export serialize on the document's mutex.
type Document struct {
	mu       sync.Mutex
	root     *html.Node
	headings []Heading
	theme    pipeline.Theme
	title    string
	css      string
}

// NewDocument wraps an existing preview root. The theme defaults to
// "default".
func NewDocument(root *html.Node) *Document {
	theme, _ := pipeline.LookupTheme("")
	return &Document{root: root, theme: theme}
}

// ParseDocument reads a preview page (as written by Document.HTML) or a bare
// fragment. When no preview root is present, the parsed <body> becomes the
// root.
func ParseDocument(r io.Reader) (*Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	root := wechat.FindPreviewRoot(doc)
	if root == nil {
		root = dom.QuerySelector(doc, "body")
	}
	if root == nil {
		return nil, fmt.Errorf("parsing document: no body element")
	}

	d := NewDocument(root)
	if t := dom.QuerySelector(doc, "title"); t != nil {
		d.title = strings.TrimSpace(dom.TextContent(t))
	}
	return d, nil
}

// Root returns the live preview root. Callers must not mutate it while an
// export may be running.
func (d *Document) Root() *html.Node {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root
}

// Headings returns the numbered headings found while rendering.
func (d *Document) Headings() []Heading {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Heading, len(d.headings))
	copy(out, d.headings)
	return out
}

// Replace swaps in the content of a freshly rendered document. It waits for
// a running live-mode export to finish restoring the tree.
func (d *Document) Replace(other *Document) {
	if other == nil || other == d {
		return
	}
	other.mu.Lock()
	root, headings, theme, title, css := other.root, other.headings, other.theme, other.title, other.css
	other.mu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.root, d.headings, d.theme, d.title, d.css = root, headings, theme, title, css
}

// Fragment serializes the children of the preview root.
func (d *Document) Fragment() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.root == nil {
		return "", nil
	}
	return pipeline.RenderChildren(d.root)
}

// HTML returns a standalone preview page embedding the document.
func (d *Document) HTML() (string, error) {
	fragment, err := d.Fragment()
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	title, theme, css := d.title, d.theme, d.css
	d.mu.Unlock()

	page := pipeline.WrapDocument(title, fragment, theme)
	return pipeline.HeadStyleInjector{}.InjectCSS(context.Background(), page, css), nil
}
