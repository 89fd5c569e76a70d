package wechat

import (
	"slices"
	"strings"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

// Marker selectors emitted by the preview renderer.
const (
	PreviewRootID      = "preview-content-wechat"
	DiagramSelector    = "[data-diagram], [data-mermaid]"
	BlockMathClass     = "katex-display"
	InlineMathClass    = "katex"
	TOCSelector        = "[data-toc]"
	CodeBlockSelector  = "[data-code-block]"
	blockMathSelector  = "." + BlockMathClass
	inlineMathSelector = "." + InlineMathClass
)

// FindPreviewRoot returns the element with the preview root id, or nil.
func FindPreviewRoot(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	if doc.Type == html.ElementNode && dom.ID(doc) == PreviewRootID {
		return doc
	}
	return dom.GetElementByID(doc, PreviewRootID)
}

// Diagram pairs a diagram container with the vector graphic inside it.
type Diagram struct {
	Container *html.Node
	SVG       *html.Node
}

// Diagrams returns diagram containers holding an <svg>, in document order.
func Diagrams(root *html.Node) []Diagram {
	var out []Diagram
	for _, c := range dom.QuerySelectorAll(root, DiagramSelector) {
		if svg := dom.QuerySelector(c, "svg"); svg != nil {
			out = append(out, Diagram{Container: c, SVG: svg})
		}
	}
	return out
}

// BlockFormulas returns display-mode formula wrappers in document order.
func BlockFormulas(root *html.Node) []*html.Node {
	return dom.QuerySelectorAll(root, blockMathSelector)
}

// InlineFormulas returns formula nodes that are not nested in a display-mode
// wrapper, in document order.
func InlineFormulas(root *html.Node) []*html.Node {
	all := dom.QuerySelectorAll(root, inlineMathSelector)
	return slices.DeleteFunc(all, func(n *html.Node) bool {
		return hasAncestorClass(n, BlockMathClass)
	})
}

// TOCNodes returns every table-of-contents block.
func TOCNodes(root *html.Node) []*html.Node {
	return dom.QuerySelectorAll(root, TOCSelector)
}

// CodeBlocks returns every highlighted code block section.
func CodeBlocks(root *html.Node) []*html.Node {
	return dom.QuerySelectorAll(root, CodeBlockSelector)
}

func hasAncestorClass(n *html.Node, class string) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && hasClass(p, class) {
			return true
		}
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(dom.ClassName(n)), class)
}
