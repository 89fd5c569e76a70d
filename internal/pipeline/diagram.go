package pipeline

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DiagramAttr marks the element wrapping a rendered vector diagram.
const DiagramAttr = "data-diagram"

// diagramLanguages are fenced code info strings rendered as inline SVG.
var diagramLanguages = map[string]bool{"svg": true, "diagram": true}

var KindDiagram = ast.NewNodeKind("Diagram")

// Diagram holds the raw SVG source of a fenced ```svg block.
type Diagram struct {
	ast.BaseBlock
	Source []byte
}

// Kind implements ast.Node.
func (n *Diagram) Kind() ast.NodeKind { return KindDiagram }

// Dump implements ast.Node.
func (n *Diagram) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// Diagrams is a goldmark extension turning ```svg fenced blocks into inline,
// sanitized SVG inside a diagram container.
type Diagrams struct{}

// Extend implements goldmark.Extender.
func (e *Diagrams) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&diagramTransformer{}, 100),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&diagramRenderer{}, 100),
	))
}

type diagramTransformer struct{}

func (t *diagramTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	var blocks []*ast.FencedCodeBlock

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fcb, ok := n.(*ast.FencedCodeBlock); ok {
			if diagramLanguages[strings.ToLower(string(fcb.Language(source)))] {
				blocks = append(blocks, fcb)
			}
		}
		return ast.WalkContinue, nil
	})

	for _, fcb := range blocks {
		var buf bytes.Buffer
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}
		parent := fcb.Parent()
		if parent == nil {
			continue
		}
		parent.ReplaceChild(parent, fcb, &Diagram{Source: buf.Bytes()})
	}
}

type diagramRenderer struct{}

func (r *diagramRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindDiagram, r.render)
}

func (r *diagramRenderer) render(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*Diagram)

	svg, err := SanitizeSVG(string(n.Source))
	if err != nil || svg == "" {
		_, _ = w.WriteString(`<pre><code>`)
		_, _ = w.WriteString(html.EscapeString(string(n.Source)))
		_, _ = w.WriteString("</code></pre>\n")
		return ast.WalkSkipChildren, nil
	}

	_, _ = w.WriteString(`<section><div ` + DiagramAttr + `="true">`)
	_, _ = w.WriteString(svg)
	_, _ = w.WriteString("</div></section>\n")
	return ast.WalkSkipChildren, nil
}

// SanitizeSVG parses source, keeps the first <svg> element and drops
// scripts, foreign objects, event handler attributes and javascript: links.
// It returns "" when source holds no <svg> element.
func SanitizeSVG(source string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(source), body)
	if err != nil {
		return "", err
	}

	var svg *html.Node
	for _, n := range nodes {
		if svg = findSVG(n); svg != nil {
			break
		}
	}
	if svg == nil {
		return "", nil
	}
	if svg.Parent != nil {
		svg.Parent.RemoveChild(svg)
	}

	scrubSVG(svg)

	var buf strings.Builder
	if err := html.Render(&buf, svg); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func findSVG(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "svg" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findSVG(c); found != nil {
			return found
		}
	}
	return nil
}

func scrubSVG(n *html.Node) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		if strings.HasPrefix(key, "on") {
			continue
		}
		if (key == "href" || key == "xlink:href" || a.Namespace == "xlink") &&
			strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
			continue
		}
		attrs = append(attrs, a)
	}
	n.Attr = attrs

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			switch strings.ToLower(c.Data) {
			case "script", "foreignobject", "iframe":
				n.RemoveChild(c)
			default:
				scrubSVG(c)
			}
		}
		c = next
	}
}
