package pipeline

import (
	"bytes"
	"html"

	"github.com/wyatt915/treeblood"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Class names carried by rendered formulas. The exporter selects on them.
const (
	MathInlineClass  = "katex"
	MathDisplayClass = "katex-display"
)

var (
	KindMathInline = ast.NewNodeKind("MathInline")
	KindMathBlock  = ast.NewNodeKind("MathBlock")
)

// MathInline is a $...$ formula.
type MathInline struct {
	ast.BaseInline
	TeX []byte
}

// Kind implements ast.Node.
func (n *MathInline) Kind() ast.NodeKind { return KindMathInline }

// Dump implements ast.Node.
func (n *MathInline) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"TeX": string(n.TeX)}, nil)
}

// MathBlock is a $$...$$ display formula. Its TeX source lives in Lines().
type MathBlock struct {
	ast.BaseBlock
	singleLine bool
}

// Kind implements ast.Node.
func (n *MathBlock) Kind() ast.NodeKind { return KindMathBlock }

// IsRaw implements ast.Node.
func (n *MathBlock) IsRaw() bool { return true }

// Dump implements ast.Node.
func (n *MathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// Math is a goldmark extension rendering TeX to MathML wrapped in the
// formula marker classes.
type Math struct{}

// Extend implements goldmark.Extender.
func (e *Math) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(util.Prioritized(&mathBlockParser{}, 150)),
		parser.WithInlineParsers(util.Prioritized(&mathInlineParser{}, 150)),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&mathRenderer{}, 150),
	))
}

type mathInlineParser struct{}

func (p *mathInlineParser) Trigger() []byte { return []byte{'$'} }

// Parse accepts $tex$ where tex is non-empty, does not start or end with a
// space and the closing $ is not followed by a digit ("$5 and $6" stays text).
func (p *mathInlineParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if len(line) < 3 || line[1] == '$' || isSpace(line[1]) {
		return nil
	}

	for i := 1; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '$':
			if isSpace(line[i-1]) {
				return nil
			}
			if i+1 < len(line) && line[i+1] >= '0' && line[i+1] <= '9' {
				return nil
			}
			node := &MathInline{TeX: append([]byte(nil), line[1:i]...)}
			block.Advance(i + 1)
			return node
		case '\n':
			return nil
		}
	}
	return nil
}

type mathBlockParser struct{}

func (p *mathBlockParser) Trigger() []byte { return []byte{'$'} }

func (p *mathBlockParser) Open(_ ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pos+1 >= len(line) || line[pos] != '$' || line[pos+1] != '$' {
		return nil, parser.NoChildren
	}

	node := &MathBlock{}
	rest := bytes.TrimRight(line[pos+2:], " \t\n")
	if len(rest) == 0 {
		return node, parser.NoChildren
	}

	// Single-line $$tex$$
	if bytes.HasSuffix(rest, []byte("$$")) && len(rest) > 2 {
		start := segment.Start + pos + 2
		node.Lines().Append(text.NewSegment(start, start+len(rest)-2))
		node.singleLine = true
		return node, parser.NoChildren
	}

	// Opening line carries content: keep it as the first TeX line.
	start := segment.Start + pos + 2
	node.Lines().Append(text.NewSegment(start, segment.Stop))
	return node, parser.NoChildren
}

func (p *mathBlockParser) Continue(node ast.Node, reader text.Reader, _ parser.Context) parser.State {
	if n, ok := node.(*MathBlock); ok && n.singleLine {
		return parser.Close
	}

	line, segment := reader.PeekLine()
	if line == nil {
		return parser.Close
	}

	trimmed := bytes.TrimSpace(line)
	if bytes.HasSuffix(trimmed, []byte("$$")) {
		if body := bytes.TrimSuffix(trimmed, []byte("$$")); len(body) > 0 {
			offset := bytes.Index(line, body)
			node.Lines().Append(text.NewSegment(segment.Start+offset, segment.Start+offset+len(body)))
		}
		advanceToLineEnd(reader, line)
		return parser.Close
	}

	node.Lines().Append(segment)
	advanceToLineEnd(reader, line)
	return parser.Continue | parser.NoChildren
}

func (p *mathBlockParser) Close(ast.Node, text.Reader, parser.Context) {}

func (p *mathBlockParser) CanInterruptParagraph() bool { return true }

func (p *mathBlockParser) CanAcceptIndentedLine() bool { return false }

type mathRenderer struct{}

func (r *mathRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMathInline, r.renderInline)
	reg.Register(KindMathBlock, r.renderBlock)
}

func (r *mathRenderer) renderInline(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*MathInline)
	_, _ = w.WriteString(`<span class="` + MathInlineClass + `">`)
	_, _ = w.WriteString(texToMathML(string(n.TeX), false))
	_, _ = w.WriteString(`</span>`)
	return ast.WalkSkipChildren, nil
}

func (r *mathRenderer) renderBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var tex bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		tex.Write(seg.Value(source))
	}

	_, _ = w.WriteString(`<span class="` + MathDisplayClass + `"><span class="` + MathInlineClass + `">`)
	_, _ = w.WriteString(texToMathML(string(bytes.TrimSpace(tex.Bytes())), true))
	_, _ = w.WriteString("</span></span>\n")
	return ast.WalkSkipChildren, nil
}

// texToMathML converts TeX to MathML, falling back to the escaped source.
func texToMathML(tex string, display bool) string {
	mml, err := treeblood.TexToMML(tex, nil, display, false)
	if err != nil {
		return `<code class="math-error">` + html.EscapeString(tex) + `</code>`
	}
	return mml
}

// advanceToLineEnd consumes line up to, but not including, its newline.
func advanceToLineEnd(reader text.Reader, line []byte) {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
	}
	reader.Advance(n)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n'
}
