package pipeline

import (
	"strconv"
	"strings"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Marker attributes understood by the exporter.
const (
	CodeBlockAttr = "data-code-block"
	CodeLangAttr  = "data-lang"
)

// HeadingIDPrefix prefixes sequential heading anchors.
const HeadingIDPrefix = "heading-"

const monoFontFamily = "Menlo, Monaco, Consolas, 'Courier New', monospace"

// Heading is a styled heading in document order.
type Heading struct {
	Level int
	ID    string
	Text  string
}

// Styler inlines theme styles into rendered Markdown so the markup keeps its
// look once pasted into an editor that drops stylesheets.
type Styler struct {
	theme Theme
}

// NewStyler creates a Styler for theme.
func NewStyler(theme Theme) *Styler {
	return &Styler{theme: theme}
}

// Style rewrites the subtree under root in place and returns the headings it
// numbered. Heading ids are assigned from a counter local to this call, so
// repeated renders always start at heading-0.
func (s *Styler) Style(root *html.Node) []Heading {
	var elements []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				elements = append(elements, c)
			}
			collect(c)
		}
	}
	collect(root)

	var headings []Heading
	for _, n := range elements {
		if n.Namespace != "" {
			continue // svg, math
		}
		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			level := int(n.Data[1] - '0')
			h := Heading{
				Level: level,
				ID:    HeadingIDPrefix + strconv.Itoa(len(headings)),
				Text:  strings.TrimSpace(dom.TextContent(n)),
			}
			headings = append(headings, h)
			s.styleHeading(n, h)
		case atom.P:
			retag(n, atom.Section)
			setStyle(n, "margin-bottom: 16px; line-height: 1.8; font-size: 14px; color: "+s.theme.Text+"; text-align: justify;")
		case atom.Strong:
			s.styleStrong(n)
		case atom.Ul:
			setStyle(n, "padding-left: 2em; margin-bottom: 16px; list-style-type: disc; color: "+s.theme.Text+"; font-size: 14px;")
		case atom.Ol:
			setStyle(n, "padding-left: 2em; margin-bottom: 16px; list-style-type: decimal; color: "+s.theme.Text+"; font-size: 14px;")
		case atom.Li:
			setStyle(n, "margin-bottom: 6px; line-height: 1.6; font-size: 14px;")
		case atom.Blockquote:
			retag(n, atom.Section)
			setStyle(n, "border-left: 4px solid "+s.theme.QuoteBorder+"; background-color: "+s.theme.QuoteBackground+
				"; padding: 15px; margin: 20px 0; border-radius: 4px; color: "+s.theme.QuoteText+"; font-style: italic; font-size: 13px;")
		case atom.Img:
			s.styleImage(n)
		case atom.Hr:
			setStyle(n, "border: none; border-top: 1px solid "+s.theme.Border+"; margin: 30px 0;")
		case atom.Table:
			setStyle(n, "width: 100%; border-collapse: collapse; font-size: 13px; border: 1px solid "+s.theme.Border+";")
			wrap(n, "section", "margin: 20px 0; overflow-x: auto;")
		case atom.Tr:
			setStyle(n, "border-bottom: 1px solid "+s.theme.Border+";")
		case atom.Th:
			setStyle(n, "padding: 12px 16px; text-align: left; font-weight: bold; color: #ffffff; border: 1px solid "+
				s.theme.Border+"; background-color: "+s.theme.Accent+";")
		case atom.Td:
			setStyle(n, "padding: 12px 16px; border: 1px solid "+s.theme.Border+"; color: "+s.theme.Text+
				"; background-color: "+s.theme.CellBG+";")
		case atom.Code:
			if !hasAncestorAtom(n, atom.Pre) {
				setStyle(n, "background-color: "+s.theme.InlineCodeBG+"; color: "+s.theme.InlineCodeFG+
					"; padding: 2px 6px; font-size: 13px; border-radius: 4px; font-family: "+monoFontFamily+";")
			}
		case atom.Pre:
			s.styleCodeBlock(n)
		case atom.A:
			setStyle(n, "color: "+s.theme.Link+"; text-decoration: underline; border-bottom: 1px solid rgba(37, 99, 235, 0.2);")
			if href := dom.GetAttribute(n, "href"); href != "" && !strings.HasPrefix(href, "#") {
				dom.SetAttribute(n, "target", "_blank")
				dom.SetAttribute(n, "rel", "noopener noreferrer")
			}
		case atom.Mark:
			setStyle(n, "background-color: "+s.theme.Highlight+"; padding: 0 2px; border-radius: 2px;")
		case atom.Span:
			switch {
			case dom.HasAttribute(n, UnderlineAttr):
				setStyle(n, "border-bottom: 2px dashed "+s.theme.Underline+"; padding-bottom: 2px; text-decoration: none; color: inherit;")
			case hasClass(n, MathDisplayClass):
				setStyle(n, "display: block; text-align: center; margin: 16px 0; overflow-x: auto;")
			}
		case atom.Div:
			if dom.HasAttribute(n, DiagramAttr) {
				setStyle(n, "text-align: center; margin: 20px 0; overflow-x: auto;")
			}
		}
	}
	return headings
}

func (s *Styler) styleHeading(n *html.Node, h Heading) {
	section := newElement("section")
	dom.SetAttribute(section, "id", h.ID)

	content := newElement("span")
	moveChildren(n, content)

	switch h.Level {
	case 1, 2:
		padding, radius, size, extra := "10px 24px", "8px", "20px", " box-shadow: 0 4px 6px rgba(0, 0, 0, 0.1);"
		margin := "40px"
		if h.Level == 2 {
			padding, radius, size, extra = "8px 20px", "6px", "17px", " opacity: 0.9;"
			margin = "30px"
		}
		setStyle(section, "text-align: center; margin-top: "+margin+"; margin-bottom: 20px;")
		setStyle(content, "display: inline-block; background-color: "+s.theme.Accent+"; color: #ffffff; padding: "+padding+
			"; border-radius: "+radius+"; font-size: "+size+"; font-weight: bold;"+extra)
		section.AppendChild(content)
	default:
		size := "18px"
		if h.Level > 4 {
			size = "16px"
		}
		setStyle(section, "margin-top: 30px; margin-bottom: 15px; display: flex; align-items: center; border-bottom: 1px dashed "+
			s.theme.Accent+"; padding-bottom: 10px;")
		bar := newElement("span")
		setStyle(bar, "display: inline-block; width: 4px; height: 20px; background-color: "+s.theme.AccentBar+
			"; margin-right: 10px; border-radius: 4px; vertical-align: middle;")
		setStyle(content, "font-size: "+size+"; font-weight: bold; color: "+s.theme.HeadingText+"; vertical-align: middle;")
		section.AppendChild(bar)
		section.AppendChild(content)
	}

	dom.ReplaceChild(n.Parent, section, n)
}

func (s *Styler) styleStrong(n *html.Node) {
	setStyle(n, "color: "+s.theme.Strong+"; font-weight: bold; font-size: 14px;")

	open := newElement("span")
	setStyle(open, "font-weight: 300;")
	open.AppendChild(dom.CreateTextNode("「"))
	n.InsertBefore(open, n.FirstChild)

	closing := newElement("span")
	setStyle(closing, "font-weight: 300;")
	closing.AppendChild(dom.CreateTextNode("」"))
	n.AppendChild(closing)
}

func (s *Styler) styleImage(n *html.Node) {
	setStyle(n, "max-width: 100%; border-radius: 8px; box-shadow: 0 4px 12px rgba(0, 0, 0, 0.1); border: 1px solid #f0f0f0;")

	section := wrap(n, "section", "text-align: center; margin: 20px 0;")
	if alt := strings.TrimSpace(dom.GetAttribute(n, "alt")); alt != "" {
		caption := newElement("span")
		setStyle(caption, "display: block; font-size: 13px; color: "+s.theme.Muted+"; margin-top: 8px;")
		caption.AppendChild(dom.CreateTextNode(alt))
		section.AppendChild(caption)
	}
}

// styleCodeBlock gives a <pre> the dark window look. Blocks that arrive
// without a code block section (indented code, unknown languages) get one.
func (s *Styler) styleCodeBlock(pre *html.Node) {
	if hasAncestorAttr(pre, DiagramAttr) {
		return
	}

	section := pre.Parent
	if section == nil || !dom.HasAttribute(section, CodeBlockAttr) {
		section = wrap(pre, "section", "")
		dom.SetAttribute(section, CodeBlockAttr, "true")
		if code := dom.QuerySelector(pre, "code"); code != nil {
			if lang := languageFromClass(dom.ClassName(code)); lang != "" {
				dom.SetAttribute(section, CodeLangAttr, lang)
			}
		}
	}

	setStyle(section, "margin-top: 20px; margin-bottom: 20px; text-align: left; border-radius: 8px; overflow: hidden; background-color: "+
		s.theme.CodeBG+"; box-shadow: 0 8px 16px -4px rgba(0, 0, 0, 0.4);")

	header := newElement("section")
	setStyle(header, "background-color: "+s.theme.CodeHeaderBG+"; padding: 8px 12px; line-height: 1;")
	for _, color := range []string{"#ff5f56", "#ffbd2e", "#27c93f"} {
		dot := newElement("span")
		setStyle(dot, "display: inline-block; width: 12px; height: 12px; border-radius: 50%; background-color: "+color+
			"; margin-right: 8px; vertical-align: middle;")
		header.AppendChild(dot)
	}
	label := newElement("span")
	setStyle(label, "font-size: 12px; color: "+s.theme.CodeLangLabel+"; font-family: sans-serif; font-weight: bold; "+
		"text-transform: uppercase; vertical-align: middle; display: inline-block; margin-left: 8px;")
	lang := dom.GetAttribute(section, CodeLangAttr)
	if lang == "" {
		lang = "text"
	}
	label.AppendChild(dom.CreateTextNode(lang))
	header.AppendChild(label)
	section.InsertBefore(header, section.FirstChild)

	dom.RemoveAttribute(pre, "tabindex")
	setStyle(pre, "margin: 0; padding: 12px 16px; overflow-x: auto; background-color: "+s.theme.CodeBG+
		"; color: #abb2bf; font-size: 13px; line-height: 1.6; font-family: "+monoFontFamily+"; white-space: pre;")
}

func languageFromClass(class string) string {
	for _, c := range strings.Fields(class) {
		if lang, ok := strings.CutPrefix(c, "language-"); ok {
			return lang
		}
	}
	return ""
}

// newElement creates a detached element with its atom set, so later atom
// based checks treat it like parsed markup.
func newElement(tag string) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

// setStyle replaces the style attribute of n. An empty style is a no-op.
func setStyle(n *html.Node, style string) {
	if style == "" {
		return
	}
	dom.SetAttribute(n, "style", style)
}

// retag renames n in place, keeping attributes and children.
func retag(n *html.Node, a atom.Atom) {
	n.DataAtom = a
	n.Data = a.String()
}

// wrap inserts a new element in n's position and moves n inside it.
func wrap(n *html.Node, tag, style string) *html.Node {
	w := newElement(tag)
	setStyle(w, style)
	if n.Parent != nil {
		n.Parent.InsertBefore(w, n)
		n.Parent.RemoveChild(n)
	}
	w.AppendChild(n)
	return w
}

func moveChildren(from, to *html.Node) {
	for c := from.FirstChild; c != nil; {
		next := c.NextSibling
		from.RemoveChild(c)
		to.AppendChild(c)
		c = next
	}
}

func hasAncestorAtom(n *html.Node, a atom.Atom) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.DataAtom == a {
			return true
		}
	}
	return false
}

func hasAncestorAttr(n *html.Node, key string) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && dom.HasAttribute(p, key) {
			return true
		}
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(dom.ClassName(n)) {
		if c == class {
			return true
		}
	}
	return false
}
