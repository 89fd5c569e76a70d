package wechat

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	spaceRun   = regexp.MustCompile(`[ \t\r\n\f]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// blockAtoms break lines around their content the way rendered text does.
var blockAtoms = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Tr: true, atom.Ul: true,
}

// PlainText approximates the rendered text of root: block elements start new
// lines, paragraphs and headings are separated by a blank line, whitespace
// collapses outside <pre>, and table cells are tab separated.
func PlainText(root *html.Node) string {
	if root == nil {
		return ""
	}

	var b strings.Builder
	var walk func(n *html.Node, pre bool)
	newline := func() {
		s := b.String()
		if s != "" && !strings.HasSuffix(s, "\n") {
			b.WriteByte('\n')
		}
	}

	walk = func(n *html.Node, pre bool) {
		switch n.Type {
		case html.TextNode:
			if pre {
				b.WriteString(n.Data)
				return
			}
			text := spaceRun.ReplaceAllString(n.Data, " ")
			if strings.HasSuffix(b.String(), "\n") || b.Len() == 0 {
				text = strings.TrimLeft(text, " ")
			}
			b.WriteString(text)
			return
		case html.ElementNode:
			switch elementAtom(n) {
			case atom.Script, atom.Style, atom.Template, atom.Head:
				return
			case atom.Br:
				b.WriteByte('\n')
				return
			case atom.Img:
				if alt := attr(n, "alt"); alt != "" {
					b.WriteString(alt)
				}
				return
			case atom.Td, atom.Th:
				if n.PrevSibling != nil {
					b.WriteByte('\t')
				}
			}
		}

		a := elementAtom(n)
		block := n.Type == html.ElementNode && blockAtoms[a]
		if block {
			newline()
		}
		inPre := pre || (n.Type == html.ElementNode && a == atom.Pre)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inPre)
		}
		if block {
			newline()
			if isParagraphLike(a) {
				b.WriteByte('\n')
			}
		}
	}
	walk(root, false)

	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	out := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}

// elementAtom tolerates elements built without DataAtom.
func elementAtom(n *html.Node) atom.Atom {
	if n.DataAtom != 0 || n.Type != html.ElementNode {
		return n.DataAtom
	}
	return atom.Lookup([]byte(n.Data))
}

func isParagraphLike(a atom.Atom) bool {
	switch a {
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
