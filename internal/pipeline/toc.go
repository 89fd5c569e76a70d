package pipeline

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	nethtml "golang.org/x/net/html"
)

// TOCAttr marks the table of contents block. Exports always strip it.
const TOCAttr = "data-toc"

// TOCOptions controls which headings appear in the table of contents.
type TOCOptions struct {
	Title    string
	MinDepth int // default 1
	MaxDepth int // default 3
}

func (o TOCOptions) depths() (int, int) {
	minDepth, maxDepth := o.MinDepth, o.MaxDepth
	if minDepth < 1 {
		minDepth = 1
	}
	if maxDepth < 1 || maxDepth > 6 {
		maxDepth = 3
	}
	if maxDepth < minDepth {
		maxDepth = minDepth
	}
	return minDepth, maxDepth
}

// numberingState tracks hierarchical numbering for TOC entries.
// Supports normalization (first heading becomes level 1) and gap skipping.
type numberingState struct {
	counters     [6]int
	minLevelSeen int
	lastLevel    int
}

// next returns the number string and effective depth for a heading level.
func (n *numberingState) next(level int) (numStr string, effectiveDepth int) {
	if n.minLevelSeen == 0 {
		n.minLevelSeen = level
	}

	effectiveDepth = max(level-n.minLevelSeen+1, 1)

	// H1 -> H3 becomes depth 1 -> depth 2
	if n.lastLevel > 0 && effectiveDepth > n.lastLevel+1 {
		effectiveDepth = n.lastLevel + 1
	}

	for i := effectiveDepth; i < 6; i++ {
		n.counters[i] = 0
	}
	n.counters[effectiveDepth-1]++
	n.lastLevel = effectiveDepth

	parts := make([]string, 0, effectiveDepth)
	for i := 0; i < effectiveDepth; i++ {
		parts = append(parts, strconv.Itoa(n.counters[i]))
	}
	return strings.Join(parts, ".") + ".", effectiveDepth
}

// GenerateTOC returns the markup of a numbered table of contents, or "" when
// no heading falls within the configured depths.
func GenerateTOC(headings []Heading, opts TOCOptions, theme Theme) string {
	minDepth, maxDepth := opts.depths()

	var buf strings.Builder
	numbering := &numberingState{}
	items := 0

	for _, h := range headings {
		if h.Level < minDepth || h.Level > maxDepth {
			continue
		}
		if items == 0 {
			buf.WriteString(`<nav ` + TOCAttr + `="true" style="margin: 0 0 24px; padding: 12px 16px; border: 1px dashed ` +
				theme.Accent + `; border-radius: 8px; font-size: 13px; line-height: 1.8;">`)
			if opts.Title != "" {
				buf.WriteString(`<section style="font-weight: bold; color: ` + theme.Accent + `; margin-bottom: 6px;">`)
				buf.WriteString(html.EscapeString(opts.Title))
				buf.WriteString(`</section>`)
			}
		}
		items++

		num, depth := numbering.next(h.Level)
		buf.WriteString(`<section`)
		if indent := float64(depth-1) * 1.5; indent > 0 {
			buf.WriteString(fmt.Sprintf(` style="padding-left: %.1fem;"`, indent))
		}
		buf.WriteString(`><a href="#`)
		buf.WriteString(html.EscapeString(h.ID))
		buf.WriteString(`" style="color: ` + theme.Text + `; text-decoration: none;">`)
		buf.WriteString(num)
		buf.WriteString(` `)
		buf.WriteString(html.EscapeString(h.Text))
		buf.WriteString(`</a></section>`)
	}

	if items == 0 {
		return ""
	}
	buf.WriteString(`</nav>`)
	return buf.String()
}

// InsertTOC prepends a table of contents to root. It returns the inserted
// node, or nil when there was nothing to list.
func InsertTOC(root *nethtml.Node, headings []Heading, opts TOCOptions, theme Theme) (*nethtml.Node, error) {
	markup := GenerateTOC(headings, opts, theme)
	if markup == "" {
		return nil, nil
	}

	nodes, err := ParseFragment(markup)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	nav := nodes[0]
	root.InsertBefore(nav, root.FirstChild)
	return nav, nil
}
