package wechat

import (
	"errors"
	"html"
	"regexp"
	"strings"

	"github.com/go-shiori/dom"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoCode is returned when a code block section holds no <code> element.
var ErrNoCode = errors.New("code block has no code element")

const (
	codeDefaultColor = "#abb2bf"
	codeBackground   = "#282c34"
	// Traffic-light header image the WeChat editor already serves.
	codeHeaderImage = "https://files.mdnice.com/user/3441/876cad08-0422-409d-bb5a-08afec5da8ee.svg"
)

const mdnicePreStyle = "border-radius: 5px; box-shadow: rgba(0, 0, 0, 0.55) 0px 2px 10px; text-align: left; " +
	"margin-top: 10px; margin-bottom: 10px; margin-left: 0px; margin-right: 0px; " +
	"padding-top: 0px; padding-bottom: 0px; padding-left: 0px; padding-right: 0px;"

const mdniceHeaderStyle = "display: block; background: url(" + codeHeaderImage + "); height: 30px; width: 100%; " +
	"background-size: 40px; background-repeat: no-repeat; background-color: " + codeBackground + "; " +
	"margin-bottom: -7px; border-radius: 5px; background-position: 10px 10px;"

const mdniceCodeStyle = "overflow-x: auto; padding: 16px; color: " + codeDefaultColor + "; padding-top: 15px; " +
	"background: " + codeBackground + "; border-radius: 5px; display: -webkit-box; " +
	"font-family: Consolas, Monaco, Menlo, monospace; font-size: 12px;"

var (
	colorDecl     = regexp.MustCompile(`(?i)(?:^|[\s;])color\s*:\s*([^;]+)`)
	fontStyleDecl = regexp.MustCompile(`(?i)(?:^|[\s;])font-style\s*:\s*italic`)
)

// hljsClasses maps One Dark token colors to the class names the WeChat
// editor's own code theme recognizes.
var hljsClasses = map[string]string{
	"#c678dd": "hljs-keyword",
	"#61afef": "hljs-title",
	"#61aeee": "hljs-title",
	"#98c379": "hljs-string",
	"#5c6370": "hljs-comment",
	"#7f848e": "hljs-comment",
	"#d19a66": "hljs-number",
	"#e06c75": "hljs-variable",
	"#56b6c2": "hljs-built_in",
	"#e5c07b": "hljs-type",
}

// codeRun is a stretch of code text sharing one token style.
type codeRun struct {
	text   string
	color  string
	italic bool
}

// MdniceMarkup converts a highlighted code block section into the <pre
// class="custom"> markup the WeChat editor preserves. Spaces become &nbsp;
// and lines are joined with <br> so indentation survives the paste.
func MdniceMarkup(section *nethtml.Node) (string, error) {
	code := dom.QuerySelector(section, "code")
	if code == nil {
		return "", ErrNoCode
	}

	lines := [][]codeRun{nil}
	var walk func(n *nethtml.Node, color string, italic bool)
	walk = func(n *nethtml.Node, color string, italic bool) {
		switch n.Type {
		case nethtml.TextNode:
			parts := strings.Split(n.Data, "\n")
			for i, part := range parts {
				if i > 0 {
					lines = append(lines, nil)
				}
				if part != "" {
					last := len(lines) - 1
					lines[last] = append(lines[last], codeRun{text: part, color: color, italic: italic})
				}
			}
			return
		case nethtml.ElementNode:
			if n.DataAtom == atom.Br {
				lines = append(lines, nil)
				return
			}
			if style := dom.GetAttribute(n, "style"); style != "" {
				if m := colorDecl.FindStringSubmatch(style); m != nil {
					color = normalizeColor(m[1])
				}
				if fontStyleDecl.MatchString(style) {
					italic = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, color, italic)
		}
	}
	walk(code, "", false)

	if len(lines) > 1 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}

	rendered := make([]string, len(lines))
	for i, line := range lines {
		var b strings.Builder
		for _, run := range line {
			writeCodeRun(&b, run)
		}
		if b.Len() == 0 {
			rendered[i] = "&nbsp;"
			continue
		}
		rendered[i] = b.String()
	}

	var b strings.Builder
	b.WriteString(`<pre class="custom" data-tool="mdnice编辑器" style="` + mdnicePreStyle + `">`)
	b.WriteString(`<span style="` + mdniceHeaderStyle + `"></span>`)
	b.WriteString(`<code class="hljs" style="` + mdniceCodeStyle + `">`)
	b.WriteString(strings.Join(rendered, "<br>"))
	b.WriteString(`</code></pre>`)
	return b.String(), nil
}

// MdniceNode parses MdniceMarkup output into a detached element.
func MdniceNode(section *nethtml.Node) (*nethtml.Node, error) {
	markup, err := MdniceMarkup(section)
	if err != nil {
		return nil, err
	}
	body := &nethtml.Node{Type: nethtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := nethtml.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.Type == nethtml.ElementNode {
			return n, nil
		}
	}
	return nil, ErrNoCode
}

// writeCodeRun emits spaces bare as &nbsp; and wraps each non-space stretch
// in a colored span unless it uses the default foreground.
func writeCodeRun(b *strings.Builder, run codeRun) {
	class := hljsClasses[run.color]
	styled := class != "" || (run.color != "" && run.color != codeDefaultColor)

	for _, seg := range splitSpaces(run.text) {
		if seg == " " {
			b.WriteString("&nbsp;")
			continue
		}
		text := html.EscapeString(seg)
		if !styled {
			b.WriteString(text)
			continue
		}
		style := "color: " + run.color
		if run.italic {
			style += "; font-style: italic"
		}
		style += "; line-height: 26px"
		if class != "" {
			b.WriteString(`<span class="` + class + `" style="` + style + `">` + text + `</span>`)
		} else {
			b.WriteString(`<span style="` + style + `">` + text + `</span>`)
		}
	}
}

// splitSpaces splits s into single-space segments and non-space stretches.
func splitSpaces(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == ' ' || r == '\t' {
			if start < i {
				out = append(out, s[start:i])
			}
			if r == '\t' {
				out = append(out, " ", " ", " ", " ")
			} else {
				out = append(out, " ")
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// normalizeColor lowercases hex colors and converts rgb() to hex.
func normalizeColor(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if m := rgbPattern.FindStringSubmatch(c); m != nil {
		return rgbMatchToHex(m)
	}
	if len(c) == 4 && c[0] == '#' {
		c = "#" + strings.Repeat(c[1:2], 2) + strings.Repeat(c[2:3], 2) + strings.Repeat(c[3:4], 2)
	}
	return c
}
