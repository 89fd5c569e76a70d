package wechat

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Rewrite adapts serialized preview HTML to what the WeChat editor keeps on
// paste. It is pure and idempotent: Rewrite(Rewrite(s)) == Rewrite(s).
//
// Unsupported declarations, rgb() colors and flex displays are rewritten
// anywhere in s except the text of <pre> and <code> regions, where only
// style attribute values are touched. Tag-specific rules only look inside
// style="..." values. All declaration rules are anchored at declaration
// boundaries, so longer property names ending in a stripped name are kept.
func Rewrite(s string) string {
	for _, r := range rewriteRules {
		s = r.apply(s)
	}
	return s
}

type rewriteRule struct {
	name  string
	apply func(string) string
}

// Order matters: color conversion must see declarations after stripping,
// and cleanup runs last to absorb the separators other rules leave behind.
var rewriteRules = []rewriteRule{
	{"strip-unsupported", stripUnsupported},
	{"nbsp", escapeNBSP},
	{"image-borders", stripImageBorders},
	{"justify", justifyToLeft},
	{"font-size", shrinkFontSizes},
	{"rgb-to-hex", rgbToHex},
	{"flex", flexToBlock},
	{"table-borders", forceTableBorders},
	{"cleanup", cleanupStyles},
}

var (
	styleAttrPattern = regexp.MustCompile(`(?i)(\sstyle\s*=\s*")([^"]*)(")`)

	unsupportedDecl = regexp.MustCompile(`(?i)(^|[\s;"])(?:(?:-webkit-|-moz-|-ms-)?box-shadow|opacity|text-transform|(?:-webkit-|-moz-|-ms-)?user-select|cursor)\s*:[^;"<>]*`)
	borderDecl      = regexp.MustCompile(`(?i)(^|[\s;])border\s*:[^;]*`)
	borderNoneDecl  = regexp.MustCompile(`(?i)(^|[\s;])border\s*:\s*none\s*(;|$)`)
	justifyDecl     = regexp.MustCompile(`(?i)(^|[\s;])text-align\s*:\s*justify\b`)
	fontSize16Decl  = regexp.MustCompile(`(?i)(^|[\s;])font-size\s*:\s*16px\b`)
	displayFlexDecl = regexp.MustCompile(`(?i)(^|[\s;"])display\s*:\s*flex\b`)
	inlineFlexDecl  = regexp.MustCompile(`(?i)(^|[\s;"])display\s*:\s*inline-flex\b`)

	rgbPattern = regexp.MustCompile(`(?i)rgba?\(\s*([0-9.]+)(%?)\s*,?\s*([0-9.]+)(%?)\s*,?\s*([0-9.]+)(%?)\s*(?:[,/]\s*[0-9.]+%?\s*)?\)`)

	// Code text is shown to readers verbatim.
	codeRegionPattern = regexp.MustCompile(`(?is)<pre\b[^>]*>.*?</pre>|<code\b[^>]*>.*?</code>`)

	imgTagPattern       = regexp.MustCompile(`(?i)<img(\s[^>]*)?>`)
	textBlockTagPattern = regexp.MustCompile(`(?i)<(?:p|ul|ol|li)(\s[^>]*)?>`)
	quoteTagPattern     = regexp.MustCompile(`(?i)<blockquote(\s[^>]*)?>`)
	tableTagPattern     = regexp.MustCompile(`(?i)<(table|tr|td|th)(\s[^>]*)?>`)

	repeatedSemicolons = regexp.MustCompile(`;(\s*;)+`)
	leadingSemicolon   = regexp.MustCompile(`^\s*;\s*`)
	emptyStyleAttr     = regexp.MustCompile(`(?i)\s+style\s*=\s*"\s*"`)
)

// mapStyles applies fn to the value of every style attribute in s.
func mapStyles(s string, fn func(string) string) string {
	return styleAttrPattern.ReplaceAllStringFunc(s, func(attr string) string {
		m := styleAttrPattern.FindStringSubmatch(attr)
		return m[1] + fn(m[2]) + m[3]
	})
}

// mapDecls applies fn to s outside code regions and to the style values
// of tags inside them.
func mapDecls(s string, fn func(string) string) string {
	regions := codeRegionPattern.FindAllStringIndex(s, -1)
	if len(regions) == 0 {
		return fn(s)
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, r := range regions {
		b.WriteString(fn(s[last:r[0]]))
		b.WriteString(mapStyles(s[r[0]:r[1]], fn))
		last = r[1]
	}
	b.WriteString(fn(s[last:]))
	return b.String()
}

// mapTagStyles applies fn to style values of tags matched by tag.
func mapTagStyles(s string, tag *regexp.Regexp, fn func(string) string) string {
	return tag.ReplaceAllStringFunc(s, func(t string) string {
		return mapStyles(t, fn)
	})
}

func replaceDecl(re *regexp.Regexp, repl string) func(string) string {
	return func(v string) string {
		return re.ReplaceAllString(v, repl)
	}
}

func stripUnsupported(s string) string {
	return mapDecls(s, replaceDecl(unsupportedDecl, "$1"))
}

func escapeNBSP(s string) string {
	return strings.ReplaceAll(s, "\u00a0", "&nbsp;")
}

func stripImageBorders(s string) string {
	return mapTagStyles(s, imgTagPattern, replaceDecl(borderDecl, "$1"))
}

func justifyToLeft(s string) string {
	return mapStyles(s, replaceDecl(justifyDecl, "${1}text-align: left"))
}

func shrinkFontSizes(s string) string {
	s = mapTagStyles(s, textBlockTagPattern, replaceDecl(fontSize16Decl, "${1}font-size: 14px"))
	return mapTagStyles(s, quoteTagPattern, replaceDecl(fontSize16Decl, "${1}font-size: 13px"))
}

func rgbToHex(s string) string {
	return mapDecls(s, func(v string) string {
		return rgbPattern.ReplaceAllStringFunc(v, func(c string) string {
			return rgbMatchToHex(rgbPattern.FindStringSubmatch(c))
		})
	})
}

func rgbMatchToHex(m []string) string {
	return fmt.Sprintf("#%02x%02x%02x",
		colorChannel(m[1], m[2]),
		colorChannel(m[3], m[4]),
		colorChannel(m[5], m[6]))
}

// colorChannel parses a CSS rgb() channel, either 0-255 or a percentage.
func colorChannel(num, pct string) int {
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if pct != "" {
		v = v * 255 / 100
	}
	return int(math.Max(0, math.Min(255, math.Round(v))))
}

func flexToBlock(s string) string {
	return mapDecls(s, func(v string) string {
		v = inlineFlexDecl.ReplaceAllString(v, "${1}display: inline")
		return displayFlexDecl.ReplaceAllString(v, "${1}display: block")
	})
}

func forceTableBorders(s string) string {
	return tableTagPattern.ReplaceAllStringFunc(s, func(tag string) string {
		if !styleAttrPattern.MatchString(tag) {
			return tag[:len(tag)-1] + ` style="border: none;">`
		}
		return mapStyles(tag, func(v string) string {
			if borderNoneDecl.MatchString(v) {
				return v
			}
			v = strings.TrimSpace(v)
			if v != "" && !strings.HasSuffix(v, ";") {
				v += ";"
			}
			if v == "" {
				return "border: none;"
			}
			return v + " border: none;"
		})
	})
}

func cleanupStyles(s string) string {
	s = mapDecls(s, func(v string) string {
		return repeatedSemicolons.ReplaceAllString(v, ";")
	})
	s = mapStyles(s, func(v string) string {
		v = repeatedSemicolons.ReplaceAllString(v, ";")
		v = leadingSemicolon.ReplaceAllString(v, "")
		return strings.TrimSpace(v)
	})
	return emptyStyleAttr.ReplaceAllString(s, "")
}
