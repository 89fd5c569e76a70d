package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownTheme indicates a theme name that is not registered.
var ErrUnknownTheme = errors.New("unknown theme")

// Built-in theme names.
const (
	ThemeDefault = "default"
	ThemeDark    = "dark"
)

// Theme holds the palette inlined into preview elements.
// Every value must be a literal CSS color: the output is pasted into an
// editor that drops stylesheets and custom properties.
type Theme struct {
	Name string

	Accent      string // heading badges, table headers
	AccentBar   string // h3/h4 side bar
	Strong      string
	Text        string
	HeadingText string
	Muted       string

	QuoteBorder     string
	QuoteBackground string
	QuoteText       string

	Border        string
	CellBG        string
	InlineCodeBG  string
	InlineCodeFG  string
	Link          string
	Underline     string
	Highlight     string
	PageBG        string
	CodeBG        string
	CodeHeaderBG  string
	CodeLangLabel string
}

var themes = map[string]Theme{
	ThemeDefault: {
		Name:            ThemeDefault,
		Accent:          "#C66E49",
		AccentBar:       "#ea580c",
		Strong:          "#c2410c",
		Text:            "#374151",
		HeadingText:     "#1f2937",
		Muted:           "#999999",
		QuoteBorder:     "#fdba74",
		QuoteBackground: "#fff7ed",
		QuoteText:       "#666666",
		Border:          "#e5e7eb",
		CellBG:          "#f9fafb",
		InlineCodeBG:    "#f3f4f6",
		InlineCodeFG:    "#c2410c",
		Link:            "#2563eb",
		Underline:       "#8DE0B4",
		Highlight:       "#fef08a",
		PageBG:          "#ffffff",
		CodeBG:          "#282c34",
		CodeHeaderBG:    "#21252b",
		CodeLangLabel:   "#6b7280",
	},
	ThemeDark: {
		Name:            ThemeDark,
		Accent:          "#C66E49",
		AccentBar:       "#ea580c",
		Strong:          "#fb923c",
		Text:            "#e5e7eb",
		HeadingText:     "#e5e7eb",
		Muted:           "#9ca3af",
		QuoteBorder:     "#fdba74",
		QuoteBackground: "#414559",
		QuoteText:       "#e5e7eb",
		Border:          "#4b5563",
		CellBG:          "#414559",
		InlineCodeBG:    "#414559",
		InlineCodeFG:    "#fb923c",
		Link:            "#60a5fa",
		Underline:       "#8DE0B4",
		Highlight:       "#854d0e",
		PageBG:          "#303446",
		CodeBG:          "#282c34",
		CodeHeaderBG:    "#21252b",
		CodeLangLabel:   "#9ca3af",
	},
}

// LookupTheme returns the named theme. An empty name selects the default.
func LookupTheme(name string) (Theme, error) {
	if name == "" {
		name = ThemeDefault
	}
	t, ok := themes[strings.ToLower(name)]
	if !ok {
		return Theme{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownTheme, name, strings.Join(ThemeNames(), ", "))
	}
	return t, nil
}

// ThemeNames lists registered themes in sorted order.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
