package pipeline

import (
	"strings"
	"testing"

	"github.com/go-shiori/dom"
)

func TestNumberingState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		levels    []int
		wantNums  []string
		wantDepth []int
	}{
		{
			name:      "flat siblings",
			levels:    []int{2, 2, 2},
			wantNums:  []string{"1.", "2.", "3."},
			wantDepth: []int{1, 1, 1},
		},
		{
			name:      "nested with reset",
			levels:    []int{1, 2, 2, 1, 2},
			wantNums:  []string{"1.", "1.1.", "1.2.", "2.", "2.1."},
			wantDepth: []int{1, 2, 2, 1, 2},
		},
		{
			name:      "gap is skipped",
			levels:    []int{1, 3, 3},
			wantNums:  []string{"1.", "1.1.", "1.2."},
			wantDepth: []int{1, 2, 2},
		},
		{
			name:      "first heading normalizes depth",
			levels:    []int{3, 4},
			wantNums:  []string{"1.", "1.1."},
			wantDepth: []int{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := &numberingState{}
			for i, level := range tt.levels {
				num, depth := n.next(level)
				if num != tt.wantNums[i] || depth != tt.wantDepth[i] {
					t.Errorf("next(%d) #%d = (%q, %d), want (%q, %d)",
						level, i, num, depth, tt.wantNums[i], tt.wantDepth[i])
				}
			}
		})
	}
}

func TestGenerateTOC(t *testing.T) {
	t.Parallel()

	theme, _ := LookupTheme(ThemeDefault)
	headings := []Heading{
		{Level: 1, ID: "heading-0", Text: "Intro"},
		{Level: 2, ID: "heading-1", Text: "A & B"},
		{Level: 4, ID: "heading-2", Text: "Deep"},
	}

	tests := []struct {
		name         string
		opts         TOCOptions
		wantContains []string
		wantNot      []string
		wantEmpty    bool
	}{
		{
			name:         "default depths",
			opts:         TOCOptions{Title: "Contents"},
			wantContains: []string{`<nav data-toc="true"`, "Contents", `href="#heading-0"`, "1. Intro", "1.1. A &amp; B"},
			wantNot:      []string{"Deep"},
		},
		{
			name:         "max depth 4",
			opts:         TOCOptions{MaxDepth: 4},
			wantContains: []string{"Deep", `href="#heading-2"`},
		},
		{
			name:         "min depth 2 renumbers",
			opts:         TOCOptions{MinDepth: 2},
			wantContains: []string{"1. A &amp; B"},
			wantNot:      []string{"Intro"},
		},
		{
			name:      "nothing in range",
			opts:      TOCOptions{MinDepth: 5, MaxDepth: 6},
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := GenerateTOC(headings, tt.opts, theme)
			if tt.wantEmpty {
				if got != "" {
					t.Errorf("GenerateTOC() = %q, want empty", got)
				}
				return
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateTOC() missing %q\ngot: %s", want, got)
				}
			}
			for _, bad := range tt.wantNot {
				if strings.Contains(got, bad) {
					t.Errorf("GenerateTOC() should not contain %q\ngot: %s", bad, got)
				}
			}
		})
	}
}

func TestInsertTOC(t *testing.T) {
	t.Parallel()

	root, headings := styled(t, "# One\n\ntext\n\n## Two")
	theme, _ := LookupTheme(ThemeDefault)

	nav, err := InsertTOC(root, headings, TOCOptions{}, theme)
	if err != nil {
		t.Fatalf("InsertTOC() unexpected error: %v", err)
	}
	if nav == nil {
		t.Fatal("InsertTOC() returned nil node")
	}
	if root.FirstChild != nav {
		t.Error("TOC should be the first child of root")
	}
	if got := len(dom.QuerySelectorAll(nav, "a")); got != 2 {
		t.Errorf("TOC has %d links, want 2", got)
	}

	empty := newElement("div")
	nav, err = InsertTOC(empty, nil, TOCOptions{}, theme)
	if err != nil || nav != nil || empty.FirstChild != nil {
		t.Errorf("InsertTOC() with no headings = (%v, %v), want nothing inserted", nav, err)
	}
}
