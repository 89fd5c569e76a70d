package wechat

// Notes:
// - Every case is also run through Rewrite twice to check idempotence
// - Inputs mimic html.Render output: double-quoted attributes, no raw '>'
//   inside attribute values

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRewrite - Rules
// ---------------------------------------------------------------------------

func TestRewrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		in           string
		want         string
		wantContains []string
		wantExcludes []string
	}{
		{
			name: "strips box-shadow and keeps neighbors",
			in:   `<div style="color: #333; box-shadow: 0 1px 2px #000; margin: 0">x</div>`,
			want: `<div style="color: #333; margin: 0">x</div>`,
		},
		{
			name: "strips consecutive unsupported declarations",
			in:   `<span style="cursor: pointer;opacity: 0.5;user-select: none;-webkit-user-select: none">x</span>`,
			want: `<span>x</span>`,
		},
		{
			name: "strips text-transform at start",
			in:   `<h2 style="text-transform: uppercase; color: #c66e49">t</h2>`,
			want: `<h2 style="color: #c66e49">t</h2>`,
		},
		{
			name: "longer property names are kept",
			in:   `<p style="x-opacity: 1">t</p>`,
			want: `<p style="x-opacity: 1">t</p>`,
		},
		{
			name: "bare declarations outside markup",
			in:   `color: rgba(255, 0, 0, 0.5)`,
			want: `color: #ff0000`,
		},
		{
			name:         "bare declaration list",
			in:           `color: rgb(0, 0, 255); opacity: 0.5; display: flex`,
			want:         `color: #0000ff; display: block`,
			wantExcludes: []string{"rgb(", "opacity"},
		},
		{
			name: "code text untouched",
			in:   `<pre><code>a { opacity: 0.5; color: rgb(1, 2, 3); display: flex }</code></pre><p><code>cursor: pointer</code></p>`,
			want: `<pre><code>a { opacity: 0.5; color: rgb(1, 2, 3); display: flex }</code></pre><p><code>cursor: pointer</code></p>`,
		},
		{
			name: "code span styles still rewritten",
			in:   `<pre><code><span style="color: rgb(255, 255, 255); cursor: text">x</span></code></pre>`,
			want: `<pre><code><span style="color: #ffffff;">x</span></code></pre>`,
		},
		{
			name: "rgba to hex drops alpha",
			in:   `<span style="color: rgba(255, 0, 0, 0.5)">x</span>`,
			want: `<span style="color: #ff0000">x</span>`,
		},
		{
			name: "rgb space syntax",
			in:   `<span style="background: rgb(18 52 86)">x</span>`,
			want: `<span style="background: #123456">x</span>`,
		},
		{
			name: "rgb channels clamped",
			in:   `<span style="color: rgb(300, 0, 0)">x</span>`,
			want: `<span style="color: #ff0000">x</span>`,
		},
		{
			name: "rgb percentages",
			in:   `<span style="color: rgb(100%, 0%, 0%)">x</span>`,
			want: `<span style="color: #ff0000">x</span>`,
		},
		{
			name: "display flex to block",
			in:   `<section style="display: flex; align-items: center">x</section>`,
			want: `<section style="display: block; align-items: center">x</section>`,
		},
		{
			name: "display inline-flex to inline",
			in:   `<span style="display:inline-flex">x</span>`,
			want: `<span style="display: inline">x</span>`,
		},
		{
			name: "table cells get border none",
			in:   `<table><tr><td style="padding: 4px">a</td><th>b</th></tr></table>`,
			want: `<table style="border: none;"><tr style="border: none;"><td style="padding: 4px; border: none;">a</td><th style="border: none;">b</th></tr></table>`,
		},
		{
			name: "existing border none kept",
			in:   `<td style="border: none; color: #000">a</td>`,
			want: `<td style="border: none; color: #000">a</td>`,
		},
		{
			name: "thead and tbody untouched",
			in:   `<thead><tbody></tbody></thead>`,
			want: `<thead><tbody></tbody></thead>`,
		},
		{
			name: "nbsp escaped",
			in:   "<p>a\u00a0b</p>",
			want: `<p>a&nbsp;b</p>`,
		},
		{
			name: "image border stripped",
			in:   `<img src="x.png" style="border: 1px solid #ccc; width: 10px">`,
			want: `<img src="x.png" style="width: 10px">`,
		},
		{
			name: "justify becomes left",
			in:   `<section style="text-align: justify; line-height: 1.8">x</section>`,
			want: `<section style="text-align: left; line-height: 1.8">x</section>`,
		},
		{
			name: "paragraph font size shrinks",
			in:   `<p style="font-size: 16px">x</p><blockquote style="font-size: 16px">q</blockquote><section style="font-size: 16px">s</section>`,
			want: `<p style="font-size: 14px">x</p><blockquote style="font-size: 13px">q</blockquote><section style="font-size: 16px">s</section>`,
		},
		{
			name: "empty style attributes removed",
			in:   `<span style="">x</span><em style=" ; ">y</em>`,
			want: `<span>x</span><em>y</em>`,
		},
		{
			name: "data-style untouched",
			in:   `<div data-style="">x</div>`,
			want: `<div data-style="">x</div>`,
		},
		{
			name:         "mdnice code block cleaned",
			in:           `<pre class="custom" style="border-radius: 5px; box-shadow: rgba(0, 0, 0, 0.55) 0px 2px 10px; text-align: left;">x</pre>`,
			wantContains: []string{`border-radius: 5px;`, `text-align: left;`},
			wantExcludes: []string{"box-shadow", "rgba("},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Rewrite(tt.in)
			if tt.want != "" && got != tt.want {
				t.Errorf("Rewrite()\n got  %s\n want %s", got, tt.want)
			}
			for _, s := range tt.wantContains {
				if !strings.Contains(got, s) {
					t.Errorf("Rewrite() = %s, want contains %q", got, s)
				}
			}
			for _, s := range tt.wantExcludes {
				if strings.Contains(got, s) {
					t.Errorf("Rewrite() = %s, want excludes %q", got, s)
				}
			}

			if again := Rewrite(got); again != got {
				t.Errorf("Rewrite() not idempotent\n once  %s\n twice %s", got, again)
			}
		})
	}
}

func TestRewrite_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		``,
		`plain text`,
		`<div style=";;color: rgba(1,2,3,.4);;; box-shadow: none;display:flex">x</div>`,
		`<table style="width: 100%"><tr><td>1</td></tr></table>`,
		`<img style="border:0;cursor:zoom-in" src="a">`,
		"<p style=\"font-size: 16px; text-align: justify\">a\u00a0b</p>",
	}

	for _, in := range inputs {
		once := Rewrite(in)
		if twice := Rewrite(once); twice != once {
			t.Errorf("Rewrite(%q) not idempotent\n once  %s\n twice %s", in, once, twice)
		}
	}
}
