package pipeline

// Notes:
// - Images are written to t.TempDir(); the PNG is encoded at test time so
//   content sniffing sees real bytes

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-shiori/dom"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("png.Encode() unexpected error: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile() unexpected error: %v", err)
	}
}

func TestInlineLocalImages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "pic.png"))
	writePNG(t, filepath.Join(dir, "my pic.png"))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"></svg>`
	if err := os.WriteFile(filepath.Join(dir, "icon.svg"), []byte(svg), 0o644); err != nil {
		t.Fatal(err)
	}

	root := parseInto(t, `<p>`+
		`<img id="local" src="pic.png">`+
		`<img id="escaped" src="my%20pic.png?v=2">`+
		`<img id="svg" src="icon.svg">`+
		`<img id="remote" src="https://example.com/a.png">`+
		`<img id="data" src="data:image/png;base64,AAAA">`+
		`<img id="text" src="notes.txt">`+
		`<img id="missing" src="nope.png">`+
		`<img id="escape" src="../outside.png">`+
		`</p>`)

	inlined, issues := InlineLocalImages(root, dir, 0)
	if inlined != 3 {
		t.Errorf("inlined = %d, want 3", inlined)
	}
	if len(issues) != 3 {
		t.Errorf("issues = %d, want 3: %v", len(issues), issues)
	}

	src := func(id string) string {
		return dom.GetAttribute(dom.GetElementByID(root, id), "src")
	}

	tests := []struct {
		id         string
		wantPrefix string
	}{
		{id: "local", wantPrefix: "data:image/png;base64,"},
		{id: "escaped", wantPrefix: "data:image/png;base64,"},
		{id: "svg", wantPrefix: "data:image/svg+xml;base64,"},
		{id: "remote", wantPrefix: "https://example.com/a.png"},
		{id: "data", wantPrefix: "data:image/png;base64,AAAA"},
		{id: "text", wantPrefix: "notes.txt"},
		{id: "missing", wantPrefix: "nope.png"},
		{id: "escape", wantPrefix: "../outside.png"},
	}
	for _, tt := range tests {
		if got := src(tt.id); !strings.HasPrefix(got, tt.wantPrefix) {
			t.Errorf("img#%s src = %.60q, want prefix %q", tt.id, got, tt.wantPrefix)
		}
	}

	var sawOutside, sawNotImage bool
	for _, issue := range issues {
		sawOutside = sawOutside || errors.Is(issue.Err, ErrImageOutside)
		sawNotImage = sawNotImage || errors.Is(issue.Err, ErrNotAnImage)
	}
	if !sawOutside || !sawNotImage {
		t.Errorf("issues = %v, want ErrImageOutside and ErrNotAnImage among them", issues)
	}
}

func TestInlineLocalImages_SizeLimit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "pic.png"))
	root := parseInto(t, `<img src="pic.png">`)

	inlined, issues := InlineLocalImages(root, dir, 8)
	if inlined != 0 || len(issues) != 1 || !errors.Is(issues[0].Err, ErrImageTooLarge) {
		t.Errorf("InlineLocalImages() = (%d, %v), want one ErrImageTooLarge", inlined, issues)
	}
}

func TestInlineLocalImages_NoSourceDir(t *testing.T) {
	t.Parallel()

	root := parseInto(t, `<img src="pic.png">`)
	if inlined, issues := InlineLocalImages(root, "", 0); inlined != 0 || issues != nil {
		t.Errorf("InlineLocalImages() = (%d, %v), want no-op", inlined, issues)
	}
}

func TestIsRelativePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"img.png", true},
		{"./img.png", true},
		{"../img.png", true},
		{"sub/img.png", true},
		{"", false},
		{"http://x/a.png", false},
		{"HTTPS://x/a.png", false},
		{"file:///a.png", false},
		{"data:image/png;base64,AA", false},
		{"//cdn/a.png", false},
		{"#anchor", false},
		{"/abs/a.png", false},
	}

	for _, tt := range tests {
		if got := isRelativePath(tt.path); got != tt.want {
			t.Errorf("isRelativePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIsPathUnderDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(string(filepath.Separator), "notes")
	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(dir, "a.png"), true},
		{filepath.Join(dir, "sub", "a.png"), true},
		{filepath.Join(dir, "..", "a.png"), false},
		{dir + "-other" + string(filepath.Separator) + "a.png", false},
	}

	for _, tt := range tests {
		if got := isPathUnderDir(tt.path, dir); got != tt.want {
			t.Errorf("isPathUnderDir(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
