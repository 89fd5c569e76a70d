package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	md2wechat "github.com/alnah/go-md2wechat"
	"golang.org/x/net/html"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Mocks and environment
// ---------------------------------------------------------------------------

// testPNG is a data URI the exporter accepts as a captured image.
const testPNG = "data:image/png;base64,iVBORw0KGgo="

// mockFormulaRasterizer returns a fixed capture for every formula.
type mockFormulaRasterizer struct {
	mu     sync.Mutex
	calls  int
	closed int
	fail   bool
}

func (m *mockFormulaRasterizer) RasterizeElement(_ context.Context, _ *html.Node, _ bool) md2wechat.RasterResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return md2wechat.RasterResult{}
	}
	return md2wechat.RasterResult{ImageData: testPNG, Width: 40, Height: 20}
}

func (m *mockFormulaRasterizer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *mockFormulaRasterizer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockClipboard records the last rich and plain writes.
type mockClipboard struct {
	mu      sync.Mutex
	richErr error
	textErr error
	html    string
	text    string
}

func (m *mockClipboard) WriteRich(_ context.Context, html, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.html = html
	return m.richErr
}

func (m *mockClipboard) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return m.textErr
}

// testEnv bundles an Environment with its captured output and mocks.
type testEnv struct {
	*Environment
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
	vars      map[string]string
	formulas  *mockFormulaRasterizer
	clipboard *mockClipboard
}

// newTestEnv returns an environment with no MD2WECHAT_* variables, mock
// capture and clipboard, and captured output.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	te := &testEnv{
		stdout:    &bytes.Buffer{},
		stderr:    &bytes.Buffer{},
		vars:      map[string]string{},
		formulas:  &mockFormulaRasterizer{},
		clipboard: &mockClipboard{},
	}
	te.Environment = &Environment{
		Now:    func() time.Time { return time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC) },
		Stdout: te.stdout,
		Stderr: te.stderr,
		Getenv: func(k string) string { return te.vars[k] },
		Environ: func() []string {
			out := make([]string, 0, len(te.vars))
			for k, v := range te.vars {
				out = append(out, k+"="+v)
			}
			sort.Strings(out)
			return out
		},
		GOOS: "linux",
		Options: []md2wechat.Option{
			md2wechat.WithFormulaRasterizer(te.formulas),
			md2wechat.WithClipboard(te.clipboard),
		},
	}
	return te
}

// sampleMarkdown holds one inline formula, one block formula and text.
const sampleMarkdown = "# 标题\n\nEnergy $E=mc^2$ holds.\n\n$$\n\\int_0^1 x\\,dx\n$$\n\nPlain **bold** text.\n"

// writeFile writes content under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func countImages(s string) int {
	return strings.Count(s, "<img")
}
