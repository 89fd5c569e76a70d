package main

// Notes:
// - Parsers are tested through their public behavior: values land in the
//   right struct, positionals are returned, bad input is a usage error and
//   --help is passed through unwrapped.

import (
	"bytes"
	"errors"
	"testing"

	flag "github.com/spf13/pflag"
)

// ---------------------------------------------------------------------------
// TestParseExportFlags - Full flag surface
// ---------------------------------------------------------------------------

func TestParseExportFlags(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	f, args, err := parseExportFlags([]string{
		"docs", "-o", "out", "-w", "3",
		"--theme", "dark", "--title", "T", "--toc", "--toc-min-depth", "2", "--toc-max-depth", "4",
		"-t", "1m", "--settle-delay", "20ms", "--scale", "3", "--live",
		"-c", "work", "-v",
	}, &stderr)
	if err != nil {
		t.Fatalf("parseExportFlags() error = %v", err)
	}

	if len(args) != 1 || args[0] != "docs" {
		t.Errorf("args = %v, want [docs]", args)
	}
	if f.output != "out" || f.workers != 3 {
		t.Errorf("output/workers = %q/%d", f.output, f.workers)
	}
	if f.render.theme != "dark" || f.render.title != "T" || !f.render.toc || f.render.tocMin != 2 || f.render.tocMax != 4 {
		t.Errorf("render = %+v", f.render)
	}
	if f.capture.timeout != "1m" || f.capture.settleDelay != "20ms" || f.capture.scale != 3 || !f.capture.live {
		t.Errorf("capture = %+v", f.capture)
	}
	if f.common.config != "work" || !f.common.verbose || f.common.quiet {
		t.Errorf("common = %+v", f.common)
	}
}

// ---------------------------------------------------------------------------
// TestParseFlags_Errors - Usage errors and help
// ---------------------------------------------------------------------------

func TestParseFlags_Errors(t *testing.T) {
	t.Parallel()

	type parser func([]string) error
	wrap := func(fn func([]string, *bytes.Buffer) error) parser {
		return func(args []string) error { return fn(args, &bytes.Buffer{}) }
	}
	copyP := wrap(func(a []string, w *bytes.Buffer) error { _, _, err := parseCopyFlags(a, w); return err })
	exportP := wrap(func(a []string, w *bytes.Buffer) error { _, _, err := parseExportFlags(a, w); return err })
	previewP := wrap(func(a []string, w *bytes.Buffer) error { _, _, err := parsePreviewFlags(a, w); return err })
	serveP := wrap(func(a []string, w *bytes.Buffer) error { _, _, err := parseServeFlags(a, w); return err })
	configP := wrap(func(a []string, w *bytes.Buffer) error { _, _, err := parseConfigFlags(a, w); return err })

	tests := []struct {
		name      string
		parse     parser
		args      []string
		wantUsage bool
		wantHelp  bool
	}{
		{"copy unknown flag", copyP, []string{"--nope"}, true, false},
		{"export bad int", exportP, []string{"-w", "many"}, true, false},
		{"preview has no capture flags", previewP, []string{"--scale", "2"}, true, false},
		{"serve bad float", serveP, []string{"--scale", "x"}, true, false},
		{"config help", configP, []string{"--help"}, false, true},
		{"copy help", copyP, []string{"-h"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.parse(tt.args)
			if tt.wantUsage && !errors.Is(err, ErrUsage) {
				t.Errorf("error = %v, want ErrUsage", err)
			}
			if tt.wantHelp {
				if !errors.Is(err, flag.ErrHelp) || errors.Is(err, ErrUsage) {
					t.Errorf("error = %v, want bare flag.ErrHelp", err)
				}
			}
		})
	}
}

func TestParseServeFlags_Defaults(t *testing.T) {
	t.Parallel()

	f, _, err := parseServeFlags(nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseServeFlags() error = %v", err)
	}
	if f.addr != "127.0.0.1:8080" || f.watch != "" {
		t.Errorf("addr/watch = %q/%q", f.addr, f.watch)
	}
}

func TestParseCopyFlags_HTMLOut(t *testing.T) {
	t.Parallel()

	f, args, err := parseCopyFlags([]string{"post.md", "--html-out", "post.html", "-q"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseCopyFlags() error = %v", err)
	}
	if f.htmlOut != "post.html" || !f.common.quiet || len(args) != 1 {
		t.Errorf("htmlOut = %q, quiet = %v, args = %v", f.htmlOut, f.common.quiet, args)
	}
}
