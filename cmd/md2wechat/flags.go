package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// renderFlags holds flags that shape the preview document.
type renderFlags struct {
	theme    string
	title    string
	css      string
	toc      bool
	tocTitle string
	tocMin   int
	tocMax   int
}

// captureFlags holds formula capture flags.
type captureFlags struct {
	timeout     string
	settleDelay string
	scale       float64
	live        bool
}

// copyFlags holds all flags for the copy command.
type copyFlags struct {
	common  commonFlags
	render  renderFlags
	capture captureFlags
	htmlOut string
}

// exportFlags holds all flags for the export command.
type exportFlags struct {
	common  commonFlags
	render  renderFlags
	capture captureFlags
	output  string
	workers int
}

// previewFlags holds all flags for the preview command.
type previewFlags struct {
	common commonFlags
	render renderFlags
	output string
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common  commonFlags
	render  renderFlags
	capture captureFlags
	addr    string
	watch   string
}

// configFlags holds flags for the config command.
type configFlags struct {
	common commonFlags
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
}

// addRenderFlags adds preview rendering flags to a FlagSet.
func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.StringVar(&f.theme, "theme", "", "preview theme: default, dark")
	fs.StringVar(&f.title, "title", "", "document title (\"\" = front matter)")
	fs.StringVar(&f.css, "css", "", "extra stylesheet for the preview page")
	fs.BoolVar(&f.toc, "toc", false, "insert a table of contents in the preview")
	fs.StringVar(&f.tocTitle, "toc-title", "", "table of contents heading")
	fs.IntVar(&f.tocMin, "toc-min-depth", 0, "min heading depth for TOC (1-6, default: 1)")
	fs.IntVar(&f.tocMax, "toc-max-depth", 0, "max heading depth for TOC (1-6, default: 3)")
}

// addCaptureFlags adds formula capture flags to a FlagSet.
func addCaptureFlags(fs *flag.FlagSet, f *captureFlags) {
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-document timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.settleDelay, "settle-delay", "", "wait before each formula capture (e.g., 50ms)")
	fs.Float64Var(&f.scale, "scale", 0, "capture device scale factor (1-4, default: 2)")
	fs.BoolVar(&f.live, "live", false, "substitute in the live tree instead of a snapshot")
}

func newFlagSet(name string, usage func(io.Writer), stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	return fs
}

// parseArgs parses args into fs. Parse failures are usage errors; a help
// request is returned unwrapped so callers can exit cleanly.
func parseArgs(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUsage, err)
}

// parseCopyFlags parses copy command flags and returns positional args.
func parseCopyFlags(args []string, stderr io.Writer) (*copyFlags, []string, error) {
	f := &copyFlags{}
	fs := newFlagSet("copy", printCopyUsage, stderr)
	fs.StringVar(&f.htmlOut, "html-out", "", "write the exported HTML to a file instead of the clipboard")
	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)
	addCaptureFlags(fs, &f.capture)

	if err := parseArgs(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseExportFlags parses export command flags and returns positional args.
func parseExportFlags(args []string, stderr io.Writer) (*exportFlags, []string, error) {
	f := &exportFlags{}
	fs := newFlagSet("export", printExportUsage, stderr)
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)
	addCaptureFlags(fs, &f.capture)

	if err := parseArgs(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parsePreviewFlags parses preview command flags and returns positional args.
func parsePreviewFlags(args []string, stderr io.Writer) (*previewFlags, []string, error) {
	f := &previewFlags{}
	fs := newFlagSet("preview", printPreviewUsage, stderr)
	fs.StringVarP(&f.output, "output", "o", "", "output HTML file (default: stdout)")
	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)

	if err := parseArgs(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags and returns positional args.
func parseServeFlags(args []string, stderr io.Writer) (*serveFlags, []string, error) {
	f := &serveFlags{}
	fs := newFlagSet("serve", printServeUsage, stderr)
	fs.StringVarP(&f.addr, "addr", "a", "127.0.0.1:8080", "listen address")
	fs.StringVar(&f.watch, "watch", "", "markdown file to re-render on change and serve at /preview")
	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)
	addCaptureFlags(fs, &f.capture)

	if err := parseArgs(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseConfigFlags parses config command flags.
func parseConfigFlags(args []string, stderr io.Writer) (*configFlags, []string, error) {
	f := &configFlags{}
	fs := newFlagSet("config", printConfigUsage, stderr)
	addCommonFlags(fs, &f.common)

	if err := parseArgs(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
