package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	md2wechat "github.com/alnah/go-md2wechat"
	"github.com/alnah/go-md2wechat/internal/config"
	"github.com/alnah/go-md2wechat/internal/fileutil"
	"go.uber.org/zap"
)

// Sentinel errors for CLI input handling.
var (
	ErrNoInput      = errors.New("no input specified")
	ErrUsage        = errors.New("invalid usage")
	ErrReadMarkdown = errors.New("failed to read markdown file")
	ErrReadCSS      = errors.New("failed to read CSS file")
	ErrWriteOutput  = errors.New("failed to write output file")
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: exported HTML is meant to be readable
)

// renderParams groups the per-run values every input shares.
type renderParams struct {
	title string
	css   string
	toc   *md2wechat.TOC
}

// loadSettings resolves the effective config for a run.
// Precedence: CLI flags > env vars > config file > defaults. Flags are
// merged by the caller, then the result is validated.
func loadSettings(common commonFlags, env *Environment) (*config.Config, error) {
	envCfg := loadEnvConfig(env.Getenv)

	name := common.config
	if name == "" {
		name = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	applyEnvConfig(envCfg, cfg)
	return cfg, nil
}

// mergeRenderFlags merges rendering flags into cfg. CLI values win.
// Any TOC flag turns the table of contents on.
func mergeRenderFlags(f renderFlags, cfg *config.Config) {
	if f.theme != "" {
		cfg.Theme = f.theme
	}
	if f.css != "" {
		cfg.CSS = f.css
	}
	if f.toc {
		cfg.TOC.Enabled = true
	}
	if f.tocTitle != "" {
		cfg.TOC.Title = f.tocTitle
		cfg.TOC.Enabled = true
	}
	if f.tocMin != 0 {
		cfg.TOC.MinDepth = f.tocMin
		cfg.TOC.Enabled = true
	}
	if f.tocMax != 0 {
		cfg.TOC.MaxDepth = f.tocMax
		cfg.TOC.Enabled = true
	}
}

// mergeCaptureFlags merges capture flags into cfg. CLI values win.
func mergeCaptureFlags(f captureFlags, cfg *config.Config) {
	if f.timeout != "" {
		cfg.Capture.Timeout = f.timeout
	}
	if f.settleDelay != "" {
		cfg.Capture.SettleDelay = f.settleDelay
	}
	if f.scale != 0 {
		cfg.Capture.Scale = f.scale
	}
	if f.live {
		cfg.Capture.LiveMutation = true
	}
}

// converterOptions translates cfg into converter options. The environment's
// injected options come last so they override collaborators.
func converterOptions(cfg *config.Config, logger *zap.Logger, env *Environment) []md2wechat.Option {
	opts := []md2wechat.Option{
		md2wechat.WithLogger(logger),
		md2wechat.WithLiveMutation(cfg.Capture.LiveMutation),
		// The process exits right after the export; nobody observes the reset.
		md2wechat.WithResetDelay(0),
	}
	if cfg.Theme != "" {
		opts = append(opts, md2wechat.WithTheme(cfg.Theme))
	}
	if d := cfg.Capture.TimeoutDuration(); d > 0 {
		opts = append(opts, md2wechat.WithTimeout(d))
	}
	if cfg.Capture.SettleDelay != "" {
		opts = append(opts, md2wechat.WithSettleDelay(cfg.Capture.SettleDelayDuration()))
	}
	if cfg.Capture.Scale > 0 {
		opts = append(opts, md2wechat.WithCaptureScale(cfg.Capture.Scale))
	}
	return append(opts, env.Options...)
}

// buildRenderParams reads the stylesheet and builds the TOC once per run.
func buildRenderParams(cfg *config.Config, title string) (*renderParams, error) {
	params := &renderParams{title: title, toc: buildTOCData(cfg)}
	if cfg.CSS != "" {
		content, err := os.ReadFile(cfg.CSS) // #nosec G304 -- user-provided path
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReadCSS, err)
		}
		params.css = string(content)
	}
	return params, nil
}

// buildTOCData creates md2wechat.TOC from config, or nil when disabled.
func buildTOCData(cfg *config.Config) *md2wechat.TOC {
	if !cfg.TOC.Enabled {
		return nil
	}
	return &md2wechat.TOC{
		Title:    cfg.TOC.Title,
		MinDepth: cfg.TOC.MinDepth, // 0 = library default
		MaxDepth: cfg.TOC.MaxDepth,
	}
}

// readInput loads a Markdown file into an Input whose relative images
// resolve against the file's directory.
func readInput(path string, params *renderParams) (md2wechat.Input, error) {
	if err := validateMarkdownExtension(path); err != nil {
		return md2wechat.Input{}, err
	}
	content, err := os.ReadFile(path) // #nosec G304 -- user-provided path
	if err != nil {
		return md2wechat.Input{}, fmt.Errorf("%w: %w", ErrReadMarkdown, err)
	}
	return md2wechat.Input{
		Markdown:  string(content),
		SourceDir: filepath.Dir(path),
		Title:     params.title,
		CSS:       params.css,
		TOC:       params.toc,
	}, nil
}

// writeOutput writes data to path atomically, creating parent directories.
func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("%w: creating output directory: %w", ErrWriteOutput, err)
	}
	if err := fileutil.WriteFileAtomic(path, data, filePermissions); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	return nil
}

// resolveInputPath determines the input path from args or config.
func resolveInputPath(args []string, cfg *config.Config) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.Input.DefaultDir != "" {
		return cfg.Input.DefaultDir, nil
	}
	return "", ErrNoInput
}

// resolveOutputDir determines the output directory from flag or config.
func resolveOutputDir(flagOutput string, cfg *config.Config) string {
	if flagOutput != "" {
		return flagOutput
	}
	return cfg.Output.DefaultDir
}
