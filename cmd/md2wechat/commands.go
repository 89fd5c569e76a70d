package main

import (
	"context"
	"fmt"

	md2wechat "github.com/alnah/go-md2wechat"
	"github.com/alnah/go-md2wechat/internal/config"
	"github.com/alnah/go-md2wechat/internal/yamlutil"
	"go.uber.org/zap"
)

// runCopy renders one file, exports it and writes the result to the
// clipboard, or to --html-out when set.
func runCopy(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseCopyFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("%w: copy expects exactly one markdown file", ErrUsage)
	}

	logger := newLogger(env.Stderr, flags.common.quiet, flags.common.verbose)
	defer func() { _ = logger.Sync() }()

	cfg, err := loadSettings(flags.common, env)
	if err != nil {
		return err
	}
	mergeRenderFlags(flags.render, cfg)
	mergeCaptureFlags(flags.capture, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	params, err := buildRenderParams(cfg, flags.render.title)
	if err != nil {
		return err
	}
	input, err := readInput(positional[0], params)
	if err != nil {
		return err
	}

	conv, err := md2wechat.NewConverter(converterOptions(cfg, logger, env)...)
	if err != nil {
		return err
	}
	defer func() { _ = conv.Close() }()

	if flags.htmlOut != "" {
		doc, err := conv.Render(ctx, input)
		if err != nil {
			return err
		}
		res, err := conv.ExportHTML(ctx, doc)
		if err != nil {
			return err
		}
		if res == nil {
			return fmt.Errorf("%s: nothing to export", positional[0])
		}
		if err := writeOutput(flags.htmlOut, []byte(res.HTML)); err != nil {
			return err
		}
		if !flags.common.quiet {
			fmt.Fprintf(env.Stdout, "Created %s (%d images)\n", flags.htmlOut, res.Images)
		}
		return nil
	}

	status := func(s md2wechat.ExportStatus) {
		logger.Debug("export status", zap.Stringer("status", s))
	}
	res, err := conv.Copy(ctx, input, status)
	if err != nil {
		return err
	}
	if res == nil || flags.common.quiet {
		return nil
	}
	if res.Fallback {
		fmt.Fprintln(env.Stderr, "warning: rich clipboard unavailable, copied plain text only")
		return nil
	}
	fmt.Fprintf(env.Stdout, "Copied to clipboard (%d images)\n", res.Images)
	return nil
}

// runExport exports one file or a directory tree to HTML files.
func runExport(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseExportFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	logger := newLogger(env.Stderr, flags.common.quiet, flags.common.verbose)
	defer func() { _ = logger.Sync() }()

	cfg, err := loadSettings(flags.common, env)
	if err != nil {
		return err
	}
	mergeRenderFlags(flags.render, cfg)
	mergeCaptureFlags(flags.capture, cfg)
	if flags.workers > 0 {
		cfg.Export.Workers = flags.workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := validateWorkers(cfg.Export.Workers); err != nil {
		return err
	}

	inputPath, err := resolveInputPath(positional, cfg)
	if err != nil {
		return err
	}
	outputDir := resolveOutputDir(flags.output, cfg)

	files, err := discoverFiles(inputPath, outputDir, cfg.Output.OutputSuffix())
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no markdown files found in %s", ErrNoInput, inputPath)
	}

	params, err := buildRenderParams(cfg, flags.render.title)
	if err != nil {
		return err
	}

	size := min(md2wechat.ResolvePoolSize(cfg.Export.Workers), len(files))
	logger.Debug("starting export", zap.Int("files", len(files)), zap.Int("workers", size))

	pool := md2wechat.NewConverterPool(size, converterOptions(cfg, logger, env)...)
	defer func() { _ = pool.Close() }()

	results := exportBatch(ctx, &poolAdapter{pool: pool}, files, params, logger)

	summary := printResults(results, flags.common.quiet, flags.common.verbose, env)
	if summary.Failed > 0 {
		return fmt.Errorf("%d export(s) failed: %w", summary.Failed, firstError(results))
	}
	return nil
}

// runPreview renders one file to a standalone preview page.
func runPreview(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parsePreviewFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("%w: preview expects exactly one markdown file", ErrUsage)
	}

	logger := newLogger(env.Stderr, flags.common.quiet, flags.common.verbose)
	defer func() { _ = logger.Sync() }()

	cfg, err := loadSettings(flags.common, env)
	if err != nil {
		return err
	}
	mergeRenderFlags(flags.render, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	params, err := buildRenderParams(cfg, flags.render.title)
	if err != nil {
		return err
	}
	input, err := readInput(positional[0], params)
	if err != nil {
		return err
	}

	conv, err := md2wechat.NewConverter(converterOptions(cfg, logger, env)...)
	if err != nil {
		return err
	}
	defer func() { _ = conv.Close() }()

	doc, err := conv.Render(ctx, input)
	if err != nil {
		return err
	}
	page, err := doc.HTML()
	if err != nil {
		return err
	}

	if flags.output == "" {
		_, err := fmt.Fprint(env.Stdout, page)
		return err
	}
	if err := writeOutput(flags.output, []byte(page)); err != nil {
		return err
	}
	if !flags.common.quiet {
		fmt.Fprintf(env.Stdout, "Created %s\n", flags.output)
	}
	return nil
}

// runConfig prints the effective configuration (file, then env) as YAML.
func runConfig(args []string, env *Environment) error {
	flags, positional, err := parseConfigFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) != 0 {
		return fmt.Errorf("%w: config takes no arguments", ErrUsage)
	}

	cfg, err := loadSettings(flags.common, env)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return writeConfigYAML(env, cfg)
}

func writeConfigYAML(env *Environment, cfg *config.Config) error {
	data, err := yamlutil.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = env.Stdout.Write(data)
	return err
}
