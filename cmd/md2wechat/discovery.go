package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	md2wechat "github.com/alnah/go-md2wechat"
	"github.com/alnah/go-md2wechat/internal/fileutil"
)

// Sentinel errors for file discovery.
var (
	ErrInvalidExtension   = errors.New("file must have a markdown extension (.md, .markdown, .mdown, .mkd)")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// FileToExport pairs a Markdown source with the HTML file it exports to.
type FileToExport struct {
	InputPath  string
	OutputPath string
}

// discoverFiles lists the exports for inputPath. A file maps to a single
// output; a directory is walked recursively, skipping hidden directories,
// and its layout is mirrored under outputDir.
func discoverFiles(inputPath, outputDir, suffix string) ([]FileToExport, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if err := validateMarkdownExtension(inputPath); err != nil {
			return nil, err
		}
		return []FileToExport{{
			InputPath:  inputPath,
			OutputPath: resolveOutputPath(inputPath, outputDir, "", suffix),
		}}, nil
	}

	var files []FileToExport
	walkErr := filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return fmt.Errorf("scanning %s: %w", path, err)
		case d.IsDir() && path != inputPath && strings.HasPrefix(d.Name(), "."):
			return filepath.SkipDir
		case d.IsDir() || !fileutil.IsMarkdown(path):
			return nil
		}
		files = append(files, FileToExport{
			InputPath:  path,
			OutputPath: resolveOutputPath(path, outputDir, inputPath, suffix),
		})
		return nil
	})
	return files, walkErr
}

// resolveOutputPath names the HTML output for inputPath:
//   - no outputDir: beside the source, base name plus suffix
//   - outputDir ending in ".html": that file
//   - otherwise under outputDir, keeping the path relative to baseInputDir
func resolveOutputPath(inputPath, outputDir, baseInputDir, suffix string) string {
	name := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)) + suffix

	switch {
	case outputDir == "":
		return filepath.Join(filepath.Dir(inputPath), name)
	case strings.HasSuffix(outputDir, ".html"):
		return outputDir
	}

	relDir := "."
	if baseInputDir != "" {
		if rel, err := filepath.Rel(baseInputDir, inputPath); err == nil {
			relDir = filepath.Dir(rel)
		}
	}
	return filepath.Join(outputDir, relDir, name)
}

func validateMarkdownExtension(path string) error {
	if !fileutil.IsMarkdown(path) {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, filepath.Ext(path))
	}
	return nil
}

// validateWorkers accepts 0 (auto) up to the pool maximum.
func validateWorkers(n int) error {
	if n < 0 || n > md2wechat.MaxPoolSize {
		return fmt.Errorf("%w: %d (want 0 for auto, or 1-%d)", ErrInvalidWorkerCount, n, md2wechat.MaxPoolSize)
	}
	return nil
}
