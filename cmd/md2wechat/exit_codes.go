package main

import (
	"errors"
	"os"

	md2wechat "github.com/alnah/go-md2wechat"
	"github.com/alnah/go-md2wechat/internal/config"
	"github.com/alnah/go-md2wechat/internal/pipeline"
)

// Exit codes for the md2wechat CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess   = 0 // Successful run
	ExitGeneral   = 1 // General/unexpected error
	ExitUsage     = 2 // Invalid flags, config, or validation
	ExitIO        = 3 // File not found, permission denied
	ExitBrowser   = 4 // Capture browser errors
	ExitClipboard = 5 // Neither rich nor plain clipboard write succeeded
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, md2wechat.ErrClipboard) ||
		errors.Is(err, md2wechat.ErrClipboardUnavailable) {
		return ExitClipboard
	}

	if errors.Is(err, md2wechat.ErrBrowserConnect) ||
		errors.Is(err, md2wechat.ErrPageCreate) ||
		errors.Is(err, md2wechat.ErrPageLoad) ||
		errors.Is(err, md2wechat.ErrCapture) {
		return ExitBrowser
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrReadCSS) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, md2wechat.ErrEmptyMarkdown) ||
		errors.Is(err, md2wechat.ErrUnknownTheme) ||
		errors.Is(err, md2wechat.ErrInvalidTOCDepth) ||
		errors.Is(err, md2wechat.ErrInvalidScale) ||
		errors.Is(err, pipeline.ErrFrontMatter) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	return ExitGeneral
}
