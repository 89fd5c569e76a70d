package md2wechat

import (
	"errors"

	"github.com/alnah/go-md2wechat/internal/pipeline"
)

// Sentinel errors for library operations.
var (
	ErrEmptyMarkdown  = errors.New("markdown content cannot be empty")
	ErrHTMLConversion = pipeline.ErrHTMLConversion
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrCapture        = errors.New("element capture failed")

	// Export errors.
	ErrExportInProgress     = errors.New("an export is already running")
	ErrClipboard            = errors.New("clipboard write failed")
	ErrClipboardUnavailable = errors.New("no clipboard tool available")

	// Input validation errors.
	ErrUnknownTheme    = pipeline.ErrUnknownTheme
	ErrInvalidTOCDepth = errors.New("invalid TOC depth")
	ErrInvalidScale    = errors.New("capture scale must be between 1 and 4")
)
