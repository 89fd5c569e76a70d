package pipeline

import (
	"context"
	"regexp"
	"strings"
)

// Inline placeholders use Unicode Private Use Area characters.
// They pass through Goldmark unchanged (no WithUnsafe needed) and are turned
// into markup by ConvertPlaceholders after HTML generation.
const (
	MarkStartPlaceholder      = "\uE000"
	MarkEndPlaceholder        = "\uE001"
	UnderlineStartPlaceholder = "\uE002"
	UnderlineEndPlaceholder   = "\uE003"
)

// UnderlineAttr marks spans produced from <u>...</u> so the styler can find them.
const UnderlineAttr = "data-underline"

var (
	crlfOrCR           = regexp.MustCompile(`\r\n?`)
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
	highlightPattern   = regexp.MustCompile(`==(.*?)==`)
	underlinePattern   = regexp.MustCompile(`(?i)<u>(.*?)</u>`)
)

// MarkdownPreprocessor defines the contract for markdown preprocessing.
type MarkdownPreprocessor interface {
	PreprocessMarkdown(ctx context.Context, content string) string
}

// CommonMarkPreprocessor applies transformations before CommonMark conversion.
type CommonMarkPreprocessor struct{}

// PreprocessMarkdown applies all transformations to prepare Markdown for conversion.
func (p *CommonMarkPreprocessor) PreprocessMarkdown(ctx context.Context, content string) string {
	if ctx.Err() != nil {
		return content
	}

	content = normalizeLineEndings(content)
	content = convertHighlights(content)
	content = convertUnderlines(content)
	content = compressBlankLines(content)
	return content
}

func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// compressBlankLines limits consecutive blank lines to 2 maximum.
func compressBlankLines(content string) string {
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

// convertHighlights transforms ==text== to placeholder markers.
func convertHighlights(content string) string {
	return highlightPattern.ReplaceAllString(content, MarkStartPlaceholder+"$1"+MarkEndPlaceholder)
}

// convertUnderlines transforms raw <u>text</u> to placeholder markers, since
// raw HTML is escaped by the renderer.
func convertUnderlines(content string) string {
	return underlinePattern.ReplaceAllString(content, UnderlineStartPlaceholder+"$1"+UnderlineEndPlaceholder)
}

// ConvertPlaceholders turns placeholder markers into <mark> and underline
// spans. Called after Goldmark conversion.
func ConvertPlaceholders(content string) string {
	return strings.NewReplacer(
		MarkStartPlaceholder, "<mark>",
		MarkEndPlaceholder, "</mark>",
		UnderlineStartPlaceholder, `<span `+UnderlineAttr+`="true">`,
		UnderlineEndPlaceholder, "</span>",
	).Replace(content)
}
