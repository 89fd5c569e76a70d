package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alnah/go-md2wechat/internal/yamlutil"
)

// ErrFrontMatter indicates a malformed front matter block.
var ErrFrontMatter = errors.New("invalid front matter")

// FrontMatter holds the keys read from a leading YAML block. Other keys are
// ignored.
type FrontMatter struct {
	Title string `yaml:"title"`
	Theme string `yaml:"theme"`
}

// SplitFrontMatter separates a leading YAML block delimited by "---" lines
// from the Markdown body. Without a closed block the content is returned
// unchanged.
func SplitFrontMatter(content string) (FrontMatter, string, error) {
	var fm FrontMatter

	first, rest, ok := cutLine(content)
	if !ok || strings.TrimRight(first, " \t") != "---" {
		return fm, content, nil
	}

	var block strings.Builder
	for rest != "" {
		var line string
		line, rest, _ = cutLine(rest)
		switch strings.TrimRight(line, " \t") {
		case "---", "...":
			if block.Len() > 0 {
				if err := yamlutil.Unmarshal([]byte(block.String()), &fm); err != nil {
					return FrontMatter{}, rest, fmt.Errorf("%w: %v", ErrFrontMatter, err)
				}
			}
			return fm, rest, nil
		}
		block.WriteString(line)
		block.WriteByte('\n')
	}
	return fm, content, nil
}

// cutLine splits off the first line, dropping its terminator. ok is false
// when s has no line terminator.
func cutLine(s string) (line, rest string, ok bool) {
	line, rest, ok = strings.Cut(s, "\n")
	return strings.TrimSuffix(line, "\r"), rest, ok
}
