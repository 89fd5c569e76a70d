package pipeline

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMaxImageBytes caps a single inlined image.
const DefaultMaxImageBytes = 5 << 20

// Sentinel errors for local image inlining.
var (
	ErrImageTooLarge = errors.New("image exceeds size limit")
	ErrNotAnImage    = errors.New("file is not an image")
	ErrImageOutside  = errors.New("image path escapes source directory")
)

// ImageIssue reports a local image that was left untouched.
type ImageIssue struct {
	Src string
	Err error
}

func (i ImageIssue) Error() string { return fmt.Sprintf("%s: %v", i.Src, i.Err) }

// InlineLocalImages replaces relative img[src] paths under root with data
// URIs read from sourceDir. Remote URLs, data URIs, anchors and absolute
// paths are left alone, as is any path resolving outside sourceDir.
// It returns how many images were inlined plus one issue per image that
// could not be; a failing image never aborts the walk.
func InlineLocalImages(root *html.Node, sourceDir string, maxBytes int64) (int, []ImageIssue) {
	if root == nil || sourceDir == "" {
		return 0, nil
	}
	absSourceDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return 0, []ImageIssue{{Src: sourceDir, Err: err}}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}

	var (
		inlined int
		issues  []ImageIssue
	)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			for i, a := range n.Attr {
				if a.Key != "src" || !isRelativePath(a.Val) {
					continue
				}
				uri, err := loadImageDataURI(absSourceDir, a.Val, maxBytes)
				if err != nil {
					issues = append(issues, ImageIssue{Src: a.Val, Err: err})
					continue
				}
				n.Attr[i].Val = uri
				inlined++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return inlined, issues
}

func loadImageDataURI(sourceDir, src string, maxBytes int64) (string, error) {
	rel := src
	if i := strings.IndexAny(rel, "?#"); i >= 0 {
		rel = rel[:i]
	}
	if unescaped, err := url.PathUnescape(rel); err == nil {
		rel = unescaped
	}

	absPath := filepath.Join(sourceDir, filepath.FromSlash(rel))
	if !isPathUnderDir(absPath, sourceDir) {
		return "", ErrImageOutside
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", ErrNotAnImage
	}
	if info.Size() > maxBytes {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrImageTooLarge, info.Size(), maxBytes)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotAnImage, mtype.String())
	}

	// mimetype appends parameters such as "; charset=utf-8" for SVG.
	mediaType, _, _ := strings.Cut(mtype.String(), ";")
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// isRelativePath returns true if the path should be resolved locally.
func isRelativePath(path string) bool {
	if path == "" {
		return false
	}

	// Skip URLs (http, https, file, data, protocol-relative)
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "file://") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(path, "//") {
		return false
	}

	if strings.HasPrefix(path, "#") {
		return false
	}

	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return false
	}

	return true
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)

	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}

	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}
