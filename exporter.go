package md2wechat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alnah/go-md2wechat/internal/pipeline"
	"github.com/alnah/go-md2wechat/internal/wechat"
	"github.com/go-shiori/dom"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Export converts doc into paste-safe rich HTML and writes it to the
// clipboard, reporting the outcome through status.
//
// Diagrams, then display formulas, then inline formulas are replaced by PNG
// images in document order; the table of contents is dropped and code blocks
// are rewritten for the target editor. Every substitution is undone before
// Export returns, whatever the outcome. A node that fails to rasterize stays
// in place and the export continues.
//
// A nil document (or one without a preview root) is a silent no-op. Calling
// Export while another export on the same Converter is running returns
// ErrExportInProgress without touching the document or status.
func (c *Converter) Export(ctx context.Context, doc *Document, status StatusFunc) (*ExportResult, error) {
	if status == nil {
		status = func(ExportStatus) {}
	}
	return c.export(ctx, doc, status, true)
}

// ExportHTML runs the same transformation as Export without touching the
// clipboard. The result's Status is StatusSuccess unless an error occurred.
func (c *Converter) ExportHTML(ctx context.Context, doc *Document) (*ExportResult, error) {
	return c.export(ctx, doc, nil, false)
}

func (c *Converter) export(ctx context.Context, doc *Document, status StatusFunc, toClipboard bool) (res *ExportResult, err error) {
	if doc == nil {
		return nil, nil
	}
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrExportInProgress
	}
	defer c.busy.Store(false)

	exportID := uuid.NewString()
	log := c.logger.With(zap.String("export_id", exportID))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("internal error: %v", r)
		}
		if err != nil && status != nil {
			c.report(status, StatusError)
		}
	}()

	doc.mu.Lock()
	root := previewRoot(doc.root)
	if root == nil {
		doc.mu.Unlock()
		return nil, nil
	}

	// Plain text always comes from the untouched live tree.
	text := wechat.PlainText(root)

	work := root
	if c.cfg.liveMutation {
		defer doc.mu.Unlock()
	} else {
		work = dom.Clone(root, true)
		doc.mu.Unlock()
	}

	var ledger wechat.Ledger
	defer func() {
		restored := ledger.RestoreAll()
		log.Debug("substitutions restored", zap.Int("count", restored))
	}()

	images := c.substituteImages(ctx, work, &ledger, log)

	for _, n := range wechat.TOCNodes(work) {
		ledger.Remove(n)
	}
	for _, section := range wechat.CodeBlocks(work) {
		pre, err := wechat.MdniceNode(section)
		if err != nil {
			log.Warn("code block left as is", zap.Error(err))
			continue
		}
		ledger.Substitute(section, pre)
	}

	body, err := pipeline.RenderChildren(work)
	if err != nil {
		return nil, fmt.Errorf("serializing export: %w", err)
	}

	res = &ExportResult{
		HTML:   wechat.Rewrite(body),
		Text:   text,
		Images: images,
		Status: StatusSuccess,
	}

	if toClipboard {
		err = c.writeClipboard(ctx, res)
		c.report(status, res.Status)
		// The deferred handler must not report twice.
		status = nil
	}

	log.Info("export finished",
		zap.Int("images", images),
		zap.Int("substitutions", ledger.Len()),
		zap.Bool("fallback", res.Fallback),
		zap.Stringer("status", res.Status),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, err
}

// substituteImages replaces diagrams, display formulas and inline formulas,
// in that order, and returns how many were replaced.
func (c *Converter) substituteImages(ctx context.Context, root *html.Node, ledger *wechat.Ledger, log *zap.Logger) int {
	images := 0

	for _, d := range wechat.Diagrams(root) {
		r := c.vectors.RasterizeSVG(ctx, d.SVG)
		if !r.OK() {
			log.Warn("diagram kept as vector markup")
			continue
		}
		// The container keeps its layout styling around the image.
		if ledger.Substitute(d.SVG, newImage(r, diagramStyle(r))) {
			images++
		}
	}

	for _, f := range wechat.BlockFormulas(root) {
		r := c.formulas.RasterizeElement(ctx, f, true)
		if !r.OK() {
			log.Warn("display formula kept as markup")
			continue
		}
		if ledger.Substitute(f, newImage(r, blockFormulaStyle(r))) {
			images++
		}
	}

	// Queried after display formulas are gone, so nested nodes are skipped.
	for _, f := range wechat.InlineFormulas(root) {
		r := c.formulas.RasterizeElement(ctx, f, false)
		if !r.OK() {
			log.Warn("inline formula kept as markup")
			continue
		}
		if ledger.Substitute(f, newImage(r, inlineFormulaStyle(r))) {
			images++
		}
	}

	return images
}

// writeClipboard tries rich HTML first, then plain text. res.Status and
// res.Fallback reflect what reached the clipboard.
func (c *Converter) writeClipboard(ctx context.Context, res *ExportResult) error {
	richErr := c.clipboard.WriteRich(ctx, res.HTML, res.Text)
	if richErr == nil {
		res.Status = StatusSuccess
		return nil
	}
	c.logger.Warn("rich clipboard write failed, falling back to plain text", zap.Error(richErr))

	if textErr := c.clipboard.WriteText(res.Text); textErr != nil {
		res.Status = StatusError
		return fmt.Errorf("%w: %w", ErrClipboard, errors.Join(richErr, textErr))
	}
	res.Status = StatusSuccess
	res.Fallback = true
	return nil
}

// report sets status now and schedules the reset to idle.
func (c *Converter) report(status StatusFunc, s ExportStatus) {
	status(s)
	if c.cfg.resetDelay > 0 {
		time.AfterFunc(c.cfg.resetDelay, func() { status(StatusIdle) })
	}
}

// previewRoot returns the preview root under n, or n itself when it has none.
func previewRoot(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	if root := wechat.FindPreviewRoot(n); root != nil {
		return root
	}
	return n
}

func newImage(r RasterResult, style string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Img,
		Data:     "img",
		Attr: []html.Attribute{
			{Key: "src", Val: r.ImageData},
			{Key: "style", Val: style},
		},
	}
}

func diagramStyle(r RasterResult) string {
	return sizeStyle(r) + " max-width: 100%; display: block; margin: 0 auto;"
}

func blockFormulaStyle(r RasterResult) string {
	return sizeStyle(r) + " max-width: 100%; display: block; margin: 16px auto;"
}

func inlineFormulaStyle(r RasterResult) string {
	return "display: inline; vertical-align: middle; " + sizeStyle(r)
}

// sizeStyle pins a replacement image to the logical size of the node it
// replaces, whatever the device scale of the bitmap.
func sizeStyle(r RasterResult) string {
	return "width: " + formatPixels(r.Width) + "; height: " + formatPixels(r.Height) + ";"
}

func formatPixels(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
