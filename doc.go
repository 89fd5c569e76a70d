// Package md2wechat renders Markdown into a styled preview and exports it as
// rich HTML that survives the paste sanitizer of the WeChat Official Account
// editor.
//
// # Quick Start
//
// Create a converter, render markdown, export, and close when done:
//
//	conv, err := md2wechat.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	doc, err := conv.Render(ctx, md2wechat.Input{
//	    Markdown: "# Hello\n\nEuler: $e^{i\\pi} + 1 = 0$",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := conv.Export(ctx, doc, nil)
//
// Export writes res.HTML to the system clipboard; ExportHTML returns the same
// HTML without touching the clipboard.
//
// # Export Pipeline
//
// The editor drops stylesheets, SVG, MathML and most modern CSS, so an export:
//
//  1. Replaces diagrams (inline SVG) with PNG images rasterized in-process
//  2. Replaces display formulas, then inline formulas, with PNG screenshots
//     taken in a headless Chrome capture page (go-rod)
//  3. Drops the table of contents and rewrites code blocks into the markup
//     the editor keeps
//  4. Serializes the preview and rewrites its inline styles
//  5. Writes rich HTML to the clipboard, falling back to plain text
//
// Every substitution is recorded and undone before Export returns. By
// default the export works on a copy of the preview; WithLiveMutation
// substitutes in the live tree instead.
//
// # Parallel Processing
//
// For batch exports, use ConverterPool to manage multiple browser instances:
//
//	pool := md2wechat.NewConverterPool(md2wechat.ResolvePoolSize(0))
//	defer pool.Close()
//
//	conv, err := pool.Acquire()
//	if err != nil {
//	    return err
//	}
//	defer pool.Release(conv)
package md2wechat
