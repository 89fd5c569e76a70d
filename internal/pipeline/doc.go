// Package pipeline implements the Markdown-to-preview rendering stages.
//
// The stages run in order:
//   - Markdown preprocessing (line normalization, highlight and underline syntax)
//   - Markdown to HTML conversion via Goldmark, with inline-styled code
//     highlighting, TeX math rendered to MathML and inline SVG diagrams
//   - Theme styling: every element gets the inline styles it needs to look
//     right once pasted, since stylesheets do not survive
//   - Local image inlining and table of contents generation
//
// The output is a DOM subtree (golang.org/x/net/html). Turning that preview
// into paste-safe markup is the job of the root md2wechat package.
package pipeline
