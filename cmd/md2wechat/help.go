package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2wechat <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  copy       Export a markdown file to the clipboard for the WeChat editor")
	fmt.Fprintln(w, "  export     Export markdown files to paste-ready HTML files")
	fmt.Fprintln(w, "  preview    Render the styled preview page")
	fmt.Fprintln(w, "  serve      Run the HTTP render/export API")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  doctor     Check Chrome and clipboard setup")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "'md2wechat <file.md>' is short for 'md2wechat copy <file.md>'.")
	fmt.Fprintln(w, "Run 'md2wechat help <command>' for details on a specific command.")
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs")
}

func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "      --theme <name>        Theme: default, dark")
	fmt.Fprintln(w, "      --title <s>           Document title (default: front matter)")
	fmt.Fprintln(w, "      --css <path>          Extra stylesheet for the preview page")
	fmt.Fprintln(w, "      --toc                 Insert a table of contents (preview only)")
	fmt.Fprintln(w, "      --toc-title <s>       TOC heading text")
	fmt.Fprintln(w, "      --toc-min-depth <n>   Min heading depth (1-6)")
	fmt.Fprintln(w, "      --toc-max-depth <n>   Max heading depth (1-6)")
	fmt.Fprintln(w)
}

func printCaptureUsage(w io.Writer) {
	fmt.Fprintln(w, "Capture:")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-document timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --settle-delay <d>    Wait before each formula capture (e.g., 50ms)")
	fmt.Fprintln(w, "      --scale <f>           Device scale factor (1-4, default: 2)")
	fmt.Fprintln(w, "      --live                Substitute in the live tree, then restore")
	fmt.Fprintln(w)
}

// printCopyUsage prints usage for the copy command.
func printCopyUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2wechat copy <file.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render a markdown file, rasterize diagrams and formulas, and place")
	fmt.Fprintln(w, "HTML that survives the WeChat editor on the clipboard.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "      --html-out <path>     Write the HTML to a file instead")
	fmt.Fprintln(w)
	printRenderUsage(w)
	printCaptureUsage(w)
	printCommonUsage(w)
}

// printExportUsage prints usage for the export command.
func printExportUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2wechat export <input> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export markdown files to paste-ready HTML files (<name>.wechat.html).")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    Markdown file or directory (optional if config has input.defaultDir)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file or directory")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w)
	printRenderUsage(w)
	printCaptureUsage(w)
	printCommonUsage(w)
}

// printPreviewUsage prints usage for the preview command.
func printPreviewUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2wechat preview <file.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render the styled preview page, before any export substitution.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output HTML file (default: stdout)")
	fmt.Fprintln(w)
	printRenderUsage(w)
	printCommonUsage(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2wechat serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run the HTTP API:")
	fmt.Fprintln(w, "  GET  /health         Liveness check")
	fmt.Fprintln(w, "  POST /api/render     Markdown (JSON or text/markdown) to preview HTML")
	fmt.Fprintln(w, "  POST /api/export     Markdown to {html, text, images} JSON")
	fmt.Fprintln(w, "  GET  /preview        Preview of the --watch file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "  -a, --addr <host:port>    Listen address (default: 127.0.0.1:8080)")
	fmt.Fprintln(w, "      --watch <file.md>     Re-render the file when it changes")
	fmt.Fprintln(w)
	printRenderUsage(w)
	printCaptureUsage(w)
	printCommonUsage(w)
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2wechat config [--config <name>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the effective configuration (file, then MD2WECHAT_* variables) as YAML.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "copy":
		printCopyUsage(env.Stdout)
	case "export":
		printExportUsage(env.Stdout)
	case "preview":
		printPreviewUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "config":
		printConfigUsage(env.Stdout)
	case "doctor":
		fmt.Fprintln(env.Stdout, "Usage: md2wechat doctor [--json]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Check Chrome (formula capture) and clipboard tools.")
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: md2wechat version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: md2wechat help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
