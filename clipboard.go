package md2wechat

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
)

// richCommand is an external program that places HTML, and where the tool
// allows it a plain-text alternative, on the clipboard.
type richCommand struct {
	Name  string
	Args  []string
	Stdin string
}

// systemClipboard writes HTML through the platform clipboard tool and plain
// text through atotto/clipboard.
type systemClipboard struct {
	goos     string
	getenv   func(string) string
	lookPath func(string) (string, error)
	run      func(ctx context.Context, cmd richCommand) error
	text     func(string) error
}

func newSystemClipboard() *systemClipboard {
	return &systemClipboard{
		goos:     runtime.GOOS,
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
		run:      runCommand,
		text:     writeAllText,
	}
}

// WriteRich places html on the clipboard as rich text, with text as the
// plain alternative on darwin and windows. wl-copy and xclip hold a single
// target per call, so Linux gets the HTML flavor only.
func (c *systemClipboard) WriteRich(ctx context.Context, html, text string) error {
	cmd, err := c.richCommand(html, text)
	if err != nil {
		return err
	}
	if err := c.run(ctx, cmd); err != nil {
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return nil
}

// WriteText places plain text on the clipboard.
func (c *systemClipboard) WriteText(text string) error {
	return c.text(text)
}

func writeAllText(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	return clipboard.WriteAll(text)
}

// richCommand picks the clipboard tool for the current platform.
func (c *systemClipboard) richCommand(html, text string) (richCommand, error) {
	switch c.goos {
	case "darwin":
		// AppleScript takes the raw bytes as hex literals, so nothing needs
		// quoting.
		script := "set the clipboard to {«class HTML»:«data HTML" + hexLiteral(html) +
			"», «class utf8»:«data utf8" + hexLiteral(text) + "»}"
		return richCommand{Name: "osascript", Args: []string{"-e", script}}, nil

	case "windows":
		return richCommand{
			Name:  "powershell",
			Args:  []string{"-NoProfile", "-NonInteractive", "-STA", "-Command", windowsClipboardScript},
			Stdin: cfHTML(html) + "\x00" + text,
		}, nil

	default:
		if c.getenv("WAYLAND_DISPLAY") != "" {
			if _, err := c.lookPath("wl-copy"); err == nil {
				return richCommand{Name: "wl-copy", Args: []string{"--type", "text/html"}, Stdin: html}, nil
			}
		}
		if _, err := c.lookPath("xclip"); err == nil {
			return richCommand{Name: "xclip", Args: []string{"-selection", "clipboard", "-t", "text/html", "-i"}, Stdin: html}, nil
		}
		return richCommand{}, fmt.Errorf("%w: install wl-clipboard or xclip", ErrClipboardUnavailable)
	}
}

// windowsClipboardScript reads "<CF_HTML>\x00<text>" from stdin and sets
// both formats on one data object.
const windowsClipboardScript = "Add-Type -AssemblyName System.Windows.Forms; " +
	"[Console]::InputEncoding = [Text.Encoding]::UTF8; " +
	"$in = [Console]::In.ReadToEnd(); " +
	"$i = $in.IndexOf([char]0); " +
	"$d = New-Object System.Windows.Forms.DataObject; " +
	"$d.SetData([System.Windows.Forms.DataFormats]::Html, $in.Substring(0, $i)); " +
	"$d.SetData([System.Windows.Forms.DataFormats]::UnicodeText, $in.Substring($i + 1)); " +
	"[System.Windows.Forms.Clipboard]::SetDataObject($d, $true)"

func hexLiteral(s string) string {
	return strings.ToUpper(hex.EncodeToString([]byte(s)))
}

// cfHTML wraps fragment in the Windows clipboard HTML format. Offsets count
// UTF-8 bytes and are zero-padded so the header length is fixed.
func cfHTML(fragment string) string {
	const (
		header = "Version:0.9\r\nStartHTML:%010d\r\nEndHTML:%010d\r\nStartFragment:%010d\r\nEndFragment:%010d\r\n"
		prefix = "<html><body>\r\n<!--StartFragment-->"
		suffix = "<!--EndFragment-->\r\n</body></html>"
	)
	headerLen := len(fmt.Sprintf(header, 0, 0, 0, 0))
	startFragment := headerLen + len(prefix)
	endFragment := startFragment + len(fragment)
	endHTML := endFragment + len(suffix)
	return fmt.Sprintf(header, headerLen, endHTML, startFragment, endFragment) + prefix + fragment + suffix
}

func runCommand(ctx context.Context, rc richCommand) error {
	cmd := exec.CommandContext(ctx, rc.Name, rc.Args...) // #nosec G204 -- fixed tool names
	if rc.Stdin != "" {
		cmd.Stdin = strings.NewReader(rc.Stdin)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// ClipboardTools lists the external tools the rich clipboard may use on
// goos, in order of preference.
func ClipboardTools(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"osascript"}
	case "windows":
		return []string{"powershell"}
	default:
		return []string{"wl-copy", "xclip"}
	}
}
