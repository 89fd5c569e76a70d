package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	md2wechat "github.com/alnah/go-md2wechat"
	"github.com/go-rod/rod/lib/launcher"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status    string        `json:"status"` // "ready", "warnings", "errors"
	Chrome    chromeInfo    `json:"chrome"`
	Clipboard clipboardInfo `json:"clipboard"`
	Env       envInfo       `json:"environment"`
	System    systemInfo    `json:"system"`
	Warnings  []string      `json:"warnings,omitempty"`
	Errors    []string      `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// clipboardInfo holds rich clipboard tool detection results.
type clipboardInfo struct {
	Tool    string `json:"tool,omitempty"` // first tool found, in preference order
	Path    string `json:"path,omitempty"`
	Display bool   `json:"display"` // always true off Linux
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// doctorChecks holds the probes doctor runs, injectable for tests.
type doctorChecks struct {
	getenv      func(string) string
	goos        string
	lookPath    func(string) (string, error)
	chromePath  func() (string, bool)
	chromeProbe func(path string) (string, error)
	tempDir     func() string
}

func defaultDoctorChecks(env *Environment) doctorChecks {
	return doctorChecks{
		getenv:     env.Getenv,
		goos:       env.GOOS,
		lookPath:   exec.LookPath,
		chromePath: launcher.LookPath,
		chromeProbe: func(path string) (string, error) {
			out, err := exec.Command(path, "--version").Output() // #nosec G204 -- detected browser binary
			return strings.TrimSpace(string(out)), err
		},
		tempDir: os.TempDir,
	}
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	jsonOutput := false
	for _, arg := range args {
		if arg == "--json" {
			jsonOutput = true
		}
	}

	result := runDoctor(defaultDoctorChecks(env))

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(c doctorChecks) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         c.goos,
			Arch:       runtime.GOARCH,
			NoSandbox:  c.getenv("ROD_NO_SANDBOX"),
			BrowserBin: c.getenv("ROD_BROWSER_BIN"),
		},
	}

	checkChrome(result, c)
	checkClipboard(result, c)
	checkEnvironment(result, c)
	checkSystem(result, c)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkChrome detects the browser used for formula capture. A missing
// browser only breaks documents that contain formulas, so it is an error
// for readiness but diagrams and text still export.
func checkChrome(result *doctorResult, c doctorChecks) {
	chromePath := result.Env.BrowserBin

	if chromePath == "" {
		var found bool
		chromePath, found = c.chromePath()
		if !found {
			result.Errors = append(result.Errors,
				"Chrome/Chromium not found; formulas cannot be captured. Install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	if version, err := c.chromeProbe(chromePath); err == nil {
		result.Chrome.Version = version
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// checkClipboard looks for the tool the rich clipboard shells out to.
// Without one, copy falls back to plain text.
func checkClipboard(result *doctorResult, c doctorChecks) {
	result.Clipboard.Display = true
	if c.goos != "darwin" && c.goos != "windows" {
		result.Clipboard.Display = c.getenv("WAYLAND_DISPLAY") != "" || c.getenv("DISPLAY") != ""
	}

	for _, tool := range md2wechat.ClipboardTools(c.goos) {
		if path, err := c.lookPath(tool); err == nil {
			result.Clipboard.Tool = tool
			result.Clipboard.Path = path
			break
		}
	}

	if result.Clipboard.Tool == "" {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("No rich clipboard tool found (%s); copy will paste plain text. Use --html-out instead",
				strings.Join(md2wechat.ClipboardTools(c.goos), ", ")))
	}
	if !result.Clipboard.Display {
		result.Warnings = append(result.Warnings,
			"No display session (DISPLAY/WAYLAND_DISPLAY unset); the clipboard is unavailable")
	}
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, c doctorChecks) {
	result.Env.Container, result.Env.ContainerHint = isContainer(c.getenv)

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if c.getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(getenv func(string) string) (bool, string) {
	if getenv("MD2WECHAT_CONTAINER") == "1" {
		return true, "MD2WECHAT_CONTAINER=1"
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v := getenv("container"); v != "" {
		return true, "container=" + v
	}
	if getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory used for the capture page.
func checkSystem(result *doctorResult, c doctorChecks) {
	tmpDir := c.tempDir()
	testFile := filepath.Join(tmpDir, "md2wechat-doctor-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	} else {
		_ = os.Remove(testFile)
		result.System.TempWritable = true
	}
}

// Check levels printed in front of each doctor line.
const (
	levelOK    = "[OK]"
	levelWarn  = "[WARN]"
	levelError = "[ERROR]"
)

var statusLines = map[string]string{
	"ready":    "Status: Ready to export",
	"warnings": "Status: Ready with warnings",
	"errors":   "Status: Not ready (see errors above)",
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	line := func(level, format string, args ...any) {
		fmt.Fprintf(w, "  %s %s\n", level, fmt.Sprintf(format, args...))
	}
	section := func(title string, body func()) {
		fmt.Fprintln(w, title)
		body()
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "md2wechat doctor")
	fmt.Fprintln(w)

	section("Chrome/Chromium (formula capture)", func() {
		if !r.Chrome.Found {
			line(levelError, "Not found")
			return
		}
		line(levelOK, "Found at %s", r.Chrome.Path)
		if r.Chrome.Version != "" {
			line(levelOK, "Version: %s", r.Chrome.Version)
		}
		sandbox := "enabled"
		if !r.Chrome.Sandbox {
			sandbox = "disabled (ROD_NO_SANDBOX=1)"
		}
		line(levelOK, "Sandbox: %s", sandbox)
	})

	section("Clipboard", func() {
		if r.Clipboard.Tool != "" {
			line(levelOK, "%s at %s", r.Clipboard.Tool, r.Clipboard.Path)
		} else {
			line(levelWarn, "No rich clipboard tool (plain text fallback)")
		}
		if !r.Clipboard.Display {
			line(levelWarn, "No display session")
		}
	})

	section("Environment", func() {
		line(levelOK, "Platform: %s/%s", r.Env.OS, r.Env.Arch)
		if r.Env.Container {
			line(levelOK, "Container: detected (%s)", r.Env.ContainerHint)
		}
		if r.Env.CI {
			line(levelOK, "CI: detected")
		}
	})

	section("System", func() {
		if r.System.TempWritable {
			line(levelOK, "Temp directory: writable")
		} else {
			line(levelError, "Temp directory: not writable")
		}
	})

	if len(r.Warnings) > 0 {
		section("Warnings:", func() {
			for _, warn := range r.Warnings {
				line(levelWarn, "%s", warn)
			}
		})
	}
	if len(r.Errors) > 0 {
		section("Errors:", func() {
			for _, e := range r.Errors {
				line(levelError, "%s", e)
			}
		})
	}

	if s, ok := statusLines[r.Status]; ok {
		fmt.Fprintln(w, s)
	}
}
