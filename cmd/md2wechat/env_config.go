package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-md2wechat/internal/config"
)

const envPrefix = "MD2WECHAT_"

// envConfig holds configuration from environment variables.
// Provides CI-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath  string        // MD2WECHAT_CONFIG: config file name or path
	Theme       string        // MD2WECHAT_THEME: preview theme
	Timeout     time.Duration // MD2WECHAT_TIMEOUT: per-document timeout
	SettleDelay time.Duration // MD2WECHAT_SETTLE_DELAY: wait before each capture
	Scale       float64       // MD2WECHAT_SCALE: capture device scale factor
	Workers     int           // MD2WECHAT_WORKERS: parallel batch workers
	InputDir    string        // MD2WECHAT_INPUT_DIR: default input directory
	OutputDir   string        // MD2WECHAT_OUTPUT_DIR: default output directory
}

// knownEnvVars lists valid MD2WECHAT_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"MD2WECHAT_CONFIG":       true,
	"MD2WECHAT_THEME":        true,
	"MD2WECHAT_TIMEOUT":      true,
	"MD2WECHAT_SETTLE_DELAY": true,
	"MD2WECHAT_SCALE":        true,
	"MD2WECHAT_WORKERS":      true,
	"MD2WECHAT_INPUT_DIR":    true,
	"MD2WECHAT_OUTPUT_DIR":   true,
	"MD2WECHAT_CONTAINER":    true, // read by doctor
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numeric and duration values are ignored, as if unset.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath: getenv("MD2WECHAT_CONFIG"),
		Theme:      getenv("MD2WECHAT_THEME"),
		InputDir:   getenv("MD2WECHAT_INPUT_DIR"),
		OutputDir:  getenv("MD2WECHAT_OUTPUT_DIR"),
	}

	if v := getenv("MD2WECHAT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if v := getenv("MD2WECHAT_SETTLE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SettleDelay = d
		}
	}
	if v := getenv("MD2WECHAT_SCALE"); v != "" {
		if s, err := strconv.ParseFloat(v, 64); err == nil && s > 0 {
			cfg.Scale = s
		}
	}
	if v := getenv("MD2WECHAT_WORKERS"); v != "" {
		if w, err := strconv.Atoi(v); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars prints a warning for each unrecognized MD2WECHAT_*
// variable, catching typos like MD2WECHAT_THEMES.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig overlays set environment values onto cfg.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied afterwards by mergeFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Theme != "" {
		cfg.Theme = env.Theme
	}
	if env.InputDir != "" {
		cfg.Input.DefaultDir = env.InputDir
	}
	if env.OutputDir != "" {
		cfg.Output.DefaultDir = env.OutputDir
	}
	if env.Timeout > 0 {
		cfg.Capture.Timeout = env.Timeout.String()
	}
	if env.SettleDelay > 0 {
		cfg.Capture.SettleDelay = env.SettleDelay.String()
	}
	if env.Scale > 0 {
		cfg.Capture.Scale = env.Scale
	}
	if env.Workers > 0 {
		cfg.Export.Workers = env.Workers
	}
}
