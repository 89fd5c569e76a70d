package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-md2wechat/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxThemeLength    = 50
	MaxPathLength     = 4096
	MaxSuffixLength   = 50
	MaxTOCTitleLength = 100
	MaxDurationLength = 20 // "1m30s"
)

// Capture scale bounds, mirrored by the converter.
const (
	MinScale = 1
	MaxScale = 4
)

// DefaultSuffix is appended to the Markdown base name by batch exports.
const DefaultSuffix = ".wechat.html"

// Config holds all configuration for rendering and exporting.
type Config struct {
	Theme   string        `yaml:"theme"`
	CSS     string        `yaml:"css"` // Extra stylesheet path for previews (empty = none)
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Capture CaptureConfig `yaml:"capture"`
	Export  ExportConfig  `yaml:"export"`
	TOC     TOCConfig     `yaml:"toc"`
}

// InputConfig defines input source options.
type InputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // Default input directory (empty = must specify)
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // Default output directory (empty = same as source)
	Suffix     string `yaml:"suffix"`     // default ".wechat.html"
}

// CaptureConfig tunes formula capture in the browser.
type CaptureConfig struct {
	Scale        float64 `yaml:"scale"`        // device scale factor, 1-4 (default: 2)
	SettleDelay  string  `yaml:"settleDelay"`  // Go duration (default: "50ms")
	Timeout      string  `yaml:"timeout"`      // Go duration per document (default: "30s")
	LiveMutation bool    `yaml:"liveMutation"` // substitute in the live tree, then restore
}

// ExportConfig defines clipboard and batch export options.
type ExportConfig struct {
	Workers    int    `yaml:"workers"`    // 0 = auto
	ResetDelay string `yaml:"resetDelay"` // status reset delay (default: "2s", "0s" disables)
}

// TOCConfig defines table of contents options.
type TOCConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Title    string `yaml:"title"`    // Empty = no title above TOC
	MinDepth int    `yaml:"minDepth"` // 1-6, default 1
	MaxDepth int    `yaml:"maxDepth"` // 1-6, default 3
}

// Validate checks field lengths and value ranges.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	if err := validateFieldLength("theme", c.Theme, MaxThemeLength); err != nil {
		return err
	}
	if err := validateFieldLength("css", c.CSS, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("input.defaultDir", c.Input.DefaultDir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("output.defaultDir", c.Output.DefaultDir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("output.suffix", c.Output.Suffix, MaxSuffixLength); err != nil {
		return err
	}
	if strings.ContainsAny(c.Output.Suffix, `/\`) {
		return fmt.Errorf("%w: output.suffix: must not contain path separators, got %q", ErrInvalidValue, c.Output.Suffix)
	}

	if c.Capture.Scale != 0 && (c.Capture.Scale < MinScale || c.Capture.Scale > MaxScale) {
		return fmt.Errorf("%w: capture.scale: must be between %d and %d, got %.2f", ErrInvalidValue, MinScale, MaxScale, c.Capture.Scale)
	}
	if _, err := parseDuration("capture.settleDelay", c.Capture.SettleDelay, false); err != nil {
		return err
	}
	if _, err := parseDuration("capture.timeout", c.Capture.Timeout, true); err != nil {
		return err
	}
	if _, err := parseDuration("export.resetDelay", c.Export.ResetDelay, false); err != nil {
		return err
	}
	if c.Export.Workers < 0 {
		return fmt.Errorf("%w: export.workers: must not be negative, got %d", ErrInvalidValue, c.Export.Workers)
	}

	if err := validateFieldLength("toc.title", c.TOC.Title, MaxTOCTitleLength); err != nil {
		return err
	}
	if c.TOC.MinDepth < 0 || c.TOC.MinDepth > 6 {
		return fmt.Errorf("%w: toc.minDepth: must be between 1 and 6, got %d", ErrInvalidValue, c.TOC.MinDepth)
	}
	if c.TOC.MaxDepth < 0 || c.TOC.MaxDepth > 6 {
		return fmt.Errorf("%w: toc.maxDepth: must be between 1 and 6, got %d", ErrInvalidValue, c.TOC.MaxDepth)
	}
	if c.TOC.MinDepth > 0 && c.TOC.MaxDepth > 0 && c.TOC.MinDepth > c.TOC.MaxDepth {
		return fmt.Errorf("%w: toc.minDepth (%d) exceeds toc.maxDepth (%d)", ErrInvalidValue, c.TOC.MinDepth, c.TOC.MaxDepth)
	}

	return nil
}

// SettleDelayDuration returns the parsed capture settle delay, or 0 when unset.
func (c CaptureConfig) SettleDelayDuration() time.Duration {
	d, _ := parseDuration("capture.settleDelay", c.SettleDelay, false)
	return d
}

// TimeoutDuration returns the parsed capture timeout, or 0 when unset.
func (c CaptureConfig) TimeoutDuration() time.Duration {
	d, _ := parseDuration("capture.timeout", c.Timeout, true)
	return d
}

// ResetDelayDuration returns the parsed reset delay and whether it was set.
// An explicit "0s" disables the reset, so unset and zero differ.
func (c ExportConfig) ResetDelayDuration() (time.Duration, bool) {
	if c.ResetDelay == "" {
		return 0, false
	}
	d, err := parseDuration("export.resetDelay", c.ResetDelay, false)
	if err != nil {
		return 0, false
	}
	return d, true
}

// OutputSuffix returns the configured suffix or DefaultSuffix.
func (c OutputConfig) OutputSuffix() string {
	if c.Suffix == "" {
		return DefaultSuffix
	}
	return c.Suffix
}

// parseDuration parses an optional Go duration. Empty means unset (0).
// Negative values are rejected, as is zero when positive is set.
func parseDuration(field, value string, positive bool) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	if err := validateFieldLength(field, value, MaxDurationLength); err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidValue, field, err)
	}
	if d < 0 || (positive && d == 0) {
		return 0, fmt.Errorf("%w: %s: must be positive, got %s", ErrInvalidValue, field, value)
	}
	return d, nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns a neutral configuration: default theme, no TOC,
// capture settings left to the converter defaults.
func DefaultConfig() *Config {
	return &Config{
		Input:  InputConfig{DefaultDir: ""},
		Output: OutputConfig{DefaultDir: "", Suffix: DefaultSuffix},
		TOC:    TOCConfig{Enabled: false},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrConfigParse, configPath, yamlutil.Describe(err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SearchPaths returns the locations resolveConfigPath tries for name, in
// order. Used for "not found" hints.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2) // 2 locations

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, "go-md2wechat", name+ext))
		}
	}
	return paths
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries the current directory, then ~/.config/go-md2wechat/, with .yaml
// before .yml in each.
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
