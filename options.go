package md2wechat

import (
	"time"

	"go.uber.org/zap"
)

// Default converter settings.
const (
	defaultTimeout      = 30 * time.Second
	defaultSettleDelay  = 50 * time.Millisecond
	defaultCaptureScale = 2.0
	defaultResetDelay   = 2 * time.Second

	MinCaptureScale = 1.0
	MaxCaptureScale = 4.0
)

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	timeout       time.Duration
	settleDelay   time.Duration
	captureScale  float64
	liveMutation  bool
	resetDelay    time.Duration
	theme         string
	maxImageBytes int64
}

func defaultConfig() converterConfig {
	return converterConfig{
		timeout:      defaultTimeout,
		settleDelay:  defaultSettleDelay,
		captureScale: defaultCaptureScale,
		resetDelay:   defaultResetDelay,
	}
}

// WithTimeout sets the render and capture timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("md2wechat: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithLogger sets the logger. The default logger discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSettleDelay sets how long a mounted formula may lay out before capture.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Converter) {
		if d >= 0 {
			c.cfg.settleDelay = d
		}
	}
}

// WithCaptureScale sets the device scale factor of formula captures.
// Values outside [MinCaptureScale, MaxCaptureScale] make NewConverter fail.
func WithCaptureScale(s float64) Option {
	return func(c *Converter) {
		c.cfg.captureScale = s
	}
}

// WithLiveMutation makes exports substitute nodes in the live document and
// restore them afterwards, instead of working on a clone.
func WithLiveMutation(live bool) Option {
	return func(c *Converter) {
		c.cfg.liveMutation = live
	}
}

// WithResetDelay sets how long a final status stays before reverting to
// StatusIdle. Zero disables the reset.
func WithResetDelay(d time.Duration) Option {
	return func(c *Converter) {
		if d >= 0 {
			c.cfg.resetDelay = d
		}
	}
}

// WithTheme selects the default preview theme by name.
func WithTheme(name string) Option {
	return func(c *Converter) {
		c.cfg.theme = name
	}
}

// WithMaxImageBytes caps the size of a single inlined local image.
func WithMaxImageBytes(n int64) Option {
	return func(c *Converter) {
		c.cfg.maxImageBytes = n
	}
}

// WithClipboard replaces the system clipboard.
func WithClipboard(cb Clipboard) Option {
	return func(c *Converter) {
		c.clipboard = cb
	}
}

// WithFormulaRasterizer replaces the headless browser formula capture.
func WithFormulaRasterizer(r FormulaRasterizer) Option {
	return func(c *Converter) {
		c.formulas = r
	}
}

// WithVectorRasterizer replaces the built-in SVG rasterizer.
func WithVectorRasterizer(r VectorRasterizer) Option {
	return func(c *Converter) {
		c.vectors = r
	}
}
