package md2wechat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alnah/go-md2wechat/internal/fileutil"
	"github.com/alnah/go-md2wechat/internal/pipeline"
	"github.com/alnah/go-md2wechat/internal/process"
	"github.com/alnah/go-md2wechat/internal/raster"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Capture page geometry. The viewport only needs to be wide enough for the
// widest formula; elements are captured by their own box.
const (
	captureViewportWidth  = 1600
	captureViewportHeight = 900

	// Trim padding in logical pixels, multiplied by the scale factor.
	blockCapturePadding  = 8
	inlineCapturePadding = 4
)

// capturePage hosts mounted formulas. It is never the preview itself.
const capturePage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>capture</title></head>
<body style="margin: 0; background: #fff;"></body>
</html>`

const mountScript = `(id, markup) => {
	const box = document.createElement('div');
	box.id = id;
	box.style.cssText = 'position:absolute;left:0;top:0;background:#fff;padding:20px;display:inline-block;white-space:nowrap;';
	box.innerHTML = markup;
	document.body.appendChild(box);
}`

const unmountScript = `(id) => {
	const box = document.getElementById(id);
	if (box) box.remove();
}`

// rodCapturer rasterizes rendered formulas by screenshotting them in a
// dedicated headless Chrome page. Captures are serialized on that page.
// Rod automatically downloads Chromium on first run if not found.
type rodCapturer struct {
	mu       sync.Mutex
	timeout  time.Duration
	settle   time.Duration
	scale    float64
	logger   *zap.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	cleanup  func()
}

func newRodCapturer(cfg converterConfig, logger *zap.Logger) *rodCapturer {
	return &rodCapturer{
		timeout: cfg.timeout,
		settle:  cfg.settleDelay,
		scale:   cfg.captureScale,
		logger:  logger,
	}
}

// ensurePage lazily launches the browser and opens the capture page.
func (c *rodCapturer) ensurePage() error {
	if c.page != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	bin := os.Getenv("ROD_BROWSER_BIN")
	if bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || bin != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	c.launcher, c.browser = l, browser

	page, err := c.openPage()
	if err != nil {
		_ = c.closeLocked()
		return err
	}

	c.page = page
	c.logger.Debug("capture page ready", zap.Int("browser_pid", l.PID()))
	return nil
}

func (c *rodCapturer) openPage() (*rod.Page, error) {
	path, cleanup, err := fileutil.WriteTempFile(capturePage, "html")
	if err != nil {
		return nil, err
	}
	c.cleanup = cleanup

	page, err := c.browser.Page(proto.TargetCreateTarget{URL: "file://" + path})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	if err := page.Timeout(c.timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             captureViewportWidth,
		Height:            captureViewportHeight,
		DeviceScaleFactor: c.scale,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: setting viewport: %v", ErrPageCreate, err)
	}
	return page, nil
}

// RasterizeElement mounts a copy of el in the capture page, waits for it to
// settle and screenshots it. Any failure yields the zero result.
func (c *rodCapturer) RasterizeElement(ctx context.Context, el *html.Node, isBlock bool) (result raster.Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("formula capture panicked", zap.Any("panic", r))
			result = raster.Result{}
		}
	}()

	if el == nil || ctx.Err() != nil {
		return raster.Result{}
	}

	// Serializing the element is the clone: the live node is never moved.
	markup, err := pipeline.RenderNode(el)
	if err != nil {
		c.logger.Warn("formula serialization failed", zap.Error(err))
		return raster.Result{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensurePage(); err != nil {
		c.logger.Warn("capture page unavailable", zap.Error(err))
		return raster.Result{}
	}

	data, err := c.capture(ctx, markup)
	if err != nil {
		c.logger.Warn("formula capture failed", zap.Bool("block", isBlock), zap.Error(err))
		return raster.Result{}
	}

	padding := inlineCapturePadding
	if isBlock {
		padding = blockCapturePadding
	}
	result, err = raster.FromCapture(data, c.scale, int(float64(padding)*c.scale))
	if err != nil {
		c.logger.Warn("formula trim failed", zap.Error(err))
		return raster.Result{}
	}
	return result
}

func (c *rodCapturer) capture(ctx context.Context, markup string) ([]byte, error) {
	page := c.page.Context(ctx).Timeout(c.timeout)
	defer page.CancelTimeout()

	id := "capture-" + uuid.NewString()
	if _, err := page.Eval(mountScript, id, markup); err != nil {
		return nil, fmt.Errorf("%w: mounting: %v", ErrCapture, err)
	}
	// Unmount on the bare page so removal survives a cancelled ctx.
	defer func() {
		if _, err := c.page.Timeout(c.timeout).Eval(unmountScript, id); err != nil {
			c.logger.Debug("capture container not removed", zap.Error(err))
		}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.settle):
	}

	box, err := page.Element("#" + id)
	if err != nil {
		return nil, fmt.Errorf("%w: locating container: %v", ErrCapture, err)
	}
	data, err := box.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return data, nil
}

// Close releases the capture page and the browser process.
func (c *rodCapturer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *rodCapturer) closeLocked() error {
	var errs []error
	if c.browser != nil {
		if err := c.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.launcher != nil {
		process.KillProcessGroup(c.launcher.PID())
		c.launcher.Kill()
		c.launcher.Cleanup()
	}
	if c.cleanup != nil {
		c.cleanup()
	}

	c.page, c.browser, c.launcher, c.cleanup = nil, nil, nil, nil
	return errors.Join(errs...)
}
