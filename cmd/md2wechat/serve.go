package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	md2wechat "github.com/alnah/go-md2wechat"
	"github.com/alnah/go-md2wechat/internal/pipeline"
	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	maxRequestBytes   = 5 << 20
	shutdownTimeout   = 5 * time.Second
	watchDebounce     = 200 * time.Millisecond
	watchTick         = 50 * time.Millisecond
	readHeaderTimeout = 10 * time.Second
)

// renderRequest is the JSON body of /api/render and /api/export.
type renderRequest struct {
	Markdown string `json:"markdown"`
	Title    string `json:"title,omitempty"`
	Theme    string `json:"theme,omitempty"`
}

// exportResponse is the JSON body returned by /api/export.
type exportResponse struct {
	HTML   string `json:"html"`
	Text   string `json:"text"`
	Images int    `json:"images"`
}

// Server is the HTTP API around one converter.
type Server struct {
	router chi.Router
	conv   Exporter
	params *renderParams
	logger *zap.Logger

	// exportMu serializes exports; the converter allows one at a time.
	exportMu sync.Mutex

	// preview is the watched document, nil without --watch.
	previewMu sync.RWMutex
	preview   *md2wechat.Document
}

// NewServer creates and configures the HTTP server.
func NewServer(conv Exporter, params *renderParams, logger *zap.Logger) *Server {
	s := &Server{
		conv:   conv,
		params: params,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/preview", s.handlePreview)
	r.Post("/api/render", s.handleRender)
	r.Post("/api/export", s.handleExport)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handlePreview(w http.ResponseWriter, _ *http.Request) {
	s.previewMu.RLock()
	doc := s.preview
	s.previewMu.RUnlock()

	if doc == nil {
		jsonError(w, "no watched file; start serve with --watch", http.StatusNotFound)
		return
	}
	page, err := doc.HTML()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeHTML(w, page)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.render(w, r)
	if !ok {
		return
	}
	page, err := doc.HTML()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeHTML(w, page)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.render(w, r)
	if !ok {
		return
	}

	s.exportMu.Lock()
	res, err := s.conv.ExportHTML(r.Context(), doc)
	s.exportMu.Unlock()
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return
	}
	if res == nil {
		jsonError(w, "nothing to export", http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(exportResponse{HTML: res.HTML, Text: res.Text, Images: res.Images})
}

// render decodes the request and renders it. On failure the error
// response is already written and ok is false.
func (s *Server) render(w http.ResponseWriter, r *http.Request) (doc *md2wechat.Document, ok bool) {
	req, err := decodeRenderRequest(w, r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	doc, err = s.conv.Render(r.Context(), md2wechat.Input{
		Markdown: req.Markdown,
		Title:    firstNonEmpty(req.Title, s.params.title),
		Theme:    req.Theme,
		CSS:      s.params.css,
		TOC:      s.params.toc,
	})
	if err != nil {
		jsonError(w, err.Error(), errorStatus(err))
		return nil, false
	}
	return doc, true
}

// decodeRenderRequest accepts either a JSON renderRequest or a raw
// text/markdown body.
func decodeRenderRequest(w http.ResponseWriter, r *http.Request) (renderRequest, error) {
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer body.Close()

	var req renderRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/markdown") {
		data, err := io.ReadAll(body)
		if err != nil {
			return req, fmt.Errorf("reading body: %w", err)
		}
		req.Markdown = string(data)
		return req, nil
	}

	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid JSON body: %w", err)
	}
	return req, nil
}

// errorStatus maps converter errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, md2wechat.ErrEmptyMarkdown),
		errors.Is(err, md2wechat.ErrUnknownTheme),
		errors.Is(err, md2wechat.ErrInvalidTOCDepth),
		errors.Is(err, pipeline.ErrFrontMatter):
		return http.StatusBadRequest
	case errors.Is(err, md2wechat.ErrExportInProgress):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// reload re-renders path and swaps it into the preview document, keeping
// the document pointer stable for readers.
func (s *Server) reload(ctx context.Context, path string) error {
	input, err := readInput(path, s.params)
	if err != nil {
		return err
	}
	doc, err := s.conv.Render(ctx, input)
	if err != nil {
		return err
	}

	s.previewMu.Lock()
	defer s.previewMu.Unlock()
	if s.preview == nil {
		s.preview = doc
		return nil
	}
	s.preview.Replace(doc)
	return nil
}

// watch re-renders path after it changes, until ctx is done. The parent
// directory is watched since editors often replace files by rename.
func (s *Server) watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	var pending time.Time
	ticker := time.NewTicker(watchTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				pending = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", zap.Error(err))

		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < watchDebounce {
				continue
			}
			pending = time.Time{}
			if err := s.reload(ctx, abs); err != nil {
				s.logger.Warn("re-render failed", zap.String("path", abs), zap.Error(err))
				continue
			}
			s.logger.Info("re-rendered", zap.String("path", abs))
		}
	}
}

// runServe starts the HTTP API and blocks until ctx is canceled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) != 0 {
		return fmt.Errorf("%w: serve takes no arguments (use --watch <file>)", ErrUsage)
	}

	logger := newLogger(env.Stderr, flags.common.quiet, flags.common.verbose)
	defer func() { _ = logger.Sync() }()

	cfg, err := loadSettings(flags.common, env)
	if err != nil {
		return err
	}
	mergeRenderFlags(flags.render, cfg)
	mergeCaptureFlags(flags.capture, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	params, err := buildRenderParams(cfg, flags.render.title)
	if err != nil {
		return err
	}

	conv, err := md2wechat.NewConverter(converterOptions(cfg, logger, env)...)
	if err != nil {
		return err
	}
	defer func() { _ = conv.Close() }()

	srv := NewServer(conv, params, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if flags.watch != "" {
		if err := srv.reload(ctx, flags.watch); err != nil {
			return err
		}
		go func() {
			if err := srv.watch(ctx, flags.watch); err != nil {
				logger.Error("watch stopped", zap.Error(err))
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              flags.addr,
		Handler:           srv,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", flags.addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", flags.addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	return httpSrv.Shutdown(shutdownCtx)
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeHTML(w http.ResponseWriter, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, page)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
