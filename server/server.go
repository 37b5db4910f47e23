// Package server exposes a Translator over HTTP for host plugins.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/memotl"
	"github.com/ZaguanLabs/memotl/cache"
)

const (
	defaultEntryLimit = 20
	maxBatchSize      = 1000
	maxImportBytes    = 32 << 20
)

// Store is the part of cache.Store the HTTP API needs.
type Store interface {
	Stats() cache.Stats
	Entries(limit int) []cache.Entry
	Export() ([]byte, error)
	Import(data []byte) error
}

type Options struct {
	Host            string
	Port            int
	SourceLang      string // Used when a request omits source_lang
	TargetLang      string // Used when a request omits target_lang
	Disabled        bool   // Echo every text back untranslated
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	translator *memotl.Translator
	store      Store
	logger     zerolog.Logger
	opts       Options
	echo       *echo.Echo
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type batchRequest struct {
	Texts      []string `json:"texts"`
	SourceLang string   `json:"source_lang"`
	TargetLang string   `json:"target_lang"`
}

type translateResponse struct {
	Text        string `json:"text"`
	Translation string `json:"translation"`
	Outcome     string `json:"outcome"`
	Backend     string `json:"backend,omitempty"`
	Shared      bool   `json:"shared,omitempty"`
	Error       string `json:"error,omitempty"`
}

type statsResponse struct {
	Entries      int    `json:"entries"`
	Backend      string `json:"backend"`
	Hits         int64  `json:"hits"`
	Misses       int64  `json:"misses"`
	BackendCalls int64  `json:"backend_calls"`
	Coalesced    int64  `json:"coalesced"`
	Passthrough  int64  `json:"passthrough"`
	InFlight     int    `json:"in_flight"`
}

type entryItem struct {
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer wires the HTTP API around translator and store.
func NewServer(translator *memotl.Translator, store Store, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	if opts.Port <= 0 {
		opts.Port = 8787
	}
	if opts.SourceLang == "" {
		opts.SourceLang = "ja"
	}
	if opts.TargetLang == "" {
		opts.TargetLang = "zh-CN"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 2 * time.Minute
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	opts.Host = host

	s := &Server{
		translator: translator,
		store:      store,
		logger:     logger,
		opts:       opts,
	}
	s.echo = s.routes()
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.echo,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := s.echo.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Str("backend", s.translator.Backend().Name()).Msg("memotl server started")

	if err := s.echo.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("memotl server stopped")
	return nil
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Debug()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.POST("/translate", s.handleTranslate)
	api.POST("/translate/batch", s.handleTranslateBatch)
	api.GET("/cache/stats", s.handleStats)
	api.GET("/cache/entries", s.handleEntries)
	api.GET("/cache/export", s.handleExport)
	api.POST("/cache/import", s.handleImport)
	api.GET("/history", s.handleHistory)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if v, ok := he.Message.(string); ok && strings.TrimSpace(v) != "" {
			message = v
		} else if text := http.StatusText(status); text != "" {
			message = text
		}
	}
	if status >= 500 {
		s.logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("request failed")
	}

	_ = c.JSON(status, errorResponse{Error: message})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "memotl",
		"version": memotl.Version,
		"backend": s.translator.Backend().Name(),
		"enabled": !s.opts.Disabled,
	})
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}

	src, tgt := s.langs(req.SourceLang, req.TargetLang)
	return c.JSON(http.StatusOK, s.translate(c.Request().Context(), req.Text, src, tgt))
}

func (s *Server) handleTranslateBatch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if len(req.Texts) > maxBatchSize {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("at most %d texts per batch", maxBatchSize))
	}

	src, tgt := s.langs(req.SourceLang, req.TargetLang)
	items := make([]translateResponse, len(req.Texts))
	if s.opts.Disabled {
		for i, text := range req.Texts {
			items[i] = s.translate(c.Request().Context(), text, src, tgt)
		}
	} else {
		for i, res := range s.translator.TranslateAll(c.Request().Context(), req.Texts, src, tgt) {
			items[i] = toResponse(req.Texts[i], res)
		}
	}

	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleStats(c echo.Context) error {
	stats := s.translator.Stats()
	return c.JSON(http.StatusOK, statsResponse{
		Entries:      s.store.Stats().Count,
		Backend:      s.translator.Backend().Name(),
		Hits:         stats.Hits,
		Misses:       stats.Misses,
		BackendCalls: stats.BackendCalls,
		Coalesced:    stats.Coalesced,
		Passthrough:  stats.Passthrough,
		InFlight:     stats.InFlight,
	})
}

func (s *Server) handleEntries(c echo.Context) error {
	limit := defaultEntryLimit
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}

	entries := s.store.Entries(limit)
	items := make([]entryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, entryItem{Text: e.Key, Translation: e.Value})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"items": items,
		"total": s.store.Stats().Count,
	})
}

func (s *Server) handleExport(c echo.Context) error {
	data, err := s.store.Export()
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="translations.json"`)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, data)
}

func (s *Server) handleImport(c echo.Context) error {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImportBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read body")
	}

	if err := s.store.Import(data); err != nil {
		var importErr *cache.ImportError
		if errors.As(err, &importErr) {
			s.logger.Warn().Err(err).Msg("rejected cache import")
			return c.JSON(http.StatusBadRequest, map[string]any{"ok": false, "error": importErr.Error()})
		}
		return err
	}

	count := s.store.Stats().Count
	s.logger.Info().Int("entries", count).Msg("cache imported")
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "entries": count})
}

func (s *Server) handleHistory(c echo.Context) error {
	limit := 0
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}

	events := s.translator.History(limit)
	if events == nil {
		events = []memotl.Event{}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": events})
}

func (s *Server) translate(ctx context.Context, text, src, tgt string) translateResponse {
	if s.opts.Disabled || text == "" {
		return translateResponse{Text: text, Translation: text, Outcome: memotl.OutcomePassthrough.String()}
	}
	return toResponse(text, s.translator.Lookup(ctx, text, src, tgt))
}

func (s *Server) langs(src, tgt string) (string, string) {
	if strings.TrimSpace(src) == "" {
		src = s.opts.SourceLang
	}
	if strings.TrimSpace(tgt) == "" {
		tgt = s.opts.TargetLang
	}
	return src, tgt
}

func toResponse(text string, res memotl.Result) translateResponse {
	out := translateResponse{
		Text:        text,
		Translation: res.Text,
		Outcome:     res.Outcome.String(),
		Backend:     res.Backend,
		Shared:      res.Shared,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}
