package memotl

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Client calls a Backend and converts every failure into a passthrough
// Result carrying the original text. It never returns an error.
type Client struct {
	backend atomic.Pointer[backendRef]
	timeout time.Duration
	logger  zerolog.Logger
}

type backendRef struct {
	Backend
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithClientTimeout bounds every backend call made through the client.
func WithClientTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClientLogger sets the logger that receives backend failures.
func WithClientLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a fail-open client for backend.
func NewClient(backend Backend, opts ...ClientOption) *Client {
	c := &Client{logger: zerolog.Nop()}
	c.SetBackend(backend)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetBackend replaces the backend. A nil backend means passthrough.
func (c *Client) SetBackend(backend Backend) {
	if backend == nil {
		backend = passthroughBackend{}
	}
	c.backend.Store(&backendRef{backend})
}

// Backend returns the current backend.
func (c *Client) Backend() Backend {
	return c.backend.Load().Backend
}

// Translate asks the current backend for a translation of text.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) Result {
	backend := c.Backend()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	translated, err := backend.Translate(ctx, TranslateRequest{
		Text:       text,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	})
	if err != nil {
		c.logFailure(backend.Name(), text, err)
		return Result{
			Text:    text,
			Outcome: OutcomePassthrough,
			Backend: backend.Name(),
			Err:     err,
		}
	}

	return Result{
		Text:    translated,
		Outcome: OutcomeTranslated,
		Backend: backend.Name(),
	}
}

func (c *Client) logFailure(backend, text string, err error) {
	var event *zerolog.Event
	switch {
	case errors.Is(err, ErrPassthrough):
		event = c.logger.Debug()
	case errors.Is(err, ErrNotImplemented):
		event = c.logger.Warn()
	default:
		event = c.logger.Error()
	}
	event.Err(err).Str("backend", backend).Str("text", text).Msg("translation failed, returning original text")
}

// passthroughBackend stands in for a missing backend.
type passthroughBackend struct{}

func (passthroughBackend) Name() string { return ServicePassthrough.String() }

func (passthroughBackend) Translate(_ context.Context, req TranslateRequest) (string, error) {
	return req.Text, ErrPassthrough
}
