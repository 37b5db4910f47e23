package memotl

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Backend is the interface for translation services.
// Implementations return an error on any failure; the Client turns that into
// a passthrough Result.
type Backend interface {
	Name() string
	Translate(ctx context.Context, req TranslateRequest) (string, error)
}

// TranslationCache is the interface for the translation store.
// Set persists on a best-effort basis and never reports failure.
type TranslationCache interface {
	Get(text string) (string, bool)
	Set(text, translation string)
}

// Translator memoizes translations and coalesces concurrent requests for the
// same source text into a single backend call.
//
// One Translator is meant to live for the whole process and be shared by
// every caller.
type Translator struct {
	cache  TranslationCache
	client *Client
	logger zerolog.Logger

	waitTimeout      time.Duration
	cacheFailures    bool
	bypassSameLang   bool
	batchConcurrency int
	history          *History

	mu       sync.Mutex
	inflight map[string]*call

	hits         atomic.Int64
	misses       atomic.Int64
	backendCalls atomic.Int64
	coalesced    atomic.Int64
	passthrough  atomic.Int64
}

// call is one claimed translation. done is closed when the claim is released.
type call struct {
	done chan struct{}
}

// TranslatorStats holds counters since the Translator was created.
type TranslatorStats struct {
	Hits         int64 // Answered from the cache
	Misses       int64 // Claimed and sent to a backend
	BackendCalls int64 // Backend invocations
	Coalesced    int64 // Waited on another caller's in-flight request
	Passthrough  int64 // Returned the original text
	InFlight     int   // Texts currently being translated
}

// TranslatorOption is a functional option for configuring the Translator.
type TranslatorOption func(*Translator)

// WithLogger sets the logger used by the translator and its client.
func WithLogger(logger zerolog.Logger) TranslatorOption {
	return func(t *Translator) {
		t.logger = logger
	}
}

// WithWaitTimeout bounds how long a caller waits on another caller's
// in-flight translation of the same text. Zero waits until ctx is done.
func WithWaitTimeout(d time.Duration) TranslatorOption {
	return func(t *Translator) {
		t.waitTimeout = d
	}
}

// WithBackendTimeout bounds every backend call.
func WithBackendTimeout(d time.Duration) TranslatorOption {
	return func(t *Translator) {
		t.client.timeout = d
	}
}

// WithCacheFailures controls whether passthrough results are written to the
// cache. Enabled by default so a failing text is not retried on every event.
func WithCacheFailures(enabled bool) TranslatorOption {
	return func(t *Translator) {
		t.cacheFailures = enabled
	}
}

// WithSameLanguageBypass returns texts unchanged, without touching the cache
// or a backend, when source and target share a base language.
func WithSameLanguageBypass() TranslatorOption {
	return func(t *Translator) {
		t.bypassSameLang = true
	}
}

// WithBatchConcurrency sets the worker count used by TranslateAll.
func WithBatchConcurrency(n int) TranslatorOption {
	return func(t *Translator) {
		t.batchConcurrency = n
	}
}

// WithHistory keeps the last n translation events (see Translator.History).
func WithHistory(n int) TranslatorOption {
	return func(t *Translator) {
		t.history = NewHistory(n)
	}
}

// NewTranslator creates a Translator backed by cache and backend.
// A nil backend behaves like the passthrough backend.
func NewTranslator(cache TranslationCache, backend Backend, opts ...TranslatorOption) *Translator {
	t := &Translator{
		cache:            cache,
		client:           NewClient(backend),
		logger:           zerolog.Nop(),
		cacheFailures:    true,
		batchConcurrency: 8,
		inflight:         make(map[string]*call),
	}

	for _, opt := range opts {
		opt(t)
	}
	t.client.logger = t.logger

	return t
}

// Translate returns the translation of text, or text itself when no
// translation could be obtained. It never fails.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) string {
	return t.Lookup(ctx, text, sourceLang, targetLang).Text
}

// Lookup translates text and reports how the result was produced.
func (t *Translator) Lookup(ctx context.Context, text, sourceLang, targetLang string) Result {
	if t.bypassSameLang && SameLanguage(sourceLang, targetLang) {
		return Result{Text: text, Outcome: OutcomePassthrough}
	}

	// Fast path: no gate interaction on a hit
	if cached, ok := t.cache.Get(text); ok {
		return t.hit(text, cached, false)
	}

	shared := false
	for {
		t.mu.Lock()
		if cached, ok := t.cache.Get(text); ok {
			t.mu.Unlock()
			return t.hit(text, cached, shared)
		}

		c, busy := t.inflight[text]
		if !busy {
			c = &call{done: make(chan struct{})}
			t.inflight[text] = c
			t.mu.Unlock()
			return t.lead(ctx, c, text, sourceLang, targetLang, shared)
		}
		t.mu.Unlock()

		// Another caller owns this text. Wait for it to release the claim,
		// then look again: either the cache has the text now or we claim it.
		if !shared {
			shared = true
			t.coalesced.Add(1)
		}
		if err := t.wait(ctx, c); err != nil {
			t.passthrough.Add(1)
			t.logger.Warn().Err(err).Str("text", text).Msg("gave up waiting for in-flight translation")
			res := Result{Text: text, Outcome: OutcomePassthrough, Shared: true, Err: err}
			t.record(text, res)
			return res
		}
	}
}

// lead performs the backend call for a claimed text and releases the claim.
func (t *Translator) lead(ctx context.Context, c *call, text, sourceLang, targetLang string, shared bool) Result {
	defer t.release(text, c)

	t.misses.Add(1)
	t.backendCalls.Add(1)

	res := t.client.Translate(ctx, text, sourceLang, targetLang)
	res.Shared = shared
	if res.Outcome == OutcomePassthrough {
		t.passthrough.Add(1)
	}

	if t.shouldCache(res) {
		t.cache.Set(text, res.Text)
	}

	t.record(text, res)
	return res
}

// release removes the claim and wakes every waiter. Runs even if the backend panics.
func (t *Translator) release(text string, c *call) {
	t.mu.Lock()
	if t.inflight[text] == c {
		delete(t.inflight, text)
	}
	t.mu.Unlock()
	close(c.done)
}

func (t *Translator) wait(ctx context.Context, c *call) error {
	if t.waitTimeout <= 0 {
		select {
		case <-c.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	timer := time.NewTimer(t.waitTimeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrWaitTimeout
	}
}

func (t *Translator) shouldCache(res Result) bool {
	if res.Outcome != OutcomePassthrough {
		return true
	}
	if !t.cacheFailures {
		return false
	}
	// The caller walked away; the backend never got a fair chance.
	return !errors.Is(res.Err, context.Canceled) && !errors.Is(res.Err, context.DeadlineExceeded)
}

func (t *Translator) hit(text, cached string, shared bool) Result {
	t.hits.Add(1)
	res := Result{Text: cached, Outcome: OutcomeCached, Shared: shared}
	t.record(text, res)
	return res
}

func (t *Translator) record(text string, res Result) {
	t.logger.Debug().
		Str("text", text).
		Str("translation", res.Text).
		Str("outcome", res.Outcome.String()).
		Bool("shared", res.Shared).
		Msg("translation")

	if t.history != nil {
		t.history.Add(text, res)
	}
}

// SetBackend swaps the backend used for subsequent cache misses.
// Calls already in flight finish on the backend they started with.
func (t *Translator) SetBackend(backend Backend) {
	t.client.SetBackend(backend)
}

// Backend returns the current backend.
func (t *Translator) Backend() Backend {
	return t.client.Backend()
}

// Stats returns a snapshot of the translator's counters.
func (t *Translator) Stats() TranslatorStats {
	t.mu.Lock()
	inflight := len(t.inflight)
	t.mu.Unlock()

	return TranslatorStats{
		Hits:         t.hits.Load(),
		Misses:       t.misses.Load(),
		BackendCalls: t.backendCalls.Load(),
		Coalesced:    t.coalesced.Load(),
		Passthrough:  t.passthrough.Load(),
		InFlight:     inflight,
	}
}

// History returns up to n recent translation events, newest last.
// It returns nil unless the translator was built WithHistory.
func (t *Translator) History(n int) []Event {
	if t.history == nil {
		return nil
	}
	return t.history.Last(n)
}
