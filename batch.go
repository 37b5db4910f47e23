package memotl

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// TranslateAll translates texts using a bounded worker pool and returns the
// results in input order. Duplicates are coalesced like any other concurrent
// request, so each distinct text reaches the backend at most once.
func (t *Translator) TranslateAll(ctx context.Context, texts []string, sourceLang, targetLang string) []Result {
	results := make([]Result, len(texts))
	if len(texts) == 0 {
		return results
	}

	size := t.batchConcurrency
	if size <= 0 || size > len(texts) {
		size = len(texts)
	}

	pool, err := ants.NewPool(size)
	if err != nil {
		// Pool creation only fails on invalid options; translate inline.
		t.logger.Error().Err(err).Msg("creating batch pool")
		for i, text := range texts {
			results[i] = t.Lookup(ctx, text, sourceLang, targetLang)
		}
		return results
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = t.Lookup(ctx, text, sourceLang, targetLang)
		}
		if err := pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	return results
}

// Warm translates texts and reports how many were already cached and how
// many were newly obtained from the backend.
func (t *Translator) Warm(ctx context.Context, texts []string, sourceLang, targetLang string) (cached, translated, failed int) {
	for _, res := range t.TranslateAll(ctx, texts, sourceLang, targetLang) {
		switch res.Outcome {
		case OutcomeCached:
			cached++
		case OutcomeTranslated:
			translated++
		default:
			failed++
		}
	}
	return cached, translated, failed
}
