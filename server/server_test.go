package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaguanLabs/memotl"
	"github.com/ZaguanLabs/memotl/cache"
	"github.com/ZaguanLabs/memotl/provider"
)

func newTestServer(t *testing.T, opts Options) (*Server, *cache.Store, *provider.MockProvider) {
	t.Helper()
	store := cache.New(nil)
	mock := provider.NewMockProvider()
	tr := memotl.NewTranslator(store, mock, memotl.WithHistory(10))
	return NewServer(tr, store, zerolog.Nop(), opts), store, mock
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t, Options{})
	rec := doRequest(t, s, http.MethodGet, "/api/v1/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "mock", body["backend"])
	assert.Equal(t, true, body["enabled"])
}

func TestTranslate(t *testing.T) {
	s, store, mock := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodPost, "/api/v1/translate", `{"text":"オーブ"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var first translateResponse
	decode(t, rec, &first)
	assert.Equal(t, "オーブ", first.Text)
	assert.Equal(t, "宝珠", first.Translation)
	assert.Equal(t, "translated", first.Outcome)
	assert.Equal(t, "ja", mock.LastRequest().SourceLang)
	assert.Equal(t, "zh-CN", mock.LastRequest().TargetLang)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/translate", `{"text":"オーブ"}`)
	var second translateResponse
	decode(t, rec, &second)
	assert.Equal(t, "宝珠", second.Translation)
	assert.Equal(t, "cached", second.Outcome)

	assert.Equal(t, 1, mock.CallCount())
	value, ok := store.Get("オーブ")
	assert.True(t, ok)
	assert.Equal(t, "宝珠", value)
}

func TestTranslate_LanguageOverride(t *testing.T) {
	s, _, mock := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodPost, "/api/v1/translate", `{"text":"モード","source_lang":"ja","target_lang":"zh-TW"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "zh-TW", mock.LastRequest().TargetLang)
}

func TestTranslate_Disabled(t *testing.T) {
	s, store, mock := newTestServer(t, Options{Disabled: true})

	rec := doRequest(t, s, http.MethodPost, "/api/v1/translate", `{"text":"オーブ"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body translateResponse
	decode(t, rec, &body)
	assert.Equal(t, "オーブ", body.Translation)
	assert.Equal(t, "passthrough", body.Outcome)
	assert.Equal(t, 0, mock.CallCount())
	assert.Equal(t, 0, store.Len())
}

func TestTranslate_BadJSON(t *testing.T) {
	s, _, _ := newTestServer(t, Options{})
	rec := doRequest(t, s, http.MethodPost, "/api/v1/translate", `{"text":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	decode(t, rec, &body)
	assert.Equal(t, "invalid JSON body", body.Error)
}

func TestTranslate_BackendFailure(t *testing.T) {
	s, _, mock := newTestServer(t, Options{})
	mock.Err = &memotl.ProviderError{Message: "connection refused"}

	rec := doRequest(t, s, http.MethodPost, "/api/v1/translate", `{"text":"スキル"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body translateResponse
	decode(t, rec, &body)
	assert.Equal(t, "スキル", body.Translation)
	assert.Equal(t, "passthrough", body.Outcome)
	assert.Contains(t, body.Error, "connection refused")
}

func TestTranslateBatch(t *testing.T) {
	s, _, mock := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodPost, "/api/v1/translate/batch",
		`{"texts":["オーブ","モード","スペル","アイテム","スキル","オーブ"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []translateResponse `json:"items"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Items, 6)

	want := []string{"宝珠", "模式", "咒语", "道具", "技能", "宝珠"}
	for i, item := range body.Items {
		assert.Equal(t, want[i], item.Translation)
	}
	assert.Equal(t, 5, mock.CallCount())
}

func TestCacheEndpoints(t *testing.T) {
	s, store, _ := newTestServer(t, Options{})
	store.Set("オーブ", "宝珠")
	store.Set("モード", "模式")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats statsResponse
	decode(t, rec, &stats)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, "mock", stats.Backend)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/cache/entries?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries struct {
		Items []entryItem `json:"items"`
		Total int         `json:"total"`
	}
	decode(t, rec, &entries)
	require.Len(t, entries.Items, 1)
	assert.Equal(t, entryItem{Text: "オーブ", Translation: "宝珠"}, entries.Items[0])
	assert.Equal(t, 2, entries.Total)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/cache/entries?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/cache/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "{\n  \"オーブ\": \"宝珠\",\n  \"モード\": \"模式\"\n}\n", rec.Body.String())
}

func TestCacheImport(t *testing.T) {
	s, store, _ := newTestServer(t, Options{})
	store.Set("オーブ", "宝珠")

	rec := doRequest(t, s, http.MethodPost, "/api/v1/cache/import", `{"スキル":"技能","アイテム":"道具"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"entries":2`), rec.Body.String())
	assert.False(t, store.Has("オーブ"))

	rec = doRequest(t, s, http.MethodPost, "/api/v1/cache/import", `["not","an","object"]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 2, store.Len())
	value, _ := store.Get("スキル")
	assert.Equal(t, "技能", value)
}

func TestHistory(t *testing.T) {
	s, _, _ := newTestServer(t, Options{})
	doRequest(t, s, http.MethodPost, "/api/v1/translate", `{"text":"オーブ"}`)
	doRequest(t, s, http.MethodPost, "/api/v1/translate", `{"text":"オーブ"}`)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/history?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []memotl.Event `json:"items"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "cached", body.Items[0].Outcome)
}

func TestUnknownRoute(t *testing.T) {
	s, _, _ := newTestServer(t, Options{})
	rec := doRequest(t, s, http.MethodGet, "/api/v1/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body errorResponse
	decode(t, rec, &body)
	assert.NotEmpty(t, body.Error)
}
