package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/crawl"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/jetstream"
	healthuc "github.com/UMD-DRASTIC/drastic-trellis/internal/usecase/health"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{subject, data})
	return nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newTestServer(pub Publisher, health *healthuc.Service, keys ...string) http.Handler {
	if health == nil {
		health = healthuc.New()
	}
	return NewServer(pub, jetstream.Subjects{Prefix: "drastic"}, health, zap.NewNop()).Router(keys)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCrawl_Enqueues(t *testing.T) {
	pub := &fakePublisher{}
	h := newTestServer(pub, nil)

	rr := do(t, h, http.MethodPost, "/crawl",
		`{"startUri":"https://repo.example/A","depth":3,"kafkaTopic":"objects","mode":"full"}`)
	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp acceptedResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "drastic.crawl", resp.Subject)
	assert.NotEmpty(t, resp.CrawlID)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	require.Len(t, pub.msgs, 1)
	req, err := crawl.Parse(pub.msgs[0].data)
	require.NoError(t, err)
	assert.Equal(t, "https://repo.example/A", req.StartURI)
	assert.Equal(t, 3, req.Depth)
	assert.Equal(t, resp.CrawlID, req.CrawlID)
	assert.Equal(t, map[string]string{"mode": "full"}, req.Options)
}

func TestCrawl_Rejects(t *testing.T) {
	pub := &fakePublisher{}
	h := newTestServer(pub, nil)

	for _, body := range []string{
		``,
		`{`,
		`{"startUri":"https://repo.example/A","depth":-1,"kafkaTopic":"objects"}`,
		`{"startUri":"relative/path","depth":1,"kafkaTopic":"objects"}`,
		`{"startUri":"https://repo.example/A","depth":1,"kafkaTopic":"bad topic"}`,
	} {
		rr := do(t, h, http.MethodPost, "/crawl", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	assert.Empty(t, pub.msgs)
}

func TestPagedDocuments_Enqueues(t *testing.T) {
	pub := &fakePublisher{}
	rr := do(t, newTestServer(pub, nil), http.MethodPost, "/paged-documents",
		`{"submissionUri":"https://repo.example/submissions/s1"}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "drastic.paged-documents", pub.msgs[0].subject)
	assert.Equal(t, "https://repo.example/submissions/s1", string(pub.msgs[0].data))
}

func TestReindex_Enqueues(t *testing.T) {
	pub := &fakePublisher{}
	rr := do(t, newTestServer(pub, nil), http.MethodPost, "/reindex", `{"graphUri":"https://repo.example/description/A"}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "drastic.graph.changed", pub.msgs[0].subject)
}

func TestPublishFailure_503(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: no responders")}
	rr := do(t, newTestServer(pub, nil), http.MethodPost, "/reindex", `https://repo.example/A`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp errorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, codePublishFailed, resp.Code)
}

func TestHealth(t *testing.T) {
	health := healthuc.New().With("sparql", pinger{}).With("search", pinger{err: errors.New("down")})
	rr := do(t, newTestServer(&fakePublisher{}, health, "secret"), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp healthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, map[string]string{"sparql": "ok", "search": "error"}, resp.Checks)
}

func TestAuthRequiredForTriggers(t *testing.T) {
	pub := &fakePublisher{}
	h := newTestServer(pub, nil, "secret")

	rr := do(t, h, http.MethodPost, "/reindex", `https://repo.example/A`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/reindex", strings.NewReader(`https://repo.example/A`))
	req.Header.Set("Authorization", "Bearer secret")
	ok := httptest.NewRecorder()
	h.ServeHTTP(ok, req)
	assert.Equal(t, http.StatusAccepted, ok.Code)
	assert.Len(t, pub.msgs, 1)
}

func TestUnknownRoute(t *testing.T) {
	rr := do(t, newTestServer(&fakePublisher{}, nil), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestJSONRecoverer(t *testing.T) {
	h := JSONRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), codeInternal)
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, requestLevel("/crawl", http.StatusAccepted))
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/health", http.StatusOK))
	assert.Equal(t, zapcore.WarnLevel, requestLevel("/health", http.StatusServiceUnavailable))
	assert.Equal(t, zapcore.WarnLevel, requestLevel("/reindex", http.StatusInternalServerError))
}

func TestWideEventMiddleware_EchoesRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := chiMiddleware.RequestID(WideEventMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})))

	req := httptest.NewRequest(http.MethodPost, "/crawl", http.NoBody)
	req.Header.Set(chiMiddleware.RequestIDHeader, "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "req-42", rr.Header().Get(chiMiddleware.RequestIDHeader))
	entries := logs.FilterMessage("admin_request").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
		assert.EqualValues(t, http.StatusAccepted, entries[0].ContextMap()["status"])
	}
}
