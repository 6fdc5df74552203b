package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbot/internal/assembler"
	"ragbot/internal/domain"
	"ragbot/internal/metrics"
	"ragbot/internal/pipeline"
)

type fakeAnswerer struct {
	answer func(ctx context.Context, query string) (*pipeline.Result, error)
}

func (f *fakeAnswerer) Answer(ctx context.Context, query string) (*pipeline.Result, error) {
	return f.answer(ctx, query)
}

func echoAnswerer() *fakeAnswerer {
	return &fakeAnswerer{answer: func(ctx context.Context, q string) (*pipeline.Result, error) {
		return &pipeline.Result{RequestID: pipeline.RequestIDFrom(ctx), Response: "re: " + q}, nil
	}}
}

func newTestServer(a Answerer, opts Options) *Server {
	logger, _ := test.NewNullLogger()
	opts.Logger = logger
	return New(a, opts)
}

func postAsk(h http.Handler, query string) *httptest.ResponseRecorder {
	form := url.Values{}
	if query != "" {
		form.Set("query", query)
	}
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAskReturnsResponse(t *testing.T) {
	rec := postAsk(newTestServer(echoAnswerer(), Options{}).Handler(), "hello")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, map[string]string{"response": "re: hello"}, decode(t, rec))
}

func TestAskMissingQuery(t *testing.T) {
	called := false
	a := &fakeAnswerer{answer: func(context.Context, string) (*pipeline.Result, error) {
		called = true
		return nil, nil
	}}
	h := newTestServer(a, Options{}).Handler()

	for _, q := range []string{"", "   "} {
		rec := postAsk(h, q)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec), "error")
	}
	assert.False(t, called)
}

func TestAskErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", domain.ErrInvalidInput, http.StatusBadRequest},
		{"retrieval", &domain.RetrievalError{Retriever: "duckduckgo", StatusCode: 503, Err: errors.New("down")}, http.StatusBadGateway},
		{"generation", &domain.GenerationError{Generator: "ngram", Err: errors.New("boom")}, http.StatusInternalServerError},
		{"deadline", &domain.GenerationError{Generator: "ngram", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &fakeAnswerer{answer: func(context.Context, string) (*pipeline.Result, error) { return nil, tc.err }}
			rec := postAsk(newTestServer(a, Options{}).Handler(), "q")
			assert.Equal(t, tc.want, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestAskRejectsOtherMethods(t *testing.T) {
	h := newTestServer(echoAnswerer(), Options{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ask?query=hi", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAskKeepsCallerRequestID(t *testing.T) {
	h := newTestServer(echoAnswerer(), Options{}).Handler()
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader("query=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestAskAppliesRequestTimeout(t *testing.T) {
	a := &fakeAnswerer{answer: func(ctx context.Context, _ string) (*pipeline.Result, error) {
		<-ctx.Done()
		return nil, &domain.GenerationError{Generator: "slow", Err: ctx.Err()}
	}}
	rec := postAsk(newTestServer(a, Options{RequestTimeout: 10 * time.Millisecond}).Handler(), "q")
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestAskClientDisconnect(t *testing.T) {
	a := &fakeAnswerer{answer: func(ctx context.Context, _ string) (*pipeline.Result, error) {
		<-ctx.Done()
		return nil, &domain.GenerationError{Generator: "slow", Err: ctx.Err()}
	}}
	logger, hook := test.NewNullLogger()
	h := New(a, Options{Logger: logger}).Handler()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader("query=hi")).WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, StatusClientClosedRequest, rec.Code)
	assert.Zero(t, rec.Body.Len())
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, "ask failed", e.Message)
	}
}

func TestAskRateLimited(t *testing.T) {
	limit := 1
	h := newTestServer(echoAnswerer(), Options{RateLimit: &limit}).Handler()

	assert.Equal(t, http.StatusOK, postAsk(h, "one").Code)
	assert.Equal(t, http.StatusTooManyRequests, postAsk(h, "two").Code)
}

func TestHealthIndexAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg).ObserveRequest(pipeline.OutcomeOK)
	h := newTestServer(echoAnswerer(), Options{Gatherer: reg}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decode(t, rec))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<form id="ask">`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ragbot_requests_total{outcome="ok"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(echoAnswerer(), Options{CORSOrigins: []string{"https://chat.example"}}).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "https://chat.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://chat.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

type noDocs struct{}

func (noDocs) Name() string { return "none" }

func (noDocs) Retrieve(context.Context, string) ([]domain.Document, error) { return nil, nil }

type recordingGenerator struct{ prompt string }

func (g *recordingGenerator) Name() string { return "recording" }

func (g *recordingGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return "hi there", nil
}

func TestAskHelloEndToEnd(t *testing.T) {
	gen := &recordingGenerator{}
	logger, _ := test.NewNullLogger()
	p := pipeline.New(noDocs{}, assembler.New(assembler.Config{MaxLength: 100, Unit: assembler.UnitTokens}), gen,
		pipeline.Options{Logger: logger})

	rec := postAsk(newTestServer(p, Options{}).Handler(), "hello")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", gen.prompt)
	assert.NotEmpty(t, decode(t, rec)["response"])
}
