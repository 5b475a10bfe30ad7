package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developmentseed/labs-gpt-stac/agents/react"
	"github.com/developmentseed/labs-gpt-stac/framework"
	"github.com/developmentseed/labs-gpt-stac/tools"
)

type stubRunner struct {
	outcome  *react.Outcome
	err      error
	question string
	taskID   string
	block    bool
}

func (s *stubRunner) Run(ctx context.Context, question string) (*react.Outcome, error) {
	s.question = question
	s.taskID = framework.TaskID(ctx)
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.outcome, s.err
}

type stubGeocoder struct {
	bounds *tools.Bounds
	err    error
}

func (g stubGeocoder) Geocode(ctx context.Context, place string) (*tools.Bounds, error) {
	return g.bounds, g.err
}

func newTestServer(runner Runner) *APIServer {
	return &APIServer{
		Agent:  runner,
		Logger: log.New(io.Discard, "", 0),
	}
}

func TestHandleChatFinalAnswer(t *testing.T) {
	runner := &stubRunner{outcome: &react.Outcome{Kind: react.OutcomeFinalAnswer, Answer: "Answer: Paris"}}
	rec := &framework.RecordingTelemetry{}
	api := newTestServer(runner)
	api.Telemetry = rec

	req := httptest.NewRequest(http.MethodGet, "/chatgpt?prompt=capital+of+France", nil)
	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"Answer: Paris"}`, w.Body.String())
	assert.Equal(t, "capital of France", runner.question)
	id := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, runner.taskID)
	events := rec.OfType(framework.EventHTTPRequest)
	require.Len(t, events, 1)
	assert.Equal(t, http.StatusOK, events[0].Metadata["status"])
}

func TestHandleChatCatalogResult(t *testing.T) {
	q, err := tools.ParseSTACQuery("bbox=[27, 54, 63, 32.5] && datetime=['2019-01-01T00:00:00Z', '2019-01-02T00:00:00Z']")
	require.NoError(t, err)
	catalog := &tools.CatalogResult{
		STAC:     tools.ItemCollection{Type: "FeatureCollection", Features: []tools.Item{{Type: "Feature", ID: "S2A"}}},
		BBox:     q.BBox,
		Datetime: q.Datetime,
	}
	api := newTestServer(&stubRunner{outcome: &react.Outcome{Kind: react.OutcomeCatalogResult, Catalog: catalog}})

	req := httptest.NewRequest(http.MethodGet, "/chatgpt?prompt=imagery", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fixed-id", w.Header().Get(RequestIDHeader))
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.JSONEq(t, `[27,54,63,32.5]`, string(body["bbox"]))
	assert.JSONEq(t, `["2019-01-01T00:00:00Z","2019-01-02T00:00:00Z"]`, string(body["datetime"]))
	assert.Contains(t, string(body["stac"]), `"S2A"`)
}

func TestHandleChatMissingPrompt(t *testing.T) {
	api := newTestServer(&stubRunner{})
	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chatgpt", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chatgpt?prompt=x", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleChatErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{fmt.Errorf("%w: unknown action \"google\"", framework.ErrProtocolViolation), http.StatusBadGateway, "protocol_violation"},
		{framework.NewToolError("stac", fmt.Errorf("%w: missing datetime", framework.ErrMalformedQuery)), http.StatusUnprocessableEntity, "malformed_query"},
		{framework.NewToolError("stac", errors.New("503")), http.StatusBadGateway, "tool_failure"},
		{fmt.Errorf("%w: no answer after 5 turns", framework.ErrTurnBudgetExceeded), http.StatusLoopDetected, "turn_budget_exceeded"},
		{errors.New("completion turn 1: boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			api := newTestServer(&stubRunner{err: tc.err})
			w := httptest.NewRecorder()
			api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chatgpt?prompt=q", nil))
			assert.Equal(t, tc.status, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.kind, resp.Kind)
			assert.Equal(t, w.Header().Get(RequestIDHeader), resp.RequestID)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleChatRequestTimeout(t *testing.T) {
	api := newTestServer(&stubRunner{block: true})
	api.RequestTimeout = 10 * time.Millisecond
	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chatgpt?prompt=q", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestHandleStatus(t *testing.T) {
	api := newTestServer(&stubRunner{})
	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success"}`, w.Body.String())
}

func TestHandleGeocode(t *testing.T) {
	api := newTestServer(&stubRunner{})
	api.Geocoder = stubGeocoder{bounds: &tools.Bounds{
		Northeast: tools.LatLng{Lat: 48.9, Lng: 2.47},
		Southwest: tools.LatLng{Lat: 48.8, Lng: 2.22},
	}}
	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/geocode?q=Paris", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.JSONEq(t, `[2.22,48.8,2.47,48.9]`, string(resp["bbox"]))

	api.Geocoder = stubGeocoder{}
	w = httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/geocode?q=Atlantis", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/geocode", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTemplatesAreServed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.html"), []byte("<h1>gpt-stac</h1>"), 0o644))
	api := newTestServer(&stubRunner{})
	api.TemplatesDir = dir

	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/templates/app.html", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gpt-stac")
}

func TestServeContextShutsDown(t *testing.T) {
	api := newTestServer(&stubRunner{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- api.ServeContext(ctx, "127.0.0.1:0") }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
