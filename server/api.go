package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/developmentseed/labs-gpt-stac/agents/react"
	"github.com/developmentseed/labs-gpt-stac/framework"
	"github.com/developmentseed/labs-gpt-stac/tools"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Runner answers one question. *react.Agent satisfies it; every call builds
// its own transcript.
type Runner interface {
	Run(ctx context.Context, question string) (*react.Outcome, error)
}

// Geocoder resolves place names to bounds.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (*tools.Bounds, error)
}

// APIServer exposes the agent over HTTP.
type APIServer struct {
	Agent    Runner
	Geocoder Geocoder
	// TemplatesDir is served under /templates/ when set.
	TemplatesDir   string
	RequestTimeout time.Duration
	Logger         *log.Logger
	Telemetry      framework.Telemetry
}

// AnswerResponse is returned when the model produces a final answer.
type AnswerResponse struct {
	Answer string `json:"answer"`
}

// GeocodeResponse is returned by /geocode.
type GeocodeResponse struct {
	Query  string            `json:"query"`
	Bounds *tools.Bounds     `json:"bounds"`
	BBox   tools.BoundingBox `json:"bbox"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Serve starts listening on the provided address.
func (s *APIServer) Serve(addr string) error {
	return s.ServeContext(context.Background(), addr)
}

// ServeContext allows the caller to control shutdown via context cancellation.
func (s *APIServer) ServeContext(ctx context.Context, addr string) error {
	server := s.newHTTPServer(addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	s.logf("API listening on %s", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler returns the routed handler, wrapped with request ids.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chatgpt", s.handleChat)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/geocode", s.handleGeocode)
	if s.TemplatesDir != "" {
		mux.Handle("/templates/", http.StripPrefix("/templates/", http.FileServer(http.Dir(s.TemplatesDir))))
	}
	return otelhttp.NewHandler(s.withRequestID(mux), "gptstac")
}

func (s *APIServer) newHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *APIServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		span := trace.SpanFromContext(r.Context())
		span.SetAttributes(attribute.String("request_id", id))
		ctx := framework.WithTaskContext(r.Context(), framework.TaskContext{
			ID:       id,
			Question: r.URL.Query().Get("prompt"),
			Source:   "http",
		})
		next.ServeHTTP(rec, r.WithContext(ctx))
		s.emit(framework.Event{
			Type:      framework.EventHTTPRequest,
			TaskID:    id,
			Message:   r.Method + " " + r.URL.Path,
			Timestamp: time.Now().UTC(),
			Metadata: map[string]interface{}{
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
			},
		})
	})
}

func (s *APIServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *APIServer) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	prompt := strings.TrimSpace(r.URL.Query().Get("prompt"))
	if prompt == "" {
		s.writeError(w, r, http.StatusBadRequest, errors.New("prompt query parameter required"))
		return
	}
	ctx := r.Context()
	if s.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RequestTimeout)
		defer cancel()
	}
	outcome, err := s.Agent.Run(ctx, prompt)
	if err != nil {
		s.logf("chatgpt %s: %v", framework.TaskID(ctx), err)
		s.writeError(w, r, statusFor(ctx, err), err)
		return
	}
	switch outcome.Kind {
	case react.OutcomeCatalogResult:
		writeJSON(w, http.StatusOK, outcome.Catalog)
	default:
		writeJSON(w, http.StatusOK, AnswerResponse{Answer: outcome.Answer})
	}
}

func (s *APIServer) handleGeocode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.Geocoder == nil {
		s.writeError(w, r, http.StatusNotImplemented, errors.New("geocoder not configured"))
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeError(w, r, http.StatusBadRequest, errors.New("q query parameter required"))
		return
	}
	bounds, err := s.Geocoder.Geocode(r.Context(), q)
	if err != nil {
		s.writeError(w, r, statusFor(r.Context(), err), err)
		return
	}
	if bounds == nil {
		s.writeError(w, r, http.StatusNotFound, framework.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, GeocodeResponse{Query: q, Bounds: bounds, BBox: bounds.BBox()})
}

// statusFor maps agent and tool errors onto HTTP status codes. The request
// deadline wins over tool timeouts, which are upstream failures.
func statusFor(ctx context.Context, err error) int {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch {
	case errors.Is(err, framework.ErrProtocolViolation):
		return http.StatusBadGateway
	case errors.Is(err, framework.ErrMalformedQuery):
		return http.StatusUnprocessableEntity
	case errors.Is(err, framework.ErrTurnBudgetExceeded):
		return http.StatusLoopDetected
	case errors.Is(err, framework.ErrNotFound), errors.Is(err, framework.ErrToolFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, ErrorResponse{
		Error:     err.Error(),
		Kind:      framework.ErrorKind(err),
		RequestID: framework.TaskID(r.Context()),
	})
}

func (s *APIServer) logf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

func (s *APIServer) emit(event framework.Event) {
	if s.Telemetry != nil {
		s.Telemetry.Emit(event)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
