package http

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestLogger assigns a request id, attaches a request scoped logger and
// logs one line per completed request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithRequestID(r.Context(), id)
			ctx = ContextWithLogger(ctx, logger)
			recorder := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(recorder, r.WithContext(ctx))

			status := recorder.statusCode()
			attrs := []any{"status", status, "duration", time.Since(start)}
			if status >= http.StatusInternalServerError {
				logger.ErrorContext(ctx, "request completed", attrs...)
				return
			}
			logger.InfoContext(ctx, "request completed", attrs...)
		})
	}
}

// Recoverer turns a handler panic into a 500 response.
func Recoverer(base *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(base)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				responder.loggerFor(r.Context()).ErrorContext(r.Context(), "handler panicked",
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{
					ErrorCode: "INTERNAL",
					Message:   statusMessage(http.StatusInternalServerError),
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (s *statusRecorder) statusCode() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}
