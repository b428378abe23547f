package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("propagates the caller request id", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		var seen string
		handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = RequestIDFromContext(r.Context())
			require.NotNil(t, LoggerFromContext(r.Context()))
			w.WriteHeader(http.StatusTeapot)
		}))

		req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
		assert.Equal(t, "request completed", entry["msg"])
		assert.Equal(t, "req-123", entry["request_id"])
		assert.Equal(t, "/rooms", entry["path"])
		assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	})

	t.Run("generates an id when none is sent", func(t *testing.T) {
		t.Parallel()

		handler := RequestLogger(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("handler loggers inherit request attributes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerLogger(r.Context(), nil, "RoomHandler", "List").InfoContext(r.Context(), "inner")
		}))

		req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
		req.Header.Set(RequestIDHeader, "abc")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		first := strings.SplitN(buf.String(), "\n", 2)[0]
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(first), &entry))
		assert.Equal(t, "inner", entry["msg"])
		assert.Equal(t, "abc", entry["request_id"])
		assert.Equal(t, "RoomHandler", entry["handler"])
		assert.Equal(t, "List", entry["operation"])
	})
}

func TestRecoverer(t *testing.T) {
	t.Parallel()

	t.Run("turns panics into 500", func(t *testing.T) {
		t.Parallel()

		handler := Recoverer(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "INTERNAL", body.ErrorCode)
	})

	t.Run("re-panics on abort", func(t *testing.T) {
		t.Parallel()

		handler := Recoverer(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	t.Run("healthy checks return 200", func(t *testing.T) {
		t.Parallel()

		h := NewHealthHandler(map[string]Pinger{"sqlite": pingerFunc(func(context.Context) error { return nil })}, discardLogger())
		router := NewRouter(RouterConfig{Health: h})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{"sqlite":"ok"}}`, rec.Body.String())
	})

	t.Run("failing check degrades", func(t *testing.T) {
		t.Parallel()

		h := NewHealthHandler(map[string]Pinger{
			"sqlite": pingerFunc(func(context.Context) error { return nil }),
			"redis":  pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
		}, discardLogger())

		rec := httptest.NewRecorder()
		h.Check(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "connection refused")
	})
}
