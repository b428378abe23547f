package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-booking/internal/config"
	"github.com/example/meeting-booking/internal/coordination"
	"github.com/example/meeting-booking/internal/events"
	"github.com/example/meeting-booking/internal/mailer"
	"github.com/example/meeting-booking/internal/scheduler"
)

type countingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *countingSender) Send(_ context.Context, _ scheduler.Credential, to string, _ mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to)
	return nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		SQLitePath:      filepath.Join(t.TempDir(), "booking.db"),
		Location:        time.UTC,
		CredentialKey:   "test-key",
		AMQPExchange:    "booking.events",
		LockTTL:         time.Second,
		AvailabilityTTL: time.Minute,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func call(t *testing.T, h http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, reader))

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func idOf(t *testing.T, payload map[string]any, key string) int64 {
	t.Helper()
	obj, ok := payload[key].(map[string]any)
	require.True(t, ok, "missing %q in %v", key, payload)
	return int64(obj["id"].(float64))
}

func TestOpenWithRedisServesBookingFlow(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	sender := &countingSender{}
	rt, err := Open(context.Background(), cfg, quietLogger(), WithClock(func() time.Time { return now }), WithSender(sender))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Close()) })

	assert.IsType(t, &coordination.RedisLocker{}, rt.Locker)
	assert.IsType(t, &coordination.RedisCache{}, rt.Cache)
	assert.IsType(t, events.NopPublisher{}, rt.Publisher)

	h := rt.Handler()

	status, seeded := call(t, h, http.MethodPost, "/rooms/seed", nil)
	require.Equal(t, http.StatusCreated, status)
	rooms := seeded["rooms"].([]any)
	require.NotEmpty(t, rooms)
	roomID := int64(rooms[0].(map[string]any)["id"].(float64))

	status, organizer := call(t, h, http.MethodPost, "/members", map[string]any{"name": "Olga", "email": "olga@example.com", "mail_secret": "code-1"})
	require.Equal(t, http.StatusCreated, status)
	status, guest := call(t, h, http.MethodPost, "/members", map[string]any{"name": "Gus", "email": "gus@example.com"})
	require.Equal(t, http.StatusCreated, status)
	organizerID, guestID := idOf(t, organizer, "member"), idOf(t, guest, "member")

	booking := map[string]any{
		"room_id":         roomID,
		"title":           "Planning",
		"start":           "2025-03-10T09:00",
		"end":             "2025-03-10T10:00",
		"organizer_id":    organizerID,
		"participant_ids": []int64{guestID},
	}
	status, created := call(t, h, http.MethodPost, "/meetings", booking)
	require.Equal(t, http.StatusCreated, status, created)
	meetingID := idOf(t, created, "meeting")

	booking["start"], booking["end"] = "2025-03-10T09:30", "2025-03-10T10:30"
	status, _ = call(t, h, http.MethodPost, "/meetings", booking)
	assert.Equal(t, http.StatusConflict, status)

	status, availability := call(t, h, http.MethodGet, fmt.Sprintf("/rooms/%d/availability?date=2025-03-10&start=09:30&end=10:30", roomID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, availability["booked"], 1)
	assert.Len(t, availability["slots"], 48)
	pick := availability["pick"].(map[string]any)
	assert.Equal(t, false, pick["ok"])

	status, sent := call(t, h, http.MethodPost, fmt.Sprintf("/meetings/%d/invitations", meetingID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), sent["success"])
	assert.Len(t, sender.sent, 2)

	status, checkIn := call(t, h, http.MethodPost, "/check-ins", map[string]any{"meeting_id": meetingID, "member_id": guestID})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "normal", checkIn["check_in"].(map[string]any)["status"])

	status, health := call(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"sqlite": "ok", "redis": "ok"}, health["checks"])
}

func TestOpenFallsBackToInProcessCoordination(t *testing.T) {
	rt, err := Open(context.Background(), testConfig(t), quietLogger())
	require.NoError(t, err)
	defer rt.Close()

	assert.IsType(t, &coordination.LocalLocker{}, rt.Locker)
	assert.IsType(t, &coordination.MemoryCache{}, rt.Cache)
	assert.IsType(t, &mailer.SMTPSender{}, rt.Sender)

	status, err := rt.Storage.MigrationStatus(context.Background(), quietLogger())
	require.NoError(t, err)
	assert.Zero(t, status.PendingCount)
	assert.NotEmpty(t, status.CurrentVersion)
}

func TestOpenRejectsMissingCredentialKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.CredentialKey = ""

	rt, err := Open(context.Background(), cfg, quietLogger())
	require.Error(t, err)
	assert.Nil(t, rt)
}

func TestDefaultCredential(t *testing.T) {
	assert.Nil(t, defaultCredential(config.SMTPConfig{User: "bot@example.com"}))

	cred := defaultCredential(config.SMTPConfig{User: "bot@example.com", Pass: "code"})
	require.NotNil(t, cred)
	assert.Equal(t, "bot@example.com", cred.Email)
}
