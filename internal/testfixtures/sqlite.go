package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/meeting-booking/internal/persistence"
	"github.com/example/meeting-booking/internal/persistence/sqlite"
	"github.com/example/meeting-booking/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary, migrated
// SQLite database for integration-style persistence tests.
type SQLiteHarness struct {
	Storage  *sqlite.Storage
	Rooms    persistence.RoomRepository
	Members  persistence.MemberRepository
	Meetings persistence.MeetingRepository
	CheckIns persistence.CheckInRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a database file under tb.TempDir and migrates it.
// Close is registered with tb.Cleanup, so calling it is optional.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "booking.db")

	storage, err := sqlite.Open(migration.TempFileTestSQLiteConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := storage.Migrate(context.Background(), logger); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:  storage,
		Rooms:    storage.Rooms,
		Members:  storage.Members,
		Meetings: storage.Meetings,
		CheckIns: storage.CheckIns,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedRoom stores a room fixture and returns the stored record.
func (h *SQLiteHarness) SeedRoom(tb testing.TB, opts ...RoomOption) persistence.Room {
	tb.Helper()
	room, err := h.Rooms.CreateRoom(context.Background(), NewRoomFixture(opts...).Persistence())
	if err != nil {
		tb.Fatalf("seed room: %v", err)
	}
	return room
}

// SeedMember stores a member fixture and returns the stored record.
func (h *SQLiteHarness) SeedMember(tb testing.TB, opts ...MemberOption) persistence.Member {
	tb.Helper()
	member, err := h.Members.CreateMember(context.Background(), NewMemberFixture(opts...).Persistence())
	if err != nil {
		tb.Fatalf("seed member: %v", err)
	}
	return member
}
