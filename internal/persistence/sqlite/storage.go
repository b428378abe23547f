package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/meeting-booking/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the connection pool with the repositories built on it.
type Storage struct {
	pool *ConnectionPool

	Rooms    *RoomRepository
	Members  *MemberRepository
	Meetings *MeetingRepository
	CheckIns *CheckInRepository
}

// Open connects to the database described by config. Call Migrate before use.
func Open(config migration.SQLiteConfig) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:     pool,
		Rooms:    NewRoomRepository(pool),
		Members:  NewMemberRepository(pool),
		Meetings: NewMeetingRepository(pool),
		CheckIns: NewCheckInRepository(pool),
	}, nil
}

// Pool exposes the underlying connection pool.
func (s *Storage) Pool() *ConnectionPool {
	return s.pool
}

// Migrate applies the embedded schema migrations that have not run yet.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) error {
	if err := s.migrator(logger).RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// MigrationStatus reports the applied schema version and what is still pending.
func (s *Storage) MigrationStatus(ctx context.Context, logger *slog.Logger) (*migration.MigrationStatus, error) {
	status, err := s.migrator(logger).GetMigrationStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: migration status: %w", err)
	}
	return status, nil
}

func (s *Storage) migrator(logger *slog.Logger) migration.MigrationManager {
	return migration.NewMigrationManager(
		migration.NewFileScanner(),
		migration.NewSQLiteExecutor(s.pool.DB()),
		migrationFiles,
		"migrations",
		logger,
	)
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
