package migration

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
)

// migrationManagerImpl implements the MigrationManager interface
type migrationManagerImpl struct {
	scanner  FileScanner
	executor Executor
	fsys     fs.FS
	dir      string
	logger   *slog.Logger
}

// NewMigrationManager creates a manager applying the migrations found in dir of fsys
func NewMigrationManager(scanner FileScanner, executor Executor, fsys fs.FS, dir string, logger *slog.Logger) MigrationManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &migrationManagerImpl{
		scanner:  scanner,
		executor: executor,
		fsys:     fsys,
		dir:      dir,
		logger:   logger.With("component", "migration"),
	}
}

// RunMigrations executes all pending migrations in sequential order
func (m *migrationManagerImpl) RunMigrations(ctx context.Context) error {
	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to determine pending migrations", "error", err)
		return err
	}
	if len(pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date")
		return nil
	}

	for i, migration := range pending {
		logger := m.logger.With("version", migration.Version, "description", migration.Description)
		elapsed, err := m.executor.ExecuteMigration(ctx, migration)
		if err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}
		logger.InfoContext(ctx, "migration applied",
			"position", i+1,
			"pending", len(pending),
			"duration", elapsed,
		)
	}
	return nil
}

// GetPendingMigrations returns list of migrations that need to be applied
func (m *migrationManagerImpl) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := m.scanner.ScanMigrations(m.fsys, m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, err
	}

	appliedSet := make(map[int]struct{}, len(applied))
	for _, a := range applied {
		v, _ := strconv.Atoi(a.Version)
		appliedSet[v] = struct{}{}
	}

	var pending []Migration
	for _, migration := range available {
		v, _ := strconv.Atoi(migration.Version)
		if _, ok := appliedSet[v]; !ok {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// GetMigrationStatus returns status information about migrations
func (m *migrationManagerImpl) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return nil, err
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	status := &MigrationStatus{
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}
	highest := -1
	for _, a := range applied {
		if v, err := strconv.Atoi(a.Version); err == nil && v > highest {
			highest = v
			status.CurrentVersion = a.Version
		}
	}
	return status, nil
}

// validateSequence rejects gaps in the available versions, applied versions
// without a file, and applied files whose content changed afterwards.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	byVersion := make(map[int]Migration, len(available))
	for i, migration := range available {
		v, err := strconv.Atoi(migration.Version)
		if err != nil {
			return NewMigrationError(migration.Version, migration.FilePath, "validate sequence",
				fmt.Errorf("%w: version '%s' is not numeric", ErrInvalidVersion, migration.Version))
		}
		if i > 0 {
			prev, _ := strconv.Atoi(available[i-1].Version)
			if v != prev+1 {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, prev+1)
			}
		}
		byVersion[v] = migration
	}

	for _, a := range applied {
		v, err := strconv.Atoi(a.Version)
		if err != nil {
			return NewDatabaseError(a.Version, "", "validate sequence",
				fmt.Errorf("%w: applied version '%s' is not numeric", ErrInvalidVersion, a.Version))
		}
		migration, ok := byVersion[v]
		if !ok {
			return fmt.Errorf("%w: applied migration %03d not found in available migrations", ErrVersionConflict, v)
		}
		if a.Checksum != "" && a.Checksum != migration.Checksum {
			return NewMigrationError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return nil
}
