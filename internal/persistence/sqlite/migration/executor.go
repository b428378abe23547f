package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLiteExecutor implements the Executor interface for SQLite databases
type SQLiteExecutor struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteExecutor creates a new SQLite migration executor
func NewSQLiteExecutor(db *sql.DB) *SQLiteExecutor {
	return &SQLiteExecutor{db: db, now: time.Now}
}

// ExecuteMigration runs every statement of the migration and records the
// version in one transaction, so a failed migration leaves no trace.
func (e *SQLiteExecutor) ExecuteMigration(ctx context.Context, migration Migration) (elapsed time.Duration, err error) {
	statements := splitStatements(migration.SQL)
	if len(statements) == 0 {
		return 0, NewMigrationError(migration.Version, migration.FilePath, "parse SQL",
			fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile))
	}

	started := e.now()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, NewDatabaseError(migration.Version, "", "begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	for i, stmt := range statements {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			err = NewDatabaseError(migration.Version, stmt, fmt.Sprintf("execute statement %d", i+1), execErr)
			return 0, err
		}
	}

	elapsed = e.now().Sub(started)
	if _, execErr := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at, execution_time_ms, checksum) VALUES (?, ?, ?, ?)`,
		migration.Version,
		e.now().UTC().Format(time.RFC3339),
		elapsed.Milliseconds(),
		migration.Checksum,
	); execErr != nil {
		err = NewDatabaseError(migration.Version, "", "record migration", execErr)
		return 0, err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = NewDatabaseError(migration.Version, "", "commit transaction", commitErr)
		return 0, err
	}
	return elapsed, nil
}

// InitializeVersionTable creates the schema_migrations table if it doesn't exist
func (e *SQLiteExecutor) InitializeVersionTable(ctx context.Context) error {
	const stmt = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			execution_time_ms INTEGER NOT NULL DEFAULT 0,
			checksum TEXT NOT NULL DEFAULT ''
		)`
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return NewDatabaseError("", stmt, "create version table", err)
	}
	return nil
}

// GetAppliedVersions returns all applied migration versions with timestamps
func (e *SQLiteExecutor) GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	const query = `
		SELECT version, applied_at, execution_time_ms, checksum
		FROM schema_migrations
		ORDER BY CAST(version AS INTEGER) ASC`

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, NewDatabaseError("", query, "get applied versions", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			version, appliedAt, checksum string
			executionMs                  int64
		)
		if err := rows.Scan(&version, &appliedAt, &executionMs, &checksum); err != nil {
			return nil, NewDatabaseError("", query, "scan applied migration", err)
		}
		at, err := time.Parse(time.RFC3339, appliedAt)
		if err != nil {
			return nil, NewDatabaseError(version, query, "parse applied_at", err)
		}
		applied = append(applied, AppliedMigration{
			Version:       version,
			AppliedAt:     at,
			ExecutionTime: time.Duration(executionMs) * time.Millisecond,
			Checksum:      checksum,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, NewDatabaseError("", query, "iterate applied migrations", err)
	}
	return applied, nil
}

// splitStatements breaks a migration into executable statements. Whole-line
// "--" comments are dropped. A statement normally ends at a line ending in
// ";", but a CREATE TRIGGER statement runs until its "END;" line.
func splitStatements(content string) []string {
	var (
		statements []string
		current    []string
		inTrigger  bool
	)

	flush := func() {
		stmt := strings.TrimSpace(strings.Join(current, "\n"))
		stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current = current[:0]
		inTrigger = false
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		if len(current) == 0 {
			upper := strings.ToUpper(trimmed)
			inTrigger = strings.HasPrefix(upper, "CREATE TRIGGER") || strings.HasPrefix(upper, "CREATE TEMP TRIGGER")
		}
		current = append(current, line)

		if inTrigger {
			if strings.EqualFold(trimmed, "END;") {
				flush()
			}
			continue
		}
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()

	return statements
}
