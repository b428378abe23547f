// Package migration applies versioned SQL schema changes to a SQLite database.
//
// Migration files are named {version}_{description}.sql (for example
// "001_initial_schema.sql") and are read from an fs.FS, typically an embedded
// directory compiled into the binary. Each file runs inside its own
// transaction and is recorded in the schema_migrations table together with its
// checksum and execution time, so a database is only ever migrated forward
// once per version.
//
// Statements are split on semicolons, except inside CREATE TRIGGER bodies,
// which run up to their closing END;.
//
// Example usage:
//
//	manager := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(db), migrationsFS, ".", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
