// Package migration applies versioned SQL migrations to a SQLite database.
//
// Migration files are read from an fs.FS (usually an embed.FS compiled into
// the binary) and must follow the {version}_{description}.sql naming
// convention, e.g. "001_create_events.sql". Each file runs inside its own
// transaction and is recorded in the schema_migrations table so it is never
// applied twice.
//
//	manager := migration.NewManager(migration.NewScanner(), migration.NewSQLiteExecutor(db), files, logger)
//	applied, err := manager.Run(ctx)
package migration
