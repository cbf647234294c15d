// Package database provides SQL connectivity for Taller Core.
//
// This package manages:
//   - Connections through sqlx for three drivers: mattn/go-sqlite3 ("sqlite3"),
//     modernc.org/sqlite ("sqlite") and pgx ("pgx")
//   - Schema migrations, one embedded directory per dialect
//   - Connection pooling and lifecycle management
//   - Driver-independent classification of constraint violations
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - SQLite database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Driver: "sqlite3", Path: "./data/taller.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Queries are written with ? placeholders and passed through Rebind, so
// the same repository code runs against SQLite and PostgreSQL.
//
// Migration Strategy:
//   - Files are named YYYYMMDD_HHMMSS_description.{up,down}.sql
//   - Each dialect directory carries the same versions
//   - Each migration runs in its own transaction
package database
