package database

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// MigrationsFS holds the migration files, one subdirectory per dialect
// ("sqlite", "postgres"). The migrations package registers the embedded
// set in its init function; a nil FS means there is nothing to apply.
//
// Files are named VERSION_description.up.sql and VERSION_description.down.sql
// where VERSION is YYYYMMDD_HHMMSS. The down file is optional.
var MigrationsFS fs.FS

// Migration is one schema version of the current dialect.
type Migration struct {
	Version string // YYYYMMDD_HHMMSS
	Name    string // description part of the file name
	UpSQL   string
	DownSQL string // empty when the version cannot be rolled back
}

// MigrationRecord is a row of schema_migrations.
type MigrationRecord struct {
	Version   string
	AppliedAt time.Time
}

// MigrationStatus splits the known versions into applied and pending,
// both oldest first.
type MigrationStatus struct {
	Applied []MigrationRecord
	Pending []Migration
}

// Migrate applies every pending version, oldest first, one transaction
// per version. A failing version is rolled back and stops the run; the
// versions before it stay applied, so a rerun resumes from the failure.
func (db *DB) Migrate(ctx context.Context) error {
	status, err := db.MigrationStatus(ctx)
	if err != nil {
		return err
	}

	for _, m := range status.Pending {
		err := db.WithTx(ctx, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
				return fmt.Errorf("executing SQL: %w", err)
			}
			_, err := tx.ExecContext(ctx,
				tx.Rebind("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)"),
				m.Version, time.Now().UTC().Format(time.RFC3339))
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// Rollback reverts the newest applied version and returns it, or nil when
// nothing is applied.
func (db *DB) Rollback(ctx context.Context) (*Migration, error) {
	status, err := db.MigrationStatus(ctx)
	if err != nil {
		return nil, err
	}
	if len(status.Applied) == 0 {
		return nil, nil
	}
	latest := status.Applied[len(status.Applied)-1].Version

	known, err := loadMigrations(db.Dialect())
	if err != nil {
		return nil, err
	}
	idx := sort.Search(len(known), func(i int) bool { return known[i].Version >= latest })
	if idx == len(known) || known[idx].Version != latest {
		return nil, fmt.Errorf("migration %s is applied but has no files", latest)
	}
	m := known[idx]
	if m.DownSQL == "" {
		return nil, fmt.Errorf("migration %s (%s) has no down SQL", m.Version, m.Name)
	}

	err = db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
			return fmt.Errorf("executing down SQL: %w", err)
		}
		_, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM schema_migrations WHERE version = ?"), m.Version)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("rolling back %s (%s): %w", m.Version, m.Name, err)
	}
	return &m, nil
}

// MigrationStatus reports applied and pending versions, creating the
// bookkeeping table on first use.
func (db *DB) MigrationStatus(ctx context.Context) (MigrationStatus, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return MigrationStatus{}, fmt.Errorf("creating migrations table: %w", err)
	}

	var rows []struct {
		Version   string `db:"version"`
		AppliedAt string `db:"applied_at"`
	}
	if err := db.SelectContext(ctx, &rows, "SELECT version, applied_at FROM schema_migrations ORDER BY version"); err != nil {
		return MigrationStatus{}, fmt.Errorf("reading applied migrations: %w", err)
	}

	known, err := loadMigrations(db.Dialect())
	if err != nil {
		return MigrationStatus{}, err
	}

	var status MigrationStatus
	applied := make(map[string]bool, len(rows))
	for _, row := range rows {
		appliedAt, _ := time.Parse(time.RFC3339, row.AppliedAt) //nolint:errcheck // written by Migrate
		status.Applied = append(status.Applied, MigrationRecord{Version: row.Version, AppliedAt: appliedAt})
		applied[row.Version] = true
	}
	for _, m := range known {
		if !applied[m.Version] {
			status.Pending = append(status.Pending, m)
		}
	}
	return status, nil
}

// loadMigrations reads the dialect's directory of MigrationsFS, sorted by
// version. Files that do not follow the naming scheme are ignored.
func loadMigrations(dialect string) ([]Migration, error) {
	if MigrationsFS == nil {
		return nil, nil
	}
	entries, err := fs.ReadDir(MigrationsFS, dialect)
	if err != nil {
		return nil, nil //nolint:nilerr // a dialect without a directory has no migrations
	}

	byVersion := make(map[string]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		file, ok := parseMigrationFile(entry.Name())
		if !ok {
			continue
		}
		data, err := fs.ReadFile(MigrationsFS, path.Join(dialect, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		m := byVersion[file.version]
		if m == nil {
			m = &Migration{Version: file.version}
			byVersion[file.version] = m
		}
		if file.up {
			m.Name = file.name
			m.UpSQL = string(data)
		} else {
			m.DownSQL = string(data)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" {
			return nil, fmt.Errorf("migration %s has a down file but no up file", m.Version)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

type migrationFile struct {
	version string
	name    string
	up      bool
}

// parseMigrationFile splits "20260301_090000_initial_schema.up.sql" into
// its version, name and direction.
func parseMigrationFile(filename string) (migrationFile, bool) {
	base, ok := strings.CutSuffix(filename, ".sql")
	if !ok {
		return migrationFile{}, false
	}

	var f migrationFile
	if rest, isUp := strings.CutSuffix(base, ".up"); isUp {
		base, f.up = rest, true
	} else if rest, isDown := strings.CutSuffix(base, ".down"); isDown {
		base = rest
	} else {
		return migrationFile{}, false
	}

	parts := strings.SplitN(base, "_", 3)
	if len(parts) < 2 || len(parts[0]) != 8 || len(parts[1]) != 6 {
		return migrationFile{}, false
	}
	f.version = parts[0] + "_" + parts[1]
	f.name = f.version
	if len(parts) == 3 {
		f.name = parts[2]
	}
	return f, true
}
