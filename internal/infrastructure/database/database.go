package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver ("pgx")
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3" // SQLite driver ("sqlite3", cgo)
	"modernc.org/sqlite"          // SQLite driver ("sqlite", pure Go)
	sqlitelib "modernc.org/sqlite/lib"
)

// Supported driver names.
const (
	DriverSQLite3  = "sqlite3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Dialects, used to pick the migration set.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Database configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	// connMaxIdleTime is how long idle connections are kept open.
	connMaxIdleTime = 30 * time.Minute
)

// Postgres SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func init() {
	// sqlx only knows the cgo driver name out of the box.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// ErrUnsupportedDriver is returned by Open for an unknown driver name.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// DB wraps a sqlx.DB connection with Taller-specific functionality.
// It provides migration support, health checks, and proper lifecycle management.
type DB struct {
	*sqlx.DB
	driver string
	path   string
}

// Config contains database configuration options.
// These map to the database section of config.yaml.
type Config struct {
	// Driver is one of "sqlite3", "sqlite" or "pgx".
	Driver string

	// Path is the filesystem path to the SQLite database file.
	// The directory will be created if it doesn't exist.
	Path string

	// DSN is the PostgreSQL connection string.
	DSN string

	// WALMode enables Write-Ahead Logging for SQLite.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a SQLite lock (seconds).
	BusyTimeout int

	// MaxOpenConns and MaxIdleConns size the PostgreSQL pool.
	// SQLite always uses a single connection.
	MaxOpenConns int
	MaxIdleConns int
}

// Open creates a new database connection with the specified configuration.
//
// For SQLite it creates the database directory, enables foreign keys,
// WAL mode and the busy timeout, and restricts the pool to one connection.
// For PostgreSQL it sizes the pool from cfg. Both verify the connection
// with a ping before returning.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	var (
		sqlxDB *sqlx.DB
		err    error
	)

	switch cfg.Driver {
	case DriverSQLite3, DriverSQLite, "":
		sqlxDB, err = openSQLite(cfg)
	case DriverPostgres:
		sqlxDB, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	db := &DB{
		DB:     sqlxDB,
		driver: sqlxDB.DriverName(),
		path:   cfg.Path,
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		sqlxDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if db.IsSQLite() {
		_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // File may appear only after first write
	}

	return db, nil
}

func openSQLite(cfg Config) (*sqlx.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite3
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	var connStr string
	if driver == DriverSQLite3 {
		// See: https://github.com/mattn/go-sqlite3#connection-string
		connStr = fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
			cfg.Path, cfg.BusyTimeout*msPerSecond)
		if cfg.WALMode {
			connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
		}
	} else {
		// modernc.org/sqlite takes pragmas as repeated _pragma parameters.
		connStr = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
			cfg.Path, cfg.BusyTimeout*msPerSecond)
		if cfg.WALMode {
			connStr += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
		}
	}

	db, err := sqlx.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite has a single writer. Every statement inside a transaction
	// must therefore run on that transaction, not on the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	return db, nil
}

func openPostgres(cfg Config) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("opening database: empty postgres dsn")
	}

	db, err := sqlx.Open(DriverPostgres, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	return db, nil
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the database file (SQLite only).
func (db *DB) Path() string {
	return db.path
}

// Driver returns the registered driver name.
func (db *DB) Driver() string {
	return db.driver
}

// IsSQLite reports whether the connection uses one of the SQLite drivers.
func (db *DB) IsSQLite() bool {
	return db.driver == DriverSQLite3 || db.driver == DriverSQLite
}

// Dialect returns the SQL dialect name of the connection.
func (db *DB) Dialect() string {
	if db.IsSQLite() {
		return DialectSQLite
	}
	return DialectPostgres
}

// HealthCheck verifies the database is accessible and functioning.
func (db *DB) HealthCheck(ctx context.Context) error {
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Stats returns database connection pool statistics.
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, including when ctx is cancelled.
//
// Example:
//
//	err := db.WithTx(ctx, func(tx *sqlx.Tx) error {
//	    // ... execute queries on tx ...
//	    return nil
//	})
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique or primary key
// constraint failure from any supported driver.
func IsUniqueViolation(err error) bool {
	var mattnErr sqlite3.Error
	if errors.As(err, &mattnErr) {
		return mattnErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			mattnErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var modernErr *sqlite.Error
	if errors.As(err, &modernErr) {
		return modernErr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE ||
			modernErr.Code() == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return false
}

// IsForeignKeyViolation reports whether err is a foreign key constraint
// failure from any supported driver.
func IsForeignKeyViolation(err error) bool {
	var mattnErr sqlite3.Error
	if errors.As(err, &mattnErr) {
		return mattnErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}

	var modernErr *sqlite.Error
	if errors.As(err, &modernErr) {
		return modernErr.Code() == sqlitelib.SQLITE_CONSTRAINT_FOREIGNKEY
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}

	return false
}

// RequireRows returns notFound when result affected no rows, and wraps a
// driver that cannot report the count.
func RequireRows(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
