package database

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Database configuration constants.
const (
	// dirPermissions is the permission mode for the SQLite database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the SQLite database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	// Default server ports when Config.Port is zero.
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432

	// memoryPath opens a private in-memory SQLite database.
	memoryPath = ":memory:"
)

// DB owns exactly one live database handle opened from a Config.
//
// The embedded *sqlx.DB is the raw handle for callers that need it. The pool is
// capped at a single connection, so statements issued through a DB are
// serialised; callers wanting parallelism open one DB per worker.
type DB struct {
	*sqlx.DB
	cfg     Config
	dialect Dialect
}

// Config contains the connection parameters. It is treated as an immutable
// value: Open copies it and nothing in this package mutates it afterwards.
type Config struct {
	// Driver selects the database/sql driver: sqlite3, mysql or postgres.
	Driver string

	Host     string
	Port     int
	Username string
	Password string
	Database string

	// Path is the filesystem path to the SQLite database file.
	// The directory will be created if it doesn't exist.
	Path string

	// WALMode enables Write-Ahead Logging for SQLite.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a SQLite lock (seconds).
	BusyTimeout int

	// SSLMode is passed to PostgreSQL as sslmode (default "disable").
	SSLMode string

	// Params are extra DSN parameters. For MySQL they become session variables.
	Params map[string]string
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []string

	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			errs = append(errs, "path is required for sqlite3")
		}
	case DriverMySQL, DriverPostgres:
		if c.Host == "" {
			errs = append(errs, "host is required")
		}
		if c.Database == "" {
			errs = append(errs, "database name is required")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, "port must be between 0 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// DSN builds the driver-specific connection string.
func (c Config) DSN() (string, error) {
	switch c.Driver {
	case DriverSQLite:
		return c.sqliteDSN(), nil
	case DriverMySQL:
		return c.mysqlDSN(), nil
	case DriverPostgres:
		return c.postgresDSN(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
}

// sqliteDSN builds a file: URI with pragmas.
// See: https://github.com/mattn/go-sqlite3#connection-string
func (c Config) sqliteDSN() string {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		c.Path,
		c.BusyTimeout*msPerSecond,
	)

	if c.WALMode && c.Path != memoryPath {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	for _, k := range sortedKeys(c.Params) {
		dsn += "&" + url.QueryEscape(k) + "=" + url.QueryEscape(c.Params[k])
	}
	return dsn
}

func (c Config) mysqlDSN() string {
	mc := mysql.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.portOr(defaultMySQLPort)))
	mc.DBName = c.Database
	mc.ParseTime = true
	if len(c.Params) > 0 {
		mc.Params = maps.Clone(c.Params)
	}
	return mc.FormatDSN()
}

func (c Config) postgresDSN() string {
	q := url.Values{}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q.Set("sslmode", sslMode)
	for k, v := range c.Params {
		q.Set(k, v)
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.portOr(defaultPostgresPort))),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u.String()
}

func (c Config) portOr(def int) int {
	if c.Port == 0 {
		return def
	}
	return c.Port
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Open creates the connection eagerly and fails fast.
//
// It performs the following setup:
//  1. Validates the configuration and resolves the dialect
//  2. Creates the SQLite directory if needed
//  3. Opens the handle, capped at one connection
//  4. Verifies the connection with a ping
//
// Any failure is wrapped in ErrConnectionFailed.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	cfg.Params = maps.Clone(cfg.Params)

	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if cfg.Driver == DriverSQLite && cfg.Path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
			return nil, fmt.Errorf("%w: creating database directory: %w", ErrConnectionFailed, err)
		}
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	sqlxDB, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", ErrConnectionFailed, err)
	}

	// One live handle, kept for the lifetime of the DB.
	sqlxDB.SetMaxOpenConns(1)
	sqlxDB.SetMaxIdleConns(1)
	sqlxDB.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := sqlxDB.PingContext(pingCtx); err != nil {
		sqlxDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: verifying database connection: %w", ErrConnectionFailed, err)
	}

	if cfg.Driver == DriverSQLite && cfg.Path != memoryPath {
		_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // File may be created lazily on first write
	}

	return &DB{
		DB:      sqlxDB,
		cfg:     cfg,
		dialect: dialect,
	}, nil
}

// Close closes the database handle.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Config returns a copy of the configuration the DB was opened with.
func (db *DB) Config() Config {
	return db.cfg
}

// Dialect returns the SQL dialect of the underlying driver.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// HealthCheck verifies the database is accessible and functioning.
func (db *DB) HealthCheck(ctx context.Context) error {
	var result int
	if err := db.QueryRowxContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// BeginTxx starts a new transaction with the given options.
//
// Example:
//
//	tx, err := db.BeginTxx(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback() // No-op if committed
//
//	// ... execute statements on tx ...
//
//	return tx.Commit()
func (db *DB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	tx, err := db.DB.BeginTxx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return tx, nil
}
