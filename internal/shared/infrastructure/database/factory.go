package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Driver names a storage backend.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

func (d Driver) String() string {
	return string(d)
}

// DetectDriver picks a driver from a connection string. An empty string
// means the local SQLite store.
func DetectDriver(url string) Driver {
	switch {
	case url == "":
		return DriverSQLite
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(url, "file:"),
		strings.HasSuffix(url, ".db"),
		strings.HasSuffix(url, ".sqlite"),
		strings.HasSuffix(url, ".sqlite3"):
		return DriverSQLite
	default:
		return DriverPostgres
	}
}

// Config describes which store to open.
type Config struct {
	// Driver is detected from URL when empty.
	Driver Driver
	// URL is the Postgres connection string.
	URL string
	// SQLitePath defaults to ~/.lakron/data.db.
	SQLitePath string
	// MaxConns caps the Postgres pool.
	MaxConns int
}

// Opener opens a connection for one driver.
type Opener func(ctx context.Context, cfg Config) (Connection, error)

var openers = map[Driver]Opener{}

// Register makes a driver available to Open. Driver packages call it from init.
func Register(driver Driver, open Opener) {
	openers[driver] = open
}

// Open connects to the store described by cfg.
func Open(ctx context.Context, cfg Config) (Connection, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DetectDriver(cfg.URL)
	}

	open, ok := openers[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	return open(ctx, cfg)
}

// DefaultSQLitePath returns ~/.lakron/data.db.
func DefaultSQLitePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".lakron", "data.db")
}

// EnsureDirectory creates the parent directory of path.
func EnsureDirectory(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o700)
}
