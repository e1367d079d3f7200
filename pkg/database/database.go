// Package database wraps the local SQLite file that keeps the session between runs.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/lepinkainen/seodash/pkg/filesystem"
)

var (
	// dbCache stores active database connections, keyed by path
	dbCache = make(map[string]*Database)
	// cacheMutex protects the dbCache
	cacheMutex = &sync.Mutex{}
)

// Database represents a thread-safe database connection
type Database struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Config holds database configuration
type Config struct {
	Path    string
	Timeout time.Duration
}

// DefaultConfig returns the default database configuration
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
	}
}

// Open opens (or reuses) the SQLite database at config.Path, creating its directory first
func Open(config Config) (*Database, error) {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	// If a connection for this path already exists, return it
	if db, ok := dbCache[config.Path]; ok {
		return db, nil
	}

	if config.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	if config.Path != ":memory:" {
		if err := filesystem.EnsureDirectoryExists(config.Path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", config.Path, err)
	}

	if err := configure(db, config.Timeout); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
		return nil, err
	}

	database := &Database{
		db:     db,
		dbPath: config.Path,
	}

	// Store the new connection in the cache
	dbCache[config.Path] = database

	return database, nil
}

// configure applies the SQLite pragmas and pool settings, then pings
func configure(db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil { // 5 second timeout for lock contention
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to read journal mode: %w", err)
	}

	if !strings.EqualFold(journalMode, "wal") && !strings.EqualFold(journalMode, "memory") {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			return fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	pragmas := []string{
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=memory",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	// A single CLI process writes the store; one connection keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	return db.PingContext(ctx)
}

// Close closes the database connection
func (db *Database) Close() error {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	// Remove the connection from the cache
	delete(dbCache, db.dbPath)

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// DB returns the underlying sql.DB instance (thread-safe)
func (db *Database) DB() *sql.DB {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.db
}

// Path returns the database file path
func (db *Database) Path() string {
	return db.dbPath
}

// ExecuteSchema executes a schema statement
func (db *Database) ExecuteSchema(ctx context.Context, schema string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.db.ExecContext(ctx, schema)
	return err
}
