package database

import (
	"context"
	"fmt"
	"os"
)

// Info describes the local store for `seodash status`
type Info struct {
	Path          string `json:"path" yaml:"path"`
	SQLiteVersion string `json:"sqlite_version" yaml:"sqlite_version"`
	FileSizeBytes int64  `json:"file_size_bytes" yaml:"file_size_bytes"`
	TableCount    int    `json:"table_count" yaml:"table_count"`
}

// DatabaseExists checks if a database file exists
func DatabaseExists(dbPath string) bool {
	_, err := os.Stat(dbPath)
	return !os.IsNotExist(err)
}

// GetDatabaseSize returns the size of the database file in bytes
func GetDatabaseSize(dbPath string) (int64, error) {
	info, err := os.Stat(dbPath)
	if err != nil {
		return 0, fmt.Errorf("failed to get database file info: %w", err)
	}

	return info.Size(), nil
}

// GetDatabaseInfo returns information about the database
func GetDatabaseInfo(ctx context.Context, db *Database) (*Info, error) {
	info := &Info{Path: db.Path()}

	if err := db.DB().QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&info.SQLiteVersion); err != nil {
		return nil, fmt.Errorf("failed to get SQLite version: %w", err)
	}

	// in-memory databases have no file
	if size, err := GetDatabaseSize(db.Path()); err == nil {
		info.FileSizeBytes = size
	}

	err := db.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&info.TableCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get table count: %w", err)
	}

	return info, nil
}
