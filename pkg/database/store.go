package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

// DefaultTable is the table holding persisted client state
const DefaultTable = "client_state"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// KVStore is a string key/value table on top of the database.
// Entries may carry an expiry; expired entries read as absent.
type KVStore struct {
	db        *Database
	tableName string
	now       func() time.Time
}

// NewKVStore creates the store table if needed and returns the store
func NewKVStore(ctx context.Context, db *Database, tableName string) (*KVStore, error) {
	if tableName == "" {
		tableName = DefaultTable
	}
	if !tableNamePattern.MatchString(tableName) {
		return nil, fmt.Errorf("invalid table name %q", tableName)
	}

	s := &KVStore{db: db, tableName: tableName, now: time.Now}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at INTEGER,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%s_expires ON %s(expires_at);
	`, tableName, tableName, tableName)

	if err := db.ExecuteSchema(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create %s table: %w", tableName, err)
	}

	return s, nil
}

// Get retrieves a value. The boolean is false when the key is missing or expired.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := fmt.Sprintf(`
		SELECT value FROM %s
		WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)
	`, s.tableName)

	var value string
	err := s.db.DB().QueryRowContext(ctx, query, key, s.now().Unix()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	return value, true, nil
}

// Set stores a value without expiry
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	return s.set(ctx, key, value, sql.NullInt64{})
}

// SetWithTTL stores a value that expires after ttl
func (s *KVStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.set(ctx, key, value, sql.NullInt64{Int64: s.now().Add(ttl).Unix(), Valid: true})
}

func (s *KVStore) set(ctx context.Context, key, value string, expiresAt sql.NullInt64) error {
	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, s.tableName)

	if _, err := s.db.DB().ExecContext(ctx, query, key, value, expiresAt, s.now().Unix()); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	return nil
}

// Delete removes a value. Deleting a missing key is not an error.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.tableName)

	if _, err := s.db.DB().ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	return nil
}

// CleanupExpired removes expired entries
func (s *KVStore) CleanupExpired(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.tableName)

	result, err := s.db.DB().ExecContext(ctx, query, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to cleanup expired entries: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		slog.Debug("Cleaned up expired entries", "table", s.tableName, "count", rowsAffected)
	}

	return nil
}

// Count returns the number of live entries
func (s *KVStore) Count(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE expires_at IS NULL OR expires_at > ?`, s.tableName)

	var n int64
	if err := s.db.DB().QueryRowContext(ctx, query, s.now().Unix()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}
