package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	apperrors "trading-journal/internal/errors"
)

const kvTable = "kv"

// SQLiteStore implements KV using SQLite.
type SQLiteStore struct {
	db *sql.DB
	sq squirrel.StatementBuilderType
}

// NewSQLiteStore creates a new SQLite-based key-value store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{
		db: db,
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the key-value table.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns the value stored under key.
func (s *SQLiteStore) Load(ctx context.Context, key string) ([]byte, error) {
	query, args, err := s.sq.
		Select("value").
		From(kvTable).
		Where(squirrel.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, apperrors.NewStoreError(key, "load", err)
	}

	var value []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.NewStoreError(key, "load", err)
	}
	return value, nil
}

// Save stores value under key, replacing any previous value.
func (s *SQLiteStore) Save(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	query, args, err := s.sq.
		Insert(kvTable).
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UTC()).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return apperrors.NewStoreError(key, "save", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewStoreError(key, "save", err)
	}
	return nil
}

// Delete removes key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	query, args, err := s.sq.
		Delete(kvTable).
		Where(squirrel.Eq{"key": key}).
		ToSql()
	if err != nil {
		return apperrors.NewStoreError(key, "delete", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewStoreError(key, "delete", err)
	}
	return nil
}

// Keys lists keys with the given prefix.
func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	builder := s.sq.
		Select("key").
		From(kvTable).
		OrderBy("key ASC")
	if prefix != "" {
		// LIKE would treat '_' in key prefixes as a wildcard
		builder = builder.Where(squirrel.Expr("substr(key, 1, ?) = ?", len(prefix), prefix))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, apperrors.NewStoreError(prefix, "keys", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError(prefix, "keys", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, apperrors.NewStoreError(prefix, "keys", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError(prefix, "keys", err)
	}
	return keys, nil
}

// UpdatedAt returns when key was last saved.
func (s *SQLiteStore) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	query, args, err := s.sq.
		Select("updated_at").
		From(kvTable).
		Where(squirrel.Eq{"key": key}).
		ToSql()
	if err != nil {
		return time.Time{}, apperrors.NewStoreError(key, "updated_at", err)
	}

	var updated time.Time
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&updated)
	if err == sql.ErrNoRows {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, apperrors.NewStoreError(key, "updated_at", err)
	}
	return updated, nil
}
