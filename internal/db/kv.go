package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// KV is a string key/value store on the kv table.
type KV struct {
	db *sql.DB
}

// NewKV creates a key/value store on an opened database.
func NewKV(db *sql.DB) *KV {
	return &KV{db: db}
}

// Get returns the value for key. ok is false when the key is absent.
func (s *KV) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading key %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value and bumping its
// version.
func (s *KV) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, version, updated_at) VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, version = kv.version + 1, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing key %q: %w", key, err)
	}
	return nil
}

// Version returns the write counter of key, 0 when the key is absent.
func (s *KV) Version(ctx context.Context, key string) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, "SELECT version FROM kv WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading version of %q: %w", key, err)
	}
	return v, nil
}

// Watch polls key every interval and calls onChange when its version moves,
// including writes made by other processes on the same file. It returns
// when ctx is done.
func (s *KV) Watch(ctx context.Context, key string, every time.Duration, onChange func()) {
	last, err := s.Version(ctx, key)
	if err != nil {
		slog.Warn("reading key version", "key", key, "error", err)
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		v, err := s.Version(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("polling key version", "key", key, "error", err)
			continue
		}
		if v != last {
			last = v
			onChange()
		}
	}
}
