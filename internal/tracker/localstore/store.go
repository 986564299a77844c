// Package localstore provides durable device-local persistence for the
// tracker: the current record set and the session marker, stored under two
// fixed keys in a SQLite key-value table.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/mkarsten/ironlog/internal/platform/errors"
	sqlitemigrate "github.com/mkarsten/ironlog/internal/platform/storage/sqlitemigrate"
	"github.com/mkarsten/ironlog/internal/tracker/localstore/migrations"
	"github.com/mkarsten/ironlog/internal/workout"
	_ "modernc.org/sqlite"
)

const (
	keyExercises = "exercises"
	keySession   = "session"
)

// SessionMarker records which session mode was last active on this device.
//
// Guest and credential fields are mutually exclusive: activating guest mode
// clears any stored credential and vice versa.
type SessionMarker struct {
	Guest  bool   `json:"guest,omitempty"`
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
	Token  string `json:"token,omitempty"`
}

// Authenticated reports whether the marker holds a stored credential.
func (m SessionMarker) Authenticated() bool {
	return m.UserID != "" && m.Token != ""
}

// Store persists tracker state in a device-local SQLite file.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the device store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveRecordSet serializes the full record set under the exercises key,
// overwriting any prior value.
func (s *Store) SaveRecordSet(ctx context.Context, records []workout.Exercise) error {
	if records == nil {
		records = []workout.Exercise{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeLocalWriteFailed, "encode record set", err)
	}
	if err := s.put(ctx, keyExercises, payload); err != nil {
		return apperrors.Wrap(apperrors.CodeLocalWriteFailed, "save record set", err)
	}
	return nil
}

// LoadRecordSet returns the previously saved record set, or an empty set when
// none exists. Undecodable stored data is reported as CodeLocalDataCorrupt so
// the caller can fall back to an empty set without crashing.
func (s *Store) LoadRecordSet(ctx context.Context) ([]workout.Exercise, error) {
	payload, found, err := s.get(ctx, keyExercises)
	if err != nil {
		return nil, fmt.Errorf("load record set: %w", err)
	}
	if !found {
		return []workout.Exercise{}, nil
	}

	var records []workout.Exercise
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeLocalDataCorrupt, "decode record set", err)
	}
	for _, record := range records {
		if record.ID == "" || record.Date.IsZero() {
			return nil, apperrors.New(apperrors.CodeLocalDataCorrupt, "record set is missing required fields")
		}
	}
	if records == nil {
		records = []workout.Exercise{}
	}
	return records, nil
}

// SaveSessionMarker persists the session marker, surviving process restart.
func (s *Store) SaveSessionMarker(ctx context.Context, marker SessionMarker) error {
	payload, err := json.Marshal(marker)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeLocalWriteFailed, "encode session marker", err)
	}
	if err := s.put(ctx, keySession, payload); err != nil {
		return apperrors.Wrap(apperrors.CodeLocalWriteFailed, "save session marker", err)
	}
	return nil
}

// LoadSessionMarker retrieves the last active session marker. A missing or
// undecodable marker resolves to the zero marker, never an error a caller
// must branch on.
func (s *Store) LoadSessionMarker(ctx context.Context) (SessionMarker, error) {
	payload, found, err := s.get(ctx, keySession)
	if err != nil {
		return SessionMarker{}, fmt.Errorf("load session marker: %w", err)
	}
	if !found {
		return SessionMarker{}, nil
	}
	var marker SessionMarker
	if err := json.Unmarshal(payload, &marker); err != nil {
		return SessionMarker{}, nil
	}
	return marker, nil
}

// ClearSessionMarker removes the session marker without touching the record
// set; records stay on disk until the next load cycle decides their fate.
func (s *Store) ClearSessionMarker(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, keySession); err != nil {
		return apperrors.Wrap(apperrors.CodeLocalWriteFailed, "clear session marker", err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().UTC().UnixMilli(),
	)
	return err
}

func (s *Store) get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, false, fmt.Errorf("storage is not configured")
	}
	var value []byte
	row := s.sqlDB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}
