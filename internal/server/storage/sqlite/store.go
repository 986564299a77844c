// Package sqlite implements the exercise service's persistence over SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mkarsten/ironlog/internal/platform/storage/sqlitemigrate"
	"github.com/mkarsten/ironlog/internal/server/storage"
	"github.com/mkarsten/ironlog/internal/server/storage/sqlite/migrations"
	"github.com/mkarsten/ironlog/internal/workout"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements service persistence over a single SQLite file. Accounts,
// exercise collections, and token revocations share the same transaction
// and visibility boundaries.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens the service store and applies bundled migrations.
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

	store := &Store{sqlDB: sqlDB, now: time.Now}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateUser persists a new account. A duplicate email reports
// storage.ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, u storage.User) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser loads an account by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (storage.User, error) {
	return s.scanUser(s.sqlDB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at, updated_at
		 FROM users WHERE id = ?`, userID))
}

// GetUserByEmail loads an account by its registered email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (storage.User, error) {
	return s.scanUser(s.sqlDB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at, updated_at
		 FROM users WHERE email = ?`, email))
}

func (s *Store) scanUser(row *sql.Row) (storage.User, error) {
	var u storage.User
	var createdAt, updatedAt int64
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.User{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

// ListExercises returns an owner's collection ordered by performed date,
// newest first.
func (s *Store) ListExercises(ctx context.Context, ownerID string) ([]workout.Exercise, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, exercise_name, category, subcategory, sets, reps, weight, performed_at, notes
		 FROM exercises WHERE owner_id = ?
		 ORDER BY performed_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	var records []workout.Exercise
	for rows.Next() {
		var record workout.Exercise
		var weight sql.NullFloat64
		var performedAt int64
		if err := rows.Scan(&record.ID, &record.Name, &record.Category, &record.Subcategory,
			&record.Sets, &record.Reps, &weight, &performedAt, &record.Notes); err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		if weight.Valid {
			value := weight.Float64
			record.Weight = &value
		}
		record.Date = fromMillis(performedAt)
		record.OwnerID = ownerID
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exercises: %w", err)
	}
	return records, nil
}

// InsertExercises appends records to an owner's collection.
func (s *Store) InsertExercises(ctx context.Context, ownerID string, records []workout.Exercise) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert exercises: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertExercisesTx(ctx, tx, ownerID, records, s.now()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert exercises: %w", err)
	}
	return nil
}

// DeleteExercises removes an owner's whole collection.
func (s *Store) DeleteExercises(ctx context.Context, ownerID string) error {
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM exercises WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("delete exercises: %w", err)
	}
	return nil
}

// ReplaceExercises swaps an owner's whole collection in one transaction.
func (s *Store) ReplaceExercises(ctx context.Context, ownerID string, records []workout.Exercise) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace exercises: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM exercises WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("delete exercises: %w", err)
	}
	if err := insertExercisesTx(ctx, tx, ownerID, records, s.now()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace exercises: %w", err)
	}
	return nil
}

func insertExercisesTx(ctx context.Context, tx *sql.Tx, ownerID string, records []workout.Exercise, now time.Time) error {
	for _, record := range records {
		var weight any
		if record.Weight != nil {
			weight = *record.Weight
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO exercises (id, owner_id, exercise_name, category, subcategory, sets, reps, weight, performed_at, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID, ownerID, record.Name, string(record.Category), record.Subcategory,
			record.Sets, record.Reps, weight, toMillis(record.Date), record.Notes, toMillis(now)); err != nil {
			return fmt.Errorf("insert exercise %s: %w", record.ID, err)
		}
	}
	return nil
}

// RevokeToken records a token ID as unusable until its natural expiry.
func (s *Store) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?)
		 ON CONFLICT (jti) DO UPDATE SET expires_at = excluded.expires_at`,
		jti, toMillis(expiresAt))
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// TokenRevoked reports whether a token ID has been revoked.
func (s *Store) TokenRevoked(ctx context.Context, jti string) (bool, error) {
	var found int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT 1 FROM revoked_tokens WHERE jti = ?`, jti).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return true, nil
}

// PurgeExpiredTokens drops revocations whose tokens have expired anyway.
func (s *Store) PurgeExpiredTokens(ctx context.Context, now time.Time) error {
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at <= ?`, toMillis(now)); err != nil {
		return fmt.Errorf("purge revoked tokens: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") ||
		strings.Contains(message, "constraint failed")
}
