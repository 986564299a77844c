package storage

import (
	"context"
	"time"

	"github.com/mkarsten/ironlog/internal/platform/errors"
	"github.com/mkarsten/ironlog/internal/workout"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// ErrEmailTaken indicates a sign-up email is already registered.
var ErrEmailTaken = errors.New(errors.CodeAuthEmailTaken, "email already registered")

// User is one registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserStore persists account records.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, userID string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// ExerciseStore persists owner-scoped exercise collections. ReplaceExercises
// swaps an owner's whole collection atomically; DeleteExercises and
// InsertExercises expose the two halves for callers that drive the replace
// protocol themselves.
type ExerciseStore interface {
	ListExercises(ctx context.Context, ownerID string) ([]workout.Exercise, error)
	InsertExercises(ctx context.Context, ownerID string, records []workout.Exercise) error
	DeleteExercises(ctx context.Context, ownerID string) error
	ReplaceExercises(ctx context.Context, ownerID string, records []workout.Exercise) error
}

// TokenStore tracks revoked token IDs until they would have expired anyway.
type TokenStore interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	TokenRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpiredTokens(ctx context.Context, now time.Time) error
}

// Store is the full persistence surface the service runs on.
type Store interface {
	UserStore
	ExerciseStore
	TokenStore
}
