// Package tracker is the client-side facade over the exercise tracker's
// persistence and reconciliation layers.
//
// It composes the session manager, the sync engine, and the remote client
// into the operations a UI calls: record CRUD against the in-memory set,
// and the identity transitions (guest mode, sign-up, sign-in, sign-out)
// that drive which store backs that set.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/mkarsten/ironlog/internal/tracker/remote"
	"github.com/mkarsten/ironlog/internal/tracker/session"
	"github.com/mkarsten/ironlog/internal/tracker/syncengine"
	"github.com/mkarsten/ironlog/internal/workout"
)

// Store is the device-local persistence the tracker runs on. The concrete
// implementation is localstore.Store.
type Store interface {
	syncengine.LocalStore
	session.MarkerStore
}

// Remote is the remote exercise service. The concrete implementation is
// remote.Client.
type Remote interface {
	syncengine.RemoteStore
	SignUp(ctx context.Context, email, password string) (remote.Credential, error)
	SignIn(ctx context.Context, email, password string) (remote.Credential, error)
	SignOut(ctx context.Context, cred remote.Credential) error
}

// Tracker exposes the tracker's user-facing operations.
type Tracker struct {
	sessions *session.Manager
	engine   *syncengine.Engine
	remote   Remote
}

// New wires a tracker over the given stores.
func New(store Store, remoteSvc Remote, opts syncengine.Options) *Tracker {
	return &Tracker{
		sessions: session.NewManager(store),
		engine:   syncengine.New(store, remoteSvc, opts),
		remote:   remoteSvc,
	}
}

// Start resolves the persisted session marker and loads the matching record
// set. A load failure leaves the tracker usable with an empty set and
// surfaces the error for reporting.
func (t *Tracker) Start(ctx context.Context) (session.State, error) {
	st, err := t.sessions.Resolve(ctx)
	if err != nil {
		return st, fmt.Errorf("resolve session: %w", err)
	}
	if err := t.engine.Activate(ctx, st); err != nil {
		return st, err
	}
	return st, nil
}

// CurrentSession returns the active session state.
func (t *Tracker) CurrentSession() session.State {
	return t.sessions.Current()
}

// CurrentRecords returns a copy of the in-memory record set.
func (t *Tracker) CurrentRecords() []workout.Exercise {
	return t.engine.Records()
}

// AddRecord validates and appends a new record built from the given fields,
// returning the stored record. The mutation is written through local
// storage immediately and, for authenticated sessions, to the remote store
// after the debounce window.
func (t *Tracker) AddRecord(ctx context.Context, name string, category workout.Category, subcategory string, sets, reps int, weight *float64, date time.Time, notes string) (workout.Exercise, error) {
	record, err := workout.New(name, category, subcategory, sets, reps, weight, date, notes)
	if err != nil {
		return workout.Exercise{}, err
	}
	if st := t.sessions.Current(); st.Authenticated() {
		record.OwnerID = st.Credential.UserID
	}
	if err := t.engine.Add(ctx, record); err != nil {
		return record, err
	}
	return record, nil
}

// DeleteRecord removes the record at position in the current set.
func (t *Tracker) DeleteRecord(ctx context.Context, position int) error {
	return t.engine.Delete(ctx, position)
}

// ActivateGuest enters explicit local-only mode and loads the locally
// persisted record set.
func (t *Tracker) ActivateGuest(ctx context.Context) (session.State, error) {
	st, err := t.sessions.ActivateGuest(ctx)
	if err != nil {
		return st, fmt.Errorf("persist guest marker: %w", err)
	}
	if err := t.engine.Activate(ctx, st); err != nil {
		return st, err
	}
	return st, nil
}

// SignUp registers a new account and, on success, transitions to the
// authenticated state and loads the (empty) remote record set. On failure
// the session is unchanged.
func (t *Tracker) SignUp(ctx context.Context, email, password string) (session.State, error) {
	return t.authenticate(ctx, email, password, t.remote.SignUp)
}

// SignIn authenticates against the remote service and, on success, replaces
// the in-memory set with the account's remote records. On failure the
// session is unchanged.
func (t *Tracker) SignIn(ctx context.Context, email, password string) (session.State, error) {
	return t.authenticate(ctx, email, password, t.remote.SignIn)
}

func (t *Tracker) authenticate(ctx context.Context, email, password string, fn func(context.Context, string, string) (remote.Credential, error)) (session.State, error) {
	cred, err := fn(ctx, email, password)
	if err != nil {
		return t.sessions.Current(), err
	}
	st, err := t.sessions.Authenticate(ctx, cred)
	if err != nil {
		return st, fmt.Errorf("persist credential: %w", err)
	}
	if err := t.engine.Activate(ctx, st); err != nil {
		return st, err
	}
	return st, nil
}

// SignOut invalidates the remote token, clears the persisted credential and
// the in-memory record set, and returns to the anonymous state. The remote
// invalidation is best-effort: the local transition happens even when the
// service is unreachable.
func (t *Tracker) SignOut(ctx context.Context) (session.State, error) {
	prev := t.sessions.Current()
	var remoteErr error
	if prev.Authenticated() {
		remoteErr = t.remote.SignOut(ctx, prev.Credential)
	}
	st, err := t.sessions.SignOut(ctx)
	t.engine.Deactivate(st)
	if err != nil {
		return st, fmt.Errorf("clear session marker: %w", err)
	}
	return st, remoteErr
}

// Close flushes any pending remote write and releases the engine.
func (t *Tracker) Close() {
	t.engine.Flush()
	t.engine.Close()
}
