// Package syncengine reconciles the device-local store with the remote
// exercise collection.
//
// The engine owns the in-memory record set. Session transitions drive the
// load protocol (remote for authenticated sessions, local otherwise), and
// every mutation is written through to the local store immediately and to
// the remote store after a quiet period. Reconciliation is whole-set
// replace: the engine never merges records field by field, so the last
// writer's full replace wins across devices.
package syncengine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	apperrors "github.com/mkarsten/ironlog/internal/platform/errors"
	"github.com/mkarsten/ironlog/internal/tracker/remote"
	"github.com/mkarsten/ironlog/internal/tracker/session"
	"github.com/mkarsten/ironlog/internal/workout"
)

// DefaultWriteDelay is the quiet period before a remote write-through fires.
const DefaultWriteDelay = 2 * time.Second

const remoteWriteTimeout = 10 * time.Second

// LocalStore is the device-local persistence the engine writes through to.
type LocalStore interface {
	SaveRecordSet(ctx context.Context, records []workout.Exercise) error
	LoadRecordSet(ctx context.Context) ([]workout.Exercise, error)
}

// RemoteStore is the user-scoped remote collection.
type RemoteStore interface {
	FetchAll(ctx context.Context, cred remote.Credential) ([]workout.Exercise, error)
	ReplaceAll(ctx context.Context, cred remote.Credential, records []workout.Exercise) error
}

// Options tunes engine behavior. The zero value uses production defaults.
type Options struct {
	// WriteDelay overrides the remote write-through debounce delay.
	WriteDelay time.Duration
	// OnSyncError receives asynchronous local-write and remote-write
	// failures. Defaults to log.Printf.
	OnSyncError func(error)
}

// Engine keeps the in-memory record set consistent with both stores.
type Engine struct {
	local   LocalStore
	remote  RemoteStore
	pending *debouncer
	onError func(error)

	mu       sync.Mutex
	state    session.State
	records  []workout.Exercise
	inFlight bool
	rearm    bool
}

// New creates an engine over the given stores.
func New(local LocalStore, remoteStore RemoteStore, opts Options) *Engine {
	delay := opts.WriteDelay
	if delay <= 0 {
		delay = DefaultWriteDelay
	}
	onError := opts.OnSyncError
	if onError == nil {
		onError = func(err error) { log.Printf("sync: %v", err) }
	}
	return &Engine{
		local:   local,
		remote:  remoteStore,
		pending: newDebouncer(delay),
		onError: onError,
	}
}

// Records returns a copy of the in-memory record set.
func (e *Engine) Records() []workout.Exercise {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]workout.Exercise, len(e.records))
	copy(out, e.records)
	return out
}

// Activate runs the load protocol for a new session state. Any write
// scheduled for the previous session is cancelled first so a stale write
// can never target the wrong owner.
//
// For authenticated sessions the record set comes from the remote store and
// is mirrored into the local store on success; on remote failure the set is
// left unpopulated and the error surfaces — stale local data is never shown
// as if it belonged to the authenticated identity. Guest and anonymous
// sessions load from the local store only, recovering from corrupt local
// data by falling back to an empty set.
func (e *Engine) Activate(ctx context.Context, st session.State) error {
	e.pending.Cancel()

	e.mu.Lock()
	e.state = st
	e.records = nil
	e.rearm = false
	e.mu.Unlock()

	if st.Authenticated() {
		fetched, err := e.remote.FetchAll(ctx, st.Credential)
		if err != nil {
			e.applyLoaded(st.Epoch, []workout.Exercise{})
			return fmt.Errorf("load remote record set: %w", err)
		}
		if !e.applyLoaded(st.Epoch, fetched) {
			return nil
		}
		if err := e.local.SaveRecordSet(ctx, fetched); err != nil {
			e.onError(fmt.Errorf("mirror record set: %w", err))
		}
		return nil
	}

	loaded, err := e.local.LoadRecordSet(ctx)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeLocalDataCorrupt) {
			e.onError(err)
			loaded = []workout.Exercise{}
		} else {
			e.applyLoaded(st.Epoch, []workout.Exercise{})
			return fmt.Errorf("load local record set: %w", err)
		}
	}
	e.applyLoaded(st.Epoch, loaded)
	return nil
}

// Deactivate clears the record set and cancels pending work for a session
// that ends without a follow-up load (sign-out).
func (e *Engine) Deactivate(st session.State) {
	e.pending.Cancel()
	e.mu.Lock()
	e.state = st
	e.records = nil
	e.rearm = false
	e.mu.Unlock()
}

// Add appends a record and runs the mutation protocol. A local write failure
// is returned for reporting but does not undo the in-memory mutation.
func (e *Engine) Add(ctx context.Context, record workout.Exercise) error {
	e.mu.Lock()
	e.records = append(e.records, record)
	snapshot := make([]workout.Exercise, len(e.records))
	copy(snapshot, e.records)
	st := e.state
	e.mu.Unlock()

	return e.writeThrough(ctx, st, snapshot)
}

// Delete removes the record at position. An out-of-range position is a
// recoverable no-op reported as CodeIndexOutOfRange.
func (e *Engine) Delete(ctx context.Context, position int) error {
	e.mu.Lock()
	if position < 0 || position >= len(e.records) {
		e.mu.Unlock()
		return apperrors.New(apperrors.CodeIndexOutOfRange,
			fmt.Sprintf("no record at position %d", position))
	}
	// Remove by the record's stable ID so a concurrent reorder cannot
	// delete a neighbor.
	target := e.records[position].ID
	kept := e.records[:0]
	for _, record := range e.records {
		if record.ID != target {
			kept = append(kept, record)
		}
	}
	e.records = kept
	snapshot := make([]workout.Exercise, len(e.records))
	copy(snapshot, e.records)
	st := e.state
	e.mu.Unlock()

	return e.writeThrough(ctx, st, snapshot)
}

// Flush cancels the debounce window and runs any scheduled remote write
// immediately. It is used on orderly shutdown so a coalesced write is not
// lost to process exit.
func (e *Engine) Flush() {
	e.mu.Lock()
	st := e.state
	e.mu.Unlock()
	if !st.Authenticated() {
		return
	}
	e.pending.Cancel()
	e.flush(st.Epoch)
}

// Close cancels any pending remote write.
func (e *Engine) Close() {
	e.pending.Cancel()
}

// applyLoaded installs a loaded record set if the session has not moved on
// since the load began. It reports whether the set was applied.
func (e *Engine) applyLoaded(epoch uint64, records []workout.Exercise) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Epoch != epoch {
		return false
	}
	e.records = records
	return true
}

func (e *Engine) writeThrough(ctx context.Context, st session.State, snapshot []workout.Exercise) error {
	var localErr error
	if err := e.local.SaveRecordSet(ctx, snapshot); err != nil {
		localErr = apperrors.Wrap(apperrors.CodeLocalWriteFailed, "write through record set", err)
	}

	if st.Authenticated() {
		epoch := st.Epoch
		e.pending.Schedule(func() { e.flush(epoch) })
	}
	return localErr
}

// flush performs the debounced remote write for the session identified by
// epoch. The record set is read at fire time, so mutations that land during
// the debounce window ride along without an extra round trip. A write that
// fires while a previous one is still pending re-arms instead of
// overlapping.
func (e *Engine) flush(epoch uint64) {
	e.mu.Lock()
	if e.state.Epoch != epoch || !e.state.Authenticated() {
		e.mu.Unlock()
		return
	}
	if e.inFlight {
		e.rearm = true
		e.mu.Unlock()
		return
	}
	e.inFlight = true
	cred := e.state.Credential
	snapshot := make([]workout.Exercise, len(e.records))
	copy(snapshot, e.records)
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
	err := e.remote.ReplaceAll(ctx, cred, snapshot)
	cancel()

	e.mu.Lock()
	e.inFlight = false
	stale := e.state.Epoch != epoch
	rearm := e.rearm && !stale
	e.rearm = false
	e.mu.Unlock()

	if err != nil && !stale {
		e.onError(fmt.Errorf("remote write through: %w", err))
	}
	if rearm {
		e.pending.Schedule(func() { e.flush(epoch) })
	}
}
