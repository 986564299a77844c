// Package session tracks the tracker's identity mode and its transitions.
//
// Exactly one of three states holds at a time: Anonymous (no mode chosen),
// Guest (explicit local-only mode), or Authenticated. Transitions persist a
// marker through the device store so the mode survives process restart, and
// every transition bumps an epoch that downstream consumers use to discard
// results issued for a previous session.
package session

import (
	"context"
	"sync"

	"github.com/mkarsten/ironlog/internal/tracker/localstore"
	"github.com/mkarsten/ironlog/internal/tracker/remote"
)

// Mode is the identity mode of the current session.
type Mode string

const (
	ModeAnonymous     Mode = "anonymous"
	ModeGuest         Mode = "guest"
	ModeAuthenticated Mode = "authenticated"
)

// State is one resolved session state. Credential is set only when Mode is
// ModeAuthenticated. Epoch increases on every transition.
type State struct {
	Mode       Mode
	Credential remote.Credential
	Epoch      uint64
}

// Authenticated reports whether the state carries a live credential.
func (s State) Authenticated() bool {
	return s.Mode == ModeAuthenticated && s.Credential.Valid()
}

// MarkerStore persists session markers across restarts.
type MarkerStore interface {
	SaveSessionMarker(ctx context.Context, marker localstore.SessionMarker) error
	LoadSessionMarker(ctx context.Context) (localstore.SessionMarker, error)
	ClearSessionMarker(ctx context.Context) error
}

// Manager owns the session finite state machine.
type Manager struct {
	mu    sync.Mutex
	store MarkerStore
	state State
	subs  []chan State
}

// NewManager creates a manager starting in the Anonymous state.
func NewManager(store MarkerStore) *Manager {
	return &Manager{
		store: store,
		state: State{Mode: ModeAnonymous},
	}
}

// Current returns the active session state.
func (m *Manager) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Resolve derives the initial state from the persisted marker. A stored
// credential takes precedence over a guest marker.
func (m *Manager) Resolve(ctx context.Context) (State, error) {
	marker, err := m.store.LoadSessionMarker(ctx)
	if err != nil {
		return m.transition(ModeAnonymous, remote.Credential{}), err
	}
	if marker.Authenticated() {
		cred := remote.Credential{UserID: marker.UserID, Email: marker.Email, Token: marker.Token}
		return m.transition(ModeAuthenticated, cred), nil
	}
	if marker.Guest {
		return m.transition(ModeGuest, remote.Credential{}), nil
	}
	return m.transition(ModeAnonymous, remote.Credential{}), nil
}

// ActivateGuest enters explicit local-only mode and persists the guest
// marker, clearing any stored credential.
func (m *Manager) ActivateGuest(ctx context.Context) (State, error) {
	err := m.store.SaveSessionMarker(ctx, localstore.SessionMarker{Guest: true})
	return m.transition(ModeGuest, remote.Credential{}), err
}

// Authenticate enters the authenticated state for cred and persists it,
// clearing any guest marker. Callers invoke this only after the remote
// service accepted the credentials; a failed sign-in never reaches here, so
// state is unchanged on auth failure.
func (m *Manager) Authenticate(ctx context.Context, cred remote.Credential) (State, error) {
	err := m.store.SaveSessionMarker(ctx, localstore.SessionMarker{
		UserID: cred.UserID,
		Email:  cred.Email,
		Token:  cred.Token,
	})
	return m.transition(ModeAuthenticated, cred), err
}

// SignOut returns to the Anonymous state. The marker clear is best-effort:
// the in-memory transition happens regardless, and any store error is
// returned for reporting.
func (m *Manager) SignOut(ctx context.Context) (State, error) {
	err := m.store.ClearSessionMarker(ctx)
	return m.transition(ModeAnonymous, remote.Credential{}), err
}

// Subscribe returns a channel receiving state change notifications. Sends
// are non-blocking; a slow subscriber misses intermediate states, never
// blocks a transition.
func (m *Manager) Subscribe() <-chan State {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan State, 1)
	m.subs = append(m.subs, ch)
	return ch
}

func (m *Manager) transition(mode Mode, cred remote.Credential) State {
	m.mu.Lock()
	m.state = State{
		Mode:       mode,
		Credential: cred,
		Epoch:      m.state.Epoch + 1,
	}
	next := m.state
	subs := m.subs
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- next:
		default:
			// Drop the stale notification and replace it with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next:
			default:
			}
		}
	}
	return next
}
