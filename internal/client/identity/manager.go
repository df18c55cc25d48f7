// Package identity tracks the single active authentication principal of
// the client process and drives the transitions between anonymous and
// credentialed identities.
package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/clarifio/clarifio/internal/client/models"
	"github.com/clarifio/clarifio/internal/logging"
)

// State is the manager's resolution state. Guest versus authenticated is
// a property of the Identity itself, not a separate state.
type State string

const (
	// StateUninitialized means Resolve has not been called yet.
	StateUninitialized State = "uninitialized"
	// StateResolving means initial resolution is in progress.
	StateResolving State = "resolving"
	// StateReady means exactly one identity is active.
	StateReady State = "ready"
	// StateNone means resolution failed and no identity is active. The
	// manager never retries on its own; only an explicit sign-in or
	// sign-up leaves this state.
	StateNone State = "none"
)

// Event is one identity transition delivered to subscribers.
type Event struct {
	State    State
	Identity *models.Identity
}

// Provider is the identity collaborator the manager drives.
type Provider interface {
	SignInAnonymously(ctx context.Context) (*models.Identity, error)
	SignIn(ctx context.Context, email string, password []byte) (*models.Identity, error)
	SignUp(ctx context.Context, email string, password []byte) error
	LinkCredential(ctx context.Context, email string, password []byte) (*models.Identity, error)
	SignOut(ctx context.Context) error
	RestoreSession(ctx context.Context) (*models.Identity, error)
}

// Manager owns the active identity. All transitions are serialized: a
// subscriber never observes an intermediate state such as "signed out
// but no replacement identity yet".
type Manager struct {
	provider Provider
	log      logging.Logger

	// opMu serializes the transition operations themselves, including
	// their network calls. mu guards only the published state below and
	// is never held across a collaborator call.
	opMu sync.Mutex

	mu      sync.Mutex
	state   State
	current *models.Identity
	subs    map[int]func(Event)
	nextSub int
}

func NewManager(provider Provider, log logging.Logger) *Manager {
	return &Manager{
		provider: provider,
		log:      log,
		state:    StateUninitialized,
		subs:     make(map[int]func(Event)),
	}
}

// Current returns the active identity, or nil when none is active.
// Callers must read it at the moment of each gate decision rather than
// capturing it once.
func (m *Manager) Current() *models.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// State returns the manager's resolution state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for every subsequent transition and returns its
// teardown. Events are delivered in transition order; fn must not call
// back into the Manager.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Resolve establishes the initial identity: a session restored from
// cached tokens if one exists, otherwise an automatically created
// anonymous identity. On failure the manager lands in StateNone and
// stays there until an explicit sign-in or sign-up.
func (m *Manager) Resolve(ctx context.Context) (*models.Identity, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.transition(StateResolving, nil)

	if id, err := m.provider.RestoreSession(ctx); err == nil {
		m.transition(StateReady, id)
		return id, nil
	} else {
		m.log.Debug(ctx, "session restore failed, creating anonymous identity", "error", err)
	}

	id, err := m.provider.SignInAnonymously(ctx)
	if err != nil {
		m.transition(StateNone, nil)
		return nil, fmt.Errorf("anonymous sign-in: %w", err)
	}
	m.transition(StateReady, id)
	return id, nil
}

// SignIn switches to the credentialed identity. Data created under a
// previous anonymous identity is orphaned, not migrated.
func (m *Manager) SignIn(ctx context.Context, email string, password []byte) (*models.Identity, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	id, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	m.transition(StateReady, id)
	return id, nil
}

// SignUp registers a credential pending email confirmation. The current
// identity, anonymous or otherwise, is untouched.
func (m *Manager) SignUp(ctx context.Context, email string, password []byte) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.provider.SignUp(ctx, email, password)
}

// LinkCredential attaches an email+password credential to the current
// anonymous identity. The identity id is preserved, so existing data
// stays reachable.
func (m *Manager) LinkCredential(ctx context.Context, email string, password []byte) (*models.Identity, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	prev := m.Current()
	id, err := m.provider.LinkCredential(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if prev != nil && prev.ID != id.ID {
		m.log.Error(ctx, "identity id changed across credential link", "before", prev.ID, "after", id.ID)
	}
	m.transition(StateReady, id)
	return id, nil
}

// SignOut revokes the current session and replaces it with a fresh
// anonymous identity before any observer sees the change, so a signed-out
// client is a guest, never identityless. If the replacement cannot be
// created the manager lands in StateNone and reports the error.
func (m *Manager) SignOut(ctx context.Context) (*models.Identity, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.provider.SignOut(ctx); err != nil {
		return nil, err
	}
	id, err := m.provider.SignInAnonymously(ctx)
	if err != nil {
		m.transition(StateNone, nil)
		return nil, fmt.Errorf("anonymous sign-in after sign-out: %w", err)
	}
	m.transition(StateReady, id)
	return id, nil
}

func (m *Manager) transition(state State, id *models.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.current = id
	ev := Event{State: state, Identity: id}
	for _, fn := range m.subs {
		fn(ev)
	}
}
