// Package session owns the authenticated-user lifecycle: restore on launch,
// sign-in, sign-out and profile updates. It is the only writer of the
// persisted token and user, and it hands the token to the HTTP client
// through api.TokenProvider.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"finanquest/internal/api"
	"finanquest/internal/core"
	"finanquest/internal/events"
	applog "finanquest/internal/log"
	"finanquest/internal/securestore"
)

type State int32

const (
	Loading State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "LOADING"
	case Authenticated:
		return "AUTHENTICATED"
	case Unauthenticated:
		return "UNAUTHENTICATED"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrOperationInProgress = errors.New("another session operation is in progress")
	ErrUserMismatch        = errors.New("user does not belong to the current session")
)

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (api.LoginResponse, error)
}

var _ api.TokenProvider = (*Manager)(nil)

type Manager struct {
	store  securestore.Store
	auth   Authenticator
	logger *applog.Logger

	mu    sync.RWMutex
	state State
	token string
	user  *core.User
	sinks []events.Sink

	busy        atomic.Bool
	opMu        sync.Mutex // serializes storage access between Restore and the session operations
	restoreOnce sync.Once
	ready       chan struct{}
}

type Option func(*Manager)

func WithLogger(l *applog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l.WithComponent(applog.ComponentSession)
		}
	}
}

func WithSinks(sinks ...events.Sink) Option {
	return func(m *Manager) { m.sinks = append(m.sinks, sinks...) }
}

func NewManager(store securestore.Store, auth Authenticator, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		auth:   auth,
		logger: applog.Discard().WithComponent(applog.ComponentSession),
		state:  Loading,
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddSink registers s for every later state change.
func (m *Manager) AddSink(s events.Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

// Restore loads a persisted session. Only the first call does any work.
// It never fails: anything short of a complete, valid session leaves the
// manager UNAUTHENTICATED.
func (m *Manager) Restore(ctx context.Context) {
	m.restoreOnce.Do(func() {
		defer close(m.ready)
		m.restore(ctx)
	})
}

// Ready is closed once Restore has finished.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

func (m *Manager) restore(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	if m.State() != Loading {
		return
	}

	sess, ok := m.load(ctx)
	if !ok {
		m.finishRestore(nil, "")
		return
	}
	if m.finishRestore(&sess.User, sess.Token) {
		m.logger.InfoContext(ctx, "Session restored", applog.FieldUserID, sess.User.ID)
		m.publish(ctx, events.Restored, sess.User.ID)
	}
}

// finishRestore applies the restored session unless a sign-in or sign-out
// already moved the manager out of LOADING.
func (m *Manager) finishRestore(u *core.User, token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Loading {
		return false
	}
	if u == nil {
		m.state = Unauthenticated
		return false
	}
	m.user = u
	m.token = token
	m.state = Authenticated
	return true
}

func (m *Manager) load(ctx context.Context) (core.Session, bool) {
	token, hasToken, err := m.store.Get(ctx, securestore.KeyToken)
	if err != nil {
		m.logger.LogError(ctx, "Failed to read session token", err, applog.ErrorTypeStorage, applog.OpRestore)
		return core.Session{}, false
	}
	raw, hasUser, err := m.store.Get(ctx, securestore.KeyUser)
	if err != nil {
		m.logger.LogError(ctx, "Failed to read session user", err, applog.ErrorTypeStorage, applog.OpRestore)
		return core.Session{}, false
	}

	if !hasToken && !hasUser {
		m.logger.DebugContext(ctx, "No stored session")
		return core.Session{}, false
	}
	if !hasToken || !hasUser || token == "" {
		m.logger.WarnContext(ctx, "Partial session in storage, discarding",
			applog.FieldErrorType, applog.ErrorTypeCorrupt,
			"has_token", hasToken && token != "",
			"has_user", hasUser)
		m.discard(ctx)
		return core.Session{}, false
	}

	u, err := decodeUser(raw)
	if err != nil {
		m.logger.WarnContext(ctx, "Stored user is invalid, discarding session",
			applog.FieldErrorType, applog.ErrorTypeCorrupt,
			applog.FieldError, err)
		m.discard(ctx)
		return core.Session{}, false
	}
	return core.Session{Token: token, User: u}, true
}

func decodeUser(raw string) (core.User, error) {
	var u core.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return core.User{}, fmt.Errorf("decode user: %w", err)
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	return u, nil
}

// discard removes both keys, logging failures.
func (m *Manager) discard(ctx context.Context) {
	if err := m.removeBoth(ctx); err != nil {
		m.logger.LogError(ctx, "Failed to clear stored session", err, applog.ErrorTypeStorage, applog.OpRemove)
	}
}

func (m *Manager) removeBoth(ctx context.Context) error {
	errToken := m.store.Remove(ctx, securestore.KeyToken)
	errUser := m.store.Remove(ctx, securestore.KeyUser)
	return errors.Join(errToken, errUser)
}

// SignIn authenticates and persists the session. Errors from the backend
// are returned unchanged; persistence failures are *securestore.StorageError
// and leave nothing half-written behind.
func (m *Manager) SignIn(ctx context.Context, email, password string) (core.User, error) {
	if !m.busy.CompareAndSwap(false, true) {
		return core.User{}, ErrOperationInProgress
	}
	defer m.busy.Store(false)

	resp, err := m.auth.Login(ctx, email, password)
	if err != nil {
		m.logger.InfoContext(ctx, "Sign-in rejected", applog.FieldError, err)
		return core.User{}, err
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	data, err := json.Marshal(resp.User)
	if err != nil {
		return core.User{}, fmt.Errorf("encode user: %w", err)
	}

	if err := m.store.Set(ctx, securestore.KeyToken, resp.Token); err != nil {
		m.logger.LogError(ctx, "Failed to persist token", err, applog.ErrorTypeStorage, applog.OpSignIn)
		return core.User{}, err
	}
	if err := m.store.Set(ctx, securestore.KeyUser, string(data)); err != nil {
		m.logger.LogError(ctx, "Failed to persist user", err, applog.ErrorTypeStorage, applog.OpSignIn)
		// The token key may already hold the new token, so any previous
		// session is gone as well.
		if rmErr := m.removeBoth(ctx); rmErr != nil {
			m.logger.LogError(ctx, "Failed to roll back session", rmErr, applog.ErrorTypeStorage, applog.OpSignIn)
		}
		if prevID, was := m.clear(); was {
			m.publish(ctx, events.SignedOut, prevID)
		}
		return core.User{}, err
	}

	u := resp.User
	m.mu.Lock()
	m.token = resp.Token
	m.user = &u
	m.state = Authenticated
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Signed in", applog.FieldUserID, u.ID)
	m.publish(ctx, events.SignedIn, u.ID)
	return u, nil
}

// SignOut forgets the session. It is idempotent. Memory is cleared even
// when storage removal fails, and that failure is returned.
func (m *Manager) SignOut(ctx context.Context) error {
	if !m.busy.CompareAndSwap(false, true) {
		return ErrOperationInProgress
	}
	defer m.busy.Store(false)
	m.opMu.Lock()
	defer m.opMu.Unlock()

	err := m.removeBoth(ctx)
	if err != nil {
		m.logger.LogError(ctx, "Failed to remove stored session", err, applog.ErrorTypeStorage, applog.OpSignOut)
	}

	if userID, was := m.clear(); was {
		m.logger.InfoContext(ctx, "Signed out", applog.FieldUserID, userID)
		m.publish(ctx, events.SignedOut, userID)
	}
	return err
}

// UpdateUser replaces the current user after a profile edit and persists
// it. The token is untouched.
func (m *Manager) UpdateUser(ctx context.Context, u core.User) error {
	if !m.busy.CompareAndSwap(false, true) {
		return ErrOperationInProgress
	}
	defer m.busy.Store(false)
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := u.Validate(); err != nil {
		return err
	}

	m.mu.RLock()
	state, current := m.state, m.user
	m.mu.RUnlock()
	if state != Authenticated || current == nil {
		return ErrNotAuthenticated
	}
	if current.ID != u.ID {
		return ErrUserMismatch
	}

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := m.store.Set(ctx, securestore.KeyUser, string(data)); err != nil {
		m.logger.LogError(ctx, "Failed to persist updated user", err, applog.ErrorTypeStorage, applog.OpUpdate)
		return err
	}

	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()

	m.publish(ctx, events.ProfileUpdated, u.ID)
	return nil
}

// clear drops the in-memory session and reports the user that was signed
// in, if any.
func (m *Manager) clear() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.state
	var userID int64
	if m.user != nil {
		userID = m.user.ID
	}
	m.token = ""
	m.user = nil
	m.state = Unauthenticated
	return userID, prev == Authenticated
}

// Token implements api.TokenProvider.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// User returns a copy of the current user.
func (m *Manager) User() (core.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return core.User{}, false
	}
	return *m.user, true
}

// Session returns the current token and user together.
func (m *Manager) Session() (core.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != Authenticated || m.user == nil {
		return core.Session{}, false
	}
	return core.Session{Token: m.token, User: *m.user}, true
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) publish(ctx context.Context, kind events.Kind, userID int64) {
	m.mu.RLock()
	sinks := append([]events.Sink(nil), m.sinks...)
	m.mu.RUnlock()

	e := events.New(kind, userID)
	for _, s := range sinks {
		if err := s.Publish(ctx, e); err != nil {
			m.logger.WarnContext(ctx, "Event sink failed",
				applog.FieldEvent, string(kind),
				applog.FieldOperation, applog.OpPublish,
				applog.FieldError, err)
		}
	}
}
