// Package session keeps the signed-in state of console users: the stored
// token, the fleet API client built on it and the live workspace.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"flota_console/internal/console"
	"flota_console/internal/fleetapi"
	"flota_console/internal/logger"
	"flota_console/internal/models"
	"flota_console/internal/storage"
	"flota_console/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Metrics is the part of the recorder the manager reports to.
type Metrics interface {
	SessionOpened()
	SessionClosed()
}

type nopMetrics struct{}

func (nopMetrics) SessionOpened() {}
func (nopMetrics) SessionClosed() {}

// Live is a session with its client and workspace.
type Live struct {
	ID        string
	User      models.User
	Client    *fleetapi.Client
	Workspace *console.Workspace
}

type ManagerConfig struct {
	// Client is the unauthenticated fleet API client; sessions derive theirs
	// with WithToken.
	Client    *fleetapi.Client
	Storage   storage.Storage
	Workspace console.WorkspaceConfig
	Metrics   Metrics
	Now       func() time.Time
}

// Manager opens, resolves and tears down sessions. A 401 from the fleet API
// on any session call deletes the stored token and closes the workspace.
type Manager struct {
	db   *gorm.DB
	repo Repository
	cfg  ManagerConfig

	mu   sync.Mutex
	live map[string]*Live
}

func NewManager(db *gorm.DB, repo Repository, cfg ManagerConfig) *Manager {
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{db: db, repo: repo, cfg: cfg, live: map[string]*Live{}}
}

// Login authenticates against the fleet API and stores the session.
func (m *Manager) Login(ctx context.Context, email, password string) (*Live, error) {
	token, user, err := m.cfg.Client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.open(ctx, token, user)
}

// FromToken adopts a token handed over by another application and verifies
// it with /auth/me.
func (m *Manager) FromToken(ctx context.Context, token string) (*Live, error) {
	if token == "" {
		return nil, apperrors.ErrNotLoggedIn
	}
	if info, ok := InspectToken(token); ok && info.ExpiresAt != nil && !m.cfg.Now().Before(*info.ExpiresAt) {
		return nil, apperrors.ErrSessionExpired
	}
	user, err := m.cfg.Client.WithToken(token).Me(ctx)
	if err != nil {
		return nil, err
	}
	return m.open(ctx, token, user)
}

func (m *Manager) open(ctx context.Context, token string, user models.User) (*Live, error) {
	now := m.cfg.Now()
	s := &Session{
		ID:         uuid.NewString(),
		Token:      token,
		LastSeenAt: now,
	}
	if info, ok := InspectToken(token); ok {
		s.ExpiresAt = info.ExpiresAt
		if user.Cargo == "" {
			user.Cargo = info.Cargo
		}
	}
	if s.Expired(now) {
		return nil, apperrors.ErrSessionExpired
	}
	raw, err := encodeUser(user)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	s.User = raw
	if err := m.repo.Create(m.db.WithContext(ctx), s); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "session", "No se pudo guardar la sesión", 500)
	}

	live := m.activate(s.ID, token, user)
	logger.CtxInfo(logger.WithSessionID(ctx, s.ID), "session opened", "user", user.Correo, "cargo", user.Cargo)
	return live, nil
}

// Get resolves a session id, rebuilding the workspace of a stored session
// after a restart. Missing sessions yield ErrNotLoggedIn, expired ones are
// deleted and yield ErrSessionExpired.
func (m *Manager) Get(ctx context.Context, id string) (*Live, error) {
	if id == "" {
		return nil, apperrors.ErrNotLoggedIn
	}
	m.mu.Lock()
	live, ok := m.live[id]
	m.mu.Unlock()
	if ok {
		return live, nil
	}

	db := m.db.WithContext(ctx)
	s, err := m.repo.FindByID(db, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, apperrors.ErrNotLoggedIn
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "session", "No se pudo leer la sesión", 500)
	}
	if s.Expired(m.cfg.Now()) {
		_ = m.repo.Delete(db, id)
		return nil, apperrors.ErrSessionExpired
	}
	user, err := s.DecodeUser()
	if err != nil {
		_ = m.repo.Delete(db, id)
		return nil, apperrors.ErrNotLoggedIn
	}
	if err := m.repo.Touch(db, id, m.cfg.Now()); err != nil {
		logger.CtxWarn(ctx, "session touch failed", "error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have restored it meanwhile.
	if live, ok := m.live[id]; ok {
		return live, nil
	}
	return m.activateLocked(id, s.Token, user), nil
}

func (m *Manager) activate(id, token string, user models.User) *Live {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activateLocked(id, token, user)
}

func (m *Manager) activateLocked(id, token string, user models.User) *Live {
	client := m.cfg.Client.WithToken(token)
	ws := console.NewWorkspace(context.Background(), user, client, m.cfg.Storage, m.cfg.Workspace)
	live := &Live{ID: id, User: user, Client: client, Workspace: ws}
	client.OnUnauthorized(func() {
		logger.Warn("fleet api rejected session token", "session_id", id)
		m.teardown(id)
	})
	m.live[id] = live
	m.cfg.Metrics.SessionOpened()
	return live
}

// Logout deletes the stored session and closes its workspace.
func (m *Manager) Logout(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.ErrNotLoggedIn
	}
	m.teardown(id)
	return nil
}

func (m *Manager) teardown(id string) {
	if err := m.repo.Delete(m.db, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
		logger.Error("session delete failed", "session_id", id, "error", err)
	}
	m.mu.Lock()
	live, ok := m.live[id]
	delete(m.live, id)
	m.mu.Unlock()
	if ok {
		live.Workspace.Close()
		m.cfg.Metrics.SessionClosed()
	}
}

// Sweep deletes stored sessions whose token has expired and closes their
// workspaces.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	now := m.cfg.Now()
	m.mu.Lock()
	var stale []string
	for id := range m.live {
		stale = append(stale, id)
	}
	m.mu.Unlock()

	for _, id := range stale {
		s, err := m.repo.FindByID(m.db.WithContext(ctx), id)
		if errors.Is(err, ErrSessionNotFound) || (err == nil && s.Expired(now)) {
			m.teardown(id)
		}
	}
	return m.repo.DeleteExpired(m.db.WithContext(ctx), now)
}

// Len is the number of live workspaces.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Close closes every live workspace. Stored sessions survive a restart.
func (m *Manager) Close() {
	m.mu.Lock()
	live := m.live
	m.live = map[string]*Live{}
	m.mu.Unlock()
	for _, l := range live {
		l.Workspace.Flush()
		l.Workspace.Close()
		m.cfg.Metrics.SessionClosed()
	}
}
