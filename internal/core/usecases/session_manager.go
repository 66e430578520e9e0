package usecases

import (
	"sync"

	"github.com/google/uuid"

	"github.com/samirrijal/voltrip/internal/core/domain"
	"github.com/samirrijal/voltrip/internal/core/ports"
	"github.com/samirrijal/voltrip/internal/pkg/metrics"
)

// SessionManager creates and tracks in-memory trip sessions.
type SessionManager struct {
	provider  ports.RouteProvider
	directory *DirectoryService
	presenter ports.Presenter
	cfg       SessionConfig

	mu       sync.RWMutex
	sessions map[string]*RouteSession
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(provider ports.RouteProvider, directory *DirectoryService, presenter ports.Presenter, cfg SessionConfig) *SessionManager {
	return &SessionManager{
		provider:  provider,
		directory: directory,
		presenter: presenter,
		cfg:       cfg,
		sessions:  make(map[string]*RouteSession),
	}
}

// Create starts a new session with no endpoints.
func (m *SessionManager) Create() *RouteSession {
	s := NewRouteSession(uuid.NewString(), m.provider, m.directory, m.presenter, m.cfg)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return s
}

// Get returns the session with the given id.
func (m *SessionManager) Get(id string) (*RouteSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Delete forgets a session.
func (m *SessionManager) Delete(id string) error {
	m.mu.Lock()
	if _, ok := m.sessions[id]; !ok {
		m.mu.Unlock()
		return domain.ErrSessionNotFound
	}
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return nil
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
