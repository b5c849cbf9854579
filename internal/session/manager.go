package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Manager owns the live sessions and ends the idle ones
type Manager struct {
	opts        Options
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	cron *cron.Cron
}

// NewManager creates a manager. A zero idleTimeout disables the sweep.
func NewManager(opts Options, idleTimeout time.Duration) *Manager {
	return &Manager{
		opts:        opts,
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*Session),
		cron:        cron.New(),
	}
}

// Start schedules the idle sweep using a cron spec such as "@every 1m"
func (m *Manager) Start(schedule string) error {
	if m.idleTimeout <= 0 {
		return nil
	}
	if _, err := m.cron.AddFunc(schedule, func() { m.Sweep() }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	m.cron.Start()
	slog.Info("Session sweep started", "schedule", schedule, "idle_timeout", m.idleTimeout)
	return nil
}

// Stop halts the sweep and ends every session
func (m *Manager) Stop() {
	<-m.cron.Stop().Done()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.close()
		delete(m.sessions, id)
	}
}

// Create starts a new session
func (m *Manager) Create() *Session {
	s := newSession(uuid.NewString(), m.opts, m.now())

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	slog.Info("Session created", "session", s.ID)
	return s
}

// Get returns a session and marks it as recently used
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.touch(m.now())
	return s, nil
}

// Delete ends a session and discards its credentials
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.close()
	slog.Info("Session ended", "session", id)
	return nil
}

// Sweep ends sessions idle for longer than the idle timeout and returns
// how many were removed
func (m *Manager) Sweep() int {
	if m.idleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTimeout)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
		slog.Info("Session expired", "session", s.ID)
	}
	return len(expired)
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
