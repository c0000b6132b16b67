package storage

import (
	"sync"
	"time"

	"github.com/soriano-mediadores/csvimport/internal/notify"
	"github.com/soriano-mediadores/csvimport/internal/wizard"
)

// Session is a wizard opened through the gateway plus the notices it raised
type Session struct {
	Wizard    *wizard.Wizard
	Notices   *notify.Recorder
	CreatedAt time.Time
}

type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

func (s *SessionStore) Get(wizardID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[wizardID]
	return session, exists
}

func (s *SessionStore) Set(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Wizard.ID()] = session
}

func (s *SessionStore) GetAll() map[string]*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*Session, len(s.sessions))
	for k, v := range s.sessions {
		result[k] = v
	}
	return result
}

// Delete removes the session and closes its wizard
func (s *SessionStore) Delete(wizardID string) bool {
	s.mu.Lock()
	session, exists := s.sessions[wizardID]
	delete(s.sessions, wizardID)
	s.mu.Unlock()

	if exists {
		session.Wizard.Close()
	}
	return exists
}

// CloseAll closes every wizard, stopping their poll loops
func (s *SessionStore) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Wizard.Close()
	}
}
