package memory

import (
	"sync"

	"hardbrain-quiz/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Add(channelID string, session *app.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[channelID]; ok && !existing.Finished() {
		return false
	}
	s.sessions[channelID] = session
	return true
}

func (s *SessionStore) Get(channelID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[channelID]
	return session, ok
}

func (s *SessionStore) Remove(channelID string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[channelID]; ok && current == session {
		delete(s.sessions, channelID)
	}
}

// Len reports the number of registered sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
