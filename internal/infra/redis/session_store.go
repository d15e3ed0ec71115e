package redis

import (
	"context"
	"sync"
	"time"

	"hardbrain-quiz/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - Sessions run in-process, so the authoritative registry is a local map.
//   - Redis holds a liveness marker per channel with a TTL, letting operators
//     (or other instances) see which channels have a quiz running.
//   - The marker is refreshed every ttl/2 while the session runs, so games longer
//     than the TTL stay visible.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
	stops    map[string]chan struct{}
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
		stops:    make(map[string]chan struct{}),
	}
}

func (s *SessionStore) Add(channelID string, session *app.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[channelID]; ok && !existing.Finished() {
		return false
	}
	if stop, ok := s.stops[channelID]; ok {
		close(stop)
	}
	stop := make(chan struct{})
	s.sessions[channelID] = session
	s.stops[channelID] = stop
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(channelID), session.ID(), s.ttl).Err()
	go s.keepAlive(channelID, session, stop)
	return true
}

func (s *SessionStore) keepAlive(channelID string, session *app.Session, stop <-chan struct{}) {
	interval := s.ttl / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-session.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			if s.sessions[channelID] == session {
				_ = s.client.Set(context.Background(), s.key(channelID), session.ID(), s.ttl).Err()
			}
			s.mu.RUnlock()
		}
	}
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
	current, ok := s.sessions[channelID]
	if !ok || current != session {
		return
	}
	delete(s.sessions, channelID)
	if stop, ok := s.stops[channelID]; ok {
		close(stop)
		delete(s.stops, channelID)
	}
	_ = s.client.Del(context.Background(), s.key(channelID)).Err()
}

// Live reports whether any instance has marked channelID as running a quiz.
func (s *SessionStore) Live(ctx context.Context, channelID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(channelID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SessionStore) key(channelID string) string {
	return "quiz:session:" + channelID
}
