package session

import (
	"log"
	"sync"
	"time"
)

// Store owns the conversation-ID to session mapping. It is the only shared
// mutable structure in the process; per-conversation exclusivity is enforced
// with a non-blocking try-lock so a second message from the same sender is
// dropped, not queued.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	inFlight map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		inFlight: make(map[string]struct{}),
	}
}

// Key builds a conversation identifier from tenant slug and chat ID.
func Key(tenantSlug, chatID string) string {
	return tenantSlug + ":" + chatID
}

// GetOrCreate returns the session for a conversation, creating it in the
// idle state on first contact. Also bumps the activity timestamp.
func (s *Store) GetOrCreate(tenantSlug, chatID string) *Session {
	key := Key(tenantSlug, chatID)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		sess = &Session{
			ConversationID: key,
			TenantSlug:     tenantSlug,
			ChatID:         chatID,
			State:          StateIdle,
		}
		s.sessions[key] = sess
	}
	sess.LastActivity = time.Now()
	return sess
}

// Reset drops the session entirely. The next message starts from idle.
func (s *Store) Reset(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, conversationID)
}

// TryLock acquires the per-conversation lock without blocking. Returns false
// when a previous turn for the same conversation is still in flight.
func (s *Store) TryLock(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.inFlight[conversationID]; held {
		return false
	}
	s.inFlight[conversationID] = struct{}{}
	return true
}

// Unlock releases the per-conversation lock. Safe to call on an unheld key.
func (s *Store) Unlock(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, conversationID)
}

// Sweep evicts sessions idle longer than ttl and returns how many were
// removed. Conversations currently in flight are kept regardless of age.
func (s *Store) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, sess := range s.sessions {
		if _, busy := s.inFlight[key]; busy {
			continue
		}
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, key)
			evicted++
		}
	}

	if evicted > 0 {
		log.Printf("🧹 Session sweep: evicted %d idle conversations (%d remain)", evicted, len(s.sessions))
	}
	return evicted
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
