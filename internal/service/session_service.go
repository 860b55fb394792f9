package service

import (
	"errors"
	"sync"
	"time"

	"ecommerce-chatbot/internal/models"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionService keeps the per-session message history in memory.
// History is append-only and gone on restart.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string][]models.ChatMessage
	now      func() time.Time
}

func NewSessionService() *SessionService {
	return &SessionService{
		sessions: make(map[string][]models.ChatMessage),
		now:      time.Now,
	}
}

func (s *SessionService) Create() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = nil
	s.mu.Unlock()
	return id
}

func (s *SessionService) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

func (s *SessionService) Append(id string, role models.Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.sessions[id] = append(history, models.ChatMessage{Role: role, Content: content, CreatedAt: s.now()})
	return nil
}

// Messages returns a copy of the history in insertion order.
func (s *SessionService) Messages(id string) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]models.ChatMessage, len(history))
	copy(out, history)
	return out, nil
}

func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}
