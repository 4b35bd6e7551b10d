package session

import (
	"context"
	"sync"
	"time"

	"punchout-catalog/internal/domain"
)

// memoryRepo is a map-backed Repository for tests and single-process
// development runs. Records are copied on the way in and out.
type memoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]*domain.PunchOutSession
}

func NewMemory() Repository {
	return &memoryRepo{sessions: make(map[string]*domain.PunchOutSession)}
}

func (r *memoryRepo) Create(_ context.Context, s domain.PunchOutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.Token]; ok {
		return domain.ErrAlreadyExists
	}
	r.sessions[s.Token] = copySession(&s)
	return nil
}

func (r *memoryRepo) Get(_ context.Context, token string) (*domain.PunchOutSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copySession(s), nil
}

func (r *memoryRepo) UpdateCart(_ context.Context, token string, lines []domain.CartLine, version int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok || s.Status != domain.StatusActive {
		return domain.ErrSessionNotMutable
	}
	s.Lines = copyLines(lines)
	s.Version = version
	return nil
}

func (r *memoryRepo) SetStatus(_ context.Context, token string, status domain.SessionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = status
	return nil
}

func (r *memoryRepo) Transition(_ context.Context, token string, from, to domain.SessionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok || s.Status != from {
		return domain.ErrSessionNotMutable
	}
	s.Status = to
	return nil
}

func (r *memoryRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for token, s := range r.sessions {
		if !s.ExpiresAt.After(cutoff) {
			delete(r.sessions, token)
			n++
		}
	}
	return n, nil
}

func copySession(s *domain.PunchOutSession) *domain.PunchOutSession {
	out := *s
	out.Lines = copyLines(s.Lines)
	return &out
}

func copyLines(lines []domain.CartLine) []domain.CartLine {
	if lines == nil {
		return nil
	}
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out
}
