// Package session implements the Session Store: it turns buyer-issued tokens
// into verified, TTL-bound PunchOut session records.
package session

import (
	"context"
	"errors"
	"time"

	"punchout-catalog/internal/buyerdir"
	"punchout-catalog/internal/domain"
	"punchout-catalog/internal/registry"
	sessionrepo "punchout-catalog/internal/repository/session"

	"go.uber.org/zap"
)

type Service struct {
	repo     sessionRepo
	verifier Verifier
	registry *registry.Registry
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

type sessionRepo interface {
	Create(ctx context.Context, s domain.PunchOutSession) error
	Get(ctx context.Context, token string) (*domain.PunchOutSession, error)
	SetStatus(ctx context.Context, token string, status domain.SessionStatus) error
	Transition(ctx context.Context, token string, from, to domain.SessionStatus) error
}

// Verifier is the external buyer directory check behind token verification.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*buyerdir.Verification, error)
}

func New(repo sessionrepo.Repository, verifier Verifier, reg *registry.Registry, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		verifier: verifier,
		registry: reg,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Verify resolves a token to a session, activating it on first sight.
// Calling it again with the same valid token returns the same record; no
// duplicate is ever created. Malformed tokens fail before any lookup or
// network call.
func (s *Service) Verify(ctx context.Context, token string) (*domain.PunchOutSession, error) {
	if !domain.ValidTokenFormat(token) {
		return nil, domain.ErrTokenMalformed
	}

	rec, err := s.repo.Get(ctx, token)
	switch {
	case err == nil:
		return s.verifyKnown(ctx, rec)
	case errors.Is(err, domain.ErrNotFound):
		return s.verifyNew(ctx, token)
	default:
		return nil, err
	}
}

func (s *Service) verifyKnown(ctx context.Context, rec *domain.PunchOutSession) (*domain.PunchOutSession, error) {
	switch rec.Status {
	case domain.StatusInvalid:
		return nil, domain.ErrTokenUnknown
	case domain.StatusExpired:
		return nil, domain.ErrTokenExpired
	case domain.StatusTransferred:
		return rec, nil
	case domain.StatusActive:
		if rec.Expired(s.now()) {
			s.markExpired(ctx, rec)
			return nil, domain.ErrTokenExpired
		}
		return rec, nil
	case domain.StatusPendingVerification:
		return s.activatePending(ctx, rec)
	default:
		return nil, domain.ErrTokenUnknown
	}
}

// activatePending promotes a pre-created session record (e.g. planted by the
// seed tool or a buyer-side setup call) to ACTIVE.
func (s *Service) activatePending(ctx context.Context, rec *domain.PunchOutSession) (*domain.PunchOutSession, error) {
	if rec.Expired(s.now()) {
		s.markExpired(ctx, rec)
		return nil, domain.ErrTokenExpired
	}
	if _, ok := s.registry.Lookup(rec.BuyerIdentity); !ok {
		s.invalidate(ctx, rec.Token)
		s.logger.Warn("pending session names unregistered buyer",
			zap.String("token", rec.Token), zap.String("buyer", rec.BuyerIdentity))
		return nil, domain.ErrTokenUnknown
	}
	if err := s.repo.Transition(ctx, rec.Token, domain.StatusPendingVerification, domain.StatusActive); err != nil {
		if errors.Is(err, domain.ErrSessionNotMutable) {
			// Lost the race to a concurrent Verify; re-read the winner's state.
			return s.repo.Get(ctx, rec.Token)
		}
		return nil, err
	}
	rec.Status = domain.StatusActive
	s.logger.Info("punchout session activated",
		zap.String("token", rec.Token), zap.String("buyer", rec.BuyerIdentity))
	return rec, nil
}

func (s *Service) verifyNew(ctx context.Context, token string) (*domain.PunchOutSession, error) {
	v, err := s.verifier.VerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenUnknown) {
			s.invalidate(ctx, token)
		}
		return nil, err
	}

	bs, ok := s.registry.Lookup(v.BuyerIdentity)
	if !ok {
		s.invalidate(ctx, token)
		s.logger.Warn("directory verified token for unregistered buyer",
			zap.String("token", token), zap.String("buyer", v.BuyerIdentity))
		return nil, domain.ErrTokenUnknown
	}

	now := s.now()
	returnURL := v.ReturnURL
	if returnURL == "" {
		returnURL = bs.ReturnURL
	}
	expiresAt := v.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(s.ttl)
	}
	if !expiresAt.After(now) {
		return nil, domain.ErrTokenExpired
	}

	rec := domain.PunchOutSession{
		Token:         token,
		BuyerIdentity: bs.Identity,
		ReturnURL:     returnURL,
		Protocol:      bs.Protocol,
		Status:        domain.StatusActive,
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Concurrent Verify with the same token; both see one record.
			return s.repo.Get(ctx, token)
		}
		return nil, err
	}
	s.logger.Info("punchout session verified",
		zap.String("token", token), zap.String("buyer", bs.Identity), zap.Time("expiresAt", expiresAt))
	return &rec, nil
}

// Load fetches a session without consulting the directory, applying the lazy
// expiry check. Used by every operation after verification.
func (s *Service) Load(ctx context.Context, token string) (*domain.PunchOutSession, error) {
	if !domain.ValidTokenFormat(token) {
		return nil, domain.ErrTokenMalformed
	}
	rec, err := s.repo.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTokenUnknown
		}
		return nil, err
	}
	if rec.Status == domain.StatusActive && rec.Expired(s.now()) {
		s.markExpired(ctx, rec)
	}
	return rec, nil
}

func (s *Service) markExpired(ctx context.Context, rec *domain.PunchOutSession) {
	if err := s.repo.SetStatus(ctx, rec.Token, domain.StatusExpired); err != nil {
		s.logger.Warn("mark session expired", zap.String("token", rec.Token), zap.Error(err))
	}
	rec.Status = domain.StatusExpired
}

// invalidate records a terminal INVALID session so a rejected token does not
// hit the directory again. Best effort.
func (s *Service) invalidate(ctx context.Context, token string) {
	now := s.now()
	err := s.repo.Create(ctx, domain.PunchOutSession{
		Token:     token,
		Status:    domain.StatusInvalid,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		s.logger.Warn("persist invalid session", zap.String("token", token), zap.Error(err))
	}
}
