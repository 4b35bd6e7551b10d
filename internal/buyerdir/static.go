package buyerdir

import (
	"context"
	"fmt"
	"strings"
	"time"

	"punchout-catalog/internal/domain"
	"punchout-catalog/internal/registry"
)

// Static verifies tokens against the local registry instead of a remote
// directory: a token of the form "<identity>-<nonce>" whose identity prefix
// matches a registered buyer is accepted. Development and demo use only.
type Static struct {
	registry *registry.Registry
	ttl      time.Duration
}

func NewStatic(reg *registry.Registry, ttl time.Duration) *Static {
	return &Static{registry: reg, ttl: ttl}
}

func (s *Static) VerifyToken(_ context.Context, token string) (*Verification, error) {
	for _, identity := range s.registry.Identities() {
		if !strings.HasPrefix(token, identity+"-") {
			continue
		}
		bs, _ := s.registry.Lookup(identity)
		return &Verification{
			BuyerIdentity: bs.Identity,
			ReturnURL:     bs.ReturnURL,
			ExpiresAt:     time.Now().Add(s.ttl),
		}, nil
	}
	return nil, fmt.Errorf("%w: no registered buyer matches token", domain.ErrTokenUnknown)
}
