package domain

import "time"

// SessionStatus is the lifecycle state of a PunchOut session. TRANSFERRED,
// EXPIRED and INVALID are terminal; a new flow requires a new token.
type SessionStatus string

const (
	StatusPendingVerification SessionStatus = "PENDING_VERIFICATION"
	StatusActive              SessionStatus = "ACTIVE"
	StatusTransferred         SessionStatus = "TRANSFERRED"
	StatusExpired             SessionStatus = "EXPIRED"
	StatusInvalid             SessionStatus = "INVALID"
)

// Terminal reports whether no further transition may leave the state.
func (s SessionStatus) Terminal() bool {
	return s == StatusTransferred || s == StatusExpired || s == StatusInvalid
}

// PunchOutSession is one buyer-initiated catalog session. The token is issued
// by the buyer system, not by this service. ReturnURL is captured once at
// verification time and never re-resolved afterwards.
type PunchOutSession struct {
	Token         string        `json:"token"`
	BuyerIdentity string        `json:"buyerIdentity"`
	ReturnURL     string        `json:"returnUrl"`
	Protocol      string        `json:"protocol"`
	Status        SessionStatus `json:"status"`
	Version       int64         `json:"version"`
	Lines         []CartLine    `json:"lines,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	ExpiresAt     time.Time     `json:"expiresAt"`
}

// Expired reports whether the session TTL has elapsed at the given instant.
func (s *PunchOutSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

const maxTokenLen = 512

// ValidTokenFormat checks the token shape before any lookup: 1-512 characters
// from the URL-safe set [A-Za-z0-9._~-], which covers base64url and UUID
// tokens. Buyer systems choose their own token lengths, so no minimum beyond
// non-empty is imposed. Anything else is rejected without touching storage or
// the network.
func ValidTokenFormat(token string) bool {
	if len(token) == 0 || len(token) > maxTokenLen {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.' || c == '~':
		default:
			return false
		}
	}
	return true
}
