// Package buyerdir talks to the buyer-system directory that authenticates
// PunchOut session tokens. The directory is an external collaborator; this
// package only knows its verification endpoint.
package buyerdir

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"punchout-catalog/internal/domain"

	"go.uber.org/zap"
)

// Verification is the directory's answer for a valid token.
type Verification struct {
	BuyerIdentity string    `json:"buyerIdentity"`
	ReturnURL     string    `json:"returnUrl"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Client verifies tokens against an HTTP buyer directory. Transient faults
// (network errors, 5xx) are retried once after a fixed backoff; a rejection
// is never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout, retryDelay time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retryDelay: retryDelay,
		logger:     logger,
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

// VerifyToken asks the directory to authenticate a session token.
// domain.ErrTokenUnknown covers both rejection and a directory that stayed
// unreachable after the retry.
func (c *Client) VerifyToken(ctx context.Context, token string) (*Verification, error) {
	v, err, transient := c.verifyOnce(ctx, token)
	if err == nil || !transient {
		return v, err
	}

	c.logger.Warn("buyer directory verification failed, retrying once",
		zap.Error(err), zap.Duration("backoff", c.retryDelay))
	select {
	case <-time.After(c.retryDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	v, err, _ = c.verifyOnce(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: directory unreachable: %v", domain.ErrTokenUnknown, err)
	}
	return v, nil
}

func (c *Client) verifyOnce(ctx context.Context, token string) (*Verification, error, bool) {
	body, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		return nil, err, false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/punchout/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err, true
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var v Verification
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			return nil, fmt.Errorf("decode directory response: %w", err), false
		}
		if v.BuyerIdentity == "" {
			return nil, fmt.Errorf("%w: directory returned empty buyer identity", domain.ErrTokenUnknown), false
		}
		return &v, nil, false
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("directory status %d", resp.StatusCode), true
	default:
		// 4xx: the directory does not know this token.
		return nil, fmt.Errorf("%w: directory status %d", domain.ErrTokenUnknown, resp.StatusCode), false
	}
}
