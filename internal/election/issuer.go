package election

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/ballotbox/server/internal/model"
	"github.com/ballotbox/server/internal/repo"
	"github.com/google/uuid"
)

// TokenIssuer mints and validates single-use ballot tokens. A voter holds at
// most one ACTIVE token at any time and at most one ever reaches CONSUMED.
type TokenIssuer struct {
	tokens repo.TokenRepo
	ttl    time.Duration
}

// NewTokenIssuer creates a new ballot token issuer
func NewTokenIssuer(tokens repo.TokenRepo, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{tokens: tokens, ttl: ttl}
}

// IssueToken returns the voter's live token, minting one if none exists.
// Re-issue during an unexpired ACTIVE window is idempotent: the same token
// comes back, so concurrent confirmations cannot produce two ACTIVE tokens.
// A voter with a CONSUMED token gets ErrAlreadyVoted.
func (i *TokenIssuer) IssueToken(ctx context.Context, voterID uuid.UUID) (model.BallotToken, error) {
	value, err := NewTokenValue()
	if err != nil {
		return model.BallotToken{}, fmt.Errorf("generate token: %w", err)
	}

	token, err := i.tokens.IssueOrGet(ctx, voterID, value, time.Now().Add(i.ttl))
	if err != nil {
		if errors.Is(err, repo.ErrTokenConsumed) {
			return model.BallotToken{}, ErrAlreadyVoted
		}
		return model.BallotToken{}, fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// ValidateToken returns the owning voter id if the token is ACTIVE and
// unexpired. This is the sole gate before ballot retrieval and casting.
func (i *TokenIssuer) ValidateToken(ctx context.Context, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, ErrInvalidToken
	}

	token, err := i.tokens.GetByValue(ctx, value)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return uuid.Nil, ErrInvalidToken
		}
		return uuid.Nil, fmt.Errorf("lookup token: %w", err)
	}

	switch token.Status {
	case model.TokenConsumed:
		return uuid.Nil, ErrTokenConsumed
	case model.TokenExpired:
		return uuid.Nil, ErrTokenExpired
	}
	if !token.ExpiresAt.After(time.Now()) {
		return uuid.Nil, ErrTokenExpired
	}

	return token.VoterID, nil
}

// NewTokenValue returns a random Base64URL token (32 bytes), opaque and
// non-enumerable.
func NewTokenValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
