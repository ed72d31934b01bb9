package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ballotbox/server/internal/model"
	"github.com/google/uuid"
)

var (
	// ErrTokenConsumed is returned when a voter's token was already consumed.
	ErrTokenConsumed = errors.New("ballot token consumed")
	// ErrTokenExpired is returned when a token exists but is past its expiry.
	ErrTokenExpired = errors.New("ballot token expired")
)

// TokenRepo defines the interface for ballot token storage
type TokenRepo interface {
	// IssueOrGet returns the voter's ACTIVE unexpired token, or inserts the
	// provided replacement when none is usable. Returns ErrTokenConsumed when
	// the voter already holds a CONSUMED token.
	IssueOrGet(ctx context.Context, voterID uuid.UUID, value string, expiresAt time.Time) (model.BallotToken, error)
	GetByValue(ctx context.Context, value string) (model.BallotToken, error)
}

type tokenRepo struct {
	db *sql.DB
}

// NewTokenRepo creates a new TokenRepo instance
func NewTokenRepo(db *sql.DB) TokenRepo {
	return &tokenRepo{db: db}
}

const tokenColumns = `id, voter_id, token_value, status, issued_at, expires_at`

// IssueOrGet serializes per voter with an advisory lock so concurrent confirmations
// can never mint two ACTIVE tokens. An expired ACTIVE row is retired and replaced in
// the same transaction; a live one is returned as-is.
func (r *tokenRepo) IssueOrGet(ctx context.Context, voterID uuid.UUID, value string, expiresAt time.Time) (model.BallotToken, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.BallotToken{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(2, hashtext($1::text))`, voterID)
	if err != nil {
		return model.BallotToken{}, fmt.Errorf("advisory lock: %w", err)
	}

	var consumed bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ballot_tokens WHERE voter_id = $1 AND status = 'CONSUMED'
		)
	`, voterID).Scan(&consumed)
	if err != nil {
		return model.BallotToken{}, fmt.Errorf("check consumed token: %w", err)
	}
	if consumed {
		return model.BallotToken{}, ErrTokenConsumed
	}

	var existing model.BallotToken
	err = tx.QueryRowContext(ctx, `
		SELECT `+tokenColumns+`
		FROM ballot_tokens
		WHERE voter_id = $1 AND status = 'ACTIVE'
	`, voterID).Scan(
		&existing.ID,
		&existing.VoterID,
		&existing.Value,
		&existing.Status,
		&existing.IssuedAt,
		&existing.ExpiresAt,
	)
	switch {
	case err == nil:
		if existing.ExpiresAt.After(time.Now()) {
			if err := tx.Commit(); err != nil {
				return model.BallotToken{}, fmt.Errorf("commit: %w", err)
			}
			return existing, nil
		}
		// Retire the stale row so the partial unique index admits the new one.
		_, err = tx.ExecContext(ctx, `
			UPDATE ballot_tokens SET status = 'EXPIRED' WHERE id = $1
		`, existing.ID)
		if err != nil {
			return model.BallotToken{}, fmt.Errorf("expire stale token: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		// No active token; fall through to insert.
	default:
		return model.BallotToken{}, fmt.Errorf("query active token: %w", err)
	}

	var minted model.BallotToken
	err = tx.QueryRowContext(ctx, `
		INSERT INTO ballot_tokens (voter_id, token_value, expires_at)
		VALUES ($1, $2, $3)
		RETURNING `+tokenColumns+`
	`, voterID, value, expiresAt).Scan(
		&minted.ID,
		&minted.VoterID,
		&minted.Value,
		&minted.Status,
		&minted.IssuedAt,
		&minted.ExpiresAt,
	)
	if err != nil {
		return model.BallotToken{}, fmt.Errorf("insert token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.BallotToken{}, fmt.Errorf("commit: %w", err)
	}
	return minted, nil
}

// GetByValue retrieves a token by its opaque value
func (r *tokenRepo) GetByValue(ctx context.Context, value string) (model.BallotToken, error) {
	var t model.BallotToken
	err := r.db.QueryRowContext(ctx, `
		SELECT `+tokenColumns+`
		FROM ballot_tokens
		WHERE token_value = $1
	`, value).Scan(&t.ID, &t.VoterID, &t.Value, &t.Status, &t.IssuedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BallotToken{}, ErrNotFound
		}
		return model.BallotToken{}, fmt.Errorf("query token: %w", err)
	}
	return t, nil
}
