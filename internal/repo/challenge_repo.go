package repo

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ballotbox/server/internal/model"
	"github.com/google/uuid"
)

// ChallengeRepo defines the interface for verification challenge storage
type ChallengeRepo interface {
	CreateOrReplace(ctx context.Context, voterID uuid.UUID, otpHashHex string, channel model.Channel, expiresAt time.Time) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.VerificationChallenge, error)
	IncrementAttempt(ctx context.Context, id uuid.UUID) (newAttemptCount int, err error)
	MarkConfirmed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	CountRecentRequests(ctx context.Context, voterID uuid.UUID, since time.Time) (int, error)
}

// ErrNotPending is returned when a state transition requires a PENDING challenge.
var ErrNotPending = errors.New("challenge is not pending")

type challengeRepo struct {
	db *sql.DB
}

// NewChallengeRepo creates a new ChallengeRepo instance
func NewChallengeRepo(db *sql.DB) ChallengeRepo {
	return &challengeRepo{db: db}
}

// CreateOrReplace ensures only one PENDING challenge per voter: atomically marks any
// existing PENDING challenge FAILED (superseded) and inserts a new one. An advisory
// lock serializes requests per voter so the partial unique index never trips.
func (r *challengeRepo) CreateOrReplace(ctx context.Context, voterID uuid.UUID, otpHashHex string, channel model.Channel, expiresAt time.Time) (uuid.UUID, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(1, hashtext($1::text))`, voterID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("advisory lock: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE verification_challenges
		SET status = 'FAILED'
		WHERE voter_id = $1 AND status = 'PENDING'
	`, voterID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("supersede existing challenges: %w", err)
	}

	var id uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO verification_challenges (voter_id, otp_hash, channel, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, voterID, otpHashHex, channel, expiresAt).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert challenge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// GetByID retrieves a challenge by its ID
func (r *challengeRepo) GetByID(ctx context.Context, id uuid.UUID) (model.VerificationChallenge, error) {
	var c model.VerificationChallenge
	var otpHashHex string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, voter_id, otp_hash, channel, status, issued_at, expires_at,
		       attempt_count, last_attempt_at
		FROM verification_challenges
		WHERE id = $1
	`, id).Scan(
		&c.ID,
		&c.VoterID,
		&otpHashHex,
		&c.Channel,
		&c.Status,
		&c.IssuedAt,
		&c.ExpiresAt,
		&c.AttemptCount,
		&c.LastAttemptAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.VerificationChallenge{}, ErrNotFound
		}
		return model.VerificationChallenge{}, fmt.Errorf("query challenge: %w", err)
	}

	c.OTPHash, err = hex.DecodeString(otpHashHex)
	if err != nil {
		return model.VerificationChallenge{}, fmt.Errorf("decode otp_hash: %w", err)
	}
	return c, nil
}

// IncrementAttempt bumps attempt_count and last_attempt_at; returns the new count.
func (r *challengeRepo) IncrementAttempt(ctx context.Context, id uuid.UUID) (int, error) {
	var newCount int
	err := r.db.QueryRowContext(ctx, `
		UPDATE verification_challenges
		SET attempt_count = attempt_count + 1, last_attempt_at = now()
		WHERE id = $1
		RETURNING attempt_count
	`, id).Scan(&newCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment attempt: %w", err)
	}
	return newCount, nil
}

// MarkConfirmed transitions PENDING -> CONFIRMED. Returns ErrNotPending when the
// challenge has already reached a terminal state, so confirmation stays exactly-once
// under concurrent calls.
func (r *challengeRepo) MarkConfirmed(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE verification_challenges
		SET status = 'CONFIRMED'
		WHERE id = $1 AND status = 'PENDING'
	`, id)
	if err != nil {
		return fmt.Errorf("mark confirmed: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

// MarkFailed transitions a challenge to FAILED regardless of prior state.
func (r *challengeRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE verification_challenges SET status = 'FAILED' WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// CountRecentRequests returns challenges created for a voter since the given time
// (for per-voter request throttling).
func (r *challengeRepo) CountRecentRequests(ctx context.Context, voterID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM verification_challenges
		WHERE voter_id = $1 AND issued_at >= $2
	`, voterID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent requests: %w", err)
	}
	return count, nil
}
