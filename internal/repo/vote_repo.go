package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CastSelection is one (position, candidate) pair to record
type CastSelection struct {
	PositionID  uuid.UUID
	CandidateID uuid.UUID
}

// VoteRepo defines the interface for vote record storage
type VoteRepo interface {
	// CastTx atomically consumes the token and writes one vote record per
	// selection. The token row is locked FOR UPDATE, so concurrent casts with
	// the same token serialize and exactly one commits.
	CastTx(ctx context.Context, tokenValue string, selections []CastSelection) (voterID uuid.UUID, err error)
	CountForVoter(ctx context.Context, voterID uuid.UUID) (int, error)
}

type voteRepo struct {
	db *sql.DB
}

// NewVoteRepo creates a new VoteRepo instance
func NewVoteRepo(db *sql.DB) VoteRepo {
	return &voteRepo{db: db}
}

// CastTx runs the consume-and-record transaction. The authoritative token state
// check happens here, under the row lock; callers' earlier reads are advisory.
func (r *voteRepo) CastTx(ctx context.Context, tokenValue string, selections []CastSelection) (uuid.UUID, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		tokenID   uuid.UUID
		voterID   uuid.UUID
		status    string
		expiresAt time.Time
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, voter_id, status, expires_at
		FROM ballot_tokens
		WHERE token_value = $1
		FOR UPDATE
	`, tokenValue).Scan(&tokenID, &voterID, &status, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("lock token: %w", err)
	}

	switch status {
	case "CONSUMED":
		return uuid.Nil, ErrTokenConsumed
	case "EXPIRED":
		return uuid.Nil, ErrTokenExpired
	}
	if !expiresAt.After(time.Now()) {
		return uuid.Nil, ErrTokenExpired
	}

	for _, sel := range selections {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO vote_records (voter_id, position_id, candidate_id)
			VALUES ($1, $2, $3)
		`, voterID, sel.PositionID, sel.CandidateID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert vote record: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE ballot_tokens SET status = 'CONSUMED' WHERE id = $1 AND status = 'ACTIVE'
	`, tokenID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("consume token: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return uuid.Nil, ErrTokenConsumed
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return voterID, nil
}

// CountForVoter returns the number of vote records for a voter
func (r *voteRepo) CountForVoter(ctx context.Context, voterID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM vote_records WHERE voter_id = $1
	`, voterID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count vote records: %w", err)
	}
	return count, nil
}
