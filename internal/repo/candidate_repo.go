package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ballotbox/server/internal/model"
	"github.com/google/uuid"
)

// ErrDecided is returned when a decision targets a nomination that already
// reached a terminal state.
var ErrDecided = errors.New("nomination already decided")

// NewCandidate carries the fields of a nomination submission
type NewCandidate struct {
	PositionID   uuid.UUID
	Name         string
	VoterRegNo   string
	Program      string
	PhotoKey     string
	ManifestoKey string
}

// CandidateRepo defines the interface for nomination storage
type CandidateRepo interface {
	Create(ctx context.Context, nc NewCandidate) (model.Candidate, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Candidate, error)
	List(ctx context.Context, status *model.CandidateStatus) ([]model.Candidate, error)
	// Decide transitions PENDING -> APPROVED/REJECTED exactly once; returns
	// ErrDecided if the row already left PENDING.
	Decide(ctx context.Context, id uuid.UUID, status model.CandidateStatus, reason *string, officerID uuid.UUID) (model.Candidate, error)
}

type candidateRepo struct {
	db *sql.DB
}

// NewCandidateRepo creates a new CandidateRepo instance
func NewCandidateRepo(db *sql.DB) CandidateRepo {
	return &candidateRepo{db: db}
}

const candidateColumns = `id, position_id, name, voter_reg_no, program, photo_key, manifesto_key,
       status, decision_reason, decided_by, decided_at, submitted_at`

func scanCandidate(scan func(dest ...interface{}) error) (model.Candidate, error) {
	var c model.Candidate
	err := scan(
		&c.ID, &c.PositionID, &c.Name, &c.VoterRegNo, &c.Program,
		&c.PhotoKey, &c.ManifestoKey, &c.Status,
		&c.DecisionReason, &c.DecidedBy, &c.DecidedAt, &c.SubmittedAt,
	)
	return c, err
}

// Create inserts a PENDING nomination
func (r *candidateRepo) Create(ctx context.Context, nc NewCandidate) (model.Candidate, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO candidates (position_id, name, voter_reg_no, program, photo_key, manifesto_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+candidateColumns+`
	`, nc.PositionID, nc.Name, nc.VoterRegNo, nc.Program, nc.PhotoKey, nc.ManifestoKey)

	c, err := scanCandidate(row.Scan)
	if err != nil {
		return model.Candidate{}, fmt.Errorf("insert candidate: %w", err)
	}
	return c, nil
}

// GetByID retrieves a candidate by ID
func (r *candidateRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Candidate, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+candidateColumns+`
		FROM candidates
		WHERE id = $1
	`, id)
	c, err := scanCandidate(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Candidate{}, ErrNotFound
		}
		return model.Candidate{}, fmt.Errorf("query candidate: %w", err)
	}
	return c, nil
}

// List returns candidates, optionally filtered by status, newest first
func (r *candidateRepo) List(ctx context.Context, status *model.CandidateStatus) ([]model.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates`
	var args []interface{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY submitted_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return candidates, nil
}

// Decide records the officer decision under a row lock; no silent overwrite.
func (r *candidateRepo) Decide(ctx context.Context, id uuid.UUID, status model.CandidateStatus, reason *string, officerID uuid.UUID) (model.Candidate, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Candidate{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM candidates WHERE id = $1 FOR UPDATE
	`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Candidate{}, ErrNotFound
		}
		return model.Candidate{}, fmt.Errorf("lock candidate: %w", err)
	}
	if current != string(model.CandidatePending) {
		return model.Candidate{}, ErrDecided
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE candidates
		SET status = $2, decision_reason = $3, decided_by = $4, decided_at = now()
		WHERE id = $1
		RETURNING `+candidateColumns+`
	`, id, status, reason, officerID)

	c, err := scanCandidate(row.Scan)
	if err != nil {
		return model.Candidate{}, fmt.Errorf("update candidate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Candidate{}, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}
