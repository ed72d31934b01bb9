package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ballotbox/server/internal/model"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// BallotRepo defines the interface for reading positions and ballot candidates
type BallotRepo interface {
	ListPositions(ctx context.Context) ([]model.Position, error)
	GetPosition(ctx context.Context, id uuid.UUID) (model.Position, error)
	PositionsForConstituency(ctx context.Context, constituency string) ([]model.Position, error)
	ApprovedCandidates(ctx context.Context, positionIDs []uuid.UUID) (map[uuid.UUID][]model.Candidate, error)
}

type ballotRepo struct {
	db *sql.DB
}

// NewBallotRepo creates a new BallotRepo instance
func NewBallotRepo(db *sql.DB) BallotRepo {
	return &ballotRepo{db: db}
}

const positionColumns = `id, name, seat_count, constituency, ordinal`

func (r *ballotRepo) queryPositions(ctx context.Context, query string, args ...interface{}) ([]model.Position, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		var p model.Position
		if err := rows.Scan(&p.ID, &p.Name, &p.SeatCount, &p.Constituency, &p.Ordinal); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return positions, nil
}

// ListPositions returns every position, ordered for display
func (r *ballotRepo) ListPositions(ctx context.Context) ([]model.Position, error) {
	return r.queryPositions(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		ORDER BY ordinal, name
	`)
}

// GetPosition retrieves a single position by ID
func (r *ballotRepo) GetPosition(ctx context.Context, id uuid.UUID) (model.Position, error) {
	var p model.Position
	err := r.db.QueryRowContext(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.SeatCount, &p.Constituency, &p.Ordinal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Position{}, ErrNotFound
		}
		return model.Position{}, fmt.Errorf("query position: %w", err)
	}
	return p, nil
}

// PositionsForConstituency returns the positions a voter in the given
// constituency votes on, ordered for the ballot
func (r *ballotRepo) PositionsForConstituency(ctx context.Context, constituency string) ([]model.Position, error) {
	return r.queryPositions(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE constituency = $1
		ORDER BY ordinal, name
	`, constituency)
}

// ApprovedCandidates returns APPROVED candidates grouped by position
func (r *ballotRepo) ApprovedCandidates(ctx context.Context, positionIDs []uuid.UUID) (map[uuid.UUID][]model.Candidate, error) {
	ids := make([]string, len(positionIDs))
	for i, id := range positionIDs {
		ids[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, position_id, name, voter_reg_no, program, photo_key, manifesto_key,
		       status, decision_reason, decided_by, decided_at, submitted_at
		FROM candidates
		WHERE position_id = ANY($1) AND status = 'APPROVED'
		ORDER BY name
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query approved candidates: %w", err)
	}
	defer rows.Close()

	grouped := make(map[uuid.UUID][]model.Candidate)
	for rows.Next() {
		var c model.Candidate
		err := rows.Scan(
			&c.ID, &c.PositionID, &c.Name, &c.VoterRegNo, &c.Program,
			&c.PhotoKey, &c.ManifestoKey, &c.Status,
			&c.DecisionReason, &c.DecidedBy, &c.DecidedAt, &c.SubmittedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		grouped[c.PositionID] = append(grouped[c.PositionID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return grouped, nil
}
