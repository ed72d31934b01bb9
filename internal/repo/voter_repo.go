package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ballotbox/server/internal/model"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// VoterRepo defines the interface for electoral roll lookups
type VoterRepo interface {
	GetByRegNo(ctx context.Context, regNo string) (model.Voter, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Voter, error)
}

type voterRepo struct {
	db *sql.DB
}

// NewVoterRepo creates a new VoterRepo instance
func NewVoterRepo(db *sql.DB) VoterRepo {
	return &voterRepo{db: db}
}

const voterColumns = `id, reg_no, email, phone, eligible, constituency, created_at`

func scanVoter(row *sql.Row) (model.Voter, error) {
	var v model.Voter
	err := row.Scan(&v.ID, &v.RegNo, &v.Email, &v.Phone, &v.Eligible, &v.Constituency, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Voter{}, ErrNotFound
		}
		return model.Voter{}, fmt.Errorf("query voter: %w", err)
	}
	return v, nil
}

// GetByRegNo retrieves a voter by registration number
func (r *voterRepo) GetByRegNo(ctx context.Context, regNo string) (model.Voter, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+voterColumns+`
		FROM voters
		WHERE reg_no = $1
	`, regNo)
	return scanVoter(row)
}

// GetByID retrieves a voter by ID
func (r *voterRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Voter, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+voterColumns+`
		FROM voters
		WHERE id = $1
	`, id)
	return scanVoter(row)
}
