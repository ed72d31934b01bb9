package election

import (
	"context"
	"fmt"

	"github.com/ballotbox/server/internal/model"
	"github.com/ballotbox/server/internal/repo"
	"github.com/google/uuid"
)

// Assembler builds the ballot a voter is entitled to. Pure read; safe to call
// repeatedly while the token remains ACTIVE.
type Assembler struct {
	voters  repo.VoterRepo
	ballots repo.BallotRepo
}

// NewAssembler creates a new ballot assembler
func NewAssembler(voters repo.VoterRepo, ballots repo.BallotRepo) *Assembler {
	return &Assembler{voters: voters, ballots: ballots}
}

// Ballot returns the ordered positions for the voter's constituency, each
// carrying only APPROVED candidates and its seat count.
func (a *Assembler) Ballot(ctx context.Context, voterID uuid.UUID) (model.Ballot, error) {
	voter, err := a.voters.GetByID(ctx, voterID)
	if err != nil {
		return nil, fmt.Errorf("lookup voter: %w", err)
	}

	positions, err := a.ballots.PositionsForConstituency(ctx, voter.Constituency)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	if len(positions) == 0 {
		return model.Ballot{}, nil
	}

	ids := make([]uuid.UUID, len(positions))
	for i, p := range positions {
		ids[i] = p.ID
	}
	candidates, err := a.ballots.ApprovedCandidates(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	ballot := make(model.Ballot, len(positions))
	for i, p := range positions {
		ballot[i] = model.BallotPosition{
			Position:   p,
			Candidates: candidates[p.ID],
		}
	}
	return ballot, nil
}
