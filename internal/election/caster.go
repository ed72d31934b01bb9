package election

import (
	"context"
	"errors"
	"fmt"

	"github.com/ballotbox/server/internal/model"
	"github.com/ballotbox/server/internal/repo"
	"github.com/google/uuid"
)

// Caster performs the irrevocable cast: token validation, fresh ballot
// re-fetch, selection validation, then an atomic consume-and-record
// transaction. Concurrent casts bearing the same token yield exactly one
// success.
type Caster struct {
	issuer           *TokenIssuer
	assembler        *Assembler
	votes            repo.VoteRepo
	requireSelection bool
}

// NewCaster creates a new vote caster
func NewCaster(issuer *TokenIssuer, assembler *Assembler, votes repo.VoteRepo, requireSelection bool) *Caster {
	return &Caster{
		issuer:           issuer,
		assembler:        assembler,
		votes:            votes,
		requireSelection: requireSelection,
	}
}

// CastResult reports a completed cast
type CastResult struct {
	VoterID     uuid.UUID
	RecordCount int
}

// CastVote validates and records the vote. Validation failures leave the
// token ACTIVE so the voter may retry; once records are written there is no
// undo and every later cast with the token fails with ErrTokenConsumed.
func (c *Caster) CastVote(ctx context.Context, tokenValue string, selections model.SelectionSet) (CastResult, error) {
	// Advisory pre-check; the authoritative check happens under the row lock
	// inside the transaction.
	voterID, err := c.issuer.ValidateToken(ctx, tokenValue)
	if err != nil {
		return CastResult{}, err
	}

	// Never trust client-supplied position or candidate data.
	ballot, err := c.assembler.Ballot(ctx, voterID)
	if err != nil {
		return CastResult{}, fmt.Errorf("assemble ballot: %w", err)
	}

	if err := ValidateSelections(ballot, selections, c.requireSelection); err != nil {
		return CastResult{}, err
	}

	var records []repo.CastSelection
	for positionID, candidateIDs := range selections {
		for _, candidateID := range candidateIDs {
			records = append(records, repo.CastSelection{
				PositionID:  positionID,
				CandidateID: candidateID,
			})
		}
	}

	recordedVoter, err := c.votes.CastTx(ctx, tokenValue, records)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return CastResult{}, ErrInvalidToken
		case errors.Is(err, repo.ErrTokenConsumed):
			return CastResult{}, ErrTokenConsumed
		case errors.Is(err, repo.ErrTokenExpired):
			return CastResult{}, ErrTokenExpired
		}
		return CastResult{}, fmt.Errorf("cast vote: %w", err)
	}

	return CastResult{VoterID: recordedVoter, RecordCount: len(records)}, nil
}
