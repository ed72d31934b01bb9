package election

import (
	"fmt"

	"github.com/ballotbox/server/internal/model"
	"github.com/google/uuid"
)

// ValidateSelections checks a client-supplied selection set against the
// server-assembled ballot: every selected position must be on the ballot,
// every candidate must belong to that position (APPROVED candidates are the
// only ones assembled), no duplicates, and no position over its seat count.
// Positions absent from the set are abstentions. When requireSelection is
// set, at least one non-empty selection across the whole ballot is required.
func ValidateSelections(ballot model.Ballot, selections model.SelectionSet, requireSelection bool) error {
	onBallot := make(map[uuid.UUID]model.BallotPosition, len(ballot))
	for _, bp := range ballot {
		onBallot[bp.Position.ID] = bp
	}

	total := 0
	for positionID, candidateIDs := range selections {
		bp, ok := onBallot[positionID]
		if !ok {
			return &SelectionError{PositionID: positionID, Reason: "position is not on the ballot"}
		}

		if len(candidateIDs) > bp.Position.SeatCount {
			return &SelectionError{
				PositionID: positionID,
				Reason:     fmt.Sprintf("selected %d candidates for %d seat(s)", len(candidateIDs), bp.Position.SeatCount),
			}
		}

		valid := make(map[uuid.UUID]struct{}, len(bp.Candidates))
		for _, c := range bp.Candidates {
			valid[c.ID] = struct{}{}
		}

		seen := make(map[uuid.UUID]struct{}, len(candidateIDs))
		for _, id := range candidateIDs {
			if _, dup := seen[id]; dup {
				return &SelectionError{PositionID: positionID, Reason: "duplicate candidate selection"}
			}
			seen[id] = struct{}{}
			if _, ok := valid[id]; !ok {
				return &SelectionError{PositionID: positionID, Reason: "candidate is not on the ballot for this position"}
			}
		}

		total += len(candidateIDs)
	}

	if requireSelection && total == 0 {
		return &SelectionError{Reason: "at least one candidate must be selected"}
	}
	return nil
}
