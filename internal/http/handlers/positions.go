package handlers

import (
	"net/http"

	"github.com/ballotbox/server/internal/repo"
)

// PositionHandler serves the election's position list (feeds the nomination
// form dropdown)
type PositionHandler struct {
	ballots repo.BallotRepo
}

// NewPositionHandler creates a new position handler
func NewPositionHandler(ballots repo.BallotRepo) *PositionHandler {
	return &PositionHandler{ballots: ballots}
}

// positionListItem is one position in the public list
type positionListItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Seats int    `json:"seats"`
}

// HandleList handles GET /api/positions
func (h *PositionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	positions, err := h.ballots.ListPositions(r.Context())
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	resp := make([]positionListItem, 0, len(positions))
	for _, p := range positions {
		resp = append(resp, positionListItem{
			ID:    p.ID.String(),
			Name:  p.Name,
			Seats: p.SeatCount,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
