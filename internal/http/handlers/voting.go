package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ballotbox/server/internal/docstore"
	"github.com/ballotbox/server/internal/election"
	"github.com/ballotbox/server/internal/middleware"
	"github.com/ballotbox/server/internal/model"
	"github.com/google/uuid"
)

// VotingHandler handles ballot retrieval and vote casting. Both routes sit
// behind the ballot-token middleware.
type VotingHandler struct {
	assembler *election.Assembler
	caster    *election.Caster
	documents docstore.Store
}

// NewVotingHandler creates a new voting handler
func NewVotingHandler(assembler *election.Assembler, caster *election.Caster, documents docstore.Store) *VotingHandler {
	return &VotingHandler{
		assembler: assembler,
		caster:    caster,
		documents: documents,
	}
}

// candidateResponse is a candidate on the wire
type candidateResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Program      string `json:"program,omitempty"`
	PhotoURL     string `json:"photo_url"`
	ManifestoURL string `json:"manifesto_url"`
}

// positionResponse is one ballot position on the wire
type positionResponse struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Seats      int                 `json:"seats"`
	Candidates []candidateResponse `json:"candidates"`
}

// castEntry is one (position, candidate) pair in a cast request
type castEntry struct {
	PositionID  string `json:"position_id"`
	CandidateID string `json:"candidate_id"`
}

// castResponse is the JSON response for a successful cast
type castResponse struct {
	Success bool `json:"success"`
	Records int  `json:"records"`
}

// HandleGetBallot handles GET /api/voting/ballot
func (h *VotingHandler) HandleGetBallot(w http.ResponseWriter, r *http.Request) {
	voterID, ok := middleware.GetVoterID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ballot, err := h.assembler.Ballot(r.Context(), voterID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	resp := make([]positionResponse, 0, len(ballot))
	for _, bp := range ballot {
		pr := positionResponse{
			ID:         bp.Position.ID.String(),
			Name:       bp.Position.Name,
			Seats:      bp.Position.SeatCount,
			Candidates: make([]candidateResponse, 0, len(bp.Candidates)),
		}
		for _, c := range bp.Candidates {
			photoURL, err := h.documents.URL(r.Context(), c.PhotoKey)
			if err != nil {
				respondWithDomainError(w, err)
				return
			}
			manifestoURL, err := h.documents.URL(r.Context(), c.ManifestoKey)
			if err != nil {
				respondWithDomainError(w, err)
				return
			}
			pr.Candidates = append(pr.Candidates, candidateResponse{
				ID:           c.ID.String(),
				Name:         c.Name,
				Program:      c.Program,
				PhotoURL:     photoURL,
				ManifestoURL: manifestoURL,
			})
		}
		resp = append(resp, pr)
	}
	respondJSON(w, http.StatusOK, resp)
}

// HandleCast handles POST /api/voting/cast
func (h *VotingHandler) HandleCast(w http.ResponseWriter, r *http.Request) {
	tokenValue, ok := middleware.GetBallotToken(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var entries []castEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	selections := make(model.SelectionSet)
	for _, e := range entries {
		positionID, err := uuid.Parse(e.PositionID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid position_id")
			return
		}
		candidateID, err := uuid.Parse(e.CandidateID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid candidate_id")
			return
		}
		selections[positionID] = append(selections[positionID], candidateID)
	}

	result, err := h.caster.CastVote(r.Context(), tokenValue, selections)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, castResponse{Success: true, Records: result.RecordCount})
}
