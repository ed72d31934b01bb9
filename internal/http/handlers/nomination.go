package handlers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ballotbox/server/internal/election"
	"github.com/ballotbox/server/internal/middleware"
	"github.com/ballotbox/server/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxNominationUpload bounds the multipart form held in memory (10 MB).
const maxNominationUpload = 10 << 20

// NominationHandler handles candidate nomination and officer review
type NominationHandler struct {
	workflow *election.NominationWorkflow
}

// NewNominationHandler creates a new nomination handler
func NewNominationHandler(workflow *election.NominationWorkflow) *NominationHandler {
	return &NominationHandler{workflow: workflow}
}

// nominationResponse is a nomination on the wire
type nominationResponse struct {
	ID             string  `json:"id"`
	PositionID     string  `json:"position_id"`
	CandidateName  string  `json:"candidate_name"`
	VoterRegNo     string  `json:"voter_reg_no"`
	Program        string  `json:"program"`
	PhotoURL       string  `json:"photo_url"`
	ManifestoURL   string  `json:"manifesto_url"`
	Status         string  `json:"status"`
	DecisionReason *string `json:"decision_reason,omitempty"`
	SubmittedAt    string  `json:"submitted_at"`
}

func (h *NominationHandler) toResponse(r *http.Request, c model.Candidate) (nominationResponse, error) {
	photoURL, manifestoURL, err := h.workflow.DocumentURLs(r.Context(), c)
	if err != nil {
		return nominationResponse{}, err
	}
	return nominationResponse{
		ID:             c.ID.String(),
		PositionID:     c.PositionID.String(),
		CandidateName:  c.Name,
		VoterRegNo:     c.VoterRegNo,
		Program:        c.Program,
		PhotoURL:       photoURL,
		ManifestoURL:   manifestoURL,
		Status:         string(c.Status),
		DecisionReason: c.DecisionReason,
		SubmittedAt:    c.SubmittedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

// formDocument adapts a multipart file header to an election.Document
func formDocument(r *http.Request, field string) (*election.Document, multipart.File, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return &election.Document{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	}, file, nil
}

// HandleNominate handles POST /api/candidate/nominate (multipart form)
func (h *NominationHandler) HandleNominate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxNominationUpload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	name := strings.TrimSpace(r.FormValue("candidate_name"))
	regNo := strings.TrimSpace(r.FormValue("voter_reg_no"))
	program := strings.TrimSpace(r.FormValue("program"))
	positionField := strings.TrimSpace(r.FormValue("position_id"))

	if name == "" || regNo == "" || positionField == "" {
		respondWithError(w, http.StatusBadRequest, "candidate_name, voter_reg_no and position_id are required")
		return
	}
	positionID, err := uuid.Parse(positionField)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid position_id")
		return
	}

	photo, photoFile, err := formDocument(r, "photoFile")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid photoFile upload")
		return
	}
	if photoFile != nil {
		defer photoFile.Close()
	}
	manifesto, manifestoFile, err := formDocument(r, "manifestoFile")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid manifestoFile upload")
		return
	}
	if manifestoFile != nil {
		defer manifestoFile.Close()
	}

	candidate, err := h.workflow.Submit(r.Context(), election.Submission{
		PositionID: positionID,
		Name:       name,
		VoterRegNo: regNo,
		Program:    program,
		Photo:      photo,
		Manifesto:  manifesto,
	})
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	resp, err := h.toResponse(r, candidate)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// HandleList handles GET /api/candidate (officer-authorized). An optional
// status query filters the listing (the review screen wants PENDING).
func (h *NominationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var statusFilter *model.CandidateStatus
	if raw := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))); raw != "" {
		status := model.CandidateStatus(raw)
		switch status {
		case model.CandidatePending, model.CandidateApproved, model.CandidateRejected:
			statusFilter = &status
		default:
			respondWithError(w, http.StatusBadRequest, "status must be PENDING, APPROVED or REJECTED")
			return
		}
	}

	candidates, err := h.workflow.List(r.Context(), statusFilter)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	resp := make([]nominationResponse, 0, len(candidates))
	for _, c := range candidates {
		nr, err := h.toResponse(r, c)
		if err != nil {
			respondWithDomainError(w, err)
			return
		}
		resp = append(resp, nr)
	}
	respondJSON(w, http.StatusOK, resp)
}

// decisionRequest is the request body for PATCH /api/candidate/{id}/decision
type decisionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// HandleDecision handles PATCH /api/candidate/{id}/decision (officer-authorized)
func (h *NominationHandler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	officer, ok := middleware.GetOfficer(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	nominationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid nomination id")
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	action := strings.ToUpper(strings.TrimSpace(req.Action))
	if action != election.ActionApprove && action != election.ActionReject {
		respondWithError(w, http.StatusBadRequest, "action must be APPROVE or REJECT")
		return
	}

	candidate, err := h.workflow.Decide(r.Context(), nominationID, action, req.Reason, officer.OfficerID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	resp, err := h.toResponse(r, candidate)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
