package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ballotbox/server/internal/election"
	"github.com/ballotbox/server/internal/middleware"
	"github.com/ballotbox/server/internal/model"
	"github.com/google/uuid"
)

// VerifyHandler handles the voter verification endpoints
type VerifyHandler struct {
	verifier  *election.Verifier
	ipLimiter *middleware.RateLimiter
	devMode   bool
}

// NewVerifyHandler creates a new verification handler
func NewVerifyHandler(verifier *election.Verifier, devMode bool) *VerifyHandler {
	// IP limit shields the endpoints; the per-voter window lives in the verifier.
	return &VerifyHandler{
		verifier:  verifier,
		ipLimiter: middleware.NewRateLimiter(10*time.Minute, 20),
		devMode:   devMode,
	}
}

// requestOTPRequest is the request body for POST /api/verify/request-otp
type requestOTPRequest struct {
	RegNo  string `json:"reg_no"`
	Method string `json:"method"`
}

// requestOTPResponse is the JSON response for request-otp
type requestOTPResponse struct {
	VerificationID string `json:"verification_id"`
	VoterID        string `json:"voter_id"`
	Message        string `json:"message"`
	DevOTP         string `json:"dev_otp,omitempty"`
}

// confirmRequest is the request body for POST /api/verify/confirm
type confirmRequest struct {
	VerificationID string `json:"verification_id"`
	OTP            string `json:"otp"`
}

// confirmResponse is the JSON response for confirm
type confirmResponse struct {
	BallotToken string `json:"ballot_token"`
	VoterID     string `json:"voter_id"`
}

// HandleRequestOTP handles POST /api/verify/request-otp
func (h *VerifyHandler) HandleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req requestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.RegNo = strings.ToUpper(strings.TrimSpace(req.RegNo))
	if req.RegNo == "" {
		respondWithError(w, http.StatusBadRequest, "reg_no is required")
		return
	}

	channel := model.Channel(strings.ToUpper(strings.TrimSpace(req.Method)))
	if channel != model.ChannelEmail && channel != model.ChannelSMS {
		respondWithError(w, http.StatusBadRequest, "method must be EMAIL or SMS")
		return
	}

	if !h.ipLimiter.Allow(middleware.IPKey(r)) {
		respondWithDomainError(w, election.ErrRateLimited)
		return
	}

	issued, err := h.verifier.RequestChallenge(r.Context(), req.RegNo, channel)
	if err != nil {
		log.Printf("Challenge request for %s failed: %v", maskRegNo(req.RegNo), err)
		respondWithDomainError(w, err)
		return
	}

	resp := requestOTPResponse{
		VerificationID: issued.ChallengeID.String(),
		VoterID:        issued.VoterID.String(),
		Message:        "verification code sent",
	}
	if h.devMode {
		resp.DevOTP = election.DevOTP
	}
	respondJSON(w, http.StatusOK, resp)
}

// HandleConfirm handles POST /api/verify/confirm
func (h *VerifyHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.OTP = strings.TrimSpace(req.OTP)
	if req.VerificationID == "" || req.OTP == "" {
		respondWithError(w, http.StatusBadRequest, "verification_id and otp are required")
		return
	}

	challengeID, err := uuid.Parse(req.VerificationID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid verification_id")
		return
	}

	if !h.ipLimiter.Allow(middleware.IPKey(r)) {
		respondWithDomainError(w, election.ErrRateLimited)
		return
	}

	token, err := h.verifier.ConfirmChallenge(r.Context(), challengeID, req.OTP)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, confirmResponse{
		BallotToken: token.Value,
		VoterID:     token.VoterID.String(),
	})
}
