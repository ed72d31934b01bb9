package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/ballotbox/server/internal/election"
)

// kindMapping pairs an election sentinel with its wire kind and status
type kindMapping struct {
	err    error
	status int
	kind   string
}

// Every caller-recoverable failure maps to a stable machine-readable kind.
// Anything not listed is internal and never leaks detail to the caller.
var kindMappings = []kindMapping{
	{election.ErrNotEligible, http.StatusForbidden, "not_eligible"},
	{election.ErrChannelUnavailable, http.StatusBadRequest, "channel_unavailable"},
	{election.ErrTooManyAttempts, http.StatusTooManyRequests, "too_many_attempts"},
	{election.ErrAlreadyConfirmed, http.StatusConflict, "already_confirmed"},
	{election.ErrInvalidCode, http.StatusUnauthorized, "invalid_code"},
	{election.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{election.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
	{election.ErrTokenConsumed, http.StatusConflict, "token_consumed"},
	{election.ErrAlreadyVoted, http.StatusConflict, "already_voted"},
	{election.ErrInvalidSelection, http.StatusBadRequest, "invalid_selection"},
	{election.ErrMissingDocument, http.StatusBadRequest, "missing_document"},
	{election.ErrReasonRequired, http.StatusBadRequest, "reason_required"},
	{election.ErrAlreadyDecided, http.StatusConflict, "already_decided"},
	{election.ErrNominationNotFound, http.StatusNotFound, "not_found"},
	{election.ErrPositionNotFound, http.StatusNotFound, "not_found"},
	{election.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
}

// respondJSON writes a JSON body with the given status
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// respondWithError sends a plain error message (request-shape problems)
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

// respondWithDomainError maps an election error to its wire kind. A selection
// violation carries the offending position in the message.
func respondWithDomainError(w http.ResponseWriter, err error) {
	for _, m := range kindMappings {
		if errors.Is(err, m.err) {
			message := m.err.Error()
			var selErr *election.SelectionError
			if errors.As(err, &selErr) {
				message = selErr.Error()
			}
			respondJSON(w, m.status, map[string]string{"error": m.kind, "message": message})
			return
		}
	}
	log.Printf("Internal error: %v", err)
	respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal", "message": "internal error"})
}

// maskRegNo masks a registration number for logging (e.g., DI******01)
func maskRegNo(regNo string) string {
	if len(regNo) <= 4 {
		return "****"
	}
	return regNo[:2] + strings.Repeat("*", len(regNo)-4) + regNo[len(regNo)-2:]
}
