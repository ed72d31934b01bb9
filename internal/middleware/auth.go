package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ballotbox/server/internal/auth"
	"github.com/ballotbox/server/internal/election"
	"github.com/google/uuid"
)

type contextKey string

const (
	voterIDKey     contextKey = "voter_id"
	ballotTokenKey contextKey = "ballot_token"
	officerKey     contextKey = "officer"
)

// BallotTokenMiddleware validates the single-use ballot token presented as a
// bearer credential and attaches the owning voter to the context. The token
// is the only voter-flow credential; there is no ambient session.
func BallotTokenMiddleware(issuer *election.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenValue, ok := bearerToken(r)
			if !ok {
				respondWithKind(w, http.StatusUnauthorized, "invalid_token", "missing or malformed authorization header")
				return
			}

			voterID, err := issuer.ValidateToken(r.Context(), tokenValue)
			if err != nil {
				switch {
				case errors.Is(err, election.ErrTokenConsumed):
					respondWithKind(w, http.StatusUnauthorized, "token_consumed", "ballot token already used")
				case errors.Is(err, election.ErrTokenExpired):
					respondWithKind(w, http.StatusUnauthorized, "token_expired", "ballot token expired")
				case errors.Is(err, election.ErrInvalidToken):
					respondWithKind(w, http.StatusUnauthorized, "invalid_token", "invalid ballot token")
				default:
					respondWithKind(w, http.StatusInternalServerError, "internal", "internal error")
				}
				return
			}

			ctx := context.WithValue(r.Context(), voterIDKey, voterID)
			ctx = context.WithValue(ctx, ballotTokenKey, tokenValue)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OfficerMiddleware validates the returning officer JWT credential
func OfficerMiddleware(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				respondWithKind(w, http.StatusUnauthorized, "unauthorized", "missing or malformed authorization header")
				return
			}

			claims, err := jwtService.VerifyOfficerToken(tokenString)
			if err != nil {
				respondWithKind(w, http.StatusUnauthorized, "unauthorized", "invalid or expired officer credential")
				return
			}

			ctx := context.WithValue(r.Context(), officerKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetVoterID extracts the authorized voter id from context
func GetVoterID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(voterIDKey).(uuid.UUID)
	return id, ok
}

// GetBallotToken extracts the presented ballot token from context
func GetBallotToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(ballotTokenKey).(string)
	return token, ok
}

// GetOfficer extracts the officer claims from context
func GetOfficer(ctx context.Context) (*auth.OfficerClaims, bool) {
	claims, ok := ctx.Value(officerKey).(*auth.OfficerClaims)
	return claims, ok
}

// bearerToken extracts a bearer credential from the Authorization header
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// respondWithKind sends a JSON error response with a stable kind
func respondWithKind(w http.ResponseWriter, statusCode int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}
