package tests

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballotbox/server/internal/auth"
	"github.com/ballotbox/server/internal/config"
	"github.com/ballotbox/server/internal/db"
	"github.com/ballotbox/server/internal/docstore"
	"github.com/ballotbox/server/internal/election"
	httphandler "github.com/ballotbox/server/internal/http"
	"github.com/ballotbox/server/internal/http/handlers"
	"github.com/ballotbox/server/internal/notify"
	"github.com/ballotbox/server/internal/repo"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

func TestMain(m *testing.M) {
	// Set env if unset. Do NOT set DATABASE_URL; integration tests skip if missing.
	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "test-jwt-secret-at-least-32-characters-long")
	}
	if os.Getenv("OTP_SALT") == "" {
		os.Setenv("OTP_SALT", "test-otp-salt")
	}
	if os.Getenv("OTP_DEV_MODE") == "" {
		os.Setenv("OTP_DEV_MODE", "true")
	}

	os.Exit(m.Run())
}

// testServer holds the server, DB and services for integration tests
type testServer struct {
	Server *httptest.Server
	DB     *sql.DB
	JWT    *auth.JWTService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	os.Setenv("DOCUMENT_DIR", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err, "config load must succeed for integration test")

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL)
	require.NoError(t, err, "database open must succeed; check DATABASE_URL and that the test DB exists")
	t.Cleanup(func() { database.Close() })

	require.NoError(t, RunMigrations(database), "migrations must run successfully")
	require.NoError(t, TruncateElectionTables(ctx, database), "truncate election tables")

	voterRepo := repo.NewVoterRepo(database)
	challengeRepo := repo.NewChallengeRepo(database)
	tokenRepo := repo.NewTokenRepo(database)
	ballotRepo := repo.NewBallotRepo(database)
	voteRepo := repo.NewVoteRepo(database)
	candidateRepo := repo.NewCandidateRepo(database)

	documents, err := docstore.NewFSStore(cfg.DocumentDir)
	require.NoError(t, err, "document store must initialize")

	issuer := election.NewTokenIssuer(tokenRepo, cfg.TokenTTL)
	verifier := election.NewVerifier(voterRepo, challengeRepo, issuer, notify.NewLogSender(), cfg.OTPSalt, cfg.ChallengeTTL, cfg.DevMode)
	assembler := election.NewAssembler(voterRepo, ballotRepo)
	caster := election.NewCaster(issuer, assembler, voteRepo, cfg.RequireSelection)
	workflow := election.NewNominationWorkflow(candidateRepo, ballotRepo, documents)
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	router := httphandler.NewRouter(httphandler.RouterDeps{
		Verify:      handlers.NewVerifyHandler(verifier, cfg.DevMode),
		Voting:      handlers.NewVotingHandler(assembler, caster, documents),
		Nominations: handlers.NewNominationHandler(workflow),
		Positions:   handlers.NewPositionHandler(ballotRepo),
		Issuer:      issuer,
		JWT:         jwtService,
		DocumentDir: documents.Root(),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{Server: server, DB: database, JWT: jwtService}
}

// requestOTPResponse matches POST /api/verify/request-otp
type requestOTPResponse struct {
	VerificationID string `json:"verification_id"`
	VoterID        string `json:"voter_id"`
	Message        string `json:"message"`
	DevOTP         string `json:"dev_otp"`
}

// confirmResponse matches POST /api/verify/confirm
type confirmResponse struct {
	BallotToken string `json:"ballot_token"`
	VoterID     string `json:"voter_id"`
}

// ballotPosition matches one entry of GET /api/voting/ballot
type ballotPosition struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Seats      int    `json:"seats"`
	Candidates []struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		PhotoURL     string `json:"photo_url"`
		ManifestoURL string `json:"manifesto_url"`
	} `json:"candidates"`
}

// castResponse matches POST /api/voting/cast
type castResponse struct {
	Success bool `json:"success"`
	Records int  `json:"records"`
}

// errorResponse matches error JSON bodies
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *testServer) postJSON(t *testing.T, path string, body interface{}, bearer string) (*http.Response, []byte) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, s.Server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (s *testServer) get(t *testing.T, path, bearer string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.Server.URL+path, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

// verifyAndGetToken walks the OTP flow and returns the ballot token
func (s *testServer) verifyAndGetToken(t *testing.T, regNo string) string {
	t.Helper()
	resp, raw := s.postJSON(t, "/api/verify/request-otp", map[string]string{"reg_no": regNo, "method": "EMAIL"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, "request-otp must succeed; body: %s", raw)

	var otpRes requestOTPResponse
	require.NoError(t, json.Unmarshal(raw, &otpRes))

	resp, raw = s.postJSON(t, "/api/verify/confirm", map[string]string{
		"verification_id": otpRes.VerificationID,
		"otp":             otpRes.DevOTP,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, "confirm must succeed; body: %s", raw)

	var confRes confirmResponse
	require.NoError(t, json.Unmarshal(raw, &confRes))
	require.NotEmpty(t, confRes.BallotToken)
	return confRes.BallotToken
}

func TestVotingEndToEnd(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ts := newTestServer(t)
	ctx := context.Background()

	voterID, err := SeedVoter(ctx, ts.DB, "DIT/22/001", "voter@example.edu", "+255700000001", true)
	require.NoError(t, err)

	presidentID, err := SeedPosition(ctx, ts.DB, "President", 1, 1)
	require.NoError(t, err)
	senatorID, err := SeedPosition(ctx, ts.DB, "Senator", 2, 2)
	require.NoError(t, err)

	presA, err := SeedApprovedCandidate(ctx, ts.DB, presidentID, "pres-a")
	require.NoError(t, err)
	_, err = SeedApprovedCandidate(ctx, ts.DB, presidentID, "pres-b")
	require.NoError(t, err)
	senA, err := SeedApprovedCandidate(ctx, ts.DB, senatorID, "sen-a")
	require.NoError(t, err)
	senB, err := SeedApprovedCandidate(ctx, ts.DB, senatorID, "sen-b")
	require.NoError(t, err)
	_, err = SeedApprovedCandidate(ctx, ts.DB, senatorID, "sen-c")
	require.NoError(t, err)

	var token string

	t.Run("A_RequestAndConfirmOTP", func(t *testing.T) {
		token = ts.verifyAndGetToken(t, "DIT/22/001")
	})

	t.Run("B_FetchBallot", func(t *testing.T) {
		resp, raw := ts.get(t, "/api/voting/ballot", token)
		require.Equal(t, http.StatusOK, resp.StatusCode, "ballot fetch must succeed; body: %s", raw)

		var ballot []ballotPosition
		require.NoError(t, json.Unmarshal(raw, &ballot))
		require.Len(t, ballot, 2, "ballot must carry both positions")

		assert.Equal(t, "President", ballot[0].Name)
		assert.Equal(t, 1, ballot[0].Seats)
		assert.Len(t, ballot[0].Candidates, 2)
		assert.Equal(t, "Senator", ballot[1].Name)
		assert.Equal(t, 2, ballot[1].Seats)
		assert.Len(t, ballot[1].Candidates, 3)

		// Ballot reads are side-effect free while the token is ACTIVE.
		resp, _ = ts.get(t, "/api/voting/ballot", token)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("C_OverSeatLimitRejected", func(t *testing.T) {
		resp, raw := ts.postJSON(t, "/api/voting/cast", []map[string]string{
			{"position_id": presidentID.String(), "candidate_id": presA.String()},
			{"position_id": presidentID.String(), "candidate_id": senA.String()},
		}, token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var errRes errorResponse
		require.NoError(t, json.Unmarshal(raw, &errRes))
		assert.Equal(t, "invalid_selection", errRes.Error)

		// The failed cast must not consume the token or write records.
		count, err := CountVoteRecords(context.Background(), ts.DB, voterID)
		require.NoError(t, err)
		assert.Zero(t, count, "no vote records after a rejected cast")
	})

	t.Run("D_CastVote", func(t *testing.T) {
		resp, raw := ts.postJSON(t, "/api/voting/cast", []map[string]string{
			{"position_id": presidentID.String(), "candidate_id": presA.String()},
			{"position_id": senatorID.String(), "candidate_id": senA.String()},
			{"position_id": senatorID.String(), "candidate_id": senB.String()},
		}, token)
		require.Equal(t, http.StatusOK, resp.StatusCode, "cast must succeed; body: %s", raw)

		var castRes castResponse
		require.NoError(t, json.Unmarshal(raw, &castRes))
		assert.True(t, castRes.Success)
		assert.Equal(t, 3, castRes.Records)

		count, err := CountVoteRecords(context.Background(), ts.DB, voterID)
		require.NoError(t, err)
		assert.Equal(t, 3, count, "one row per (voter, position, candidate)")

		consumed, err := CountTokensWithStatus(context.Background(), ts.DB, voterID, "CONSUMED")
		require.NoError(t, err)
		assert.Equal(t, 1, consumed, "token must be CONSUMED after cast")
	})

	t.Run("E_TokenDeadAfterCast", func(t *testing.T) {
		resp, raw := ts.get(t, "/api/voting/ballot", token)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var errRes errorResponse
		require.NoError(t, json.Unmarshal(raw, &errRes))
		assert.Equal(t, "token_consumed", errRes.Error)

		resp, raw = ts.postJSON(t, "/api/voting/cast", []map[string]string{
			{"position_id": presidentID.String(), "candidate_id": presA.String()},
		}, token)
		assert.Contains(t, []int{http.StatusUnauthorized, http.StatusConflict}, resp.StatusCode)
		require.NoError(t, json.Unmarshal(raw, &errRes))
		assert.Equal(t, "token_consumed", errRes.Error)

		count, err := CountVoteRecords(context.Background(), ts.DB, voterID)
		require.NoError(t, err)
		assert.Equal(t, 3, count, "replayed cast must not add records")
	})

	t.Run("F_ReverificationAfterVoteRejected", func(t *testing.T) {
		resp, raw := ts.postJSON(t, "/api/verify/request-otp", map[string]string{"reg_no": "DIT/22/001", "method": "EMAIL"}, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var otpRes requestOTPResponse
		require.NoError(t, json.Unmarshal(raw, &otpRes))

		resp, raw = ts.postJSON(t, "/api/verify/confirm", map[string]string{
			"verification_id": otpRes.VerificationID,
			"otp":             otpRes.DevOTP,
		}, "")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		var errRes errorResponse
		require.NoError(t, json.Unmarshal(raw, &errRes))
		assert.Equal(t, "already_voted", errRes.Error)
	})
}

func TestConcurrentCastsExactlyOneSuccess(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ts := newTestServer(t)
	ctx := context.Background()

	voterID, err := SeedVoter(ctx, ts.DB, "DIT/22/002", "racer@example.edu", "", true)
	require.NoError(t, err)
	positionID, err := SeedPosition(ctx, ts.DB, "President", 1, 1)
	require.NoError(t, err)
	candidateID, err := SeedApprovedCandidate(ctx, ts.DB, positionID, "pres-a")
	require.NoError(t, err)

	token := ts.verifyAndGetToken(t, "DIT/22/002")

	body := []map[string]string{
		{"position_id": positionID.String(), "candidate_id": candidateID.String()},
	}

	const parallel = 8
	var successCount, consumedCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, _ := json.Marshal(body)
			req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/api/voting/cast", bytes.NewReader(payload))
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := ts.Server.Client().Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			raw, _ := io.ReadAll(resp.Body)

			switch resp.StatusCode {
			case http.StatusOK:
				successCount.Add(1)
			default:
				var errRes errorResponse
				if json.Unmarshal(raw, &errRes) == nil && errRes.Error == "token_consumed" {
					consumedCount.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load(), "exactly one concurrent cast must succeed")
	assert.Equal(t, int32(parallel-1), consumedCount.Load(), "every other cast must fail with token_consumed")

	count, err := CountVoteRecords(ctx, ts.DB, voterID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "exactly one vote record set must exist")

	consumed, err := CountTokensWithStatus(ctx, ts.DB, voterID, "CONSUMED")
	require.NoError(t, err)
	assert.Equal(t, 1, consumed)
}

func TestVerificationEdgeCases(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ts := newTestServer(t)
	ctx := context.Background()

	_, err := SeedVoter(ctx, ts.DB, "DIT/22/010", "edge@example.edu", "", true)
	require.NoError(t, err)
	_, err = SeedVoter(ctx, ts.DB, "DIT/22/011", "flagged@example.edu", "", false)
	require.NoError(t, err)

	t.Run("UnknownAndIneligibleLookAlike", func(t *testing.T) {
		respUnknown, rawUnknown := ts.postJSON(t, "/api/verify/request-otp", map[string]string{"reg_no": "DIT/99/999", "method": "EMAIL"}, "")
		respFlagged, rawFlagged := ts.postJSON(t, "/api/verify/request-otp", map[string]string{"reg_no": "DIT/22/011", "method": "EMAIL"}, "")

		// Identical shape for unknown and ineligible: no enumeration oracle.
		assert.Equal(t, respUnknown.StatusCode, respFlagged.StatusCode)
		assert.Equal(t, http.StatusForbidden, respUnknown.StatusCode)
		assert.JSONEq(t, string(rawUnknown), string(rawFlagged))
	})

	t.Run("MissingChannel", func(t *testing.T) {
		resp, raw := ts.postJSON(t, "/api/verify/request-otp", map[string]string{"reg_no": "DIT/22/010", "method": "SMS"}, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var errRes errorResponse
		require.NoError(t, json.Unmarshal(raw, &errRes))
		assert.Equal(t, "channel_unavailable", errRes.Error)
	})

	t.Run("NewRequestSupersedesOldChallenge", func(t *testing.T) {
		resp, raw := ts.postJSON(t, "/api/verify/request-otp", map[string]string{"reg_no": "DIT/22/010", "method": "EMAIL"}, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var first requestOTPResponse
		require.NoError(t, json.Unmarshal(raw, &first))

		resp, raw = ts.postJSON(t, "/api/verify/request-otp", map[string]string{"reg_no": "DIT/22/010", "method": "EMAIL"}, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var second requestOTPResponse
		require.NoError(t, json.Unmarshal(raw, &second))

		// The superseded challenge no longer confirms, even with the right code.
		resp, _ = ts.postJSON(t, "/api/verify/confirm", map[string]string{
			"verification_id": first.VerificationID,
			"otp":             first.DevOTP,
		}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp, _ = ts.postJSON(t, "/api/verify/confirm", map[string]string{
			"verification_id": second.VerificationID,
			"otp":             second.DevOTP,
		}, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestChallengeAttemptAndExpiryBounds(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ts := newTestServer(t)
	ctx := context.Background()

	voterID, err := SeedVoter(ctx, ts.DB, "DIT/22/020", "bounds@example.edu", "", true)
	require.NoError(t, err)

	t.Run("AttemptExhaustion", func(t *testing.T) {
		resp, raw := ts.postJSON(t, "/api/verify/request-otp", map[string]string{"reg_no": "DIT/22/020", "method": "EMAIL"}, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var otpRes requestOTPResponse
		require.NoError(t, json.Unmarshal(raw, &otpRes))

		// Four wrong guesses burn attempts but the challenge survives.
		for i := 0; i < 4; i++ {
			resp, raw = ts.postJSON(t, "/api/verify/confirm", map[string]string{
				"verification_id": otpRes.VerificationID,
				"otp":             "000000",
			}, "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "wrong guess %d; body: %s", i+1, raw)
		}

		// The fifth wrong guess exhausts the bound and fails the challenge.
		resp, raw = ts.postJSON(t, "/api/verify/confirm", map[string]string{
			"verification_id": otpRes.VerificationID,
			"otp":             "000000",
		}, "")
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		var errRes errorResponse
		require.NoError(t, json.Unmarshal(raw, &errRes))
		assert.Equal(t, "too_many_attempts", errRes.Error)

		// Even the correct code no longer confirms a FAILED challenge.
		resp, _ = ts.postJSON(t, "/api/verify/confirm", map[string]string{
			"verification_id": otpRes.VerificationID,
			"otp":             otpRes.DevOTP,
		}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		active, err := CountTokensWithStatus(ctx, ts.DB, voterID, "ACTIVE")
		require.NoError(t, err)
		assert.Zero(t, active, "no token may be issued from a failed challenge")
	})

	t.Run("ExpiredChallenge", func(t *testing.T) {
		resp, raw := ts.postJSON(t, "/api/verify/request-otp", map[string]string{"reg_no": "DIT/22/020", "method": "EMAIL"}, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var otpRes requestOTPResponse
		require.NoError(t, json.Unmarshal(raw, &otpRes))

		challengeID, err := uuid.Parse(otpRes.VerificationID)
		require.NoError(t, err)
		require.NoError(t, ExpireChallenge(ctx, ts.DB, challengeID))

		resp, raw = ts.postJSON(t, "/api/verify/confirm", map[string]string{
			"verification_id": otpRes.VerificationID,
			"otp":             otpRes.DevOTP,
		}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var errRes errorResponse
		require.NoError(t, json.Unmarshal(raw, &errRes))
		assert.Equal(t, "token_expired", errRes.Error)

		active, err := CountTokensWithStatus(ctx, ts.DB, voterID, "ACTIVE")
		require.NoError(t, err)
		assert.Zero(t, active, "no token may be issued from an expired challenge")
	})
}

func TestTokenExpiryAndDoubleConfirm(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ts := newTestServer(t)
	ctx := context.Background()

	voterID, err := SeedVoter(ctx, ts.DB, "DIT/22/030", "expiry@example.edu", "", true)
	require.NoError(t, err)
	positionID, err := SeedPosition(ctx, ts.DB, "President", 1, 1)
	require.NoError(t, err)
	candidateID, err := SeedApprovedCandidate(ctx, ts.DB, positionID, "pres-a")
	require.NoError(t, err)

	resp, raw := ts.postJSON(t, "/api/verify/request-otp", map[string]string{"reg_no": "DIT/22/030", "method": "EMAIL"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var otpRes requestOTPResponse
	require.NoError(t, json.Unmarshal(raw, &otpRes))

	resp, raw = ts.postJSON(t, "/api/verify/confirm", map[string]string{
		"verification_id": otpRes.VerificationID,
		"otp":             otpRes.DevOTP,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var confRes confirmResponse
	require.NoError(t, json.Unmarshal(raw, &confRes))

	t.Run("RepeatConfirmDoesNotRegrant", func(t *testing.T) {
		resp, raw := ts.postJSON(t, "/api/verify/confirm", map[string]string{
			"verification_id": otpRes.VerificationID,
			"otp":             otpRes.DevOTP,
		}, "")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		var errRes errorResponse
		require.NoError(t, json.Unmarshal(raw, &errRes))
		assert.Equal(t, "already_confirmed", errRes.Error)

		active, err := CountTokensWithStatus(ctx, ts.DB, voterID, "ACTIVE")
		require.NoError(t, err)
		assert.Equal(t, 1, active, "at most one ACTIVE token per voter")
	})

	t.Run("ExpiredTokenRejected", func(t *testing.T) {
		require.NoError(t, ExpireTokensForVoter(ctx, ts.DB, voterID))

		resp, raw := ts.get(t, "/api/voting/ballot", confRes.BallotToken)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var errRes errorResponse
		require.NoError(t, json.Unmarshal(raw, &errRes))
		assert.Equal(t, "token_expired", errRes.Error)

		resp, raw = ts.postJSON(t, "/api/voting/cast", []map[string]string{
			{"position_id": positionID.String(), "candidate_id": candidateID.String()},
		}, confRes.BallotToken)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.NoError(t, json.Unmarshal(raw, &errRes))
		assert.Equal(t, "token_expired", errRes.Error)

		count, err := CountVoteRecords(ctx, ts.DB, voterID)
		require.NoError(t, err)
		assert.Zero(t, count, "expired token must never produce vote records")
	})

	t.Run("GarbageTokenRejected", func(t *testing.T) {
		resp, raw := ts.get(t, "/api/voting/ballot", "definitely-not-a-token")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var errRes errorResponse
		require.NoError(t, json.Unmarshal(raw, &errRes))
		assert.Equal(t, "invalid_token", errRes.Error)
	})
}
