package election

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ballotbox/server/internal/model"
	"github.com/ballotbox/server/internal/notify"
	"github.com/ballotbox/server/internal/repo"
	"github.com/google/uuid"
)

const (
	maxConfirmAttempts   = 5
	requestWindow        = 10 * time.Minute
	maxRequestsPerWindow = 3

	// DevOTP is the fixed code accepted in dev mode.
	DevOTP = "123456"
)

// Verifier validates voter identity through an OTP challenge and, on
// confirmation, hands off to the token issuer.
type Verifier struct {
	voters     repo.VoterRepo
	challenges repo.ChallengeRepo
	issuer     *TokenIssuer
	sender     notify.Sender
	salt       string
	ttl        time.Duration
	devMode    bool
}

// NewVerifier creates a new identity verifier
func NewVerifier(
	voters repo.VoterRepo,
	challenges repo.ChallengeRepo,
	issuer *TokenIssuer,
	sender notify.Sender,
	salt string,
	ttl time.Duration,
	devMode bool,
) *Verifier {
	return &Verifier{
		voters:     voters,
		challenges: challenges,
		issuer:     issuer,
		sender:     sender,
		salt:       salt,
		ttl:        ttl,
		devMode:    devMode,
	}
}

// ChallengeIssued is the outcome of a successful challenge request
type ChallengeIssued struct {
	ChallengeID uuid.UUID
	VoterID     uuid.UUID
	Channel     model.Channel
}

// RequestChallenge verifies eligibility, supersedes any outstanding PENDING
// challenge for the voter, and dispatches a fresh OTP. Unknown and ineligible
// registration numbers return the identical ErrNotEligible.
func (v *Verifier) RequestChallenge(ctx context.Context, regNo string, channel model.Channel) (ChallengeIssued, error) {
	voter, err := v.voters.GetByRegNo(ctx, regNo)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ChallengeIssued{}, ErrNotEligible
		}
		return ChallengeIssued{}, fmt.Errorf("lookup voter: %w", err)
	}
	if !voter.Eligible {
		return ChallengeIssued{}, ErrNotEligible
	}

	destination, err := contactFor(voter, channel)
	if err != nil {
		return ChallengeIssued{}, err
	}

	since := time.Now().Add(-requestWindow)
	count, err := v.challenges.CountRecentRequests(ctx, voter.ID, since)
	if err != nil {
		return ChallengeIssued{}, fmt.Errorf("rate limit check: %w", err)
	}
	if count >= maxRequestsPerWindow {
		return ChallengeIssued{}, ErrRateLimited
	}

	code := DevOTP
	if !v.devMode {
		code, err = generateOTPCode()
		if err != nil {
			return ChallengeIssued{}, fmt.Errorf("generate code: %w", err)
		}
	}

	expiresAt := time.Now().Add(v.ttl)
	hashHex := hashOTPHex(voter.ID.String(), code, v.salt)

	challengeID, err := v.challenges.CreateOrReplace(ctx, voter.ID, hashHex, channel, expiresAt)
	if err != nil {
		return ChallengeIssued{}, fmt.Errorf("create challenge: %w", err)
	}

	if err := v.sender.Send(ctx, channel, destination, code); err != nil {
		_ = v.challenges.MarkFailed(ctx, challengeID)
		return ChallengeIssued{}, ErrChannelUnavailable
	}

	return ChallengeIssued{ChallengeID: challengeID, VoterID: voter.ID, Channel: channel}, nil
}

// ConfirmChallenge checks the code against the stored hash within expiry and
// attempt bounds. Confirmation is exactly-once: a repeat confirm on an already
// CONFIRMED challenge fails with ErrAlreadyConfirmed and never re-grants. On
// success the ballot token issuer is invoked and its token returned.
func (v *Verifier) ConfirmChallenge(ctx context.Context, challengeID uuid.UUID, code string) (model.BallotToken, error) {
	challenge, err := v.challenges.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.BallotToken{}, ErrInvalidCode
		}
		return model.BallotToken{}, fmt.Errorf("lookup challenge: %w", err)
	}

	switch challenge.Status {
	case model.ChallengeConfirmed:
		return model.BallotToken{}, ErrAlreadyConfirmed
	case model.ChallengeFailed, model.ChallengeExpired:
		return model.BallotToken{}, ErrInvalidCode
	}

	if !challenge.ExpiresAt.After(time.Now()) {
		return model.BallotToken{}, ErrTokenExpired
	}

	attempts, err := v.challenges.IncrementAttempt(ctx, challengeID)
	if err != nil {
		return model.BallotToken{}, fmt.Errorf("record attempt: %w", err)
	}
	if attempts > maxConfirmAttempts {
		_ = v.challenges.MarkFailed(ctx, challengeID)
		return model.BallotToken{}, ErrTooManyAttempts
	}

	provided := hashOTPBytes(challenge.VoterID.String(), code, v.salt)
	if subtle.ConstantTimeCompare(provided, challenge.OTPHash) != 1 {
		if attempts == maxConfirmAttempts {
			_ = v.challenges.MarkFailed(ctx, challengeID)
			return model.BallotToken{}, ErrTooManyAttempts
		}
		return model.BallotToken{}, ErrInvalidCode
	}

	if err := v.challenges.MarkConfirmed(ctx, challengeID); err != nil {
		if errors.Is(err, repo.ErrNotPending) {
			return model.BallotToken{}, ErrAlreadyConfirmed
		}
		return model.BallotToken{}, fmt.Errorf("confirm challenge: %w", err)
	}

	return v.issuer.IssueToken(ctx, challenge.VoterID)
}

// contactFor resolves the voter's contact for a channel
func contactFor(voter model.Voter, channel model.Channel) (string, error) {
	switch channel {
	case model.ChannelEmail:
		if voter.Email == nil || *voter.Email == "" {
			return "", ErrChannelUnavailable
		}
		return *voter.Email, nil
	case model.ChannelSMS:
		if voter.Phone == nil || *voter.Phone == "" {
			return "", ErrChannelUnavailable
		}
		return *voter.Phone, nil
	default:
		return "", ErrChannelUnavailable
	}
}

// generateOTPCode draws a 6-digit code from crypto/rand
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// hashOTPHex returns SHA-256(subject:code:salt) as hex for DB storage
func hashOTPHex(subject, code, salt string) string {
	return hex.EncodeToString(hashOTPBytes(subject, code, salt))
}

func hashOTPBytes(subject, code, salt string) []byte {
	hash := sha256.Sum256([]byte(subject + ":" + code + ":" + salt))
	return hash[:]
}
