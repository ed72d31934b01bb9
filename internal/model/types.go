package model

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeStatus is the lifecycle state of a verification challenge
type ChallengeStatus string

const (
	ChallengePending   ChallengeStatus = "PENDING"
	ChallengeConfirmed ChallengeStatus = "CONFIRMED"
	ChallengeExpired   ChallengeStatus = "EXPIRED"
	ChallengeFailed    ChallengeStatus = "FAILED"
)

// TokenStatus is the lifecycle state of a ballot token
type TokenStatus string

const (
	TokenActive   TokenStatus = "ACTIVE"
	TokenConsumed TokenStatus = "CONSUMED"
	TokenExpired  TokenStatus = "EXPIRED"
)

// CandidateStatus is the nomination review state of a candidate
type CandidateStatus string

const (
	CandidatePending  CandidateStatus = "PENDING"
	CandidateApproved CandidateStatus = "APPROVED"
	CandidateRejected CandidateStatus = "REJECTED"
)

// Channel is an OTP delivery channel
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// Voter is an eligibility record from the electoral roll
type Voter struct {
	ID           uuid.UUID
	RegNo        string
	Email        *string
	Phone        *string
	Eligible     bool
	Constituency string
	CreatedAt    time.Time
}

// VerificationChallenge represents an OTP challenge for voter verification
type VerificationChallenge struct {
	ID            uuid.UUID
	VoterID       uuid.UUID
	OTPHash       []byte
	Channel       Channel
	Status        ChallengeStatus
	IssuedAt      time.Time
	ExpiresAt     time.Time
	AttemptCount  int
	LastAttemptAt *time.Time
}

// BallotToken is a single-use bearer credential authorizing one cast
type BallotToken struct {
	ID        uuid.UUID
	VoterID   uuid.UUID
	Value     string
	Status    TokenStatus
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Position is an elected office with a fixed number of seats
type Position struct {
	ID           uuid.UUID
	Name         string
	SeatCount    int
	Constituency string
	Ordinal      int
}

// Candidate is a nomination row; only APPROVED candidates appear on ballots.
// Decision fields are set exactly once by a returning officer.
type Candidate struct {
	ID             uuid.UUID
	PositionID     uuid.UUID
	Name           string
	VoterRegNo     string
	Program        string
	PhotoKey       string
	ManifestoKey   string
	Status         CandidateStatus
	DecisionReason *string
	DecidedBy      *uuid.UUID
	DecidedAt      *time.Time
	SubmittedAt    time.Time
}

// BallotPosition is one position on an assembled ballot with its approved candidates
type BallotPosition struct {
	Position   Position
	Candidates []Candidate
}

// Ballot is derived per request, never stored
type Ballot []BallotPosition

// SelectionSet maps position id -> chosen candidate ids. Client-supplied,
// always re-validated server-side.
type SelectionSet map[uuid.UUID][]uuid.UUID

// VoteRecord is one immutable (voter, position, candidate) row
type VoteRecord struct {
	ID          uuid.UUID
	VoterID     uuid.UUID
	PositionID  uuid.UUID
	CandidateID uuid.UUID
	CastAt      time.Time
}
