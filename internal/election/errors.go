package election

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Caller-recoverable failures of the voting and nomination flows. Handlers map
// these to 4xx responses with a stable machine-readable kind; anything else is
// an internal failure and must not leak detail to the caller.
var (
	// ErrNotEligible covers both unknown and ineligible registration numbers,
	// deliberately indistinguishable to avoid a voter-enumeration oracle.
	ErrNotEligible        = errors.New("voter is not eligible")
	ErrChannelUnavailable = errors.New("verification channel unavailable")
	ErrTooManyAttempts    = errors.New("too many verification attempts")
	ErrAlreadyConfirmed   = errors.New("challenge already confirmed")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrInvalidToken       = errors.New("invalid ballot token")
	ErrTokenExpired       = errors.New("ballot token expired")
	ErrTokenConsumed      = errors.New("ballot token consumed")
	ErrAlreadyVoted       = errors.New("voter has already voted")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrMissingDocument    = errors.New("photo and manifesto are required")
	ErrReasonRequired     = errors.New("rejection requires a reason")
	ErrAlreadyDecided     = errors.New("nomination already decided")

	ErrNominationNotFound = errors.New("nomination not found")
	ErrPositionNotFound   = errors.New("position not found")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

// SelectionError reports which position a selection violation occurred on.
// It unwraps to ErrInvalidSelection.
type SelectionError struct {
	PositionID uuid.UUID
	Reason     string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("invalid selection for position %s: %s", e.PositionID, e.Reason)
}

func (e *SelectionError) Unwrap() error { return ErrInvalidSelection }
