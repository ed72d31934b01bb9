package notify

import (
	"context"
	"log"
	"strings"

	"github.com/ballotbox/server/internal/model"
)

// Sender delivers a one-time passcode over a contact channel. Delivery is
// fire-and-forget from the core's perspective; a returned error surfaces to
// the voter as ChannelUnavailable.
type Sender interface {
	Send(ctx context.Context, channel model.Channel, destination, code string) error
}

// LogSender is a development sender that records delivery without sending.
// The code itself is never logged.
type LogSender struct{}

// NewLogSender creates a log-only sender
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send logs the dispatch with a masked destination
func (s *LogSender) Send(ctx context.Context, channel model.Channel, destination, code string) error {
	log.Printf("OTP dispatched via %s to %s", channel, maskDestination(destination))
	return nil
}

// maskDestination hides the middle of an email address or phone number
func maskDestination(dest string) string {
	if len(dest) <= 4 {
		return "****"
	}
	return dest[:2] + strings.Repeat("*", len(dest)-4) + dest[len(dest)-2:]
}
