// ABOUTME: Completion-client boundary: session contract and the Reply resource.
// ABOUTME: Replies are scoped acquisitions that must be released on every path.

package completion

import (
	"context"
	"errors"
)

// MaxHistory bounds the per-session conversation history. Oldest turns are
// dropped first. Matches the peer's policy so neither side grows unbounded.
const MaxHistory = 10

var (
	// ErrReplyOutstanding means Send was called while a previous Reply had
	// not been released. The session is strictly single-flight.
	ErrReplyOutstanding = errors.New("completion: previous reply not released")

	// ErrEmptyResponse means the service returned no usable choice.
	ErrEmptyResponse = errors.New("completion: empty response")
)

// Session is a conversation handle on the remote completion service.
// Implementations are safe for concurrent use, but allow only one
// outstanding Reply at a time.
type Session interface {
	// SetModel selects the model identifier for subsequent calls.
	SetModel(name string)

	// SetTemperature sets the sampling temperature for subsequent calls.
	SetTemperature(t float64)

	// Send performs a blocking round-trip with prompt as the next user turn.
	// With continueConversation the session history is carried; without, the
	// history is reset first. The returned Reply must be released with Close
	// on every path. A non-nil error means no Reply was acquired.
	Send(ctx context.Context, prompt string, continueConversation bool) (*Reply, error)
}

// Reply holds one completion result. It occupies the session's single-flight
// slot until Close releases it; Close also commits the assistant turn to the
// session history. Closing more than once is a no-op.
type Reply struct {
	text    string
	release func()
}

// NewReply builds a Reply around text with the given release hook. Session
// implementations (and test fakes) use this; relay code only consumes.
func NewReply(text string, release func()) *Reply {
	return &Reply{text: text, release: release}
}

// Text returns the reply text. Empty text means the service answered with no
// content; callers treat that as a failed round-trip.
func (r *Reply) Text() string { return r.text }

// Close releases the reply. Safe to call multiple times; only the first call
// runs the release hook.
func (r *Reply) Close() {
	if r.release != nil {
		release := r.release
		r.release = nil
		release()
	}
}
