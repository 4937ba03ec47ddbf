// Package dashboard holds the headless state of the admin management screens.
//
// Each board keeps the last fetched list, an optional new-record draft, at most one record
// being edited, a submitting flag and the last error or success message. A success message
// clears itself after the success TTL; an error stays until the next action.
package dashboard

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/client"
	"github.com/nihongowithmoeno/moeno/core"
)

const DefaultSuccessTTL = 3 * time.Second

var (
	ErrNothingToSubmit = errors.New("nothing to submit")
	ErrNoSuchClass     = errors.New("no such class")
)

type Option func(*board)

// WithSuccessTTL changes how long a success message is shown.
func WithSuccessTTL(ttl time.Duration) Option {
	return func(b *board) { b.successTTL = ttl }
}

// Status is the part of a board's state shared by every screen.
type Status struct {
	Submitting  bool
	Error       string
	RateLimited bool
	Success     string
}

type board struct {
	mu         sync.Mutex
	status     Status
	successTTL time.Duration
	timer      *time.Timer
}

func (b *board) init(opts []Option) {
	b.successTTL = DefaultSuccessTTL
	for _, opt := range opts {
		opt(b)
	}
}

// begin moves to Submitting and clears the previous outcome. Callers hold mu.
func (b *board) begin() {
	b.stopTimer()
	b.status = Status{Submitting: true}
}

// succeed returns to Idle with a success message that clears after the TTL. Callers hold mu.
func (b *board) succeed(msg string) {
	b.stopTimer()
	b.status = Status{Success: msg}
	b.timer = time.AfterFunc(b.successTTL, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.status.Success == msg {
			b.status.Success = ""
		}
	})
}

// fail returns to Idle keeping err's message. Callers hold mu.
func (b *board) fail(err error) {
	b.stopTimer()
	b.status = Status{Error: err.Error(), RateLimited: rateLimited(err)}
}

func (b *board) stopTimer() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func rateLimited(err error) bool {
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		return apiErr.RateLimited
	}
	return core.IsRateLimited(err)
}
