package lifecycle

import (
	"context"
	"sync/atomic"
	"time"
)

// State holds the process-lifetime state of the server.
//
// The shutdown flag is set exactly once, on the first termination trigger,
// and never reset. The in-flight counter is incremented when a request is
// accepted and decremented when its response completes, regardless of
// outcome. Both are safe for concurrent use.
type State struct {
	startTime    time.Time
	shuttingDown atomic.Bool
	inFlight     atomic.Int64
}

// NewState creates a State with the start time set to now.
func NewState() *State {
	return &State{startTime: time.Now()}
}

// BeginShutdown marks the server as shutting down. It returns true if this
// call initiated shutdown, false if shutdown was already in progress. The
// flag is never reset.
func (s *State) BeginShutdown() bool {
	return s.shuttingDown.CompareAndSwap(false, true)
}

// ShuttingDown reports whether shutdown has begun.
func (s *State) ShuttingDown() bool {
	return s.shuttingDown.Load()
}

// RequestStarted registers a request in the in-flight set. It must be
// called before any routing logic runs for the request.
func (s *State) RequestStarted() {
	s.inFlight.Add(1)
}

// RequestFinished deregisters a request from the in-flight set. It must be
// called exactly once per RequestStarted call, typically via defer so the
// request is removed regardless of outcome.
func (s *State) RequestFinished() {
	s.inFlight.Add(-1)
}

// InFlight returns the number of requests accepted but not yet completed.
func (s *State) InFlight() int64 {
	return s.inFlight.Load()
}

// Uptime returns the duration since the process started.
func (s *State) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// StartTime returns when the process started.
func (s *State) StartTime() time.Time {
	return s.startTime
}

// AwaitDrain blocks until the in-flight set is empty or ctx is done,
// polling at the given interval. It returns true if the set drained and
// false if the context expired first. An empty set is detected immediately,
// before the first poll tick.
func (s *State) AwaitDrain(ctx context.Context, poll time.Duration) bool {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}

	if s.InFlight() == 0 {
		return true
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.InFlight() == 0 {
				return true
			}
		case <-ctx.Done():
			return s.InFlight() == 0
		}
	}
}
