// Package backoff suppresses polling cycles after repeated fetch failures.
package backoff

import (
	"log/slog"
	"time"
)

// Rand is the random source used to pick the number of skipped cycles.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// State is the mutable backoff state owned by the polling loop.
type State struct {
	Failures      []time.Time
	SkipRemaining int
}

// Settings configures the Controller.
type Settings struct {
	Window    time.Duration
	Threshold int
	MinSkip   int
	MaxSkip   int
}

// Controller decides when the loop enters and leaves the skip state.
type Controller struct {
	log      *slog.Logger
	settings Settings
	rnd      Rand
	now      func() time.Time
}

// NewController creates a new Controller.
func NewController(log *slog.Logger, settings Settings, rnd Rand, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{log: log, settings: settings, rnd: rnd, now: now}
}

// Skip consumes one skipped cycle. It returns false once the counter is exhausted
// and the cycle must fetch normally.
func (c *Controller) Skip(st *State) bool {
	if st.SkipRemaining <= 0 {
		return false
	}
	st.SkipRemaining--
	c.log.Debug("Cycle skipped", "op", "backoff.Skip", "remaining", st.SkipRemaining)
	return true
}

// RecordFailure appends a failure and prunes the log to the window.
// When the threshold is reached it enters the skip state and returns the number of
// cycles to skip with true; the caller emits the operator notice.
func (c *Controller) RecordFailure(st *State) (int, bool) {
	now := c.now()
	st.Failures = append(st.Failures, now)
	st.Failures = prune(st.Failures, now.Add(-c.settings.Window))

	if len(st.Failures) < c.settings.Threshold {
		return 0, false
	}

	st.SkipRemaining = c.settings.MinSkip + c.rnd.IntN(c.settings.MaxSkip-c.settings.MinSkip+1)
	c.log.Warn(
		"Too many fetch failures, entering skip state",
		"op", "backoff.RecordFailure",
		"failures", len(st.Failures),
		"window", c.settings.Window,
		"skip", st.SkipRemaining,
	)
	return st.SkipRemaining, true
}

// prune drops the failures recorded before the cutoff. Failures are in append order.
func prune(failures []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(failures) && failures[idx].Before(cutoff) {
		idx++
	}
	return failures[idx:]
}
