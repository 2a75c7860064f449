package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rigwild/raspberry-instock-check/internal/models"
	"github.com/rigwild/raspberry-instock-check/internal/parser"
	"github.com/rigwild/raspberry-instock-check/internal/services/backoff"
	"github.com/rigwild/raspberry-instock-check/internal/services/diff"
	"github.com/rigwild/raspberry-instock-check/internal/services/lifecycle"
	"github.com/rigwild/raspberry-instock-check/internal/services/validator"
)

// PayloadValidator returns upstream data only once two fetches agree.
type PayloadValidator interface {
	Validate(ctx context.Context) (*models.Payload, error)
}

// OperatorNotifier delivers notices to the operator chat.
type OperatorNotifier interface {
	Notify(ctx context.Context, text string) error
}

// Outcome classifies how a cycle ended.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeChanged
	OutcomeSkipped
	OutcomeMismatch
	OutcomeFetchFailed
	OutcomeMalformed
	OutcomeCanceled
	OutcomePanicked
)

var outcomeNames = [...]string{
	"accepted", "changed", "skipped", "mismatch", "fetch_failed", "malformed", "canceled", "panicked",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// State is all the mutable state of the polling loop. It is only touched by the running cycle.
type State struct {
	Snapshot      models.Snapshot
	Notifications *lifecycle.State
	Backoff       backoff.State
}

// NewState returns the state of a fresh process: nothing validated yet.
func NewState() *State {
	return &State{Notifications: lifecycle.NewState()}
}

// Settings configures the scheduler.
type Settings struct {
	Interval time.Duration
	Jitter   time.Duration
}

// Checker is an orchestrator that performs a full verification cycle.
type Checker struct {
	log       *slog.Logger
	validator PayloadValidator
	engine    *diff.Engine
	tracker   *lifecycle.Tracker
	backoff   *backoff.Controller
	operator  OperatorNotifier
	views     *ViewStore
	settings  Settings
	rnd       backoff.Rand
	state     *State
}

// NewChecker creates a new Checker instance with a fresh State.
func NewChecker(
	log *slog.Logger,
	validator PayloadValidator,
	engine *diff.Engine,
	tracker *lifecycle.Tracker,
	ctrl *backoff.Controller,
	operator OperatorNotifier,
	views *ViewStore,
	settings Settings,
	rnd backoff.Rand,
) *Checker {
	return &Checker{
		log:       log,
		validator: validator,
		engine:    engine,
		tracker:   tracker,
		backoff:   ctrl,
		operator:  operator,
		views:     views,
		settings:  settings,
		rnd:       rnd,
		state:     NewState(),
	}
}

// State returns the loop state.
func (c *Checker) State() *State { return c.state }

// Run executes a cycle immediately, then one cycle per interval until ctx is done.
// The wait starts after the previous cycle has completed, so cycles never overlap.
func (c *Checker) Run(ctx context.Context) {
	log := c.log.With("op", "checker.Run")
	log.InfoContext(ctx, "Polling loop started", "interval", c.settings.Interval, "jitter", c.settings.Jitter)

	for {
		outcome := c.safeCycle(ctx)
		log.DebugContext(ctx, "Cycle finished", "outcome", outcome.String())

		timer := time.NewTimer(c.nextWait())
		select {
		case <-ctx.Done():
			timer.Stop()
			log.InfoContext(ctx, "Polling loop stopped")
			return
		case <-timer.C:
		}
	}
}

func (c *Checker) nextWait() time.Duration {
	wait := c.settings.Interval
	if c.settings.Jitter > 0 && c.rnd != nil {
		wait += time.Duration(c.rnd.IntN(int(c.settings.Jitter)))
	}
	return wait
}

func (c *Checker) safeCycle(ctx context.Context) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.log.ErrorContext(ctx, "Cycle panicked", "op", "checker.safeCycle", "panic", r)
			outcome = OutcomePanicked
		}
	}()
	return c.RunCycle(ctx)
}

// RunCycle performs one polling cycle. Every error is handled here and never returned.
func (c *Checker) RunCycle(ctx context.Context) Outcome {
	const opn = "checker.RunCycle"
	log := c.log.With("op", opn)
	st := c.state

	// 1. Backoff
	if c.backoff.Skip(&st.Backoff) {
		log.InfoContext(ctx, "Backing off, no fetch this cycle", "remaining", st.Backoff.SkipRemaining)
		return OutcomeSkipped
	}

	// 2. Double fetch
	log.InfoContext(ctx, "Checking stock...")
	payload, err := c.validator.Validate(ctx)
	if err != nil {
		return c.handleError(ctx, log, err)
	}

	// 3. Snapshot comparison
	initializing := st.Snapshot == nil
	snapshot, result := c.engine.Diff(st.Snapshot, payload.Items)
	st.Snapshot = snapshot

	c.views.Publish(models.View{UpdatedAt: payload.FetchedAt, Available: len(snapshot), Items: payload.Items})

	log.InfoContext(
		ctx,
		"Change detection complete",
		"listings",
		len(payload.Items),
		"available",
		len(snapshot),
		"newly_available",
		len(result.NewlyAvailable),
		"newly_unavailable",
		len(result.NewlyUnavailable),
		"initializing",
		initializing,
	)

	if result.Empty() {
		log.InfoContext(ctx, "No stock changes")
		return OutcomeAccepted
	}

	// 4. Alerts
	c.tracker.Apply(ctx, st.Notifications, result)
	return OutcomeChanged
}

func (c *Checker) handleError(ctx context.Context, log *slog.Logger, err error) Outcome {
	var malformed *parser.MalformedPayloadError

	switch {
	case errors.As(err, &malformed):
		log.ErrorContext(ctx, "Upstream returned malformed data", "error", err, "excerpt", malformed.Excerpt)
		c.notify(ctx, log, fmt.Sprintf("❌ Unexpected data from upstream: %v\n\n%s", malformed.Err, malformed.Excerpt))
		return OutcomeMalformed

	case errors.Is(err, validator.ErrMismatch):
		log.WarnContext(ctx, "Upstream data inconsistent, retrying next cycle", "error", err)
		return OutcomeMismatch

	case ctx.Err() != nil:
		log.InfoContext(ctx, "Cycle canceled", "error", err)
		return OutcomeCanceled
	}

	log.WarnContext(ctx, "Failed to fetch stock data", "error", err)
	skip, entered := c.backoff.RecordFailure(&c.state.Backoff)
	if entered {
		c.notify(ctx, log, fmt.Sprintf(
			"⚠️ %d fetch failures within the failure window, pausing for %d checks.\nLast error: %v",
			len(c.state.Backoff.Failures), skip, err,
		))
	}
	return OutcomeFetchFailed
}

func (c *Checker) notify(ctx context.Context, log *slog.Logger, text string) {
	if err := c.operator.Notify(ctx, text); err != nil {
		log.ErrorContext(ctx, "Failed to notify operator", "error", err)
	}
}

// StartupBanner is the notice sent to the operator chat when the process starts.
func StartupBanner(filter diff.Filter) string {
	list := " All"
	if !filter.All() {
		list = "\n" + strings.Join(filter.Tokens(), "\n")
	}
	return "Bot started! ⚡ Looking for models:" + list + "\nhttps://github.com/rigwild/raspberry-instock-check"
}

// Announce sends the startup banner.
func (c *Checker) Announce(ctx context.Context, filter diff.Filter) {
	c.notify(ctx, c.log.With("op", "checker.Announce"), StartupBanner(filter))
}
