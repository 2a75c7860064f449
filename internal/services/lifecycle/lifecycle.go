// Package lifecycle tracks the alert message announcing each available listing and
// edits it in place when the listing goes out of stock.
package lifecycle

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/rigwild/raspberry-instock-check/internal/models"
)

// Messenger is the alert channel.
type Messenger interface {
	Send(ctx context.Context, text string) (models.MessageHandle, error)
	Edit(ctx context.Context, handle models.MessageHandle, text string) error
}

// Phase is the notification state of one identity.
type Phase int

const (
	PhaseUnseen Phase = iota
	PhaseAvailable
	PhaseUnavailable
)

func (p Phase) String() string {
	switch p {
	case PhaseAvailable:
		return "available"
	case PhaseUnavailable:
		return "unavailable"
	default:
		return "unseen"
	}
}

// Association links the identities announced by one alert to that alert.
// Identities only move from Available to Unavailable; nothing is added after dispatch.
type Association struct {
	Handle      models.MessageHandle
	Available   map[models.Identity]models.Item
	Unavailable map[models.Identity]models.Item
	CreatedAt   time.Time
}

// State indexes the live associations by identity. An identity has at most one.
type State struct {
	byIdentity map[models.Identity]*Association
}

// NewState returns an empty State.
func NewState() *State {
	return &State{byIdentity: map[models.Identity]*Association{}}
}

// Lookup returns the association of the identity, if any.
func (s *State) Lookup(id models.Identity) (*Association, bool) {
	a, ok := s.byIdentity[id]
	return a, ok
}

// Phase returns where the identity is in its notification lifecycle.
func (s *State) Phase(id models.Identity) Phase {
	a, ok := s.byIdentity[id]
	if !ok {
		return PhaseUnseen
	}
	if _, ok = a.Available[id]; ok {
		return PhaseAvailable
	}
	return PhaseUnavailable
}

// Len returns the number of tracked identities.
func (s *State) Len() int { return len(s.byIdentity) }

// Tracker maps diff results to alert dispatches and in-place edits.
type Tracker struct {
	log       *slog.Logger
	messenger Messenger
	renderer  Renderer
	retention time.Duration
	now       func() time.Time
}

// NewTracker creates a new Tracker.
func NewTracker(
	log *slog.Logger,
	messenger Messenger,
	renderer Renderer,
	retention time.Duration,
	now func() time.Time,
) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{log: log, messenger: messenger, renderer: renderer, retention: retention, now: now}
}

// Apply advances the lifecycle of every identity in the diff.
// Expired associations are evicted first, then tracked identities that went out of stock
// are moved and their messages edited, then a new alert is dispatched if anything became available.
func (t *Tracker) Apply(ctx context.Context, st *State, d models.DiffResult) {
	const opn = "lifecycle.Apply"
	log := t.log.With("op", opn)

	now := t.now()
	if evicted := t.Expire(st, now); evicted > 0 {
		log.DebugContext(ctx, "Evicted expired associations", "count", evicted)
	}

	t.markUnavailable(ctx, log, st, d.NewlyUnavailable)

	if len(d.NewlyAvailable) > 0 {
		t.dispatch(ctx, log, st, d, now)
	}
}

// Expire removes the associations older than the retention window, whatever their subsets.
func (t *Tracker) Expire(st *State, now time.Time) int {
	evicted := 0
	for id, a := range st.byIdentity {
		if !now.Before(a.CreatedAt.Add(t.retention)) {
			delete(st.byIdentity, id)
			evicted++
		}
	}
	return evicted
}

func (t *Tracker) markUnavailable(
	ctx context.Context,
	log *slog.Logger,
	st *State,
	unavailable map[models.Identity]models.Item,
) {
	var touched []*Association
	seen := map[*Association]bool{}

	for _, it := range models.SortedItems(unavailable) {
		id := it.Identity()
		a, ok := st.byIdentity[id]
		if !ok {
			log.DebugContext(ctx, "No alert to update for unavailable listing", "identity", id.String())
			continue
		}
		item, ok := a.Available[id]
		if !ok {
			continue
		}
		delete(a.Available, id)
		a.Unavailable[id] = item

		if !seen[a] {
			seen[a] = true
			touched = append(touched, a)
		}
	}

	for _, a := range touched {
		if err := t.messenger.Edit(ctx, a.Handle, t.renderer.Render(a)); err != nil {
			log.ErrorContext(ctx, "Failed to edit alert", "message", a.Handle.MessageID, "error", err)
			continue
		}
		log.InfoContext(ctx, "Alert edited", "message", a.Handle.MessageID, "unavailable", len(a.Unavailable))
	}
}

func (t *Tracker) dispatch(ctx context.Context, log *slog.Logger, st *State, d models.DiffResult, now time.Time) {
	a := &Association{
		Available:   maps.Clone(d.NewlyAvailable),
		Unavailable: maps.Clone(d.NewlyUnavailable),
		CreatedAt:   now,
	}
	if a.Unavailable == nil {
		a.Unavailable = map[models.Identity]models.Item{}
	}

	handle, err := t.messenger.Send(ctx, t.renderer.Render(a))
	if err != nil {
		log.ErrorContext(ctx, "Failed to send alert, listings stay untracked",
			"available", len(a.Available), "error", err)
		return
	}
	a.Handle = handle

	for id := range a.Available {
		st.byIdentity[id] = a
	}
	log.InfoContext(ctx, "Alert sent",
		"message", handle.MessageID, "available", len(a.Available), "unavailable", len(a.Unavailable))
}
