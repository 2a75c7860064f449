// Package diff keeps the set of available listings and computes availability transitions.
package diff

import (
	"strings"

	"github.com/rigwild/raspberry-instock-check/internal/models"
)

// Wildcard matches every SKU.
const Wildcard = "*"

// Filter selects the SKUs to track. Tokens match case-insensitively, exactly or as a prefix.
type Filter struct {
	all    bool
	tokens []string
}

// NewFilter builds a Filter from the configured tokens. An empty list or a "*" token tracks everything.
func NewFilter(tokens []string) Filter {
	var f Filter
	for _, t := range tokens {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if t == Wildcard {
			return Filter{all: true}
		}
		f.tokens = append(f.tokens, t)
	}
	if len(f.tokens) == 0 {
		f.all = true
	}
	return f
}

// All reports whether the filter is the wildcard.
func (f Filter) All() bool { return f.all }

// Tokens returns the normalized tokens.
func (f Filter) Tokens() []string { return f.tokens }

// Match reports whether the SKU is tracked.
func (f Filter) Match(sku string) bool {
	if f.all {
		return true
	}
	sku = strings.ToUpper(strings.TrimSpace(sku))
	for _, t := range f.tokens {
		if strings.HasPrefix(sku, t) {
			return true
		}
	}
	return false
}

// Engine computes snapshots and diffs for the configured filter.
type Engine struct {
	filter Filter
}

// NewEngine creates a new Engine.
func NewEngine(filter Filter) *Engine {
	return &Engine{filter: filter}
}

// Diff builds the snapshot of the available, tracked items and compares it with prev.
// A nil prev is the first initialization: the snapshot is returned with an empty result.
// The returned snapshot is never nil and replaces prev entirely.
func (e *Engine) Diff(prev models.Snapshot, items []models.Item) (models.Snapshot, models.DiffResult) {
	current := make(models.Snapshot, len(items))
	for _, it := range items {
		if !it.Available || !e.filter.Match(it.SKU) {
			continue
		}
		current[it.Identity()] = it
	}

	result := models.DiffResult{
		NewlyAvailable:   map[models.Identity]models.Item{},
		NewlyUnavailable: map[models.Identity]models.Item{},
	}
	if prev == nil {
		return current, result
	}

	return current, Compare(prev, current)
}

// Compare returns the transitions from prev to current. Identities present in both are never reported.
func Compare(prev, current models.Snapshot) models.DiffResult {
	result := models.DiffResult{
		NewlyAvailable:   map[models.Identity]models.Item{},
		NewlyUnavailable: map[models.Identity]models.Item{},
	}
	for id, it := range current {
		if _, found := prev[id]; !found {
			result.NewlyAvailable[id] = it
		}
	}
	for id, it := range prev {
		if _, found := current[id]; !found {
			result.NewlyUnavailable[id] = it
		}
	}
	return result
}
