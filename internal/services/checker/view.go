package checker

import (
	"sync/atomic"

	"github.com/rigwild/raspberry-instock-check/internal/models"
)

// ViewStore holds the latest validated listing set for concurrent readers.
type ViewStore struct {
	latest atomic.Pointer[models.View]
}

// NewViewStore returns an empty ViewStore.
func NewViewStore() *ViewStore {
	return &ViewStore{}
}

// Publish replaces the view. The caller must not modify v.Items afterwards.
func (s *ViewStore) Publish(v models.View) {
	s.latest.Store(&v)
}

// Latest returns the last published view, or false before the first validated fetch.
func (s *ViewStore) Latest() (models.View, bool) {
	v := s.latest.Load()
	if v == nil {
		return models.View{}, false
	}
	return *v, true
}
