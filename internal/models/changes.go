package models

import (
	"cmp"
	"slices"
	"time"
)

// Snapshot maps every currently available listing to its item.
// A nil Snapshot means no fetch was ever validated.
type Snapshot map[Identity]Item

// DiffResult - transitions between two snapshots.
type DiffResult struct {
	NewlyAvailable   map[Identity]Item
	NewlyUnavailable map[Identity]Item
}

// Empty reports whether the diff has no transitions.
func (d DiffResult) Empty() bool {
	return len(d.NewlyAvailable) == 0 && len(d.NewlyUnavailable) == 0
}

// SortedItems returns the items of the set ordered by description, vendor, then price.
func SortedItems(set map[Identity]Item) []Item {
	items := make([]Item, 0, len(set))
	for _, it := range set {
		items = append(items, it)
	}
	slices.SortFunc(items, func(a, b Item) int {
		return cmp.Or(
			cmp.Compare(a.Description, b.Description),
			cmp.Compare(a.Vendor, b.Vendor),
			cmp.Compare(a.Price.Display, b.Price.Display),
			cmp.Compare(a.SKU, b.SKU),
		)
	})
	return items
}

// MessageHandle identifies a dispatched alert so it can be edited later.
type MessageHandle struct {
	ChatID    int64
	MessageID string
}

// Mismatch is a pair of disagreeing raw payloads kept for diagnosis.
// Listings return SizeA and SizeB without the payloads.
type Mismatch struct {
	ID         string
	CapturedAt time.Time
	SizeA      int
	SizeB      int
	PayloadA   []byte
	PayloadB   []byte
}
