// Package inventory samples per-record availability counts and infers
// checkout events from decreases between samples.
package inventory

import (
	"strconv"
	"time"
)

// Count is an availability count that may be unknown. The zero value is
// unknown, which is distinct from a known count of zero.
type Count struct {
	Value int
	Known bool
}

// KnownCount returns a known count of n.
func KnownCount(n int) Count {
	return Count{Value: n, Known: true}
}

// Or returns the value when known and fallback otherwise.
func (c Count) Or(fallback int) int {
	if !c.Known {
		return fallback
	}
	return c.Value
}

func (c Count) String() string {
	if !c.Known {
		return "unknown"
	}
	return strconv.Itoa(c.Value)
}

// Item is one record to sample together with its last stored count.
type Item struct {
	ID       string
	Previous Count
}

// Snapshot is the ordered set of items loaded at the start of a run. It is
// read-only once built.
type Snapshot struct {
	items []Item
	index map[string]Count
}

// NewSnapshot builds a snapshot preserving the given order. A repeated ID keeps
// its first position and its last count.
func NewSnapshot(items []Item) Snapshot {
	ordered := make([]Item, 0, len(items))
	index := make(map[string]Count, len(items))
	for _, item := range items {
		if _, seen := index[item.ID]; !seen {
			ordered = append(ordered, Item{ID: item.ID})
		}
		index[item.ID] = item.Previous
	}
	for i := range ordered {
		ordered[i].Previous = index[ordered[i].ID]
	}
	return Snapshot{items: ordered, index: index}
}

// Items returns a copy of the ordered items.
func (s Snapshot) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Previous returns the stored count of id. Unknown IDs report an unknown count.
func (s Snapshot) Previous(id string) Count {
	return s.index[id]
}

// Len reports the number of distinct items.
func (s Snapshot) Len() int {
	return len(s.items)
}

// Outcome is the result of sampling one item: either a count or an error.
type Outcome struct {
	ID    string
	Count int
	Err   error
}

// OK reports whether the fetch succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// CountUpdate is a new count to store for a record.
type CountUpdate struct {
	ID    string
	Count int
}

// CheckoutEvent is one inferred checkout. Events are append-only and may
// duplicate across overlapping runs.
type CheckoutEvent struct {
	BookID string
	At     time.Time
}

// RunSummary reports what a run did.
type RunSummary struct {
	Items     int
	Batches   int
	Fetched   int
	Failed    int
	Checkouts int
	Duration  time.Duration
}
