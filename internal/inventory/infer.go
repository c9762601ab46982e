package inventory

import "time"

// CheckoutDelta returns how many units were checked out between two samples.
// An unknown previous count is treated as zero, so it never yields checkouts.
func CheckoutDelta(previous Count, observed int) int {
	delta := previous.Or(0) - observed
	if delta < 0 {
		return 0
	}
	return delta
}

// InferCheckouts returns one event per unit of decrease, all stamped at.
func InferCheckouts(id string, previous Count, observed int, at time.Time) []CheckoutEvent {
	n := CheckoutDelta(previous, observed)
	if n == 0 {
		return nil
	}
	events := make([]CheckoutEvent, n)
	for i := range events {
		events[i] = CheckoutEvent{BookID: id, At: at}
	}
	return events
}
