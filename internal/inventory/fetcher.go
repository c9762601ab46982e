package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/shelfwatch/shelfwatch/internal/vega"
)

// Fetcher returns the current available count of a record. Implementations
// make one outbound call per invocation and never retry.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (int, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, id string) (int, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, id string) (int, error) {
	return f(ctx, id)
}

// FetchErrorKind classifies why a fetch failed.
type FetchErrorKind string

const (
	FetchTransport    FetchErrorKind = "transport"
	FetchStatus       FetchErrorKind = "status"
	FetchDecode       FetchErrorKind = "decode"
	FetchMissingField FetchErrorKind = "missing_field"
)

// FetchError is a per-item failure. The runner logs it and leaves the stored
// count untouched.
type FetchError struct {
	ID   string
	Kind FetchErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("inventory: fetch %s: %s: %v", e.ID, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DrawerClient is the subset of the Vega client used for availability.
type DrawerClient interface {
	Drawer(ctx context.Context, id string) (*vega.DrawerResponse, error)
}

// DrawerFetcher counts available copies from the Vega item drawer.
type DrawerFetcher struct {
	client DrawerClient
}

// NewDrawerFetcher wires a DrawerFetcher.
func NewDrawerFetcher(client DrawerClient) *DrawerFetcher {
	return &DrawerFetcher{client: client}
}

// Fetch implements Fetcher.
func (f *DrawerFetcher) Fetch(ctx context.Context, id string) (int, error) {
	drawer, err := f.client.Drawer(ctx, id)
	if err != nil {
		return 0, &FetchError{ID: id, Kind: classify(err), Err: err}
	}
	return CountAvailable(id, drawer)
}

// CountAvailable counts the copies whose status is Available. A payload
// without items, or with a copy lacking its status, is a missing_field error.
func CountAvailable(id string, drawer *vega.DrawerResponse) (int, error) {
	if drawer == nil || drawer.Items == nil {
		return 0, &FetchError{ID: id, Kind: FetchMissingField, Err: errors.New("items")}
	}
	available := 0
	for i, item := range drawer.Items {
		if item.Status == nil {
			return 0, &FetchError{ID: id, Kind: FetchMissingField, Err: fmt.Errorf("items[%d].status", i)}
		}
		if item.Status.AvailabilityStatus == "" {
			return 0, &FetchError{ID: id, Kind: FetchMissingField, Err: fmt.Errorf("items[%d].status.availabilityStatus", i)}
		}
		if item.Status.AvailabilityStatus == vega.AvailabilityAvailable {
			available++
		}
	}
	return available, nil
}

func classify(err error) FetchErrorKind {
	var statusErr *vega.StatusError
	switch {
	case errors.As(err, &statusErr):
		return FetchStatus
	case errors.Is(err, vega.ErrDecode):
		return FetchDecode
	default:
		return FetchTransport
	}
}
