package inventory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shelfwatch/shelfwatch/internal/vega"
)

func newDrawerServer(t *testing.T, status int, body string) *DrawerFetcher {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewDrawerFetcher(vega.NewClient(vega.Config{BaseURL: srv.URL, LocationCode: "jm"}))
}

func TestDrawerFetcherCountsAvailableCopies(t *testing.T) {
	fetcher := newDrawerServer(t, http.StatusOK, `{"items":[
		{"status":{"availabilityStatus":"Available"}},
		{"status":{"availabilityStatus":"Checked out"}},
		{"status":{"availabilityStatus":"Available"}}
	]}`)

	count, err := fetcher.Fetch(context.Background(), "rec-1")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestDrawerFetcherEmptyItemsIsZero(t *testing.T) {
	fetcher := newDrawerServer(t, http.StatusOK, `{"items":[]}`)

	count, err := fetcher.Fetch(context.Background(), "rec-1")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestDrawerFetcherErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   FetchErrorKind
	}{
		{"non-2xx", http.StatusServiceUnavailable, `{}`, FetchStatus},
		{"malformed json", http.StatusOK, `{"items":[`, FetchDecode},
		{"missing items", http.StatusOK, `{}`, FetchMissingField},
		{"missing status", http.StatusOK, `{"items":[{}]}`, FetchMissingField},
		{"missing availability", http.StatusOK, `{"items":[{"status":{}}]}`, FetchMissingField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := newDrawerServer(t, tc.status, tc.body)
			_, err := fetcher.Fetch(context.Background(), "rec-1")
			var fetchErr *FetchError
			require.ErrorAs(t, err, &fetchErr)
			require.Equal(t, tc.kind, fetchErr.Kind)
			require.Equal(t, "rec-1", fetchErr.ID)
		})
	}
}

func TestDrawerFetcherTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	fetcher := NewDrawerFetcher(vega.NewClient(vega.Config{BaseURL: url}))
	_, err := fetcher.Fetch(context.Background(), "rec-1")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, FetchTransport, fetchErr.Kind)
}
