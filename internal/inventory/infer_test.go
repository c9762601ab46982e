package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheckoutDelta(t *testing.T) {
	cases := []struct {
		name     string
		previous Count
		observed int
		want     int
	}{
		{"decrease", KnownCount(3), 1, 2},
		{"unchanged", KnownCount(4), 4, 0},
		{"increase", KnownCount(1), 5, 0},
		{"to zero", KnownCount(2), 0, 2},
		{"unknown previous", Count{}, 0, 0},
		{"unknown previous with copies", Count{}, 3, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CheckoutDelta(tc.previous, tc.observed))
		})
	}
}

func TestCheckoutDeltaNeverNegative(t *testing.T) {
	for p := 0; p <= 6; p++ {
		for n := 0; n <= 6; n++ {
			got := CheckoutDelta(KnownCount(p), n)
			require.Equal(t, max(0, p-n), got, "p=%d n=%d", p, n)
		}
	}
}

func TestInferCheckouts(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	events := InferCheckouts("A", KnownCount(3), 1, at)
	require.Equal(t, []CheckoutEvent{{BookID: "A", At: at}, {BookID: "A", At: at}}, events)
	require.Empty(t, InferCheckouts("B", KnownCount(0), 0, at))
}

func TestCountDistinguishesUnknownFromZero(t *testing.T) {
	require.NotEqual(t, Count{}, KnownCount(0))
	require.Equal(t, 7, Count{}.Or(7))
	require.Equal(t, 0, KnownCount(0).Or(7))
	require.Equal(t, "unknown", Count{}.String())
	require.Equal(t, "0", KnownCount(0).String())
}

func TestNewSnapshotKeepsOrderAndLookup(t *testing.T) {
	snap := NewSnapshot([]Item{
		{ID: "b", Previous: KnownCount(1)},
		{ID: "a"},
		{ID: "b", Previous: KnownCount(4)},
	})
	require.Equal(t, 2, snap.Len())
	items := snap.Items()
	require.Equal(t, "b", items[0].ID)
	require.Equal(t, KnownCount(4), items[0].Previous)
	require.Equal(t, Count{}, snap.Previous("a"))
	require.Equal(t, Count{}, snap.Previous("missing"))

	items[0].ID = "mutated"
	require.Equal(t, "b", snap.Items()[0].ID)
}
