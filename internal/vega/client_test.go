package vega

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:         baseURL,
		CustomerDomain:  "nypl.na2.iiivega.com",
		HostDomain:      "borrow.nypl.org",
		AnonymousUserID: "anon-1",
		LocationCode:    "jm",
	}
}

func TestDrawerSendsIdentityHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/search-result/drawer/rec-1", r.URL.Path)
		require.Equal(t, "Book", r.URL.Query().Get("tab"))
		require.Equal(t, "jm", r.URL.Query().Get("locationCodes"))
		require.Equal(t, "anon-1", r.Header.Get("anonymous-user-id"))
		require.Equal(t, "1", r.Header.Get("api-version"))
		require.Equal(t, "nypl.na2.iiivega.com", r.Header.Get("iii-customer-domain"))
		require.Equal(t, "borrow.nypl.org", r.Header.Get("iii-host-domain"))
		_, _ = w.Write([]byte(`{"items":[{"status":{"availabilityStatus":"Available"}},{"status":{"availabilityStatus":"Checked out"}}]}`))
	}))
	defer srv.Close()

	drawer, err := NewClient(testConfig(srv.URL)).Drawer(context.Background(), "rec-1")
	require.NoError(t, err)
	require.Len(t, drawer.Items, 2)
	require.Equal(t, AvailabilityAvailable, drawer.Items[0].Status.AvailabilityStatus)
}

func TestDrawerStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).Drawer(context.Background(), "rec-1")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func TestDrawerDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).Drawer(context.Background(), "rec-1")
	require.ErrorIs(t, err, ErrDecode)
}

func TestSearchPostsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "2", r.Header.Get("api-version"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, 3, body.PageNum)
		require.Equal(t, "1990", body.DateFrom)
		_, _ = w.Write([]byte(`{"data":[{"id":"g1","title":"Dune","primaryAgent":{"label":"Herbert, Frank"},"identifiers":{"isbn":["9780441013593","0441013597"]},"coverUrl":{"medium":"https://covers/m.jpg"}}]}`))
	}))
	defer srv.Close()

	resp, err := NewClient(testConfig(srv.URL)).Search(context.Background(), SearchRequest{PageNum: 3, DateFrom: "1990"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	group := resp.Data[0]
	require.Equal(t, "9780441013593", group.ISBN())
	require.Equal(t, "Herbert, Frank", group.AuthorLabel())
	require.Equal(t, "https://covers/m.jpg", group.MediumCover())
}

func TestFlexStringAcceptsScalar(t *testing.T) {
	var ids Identifiers
	require.NoError(t, json.Unmarshal([]byte(`{"isbn":"123"}`), &ids))
	require.Equal(t, FlexString("123"), ids.ISBN)
	require.NoError(t, json.Unmarshal([]byte(`{"isbn":[]}`), &ids))
	require.Equal(t, FlexString(""), ids.ISBN)
}

func TestNewClientGeneratesAnonymousID(t *testing.T) {
	cfg := testConfig("http://example.invalid/")
	cfg.AnonymousUserID = ""
	client := NewClient(cfg)
	require.NotEmpty(t, client.cfg.AnonymousUserID)
	require.Equal(t, "http://example.invalid", client.cfg.BaseURL)
}
