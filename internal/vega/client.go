// Package vega talks to the library catalog discovery API.
package vega

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrDecode marks a response body that could not be decoded.
var ErrDecode = errors.New("vega: decode response")

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vega: %s returned status %d", e.URL, e.Code)
}

// Config describes the tenant the client identifies as.
type Config struct {
	BaseURL         string
	CustomerDomain  string
	HostDomain      string
	AnonymousUserID string
	LocationCode    string
	Timeout         time.Duration
}

// Client wraps interactions with the Vega API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient constructs a new client. An empty AnonymousUserID is replaced by
// a random one for the lifetime of the client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.AnonymousUserID == "" {
		cfg.AnonymousUserID = uuid.NewString()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// LocationCode returns the branch location the client filters on.
func (c *Client) LocationCode() string {
	return c.cfg.LocationCode
}

// Drawer loads the item drawer (physical copies and their status) for a record.
func (c *Client) Drawer(ctx context.Context, id string) (*DrawerResponse, error) {
	query := url.Values{}
	query.Set("tab", "Book")
	query.Set("locationCodes", c.cfg.LocationCode)
	endpoint := fmt.Sprintf("%s/api/search-result/drawer/%s?%s", c.cfg.BaseURL, url.PathEscape(id), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.identify(req, "1")

	var out DrawerResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs one page of a format-group search.
func (c *Client) Search(ctx context.Context, search SearchRequest) (*SearchResponse, error) {
	body, err := json.Marshal(search)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/api/search-result/search/format-groups", c.cfg.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.identify(req, "2")
	req.Header.Set("Content-Type", "application/json")

	var out SearchResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) identify(req *http.Request, apiVersion string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("anonymous-user-id", c.cfg.AnonymousUserID)
	req.Header.Set("api-version", apiVersion)
	req.Header.Set("iii-customer-domain", c.cfg.CustomerDomain)
	req.Header.Set("iii-host-domain", c.cfg.HostDomain)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode, URL: req.URL.Path}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}
