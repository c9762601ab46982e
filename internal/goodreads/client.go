// Package goodreads looks up book metadata by ISBN from the Goodreads search API.
package goodreads

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrDecode marks a response that is not valid search XML.
	ErrDecode = errors.New("goodreads: decode response")
	// ErrIncomplete marks a best book without a title or author.
	ErrIncomplete = errors.New("goodreads: incomplete best book")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("goodreads: unexpected status %d", e.Code)
}

// Book is the metadata of the best matching edition.
type Book struct {
	Title       string
	Author      string
	Description string
	CoverURL    string
}

// Client queries the search endpoint.
type Client struct {
	baseURL    string
	key        string
	httpClient *http.Client
}

// NewClient constructs a client. An empty baseURL uses the public endpoint.
func NewClient(baseURL, key string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://www.goodreads.com"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	XMLName xml.Name `xml:"GoodreadsResponse"`
	Works   []work   `xml:"search>results>work"`
}

type work struct {
	BestBook *bestBook `xml:"best_book"`
}

type bestBook struct {
	Title       string `xml:"title"`
	AuthorName  string `xml:"author>name"`
	Description string `xml:"description"`
	LargeImage  string `xml:"large_image_url"`
}

// SearchISBN returns the best book of the first work matching isbn, or nil
// when there is no match.
func (c *Client) SearchISBN(ctx context.Context, isbn string) (*Book, error) {
	query := url.Values{}
	query.Set("_extras[book_covers_large]", "true")
	query.Set("_nc", "true")
	query.Set("auto_search", "1")
	query.Set("format", "xml")
	query.Set("include_book_description", "true")
	query.Set("include_social_shelving_info", "true")
	query.Set("key", c.key)
	query.Set("page", "1")
	query.Set("per_page", "5")
	query.Set("q", isbn)
	query.Set("search[field]", "all")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/search?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var parsed searchResponse
	if err := xml.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if len(parsed.Works) == 0 || parsed.Works[0].BestBook == nil {
		return nil, nil
	}
	best := parsed.Works[0].BestBook
	book := &Book{
		Title:       strings.TrimSpace(best.Title),
		Author:      strings.TrimSpace(best.AuthorName),
		Description: strings.TrimSpace(best.Description),
		CoverURL:    strings.TrimSpace(best.LargeImage),
	}
	if book.Title == "" || book.Author == "" {
		return nil, ErrIncomplete
	}
	return book, nil
}
