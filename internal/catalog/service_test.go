package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/shelfwatch/shelfwatch/internal/platform/db"
	"github.com/shelfwatch/shelfwatch/internal/vega"
)

func TestCleanTitle(t *testing.T) {
	cases := map[string]string{
		"the HOBBIT : or there and back again": "The Hobbit",
		"Dune":                                 "Dune",
		"war and peace = Voina i mir":          "War And Peace",
		"  spaced out  ":                       "Spaced Out",
		"éclair recipes: a guide":              "Éclair Recipes",
	}
	for in, want := range cases {
		require.Equal(t, want, CleanTitle(in), in)
	}
}

func TestCleanAuthor(t *testing.T) {
	cases := map[string]string{
		"Herbert, Frank, 1920-1986.":            "Frank Herbert",
		"Tolkien, J. R. R. (John Ronald Reuel)": "J R R Tolkien",
		"le guin, ursula k.":                    "Ursula K Le Guin",
		"Homer":                                 "Homer",
		"":                                      "",
	}
	for in, want := range cases {
		require.Equal(t, want, CleanAuthor(in), in)
	}
}

func TestBooksFromGroupsDropsIncompleteRecords(t *testing.T) {
	complete := vega.FormatGroup{
		ID:           "g1",
		Title:        "dune: deluxe edition",
		PrimaryAgent: &vega.Agent{Label: "Herbert, Frank"},
		Identifiers:  &vega.Identifiers{ISBN: "9780441013593"},
		CoverURL:     &vega.Cover{Medium: "https://covers/m.jpg"},
	}
	noCover := complete
	noCover.ID = "g2"
	noCover.CoverURL = nil
	noAuthor := complete
	noAuthor.ID = "g3"
	noAuthor.PrimaryAgent = &vega.Agent{}

	books := BooksFromGroups(validator.New(), []vega.FormatGroup{complete, noCover, noAuthor})
	require.Equal(t, []Book{{ID: "g1", Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593", Cover: "https://covers/m.jpg"}}, books)
}

type pagedSearcher struct {
	pages    map[string][][]vega.FormatGroup
	failYear map[string]error
	requests []vega.SearchRequest
}

func (s *pagedSearcher) Search(ctx context.Context, req vega.SearchRequest) (*vega.SearchResponse, error) {
	s.requests = append(s.requests, req)
	if err, ok := s.failYear[req.DateFrom]; ok {
		return nil, err
	}
	pages := s.pages[req.DateFrom]
	if req.PageNum > len(pages) {
		return &vega.SearchResponse{}, nil
	}
	return &vega.SearchResponse{Data: pages[req.PageNum-1]}, nil
}

type memoryStore struct {
	books map[string]Book
	calls int
}

func (m *memoryStore) UpsertBooks(ctx context.Context, books []Book) error {
	if m.books == nil {
		m.books = map[string]Book{}
	}
	m.calls++
	for _, b := range books {
		m.books[b.ID] = b
	}
	return nil
}

func group(id string) vega.FormatGroup {
	return vega.FormatGroup{
		ID:           id,
		Title:        "title " + id,
		PrimaryAgent: &vega.Agent{Label: "Author, Some"},
		Identifiers:  &vega.Identifiers{ISBN: vega.FlexString("isbn-" + id)},
		CoverURL:     &vega.Cover{Medium: "https://covers/" + id},
	}
}

func newTestService(searcher Searcher, store Store, startYear int, now time.Time) (*Service, *[]time.Duration) {
	svc := NewService(searcher, store, Config{
		StartYear:    startYear,
		PageSize:     2,
		PageDelay:    time.Second,
		RangeDelay:   2 * time.Second,
		LocationCode: "jm",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	var pauses []time.Duration
	svc.pause = func(ctx context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return ctx.Err()
	}
	svc.now = func() time.Time { return now }
	return svc, &pauses
}

func TestSyncRangePagesUntilEmpty(t *testing.T) {
	searcher := &pagedSearcher{pages: map[string][][]vega.FormatGroup{
		"2001": {
			{group("a"), group("b")},
			{{ID: "incomplete"}},
			{group("c")},
		},
	}}
	store := &memoryStore{}
	svc, pauses := newTestService(searcher, store, 2001, time.Now())

	pages, books, err := svc.SyncRange(context.Background(), 2001, 2002)
	require.NoError(t, err)
	require.Equal(t, 3, pages)
	require.Equal(t, 3, books)
	require.Len(t, store.books, 3)
	require.Equal(t, 2, store.calls)
	require.Len(t, searcher.requests, 4)
	require.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, *pauses)

	first := searcher.requests[0]
	require.Equal(t, "*", first.SearchText)
	require.Equal(t, []string{"jm"}, first.LocationIDs)
	require.Equal(t, "2002", first.DateTo)
	require.Equal(t, 2, first.PageSize)
}

func TestSyncAllCoversYearsBeforeCurrent(t *testing.T) {
	searcher := &pagedSearcher{pages: map[string][][]vega.FormatGroup{
		"2020": {{group("x")}},
		"2022": {{group("y")}},
	}}
	store := &memoryStore{}
	svc, _ := newTestService(searcher, store, 2020, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))

	summary, err := svc.SyncAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Ranges: 3, Pages: 2, Books: 2}, summary)

	var froms []string
	for _, req := range searcher.requests {
		if req.PageNum == 1 {
			froms = append(froms, req.DateFrom)
		}
	}
	require.Equal(t, []string{"2020", "2021", "2022"}, froms)
}

func TestSyncAllContinuesAfterFailedRange(t *testing.T) {
	searcher := &pagedSearcher{
		pages:    map[string][][]vega.FormatGroup{"2021": {{group("y")}}},
		failYear: map[string]error{"2020": &vega.StatusError{Code: 500, URL: "/search"}},
	}
	store := &memoryStore{}
	svc, _ := newTestService(searcher, store, 2020, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))

	summary, err := svc.SyncAll(context.Background())
	require.ErrorIs(t, err, ErrPartialSync)
	require.Equal(t, 1, summary.FailedRanges)
	require.Equal(t, 1, summary.Books)
	require.Contains(t, store.books, "y")
}

func TestSyncRangeReportsFailingPage(t *testing.T) {
	searcher := &pagedSearcher{failYear: map[string]error{"1999": errors.New("timeout")}}
	svc, _ := newTestService(searcher, &memoryStore{}, 1999, time.Now())

	_, _, err := svc.SyncRange(context.Background(), 1999, 2000)
	var rangeErr *RangeError
	require.ErrorAs(t, err, &rangeErr)
	require.Equal(t, 1, rangeErr.Page)
	require.Equal(t, 1999, rangeErr.From)
}

func TestBuildBookUpsert(t *testing.T) {
	books := []Book{
		{ID: "a", Title: "A", Author: "X Y", ISBN: "1", Cover: "c"},
		{ID: "b", Title: "B", ISBN: "2", Cover: "d"},
	}
	query, args, err := buildBookUpsert(db.DriverMySQL, books)
	require.NoError(t, err)
	require.Contains(t, query, "INSERT INTO `books` (`author`, `cover`, `id`, `isbn`, `title`)")
	require.Contains(t, query, "ON DUPLICATE KEY UPDATE")
	require.Contains(t, query, "`title`=VALUES(title)")
	require.Contains(t, query, "NULL")
	require.Len(t, args, 9)

	query, _, err = buildBookUpsert(db.DriverPostgres, books)
	require.NoError(t, err)
	require.Contains(t, query, `ON CONFLICT (id) DO UPDATE SET`)
	require.Contains(t, query, `"author"=EXCLUDED.author`)
	require.NotContains(t, query, "inventory")
}
