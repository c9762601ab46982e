// Package catalog harvests library catalog records year by year and stores
// them as books.
package catalog

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/shelfwatch/shelfwatch/internal/vega"
)

// ErrPartialSync reports that at least one year range failed. Ranges that
// succeeded are stored.
var ErrPartialSync = errors.New("catalog: some ranges failed")

// Book is a cleaned catalog record ready to store.
type Book struct {
	ID     string
	Title  string
	Author string
	ISBN   string
	Cover  string
}

// record is the raw shape a search result must have to be kept.
type record struct {
	ID     string `validate:"required"`
	Title  string `validate:"required"`
	Author string `validate:"required"`
	ISBN   string `validate:"required"`
	Cover  string `validate:"required"`
}

// RangeError reports the year range and page where a sync stopped.
type RangeError struct {
	From int
	To   int
	Page int
	Err  error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("catalog: range %d-%d page %d: %v", e.From, e.To, e.Page, e.Err)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}

// BooksFromGroups keeps the complete records of a search page and cleans
// their title and author.
func BooksFromGroups(validate *validator.Validate, groups []vega.FormatGroup) []Book {
	books := make([]Book, 0, len(groups))
	for _, group := range groups {
		raw := record{
			ID:     group.ID,
			Title:  group.Title,
			Author: group.AuthorLabel(),
			ISBN:   group.ISBN(),
			Cover:  group.MediumCover(),
		}
		if err := validate.Struct(raw); err != nil {
			continue
		}
		books = append(books, Book{
			ID:     raw.ID,
			Title:  CleanTitle(raw.Title),
			Author: CleanAuthor(raw.Author),
			ISBN:   raw.ISBN,
			Cover:  raw.Cover,
		})
	}
	return books
}
