package goodreads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const foundXML = `<?xml version="1.0" encoding="UTF-8"?>
<GoodreadsResponse>
  <search>
    <results>
      <work>
        <best_book type="Book">
          <id type="integer">234225</id>
          <title>Dune (Dune, #1)</title>
          <author><id type="integer">58</id><name>Frank Herbert</name></author>
          <description><![CDATA[Set on the desert planet Arrakis.]]></description>
          <large_image_url>https://images/dune-large.jpg</large_image_url>
        </best_book>
      </work>
      <work>
        <best_book><title>Other</title><author><name>Someone</name></author></best_book>
      </work>
    </results>
  </search>
</GoodreadsResponse>`

func TestSearchISBNParsesBestBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search/search", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "9780441013593", q.Get("q"))
		require.Equal(t, "xml", q.Get("format"))
		require.Equal(t, "secret", q.Get("key"))
		require.Equal(t, "all", q.Get("search[field]"))
		require.Equal(t, "true", q.Get("_extras[book_covers_large]"))
		_, _ = w.Write([]byte(foundXML))
	}))
	defer srv.Close()

	book, err := NewClient(srv.URL, "secret", 0).SearchISBN(context.Background(), "9780441013593")
	require.NoError(t, err)
	require.Equal(t, &Book{
		Title:       "Dune (Dune, #1)",
		Author:      "Frank Herbert",
		Description: "Set on the desert planet Arrakis.",
		CoverURL:    "https://images/dune-large.jpg",
	}, book)
}

func TestSearchISBNNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<GoodreadsResponse><search><results/></search></GoodreadsResponse>`))
	}))
	defer srv.Close()

	book, err := NewClient(srv.URL, "k", 0).SearchISBN(context.Background(), "000")
	require.NoError(t, err)
	require.Nil(t, book)
}

func TestSearchISBNErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()
		_, err := NewClient(srv.URL, "k", 0).SearchISBN(context.Background(), "1")
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, http.StatusUnauthorized, statusErr.Code)
	})
	t.Run("decode", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html><body>rate limited`))
		}))
		defer srv.Close()
		_, err := NewClient(srv.URL, "k", 0).SearchISBN(context.Background(), "1")
		require.ErrorIs(t, err, ErrDecode)
	})
	t.Run("incomplete", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<GoodreadsResponse><search><results><work><best_book><title>X</title></best_book></work></results></search></GoodreadsResponse>`))
		}))
		defer srv.Close()
		_, err := NewClient(srv.URL, "k", 0).SearchISBN(context.Background(), "1")
		require.ErrorIs(t, err, ErrIncomplete)
	})
}
