package metadata

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/shelfwatch/shelfwatch/internal/goodreads"
	"github.com/shelfwatch/shelfwatch/internal/platform/db"
)

// Repository reads and updates enrichment state through a session.
type Repository struct {
	session db.Session
}

// NewRepository constructs a repository bound to session.
func NewRepository(session db.Session) *Repository {
	return &Repository{session: session}
}

// ListPending returns books with an ISBN that have not been looked up yet.
func (r *Repository) ListPending(ctx context.Context) ([]Pending, error) {
	query, args, err := buildPendingQuery(r.session.Dialect())
	if err != nil {
		return nil, err
	}
	rows, err := r.session.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("metadata: list pending: %w", err)
	}
	defer rows.Close()

	var pending []Pending
	for rows.Next() {
		var p Pending
		if err := rows.Scan(&p.ID, &p.ISBN); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// ApplyMetadata stores the looked up metadata and marks the book processed.
func (r *Repository) ApplyMetadata(ctx context.Context, id string, book goodreads.Book) error {
	query, args, err := buildApplyUpdate(r.session.Dialect(), id, book)
	if err != nil {
		return err
	}
	if _, err := r.session.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("metadata: apply %s: %w", id, err)
	}
	return nil
}

// MarkProcessed flags a book as looked up without changing its metadata.
func (r *Repository) MarkProcessed(ctx context.Context, id string) error {
	query, args, err := db.Builder(r.session.Dialect()).
		Update(db.TableBooks).
		Set(goqu.Record{"goodreads": true}).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}
	if _, err := r.session.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("metadata: mark %s: %w", id, err)
	}
	return nil
}

func buildPendingQuery(dialect string) (string, []any, error) {
	return db.Builder(dialect).
		From(db.TableBooks).
		Select("id", "isbn").
		Where(
			goqu.C("goodreads").IsNotTrue(),
			goqu.C("isbn").IsNotNull(),
		).
		Order(goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
}

// buildApplyUpdate keeps the stored cover when the lookup has none.
func buildApplyUpdate(dialect, id string, book goodreads.Book) (string, []any, error) {
	set := goqu.Record{
		"title":     book.Title,
		"author":    book.Author,
		"summary":   book.Description,
		"goodreads": true,
	}
	if book.CoverURL != "" {
		set["cover"] = book.CoverURL
	}
	return db.Builder(dialect).
		Update(db.TableBooks).
		Set(set).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
}
