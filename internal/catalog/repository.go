package catalog

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/shelfwatch/shelfwatch/internal/platform/db"
)

// Repository writes catalog books through a session.
type Repository struct {
	session db.Session
}

// NewRepository constructs a repository bound to session.
func NewRepository(session db.Session) *Repository {
	return &Repository{session: session}
}

// UpsertBooks inserts new books and refreshes the catalog columns of known
// ones. Inventory and enrichment columns are left alone.
func (r *Repository) UpsertBooks(ctx context.Context, books []Book) error {
	if len(books) == 0 {
		return nil
	}
	query, args, err := buildBookUpsert(r.session.Dialect(), books)
	if err != nil {
		return err
	}
	if _, err := r.session.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("catalog: upsert books: %w", err)
	}
	return nil
}

func buildBookUpsert(dialect string, books []Book) (string, []any, error) {
	rows := make([]any, 0, len(books))
	for _, b := range books {
		var author any
		if b.Author != "" {
			author = b.Author
		}
		rows = append(rows, goqu.Record{
			"id":     b.ID,
			"title":  b.Title,
			"author": author,
			"isbn":   b.ISBN,
			"cover":  b.Cover,
		})
	}
	update := goqu.Record{}
	for _, col := range []string{"title", "author", "isbn", "cover"} {
		update[col] = db.Excluded(dialect, col)
	}
	return db.Builder(dialect).
		Insert(db.TableBooks).
		Rows(rows...).
		OnConflict(goqu.DoUpdate("id", update)).
		Prepared(true).
		ToSQL()
}
