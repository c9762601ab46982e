package inventory

import (
	"context"
	"fmt"
	"slices"

	"github.com/doug-martin/goqu/v9"

	"github.com/shelfwatch/shelfwatch/internal/platform/db"
)

// Repository persists inventory samples through a single session.
type Repository struct {
	session db.Session
}

// NewRepository constructs a repository bound to session. The caller owns the
// session and releases it.
func NewRepository(session db.Session) *Repository {
	return &Repository{session: session}
}

// LoadSnapshot reads every book id with its stored inventory, ordered by id.
// A NULL inventory becomes an unknown count.
func (r *Repository) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	query, args, err := buildSnapshotQuery(r.session.Dialect())
	if err != nil {
		return Snapshot{}, err
	}
	rows, err := r.session.Query(ctx, query, args...)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			id        string
			inventory *int64
		)
		if err := rows.Scan(&id, &inventory); err != nil {
			return Snapshot{}, err
		}
		item := Item{ID: id}
		if inventory != nil {
			item.Previous = KnownCount(int(*inventory))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(items), nil
}

// maxRowsPerStatement keeps multi-row statements well below the 65535 bind
// parameter limit of Postgres.
const maxRowsPerStatement = 1000

// CommitBatch writes the count updates and appends the checkout events in one
// transaction. Large inputs are split over several statements.
func (r *Repository) CommitBatch(ctx context.Context, updates []CountUpdate, events []CheckoutEvent) error {
	if len(updates) == 0 && len(events) == 0 {
		return nil
	}
	dialect := r.session.Dialect()
	return r.session.WithTx(ctx, func(exec db.Executor) error {
		for chunk := range slices.Chunk(updates, maxRowsPerStatement) {
			query, args, err := buildCountUpsert(dialect, chunk)
			if err != nil {
				return err
			}
			if _, err := exec.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("upsert counts: %w", err)
			}
		}
		for chunk := range slices.Chunk(events, maxRowsPerStatement) {
			query, args, err := buildCheckoutInsert(dialect, chunk)
			if err != nil {
				return err
			}
			if _, err := exec.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("insert checkouts: %w", err)
			}
		}
		return nil
	})
}

func buildSnapshotQuery(dialect string) (string, []any, error) {
	return db.Builder(dialect).
		From(db.TableBooks).
		Select("id", "inventory").
		Order(goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
}

// buildCountUpsert inserts unseen ids and overwrites only the inventory column
// of existing rows.
func buildCountUpsert(dialect string, updates []CountUpdate) (string, []any, error) {
	rows := make([]any, 0, len(updates))
	for _, u := range updates {
		rows = append(rows, goqu.Record{"id": u.ID, "inventory": u.Count})
	}
	return db.Builder(dialect).
		Insert(db.TableBooks).
		Rows(rows...).
		OnConflict(goqu.DoUpdate("id", goqu.Record{"inventory": db.Excluded(dialect, "inventory")})).
		Prepared(true).
		ToSQL()
}

func buildCheckoutInsert(dialect string, events []CheckoutEvent) (string, []any, error) {
	rows := make([]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, goqu.Record{"book_id": e.BookID, "checked_out_at": e.At.UTC()})
	}
	return db.Builder(dialect).
		Insert(db.TableCheckouts).
		Rows(rows...).
		Prepared(true).
		ToSQL()
}
