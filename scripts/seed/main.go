package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shelfwatch/shelfwatch/internal/app"
	"github.com/shelfwatch/shelfwatch/internal/catalog"
	"github.com/shelfwatch/shelfwatch/internal/inventory"
	"github.com/shelfwatch/shelfwatch/internal/platform/db"
)

// fixture is a book row for local development databases.
type fixture struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	Author    string `yaml:"author"`
	ISBN      string `yaml:"isbn"`
	Cover     string `yaml:"cover"`
	Inventory *int   `yaml:"inventory"`
}

func main() {
	migrations := flag.String("migrations", "migrations", "directory holding postgres/ and mysql/ schema files")
	fixtures := flag.String("fixtures", "scripts/seed/books.yaml", "YAML list of books to load")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	pool, err := db.Open(ctx, db.Options{Driver: cfg.DBDriver, DSN: cfg.DSN(), MaxConns: 1})
	if err != nil {
		log.Fatalf("connect %s: %v", cfg.DBDriver, err)
	}
	defer pool.Close()

	session, err := pool.Acquire(ctx)
	if err != nil {
		log.Fatalf("acquire session: %v", err)
	}
	defer session.Release()

	fmt.Println("→ Applying schema...")
	if err := applySchema(ctx, session, filepath.Join(*migrations, cfg.DBDriver, "0001_init.sql")); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	fmt.Println("→ Seeding books...")
	books, err := loadFixtures(*fixtures)
	if err != nil {
		log.Fatalf("load fixtures: %v", err)
	}
	if err := seedBooks(ctx, session, books); err != nil {
		log.Fatalf("seed books: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func applySchema(ctx context.Context, session db.Session, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stripComments(stmt)) == "" {
			continue
		}
		if _, err := session.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func stripComments(stmt string) string {
	lines := strings.Split(stmt, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func loadFixtures(path string) ([]fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var books []fixture
	if err := yaml.Unmarshal(raw, &books); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return books, nil
}

func seedBooks(ctx context.Context, session db.Session, fixtures []fixture) error {
	books := make([]catalog.Book, 0, len(fixtures))
	counts := make([]inventory.CountUpdate, 0, len(fixtures))
	for _, f := range fixtures {
		books = append(books, catalog.Book{ID: f.ID, Title: f.Title, Author: f.Author, ISBN: f.ISBN, Cover: f.Cover})
		if f.Inventory != nil {
			counts = append(counts, inventory.CountUpdate{ID: f.ID, Count: *f.Inventory})
		}
	}
	if err := catalog.NewRepository(session).UpsertBooks(ctx, books); err != nil {
		return err
	}
	return inventory.NewRepository(session).CommitBatch(ctx, counts, nil)
}
