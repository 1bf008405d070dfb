package database

import (
	"path/filepath"
	"testing"

	"github.com/azhovnerik/web-scraper-generator/internal/selectors"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndGetScraper(t *testing.T) {
	db := openTestDB(t)

	set := selectors.Set{ArticleLinks: "a.post", Title: "h1"}
	err := db.RecordRun("https://example.com", "example.com", "example_com_scraper.go", set, 0.85, "accepted", 1)
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	s, err := db.GetScraper("https://example.com")
	if err != nil {
		t.Fatalf("GetScraper: %v", err)
	}
	if s == nil {
		t.Fatal("expected a row")
	}
	if s.Domain != "example.com" || s.Score != 0.85 || s.State != "accepted" || s.RetriesUsed != 1 {
		t.Errorf("unexpected row %+v", s)
	}
	if s.Selectors.ArticleLinks != "a.post" || s.Selectors.Title != "h1" {
		t.Errorf("selectors not round-tripped, got %+v", s.Selectors)
	}
}

func TestGetScraperMissing(t *testing.T) {
	db := openTestDB(t)
	s, err := db.GetScraper("https://nowhere.example")
	if err != nil {
		t.Fatalf("GetScraper: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil for missing row, got %+v", s)
	}
}

func TestRecordRunUpserts(t *testing.T) {
	db := openTestDB(t)

	db.RecordRun("https://example.com", "example.com", "f.go", selectors.Set{Title: "h1"}, 0.3, "exhausted", 2)
	db.RecordRun("https://example.com", "example.com", "f.go", selectors.Set{Title: "h1.fixed"}, 0.9, "accepted", 1)

	scrapers, err := db.ListScrapers()
	if err != nil {
		t.Fatalf("ListScrapers: %v", err)
	}
	if len(scrapers) != 1 {
		t.Fatalf("expected one row after upsert, got %d", len(scrapers))
	}
	if scrapers[0].Score != 0.9 || scrapers[0].State != "accepted" {
		t.Errorf("latest run must win, got %+v", scrapers[0])
	}
	if scrapers[0].Selectors.Title != "h1.fixed" {
		t.Errorf("selectors not updated, got %+v", scrapers[0].Selectors)
	}
}

func TestStats(t *testing.T) {
	db := openTestDB(t)

	db.RecordRun("https://a.example", "a.example", "a.go", selectors.Set{Title: "h1"}, 1.0, "accepted", 0)
	db.RecordRun("https://b.example", "b.example", "b.go", selectors.Set{Title: "h1"}, 0.0, "exhausted", 2)

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Total != 2 || stats.Accepted != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.AvgScore != 0.5 {
		t.Errorf("expected avg 0.5, got %v", stats.AvgScore)
	}
}
