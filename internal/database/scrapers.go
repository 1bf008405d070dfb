package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/azhovnerik/web-scraper-generator/internal/selectors"
)

// Scraper is one registered generation run. Selectors are stored as the same
// JSON the metadata sidecar carries.
type Scraper struct {
	ID          int64
	SiteURL     string
	Domain      string
	OutputFile  string
	Selectors   selectors.Set
	Score       float64
	State       string
	RetriesUsed int
	CreatedAt   string
	UpdatedAt   string
}

// Stats summarizes the registry.
type Stats struct {
	Total    int
	Accepted int
	AvgScore float64
}

// RecordRun upserts the registry row for siteURL with the latest outcome.
func (db *DB) RecordRun(siteURL, domain, outputFile string, set selectors.Set, score float64, state string, retriesUsed int) error {
	selectorsJSON, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encoding selectors: %w", err)
	}

	_, err = db.conn.Exec(
		`INSERT INTO scrapers (site_url, domain, output_file, selectors, score, state, retries_used)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(site_url) DO UPDATE SET
			domain = excluded.domain,
			output_file = excluded.output_file,
			selectors = excluded.selectors,
			score = excluded.score,
			state = excluded.state,
			retries_used = excluded.retries_used,
			updated_at = datetime('now')`,
		siteURL, domain, outputFile, string(selectorsJSON), score, state, retriesUsed,
	)
	if err != nil {
		return fmt.Errorf("recording run for %s: %w", siteURL, err)
	}
	return nil
}

// GetScraper returns the registry row for siteURL, nil when absent.
func (db *DB) GetScraper(siteURL string) (*Scraper, error) {
	row := db.conn.QueryRow(
		`SELECT id, site_url, domain, output_file, selectors, score, state, retries_used, created_at, updated_at
		FROM scrapers WHERE site_url = ?`, siteURL,
	)
	s, err := scanScraper(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListScrapers returns all registry rows, most recently updated first.
func (db *DB) ListScrapers() ([]Scraper, error) {
	rows, err := db.conn.Query(
		`SELECT id, site_url, domain, output_file, selectors, score, state, retries_used, created_at, updated_at
		FROM scrapers ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Scraper
	for rows.Next() {
		s, err := scanScraper(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

// GetStats returns registry totals.
func (db *DB) GetStats() (Stats, error) {
	var stats Stats
	err := db.conn.QueryRow(
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN state = 'accepted' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(score), 0)
		FROM scrapers`,
	).Scan(&stats.Total, &stats.Accepted, &stats.AvgScore)
	if err != nil {
		return Stats{}, fmt.Errorf("reading stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScraper(row rowScanner) (*Scraper, error) {
	var s Scraper
	var outputFile sql.NullString
	var selectorsJSON string

	err := row.Scan(&s.ID, &s.SiteURL, &s.Domain, &outputFile, &selectorsJSON,
		&s.Score, &s.State, &s.RetriesUsed, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	s.OutputFile = outputFile.String
	if err := json.Unmarshal([]byte(selectorsJSON), &s.Selectors); err != nil {
		return nil, fmt.Errorf("decoding selectors for %s: %w", s.SiteURL, err)
	}
	return &s, nil
}
