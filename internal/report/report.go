// Package report summarizes a batch generation run as JSON, Markdown, and
// rendered HTML artifacts.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
)

var md = goldmark.New()

// SiteResult is the outcome for one input site. Results keep the input order
// of the batch, so re-running a batch produces a diffable report.
type SiteResult struct {
	SiteURL     string  `json:"site_url"`
	Success     bool    `json:"success"`
	Error       string  `json:"error,omitempty"`
	State       string  `json:"state,omitempty"`
	Score       float64 `json:"validation_score"`
	RetriesUsed int     `json:"retries_used"`
	OutputFile  string  `json:"output_file,omitempty"`
}

// Report is one batch run.
type Report struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Results     []SiteResult `json:"results"`
}

// Successful counts accepted sites.
func (r *Report) Successful() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

// Write persists the report into dir as generation_report.json, .md and .html.
// Returns the JSON report path.
func (r *Report) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	jsonPath := filepath.Join(dir, "generation_report.json")
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	markdown := r.Markdown()
	if err := os.WriteFile(filepath.Join(dir, "generation_report.md"), []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("writing markdown report: %w", err)
	}

	html, err := renderHTML(markdown)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "generation_report.html"), html, 0o644); err != nil {
		return "", fmt.Errorf("writing html report: %w", err)
	}

	return jsonPath, nil
}

// Markdown renders the report as a summary table plus a failure section.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Scraper Generation Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Success rate: %d/%d\n\n", r.Successful(), len(r.Results))

	b.WriteString("| Site | Result | Score | Retries | Output |\n")
	b.WriteString("|------|--------|-------|---------|--------|\n")
	for _, res := range r.Results {
		result := "failed"
		if res.Success {
			result = "accepted"
		} else if res.State != "" {
			result = res.State
		}
		fmt.Fprintf(&b, "| %s | %s | %.2f | %d | %s |\n",
			res.SiteURL, result, res.Score, res.RetriesUsed, res.OutputFile)
	}

	var failures []SiteResult
	for _, res := range r.Results {
		if !res.Success && res.Error != "" {
			failures = append(failures, res)
		}
	}
	if len(failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, res := range failures {
			fmt.Fprintf(&b, "- **%s**: %s\n", res.SiteURL, res.Error)
		}
	}

	return b.String()
}

var htmlPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Scraper Generation Report</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

func renderHTML(markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("rendering report html: %w", err)
	}

	var page bytes.Buffer
	err := htmlPage.Execute(&page, struct{ Body template.HTML }{Body: template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("rendering report page: %w", err)
	}
	return page.Bytes(), nil
}
