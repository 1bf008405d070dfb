// Package emit renders a validated SelectorSet into a standalone Go scraper
// source file plus a metadata sidecar describing how it was produced.
package emit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/azhovnerik/web-scraper-generator/internal/selectors"
	"github.com/azhovnerik/web-scraper-generator/internal/validate"
)

const defaultMaxPaginationPages = 4

// Metadata is the sidecar written next to each generated scraper. The JSON
// layout is the external contract; tooling downstream reads these files.
type Metadata struct {
	SiteURL    string          `json:"site_url"`
	Selectors  selectors.Set   `json:"selectors"`
	Validation validate.Result `json:"validation"`
	Filename   string          `json:"filename"`
}

// Emitter writes generated scrapers into OutputDir.
type Emitter struct {
	OutputDir string
}

// Result names the files an Emit call produced.
type Result struct {
	ScraperPath  string
	MetadataPath string
}

// templateData is the fully-resolved input to the scraper template. Selector
// and path fields are pre-quoted Go string literals so the template stays
// readable and oracle-supplied values cannot break the generated source.
type templateData struct {
	SiteURL            string
	SiteName           string
	StructName         string
	ArticleLinks       string
	Title              string
	Content            string
	Date               string
	Author             string
	ArticlePathPattern string
	BlogPagePath       string
	PaginationPages    int
}

// Emit renders the scraper for siteURL and writes it with its metadata
// sidecar. The generated file is a self-contained package main.
func (e *Emitter) Emit(siteURL string, set selectors.Set, validation validate.Result) (Result, error) {
	if err := os.MkdirAll(e.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating output directory: %w", err)
	}

	code, err := Render(siteURL, set)
	if err != nil {
		return Result{}, err
	}

	filename := Filename(siteURL)
	scraperPath := filepath.Join(e.OutputDir, filename)
	if err := os.WriteFile(scraperPath, code, 0o644); err != nil {
		return Result{}, fmt.Errorf("writing scraper: %w", err)
	}

	meta := Metadata{
		SiteURL:    siteURL,
		Selectors:  set,
		Validation: validation,
		Filename:   filename,
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("encoding metadata: %w", err)
	}
	metaPath := filepath.Join(e.OutputDir, strings.TrimSuffix(filename, ".go")+"_metadata.json")
	if err := os.WriteFile(metaPath, metaJSON, 0o644); err != nil {
		return Result{}, fmt.Errorf("writing metadata: %w", err)
	}

	return Result{ScraperPath: scraperPath, MetadataPath: metaPath}, nil
}

// Render produces the scraper source for siteURL without touching disk.
func Render(siteURL string, set selectors.Set) ([]byte, error) {
	pathPattern := set.ArticlePathPattern
	if pathPattern == "" {
		pathPattern = "/blog/"
	}
	blogPath := set.BlogPagePath
	if blogPath == "" {
		blogPath = pathPattern
	}

	data := templateData{
		SiteURL:            siteURL,
		SiteName:           siteName(siteURL),
		StructName:         structName(siteURL),
		ArticleLinks:       quote(set.ArticleLinks),
		Title:              quote(set.Title),
		Content:            quote(set.Content),
		Date:               quote(set.Date),
		Author:             quote(set.Author),
		ArticlePathPattern: quote(pathPattern),
		BlogPagePath:       quote(blogPath),
		PaginationPages:    defaultMaxPaginationPages,
	}

	var buf bytes.Buffer
	if err := scraperTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering scraper template: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename derives the output file name from the site URL. Localhost targets
// collapse to a fixed name so port numbers don't leak into identifiers.
func Filename(siteURL string) string {
	return sanitizedDomain(siteURL) + "_scraper.go"
}

func sanitizedDomain(siteURL string) string {
	host := hostOf(siteURL)
	if strings.HasPrefix(host, "localhost") || strings.HasPrefix(host, "127.0.0.1") {
		return "local_site"
	}
	replacer := strings.NewReplacer(".", "_", "-", "_", ":", "_")
	return replacer.Replace(host)
}

func hostOf(siteURL string) string {
	if u, err := url.Parse(siteURL); err == nil && u.Host != "" {
		return strings.TrimPrefix(u.Host, "www.")
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(siteURL, "https://"), "http://")
	trimmed = strings.TrimPrefix(trimmed, "www.")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return trimmed
}

func siteName(siteURL string) string {
	domain := sanitizedDomain(siteURL)
	if domain == "local_site" {
		return "Local Site"
	}
	words := strings.Split(domain, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func structName(siteURL string) string {
	domain := sanitizedDomain(siteURL)
	var b strings.Builder
	for _, part := range strings.Split(domain, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	b.WriteString("Scraper")
	return b.String()
}

func quote(s string) string {
	if s == "" {
		return ""
	}
	return fmt.Sprintf("%q", s)
}

var scraperTemplate = template.Must(template.New("scraper").Parse(`// {{.SiteName}} scraper.
// Generated for: {{.SiteURL}}
package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	baseURL            = "{{.SiteURL}}"
	articlePathPattern = {{.ArticlePathPattern}}
	blogPagePath       = {{.BlogPagePath}}
	maxPaginationPages = {{.PaginationPages}}
	maxArticles        = 100
)

// Article holds the extracted fields of one article page.
type Article struct {
	URL       string
	Title     string
	Author    string
	Published string
	Content   string
}

type {{.StructName}} struct {
	client *http.Client
}

func New{{.StructName}}() *{{.StructName}} {
	return &{{.StructName}}{client: &http.Client{Timeout: 15 * time.Second}}
}

func (s *{{.StructName}}) fetchPage(pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

var skipSegments = []string{"/category/", "/categories/", "/tag/", "/tags/", "/page/", "/author/", "/authors/"}

func articleHref(href string) bool {
	if href == "" {
		return false
	}
	pattern := strings.TrimPrefix(articlePathPattern, "/")
	if !strings.Contains(href, pattern) || strings.HasSuffix(href, articlePathPattern) {
		return false
	}
	lower := strings.ToLower(href)
	for _, skip := range skipSegments {
		if strings.Contains(lower, skip) {
			return false
		}
	}
	return true
}

func (s *{{.StructName}}) collectLinks(doc *goquery.Document, seen map[string]bool, links *[]string) {
{{if .ArticleLinks}}	doc.Find({{.ArticleLinks}}).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !articleHref(href) {
			return
		}
		full := resolveURL(href)
		if full != "" && !seen[full] {
			seen[full] = true
			*links = append(*links, full)
		}
	})
{{else}}	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.Contains(href, strings.TrimPrefix(articlePathPattern, "/")) {
			return
		}
		full := resolveURL(href)
		if full != "" && !seen[full] {
			seen[full] = true
			*links = append(*links, full)
		}
	})
{{end}}}

func resolveURL(href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// GetArticleLinks collects article URLs from the homepage and paginated
// listing pages.
func (s *{{.StructName}}) GetArticleLinks() []string {
	seen := make(map[string]bool)
	var links []string

	if doc, err := s.fetchPage(baseURL); err == nil {
		s.collectLinks(doc, seen, &links)
	} else {
		fmt.Printf("Error fetching %s: %v\n", baseURL, err)
	}

	for page := 1; page < maxPaginationPages; page++ {
		var pageURL string
		if page == 1 {
			pageURL = resolveURL(blogPagePath)
		} else if blogPagePath == "/" {
			pageURL = resolveURL(fmt.Sprintf("/page/%d/", page))
		} else {
			pageURL = resolveURL(fmt.Sprintf("%s/page/%d/", strings.TrimSuffix(blogPagePath, "/"), page))
		}

		doc, err := s.fetchPage(pageURL)
		if err != nil {
			continue
		}
		s.collectLinks(doc, seen, &links)
	}

	return links
}

// ScrapeArticle extracts one article page. Returns nil when neither title nor
// content could be found.
func (s *{{.StructName}}) ScrapeArticle(articleURL string) *Article {
	doc, err := s.fetchPage(articleURL)
	if err != nil {
		fmt.Printf("Error fetching %s: %v\n", articleURL, err)
		return nil
	}

	article := &Article{URL: articleURL}

{{if .Title}}	article.Title = strings.TrimSpace(doc.Find({{.Title}}).First().Text())
{{end}}{{if .Content}}	content := doc.Find({{.Content}}).First()
	var paragraphs []string
	content.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) > 0 {
		article.Content = strings.Join(paragraphs, "\n\n")
	} else {
		article.Content = strings.TrimSpace(content.Text())
	}
{{end}}{{if .Date}}	article.Published = textOrMetaContent(doc.Find({{.Date}}).First())
{{end}}{{if .Author}}	article.Author = textOrMetaContent(doc.Find({{.Author}}).First())
{{end}}
	if article.Title == "" && article.Content == "" {
		return nil
	}
	return article
}

// textOrMetaContent reads the content attribute for meta tags and the trimmed
// text for everything else.
func textOrMetaContent(sel *goquery.Selection) string {
	if goquery.NodeName(sel) == "meta" {
		content, _ := sel.Attr("content")
		return content
	}
	return strings.TrimSpace(sel.Text())
}

// Scrape runs the full pipeline: link collection then per-article extraction.
func (s *{{.StructName}}) Scrape() []Article {
	fmt.Printf("Scraping %s...\n", baseURL)

	links := s.GetArticleLinks()
	fmt.Printf("Found %d article links\n", len(links))
	if len(links) > maxArticles {
		links = links[:maxArticles]
	}

	var articles []Article
	for i, link := range links {
		fmt.Printf("Scraping article %d/%d: %s\n", i+1, len(links), link)
		if article := s.ScrapeArticle(link); article != nil {
			articles = append(articles, *article)
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Printf("Successfully scraped %d articles\n", len(articles))
	return articles
}

func main() {
	scraper := New{{.StructName}}()
	articles := scraper.Scrape()

	fmt.Printf("\nScraped %d articles:\n\n", len(articles))
	for i, article := range articles {
		fmt.Printf("Article %d:\n", i+1)
		fmt.Printf("  URL: %s\n", article.URL)
		fmt.Printf("  Title: %s\n", article.Title)
		fmt.Printf("  Author: %s\n", article.Author)
		fmt.Printf("  Published: %s\n", article.Published)
		fmt.Printf("  Content length: %d chars\n\n", len(article.Content))
	}
}
`))
