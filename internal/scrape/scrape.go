// Package scrape runs a stored SelectorSet against the live site. This is the
// in-process counterpart of the generated standalone scraper, used by the run
// command to exercise a scraper without compiling its emitted source.
package scrape

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/azhovnerik/web-scraper-generator/internal/fetch"
	"github.com/azhovnerik/web-scraper-generator/internal/selectors"
)

const (
	defaultMaxArticles    = 100
	maxPaginationPages    = 4
	minReadabilityContent = 100
)

var skipSegments = []string{"/category/", "/categories/", "/tag/", "/tags/", "/page/", "/author/", "/authors/"}

// Article is one extracted article.
type Article struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	Published string `json:"published,omitempty"`
	Content   string `json:"content"`
}

// Scraper applies a SelectorSet to a site.
type Scraper struct {
	Fetcher     *fetch.Client
	Set         selectors.Set
	BaseURL     string
	MaxArticles int

	// Readability enables content extraction fallback for pages where the
	// content selector matches nothing.
	Readability bool
}

// Run collects article links and extracts each article.
func (s *Scraper) Run(ctx context.Context) ([]Article, error) {
	links, err := s.CollectLinks(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("Found %d article links", len(links))

	limit := s.MaxArticles
	if limit <= 0 {
		limit = defaultMaxArticles
	}
	if len(links) > limit {
		links = links[:limit]
	}

	var articles []Article
	for i, link := range links {
		log.Printf("Scraping article %d/%d: %s", i+1, len(links), link)
		article, err := s.ScrapeArticle(ctx, link)
		if err != nil {
			log.Printf("Skipping %s: %v", link, err)
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

// CollectLinks gathers article URLs from the homepage and paginated listing
// pages, deduplicated in discovery order.
func (s *Scraper) CollectLinks(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var links []string

	html, err := s.Fetcher.Fetch(ctx, s.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("fetching homepage: %w", err)
	}
	s.collectFrom(html, seen, &links)

	blogPath := s.Set.BlogPagePath
	if blogPath == "" {
		blogPath = s.articlePathPattern()
	}

	for page := 1; page < maxPaginationPages; page++ {
		pageURL := s.paginationURL(blogPath, page)
		if pageURL == "" || pageURL == s.BaseURL {
			continue
		}
		html, err := s.Fetcher.Fetch(ctx, pageURL)
		if err != nil {
			continue
		}
		s.collectFrom(html, seen, &links)
	}

	return links, nil
}

func (s *Scraper) paginationURL(blogPath string, page int) string {
	if page == 1 {
		return s.resolve(blogPath)
	}
	if blogPath == "/" || blogPath == "" {
		return s.resolve(fmt.Sprintf("/page/%d/", page))
	}
	return s.resolve(fmt.Sprintf("%s/page/%d/", strings.TrimSuffix(blogPath, "/"), page))
}

func (s *Scraper) collectFrom(html string, seen map[string]bool, links *[]string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	selection := doc.Find("a[href]")
	if s.Set.ArticleLinks != "" {
		selection = doc.Find(s.Set.ArticleLinks)
	}

	selection.Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !s.articleHref(href) {
			return
		}
		full := s.resolve(href)
		if full != "" && !seen[full] {
			seen[full] = true
			*links = append(*links, full)
		}
	})
}

func (s *Scraper) articlePathPattern() string {
	if s.Set.ArticlePathPattern != "" {
		return s.Set.ArticlePathPattern
	}
	return "/blog/"
}

func (s *Scraper) articleHref(href string) bool {
	if href == "" {
		return false
	}
	pattern := s.articlePathPattern()
	if !strings.Contains(href, strings.TrimPrefix(pattern, "/")) {
		return false
	}
	if strings.HasSuffix(href, pattern) {
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

func (s *Scraper) resolve(href string) string {
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}

// ScrapeArticle fetches one article page and extracts its fields. An article
// with neither title nor content is an error, not an empty result.
func (s *Scraper) ScrapeArticle(ctx context.Context, articleURL string) (Article, error) {
	html, err := s.Fetcher.Fetch(ctx, articleURL)
	if err != nil {
		return Article{}, err
	}
	return s.Extract(articleURL, html)
}

// Extract applies the selector set to already-fetched HTML.
func (s *Scraper) Extract(articleURL, html string) (Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Article{}, fmt.Errorf("parsing %s: %w", articleURL, err)
	}

	article := Article{URL: articleURL}

	if s.Set.Title != "" {
		article.Title = strings.TrimSpace(doc.Find(s.Set.Title).First().Text())
	}
	if s.Set.Content != "" {
		article.Content = extractContent(doc.Find(s.Set.Content).First())
	}
	if s.Set.Date != "" {
		article.Published = textOrMetaContent(doc.Find(s.Set.Date).First())
	}
	if s.Set.Author != "" {
		article.Author = textOrMetaContent(doc.Find(s.Set.Author).First())
	}

	if s.Readability && len(article.Content) < minReadabilityContent {
		if content := readabilityContent(articleURL, html); content != "" {
			article.Content = content
		}
	}

	if article.Title == "" && article.Content == "" {
		return Article{}, fmt.Errorf("no title or content extracted from %s", articleURL)
	}
	return article, nil
}

// extractContent joins the paragraph texts of the content node, falling back
// to the node's whole text when it has no paragraphs.
func extractContent(sel *goquery.Selection) string {
	var paragraphs []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, "\n\n")
	}
	return strings.TrimSpace(sel.Text())
}

// textOrMetaContent reads the content attribute for meta tags, trimmed text
// otherwise.
func textOrMetaContent(sel *goquery.Selection) string {
	if goquery.NodeName(sel) == "meta" {
		content, _ := sel.Attr("content")
		return content
	}
	return strings.TrimSpace(sel.Text())
}

func readabilityContent(articleURL, html string) string {
	parsed, _ := url.Parse(articleURL)
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}
