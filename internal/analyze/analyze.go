// Package analyze orchestrates fetching, SPA detection and article discovery
// to produce the samples the selector oracle and validator work from.
package analyze

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/azhovnerik/web-scraper-generator/internal/classify"
	"github.com/azhovnerik/web-scraper-generator/internal/fetch"
	"github.com/azhovnerik/web-scraper-generator/internal/spa"
)

// Sample is one fully fetched article page. Immutable once fetched.
type Sample struct {
	URL  string `json:"url"`
	HTML string `json:"-"`
}

// Result is the aggregate site analysis consumed by the oracle and validator.
type Result struct {
	BaseURL       string
	Domain        string
	HomepageHTML  string
	ListingHTML   string
	ListingURL    string
	CandidateURLs []string
	Samples       []Sample
}

// SampleCount returns the number of successfully fetched samples.
func (r *Result) SampleCount() int { return len(r.Samples) }

// ListingOrHomepage returns the page article-link selectors should be
// validated against: the dedicated listing page when one was found, otherwise
// the homepage.
func (r *Result) ListingOrHomepage() string {
	if r.ListingHTML != "" {
		return r.ListingHTML
	}
	return r.HomepageHTML
}

// JSRenderedError reports a site rejected by the SPA gate. Distinct from a
// fetch failure so callers can recommend a JS-capable scraper instead of
// showing a generic error.
type JSRenderedError struct {
	URL        string
	Indicators []string
}

func (e *JSRenderedError) Error() string {
	return fmt.Sprintf("%s appears to be JavaScript-rendered (%s); a JS-capable scraper is required",
		e.URL, strings.Join(e.Indicators, ", "))
}

// NoArticlesError reports that discovery produced zero usable samples on a
// successfully fetched, non-rejected homepage. Indicators carries the SPA
// signals seen so the caller can pick the right explanation.
type NoArticlesError struct {
	URL        string
	Indicators []string
}

func (e *NoArticlesError) Error() string {
	if len(e.Indicators) > 0 {
		return fmt.Sprintf("no article samples found on %s (page shows JS-rendering signals: %s)",
			e.URL, strings.Join(e.Indicators, ", "))
	}
	return fmt.Sprintf("no article samples found on %s; the site may lack article content or use an unusual structure", e.URL)
}

// listingPaths are conventional blog-index locations probed when no listing
// link is found on the homepage.
var listingPaths = []string{
	"/blog/", "/blogs/", "/news/", "/articles/", "/posts/",
	"/insights/", "/stories/", "/updates/", "/press/", "/publications/",
}

// minListingArticleLinks is how many article-like links a candidate listing
// page must contain to be trusted.
const minListingArticleLinks = 3

// Analyzer produces an analysis Result for one site.
type Analyzer struct {
	Fetcher     *fetch.Client
	Detector    spa.Detector
	Discoverer  Discoverer
	SampleCount int
}

// AnalyzeSite runs the full remote analysis. Homepage fetch failure and a
// JS-rendered verdict abort the run; individual sample failures are skipped.
func (a *Analyzer) AnalyzeSite(ctx context.Context, baseURL string) (*Result, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid site URL %q", baseURL)
	}
	domain := parsed.Host

	log.Printf("Analyzing %s...", baseURL)

	homepage, err := a.Fetcher.Fetch(ctx, baseURL)
	if err != nil {
		return nil, err
	}

	indicators, rejected := a.Detector.Check(homepage)
	if rejected {
		return nil, &JSRenderedError{URL: baseURL, Indicators: indicators}
	}

	candidates, err := a.Discoverer.Discover(ctx, baseURL, domain, homepage)
	if err != nil {
		return nil, err
	}
	candidates = dedupe(candidates)

	result := &Result{
		BaseURL:       baseURL,
		Domain:        domain,
		HomepageHTML:  homepage,
		CandidateURLs: candidates,
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(homepage)); err == nil {
		result.ListingHTML, result.ListingURL = a.findListingPage(ctx, baseURL, domain, doc)
	}

	count := a.SampleCount
	if count <= 0 {
		count = 3
	}
	for _, candidate := range candidates {
		if len(result.Samples) >= count {
			break
		}
		log.Printf("Fetching article: %s", candidate)
		html, err := a.Fetcher.Fetch(ctx, candidate)
		if err != nil {
			log.Printf("Skipping %s: %v", candidate, err)
			continue
		}
		result.Samples = append(result.Samples, Sample{URL: candidate, HTML: html})
	}

	if len(result.Samples) == 0 {
		return nil, &NoArticlesError{URL: baseURL, Indicators: indicators}
	}

	return result, nil
}

// findListingPage locates a dedicated blog-index page distinct from the
// homepage. It first looks for a same-domain link whose path is exactly a
// listing root, then probes conventional paths against the origin. Either way
// the candidate must itself contain article-like links to be accepted.
func (a *Analyzer) findListingPage(ctx context.Context, baseURL, domain string, doc *goquery.Document) (html, pageURL string) {
	seen := make(map[string]bool)

	var candidates []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := resolveURL(baseURL, href)
		if resolved == "" || seen[resolved] {
			return
		}
		u, err := url.Parse(resolved)
		if err != nil || !sameDomain(u.Host, domain) {
			return
		}
		// Exact listing root only: /blog/my-post must not be mistaken
		// for the listing root /blog.
		if classify.IsListingRoot(u.Path) {
			seen[resolved] = true
			candidates = append(candidates, resolved)
		}
	})

	origin := fetch.Origin(baseURL)
	for _, path := range listingPaths {
		probe := origin + path
		if !seen[probe] {
			seen[probe] = true
			candidates = append(candidates, probe)
		}
	}

	// Link-derived candidates come first, probes after; the first verified
	// page wins.
	for _, candidate := range candidates {
		page, err := a.Fetcher.Fetch(ctx, candidate)
		if err != nil {
			continue
		}
		if countArticleLinks(page, candidate, domain) >= minListingArticleLinks {
			log.Printf("Found listing page: %s", candidate)
			return page, candidate
		}
	}

	return "", ""
}

// countArticleLinks counts links on a page that classify as specific articles.
func countArticleLinks(html, pageURL, domain string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}

	count := 0
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := resolveURL(pageURL, href)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		if classify.Classify(resolved, domain).IsArticle {
			count++
		}
	})
	return count
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	baseU, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := baseU.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}

func sameDomain(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)
	return host == domain ||
		strings.TrimPrefix(host, "www.") == strings.TrimPrefix(domain, "www.")
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}
