package analyze

import (
	"context"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/azhovnerik/web-scraper-generator/internal/classify"
	"github.com/azhovnerik/web-scraper-generator/internal/fetch"
)

// Discoverer finds candidate article URLs on a site. Two interchangeable
// strategies exist: pure heuristics over homepage links, and oracle-assisted
// discovery with the classifier as a post-filter.
type Discoverer interface {
	Discover(ctx context.Context, baseURL, domain, homepageHTML string) ([]string, error)
}

// LinkFinder is the oracle capability used by oracle-assisted discovery.
type LinkFinder interface {
	FindArticleLinks(ctx context.Context, listingHTML string) ([]string, error)
}

// Heuristic discovers article URLs from homepage links and advertised feeds
// without consulting the oracle.
type Heuristic struct {
	Fetcher *fetch.Client
}

// Discover extracts same-domain links that classify as articles, supplemented
// by entries from any RSS/Atom feed the homepage advertises. When the primary
// filter yields nothing it falls back to any same-domain link that is not an
// obvious utility page.
func (h *Heuristic) Discover(ctx context.Context, baseURL, domain, homepageHTML string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(homepageHTML))
	if err != nil {
		return nil, err
	}

	var candidates []string
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := resolveURL(baseURL, href)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		if classify.Classify(resolved, domain).IsArticle {
			candidates = append(candidates, resolved)
		}
	})

	for _, link := range h.feedArticleLinks(ctx, baseURL, domain, doc) {
		if !seen[link] {
			seen[link] = true
			candidates = append(candidates, link)
		}
	}

	if len(candidates) > 0 {
		return candidates, nil
	}

	// Fallback: any same-domain link that is not an obvious utility page.
	skipFragments := []string{"contact", "about", "privacy", "terms", "#"}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := resolveURL(baseURL, href)
		if resolved == "" {
			return
		}
		if resolved == baseURL || resolved == baseURL+"/" {
			return
		}
		d := classify.Classify(resolved, domain)
		if d.Reason == classify.ReasonOrigin || d.Reason == classify.ReasonExtension {
			return
		}
		lower := strings.ToLower(resolved)
		for _, skip := range skipFragments {
			if strings.Contains(lower, skip) {
				return
			}
		}
		if !seen[resolved] {
			seen[resolved] = true
			candidates = append(candidates, resolved)
		}
	})

	return candidates, nil
}

// feedArticleLinks parses feeds advertised via <link rel=alternate> and
// returns their item links, classifier-filtered.
func (h *Heuristic) feedArticleLinks(ctx context.Context, baseURL, domain string, doc *goquery.Document) []string {
	if h.Fetcher == nil {
		return nil
	}

	var feedURLs []string
	doc.Find(`link[type="application/rss+xml"], link[type="application/atom+xml"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if resolved := resolveURL(baseURL, href); resolved != "" {
			feedURLs = append(feedURLs, resolved)
		}
	})

	var links []string
	parser := gofeed.NewParser()
	for _, feedURL := range feedURLs {
		raw, err := h.Fetcher.Fetch(ctx, feedURL)
		if err != nil {
			log.Printf("Skipping feed %s: %v", feedURL, err)
			continue
		}
		feed, err := parser.ParseString(raw)
		if err != nil {
			log.Printf("Skipping unparsable feed %s: %v", feedURL, err)
			continue
		}
		for _, item := range feed.Items {
			resolved := resolveURL(baseURL, item.Link)
			if resolved == "" {
				continue
			}
			if classify.Classify(resolved, domain).IsArticle {
				links = append(links, resolved)
			}
		}
	}
	return links
}

// OracleAssisted asks the inference oracle to name article hrefs directly,
// then applies the classifier as a safety net: the oracle is advisory, not
// authoritative, and is known to return category paths despite instructions.
type OracleAssisted struct {
	Finder   LinkFinder
	Fallback Discoverer
}

func (o *OracleAssisted) Discover(ctx context.Context, baseURL, domain, homepageHTML string) ([]string, error) {
	hrefs, err := o.Finder.FindArticleLinks(ctx, homepageHTML)
	if err != nil {
		if o.Fallback != nil {
			log.Printf("Oracle link discovery failed (%v); falling back to heuristics", err)
			return o.Fallback.Discover(ctx, baseURL, domain, homepageHTML)
		}
		return nil, err
	}

	var candidates []string
	for _, href := range hrefs {
		resolved := resolveURL(baseURL, href)
		if resolved == "" {
			continue
		}
		if classify.Classify(resolved, domain).IsArticle {
			candidates = append(candidates, resolved)
		}
	}
	return candidates, nil
}
