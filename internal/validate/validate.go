// Package validate scores a SelectorSet against fetched sample pages. Link
// discovery is a hard gate: a set that cannot find article links is valueless
// no matter how well the per-article fields score.
package validate

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/azhovnerik/web-scraper-generator/internal/analyze"
	"github.com/azhovnerik/web-scraper-generator/internal/selectors"
)

// DefaultThreshold is the overall score a SelectorSet must reach to be
// accepted without refinement.
const DefaultThreshold = 0.6

// maxExamples bounds how many matched values are kept for diagnostics.
const maxExamples = 3

// FieldExample is one matched value, truncated for diagnostics.
type FieldExample struct {
	URL   string `json:"url"`
	Value string `json:"value"`
}

// LinkResult reports how the article-links selector performed on the listing
// page.
type LinkResult struct {
	Found    bool     `json:"found"`
	Count    int      `json:"count"`
	Examples []string `json:"examples,omitempty"`
}

// FieldResult reports how one scalar field selector performed across samples.
type FieldResult struct {
	SuccessRate float64        `json:"success_rate"`
	Hits        int            `json:"found_in"`
	Total       int            `json:"total"`
	Examples    []FieldExample `json:"examples,omitempty"`
}

// Result is the full validation outcome for one SelectorSet version. It is
// recomputed fresh for every version, never mutated in place.
type Result struct {
	ArticleLinks LinkResult  `json:"article_links"`
	Title        FieldResult `json:"title"`
	Content      FieldResult `json:"content"`
	Date         FieldResult `json:"date"`
	Author       FieldResult `json:"author"`
	OverallScore float64     `json:"overall_score"`
}

// Acceptable reports whether the score meets the threshold.
func (r Result) Acceptable(threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return r.OverallScore >= threshold
}

// Validate applies the candidate selectors to the listing page and samples.
func Validate(set selectors.Set, listingHTML string, samples []analyze.Sample) Result {
	r := Result{
		ArticleLinks: validateArticleLinks(set.ArticleLinks, listingHTML),
		Title:        validateField(set.Title, samples),
		Content:      validateField(set.Content, samples),
		Date:         validateField(set.Date, samples),
		Author:       validateField(set.Author, samples),
	}

	// Without working link discovery the scraper finds no articles at all,
	// so the whole set scores zero.
	if !r.ArticleLinks.Found {
		r.OverallScore = 0
		return r
	}

	// Zero-rate optional fields are excluded from the mean rather than
	// zeroing it: date/author are legitimately absent on many sites and
	// one missing field must not mask two working ones.
	scores := []float64{1.0} // link discovery already satisfied
	if r.Title.SuccessRate > 0 {
		scores = append(scores, r.Title.SuccessRate)
	}
	if r.Content.SuccessRate > 0 {
		scores = append(scores, r.Content.SuccessRate)
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	r.OverallScore = sum / float64(len(scores))
	return r
}

// validateArticleLinks counts matches with a non-empty href attribute.
func validateArticleLinks(selector, html string) LinkResult {
	if selector == "" || html == "" {
		return LinkResult{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return LinkResult{}
	}

	var links []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && strings.TrimSpace(href) != "" {
			links = append(links, href)
		}
	})

	result := LinkResult{Found: len(links) > 0, Count: len(links)}
	if len(links) > maxExamples {
		links = links[:maxExamples]
	}
	result.Examples = links
	return result
}

// validateField counts samples where the selector matches an element whose
// extracted text is non-empty.
func validateField(selector string, samples []analyze.Sample) FieldResult {
	result := FieldResult{Total: len(samples)}
	if selector == "" || len(samples) == 0 {
		return result
	}

	for _, sample := range samples {
		if sample.HTML == "" {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(sample.HTML))
		if err != nil {
			continue
		}
		elem := doc.Find(selector).First()
		if elem.Length() == 0 {
			continue
		}
		text := extractText(elem)
		if text == "" {
			continue
		}
		result.Hits++
		if len(result.Examples) < maxExamples {
			result.Examples = append(result.Examples, FieldExample{URL: sample.URL, Value: truncateExample(text)})
		}
	}

	result.SuccessRate = float64(result.Hits) / float64(len(samples))
	return result
}

// truncateExample bounds example values, backing off to a rune boundary so
// the persisted metadata stays valid UTF-8.
func truncateExample(s string) string {
	const limit = 100
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// extractText reads an element's text; meta tags carry their value in the
// content attribute instead.
func extractText(s *goquery.Selection) string {
	if goquery.NodeName(s) == "meta" {
		content, _ := s.Attr("content")
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(s.Text())
}
