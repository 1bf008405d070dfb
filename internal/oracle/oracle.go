// Package oracle wraps the LLM provider with the selector inference,
// refinement and link-discovery prompts. The model's replies are free-form
// and unreliable; parsing is tolerant but total failures surface as typed
// errors so the refinement loop can decide what to do.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/azhovnerik/web-scraper-generator/internal/analyze"
	"github.com/azhovnerik/web-scraper-generator/internal/llm"
	"github.com/azhovnerik/web-scraper-generator/internal/selectors"
	"github.com/azhovnerik/web-scraper-generator/internal/validate"
)

// Excerpt budgets. The model has a finite context window; truncation happens
// here at the boundary, never mid-request, and excerpts below the cap are
// sent whole.
const (
	homepageExcerptLimit = 15000
	articleExcerptLimit  = 10000
	listingExcerptLimit  = 30000
	maxPromptSamples     = 3

	inferMaxTokens  = 2000
	refineMaxTokens = 1000
	linksMaxTokens  = 1000
)

// Client is the selector inference oracle.
type Client struct {
	Provider llm.Provider
}

// New creates an oracle client over the given provider.
func New(provider llm.Provider) *Client {
	return &Client{Provider: provider}
}

// InferSelectors asks the model for a candidate SelectorSet from homepage and
// article excerpts. Missing keys stay absent; a reply with no parsable JSON
// returns an error, never a silent empty set.
func (c *Client) InferSelectors(ctx context.Context, siteURL, homepageHTML string, samples []analyze.Sample) (selectors.Set, error) {
	var articles strings.Builder
	for i, sample := range samples {
		if i >= maxPromptSamples {
			break
		}
		fmt.Fprintf(&articles, "\n\n--- Article %d (URL: %s) ---\n%s",
			i+1, sample.URL, truncate(sample.HTML, articleExcerptLimit))
	}

	prompt := fmt.Sprintf(`Analyze the HTML structure of a website and determine CSS selectors for scraping its articles.

Site URL: %s

Homepage HTML (first %d characters):
%s

Article samples:
%s

Your task is to determine CSS selectors for the following elements:

1. **article_links_selector** - selector that finds links to articles on the homepage or listing page
2. **title_selector** - selector for the article title on an article page
3. **content_selector** - selector for the main article text
4. **date_selector** - selector for the publication date (check meta tags too)
5. **author_selector** - selector for the article author (check meta tags too)

Important:
- Selectors must be as specific as possible and work across all sample articles
- Use null for elements you cannot find
- For article_links_selector, prefer links leading to /blog/, /news/, /articles/ style paths
- Never target category, tag, pagination or author listing links

Return ONLY valid JSON with no extra text:
{
  "article_links_selector": "CSS selector or null",
  "title_selector": "CSS selector or null",
  "content_selector": "CSS selector or null",
  "date_selector": "CSS selector or null",
  "author_selector": "CSS selector or null",
  "article_path_pattern": "URL pattern of article pages, e.g. /blog/",
  "blog_page_path": "path of the listing page, e.g. /blog/",
  "notes": "brief notes"
}`, siteURL, homepageExcerptLimit, truncate(homepageHTML, homepageExcerptLimit), articles.String())

	reply, err := c.Provider.Generate(ctx, prompt, inferMaxTokens)
	if err != nil {
		return selectors.Set{}, fmt.Errorf("selector inference: %w", err)
	}

	parsed, err := llm.ExtractJSON(reply)
	if err != nil {
		return selectors.Set{}, fmt.Errorf("selector inference: %w", err)
	}

	return selectors.FromMap(parsed), nil
}

// RefineSelectors sends the current set plus validation diagnostics and
// expects a full replacement set back.
func (c *Client) RefineSelectors(ctx context.Context, siteURL string, current selectors.Set, diagnostics validate.Result) (selectors.Set, error) {
	currentJSON, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return selectors.Set{}, fmt.Errorf("encoding current selectors: %w", err)
	}
	diagJSON, err := json.MarshalIndent(diagnostics, "", "  ")
	if err != nil {
		return selectors.Set{}, fmt.Errorf("encoding validation results: %w", err)
	}

	prompt := fmt.Sprintf(`The current CSS selectors for the site %s do not work correctly.

Current selectors:
%s

Validation results:
%s

Fix the selectors so they work. Fields with found=false or success_rate of 0 matched nothing on the real pages; propose different selectors for them. Keep the complete set in your answer.

Return ONLY valid JSON with the updated selectors:
{
  "article_links_selector": "...",
  "title_selector": "...",
  "content_selector": "...",
  "date_selector": "...",
  "author_selector": "..."
}`, siteURL, currentJSON, diagJSON)

	reply, err := c.Provider.Generate(ctx, prompt, refineMaxTokens)
	if err != nil {
		return selectors.Set{}, fmt.Errorf("selector refinement: %w", err)
	}

	parsed, err := llm.ExtractJSON(reply)
	if err != nil {
		return selectors.Set{}, fmt.Errorf("selector refinement: %w", err)
	}

	return selectors.FromMap(parsed), nil
}

// FindArticleLinks asks the model to name article hrefs on a listing page.
// Callers must post-filter the result with the URL classifier; the model is
// known to return directory and category paths despite the instructions.
func (c *Client) FindArticleLinks(ctx context.Context, listingHTML string) ([]string, error) {
	prompt := fmt.Sprintf(`Below is the HTML of a website listing page. Find the URLs of individual articles or blog posts.

Include only links that lead to one specific article. Exclude category pages, tag pages, pagination (e.g. /page/2/), author pages and feeds.

Return ONLY a JSON array of href strings, for example:
["/blog/my-first-post/", "/blog/another-post/"]

HTML:
%s`, truncate(listingHTML, listingExcerptLimit))

	reply, err := c.Provider.Generate(ctx, prompt, linksMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("article link discovery: %w", err)
	}

	return parseLinkReply(reply)
}

// parseLinkReply accepts either a bare JSON array of hrefs or an object
// wrapping one under a links-like key.
func parseLinkReply(reply string) ([]string, error) {
	if arr, err := llm.ExtractJSONArray(reply); err == nil {
		return stringItems(arr), nil
	}

	obj, err := llm.ExtractJSON(reply)
	if err != nil {
		return nil, fmt.Errorf("article link discovery: %w", err)
	}
	for _, key := range []string{"article_links", "links", "urls"} {
		if arr, ok := obj[key].([]any); ok {
			return stringItems(arr), nil
		}
	}
	return nil, fmt.Errorf("article link discovery: %w", &llm.MalformedReplyError{Raw: reply})
}

func stringItems(arr []any) []string {
	var out []string
	for _, item := range arr {
		if s, ok := item.(string); ok {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// truncate cuts s to at most limit bytes; shorter input is sent whole.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
