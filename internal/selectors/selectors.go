// Package selectors defines the SelectorSet produced for one site. Its JSON
// field names are the persisted metadata contract; downstream consumers key on
// them, so they must stay stable.
package selectors

import "strings"

// Set is the closed collection of selectors and auxiliary path patterns for
// one site. An empty string means "not determined": the parse step never
// stores empty values, so absence is unambiguous.
type Set struct {
	ArticleLinks       string `json:"article_links_selector,omitempty"`
	Title              string `json:"title_selector,omitempty"`
	Content            string `json:"content_selector,omitempty"`
	Date               string `json:"date_selector,omitempty"`
	Author             string `json:"author_selector,omitempty"`
	ArticlePathPattern string `json:"article_path_pattern,omitempty"`
	BlogPagePath       string `json:"blog_page_path,omitempty"`
	Notes              string `json:"notes,omitempty"`
}

// FromMap builds a Set from a decoded oracle reply. Unknown keys are ignored,
// not stored; null/empty values stay absent. base_url_pattern is accepted as a
// legacy alias for article_path_pattern.
func FromMap(m map[string]any) Set {
	var s Set
	s.ArticleLinks = cleanValue(m["article_links_selector"])
	s.Title = cleanValue(m["title_selector"])
	s.Content = cleanValue(m["content_selector"])
	s.Date = cleanValue(m["date_selector"])
	s.Author = cleanValue(m["author_selector"])
	s.ArticlePathPattern = cleanValue(m["article_path_pattern"])
	if s.ArticlePathPattern == "" {
		s.ArticlePathPattern = cleanValue(m["base_url_pattern"])
	}
	s.BlogPagePath = cleanValue(m["blog_page_path"])
	s.Notes = cleanValue(m["notes"])
	return s
}

// IsEmpty reports whether no selector field was determined.
func (s Set) IsEmpty() bool {
	return s.ArticleLinks == "" && s.Title == "" && s.Content == "" &&
		s.Date == "" && s.Author == ""
}

// MergeMissingFrom fills fields absent in s with values from prev. Used by the
// keep-previous refinement policy; the default policy replaces wholesale.
func (s Set) MergeMissingFrom(prev Set) Set {
	merged := s
	if merged.ArticleLinks == "" {
		merged.ArticleLinks = prev.ArticleLinks
	}
	if merged.Title == "" {
		merged.Title = prev.Title
	}
	if merged.Content == "" {
		merged.Content = prev.Content
	}
	if merged.Date == "" {
		merged.Date = prev.Date
	}
	if merged.Author == "" {
		merged.Author = prev.Author
	}
	if merged.ArticlePathPattern == "" {
		merged.ArticlePathPattern = prev.ArticlePathPattern
	}
	if merged.BlogPagePath == "" {
		merged.BlogPagePath = prev.BlogPagePath
	}
	return merged
}

// cleanValue normalizes one oracle value: non-strings, empty strings and the
// literal "null" the model sometimes emits all collapse to absent.
func cleanValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
		return ""
	}
	return s
}
