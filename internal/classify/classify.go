// Package classify decides whether a URL points at a specific article or at a
// listing/category/resource page. It is used both by heuristic discovery and
// as a post-filter over oracle-suggested links.
package classify

import (
	"net/url"
	"strings"
)

// Reason tags why a URL was classified the way it was.
type Reason string

const (
	ReasonDatePattern    Reason = "date-pattern-match"
	ReasonKeywordPattern Reason = "keyword-pattern-match"
	ReasonSkipList       Reason = "excluded-by-skip-list"
	ReasonExtension      Reason = "excluded-by-extension"
	ReasonShortness      Reason = "excluded-by-shortness"
	ReasonOrigin         Reason = "excluded-by-origin"
	ReasonNoPattern      Reason = "no-pattern-match"
)

// Decision is the classifier output for one URL.
type Decision struct {
	IsArticle bool
	Reason    Reason
}

// articleKeywords are path segments that mark article-style URLs, singular and
// plural forms included.
var articleKeywords = map[string]bool{
	"blog": true, "blogs": true,
	"article": true, "articles": true,
	"post": true, "posts": true,
	"news":   true,
	"review": true, "reviews": true,
	"story": true, "stories": true,
	"insight": true, "insights": true,
}

// skipSegments denote listing/directory pages. A match here overrides any
// positive keyword on the same path.
var skipSegments = map[string]bool{
	"category": true, "categories": true,
	"tag": true, "tags": true,
	"page":   true,
	"author": true, "authors": true,
	"feed":       true,
	"industries": true,
	"topics":     true,
	"sectors":    true,
	"solutions":  true,
	"services":   true,
	"products":   true,
}

// resourceExtensions are static-asset suffixes that are never articles.
var resourceExtensions = []string{
	".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico",
	".woff", ".woff2", ".ttf", ".eot", ".mp4", ".mp3", ".pdf", ".zip",
	".xml", ".json",
}

// resourcePaths are asset directories; /_hu is Hugo's cache-buster prefix.
var resourcePaths = []string{
	"/images/", "/assets/", "/static/", "/media/", "/css/", "/js/", "/_hu",
}

// Classify decides whether rawURL points at a specific article. Relative URLs
// are treated as same-origin. Negative signals always win over positive ones.
func Classify(rawURL, baseDomain string) Decision {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Decision{IsArticle: false, Reason: ReasonNoPattern}
	}

	if u.Host != "" && !sameHost(u.Host, baseDomain) {
		return Decision{IsArticle: false, Reason: ReasonOrigin}
	}

	lowerPath := strings.ToLower(u.Path)

	for _, ext := range resourceExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return Decision{IsArticle: false, Reason: ReasonExtension}
		}
	}

	for _, rp := range resourcePaths {
		if strings.Contains(lowerPath, rp) {
			return Decision{IsArticle: false, Reason: ReasonExtension}
		}
	}

	segments := pathSegments(lowerPath)

	for _, seg := range segments {
		if skipSegments[seg] {
			return Decision{IsArticle: false, Reason: ReasonSkipList}
		}
	}

	// Depth floor: a bare listing root like /blog/ is a listing, not an
	// article; /blog/my-post/ passes.
	if strings.Count(lowerPath, "/") < 2 {
		return Decision{IsArticle: false, Reason: ReasonShortness}
	}
	if len(segments) == 1 && articleKeywords[segments[0]] {
		return Decision{IsArticle: false, Reason: ReasonShortness}
	}

	if len(segments) > 0 && isYearSegment(segments[0]) {
		return Decision{IsArticle: true, Reason: ReasonDatePattern}
	}

	for _, seg := range segments {
		if articleKeywords[seg] {
			return Decision{IsArticle: true, Reason: ReasonKeywordPattern}
		}
	}

	return Decision{IsArticle: false, Reason: ReasonNoPattern}
}

// IsListingRoot reports whether the path is exactly a bare listing root such
// as /blog or /news/, with no further segments.
func IsListingRoot(path string) bool {
	segments := pathSegments(strings.ToLower(path))
	return len(segments) == 1 && articleKeywords[segments[0]]
}

func pathSegments(path string) []string {
	var segments []string
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

func isYearSegment(seg string) bool {
	if len(seg) != 4 {
		return false
	}
	for _, c := range seg {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func sameHost(host, baseDomain string) bool {
	host = strings.ToLower(host)
	baseDomain = strings.ToLower(baseDomain)
	return host == baseDomain ||
		strings.TrimPrefix(host, "www.") == strings.TrimPrefix(baseDomain, "www.")
}
