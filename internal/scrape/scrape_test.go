package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/azhovnerik/web-scraper-generator/internal/fetch"
	"github.com/azhovnerik/web-scraper-generator/internal/selectors"
)

const articlePage = `<html><head>
<meta property="article:published_time" content="2024-05-01">
<meta name="author" content="Jane Roe">
</head><body>
<h1 class="title">Post Title</h1>
<div class="content"><p>First paragraph.</p><p>Second paragraph.</p><aside>ads</aside></div>
</body></html>`

func newScraper(baseURL string, set selectors.Set) *Scraper {
	return &Scraper{
		Fetcher: fetch.NewClient(5*time.Second, 0),
		Set:     set,
		BaseURL: baseURL,
	}
}

func TestExtractArticleFields(t *testing.T) {
	set := selectors.Set{
		Title:   "h1.title",
		Content: "div.content",
		Date:    `meta[property="article:published_time"]`,
		Author:  `meta[name="author"]`,
	}
	s := newScraper("https://example.com", set)

	article, err := s.Extract("https://example.com/blog/post/", articlePage)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if article.Title != "Post Title" {
		t.Errorf("title = %q", article.Title)
	}
	if article.Content != "First paragraph.\n\nSecond paragraph." {
		t.Errorf("content = %q", article.Content)
	}
	if article.Published != "2024-05-01" {
		t.Errorf("published = %q", article.Published)
	}
	if article.Author != "Jane Roe" {
		t.Errorf("author = %q", article.Author)
	}
}

func TestExtractRequiresTitleOrContent(t *testing.T) {
	s := newScraper("https://example.com", selectors.Set{Title: "h1.missing"})
	if _, err := s.Extract("https://example.com/blog/post/", "<html><body></body></html>"); err == nil {
		t.Fatal("expected error for empty extraction")
	}
}

func TestExtractReadabilityFallback(t *testing.T) {
	longBody := strings.Repeat("<p>Readable sentence with plenty of words in it. </p>", 30)
	html := `<html><head><title>Post</title></head><body><h1 class="title">Post</h1><article>` + longBody + `</article></body></html>`

	s := newScraper("https://example.com", selectors.Set{Title: "h1.title", Content: "div.no-such"})
	s.Readability = true

	article, err := s.Extract("https://example.com/blog/post/", html)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(article.Content, "Readable sentence") {
		t.Errorf("expected readability fallback content, got %q", article.Content)
	}
}

func TestCollectLinksWithPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
<a class="post" href="/blog/alpha/">Alpha</a>
<a class="post" href="/blog/category/news/">Category</a>
</body></html>`))
	})
	mux.HandleFunc("/blog/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a class="post" href="/blog/beta/">Beta</a></body></html>`))
	})
	mux.HandleFunc("/blog/page/2/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
<a class="post" href="/blog/gamma/">Gamma</a>
<a class="post" href="/blog/alpha/">Alpha again</a>
</body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s := newScraper(server.URL, selectors.Set{
		ArticleLinks:       "a.post",
		ArticlePathPattern: "/blog/",
		BlogPagePath:       "/blog/",
	})

	links, err := s.CollectLinks(context.Background())
	if err != nil {
		t.Fatalf("CollectLinks: %v", err)
	}

	want := []string{
		server.URL + "/blog/alpha/",
		server.URL + "/blog/beta/",
		server.URL + "/blog/gamma/",
	}
	if len(links) != len(want) {
		t.Fatalf("expected %d links, got %v", len(want), links)
	}
	for i, w := range want {
		if links[i] != w {
			t.Errorf("links[%d] = %q, want %q", i, links[i], w)
		}
	}
}

func TestRunScrapesArticles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a class="post" href="/blog/one/">One</a></body></html>`))
	})
	mux.HandleFunc("/blog/one/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1 class="title">One</h1><div class="content"><p>Body.</p></div></body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s := newScraper(server.URL, selectors.Set{
		ArticleLinks:       "a.post",
		Title:              "h1.title",
		Content:            "div.content",
		ArticlePathPattern: "/blog/",
		BlogPagePath:       "/blog/",
	})

	articles, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "One" {
		t.Errorf("unexpected articles %+v", articles)
	}
}
