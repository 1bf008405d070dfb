package classify

import "testing"

const baseDomain = "example.com"

func TestClassifyArticleURLs(t *testing.T) {
	cases := []struct {
		url    string
		reason Reason
	}{
		{"https://example.com/blog/my-first-post/", ReasonKeywordPattern},
		{"https://example.com/news/big-story", ReasonKeywordPattern},
		{"/blog/my-first-post/", ReasonKeywordPattern},
		{"https://example.com/2024/03/launch-recap/", ReasonDatePattern},
		{"https://www.example.com/articles/how-to-test", ReasonKeywordPattern},
	}

	for _, tc := range cases {
		d := Classify(tc.url, baseDomain)
		if !d.IsArticle {
			t.Errorf("%s: expected article, got %s", tc.url, d.Reason)
			continue
		}
		if d.Reason != tc.reason {
			t.Errorf("%s: expected reason %s, got %s", tc.url, tc.reason, d.Reason)
		}
	}
}

// Negative segments override positive keywords on the same path.
func TestClassifyNegativePrecedence(t *testing.T) {
	cases := []string{
		"https://example.com/blog/industries/healthcare/",
		"https://example.com/blog/category/tech/",
		"https://example.com/blog/page/2/",
		"https://example.com/news/tag/economy/",
		"https://example.com/blog/author/jane/",
		"https://example.com/blog/feed",
	}

	for _, u := range cases {
		d := Classify(u, baseDomain)
		if d.IsArticle {
			t.Errorf("%s: expected not-article", u)
		}
		if d.Reason != ReasonSkipList {
			t.Errorf("%s: expected %s, got %s", u, ReasonSkipList, d.Reason)
		}
	}
}

// A bare listing root is not an article; one more segment makes it one.
func TestClassifyDepthFloor(t *testing.T) {
	d := Classify("https://example.com/blog/", baseDomain)
	if d.IsArticle {
		t.Error("/blog/ should not classify as article")
	}
	if d.Reason != ReasonShortness {
		t.Errorf("expected %s, got %s", ReasonShortness, d.Reason)
	}

	d = Classify("https://example.com/blog/my-post/", baseDomain)
	if !d.IsArticle {
		t.Errorf("/blog/my-post/ should classify as article, got %s", d.Reason)
	}
}

func TestClassifyResourceFiles(t *testing.T) {
	cases := []string{
		"https://example.com/blog/style.css",
		"https://example.com/blog/app.js",
		"https://example.com/blog/hero.jpg",
		"https://example.com/blog/feed.xml",
		"https://example.com/images/blog/banner.png",
		"https://example.com/assets/blog/post.html",
		"https://example.com/_hu/blog/cached-post",
	}

	for _, u := range cases {
		d := Classify(u, baseDomain)
		if d.IsArticle {
			t.Errorf("%s: expected not-article", u)
		}
		if d.Reason != ReasonExtension {
			t.Errorf("%s: expected %s, got %s", u, ReasonExtension, d.Reason)
		}
	}
}

func TestClassifyCrossOrigin(t *testing.T) {
	d := Classify("https://other.com/blog/interesting-post/", baseDomain)
	if d.IsArticle {
		t.Error("cross-origin URL should not classify as article")
	}
	if d.Reason != ReasonOrigin {
		t.Errorf("expected %s, got %s", ReasonOrigin, d.Reason)
	}

	// www prefix is the same origin
	d = Classify("https://www.example.com/blog/post-here/", baseDomain)
	if !d.IsArticle {
		t.Errorf("www variant should classify as article, got %s", d.Reason)
	}
}

func TestClassifyNoSignal(t *testing.T) {
	d := Classify("https://example.com/about/team/", baseDomain)
	if d.IsArticle {
		t.Error("/about/team/ should not classify as article")
	}
	if d.Reason != ReasonNoPattern {
		t.Errorf("expected %s, got %s", ReasonNoPattern, d.Reason)
	}
}

func TestIsListingRoot(t *testing.T) {
	if !IsListingRoot("/blog/") {
		t.Error("/blog/ is a listing root")
	}
	if !IsListingRoot("/news") {
		t.Error("/news is a listing root")
	}
	if IsListingRoot("/blog/my-post/") {
		t.Error("/blog/my-post/ is not a listing root")
	}
	if IsListingRoot("/about/") {
		t.Error("/about/ is not a listing root")
	}
}
