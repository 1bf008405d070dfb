package spa

import (
	"strings"
	"testing"
)

// staticPage builds a content-rich server-rendered page.
func staticPage() string {
	para := strings.Repeat("Plenty of readable article text here. ", 30)
	var links strings.Builder
	for i := 0; i < 25; i++ {
		links.WriteString(`<a href="/blog/post-` + string(rune('a'+i%26)) + `/">post</a>`)
	}
	return `<!DOCTYPE html><html><head><title>Site</title></head><body>
<header>My Site</header>
<nav>` + links.String() + `</nav>
<main><article><p>` + para + `</p></article></main>
<footer>Contact us</footer>
</body></html>`
}

// spaShell builds a near-empty SPA bootstrap page.
func spaShell() string {
	return `<!DOCTYPE html><html><head>
<script src="/static/js/react-dom.production.min.js"></script>
<script>window.__data={}</script><script></script><script></script>
<script></script><script></script><script></script><script></script>
<script></script><script></script><script></script>
</head><body><div id="root"></div></body></html>`
}

func TestDetectStaticPageHasNoIndicators(t *testing.T) {
	indicators := Detect(staticPage())
	if len(indicators) != 0 {
		t.Errorf("expected no indicators for static page, got %v", indicators)
	}

	_, jsRendered := Detector{MinIndicators: 1}.Check(staticPage())
	if jsRendered {
		t.Error("a page with zero indicators must never be rejected")
	}
}

func TestDetectSPAShell(t *testing.T) {
	indicators := Detect(spaShell())
	if len(indicators) < 3 {
		t.Fatalf("expected at least 3 indicators for SPA shell, got %v", indicators)
	}

	want := map[string]bool{
		IndicatorRootContainer:  true,
		IndicatorReact:          true,
		IndicatorMinimalText:    true,
		IndicatorEmptyBodyShell: true,
	}
	for _, ind := range indicators {
		delete(want, ind)
	}
	for missing := range want {
		t.Errorf("expected indicator %s, got %v", missing, indicators)
	}

	_, jsRendered := Detector{MinIndicators: 3}.Check(spaShell())
	if !jsRendered {
		t.Error("SPA shell should be rejected at the default threshold")
	}
}

// Adding more framework markers never decreases the indicator count.
func TestDetectMonotonicity(t *testing.T) {
	base := spaShell()
	baseCount := len(Detect(base))

	withVue := strings.Replace(base, "<body>", `<body data-v-123 v-if="x">`, 1)
	vueCount := len(Detect(withVue))
	if vueCount < baseCount {
		t.Errorf("adding vue markers decreased count: %d -> %d", baseCount, vueCount)
	}

	withAngular := strings.Replace(withVue, "<html>", `<html ng-app="app">`, 1)
	angularCount := len(Detect(withAngular))
	if angularCount < vueCount {
		t.Errorf("adding angular markers decreased count: %d -> %d", vueCount, angularCount)
	}
}

func TestDetectorThresholdPerCaller(t *testing.T) {
	// A mostly-static page with one weak signal: a #app container used for a
	// widget, plenty of real content.
	page := strings.Replace(staticPage(), "<main>", `<div id="app"></div><main>`, 1)

	indicators := Detect(page)
	if len(indicators) != 1 {
		t.Fatalf("expected exactly 1 indicator, got %v", indicators)
	}

	if _, jsRendered := (Detector{MinIndicators: 3}).Check(page); jsRendered {
		t.Error("agent threshold (3) should tolerate a single indicator")
	}
	if _, jsRendered := (Detector{MinIndicators: 1}).Check(page); !jsRendered {
		t.Error("generator threshold (1) should reject on a single indicator")
	}
}

func TestDetectScriptRatio(t *testing.T) {
	blob := strings.Repeat("var x=1;", 5000)
	page := `<html><head><script>` + blob + `</script></head><body>
<p>` + strings.Repeat("Moderate boilerplate text. ", 30) + `</p>
<p>More content so the absolute text length is not tiny.</p>
</body></html>`

	indicators := Detect(page)
	found := false
	for _, ind := range indicators {
		if ind == IndicatorScriptRatio {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s for JS-heavy page, got %v", IndicatorScriptRatio, indicators)
	}
}
