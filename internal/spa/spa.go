// Package spa scores how likely a page is to be JavaScript-rendered. No
// single signal is reliable on its own; only the indicator count crossing the
// caller's threshold is actionable, and weak signals fail safe toward
// "scrape-able".
package spa

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Indicator tags returned by Detect.
const (
	IndicatorRootContainer  = "spa-root-container"
	IndicatorReact          = "react-framework"
	IndicatorVue            = "vue-framework"
	IndicatorAngular        = "angular-framework"
	IndicatorNext           = "nextjs-framework"
	IndicatorNuxt           = "nuxtjs-framework"
	IndicatorMinimalText    = "minimal-text-content"
	IndicatorScriptHeavy    = "script-heavy-few-links"
	IndicatorEmptyBodyShell = "empty-body-shell"
	IndicatorScriptRatio    = "high-script-text-ratio"
)

const (
	minTextChars     = 500
	shellTextChars   = 1000
	maxShellChildren = 2
	scriptTextRatio  = 10
)

// Detector interprets indicator counts. The generator and agent variants use
// different thresholds, so the count required for a rejection is a field, not
// a constant.
type Detector struct {
	MinIndicators int
}

// Check runs detection and applies the threshold. Zero indicators never yield
// a JS-rendered verdict.
func (d Detector) Check(html string) (indicators []string, jsRendered bool) {
	indicators = Detect(html)
	min := d.MinIndicators
	if min <= 0 {
		min = 3
	}
	return indicators, len(indicators) >= min
}

// Detect returns the list of matched SPA indicators, possibly empty. Unparsable
// input returns no indicators: false rejection wastes the whole downstream
// pipeline, so uncertainty counts as scrape-able.
func Detect(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	lower := strings.ToLower(html)
	var indicators []string

	if doc.Find("#root, #app, #__next, #__nuxt").Length() > 0 {
		indicators = append(indicators, IndicatorRootContainer)
	}

	if containsAny(lower, "data-reactroot", "react-dom", "react.production", "react.development", "reactdom") {
		indicators = append(indicators, IndicatorReact)
	}
	if containsAny(lower, "v-if=", "v-for=", "vue.js", "vue.min.js", "data-v-") {
		indicators = append(indicators, IndicatorVue)
	}
	if containsAny(lower, "ng-app", "ng-controller", "angular") {
		indicators = append(indicators, IndicatorAngular)
	}
	if containsAny(lower, "__next", "_next/static") {
		indicators = append(indicators, IndicatorNext)
	}
	if containsAny(lower, "__nuxt", "nuxt.js", "/_nuxt/") {
		indicators = append(indicators, IndicatorNuxt)
	}

	textLen := visibleTextLength(doc)
	if textLen < minTextChars {
		indicators = append(indicators, IndicatorMinimalText)
	}

	scriptCount := doc.Find("script").Length()
	linkCount := doc.Find("a[href]").Length()
	if scriptCount > 10 && linkCount < 20 {
		indicators = append(indicators, IndicatorScriptHeavy)
	}

	if doc.Find("body").Length() > 0 {
		children := doc.Find("body").Children().Length()
		if children <= maxShellChildren && textLen < shellTextChars {
			indicators = append(indicators, IndicatorEmptyBodyShell)
		}
	}

	scriptBytes := 0
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scriptBytes += len(s.Text())
	})
	if scriptBytes > scriptTextRatio*textLen && scriptBytes > 0 {
		indicators = append(indicators, IndicatorScriptRatio)
	}

	return indicators
}

// visibleTextLength measures page text after stripping script, style and
// noscript content.
func visibleTextLength(doc *goquery.Document) int {
	clone := doc.Selection.Clone()
	clone.Find("script, style, noscript").Remove()

	body := clone.Find("body")
	var text string
	if body.Length() > 0 {
		text = body.Text()
	} else {
		text = clone.Text()
	}
	return len(strings.TrimSpace(text))
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
