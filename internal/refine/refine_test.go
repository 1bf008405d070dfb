package refine

import (
	"context"
	"errors"
	"testing"

	"github.com/azhovnerik/web-scraper-generator/internal/selectors"
	"github.com/azhovnerik/web-scraper-generator/internal/validate"
)

type refinerFunc func(ctx context.Context, siteURL string, current selectors.Set, diag validate.Result) (selectors.Set, error)

func (f refinerFunc) Refine(ctx context.Context, siteURL string, current selectors.Set, diag validate.Result) (selectors.Set, error) {
	return f(ctx, siteURL, current, diag)
}

func scoreOf(score float64) validate.Result {
	r := validate.Result{OverallScore: score}
	if score > 0 {
		r.ArticleLinks = validate.LinkResult{Found: true, Count: 1}
	}
	return r
}

// With max_retries=2 and an oracle that always returns a below-threshold set,
// the loop performs exactly 3 validation passes and ends Exhausted.
func TestLoopTerminationExhausted(t *testing.T) {
	loop := &Loop{MaxRetries: 2, Threshold: 0.6}

	refines := 0
	refiner := refinerFunc(func(_ context.Context, _ string, _ selectors.Set, _ validate.Result) (selectors.Set, error) {
		refines++
		return selectors.Set{ArticleLinks: "a.bad"}, nil
	})

	validations := 0
	validateFn := func(selectors.Set) validate.Result {
		validations++
		return scoreOf(0.3)
	}

	outcome := loop.Run(context.Background(), "https://example.com", selectors.Set{ArticleLinks: "a.first"}, validateFn, refiner)

	if outcome.State != StateExhausted {
		t.Errorf("expected Exhausted, got %s", outcome.State)
	}
	if validations != 3 || outcome.ValidationPasses != 3 {
		t.Errorf("expected exactly 3 validation passes, got %d (reported %d)", validations, outcome.ValidationPasses)
	}
	if refines != 2 || outcome.RetriesUsed != 2 {
		t.Errorf("expected 2 refinements, got %d (reported %d)", refines, outcome.RetriesUsed)
	}
	if outcome.Set.ArticleLinks != "a.bad" {
		t.Errorf("exhausted outcome must keep the last evaluated set, got %+v", outcome.Set)
	}
	if outcome.Accepted() {
		t.Error("exhausted outcome must not report accepted")
	}
}

func TestLoopAcceptsInitialSet(t *testing.T) {
	loop := &Loop{MaxRetries: 2, Threshold: 0.6}

	refiner := refinerFunc(func(_ context.Context, _ string, _ selectors.Set, _ validate.Result) (selectors.Set, error) {
		t.Fatal("refiner must not be called when the initial set passes")
		return selectors.Set{}, nil
	})

	outcome := loop.Run(context.Background(), "https://example.com", selectors.Set{ArticleLinks: "a.good"},
		func(selectors.Set) validate.Result { return scoreOf(0.9) }, refiner)

	if outcome.State != StateAccepted || !outcome.Accepted() {
		t.Errorf("expected Accepted, got %s", outcome.State)
	}
	if outcome.RetriesUsed != 0 || outcome.ValidationPasses != 1 {
		t.Errorf("expected no retries and 1 pass, got %+v", outcome)
	}
}

func TestLoopAcceptsAfterRefinement(t *testing.T) {
	loop := &Loop{MaxRetries: 2, Threshold: 0.6}

	refiner := refinerFunc(func(_ context.Context, _ string, _ selectors.Set, _ validate.Result) (selectors.Set, error) {
		return selectors.Set{ArticleLinks: "a.fixed"}, nil
	})

	validateFn := func(s selectors.Set) validate.Result {
		if s.ArticleLinks == "a.fixed" {
			return scoreOf(0.8)
		}
		return scoreOf(0.2)
	}

	outcome := loop.Run(context.Background(), "https://example.com", selectors.Set{ArticleLinks: "a.broken"}, validateFn, refiner)

	if outcome.State != StateAccepted {
		t.Errorf("expected Accepted, got %s", outcome.State)
	}
	if outcome.RetriesUsed != 1 || outcome.ValidationPasses != 2 {
		t.Errorf("expected 1 retry / 2 passes, got %+v", outcome)
	}
}

// A malformed refinement reply consumes a retry but does not replace the set.
func TestLoopRefineFailureConsumesRetry(t *testing.T) {
	loop := &Loop{MaxRetries: 2, Threshold: 0.6}

	calls := 0
	refiner := refinerFunc(func(_ context.Context, _ string, _ selectors.Set, _ validate.Result) (selectors.Set, error) {
		calls++
		return selectors.Set{}, errors.New("no JSON object found in model reply")
	})

	validations := 0
	outcome := loop.Run(context.Background(), "https://example.com", selectors.Set{ArticleLinks: "a.first"},
		func(selectors.Set) validate.Result { validations++; return scoreOf(0.2) }, refiner)

	if outcome.State != StateExhausted {
		t.Errorf("expected Exhausted, got %s", outcome.State)
	}
	if calls != 2 {
		t.Errorf("expected both retries consumed, got %d", calls)
	}
	if validations != 1 {
		t.Errorf("failed refinements must not revalidate, got %d validations", validations)
	}
	if outcome.Set.ArticleLinks != "a.first" {
		t.Errorf("set must stay at last evaluated version, got %+v", outcome.Set)
	}
}

// Wholesale replacement can regress working fields; KeepPrevious retains them.
func TestLoopMergePolicies(t *testing.T) {
	initial := selectors.Set{ArticleLinks: "a.links", Title: "h1.works", Content: "div.works"}
	partial := selectors.Set{ArticleLinks: "a.better"}

	refiner := refinerFunc(func(_ context.Context, _ string, _ selectors.Set, _ validate.Result) (selectors.Set, error) {
		return partial, nil
	})
	alwaysLow := func(selectors.Set) validate.Result { return scoreOf(0.1) }

	replace := (&Loop{MaxRetries: 1, Threshold: 0.6, Policy: ReplaceWholesale}).
		Run(context.Background(), "u", initial, alwaysLow, refiner)
	if replace.Set.Title != "" {
		t.Errorf("wholesale policy must drop missing fields, got %+v", replace.Set)
	}

	keep := (&Loop{MaxRetries: 1, Threshold: 0.6, Policy: KeepPrevious}).
		Run(context.Background(), "u", initial, alwaysLow, refiner)
	if keep.Set.Title != "h1.works" || keep.Set.Content != "div.works" {
		t.Errorf("keep-previous policy must retain working fields, got %+v", keep.Set)
	}
	if keep.Set.ArticleLinks != "a.better" {
		t.Errorf("fields present in the reply must win, got %+v", keep.Set)
	}
}
