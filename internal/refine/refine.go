// Package refine drives the validate/refine control loop that turns the
// oracle's first guess into a scored SelectorSet, under a bounded retry
// budget.
package refine

import (
	"context"
	"log"

	"github.com/azhovnerik/web-scraper-generator/internal/selectors"
	"github.com/azhovnerik/web-scraper-generator/internal/validate"
)

// State of the refinement loop. Accepted and Exhausted are terminal; the loop
// never revisits Initial.
type State int

const (
	StateInitial State = iota
	StateValidating
	StateRefining
	StateAccepted
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateValidating:
		return "validating"
	case StateRefining:
		return "refining"
	case StateAccepted:
		return "accepted"
	case StateExhausted:
		return "exhausted"
	}
	return "unknown"
}

// MergePolicy controls how a refinement reply is combined with the prior set.
type MergePolicy int

const (
	// ReplaceWholesale uses the refinement reply as-is, matching the
	// original behavior. A refine step can regress previously-working
	// fields when the oracle omits them.
	ReplaceWholesale MergePolicy = iota
	// KeepPrevious fills fields missing from the reply with the prior
	// version's values.
	KeepPrevious
)

// Refiner is the oracle capability invoked on a below-threshold set.
type Refiner interface {
	Refine(ctx context.Context, siteURL string, current selectors.Set, diagnostics validate.Result) (selectors.Set, error)
}

// ValidateFunc scores one SelectorSet version.
type ValidateFunc func(selectors.Set) validate.Result

// Loop holds the refinement budget and policy. Iterations are strictly
// sequential: each depends on the previous oracle call and validation.
type Loop struct {
	MaxRetries int
	Threshold  float64
	Policy     MergePolicy
}

// Outcome is the terminal result of a loop run. Exhausted outcomes still carry
// the last evaluated set: partial success is reported, not discarded.
type Outcome struct {
	State            State
	Set              selectors.Set
	Validation       validate.Result
	RetriesUsed      int
	ValidationPasses int
}

// Accepted reports whether the loop ended at or above the threshold.
func (o Outcome) Accepted() bool { return o.State == StateAccepted }

// Run evaluates the initial set and refines until the score passes the
// threshold or the retry budget is exhausted.
func (l *Loop) Run(ctx context.Context, siteURL string, initial selectors.Set, validateFn ValidateFunc, refiner Refiner) Outcome {
	threshold := l.Threshold
	if threshold <= 0 {
		threshold = validate.DefaultThreshold
	}

	outcome := Outcome{State: StateValidating, Set: initial}
	outcome.Validation = validateFn(initial)
	outcome.ValidationPasses++
	log.Printf("Validation score: %.2f", outcome.Validation.OverallScore)

	for !outcome.Validation.Acceptable(threshold) && outcome.RetriesUsed < l.MaxRetries {
		outcome.State = StateRefining
		log.Printf("Refining selectors (attempt %d/%d)...", outcome.RetriesUsed+1, l.MaxRetries)

		replacement, err := refiner.Refine(ctx, siteURL, outcome.Set, outcome.Validation)
		outcome.RetriesUsed++
		if err != nil {
			// A malformed refinement reply is a zero-quality set for
			// this attempt; the last evaluated set stands.
			log.Printf("Refinement attempt failed: %v", err)
			outcome.State = StateValidating
			continue
		}

		if l.Policy == KeepPrevious {
			replacement = replacement.MergeMissingFrom(outcome.Set)
		}

		outcome.Set = replacement
		outcome.State = StateValidating
		outcome.Validation = validateFn(replacement)
		outcome.ValidationPasses++
		log.Printf("New validation score: %.2f", outcome.Validation.OverallScore)
	}

	if outcome.Validation.Acceptable(threshold) {
		outcome.State = StateAccepted
	} else {
		outcome.State = StateExhausted
	}
	return outcome
}
