// Package generate orchestrates the full pipeline: site analysis, selector
// inference, the validation/refinement loop, scraper emission and run
// registration.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/azhovnerik/web-scraper-generator/internal/analyze"
	"github.com/azhovnerik/web-scraper-generator/internal/config"
	"github.com/azhovnerik/web-scraper-generator/internal/database"
	"github.com/azhovnerik/web-scraper-generator/internal/emit"
	"github.com/azhovnerik/web-scraper-generator/internal/fetch"
	"github.com/azhovnerik/web-scraper-generator/internal/llm"
	"github.com/azhovnerik/web-scraper-generator/internal/oracle"
	"github.com/azhovnerik/web-scraper-generator/internal/refine"
	"github.com/azhovnerik/web-scraper-generator/internal/report"
	"github.com/azhovnerik/web-scraper-generator/internal/selectors"
	"github.com/azhovnerik/web-scraper-generator/internal/spa"
	"github.com/azhovnerik/web-scraper-generator/internal/validate"
)

// Outcome is the result of one generation run.
type Outcome struct {
	SiteURL          string
	State            refine.State
	Score            float64
	RetriesUsed      int
	ValidationPasses int
	Set              selectors.Set
	Validation       validate.Result
	ScraperPath      string
	MetadataPath     string
}

// Accepted reports whether the run ended at or above the score threshold.
func (o *Outcome) Accepted() bool { return o.State == refine.StateAccepted }

// Generator runs the pipeline. DB is optional; without it runs are not
// registered.
type Generator struct {
	Config   *config.Config
	Provider llm.Provider
	DB       *database.DB

	fetcher *fetch.Client
	oracle  *oracle.Client
}

// New builds a Generator from config. The LLM provider is resolved through
// the configured fallback chain.
func New(cfg *config.Config, db *database.DB) (*Generator, error) {
	provider := llm.CreateProvider(
		cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.BaseURL, cfg.LLM.APIKeyEnv,
		cfg.LLM.OllamaModel, cfg.LLM.OllamaURL, cfg.LLM.Temperature,
	)
	if provider == nil {
		return nil, fmt.Errorf("no LLM provider available; set %s or start Ollama", cfg.LLM.APIKeyEnv)
	}
	return NewWithProvider(cfg, provider, db), nil
}

// NewWithProvider builds a Generator with an explicit provider. Used by tests
// and callers that manage provider selection themselves.
func NewWithProvider(cfg *config.Config, provider llm.Provider, db *database.DB) *Generator {
	return &Generator{
		Config:   cfg,
		Provider: provider,
		DB:       db,
		fetcher:  fetch.NewClient(cfg.RequestTimeout(), cfg.PolitenessDelay()),
		oracle:   oracle.New(provider),
	}
}

// Generate produces a scraper for siteURL.
func (g *Generator) Generate(ctx context.Context, siteURL string) (*Outcome, error) {
	log.Printf("Generating scraper for: %s", siteURL)

	// Oracle-assisted discovery fetches more samples so date/author
	// inference has enough signal.
	sampleCount := g.Config.Generator.SampleCount
	if g.Config.Generator.Discovery == "oracle" {
		sampleCount = g.Config.Generator.OracleSampleCount
	}

	analyzer := &analyze.Analyzer{
		Fetcher:     g.fetcher,
		Detector:    spa.Detector{MinIndicators: g.Config.Generator.SPAMinIndicators},
		Discoverer:  g.discoverer(),
		SampleCount: sampleCount,
	}

	analysis, err := analyzer.AnalyzeSite(ctx, siteURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Found %d article samples", analysis.SampleCount())

	return g.generateFrom(ctx, siteURL, analysis)
}

// GenerateLocal produces a scraper from a pre-fetched HTML directory tree.
func (g *Generator) GenerateLocal(ctx context.Context, dir string) (*Outcome, error) {
	log.Printf("Generating scraper from local tree: %s", dir)

	analysis, err := analyze.AnalyzeLocal(dir, g.Config.Generator.SampleCount)
	if err != nil {
		return nil, err
	}
	log.Printf("Found %d article samples", analysis.SampleCount())

	return g.generateFrom(ctx, "http://localhost/", analysis)
}

func (g *Generator) generateFrom(ctx context.Context, siteURL string, analysis *analyze.Result) (*Outcome, error) {
	log.Println("Inferring CSS selectors...")
	initial, err := g.oracle.InferSelectors(ctx, siteURL, analysis.HomepageHTML, analysis.Samples)
	if err != nil {
		return nil, err
	}

	loop := &refine.Loop{
		MaxRetries: g.Config.Generator.MaxRetries,
		Threshold:  g.Config.Generator.ScoreThreshold,
		Policy:     mergePolicy(g.Config.Generator.MergePolicy),
	}
	validateFn := func(set selectors.Set) validate.Result {
		return validate.Validate(set, analysis.ListingOrHomepage(), analysis.Samples)
	}

	result := loop.Run(ctx, siteURL, initial, validateFn, oracleRefiner{g.oracle})

	outcome := &Outcome{
		SiteURL:          siteURL,
		State:            result.State,
		Score:            result.Validation.OverallScore,
		RetriesUsed:      result.RetriesUsed,
		ValidationPasses: result.ValidationPasses,
		Set:              result.Set,
		Validation:       result.Validation,
	}

	emitter := &emit.Emitter{OutputDir: g.Config.Generator.OutputDir}
	emitted, err := emitter.Emit(siteURL, result.Set, result.Validation)
	if err != nil {
		return nil, err
	}
	outcome.ScraperPath = emitted.ScraperPath
	outcome.MetadataPath = emitted.MetadataPath
	log.Printf("Scraper saved to: %s (score %.2f, %s)", emitted.ScraperPath, outcome.Score, outcome.State)

	if g.DB != nil {
		err := g.DB.RecordRun(siteURL, domainOf(siteURL), emit.Filename(siteURL),
			result.Set, outcome.Score, result.State.String(), result.RetriesUsed)
		if err != nil {
			log.Printf("Failed to record run: %v", err)
		}
	}

	return outcome, nil
}

// GenerateBatch processes sites in input order and writes the report files
// into the output directory. Per-site failures are captured, not fatal.
func (g *Generator) GenerateBatch(ctx context.Context, siteURLs []string) (*report.Report, error) {
	rep := &report.Report{GeneratedAt: time.Now()}

	for i, siteURL := range siteURLs {
		log.Printf("Processing site %d/%d: %s", i+1, len(siteURLs), siteURL)

		outcome, err := g.Generate(ctx, siteURL)
		if err != nil {
			rep.Results = append(rep.Results, report.SiteResult{
				SiteURL: siteURL,
				Error:   Explain(err),
			})
			continue
		}
		rep.Results = append(rep.Results, report.SiteResult{
			SiteURL:     siteURL,
			Success:     outcome.Accepted(),
			State:       outcome.State.String(),
			Score:       outcome.Score,
			RetriesUsed: outcome.RetriesUsed,
			OutputFile:  emit.Filename(siteURL),
		})
	}

	path, err := rep.Write(g.Config.Generator.OutputDir)
	if err != nil {
		return rep, err
	}
	log.Printf("Report saved to: %s (success %d/%d)", path, rep.Successful(), len(rep.Results))
	return rep, nil
}

// discoverer picks the discovery strategy. Oracle-assisted discovery still
// falls back to heuristics when the model reply is unusable.
func (g *Generator) discoverer() analyze.Discoverer {
	heuristic := &analyze.Heuristic{Fetcher: g.fetcher}
	if g.Config.Generator.Discovery == "oracle" {
		return &analyze.OracleAssisted{Finder: g.oracle, Fallback: heuristic}
	}
	return heuristic
}

// oracleRefiner adapts the oracle client to the refinement loop.
type oracleRefiner struct {
	client *oracle.Client
}

func (r oracleRefiner) Refine(ctx context.Context, siteURL string, current selectors.Set, diagnostics validate.Result) (selectors.Set, error) {
	return r.client.RefineSelectors(ctx, siteURL, current, diagnostics)
}

func mergePolicy(name string) refine.MergePolicy {
	if name == "keep_previous" {
		return refine.KeepPrevious
	}
	return refine.ReplaceWholesale
}

func domainOf(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return siteURL
	}
	return u.Host
}

// Explain maps pipeline errors to operator-facing messages. Typed errors get
// actionable advice; everything else passes through unchanged.
func Explain(err error) string {
	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		if fetchErr.StatusCode != 0 {
			return fmt.Sprintf("failed to fetch %s (HTTP %d); check the URL and try again later", fetchErr.URL, fetchErr.StatusCode)
		}
		return fmt.Sprintf("failed to fetch %s: %v", fetchErr.URL, fetchErr.Err)
	}

	var jsErr *analyze.JSRenderedError
	if errors.As(err, &jsErr) {
		return jsErr.Error()
	}

	var noArticles *analyze.NoArticlesError
	if errors.As(err, &noArticles) {
		return noArticles.Error()
	}

	var malformed *llm.MalformedReplyError
	if errors.As(err, &malformed) {
		return fmt.Sprintf("the model returned an unusable reply (%v); try again or switch models", malformed)
	}

	return err.Error()
}
