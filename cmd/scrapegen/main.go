package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/azhovnerik/web-scraper-generator/internal/config"
	"github.com/azhovnerik/web-scraper-generator/internal/database"
	"github.com/azhovnerik/web-scraper-generator/internal/fetch"
	"github.com/azhovnerik/web-scraper-generator/internal/generate"
	"github.com/azhovnerik/web-scraper-generator/internal/report"
	"github.com/azhovnerik/web-scraper-generator/internal/scrape"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "scrapegen",
	Short:   "Generate site-specific web scrapers",
	Long:    "Scrapegen analyzes a site's structure, infers CSS selectors with an LLM, validates them against real pages, and emits a standalone Go scraper.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(runScraperCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(reportCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("scrapegen", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/scrapegen/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the LLM provider and generator options.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show registry and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Scrapers:")
		fmt.Printf("  Total generated: %d\n", stats.Total)
		fmt.Printf("  Accepted: %d\n", stats.Accepted)
		fmt.Printf("  Average score: %.2f\n", stats.AvgScore)
		fmt.Printf("\nOutput directory: %s\n", cfg.Generator.OutputDir)
		fmt.Printf("Database: %s\n", db.Path())
		return nil
	},
}

// --- generate command ---

var (
	generateURL     string
	generateLocal   string
	generateOutput  string
	generateRetries int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a scraper for one site",
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateURL == "" && generateLocal == "" {
			return fmt.Errorf("either --url or --local is required")
		}
		if generateOutput != "" {
			cfg.Generator.OutputDir = generateOutput
		}
		if cmd.Flags().Changed("max-retries") {
			cfg.Generator.MaxRetries = generateRetries
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		gen, err := generate.New(cfg, db)
		if err != nil {
			return err
		}
		ctx := context.Background()

		var outcome *generate.Outcome
		if generateLocal != "" {
			outcome, err = gen.GenerateLocal(ctx, generateLocal)
		} else {
			outcome, err = gen.Generate(ctx, generateURL)
		}
		if err != nil {
			return fmt.Errorf("%s", generate.Explain(err))
		}

		fmt.Println("\nGeneration complete:")
		fmt.Printf("  State: %s\n", outcome.State)
		fmt.Printf("  Validation score: %.2f\n", outcome.Score)
		fmt.Printf("  Refinement retries: %d\n", outcome.RetriesUsed)
		fmt.Printf("  Scraper: %s\n", outcome.ScraperPath)
		fmt.Printf("  Metadata: %s\n", outcome.MetadataPath)
		if !outcome.Accepted() {
			fmt.Println("\nScore is below the acceptance threshold; the emitted scraper may need manual fixes.")
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateURL, "url", "u", "", "Site URL to generate a scraper for")
	generateCmd.Flags().StringVarP(&generateLocal, "local", "l", "", "Local HTML directory to analyze instead of a live site")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Override output directory")
	generateCmd.Flags().IntVar(&generateRetries, "max-retries", 0, "Override refinement retry budget")
}

// --- batch command ---

var batchCmd = &cobra.Command{
	Use:   "batch [file|urls...]",
	Short: "Generate scrapers for a list of sites",
	Long:  "Takes either a file of site URLs (one per line, # comments skipped) or URLs directly as arguments. Writes generation_report.{json,md,html} into the output directory.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		urls := args
		if len(args) == 1 && !strings.Contains(args[0], "://") {
			var err error
			urls, err = readURLList(args[0])
			if err != nil {
				return err
			}
		}
		if len(urls) == 0 {
			return fmt.Errorf("no URLs found in %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		gen, err := generate.New(cfg, db)
		if err != nil {
			return err
		}
		rep, err := gen.GenerateBatch(context.Background(), urls)
		if err != nil {
			return err
		}

		fmt.Printf("\nBatch complete: %d/%d accepted\n", rep.Successful(), len(rep.Results))
		return nil
	},
}

func readURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening URL list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

// --- run command ---

var (
	runMaxArticles int
	runOutput      string
)

var runScraperCmd = &cobra.Command{
	Use:   "run [site-url]",
	Short: "Run a previously generated scraper against the live site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		siteURL := args[0]

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		row, err := db.GetScraper(siteURL)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("no scraper registered for %s; run 'scrapegen generate --url %s' first", siteURL, siteURL)
		}

		scraper := &scrape.Scraper{
			Fetcher:     fetch.NewClient(cfg.RequestTimeout(), cfg.PolitenessDelay()),
			Set:         row.Selectors,
			BaseURL:     siteURL,
			MaxArticles: runMaxArticles,
			Readability: true,
		}

		articles, err := scraper.Run(context.Background())
		if err != nil {
			return fmt.Errorf("%s", generate.Explain(err))
		}

		raw, err := json.MarshalIndent(articles, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding articles: %w", err)
		}

		if runOutput != "" {
			if err := os.WriteFile(runOutput, raw, 0o644); err != nil {
				return fmt.Errorf("writing articles: %w", err)
			}
			fmt.Printf("Scraped %d articles to %s\n", len(articles), runOutput)
			return nil
		}

		fmt.Println(string(raw))
		return nil
	},
}

func init() {
	runScraperCmd.Flags().IntVar(&runMaxArticles, "max-articles", 100, "Maximum number of articles to scrape")
	runScraperCmd.Flags().StringVarP(&runOutput, "output", "o", "", "Write scraped articles to a JSON file instead of stdout")
}

// --- list command ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated scrapers",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		scrapers, err := db.ListScrapers()
		if err != nil {
			return err
		}
		if len(scrapers) == 0 {
			fmt.Println("No scrapers generated yet. Run: scrapegen generate --url <site>")
			return nil
		}

		fmt.Println("Generated scrapers:")
		fmt.Println()
		for _, s := range scrapers {
			marker := " "
			if s.State == "accepted" {
				marker = "*"
			}
			fmt.Printf("  %s %s\n", marker, s.SiteURL)
			fmt.Printf("      score %.2f, state %s, retries %d\n", s.Score, s.State, s.RetriesUsed)
			if s.OutputFile != "" {
				fmt.Printf("      file: %s\n", filepath.Join(cfg.Generator.OutputDir, s.OutputFile))
			}
		}
		return nil
	},
}

// --- report command ---

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rebuild the generation report from the registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		scrapers, err := db.ListScrapers()
		if err != nil {
			return err
		}
		if len(scrapers) == 0 {
			return fmt.Errorf("registry is empty; nothing to report")
		}

		rep := &report.Report{GeneratedAt: time.Now()}
		for _, s := range scrapers {
			rep.Results = append(rep.Results, report.SiteResult{
				SiteURL:     s.SiteURL,
				Success:     s.State == "accepted",
				State:       s.State,
				Score:       s.Score,
				RetriesUsed: s.RetriesUsed,
				OutputFile:  s.OutputFile,
			})
		}

		path, err := rep.Write(cfg.Generator.OutputDir)
		if err != nil {
			return err
		}
		fmt.Printf("Report written: %s (%d/%d accepted)\n", path, rep.Successful(), len(rep.Results))
		return nil
	},
}

func openDB() (*database.DB, error) {
	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, "scrapegen.db"))
}
