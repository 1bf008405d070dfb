package analyze

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// AnalyzeLocal analyzes a pre-fetched HTML directory tree instead of a remote
// site. It walks the tree for HTML files, explicitly excluding the root index
// document so the homepage is never treated as an article sample.
func AnalyzeLocal(dir string, sampleCount int) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory not found: %s", dir)
	}

	if sampleCount <= 0 {
		sampleCount = 3
	}

	files, err := FindLocalHTMLFiles(dir)
	if err != nil {
		return nil, err
	}

	result := &Result{
		BaseURL:       dir,
		Domain:        "local",
		CandidateURLs: files,
	}

	rootIndex := filepath.Join(dir, "index.html")
	if data, err := os.ReadFile(rootIndex); err == nil {
		result.HomepageHTML = string(data)
	}

	for _, file := range files {
		if len(result.Samples) >= sampleCount {
			break
		}
		log.Printf("Reading file: %s", filepath.Base(file))
		data, err := os.ReadFile(file)
		if err != nil {
			log.Printf("Skipping %s: %v", file, err)
			continue
		}
		result.Samples = append(result.Samples, Sample{URL: file, HTML: string(data)})
	}

	// No root index: fall back to the first sample as the listing page so
	// link validation still has something to work against.
	if result.HomepageHTML == "" && len(result.Samples) > 0 {
		result.HomepageHTML = result.Samples[0].HTML
	}

	if len(result.Samples) == 0 {
		return nil, &NoArticlesError{URL: dir}
	}

	return result, nil
}

// FindLocalHTMLFiles returns all .html files under dir except the root
// index.html, in walk order.
func FindLocalHTMLFiles(dir string) ([]string, error) {
	rootIndex, err := filepath.Abs(filepath.Join(dir, "index.html"))
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".html") {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		if abs == rootIndex {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return files, nil
}
