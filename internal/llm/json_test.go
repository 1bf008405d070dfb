package llm

import (
	"errors"
	"testing"
)

func TestExtractJSONBare(t *testing.T) {
	result, err := ExtractJSON(`{"title_selector": "h1.post-title", "num": 42}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["title_selector"] != "h1.post-title" {
		t.Errorf("expected title_selector='h1.post-title', got %v", result["title_selector"])
	}
	if result["num"] != float64(42) {
		t.Errorf("expected num=42, got %v", result["num"])
	}
}

func TestExtractJSONFenced(t *testing.T) {
	text := "Here are the selectors:\n```json\n{\"title_selector\": \"h1.post-title\"}\n```\nLet me know if they work."
	result, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["title_selector"] != "h1.post-title" {
		t.Errorf("expected title_selector='h1.post-title', got %v", result["title_selector"])
	}
}

func TestExtractJSONPlainFence(t *testing.T) {
	text := "```\n{\"title_selector\": \"h1.post-title\"}\n```"
	result, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["title_selector"] != "h1.post-title" {
		t.Errorf("expected title_selector='h1.post-title', got %v", result["title_selector"])
	}
}

func TestExtractJSONEmbeddedInProse(t *testing.T) {
	text := `Based on my analysis, the selectors are {"title_selector": "h1.post-title"} and they should work.`
	result, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["title_selector"] != "h1.post-title" {
		t.Errorf("expected title_selector='h1.post-title', got %v", result["title_selector"])
	}
}

// The three reply shapes must yield identical structured results.
func TestExtractJSONEquivalentForms(t *testing.T) {
	forms := []string{
		`{"a": "x", "b": "y"}`,
		"```json\n{\"a\": \"x\", \"b\": \"y\"}\n```",
		`The result is {"a": "x", "b": "y"} as requested.`,
	}

	for _, form := range forms {
		result, err := ExtractJSON(form)
		if err != nil {
			t.Fatalf("form %q: unexpected error: %v", form, err)
		}
		if result["a"] != "x" || result["b"] != "y" {
			t.Errorf("form %q: got %v", form, result)
		}
	}
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	text := `{"notes": "selector uses :not({weird}) syntax", "title_selector": "h1"}`
	result, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["title_selector"] != "h1" {
		t.Errorf("expected title_selector='h1', got %v", result["title_selector"])
	}
}

func TestExtractJSONMalformed(t *testing.T) {
	for _, text := range []string{"", "   ", "not json at all", "{broken"} {
		_, err := ExtractJSON(text)
		if err == nil {
			t.Fatalf("expected error for %q", text)
		}
		var malformed *MalformedReplyError
		if !errors.As(err, &malformed) {
			t.Errorf("expected MalformedReplyError for %q, got %T", text, err)
		}
	}
}
