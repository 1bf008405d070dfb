package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MalformedReplyError reports a model reply from which no JSON object could be
// extracted. Raw carries the full reply for diagnostics.
type MalformedReplyError struct {
	Raw string
}

func (e *MalformedReplyError) Error() string {
	preview := e.Raw
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return fmt.Sprintf("no JSON object found in model reply: %q", preview)
}

// ExtractJSON locates and parses the first well-formed JSON object embedded in
// free-form model output. Strategies, in order: a ```json fenced block, any
// fenced block, then a bracket-matching scan over the raw text. Returns a
// *MalformedReplyError when none of them yield a parsable object.
func ExtractJSON(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &MalformedReplyError{Raw: text}
	}

	for _, candidate := range jsonCandidates(trimmed) {
		var result map[string]any
		if err := json.Unmarshal([]byte(candidate), &result); err == nil {
			return result, nil
		}
	}

	return nil, &MalformedReplyError{Raw: text}
}

// ExtractJSONArray locates and parses the first well-formed JSON array in
// free-form model output, using the same progressively looser strategies as
// ExtractJSON.
func ExtractJSONArray(text string) ([]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &MalformedReplyError{Raw: text}
	}

	candidates := []string{}
	if block, ok := fencedBlock(trimmed, "```json"); ok {
		candidates = append(candidates, block)
	}
	if block, ok := fencedBlock(trimmed, "```"); ok {
		candidates = append(candidates, block)
	}
	if arr, ok := balancedDelimited(trimmed, '[', ']'); ok {
		candidates = append(candidates, arr)
	}

	for _, candidate := range candidates {
		var result []any
		if err := json.Unmarshal([]byte(candidate), &result); err == nil {
			return result, nil
		}
	}

	return nil, &MalformedReplyError{Raw: text}
}

// jsonCandidates yields substrings likely to be the embedded JSON object,
// loosest strategy last.
func jsonCandidates(text string) []string {
	var candidates []string

	if block, ok := fencedBlock(text, "```json"); ok {
		candidates = append(candidates, block)
	}
	if block, ok := fencedBlock(text, "```"); ok {
		candidates = append(candidates, block)
	}
	if obj, ok := balancedObject(text); ok {
		candidates = append(candidates, obj)
	}

	return candidates
}

// fencedBlock returns the content of the first code fence opened by marker.
func fencedBlock(text, marker string) (string, bool) {
	start := strings.Index(text, marker)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(marker):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// balancedObject scans for the first balanced {...} substring.
func balancedObject(text string) (string, bool) {
	return balancedDelimited(text, '{', '}')
}

// balancedDelimited scans for the first balanced open...close substring,
// tracking string literals so delimiters inside selector values don't break
// the match.
func balancedDelimited(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
