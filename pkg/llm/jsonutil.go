package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no JSON object can be recovered from a model
// response by any strategy.
var ErrNoJSON = errors.New("no valid JSON object in LLM response")

// DecodeObject parses a model response into dst. Models occasionally violate
// JSON mode, so the decode is tolerant:
//
//  1. strict parse of the whole response
//  2. parse after stripping markdown code fences
//  3. parse the first balanced-brace substring
//
// All components parse model output through this helper so the fallback
// behavior stays uniform.
func DecodeObject(response string, dst any) error {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return ErrNoJSON
	}

	if err := json.Unmarshal([]byte(trimmed), dst); err == nil {
		return nil
	}

	if fenced := stripCodeFences(trimmed); fenced != "" {
		if err := json.Unmarshal([]byte(fenced), dst); err == nil {
			return nil
		}
	}

	if obj := firstBalancedObject(trimmed); obj != "" {
		if err := json.Unmarshal([]byte(obj), dst); err == nil {
			return nil
		}
	}

	return ErrNoJSON
}

// stripCodeFences extracts the body of the first ```-fenced block, dropping
// an optional language tag on the opening fence.
func stripCodeFences(s string) string {
	start := strings.Index(s, "```")
	if start == -1 {
		return ""
	}
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		// Opening fence may carry a language tag ("```json").
		firstLine := strings.TrimSpace(rest[:nl])
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "{}") {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:end])
}

// firstBalancedObject returns the first {...} substring with balanced braces,
// ignoring braces inside JSON strings.
func firstBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
