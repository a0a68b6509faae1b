// Package patterns turns the agent's final answer into validated behavior
// patterns. The answer must contain a JSON document matching Schema;
// anything else is rejected instead of being guessed at.
package patterns

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Bahjat/page-agent/backend/internal/model"
)

// Actions a step may use.
var Actions = []string{"click", "scroll", "wait", "navigate", "type", "hover"}

var (
	// ErrNoDocument means the answer held no JSON object.
	ErrNoDocument = errors.New("answer does not contain a JSON object")
	// ErrSchemaMismatch means a JSON object was found but did not validate.
	ErrSchemaMismatch = errors.New("answer does not match the pattern schema")
)

// Schema is the JSON Schema of the document the model is asked to produce.
const Schema = `{
  "type": "object",
  "required": ["patterns"],
  "properties": {
    "patterns": {
      "type": "array",
      "minItems": 1,
      "maxItems": 10,
      "items": {
        "type": "object",
        "required": ["label", "steps"],
        "properties": {
          "label": {"type": "string", "minLength": 1},
          "expected_outcome": {"type": "string"},
          "steps": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["action"],
              "properties": {
                "action": {"enum": ["click", "scroll", "wait", "navigate", "type", "hover"]},
                "target": {"type": "string"},
                "value": {"type": "string"},
                "delay_ms": {"type": "integer", "minimum": 0, "maximum": 600000}
              }
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(Schema)

// ValidationError lists every schema violation found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSchemaMismatch, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrSchemaMismatch
}

type document struct {
	Patterns []model.Pattern `json:"patterns"`
}

// Parse finds the JSON document in answer, validates it against Schema, and
// decodes it. Candidates are tried in order: ```json fences, other fences,
// then objects in the surrounding text. The first candidate that satisfies
// Schema wins. The returned error is ErrNoDocument or a *ValidationError
// describing the most plausible candidate.
func Parse(answer string) ([]model.Pattern, error) {
	candidates := findDocuments(answer)
	if len(candidates) == 0 {
		return nil, ErrNoDocument
	}

	var firstErr, patternsErr error
	for _, raw := range candidates {
		found, err := decode(raw)
		if err == nil {
			return found, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if patternsErr == nil && hasPatternsKey(raw) {
			patternsErr = err
		}
	}
	if patternsErr != nil {
		return nil, patternsErr
	}
	return nil, firstErr
}

func decode(raw string) ([]model.Pattern, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDocument, err)
	}
	if !result.Valid() {
		problems := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			problems[i] = desc.String()
		}
		return nil, &ValidationError{Problems: problems}
	}

	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDocument, err)
	}
	return doc.Patterns, nil
}

func hasPatternsKey(raw string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return false
	}
	_, ok := fields["patterns"]
	return ok
}

// Problems flattens a Parse error into messages suitable for a response.
func Problems(err error) []string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Problems
	}
	if err != nil {
		return []string{err.Error()}
	}
	return nil
}

// findDocuments returns every JSON object in s, in the order Parse should
// try them. Duplicates found both inside a fence and in the full text are
// kept once.
func findDocuments(s string) []string {
	var tagged, plain []string
	for _, b := range fencedBlocks(s) {
		if strings.EqualFold(b.lang, "json") {
			tagged = append(tagged, b.body)
		} else {
			plain = append(plain, b.body)
		}
	}

	var out []string
	seen := make(map[string]bool)
	for _, src := range append(append(tagged, plain...), s) {
		for _, obj := range jsonObjects(src) {
			if !seen[obj] {
				seen[obj] = true
				out = append(out, obj)
			}
		}
	}
	return out
}

// jsonObjects returns the balanced {...} spans of s that are valid JSON.
// Scanning resumes after each object found, so nested objects are not
// reported on their own.
func jsonObjects(s string) []string {
	var out []string
	for start := strings.IndexByte(s, '{'); start >= 0; {
		from := start + 1
		if end, ok := matchBrace(s[start:]); ok {
			candidate := s[start : start+end+1]
			if json.Valid([]byte(candidate)) {
				out = append(out, candidate)
				from = start + end + 1
			}
		}
		next := strings.IndexByte(s[from:], '{')
		if next < 0 {
			break
		}
		start = from + next
	}
	return out
}

type fenced struct {
	lang string
	body string
}

// fencedBlocks returns the closed ``` blocks of s with their info strings.
func fencedBlocks(s string) []fenced {
	const fence = "```"
	var out []fenced
	for {
		open := strings.Index(s, fence)
		if open < 0 {
			return out
		}
		rest := s[open+len(fence):]
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			return out
		}
		lang := strings.TrimSpace(rest[:nl])
		rest = rest[nl+1:]
		end := strings.Index(rest, fence)
		if end < 0 {
			return out
		}
		out = append(out, fenced{lang: lang, body: rest[:end]})
		s = rest[end+len(fence):]
	}
}

// matchBrace returns the index of the brace closing s[0], skipping braces
// inside JSON strings.
func matchBrace(s string) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
