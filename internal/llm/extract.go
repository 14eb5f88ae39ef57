// Package llm - extract.go recovers a JSON object from free-form model output.
package llm

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	// excerptLength is how much of a failed response is kept for diagnostics
	excerptLength = 500
	// windowRadius is the number of bytes kept on each side of a parse error
	windowRadius = 100
)

// Strategy is one recovery tier. Candidate returns the text to parse and the byte
// offset of that text inside the original response (-1 when it is not a verbatim slice).
type Strategy struct {
	Name      string
	Candidate func(text string) (candidate string, start int, ok bool)
}

// Extraction is the result of a successful recovery.
type Extraction struct {
	JSON     string
	Strategy string
}

// DefaultStrategies are tried in order; the first candidate that parses wins.
var DefaultStrategies = []Strategy{
	{Name: "strip_fences", Candidate: stripFences},
	{Name: "balanced_object", Candidate: balancedObject},
	{Name: "close_truncated", Candidate: closeTruncated},
	{Name: "first_to_last", Candidate: firstToLast},
}

// ExtractJSON returns a JSON object recovered from model output, or a *MalformedResponseError.
func ExtractJSON(text string) (string, error) {
	ext, err := Extract(text, DefaultStrategies...)
	if err != nil {
		return "", err
	}
	return ext.JSON, nil
}

// Extract runs the given strategies in order and stops at the first parseable candidate.
func Extract(text string, strategies ...Strategy) (*Extraction, error) {
	offset := -1
	var lastErr error
	tried := make(map[string]bool, len(strategies))

	for _, s := range strategies {
		candidate, start, ok := s.Candidate(text)
		if !ok || tried[candidate] {
			continue
		}
		tried[candidate] = true

		err := parseObject(candidate)
		if err == nil {
			return &Extraction{JSON: candidate, Strategy: s.Name}, nil
		}
		lastErr = err

		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) && start >= 0 {
			if pos := start + int(syntaxErr.Offset); pos <= len(text) {
				offset = pos
			}
		}
	}

	return nil, newMalformedResponseError(text, offset, lastErr)
}

func newMalformedResponseError(text string, offset int, cause error) *MalformedResponseError {
	e := &MalformedResponseError{
		Length:  len(text),
		Excerpt: truncate(text, excerptLength),
		Offset:  offset,
		Cause:   cause,
	}
	if offset >= 0 {
		lo := runeStart(text, max(0, offset-windowRadius))
		hi := runeEnd(text, min(len(text), offset+windowRadius))
		e.Window = text[lo:hi]
	}
	return e
}

// parseObject succeeds only for a complete JSON object
func parseObject(candidate string) error {
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(candidate), &obj)
}

// stripFences removes a leading ``` marker (optionally tagged json or markdown) and a trailing one.
func stripFences(text string) (string, int, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", -1, false
	}
	body := trimmed
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```")
		for _, tag := range []string{"json", "JSON", "markdown"} {
			if strings.HasPrefix(body, tag) {
				body = strings.TrimPrefix(body, tag)
				break
			}
		}
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
		body = strings.TrimSpace(body)
	}
	return body, strings.Index(text, body), true
}

// balancedObject returns the first complete {...} span.
func balancedObject(text string) (string, int, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", -1, false
	}
	end, _ := scanObject(text[start:])
	if end < 0 {
		return "", -1, false
	}
	return text[start : start+end+1], start, true
}

// closeTruncated closes an object that never reached depth zero.
func closeTruncated(text string) (string, int, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", -1, false
	}
	body := text[start:]
	end, open := scanObject(body)
	if end >= 0 {
		return "", -1, false
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(body, " \t\r\n"))
	if open.inString {
		sb.WriteByte('"')
	}
	candidate := strings.TrimRight(sb.String(), " \t\r\n")
	candidate = strings.TrimSuffix(candidate, ",")

	sb.Reset()
	sb.WriteString(candidate)
	for i := len(open.stack) - 1; i >= 0; i-- {
		if open.stack[i] == '[' {
			sb.WriteByte(']')
		} else {
			sb.WriteByte('}')
		}
	}
	return sb.String(), start, true
}

// firstToLast returns the verbatim span from the first { to the last }.
func firstToLast(text string) (string, int, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", -1, false
	}
	return text[start : end+1], start, true
}

type openState struct {
	stack    []byte
	inString bool
}

// scanObject walks s, which starts with '{', and returns the index of the brace that
// closes it. Braces inside string literals are ignored. When the object never closes
// it returns -1 and the still-open brackets.
func scanObject(s string) (int, openState) {
	var st openState
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if st.inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				st.inString = false
			}
			continue
		}
		switch c {
		case '"':
			st.inString = true
		case '{', '[':
			st.stack = append(st.stack, c)
		case '}', ']':
			if len(st.stack) > 0 {
				st.stack = st.stack[:len(st.stack)-1]
			}
			if len(st.stack) == 0 {
				return i, st
			}
		}
	}
	return -1, st
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:runeStart(s, n)]
}

// runeStart moves i back to the first byte of the rune containing it
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// runeEnd moves i forward past the rune containing it
func runeEnd(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}
