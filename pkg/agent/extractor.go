package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// StructuredAction is the decision recovered from the model's final answer:
// reply in chat, append to the open note, or create a new one.
type StructuredAction struct {
	Action   string `json:"action"`
	Message  string `json:"message"`
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

const (
	ActionChat   = "chat"
	ActionEdit   = "edit"
	ActionCreate = "create"
)

// ExtractStructuredAction recovers an action object from raw model output.
// Models pollute the JSON with LaTeX (\frac, \beta, \nabla ...) whose
// backslashes collide with JSON escape syntax, so parsing falls through a
// series of progressively more aggressive repair passes:
//
//  1. parse as-is
//  2. escape-repair pass, then reparse
//  3. strip a markdown code fence and retry 1-2 on the interior
//  4. take the outermost {...} span and retry 1-2 on it
//  5. string-aware walk doubling every lone backslash inside string values
//  6. per-field extraction by hand-walking string values
//
// The boolean is false when every tier fails; callers must then treat the
// raw text as a plain chat message.
func ExtractStructuredAction(text string) (*StructuredAction, bool) {
	text = strings.TrimSpace(text)

	if a, ok := tryParse(text); ok {
		return a, true
	}

	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		if a, ok := tryParse(strings.TrimSpace(m[1])); ok {
			return a, true
		}
	}

	candidate := text
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		candidate = text[start : end+1]
		if a, ok := tryParse(candidate); ok {
			return a, true
		}
	}

	if a, ok := parseAction(escapeBackslashesInStrings(candidate)); ok {
		return a, true
	}

	return extractFields(text)
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?[ \t]*\n(.*?)\n```")

func parseAction(text string) (*StructuredAction, bool) {
	var a StructuredAction
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		return nil, false
	}
	return &a, true
}

// tryParse attempts a direct parse, then a parse of the escape-repaired text.
func tryParse(text string) (*StructuredAction, bool) {
	if a, ok := parseAction(text); ok {
		return a, true
	}
	return parseAction(fixJSONEscapes(text))
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isLower(c byte) bool {
	return c >= 'a' && c <= 'z'
}

// fixJSONEscapes doubles backslashes that look like LaTeX rather than JSON
// escapes:
//
//   - \ before anything that is not a legal JSON escape character is doubled
//   - \b and \f followed by a letter are LaTeX (\beta, \frac), not
//     backspace/form-feed, and get doubled
//   - \n, \r, \t followed by a LOWERCASE letter are LaTeX (\nabla, \rho,
//     \text) — LaTeX command names are always lowercase, while a genuine
//     newline escape precedes uppercase or non-letter characters
func fixJSONEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			b.WriteString(`\\`)
			continue
		}
		next := s[i+1]
		switch {
		case next == '"' || next == '\\' || next == '/' || next == 'u':
			b.WriteByte('\\')
			b.WriteByte(next)
			i++
		case next == 'b' || next == 'f':
			if i+2 < len(s) && isLetter(s[i+2]) {
				b.WriteString(`\\`)
			} else {
				b.WriteByte('\\')
			}
			b.WriteByte(next)
			i++
		case next == 'n' || next == 'r' || next == 't':
			if i+2 < len(s) && isLower(s[i+2]) {
				b.WriteString(`\\`)
			} else {
				b.WriteByte('\\')
			}
			b.WriteByte(next)
			i++
		default:
			// Clearly invalid escape (\p, \a, \l, ...): double the
			// backslash, the following character stands alone.
			b.WriteString(`\\`)
		}
	}
	return b.String()
}

// escapeBackslashesInStrings is the nuclear fallback: it walks the text
// tracking whether the cursor is inside a quoted string and, inside strings,
// doubles any lone backslash that does not already form a legal JSON escape.
func escapeBackslashesInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' && (i == 0 || s[i-1] != '\\'):
			inString = !inString
			b.WriteByte(c)
		case inString && c == '\\':
			if i+1 < len(s) && strings.IndexByte(`"\/bfnrtu`, s[i+1]) >= 0 {
				b.WriteByte(c)
				b.WriteByte(s[i+1])
				i++
			} else {
				b.WriteString(`\\`)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// walkJSONString decodes a string value starting just after its opening
// quote, honoring the LaTeX ambiguity rules: \b and \f followed by a letter
// keep their backslash instead of decoding to backspace/form-feed, and
// unknown escapes pass through untouched. Returns the value and the index
// just past the closing quote.
func walkJSONString(s string, start int) (string, int) {
	var b strings.Builder
	i := start
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			next := s[i+1]
			switch {
			case next == '"':
				b.WriteByte('"')
			case next == '\\':
				b.WriteByte('\\')
			case next == '/':
				b.WriteByte('/')
			case next == 'n':
				b.WriteByte('\n')
			case next == 'r':
				b.WriteByte('\r')
			case next == 't':
				b.WriteByte('\t')
			case (next == 'b' || next == 'f') && i+2 < len(s) && isLetter(s[i+2]):
				// LaTeX (\beta, \frac) — keep the backslash + letter
				b.WriteByte('\\')
				b.WriteByte(next)
			case next == 'b':
				b.WriteByte('\b')
			case next == 'f':
				b.WriteByte('\f')
			default:
				// Unknown escape — keep as-is (LaTeX like \eta, \alpha)
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			i += 2
		case c == '"':
			return b.String(), i + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), i
}

var fieldRes = map[string]*regexp.Regexp{
	"action":   regexp.MustCompile(`"action"\s*:\s*"`),
	"message":  regexp.MustCompile(`"message"\s*:\s*"`),
	"filename": regexp.MustCompile(`"filename"\s*:\s*"`),
	"content":  regexp.MustCompile(`"content"\s*:\s*"`),
}

// extractFields is the last-resort tier: it locates each known field by name
// and hand-walks its string value. Succeeds only when both action and
// message were recovered.
func extractFields(text string) (*StructuredAction, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, false
	}
	text = text[start : end+1]

	fields := make(map[string]string, 4)
	for key, re := range fieldRes {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		value, _ := walkJSONString(text, loc[1])
		fields[key] = value
	}

	if _, ok := fields["action"]; !ok {
		return nil, false
	}
	if _, ok := fields["message"]; !ok {
		return nil, false
	}

	return &StructuredAction{
		Action:   fields["action"],
		Message:  fields["message"],
		Content:  fields["content"],
		Filename: fields["filename"],
	}, true
}
