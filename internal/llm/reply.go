package llm

import (
	"encoding/json"
	"strings"
)

// Reply is the interpreted model output: either Structured or Unstructured.
type Reply interface {
	Text() string
	isReply()
}

// Structured holds the JSON object found in the reply.
type Structured struct {
	Raw    string
	Object json.RawMessage
}

// Unstructured is a reply with no decodable JSON object.
type Unstructured struct {
	Raw string
}

func (s Structured) Text() string { return s.Raw }
func (u Unstructured) Text() string { return u.Raw }
func (Structured) isReply() {}
func (Unstructured) isReply() {}

// Decode unmarshals the embedded object into v.
func (s Structured) Decode(v any) error {
	return json.Unmarshal(s.Object, v)
}

// Has reports whether the object carries a top-level key.
func (s Structured) Has(key string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(s.Object, &fields); err != nil {
		return false
	}
	_, ok := fields[key]
	return ok
}

// ParseReply locates a JSON object anywhere in text. It first tries the
// widest span, from the first '{' to the last '}', and then the first
// balanced span.
func ParseReply(text string) Reply {
	body := stripCodeFences(text)
	if obj, ok := widestObject(body); ok {
		return Structured{Raw: text, Object: obj}
	}
	if obj, ok := firstBalancedObject(body); ok {
		return Structured{Raw: text, Object: obj}
	}
	return Unstructured{Raw: strings.TrimSpace(text)}
}

func widestObject(s string) (json.RawMessage, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	return asObject(s[start : end+1])
}

func firstBalancedObject(s string) (json.RawMessage, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != '{' {
			continue
		}
		end := balancedEnd(s, start)
		if end < 0 {
			continue
		}
		if obj, ok := asObject(s[start : end+1]); ok {
			return obj, true
		}
	}
	return nil, false
}

// balancedEnd returns the index of the '}' closing the '{' at start, skipping
// braces inside JSON strings, or -1 when the span never closes.
func balancedEnd(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func asObject(candidate string) (json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return nil, false
	}
	return json.RawMessage(candidate), true
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
