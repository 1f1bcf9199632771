package llm

import (
	"fmt"
	"strings"
)

// StripFences removes a leading/trailing markdown code fence from a
// model reply. Models wrap JSON in fences regardless of instructions.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		// drop the opening fence line, including any language tag
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the first balanced {...} region in the
// reply, tolerating prose before and after it.
func ExtractJSONObject(s string) (string, error) {
	return extractBalanced(StripFences(s), '{', '}')
}

// ExtractJSONArray returns the first balanced [...] region in the
// reply, tolerating prose before and after it.
func ExtractJSONArray(s string) (string, error) {
	return extractBalanced(StripFences(s), '[', ']')
}

func extractBalanced(s string, open, close byte) (string, error) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", fmt.Errorf("no %q found in model reply", string(open))
	}

	depth := 0
	inString := false
	escaped := false
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced %q in model reply", string(open))
}
