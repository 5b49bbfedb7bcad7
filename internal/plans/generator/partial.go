package generator

import (
	"encoding/json"
	"strings"
)

type frame struct {
	object    bool
	expectKey bool
}

// repairPartial turns a truncated JSON document into the longest valid prefix
// with its open strings, arrays and objects closed. Dangling keys, trailing
// commas and unfinished literals are dropped.
func repairPartial(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}
	s = s[start:]

	var (
		stack       []frame
		inString    bool
		stringIsKey bool
		escape      bool
		inLiteral   bool
		safeLen     int
		safeClose   string
	)

	closers := func() string {
		var b strings.Builder
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].object {
				b.WriteByte('}')
			} else {
				b.WriteByte(']')
			}
		}
		return b.String()
	}
	markSafe := func(n int) {
		safeLen = n
		safeClose = closers()
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				inString = false
				if !stringIsKey {
					markSafe(i + 1)
				}
			}
			continue
		}

		if inLiteral {
			switch c {
			case ',', '}', ']', ' ', '\n', '\r', '\t':
				inLiteral = false
				markSafe(i)
			default:
				continue
			}
		}

		switch c {
		case '{':
			stack = append(stack, frame{object: true, expectKey: true})
			markSafe(i + 1)
		case '[':
			stack = append(stack, frame{})
			markSafe(i + 1)
		case '}', ']':
			if len(stack) == 0 {
				return finish(s, safeLen, safeClose)
			}
			stack = stack[:len(stack)-1]
			markSafe(i + 1)
			if len(stack) == 0 {
				return s[:i+1], json.Valid([]byte(s[:i+1]))
			}
		case '"':
			inString = true
			stringIsKey = len(stack) > 0 && stack[len(stack)-1].object && stack[len(stack)-1].expectKey
		case ':':
			if len(stack) > 0 {
				stack[len(stack)-1].expectKey = false
			}
		case ',':
			if len(stack) > 0 && stack[len(stack)-1].object {
				stack[len(stack)-1].expectKey = true
			}
		case ' ', '\n', '\r', '\t':
		default:
			inLiteral = true
		}
	}

	if inString && !stringIsKey {
		body := s
		if escape {
			body = body[:len(body)-1]
		}
		body = trimPartialUnicode(body)
		if candidate := body + `"` + closers(); json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return finish(s, safeLen, safeClose)
}

func finish(s string, n int, closers string) (string, bool) {
	if n == 0 {
		return "", false
	}
	out := s[:n] + closers
	return out, json.Valid([]byte(out))
}

// trimPartialUnicode drops an unfinished \uXXXX escape at the end of s.
func trimPartialUnicode(s string) string {
	for k := 1; k <= 5 && k <= len(s); k++ {
		tail := s[len(s)-k:]
		if strings.HasPrefix(tail, `\u`) && len(tail) < 6 {
			// Count the backslashes in front to be sure this one is not escaped.
			bs := 0
			for j := len(s) - k - 1; j >= 0 && s[j] == '\\'; j-- {
				bs++
			}
			if bs%2 == 0 {
				return s[:len(s)-k]
			}
		}
	}
	return s
}

// extractObject strips code fences or chatter around the first JSON object.
func extractObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(raw)
	}
	return raw[start : end+1]
}
