// CLAUDE:SUMMARY Splits selector strings on a delimiter byte or into compounds and combinators, ignoring brackets, parens and quotes.
// Package cssutil holds the low-level selector string helpers shared by the
// in-memory DOM and the selector path parser.
package cssutil

import "strings"

// SplitTopLevel splits s on every occurrence of sep that sits outside
// [...], (...) and quoted strings. Parts are returned untrimmed.
// A backslash escapes the next byte, as in CSS identifiers.
func SplitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// TrimAll trims surrounding whitespace from every part in place and returns it.
func TrimAll(parts []string) []string {
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// SplitCompounds splits a complex selector into its compound selectors and
// the combinators joining them: combinators[i] sits between compounds[i] and
// compounds[i+1] and is one of ' ', '>', '+' or '~'. Brackets, parens and
// quotes are skipped as in SplitTopLevel. ok is false when a combinator lacks
// a compound on either side or two combinators are adjacent.
func SplitCompounds(s string) (compounds []string, combinators []byte, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil, false
	}
	depth := 0
	var quote byte
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && isCombinator(c):
			if i == start {
				return nil, nil, false
			}
			compounds = append(compounds, s[start:i])
			comb := byte(' ')
			j := i
			for ; j < len(s) && isCombinator(s[j]); j++ {
				if isSpace(s[j]) {
					continue
				}
				if comb != ' ' {
					return nil, nil, false
				}
				comb = s[j]
			}
			if j == len(s) {
				return nil, nil, false
			}
			combinators = append(combinators, comb)
			start = j
			i = j - 1
		}
	}
	return append(compounds, s[start:]), combinators, true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isCombinator(c byte) bool {
	return isSpace(c) || c == '>' || c == '+' || c == '~'
}
