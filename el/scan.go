// Package el splits text into literal and expression-language parts and checks expression syntax.
//
// Expressions are written as ${body} for immediate and #{body} for deferred evaluation.
// A backslash before the opening sequence escapes it.
package el

import (
	"fmt"
	"strings"
)

// Segment is a piece of text which is either literal or a single expression.
type Segment struct {
	// Text is the unescaped literal text, or the expression source including its delimiters.
	Text string

	// Expr is true for expression segments.
	Expr bool

	// Deferred is true for expressions opened with "#{".
	Deferred bool

	// Offset is the byte offset of the segment in the scanned input.
	Offset int
}

// SyntaxError reports a malformed expression at a byte offset of the scanned input.
type SyntaxError struct {
	Offset int
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %v", e.Offset, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// IsStart reports whether s starts with an unescaped expression opener.
func IsStart(s string) bool {
	return len(s) >= 2 && (s[0] == '$' || s[0] == '#') && s[1] == '{'
}

// Contains reports whether s holds at least one unescaped expression opener.
func Contains(s string) bool {
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && IsStart(s[i+1:]):
			i += 2
		case IsStart(s[i:]):
			return true
		}
	}
	return false
}

// End returns the length of the expression starting at s, including the closing brace,
// or -1 if the expression is not terminated. s must start with "${" or "#{".
// Braces are balanced and quoted strings are skipped.
func End(s string) int {
	depth := 0
	var quote byte

	for i := 1; i < len(s); i++ {
		c := s[i]

		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '\'', '"':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}

	return -1
}

// Scan splits s into literal and expression segments. Adjacent literal pieces are merged
// and escaped openers are unescaped in literal text.
func Scan(s string) ([]Segment, error) {
	var (
		segs    []Segment
		lit     strings.Builder
		litFrom = -1
	)

	flush := func() {
		if litFrom >= 0 {
			segs = append(segs, Segment{Text: lit.String(), Offset: litFrom})
			lit.Reset()
			litFrom = -1
		}
	}

	for i := 0; i < len(s); {
		// 1. Escaped opener is literal text without the backslash.
		if s[i] == '\\' && IsStart(s[i+1:]) {
			if litFrom < 0 {
				litFrom = i
			}
			lit.WriteString(s[i+1 : i+3])
			i += 3
			continue
		}

		// 2. Expression runs up to its balanced closing brace.
		if IsStart(s[i:]) {
			n := End(s[i:])
			if n < 0 {
				return nil, &SyntaxError{Offset: i, Err: fmt.Errorf("unterminated %s", s[i:i+2])}
			}

			flush()
			segs = append(segs, Segment{Text: s[i : i+n], Expr: true, Deferred: s[i] == '#', Offset: i})
			i += n
			continue
		}

		// 3. Everything else is literal.
		if litFrom < 0 {
			litFrom = i
		}
		lit.WriteByte(s[i])
		i++
	}

	flush()
	return segs, nil
}

// Unescape returns s with escaped expression openers unescaped.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && IsStart(s[i+1:]) {
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
