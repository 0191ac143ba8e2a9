// Package reader implements a positioned, stackable character stream over page sources.
//
// Included files are pushed on top of the current source and popped back when they are
// exhausted; [Mark] values taken in any source stay valid across pushes and pops.
package reader

import (
	"errors"
	"fmt"
	"strings"
)

// EOF is returned by [Reader.Peek] and [Reader.Next] at the end of the current source.
const EOF rune = -1

// ErrCircularInclude is returned by [Reader.PushSource] when the pushed source is already on the stack.
var ErrCircularInclude = errors.New("circular include")

// Reader is a cursor over a stack of sources.
// The zero value is not usable, create Readers with [New].
type Reader struct {
	cur   frame
	outer *stackNode
}

// New creates a Reader positioned at the start of content, reported under name.
func New(name, content string) *Reader {
	return &Reader{
		cur: frame{src: &source{name: name, data: content}, line: 1, col: 1},
	}
}

// Mark returns the current position.
func (r *Reader) Mark() Mark {
	return Mark{
		File:   r.cur.src.name,
		Line:   r.cur.line,
		Col:    r.cur.col,
		Offset: r.cur.offset,
		cur:    r.cur,
		outer:  r.outer,
	}
}

// Reset rewinds or fast-forwards the Reader to m, restoring the source stack m was taken with.
func (r *Reader) Reset(m Mark) {
	if m.cur.src == nil {
		panic("reader: Reset with a detached mark")
	}

	r.cur = m.cur
	r.outer = m.outer
}

// File returns the name of the current source.
func (r *Reader) File() string {
	return r.cur.src.name
}

// Depth returns the number of sources suspended below the current one.
func (r *Reader) Depth() int {
	if r.outer == nil {
		return 0
	}
	return r.outer.depth
}

// PushSource suspends the current source and continues reading from content.
// Pushing a source whose name is already on the stack fails with [ErrCircularInclude].
func (r *Reader) PushSource(name, content string) error {
	if r.cur.src.name == name {
		return fmt.Errorf("%w: %s", ErrCircularInclude, name)
	}

	for n := r.outer; n != nil; n = n.next {
		if n.f.src.name == name {
			return fmt.Errorf("%w: %s", ErrCircularInclude, name)
		}
	}

	r.outer = &stackNode{f: r.cur, next: r.outer, depth: r.Depth() + 1}
	r.cur = frame{src: &source{name: name, data: content}, line: 1, col: 1}
	return nil
}

// Pop resumes the suspended outer source. It reports false when there is none.
func (r *Reader) Pop() bool {
	if r.outer == nil {
		return false
	}

	r.cur = r.outer.f
	r.outer = r.outer.next
	return true
}

// AtEOF reports whether the current source is exhausted.
func (r *Reader) AtEOF() bool {
	return r.cur.offset >= len(r.cur.src.data)
}

// Rest returns the unread part of the current source.
func (r *Reader) Rest() string {
	return r.cur.src.data[r.cur.offset:]
}

// Peek returns the next rune without consuming it.
func (r *Reader) Peek() rune {
	ch, _ := runeAt(r.cur.src.data, r.cur.offset)
	return ch
}

// PeekAt returns the rune n positions ahead without consuming anything; PeekAt(0) is Peek.
func (r *Reader) PeekAt(n int) rune {
	off := r.cur.offset
	for ; n > 0; n-- {
		ch, size := runeAt(r.cur.src.data, off)
		if ch == EOF {
			return EOF
		}
		off += size
	}
	ch, _ := runeAt(r.cur.src.data, off)
	return ch
}

// Next consumes and returns the next rune.
func (r *Reader) Next() rune {
	ch, size := runeAt(r.cur.src.data, r.cur.offset)
	if ch == EOF {
		return EOF
	}

	r.cur = r.cur.advance(r.cur.src.data[r.cur.offset : r.cur.offset+size])
	return ch
}

// Skip consumes n bytes of the current source, or all of it if fewer remain.
func (r *Reader) Skip(n int) {
	rest := r.Rest()
	if n > len(rest) {
		n = len(rest)
	}
	r.cur = r.cur.advance(rest[:n])
}

// HasPrefix reports whether the unread input starts with lit, without consuming it.
func (r *Reader) HasPrefix(lit string) bool {
	return strings.HasPrefix(r.Rest(), lit)
}

// Matches consumes lit if the unread input starts with it.
func (r *Reader) Matches(lit string) bool {
	if !r.HasPrefix(lit) {
		return false
	}

	r.cur = r.cur.advance(lit)
	return true
}

// MatchesIgnoringWS skips whitespace and consumes lit. On failure nothing is consumed.
func (r *Reader) MatchesIgnoringWS(lit string) bool {
	m := r.Mark()
	r.SkipSpaces()
	if r.Matches(lit) {
		return true
	}

	r.Reset(m)
	return false
}

// MatchesETag consumes an end tag "</name>", allowing whitespace before the closing '>'.
func (r *Reader) MatchesETag(name string) bool {
	m := r.Mark()
	if !r.Matches("</" + name) {
		return false
	}

	r.SkipSpaces()
	if r.Matches(">") {
		return true
	}

	r.Reset(m)
	return false
}

// SkipSpaces consumes whitespace and returns the number of runes skipped.
func (r *Reader) SkipSpaces() int {
	n := 0
	for IsSpace(r.Peek()) {
		r.Next()
		n++
	}
	return n
}

// SkipUntil advances past the first occurrence of lit and returns the Mark just before it.
// If lit does not occur in the current source, nothing is consumed and ok is false.
func (r *Reader) SkipUntil(lit string) (before Mark, ok bool) {
	i := strings.Index(r.Rest(), lit)
	if i < 0 {
		return Mark{}, false
	}

	r.Skip(i)
	before = r.Mark()
	r.Skip(len(lit))
	return before, true
}

// SkipUntilEscaped is [Reader.SkipUntil] that ignores occurrences of lit preceded by esc.
func (r *Reader) SkipUntilEscaped(lit string, esc byte) (before Mark, ok bool) {
	rest := r.Rest()
	from := 0
	for {
		i := strings.Index(rest[from:], lit)
		if i < 0 {
			return Mark{}, false
		}

		at := from + i
		if at > 0 && rest[at-1] == esc && !escaped(rest, at-1, esc) {
			from = at + 1
			continue
		}

		r.Skip(at)
		before = r.Mark()
		r.Skip(len(lit))
		return before, true
	}
}

// SkipUntilETag advances past the end tag "</name>" and returns the Mark where it starts.
func (r *Reader) SkipUntilETag(name string) (before Mark, ok bool) {
	start := r.Mark()
	for {
		m, found := r.SkipUntil("</" + name)
		if !found {
			r.Reset(start)
			return Mark{}, false
		}

		r.SkipSpaces()
		if r.Matches(">") {
			return m, true
		}
	}
}

// ReadName consumes an XML-style name: letters, digits, '_', '-', '.' and ':'.
func (r *Reader) ReadName() string {
	start := r.cur.offset
	for {
		ch := r.Peek()
		if ch == EOF || !isNameRune(ch) {
			break
		}
		r.Next()
	}
	return r.cur.src.data[start:r.cur.offset]
}

// ParseToken reads a directive or attribute token. If quoted is true and the input starts
// with a quote, the token runs to the matching unescaped quote and is returned unquoted,
// with backslash escapes of quotes and backslashes removed. Otherwise the token runs to the
// next whitespace, '=' or '%'. ok is false when a quoted token is not terminated.
func (r *Reader) ParseToken(quoted bool) (tok string, ok bool) {
	r.SkipSpaces()

	q := r.Peek()
	if quoted && (q == '"' || q == '\'') {
		r.Next()
		var b strings.Builder
		for {
			ch := r.Next()
			switch ch {
			case EOF:
				return "", false
			case '\\':
				next := r.Peek()
				if next == q || next == '\\' {
					ch = r.Next()
				}
			case q:
				return b.String(), true
			}
			b.WriteRune(ch)
		}
	}

	start := r.cur.offset
	for {
		ch := r.Peek()
		if ch == EOF || IsSpace(ch) || ch == '=' || ch == '%' || ch == '"' || ch == '\'' {
			break
		}
		r.Next()
	}
	return r.cur.src.data[start:r.cur.offset], true
}

// Text returns the source text between two Marks taken in the same source.
func (r *Reader) Text(from, to Mark) string {
	if from.cur.src == nil || from.cur.src != to.cur.src || from.Offset > to.Offset {
		return ""
	}
	return from.cur.src.data[from.Offset:to.Offset]
}

// IsSpace reports whether ch is XML whitespace.
func IsSpace(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isNameRune(ch rune) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		return true
	case ch == '_', ch == '-', ch == '.', ch == ':':
		return true
	}
	return ch > 0x7f && !IsSpace(ch)
}

// escaped reports whether the byte at i is itself preceded by an odd run of esc.
func escaped(s string, i int, esc byte) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == esc; j-- {
		n++
	}
	return n%2 == 1
}
