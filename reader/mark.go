package reader

import (
	"strconv"
	"unicode/utf8"
)

// source is one named input pushed onto the [Reader].
type source struct {
	name string
	data string
}

// frame is a position inside a single source.
type frame struct {
	src    *source
	offset int
	line   int
	col    int
}

// advance moves the frame over s, which must be the text at the frame's offset.
func (f frame) advance(s string) frame {
	for _, r := range s {
		if r == '\n' {
			f.line++
			f.col = 1
		} else {
			f.col++
		}
	}
	f.offset += len(s)
	return f
}

// stackNode is an immutable linked list of suspended outer frames.
// Sharing the list between Marks is what makes [Reader.Mark] and [Reader.Reset] O(1).
type stackNode struct {
	f     frame
	next  *stackNode
	depth int
}

// Mark is an immutable position inside the stacked input of a [Reader].
//
// File, Line, Col and Offset describe the position for humans and for the line map;
// the unexported snapshot allows the Reader to rewind to it even after the source it
// points into was pushed over or popped.
type Mark struct {
	// File is the name of the source the position belongs to.
	File string

	// Line is the 1-based line number.
	Line int

	// Col is the 1-based column, counted in runes.
	Col int

	// Offset is the byte offset inside the source.
	Offset int

	cur   frame
	outer *stackNode
}

// NewMark creates a detached Mark, used by front-ends that do not read through a [Reader].
// A detached Mark cannot be passed to [Reader.Reset].
func NewMark(file string, line, col, offset int) Mark {
	return Mark{File: file, Line: line, Col: col, Offset: offset}
}

// IsZero reports whether the Mark was never set.
func (m Mark) IsZero() bool {
	return m.File == "" && m.Line == 0
}

// Advance returns the Mark positioned after the text s, which is expected to start at m.
func (m Mark) Advance(s string) Mark {
	if m.cur.src == nil {
		f := frame{offset: m.Offset, line: m.Line, col: m.Col}.advance(s)
		return Mark{File: m.File, Line: f.line, Col: f.col, Offset: f.offset}
	}

	f := m.cur.advance(s)
	return Mark{
		File:   m.File,
		Line:   f.line,
		Col:    f.col,
		Offset: f.offset,
		cur:    f,
		outer:  m.outer,
	}
}

// Depth is the include depth the Mark was taken at, 0 for the outermost source.
func (m Mark) Depth() int {
	if m.outer == nil {
		return 0
	}
	return m.outer.depth
}

// IncludeStack returns the names of the sources enclosing the Mark, innermost first.
func (m Mark) IncludeStack() []string {
	var names []string
	for n := m.outer; n != nil; n = n.next {
		names = append(names, n.f.src.name)
	}
	return names
}

func (m Mark) String() string {
	return m.File + ":" + strconv.Itoa(m.Line) + ":" + strconv.Itoa(m.Col)
}

// runeAt decodes the rune at byte offset i of s, returning EOF past the end.
func runeAt(s string, i int) (rune, int) {
	if i >= len(s) {
		return EOF, 0
	}

	b := s[i]
	if b < utf8.RuneSelf {
		return rune(b), 1
	}

	return utf8.DecodeRuneInString(s[i:])
}
