package gen

import (
	"fmt"
	"strings"

	"github.com/Drolfothesgnir/pagec/node"
)

// Writer accumulates generated source and tracks the output line of every node written to it.
//
// Writers only ever hold whole lines. A Writer spliced into another one hands over its nodes,
// whose line numbers are re-based onto the receiving Writer.
type Writer struct {
	b      strings.Builder
	line   int
	indent int

	// marked are the nodes whose BeginOut and EndOut are relative to this Writer.
	marked []*node.Node
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{line: 1}
}

// Line returns the number of the next line to be written, starting at 1.
func (w *Writer) Line() int {
	return w.line
}

// In increases the indentation of the following lines.
func (w *Writer) In() {
	w.indent++
}

// Out decreases the indentation of the following lines.
func (w *Writer) Out() {
	if w.indent == 0 {
		panic("gen: unbalanced indentation")
	}
	w.indent--
}

// Println writes s as one indented line. Newlines inside s are counted but not indented.
func (w *Writer) Println(s string) {
	if s == "" {
		w.b.WriteByte('\n')
		w.line++
		return
	}

	for i := 0; i < w.indent; i++ {
		w.b.WriteByte('\t')
	}
	w.b.WriteString(s)
	w.b.WriteByte('\n')
	w.line += 1 + strings.Count(s, "\n")
}

// Printf formats and writes one indented line.
func (w *Writer) Printf(format string, args ...any) {
	w.Println(fmt.Sprintf(format, args...))
}

// Open writes a line opening a block and indents.
func (w *Writer) Open(format string, args ...any) {
	w.Printf(format, args...)
	w.In()
}

// Close outdents and writes the line closing a block.
func (w *Writer) Close(s string) {
	w.Out()
	w.Println(s)
}

// Begin records the current line as the first generated line of n.
func (w *Writer) Begin(n *node.Node) {
	n.BeginOut = w.line
	n.EndOut = 0
	w.marked = append(w.marked, n)
}

// End records the last generated line of n. A node which produced no line gets no lines at all.
func (w *Writer) End(n *node.Node) {
	if w.line == n.BeginOut {
		n.BeginOut = 0
		return
	}
	n.EndOut = w.line - 1
}

// Splice appends the content of o, taking over its nodes.
func (w *Writer) Splice(o *Writer) {
	offset := w.line - 1

	w.b.WriteString(o.b.String())
	w.line += o.line - 1

	for _, n := range o.marked {
		if n.BeginOut == 0 {
			continue
		}
		n.BeginOut += offset
		n.EndOut += offset
		w.marked = append(w.marked, n)
	}
	o.marked = nil
}

// Empty reports whether nothing was written.
func (w *Writer) Empty() bool {
	return w.b.Len() == 0
}

func (w *Writer) String() string {
	return w.b.String()
}
