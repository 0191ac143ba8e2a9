package gen

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Drolfothesgnir/pagec/node"
)

// DefaultTextChunkSize is the largest literal written by one statement unless configured otherwise.
const DefaultTextChunkSize = 8 * 1024

// textPool de-duplicates literal text hoisted into package-level constants.
type textPool struct {
	names map[string]string
	order []string
}

func newTextPool() *textPool {
	return &textPool{names: map[string]string{}}
}

// name returns the constant holding s, adding one if needed.
func (p *textPool) name(s string) string {
	if n, ok := p.names[s]; ok {
		return n
	}
	n := "_text" + strconv.Itoa(len(p.order))
	p.names[s] = n
	p.order = append(p.order, s)
	return n
}

func (p *textPool) write(w *Writer) {
	if len(p.order) == 0 {
		return
	}

	w.Open("const (")
	for _, s := range p.order {
		w.Printf("%s = %s", p.names[s], strconv.Quote(s))
	}
	w.Close(")")
	w.Println("")
}

// splitLines splits s after every newline. The pieces concatenate to s.
func splitLines(s string) []string {
	var out []string
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}

// chunks splits s into pieces of at most size bytes without splitting runes.
func chunks(s string, size int) []string {
	if size <= 0 || len(s) <= size {
		return []string{s}
	}

	var out []string
	for len(s) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			_, cut = utf8.DecodeRuneInString(s)
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// text writes literal text, one statement per source line and chunk.
func (g *generator) text(n *node.Node, s string) {
	if s == "" || g.page.TrimSpaces && strings.TrimSpace(s) == "" {
		return
	}

	g.w.Begin(n)
	for _, line := range splitLines(s) {
		for _, c := range chunks(line, g.opts.TextChunkSize) {
			g.writeString(c)
		}
	}
	g.w.End(n)
}

func (g *generator) writeString(s string) {
	lit := strconv.Quote(s)
	if g.opts.PoolLiteralText {
		lit = g.texts.name(s)
	}
	g.w.Printf("pc.Out().WriteString(%s)", lit)
}
