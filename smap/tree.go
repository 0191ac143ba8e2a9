package smap

import (
	"strings"

	"github.com/Drolfothesgnir/pagec/node"
)

// FromTree adds the facts of a tree annotated by the generator. Text maps line by line when
// every input line produced one output line; other nodes map their whole output to the line
// they start on, excluding the lines of their children. Output following the last child,
// such as the end of a tag's lifecycle, maps to the node's line as well.
func (b *Builder) FromTree(root *node.Node) error {
	b.fromNode(root)
	return nil
}

func (b *Builder) fromNode(n *node.Node) {
	if n.BeginOut > 0 && n.Kind != node.KindRoot {
		out := n.EndOut - n.BeginOut + 1

		switch n.Kind {
		case node.KindText, node.KindScriptlet, node.KindDeclaration, node.KindExpression:
			if in := inputLines(n.Text); in == out {
				b.AddLines(n.Start, in, n.BeginOut)
			} else {
				b.AddFact(n.Start, n.BeginOut, out)
			}
			return
		}

		if first, _ := childLines(n); first > 0 {
			out = first - n.BeginOut
		}
		b.AddFact(n.Start, n.BeginOut, out)
	}

	if !n.Kind.AllowsBody() {
		return
	}
	for _, c := range n.Body {
		b.fromNode(c)
	}

	if n.BeginOut > 0 && n.Kind != node.KindRoot {
		if _, last := childLines(n); last > 0 && last < n.EndOut {
			b.AddFact(n.Start, last+1, n.EndOut-last)
		}
	}
}

// inputLines counts the lines s spans, a trailing newline not starting a new one.
func inputLines(s string) int {
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}

// childLines returns the first and last generated lines of n's descendants that lie within
// n's own output, or zeros.
func childLines(n *node.Node) (first, last int) {
	_ = node.Walk(n, func(c, _ *node.Node) error {
		if c == n || c.BeginOut <= 0 {
			return nil
		}
		if c.BeginOut <= n.BeginOut || c.BeginOut > n.EndOut {
			return nil
		}
		if first == 0 || c.BeginOut < first {
			first = c.BeginOut
		}
		if end := min(c.EndOut, n.EndOut); end > last {
			last = end
		}
		return nil
	})
	return first, last
}
