package smap

import (
	"testing"

	"github.com/Drolfothesgnir/pagec/node"
	"github.com/Drolfothesgnir/pagec/reader"
	"github.com/stretchr/testify/require"
)

func TestFromTree(t *testing.T) {
	root := node.New(node.KindRoot, reader.NewMark("/p.jsp", 1, 1, 0))

	text := node.New(node.KindText, reader.NewMark("/p.jsp", 1, 1, 0))
	text.Text = "a\nb\n"
	text.BeginOut, text.EndOut = 20, 21
	root.Append(text)

	tag := node.New(node.KindCustomTag, reader.NewMark("/p.jsp", 3, 1, 4))
	tag.BeginOut, tag.EndOut = 22, 40
	root.Append(tag)

	expr := node.New(node.KindExpression, reader.NewMark("/p.jsp", 3, 8, 11))
	expr.Text = " x "
	expr.BeginOut, expr.EndOut = 30, 30
	tag.Append(expr)

	// A node that produced no code.
	empty := node.New(node.KindText, reader.NewMark("/p.jsp", 4, 1, 20))
	empty.Text = "   "
	tag.Append(empty)

	b := NewBuilder()
	require.NoError(t, b.FromTree(root))

	require.Equal(t, []LineInfo{
		{InputStart: 1, InputCount: 2, OutputStart: 20, OutputIncrement: 1},
		{InputStart: 3, InputCount: 1, OutputStart: 22, OutputIncrement: 8},
		{InputStart: 3, InputCount: 1, OutputStart: 30, OutputIncrement: 1},
		{InputStart: 3, InputCount: 1, OutputStart: 31, OutputIncrement: 10},
	}, b.Lines())
}

func TestFromTreeMapsTagEnd(t *testing.T) {
	root := node.New(node.KindRoot, reader.NewMark("/p.jsp", 1, 1, 0))

	outer := node.New(node.KindCustomTag, reader.NewMark("/p.jsp", 1, 1, 0))
	outer.BeginOut, outer.EndOut = 10, 30
	root.Append(outer)

	inner := node.New(node.KindCustomTag, reader.NewMark("/p.jsp", 2, 3, 12))
	inner.BeginOut, inner.EndOut = 14, 22
	outer.Append(inner)

	expr := node.New(node.KindExpression, reader.NewMark("/p.jsp", 3, 5, 30))
	expr.Text = " x "
	expr.BeginOut, expr.EndOut = 18, 18
	inner.Append(expr)

	// Generated into a separate method, outside the tag's own lines.
	hoisted := node.New(node.KindCustomTag, reader.NewMark("/p.jsp", 5, 3, 60))
	hoisted.BeginOut, hoisted.EndOut = 50, 55
	outer.Append(hoisted)

	b := NewBuilder()
	require.NoError(t, b.FromTree(root))

	require.Equal(t, []LineInfo{
		{InputStart: 1, InputCount: 1, OutputStart: 10, OutputIncrement: 4},
		{InputStart: 2, InputCount: 1, OutputStart: 14, OutputIncrement: 4},
		{InputStart: 3, InputCount: 1, OutputStart: 18, OutputIncrement: 1},
		{InputStart: 2, InputCount: 1, OutputStart: 19, OutputIncrement: 4},
		{InputStart: 5, InputCount: 1, OutputStart: 50, OutputIncrement: 6},
		{InputStart: 1, InputCount: 1, OutputStart: 23, OutputIncrement: 8},
	}, b.Lines())

	// Every generated line of the outer tag is attributed to the template.
	covered := map[int]bool{}
	for _, l := range b.Lines() {
		for i := 0; i < l.InputCount*l.OutputIncrement; i++ {
			covered[l.OutputStart+i] = true
		}
	}
	for line := 10; line <= 30; line++ {
		require.True(t, covered[line], "line %d", line)
	}
}
