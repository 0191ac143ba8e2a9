package validate

import (
	"testing"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/node"
	"github.com/Drolfothesgnir/pagec/reader"
	"github.com/stretchr/testify/require"
)

// tagNode builds a custom tag node of the test library by hand, bypassing the parser.
func tagNode(t *testing.T, local string, line int, body ...*node.Node) *node.Node {
	d, ok := testLibrary().Tag(local)
	require.True(t, ok)

	n := node.New(node.KindCustomTag, reader.NewMark("/index.jsp", line, 1, 0))
	n.QName = "t:" + local
	n.Tag = &node.CustomTag{Prefix: "t", Local: local, URI: "urn:test", Descriptor: d}
	for _, c := range body {
		n.Append(c)
	}
	return n
}

func rootNode(body ...*node.Node) *node.Node {
	root := node.New(node.KindRoot, reader.NewMark("/index.jsp", 1, 1, 0))
	root.Root = &node.RootInfo{File: "/index.jsp"}
	for _, c := range body {
		root.Append(c)
	}
	return root
}

func TestScriptlessPropagatesThroughNesting(t *testing.T) {
	scriptlet := node.New(node.KindScriptlet, reader.NewMark("/index.jsp", 4, 1, 0))
	scriptlet.Text = " count++ "

	// wrap is scriptless; loop and set have JSP bodies and do not lift the restriction.
	root := rootNode(
		tagNode(t, "wrap", 1,
			tagNode(t, "loop", 2,
				tagNode(t, "set", 3, scriptlet),
			),
		),
	)
	root.Body[0].Body[0].Body[0].Attrs = []*node.Attribute{{Name: "var", Local: "var", Value: "x"}}

	err := Validate(root, Options{})
	require.Equal(t, []diag.Issue{diag.IssueScriptingNotAllowed}, issues(err))

	var list diag.ErrorList
	require.ErrorAs(t, err, &list)
	require.Equal(t, 4, list[0].Mark.Line)

	require.False(t, root.Info.Scriptless)
	require.False(t, root.Body[0].Info.Scriptless)
}

func TestScriptlessAllowsSameTreeOutsideRestriction(t *testing.T) {
	scriptlet := node.New(node.KindScriptlet, reader.NewMark("/index.jsp", 3, 1, 0))
	scriptlet.Text = " count++ "

	set := tagNode(t, "set", 2, scriptlet)
	set.Attrs = []*node.Attribute{{Name: "var", Local: "var", Value: "x"}}

	root := rootNode(tagNode(t, "loop", 1, set))
	require.NoError(t, Validate(root, Options{}))

	require.False(t, root.Body[0].Info.Scriptless)
	require.True(t, root.Body[0].Info.HasScriptingVars)
}

func TestScriptlessRejectsExpressionAttributes(t *testing.T) {
	out := tagNode(t, "out", 2)
	out.Attrs = []*node.Attribute{{Name: "value", Local: "value", Value: "name", Kind: node.AttrScript}}

	root := rootNode(tagNode(t, "wrap", 1, tagNode(t, "loop", 2, out)))
	requireIssues(t, Validate(root, Options{}), diag.IssueScriptingNotAllowed)
}
