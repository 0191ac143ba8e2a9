package validate

import (
	"testing"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/node"
	"github.com/Drolfothesgnir/pagec/taglib"
	"github.com/stretchr/testify/require"
)

func findTag(root *node.Node, local string) *node.Node {
	return node.Find(root, func(n *node.Node) bool {
		return n.Kind == node.KindCustomTag && n.Tag.Local == local
	})
}

func TestValidateCustomTagAttributes(t *testing.T) {
	root, err := validatePage(t, header+`<t:out value="${name}" escape="true"/><t:dyn class="a" data-id="${id}"/>`)
	require.NoError(t, err)

	out := findTag(root, "out")
	value, _ := out.Attr("value")
	require.Equal(t, taglib.Setter{Method: "SetValue", Type: "string"}, value.Setter)
	escape, _ := out.Attr("escape")
	require.Equal(t, taglib.Setter{Method: "SetEscape", Type: "bool"}, escape.Setter)

	require.True(t, out.Tag.Data.IsRuntime("value"))
	v, ok := out.Tag.Data.Attribute("escape")
	require.True(t, ok)
	require.Equal(t, "true", v)

	dyn := findTag(root, "dyn")
	for _, a := range dyn.Attrs {
		require.True(t, a.Setter.Dynamic)
		require.Equal(t, taglib.DynamicAttributeMethod, a.Setter.Method)
	}
}

func TestValidateCustomTagErrors(t *testing.T) {
	testCases := []struct {
		name  string
		src   string
		issue diag.Issue
	}{
		{
			name:  "missing required",
			src:   `<t:out escape="true"/>`,
			issue: diag.IssueMissingAttribute,
		},
		{
			name:  "unknown attribute",
			src:   `<t:out value="a" colour="red"/>`,
			issue: diag.IssueUnknownAttribute,
		},
		{
			name:  "runtime value on static attribute",
			src:   `<t:out value="a" escape="${flag}"/>`,
			issue: diag.IssueRuntimeValueNotAllowed,
		},
		{
			name:  "script value on static attribute",
			src:   `<t:out value="a" escape="<%= flag %>"/>`,
			issue: diag.IssueRuntimeValueNotAllowed,
		},
		{
			name:  "named value on static attribute",
			src:   `<t:out value="a"><jsp:attribute name="escape">${flag}</jsp:attribute></t:out>`,
			issue: diag.IssueRuntimeValueNotAllowed,
		},
		{
			name:  "inline and named",
			src:   `<t:out value="a"><jsp:attribute name="value">b</jsp:attribute></t:out>`,
			issue: diag.IssueDuplicateNamedAttribute,
		},
		{
			name:  "named twice",
			src:   `<t:out><jsp:attribute name="value">a</jsp:attribute><jsp:attribute name="value">b</jsp:attribute></t:out>`,
			issue: diag.IssueDuplicateNamedAttribute,
		},
		{
			name:  "static and computed variables",
			src:   `<t:conflict/>`,
			issue: diag.IssueVariableConflict,
		},
		{
			name:  "runtime variable name",
			src:   `<t:set var="${name}" value="1"/>`,
			issue: diag.IssueRuntimeValueNotAllowed,
		},
		{
			name:  "tag validator",
			src:   `<t:mode mode="c"/>`,
			issue: diag.IssueTagValidation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validatePage(t, header+tc.src)
			requireIssues(t, err, tc.issue)
		})
	}
}

func TestValidateNamedAttributes(t *testing.T) {
	root, err := validatePage(t, header+`<t:out>
  <jsp:attribute name="value">${greeting}</jsp:attribute>
  <jsp:attribute name="escape"> false </jsp:attribute>
</t:out>`)
	require.NoError(t, err)

	out := findTag(root, "out")
	value, ok := out.Attr("value")
	require.True(t, ok)
	require.Equal(t, node.AttrNamed, value.Kind)
	require.NotNil(t, value.Named)
	require.True(t, out.Tag.Data.IsRuntime("value"))

	escape, _ := out.Tag.Data.Attribute("escape")
	require.Equal(t, "false", escape)

	// A second pass leaves the tree as it is.
	attrs := len(out.Attrs)
	require.NoError(t, Validate(root, Options{Resolver: testRegistry(t)}))
	require.Len(t, out.Attrs, attrs)
}

func TestValidateFragmentAttribute(t *testing.T) {
	root, err := validatePage(t, header+`<t:frag><jsp:attribute name="header"><b>${title}</b></jsp:attribute><jsp:body>x</jsp:body></t:frag>`)
	require.NoError(t, err)

	attr, _ := findTag(root, "frag").Attr("header")
	require.True(t, attr.Fragment)
	require.Equal(t, taglib.FragmentType, attr.Setter.Type)

	root = parse(t, "/index.jsp", header+`<t:frag><jsp:attribute name="header"><% x++ %></jsp:attribute></t:frag>`)
	requireIssues(t, Validate(root, Options{}), diag.IssueScriptingNotAllowed)
}

func TestValidateVariables(t *testing.T) {
	root, err := validatePage(t, header+`<t:loop var="row" items="${rows}"><t:set var="total" value="${row}"/></t:loop>`)
	require.NoError(t, err)

	loop := findTag(root, "loop")
	require.Equal(t, 0, loop.Tag.NestingLevel)
	require.Equal(t, []taglib.VariableBinding{
		{Name: "row", Type: "any", Declare: true, Scope: taglib.Nested},
	}, loop.Tag.Variables)
	require.True(t, loop.Info.HasScriptingVars)

	set := findTag(root, "set")
	require.Equal(t, 1, set.Tag.NestingLevel)
	require.Equal(t, "total", set.Tag.Variables[0].Name)
	require.Equal(t, taglib.AtBegin, set.Tag.Variables[0].Scope)

	require.True(t, root.Info.HasScriptingVars)
}

func TestValidateOptionalVariableName(t *testing.T) {
	root, err := validatePage(t, header+`<t:loop items="${rows}">x</t:loop>`)
	require.NoError(t, err)
	require.Empty(t, findTag(root, "loop").Tag.Variables)
	require.False(t, root.Info.HasScriptingVars)
}
