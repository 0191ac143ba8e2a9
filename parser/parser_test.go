package parser

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/node"
	"github.com/Drolfothesgnir/pagec/taglib"
	"github.com/stretchr/testify/require"
)

const coreTaglib = `<%@ taglib prefix="c" uri="urn:core" %>`

// mapLoader serves included files from memory.
type mapLoader map[string]string

func (l mapLoader) Load(path string) (string, error) {
	s, ok := l[path]
	if !ok {
		return "", fmt.Errorf("%s: no such file", path)
	}
	return s, nil
}

func coreLibrary() *taglib.Library {
	return &taglib.Library{
		URI:       "urn:core",
		ShortName: "c",
		Tags: map[string]*taglib.Descriptor{
			"forEach": {
				Name:        "forEach",
				TypeName:    "ForEach",
				BodyContent: taglib.BodyJSP,
				Iteration:   true,
				Attributes: []taglib.AttributeSig{
					{Name: "var"},
					{Name: "items", Dynamic: true, Type: "any"},
				},
				Variables: []taglib.VariableDecl{{NameFromAttribute: "var", Type: "any", Declare: true}},
			},
			"out": {
				Name:        "out",
				TypeName:    "Out",
				BodyContent: taglib.BodyEmpty,
				Attributes:  []taglib.AttributeSig{{Name: "value", Required: true, Dynamic: true, Type: "any"}},
			},
			"if": {
				Name:        "if",
				TypeName:    "If",
				BodyContent: taglib.BodyJSP,
				Attributes:  []taglib.AttributeSig{{Name: "test", Required: true, Dynamic: true, Type: "bool"}},
			},
			"wrap": {
				Name:        "wrap",
				TypeName:    "Wrap",
				BodyContent: taglib.BodyScriptless,
			},
			"raw": {
				Name:        "raw",
				TypeName:    "Raw",
				BodyContent: taglib.BodyTagDependent,
			},
		},
	}
}

func testOptions(t *testing.T, files map[string]string) Options {
	reg := taglib.NewRegistry(nil)
	require.NoError(t, reg.Register(coreLibrary()))

	return Options{
		Resolver: reg,
		Loader:   mapLoader(files),
	}
}

func parseNativeString(t *testing.T, src string) (*node.Node, error) {
	opts := testOptions(t, nil)
	opts.Syntax = SyntaxNative
	return Parse(Source{Path: "/index.jsp", Content: src}, opts)
}

func kinds(body []*node.Node) []node.Kind {
	out := make([]node.Kind, 0, len(body))
	for _, n := range body {
		out = append(out, n.Kind)
	}
	return out
}

func requireIssue(t *testing.T, err error, issue diag.Issue) *diag.TranslationError {
	t.Helper()
	require.Error(t, err)

	var te *diag.TranslationError
	require.True(t, errors.As(err, &te), "not a translation error: %v", err)
	require.Equal(t, issue, te.Issue, te.Error())
	return te
}

func TestParseNativeStructure(t *testing.T) {
	src := coreTaglib + "\n" +
		`<ul>
<c:forEach var="item" items="${items}">
  <li><c:out value="${item.name}"/></li>
</c:forEach>
</ul>
<%! var count int %>
<% count++ %>
Total: <%= count %>`

	root, err := parseNativeString(t, src)
	require.NoError(t, err)
	require.NotNil(t, root.Root)
	require.False(t, root.Root.XML)

	require.Equal(t, []node.Kind{
		node.KindTaglibDirective,
		node.KindText,
		node.KindCustomTag,
		node.KindText,
		node.KindDeclaration,
		node.KindText,
		node.KindScriptlet,
		node.KindText,
		node.KindExpression,
	}, kinds(root.Body))

	loop := root.Body[2]
	require.Equal(t, "c:forEach", loop.QName)
	require.Equal(t, "forEach", loop.Tag.Local)
	require.Equal(t, "urn:core", loop.Tag.URI)
	require.Equal(t, 3, loop.Start.Line)

	items, ok := loop.Attr("items")
	require.True(t, ok)
	require.Equal(t, node.AttrEL, items.Kind)
	require.NotNil(t, items.EL)

	v, ok := loop.Attr("var")
	require.True(t, ok)
	require.Equal(t, node.AttrLiteral, v.Kind)
	require.Equal(t, "item", v.Value)

	require.Equal(t, []node.Kind{node.KindText, node.KindCustomTag, node.KindText}, kinds(loop.Body))
	out := loop.Body[1]
	require.True(t, out.Tag.SelfClosed)
	require.Equal(t, 4, out.Start.Line)
	require.Equal(t, 7, out.Start.Col)

	require.Equal(t, " count++ ", root.Body[6].Text)
	require.Equal(t, " count ", root.Body[8].Text)
}

func TestParseNativeTextAndExpressions(t *testing.T) {
	testCases := []struct {
		name  string
		src   string
		kinds []node.Kind
		texts []string
	}{
		{
			name:  "expression splits text",
			src:   "Hello, ${user.name}!",
			kinds: []node.Kind{node.KindText, node.KindELExpression, node.KindText},
			texts: []string{"Hello, ", "${user.name}", "!"},
		},
		{
			name:  "escapes",
			src:   `a <\% b \${c} %\> d`,
			kinds: []node.Kind{node.KindText},
			texts: []string{"a <% b ${c} %> d"},
		},
		{
			name:  "deferred expression",
			src:   "#{bean.value}",
			kinds: []node.Kind{node.KindELExpression},
			texts: []string{"#{bean.value}"},
		},
		{
			name:  "comments vanish",
			src:   "a<%-- ${not parsed} <% neither %> --%>b",
			kinds: []node.Kind{node.KindText, node.KindText},
			texts: []string{"a", "b"},
		},
		{
			name:  "ignored expressions",
			src:   `<%@ page isELIgnored="true" %>${x}`,
			kinds: []node.Kind{node.KindPageDirective, node.KindText},
			texts: []string{"", "${x}"},
		},
		{
			name:  "unbound prefix is text",
			src:   "<x:y a='1'/></x:y>",
			kinds: []node.Kind{node.KindText},
			texts: []string{"<x:y a='1'/></x:y>"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			root, err := parseNativeString(t, tc.src)
			require.NoError(t, err)
			require.Equal(t, tc.kinds, kinds(root.Body))

			for i, want := range tc.texts {
				require.Equal(t, want, root.Body[i].Text)
			}
		})
	}
}

func TestParseNativeAttributes(t *testing.T) {
	root, err := parseNativeString(t, coreTaglib+
		`<c:out value="<%= name %>"/><c:out value='it\'s'/><c:if test="${a} and ${b}"></c:if>`)
	require.NoError(t, err)
	require.Len(t, root.Body, 4)

	script, _ := root.Body[1].Attr("value")
	require.Equal(t, node.AttrScript, script.Kind)
	require.Equal(t, "name", script.Value)

	lit, _ := root.Body[2].Attr("value")
	require.Equal(t, node.AttrLiteral, lit.Kind)
	require.Equal(t, "it's", lit.Value)

	composite, _ := root.Body[3].Attr("test")
	require.Equal(t, node.AttrEL, composite.Kind)
	require.Len(t, composite.EL.Parts, 3)
}

func TestParseNativeNamedAttributes(t *testing.T) {
	root, err := parseNativeString(t, coreTaglib+`<c:if>
  <jsp:attribute name="test">${ready}</jsp:attribute>
  <jsp:body>yes</jsp:body>
</c:if>`)
	require.NoError(t, err)

	tag := root.Body[1]
	named, ok := tag.NamedAttribute("test")
	require.True(t, ok)
	require.True(t, named.Trim)
	require.Equal(t, []node.Kind{node.KindELExpression}, kinds(named.Body))

	body, ok := tag.JspBody()
	require.True(t, ok)
	require.Equal(t, "yes", body.Body[0].Text)
	require.Equal(t, body.Body, tag.Content())
}

func TestParseNativeBodies(t *testing.T) {
	root, err := parseNativeString(t, coreTaglib+
		`<c:raw><b>${x}</b><% y %></c:raw><c:wrap>${z}</c:wrap><jsp:text>a ${b}</jsp:text>`)
	require.NoError(t, err)
	require.Len(t, root.Body, 4)

	raw := root.Body[1]
	require.Equal(t, []node.Kind{node.KindText}, kinds(raw.Body))
	require.Equal(t, "<b>${x}</b><% y %>", raw.Body[0].Text)

	wrap := root.Body[2]
	require.True(t, wrap.Body[0].InScriptless)
	require.False(t, wrap.InScriptless)

	text := root.Body[3]
	require.Equal(t, []node.Kind{node.KindText, node.KindELExpression}, kinds(text.Body))
}

func TestParseNativeStandardActions(t *testing.T) {
	root, err := parseNativeString(t, `<jsp:include page="/a.jsp" flush="true">
  <jsp:param name="x" value="${y}"/>
</jsp:include>
<jsp:useBean id="b" class="example.com/beans.Bean" scope="page">init</jsp:useBean>
<jsp:plugin type="applet" code="A">
  <jsp:params><jsp:param name="p" value="1"/></jsp:params>
  <jsp:fallback><b>no</b></jsp:fallback>
</jsp:plugin>`)
	require.NoError(t, err)

	include := root.Body[0]
	require.Equal(t, node.KindIncludeAction, include.Kind)
	require.Equal(t, []node.Kind{node.KindParam}, kinds(include.Body))

	bean := root.Body[2]
	require.Equal(t, node.KindUseBean, bean.Kind)
	require.Equal(t, "init", bean.Body[0].Text)

	plugin := root.Body[4]
	require.Equal(t, []node.Kind{node.KindParams, node.KindFallback}, kinds(plugin.Body))
	require.Equal(t, "<b>no</b>", plugin.Body[1].Body[0].Text)
}

func TestParseNativeErrors(t *testing.T) {
	testCases := []struct {
		name  string
		src   string
		issue diag.Issue
	}{
		{"unterminated expression", "<%= x", diag.IssueUnterminated},
		{"unterminated comment", "<%-- x", diag.IssueUnterminated},
		{"unterminated el", "${x", diag.IssueUnterminated},
		{"bad el", "${a +}", diag.IssueInvalidExpression},
		{"unknown directive", "<%@ bogus %>", diag.IssueUnknownDirective},
		{"unknown action", "<jsp:bogus/>", diag.IssueUnknownAction},
		{"unterminated tag", `<c:forEach var="x">`, diag.IssueUnterminatedTag},
		{"unbalanced end tag", `</c:forEach>`, diag.IssueUnbalancedEndTag},
		{"unbalanced jsp end tag", `</jsp:body>`, diag.IssueUnbalancedEndTag},
		{"empty body", `<c:out value="1">text</c:out>`, diag.IssueBodyNotEmpty},
		{"scriptlet in scriptless", `<c:wrap><% x %></c:wrap>`, diag.IssueScriptingNotAllowed},
		{"scriptless is inherited", `<c:wrap><c:if test="${t}"><%= x %></c:if></c:wrap>`, diag.IssueScriptingNotAllowed},
		{"script attribute in scriptless", `<c:wrap><c:out value="<%= x %>"/></c:wrap>`, diag.IssueScriptingNotAllowed},
		{"duplicate attribute", `<c:out value="a" value="b"/>`, diag.IssueDuplicateAttribute},
		{"unquoted attribute", `<c:out value=1/>`, diag.IssueBadAttribute},
		{"unknown taglib", `<%@ taglib prefix="x" uri="urn:missing" %>`, diag.IssueUnknownTaglib},
		{"rebound prefix", `<%@ taglib prefix="c" uri="urn:other" %>`, diag.IssueDirectiveConflict},
		{"reserved prefix", `<%@ taglib prefix="jsp" uri="urn:core" %>`, diag.IssueInvalidDirectiveValue},
		{"unknown tag", `<c:nope/>`, diag.IssueUnknownTag},
		{"param body", `<jsp:param name="a" value="b">x</jsp:param>`, diag.IssueBodyNotEmpty},
		{"include body", `<jsp:include page="a"><p/></jsp:include>`, diag.IssueMisplacedAction},
		{"body beside named attribute", `<c:if><jsp:attribute name="test">x</jsp:attribute>text</c:if>`, diag.IssueMisplacedAction},
		{"named attribute at top level", `<jsp:attribute name="x">y</jsp:attribute>`, diag.IssueMisplacedAction},
		{"elements in jsp:text", `<jsp:text><b>x</b></jsp:text>`, diag.IssueMisplacedAction},
		{"missing include", `<%@ include file="nowhere.jsp" %>`, diag.IssueIncludeFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseNativeString(t, coreTaglib+tc.src)
			requireIssue(t, err, tc.issue)
		})
	}
}

func TestParseNativeErrorPosition(t *testing.T) {
	_, err := parseNativeString(t, coreTaglib+"\nline two\n  </c:if>")
	te := requireIssue(t, err, diag.IssueUnbalancedEndTag)
	require.Equal(t, "/index.jsp", te.Mark.File)
	require.Equal(t, 3, te.Mark.Line)
	require.Equal(t, 3, te.Mark.Col)
}

func TestParseIncludeDirective(t *testing.T) {
	opts := testOptions(t, map[string]string{
		"/inc/header.jspf": coreTaglib + `<c:out value="${title}"/>`,
		"/inc/footer.jspx": `<jsp:root xmlns:jsp="http://java.sun.com/JSP/Page"><jsp:text>bye</jsp:text></jsp:root>`,
	})

	root, err := Parse(Source{
		Path:    "/pages/index.jsp",
		Content: `<%@ include file="../inc/header.jspf" %><c:if test="${ok}"/><%@ include file="/inc/footer.jspx" %>`,
	}, opts)
	require.NoError(t, err)
	require.Equal(t, []node.Kind{node.KindIncludeDirective, node.KindCustomTag, node.KindIncludeDirective}, kinds(root.Body))

	header := root.Body[0]
	require.Equal(t, []node.Kind{node.KindTaglibDirective, node.KindCustomTag}, kinds(header.Body))

	out := header.Body[1]
	require.Equal(t, "/inc/header.jspf", out.Start.File)
	require.Equal(t, []string{"/pages/index.jsp"}, out.Start.IncludeStack())

	// The prefix bound inside the included file stays bound.
	require.Equal(t, "/pages/index.jsp", root.Body[1].Start.File)
	require.Equal(t, 0, root.Body[1].Start.Depth())

	footer := root.Body[2]
	require.Equal(t, []node.Kind{node.KindJspText}, kinds(footer.Body))
	require.Equal(t, "/inc/footer.jspx", footer.Body[0].Start.File)
}

func TestParseCircularInclude(t *testing.T) {
	opts := testOptions(t, map[string]string{
		"/a.jsp": `a<%@ include file="b.jsp" %>`,
		"/b.jsp": `b<%@ include file="a.jsp" %>`,
	})

	_, err := Parse(Source{Path: "/a.jsp", Content: `a<%@ include file="b.jsp" %>`}, opts)
	requireIssue(t, err, diag.IssueCircularInclude)
}

func TestParseDirectivesOnly(t *testing.T) {
	opts := testOptions(t, map[string]string{
		"/attrs.jspf": `<%@ attribute name="title" required="true" %>ignored ${text}`,
	})
	opts.DirectivesOnly = true

	root, err := Parse(Source{
		Path: "/tags/box.tag",
		Content: `<%@ tag body-content="scriptless" %>
<x:unknown>${never parsed}</x:unknown><% not even this %>
<%-- <%@ page info="commented out" %> --%>
<%@ include file="/attrs.jspf" %>
<%@ variable name-given="total" %>`,
	}, opts)
	require.NoError(t, err)
	require.True(t, root.Root.TagFile)

	require.Equal(t, []node.Kind{
		node.KindTagDirective,
		node.KindIncludeDirective,
		node.KindVariableDirective,
	}, kinds(root.Body))
	require.Equal(t, []node.Kind{node.KindAttributeDirective}, kinds(root.Body[1].Body))
}

func TestParseSyntax(t *testing.T) {
	for in, want := range map[string]Syntax{"": SyntaxAuto, "XML": SyntaxXML, "standard": SyntaxNative} {
		got, err := ParseSyntax(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseSyntax("yaml")
	require.Error(t, err)

	require.Equal(t, SyntaxXML, DetectSyntax("a.jspx", ""))
	require.Equal(t, SyntaxXML, DetectSyntax("a.jsp", `<jsp:root xmlns:jsp="http://java.sun.com/JSP/Page"/>`))
	require.Equal(t, SyntaxNative, DetectSyntax("a.jsp", "<html/>"))
	require.Equal(t, "/a/c.jsp", ResolvePath("/a/b.jsp", "c.jsp"))
	require.Equal(t, "/c.jsp", ResolvePath("/a/b.jsp", "/x/../c.jsp"))
}
