package gen

import (
	"go/ast"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// closures returns the function literals of the generated file whose body calls sel.
func closures(f *ast.File, sel string) []*ast.FuncLit {
	var out []*ast.FuncLit
	ast.Inspect(f, func(n ast.Node) bool {
		lit, ok := n.(*ast.FuncLit)
		if !ok {
			return true
		}
		for _, s := range lit.Body.List {
			if len(calls(s, sel)) > 0 {
				out = append(out, lit)
				break
			}
		}
		return true
	})
	return out
}

func TestBufferedBodyIsPoppedOnEveryPath(t *testing.T) {
	src := header + `<t:loop items="${items}"><% if stop { return nil } %>row</t:loop>`
	u := generate(t, "/loop.jsp", src, Options{})

	lits := closures(u.file, "DoStartTag")
	require.Len(t, lits, 1)
	body := lits[0]

	// One explicit pop after the body, one in the deferred unwind.
	require.Len(t, calls(body, "PushBody"), 1)
	require.Len(t, calls(body, "PopBody"), 2)

	var deferred *ast.DeferStmt
	ast.Inspect(body, func(n ast.Node) bool {
		if d, ok := n.(*ast.DeferStmt); ok && deferred == nil {
			deferred = d
		}
		return true
	})
	require.NotNil(t, deferred)
	require.Len(t, calls(deferred, "PopBody"), 1)
	require.Len(t, calls(deferred, "Release"), 1)

	require.Len(t, calls(body, "DoAfterBody"), 1)
	require.Contains(t, u.res.Source, "!= rt.EvalBodyAgain {")
}

func TestScriptingVariablesAreSavedAndRestored(t *testing.T) {
	src := header + `<t:set var="x" value="a"/>
<t:guard>
<t:set var="x" value="b">
<t:set var="x" value="c"/>
</t:set>
<%= x %>
</t:guard>
<%= x %>
`
	u := generate(t, "/vars.jsp", src, Options{})
	s := u.res.Source

	require.Equal(t, 1, strings.Count(s, "var x any"))

	order := []string{"_x_1 := x", "_x_2 := x", "x = _x_2", "x = _x_1"}
	last := -1
	for _, want := range order {
		i := strings.Index(s, want)
		require.Greater(t, i, last, want)
		last = i
	}

	require.GreaterOrEqual(t, strings.Count(s, `x = rt.Attr[any](pc, "x")`), 6)
}

func TestNestedVariablesAreLocalToTheBody(t *testing.T) {
	src := header + `<t:loop var="item" items="${items}"><%= item %></t:loop>`
	u := generate(t, "/nested.jsp", src, Options{})

	require.Contains(t, u.res.Source, `item := rt.Attr[any](pc, "item")`)
	require.NotContains(t, u.res.Source, "var item")
}

func TestTryCatchFinally(t *testing.T) {
	src := header + `<t:guard><%= risky() %></t:guard>`
	u := generate(t, "/guard.jsp", src, Options{})

	require.Len(t, calls(u.file, "DoCatch"), 1)
	require.Len(t, calls(u.file, "DoFinally"), 1)
	require.Contains(t, u.res.Source, "if err != nil && !rt.IsSkipPage(err) {")
}

func TestScriptlessTagsAreHoisted(t *testing.T) {
	src := header + `<t:wrap>hello <t:out value="${name}"/></t:wrap><% n := 1 %><t:guard><%= n %></t:guard>`
	u := generate(t, "/hoist.jsp", src, Options{})

	require.Equal(t, 2, u.res.Hoisted)

	render := methodDecl(t, u.file, "render")
	require.Len(t, calls(render, "DoStartTag"), 1, "guard stays inline")
	require.Contains(t, u.res.Source, "(pc *rt.PageContext, frags *hoistJspFragments, parent rt.Tag) (err error) {")
	require.Contains(t, u.res.Source, ".SetParent(parent)")
}

func TestPooledHandlers(t *testing.T) {
	src := header + `<t:out value="a"/><t:out value="b"/><t:out value="c" escape="false"/>`
	u := generate(t, "/pool.jsp", src, Options{PoolTagHandlers: true})

	require.Equal(t, 1, strings.Count(u.res.Source, "_pool_t_out_value rt.TagPool"))
	require.Equal(t, 1, strings.Count(u.res.Source, "_pool_t_out_escape_value rt.TagPool"))
	require.Len(t, calls(u.file, "Get"), 3)
	require.Len(t, calls(u.file, "Put"), 3)
	require.Empty(t, calls(u.file, "Release"))
}

func TestFragmentsAreDispatchedById(t *testing.T) {
	src := header + `<t:frag><jsp:attribute name="header">Title ${n}</jsp:attribute><jsp:body>Body</jsp:body></t:frag>`
	u := generate(t, "/frag.jsp", src, Options{})

	require.Equal(t, 2, u.res.Fragments)
	require.Contains(t, u.res.Source, "SetHeader(rt.NewFragment(pc, _th_t_frag_1, frags, 0))")
	require.Contains(t, u.res.Source, "SetJspBody(rt.NewFragment(pc, _th_t_frag_1, frags, 1))")

	invoke := methodDecl(t, u.file, "Invoke")
	var cases []string
	ast.Inspect(invoke, func(n ast.Node) bool {
		if cc, ok := n.(*ast.CaseClause); ok {
			for _, e := range cc.List {
				cases = append(cases, e.(*ast.BasicLit).Value)
			}
		}
		return true
	})
	require.Equal(t, []string{"0", "1"}, cases)
	require.Len(t, calls(invoke, "UnknownFragment"), 1)
}

func TestNamedAndDynamicAttributes(t *testing.T) {
	src := header + `<t:out><jsp:attribute name="value" trim="false"> <%= total %> </jsp:attribute></t:out>
<t:dyn size="3" label="${l}"/>`
	u := generate(t, "/attrs.jsp", src, Options{})

	require.Len(t, calls(u.file, "Capture"), 1)
	require.Contains(t, u.res.Source, "rt.Capture(pc, false, func() error {")
	require.Contains(t, u.res.Source, `.SetDynamicAttribute("", "size", "3")`)
	require.Len(t, calls(u.file, "SetDynamicAttribute"), 2)
	require.Len(t, calls(u.file, "Eval"), 1)
}
