package gen

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/node"
	"github.com/Drolfothesgnir/pagec/taglib"
)

// customTag generates one tag invocation.
//
// Each invocation runs in a closure whose deferred function releases the handler and pops the
// bodies pushed for it, whichever way the closure returns. Invocations whose subtree is free
// of scripting elements and variables become methods of the unit instead.
func (g *generator) customTag(n *node.Node) error {
	t := n.Tag
	if t == nil || t.Descriptor == nil {
		panic(diag.Internal("gen: custom tag %s at %s has no descriptor", n.QName, n.Start))
	}
	g.assignNames(n)

	if hoistable(n) {
		return g.hoist(n)
	}

	g.w.Begin(n)
	saved := g.declareVariables(n)

	g.w.Open("if err := func() (err error) {")
	g.scope.push()
	if err := g.invocation(n); err != nil {
		return err
	}
	g.scope.pop()
	g.w.Out()
	g.w.Println("}(); err != nil {")
	g.w.In()
	g.w.Println("return err")
	g.w.Close("}")

	for _, name := range saved {
		g.w.Printf("%s = %s", name, saveSlot(name, t.NestingLevel))
	}
	g.w.End(n)
	return nil
}

// hoistable reports whether the invocation can run outside the function it appears in.
func hoistable(n *node.Node) bool {
	return n.Info.Scriptless && !n.Info.HasScriptingVars && !n.Info.HasUseBean && len(n.Tag.Variables) == 0
}

// hoist generates the invocation as a method and calls it.
func (g *generator) hoist(n *node.Node) error {
	name := "tag" + strconv.Itoa(g.next())
	g.check("%s.%s(pc, frags, %s)", g.recv, name, g.parentHandler())

	mw := NewWriter()
	saved := g.enter(mw, "parent")
	mw.Begin(n)
	mw.Open("func (%s *%s) %s(pc *rt.PageContext, frags *%s, parent rt.Tag) (err error) {",
		g.recv, g.opts.TypeName, name, g.fragType)
	if err := g.invocation(n); err != nil {
		return err
	}
	mw.Close("}")
	mw.End(n)
	g.leave(saved)

	if !g.methods.Empty() {
		g.methods.Println("")
	}
	g.methods.Splice(mw)
	g.hoisted++
	return nil
}

// assignNames gives the invocation its generated identifiers.
func (g *generator) assignNames(n *node.Node) {
	t := n.Tag
	id := g.next()
	base := identifier(t.Prefix) + "_" + identifier(t.Local) + "_" + strconv.Itoa(id)

	t.HandlerVar = "_th_" + base
	t.EvalVar = "_ev_" + base
	t.PushBodyVar = "_pb_" + base

	if g.opts.PoolTagHandlers && t.Descriptor.Classic() {
		t.PoolName = poolName(n)
		i := slices.IndexFunc(g.pools, func(p pool) bool { return p.name == t.PoolName })
		if i < 0 {
			g.pools = append(g.pools, pool{name: t.PoolName, typ: g.handlerType(t.Descriptor)})
		}
	}
}

// poolName derives the pool of an invocation from the tag and the set of attributes it sets,
// so that pooled handlers are only reused with the same attributes.
func poolName(n *node.Node) string {
	t := n.Tag
	attrs := make([]string, 0, len(n.Attrs))
	for _, a := range n.Attrs {
		attrs = append(attrs, identifier(a.Name))
	}
	slices.Sort(attrs)

	parts := append([]string{"_pool", identifier(t.Prefix), identifier(t.Local)}, attrs...)
	return strings.Join(parts, "_")
}

// handlerType returns the qualified handler type of a descriptor.
func (g *generator) handlerType(d *taglib.Descriptor) string {
	if d.Import == "" {
		return d.TypeName
	}
	return g.imports.use(d.Import) + "." + d.TypeName
}

// invocation writes the statements of a closure or method running one tag.
func (g *generator) invocation(n *node.Node) error {
	if n.Tag.Descriptor.Classic() {
		return g.classic(n)
	}
	return g.simple(n)
}

func (g *generator) classic(n *node.Node) error {
	t := n.Tag
	d := t.Descriptor
	h, ev, pb := t.HandlerVar, t.EvalVar, t.PushBodyVar
	typ := g.handlerType(d)

	if t.PoolName != "" {
		g.w.Printf("%s := %s.%s.Get(func() rt.Tag { return &%s{} }).(*%s)", h, g.recv, t.PoolName, typ, typ)
	} else {
		g.w.Printf("%s := &%s{}", h, typ)
	}
	g.w.Printf("%s.SetPageContext(pc)", h)
	g.w.Printf("%s.SetParent(%s)", h, g.parentHandler())

	body := d.BodyContent != taglib.BodyEmpty && !n.HasEmptyBody()
	buffered := body && d.BufferedBody
	repeat := body && (d.Iteration || d.BufferedBody)

	if buffered {
		g.w.Printf("%s := 0", pb)
	}
	g.w.Open("defer func() {")
	if buffered {
		g.w.Open("for ; %s > 0; %s-- {", pb, pb)
		g.w.Println("pc.PopBody()")
		g.w.Close("}")
	}
	if d.TryCatchFinally {
		g.w.Open("if err != nil && !rt.IsSkipPage(err) {")
		g.w.Printf("err = %s.DoCatch(err)", h)
		g.w.Close("}")
		g.w.Printf("%s.DoFinally()", h)
	}
	if t.PoolName != "" {
		g.w.Printf("%s.%s.Put(%s)", g.recv, t.PoolName, h)
	} else {
		g.w.Printf("%s.Release()", h)
	}
	g.w.Close("}()")

	if err := g.attributes(n); err != nil {
		return err
	}

	g.frames = append(g.frames, frame{n: n, handler: h})
	defer func() { g.frames = g.frames[:len(g.frames)-1] }()

	g.w.Printf("%s, err := %s.DoStartTag()", ev, h)
	g.checkErr()
	g.syncVariables(n, taglib.AtBegin)

	if body {
		g.w.Open("if %s != rt.SkipBody {", ev)
		g.scope.push()

		if buffered {
			g.w.Open("if %s == rt.EvalBodyBuffered {", ev)
			g.w.Printf("%s.SetBodyContent(pc.PushBody())", h)
			g.w.Printf("%s++", pb)
			g.check("%s.DoInitBody()", h)
			g.w.Close("}")
		}

		if repeat {
			g.w.Open("for {")
			g.scope.push()
		}

		g.declareNested(n)
		g.syncVariables(n, taglib.AtBegin)
		if err := g.body(n.Content()); err != nil {
			return err
		}

		if repeat {
			again := "_ag_" + strings.TrimPrefix(h, "_th_")
			g.w.Printf("%s, err := %s.DoAfterBody()", again, h)
			g.checkErr()
			g.w.Open("if %s != rt.EvalBodyAgain {", again)
			g.w.Println("break")
			g.w.Close("}")
			g.scope.pop()
			g.w.Close("}")
		}

		if buffered {
			g.w.Open("if %s == rt.EvalBodyBuffered {", ev)
			g.w.Println("pc.PopBody()")
			g.w.Printf("%s--", pb)
			g.w.Close("}")
		}

		g.scope.pop()
		g.w.Close("}")
	}

	g.w.Printf("%s, err = %s.DoEndTag()", ev, h)
	g.checkErr()
	g.syncVariables(n, taglib.AtBegin, taglib.AtEnd)
	g.w.Open("if %s == rt.SkipPage {", ev)
	g.w.Println("return rt.ErrSkipPage")
	g.w.Close("}")
	g.w.Println("return nil")
	return nil
}

func (g *generator) simple(n *node.Node) error {
	t := n.Tag
	h := t.HandlerVar

	g.w.Printf("%s := &%s{}", h, g.handlerType(t.Descriptor))
	g.w.Printf("%s.SetJspContext(pc)", h)
	g.w.Printf("%s.SetParent(%s)", h, g.parentHandler())

	if err := g.attributes(n); err != nil {
		return err
	}

	if t.Descriptor.BodyContent != taglib.BodyEmpty && !n.HasEmptyBody() {
		id, err := g.fragment(n.Content())
		if err != nil {
			return err
		}
		g.w.Printf("%s.SetJspBody(rt.NewFragment(pc, %s, frags, %d))", h, h, id)
	}

	g.check("%s.DoTag()", h)
	g.syncVariables(n, taglib.AtBegin, taglib.AtEnd)
	g.w.Println("return nil")
	return nil
}

// attributes passes the attribute values of an invocation to its handler.
func (g *generator) attributes(n *node.Node) error {
	h := n.Tag.HandlerVar

	for _, a := range n.Attrs {
		if a.Setter.Method == "" {
			panic(diag.Internal("gen: attribute %s of %s at %s is not bound", a.Name, n.QName, a.Start))
		}
		if a.Kind == node.AttrNamed && a.Named != nil && a.Named.AttrValue("omit") == "true" {
			continue
		}

		val, err := g.attrValue(h, a, a.Setter.Type)
		if err != nil {
			return err
		}

		if a.Setter.Dynamic {
			g.check("%s.%s(%s, %s, %s)", h, a.Setter.Method, strconv.Quote(a.URI), strconv.Quote(a.Local), val)
			continue
		}
		g.w.Printf("%s.%s(%s)", h, a.Setter.Method, val)
	}
	return nil
}

// attrValue writes what is needed to compute an attribute value and returns the expression
// holding it. Fragment values are bodies passed to handler h.
func (g *generator) attrValue(h string, a *node.Attribute, typ string) (string, error) {
	if a.Fragment {
		id, err := g.fragment(fragmentBody(a))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("rt.NewFragment(pc, %s, frags, %d)", h, id), nil
	}

	switch a.Kind {
	case node.AttrLiteral:
		return g.literal(typ, a.Value, a.Start)

	case node.AttrScript:
		return strings.TrimSpace(a.Value), nil

	case node.AttrEL:
		v := g.tmp()
		g.w.Printf("%s, err := rt.Eval[%s](pc, %s)", v, typ, g.el(a.Value))
		g.checkErr()
		return v, nil

	case node.AttrNamed:
		v := g.tmp()
		g.w.Printf("%s, err := rt.Capture(pc, %t, func() error {", v, a.Named.Trim)
		g.w.In()
		g.scope.push()
		if err := g.body(a.Named.Body); err != nil {
			return "", err
		}
		g.scope.pop()
		g.w.Println("return nil")
		g.w.Close("})")
		g.checkErr()

		switch typ {
		case "", "string", "any", "interface{}":
			return v, nil
		}
		c := g.tmp()
		g.w.Printf("%s, err := rt.Convert[%s](%s)", c, typ, v)
		g.checkErr()
		return c, nil
	}

	panic(diag.Internal("gen: unexpected attribute kind %s", a.Kind))
}

// fragmentBody returns the nodes a fragment attribute evaluates.
func fragmentBody(a *node.Attribute) []*node.Node {
	switch a.Kind {
	case node.AttrNamed:
		return a.Named.Body
	case node.AttrEL:
		n := node.New(node.KindELExpression, a.Start)
		n.Text, n.EL = a.Value, a.EL
		return []*node.Node{n}
	case node.AttrScript:
		n := node.New(node.KindExpression, a.Start)
		n.Text = a.Value
		return []*node.Node{n}
	}
	n := node.New(node.KindText, a.Start)
	n.Text = a.Value
	return []*node.Node{n}
}

func (g *generator) tmp() string {
	return "_v" + strconv.Itoa(g.next())
}

// declareVariables declares the AT_BEGIN and AT_END variables of an invocation which are not
// visible yet. The visible AT_BEGIN variables of a nested invocation are saved; the caller
// restores the returned names once the invocation is done.
func (g *generator) declareVariables(n *node.Node) []string {
	t := n.Tag

	var saved []string
	for _, v := range t.Variables {
		if v.Scope == taglib.Nested {
			continue
		}

		if g.scope.visible(v.Name) {
			if v.Scope == taglib.AtBegin && t.NestingLevel > 0 {
				slot := saveSlot(v.Name, t.NestingLevel)
				if g.scope.local(slot) {
					g.w.Printf("%s = %s", slot, v.Name)
				} else {
					g.w.Printf("%s := %s", slot, v.Name)
					g.scope.declare(slot)
				}
				saved = append(saved, v.Name)
			}
			continue
		}

		if v.Declare {
			g.w.Printf("var %s %s", v.Name, v.Type)
			g.w.Printf("_ = %s", v.Name)
			g.scope.declare(v.Name)
		}
	}
	return saved
}

// declareNested declares the NESTED variables of an invocation in its body block.
func (g *generator) declareNested(n *node.Node) {
	for _, v := range n.Tag.Variables {
		if v.Scope != taglib.Nested {
			continue
		}

		if v.Declare && !g.scope.local(v.Name) {
			g.w.Printf("%s := rt.Attr[%s](pc, %s)", v.Name, v.Type, strconv.Quote(v.Name))
			g.w.Printf("_ = %s", v.Name)
			g.scope.declare(v.Name)
			continue
		}
		g.w.Printf("%s = rt.Attr[%s](pc, %s)", v.Name, v.Type, strconv.Quote(v.Name))
	}
}

// syncVariables copies the variables of the given scopes from the page context.
func (g *generator) syncVariables(n *node.Node, scopes ...taglib.VariableScope) {
	for _, v := range n.Tag.Variables {
		if slices.Contains(scopes, v.Scope) {
			g.w.Printf("%s = rt.Attr[%s](pc, %s)", v.Name, v.Type, strconv.Quote(v.Name))
		}
	}
}
