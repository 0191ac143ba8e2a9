package gen

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/node"
)

// action generates a standard action.
func (g *generator) action(n *node.Node) error {
	g.w.Begin(n)
	defer g.w.End(n)

	switch n.Kind {
	case node.KindIncludeAction:
		return g.include(n)
	case node.KindForwardAction:
		return g.forward(n)
	case node.KindUseBean:
		return g.useBean(n)
	case node.KindGetProperty:
		g.check("rt.WriteProperty(pc, %s, %s)", strconv.Quote(n.AttrValue("name")), strconv.Quote(n.AttrValue("property")))
		return nil
	case node.KindSetProperty:
		return g.setProperty(n)
	case node.KindPlugin:
		return g.plugin(n)
	case node.KindInvokeAction, node.KindDoBodyAction:
		return g.invoke(n)
	}

	panic(diag.Internal("gen: %s is not a standard action", n.Kind))
}

// actionValue returns the expression of an attribute of a standard action, given inline or by
// a named attribute, converted to typ. Absent attributes yield the zero value.
func (g *generator) actionValue(n *node.Node, name, typ string) (string, error) {
	a, ok := n.Attr(name)
	if !ok {
		na, ok := n.NamedAttribute(name)
		if !ok {
			if typ == "string" {
				return `""`, nil
			}
			return "nil", nil
		}
		a = &node.Attribute{Name: name, Local: name, Kind: node.AttrNamed, Start: na.Start, Named: na}
	}
	return g.attrValue("", a, typ)
}

// params returns the parameter list built from the jsp:param elements among nodes.
func (g *generator) params(nodes []*node.Node) (string, error) {
	var entries []string
	for _, p := range nodes {
		if p.Kind != node.KindParam {
			continue
		}

		name, err := g.actionValue(p, "name", "string")
		if err != nil {
			return "", err
		}
		value, err := g.actionValue(p, "value", "string")
		if err != nil {
			return "", err
		}
		entries = append(entries, fmt.Sprintf("{Name: %s, Value: %s}", name, value))
	}

	if len(entries) == 0 {
		return "nil", nil
	}
	return "rt.Params{" + strings.Join(entries, ", ") + "}", nil
}

func (g *generator) include(n *node.Node) error {
	page, err := g.actionValue(n, "page", "string")
	if err != nil {
		return err
	}
	params, err := g.params(n.Body)
	if err != nil {
		return err
	}

	flush := n.AttrValue("flush") == "true"
	g.check("pc.Include(%s, %t, %s)", page, flush, params)
	return nil
}

// forward hands the request over and stops the unit.
func (g *generator) forward(n *node.Node) error {
	page, err := g.actionValue(n, "page", "string")
	if err != nil {
		return err
	}
	params, err := g.params(n.Body)
	if err != nil {
		return err
	}

	g.check("pc.Forward(%s, %s)", page, params)
	g.w.Println("return rt.ErrSkipPage")
	return nil
}

// useBean declares the bean's variable for the rest of the unit and runs the body only when the
// bean is created.
func (g *generator) useBean(n *node.Node) error {
	id := n.AttrValue("id")
	class := n.AttrValue("class")
	beanName := n.AttrValue("beanName")

	scope := n.AttrValue("scope")
	if scope == "" {
		scope = "page"
	}

	typ := n.AttrValue("type")
	if typ == "" {
		typ = "*" + class
	}

	ctor := "nil"
	switch {
	case beanName != "":
		name, err := g.actionValue(n, "beanName", "string")
		if err != nil {
			return err
		}
		ctor = fmt.Sprintf("func() (%s, error) { return rt.Instantiate[%s](pc, %s) }", typ, typ, name)
	case class != "":
		ctor = fmt.Sprintf("func() (%s, error) { return &%s{}, nil }", typ, class)
	}

	if !g.scope.visible(id) {
		g.w.Printf("var %s %s", id, typ)
		g.w.Printf("_ = %s", id)
		g.scope.declare(id)
	}

	body := !n.HasEmptyBody()
	v := g.tmp()
	created := "_"
	if body {
		created = v + "_created"
	}

	g.w.Open("{")
	g.w.Printf("%s, %s, err := rt.UseBean[%s](pc, %s, %s, %s)", v, created, typ, strconv.Quote(id), strconv.Quote(scope), ctor)
	g.checkErr()
	g.w.Printf("%s = %s", id, v)
	if body {
		g.w.Open("if %s {", created)
		g.scope.push()
		if err := g.body(n.Content()); err != nil {
			return err
		}
		g.scope.pop()
		g.w.Close("}")
	}
	g.w.Close("}")
	return nil
}

func (g *generator) setProperty(n *node.Node) error {
	name := strconv.Quote(n.AttrValue("name"))
	property := n.AttrValue("property")

	if property == "*" {
		g.check("rt.SetPropertiesFromRequest(pc, %s)", name)
		return nil
	}

	_, hasValue := n.Attr("value")
	if _, named := n.NamedAttribute("value"); hasValue || named {
		value, err := g.actionValue(n, "value", "any")
		if err != nil {
			return err
		}
		g.check("rt.SetProperty(pc, %s, %s, %s)", name, strconv.Quote(property), value)
		return nil
	}

	param := n.AttrValue("param")
	if param == "" {
		param = property
	}
	g.check("rt.SetPropertyFromParam(pc, %s, %s, %s)", name, strconv.Quote(property), strconv.Quote(param))
	return nil
}

func (g *generator) plugin(n *node.Node) error {
	var attrs []string
	for _, a := range n.Attrs {
		v, err := g.attrValue("", a, "string")
		if err != nil {
			return err
		}
		attrs = append(attrs, strconv.Quote(a.Name)+": "+v)
	}
	slices.Sort(attrs)

	params := "nil"
	fallback := ""
	for _, c := range n.Body {
		switch c.Kind {
		case node.KindParams:
			var err error
			if params, err = g.params(c.Body); err != nil {
				return err
			}
		case node.KindFallback:
			fallback = plainText(c.Body)
		}
	}

	g.w.Open("if err := rt.WritePlugin(pc, rt.Plugin{")
	g.w.Printf("Attrs: map[string]string{%s},", strings.Join(attrs, ", "))
	g.w.Printf("Params: %s,", params)
	g.w.Printf("Fallback: %s,", strconv.Quote(fallback))
	g.w.Out()
	g.w.Println("}); err != nil {")
	g.w.In()
	g.w.Println("return err")
	g.w.Close("}")
	return nil
}

// invoke evaluates a fragment attribute or the body of a tag file.
func (g *generator) invoke(n *node.Node) error {
	if g.page.Tag == nil {
		panic(diag.Internal("gen: %s outside a tag file at %s", n.Kind, n.Start))
	}

	frag := g.recv + ".JspBody()"
	if n.Kind == node.KindInvokeAction {
		frag = g.recv + "." + fieldName(n.AttrValue("fragment"))
	}

	mode, name := "", ""
	switch {
	case n.AttrValue("var") != "":
		mode, name = "var", n.AttrValue("var")
	case n.AttrValue("varReader") != "":
		mode, name = "varReader", n.AttrValue("varReader")
	}

	scope := n.AttrValue("scope")
	if scope == "" {
		scope = "page"
	}

	if len(g.page.Tag.Variables) > 0 {
		g.w.Printf("%s.syncBegin(pc)", g.recv)
	}
	g.check("rt.Invoke(pc, %s, %s, %s, %s)", frag, strconv.Quote(mode), strconv.Quote(name), strconv.Quote(scope))
	return nil
}

// plainText concatenates the text of nodes, looking through jsp:text.
func plainText(nodes []*node.Node) string {
	var b strings.Builder
	for _, c := range nodes {
		switch c.Kind {
		case node.KindText:
			b.WriteString(c.Text)
		case node.KindJspText:
			b.WriteString(plainText(c.Body))
		}
	}
	return b.String()
}
