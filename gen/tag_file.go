package gen

import (
	"slices"
	"strconv"

	"github.com/Drolfothesgnir/pagec/taglib"
)

// dynamicField holds the undeclared attributes of a tag file accepting them.
const dynamicField = "dynamicAttrs"

// tagFileType writes the handler type of a tag file unit: one field and setter per attribute,
// and a DoTag running the body against a context of its own.
func (g *generator) tagFileType(out *Writer) {
	info := g.page.Tag
	typ := g.opts.TypeName

	var fields []string
	for _, a := range info.Attributes {
		fields = append(fields, fieldName(a.Name)+" "+attrType(a))
	}
	if info.DynamicAttributes != "" {
		fields = append(fields, dynamicField+" map[string]any")
	}

	out.Printf("// %s implements the tag file %s.", typ, g.root.Root.File)
	g.structType(out, "rt.SimpleTagSupport", fields...)
	out.Println("")

	for _, a := range info.Attributes {
		out.Open("func (t *%s) Set%s(v %s) {", typ, taglib.Exported(a.Name), attrType(a))
		out.Printf("t.%s = v", fieldName(a.Name))
		out.Close("}")
		out.Println("")
	}

	if info.DynamicAttributes != "" {
		out.Printf("// %s implements rt.DynamicAttributes.", taglib.DynamicAttributeMethod)
		out.Open("func (t *%s) %s(uri, name string, v any) error {", typ, taglib.DynamicAttributeMethod)
		out.Open("if t.%s == nil {", dynamicField)
		out.Printf("t.%s = map[string]any{}", dynamicField)
		out.Close("}")
		out.Printf("t.%s[name] = v", dynamicField)
		out.Println("return nil")
		out.Close("}")
		out.Println("")
	}

	out.Println("// DoTag implements rt.SimpleTag.")
	out.Open("func (t *%s) DoTag() error {", typ)
	out.Println("pc := rt.NewTagContext(t.JspContext())")
	out.Printf("frags := &%s{p: t}", g.fragType)
	for _, a := range info.Attributes {
		out.Printf("pc.SetAttribute(%s, t.%s)", strconv.Quote(a.Name), fieldName(a.Name))
	}
	if info.DynamicAttributes != "" {
		out.Printf("pc.SetAttribute(%s, t.%s)", strconv.Quote(info.DynamicAttributes), dynamicField)
	}
	if len(info.Variables) == 0 {
		out.Println("return t.render(pc, frags)")
		out.Close("}")
		out.Println("")
		return
	}
	out.Println("err := t.render(pc, frags)")
	out.Println("t.syncEnd(pc)")
	out.Println("return err")
	out.Close("}")
	out.Println("")

	g.syncMethod(out, "syncBegin", "copies the NESTED and AT_BEGIN variables to the calling page.",
		taglib.Nested, taglib.AtBegin)
	g.syncMethod(out, "syncEnd", "copies the AT_BEGIN and AT_END variables to the calling page.",
		taglib.AtBegin, taglib.AtEnd)
}

func (g *generator) syncMethod(out *Writer, name, doc string, scopes ...taglib.VariableScope) {
	out.Printf("// %s %s", name, doc)
	out.Open("func (t *%s) %s(pc *rt.PageContext) {", g.opts.TypeName, name)
	for _, v := range g.page.Tag.Variables {
		if !slices.Contains(scopes, v.Scope) {
			continue
		}
		if v.NameFromAttribute != "" {
			out.Printf("pc.Export(t.%s, %s)", fieldName(v.NameFromAttribute), strconv.Quote(v.Alias))
			continue
		}
		out.Printf("pc.Export(%s, %s)", strconv.Quote(v.NameGiven), strconv.Quote(v.NameGiven))
	}
	out.Close("}")
	out.Println("")
}

func attrType(a taglib.AttributeSig) string {
	if a.Fragment {
		return taglib.FragmentType
	}
	return a.GoType()
}
