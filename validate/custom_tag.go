package validate

import (
	"errors"
	"strings"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/node"
	"github.com/Drolfothesgnir/pagec/taglib"
)

// customTag checks an invocation against its descriptor and resolves its scripting variables.
func (v *validator) customTag(n *node.Node, sc scope) node.ChildInfo {
	t := n.Tag
	d := t.Descriptor

	t.NestingLevel = sc.nesting
	t.Data = taglib.NewTagData()

	// 1. Inline attributes.
	for _, a := range n.Attrs {
		if a.Kind == node.AttrNamed {
			continue
		}
		v.tagAttribute(n, a)
	}

	// 2. Attributes supplied by jsp:attribute children become attributes of the tag.
	for _, na := range n.NamedAttributes() {
		if na.AttrName == "" {
			continue
		}

		if a, ok := n.Attr(na.AttrName); ok {
			switch {
			case a.Kind == node.AttrNamed && a.Named == na:
				v.tagAttribute(n, a)
			case a.Kind == node.AttrNamed:
				v.errorf(diag.IssueDuplicateNamedAttribute, na.Start,
					"attribute %s of %s is given twice with jsp:attribute", na.AttrName, describe(n))
			default:
				v.errorf(diag.IssueDuplicateNamedAttribute, na.Start,
					"attribute %s of %s is given both inline and with jsp:attribute", na.AttrName, describe(n))
			}
			continue
		}

		a := &node.Attribute{
			Name:  na.AttrName,
			Local: na.AttrName,
			Kind:  node.AttrNamed,
			Start: na.Start,
			Named: na,
		}
		if v.tagAttribute(n, a) {
			n.Attrs = append(n.Attrs, a)
		}
	}

	// 3. Required attributes.
	for _, sig := range d.Attributes {
		if sig.Required && !supplied(n, sig.Name) {
			v.errorf(diag.IssueMissingAttribute, n.Start, "%s requires attribute %s", describe(n), sig.Name)
		}
	}

	if d.BodyContent == taglib.BodyEmpty && !n.HasEmptyBody() {
		v.errorf(diag.IssueBodyNotEmpty, n.Start, "%s must have an empty body", describe(n))
	}

	if d.Validate != nil {
		if err := d.Validate(t.Data); err != nil {
			v.errorf(diag.IssueTagValidation, n.Start, "%s: %w", describe(n), err)
		}
	}

	// 4. Scripting variables.
	vars, err := d.Bindings(t.Data)
	switch {
	case errors.Is(err, taglib.ErrVariableConflict):
		v.errorf(diag.IssueVariableConflict, n.Start,
			"%s declares scripting variables and computes them per invocation", describe(n))
	case errors.Is(err, taglib.ErrRuntimeVariableName):
		v.errorf(diag.IssueRuntimeValueNotAllowed, n.Start, "%s: %v", describe(n), err)
	case err != nil:
		v.errorf(diag.IssueTagValidation, n.Start, "%s: %w", describe(n), err)
	}
	t.Variables = vars

	if _, ok := v.page.Prefixes[t.Prefix]; !ok {
		v.page.Prefixes[t.Prefix] = t.URI
	}

	// 5. The body.
	inner := scope{
		nesting:    sc.nesting + 1,
		scriptless: sc.scriptless || d.BodyContent == taglib.BodyScriptless,
		tag:        n,
	}

	info := node.ChildInfo{Scriptless: true}
	for _, c := range n.Body {
		csc := inner
		if c.Kind == node.KindNamedAttribute {
			// Attribute values belong to the enclosing scope, unless they are fragments.
			csc = sc
			csc.nesting = inner.nesting
			csc.tag = n
			if sig, ok := d.Attribute(c.AttrName); ok && sig.Fragment {
				csc.scriptless = true
			}
		}
		info = merge(info, v.visit(c, n, csc))
	}
	info = merge(info, v.attributeInfo(n, sc))

	n.Info = info
	return node.ChildInfo{
		Scriptless:       info.Scriptless,
		HasScriptingVars: info.HasScriptingVars || len(vars) > 0,
		HasUseBean:       info.HasUseBean,
		HasIncludeAction: info.HasIncludeAction,
		HasSetProperty:   info.HasSetProperty,
	}
}

// tagAttribute checks one attribute against the descriptor, binds its setter and records it
// in the tag data. It reports whether the attribute is acceptable.
func (v *validator) tagAttribute(n *node.Node, a *node.Attribute) bool {
	d := n.Tag.Descriptor

	sig, declared := d.Attribute(a.Name)
	if !declared && !d.DynamicAttributes {
		v.errorf(diag.IssueUnknownAttribute, a.Start, "%s has no attribute %s", describe(n), a.Name)
		return false
	}

	runtime := a.IsRuntime()
	if a.Kind == node.AttrNamed {
		runtime = !node.HasOnlyText(a.Named)
	}
	if declared && runtime && !sig.Dynamic && !sig.Fragment {
		v.errorf(diag.IssueRuntimeValueNotAllowed, a.Start,
			"attribute %s of %s does not accept runtime expressions", a.Name, describe(n))
		return false
	}

	setter, ok := v.binder.Bind(d, a.Name)
	if !ok {
		v.errorf(diag.IssueUnknownAttribute, a.Start, "%s: no setter for attribute %s", describe(n), a.Name)
		return false
	}
	a.Setter = setter
	a.Fragment = sig.Fragment

	switch {
	case runtime || sig.Fragment:
		n.Tag.Data.SetRuntime(a.Name)
	case a.Kind == node.AttrNamed:
		n.Tag.Data.Set(a.Name, namedText(a.Named))
	default:
		n.Tag.Data.Set(a.Name, a.Value)
	}

	if a.Kind == node.AttrEL {
		v.expression(a.EL, a.Start)
	}
	return true
}

// namedText returns the value of a named attribute holding only text.
func namedText(n *node.Node) string {
	var b strings.Builder
	collectText(&b, n)
	if n.Trim {
		return strings.TrimSpace(b.String())
	}
	return b.String()
}

func collectText(b *strings.Builder, n *node.Node) {
	for _, c := range n.Content() {
		switch c.Kind {
		case node.KindText:
			b.WriteString(c.Text)
		case node.KindJspText, node.KindJspBody:
			collectText(b, c)
		}
	}
}
