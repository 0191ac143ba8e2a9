package validate

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/node"
	"github.com/Drolfothesgnir/pagec/reader"
	"github.com/Drolfothesgnir/pagec/taglib"
)

// attrSig is the signature of one attribute of a directive or a standard action.
type attrSig struct {
	name     string
	required bool

	// dynamic attributes accept EL and <%= %> values.
	dynamic bool

	// values is the domain of the attribute; nil means any value.
	values []string
}

var boolValues = []string{"true", "false"}

var directiveSigs = map[node.Kind][]attrSig{
	node.KindPageDirective: {
		{name: "language", values: []string{"go"}},
		{name: "import"},
		{name: "session", values: boolValues},
		{name: "buffer"},
		{name: "autoFlush", values: boolValues},
		{name: "isThreadSafe", values: boolValues},
		{name: "info"},
		{name: "errorPage"},
		{name: "isErrorPage", values: boolValues},
		{name: "contentType"},
		{name: "pageEncoding"},
		{name: "isELIgnored", values: boolValues},
		{name: "trimDirectiveWhitespaces", values: boolValues},
	},
	node.KindIncludeDirective: {
		{name: "file", required: true},
	},
	node.KindTaglibDirective: {
		{name: "prefix", required: true},
		{name: "uri"},
		{name: "tagdir"},
	},
	node.KindTagDirective: {
		{name: "display-name"},
		{name: "body-content", values: []string{"empty", "scriptless", "tagdependent"}},
		{name: "dynamic-attributes"},
		{name: "small-icon"},
		{name: "large-icon"},
		{name: "description"},
		{name: "example"},
		{name: "language", values: []string{"go"}},
		{name: "import"},
		{name: "pageEncoding"},
		{name: "isELIgnored", values: boolValues},
		{name: "trimDirectiveWhitespaces", values: boolValues},
	},
	node.KindAttributeDirective: {
		{name: "name", required: true},
		{name: "required", values: boolValues},
		{name: "fragment", values: boolValues},
		{name: "rtexprvalue", values: boolValues},
		{name: "type"},
		{name: "description"},
	},
	node.KindVariableDirective: {
		{name: "name-given"},
		{name: "name-from-attribute"},
		{name: "alias"},
		{name: "variable-class"},
		{name: "declare", values: boolValues},
		{name: "scope", values: []string{"AT_BEGIN", "NESTED", "AT_END"}},
		{name: "description"},
	},
}

// checkSignature validates the attributes of n against sigs. Named attribute children count
// as supplied attributes. It reports false if any error was found.
func (v *validator) checkSignature(n *node.Node, sigs []attrSig) bool {
	ok := true

	for _, a := range n.Attrs {
		if a.Kind == node.AttrNamed {
			continue
		}

		i := slices.IndexFunc(sigs, func(s attrSig) bool { return s.name == a.Name })
		if i < 0 {
			issue := diag.IssueUnknownAttribute
			if n.Kind.IsDirective() {
				issue = diag.IssueInvalidDirectiveAttribute
			}
			v.errorf(issue, a.Start, "%s has no attribute %s", describe(n), a.Name)
			ok = false
			continue
		}

		sig := sigs[i]
		if a.IsRuntime() && !sig.dynamic {
			v.errorf(diag.IssueRuntimeValueNotAllowed, a.Start,
				"attribute %s of %s does not accept runtime expressions", a.Name, describe(n))
			ok = false
			continue
		}

		if sig.values != nil && a.Kind == node.AttrLiteral && !slices.Contains(sig.values, a.Value) {
			v.errorf(diag.IssueInvalidDirectiveValue, a.Start, "invalid value %q for attribute %s of %s, expected one of %s",
				a.Value, a.Name, describe(n), strings.Join(sig.values, ", "))
			ok = false
		}

		if a.Kind == node.AttrEL {
			v.expression(a.EL, a.Start)
		}
	}

	named := map[string]bool{}
	for _, c := range n.NamedAttributes() {
		if c.AttrName == "" {
			continue
		}

		if named[c.AttrName] {
			v.errorf(diag.IssueDuplicateNamedAttribute, c.Start,
				"attribute %s of %s is given twice with jsp:attribute", c.AttrName, describe(n))
			ok = false
			continue
		}
		named[c.AttrName] = true

		if !slices.ContainsFunc(sigs, func(s attrSig) bool { return s.name == c.AttrName }) {
			v.errorf(diag.IssueUnknownAttribute, c.Start, "%s has no attribute %s", describe(n), c.AttrName)
			ok = false
			continue
		}

		if _, inline := n.Attr(c.AttrName); inline {
			v.errorf(diag.IssueDuplicateNamedAttribute, c.Start,
				"attribute %s of %s is given both inline and with jsp:attribute", c.AttrName, describe(n))
			ok = false
		}
	}

	for _, sig := range sigs {
		if sig.required && !supplied(n, sig.name) {
			v.errorf(diag.IssueMissingAttribute, n.Start, "%s requires attribute %s", describe(n), sig.name)
			ok = false
		}
	}

	return ok
}

// supplied reports whether attr is given inline or by a named attribute child.
func supplied(n *node.Node, attr string) bool {
	if _, ok := n.Attr(attr); ok {
		return true
	}
	_, ok := n.NamedAttribute(attr)
	return ok
}

// directiveValue is the first occurrence of a directive attribute in a unit.
type directiveValue struct {
	value string
	mark  reader.Mark
}

func (v *validator) directive(n *node.Node) {
	if !v.checkSignature(n, directiveSigs[n.Kind]) {
		return
	}

	tagFile := v.page.Tag != nil

	switch n.Kind {
	case node.KindPageDirective:
		if tagFile {
			v.errorf(diag.IssueMisplacedDirective, n.Start, "the page directive is not allowed in a tag file, use the tag directive")
			return
		}
		v.pageDirective(n)

	case node.KindTagDirective, node.KindAttributeDirective, node.KindVariableDirective:
		if !tagFile {
			v.errorf(diag.IssueMisplacedDirective, n.Start, "%s is only allowed in tag files", describe(n))
			return
		}

		switch n.Kind {
		case node.KindTagDirective:
			v.pageDirective(n)
		case node.KindAttributeDirective:
			v.attributeDirective(n)
		default:
			v.variableDirective(n)
		}

	case node.KindTaglibDirective:
		prefix := n.AttrValue("prefix")
		uri := n.AttrValue("uri")
		if dir, ok := n.Attr("tagdir"); ok {
			uri = taglib.TagDirScheme + dir.Value
		}
		if _, ok := v.page.Prefixes[prefix]; !ok {
			v.page.Prefixes[prefix] = uri
		}
	}
}

// remember records the value of a page or tag directive attribute, reporting a conflict
// with an earlier different value.
func (v *validator) remember(n *node.Node, a *node.Attribute) bool {
	key := n.Kind.String() + "/" + a.Name

	first, seen := v.directives[key]
	if !seen {
		v.directives[key] = directiveValue{value: a.Value, mark: a.Start}
		return true
	}

	if first.value != a.Value {
		v.errorf(diag.IssueDirectiveConflict, a.Start, "%s: attribute %s was set to %q at %s, cannot set it to %q",
			describe(n), a.Name, first.value, first.mark, a.Value)
		return false
	}
	return true
}

var bufferSize = regexp.MustCompile(`^([0-9]+)kb$`)

// pageDirective merges a page or tag directive into the page info.
func (v *validator) pageDirective(n *node.Node) {
	p := v.page

	for _, a := range n.Attrs {
		if a.Name == "import" {
			for _, imp := range strings.Split(a.Value, ",") {
				if imp = strings.TrimSpace(imp); imp != "" && !slices.Contains(p.Imports, imp) {
					p.Imports = append(p.Imports, imp)
				}
			}
			continue
		}

		if !v.remember(n, a) {
			continue
		}

		switch a.Name {
		case "contentType":
			p.ContentType = a.Value
		case "pageEncoding":
			p.PageEncoding = a.Value
		case "session":
			p.Session = a.Value == "true"
		case "autoFlush":
			p.AutoFlush = a.Value == "true"
		case "buffer":
			v.buffer(a)
		case "info":
			p.Info = a.Value
		case "errorPage":
			p.ErrorPage = a.Value
		case "isErrorPage":
			p.IsErrorPage = a.Value == "true"
		case "isELIgnored":
			p.ELIgnored = a.Value == "true"
		case "trimDirectiveWhitespaces":
			p.TrimSpaces = a.Value == "true"

		case "display-name":
			p.Tag.DisplayName = a.Value
		case "description":
			p.Tag.Description = a.Value
		case "dynamic-attributes":
			p.Tag.DynamicAttributes = a.Value
			v.declare(a.Value, a.Start)
		case "body-content":
			// The value was checked against the signature.
			p.Tag.BodyContent, _ = taglib.ParseBodyContent(a.Value)
		}
	}
}

func (v *validator) buffer(a *node.Attribute) {
	if a.Value == "none" {
		v.page.Buffer = 0
		return
	}

	m := bufferSize.FindStringSubmatch(a.Value)
	if m == nil {
		v.errorf(diag.IssueInvalidDirectiveValue, a.Start, `invalid buffer size %q, expected "none" or a size such as "8kb"`, a.Value)
		return
	}

	kb, err := strconv.Atoi(m[1])
	if err != nil {
		v.errorf(diag.IssueInvalidDirectiveValue, a.Start, "invalid buffer size %q: %v", a.Value, err)
		return
	}
	v.page.Buffer = kb * 1024
}

// declare reserves a name among the attributes and variables of a tag file.
func (v *validator) declare(name string, m reader.Mark) bool {
	if first, ok := v.declared[name]; ok {
		v.errorf(diag.IssueDirectiveConflict, m, "%s is already declared at %s", name, first)
		return false
	}
	v.declared[name] = m
	return true
}

func (v *validator) attributeDirective(n *node.Node) {
	name := n.AttrValue("name")
	if !v.declare(name, n.Start) {
		return
	}

	sig := taglib.AttributeSig{
		Name:     name,
		Required: n.AttrValue("required") == "true",
		Fragment: n.AttrValue("fragment") == "true",
		Dynamic:  n.AttrValue("rtexprvalue") != "false",
		Type:     n.AttrValue("type"),
	}

	if sig.Fragment {
		for _, conflicting := range []string{"rtexprvalue", "type"} {
			if _, ok := n.Attr(conflicting); ok {
				v.errorf(diag.IssueInvalidDirectiveAttribute, n.Start,
					"attribute %s: %s must not be given for a fragment attribute", name, conflicting)
			}
		}
		sig.Dynamic = true
	}

	v.page.Tag.Attributes = append(v.page.Tag.Attributes, sig)
}

func (v *validator) variableDirective(n *node.Node) {
	given, hasGiven := n.Attr("name-given")
	fromAttr, hasFrom := n.Attr("name-from-attribute")
	alias, hasAlias := n.Attr("alias")

	switch {
	case hasGiven == hasFrom:
		v.errorf(diag.IssueInvalidDirectiveAttribute, n.Start,
			"the variable directive needs exactly one of name-given and name-from-attribute")
		return
	case hasFrom && !hasAlias:
		v.errorf(diag.IssueMissingAttribute, n.Start, "the variable directive needs alias with name-from-attribute")
		return
	case hasGiven && hasAlias:
		v.errorf(diag.IssueInvalidDirectiveAttribute, n.Start, "alias is only allowed with name-from-attribute")
		return
	}

	scope, _ := taglib.ParseVariableScope(n.AttrValue("scope"))
	tv := node.TagFileVariable{
		VariableDecl: taglib.VariableDecl{
			Type:    n.AttrValue("variable-class"),
			Declare: n.AttrValue("declare") != "false",
			Scope:   scope,
		},
	}

	if hasGiven {
		if !v.declare(given.Value, n.Start) {
			return
		}
		tv.NameGiven = given.Value
	} else {
		if !v.declare(alias.Value, n.Start) {
			return
		}
		tv.NameFromAttribute = fromAttr.Value
		tv.Alias = alias.Value
	}

	v.page.Tag.Variables = append(v.page.Tag.Variables, tv)
}

// finish runs the checks that need all directives of the unit.
func (v *validator) finish(root *node.Node) {
	p := v.page

	if !p.AutoFlush && p.Buffer == 0 {
		v.errorf(diag.IssueInvalidDirectiveValue, root.Start, `autoFlush="false" requires a buffer`)
	}

	if p.Tag == nil {
		return
	}

	for _, n := range v.invocations {
		if n.Kind == node.KindDoBodyAction {
			if p.Tag.BodyContent == taglib.BodyEmpty {
				v.errorf(diag.IssueMisplacedAction, n.Start, "jsp:doBody in a tag file declaring an empty body")
			}
			continue
		}

		name := n.AttrValue("fragment")
		i := slices.IndexFunc(p.Tag.Attributes, func(a taglib.AttributeSig) bool { return a.Name == name })
		if i < 0 || !p.Tag.Attributes[i].Fragment {
			v.errorf(diag.IssueInvalidDirectiveValue, n.Start, "jsp:invoke: %s is not a fragment attribute of the tag file", name)
		}
	}

	for _, tv := range p.Tag.Variables {
		if tv.NameFromAttribute == "" {
			continue
		}

		i := slices.IndexFunc(p.Tag.Attributes, func(a taglib.AttributeSig) bool { return a.Name == tv.NameFromAttribute })
		if i < 0 {
			v.errorf(diag.IssueInvalidDirectiveValue, root.Start,
				"variable %s takes its name from attribute %s, which is not declared", tv.Alias, tv.NameFromAttribute)
			continue
		}

		a := p.Tag.Attributes[i]
		if !a.Required || a.Dynamic || a.Fragment || a.GoType() != taglib.DefaultAttributeType {
			v.errorf(diag.IssueInvalidDirectiveValue, root.Start,
				"attribute %s names variable %s and must be a required static string", a.Name, tv.Alias)
		}
	}
}

// describe names a node for error messages.
func describe(n *node.Node) string {
	if n.Kind.IsDirective() {
		return n.QName + " directive"
	}
	if n.QName != "" {
		return n.QName
	}
	return n.Kind.String()
}
