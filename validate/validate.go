// Package validate checks a parsed tree against the directive signatures and the tag
// library contracts, and annotates it in place for the generator.
package validate

import (
	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/node"
	"github.com/Drolfothesgnir/pagec/reader"
	"github.com/Drolfothesgnir/pagec/taglib"
)

// Options configures a validation pass.
type Options struct {
	// Resolver resolves the libraries of EL function prefixes.
	Resolver taglib.Resolver

	// Binder resolves attribute setters; nil means [taglib.DefaultBinder].
	Binder taglib.Binder

	// Overflow and MaxErrors bound the number of errors collected before giving up.
	Overflow  diag.OverflowPolicy
	MaxErrors int
}

// scope is the part of the validation state inherited by nested nodes.
type scope struct {
	// nesting is the number of enclosing custom tags.
	nesting int

	// scriptless is set below scriptless bodies and fragment attributes.
	scriptless bool

	// tag is the innermost enclosing custom tag.
	tag *node.Node
}

type validator struct {
	opts   Options
	binder taglib.Binder
	errs   *diag.Errors
	page   *node.PageInfo

	// directives holds the first value of every page and tag directive attribute.
	directives map[string]directiveValue

	// declared holds the attribute and variable names declared by a tag file.
	declared map[string]reader.Mark

	// invocations are the jsp:invoke and jsp:doBody actions of a tag file.
	invocations []*node.Node
}

// Validate checks the tree of one unit. It sets the unit's PageInfo and annotates custom
// tags with their variables, nesting levels, attribute setters and child info.
//
// Validation continues after an error; the result is a diag.ErrorList of everything found.
func Validate(root *node.Node, opts Options) error {
	if root.Kind != node.KindRoot || root.Root == nil {
		panic(diag.Internal("validate: %s is not a root node", root.Kind))
	}

	errs, err := diag.NewErrors(opts.Overflow, opts.MaxErrors)
	if err != nil {
		return err
	}

	v := &validator{
		opts:       opts,
		binder:     opts.Binder,
		errs:       errs,
		page:       node.NewPageInfo(),
		directives: map[string]directiveValue{},
		declared:   map[string]reader.Mark{},
	}
	if v.binder == nil {
		v.binder = taglib.DefaultBinder{}
	}

	if root.Root.TagFile {
		v.page.Tag = &node.TagInfo{BodyContent: taglib.BodyScriptless}
	}

	root.Info = v.children(root, scope{})
	v.finish(root)

	root.Root.Page = v.page
	return errs.Err()
}

func (v *validator) errorf(issue diag.Issue, m reader.Mark, format string, args ...any) {
	v.errs.Add(diag.Errorf(issue, m, format, args...))
}

// visit validates n and returns the summary of its subtree, n included.
func (v *validator) visit(n, parent *node.Node, sc scope) node.ChildInfo {
	switch n.Kind {
	case node.KindRoot:
		panic(diag.Internal("validate: nested root node at %s", n.Start))

	case node.KindText, node.KindJspText:
		return v.children(n, sc)

	case node.KindPageDirective, node.KindIncludeDirective, node.KindTaglibDirective,
		node.KindTagDirective, node.KindAttributeDirective, node.KindVariableDirective:
		v.directive(n)
		return v.children(n, sc)

	case node.KindDeclaration, node.KindExpression, node.KindScriptlet:
		if sc.scriptless {
			v.errorf(diag.IssueScriptingNotAllowed, n.Start, "%s is not allowed in a scriptless body", n.Kind)
		}
		return node.ChildInfo{}

	case node.KindELExpression:
		v.expression(n.EL, n.Start)
		n.Info = node.ChildInfo{Scriptless: true}
		return n.Info

	case node.KindIncludeAction, node.KindForwardAction, node.KindGetProperty, node.KindSetProperty,
		node.KindUseBean, node.KindPlugin, node.KindParams, node.KindParam, node.KindFallback,
		node.KindNamedAttribute, node.KindJspBody, node.KindInvokeAction, node.KindDoBodyAction:
		return v.action(n, parent, sc)

	case node.KindCustomTag:
		return v.customTag(n, sc)
	}

	panic(diag.Internal("validate: unexpected node kind %d", int(n.Kind)))
}

// children validates the body of n and returns the summary of n's subtree.
func (v *validator) children(n *node.Node, sc scope) node.ChildInfo {
	info := node.ChildInfo{Scriptless: true}
	for _, c := range n.Body {
		info = merge(info, v.visit(c, n, sc))
	}
	info = merge(info, v.attributeInfo(n, sc))

	n.Info = info
	return info
}

// attributeInfo checks the <%= %> attribute values of n.
func (v *validator) attributeInfo(n *node.Node, sc scope) node.ChildInfo {
	info := node.ChildInfo{Scriptless: true}
	for _, a := range n.Attrs {
		if a.Kind != node.AttrScript {
			continue
		}
		info.Scriptless = false
		if sc.scriptless {
			v.errorf(diag.IssueScriptingNotAllowed, a.Start,
				"expression value of attribute %s is not allowed in a scriptless body", a.Name)
		}
	}
	return info
}

func merge(a, b node.ChildInfo) node.ChildInfo {
	return node.ChildInfo{
		Scriptless:       a.Scriptless && b.Scriptless,
		HasScriptingVars: a.HasScriptingVars || b.HasScriptingVars,
		HasUseBean:       a.HasUseBean || b.HasUseBean,
		HasIncludeAction: a.HasIncludeAction || b.HasIncludeAction,
		HasSetProperty:   a.HasSetProperty || b.HasSetProperty,
	}
}
