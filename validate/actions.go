package validate

import (
	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/node"
)

var scopeValues = []string{"page", "request", "session", "application"}

var actionSigs = map[node.Kind][]attrSig{
	node.KindIncludeAction: {
		{name: "page", required: true, dynamic: true},
		{name: "flush", values: boolValues},
	},
	node.KindForwardAction: {
		{name: "page", required: true, dynamic: true},
	},
	node.KindGetProperty: {
		{name: "name", required: true},
		{name: "property", required: true},
	},
	node.KindSetProperty: {
		{name: "name", required: true},
		{name: "property", required: true},
		{name: "param"},
		{name: "value", dynamic: true},
	},
	node.KindUseBean: {
		{name: "id", required: true},
		{name: "scope", values: scopeValues},
		{name: "class"},
		{name: "type"},
		{name: "beanName", dynamic: true},
	},
	node.KindPlugin: {
		{name: "type", required: true, values: []string{"bean", "applet"}},
		{name: "code", required: true},
		{name: "codebase", required: true},
		{name: "align"},
		{name: "archive"},
		{name: "height", dynamic: true},
		{name: "hspace"},
		{name: "jreversion"},
		{name: "name"},
		{name: "vspace"},
		{name: "title"},
		{name: "width", dynamic: true},
		{name: "nspluginurl"},
		{name: "iepluginurl"},
		{name: "mayscript", values: boolValues},
	},
	node.KindParams:   {},
	node.KindFallback: {},
	node.KindParam: {
		{name: "name", required: true},
		{name: "value", required: true, dynamic: true},
	},
	node.KindNamedAttribute: {
		{name: "name", required: true},
		{name: "trim", values: boolValues},
		{name: "omit", dynamic: true},
	},
	node.KindJspBody: {},
	node.KindInvokeAction: {
		{name: "fragment", required: true},
		{name: "var"},
		{name: "varReader"},
		{name: "scope", values: scopeValues},
	},
	node.KindDoBodyAction: {
		{name: "var"},
		{name: "varReader"},
		{name: "scope", values: scopeValues},
	},
}

// action validates a standard action and its body.
func (v *validator) action(n, parent *node.Node, sc scope) node.ChildInfo {
	v.checkSignature(n, actionSigs[n.Kind])

	switch n.Kind {
	case node.KindParam:
		switch parent.Kind {
		case node.KindIncludeAction, node.KindForwardAction, node.KindParams:
		default:
			v.errorf(diag.IssueMisplacedAction, n.Start, "jsp:param must be a child of jsp:include, jsp:forward or jsp:params")
		}

	case node.KindParams, node.KindFallback:
		if parent.Kind != node.KindPlugin {
			v.errorf(diag.IssueMisplacedAction, n.Start, "%s must be a child of jsp:plugin", describe(n))
		}

	case node.KindUseBean:
		_, hasClass := n.Attr("class")
		_, hasType := n.Attr("type")
		_, hasBean := n.Attr("beanName")
		switch {
		case !hasClass && !hasType:
			v.errorf(diag.IssueMissingAttribute, n.Start, "jsp:useBean %s needs class or type", n.AttrValue("id"))
		case hasClass && hasBean:
			v.errorf(diag.IssueInvalidDirectiveAttribute, n.Start, "jsp:useBean %s: class and beanName are exclusive", n.AttrValue("id"))
		case hasBean && !hasType:
			v.errorf(diag.IssueMissingAttribute, n.Start, "jsp:useBean %s: beanName needs type", n.AttrValue("id"))
		}

	case node.KindSetProperty:
		if _, hasParam := n.Attr("param"); hasParam && supplied(n, "value") {
			v.errorf(diag.IssueInvalidDirectiveAttribute, n.Start, "jsp:setProperty: param and value are exclusive")
		}

	case node.KindInvokeAction, node.KindDoBodyAction:
		v.invocation(n)
	}

	info := v.children(n, sc)

	switch n.Kind {
	case node.KindUseBean:
		info.HasUseBean = true
	case node.KindIncludeAction, node.KindForwardAction:
		info.HasIncludeAction = true
	case node.KindSetProperty:
		info.HasSetProperty = true
	}

	n.Info = info
	return info
}

// invocation checks jsp:invoke and jsp:doBody, which only exist in tag files.
func (v *validator) invocation(n *node.Node) {
	tag := v.page.Tag
	if tag == nil {
		v.errorf(diag.IssueMisplacedAction, n.Start, "%s is only allowed in tag files", describe(n))
		return
	}

	_, hasVar := n.Attr("var")
	_, hasReader := n.Attr("varReader")
	if hasVar && hasReader {
		v.errorf(diag.IssueInvalidDirectiveAttribute, n.Start, "%s: var and varReader are exclusive", describe(n))
	}
	if _, hasScope := n.Attr("scope"); hasScope && !hasVar && !hasReader {
		v.errorf(diag.IssueInvalidDirectiveAttribute, n.Start, "%s: scope needs var or varReader", describe(n))
	}

	// Directives may follow the invocation, so the rest is checked once all are known.
	v.invocations = append(v.invocations, n)
}
