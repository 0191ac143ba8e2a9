package node

import "fmt"

// Kind identifies the variant of a [Node].
type Kind int

const (
	// KindRoot is the synthetic root of a parsed unit.
	KindRoot Kind = iota

	// KindText is a run of literal template text.
	KindText

	KindPageDirective
	KindIncludeDirective
	KindTaglibDirective
	KindTagDirective
	KindAttributeDirective
	KindVariableDirective

	// KindDeclaration holds Go declarations placed at package level.
	KindDeclaration

	// KindExpression holds a Go expression whose value is written to the output.
	KindExpression

	// KindScriptlet holds Go statements placed in the render function.
	KindScriptlet

	// KindELExpression is a single ${...} or #{...} expression in template text.
	KindELExpression

	KindIncludeAction
	KindForwardAction
	KindGetProperty
	KindSetProperty
	KindUseBean
	KindPlugin
	KindParams
	KindParam
	KindFallback

	// KindNamedAttribute supplies the value of an attribute of its parent through nested content.
	KindNamedAttribute

	// KindJspBody wraps the body of its parent when the parent also has named attributes.
	KindJspBody

	KindInvokeAction
	KindDoBodyAction

	// KindJspText holds template text that is written as is.
	KindJspText

	// KindCustomTag is an invocation of a tag from a tag library.
	KindCustomTag

	// NumKinds is the number of node kinds.
	NumKinds
)

var kindNames = [NumKinds]string{
	KindRoot:               "root",
	KindText:               "text",
	KindPageDirective:      "page directive",
	KindIncludeDirective:   "include directive",
	KindTaglibDirective:    "taglib directive",
	KindTagDirective:       "tag directive",
	KindAttributeDirective: "attribute directive",
	KindVariableDirective:  "variable directive",
	KindDeclaration:        "declaration",
	KindExpression:         "expression",
	KindScriptlet:          "scriptlet",
	KindELExpression:       "EL expression",
	KindIncludeAction:      "jsp:include",
	KindForwardAction:      "jsp:forward",
	KindGetProperty:        "jsp:getProperty",
	KindSetProperty:        "jsp:setProperty",
	KindUseBean:            "jsp:useBean",
	KindPlugin:             "jsp:plugin",
	KindParams:             "jsp:params",
	KindParam:              "jsp:param",
	KindFallback:           "jsp:fallback",
	KindNamedAttribute:     "jsp:attribute",
	KindJspBody:            "jsp:body",
	KindInvokeAction:       "jsp:invoke",
	KindDoBodyAction:       "jsp:doBody",
	KindJspText:            "jsp:text",
	KindCustomTag:          "custom tag",
}

func (k Kind) String() string {
	if k < 0 || k >= NumKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// IsDirective reports whether k is one of the directive kinds.
func (k Kind) IsDirective() bool {
	return k >= KindPageDirective && k <= KindVariableDirective
}

// IsScripting reports whether k is a declaration, expression or scriptlet.
func (k Kind) IsScripting() bool {
	return k == KindDeclaration || k == KindExpression || k == KindScriptlet
}

// AllowsBody reports whether nodes of kind k may own children.
// A node's Body is nil exactly when its kind forbids children.
func (k Kind) AllowsBody() bool {
	switch k {
	case KindRoot, KindIncludeDirective, KindIncludeAction, KindForwardAction, KindSetProperty,
		KindUseBean, KindPlugin, KindParams, KindParam, KindFallback, KindNamedAttribute, KindJspBody,
		KindInvokeAction, KindDoBodyAction, KindJspText, KindCustomTag:
		return true
	case KindText, KindPageDirective, KindTaglibDirective, KindTagDirective, KindAttributeDirective,
		KindVariableDirective, KindDeclaration, KindExpression, KindScriptlet, KindELExpression,
		KindGetProperty:
		return false
	}
	panic(fmt.Sprintf("node: unexpected kind %d", int(k)))
}

// actionKinds maps standard action names to their kinds.
var actionKinds = map[string]Kind{
	"include":     KindIncludeAction,
	"forward":     KindForwardAction,
	"getProperty": KindGetProperty,
	"setProperty": KindSetProperty,
	"useBean":     KindUseBean,
	"plugin":      KindPlugin,
	"params":      KindParams,
	"param":       KindParam,
	"fallback":    KindFallback,
	"attribute":   KindNamedAttribute,
	"body":        KindJspBody,
	"invoke":      KindInvokeAction,
	"doBody":      KindDoBodyAction,
	"text":        KindJspText,
}

// ActionKind returns the kind of the standard action with the given local name.
func ActionKind(local string) (Kind, bool) {
	k, ok := actionKinds[local]
	return k, ok
}

// directiveKinds maps directive names to their kinds.
var directiveKinds = map[string]Kind{
	"page":      KindPageDirective,
	"include":   KindIncludeDirective,
	"taglib":    KindTaglibDirective,
	"tag":       KindTagDirective,
	"attribute": KindAttributeDirective,
	"variable":  KindVariableDirective,
}

// DirectiveKind returns the kind of the directive with the given name.
func DirectiveKind(name string) (Kind, bool) {
	k, ok := directiveKinds[name]
	return k, ok
}
