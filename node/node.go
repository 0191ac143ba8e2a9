// Package node defines the tree a page is parsed into.
//
// The shape of the tree is fixed by the parser. The validator and the generator annotate
// nodes in place but never add, remove or move them.
package node

import (
	"github.com/Drolfothesgnir/pagec/el"
	"github.com/Drolfothesgnir/pagec/reader"
	"github.com/Drolfothesgnir/pagec/taglib"
)

// Node is one element of a parsed page.
type Node struct {
	Kind Kind

	// Start is the position of the first character of the node.
	Start reader.Mark

	// QName is the element or directive name as written, e.g. "jsp:include", "c:if" or "page".
	QName string

	// Attrs are the attributes in source order.
	Attrs []*Attribute

	// Body holds the children; nil iff the kind forbids children.
	Body []*Node

	// Text is the content of text, declaration, expression and scriptlet nodes, and the
	// source of EL expression nodes.
	Text string

	// EL is the checked expression of an EL expression node.
	EL *el.Expression

	// Tag is set on custom tags.
	Tag *CustomTag

	// Root is set on the root node.
	Root *RootInfo

	// AttrName is the attribute a named attribute node supplies.
	AttrName string

	// Trim controls whether a named attribute's value is trimmed.
	Trim bool

	// InScriptless is set by the parser on nodes inside a scriptless body.
	InScriptless bool

	// Info summarises the subtree. It is computed by the validator.
	Info ChildInfo

	// BeginOut and EndOut are the first and last generated lines of the node, set by the generator.
	BeginOut int
	EndOut   int
}

// ChildInfo describes what a node's subtree contains.
type ChildInfo struct {
	// Scriptless is true if no declaration, scriptlet or expression appears in the subtree.
	Scriptless bool

	// HasScriptingVars is true if a custom tag in the subtree introduces scripting variables.
	HasScriptingVars bool

	// HasUseBean, HasIncludeAction and HasSetProperty record standard actions in the subtree.
	HasUseBean       bool
	HasIncludeAction bool
	HasSetProperty   bool
}

// RootInfo describes the unit a root node was parsed from.
type RootInfo struct {
	File     string
	XML      bool
	TagFile  bool
	Encoding string

	// Page is filled in by the validator.
	Page *PageInfo
}

// CustomTag is the payload of a custom tag node.
type CustomTag struct {
	Prefix string
	Local  string
	URI    string

	// Descriptor is resolved by the parser.
	Descriptor *taglib.Descriptor

	// SelfClosed is true for tags written as <p:t/>.
	SelfClosed bool

	// NestingLevel counts enclosing custom tags, set by the validator.
	NestingLevel int

	// Variables are the scripting variables of this invocation, set by the validator.
	Variables []taglib.VariableBinding

	// Data holds the translation-time attribute values, set by the validator.
	Data *taglib.TagData

	// Generator-assigned names. They are unique within a compiled unit.
	HandlerVar  string
	PoolName    string
	EvalVar     string
	PushBodyVar string
}

// AttrKind is the shape of an attribute value.
type AttrKind int

const (
	// AttrLiteral is a plain quoted value.
	AttrLiteral AttrKind = iota

	// AttrEL is a value holding one or more EL expressions.
	AttrEL

	// AttrScript is a Go expression written as <%= expr %>.
	AttrScript

	// AttrNamed is a value supplied by a named attribute child.
	AttrNamed
)

func (k AttrKind) String() string {
	switch k {
	case AttrLiteral:
		return "literal"
	case AttrEL:
		return "EL"
	case AttrScript:
		return "expression"
	case AttrNamed:
		return "named"
	}
	return "unknown"
}

// Attribute is an attribute value of a directive, action or custom tag.
type Attribute struct {
	// Name is the name as written, possibly prefixed.
	Name string

	// Local is the name without its prefix.
	Local string

	// URI is the namespace of a prefixed attribute.
	URI string

	// Value is the unescaped literal, the EL source or the Go expression.
	Value string

	Kind  AttrKind
	Start reader.Mark

	// Named is the named attribute node for AttrNamed values.
	Named *Node

	// EL is the checked expression of AttrEL values, set by the parser.
	EL *el.Expression

	// Setter is bound by the validator for custom tag attributes.
	Setter taglib.Setter

	// Fragment is true for values passed as fragments, set by the validator.
	Fragment bool
}

// IsRuntime reports whether the value is only known when the page runs.
func (a *Attribute) IsRuntime() bool {
	return a.Kind != AttrLiteral
}

// New creates a node, with an empty non-nil Body if the kind allows children.
func New(kind Kind, start reader.Mark) *Node {
	n := &Node{Kind: kind, Start: start}
	if kind.AllowsBody() {
		n.Body = []*Node{}
	}
	return n
}

// Append adds a child. A text child directly following a text child in the same source is
// merged into it.
func (n *Node) Append(child *Node) {
	if child.Kind == KindText && len(n.Body) > 0 {
		last := n.Body[len(n.Body)-1]
		if last.Kind == KindText && contiguous(last, child) {
			last.Text += child.Text
			return
		}
	}
	n.Body = append(n.Body, child)
}

func contiguous(a, b *Node) bool {
	if a.Start.File != b.Start.File || a.InScriptless != b.InScriptless {
		return false
	}
	end := a.Start.Advance(a.Text)
	return end.Line == b.Start.Line && end.Col == b.Start.Col
}

// Attr returns the attribute with the given name.
func (n *Node) Attr(name string) (*Attribute, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// AttrValue returns the value of the named attribute, or "" if it is absent.
func (n *Node) AttrValue(name string) string {
	if a, ok := n.Attr(name); ok {
		return a.Value
	}
	return ""
}

// NamedAttributes returns the named attribute children.
func (n *Node) NamedAttributes() []*Node {
	var out []*Node
	for _, c := range n.Body {
		if c.Kind == KindNamedAttribute {
			out = append(out, c)
		}
	}
	return out
}

// NamedAttribute returns the named attribute child supplying attr.
func (n *Node) NamedAttribute(attr string) (*Node, bool) {
	for _, c := range n.Body {
		if c.Kind == KindNamedAttribute && c.AttrName == attr {
			return c, true
		}
	}
	return nil, false
}

// JspBody returns the jsp:body child, if any.
func (n *Node) JspBody() (*Node, bool) {
	for _, c := range n.Body {
		if c.Kind == KindJspBody {
			return c, true
		}
	}
	return nil, false
}

// Content returns the children making up the node's body proper: the children of a
// jsp:body child if there is one, otherwise all children but named attributes.
func (n *Node) Content() []*Node {
	if b, ok := n.JspBody(); ok {
		return b.Body
	}

	if len(n.Body) == 0 {
		return n.Body
	}

	out := make([]*Node, 0, len(n.Body))
	for _, c := range n.Body {
		if c.Kind != KindNamedAttribute {
			out = append(out, c)
		}
	}
	return out
}

// HasEmptyBody reports whether the node's content is empty or whitespace only.
func (n *Node) HasEmptyBody() bool {
	for _, c := range n.Content() {
		if c.Kind != KindText || !isBlank(c.Text) {
			return false
		}
	}
	return true
}

// HasOnlyText reports whether every content child is literal text, looking through
// jsp:text and jsp:body wrappers.
func HasOnlyText(n *Node) bool {
	for _, c := range n.Content() {
		switch c.Kind {
		case KindText:
		case KindJspText, KindJspBody:
			if !HasOnlyText(c) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isBlank(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
