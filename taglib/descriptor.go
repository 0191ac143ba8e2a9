// Package taglib describes tag libraries: the tags, attributes, scripting variables and
// functions a page can use, and resolves libraries by namespace uri.
//
// Descriptors are immutable once a library has been registered or resolved.
package taglib

import (
	"fmt"
	"strings"
)

// BodyContent is the declared constraint on what the body of a tag may contain.
type BodyContent int

const (
	// BodyJSP allows the full grammar, including scripting elements.
	BodyJSP BodyContent = iota

	// BodyEmpty allows no body at all.
	BodyEmpty

	// BodyScriptless allows the full grammar minus declarations, scriptlets and expressions.
	BodyScriptless

	// BodyTagDependent passes the body to the tag verbatim, without interpretation.
	BodyTagDependent
)

var bodyContentNames = [...]string{
	BodyJSP:          "JSP",
	BodyEmpty:        "empty",
	BodyScriptless:   "scriptless",
	BodyTagDependent: "tagdependent",
}

func (b BodyContent) String() string {
	if b < 0 || int(b) >= len(bodyContentNames) {
		return "unknown"
	}
	return bodyContentNames[b]
}

// ParseBodyContent converts a body-content name, case-insensitively.
func ParseBodyContent(s string) (BodyContent, error) {
	for i, name := range bodyContentNames {
		if strings.EqualFold(s, name) {
			return BodyContent(i), nil
		}
	}
	return 0, fmt.Errorf("invalid body-content %q", s)
}

// VariableScope is the part of the page in which a scripting variable is visible.
type VariableScope int

const (
	// Nested variables are visible only inside the tag's body.
	Nested VariableScope = iota

	// AtBegin variables are visible from the start tag to the end of the enclosing scope.
	AtBegin

	// AtEnd variables are visible after the end tag to the end of the enclosing scope.
	AtEnd
)

func (s VariableScope) String() string {
	switch s {
	case Nested:
		return "NESTED"
	case AtBegin:
		return "AT_BEGIN"
	case AtEnd:
		return "AT_END"
	}
	return "unknown"
}

// ParseVariableScope converts a scope name as written in descriptors and variable directives.
func ParseVariableScope(s string) (VariableScope, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NESTED":
		return Nested, nil
	case "AT_BEGIN":
		return AtBegin, nil
	case "AT_END":
		return AtEnd, nil
	}
	return 0, fmt.Errorf("invalid variable scope %q", s)
}

// DefaultAttributeType is the Go type of attributes declaring none.
const DefaultAttributeType = "string"

// AttributeSig is the static contract of one attribute of a tag.
type AttributeSig struct {
	Name string

	// Required attributes must be supplied, inline or as a named attribute.
	Required bool

	// Dynamic attributes accept runtime expressions.
	Dynamic bool

	// Fragment attributes receive an unevaluated body.
	Fragment bool

	// Type is the Go type the value is converted to. Empty means [DefaultAttributeType].
	Type string
}

// GoType returns the Go type of the attribute's value.
func (a AttributeSig) GoType() string {
	if a.Type == "" {
		return DefaultAttributeType
	}
	return a.Type
}

// VariableDecl is a static scripting variable declaration of a tag.
// Exactly one of NameGiven and NameFromAttribute is set.
type VariableDecl struct {
	NameGiven         string
	NameFromAttribute string
	Type              string
	Declare           bool
	Scope             VariableScope
}

// VariableBinding is a scripting variable resolved for one tag invocation.
type VariableBinding struct {
	Name    string
	Type    string
	Declare bool
	Scope   VariableScope
}

// TagData holds the attribute values of one tag invocation as seen at translation time.
type TagData struct {
	values  map[string]string
	runtime map[string]bool
}

// NewTagData creates an empty TagData.
func NewTagData() *TagData {
	return &TagData{values: map[string]string{}, runtime: map[string]bool{}}
}

// Set records a literal attribute value.
func (d *TagData) Set(name, value string) {
	d.values[name] = value
}

// SetRuntime records an attribute whose value is only known when the page runs.
func (d *TagData) SetRuntime(name string) {
	d.runtime[name] = true
}

// Attribute returns the literal value of an attribute. ok is false for absent and runtime attributes.
func (d *TagData) Attribute(name string) (value string, ok bool) {
	value, ok = d.values[name]
	return
}

// IsRuntime reports whether the attribute's value is only known when the page runs.
func (d *TagData) IsRuntime(name string) bool {
	return d.runtime[name]
}

// ExtraInfo computes the scripting variables of an invocation from its attribute values.
type ExtraInfo func(data *TagData) []VariableBinding

// ValidateFunc checks the attributes of an invocation beyond the static signature.
type ValidateFunc func(data *TagData) error

// Descriptor is the contract of one tag.
type Descriptor struct {
	Name string

	// Import is the import path of the handler's package; empty for handlers in the generated package.
	Import string

	// TypeName is the handler's type name inside its package.
	TypeName string

	BodyContent BodyContent
	Attributes  []AttributeSig
	Variables   []VariableDecl

	// ExtraInfo, if set, computes variables per invocation. It must not be combined with Variables.
	ExtraInfo ExtraInfo

	// ExtraInfoClass names the ExtraInfo in the descriptor file it was loaded from.
	ExtraInfoClass string

	// Validate, if set, is called with the invocation's attributes.
	Validate ValidateFunc

	Iteration         bool
	BufferedBody      bool
	TryCatchFinally   bool
	DynamicAttributes bool

	// Simple handlers implement a single DoTag call instead of the start/body/end lifecycle.
	Simple bool

	// TagFile is the path of the tag file implementing the tag, if any.
	TagFile string

	Info string
}

// Attribute returns the signature of the named attribute.
func (d *Descriptor) Attribute(name string) (AttributeSig, bool) {
	for _, a := range d.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeSig{}, false
}

// Classic reports whether the tag follows the start/body/end lifecycle.
func (d *Descriptor) Classic() bool {
	return !d.Simple && d.TagFile == ""
}

// Bindings resolves the scripting variables of one invocation.
func (d *Descriptor) Bindings(data *TagData) ([]VariableBinding, error) {
	var computed []VariableBinding
	if d.ExtraInfo != nil {
		computed = d.ExtraInfo(data)
	}

	if len(computed) > 0 && len(d.Variables) > 0 {
		return nil, ErrVariableConflict
	}

	if len(computed) > 0 {
		return computed, nil
	}

	out := make([]VariableBinding, 0, len(d.Variables))
	for _, v := range d.Variables {
		name := v.NameGiven
		if v.NameFromAttribute != "" {
			if data.IsRuntime(v.NameFromAttribute) {
				return nil, fmt.Errorf("%w: %s", ErrRuntimeVariableName, v.NameFromAttribute)
			}

			var ok bool
			if name, ok = data.Attribute(v.NameFromAttribute); !ok {
				// The attribute is optional and absent: no variable.
				continue
			}
		}

		typ := v.Type
		if typ == "" {
			typ = DefaultAttributeType
		}

		out = append(out, VariableBinding{Name: name, Type: typ, Declare: v.Declare, Scope: v.Scope})
	}

	return out, nil
}

// Function is a function a library exports to expressions.
type Function struct {
	Name string

	// Import is the import path of the package defining the function.
	Import string

	// Func is the exported Go function name.
	Func string

	Signature string
}

// Library is a named set of tags and functions, addressed by a namespace uri.
type Library struct {
	URI       string
	ShortName string
	Version   string

	Tags      map[string]*Descriptor
	Functions map[string]Function

	// TagFiles maps tag names to the paths of tag files implementing them.
	TagFiles map[string]string
}

// Tag returns the descriptor of a tag implemented by a handler type.
func (l *Library) Tag(name string) (*Descriptor, bool) {
	d, ok := l.Tags[name]
	return d, ok
}

// TagFile returns the path of the tag file implementing the named tag.
func (l *Library) TagFile(name string) (string, bool) {
	p, ok := l.TagFiles[name]
	return p, ok
}

// Function returns the named function.
func (l *Library) Function(name string) (Function, bool) {
	f, ok := l.Functions[name]
	return f, ok
}

// HasTag reports whether the library defines the tag in any form.
func (l *Library) HasTag(name string) bool {
	if _, ok := l.Tags[name]; ok {
		return true
	}
	_, ok := l.TagFiles[name]
	return ok
}
