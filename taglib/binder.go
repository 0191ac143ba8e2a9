package taglib

import (
	"unicode"
	"unicode/utf8"
)

// Setter describes how the generated code passes one attribute to a handler.
type Setter struct {
	// Method is the handler method receiving the value.
	Method string

	// Type is the Go type of the value.
	Type string

	// Dynamic is true for undeclared attributes passed through the handler's dynamic attribute method.
	Dynamic bool
}

// Binder resolves the setter of an attribute. It is consulted once per attribute at validation time.
type Binder interface {
	Bind(d *Descriptor, attr string) (Setter, bool)
}

// DynamicAttributeMethod is the handler method receiving undeclared attributes.
const DynamicAttributeMethod = "SetDynamicAttribute"

// DefaultBinder binds attribute "fooBar" to method SetFooBar with the declared type.
type DefaultBinder struct{}

// Bind implements [Binder].
func (DefaultBinder) Bind(d *Descriptor, attr string) (Setter, bool) {
	sig, ok := d.Attribute(attr)
	if !ok {
		if d.DynamicAttributes {
			return Setter{Method: DynamicAttributeMethod, Type: "any", Dynamic: true}, true
		}
		return Setter{}, false
	}

	typ := sig.GoType()
	if sig.Fragment {
		typ = FragmentType
	}

	return Setter{Method: "Set" + exported(attr), Type: typ}, true
}

// FragmentType is the type of fragment attributes in the runtime package.
const FragmentType = "rt.Fragment"

func exported(name string) string {
	var out []rune
	upper := true
	for _, r := range name {
		if r == '-' || r == '_' || r == '.' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		out = append(out, r)
	}
	return string(out)
}

// Exported converts an attribute or tag name to an exported Go identifier.
func Exported(name string) string {
	if name == "" {
		return ""
	}
	if r, _ := utf8.DecodeRuneInString(name); !unicode.IsLetter(r) {
		name = "X" + name
	}
	return exported(name)
}
