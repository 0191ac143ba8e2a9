package taglib

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/Drolfothesgnir/pagec/diag"
)

type tldFile struct {
	XMLName   xml.Name      `xml:"taglib"`
	Version   string        `xml:"tlib-version"`
	ShortName string        `xml:"short-name"`
	URI       string        `xml:"uri"`
	Tags      []tldTag      `xml:"tag"`
	TagFiles  []tldTagFile  `xml:"tag-file"`
	Functions []tldFunction `xml:"function"`
}

type tldTag struct {
	Name              string         `xml:"name"`
	TagClass          string         `xml:"tag-class"`
	TEIClass          string         `xml:"tei-class"`
	BodyContent       string         `xml:"body-content"`
	Info              string         `xml:"description"`
	Attributes        []tldAttribute `xml:"attribute"`
	Variables         []tldVariable  `xml:"variable"`
	DynamicAttributes string         `xml:"dynamic-attributes"`
	Iteration         string         `xml:"iteration"`
	BufferedBody      string         `xml:"buffered-body"`
	TryCatchFinally   string         `xml:"try-catch-finally"`
	Simple            string         `xml:"simple"`
}

type tldAttribute struct {
	Name        string `xml:"name"`
	Required    string `xml:"required"`
	RTExprValue string `xml:"rtexprvalue"`
	Type        string `xml:"type"`
	Fragment    string `xml:"fragment"`
}

type tldVariable struct {
	NameGiven         string `xml:"name-given"`
	NameFromAttribute string `xml:"name-from-attribute"`
	Class             string `xml:"variable-class"`
	Declare           string `xml:"declare"`
	Scope             string `xml:"scope"`
}

type tldTagFile struct {
	Name string `xml:"name"`
	Path string `xml:"path"`
}

type tldFunction struct {
	Name      string `xml:"name"`
	Class     string `xml:"function-class"`
	Signature string `xml:"function-signature"`
}

// ParseTLD reads a tag library descriptor.
//
// Handler classes are written as Go qualified type names, "import/path.Type"; function
// classes are import paths and function signatures name the exported function.
func ParseTLD(r io.Reader) (*Library, error) {
	var f tldFile
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, diag.NewConfigError(diag.IssueBadDescriptor, fmt.Errorf("decode descriptor: %w", err))
	}

	lib := &Library{
		URI:       strings.TrimSpace(f.URI),
		ShortName: strings.TrimSpace(f.ShortName),
		Version:   strings.TrimSpace(f.Version),
		Tags:      make(map[string]*Descriptor, len(f.Tags)),
		Functions: make(map[string]Function, len(f.Functions)),
		TagFiles:  make(map[string]string, len(f.TagFiles)),
	}

	for _, t := range f.Tags {
		d, err := t.descriptor()
		if err != nil {
			return nil, diag.NewConfigError(diag.IssueBadDescriptor, fmt.Errorf("tag %q: %w", t.Name, err))
		}

		if lib.HasTag(d.Name) {
			return nil, diag.NewConfigError(diag.IssueBadDescriptor, fmt.Errorf("tag %q defined twice", d.Name))
		}
		lib.Tags[d.Name] = d
	}

	for _, tf := range f.TagFiles {
		name := strings.TrimSpace(tf.Name)
		if name == "" || lib.HasTag(name) {
			return nil, diag.NewConfigError(diag.IssueBadDescriptor, fmt.Errorf("tag file %q has no name or is defined twice", tf.Path))
		}
		lib.TagFiles[name] = strings.TrimSpace(tf.Path)
	}

	for _, fn := range f.Functions {
		name := strings.TrimSpace(fn.Name)
		sig := strings.TrimSpace(fn.Signature)
		if name == "" || sig == "" {
			return nil, diag.NewConfigError(diag.IssueBadDescriptor, fmt.Errorf("function %q needs a name and a signature", name))
		}

		lib.Functions[name] = Function{
			Name:      name,
			Import:    strings.TrimSpace(fn.Class),
			Func:      funcName(sig),
			Signature: sig,
		}
	}

	return lib, nil
}

func (t tldTag) descriptor() (*Descriptor, error) {
	d := &Descriptor{
		Name:              strings.TrimSpace(t.Name),
		ExtraInfoClass:    strings.TrimSpace(t.TEIClass),
		Info:              strings.TrimSpace(t.Info),
		DynamicAttributes: isTrue(t.DynamicAttributes),
		Iteration:         isTrue(t.Iteration),
		BufferedBody:      isTrue(t.BufferedBody),
		TryCatchFinally:   isTrue(t.TryCatchFinally),
		Simple:            isTrue(t.Simple),
	}

	if d.Name == "" {
		return nil, fmt.Errorf("missing name")
	}

	var err error
	d.Import, d.TypeName, err = SplitQualifiedType(strings.TrimSpace(t.TagClass))
	if err != nil {
		return nil, err
	}

	if bc := strings.TrimSpace(t.BodyContent); bc != "" {
		if d.BodyContent, err = ParseBodyContent(bc); err != nil {
			return nil, err
		}
	}

	// Iteration and buffering are capabilities of the classic lifecycle only.
	if d.Simple && (d.Iteration || d.BufferedBody) {
		return nil, fmt.Errorf("simple tags cannot declare iteration or buffered-body")
	}

	for _, a := range t.Attributes {
		sig := AttributeSig{
			Name:     strings.TrimSpace(a.Name),
			Required: isTrue(a.Required),
			Dynamic:  isTrue(a.RTExprValue),
			Fragment: isTrue(a.Fragment),
			Type:     strings.TrimSpace(a.Type),
		}
		if sig.Name == "" {
			return nil, fmt.Errorf("attribute without a name")
		}
		if _, dup := d.Attribute(sig.Name); dup {
			return nil, fmt.Errorf("attribute %q declared twice", sig.Name)
		}
		if sig.Fragment {
			// Fragments are always supplied at request time.
			sig.Dynamic = true
		}
		d.Attributes = append(d.Attributes, sig)
	}

	for _, v := range t.Variables {
		decl := VariableDecl{
			NameGiven:         strings.TrimSpace(v.NameGiven),
			NameFromAttribute: strings.TrimSpace(v.NameFromAttribute),
			Type:              strings.TrimSpace(v.Class),
			Declare:           v.Declare == "" || isTrue(v.Declare),
		}

		if (decl.NameGiven == "") == (decl.NameFromAttribute == "") {
			return nil, fmt.Errorf("variable needs exactly one of name-given and name-from-attribute")
		}

		if decl.Scope, err = ParseVariableScope(v.Scope); err != nil {
			return nil, err
		}
		d.Variables = append(d.Variables, decl)
	}

	return d, nil
}

// SplitQualifiedType splits "import/path.Type" into the import path and the type name.
// A name without a dot refers to a type of the generated package.
func SplitQualifiedType(s string) (importPath, typeName string, err error) {
	if s == "" {
		return "", "", fmt.Errorf("missing handler type")
	}

	slash := strings.LastIndex(s, "/")
	dot := strings.LastIndex(s, ".")
	if dot <= slash {
		return "", s, nil
	}

	importPath, typeName = s[:dot], s[dot+1:]
	if typeName == "" {
		return "", "", fmt.Errorf("invalid handler type %q", s)
	}
	return importPath, typeName, nil
}

// funcName extracts the function name from a signature such as "string Upper(string)" or "Upper".
func funcName(sig string) string {
	if i := strings.IndexByte(sig, '('); i >= 0 {
		sig = sig[:i]
	}
	fields := strings.Fields(sig)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes":
		return true
	}
	return false
}
