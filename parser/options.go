package parser

import (
	"fmt"
	"path"
	"strings"

	"github.com/Drolfothesgnir/pagec/taglib"
)

// Syntax selects the front-end used for a source.
type Syntax int

const (
	// SyntaxAuto picks the syntax from the file extension and content.
	SyntaxAuto Syntax = iota

	// SyntaxNative is the standard <% %> syntax.
	SyntaxNative

	// SyntaxXML is the well-formed XML document syntax.
	SyntaxXML
)

func (s Syntax) String() string {
	switch s {
	case SyntaxNative:
		return "native"
	case SyntaxXML:
		return "xml"
	}
	return "auto"
}

// ParseSyntax converts a syntax name, as accepted by the CLI and the HTTP service.
func ParseSyntax(s string) (Syntax, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return SyntaxAuto, nil
	case "native", "standard":
		return SyntaxNative, nil
	case "xml":
		return SyntaxXML, nil
	}
	return 0, fmt.Errorf("unknown syntax %q", s)
}

// JSPNamespace is the namespace of standard actions and directives in XML syntax.
const JSPNamespace = "http://java.sun.com/JSP/Page"

// DetectSyntax picks the syntax of a source from its extension, falling back to looking
// for a jsp:root element.
func DetectSyntax(name, content string) Syntax {
	switch path.Ext(name) {
	case ".jspx", ".tagx":
		return SyntaxXML
	}

	head := content
	if len(head) > 2048 {
		head = head[:2048]
	}
	if strings.Contains(head, "<jsp:root") && strings.Contains(head, JSPNamespace) {
		return SyntaxXML
	}
	return SyntaxNative
}

// IsTagFile reports whether the name has a tag file extension.
func IsTagFile(name string) bool {
	switch path.Ext(name) {
	case ".tag", ".tagx", ".tagf":
		return true
	}
	return false
}

// Loader provides the content of included files.
type Loader interface {
	// Load returns the decoded content of the file at the page-root absolute path.
	Load(path string) (string, error)
}

// TagFileResolver provides the descriptors of tags implemented by tag files.
type TagFileResolver interface {
	TagFileDescriptor(path string) (*taglib.Descriptor, error)
}

// Options configures a parse.
type Options struct {
	// Syntax of the source; SyntaxAuto detects it.
	Syntax Syntax

	// DirectivesOnly makes the parser interpret directives only, skipping everything else.
	DirectivesOnly bool

	// TagFile marks the source as a tag file.
	TagFile bool

	// ELIgnored disables EL recognition until a directive enables it.
	ELIgnored bool

	// Encoding is recorded on the root node.
	Encoding string

	Resolver taglib.Resolver
	Loader   Loader
	TagFiles TagFileResolver
}

// ResolvePath resolves an include path against the path of the including file.
func ResolvePath(base, file string) string {
	if strings.HasPrefix(file, "/") {
		return path.Clean(file)
	}
	return path.Join(path.Dir(base), file)
}
