package node

import (
	"github.com/Drolfothesgnir/pagec/el"
	"github.com/Drolfothesgnir/pagec/taglib"
)

// PageInfo collects the directives of a unit after they were merged across includes.
type PageInfo struct {
	// Imports are the Go import paths requested by page or tag directives.
	Imports []string

	ContentType  string
	PageEncoding string

	// Buffer is the output buffer size in bytes; 0 means unbuffered.
	Buffer    int
	AutoFlush bool
	Session   bool

	ErrorPage   string
	IsErrorPage bool

	ELIgnored  bool
	Scripting  bool
	TrimSpaces bool
	Info       string

	// Prefixes maps the taglib prefixes of the unit to their uris.
	Prefixes map[string]string

	// Functions holds the library functions called by expressions of the unit.
	Functions map[el.FuncRef]taglib.Function

	// Tag describes a tag file unit.
	Tag *TagInfo
}

// DefaultBuffer is the output buffer size of pages declaring none.
const DefaultBuffer = 8 * 1024

// NewPageInfo returns the page defaults.
func NewPageInfo() *PageInfo {
	return &PageInfo{
		ContentType: "text/html",
		Buffer:      DefaultBuffer,
		AutoFlush:   true,
		Session:     true,
		Scripting:   true,
		Prefixes:    map[string]string{},
		Functions:   map[el.FuncRef]taglib.Function{},
	}
}

// TagInfo is the signature a tag file declares through its tag, attribute and variable directives.
type TagInfo struct {
	Name        string
	DisplayName string
	Description string
	BodyContent taglib.BodyContent

	// DynamicAttributes names the map receiving undeclared attributes; empty if none are accepted.
	DynamicAttributes string

	Attributes []taglib.AttributeSig
	Variables  []TagFileVariable
}

// TagFileVariable is a variable declared by a tag file, synchronised with the calling page.
type TagFileVariable struct {
	taglib.VariableDecl

	// Alias is the local name used inside the tag file when the variable's name comes from an attribute.
	Alias string
}

// Descriptor converts the signature into a tag descriptor for pages invoking the tag file.
// The handler type lives in the generated package.
func (t *TagInfo) Descriptor(path, typeName string) *taglib.Descriptor {
	d := &taglib.Descriptor{
		Name:              t.Name,
		TypeName:          typeName,
		BodyContent:       t.BodyContent,
		Attributes:        t.Attributes,
		DynamicAttributes: t.DynamicAttributes != "",
		Simple:            true,
		TagFile:           path,
		Info:              t.Description,
	}

	for _, v := range t.Variables {
		d.Variables = append(d.Variables, v.VariableDecl)
	}
	return d
}
