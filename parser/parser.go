// Package parser turns page and tag file sources into node trees.
//
// Two front-ends share one tree builder: the native syntax, parsed by recursive descent over
// a [reader.Reader], and the XML document syntax, parsed from encoding/xml tokens. A page
// written in either syntax yields equivalent trees.
package parser

import (
	"github.com/Drolfothesgnir/pagec/node"
	"github.com/Drolfothesgnir/pagec/reader"
)

// Source is a decoded compilation unit.
type Source struct {
	// Path is the page-root absolute path of the unit, used for marks and include resolution.
	Path    string
	Content string
}

// Parse builds the node tree of src. Errors are *diag.TranslationError values.
func Parse(src Source, opts Options) (*node.Node, error) {
	syntax := opts.Syntax
	if syntax == SyntaxAuto {
		syntax = DetectSyntax(src.Path, src.Content)
	}

	r := reader.New(src.Path, src.Content)

	root := node.New(node.KindRoot, r.Mark())
	root.Root = &node.RootInfo{
		File:     src.Path,
		XML:      syntax == SyntaxXML,
		TagFile:  opts.TagFile || IsTagFile(src.Path),
		Encoding: opts.Encoding,
	}

	b := newBuilder(src.Path, opts)

	var err error
	if syntax == SyntaxXML {
		err = parseXML(b, r, root, scope{})
	} else {
		err = parseNative(b, r, root, scope{})
	}
	if err != nil {
		return nil, err
	}
	return root, nil
}
