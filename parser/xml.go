package parser

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/node"
	"github.com/Drolfothesgnir/pagec/reader"
	"github.com/Drolfothesgnir/pagec/taglib"
)

// xmlParser is the front-end of the XML document syntax. Tokens come from encoding/xml,
// marks from advancing r to each token's byte offset.
type xmlParser struct {
	*builder
	r       *reader.Reader
	d       *xml.Decoder
	content string

	// pos is the offset in content r has been advanced to.
	pos int

	// ns holds the prefix bindings of the open elements, innermost last.
	ns []map[string]string
}

// parseXML parses the rest of the current source of r as an XML document into parent.
func parseXML(b *builder, r *reader.Reader, parent *node.Node, sc scope) error {
	content := r.Rest()

	d := xml.NewDecoder(strings.NewReader(content))
	d.Strict = true
	// Sources are decoded before parsing, whatever the prolog declares.
	d.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) {
		return in, nil
	}

	p := &xmlParser{builder: b, r: r, d: d, content: content}

	outer := b.nsOf
	b.nsOf = p.lookup
	defer func() { b.nsOf = outer }()

	return p.children(parent, xml.Name{}, sc)
}

// at returns the mark of the byte offset off in content.
func (p *xmlParser) at(off int) reader.Mark {
	if off > p.pos {
		p.r.Skip(off - p.pos)
		p.pos = off
	}
	return p.r.Mark()
}

// next reads a token and the mark where it starts. At the end of input it returns io.EOF.
func (p *xmlParser) next() (xml.Token, reader.Mark, error) {
	m := p.at(int(p.d.InputOffset()))

	tok, err := p.d.RawToken()
	if err == io.EOF {
		return nil, m, io.EOF
	}
	if err != nil {
		var se *xml.SyntaxError
		if errors.As(err, &se) {
			return nil, m, diag.Errorf(diag.IssueXMLSyntax, m, "%s", se.Msg)
		}
		return nil, m, diag.Errorf(diag.IssueXMLSyntax, m, "%w", err)
	}
	return tok, m, nil
}

// children parses content up to the end tag of the element named end, or to the end of
// input when end is zero.
func (p *xmlParser) children(parent *node.Node, end xml.Name, sc scope) error {
	for {
		tok, m, err := p.next()
		if err == io.EOF {
			if end.Local != "" {
				return diag.Errorf(diag.IssueUnterminatedTag, m, "unterminated element <%s>", qname(end))
			}
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.CharData:
			if p.opts.DirectivesOnly || isBlank(string(t)) {
				continue
			}
			if err := p.text(parent, string(t), m, sc, true); err != nil {
				return err
			}

		case xml.StartElement:
			if err := p.element(parent, t.Copy(), m, sc); err != nil {
				return err
			}

		case xml.EndElement:
			if t.Name != end {
				return diag.Errorf(diag.IssueUnbalancedEndTag, m, "unexpected end tag </%s>", qname(t.Name))
			}
			return nil
		}
	}
}

// element dispatches a start tag on the namespace of its name.
func (p *xmlParser) element(parent *node.Node, se xml.StartElement, m reader.Mark, sc scope) error {
	p.pushNamespaces(se.Attr)
	defer p.popNamespaces()

	uri := p.lookup(se.Name.Space)

	if uri == JSPNamespace {
		return p.jspElement(parent, se, m, sc)
	}

	if p.opts.DirectivesOnly {
		return p.children(parent, se.Name, sc)
	}

	if se.Name.Space != "" {
		lib, err := p.library(uri, m)
		if err != nil {
			return err
		}
		if lib != nil {
			return p.customTag(parent, se, lib, uri, m, sc)
		}
	}

	return p.uninterpreted(parent, se, m, sc)
}

// library resolves the library of a namespace uri. Uris that are not tag library uris
// yield a nil library, and the element is left uninterpreted.
func (p *xmlParser) library(uri string, m reader.Mark) (*taglib.Library, error) {
	if uri == "" || p.opts.Resolver == nil {
		return nil, nil
	}

	lib, err := p.opts.Resolver.Resolve(uri)
	if err == nil {
		return lib, nil
	}

	if strings.HasPrefix(uri, taglib.TLDScheme) || strings.HasPrefix(uri, taglib.TagDirScheme) ||
		!errors.Is(err, taglib.ErrLibraryNotFound) {
		return nil, diag.Errorf(diag.IssueUnknownTaglib, m, "cannot resolve tag library %s: %w", uri, err)
	}
	return nil, nil
}

func (p *xmlParser) jspElement(parent *node.Node, se xml.StartElement, m reader.Mark, sc scope) error {
	local := se.Name.Local

	switch {
	case local == "root":
		return p.children(parent, se.Name, sc)

	case strings.HasPrefix(local, "directive."):
		return p.directive(parent, se, strings.TrimPrefix(local, "directive."), m, sc)

	case p.opts.DirectivesOnly:
		return p.children(parent, se.Name, sc)

	case local == "declaration", local == "scriptlet", local == "expression":
		return p.scriptingElement(parent, se, m, sc)

	case local == "text":
		return p.jspText(parent, se, m, sc)
	}

	n, err := p.action(local, m, sc)
	if err != nil {
		return err
	}

	if n.Kind == node.KindNamedAttribute || n.Kind == node.KindJspBody {
		if err := checkNamedPlacement(parent, n); err != nil {
			return err
		}
	}

	if err := p.attributes(n, se.Attr, m, sc); err != nil {
		return err
	}
	parent.Append(n)

	switch n.Kind {
	case node.KindFallback:
		return p.rawBody(n, se.Name, sc)

	case node.KindJspBody:
		bc, err := jspBodyContent(parent, m)
		if err != nil {
			return err
		}
		switch bc {
		case taglib.BodyTagDependent:
			return p.rawBody(n, se.Name, sc)
		case taglib.BodyScriptless:
			sc.scriptless = true
		}
	}

	if err := p.children(n, se.Name, sc); err != nil {
		return err
	}
	return checkActionBody(n)
}

func (p *xmlParser) directive(parent *node.Node, se xml.StartElement, name string, m reader.Mark, sc scope) error {
	if name == "taglib" {
		return diag.Errorf(diag.IssueMisplacedDirective, m,
			"the taglib directive is not allowed in XML syntax, bind a namespace with xmlns instead")
	}

	n, err := p.builder.directive(name, m, sc)
	if err != nil {
		return err
	}

	if err := p.attributes(n, se.Attr, m, sc); err != nil {
		return err
	}
	if err := p.emptyElement(n, se.Name); err != nil {
		return err
	}
	parent.Append(n)

	switch n.Kind {
	case node.KindPageDirective, node.KindTagDirective:
		if a, ok := n.Attr("isELIgnored"); ok {
			p.elIgnored = a.Value == "true"
		}
	case node.KindIncludeDirective:
		return p.include(p.r, n, sc)
	}
	return nil
}

func (p *xmlParser) scriptingElement(parent *node.Node, se xml.StartElement, m reader.Mark, sc scope) error {
	code, err := p.charData(se.Name)
	if err != nil {
		return err
	}

	var kind node.Kind
	switch se.Name.Local {
	case "declaration":
		kind = node.KindDeclaration
	case "expression":
		kind = node.KindExpression
	default:
		kind = node.KindScriptlet
	}

	n, err := p.scripting(kind, code, m, sc)
	if err != nil {
		return err
	}
	parent.Append(n)
	return nil
}

// jspText keeps its content verbatim, whitespace included.
func (p *xmlParser) jspText(parent *node.Node, se xml.StartElement, m reader.Mark, sc scope) error {
	n, err := p.action("text", m, sc)
	if err != nil {
		return err
	}

	if err := p.attributes(n, se.Attr, m, sc); err != nil {
		return err
	}

	from := p.at(int(p.d.InputOffset()))
	s, err := p.charData(se.Name)
	if err != nil {
		return err
	}

	parent.Append(n)
	return p.text(n, s, from, sc, true)
}

func (p *xmlParser) customTag(parent *node.Node, se xml.StartElement, lib *taglib.Library, uri string, m reader.Mark, sc scope) error {
	n, err := p.builder.customTag(lib, uri, se.Name.Space, se.Name.Local, m, sc)
	if err != nil {
		return err
	}

	if err := p.attributes(n, se.Attr, m, sc); err != nil {
		return err
	}
	parent.Append(n)

	n.Tag.SelfClosed = p.selfClosed()

	switch n.Tag.Descriptor.BodyContent {
	case taglib.BodyTagDependent:
		return p.rawBody(n, se.Name, sc)
	case taglib.BodyScriptless:
		sc.scriptless = true
	}

	if err := p.children(n, se.Name, sc); err != nil {
		return err
	}
	return checkTagBody(n)
}

// uninterpreted writes an element of no known namespace back out as template text.
func (p *xmlParser) uninterpreted(parent *node.Node, se xml.StartElement, m reader.Mark, sc scope) error {
	var b strings.Builder
	b.WriteString("<" + qname(se.Name))
	for _, a := range se.Attr {
		b.WriteString(" " + qname(a.Name) + `="`)
		xml.EscapeText(&b, []byte(a.Value))
		b.WriteString(`"`)
	}

	if p.selfClosed() {
		b.WriteString("/>")
		// The decoder reports a self-closing tag as a start and an end element.
		if _, _, err := p.next(); err != nil {
			return err
		}
		return p.text(parent, b.String(), m, sc, true)
	}

	b.WriteString(">")
	if err := p.text(parent, b.String(), m, sc, true); err != nil {
		return err
	}

	if err := p.children(parent, se.Name, sc); err != nil {
		return err
	}

	return p.text(parent, "</"+qname(se.Name)+">", p.r.Mark(), sc, false)
}

// attributes adds the attributes of a start tag to n, skipping namespace declarations.
func (p *xmlParser) attributes(n *node.Node, attrs []xml.Attr, m reader.Mark, sc scope) error {
	for _, a := range attrs {
		if a.Name.Space == "xmlns" || a.Name.Space == "" && a.Name.Local == "xmlns" {
			continue
		}

		value, script := a.Value, false
		if strings.HasPrefix(value, "%=") && strings.HasSuffix(value, "%") && len(value) >= 3 {
			value, script = value[2:len(value)-1], true
		}

		if err := p.attribute(n, qname(a.Name), value, script, m, sc, p.lookup); err != nil {
			return err
		}
	}
	return nil
}

// charData collects the character data of an element that must not contain elements.
func (p *xmlParser) charData(name xml.Name) (string, error) {
	var b strings.Builder
	for {
		tok, m, err := p.next()
		if err == io.EOF {
			return "", diag.Errorf(diag.IssueUnterminatedTag, m, "unterminated element <%s>", qname(name))
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			return "", diag.Errorf(diag.IssueMisplacedAction, m, "<%s> must not contain elements", qname(name))
		case xml.EndElement:
			if t.Name != name {
				return "", diag.Errorf(diag.IssueUnbalancedEndTag, m, "unexpected end tag </%s>", qname(t.Name))
			}
			return b.String(), nil
		}
	}
}

// emptyElement consumes the end of an element that may contain only whitespace and comments.
func (p *xmlParser) emptyElement(n *node.Node, name xml.Name) error {
	s, err := p.charData(name)
	if err != nil {
		return err
	}
	if !isBlank(s) {
		return diag.Errorf(diag.IssueBodyNotEmpty, n.Start, "%s must have an empty body", describe(n))
	}
	return nil
}

// rawBody copies the source of an element's content verbatim into n.
func (p *xmlParser) rawBody(n *node.Node, name xml.Name, sc scope) error {
	start := int(p.d.InputOffset())
	from := p.at(start)

	for depth := 0; ; {
		end := int(p.d.InputOffset())
		tok, _, err := p.next()
		if err == io.EOF {
			return diag.Errorf(diag.IssueUnterminatedTag, n.Start, "unterminated element <%s>", qname(name))
		}
		if err != nil {
			return err
		}

		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth > 0 {
				depth--
				continue
			}
			if s := p.content[start:end]; s != "" {
				n.Append(textNode(s, from, sc))
			}
			return nil
		}
	}
}

// selfClosed reports whether the start tag just read ended with "/>".
func (p *xmlParser) selfClosed() bool {
	off := int(p.d.InputOffset())
	return off >= 2 && p.content[off-2:off] == "/>"
}

func (p *xmlParser) pushNamespaces(attrs []xml.Attr) {
	var frame map[string]string
	for _, a := range attrs {
		switch {
		case a.Name.Space == "xmlns":
			if frame == nil {
				frame = map[string]string{}
			}
			frame[a.Name.Local] = a.Value
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			if frame == nil {
				frame = map[string]string{}
			}
			frame[""] = a.Value
		}
	}
	p.ns = append(p.ns, frame)
}

func (p *xmlParser) popNamespaces() {
	p.ns = p.ns[:len(p.ns)-1]
}

// lookup returns the uri bound to prefix by the enclosing elements.
func (p *xmlParser) lookup(prefix string) string {
	for i := len(p.ns) - 1; i >= 0; i-- {
		if uri, ok := p.ns[i][prefix]; ok {
			return uri
		}
	}
	return ""
}

func qname(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func isBlank(s string) bool {
	return strings.TrimLeft(s, " \t\r\n") == ""
}
