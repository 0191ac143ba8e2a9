package parser

import (
	"slices"
	"strings"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/el"
	"github.com/Drolfothesgnir/pagec/node"
	"github.com/Drolfothesgnir/pagec/reader"
	"github.com/Drolfothesgnir/pagec/taglib"
)

// nativeParser is the recursive descent front-end of the standard syntax.
type nativeParser struct {
	*builder
	r *reader.Reader
}

// parseNative parses the rest of the current source of r into parent.
func parseNative(b *builder, r *reader.Reader, parent *node.Node, sc scope) error {
	p := &nativeParser{builder: b, r: r}

	outer := b.nsOf
	b.nsOf = b.nativeURI
	defer func() { b.nsOf = outer }()

	if b.opts.DirectivesOnly {
		return p.directivesOnly(parent)
	}

	for !p.r.AtEOF() {
		if err := p.element(parent, sc); err != nil {
			return err
		}
	}
	return nil
}

// element parses one construct at the current position and appends it to parent.
func (p *nativeParser) element(parent *node.Node, sc scope) error {
	start := p.r.Mark()

	switch {
	case p.r.Matches("<%--"):
		return p.comment(start)
	case p.r.Matches("<%@"):
		return p.directive(parent, start, sc)
	case p.r.Matches("<%!"):
		return p.scripting(parent, node.KindDeclaration, "<%!", start, sc)
	case p.r.Matches("<%="):
		return p.scripting(parent, node.KindExpression, "<%=", start, sc)
	case p.r.Matches("<%"):
		return p.scripting(parent, node.KindScriptlet, "<%", start, sc)
	case p.r.HasPrefix("<jsp:"):
		return p.standardAction(parent, sc)
	case !p.elIgnored && el.IsStart(p.r.Rest()):
		return p.expressionLanguage(parent, start, sc)
	case p.r.HasPrefix("</"):
		if name, bound := p.boundEndTag(); bound {
			return diag.Errorf(diag.IssueUnbalancedEndTag, start, "unexpected end tag </%s>", name)
		}
	case p.r.HasPrefix("<"):
		if lib, prefix, local, ok := p.customTagStart(); ok {
			return p.customTag(parent, lib, prefix, local, sc)
		}
	}

	return p.templateText(parent, sc)
}

func (p *nativeParser) comment(start reader.Mark) error {
	if _, ok := p.r.SkipUntil("--%>"); !ok {
		return diag.Errorf(diag.IssueUnterminated, start, "unterminated comment <%%--")
	}
	return nil
}

func (p *nativeParser) scripting(parent *node.Node, kind node.Kind, open string, start reader.Mark, sc scope) error {
	from := p.r.Mark()
	before, ok := p.r.SkipUntil("%>")
	if !ok {
		return diag.Errorf(diag.IssueUnterminated, start, "unterminated %s", open)
	}

	code := strings.ReplaceAll(p.r.Text(from, before), `%\>`, "%>")
	n, err := p.builder.scripting(kind, code, start, sc)
	if err != nil {
		return err
	}
	parent.Append(n)
	return nil
}

func (p *nativeParser) expressionLanguage(parent *node.Node, start reader.Mark, sc scope) error {
	rest := p.r.Rest()
	n := el.End(rest)
	if n < 0 {
		return diag.Errorf(diag.IssueUnterminated, start, "unterminated %s", rest[:2])
	}

	expr, err := p.elNode(rest[:n], start, sc)
	if err != nil {
		return err
	}
	p.r.Skip(n)
	parent.Append(expr)
	return nil
}

// templateText consumes text up to the next construct. The first character is always consumed.
func (p *nativeParser) templateText(parent *node.Node, sc scope) error {
	start := p.r.Mark()
	var b strings.Builder

	for first := true; !p.r.AtEOF(); first = false {
		rest := p.r.Rest()

		if !first && (rest[0] == '<' || !p.elIgnored && el.IsStart(rest)) {
			break
		}

		switch {
		case strings.HasPrefix(rest, `<\%`):
			b.WriteString("<%")
			p.r.Skip(3)
		case strings.HasPrefix(rest, `%\>`):
			b.WriteString("%>")
			p.r.Skip(3)
		case !p.elIgnored && rest[0] == '\\' && el.IsStart(rest[1:]):
			b.WriteString(rest[1:3])
			p.r.Skip(3)
		default:
			b.WriteRune(p.r.Next())
		}
	}

	parent.Append(textNode(b.String(), start, sc))
	return nil
}

// boundEndTag reports whether the end tag at the current position belongs to the jsp
// namespace or to a bound taglib prefix.
func (p *nativeParser) boundEndTag() (string, bool) {
	name := readNameAt(p.r.Rest()[2:])
	prefix, _, ok := strings.Cut(name, ":")
	if !ok {
		return name, false
	}
	if prefix == "jsp" {
		return name, true
	}
	_, bound := p.prefixes[prefix]
	return name, bound
}

// customTagStart reports whether the tag at the current position has a bound prefix.
func (p *nativeParser) customTagStart() (*taglib.Library, string, string, bool) {
	name := readNameAt(p.r.Rest()[1:])
	prefix, local, ok := strings.Cut(name, ":")
	if !ok || local == "" {
		return nil, "", "", false
	}

	lib, bound := p.prefixes[prefix]
	return lib, prefix, local, bound
}

func readNameAt(s string) string {
	r := reader.New("", s)
	return r.ReadName()
}

func (p *nativeParser) customTag(parent *node.Node, lib *taglib.Library, prefix, local string, sc scope) error {
	start := p.r.Mark()
	p.r.Skip(1 + len(prefix) + 1 + len(local))

	n, err := p.builder.customTag(lib, p.uris[prefix], prefix, local, start, sc)
	if err != nil {
		return err
	}

	selfClosed, err := p.attributes(n, sc)
	if err != nil {
		return err
	}
	parent.Append(n)

	n.Tag.SelfClosed = selfClosed
	if selfClosed {
		return nil
	}

	return p.tagBody(n, n.Tag.Descriptor.BodyContent, sc)
}

// tagBody parses the body of a custom tag according to its body content.
func (p *nativeParser) tagBody(n *node.Node, bc taglib.BodyContent, sc scope) error {
	if p.startsWithNamedAttribute() {
		return p.namedAttributesAndBody(n, sc)
	}

	switch bc {
	case taglib.BodyEmpty:
		return p.emptyBody(n, sc)
	case taglib.BodyTagDependent:
		return p.opaqueBody(n, sc)
	case taglib.BodyScriptless:
		sc.scriptless = true
	}

	return p.body(n, sc)
}

// body parses nested content up to n's end tag.
func (p *nativeParser) body(n *node.Node, sc scope) error {
	for {
		if p.r.MatchesETag(n.QName) {
			return nil
		}
		if p.r.AtEOF() {
			return diag.Errorf(diag.IssueUnterminatedTag, n.Start, "unterminated tag <%s>, expected </%s>", n.QName, n.QName)
		}
		if err := p.element(n, sc); err != nil {
			return err
		}
	}
}

// emptyBody accepts only the end tag, optionally preceded by named attributes.
func (p *nativeParser) emptyBody(n *node.Node, sc scope) error {
	if p.r.MatchesETag(n.QName) {
		return nil
	}
	if p.startsWithNamedAttribute() {
		return p.namedAttributesAndBody(n, sc)
	}
	return diag.Errorf(diag.IssueBodyNotEmpty, p.r.Mark(), "%s must have an empty body", describe(n))
}

// opaqueBody copies the body verbatim up to the end tag.
func (p *nativeParser) opaqueBody(n *node.Node, sc scope) error {
	from := p.r.Mark()
	before, ok := p.r.SkipUntilETag(n.QName)
	if !ok {
		return diag.Errorf(diag.IssueUnterminatedTag, n.Start, "unterminated tag <%s>, expected </%s>", n.QName, n.QName)
	}

	if s := p.r.Text(from, before); s != "" {
		n.Append(textNode(s, from, sc))
	}
	return nil
}

func (p *nativeParser) startsWithNamedAttribute() bool {
	m := p.r.Mark()
	p.r.SkipSpaces()
	ok := p.r.HasPrefix("<jsp:attribute")
	p.r.Reset(m)
	return ok
}

// namedAttributesAndBody parses jsp:attribute children, an optional jsp:body and the end tag.
// Once named attributes are used, any other content must be wrapped in jsp:body.
func (p *nativeParser) namedAttributesAndBody(n *node.Node, sc scope) error {
	for {
		p.r.SkipSpaces()
		m := p.r.Mark()

		switch {
		case p.r.MatchesETag(n.QName):
			return nil
		case p.r.Matches("<%--"):
			if err := p.comment(m); err != nil {
				return err
			}
		case p.r.HasPrefix("<jsp:attribute"), p.r.HasPrefix("<jsp:body"):
			if err := p.standardAction(n, sc); err != nil {
				return err
			}
		case p.r.AtEOF():
			return diag.Errorf(diag.IssueUnterminatedTag, n.Start, "unterminated tag <%s>, expected </%s>", n.QName, n.QName)
		default:
			return diag.Errorf(diag.IssueMisplacedAction, m,
				"the body of %s must be wrapped in jsp:body when jsp:attribute is used", describe(n))
		}
	}
}

// attributes parses the attributes of a tag or action and its closing "/>" or ">".
func (p *nativeParser) attributes(n *node.Node, sc scope) (selfClosed bool, err error) {
	for {
		p.r.SkipSpaces()

		switch {
		case p.r.Matches("/>"):
			return true, nil
		case p.r.Matches(">"):
			return false, nil
		case p.r.AtEOF():
			return false, diag.Errorf(diag.IssueUnterminatedTag, n.Start, "unterminated tag %s", describe(n))
		}

		m := p.r.Mark()
		name := p.r.ReadName()
		if name == "" {
			return false, diag.Errorf(diag.IssueBadAttribute, m, "unexpected character %q in %s", p.r.Peek(), describe(n))
		}

		value, script, err := p.attributeValue(name, m)
		if err != nil {
			return false, err
		}

		if err := p.attribute(n, name, value, script, m, sc, p.prefixURI); err != nil {
			return false, err
		}
	}
}

func (p *nativeParser) prefixURI(prefix string) string {
	return p.uris[prefix]
}

// attributeValue parses `= "value"` and returns the unescaped value. script is true for
// values written as a single <%= %> expression.
func (p *nativeParser) attributeValue(name string, m reader.Mark) (value string, script bool, err error) {
	p.r.SkipSpaces()
	if !p.r.Matches("=") {
		return "", false, diag.Errorf(diag.IssueBadAttribute, m, "attribute %s has no value", name)
	}

	p.r.SkipSpaces()
	quote := p.r.Next()
	if quote != '"' && quote != '\'' {
		return "", false, diag.Errorf(diag.IssueBadAttribute, m, "value of attribute %s must be quoted", name)
	}

	from := p.r.Mark()
	if p.r.Matches("<%=") {
		codeFrom := p.r.Mark()
		before, ok := p.r.SkipUntilEscaped("%>", '\\')
		if !ok {
			return "", false, diag.Errorf(diag.IssueUnterminated, from, "unterminated <%%= in attribute %s", name)
		}
		code := p.r.Text(codeFrom, before)

		if p.r.Matches(string(quote)) {
			return strings.ReplaceAll(code, `%\>`, "%>"), true, nil
		}

		// Not a whole-value expression: read the rest as a plain value.
		p.r.Reset(from)
	}

	before, ok := p.r.SkipUntilEscaped(string(quote), '\\')
	if !ok {
		return "", false, diag.Errorf(diag.IssueUnterminated, m, "unterminated value of attribute %s", name)
	}
	return unquote(p.r.Text(from, before)), false, nil
}

// directive parses <%@ name attr="value" ... %>.
func (p *nativeParser) directive(parent *node.Node, start reader.Mark, sc scope) error {
	p.r.SkipSpaces()
	name := p.r.ReadName()

	n, err := p.builder.directive(name, start, sc)
	if err != nil {
		return err
	}

	for {
		p.r.SkipSpaces()
		if p.r.Matches("%>") {
			break
		}
		if p.r.AtEOF() {
			return diag.Errorf(diag.IssueUnterminated, start, "unterminated %s directive", name)
		}

		m := p.r.Mark()
		attr := p.r.ReadName()
		if attr == "" {
			return diag.Errorf(diag.IssueBadAttribute, m, "unexpected character %q in %s directive", p.r.Peek(), name)
		}

		value, _, err := p.attributeValue(attr, m)
		if err != nil {
			return err
		}
		if err := p.attribute(n, attr, value, false, m, sc, nil); err != nil {
			return err
		}
	}

	parent.Append(n)
	return p.applyDirective(n, sc)
}

// applyDirective performs the parse-time effects of a directive: binding taglib prefixes,
// switching EL recognition and pulling in included files.
func (p *nativeParser) applyDirective(n *node.Node, sc scope) error {
	switch n.Kind {
	case node.KindTaglibDirective:
		return p.bindTaglib(n)

	case node.KindPageDirective, node.KindTagDirective:
		if a, ok := n.Attr("isELIgnored"); ok {
			p.elIgnored = a.Value == "true"
		}

	case node.KindIncludeDirective:
		return p.include(p.r, n, sc)
	}
	return nil
}

func (p *nativeParser) bindTaglib(n *node.Node) error {
	prefix := n.AttrValue("prefix")
	uri, hasURI := n.Attr("uri")
	dir, hasDir := n.Attr("tagdir")

	switch {
	case prefix == "":
		return diag.Errorf(diag.IssueMissingAttribute, n.Start, "attribute prefix is mandatory for the taglib directive")
	case hasURI == hasDir:
		return diag.Errorf(diag.IssueInvalidDirectiveAttribute, n.Start, "taglib directive needs exactly one of uri and tagdir")
	case hasURI:
		return p.bindPrefix(prefix, uri.Value, n.Start)
	default:
		return p.bindPrefix(prefix, taglib.TagDirScheme+dir.Value, n.Start)
	}
}

// directivesOnly skips everything but comments and directives.
func (p *nativeParser) directivesOnly(parent *node.Node) error {
	for !p.r.AtEOF() {
		start := p.r.Mark()

		switch {
		case p.r.Matches("<%--"):
			if err := p.comment(start); err != nil {
				return err
			}
		case p.r.Matches("<%@"):
			if err := p.directive(parent, start, scope{}); err != nil {
				return err
			}
		default:
			next := strings.IndexByte(p.r.Rest()[1:], '<')
			if next < 0 {
				p.r.Skip(len(p.r.Rest()))
			} else {
				p.r.Skip(next + 1)
			}
		}
	}
	return nil
}

// standardAction parses a <jsp:...> element.
func (p *nativeParser) standardAction(parent *node.Node, sc scope) error {
	start := p.r.Mark()
	p.r.Skip(len("<jsp:"))
	local := p.r.ReadName()

	n, err := p.action(local, start, sc)
	if err != nil {
		return err
	}

	if n.Kind == node.KindNamedAttribute || n.Kind == node.KindJspBody {
		if err := checkNamedPlacement(parent, n); err != nil {
			return err
		}
	}

	selfClosed, err := p.attributes(n, sc)
	if err != nil {
		return err
	}
	parent.Append(n)

	if selfClosed {
		return nil
	}
	return p.actionBody(parent, n, sc)
}

// actionBody parses the body of a standard action up to its end tag.
func (p *nativeParser) actionBody(parent, n *node.Node, sc scope) error {
	switch n.Kind {
	case node.KindParam, node.KindInvokeAction, node.KindDoBodyAction, node.KindSetProperty:
		return p.emptyBody(n, sc)

	case node.KindGetProperty:
		if p.r.MatchesETag(n.QName) {
			return nil
		}
		return diag.Errorf(diag.IssueBodyNotEmpty, p.r.Mark(), "%s must have an empty body", describe(n))

	case node.KindIncludeAction, node.KindForwardAction:
		return p.restrictedBody(n, sc, "param", "attribute")

	case node.KindParams:
		return p.restrictedBody(n, sc, "param")

	case node.KindPlugin:
		return p.restrictedBody(n, sc, "params", "fallback", "attribute")

	case node.KindFallback:
		return p.opaqueBody(n, sc)

	case node.KindJspText:
		return p.jspText(n, sc)

	case node.KindJspBody:
		bc, err := jspBodyContent(parent, n.Start)
		if err != nil {
			return err
		}
		switch bc {
		case taglib.BodyTagDependent:
			return p.opaqueBody(n, sc)
		case taglib.BodyScriptless:
			sc.scriptless = true
		}
		return p.body(n, sc)
	}

	// jsp:useBean and jsp:attribute take any content.
	return p.body(n, sc)
}

// restrictedBody accepts only the listed standard actions, separated by whitespace and comments.
func (p *nativeParser) restrictedBody(n *node.Node, sc scope, allowed ...string) error {
	for {
		p.r.SkipSpaces()
		m := p.r.Mark()

		switch {
		case p.r.MatchesETag(n.QName):
			return nil
		case p.r.Matches("<%--"):
			if err := p.comment(m); err != nil {
				return err
			}
			continue
		case p.r.AtEOF():
			return diag.Errorf(diag.IssueUnterminatedTag, n.Start, "unterminated tag <%s>, expected </%s>", n.QName, n.QName)
		}

		if p.r.HasPrefix("<jsp:") && slices.Contains(allowed, readNameAt(p.r.Rest()[len("<jsp:"):])) {
			if err := p.standardAction(n, sc); err != nil {
				return err
			}
			continue
		}

		return diag.Errorf(diag.IssueMisplacedAction, m, "only jsp:%s may appear inside %s",
			strings.Join(allowed, ", jsp:"), describe(n))
	}
}

// jspText parses the body of jsp:text: template text and expressions, no elements.
func (p *nativeParser) jspText(n *node.Node, sc scope) error {
	from := p.r.Mark()
	before, ok := p.r.SkipUntilETag(n.QName)
	if !ok {
		return diag.Errorf(diag.IssueUnterminatedTag, n.Start, "unterminated tag <%s>, expected </%s>", n.QName, n.QName)
	}

	s := p.r.Text(from, before)
	if i := strings.IndexByte(s, '<'); i >= 0 {
		return diag.Errorf(diag.IssueMisplacedAction, from.Advance(s[:i]), "jsp:text must not contain elements")
	}
	return p.text(n, s, from, sc, true)
}
