package parser

import (
	"errors"
	"slices"
	"strings"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/el"
	"github.com/Drolfothesgnir/pagec/node"
	"github.com/Drolfothesgnir/pagec/reader"
	"github.com/Drolfothesgnir/pagec/taglib"
)

// scope is the part of the parse state inherited by nested content.
type scope struct {
	// scriptless is set once a scriptless body is entered and never cleared below it.
	scriptless bool
}

// builder creates nodes for both front-ends, so that both agree on node shapes and errors.
type builder struct {
	opts Options

	// prefixes holds the taglibs bound by taglib directives of the native syntax.
	prefixes map[string]*taglib.Library

	// uris holds the uri every native prefix was bound with.
	uris map[string]string

	// includes is the stack of files being parsed, outermost first.
	includes []string

	elIgnored bool

	// nsOf resolves prefixes of function references for the front-end in use.
	nsOf func(prefix string) string
}

func newBuilder(file string, opts Options) *builder {
	b := &builder{
		opts:      opts,
		prefixes:  map[string]*taglib.Library{},
		uris:      map[string]string{},
		includes:  []string{file},
		elIgnored: opts.ELIgnored,
	}
	b.nsOf = b.nativeURI
	return b
}

// nativeURI returns the uri a taglib directive bound prefix to.
func (b *builder) nativeURI(prefix string) string {
	return b.uris[prefix]
}

// bindFunctions records the namespace of every function the expression calls.
func (b *builder) bindFunctions(expr *el.Expression) {
	for i := range expr.Functions {
		expr.Functions[i].URI = b.nsOf(expr.Functions[i].Prefix)
	}
}

// enter pushes an included file, failing on cycles.
func (b *builder) enter(file string, m reader.Mark) error {
	for _, f := range b.includes {
		if f == file {
			return diag.Errorf(diag.IssueCircularInclude, m, "file %s includes itself through %s",
				file, strings.Join(b.includes, " -> "))
		}
	}
	b.includes = append(b.includes, file)
	return nil
}

func (b *builder) leave() {
	b.includes = b.includes[:len(b.includes)-1]
}

// current returns the file being parsed.
func (b *builder) current() string {
	return b.includes[len(b.includes)-1]
}

// resolve looks up the library bound to uri.
func (b *builder) resolve(uri string, m reader.Mark) (*taglib.Library, error) {
	if b.opts.Resolver == nil {
		return nil, diag.Errorf(diag.IssueUnknownTaglib, m, "cannot resolve tag library %s: no resolver", uri)
	}

	lib, err := b.opts.Resolver.Resolve(uri)
	if err != nil {
		if errors.Is(err, taglib.ErrLibraryNotFound) {
			return nil, diag.Errorf(diag.IssueUnknownTaglib, m, "cannot resolve tag library %s: %w", uri, err)
		}
		return nil, diag.Errorf(diag.IssueUnknownTaglib, m, "loading tag library %s: %w", uri, err)
	}
	return lib, nil
}

// bindPrefix binds a native prefix to the library of uri.
func (b *builder) bindPrefix(prefix, uri string, m reader.Mark) error {
	if prefix == "jsp" || prefix == "jspx" {
		return diag.Errorf(diag.IssueInvalidDirectiveValue, m, "prefix %s is reserved", prefix)
	}

	if old, ok := b.uris[prefix]; ok && old != uri {
		return diag.Errorf(diag.IssueDirectiveConflict, m,
			"prefix %s is already bound to %s, cannot rebind it to %s", prefix, old, uri)
	}

	lib, err := b.resolve(uri, m)
	if err != nil {
		return err
	}

	b.prefixes[prefix] = lib
	b.uris[prefix] = uri
	return nil
}

// directive creates a directive node.
func (b *builder) directive(name string, m reader.Mark, sc scope) (*node.Node, error) {
	kind, ok := node.DirectiveKind(name)
	if !ok {
		return nil, diag.Errorf(diag.IssueUnknownDirective, m, "unknown directive %s", name)
	}

	n := node.New(kind, m)
	n.QName = name
	n.InScriptless = sc.scriptless
	return n, nil
}

// action creates a standard action node.
func (b *builder) action(local string, m reader.Mark, sc scope) (*node.Node, error) {
	kind, ok := node.ActionKind(local)
	if !ok {
		return nil, diag.Errorf(diag.IssueUnknownAction, m, "unknown standard action jsp:%s", local)
	}

	n := node.New(kind, m)
	n.QName = "jsp:" + local
	n.InScriptless = sc.scriptless
	if kind == node.KindNamedAttribute {
		n.Trim = true
	}
	return n, nil
}

// customTag creates a custom tag node, resolving its descriptor in lib.
func (b *builder) customTag(lib *taglib.Library, uri, prefix, local string, m reader.Mark, sc scope) (*node.Node, error) {
	d, ok := lib.Tag(local)
	if !ok {
		p, isFile := lib.TagFile(local)
		if !isFile {
			return nil, diag.Errorf(diag.IssueUnknownTag, m, "no tag %s in tag library %s", local, uri)
		}

		if b.opts.TagFiles == nil {
			return nil, diag.Errorf(diag.IssueUnknownTag, m, "tag %s:%s is implemented by tag file %s, which cannot be loaded", prefix, local, p)
		}

		var err error
		if d, err = b.opts.TagFiles.TagFileDescriptor(p); err != nil {
			if _, isTE := diag.AsTranslationError(err); isTE {
				return nil, err
			}
			return nil, diag.Errorf(diag.IssueDependencyFailed, m, "tag file %s: %w", p, err)
		}
	}

	n := node.New(node.KindCustomTag, m)
	n.QName = prefix + ":" + local
	n.InScriptless = sc.scriptless
	n.Tag = &node.CustomTag{
		Prefix:     prefix,
		Local:      local,
		URI:        uri,
		Descriptor: d,
	}
	return n, nil
}

// scripting creates a declaration, expression or scriptlet node.
func (b *builder) scripting(kind node.Kind, code string, m reader.Mark, sc scope) (*node.Node, error) {
	if sc.scriptless {
		return nil, diag.Errorf(diag.IssueScriptingNotAllowed, m, "%s is not allowed in a scriptless body", kind)
	}

	n := node.New(kind, m)
	n.Text = code
	return n, nil
}

// elNode creates an EL expression node from its source, delimiters included.
func (b *builder) elNode(src string, m reader.Mark, sc scope) (*node.Node, error) {
	expr, err := el.Parse(src)
	if err != nil {
		return nil, diag.Errorf(diag.IssueInvalidExpression, m, "invalid expression %s: %w", src, err)
	}
	b.bindFunctions(expr)

	n := node.New(node.KindELExpression, m)
	n.Text = src
	n.EL = expr
	n.InScriptless = sc.scriptless
	return n, nil
}

// text appends template text to parent. With allowEL, expressions are split out into their own nodes.
func (b *builder) text(parent *node.Node, s string, m reader.Mark, sc scope, allowEL bool) error {
	if s == "" {
		return nil
	}

	if !allowEL || b.elIgnored || !el.Contains(s) {
		if allowEL && !b.elIgnored {
			s = el.Unescape(s)
		}
		parent.Append(textNode(s, m, sc))
		return nil
	}

	segs, err := el.Scan(s)
	if err != nil {
		var se *el.SyntaxError
		if errors.As(err, &se) {
			m = m.Advance(s[:se.Offset])
		}
		return diag.Errorf(diag.IssueUnterminated, m, "unterminated expression: %w", err)
	}

	for _, seg := range segs {
		at := m.Advance(s[:seg.Offset])
		if !seg.Expr {
			parent.Append(textNode(seg.Text, at, sc))
			continue
		}

		n, err := b.elNode(seg.Text, at, sc)
		if err != nil {
			return err
		}
		parent.Append(n)
	}
	return nil
}

func textNode(s string, m reader.Mark, sc scope) *node.Node {
	n := node.New(node.KindText, m)
	n.Text = s
	n.InScriptless = sc.scriptless
	return n
}

// attribute adds an attribute to n. raw is the value as read, script marks a <%= %> value.
// Directive attributes are always literal.
func (b *builder) attribute(n *node.Node, name, raw string, script bool, m reader.Mark, sc scope, uriOf func(string) string) error {
	if name == "" {
		return diag.Errorf(diag.IssueBadAttribute, m, "missing attribute name in %s", describe(n))
	}

	if _, dup := n.Attr(name); dup {
		return diag.Errorf(diag.IssueDuplicateAttribute, m, "attribute %s appears more than once in %s", name, describe(n))
	}

	a := &node.Attribute{Name: name, Local: name, Start: m}
	if i := strings.IndexByte(name, ':'); i >= 0 {
		a.Local = name[i+1:]
		if uriOf != nil {
			a.URI = uriOf(name[:i])
		}
	}

	switch {
	case n.Kind.IsDirective():
		a.Kind = node.AttrLiteral
		a.Value = raw

	case script:
		if sc.scriptless {
			return diag.Errorf(diag.IssueScriptingNotAllowed, m,
				"expression value of attribute %s is not allowed in a scriptless body", name)
		}
		a.Kind = node.AttrScript
		a.Value = strings.TrimSpace(raw)

	case !b.elIgnored && el.Contains(raw):
		expr, err := el.Parse(raw)
		if err != nil {
			return diag.Errorf(diag.IssueInvalidExpression, m, "attribute %s: %w", name, err)
		}
		b.bindFunctions(expr)
		a.Kind = node.AttrEL
		a.Value = raw
		a.EL = expr

	default:
		a.Kind = node.AttrLiteral
		a.Value = raw
		if !b.elIgnored {
			a.Value = el.Unescape(raw)
		}
	}

	n.Attrs = append(n.Attrs, a)

	if n.Kind == node.KindNamedAttribute {
		switch name {
		case "name":
			n.AttrName = a.Value
		case "trim":
			n.Trim = a.Value != "false"
		}
	}

	return nil
}

// load reads an included file through the configured loader.
func (b *builder) load(file string, m reader.Mark) (string, error) {
	if b.opts.Loader == nil {
		return "", diag.Errorf(diag.IssueIncludeFailed, m, "cannot include %s: no loader", file)
	}

	content, err := b.opts.Loader.Load(file)
	if err != nil {
		return "", diag.Errorf(diag.IssueIncludeFailed, m, "cannot include %s: %w", file, err)
	}
	return content, nil
}

// include parses the file named by an include directive into the directive node.
// The included source is pushed on r so that marks inside it carry the include stack.
func (b *builder) include(r *reader.Reader, n *node.Node, sc scope) error {
	file, ok := n.Attr("file")
	if !ok {
		return diag.Errorf(diag.IssueMissingAttribute, n.Start, "attribute file is mandatory for the include directive")
	}

	target := ResolvePath(b.current(), file.Value)
	if err := b.enter(target, n.Start); err != nil {
		return err
	}
	defer b.leave()

	content, err := b.load(target, n.Start)
	if err != nil {
		return err
	}

	if err := r.PushSource(target, content); err != nil {
		return diag.Errorf(diag.IssueCircularInclude, n.Start, "%w", err)
	}

	if DetectSyntax(target, content) == SyntaxXML {
		err = parseXML(b, r, n, sc)
	} else {
		err = parseNative(b, r, n, sc)
	}
	if err != nil {
		return err
	}

	r.Pop()
	return nil
}

// checkNamedPlacement rejects jsp:attribute and jsp:body outside of the elements that accept them.
func checkNamedPlacement(parent, n *node.Node) error {
	switch parent.Kind {
	case node.KindCustomTag, node.KindIncludeAction, node.KindForwardAction, node.KindPlugin,
		node.KindUseBean, node.KindSetProperty, node.KindParam, node.KindInvokeAction, node.KindDoBodyAction:
		if n.Kind == node.KindJspBody && parent.Kind != node.KindCustomTag {
			break
		}
		return nil
	}
	return diag.Errorf(diag.IssueMisplacedAction, n.Start, "%s is not allowed inside %s", describe(n), describe(parent))
}

// actionChildren lists the children accepted by standard actions with a restricted body.
var actionChildren = map[node.Kind][]node.Kind{
	node.KindParam:         {node.KindNamedAttribute},
	node.KindInvokeAction:  {node.KindNamedAttribute},
	node.KindDoBodyAction:  {node.KindNamedAttribute},
	node.KindSetProperty:   {node.KindNamedAttribute},
	node.KindGetProperty:   {},
	node.KindIncludeAction: {node.KindParam, node.KindNamedAttribute},
	node.KindForwardAction: {node.KindParam, node.KindNamedAttribute},
	node.KindParams:        {node.KindParam},
	node.KindPlugin:        {node.KindParams, node.KindFallback, node.KindNamedAttribute},
}

// checkActionBody verifies the children of a standard action parsed without
// restrictions. Blank text is ignored.
func checkActionBody(n *node.Node) error {
	allowed, restricted := actionChildren[n.Kind]
	if !restricted {
		return checkNamedBody(n)
	}

	for _, c := range n.Body {
		if c.Kind == node.KindText && isBlank(c.Text) || slices.Contains(allowed, c.Kind) {
			continue
		}
		if len(allowed) == 0 || len(allowed) == 1 && allowed[0] == node.KindNamedAttribute {
			return diag.Errorf(diag.IssueBodyNotEmpty, c.Start, "%s must have an empty body", describe(n))
		}
		return diag.Errorf(diag.IssueMisplacedAction, c.Start, "%s is not allowed inside %s", describe(c), describe(n))
	}
	return nil
}

// checkTagBody verifies the body of a custom tag against its body content.
func checkTagBody(n *node.Node) error {
	if err := checkNamedBody(n); err != nil {
		return err
	}
	if n.Tag.Descriptor.BodyContent == taglib.BodyEmpty && !n.HasEmptyBody() {
		return diag.Errorf(diag.IssueBodyNotEmpty, n.Start, "%s must have an empty body", describe(n))
	}
	return nil
}

// checkNamedBody rejects content outside jsp:body once named attributes are used.
func checkNamedBody(n *node.Node) error {
	if len(n.NamedAttributes()) == 0 {
		return nil
	}

	for _, c := range n.Body {
		switch {
		case c.Kind == node.KindNamedAttribute, c.Kind == node.KindJspBody:
		case c.Kind == node.KindText && isBlank(c.Text):
		default:
			return diag.Errorf(diag.IssueMisplacedAction, c.Start,
				"the body of %s must be wrapped in jsp:body when jsp:attribute is used", describe(n))
		}
	}
	return nil
}

// jspBodyContent returns the content model of a jsp:body from the tag it belongs to.
func jspBodyContent(parent *node.Node, m reader.Mark) (taglib.BodyContent, error) {
	if parent == nil || parent.Kind != node.KindCustomTag {
		return 0, diag.Errorf(diag.IssueMisplacedAction, m, "jsp:body must be a child of a custom tag")
	}

	bc := parent.Tag.Descriptor.BodyContent
	if bc == taglib.BodyEmpty {
		return 0, diag.Errorf(diag.IssueBodyNotEmpty, m, "tag %s must have an empty body", parent.QName)
	}
	return bc, nil
}

// describe names a node for error messages.
func describe(n *node.Node) string {
	if n.Kind.IsDirective() {
		return n.QName + " directive"
	}
	if n.QName != "" {
		return "<" + n.QName + ">"
	}
	return n.Kind.String()
}

// unquote removes the escapes allowed inside quoted attribute values.
func unquote(s string) string {
	if !strings.ContainsAny(s, `\&`) {
		return s
	}

	r := strings.NewReplacer(
		`\\`, `\`,
		`\"`, `"`,
		`\'`, `'`,
		`<\%`, `<%`,
		`%\>`, `%>`,
		"&apos;", "'",
		"&quot;", `"`,
	)
	return r.Replace(s)
}
