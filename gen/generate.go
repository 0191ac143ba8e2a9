// Package gen turns a validated tree into Go source.
//
// The generated code is written against a runtime package, imported as rt, which provides the
// page context and output stack (PageContext with Out, PushBody, PopBody, Include, Forward),
// the tag contracts (Tag, SimpleTag, Fragment, TagPool and the SkipBody, EvalBodyInclude,
// EvalBodyBuffered, EvalBodyAgain and SkipPage results), and the evaluation helpers
// (ParseEL, Eval, WriteEL, Attr, Capture, Convert, NewFragment, UseBean).
package gen

import (
	"slices"
	"strconv"
	"strings"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/node"
)

// DefaultRuntimeImport is the import path of the runtime package used by generated code.
const DefaultRuntimeImport = "github.com/Drolfothesgnir/pagert"

// Options configures the generator.
type Options struct {
	// Package is the package clause of the generated file.
	Package string

	// RuntimeImport is the import path of the runtime package.
	RuntimeImport string

	// TypeName is the name of the generated page or tag handler type.
	TypeName string

	// PoolTagHandlers reuses classic tag handlers through per-page pools.
	PoolTagHandlers bool

	// TextChunkSize bounds the length of a literal written by one statement.
	TextChunkSize int

	// PoolLiteralText hoists literal text into de-duplicated constants.
	PoolLiteralText bool
}

func (o *Options) setDefaults(root *node.Node) {
	if o.Package == "" {
		o.Package = "pages"
	}
	if o.RuntimeImport == "" {
		o.RuntimeImport = DefaultRuntimeImport
	}
	if o.TypeName == "" {
		o.TypeName = TypeName(root.Root.File)
	}
	if o.TextChunkSize <= 0 {
		o.TextChunkSize = DefaultTextChunkSize
	}
}

// Result is the generated code of one unit.
type Result struct {
	Source   string
	TypeName string

	// Fragments is the number of fragment bodies dispatched by the unit's fragment helper.
	Fragments int

	// Hoisted is the number of tag bodies generated as separate methods.
	Hoisted int
}

// frame is the state of an open custom tag.
type frame struct {
	n       *node.Node
	handler string
}

type generator struct {
	opts Options
	root *node.Node
	page *node.PageInfo

	// recv is the receiver name of the unit's methods.
	recv     string
	fragType string

	// w is the writer of the code being generated; decls, methods and frags collect the
	// package-level declarations, hoisted tag methods and fragment cases.
	w       *Writer
	decls   *Writer
	methods *Writer
	frags   *Writer

	imports *importSet
	texts   *textPool
	els     []string
	elIndex map[string]int
	pools   []pool

	scope  *varScope
	frames []frame

	// parent is the handler of the enclosing tag when no frame is open.
	parent string

	seq     int
	nfrag   int
	hoisted int
}

type pool struct {
	name, typ string
}

// Generate writes the Go source of a validated unit. It annotates the nodes with their output
// lines. A translation error aborts generation and nothing is returned.
func Generate(root *node.Node, opts Options) (*Result, error) {
	if root.Kind != node.KindRoot || root.Root == nil || root.Root.Page == nil {
		panic(diag.Internal("gen: unit was not validated"))
	}
	opts.setDefaults(root)

	g := &generator{
		opts:     opts,
		root:     root,
		page:     root.Root.Page,
		recv:     "p",
		fragType: lowerFirst(opts.TypeName) + "Fragments",
		w:        NewWriter(),
		decls:    NewWriter(),
		methods:  NewWriter(),
		frags:    NewWriter(),
		imports:  newImportSet(),
		texts:    newTextPool(),
		elIndex:  map[string]int{},
		scope:    newVarScope(),
		parent:   "nil",
	}
	if g.page.Tag != nil {
		g.recv = "t"
		g.parent = "t"
	}

	for _, imp := range g.page.Imports {
		g.imports.addRaw(imp)
	}
	g.imports.useAs("rt", opts.RuntimeImport)

	g.w.In()
	if err := g.body(root.Body); err != nil {
		return nil, err
	}
	g.w.Out()

	src := g.assemble()
	return &Result{
		Source:    src.String(),
		TypeName:  opts.TypeName,
		Fragments: g.nfrag,
		Hoisted:   g.hoisted,
	}, nil
}

// rt returns the name of the runtime package.
func (g *generator) rt() string {
	return "rt"
}

func (g *generator) next() int {
	g.seq++
	return g.seq
}

// assemble splices the parts of the unit into one file. The main writer holds the body of the
// render method.
func (g *generator) assemble() *Writer {
	out := NewWriter()
	out.Printf("// Code generated by pagec from %s. DO NOT EDIT.", g.root.Root.File)
	out.Println("")
	out.Printf("package %s", g.opts.Package)
	out.Println("")

	// Function imports are only known once the map is built.
	fns := NewWriter()
	g.writeFunctions(fns)

	g.imports.write(out)
	out.Println("")

	if !g.decls.Empty() {
		out.Splice(g.decls)
		out.Println("")
	}

	g.texts.write(out)
	out.Splice(fns)
	g.writeExpressions(out)

	if g.page.Tag != nil {
		g.tagFileType(out)
	} else {
		g.pageType(out)
	}

	out.Open("func (%s *%s) render(pc *rt.PageContext, frags *%s) error {", g.recv, g.opts.TypeName, g.fragType)
	out.Println("_ = frags")
	out.Splice(g.w)
	out.Println("return nil")
	out.Close("}")

	if !g.methods.Empty() {
		out.Println("")
		out.Splice(g.methods)
	}

	out.Println("")
	g.fragmentHelper(out)
	return out
}

func (g *generator) pageType(out *Writer) {
	p := g.page

	out.Printf("// %s renders %s.", g.opts.TypeName, g.root.Root.File)
	g.structType(out, "")
	out.Println("")

	out.Open("func (p *%s) PageInfo() rt.PageInfo {", g.opts.TypeName)
	out.Open("return rt.PageInfo{")
	out.Printf("ContentType: %s,", strconv.Quote(p.ContentType))
	out.Printf("PageEncoding: %s,", strconv.Quote(p.PageEncoding))
	out.Printf("Buffer: %d,", p.Buffer)
	out.Printf("AutoFlush: %t,", p.AutoFlush)
	out.Printf("Session: %t,", p.Session)
	out.Printf("ErrorPage: %s,", strconv.Quote(p.ErrorPage))
	out.Printf("IsErrorPage: %t,", p.IsErrorPage)
	out.Printf("Info: %s,", strconv.Quote(p.Info))
	out.Close("}")
	out.Close("}")
	out.Println("")

	out.Println("// Render writes the page to pc.")
	out.Open("func (p *%s) Render(pc *rt.PageContext) error {", g.opts.TypeName)
	out.Printf("frags := &%s{p: p}", g.fragType)
	out.Open("if err := p.render(pc, frags); err != nil && !rt.IsSkipPage(err) {")
	out.Println("return err")
	out.Close("}")
	out.Println("return nil")
	out.Close("}")
	out.Println("")
}

// structType writes the unit's type with one field per handler pool.
func (g *generator) structType(out *Writer, embed string, fields ...string) {
	if embed == "" && len(fields) == 0 && len(g.pools) == 0 {
		out.Printf("type %s struct{}", g.opts.TypeName)
		return
	}

	out.Open("type %s struct {", g.opts.TypeName)
	if embed != "" {
		out.Println(embed)
	}
	for _, f := range fields {
		out.Println(f)
	}
	for _, p := range g.pools {
		out.Printf("%s rt.TagPool", p.name)
	}
	out.Close("}")
}

// writeFunctions writes the map of library functions called by expressions.
func (g *generator) writeFunctions(w *Writer) {
	if len(g.page.Functions) == 0 {
		return
	}

	var entries []string
	for ref, fn := range g.page.Functions {
		target := fn.Func
		if fn.Import != "" {
			target = g.imports.use(fn.Import) + "." + fn.Func
		}
		entries = append(entries, strconv.Quote(ref.String())+": "+target+",")
	}
	slices.Sort(entries)

	w.Open("var _fns = rt.FuncMap{")
	for _, e := range entries {
		w.Println(e)
	}
	w.Close("}")
	w.Println("")
}

func (g *generator) writeExpressions(w *Writer) {
	if len(g.els) == 0 {
		return
	}

	fns := "nil"
	if len(g.page.Functions) > 0 {
		fns = "_fns"
	}

	w.Open("var (")
	for i, src := range g.els {
		w.Printf("_el%d = rt.MustParseEL(%s, %s)", i, strconv.Quote(src), fns)
	}
	w.Close(")")
	w.Println("")
}

// el returns the variable holding the parsed expression src.
func (g *generator) el(src string) string {
	i, ok := g.elIndex[src]
	if !ok {
		i = len(g.els)
		g.els = append(g.els, src)
		g.elIndex[src] = i
	}
	return "_el" + strconv.Itoa(i)
}

// body generates a list of nodes.
func (g *generator) body(nodes []*node.Node) error {
	for _, n := range nodes {
		if err := g.visit(n); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) visit(n *node.Node) error {
	switch n.Kind {
	case node.KindRoot:
		panic(diag.Internal("gen: nested root node at %s", n.Start))

	case node.KindText:
		g.text(n, n.Text)
		return nil

	case node.KindJspText, node.KindJspBody:
		return g.body(n.Body)

	case node.KindPageDirective, node.KindTaglibDirective, node.KindTagDirective,
		node.KindAttributeDirective, node.KindVariableDirective:
		return nil

	case node.KindIncludeDirective:
		return g.body(n.Body)

	case node.KindDeclaration:
		g.decls.Begin(n)
		for _, line := range strings.Split(strings.TrimSpace(n.Text), "\n") {
			g.decls.Println(strings.TrimRight(line, "\r"))
		}
		g.decls.End(n)
		return nil

	case node.KindScriptlet:
		g.w.Begin(n)
		for _, line := range strings.Split(n.Text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				g.w.Println(line)
			}
		}
		g.w.End(n)
		return nil

	case node.KindExpression:
		g.w.Begin(n)
		g.w.Printf("pc.Out().Print(%s)", strings.TrimSpace(n.Text))
		g.w.End(n)
		return nil

	case node.KindELExpression:
		g.w.Begin(n)
		g.check("rt.WriteEL(pc, %s)", g.el(n.Text))
		g.w.End(n)
		return nil

	case node.KindIncludeAction, node.KindForwardAction, node.KindGetProperty, node.KindSetProperty,
		node.KindUseBean, node.KindPlugin, node.KindInvokeAction, node.KindDoBodyAction:
		return g.action(n)

	case node.KindParams, node.KindParam, node.KindFallback, node.KindNamedAttribute:
		// Consumed by the element they belong to.
		return nil

	case node.KindCustomTag:
		return g.customTag(n)
	}

	panic(diag.Internal("gen: unexpected node kind %d", int(n.Kind)))
}

// check writes a call returning an error and the check of its result.
func (g *generator) check(format string, args ...any) {
	g.w.Printf("if err := "+format+"; err != nil {", args...)
	g.w.In()
	g.w.Println("return err")
	g.w.Close("}")
}

// checkErr writes the check of err.
func (g *generator) checkErr() {
	g.w.Open("if err != nil {")
	g.w.Println("return err")
	g.w.Close("}")
}

// parentHandler returns the expression of the innermost enclosing tag handler.
func (g *generator) parentHandler() string {
	if len(g.frames) > 0 {
		return g.frames[len(g.frames)-1].handler
	}
	return g.parent
}

// method is the generation state saved while a separate method or fragment is generated.
type method struct {
	w      *Writer
	scope  *varScope
	frames []frame
	parent string
}

// enter switches to generating into w with a fresh scope, the enclosing tag being parent.
func (g *generator) enter(w *Writer, parent string) method {
	saved := method{w: g.w, scope: g.scope, frames: g.frames, parent: g.parent}
	g.w = w
	g.scope = newVarScope()
	g.frames = nil
	g.parent = parent
	return saved
}

func (g *generator) leave(m method) {
	g.w, g.scope, g.frames, g.parent = m.w, m.scope, m.frames, m.parent
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
