// Package compiler runs the translation pipeline over pages and tag files: decoding, parsing,
// validation, code generation and line mapping. Tag files referenced by a unit are compiled
// as auxiliary units of the same session.
package compiler

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/gen"
	"github.com/Drolfothesgnir/pagec/node"
	"github.com/Drolfothesgnir/pagec/parser"
	"github.com/Drolfothesgnir/pagec/smap"
	"github.com/Drolfothesgnir/pagec/taglib"
	"github.com/Drolfothesgnir/pagec/validate"
)

// ErrNoSourceRoot is returned when a source has to be read but the compiler has no file system.
var ErrNoSourceRoot = errors.New("no source root configured")

// Options configures a compiler session.
type Options struct {
	// Package is the package clause of the generated files.
	Package string

	// RuntimeImport is the import path of the runtime package the generated code calls.
	RuntimeImport string

	PoolTagHandlers bool
	TextChunkSize   int
	PoolLiteralText bool

	// DefaultEncoding is the encoding of sources declaring none.
	DefaultEncoding string

	// MaxErrors and Overflow bound the errors a unit collects during validation.
	MaxErrors int
	Overflow  diag.OverflowPolicy

	// Binder resolves tag handler setters; nil means taglib.DefaultBinder.
	Binder taglib.Binder
}

func (o *Options) check() error {
	if o.DefaultEncoding == "" {
		o.DefaultEncoding = DefaultEncoding
	}

	if o.TextChunkSize < 0 {
		return diag.NewConfigError(diag.IssueBadOption, fmt.Errorf("text chunk size must be non-negative, got %d", o.TextChunkSize))
	}

	if o.MaxErrors < 0 {
		return diag.NewConfigError(diag.IssueNegativeErrorsCap, fmt.Errorf("errors cap must be non-negative, got %d", o.MaxErrors))
	}

	if _, err := lookupEncoding(o.DefaultEncoding); err != nil {
		return diag.NewConfigError(diag.IssueBadOption, err)
	}
	return nil
}

// Unit is one compiled source.
type Unit struct {
	// Path is the page-root absolute path of the source.
	Path string `json:"path"`

	// TypeName is the Go type generated for the unit.
	TypeName string `json:"type_name"`

	// FileName is the name of the generated Go file.
	FileName string `json:"file_name"`

	Encoding string `json:"encoding"`
	TagFile  bool   `json:"tag_file,omitempty"`

	// Source is the generated Go code.
	Source string `json:"source"`

	// SMAP is the line map of Source in SMAP text format.
	SMAP string `json:"smap"`

	// Root is the validated tree, annotated with output lines.
	Root *node.Node `json:"-"`
}

// Result is the outcome of one compilation request.
type Result struct {
	Unit *Unit `json:"unit"`

	// Aux are the tag file units compiled as a side effect of the request.
	Aux []*Unit `json:"aux,omitempty"`
}

// Compiler is a compilation session. Compiled tag files are reused across the requests of a
// session. A Compiler is not safe for concurrent use; the Resolver it is given may be shared.
type Compiler struct {
	opts     Options
	fsys     fs.FS
	resolver taglib.Resolver
	logger   zerolog.Logger

	// inProgress counts the pipelines running for each unit.
	inProgress map[string]int

	units      map[string]*Unit
	signatures map[string]*taglib.Descriptor
	aux        []*Unit

	// encodings holds the encodings of the units being compiled, innermost last.
	encodings []string
}

// New creates a compiler reading sources from fsys, which is rooted at the page root and may
// be nil when only CompileSource is used without includes.
func New(fsys fs.FS, resolver taglib.Resolver, opts Options) (*Compiler, error) {
	if err := opts.check(); err != nil {
		return nil, err
	}

	return &Compiler{
		opts:       opts,
		fsys:       fsys,
		resolver:   resolver,
		logger:     zerolog.Nop(),
		inProgress: map[string]int{},
		units:      map[string]*Unit{},
		signatures: map[string]*taglib.Descriptor{},
	}, nil
}

// WithLogger sets the logger unit events are reported to.
func (c *Compiler) WithLogger(l zerolog.Logger) *Compiler {
	c.logger = l
	return c
}

// Compile compiles the source at the page-root absolute path p.
func (c *Compiler) Compile(p string) (*Result, error) {
	p = cleanPath(p)
	if u, ok := c.units[p]; ok {
		return &Result{Unit: u}, nil
	}

	raw, err := c.read(p)
	if err != nil {
		return nil, err
	}

	res, err := c.run(p, raw, parser.SyntaxAuto)
	if err != nil {
		return nil, err
	}

	if res.Unit.TagFile {
		c.units[p] = res.Unit
	}
	return res, nil
}

// CompileSource compiles raw as if it were stored at p. Includes and tag files are still read
// from the compiler's file system.
func (c *Compiler) CompileSource(p string, raw []byte, syntax parser.Syntax) (*Result, error) {
	return c.run(cleanPath(p), raw, syntax)
}

func (c *Compiler) run(p string, raw []byte, syntax parser.Syntax) (*Result, error) {
	start := len(c.aux)

	u, err := c.compile(p, raw, syntax)
	if err != nil {
		return nil, err
	}

	return &Result{Unit: u, Aux: slices.Clone(c.aux[start:])}, nil
}

// compile runs the full pipeline over one unit.
func (c *Compiler) compile(p string, raw []byte, syntax parser.Syntax) (u *Unit, err error) {
	log := c.logger.With().Str("unit", p).Logger()

	c.inProgress[p]++
	defer func() { c.inProgress[p]-- }()
	defer recoverInternal(&err)

	content, enc, err := decode(p, raw, c.fallback())
	if err != nil {
		return nil, err
	}

	c.encodings = append(c.encodings, enc)
	defer func() { c.encodings = c.encodings[:len(c.encodings)-1] }()

	log.Debug().Str("encoding", enc).Msg("compiling unit")

	root, err := parser.Parse(parser.Source{Path: p, Content: content}, parser.Options{
		Syntax:   syntax,
		Encoding: enc,
		Resolver: c.resolver,
		Loader:   c,
		TagFiles: c,
	})
	if err != nil {
		log.Debug().Err(err).Msg("parse failed")
		return nil, err
	}

	if err = c.validate(p, root); err != nil {
		log.Debug().Err(err).Msg("validation failed")
		return nil, err
	}

	typeName := gen.TypeName(p)
	if tag := root.Root.Page.Tag; tag != nil {
		typeName = gen.TagTypeName(tag.Name)
	}

	res, err := gen.Generate(root, gen.Options{
		Package:         c.opts.Package,
		RuntimeImport:   c.opts.RuntimeImport,
		TypeName:        typeName,
		PoolTagHandlers: c.opts.PoolTagHandlers,
		TextChunkSize:   c.opts.TextChunkSize,
		PoolLiteralText: c.opts.PoolLiteralText,
	})
	if err != nil {
		log.Debug().Err(err).Msg("generation failed")
		return nil, err
	}

	fileName := gen.FileName(p)

	b := smap.NewBuilder()
	if err = b.FromTree(root); err != nil {
		return nil, err
	}
	b.Optimize()
	m := smap.New(fileName, b.Stratum(smap.DefaultStratum))

	log.Info().
		Str("type", res.TypeName).
		Int("fragments", res.Fragments).
		Int("hoisted", res.Hoisted).
		Msg("unit compiled")

	return &Unit{
		Path:     p,
		TypeName: res.TypeName,
		FileName: fileName,
		Encoding: enc,
		TagFile:  root.Root.TagFile,
		Source:   res.Source,
		SMAP:     m.String(),
		Root:     root,
	}, nil
}

func (c *Compiler) validate(p string, root *node.Node) error {
	err := validate.Validate(root, validate.Options{
		Resolver:  c.resolver,
		Binder:    c.opts.Binder,
		Overflow:  c.opts.Overflow,
		MaxErrors: c.opts.MaxErrors,
	})
	if err != nil {
		return err
	}

	if tag := root.Root.Page.Tag; tag != nil && tag.Name == "" {
		tag.Name = strings.TrimSuffix(path.Base(p), path.Ext(p))
	}
	return nil
}

// ExtractSignature reads only the directives of the tag file at p and returns the descriptor
// of the tag it implements.
func (c *Compiler) ExtractSignature(p string) (d *taglib.Descriptor, err error) {
	defer recoverInternal(&err)

	p = cleanPath(p)
	raw, err := c.read(p)
	if err != nil {
		return nil, err
	}

	content, enc, err := decode(p, raw, c.fallback())
	if err != nil {
		return nil, err
	}

	root, err := parser.Parse(parser.Source{Path: p, Content: content}, parser.Options{
		DirectivesOnly: true,
		TagFile:        true,
		Encoding:       enc,
		Resolver:       c.resolver,
		Loader:         c,
	})
	if err != nil {
		return nil, err
	}

	if err = c.validate(p, root); err != nil {
		return nil, err
	}

	return descriptor(p, root), nil
}

// Load implements parser.Loader. An included file without an encoding declaration is read in
// the encoding of the unit including it.
func (c *Compiler) Load(p string) (string, error) {
	raw, err := c.read(p)
	if err != nil {
		return "", err
	}

	content, _, err := decode(p, raw, c.fallback())
	return content, err
}

// TagFileDescriptor implements parser.TagFileResolver. The tag file is compiled as an
// auxiliary unit; if it is already being compiled, only its signature is extracted.
func (c *Compiler) TagFileDescriptor(p string) (*taglib.Descriptor, error) {
	p = cleanPath(p)
	if d, ok := c.signatures[p]; ok {
		return d, nil
	}

	if u, ok := c.units[p]; ok {
		d := descriptor(p, u.Root)
		c.signatures[p] = d
		return d, nil
	}

	if c.inProgress[p] > 0 {
		c.logger.Debug().Str("unit", p).Msg("tag file depends on itself, extracting signature")
		return c.ExtractSignature(p)
	}

	raw, err := c.read(p)
	if err != nil {
		return nil, err
	}

	u, err := c.compile(p, raw, parser.SyntaxAuto)
	if err != nil {
		c.logger.Debug().Str("unit", p).Err(err).Msg("tag file failed")
		return nil, err
	}

	c.units[p] = u
	c.aux = append(c.aux, u)

	d := descriptor(p, u.Root)
	c.signatures[p] = d
	return d, nil
}

func descriptor(p string, root *node.Node) *taglib.Descriptor {
	tag := root.Root.Page.Tag
	return tag.Descriptor(p, gen.TagTypeName(tag.Name))
}

func (c *Compiler) read(p string) ([]byte, error) {
	if c.fsys == nil {
		return nil, ErrNoSourceRoot
	}
	return fs.ReadFile(c.fsys, strings.TrimPrefix(p, "/"))
}

func (c *Compiler) fallback() string {
	if n := len(c.encodings); n > 0 {
		return c.encodings[n-1]
	}
	return c.opts.DefaultEncoding
}

func cleanPath(p string) string {
	return path.Clean("/" + p)
}

// recoverInternal turns a broken invariant raised with panic into the unit's error.
func recoverInternal(err *error) {
	r := recover()
	if r == nil {
		return
	}

	te, ok := r.(*diag.TranslationError)
	if !ok || te.Issue != diag.IssueInternal {
		panic(r)
	}
	*err = te
}
