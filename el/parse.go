package el

import (
	"errors"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// FuncRef is a reference to a tag library function, written prefix:name(...) in an expression.
type FuncRef struct {
	Prefix string
	Name   string

	// URI is the namespace the prefix is bound to where the expression appears.
	// It is filled in by the parser.
	URI string
}

func (f FuncRef) String() string {
	return f.Prefix + ":" + f.Name
}

// Expression is a validated composite expression: literal text interleaved with expressions.
type Expression struct {
	// Source is the text as written.
	Source string

	// Parts are the literal and expression segments of Source.
	Parts []Segment

	// Functions lists the library functions called by the expression, without duplicates.
	Functions []FuncRef

	// Deferred is true if any part is a deferred expression.
	Deferred bool
}

// IsLiteral reports whether the expression has no expression parts.
func (e *Expression) IsLiteral() bool {
	for _, p := range e.Parts {
		if p.Expr {
			return false
		}
	}
	return true
}

// Parse scans src and checks the syntax of every expression in it.
func Parse(src string) (*Expression, error) {
	parts, err := Scan(src)
	if err != nil {
		return nil, err
	}

	e := &Expression{Source: src, Parts: parts}
	seen := map[FuncRef]bool{}

	for _, p := range parts {
		if !p.Expr {
			continue
		}

		e.Deferred = e.Deferred || p.Deferred

		refs, err := Check(p.Text[2 : len(p.Text)-1])
		if err != nil {
			return nil, &SyntaxError{Offset: p.Offset, Err: err}
		}

		for _, f := range refs {
			if !seen[f] {
				seen[f] = true
				e.Functions = append(e.Functions, f)
			}
		}
	}

	return e, nil
}

// Check validates a single expression body and returns the functions it calls.
func Check(body string) ([]FuncRef, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("empty expression")
	}

	translated, candidates := Translate(body)

	tree, err := parser.Parse(translated)
	if err != nil {
		return nil, err
	}

	v := &callCollector{candidates: candidates}
	ast.Walk(&tree.Node, v)
	return v.refs, nil
}

type callCollector struct {
	candidates map[string]FuncRef
	refs       []FuncRef
}

func (c *callCollector) Visit(node *ast.Node) {
	call, ok := (*node).(*ast.CallNode)
	if !ok {
		return
	}

	id, ok := call.Callee.(*ast.IdentifierNode)
	if !ok {
		return
	}

	if f, ok := c.candidates[id.Value]; ok {
		c.refs = append(c.refs, f)
	}
}

// wordOps maps the named operators of the page expression language to their symbolic form.
var wordOps = map[string]string{
	"eq":    "==",
	"ne":    "!=",
	"lt":    "<",
	"gt":    ">",
	"le":    "<=",
	"ge":    ">=",
	"div":   "/",
	"mod":   "%",
	"and":   "&&",
	"or":    "||",
	"not":   "!",
	"empty": "!",
	"null":  "nil",
}

// Translate rewrites an expression body into the dialect understood by the expression engine.
// Named operators become symbols and prefix:name( calls become prefix__name(; the returned map
// associates every rewritten callee with its function reference.
func Translate(body string) (string, map[string]FuncRef) {
	var b strings.Builder
	funcs := map[string]FuncRef{}

	for i := 0; i < len(body); {
		c := body[i]

		// 1. Quoted strings are copied verbatim.
		if c == '\'' || c == '"' {
			j := i + 1
			for j < len(body) && body[j] != c {
				if body[j] == '\\' {
					j++
				}
				j++
			}
			j = min(j+1, len(body))
			b.WriteString(body[i:j])
			i = j
			continue
		}

		// 2. Identifiers are checked for named operators and function prefixes.
		if isIdentStart(c) {
			j := i + 1
			for j < len(body) && isIdentPart(body[j]) {
				j++
			}
			word := body[i:j]
			afterDot := i > 0 && body[i-1] == '.'

			if k, name, ok := funcSuffix(body, j); ok && !afterDot {
				mangled := word + "__" + name
				funcs[mangled] = FuncRef{Prefix: word, Name: name}
				b.WriteString(mangled)
				i = k
				continue
			}

			if op, ok := wordOps[word]; ok && !afterDot {
				b.WriteString(" " + op + " ")
			} else {
				b.WriteString(word)
			}
			i = j
			continue
		}

		b.WriteByte(c)
		i++
	}

	return b.String(), funcs
}

// funcSuffix matches ":name" followed by optional spaces and "(" at body[i:].
// It returns the index just past the name.
func funcSuffix(body string, i int) (int, string, bool) {
	if i >= len(body) || body[i] != ':' {
		return 0, "", false
	}

	j := i + 1
	if j >= len(body) || !isIdentStart(body[j]) {
		return 0, "", false
	}

	k := j + 1
	for k < len(body) && isIdentPart(body[k]) {
		k++
	}

	p := k
	for p < len(body) && (body[p] == ' ' || body[p] == '\t') {
		p++
	}
	if p >= len(body) || body[p] != '(' {
		return 0, "", false
	}

	return k, body[j:k], true
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
