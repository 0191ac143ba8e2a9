package validate

import (
	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/el"
	"github.com/Drolfothesgnir/pagec/reader"
)

// expression resolves the library functions an expression calls.
// Syntax was checked by the parser.
func (v *validator) expression(expr *el.Expression, m reader.Mark) {
	if expr == nil {
		return
	}

	for _, f := range expr.Functions {
		if _, done := v.page.Functions[f]; done {
			continue
		}

		if f.URI == "" {
			v.errorf(diag.IssueUnknownPrefix, m, "function %s: no tag library is bound to prefix %s", f, f.Prefix)
			continue
		}

		if v.opts.Resolver == nil {
			v.errorf(diag.IssueUnknownTaglib, m, "function %s: cannot resolve tag library %s: no resolver", f, f.URI)
			continue
		}

		lib, err := v.opts.Resolver.Resolve(f.URI)
		if err != nil {
			v.errorf(diag.IssueUnknownTaglib, m, "function %s: %w", f, err)
			continue
		}

		fn, ok := lib.Function(f.Name)
		if !ok {
			v.errorf(diag.IssueUnknownFunction, m, "tag library %s has no function %s", f.URI, f.Name)
			continue
		}

		v.page.Functions[f] = fn
	}
}
