package gen

import (
	"strconv"
	"unicode/utf8"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/reader"
)

// literal converts the literal value of an attribute to a Go expression of type typ.
// Values of types without a literal form are converted by the runtime.
func (g *generator) literal(typ, value string, m reader.Mark) (string, error) {
	switch typ {
	case "", "string", "any", "interface{}":
		return strconv.Quote(value), nil

	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", diag.Errorf(diag.IssueInvalidLiteral, m, "%q is not a valid bool: %w", value, err)
		}
		return strconv.FormatBool(b), nil

	case "int", "int64", "int32", "int16", "int8":
		bits := map[string]int{"int": 0, "int64": 64, "int32": 32, "int16": 16, "int8": 8}[typ]
		i, err := strconv.ParseInt(value, 10, bits)
		if err != nil {
			return "", diag.Errorf(diag.IssueInvalidLiteral, m, "%q is not a valid %s: %w", value, typ, err)
		}
		return conversion(typ, strconv.FormatInt(i, 10)), nil

	case "uint", "uint64", "uint32", "uint16", "uint8", "byte":
		bits := map[string]int{"uint": 0, "uint64": 64, "uint32": 32, "uint16": 16, "uint8": 8, "byte": 8}[typ]
		u, err := strconv.ParseUint(value, 10, bits)
		if err != nil {
			return "", diag.Errorf(diag.IssueInvalidLiteral, m, "%q is not a valid %s: %w", value, typ, err)
		}
		return conversion(typ, strconv.FormatUint(u, 10)), nil

	case "float64", "float32":
		bits := 64
		if typ == "float32" {
			bits = 32
		}
		f, err := strconv.ParseFloat(value, bits)
		if err != nil {
			return "", diag.Errorf(diag.IssueInvalidLiteral, m, "%q is not a valid %s: %w", value, typ, err)
		}
		return conversion(typ, strconv.FormatFloat(f, 'g', -1, bits)), nil

	case "rune":
		r, size := utf8.DecodeRuneInString(value)
		if size == 0 || size != len(value) || r == utf8.RuneError {
			return "", diag.Errorf(diag.IssueInvalidLiteral, m, "%q is not a single character", value)
		}
		return strconv.QuoteRune(r), nil
	}

	return g.rt() + ".MustConvert[" + typ + "](" + strconv.Quote(value) + ")", nil
}

// conversion wraps a numeric constant so that it has type typ in any context.
func conversion(typ, constant string) string {
	if typ == "int" || typ == "float64" {
		return constant
	}
	return typ + "(" + constant + ")"
}
