package gen

import (
	"testing"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/reader"
	"github.com/stretchr/testify/require"
)

func TestLiteral(t *testing.T) {
	tests := []struct {
		typ, value, want string
	}{
		{typ: "string", value: `a "b"`, want: `"a \"b\""`},
		{typ: "", value: "x", want: `"x"`},
		{typ: "any", value: "1", want: `"1"`},
		{typ: "bool", value: "TRUE", want: "true"},
		{typ: "int", value: "-42", want: "-42"},
		{typ: "int8", value: "7", want: "int8(7)"},
		{typ: "uint16", value: "65535", want: "uint16(65535)"},
		{typ: "float64", value: "1.5", want: "1.5"},
		{typ: "float32", value: "2", want: "float32(2)"},
		{typ: "rune", value: "é", want: "'é'"},
		{typ: "time.Duration", value: "3s", want: `rt.MustConvert[time.Duration]("3s")`},
	}

	g := &generator{}
	for _, tc := range tests {
		t.Run(tc.typ+"/"+tc.value, func(t *testing.T) {
			got, err := g.literal(tc.typ, tc.value, reader.Mark{})
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLiteralErrors(t *testing.T) {
	tests := []struct {
		typ, value string
	}{
		{typ: "bool", value: "yes"},
		{typ: "int", value: "1.5"},
		{typ: "int8", value: "300"},
		{typ: "uint", value: "-1"},
		{typ: "float64", value: "fast"},
		{typ: "rune", value: "ab"},
		{typ: "rune", value: ""},
	}

	g := &generator{}
	for _, tc := range tests {
		t.Run(tc.typ+"/"+tc.value, func(t *testing.T) {
			_, err := g.literal(tc.typ, tc.value, reader.NewMark("/p.jsp", 3, 9, 40))

			te, ok := diag.AsTranslationError(err)
			require.True(t, ok)
			require.Equal(t, diag.IssueInvalidLiteral, te.Issue)
			require.Equal(t, 3, te.Mark.Line)
		})
	}
}

func TestInvalidLiteralAbortsGeneration(t *testing.T) {
	src := header + `<t:out value="v" width="wide"/>`
	_, err := generateErr(t, "/bad.jsp", src, Options{})

	te, ok := diag.AsTranslationError(err)
	require.True(t, ok)
	require.Equal(t, diag.IssueInvalidLiteral, te.Issue)
}
