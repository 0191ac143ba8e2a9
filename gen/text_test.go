package gen

import (
	"go/ast"
	"go/token"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// written concatenates the literals passed to WriteString, resolving pooled constants.
func written(t *testing.T, f *ast.File) string {
	t.Helper()

	consts := map[string]string{}
	for _, d := range f.Decls {
		gd, ok := d.(*ast.GenDecl)
		if !ok || gd.Tok != token.CONST {
			continue
		}
		for _, spec := range gd.Specs {
			vs := spec.(*ast.ValueSpec)
			s, err := strconv.Unquote(vs.Values[0].(*ast.BasicLit).Value)
			require.NoError(t, err)
			consts[vs.Names[0].Name] = s
		}
	}

	var b strings.Builder
	for _, call := range calls(f, "WriteString") {
		switch arg := call.Args[0].(type) {
		case *ast.BasicLit:
			s, err := strconv.Unquote(arg.Value)
			require.NoError(t, err)
			b.WriteString(s)
		case *ast.Ident:
			s, ok := consts[arg.Name]
			require.True(t, ok, arg.Name)
			b.WriteString(s)
		default:
			require.Failf(t, "unexpected argument", "%T", arg)
		}
	}
	return b.String()
}

func TestTextIsWrittenVerbatim(t *testing.T) {
	texts := []string{
		"plain",
		`say "hi"`,
		`C:\path\to\file`,
		"windows\r\nline endings\r\n",
		"tab\there\n\nblank line above\n",
		"unicode: héllo wörld ✓ 日本語\n",
		"backquote ` and \x7f control",
	}

	for _, text := range texts {
		u := generate(t, "/t.jsp", text, Options{})
		require.Equal(t, text, written(t, u.file), text)
	}
}

func TestTextIsWrittenPerLine(t *testing.T) {
	u := generate(t, "/t.jsp", "one\ntwo\nthree", Options{})
	require.Len(t, calls(u.file, "WriteString"), 3)
}

func TestTextChunks(t *testing.T) {
	text := strings.Repeat("ab✓", 10)
	u := generate(t, "/t.jsp", text, Options{TextChunkSize: 4})

	require.Equal(t, text, written(t, u.file))
	for _, call := range calls(u.file, "WriteString") {
		s, err := strconv.Unquote(call.Args[0].(*ast.BasicLit).Value)
		require.NoError(t, err)
		require.LessOrEqual(t, len(s), 4)
	}
}

func TestPooledTextIsShared(t *testing.T) {
	text := "<tr>\n<td>x</td>\n<tr>\n"
	u := generate(t, "/t.jsp", text, Options{PoolLiteralText: true})

	require.Equal(t, text, written(t, u.file))
	require.Contains(t, u.res.Source, "_text0 = \"<tr>\\n\"")
	require.NotContains(t, u.res.Source, "_text2")
}

func TestChunksKeepRunesWhole(t *testing.T) {
	tests := []struct {
		name string
		s    string
		size int
		want []string
	}{
		{name: "short", s: "abc", size: 8, want: []string{"abc"}},
		{name: "exact", s: "abcd", size: 2, want: []string{"ab", "cd"}},
		{name: "multibyte", s: "a✓b", size: 2, want: []string{"a", "✓", "b"}},
		{name: "unlimited", s: "abcdef", size: 0, want: []string{"abcdef"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, chunks(tc.s, tc.size))
		})
	}
}

func TestSplitLines(t *testing.T) {
	require.Equal(t, []string{"a\n", "\n", "b"}, splitLines("a\n\nb"))
	require.Equal(t, []string{"a\r\n"}, splitLines("a\r\n"))
	require.Nil(t, splitLines(""))
}
