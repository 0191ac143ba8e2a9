package compiler

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/parser"
	"github.com/Drolfothesgnir/pagec/taglib"
	"github.com/stretchr/testify/require"
)

const cardTag = `<%@ tag body-content="scriptless" %>
<%@ attribute name="title" required="true" %>
<div class="card">
<h2>${title}</h2>
<jsp:doBody/>
</div>
`

func newTestCompiler(t *testing.T, files fstest.MapFS, opts Options) *Compiler {
	t.Helper()

	c, err := New(files, taglib.NewRegistry(files), opts)
	require.NoError(t, err)
	return c
}

func TestCompilePageWithTagFile(t *testing.T) {
	files := fstest.MapFS{
		"index.jsp": {Data: []byte(`<%@ taglib prefix="ui" tagdir="/WEB-INF/tags" %>
<ui:card title="Welcome">
Hello ${user.name}
</ui:card>
`)},
		"about.jsp": {Data: []byte(`<%@ taglib prefix="ui" tagdir="/WEB-INF/tags" %>
<ui:card title="About">About us</ui:card>
`)},
		"WEB-INF/tags/card.tag": {Data: []byte(cardTag)},
	}
	c := newTestCompiler(t, files, Options{Package: "site"})

	res, err := c.Compile("/index.jsp")
	require.NoError(t, err)

	u := res.Unit
	require.Equal(t, "/index.jsp", u.Path)
	require.Equal(t, "IndexJsp", u.TypeName)
	require.Equal(t, "index_jsp.go", u.FileName)
	require.Equal(t, DefaultEncoding, u.Encoding)
	require.False(t, u.TagFile)
	require.Contains(t, u.Source, "package site")
	require.Contains(t, u.Source, "CardTag")
	require.True(t, strings.HasPrefix(u.SMAP, "SMAP\nindex_jsp.go\nJSP\n*S JSP\n*F\n+ 0 index.jsp\n/index.jsp\n*L\n"), u.SMAP)
	require.True(t, strings.HasSuffix(u.SMAP, "*E\n"))

	require.Len(t, res.Aux, 1)
	aux := res.Aux[0]
	require.Equal(t, "/WEB-INF/tags/card.tag", aux.Path)
	require.Equal(t, "CardTag", aux.TypeName)
	require.True(t, aux.TagFile)
	require.Contains(t, aux.Source, "func (t *CardTag) DoTag() error {")

	// The tag file is compiled once per session.
	res, err = c.Compile("/about.jsp")
	require.NoError(t, err)
	require.Empty(t, res.Aux)

	res, err = c.Compile("/WEB-INF/tags/card.tag")
	require.NoError(t, err)
	require.Same(t, aux, res.Unit)
}

func TestCompileBreaksTagFileCycles(t *testing.T) {
	files := fstest.MapFS{
		"WEB-INF/tags/a.tag": {Data: []byte(`<%@ taglib prefix="my" tagdir="/WEB-INF/tags" %>
<%@ attribute name="depth" %>
<my:b depth="${depth}"/>
`)},
		"WEB-INF/tags/b.tag": {Data: []byte(`<%@ taglib prefix="my" tagdir="/WEB-INF/tags" %>
<%@ attribute name="depth" %>
<my:a depth="${depth}"/>
`)},
	}
	c := newTestCompiler(t, files, Options{})

	res, err := c.Compile("/WEB-INF/tags/a.tag")
	require.NoError(t, err)
	require.Equal(t, "ATag", res.Unit.TypeName)

	require.Len(t, res.Aux, 1)
	require.Equal(t, "/WEB-INF/tags/b.tag", res.Aux[0].Path)
	require.Contains(t, res.Aux[0].Source, "ATag")
}

func TestExtractSignature(t *testing.T) {
	files := fstest.MapFS{
		"WEB-INF/tags/card.tag": {Data: []byte(cardTag + "<% broken %>${")},
	}
	c := newTestCompiler(t, files, Options{})

	// Only directives are read, so the broken body does not matter.
	d, err := c.ExtractSignature("/WEB-INF/tags/card.tag")
	require.NoError(t, err)

	require.Equal(t, "card", d.Name)
	require.Equal(t, "CardTag", d.TypeName)
	require.Equal(t, "/WEB-INF/tags/card.tag", d.TagFile)
	require.Equal(t, taglib.BodyScriptless, d.BodyContent)
	require.True(t, d.Simple)

	attr, ok := d.Attribute("title")
	require.True(t, ok)
	require.True(t, attr.Required)

	_, err = c.Compile("/WEB-INF/tags/card.tag")
	require.Error(t, err)
}

func TestCompileErrors(t *testing.T) {
	files := fstest.MapFS{
		"WEB-INF/tags/card.tag": {Data: []byte(cardTag)},
		"WEB-INF/tags/bad.tag": {Data: []byte(`<%@ tag body-content="empty" %>
<%@ attribute name="x" bogus="1" %>
`)},
	}

	testCases := []struct {
		name   string
		path   string
		source string
		check  func(t *testing.T, errs []diag.SerializableError)
	}{
		{
			name: "MissingRequiredAttribute",
			path: "/missing.jsp",
			source: `<%@ taglib prefix="ui" tagdir="/WEB-INF/tags" %>
<ui:card>x</ui:card>`,
			check: func(t *testing.T, errs []diag.SerializableError) {
				require.Len(t, errs, 1)
				require.Equal(t, "/missing.jsp", errs[0].File)
				require.Equal(t, 2, errs[0].Line)
				require.Equal(t, diag.IssueMissingAttribute.Key(), errs[0].Key)
			},
		},
		{
			name: "DependencyErrorsAreAttributedToTheTagFile",
			path: "/uses-bad.jsp",
			source: `<%@ taglib prefix="ui" tagdir="/WEB-INF/tags" %>
<ui:bad x="1"/>`,
			check: func(t *testing.T, errs []diag.SerializableError) {
				require.NotEmpty(t, errs)
				require.Equal(t, "/WEB-INF/tags/bad.tag", errs[0].File)
				require.Equal(t, 2, errs[0].Line)
			},
		},
		{
			name:   "Unterminated",
			path:   "/open.jsp",
			source: "before <%-- never closed",
			check: func(t *testing.T, errs []diag.SerializableError) {
				require.Len(t, errs, 1)
				require.Equal(t, diag.IssueUnterminated.Key(), errs[0].Key)
				require.Equal(t, 1, errs[0].Line)
				require.Equal(t, 8, errs[0].Column)
			},
		},
		{
			name:   "UnknownEncoding",
			path:   "/enc.jsp",
			source: `<%@ page pageEncoding="klingon" %>`,
			check: func(t *testing.T, errs []diag.SerializableError) {
				require.Len(t, errs, 1)
				require.Equal(t, diag.IssueUnsupportedEncoding.Key(), errs[0].Key)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestCompiler(t, files, Options{})

			res, err := c.CompileSource(tc.path, []byte(tc.source), parser.SyntaxAuto)
			require.Error(t, err)
			require.Nil(t, res)
			tc.check(t, diag.SerializeAll(err))
		})
	}
}

func TestCompileIncludeInheritsEncoding(t *testing.T) {
	files := fstest.MapFS{
		"latin.jsp": {Data: []byte("<%@ page pageEncoding=\"ISO-8859-1\" %>caf\xe9 <%@ include file=\"inc.jspf\" %>")},
		"inc.jspf":  {Data: []byte("\xe9t\xe9")},
	}
	c := newTestCompiler(t, files, Options{})

	res, err := c.Compile("/latin.jsp")
	require.NoError(t, err)
	require.Equal(t, "ISO-8859-1", res.Unit.Encoding)
	require.Contains(t, res.Unit.Source, "café")
	require.Contains(t, res.Unit.Source, "été")
}

func TestCompileXMLSyntax(t *testing.T) {
	src := `<jsp:root xmlns:jsp="http://java.sun.com/JSP/Page" version="2.0"><p>${x}</p></jsp:root>`
	c, err := New(nil, nil, Options{})
	require.NoError(t, err)

	res, err := c.CompileSource("/doc.jspx", []byte(src), parser.SyntaxAuto)
	require.NoError(t, err)
	require.Equal(t, "DocJspx", res.Unit.TypeName)
	require.True(t, res.Unit.Root.Root.XML)
}

func TestCompileWithoutSourceRoot(t *testing.T) {
	c, err := New(nil, nil, Options{})
	require.NoError(t, err)

	_, err = c.Compile("/index.jsp")
	require.ErrorIs(t, err, ErrNoSourceRoot)

	c = newTestCompiler(t, fstest.MapFS{}, Options{})
	_, err = c.Compile("/index.jsp")
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestNewRejectsBadOptions(t *testing.T) {
	testCases := []struct {
		name  string
		opts  Options
		issue diag.Issue
	}{
		{name: "NegativeChunkSize", opts: Options{TextChunkSize: -1}, issue: diag.IssueBadOption},
		{name: "NegativeErrorsCap", opts: Options{MaxErrors: -1}, issue: diag.IssueNegativeErrorsCap},
		{name: "UnknownEncoding", opts: Options{DefaultEncoding: "nope"}, issue: diag.IssueBadOption},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(nil, nil, tc.opts)

			var ce *diag.ConfigError
			require.ErrorAs(t, err, &ce)
			require.Equal(t, tc.issue, ce.Issue)
		})
	}
}
