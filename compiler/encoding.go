package compiler

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/reader"
)

// DefaultEncoding is used for sources declaring no encoding.
const DefaultEncoding = "UTF-8"

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

var (
	xmlProlog     = regexp.MustCompile(`^<\?xml[^>]*?\sencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)
	pageDirective = regexp.MustCompile(`<%@\s*page\b([^%]*)%>|<jsp:directive\.page\b([^>]*)>`)
	pageEncAttr   = regexp.MustCompile(`\bpageEncoding\s*=\s*["']([^"']+)["']`)
	charsetAttr   = regexp.MustCompile(`\bcontentType\s*=\s*["'][^"']*;\s*charset\s*=\s*([^"';\s]+)`)
)

// detectEncoding names the encoding of raw. In order of precedence: a byte order mark, the
// encoding of an XML prolog, a pageEncoding or the charset of a contentType page directive
// attribute, and finally fallback. bom reports whether raw starts with a byte order mark.
func detectEncoding(raw []byte, fallback string) (name string, bom bool) {
	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		return "UTF-8", true
	case bytes.HasPrefix(raw, bomUTF16BE):
		return "UTF-16BE", true
	case bytes.HasPrefix(raw, bomUTF16LE):
		return "UTF-16LE", true
	}

	// Directives are ASCII in every encoding accepted without a byte order mark.
	head := raw
	if len(head) > prescanLimit {
		head = head[:prescanLimit]
	}

	if m := xmlProlog.FindSubmatch(head); m != nil {
		return string(m[1]), false
	}

	for _, d := range pageDirective.FindAllSubmatch(head, -1) {
		attrs := d[1]
		if attrs == nil {
			attrs = d[2]
		}
		if m := pageEncAttr.FindSubmatch(attrs); m != nil {
			return string(m[1]), false
		}
		if m := charsetAttr.FindSubmatch(attrs); m != nil {
			return string(m[1]), false
		}
	}

	return fallback, false
}

// prescanLimit bounds the part of a source searched for an encoding declaration.
const prescanLimit = 8 * 1024

// lookupEncoding resolves an encoding name, trying IANA names first so that ISO-8859-1 is
// not read as windows-1252.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(name) {
	case "UTF-16BE":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	case "UTF-16LE":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	}

	if e, err := ianaindex.IANA.Encoding(name); err == nil && e != nil {
		return e, nil
	}

	e, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
	return e, nil
}

// decode converts the raw content of file to UTF-8, returning it with the name of its encoding.
func decode(file string, raw []byte, fallback string) (content, name string, err error) {
	name, bom := detectEncoding(raw, fallback)

	switch {
	case bom && bytes.HasPrefix(raw, bomUTF8):
		raw = raw[len(bomUTF8):]
	case bom:
		raw = raw[2:]
	}

	if strings.EqualFold(name, "UTF-8") || strings.EqualFold(name, "UTF8") {
		return string(raw), name, nil
	}

	e, err := lookupEncoding(name)
	if err != nil {
		return "", "", diag.Errorf(diag.IssueUnsupportedEncoding, reader.NewMark(file, 1, 1, 0), "%s: %w", file, err)
	}

	out, err := e.NewDecoder().Bytes(raw)
	if err != nil {
		return "", "", diag.Errorf(diag.IssueUnsupportedEncoding, reader.NewMark(file, 1, 1, 0), "%s is not valid %s: %w", file, name, err)
	}
	return string(out), name, nil
}
