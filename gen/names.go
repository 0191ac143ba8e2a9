package gen

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Drolfothesgnir/pagec/taglib"
)

// TypeName derives the name of the generated page type from the page's path,
// e.g. "/shop/cart-view.jsp" becomes "CartViewJsp".
func TypeName(file string) string {
	base := path.Base(file)
	parts := strings.FieldsFunc(base, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var b strings.Builder
	for _, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(p[size:])
	}
	if b.Len() == 0 {
		return "Page"
	}

	name := b.String()
	if r := rune(name[0]); unicode.IsDigit(r) {
		name = "P" + name
	}
	return name
}

// TagTypeName derives the handler type name of a tag file from the tag's name.
func TagTypeName(tag string) string {
	return taglib.Exported(tag) + "Tag"
}

// FileName returns the name of the Go file generated for a source.
func FileName(file string) string {
	base := path.Base(file)
	return strings.NewReplacer(".", "_", "-", "_").Replace(base) + ".go"
}

// fieldName is the struct field holding an attribute of a tag file.
func fieldName(attr string) string {
	return "attr" + taglib.Exported(attr)
}
