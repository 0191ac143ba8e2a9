package node

import (
	"fmt"
	"strings"
)

// Equivalent reports whether two trees have the same structure: the same node kinds,
// names, attributes and content. Marks, annotations, taglib declarations, whitespace-only
// text and whitespace differences inside text are ignored.
func Equivalent(a, b *Node) bool {
	return Diff(a, b) == ""
}

// Diff describes the first structural difference between two trees, or returns "".
func Diff(a, b *Node) string {
	return diff(a, b, "")
}

func diff(a, b *Node, path string) string {
	here := path + "/" + a.Kind.String()

	if a.Kind != b.Kind {
		return fmt.Sprintf("%s: kind %s != %s", path, a.Kind, b.Kind)
	}

	switch a.Kind {
	case KindText, KindDeclaration, KindExpression, KindScriptlet, KindELExpression:
		if normalize(a.Text) != normalize(b.Text) {
			return fmt.Sprintf("%s: text %q != %q", here, a.Text, b.Text)
		}
	case KindCustomTag:
		if a.Tag.URI != b.Tag.URI || a.Tag.Local != b.Tag.Local {
			return fmt.Sprintf("%s: tag {%s}%s != {%s}%s", here, a.Tag.URI, a.Tag.Local, b.Tag.URI, b.Tag.Local)
		}
	case KindNamedAttribute:
		if a.AttrName != b.AttrName {
			return fmt.Sprintf("%s: attribute name %s != %s", here, a.AttrName, b.AttrName)
		}
	}

	if d := diffAttrs(a, b, here); d != "" {
		return d
	}

	ac, bc := significant(a.Body), significant(b.Body)
	if len(ac) != len(bc) {
		return fmt.Sprintf("%s: %d children != %d", here, len(ac), len(bc))
	}

	for i := range ac {
		if d := diff(ac[i], bc[i], fmt.Sprintf("%s[%d]", here, i)); d != "" {
			return d
		}
	}
	return ""
}

func diffAttrs(a, b *Node, here string) string {
	if len(a.Attrs) != len(b.Attrs) {
		return fmt.Sprintf("%s: %d attributes != %d", here, len(a.Attrs), len(b.Attrs))
	}

	for _, x := range a.Attrs {
		y, ok := b.Attr(x.Name)
		if !ok {
			return fmt.Sprintf("%s: attribute %s missing", here, x.Name)
		}
		if x.Kind != y.Kind || strings.TrimSpace(x.Value) != strings.TrimSpace(y.Value) {
			return fmt.Sprintf("%s: attribute %s %s %q != %s %q", here, x.Name, x.Kind, x.Value, y.Kind, y.Value)
		}
	}
	return ""
}

// significant drops taglib directives and blank text and merges adjacent text.
func significant(body []*Node) []*Node {
	var out []*Node
	for _, c := range body {
		switch {
		case c.Kind == KindTaglibDirective:
			continue
		case c.Kind == KindText && isBlank(c.Text):
			continue
		case c.Kind == KindText && len(out) > 0 && out[len(out)-1].Kind == KindText:
			merged := *out[len(out)-1]
			merged.Text += c.Text
			out[len(out)-1] = &merged
			continue
		}
		out = append(out, c)
	}
	return out
}

// normalize drops all whitespace: the XML syntax discards whitespace-only character
// data that the native syntax keeps inside neighbouring text.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), "")
}
