package gen

import (
	"path"
	"slices"
	"strconv"
	"strings"
)

// importSet assigns package names to the import paths used by a unit.
type importSet struct {
	byPath map[string]string
	names  map[string]bool

	// raw are page imports, written as given.
	raw []string
}

func newImportSet() *importSet {
	return &importSet{byPath: map[string]string{}, names: map[string]bool{}}
}

// use returns the package name to qualify identifiers of importPath with.
func (s *importSet) use(importPath string) string {
	if name, ok := s.byPath[importPath]; ok {
		return name
	}
	for _, imp := range s.raw {
		if fields := strings.Fields(imp); len(fields) == 2 && strings.Trim(fields[1], `"`) == importPath {
			return fields[0]
		} else if strings.Trim(imp, `"`) == importPath {
			return path.Base(importPath)
		}
	}

	base := identifier(path.Base(importPath))
	name := base
	for i := 2; s.names[name]; i++ {
		name = base + strconv.Itoa(i)
	}

	s.byPath[importPath] = name
	s.names[name] = true
	return name
}

// useAs imports importPath under a fixed name.
func (s *importSet) useAs(name, importPath string) {
	s.byPath[importPath] = name
	s.names[name] = true
}

// addRaw adds an import from a page or tag directive: "path" or "name path".
func (s *importSet) addRaw(imp string) {
	imp = strings.TrimSpace(imp)
	if imp == "" || slices.Contains(s.raw, imp) {
		return
	}
	s.raw = append(s.raw, imp)

	if fields := strings.Fields(imp); len(fields) == 2 {
		s.names[fields[0]] = true
	} else {
		s.names[path.Base(strings.Trim(imp, `"`))] = true
	}
}

func (s *importSet) write(w *Writer) {
	var lines []string
	for _, imp := range s.raw {
		if fields := strings.Fields(imp); len(fields) == 2 {
			lines = append(lines, fields[0]+" "+strconv.Quote(strings.Trim(fields[1], `"`)))
		} else {
			lines = append(lines, strconv.Quote(strings.Trim(imp, `"`)))
		}
	}
	for p, name := range s.byPath {
		lines = append(lines, name+" "+strconv.Quote(p))
	}
	slices.Sort(lines)

	w.Open("import (")
	for _, l := range lines {
		w.Println(l)
	}
	w.Close(")")
}

// identifier turns s into a valid lower-case Go identifier.
func identifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9' && b.Len() > 0:
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + 'a' - 'A')
		}
	}
	if b.Len() == 0 {
		return "pkg"
	}
	return b.String()
}
