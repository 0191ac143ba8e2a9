package gen

import "strconv"

// varScope tracks the Go identifiers declared by generated code in the nested blocks
// around the current position.
type varScope struct {
	blocks []map[string]bool
}

func newVarScope() *varScope {
	return &varScope{blocks: []map[string]bool{{}}}
}

func (s *varScope) push() {
	s.blocks = append(s.blocks, map[string]bool{})
}

func (s *varScope) pop() {
	if len(s.blocks) == 1 {
		panic("gen: popping the outermost block")
	}
	s.blocks = s.blocks[:len(s.blocks)-1]
}

func (s *varScope) declare(name string) {
	s.blocks[len(s.blocks)-1][name] = true
}

// visible reports whether name is declared in the current block or an enclosing one.
func (s *varScope) visible(name string) bool {
	for i := len(s.blocks) - 1; i >= 0; i-- {
		if s.blocks[i][name] {
			return true
		}
	}
	return false
}

// local reports whether name is declared in the current block.
func (s *varScope) local(name string) bool {
	return s.blocks[len(s.blocks)-1][name]
}

// saveSlot names the temporary holding the outer value of a scripting variable shadowed by a
// tag at the given nesting level.
func saveSlot(name string, level int) string {
	return "_" + name + "_" + strconv.Itoa(level)
}
