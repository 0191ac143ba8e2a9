package gen

import "github.com/Drolfothesgnir/pagec/node"

// fragment generates a body evaluated on demand and returns its id in the unit's fragment helper.
// The body sees the handler it was passed to as its parent.
func (g *generator) fragment(body []*node.Node) (int, error) {
	id := g.nfrag
	g.nfrag++

	fw := NewWriter()
	fw.In()
	fw.Printf("case %d:", id)
	fw.In()

	saved := g.enter(fw, "parent")
	err := g.body(body)
	g.leave(saved)
	if err != nil {
		return 0, err
	}

	fw.Println("return nil")
	fw.Out()
	fw.Out()
	g.frags.Splice(fw)
	return id, nil
}

// fragmentHelper writes the type dispatching fragment invocations by id.
func (g *generator) fragmentHelper(out *Writer) {
	out.Printf("// %s evaluates the fragment bodies of %s.", g.fragType, g.opts.TypeName)
	out.Open("type %s struct {", g.fragType)
	out.Printf("p *%s", g.opts.TypeName)
	out.Close("}")
	out.Println("")

	out.Println("// Invoke implements rt.FragmentHelper.")
	out.Open("func (f *%s) Invoke(pc *rt.PageContext, id int, parent rt.Tag) error {", g.fragType)
	if g.frags.Empty() {
		out.Println("return rt.UnknownFragment(id)")
		out.Close("}")
		return
	}

	out.Printf("%s, frags := f.p, f", g.recv)
	out.Printf("_, _ = %s, frags", g.recv)
	out.Println("switch id {")
	out.Splice(g.frags)

	out.Println("}")
	out.Println("return rt.UnknownFragment(id)")
	out.Close("}")
}
