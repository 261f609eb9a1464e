// Package graph maps decoded .mpy code trees onto lattice graphs.
package graph

import (
	"fmt"

	"github.com/zboralski/lattice"

	"udis/internal/mpy"
)

// Names assigns every code object in f a qualified name built from the
// simple names on its path from the root ("<module>.Foo.bar"). A name that
// is already taken gets the record offset appended ("<lambda>_3a").
func Names(f *mpy.File) map[*mpy.RawCode]string {
	names := make(map[*mpy.RawCode]string)
	taken := make(map[string]bool)
	var visit func(rc *mpy.RawCode, prefix string)
	visit = func(rc *mpy.RawCode, prefix string) {
		name := f.QstrName(rc.SimpleName)
		if prefix != "" {
			name = prefix + "." + name
		}
		if taken[name] {
			name = fmt.Sprintf("%s_%x", name, rc.Offset)
		}
		taken[name] = true
		names[rc] = name
		for _, c := range rc.Children {
			visit(c, name)
		}
	}
	if f.Root != nil {
		visit(f.Root, "")
	}
	return names
}

// BuildNestingGraph constructs a lattice.Graph with one node per code
// object and one edge from each parent to each of its children.
func BuildNestingGraph(f *mpy.File) *lattice.Graph {
	g := &lattice.Graph{}
	if f.Root == nil {
		return g
	}
	names := Names(f)
	_ = f.Root.Walk(func(rc *mpy.RawCode, _ int) error {
		g.Nodes = append(g.Nodes, names[rc])
		for _, c := range rc.Children {
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: names[rc],
				Callee: names[c],
			})
		}
		return nil
	})
	g.Dedup()
	return g
}
