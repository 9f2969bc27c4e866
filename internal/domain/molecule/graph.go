package molecule

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Graph returns the heavy-atom connectivity of m as a gonum undirected
// graph. Node IDs are atom indices.
func (m *Molecule) Graph() *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for i := range m.atoms {
		g.AddNode(simple.Node(i))
	}
	for _, b := range m.bonds {
		g.SetEdge(simple.Edge{F: simple.Node(b.Begin), T: simple.Node(b.End)})
	}
	return g
}

// IsRingBond reports whether bond b lies on a cycle.
func (m *Molecule) IsRingBond(b int) bool {
	m.perceiveRings()
	return m.ringBonds[b]
}

// IsInRing reports whether atom i has at least one ring bond.
func (m *Molecule) IsInRing(i int) bool {
	return m.NumRingBonds(i) > 0
}

// NumRingBonds counts the ring bonds of atom i.
func (m *Molecule) NumRingBonds(i int) int {
	m.perceiveRings()
	n := 0
	for _, a := range m.adj[i] {
		if m.ringBonds[a.bond] {
			n++
		}
	}
	return n
}

// perceiveRings marks a bond as a ring bond when its endpoints stay
// connected after the bond is removed.
func (m *Molecule) perceiveRings() {
	if m.ringBonds != nil && len(m.ringBonds) == len(m.bonds) {
		return
	}
	rings := make([]bool, len(m.bonds))
	g := m.Graph()
	for k, b := range m.bonds {
		u, v := simple.Node(b.Begin), simple.Node(b.End)
		g.RemoveEdge(u.ID(), v.ID())
		rings[k] = topo.PathExistsIn(g, u, v)
		g.SetEdge(simple.Edge{F: u, T: v})
	}
	m.ringBonds = rings
}

// Fragments returns the connected components as sorted atom index lists,
// ordered by their lowest atom index.
func (m *Molecule) Fragments() [][]int {
	if len(m.atoms) == 0 {
		return nil
	}
	comps := topo.ConnectedComponents(m.Graph())
	out := make([][]int, 0, len(comps))
	for _, c := range comps {
		out = append(out, nodeIDs(c))
	}
	sort.Slice(out, func(a, b int) bool { return out[a][0] < out[b][0] })
	return out
}

func nodeIDs(nodes []graph.Node) []int {
	ids := make([]int, len(nodes))
	for k, n := range nodes {
		ids[k] = int(n.ID())
	}
	sort.Ints(ids)
	return ids
}
