package molecule

import (
	"sort"
	"strconv"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// SMILES writer
// ─────────────────────────────────────────────────────────────────────────────

// WriteOption configures WriteSMILES.
type WriteOption func(*writeOptions)

type writeOptions struct {
	canonical bool
	ranks     []int
}

// WithCanonicalOrder orders fragments, traversal roots and branches by the
// canonical ranks of CanonicalRanker so that equal molecules produce equal
// strings regardless of input atom order.
func WithCanonicalOrder() WriteOption {
	return func(o *writeOptions) { o.canonical = true }
}

// WithRanks orders the traversal by caller-supplied ranks (one per atom).
func WithRanks(ranks []int) WriteOption {
	return func(o *writeOptions) { o.ranks = ranks }
}

type ringClosure struct {
	bond   int
	opener int
	closer int
	digit  int
}

type smilesWriter struct {
	mol      *Molecule
	ranks    []int
	visited  []bool
	children [][]int
	closures map[int][]*ringClosure
	inUse    map[int]bool
	sb       strings.Builder
}

// WriteSMILES renders m as SMILES. Without options the atom index order is
// used. Atoms whose hydrogen count and charge are reproduced by implicit
// perception are written bare; all others get brackets with an explicit H
// count.
func WriteSMILES(m *Molecule, opts ...WriteOption) string {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}
	switch {
	case o.canonical:
		o.ranks = CanonicalRanker{}.Rank(m)
	case len(o.ranks) != m.NumAtoms():
		o.ranks = identityRanks(m.NumAtoms())
	}

	w := &smilesWriter{
		mol:      m,
		ranks:    o.ranks,
		visited:  make([]bool, m.NumAtoms()),
		children: make([][]int, m.NumAtoms()),
		closures: make(map[int][]*ringClosure),
		inUse:    make(map[int]bool),
	}

	roots := make([]int, m.NumAtoms())
	for i := range roots {
		roots[i] = i
	}
	sort.SliceStable(roots, func(a, b int) bool { return w.ranks[roots[a]] < w.ranks[roots[b]] })

	var starts []int
	for _, r := range roots {
		if !w.visited[r] {
			starts = append(starts, r)
			w.plan(r, -1)
		}
	}
	for k, r := range starts {
		if k > 0 {
			w.sb.WriteByte('.')
		}
		w.emit(r)
	}
	return w.sb.String()
}

func identityRanks(n int) []int {
	r := make([]int, n)
	for i := range r {
		r[i] = i
	}
	return r
}

func (w *smilesWriter) sortedNeighbors(i int) []adjacency {
	nbrs := append([]adjacency(nil), w.mol.adj[i]...)
	sort.SliceStable(nbrs, func(a, b int) bool { return w.ranks[nbrs[a].atom] < w.ranks[nbrs[b].atom] })
	return nbrs
}

// plan builds the DFS spanning tree and records the ring closure bonds.
func (w *smilesWriter) plan(i, parentBond int) {
	w.visited[i] = true
	for _, nb := range w.sortedNeighbors(i) {
		if nb.bond == parentBond {
			continue
		}
		if w.visited[nb.atom] {
			if !w.hasClosure(nb.bond) {
				rc := &ringClosure{bond: nb.bond, opener: nb.atom, closer: i}
				w.closures[nb.atom] = append(w.closures[nb.atom], rc)
				w.closures[i] = append(w.closures[i], rc)
			}
			continue
		}
		w.children[i] = append(w.children[i], nb.atom)
		w.plan(nb.atom, nb.bond)
	}
}

func (w *smilesWriter) hasClosure(bond int) bool {
	for _, list := range w.closures {
		for _, rc := range list {
			if rc.bond == bond {
				return true
			}
		}
	}
	return false
}

func (w *smilesWriter) emit(i int) {
	w.writeAtom(i)
	for _, rc := range w.closures[i] {
		if rc.opener == i {
			rc.digit = w.nextDigit()
			w.writeBond(rc.bond)
			w.writeDigit(rc.digit)
		} else {
			w.writeBond(rc.bond)
			w.writeDigit(rc.digit)
			delete(w.inUse, rc.digit)
		}
	}
	kids := w.children[i]
	for k, c := range kids {
		b, _ := w.mol.bondIndex(i, c)
		if k < len(kids)-1 {
			w.sb.WriteByte('(')
			w.writeBond(b)
			w.emit(c)
			w.sb.WriteByte(')')
		} else {
			w.writeBond(b)
			w.emit(c)
		}
	}
}

func (w *smilesWriter) nextDigit() int {
	d := 1
	for w.inUse[d] {
		d++
	}
	w.inUse[d] = true
	return d
}

func (w *smilesWriter) writeDigit(d int) {
	if d > 9 {
		w.sb.WriteByte('%')
	}
	w.sb.WriteString(strconv.Itoa(d))
}

func (w *smilesWriter) writeBond(b int) {
	bond := w.mol.bonds[b]
	switch bond.Order {
	case BondDouble:
		w.sb.WriteByte('=')
	case BondTriple:
		w.sb.WriteByte('#')
	case BondAromatic:
		if !w.mol.IsAromatic(bond.Begin) || !w.mol.IsAromatic(bond.End) {
			w.sb.WriteByte(':')
		}
	default:
		if w.mol.IsAromatic(bond.Begin) && w.mol.IsAromatic(bond.End) {
			w.sb.WriteByte('-')
		}
	}
}

func (w *smilesWriter) writeAtom(i int) {
	m := w.mol
	a := m.atoms[i]
	sym := DefaultPeriodicTable.Symbol(a.AtomicNum)
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}
	hs := m.TotalNumHs(i, false)

	bare := a.AtomicNum != 0 && organicSubset[a.AtomicNum] &&
		a.FormalCharge == 0 && a.Isotope == 0 && a.MapNum == 0 &&
		hs == m.defaultImplicitHs(i)
	if a.AtomicNum == 0 && a.FormalCharge == 0 && a.Isotope == 0 && hs == 0 && a.MapNum == 0 {
		w.sb.WriteByte('*')
		return
	}
	if bare {
		w.sb.WriteString(sym)
		return
	}

	w.sb.WriteByte('[')
	if a.Isotope > 0 {
		w.sb.WriteString(strconv.Itoa(a.Isotope))
	}
	w.sb.WriteString(sym)
	if hs > 0 {
		w.sb.WriteByte('H')
		if hs > 1 {
			w.sb.WriteString(strconv.Itoa(hs))
		}
	}
	switch {
	case a.FormalCharge == 1:
		w.sb.WriteByte('+')
	case a.FormalCharge == -1:
		w.sb.WriteByte('-')
	case a.FormalCharge > 1:
		w.sb.WriteByte('+')
		w.sb.WriteString(strconv.Itoa(a.FormalCharge))
	case a.FormalCharge < -1:
		w.sb.WriteByte('-')
		w.sb.WriteString(strconv.Itoa(-a.FormalCharge))
	}
	if a.MapNum > 0 {
		w.sb.WriteByte(':')
		w.sb.WriteString(strconv.Itoa(a.MapNum))
	}
	w.sb.WriteByte(']')
}
