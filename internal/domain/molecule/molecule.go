// Package molecule provides the mutable molecular graph used by the charge
// standardizers, together with its element table, SMILES and molfile
// readers, a SMILES writer, ring and fragment perception on top of gonum's
// graph package and a canonical atom ranker.
//
// Atoms are addressed by index. Valence-dependent state (implicit hydrogen
// count, explicit valence) is cached per atom and only refreshed by
// UpdatePropertyCache; setters never refresh it. A Molecule is not safe for
// concurrent use.
package molecule

import (
	"fmt"

	"github.com/AAriam/rdkit/pkg/errors"
)

// BondOrder is the type of a bond.
type BondOrder int

const (
	BondUnspecified BondOrder = iota
	BondSingle
	BondDouble
	BondTriple
	BondAromatic
)

func (o BondOrder) String() string {
	switch o {
	case BondSingle:
		return "single"
	case BondDouble:
		return "double"
	case BondTriple:
		return "triple"
	case BondAromatic:
		return "aromatic"
	default:
		return "unspecified"
	}
}

// valence is the bond's contribution to explicit valence. Aromatic bonds
// count 1; the delocalised electron is added per atom.
func (o BondOrder) valence() int {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	default:
		return 1
	}
}

// Atom is the user-settable state of an atom.
type Atom struct {
	AtomicNum     int
	Isotope       int
	FormalCharge  int
	NumExplicitHs int
	NoImplicit    bool
	Aromatic      bool
	MapNum        int
}

// Bond connects two atoms by index.
type Bond struct {
	Begin int
	End   int
	Order BondOrder
}

// Other returns the atom at the opposite end of the bond from i.
func (b Bond) Other(i int) int {
	if b.Begin == i {
		return b.End
	}
	return b.Begin
}

type atomState struct {
	Atom
	implicitHs      int
	explicitValence int
}

type adjacency struct {
	atom int
	bond int
}

// Molecule is a mutable molecular graph.
type Molecule struct {
	Name string

	atoms []atomState
	bonds []Bond
	adj   [][]adjacency

	ringBonds []bool
}

// New returns an empty molecule.
func New() *Molecule {
	return &Molecule{}
}

// AddAtom appends an atom and returns its index. Its property cache is
// computed immediately.
func (m *Molecule) AddAtom(a Atom) int {
	m.atoms = append(m.atoms, atomState{Atom: a})
	m.adj = append(m.adj, nil)
	idx := len(m.atoms) - 1
	m.UpdatePropertyCache(idx)
	return idx
}

// AddBond connects begin and end and returns the bond index. The property
// caches of both atoms are refreshed.
func (m *Molecule) AddBond(begin, end int, order BondOrder) (int, error) {
	if begin < 0 || begin >= len(m.atoms) || end < 0 || end >= len(m.atoms) {
		return -1, errors.New(errors.ErrCodeAtomIndexOutOfRange, "bond references a missing atom").
			WithDetail(fmt.Sprintf("begin=%d end=%d atoms=%d", begin, end, len(m.atoms)))
	}
	if begin == end {
		return -1, errors.New(errors.ErrCodeMoleculeInvalidFormat, "bond to self").
			WithDetail(fmt.Sprintf("atom=%d", begin))
	}
	if _, ok := m.bondIndex(begin, end); ok {
		return -1, errors.New(errors.ErrCodeMoleculeInvalidFormat, "duplicate bond").
			WithDetail(fmt.Sprintf("begin=%d end=%d", begin, end))
	}
	if order == BondUnspecified {
		order = BondSingle
	}
	m.bonds = append(m.bonds, Bond{Begin: begin, End: end, Order: order})
	b := len(m.bonds) - 1
	m.adj[begin] = append(m.adj[begin], adjacency{atom: end, bond: b})
	m.adj[end] = append(m.adj[end], adjacency{atom: begin, bond: b})
	m.ringBonds = nil
	m.UpdatePropertyCache(begin)
	m.UpdatePropertyCache(end)
	return b, nil
}

// NumAtoms returns the number of atoms.
func (m *Molecule) NumAtoms() int { return len(m.atoms) }

// NumBonds returns the number of bonds.
func (m *Molecule) NumBonds() int { return len(m.bonds) }

// Atom returns a copy of the settable state of atom i.
func (m *Molecule) Atom(i int) Atom { return m.atoms[i].Atom }

// Bond returns bond b.
func (m *Molecule) Bond(b int) Bond { return m.bonds[b] }

// Bonds returns a copy of the bond list.
func (m *Molecule) Bonds() []Bond {
	out := make([]Bond, len(m.bonds))
	copy(out, m.bonds)
	return out
}

func (m *Molecule) bondIndex(i, j int) (int, bool) {
	for _, a := range m.adj[i] {
		if a.atom == j {
			return a.bond, true
		}
	}
	return -1, false
}

// BondIndex returns the index of the bond joining i and j, if any.
func (m *Molecule) BondIndex(i, j int) (int, bool) {
	return m.bondIndex(i, j)
}

// BondBetween returns the bond joining i and j, if any.
func (m *Molecule) BondBetween(i, j int) (Bond, bool) {
	b, ok := m.bondIndex(i, j)
	if !ok {
		return Bond{}, false
	}
	return m.bonds[b], true
}

// Neighbors returns the indices of the atoms bonded to i, in bond order.
func (m *Molecule) Neighbors(i int) []int {
	out := make([]int, len(m.adj[i]))
	for k, a := range m.adj[i] {
		out[k] = a.atom
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Index-addressed accessors and mutators
// ─────────────────────────────────────────────────────────────────────────────

func (m *Molecule) AtomicNum(i int) int { return m.atoms[i].AtomicNum }

func (m *Molecule) Symbol(i int) string { return DefaultPeriodicTable.Symbol(m.atoms[i].AtomicNum) }

func (m *Molecule) Isotope(i int) int { return m.atoms[i].Isotope }

func (m *Molecule) FormalCharge(i int) int { return m.atoms[i].FormalCharge }

func (m *Molecule) SetFormalCharge(i, charge int) { m.atoms[i].FormalCharge = charge }

func (m *Molecule) NumExplicitHs(i int) int { return m.atoms[i].NumExplicitHs }

func (m *Molecule) SetNumExplicitHs(i, n int) { m.atoms[i].NumExplicitHs = n }

func (m *Molecule) NoImplicit(i int) bool { return m.atoms[i].NoImplicit }

func (m *Molecule) SetNoImplicit(i int, v bool) { m.atoms[i].NoImplicit = v }

func (m *Molecule) IsAromatic(i int) bool { return m.atoms[i].Aromatic }

// NumImplicitHs returns the cached implicit hydrogen count.
func (m *Molecule) NumImplicitHs(i int) int { return m.atoms[i].implicitHs }

// TotalNumHs returns explicit plus cached implicit hydrogens. With
// includeNeighbors, hydrogen atoms bonded to i are counted too.
func (m *Molecule) TotalNumHs(i int, includeNeighbors bool) int {
	n := m.atoms[i].NumExplicitHs + m.atoms[i].implicitHs
	if includeNeighbors {
		for _, a := range m.adj[i] {
			if m.atoms[a.atom].AtomicNum == 1 {
				n++
			}
		}
	}
	return n
}

// Degree is the number of explicit neighbours.
func (m *Molecule) Degree(i int) int { return len(m.adj[i]) }

// TotalDegree is Degree plus the hydrogens carried by the atom.
func (m *Molecule) TotalDegree(i int) int { return len(m.adj[i]) + m.TotalNumHs(i, false) }

// ExplicitValence returns the cached explicit valence.
func (m *Molecule) ExplicitValence(i int) int { return m.atoms[i].explicitValence }

// TotalValence returns the cached explicit valence plus implicit hydrogens.
func (m *Molecule) TotalValence(i int) int {
	return m.atoms[i].explicitValence + m.atoms[i].implicitHs
}

// TotalCharge sums the formal charges of all atoms.
func (m *Molecule) TotalCharge() int {
	q := 0
	for i := range m.atoms {
		q += m.atoms[i].FormalCharge
	}
	return q
}

// ─────────────────────────────────────────────────────────────────────────────
// Property cache
// ─────────────────────────────────────────────────────────────────────────────

// UpdatePropertyCache recomputes explicit valence and implicit hydrogens of
// atom i from its current charge, hydrogen count and bonds.
func (m *Molecule) UpdatePropertyCache(i int) {
	ev := m.calcExplicitValence(i)
	m.atoms[i].explicitValence = ev
	m.atoms[i].implicitHs = m.calcImplicitHs(i, ev)
}

// UpdateAllPropertyCaches refreshes every atom.
func (m *Molecule) UpdateAllPropertyCaches() {
	for i := range m.atoms {
		m.UpdatePropertyCache(i)
	}
}

func (m *Molecule) calcExplicitValence(i int) int {
	a := &m.atoms[i]
	sum := a.NumExplicitHs
	aromaticBonds := 0
	for _, adj := range m.adj[i] {
		o := m.bonds[adj.bond].Order
		if o == BondAromatic {
			aromaticBonds++
		}
		sum += o.valence()
	}
	if a.Aromatic && aromaticBonds > 0 {
		dv := DefaultPeriodicTable.DefaultValence(effectiveAtomicNum(a.AtomicNum, a.FormalCharge))
		if dv != AnyValence && sum+1 <= dv {
			sum++
		}
	}
	return sum
}

func (m *Molecule) calcImplicitHs(i, explicitValence int) int {
	a := &m.atoms[i]
	if a.NoImplicit || a.AtomicNum == 0 {
		return 0
	}
	vals, ok := valences[effectiveAtomicNum(a.AtomicNum, a.FormalCharge)]
	if !ok {
		return 0
	}
	if a.Aromatic {
		if n := vals[0] - explicitValence; n > 0 {
			return n
		}
		return 0
	}
	for _, v := range vals {
		if v >= explicitValence {
			return v - explicitValence
		}
	}
	return 0
}

// defaultImplicitHs is the hydrogen count atom i would get written without
// brackets: neutral, no explicit hydrogens, implicit perception on.
func (m *Molecule) defaultImplicitHs(i int) int {
	saved := m.atoms[i]
	m.atoms[i].NumExplicitHs = 0
	m.atoms[i].NoImplicit = false
	ev := m.calcExplicitValence(i)
	n := m.calcImplicitHs(i, ev)
	m.atoms[i] = saved
	return n
}

// Clone returns a deep copy.
func (m *Molecule) Clone() *Molecule {
	c := &Molecule{
		Name:  m.Name,
		atoms: make([]atomState, len(m.atoms)),
		bonds: make([]Bond, len(m.bonds)),
		adj:   make([][]adjacency, len(m.adj)),
	}
	copy(c.atoms, m.atoms)
	copy(c.bonds, m.bonds)
	for i, a := range m.adj {
		c.adj[i] = append([]adjacency(nil), a...)
	}
	if m.ringBonds != nil {
		c.ringBonds = append([]bool(nil), m.ringBonds...)
	}
	return c
}
