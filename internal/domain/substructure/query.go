package substructure

import (
	"github.com/AAriam/rdkit/internal/domain/molecule"
)

// ─────────────────────────────────────────────────────────────────────────────
// Atom and bond query expressions
// ─────────────────────────────────────────────────────────────────────────────

type atomExpr interface {
	matchAtom(m *molecule.Molecule, i int) bool
}

type atomTest func(m *molecule.Molecule, i int) bool

func (f atomTest) matchAtom(m *molecule.Molecule, i int) bool { return f(m, i) }

type atomAnd struct{ l, r atomExpr }

func (e atomAnd) matchAtom(m *molecule.Molecule, i int) bool {
	return e.l.matchAtom(m, i) && e.r.matchAtom(m, i)
}

type atomOr struct{ l, r atomExpr }

func (e atomOr) matchAtom(m *molecule.Molecule, i int) bool {
	return e.l.matchAtom(m, i) || e.r.matchAtom(m, i)
}

type atomNot struct{ e atomExpr }

func (e atomNot) matchAtom(m *molecule.Molecule, i int) bool { return !e.e.matchAtom(m, i) }

// atomRecursive is $(...): the inner pattern must match with its first atom
// on i.
type atomRecursive struct{ p *Pattern }

func (e atomRecursive) matchAtom(m *molecule.Molecule, i int) bool {
	return e.p.matchesAt(m, i)
}

func anyAtom() atomExpr {
	return atomTest(func(*molecule.Molecule, int) bool { return true })
}

func elementTest(z int, aromatic bool) atomExpr {
	return atomTest(func(m *molecule.Molecule, i int) bool {
		return m.AtomicNum(i) == z && m.IsAromatic(i) == aromatic
	})
}

func atomicNumTest(z int) atomExpr {
	return atomTest(func(m *molecule.Molecule, i int) bool { return m.AtomicNum(i) == z })
}

func aromaticTest(aromatic bool) atomExpr {
	return atomTest(func(m *molecule.Molecule, i int) bool { return m.IsAromatic(i) == aromatic })
}

func chargeTest(q int) atomExpr {
	return atomTest(func(m *molecule.Molecule, i int) bool { return m.FormalCharge(i) == q })
}

func isotopeTest(n int) atomExpr {
	return atomTest(func(m *molecule.Molecule, i int) bool { return m.Isotope(i) == n })
}

// totalHTest is H<n>: hydrogens carried plus hydrogen neighbours.
func totalHTest(n int) atomExpr {
	return atomTest(func(m *molecule.Molecule, i int) bool { return m.TotalNumHs(i, true) == n })
}

// implicitHTest is h<n>: hydrogens carried, hydrogen neighbours excluded.
func implicitHTest(n int) atomExpr {
	return atomTest(func(m *molecule.Molecule, i int) bool { return m.TotalNumHs(i, false) == n })
}

func hasImplicitHTest() atomExpr {
	return atomTest(func(m *molecule.Molecule, i int) bool { return m.TotalNumHs(i, false) > 0 })
}

func degreeTest(n int) atomExpr {
	return atomTest(func(m *molecule.Molecule, i int) bool { return m.Degree(i) == n })
}

func totalDegreeTest(n int) atomExpr {
	return atomTest(func(m *molecule.Molecule, i int) bool { return m.TotalDegree(i) == n })
}

func valenceTest(n int) atomExpr {
	return atomTest(func(m *molecule.Molecule, i int) bool { return m.TotalValence(i) == n })
}

func inRingTest(in bool) atomExpr {
	return atomTest(func(m *molecule.Molecule, i int) bool { return m.IsInRing(i) == in })
}

func ringBondCountTest(n int) atomExpr {
	return atomTest(func(m *molecule.Molecule, i int) bool { return m.NumRingBonds(i) == n })
}

func hasRingBondTest() atomExpr {
	return atomTest(func(m *molecule.Molecule, i int) bool { return m.NumRingBonds(i) > 0 })
}

type bondExpr interface {
	matchBond(m *molecule.Molecule, b int) bool
}

type bondTest func(m *molecule.Molecule, b int) bool

func (f bondTest) matchBond(m *molecule.Molecule, b int) bool { return f(m, b) }

type bondAnd struct{ l, r bondExpr }

func (e bondAnd) matchBond(m *molecule.Molecule, b int) bool {
	return e.l.matchBond(m, b) && e.r.matchBond(m, b)
}

type bondOr struct{ l, r bondExpr }

func (e bondOr) matchBond(m *molecule.Molecule, b int) bool {
	return e.l.matchBond(m, b) || e.r.matchBond(m, b)
}

type bondNot struct{ e bondExpr }

func (e bondNot) matchBond(m *molecule.Molecule, b int) bool { return !e.e.matchBond(m, b) }

func bondOrderTest(o molecule.BondOrder) bondExpr {
	return bondTest(func(m *molecule.Molecule, b int) bool { return m.Bond(b).Order == o })
}

func anyBond() bondExpr {
	return bondTest(func(*molecule.Molecule, int) bool { return true })
}

func ringBondTest() bondExpr {
	return bondTest(func(m *molecule.Molecule, b int) bool { return m.IsRingBond(b) })
}

// defaultBond is the bond implied between two adjacent SMARTS atoms.
func defaultBond() bondExpr {
	return bondTest(func(m *molecule.Molecule, b int) bool {
		o := m.Bond(b).Order
		return o == molecule.BondSingle || o == molecule.BondAromatic
	})
}
