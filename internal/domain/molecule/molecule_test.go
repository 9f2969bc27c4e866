package molecule

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAriam/rdkit/pkg/errors"
)

func TestParseSMILES_ImplicitHydrogens(t *testing.T) {
	cases := []struct {
		smiles string
		atom   int
		wantZ  int
		wantH  int
	}{
		{"C", 0, 6, 4},
		{"CC(=O)O", 3, 8, 1},
		{"CC(=O)O", 2, 8, 0},
		{"C[N+](C)(C)C", 1, 7, 0},
		{"CN", 1, 7, 2},
		{"c1ccccc1", 0, 6, 1},
		{"c1ccncc1", 3, 7, 0},
		{"c1cc[nH]c1", 3, 7, 1},
		{"Cc1ccccc1", 1, 6, 0},
		{"OS(=O)(=O)O", 0, 8, 1},
		{"CP(=O)(O)O", 1, 15, 0},
		{"Cl", 0, 17, 1},
		{"[Cl]", 0, 17, 0},
		{"[Na]", 0, 11, 0},
		{"[NH4+]", 0, 7, 4},
		{"[O-]C", 0, 8, 0},
		{"c1ccoc1", 3, 8, 0},
	}
	for _, tc := range cases {
		t.Run(tc.smiles, func(t *testing.T) {
			m, err := ParseSMILES(tc.smiles)
			require.NoError(t, err)
			assert.Equal(t, tc.wantZ, m.AtomicNum(tc.atom))
			assert.Equal(t, tc.wantH, m.TotalNumHs(tc.atom, false))
		})
	}
}

func TestParseSMILES_BracketAtoms(t *testing.T) {
	m, err := ParseSMILES("[13CH3:7][NH3+].[O-2].[Fe+3].[2H][H]")
	require.NoError(t, err)

	assert.Equal(t, 13, m.Isotope(0))
	assert.Equal(t, 3, m.NumExplicitHs(0))
	assert.True(t, m.NoImplicit(0))
	assert.Equal(t, 7, m.Atom(0).MapNum)
	assert.Equal(t, 1, m.FormalCharge(1))
	assert.Equal(t, -2, m.FormalCharge(2))
	assert.Equal(t, "Fe", m.Symbol(3))
	assert.Equal(t, 3, m.FormalCharge(3))
	assert.Equal(t, 1, m.AtomicNum(4))
	assert.Equal(t, 2, m.Isotope(4))
	assert.Equal(t, 2, m.TotalCharge())
	assert.Len(t, m.Fragments(), 4)
}

func TestParseSMILES_RingClosures(t *testing.T) {
	m, err := ParseSMILES("C1CC%10CC1CC%10")
	require.NoError(t, err)
	assert.Equal(t, 8, m.NumBonds())

	b, ok := m.BondBetween(0, 4)
	require.True(t, ok)
	assert.Equal(t, BondSingle, b.Order)

	m, err = ParseSMILES("C=1CCCCC=1")
	require.NoError(t, err)
	b, ok = m.BondBetween(0, 5)
	require.True(t, ok)
	assert.Equal(t, BondDouble, b.Order)
}

func TestParseSMILES_Errors(t *testing.T) {
	for _, s := range []string{"", "C1CC", "C(C", "C)C", "[Na", "Xx", "C=", "[Q]", "C=1CCCC#1", "(C)"} {
		_, err := ParseSMILES(s)
		require.Error(t, err, s)
		assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES), s)
	}
}

func TestParseSMILES_IgnoresTitle(t *testing.T) {
	m, err := ParseSMILES("CCO ethanol")
	require.NoError(t, err)
	assert.Equal(t, 3, m.NumAtoms())
}

func TestPropertyCache_StaleUntilUpdated(t *testing.T) {
	m := MustParseSMILES("CC(=O)O")
	assert.Equal(t, 1, m.NumImplicitHs(3))

	m.SetFormalCharge(3, -1)
	assert.Equal(t, 1, m.NumImplicitHs(3), "setters must not refresh the cache")

	m.UpdatePropertyCache(3)
	assert.Equal(t, 0, m.NumImplicitHs(3))
	assert.Equal(t, 1, m.TotalValence(3))
}

func TestTotalValence_ChargedAtoms(t *testing.T) {
	m := MustParseSMILES("C[NH3+]")
	assert.Equal(t, 4, m.TotalValence(1))
	assert.Equal(t, 4, m.TotalDegree(1))

	m = MustParseSMILES("c1cc[nH+]cc1")
	assert.Equal(t, 4, m.ExplicitValence(3))
}

func TestTotalNumHs_IncludeNeighbors(t *testing.T) {
	m := MustParseSMILES("[H]OC")
	assert.Equal(t, 0, m.TotalNumHs(1, false))
	assert.Equal(t, 1, m.TotalNumHs(1, true))
}

func TestClone_IsIndependent(t *testing.T) {
	m := MustParseSMILES("CC(=O)[O-]")
	c := m.Clone()
	c.SetFormalCharge(3, 0)
	c.SetNumExplicitHs(3, 1)

	assert.Equal(t, -1, m.FormalCharge(3))
	assert.Equal(t, 0, m.NumExplicitHs(3))
	assert.Equal(t, m.NumBonds(), c.NumBonds())
}

func TestAddBond_Validation(t *testing.T) {
	m := New()
	a := m.AddAtom(Atom{AtomicNum: 6})
	b := m.AddAtom(Atom{AtomicNum: 8})

	_, err := m.AddBond(a, 5, BondSingle)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAtomIndexOutOfRange))

	_, err = m.AddBond(a, a, BondSingle)
	assert.Error(t, err)

	_, err = m.AddBond(a, b, BondUnspecified)
	require.NoError(t, err)
	bond, _ := m.BondBetween(b, a)
	assert.Equal(t, BondSingle, bond.Order)

	_, err = m.AddBond(b, a, BondDouble)
	assert.Error(t, err)
	assert.Equal(t, []int{a}, m.Neighbors(b))
}

func TestRingsAndFragments(t *testing.T) {
	m := MustParseSMILES("C1CCCCC1CC.[Na+]")

	assert.True(t, m.IsInRing(0))
	assert.True(t, m.IsInRing(5))
	assert.False(t, m.IsInRing(6))
	assert.False(t, m.IsInRing(8))

	b, ok := m.bondIndex(5, 6)
	require.True(t, ok)
	assert.False(t, m.IsRingBond(b))
	assert.Equal(t, 2, m.NumRingBonds(5))

	frags := m.Fragments()
	require.Len(t, frags, 2)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, frags[0])
	assert.Equal(t, []int{8}, frags[1])
}

func TestPeriodicTable(t *testing.T) {
	pt := DefaultPeriodicTable

	assert.Equal(t, []int{3, 5, 7}, pt.AllowedValences(15))
	assert.Equal(t, []int{AnyValence}, pt.AllowedValences(26))
	assert.Equal(t, "Cl", pt.Symbol(17))
	assert.Equal(t, "*", pt.Symbol(0))
	z, ok := pt.AtomicNumber("Na")
	assert.True(t, ok)
	assert.Equal(t, 11, z)

	vals := pt.AllowedValences(16)
	vals[0] = 99
	assert.Equal(t, 2, pt.DefaultValence(16), "AllowedValences must return a copy")

	for _, z := range []int{3, 5, 11, 12, 13, 19, 26, 31, 56, 81} {
		assert.True(t, pt.IsEarlyAtom(z), "Z=%d", z)
	}
	for _, z := range []int{1, 2, 6, 7, 8, 14, 17, 32, 35, 53} {
		assert.False(t, pt.IsEarlyAtom(z), "Z=%d", z)
	}
}

func TestWriteSMILES_RoundTrip(t *testing.T) {
	for _, s := range []string{
		"CC(=O)O",
		"CC(=O)[O-]",
		"C[N+](C)(C)C",
		"c1ccccc1O",
		"c1cc[nH]c1",
		"O=S(=O)([O-])c1ccccc1",
		"[Na+].[Cl-]",
		"NCC(=O)O",
		"C1CC2CCC1CC2",
	} {
		t.Run(s, func(t *testing.T) {
			m := MustParseSMILES(s)
			out := WriteSMILES(m)
			back, err := ParseSMILES(out)
			require.NoError(t, err, out)
			require.Equal(t, m.NumAtoms(), back.NumAtoms(), out)
			assert.Equal(t, m.NumBonds(), back.NumBonds(), out)
			assert.Equal(t, m.TotalCharge(), back.TotalCharge(), out)
			assert.Equal(t, totalHydrogens(m), totalHydrogens(back), out)
		})
	}
}

func TestWriteSMILES_BareAndBracket(t *testing.T) {
	assert.Equal(t, "CC(=O)O", WriteSMILES(MustParseSMILES("CC(=O)O")))
	assert.Equal(t, "CC(=O)[O-]", WriteSMILES(MustParseSMILES("CC(=O)[O-]")))
	assert.Equal(t, "CO", WriteSMILES(MustParseSMILES("C[OH]")))
	assert.Equal(t, "[CH3]", WriteSMILES(MustParseSMILES("[CH3]")))
	assert.Equal(t, "c1ccccc1", WriteSMILES(MustParseSMILES("c1ccccc1")))
}

func TestWriteSMILES_CanonicalIsOrderIndependent(t *testing.T) {
	pairs := [][2]string{
		{"OCC(=O)[O-].[Na+]", "[Na+].[O-]C(=O)CO"},
		{"c1ccccc1C(=O)O", "OC(=O)c1ccccc1"},
		{"NCC(=O)O", "OC(=O)CN"},
	}
	for _, p := range pairs {
		a := WriteSMILES(MustParseSMILES(p[0]), WithCanonicalOrder())
		b := WriteSMILES(MustParseSMILES(p[1]), WithCanonicalOrder())
		assert.Equal(t, a, b, "%s vs %s", p[0], p[1])
	}
}

func TestCanonicalRanker_TotalOrder(t *testing.T) {
	m := MustParseSMILES("OC(=O)CC(=O)O")
	ranks := CanonicalRanker{}.Rank(m)
	require.Len(t, ranks, m.NumAtoms())

	seen := make(map[int]bool)
	for _, r := range ranks {
		assert.False(t, seen[r], "duplicate rank %d", r)
		assert.True(t, r >= 0 && r < m.NumAtoms())
		seen[r] = true
	}
	assert.Equal(t, ranks, CanonicalRanker{}.Rank(m), "ranking must be deterministic")
	assert.Nil(t, CanonicalRanker{}.Rank(New()))
}

func TestCanonicalRanker_InvariantUnderPermutation(t *testing.T) {
	a := MustParseSMILES("CC(=O)[O-]")
	b := MustParseSMILES("[O-]C(C)=O")

	ra := CanonicalRanker{}.Rank(a)
	rb := CanonicalRanker{}.Rank(b)

	// methyl carbon: atom 0 in a, atom 2 in b; carbonyl O: 2 in a, 3 in b
	assert.Equal(t, ra[0], rb[2])
	assert.Equal(t, ra[1], rb[1])
	assert.Equal(t, ra[2], rb[3])
	assert.Equal(t, ra[3], rb[0])
}

func TestParseMolBlock(t *testing.T) {
	block := strings.Join([]string{
		"acetate",
		"  handmade",
		"",
		"  4  3  0  0  0  0  0  0  0  0999 V2000",
		"    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0",
		"    1.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0",
		"    1.5000    1.0000    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0",
		"    1.5000   -1.0000    0.0000 O   0  5  0  0  0  0  0  0  0  0  0  0",
		"  1  2  1  0",
		"  2  3  2  0",
		"  2  4  1  0",
		"M  END",
		"$$$$",
	}, "\n")
	require.True(t, IsMolBlock(block))

	m, err := ParseMolBlock(strings.NewReader(block))
	require.NoError(t, err)
	assert.Equal(t, "acetate", m.Name)
	assert.Equal(t, 4, m.NumAtoms())
	assert.Equal(t, -1, m.FormalCharge(3))
	assert.Equal(t, 0, m.TotalNumHs(3, false))
	assert.Equal(t, 3, m.TotalNumHs(0, false))
	assert.False(t, m.NoImplicit(3))
}

func TestParseMolBlock_ChargeLineAndAromatic(t *testing.T) {
	block := strings.Join([]string{
		"",
		"",
		"",
		"  2  1  0  0  0  0  0  0  0  0999 V2000",
		"    0.0000    0.0000    0.0000 N   0  0  0  0  0  0  0  0  0  0  0  0",
		"    1.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0",
		"  1  2  1  0",
		"M  CHG  1   1   1",
		"M  ISO  1   2  13",
		"M  END",
	}, "\n")
	m, err := ParseMolBlock(strings.NewReader(block))
	require.NoError(t, err)
	assert.Equal(t, 1, m.FormalCharge(0))
	assert.Equal(t, 3, m.TotalNumHs(0, false))
	assert.Equal(t, 13, m.Isotope(1))

	_, err = ParseMolBlock(strings.NewReader("not a molfile"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidFormat))
}

func totalHydrogens(m *Molecule) int {
	n := 0
	for i := 0; i < m.NumAtoms(); i++ {
		n += m.TotalNumHs(i, false)
		if m.AtomicNum(i) == 1 {
			n++
		}
	}
	return n
}
