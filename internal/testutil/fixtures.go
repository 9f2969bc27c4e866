package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AAriam/rdkit/internal/domain/molecule"
)

// Charged structures shared by the service, CLI and HTTP tests.
const (
	Glycine            = "NCC(=O)O"
	GlycineZwitterion  = "[NH3+]CC(=O)[O-]"
	Nitrate            = "[O-][N+](=O)[O-]"
	TetramethylAcetate = "C[N+](C)(C)C.CC(=O)[O-]"
	SodiumBenzoate     = "[Na].O=C(O)c1ccccc1"
	AcidAlkoxide       = "OC(=O)CC[O-]"
	Quaternary         = "C[N+](C)(C)C"
)

// AcetateMolBlock is acetate as a V2000 block with the charge in the
// M  CHG line.
const AcetateMolBlock = `acetate
  fixture

  4  3  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    1.5000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    2.2500    1.2990    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
    2.2500   -1.2990    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  1  0
  2  3  2  0
  2  4  1  0
M  CHG  1   4  -1
M  END
`

// MustMolecule parses smiles and fails the test on error.
func MustMolecule(t testing.TB, smiles string) *molecule.Molecule {
	t.Helper()
	m, err := molecule.ParseSMILES(smiles)
	require.NoError(t, err, smiles)
	return m
}

// Charges returns the formal charge of every atom in index order.
func Charges(m *molecule.Molecule) []int {
	out := make([]int, m.NumAtoms())
	for i := range out {
		out[i] = m.FormalCharge(i)
	}
	return out
}
