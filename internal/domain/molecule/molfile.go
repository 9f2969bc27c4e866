package molecule

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AAriam/rdkit/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// V2000 molfile reader
// ─────────────────────────────────────────────────────────────────────────────

// molfileCharges maps the atom-block charge code to a formal charge.
var molfileCharges = map[int]int{1: 3, 2: 2, 3: 1, 5: -1, 6: -2, 7: -3}

// IsMolBlock reports whether text looks like a V2000 molfile.
func IsMolBlock(text string) bool {
	return strings.Contains(text, "V2000")
}

// ParseMolBlock reads the first molecule of a V2000 molfile or SD file.
// Hydrogens are implicit (valence perceived); M  CHG and M  ISO override
// the atom block. Bond type 4 marks both atoms aromatic.
func ParseMolBlock(r io.Reader) (*Molecule, error) {
	sc := bufio.NewScanner(r)
	var lines []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, "$$$$") {
			break
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMoleculeParsingFailed, "read molfile")
	}

	counts := -1
	for i, line := range lines {
		if strings.Contains(line, "V2000") {
			counts = i
			break
		}
	}
	if counts < 0 {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidFormat, "V2000 counts line not found")
	}
	if counts < 3 {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidFormat, "molfile header truncated")
	}
	cl := lines[counts]
	numAtoms, err1 := fixedInt(cl, 0, 3)
	numBonds, err2 := fixedInt(cl, 3, 6)
	if err1 != nil || err2 != nil {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidFormat, "malformed counts line").WithDetail(cl)
	}
	body := lines[counts+1:]
	if len(body) < numAtoms+numBonds {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidFormat, "molfile shorter than its counts line")
	}

	mol := New()
	mol.Name = strings.TrimSpace(lines[counts-3])
	for i := 0; i < numAtoms; i++ {
		a, err := parseMolAtom(body[i])
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMoleculeInvalidFormat, "atom block").
				WithDetail(fmt.Sprintf("atom=%d", i+1))
		}
		mol.AddAtom(a)
	}
	for i := 0; i < numBonds; i++ {
		line := body[numAtoms+i]
		from, e1 := fixedInt(line, 0, 3)
		to, e2 := fixedInt(line, 3, 6)
		typ, e3 := fixedInt(line, 6, 9)
		if e1 != nil || e2 != nil || e3 != nil {
			return nil, errors.New(errors.ErrCodeMoleculeInvalidFormat, "malformed bond line").WithDetail(line)
		}
		order := BondSingle
		switch typ {
		case 2:
			order = BondDouble
		case 3:
			order = BondTriple
		case 4:
			order = BondAromatic
		}
		if _, err := mol.AddBond(from-1, to-1, order); err != nil {
			return nil, err
		}
		if order == BondAromatic {
			mol.atoms[from-1].Aromatic = true
			mol.atoms[to-1].Aromatic = true
		}
	}

	for _, line := range body[numAtoms+numBonds:] {
		switch {
		case strings.HasPrefix(line, "M  END"):
			mol.UpdateAllPropertyCaches()
			return mol, nil
		case strings.HasPrefix(line, "M  CHG"), strings.HasPrefix(line, "M  ISO"):
			pairs, err := propertyPairs(line)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeMoleculeInvalidFormat, "property line").WithDetail(line)
			}
			for _, p := range pairs {
				if p[0] < 1 || p[0] > mol.NumAtoms() {
					return nil, errors.New(errors.ErrCodeAtomIndexOutOfRange, "property line references a missing atom").WithDetail(line)
				}
				if strings.HasPrefix(line, "M  CHG") {
					mol.atoms[p[0]-1].FormalCharge = p[1]
				} else {
					mol.atoms[p[0]-1].Isotope = p[1]
				}
			}
		}
	}
	mol.UpdateAllPropertyCaches()
	return mol, nil
}

func parseMolAtom(line string) (Atom, error) {
	if len(line) < 34 {
		return Atom{}, fmt.Errorf("line too short: %q", line)
	}
	sym := strings.TrimSpace(line[31:34])
	z, ok := DefaultPeriodicTable.AtomicNumber(sym)
	if !ok {
		if sym != "R" && sym != "A" && sym != "Q" && sym != "R#" {
			return Atom{}, fmt.Errorf("unknown element %q", sym)
		}
		z = 0
	}
	a := Atom{AtomicNum: z}
	if code, err := fixedInt(line, 36, 39); err == nil {
		a.FormalCharge = molfileCharges[code]
	}
	return a, nil
}

func propertyPairs(line string) ([][2]int, error) {
	f := strings.Fields(line)
	if len(f) < 3 {
		return nil, fmt.Errorf("missing entry count")
	}
	n, err := strconv.Atoi(f[2])
	if err != nil {
		return nil, err
	}
	if len(f) < 3+2*n {
		return nil, fmt.Errorf("expected %d pairs", n)
	}
	out := make([][2]int, n)
	for k := 0; k < n; k++ {
		a, err1 := strconv.Atoi(f[3+2*k])
		v, err2 := strconv.Atoi(f[4+2*k])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("non-numeric pair %d", k+1)
		}
		out[k] = [2]int{a, v}
	}
	return out, nil
}

func fixedInt(line string, from, to int) (int, error) {
	if len(line) < to {
		if len(line) <= from {
			return 0, fmt.Errorf("column %d-%d missing", from, to)
		}
		to = len(line)
	}
	return strconv.Atoi(strings.TrimSpace(line[from:to]))
}
