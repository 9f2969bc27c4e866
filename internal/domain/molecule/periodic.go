package molecule

// ─────────────────────────────────────────────────────────────────────────────
// Periodic table
// ─────────────────────────────────────────────────────────────────────────────

// AnyValence marks an element without a fixed valence list (transition
// metals, lanthanides). Such atoms never receive implicit hydrogens.
const AnyValence = -1

var elementSymbols = [...]string{
	"*",
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd",
	"In", "Sn", "Sb", "Te", "I", "Xe",
	"Cs", "Ba", "La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy",
	"Ho", "Er", "Tm", "Yb", "Lu", "Hf", "Ta", "W", "Re", "Os", "Ir", "Pt",
	"Au", "Hg", "Tl", "Pb", "Bi", "Po", "At", "Rn",
	"Fr", "Ra", "Ac", "Th", "Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf",
	"Es", "Fm", "Md", "No", "Lr", "Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds",
	"Rg", "Cn", "Nh", "Fl", "Mc", "Lv", "Ts", "Og",
}

// MaxAtomicNum is the largest atomic number known to the table.
const MaxAtomicNum = len(elementSymbols) - 1

var symbolToNum = func() map[string]int {
	m := make(map[string]int, len(elementSymbols))
	for z, s := range elementSymbols {
		m[s] = z
	}
	return m
}()

// valences holds the allowed valence states of main-group elements, lowest
// first. Elements absent from the map accept any valence.
var valences = map[int][]int{
	1: {1}, 2: {0},
	3: {1}, 4: {2}, 5: {3}, 6: {4}, 7: {3}, 8: {2}, 9: {1}, 10: {0},
	11: {1}, 12: {2}, 13: {3, 6}, 14: {4, 6}, 15: {3, 5, 7}, 16: {2, 4, 6}, 17: {1}, 18: {0},
	19: {1}, 20: {2},
	31: {3}, 32: {4}, 33: {3, 5, 7}, 34: {2, 4, 6}, 35: {1}, 36: {0},
	37: {1}, 38: {2},
	49: {3}, 50: {2, 4}, 51: {3, 5, 7}, 52: {2, 4, 6}, 53: {1, 3, 5}, 54: {0, 2, 4, 6},
	55: {1}, 56: {2},
	81: {1, 3}, 82: {2, 4}, 83: {3, 5}, 84: {2, 4, 6}, 85: {1, 3, 5, 7}, 86: {0},
	87: {1}, 88: {2},
}

// PeriodicTable answers element lookups. The zero value is ready to use.
type PeriodicTable struct{}

// DefaultPeriodicTable is the shared read-only table.
var DefaultPeriodicTable = PeriodicTable{}

// AllowedValences returns the allowed valence states of atomicNum, lowest
// first, or []int{AnyValence} when the element has none fixed. The returned
// slice is a copy.
func (PeriodicTable) AllowedValences(atomicNum int) []int {
	v, ok := valences[atomicNum]
	if !ok {
		return []int{AnyValence}
	}
	out := make([]int, len(v))
	copy(out, v)
	return out
}

// DefaultValence returns the lowest allowed valence, or AnyValence.
func (PeriodicTable) DefaultValence(atomicNum int) int {
	if v, ok := valences[atomicNum]; ok {
		return v[0]
	}
	return AnyValence
}

// Symbol returns the element symbol for atomicNum; "*" for 0 or unknown.
func (PeriodicTable) Symbol(atomicNum int) string {
	if atomicNum <= 0 || atomicNum > MaxAtomicNum {
		return "*"
	}
	return elementSymbols[atomicNum]
}

// AtomicNumber returns the atomic number of symbol (case sensitive).
func (PeriodicTable) AtomicNumber(symbol string) (int, bool) {
	z, ok := symbolToNum[symbol]
	return z, ok
}

// IsEarlyAtom reports whether atomicNum belongs to IUPAC groups 1 to 13 from
// period 2 onward (alkali and alkaline earth metals, boron group, transition
// metals, lanthanides and actinides). Hydrogen is not early.
func (PeriodicTable) IsEarlyAtom(atomicNum int) bool {
	switch {
	case atomicNum >= 3 && atomicNum <= 5:
		return true
	case atomicNum >= 11 && atomicNum <= 13:
		return true
	case atomicNum >= 19 && atomicNum <= 31:
		return true
	case atomicNum >= 37 && atomicNum <= 49:
		return true
	case atomicNum >= 55 && atomicNum <= 81:
		return true
	case atomicNum >= 87 && atomicNum <= 113:
		return true
	}
	return false
}

// effectiveAtomicNum is the isoelectronic element used for implicit hydrogen
// perception of a charged main-group atom (N+ behaves like C, O- like F).
func effectiveAtomicNum(atomicNum, charge int) int {
	if _, ok := valences[atomicNum]; !ok {
		return atomicNum
	}
	eff := atomicNum - charge
	if eff < 1 || eff > MaxAtomicNum {
		return atomicNum
	}
	if _, ok := valences[eff]; !ok {
		return atomicNum
	}
	return eff
}

// organicSubset lists the elements that may be written without brackets.
var organicSubset = map[int]bool{5: true, 6: true, 7: true, 8: true, 9: true, 15: true, 16: true, 17: true, 35: true, 53: true}
