package molecule

import (
	"fmt"
	"strings"

	"github.com/AAriam/rdkit/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// SMILES reader
// ─────────────────────────────────────────────────────────────────────────────

type ringOpening struct {
	atom  int
	order BondOrder
}

type smilesParser struct {
	src   string
	pos   int
	mol   *Molecule
	prev  int
	bond  BondOrder
	stack []int
	rings map[int]ringOpening
}

// ParseSMILES reads a SMILES string. Bracket atoms keep exactly the hydrogen
// count they spell out (implicit perception is switched off for them);
// organic-subset atoms get implicit hydrogens from the valence table.
// Stereo markers are accepted and ignored.
func ParseSMILES(smiles string) (*Molecule, error) {
	s := strings.TrimSpace(smiles)
	if s == "" {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "empty SMILES")
	}
	if fields := strings.Fields(s); len(fields) > 1 {
		s = fields[0]
	}
	p := &smilesParser{src: s, mol: New(), prev: -1, rings: make(map[int]ringOpening)}
	if err := p.parse(); err != nil {
		return nil, err
	}
	p.mol.UpdateAllPropertyCaches()
	return p.mol, nil
}

// MustParseSMILES panics on malformed input. For fixtures and constants.
func MustParseSMILES(smiles string) *Molecule {
	m, err := ParseSMILES(smiles)
	if err != nil {
		panic(err)
	}
	return m
}

func (p *smilesParser) fail(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeMoleculeInvalidSMILES, format, args...).
		WithDetail(fmt.Sprintf("smiles=%q pos=%d", p.src, p.pos))
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		switch {
		case ch == '(':
			if p.prev < 0 {
				return p.fail("branch opened before any atom")
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case ch == ')':
			if len(p.stack) == 0 {
				return p.fail("unbalanced ')'")
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case ch == '-' || ch == '/' || ch == '\\':
			p.bond = BondSingle
			p.pos++
		case ch == '=':
			p.bond = BondDouble
			p.pos++
		case ch == '#':
			p.bond = BondTriple
			p.pos++
		case ch == ':':
			p.bond = BondAromatic
			p.pos++
		case ch == '.':
			p.prev = -1
			p.bond = BondUnspecified
			p.pos++
		case ch == '%' || (ch >= '0' && ch <= '9'):
			if err := p.ringClosure(); err != nil {
				return err
			}
		case ch == '[':
			a, err := p.bracketAtom()
			if err != nil {
				return err
			}
			if err := p.attach(a); err != nil {
				return err
			}
		case ch == '*' || isLetter(ch):
			a, err := p.organicAtom()
			if err != nil {
				return err
			}
			if err := p.attach(a); err != nil {
				return err
			}
		default:
			return p.fail("unexpected character %q", ch)
		}
	}
	if len(p.stack) > 0 {
		return p.fail("unclosed branch")
	}
	if len(p.rings) > 0 {
		for d := range p.rings {
			return p.fail("unclosed ring %d", d)
		}
	}
	if p.bond != BondUnspecified {
		return p.fail("dangling bond")
	}
	return nil
}

func (p *smilesParser) attach(a Atom) error {
	idx := p.mol.AddAtom(a)
	if p.prev >= 0 {
		order := p.resolveOrder(p.bond, p.prev, idx)
		if _, err := p.mol.AddBond(p.prev, idx, order); err != nil {
			return err
		}
	} else if p.bond != BondUnspecified {
		return p.fail("bond without a preceding atom")
	}
	p.bond = BondUnspecified
	p.prev = idx
	return nil
}

func (p *smilesParser) resolveOrder(explicit BondOrder, a, b int) BondOrder {
	if explicit != BondUnspecified {
		return explicit
	}
	if p.mol.IsAromatic(a) && p.mol.IsAromatic(b) {
		return BondAromatic
	}
	return BondSingle
}

func (p *smilesParser) ringClosure() error {
	if p.prev < 0 {
		return p.fail("ring closure before any atom")
	}
	var num int
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
			return p.fail("malformed %%nn ring closure")
		}
		num = int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')
		p.pos += 3
	} else {
		num = int(p.src[p.pos] - '0')
		p.pos++
	}

	open, ok := p.rings[num]
	if !ok {
		p.rings[num] = ringOpening{atom: p.prev, order: p.bond}
		p.bond = BondUnspecified
		return nil
	}
	delete(p.rings, num)
	explicit := p.bond
	if explicit == BondUnspecified {
		explicit = open.order
	} else if open.order != BondUnspecified && open.order != explicit {
		return p.fail("conflicting bond orders on ring closure %d", num)
	}
	p.bond = BondUnspecified
	if open.atom == p.prev {
		return p.fail("ring closure %d bonds an atom to itself", num)
	}
	_, err := p.mol.AddBond(open.atom, p.prev, p.resolveOrder(explicit, open.atom, p.prev))
	return err
}

var aromaticOrganic = map[string]int{"b": 5, "c": 6, "n": 7, "o": 8, "p": 15, "s": 16}

func (p *smilesParser) organicAtom() (Atom, error) {
	if p.src[p.pos] == '*' {
		p.pos++
		return Atom{}, nil
	}
	if p.pos+1 < len(p.src) {
		switch p.src[p.pos : p.pos+2] {
		case "Cl":
			p.pos += 2
			return Atom{AtomicNum: 17}, nil
		case "Br":
			p.pos += 2
			return Atom{AtomicNum: 35}, nil
		}
	}
	sym := p.src[p.pos : p.pos+1]
	if z, ok := aromaticOrganic[sym]; ok {
		p.pos++
		return Atom{AtomicNum: z, Aromatic: true}, nil
	}
	z, ok := DefaultPeriodicTable.AtomicNumber(sym)
	if !ok || !organicSubset[z] {
		return Atom{}, p.fail("%q must be written in brackets", sym)
	}
	p.pos++
	return Atom{AtomicNum: z}, nil
}

func (p *smilesParser) bracketAtom() (Atom, error) {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return Atom{}, p.fail("unclosed bracket atom")
	}
	body := p.src[p.pos+1 : p.pos+end]
	a, err := parseBracketBody(body)
	if err != nil {
		return Atom{}, p.fail("bracket atom [%s]: %v", body, err)
	}
	p.pos += end + 1
	return a, nil
}

// parseBracketBody handles isotope, symbol, chirality, H count, charge and
// atom class, in that order.
func parseBracketBody(body string) (Atom, error) {
	a := Atom{NoImplicit: true}
	i := 0
	for i < len(body) && isDigit(body[i]) {
		a.Isotope = a.Isotope*10 + int(body[i]-'0')
		i++
	}
	if i >= len(body) {
		return a, fmt.Errorf("missing element symbol")
	}

	switch {
	case body[i] == '*':
		i++
	case i+1 < len(body) && (body[i:i+2] == "se" || body[i:i+2] == "as"):
		z, _ := DefaultPeriodicTable.AtomicNumber(strings.ToUpper(body[i:i+1]) + body[i+1:i+2])
		a.AtomicNum, a.Aromatic = z, true
		i += 2
	case isLower(body[i]):
		z, ok := aromaticOrganic[body[i:i+1]]
		if !ok {
			return a, fmt.Errorf("unknown aromatic symbol %q", body[i:i+1])
		}
		a.AtomicNum, a.Aromatic = z, true
		i++
	case isUpper(body[i]):
		if i+1 < len(body) && isLower(body[i+1]) {
			if z, ok := DefaultPeriodicTable.AtomicNumber(body[i : i+2]); ok {
				a.AtomicNum = z
				i += 2
				break
			}
		}
		z, ok := DefaultPeriodicTable.AtomicNumber(body[i : i+1])
		if !ok {
			return a, fmt.Errorf("unknown element %q", body[i:i+1])
		}
		a.AtomicNum = z
		i++
	default:
		return a, fmt.Errorf("unexpected %q", body[i])
	}

	for i < len(body) && body[i] == '@' {
		i++
	}
	if i < len(body) && body[i] == 'H' {
		i++
		n := 1
		if i < len(body) && isDigit(body[i]) {
			n = 0
			for i < len(body) && isDigit(body[i]) {
				n = n*10 + int(body[i]-'0')
				i++
			}
		}
		a.NumExplicitHs = n
	}
	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		c := body[i]
		i++
		switch {
		case i < len(body) && isDigit(body[i]):
			n := 0
			for i < len(body) && isDigit(body[i]) {
				n = n*10 + int(body[i]-'0')
				i++
			}
			a.FormalCharge = sign * n
		default:
			n := 1
			for i < len(body) && body[i] == c {
				n++
				i++
			}
			a.FormalCharge = sign * n
		}
	}
	if i < len(body) && body[i] == ':' {
		i++
		n := 0
		for i < len(body) && isDigit(body[i]) {
			n = n*10 + int(body[i]-'0')
			i++
		}
		a.MapNum = n
	}
	if i != len(body) {
		return a, fmt.Errorf("trailing %q", body[i:])
	}
	return a, nil
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLower(c byte) bool  { return c >= 'a' && c <= 'z' }
func isUpper(c byte) bool  { return c >= 'A' && c <= 'Z' }
func isLetter(c byte) bool { return isLower(c) || isUpper(c) }
