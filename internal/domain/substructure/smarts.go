// Package substructure compiles SMARTS patterns and finds their matches in
// a molecule.Molecule.
//
// The supported dialect covers what charge-standardization rules need:
// element and aromaticity primitives, charge, isotope, hydrogen counts
// (H, h), connectivity (D, X), valence (v), ring membership (R0, bare R,
// x), recursive $() expressions, the four logical operators and the usual
// bond primitives. Ring-size primitives (R<n>, r) are rejected.
package substructure

import (
	"fmt"
	"strings"

	"github.com/AAriam/rdkit/internal/domain/molecule"
	"github.com/AAriam/rdkit/pkg/errors"
)

type queryBond struct {
	begin int
	end   int
	expr  bondExpr
}

type queryEdge struct {
	atom int
	bond int
}

// Pattern is a compiled SMARTS query. It is immutable and safe for
// concurrent use.
type Pattern struct {
	smarts string
	atoms  []atomExpr
	bonds  []queryBond
	adj    [][]queryEdge
	// parent[k] is the lowest-index earlier atom bonded to k, or -1.
	parent []int
}

// Compile parses a SMARTS string.
func Compile(smarts string) (*Pattern, error) {
	s := strings.TrimSpace(smarts)
	if s == "" {
		return nil, errors.New(errors.ErrCodePatternCompileFailed, "empty SMARTS")
	}
	p := &smartsParser{src: s, prev: -1, rings: make(map[int]ringOpen)}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return newPattern(s, p.atoms, p.bonds), nil
}

// MustCompile panics if smarts does not compile. For package-level rule
// tables.
func MustCompile(smarts string) *Pattern {
	p, err := Compile(smarts)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source SMARTS.
func (p *Pattern) String() string { return p.smarts }

// NumAtoms returns the number of query atoms.
func (p *Pattern) NumAtoms() int { return len(p.atoms) }

func newPattern(smarts string, atoms []atomExpr, bonds []queryBond) *Pattern {
	n := len(atoms)
	adj := make([][]queryEdge, n)
	for b, qb := range bonds {
		adj[qb.begin] = append(adj[qb.begin], queryEdge{atom: qb.end, bond: b})
		adj[qb.end] = append(adj[qb.end], queryEdge{atom: qb.begin, bond: b})
	}
	parent := make([]int, n)
	for k := range parent {
		parent[k] = -1
		for _, e := range adj[k] {
			if e.atom < k && (parent[k] < 0 || e.atom < parent[k]) {
				parent[k] = e.atom
			}
		}
	}
	return &Pattern{smarts: smarts, atoms: atoms, bonds: bonds, adj: adj, parent: parent}
}

// ─────────────────────────────────────────────────────────────────────────────
// Parser
// ─────────────────────────────────────────────────────────────────────────────

type ringOpen struct {
	atom int
	bond bondExpr
}

type smartsParser struct {
	src   string
	pos   int
	atoms []atomExpr
	bonds []queryBond
	prev  int
	stack []int
	rings map[int]ringOpen
}

func compileError(src string, pos int, format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodePatternCompileFailed, format, args...).
		WithDetail(fmt.Sprintf("smarts=%q pos=%d", src, pos))
}

func (p *smartsParser) fail(format string, args ...interface{}) error {
	return compileError(p.src, p.pos, format, args...)
}

func (p *smartsParser) parse() error {
	var pending bondExpr
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.fail("branch without a preceding atom")
			}
			if pending != nil {
				return p.fail("bond before branch")
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return p.fail("unbalanced ')'")
			}
			if pending != nil {
				return p.fail("dangling bond")
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case c == '.':
			if pending != nil {
				return p.fail("bond before '.'")
			}
			p.prev = -1
			p.pos++
		case isBondChar(c):
			if pending != nil {
				return p.fail("consecutive bonds")
			}
			start := p.pos
			for p.pos < len(p.src) && isBondChar(p.src[p.pos]) {
				p.pos++
			}
			e, err := parseBondExpr(p.src, start, p.src[start:p.pos])
			if err != nil {
				return err
			}
			pending = e
		case isDigit(c) || c == '%':
			if err := p.ringClosure(pending); err != nil {
				return err
			}
			pending = nil
		default:
			a, err := p.atom()
			if err != nil {
				return err
			}
			idx := len(p.atoms)
			p.atoms = append(p.atoms, a)
			if p.prev >= 0 {
				p.addBond(p.prev, idx, pending)
			} else if pending != nil {
				return p.fail("bond without a preceding atom")
			}
			pending = nil
			p.prev = idx
		}
	}
	switch {
	case pending != nil:
		return p.fail("dangling bond")
	case len(p.stack) > 0:
		return p.fail("unclosed branch")
	case len(p.rings) > 0:
		return p.fail("unclosed ring")
	case len(p.atoms) == 0:
		return p.fail("no atoms")
	}
	return nil
}

func (p *smartsParser) addBond(a, b int, e bondExpr) {
	if e == nil {
		e = defaultBond()
	}
	p.bonds = append(p.bonds, queryBond{begin: a, end: b, expr: e})
}

func (p *smartsParser) ringClosure(pending bondExpr) error {
	if p.prev < 0 {
		return p.fail("ring closure without a preceding atom")
	}
	var n int
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
			return p.fail("'%%' needs two digits")
		}
		n = int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')
		p.pos += 3
	} else {
		n = int(p.src[p.pos] - '0')
		p.pos++
	}
	open, ok := p.rings[n]
	if !ok {
		p.rings[n] = ringOpen{atom: p.prev, bond: pending}
		return nil
	}
	delete(p.rings, n)
	if open.atom == p.prev {
		return p.fail("ring closure %d bonds an atom to itself", n)
	}
	for _, qb := range p.bonds {
		if (qb.begin == open.atom && qb.end == p.prev) || (qb.begin == p.prev && qb.end == open.atom) {
			return p.fail("ring closure %d duplicates a bond", n)
		}
	}
	e := pending
	if e == nil {
		e = open.bond
	}
	p.addBond(open.atom, p.prev, e)
	return nil
}

func (p *smartsParser) atom() (atomExpr, error) {
	rest := p.src[p.pos:]
	if rest[0] == '[' {
		end, err := closingIndex(p.src, p.pos)
		if err != nil {
			return nil, err
		}
		body := p.src[p.pos+1 : end]
		start := p.pos + 1
		p.pos = end + 1
		if p.src[end] != ']' {
			return nil, compileError(p.src, end, "mismatched bracket")
		}
		return compileBracket(p.src, start, body)
	}
	switch {
	case strings.HasPrefix(rest, "Cl"):
		p.pos += 2
		return elementTest(17, false), nil
	case strings.HasPrefix(rest, "Br"):
		p.pos += 2
		return elementTest(35, false), nil
	}
	c := rest[0]
	p.pos++
	switch c {
	case '*':
		return anyAtom(), nil
	case 'a':
		return aromaticTest(true), nil
	case 'A':
		return aromaticTest(false), nil
	case 'B', 'C', 'N', 'O', 'P', 'S', 'F', 'I':
		z, _ := molecule.DefaultPeriodicTable.AtomicNumber(string(c))
		return elementTest(z, false), nil
	case 'b', 'c', 'n', 'o', 'p', 's':
		z, _ := molecule.DefaultPeriodicTable.AtomicNumber(strings.ToUpper(string(c)))
		return elementTest(z, true), nil
	}
	p.pos--
	return nil, p.fail("unexpected character %q", c)
}

// closingIndex returns the index of the bracket or parenthesis closing the
// one opened at start, honouring nesting of both kinds.
func closingIndex(src string, start int) (int, error) {
	depth := 0
	for i := start; i < len(src); i++ {
		switch src[i] {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return -1, compileError(src, start, "unterminated %q", src[start])
}

// ─────────────────────────────────────────────────────────────────────────────
// Bracket atoms
// ─────────────────────────────────────────────────────────────────────────────

// compileBracket compiles the body of [...]; offset locates it in src for
// error reporting.
func compileBracket(src string, offset int, body string) (atomExpr, error) {
	if e, ok := hydrogenAtom(body); ok {
		return e, nil
	}
	ep := &exprParser{src: src, body: body, offset: offset}
	e, err := ep.parseLow()
	if err != nil {
		return nil, err
	}
	if ep.pos != len(body) {
		return nil, ep.fail("unexpected %q", body[ep.pos])
	}
	return e, nil
}

// hydrogenAtom recognises [H], [2H], [H+], [H-] and friends, where H names
// the element rather than a hydrogen count.
func hydrogenAtom(body string) (atomExpr, bool) {
	k := 0
	for k < len(body) && isDigit(body[k]) {
		k++
	}
	rest := body[k:]
	if rest == "" || rest[0] != 'H' {
		return nil, false
	}
	var e atomExpr = atomicNumTest(1)
	if spec := rest[1:]; spec != "" {
		q, ok := chargeSpec(spec)
		if !ok {
			return nil, false
		}
		e = atomAnd{e, chargeTest(q)}
	}
	if k > 0 {
		iso := 0
		for _, d := range body[:k] {
			iso = iso*10 + int(d-'0')
		}
		e = atomAnd{e, isotopeTest(iso)}
	}
	return e, true
}

// chargeSpec parses "+", "++", "+2", "-", "--", "-3".
func chargeSpec(s string) (int, bool) {
	if s == "" || (s[0] != '+' && s[0] != '-') {
		return 0, false
	}
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	if n, ok := atoi(s[1:]); ok {
		return sign * n, true
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return 0, false
		}
	}
	return sign * len(s), true
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}

type exprParser struct {
	src    string
	body   string
	offset int
	pos    int
}

func (e *exprParser) fail(format string, args ...interface{}) error {
	return compileError(e.src, e.offset+e.pos, format, args...)
}

func (e *exprParser) peek(c byte) bool {
	return e.pos < len(e.body) && e.body[e.pos] == c
}

// parseLow handles ';', the loosest conjunction.
func (e *exprParser) parseLow() (atomExpr, error) {
	l, err := e.parseOr()
	if err != nil {
		return nil, err
	}
	for e.peek(';') {
		e.pos++
		r, err := e.parseOr()
		if err != nil {
			return nil, err
		}
		l = atomAnd{l, r}
	}
	return l, nil
}

func (e *exprParser) parseOr() (atomExpr, error) {
	l, err := e.parseHigh()
	if err != nil {
		return nil, err
	}
	for e.peek(',') {
		e.pos++
		r, err := e.parseHigh()
		if err != nil {
			return nil, err
		}
		l = atomOr{l, r}
	}
	return l, nil
}

// parseHigh handles '&' and implicit conjunction of adjacent primitives.
func (e *exprParser) parseHigh() (atomExpr, error) {
	l, err := e.parseUnary()
	if err != nil {
		return nil, err
	}
	for e.pos < len(e.body) {
		c := e.body[e.pos]
		if c == ';' || c == ',' {
			break
		}
		if c == '&' {
			e.pos++
		}
		r, err := e.parseUnary()
		if err != nil {
			return nil, err
		}
		l = atomAnd{l, r}
	}
	return l, nil
}

func (e *exprParser) parseUnary() (atomExpr, error) {
	if e.pos >= len(e.body) {
		return nil, e.fail("unexpected end of atom expression")
	}
	if e.peek('!') {
		e.pos++
		x, err := e.parseUnary()
		if err != nil {
			return nil, err
		}
		return atomNot{x}, nil
	}
	return e.parsePrimitive()
}

// number consumes a run of digits.
func (e *exprParser) number() (int, bool) {
	start := e.pos
	for e.pos < len(e.body) && isDigit(e.body[e.pos]) {
		e.pos++
	}
	return atoi(e.body[start:e.pos])
}

func (e *exprParser) numberOr(def int) int {
	if n, ok := e.number(); ok {
		return n
	}
	return def
}

func (e *exprParser) parsePrimitive() (atomExpr, error) {
	c := e.body[e.pos]
	switch {
	case c == '$':
		if e.pos+1 >= len(e.body) || e.body[e.pos+1] != '(' {
			return nil, e.fail("'$' must be followed by '('")
		}
		end, err := closingIndex(e.body, e.pos+1)
		if err != nil {
			return nil, e.fail("unterminated recursive SMARTS")
		}
		inner := e.body[e.pos+2 : end]
		pat, err := Compile(inner)
		if err != nil {
			return nil, err
		}
		e.pos = end + 1
		return atomRecursive{pat}, nil
	case c == '*':
		e.pos++
		return anyAtom(), nil
	case c == '#':
		e.pos++
		n, ok := e.number()
		if !ok {
			return nil, e.fail("'#' needs an atomic number")
		}
		return atomicNumTest(n), nil
	case isDigit(c):
		n, _ := e.number()
		return isotopeTest(n), nil
	case c == '+' || c == '-':
		e.pos++
		sign := 1
		if c == '-' {
			sign = -1
		}
		if n, ok := e.number(); ok {
			return chargeTest(sign * n), nil
		}
		n := 1
		for e.peek(c) {
			n++
			e.pos++
		}
		return chargeTest(sign * n), nil
	case c == '@':
		for e.peek('@') {
			e.pos++
		}
		return anyAtom(), nil
	case isUpper(c):
		return e.upperPrimitive()
	case isLower(c):
		return e.lowerPrimitive()
	}
	return nil, e.fail("unexpected %q", c)
}

func (e *exprParser) upperPrimitive() (atomExpr, error) {
	c := e.body[e.pos]
	if e.pos+1 < len(e.body) && isLower(e.body[e.pos+1]) {
		sym := e.body[e.pos : e.pos+2]
		if z, ok := molecule.DefaultPeriodicTable.AtomicNumber(sym); ok && sym != "Nh" {
			e.pos += 2
			return elementTest(z, false), nil
		}
	}
	e.pos++
	switch c {
	case 'H':
		return totalHTest(e.numberOr(1)), nil
	case 'D':
		return degreeTest(e.numberOr(1)), nil
	case 'X':
		return totalDegreeTest(e.numberOr(1)), nil
	case 'A':
		return aromaticTest(false), nil
	case 'R':
		n, ok := e.number()
		switch {
		case !ok:
			return inRingTest(true), nil
		case n == 0:
			return inRingTest(false), nil
		}
		return nil, errors.New(errors.ErrCodePatternCompileFailed, "ring-count primitive R<n> is not supported").
			WithDetail(fmt.Sprintf("smarts=%q", e.src))
	}
	if z, ok := molecule.DefaultPeriodicTable.AtomicNumber(string(c)); ok {
		return elementTest(z, false), nil
	}
	e.pos--
	return nil, e.fail("unknown primitive %q", c)
}

func (e *exprParser) lowerPrimitive() (atomExpr, error) {
	rest := e.body[e.pos:]
	switch {
	case strings.HasPrefix(rest, "se"):
		e.pos += 2
		return elementTest(34, true), nil
	case strings.HasPrefix(rest, "as"):
		e.pos += 2
		return elementTest(33, true), nil
	}
	c := rest[0]
	e.pos++
	switch c {
	case 'b', 'c', 'n', 'o', 'p', 's':
		z, _ := molecule.DefaultPeriodicTable.AtomicNumber(strings.ToUpper(string(c)))
		return elementTest(z, true), nil
	case 'a':
		return aromaticTest(true), nil
	case 'h':
		if n, ok := e.number(); ok {
			return implicitHTest(n), nil
		}
		return hasImplicitHTest(), nil
	case 'v':
		return valenceTest(e.numberOr(1)), nil
	case 'x':
		if n, ok := e.number(); ok {
			return ringBondCountTest(n), nil
		}
		return hasRingBondTest(), nil
	case 'r':
		return nil, errors.New(errors.ErrCodePatternCompileFailed, "ring-size primitive r is not supported").
			WithDetail(fmt.Sprintf("smarts=%q", e.src))
	}
	e.pos--
	return nil, e.fail("unknown primitive %q", c)
}

// ─────────────────────────────────────────────────────────────────────────────
// Bond expressions
// ─────────────────────────────────────────────────────────────────────────────

func isBondChar(c byte) bool {
	return strings.IndexByte(`-=#:~@/\!&,;`, c) >= 0
}

type bondParser struct {
	src    string
	offset int
	s      string
	pos    int
}

func parseBondExpr(src string, offset int, s string) (bondExpr, error) {
	bp := &bondParser{src: src, offset: offset, s: s}
	e, err := bp.parseLow()
	if err != nil {
		return nil, err
	}
	if bp.pos != len(s) {
		return nil, compileError(src, offset+bp.pos, "unexpected %q in bond", s[bp.pos])
	}
	return e, nil
}

func (b *bondParser) peek(c byte) bool { return b.pos < len(b.s) && b.s[b.pos] == c }

func (b *bondParser) parseLow() (bondExpr, error) {
	l, err := b.parseOr()
	if err != nil {
		return nil, err
	}
	for b.peek(';') {
		b.pos++
		r, err := b.parseOr()
		if err != nil {
			return nil, err
		}
		l = bondAnd{l, r}
	}
	return l, nil
}

func (b *bondParser) parseOr() (bondExpr, error) {
	l, err := b.parseHigh()
	if err != nil {
		return nil, err
	}
	for b.peek(',') {
		b.pos++
		r, err := b.parseHigh()
		if err != nil {
			return nil, err
		}
		l = bondOr{l, r}
	}
	return l, nil
}

func (b *bondParser) parseHigh() (bondExpr, error) {
	l, err := b.parseUnary()
	if err != nil {
		return nil, err
	}
	for b.pos < len(b.s) && b.s[b.pos] != ';' && b.s[b.pos] != ',' {
		if b.s[b.pos] == '&' {
			b.pos++
		}
		r, err := b.parseUnary()
		if err != nil {
			return nil, err
		}
		l = bondAnd{l, r}
	}
	return l, nil
}

func (b *bondParser) parseUnary() (bondExpr, error) {
	if b.pos >= len(b.s) {
		return nil, compileError(b.src, b.offset+b.pos, "unexpected end of bond expression")
	}
	c := b.s[b.pos]
	b.pos++
	switch c {
	case '!':
		x, err := b.parseUnary()
		if err != nil {
			return nil, err
		}
		return bondNot{x}, nil
	case '-', '/', '\\':
		return bondOrderTest(molecule.BondSingle), nil
	case '=':
		return bondOrderTest(molecule.BondDouble), nil
	case '#':
		return bondOrderTest(molecule.BondTriple), nil
	case ':':
		return bondOrderTest(molecule.BondAromatic), nil
	case '~':
		return anyBond(), nil
	case '@':
		return ringBondTest(), nil
	}
	b.pos--
	return nil, compileError(b.src, b.offset+b.pos, "unexpected %q in bond", c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
