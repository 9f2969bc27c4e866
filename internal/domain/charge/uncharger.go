package charge

import (
	"sort"

	"github.com/AAriam/rdkit/internal/domain/molecule"
	"github.com/AAriam/rdkit/internal/domain/substructure"
	"github.com/AAriam/rdkit/pkg/errors"
)

// Uncharger query patterns.
const (
	// Cations with removable hydrogens, unless paired with a single anion.
	PosHSMARTS = `[+,+2,+3,+4;!h0;!$(*~[-]),$(*(~[-])~[-])]`
	// Cations without hydrogens and without an adjacent anion.
	PosNoHSMARTS = `[+,+2,+3,+4;h0;!$(*~[-])]`
	// Anions not adjacent to a cation.
	NegSMARTS = `[-!$(*~[+,+2,+3,+4])]`
	// Conjugate bases of strong acids: carboxylate, carbonate, sulfi(a)te and
	// thio analogues; phosphi(a)te and nitrate; hali(a)te and perhalate;
	// tetrazolide.
	NegAcidSMARTS = `[$([O,S;-][C,S;+0]=[O,S]),$([O,S;-][N,P;+](=[O,S])[O,S;-]),$([O-][Cl,Br,I;+,+2,+3][O-]),$([n-]1nnnc1),$([n-]1ncnn1)]`
)

var (
	posHPattern    = substructure.MustCompile(PosHSMARTS)
	posNoHPattern  = substructure.MustCompile(PosNoHSMARTS)
	negPattern     = substructure.MustCompile(NegSMARTS)
	negAcidPattern = substructure.MustCompile(NegAcidSMARTS)
)

// Uncharger removes net formal charge by adding and removing hydrogens.
// Charges on atoms that cannot change their hydrogen count, such as
// quaternary nitrogens, are balanced by leaving an equal number of anions
// charged.
type Uncharger struct {
	force     bool
	canonical bool
	ranker    AtomRanker
	matcher   PatternMatcher
	sink      EventSink
}

// UnchargerOption configures an Uncharger.
type UnchargerOption func(*Uncharger)

// WithForceFullNeutralization neutralizes every anion that can take a
// hydrogen, even when that leaves a net positive charge.
func WithForceFullNeutralization(force bool) UnchargerOption {
	return func(u *Uncharger) { u.force = force }
}

// WithCanonicalOrdering makes the choice of anions independent of input
// atom order. On by default.
func WithCanonicalOrdering(canonical bool) UnchargerOption {
	return func(u *Uncharger) { u.canonical = canonical }
}

// WithAtomRanker replaces the canonical atom ranker used to order anions.
func WithAtomRanker(r AtomRanker) UnchargerOption {
	return func(u *Uncharger) {
		if r != nil {
			u.ranker = r
		}
	}
}

// WithUnchargerMatcher sets the substructure matcher.
func WithUnchargerMatcher(pm PatternMatcher) UnchargerOption {
	return func(u *Uncharger) {
		if pm != nil {
			u.matcher = pm
		}
	}
}

// WithUnchargerSink sets where charge events are reported.
func WithUnchargerSink(s EventSink) UnchargerOption {
	return func(u *Uncharger) {
		if s != nil {
			u.sink = s
		}
	}
}

// NewUncharger returns an Uncharger with canonical ordering enabled and
// full neutralization disabled unless overridden.
func NewUncharger(opts ...UnchargerOption) *Uncharger {
	u := &Uncharger{
		canonical: true,
		ranker:    molecule.CanonicalRanker{},
		matcher:   substructure.DefaultMatcher,
		sink:      NopSink{},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// WithSink returns a shallow copy of u that reports to s.
func (u *Uncharger) WithSink(s EventSink) *Uncharger {
	c := *u
	if s == nil {
		s = NopSink{}
	}
	c.sink = s
	return &c
}

// ForceFullNeutralization reports whether full neutralization is on.
func (u *Uncharger) ForceFullNeutralization() bool { return u.force }

// CanonicalOrdering reports whether anions are visited in canonical order.
func (u *Uncharger) CanonicalOrdering() bool { return u.canonical }

// Uncharge returns a neutralized copy of m; m is not modified.
func (u *Uncharger) Uncharge(m *molecule.Molecule) (*molecule.Molecule, error) {
	if m == nil {
		return nil, errors.InvalidParam("molecule is nil")
	}
	out := m.Clone()
	if err := u.UnchargeInPlace(out); err != nil {
		return nil, err
	}
	return out, nil
}

type rankedAtom struct {
	rank int
	idx  int
}

// UnchargeInPlace neutralizes m.
func (u *Uncharger) UnchargeInPlace(m *molecule.Molecule) error {
	if u == nil || u.matcher == nil {
		return errors.NotReady("uncharger is not initialized")
	}
	if m == nil {
		return errors.InvalidParam("molecule is nil")
	}
	m.UpdateAllPropertyCaches()

	pMatches := u.matcher.FindAll(posHPattern, m)
	qMatches := u.matcher.FindAll(posNoHPattern, m)
	qMatched := 0
	for _, match := range qMatches {
		qMatched += m.FormalCharge(match[0])
	}
	nMatches := u.matcher.FindAll(negPattern, m)
	aMatches := u.matcher.FindAll(negAcidPattern, m)

	needsNeutralization := qMatched > 0 && (len(nMatches) > 0 || len(aMatches) > 0)
	var ranks []int
	if u.canonical && needsNeutralization && u.ranker != nil {
		ranks = u.ranker.Rank(m)
	}
	if len(ranks) != m.NumAtoms() {
		ranks = make([]int, m.NumAtoms())
		for i := range ranks {
			ranks[i] = i
		}
	}

	nAtoms := u.rankMatches(nMatches, ranks)
	aAtoms := u.rankMatches(aMatches, ranks)

	negAtoms := make([]int, 0, len(nAtoms)+len(aAtoms))
	isAcid := make([]bool, m.NumAtoms())
	for _, ra := range aAtoms {
		isAcid[ra.idx] = true
	}
	for _, ra := range nAtoms {
		if !isAcid[ra.idx] {
			negAtoms = append(negAtoms, ra.idx)
		}
	}

	// Each cation next to acid anions pairs with the first of them only,
	// so nitrate gets a single proton.
	skip := make([]bool, m.NumAtoms())
	for _, ra := range aAtoms {
		for _, nbr := range m.Neighbors(ra.idx) {
			if m.FormalCharge(nbr) > 0 {
				if !skip[nbr] {
					skip[nbr] = true
				} else {
					skip[ra.idx] = true
				}
				break
			}
		}
	}
	for _, ra := range aAtoms {
		if !skip[ra.idx] {
			negAtoms = append(negAtoms, ra.idx)
		}
	}

	negSurplus := len(negAtoms)
	if !u.force {
		negSurplus -= qMatched
	}
	// A negative surplus never reaches zero, so every anion in the list is
	// neutralized.
	if negSurplus != 0 {
		for _, idx := range negAtoms {
			if u.neutralizeNeg(m, idx) {
				negSurplus--
				if negSurplus == 0 {
					break
				}
			}
		}
	}

	netCharge := m.TotalCharge()
	if netCharge > 0 {
		u.neutralizePos(m, pMatches, netCharge)
	}
	return nil
}

// rankMatches keys every match by its first atom, sorted by (rank, index)
// when canonical ordering is on.
func (u *Uncharger) rankMatches(matches []substructure.Match, ranks []int) []rankedAtom {
	out := make([]rankedAtom, len(matches))
	for i, match := range matches {
		out[i] = rankedAtom{rank: ranks[match[0]], idx: match[0]}
	}
	if u.canonical {
		sort.Slice(out, func(a, b int) bool {
			if out[a].rank != out[b].rank {
				return out[a].rank < out[b].rank
			}
			return out[a].idx < out[b].idx
		})
	}
	return out
}

// neutralizeNeg adds a hydrogen to the anion at idx, or for an early
// element removes one. It reports false when an early element carries no
// hydrogen to remove.
func (u *Uncharger) neutralizeNeg(m *molecule.Molecule, idx int) bool {
	early := molecule.DefaultPeriodicTable.IsEarlyAtom(m.AtomicNum(idx))
	totalHs := m.TotalNumHs(idx, false)
	prev := m.FormalCharge(idx)
	if early && totalHs == 0 {
		u.sink.Emit(Event{
			Kind:           EventNegativeSkipped,
			Atom:           idx,
			Partner:        -1,
			Rank:           -1,
			PartnerRank:    -1,
			Charge:         prev,
			PreviousCharge: prev,
		})
		return false
	}
	hDelta := 1
	if early {
		hDelta = -1
	}
	m.SetNumExplicitHs(idx, totalHs+hDelta)
	m.SetNoImplicit(idx, true)
	m.SetFormalCharge(idx, prev+1)
	m.UpdatePropertyCache(idx)
	u.sink.Emit(Event{
		Kind:           EventNegativeNeutralized,
		Atom:           idx,
		Partner:        -1,
		Rank:           -1,
		PartnerRank:    -1,
		Charge:         prev + 1,
		PreviousCharge: prev,
	})
	return true
}

// neutralizePos strips positive charge from posH atoms, in match order,
// until netCharge is used up.
func (u *Uncharger) neutralizePos(m *molecule.Molecule, pMatches []substructure.Match, netCharge int) {
	for _, match := range pMatches {
		for _, idx := range match {
			m.SetNumExplicitHs(idx, m.TotalNumHs(idx, false))
			m.SetNoImplicit(idx, true)
			z := m.AtomicNum(idx)
			carbonOrEarly := z == 6 || molecule.DefaultPeriodicTable.IsEarlyAtom(z)
			for m.FormalCharge(idx) > 0 && netCharge > 0 {
				prev := m.FormalCharge(idx)
				m.SetFormalCharge(idx, prev-1)
				netCharge--
				lastH := false
				if !carbonOrEarly {
					n := m.NumExplicitHs(idx)
					if n >= 1 {
						m.SetNumExplicitHs(idx, n-1)
					}
					lastH = n == 1
				} else {
					m.SetNumExplicitHs(idx, m.NumExplicitHs(idx)+1)
				}
				m.UpdatePropertyCache(idx)
				u.sink.Emit(Event{
					Kind:           EventPositiveNeutralized,
					Atom:           idx,
					Partner:        -1,
					Rank:           -1,
					PartnerRank:    -1,
					Charge:         prev - 1,
					PreviousCharge: prev,
				})
				if lastH {
					break
				}
			}
			if netCharge == 0 {
				return
			}
		}
	}
}
