package charge

import (
	"github.com/AAriam/rdkit/internal/domain/molecule"
	"github.com/AAriam/rdkit/internal/domain/substructure"
	"github.com/AAriam/rdkit/pkg/errors"
)

// Reionizer applies charge corrections and then moves protons from the
// strongest protonated acid to the weakest ionized base until no improving
// transfer is left.
type Reionizer struct {
	catalog     *AcidBaseCatalog
	corrections []ChargeCorrection
	matcher     PatternMatcher
	valences    ValenceTable
	sink        EventSink
}

// ReionizerOption configures a Reionizer.
type ReionizerOption func(*Reionizer)

// WithChargeCorrections replaces the default correction rules. An empty
// slice disables the correction phase.
func WithChargeCorrections(cc []ChargeCorrection) ReionizerOption {
	return func(r *Reionizer) {
		r.corrections = append([]ChargeCorrection(nil), cc...)
	}
}

// WithMatcher sets the substructure matcher.
func WithMatcher(pm PatternMatcher) ReionizerOption {
	return func(r *Reionizer) {
		if pm != nil {
			r.matcher = pm
		}
	}
}

// WithValenceTable sets the table consulted when deciding whether a
// protonated base needs an explicit hydrogen.
func WithValenceTable(vt ValenceTable) ReionizerOption {
	return func(r *Reionizer) {
		if vt != nil {
			r.valences = vt
		}
	}
}

// WithEventSink sets the diagnostic sink.
func WithEventSink(s EventSink) ReionizerOption {
	return func(r *Reionizer) {
		if s != nil {
			r.sink = s
		}
	}
}

// NewReionizer builds a Reionizer over catalog. Unless overridden, it uses
// DefaultChargeCorrections, substructure.DefaultMatcher and the built-in
// periodic table, and discards events.
func NewReionizer(catalog *AcidBaseCatalog, opts ...ReionizerOption) (*Reionizer, error) {
	if catalog == nil {
		return nil, errors.NotReady("reionizer needs an acid/base catalog")
	}
	r := &Reionizer{
		catalog:     catalog,
		corrections: DefaultChargeCorrections(),
		matcher:     substructure.DefaultMatcher,
		valences:    molecule.DefaultPeriodicTable,
		sink:        NopSink{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Catalog returns the catalog the Reionizer was built with.
func (r *Reionizer) Catalog() *AcidBaseCatalog { return r.catalog }

// Corrections returns a copy of the correction rules, in application order.
func (r *Reionizer) Corrections() []ChargeCorrection {
	return append([]ChargeCorrection(nil), r.corrections...)
}

// WithSink returns a shallow copy of r that reports to s.
func (r *Reionizer) WithSink(s EventSink) *Reionizer {
	c := *r
	if s == nil {
		s = NopSink{}
	}
	c.sink = s
	return &c
}

// StrongestProtonated returns the strongest acid still carrying its proton.
func (r *Reionizer) StrongestProtonated(m *molecule.Molecule) (SiteMatch, bool) {
	return strongestProtonated(m, r.catalog, r.matcher)
}

// WeakestIonized returns the weakest acid present in its ionized form.
func (r *Reionizer) WeakestIonized(m *molecule.Molecule) (SiteMatch, bool) {
	return weakestIonized(m, r.catalog, r.matcher)
}

// Reionize returns a reionized copy of m; m is not modified.
func (r *Reionizer) Reionize(m *molecule.Molecule) (*molecule.Molecule, error) {
	if m == nil {
		return nil, errors.InvalidParam("molecule is nil")
	}
	out := m.Clone()
	if err := r.ReionizeInPlace(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReionizeInPlace reionizes m. Ambiguous proton placement stops the
// balancing loop early with a reionization_aborted event; it is not an
// error.
func (r *Reionizer) ReionizeInPlace(m *molecule.Molecule) error {
	if r == nil || r.catalog == nil {
		return errors.NotReady("reionizer is not initialized")
	}
	if m == nil {
		return errors.InvalidParam("molecule is nil")
	}

	startCharge := m.TotalCharge()
	r.applyCorrections(m)
	currentCharge := m.TotalCharge()
	delta := currentCharge - startCharge

	if currentCharge != 0 {
		for delta > 0 {
			site, ok := r.StrongestProtonated(m)
			if !ok {
				break
			}
			a := site.Site()
			prev := m.FormalCharge(a)
			m.SetFormalCharge(a, prev-1)
			if h := m.NumExplicitHs(a); h > 0 {
				m.SetNumExplicitHs(a, h-1)
			}
			m.UpdatePropertyCache(a)
			delta--
			r.sink.Emit(Event{
				Kind:           EventAcidDeprotonated,
				Rule:           r.catalog.pairs[site.Rank].Name,
				Atom:           a,
				Partner:        -1,
				Rank:           site.Rank,
				PartnerRank:    -1,
				Charge:         prev - 1,
				PreviousCharge: prev,
			})
		}
	}

	r.balance(m)
	return nil
}

func (r *Reionizer) applyCorrections(m *molecule.Molecule) {
	for _, cc := range r.corrections {
		if cc.Pattern == nil {
			continue
		}
		for _, match := range r.matcher.FindAll(cc.Pattern, m) {
			for _, a := range match {
				prev := m.FormalCharge(a)
				m.SetFormalCharge(a, cc.Charge)
				r.sink.Emit(Event{
					Kind:           EventChargeCorrected,
					Rule:           cc.Name,
					Atom:           a,
					Partner:        -1,
					Rank:           -1,
					PartnerRank:    -1,
					Charge:         cc.Charge,
					PreviousCharge: prev,
				})
			}
		}
	}
}

type atomPair [2]int

func unorderedPair(a, b int) atomPair {
	if a > b {
		a, b = b, a
	}
	return atomPair{a, b}
}

// balance moves one proton per iteration. Each unordered atom pair is used
// at most once, so the loop runs at most N(N-1)/2 times.
func (r *Reionizer) balance(m *molecule.Molecule) {
	moved := make(map[atomPair]struct{})
	for {
		acid, ok := r.StrongestProtonated(m)
		if !ok {
			return
		}
		base, ok := r.WeakestIonized(m)
		if !ok {
			return
		}
		if acid.Rank >= base.Rank {
			return
		}

		pa, ib := acid.Site(), base.Site()
		abort := Event{
			Kind:        EventReionizationAborted,
			Rule:        r.catalog.pairs[acid.Rank].Name,
			Atom:        pa,
			Partner:     ib,
			Rank:        acid.Rank,
			PartnerRank: base.Rank,
			Charge:      m.FormalCharge(pa),
		}
		abort.PreviousCharge = abort.Charge
		if pa == ib {
			abort.Reason = AbortSameAtom
			r.sink.Emit(abort)
			return
		}
		key := unorderedPair(pa, ib)
		if _, seen := moved[key]; seen {
			abort.Reason = AbortRepeatedPair
			r.sink.Emit(abort)
			return
		}
		moved[key] = struct{}{}

		// The checks below read the property caches as they were before
		// the charge changes.
		prevAcid := m.FormalCharge(pa)
		m.SetFormalCharge(pa, prevAcid-1)
		if m.NumImplicitHs(pa) == 0 && m.NumExplicitHs(pa) > 0 {
			m.SetNumExplicitHs(pa, m.NumExplicitHs(pa)-1)
		}
		m.UpdatePropertyCache(pa)

		prevBase := m.FormalCharge(ib)
		m.SetFormalCharge(ib, prevBase+1)
		acidZ := m.AtomicNum(pa)
		aromaticNP := (acidZ == 7 || acidZ == 15) && m.IsAromatic(pa)
		allowed := r.valences.AllowedValences(m.AtomicNum(ib))
		if m.NoImplicit(ib) || aromaticNP || !containsInt(allowed, m.TotalValence(ib)) {
			m.SetNumExplicitHs(ib, m.NumExplicitHs(ib)+1)
		}
		m.UpdatePropertyCache(ib)

		r.sink.Emit(Event{
			Kind:           EventProtonMoved,
			Rule:           r.catalog.pairs[acid.Rank].Name + " -> " + r.catalog.pairs[base.Rank].Name,
			Atom:           pa,
			Partner:        ib,
			Rank:           acid.Rank,
			PartnerRank:    base.Rank,
			Charge:         prevAcid - 1,
			PreviousCharge: prevAcid,
		})
	}
}
