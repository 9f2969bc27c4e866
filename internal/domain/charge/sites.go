// Package charge implements formal-charge standardization: charge
// correction rules, the strength-ordered acid/base catalog, proton
// redistribution (Reionizer) and net-charge removal (Uncharger).
//
// Catalogs, rules, Reionizer and Uncharger values are immutable once built
// and may be shared between goroutines; each call mutates only the molecule
// it is given.
package charge

import (
	"github.com/AAriam/rdkit/internal/domain/molecule"
	"github.com/AAriam/rdkit/internal/domain/substructure"
)

// PatternMatcher finds pattern occurrences in a molecule.
type PatternMatcher interface {
	FindAll(p *substructure.Pattern, m *molecule.Molecule) []substructure.Match
	FindFirst(p *substructure.Pattern, m *molecule.Molecule) (substructure.Match, bool)
}

// AtomRanker returns a canonical rank per atom index.
type AtomRanker interface {
	Rank(m *molecule.Molecule) []int
}

// ValenceTable lists the allowed valences of an element. A single -1 means
// any valence.
type ValenceTable interface {
	AllowedValences(atomicNum int) []int
}

var (
	_ PatternMatcher = substructure.Matcher{}
	_ AtomRanker     = molecule.CanonicalRanker{}
	_ ValenceTable   = molecule.PeriodicTable{}
)

// SiteMatch is an acid or base occurrence: the catalog rank that matched and
// the matched atoms in query order.
type SiteMatch struct {
	Rank  int
	Atoms []int
}

// Site returns the reacting atom, the last atom of the match.
func (s SiteMatch) Site() int { return s.Atoms[len(s.Atoms)-1] }

// strongestProtonated scans the catalog from the strongest acid down and
// returns the first protonated form present in m.
func strongestProtonated(m *molecule.Molecule, cat *AcidBaseCatalog, pm PatternMatcher) (SiteMatch, bool) {
	for rank, pair := range cat.pairs {
		if match, ok := pm.FindFirst(pair.Acid, m); ok {
			return SiteMatch{Rank: rank, Atoms: match}, true
		}
	}
	return SiteMatch{}, false
}

// weakestIonized scans the catalog from the weakest acid up and returns the
// first ionized form present in m.
func weakestIonized(m *molecule.Molecule, cat *AcidBaseCatalog, pm PatternMatcher) (SiteMatch, bool) {
	for rank := len(cat.pairs) - 1; rank >= 0; rank-- {
		if match, ok := pm.FindFirst(cat.pairs[rank].Base, m); ok {
			return SiteMatch{Rank: rank, Atoms: match}, true
		}
	}
	return SiteMatch{}, false
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
