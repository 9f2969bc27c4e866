package substructure

import (
	"sort"
	"strconv"
	"strings"

	"github.com/AAriam/rdkit/internal/domain/molecule"
)

// Match maps each query atom, by query index, to a molecule atom index.
type Match []int

// Matcher runs backtracking substructure searches. The zero value finds
// every unique match.
type Matcher struct {
	// MaxMatches caps the number of unique matches returned; 0 means no cap.
	MaxMatches int
}

// DefaultMatcher is the Matcher used when none is configured.
var DefaultMatcher = Matcher{}

// FindAll returns the matches of p in m. Matches covering the same set of
// molecule atoms are reported once, keeping the first found. Query atoms are
// mapped in pattern order; the first query atom is tried on molecule atoms
// in ascending index order.
func (mt Matcher) FindAll(p *Pattern, m *molecule.Molecule) []Match {
	var out []Match
	seen := make(map[string]struct{})
	s := newSearch(p, m, -1, func(mapping []int) bool {
		key := atomSetKey(mapping)
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		out = append(out, append(Match(nil), mapping...))
		return mt.MaxMatches <= 0 || len(out) < mt.MaxMatches
	})
	s.extend(0)
	return out
}

// FindFirst returns the first match of p in m, if any.
func (mt Matcher) FindFirst(p *Pattern, m *molecule.Molecule) (Match, bool) {
	var first Match
	s := newSearch(p, m, -1, func(mapping []int) bool {
		first = append(Match(nil), mapping...)
		return false
	})
	s.extend(0)
	return first, first != nil
}

// HasMatch reports whether p occurs in m.
func (p *Pattern) HasMatch(m *molecule.Molecule) bool {
	_, ok := DefaultMatcher.FindFirst(p, m)
	return ok
}

// matchesAt reports whether p matches m with its first query atom on atom.
func (p *Pattern) matchesAt(m *molecule.Molecule, atom int) bool {
	found := false
	s := newSearch(p, m, atom, func([]int) bool {
		found = true
		return false
	})
	s.extend(0)
	return found
}

type search struct {
	p       *Pattern
	m       *molecule.Molecule
	root    int
	mapping []int
	used    []bool
	visit   func(mapping []int) bool
}

func newSearch(p *Pattern, m *molecule.Molecule, root int, visit func([]int) bool) *search {
	return &search{
		p:       p,
		m:       m,
		root:    root,
		mapping: make([]int, len(p.atoms)),
		used:    make([]bool, m.NumAtoms()),
		visit:   visit,
	}
}

// extend maps query atom k and everything after it. It returns false once
// the visitor asks to stop.
func (s *search) extend(k int) bool {
	if k == len(s.p.atoms) {
		return s.visit(s.mapping)
	}
	for _, c := range s.candidates(k) {
		if s.used[c] || !s.feasible(k, c) {
			continue
		}
		s.mapping[k] = c
		s.used[c] = true
		more := s.extend(k + 1)
		s.used[c] = false
		if !more {
			return false
		}
	}
	return true
}

func (s *search) candidates(k int) []int {
	if par := s.p.parent[k]; par >= 0 {
		return s.m.Neighbors(s.mapping[par])
	}
	if k == 0 && s.root >= 0 {
		if s.root >= s.m.NumAtoms() {
			return nil
		}
		return []int{s.root}
	}
	all := make([]int, s.m.NumAtoms())
	for i := range all {
		all[i] = i
	}
	return all
}

func (s *search) feasible(k, c int) bool {
	if !s.p.atoms[k].matchAtom(s.m, c) {
		return false
	}
	for _, e := range s.p.adj[k] {
		if e.atom >= k {
			continue
		}
		b, ok := s.m.BondIndex(c, s.mapping[e.atom])
		if !ok || !s.p.bonds[e.bond].expr.matchBond(s.m, b) {
			return false
		}
	}
	return true
}

func atomSetKey(mapping []int) string {
	sorted := append([]int(nil), mapping...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, a := range sorted {
		parts[i] = strconv.Itoa(a)
	}
	return strings.Join(parts, ",")
}
