package molecule

import (
	"sort"
)

// CanonicalRanker assigns every atom a canonical rank, a permutation of
// 0..n-1 that depends only on the molecular graph and atom state, never on
// input atom order (up to symmetry-equivalent atoms).
type CanonicalRanker struct{}

type atomInvariant [8]int

func less(a, b atomInvariant) bool {
	for k := range a {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return false
}

// Rank returns the canonical rank of each atom, indexed by atom.
func (CanonicalRanker) Rank(m *Molecule) []int {
	n := m.NumAtoms()
	if n == 0 {
		return nil
	}

	inv := make([]atomInvariant, n)
	for i := 0; i < n; i++ {
		a := m.atoms[i]
		arom, ring := 0, 0
		if a.Aromatic {
			arom = 1
		}
		if m.IsInRing(i) {
			ring = 1
		}
		inv[i] = atomInvariant{
			a.AtomicNum,
			a.Isotope,
			m.Degree(i),
			m.TotalNumHs(i, false),
			a.FormalCharge,
			arom,
			ring,
			a.MapNum,
		}
	}
	ranks := denseRanks(n, func(x, y int) bool { return less(inv[x], inv[y]) })
	ranks = refine(m, ranks)

	for {
		classes := countClasses(ranks)
		if classes == n {
			return ranks
		}
		ranks = breakTie(ranks)
		ranks = refine(m, ranks)
	}
}

// denseRanks sorts atom indices with lessFn and numbers the equivalence
// classes 0, 1, 2, ...
func denseRanks(n int, lessFn func(x, y int) bool) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return lessFn(order[a], order[b]) })
	ranks := make([]int, n)
	r := 0
	for k, idx := range order {
		if k > 0 && lessFn(order[k-1], idx) {
			r++
		}
		ranks[idx] = r
	}
	return ranks
}

// refine splits classes by the sorted multiset of (neighbour rank, bond
// order) until the partition is stable.
func refine(m *Molecule, ranks []int) []int {
	n := len(ranks)
	for {
		sigs := make([][]int, n)
		for i := 0; i < n; i++ {
			sig := make([]int, 0, len(m.adj[i]))
			for _, a := range m.adj[i] {
				sig = append(sig, ranks[a.atom]*8+int(m.bonds[a.bond].Order))
			}
			sort.Ints(sig)
			sigs[i] = sig
		}
		next := denseRanks(n, func(x, y int) bool {
			if ranks[x] != ranks[y] {
				return ranks[x] < ranks[y]
			}
			return lessInts(sigs[x], sigs[y])
		})
		if countClasses(next) == countClasses(ranks) {
			return next
		}
		ranks = next
	}
}

func lessInts(a, b []int) bool {
	for k := 0; k < len(a) && k < len(b); k++ {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return len(a) < len(b)
}

func countClasses(ranks []int) int {
	seen := make(map[int]struct{}, len(ranks))
	for _, r := range ranks {
		seen[r] = struct{}{}
	}
	return len(seen)
}

// breakTie takes the lowest tied class and moves its lowest-index member
// in front of the others.
func breakTie(ranks []int) []int {
	size := make(map[int]int)
	for _, r := range ranks {
		size[r]++
	}
	tied := -1
	for r, c := range size {
		if c > 1 && (tied < 0 || r < tied) {
			tied = r
		}
	}
	chosen := -1
	for i, r := range ranks {
		if r == tied {
			chosen = i
			break
		}
	}
	out := make([]int, len(ranks))
	for i, r := range ranks {
		out[i] = 2 * r
		if r == tied && i != chosen {
			out[i]++
		}
	}
	return denseRanks(len(out), func(x, y int) bool { return out[x] < out[y] })
}
