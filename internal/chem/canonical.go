package chem

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Canonical returns a canonical SMILES for the molecule.  Atoms carrying a
// positive MapNum are written in bracket form with their map, so labeled site
// views round-trip through the parser.  The string depends only on the graph,
// never on atom insertion order.
func Canonical(m *Mol) string {
	ranks := canonicalRanks(m)
	frags := m.ComponentIndices()

	parts := make([]string, 0, len(frags))
	for _, frag := range frags {
		parts = append(parts, emitFragment(m, frag, ranks))
	}
	sort.Strings(parts)
	return strings.Join(parts, ".")
}

// CanonicalIdentity returns the canonical SMILES of the label-stripped
// molecule.  This is the structural identity used for candidate
// deduplication and result grouping.
func CanonicalIdentity(m *Mol) string {
	return Canonical(m.WithoutLabels())
}

// ─────────────────────────────────────────────────────────────────────────────
// Canonical ranking
// ─────────────────────────────────────────────────────────────────────────────

// canonicalRanks assigns each atom a rank in [0, n) such that symmetry-
// equivalent environments receive equal ranks during refinement and ties are
// then broken deterministically.  Morgan-style: seed with local invariants,
// refine by neighbor rank multisets until stable, then split the lowest
// remaining tie class and re-refine.
func canonicalRanks(m *Mol) []int {
	n := m.NumAtoms()
	inv := make([]string, n)
	for i := 0; i < n; i++ {
		a := m.Atom(i)
		inv[i] = fmt.Sprintf("%d|%d|%d|%d|%t",
			a.AtomicNum, a.Charge, m.Degree(i), m.TotalHCount(i), a.Aromatic)
	}
	ranks := ranksFromKeys(inv)
	ranks = refineRanks(m, ranks)

	for countDistinct(ranks) < n {
		// Split the lowest tied class at its lowest atom index.  The members
		// of a surviving tie class are symmetry-equivalent in practice, so
		// any deterministic choice yields the same string.
		class, member := -1, -1
		for i := 0; i < n; i++ {
			if class >= 0 && ranks[i] != class {
				continue
			}
			dup := false
			for j := 0; j < n; j++ {
				if j != i && ranks[j] == ranks[i] {
					dup = true
					break
				}
			}
			if dup && (class < 0 || ranks[i] < class) {
				class, member = ranks[i], i
			}
		}
		for i := 0; i < n; i++ {
			ranks[i] *= 2
		}
		ranks[member]--
		ranks = refineRanks(m, ranks)
	}
	return normalizeRanks(ranks)
}

func refineRanks(m *Mol, ranks []int) []int {
	n := m.NumAtoms()
	ranks = normalizeRanks(ranks)
	for {
		keys := make([]string, n)
		for i := 0; i < n; i++ {
			var nb []string
			for _, bi := range m.adj[i] {
				b := m.Bond(bi)
				nb = append(nb, fmt.Sprintf("%d:%d", b.Order, ranks[b.Other(i)]))
			}
			sort.Strings(nb)
			keys[i] = strconv.Itoa(ranks[i]) + "/" + strings.Join(nb, ",")
		}
		next := ranksFromKeys(keys)
		if countDistinct(next) == countDistinct(ranks) {
			return next
		}
		ranks = next
	}
}

// ranksFromKeys maps each distinct key to its sort position.
func ranksFromKeys(keys []string) []int {
	uniq := append([]string(nil), keys...)
	sort.Strings(uniq)
	pos := map[string]int{}
	for _, k := range uniq {
		if _, ok := pos[k]; !ok {
			pos[k] = len(pos)
		}
	}
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = pos[k]
	}
	return out
}

func normalizeRanks(ranks []int) []int {
	keys := make([]string, len(ranks))
	for i, r := range ranks {
		keys[i] = fmt.Sprintf("%012d", r)
	}
	return ranksFromKeys(keys)
}

func countDistinct(ranks []int) int {
	seen := map[int]bool{}
	for _, r := range ranks {
		seen[r] = true
	}
	return len(seen)
}

// ─────────────────────────────────────────────────────────────────────────────
// Emission
// ─────────────────────────────────────────────────────────────────────────────

type smilesWriter struct {
	m     *Mol
	ranks []int

	sb      strings.Builder
	visited []bool

	// ringBond[bondIdx] holds the closure number for back edges.
	ringBond map[int]int
	nextRing int
}

func emitFragment(m *Mol, frag []int, ranks []int) string {
	root := frag[0]
	for _, i := range frag {
		if ranks[i] < ranks[root] {
			root = i
		}
	}
	w := &smilesWriter{
		m:        m,
		ranks:    ranks,
		visited:  make([]bool, m.NumAtoms()),
		ringBond: map[int]int{},
		nextRing: 1,
	}
	w.markRingBonds(root, -1)
	for i := range w.visited {
		w.visited[i] = false
	}
	w.walk(root, -1)
	return w.sb.String()
}

// markRingBonds runs the same DFS as emission and records back edges, so
// closure numbers are assigned in emission order.  The bond the DFS arrived
// by is a tree edge and must not be reclassified when the child re-examines
// its parent.
func (w *smilesWriter) markRingBonds(at, fromBond int) {
	w.visited[at] = true
	for _, bi := range w.orderedBonds(at) {
		if bi == fromBond {
			continue
		}
		other := w.m.Bond(bi).Other(at)
		if w.visited[other] {
			if _, ok := w.ringBond[bi]; !ok {
				w.ringBond[bi] = w.nextRing
				w.nextRing++
			}
			continue
		}
		w.markRingBonds(other, bi)
	}
}

func (w *smilesWriter) walk(at, fromBond int) {
	w.visited[at] = true
	w.sb.WriteString(w.atomToken(at))

	// Ring closure digits attach to both endpoints of each back edge.
	for _, bi := range w.orderedBonds(at) {
		if num, ok := w.ringBond[bi]; ok && bi != fromBond {
			w.sb.WriteString(w.bondToken(bi))
			w.sb.WriteString(ringDigit(num))
		}
	}

	var children []int
	for _, bi := range w.orderedBonds(at) {
		if bi == fromBond {
			continue
		}
		if _, ok := w.ringBond[bi]; ok {
			continue
		}
		children = append(children, bi)
	}
	for i, bi := range children {
		other := w.m.Bond(bi).Other(at)
		if i < len(children)-1 {
			w.sb.WriteByte('(')
			w.sb.WriteString(w.bondToken(bi))
			w.walk(other, bi)
			w.sb.WriteByte(')')
		} else {
			w.sb.WriteString(w.bondToken(bi))
			w.walk(other, bi)
		}
	}
}

// orderedBonds returns the bonds of an atom ordered by neighbor rank, which
// pins the traversal order.
func (w *smilesWriter) orderedBonds(at int) []int {
	bonds := append([]int(nil), w.m.adj[at]...)
	sort.Slice(bonds, func(i, j int) bool {
		ri := w.ranks[w.m.Bond(bonds[i]).Other(at)]
		rj := w.ranks[w.m.Bond(bonds[j]).Other(at)]
		return ri < rj
	})
	return bonds
}

func ringDigit(n int) string {
	if n < 10 {
		return strconv.Itoa(n)
	}
	return "%" + fmt.Sprintf("%02d", n)
}

func (w *smilesWriter) bondToken(bi int) string {
	b := w.m.Bond(bi)
	bothAromatic := w.m.Atom(b.A).Aromatic && w.m.Atom(b.B).Aromatic
	switch b.Order {
	case Double:
		return "="
	case Triple:
		return "#"
	case Aromatic:
		if bothAromatic {
			return ""
		}
		return ":"
	default:
		if bothAromatic {
			// Explicit single between aromatic atoms (biphenyl linkage).
			return "-"
		}
		return ""
	}
}

// atomToken writes an atom either bare (organic subset, neutral, unlabeled,
// and the parser would perceive exactly the stored hydrogen count) or in
// bracket form.
func (w *smilesWriter) atomToken(at int) string {
	a := w.m.Atom(at)
	sym := SymbolFor(a.AtomicNum)
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}

	if organicSubset[a.AtomicNum] && a.Charge == 0 && a.MapNum == 0 {
		perceived := 0
		if a.Aromatic {
			if a.AtomicNum == C && w.m.Degree(at) == 2 {
				perceived = 1
			}
		} else {
			perceived = perceivedAliphaticH(a.AtomicNum, 0, w.m.valenceSum(at))
		}
		if perceived == a.ImplicitH {
			return sym
		}
	}

	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(sym)
	switch {
	case a.ImplicitH == 1:
		sb.WriteByte('H')
	case a.ImplicitH > 1:
		sb.WriteByte('H')
		sb.WriteString(strconv.Itoa(a.ImplicitH))
	}
	switch {
	case a.Charge > 0:
		sb.WriteByte('+')
		if a.Charge > 1 {
			sb.WriteString(strconv.Itoa(a.Charge))
		}
	case a.Charge < 0:
		sb.WriteByte('-')
		if a.Charge < -1 {
			sb.WriteString(strconv.Itoa(-a.Charge))
		}
	}
	if a.MapNum > 0 {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(a.MapNum))
	}
	sb.WriteByte(']')
	return sb.String()
}
