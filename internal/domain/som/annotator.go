// Package som labels sites of metabolism on educt/product pairs and renders
// per-site views of the labeled educt for the scoring stage.
package som

import (
	"sort"

	"github.com/metaborank/metaborank/internal/chem"
)

// Annotator writes site-of-metabolism labels onto an educt/product pair in
// place.  The product must carry reaction provenance (EductIdx, TemplateMap)
// whose educt indices refer to the educt's atom numbering.
//
// Two policies exist:
//
//   - loose: every non-hydrogen product atom that matched a mapped template
//     atom is a site, labeled with its template map number.
//   - strict: sites are narrowed by graph distance.  When the reaction
//     removed educt atoms, the surviving matched atoms nearest to any removed
//     atom (measured on the educt) are the sites; otherwise, when the
//     reaction added atoms, the matched atoms nearest to any added atom
//     (measured on the product) are the sites.  All distance ties are kept
//     and labeled with distinct increasing integers starting at 1.
type Annotator struct {
	Strict bool
}

// Annotate labels the pair.  A reaction that neither removed nor added atoms
// yields no strict sites and leaves both molecules unlabeled.
func (a Annotator) Annotate(educt, product *chem.Mol) {
	if a.Strict {
		a.annotateStrict(educt, product)
		return
	}
	a.annotateLoose(educt, product)
}

func (Annotator) annotateLoose(educt, product *chem.Mol) {
	for i := 0; i < product.NumAtoms(); i++ {
		at := product.Atom(i)
		if at.TemplateMap == 0 || at.IsHydrogen() {
			continue
		}
		product.SetLabel(i, at.TemplateMap)
		if at.EductIdx >= 0 && at.EductIdx < educt.NumAtoms() {
			educt.SetLabel(at.EductIdx, at.TemplateMap)
		}
	}
}

func (Annotator) annotateStrict(educt, product *chem.Mol) {
	// involved maps educt atom index → product atom index for every heavy
	// atom the reaction carried over.  A provenance index past the educt's
	// atom count refers to an explicit hydrogen of the H-added form (a rule
	// can map one onto a heavy product atom); such atoms count as added.
	involved := map[int]int{}
	var eductKeys, productVals []int
	for i := 0; i < product.NumAtoms(); i++ {
		at := product.Atom(i)
		if at.EductIdx < 0 || at.EductIdx >= educt.NumAtoms() || at.IsHydrogen() {
			continue
		}
		involved[at.EductIdx] = i
	}
	for e, p := range involved {
		eductKeys = append(eductKeys, e)
		productVals = append(productVals, p)
	}

	var added []int
	for i := 0; i < product.NumAtoms(); i++ {
		if idx := product.Atom(i).EductIdx; idx < 0 || idx >= educt.NumAtoms() {
			added = append(added, i)
		}
	}
	var removed []int
	for i := 0; i < educt.NumAtoms(); i++ {
		if _, ok := involved[i]; !ok {
			removed = append(removed, i)
		}
	}

	var sites []int
	switch {
	case len(removed) > 0:
		for _, e := range closestIndices(educt, removed, eductKeys) {
			sites = append(sites, involved[e])
		}
	case len(added) > 0:
		sites = closestIndices(product, added, productVals)
	}
	if len(sites) == 0 {
		return
	}

	sort.Ints(sites)
	for k, pi := range sites {
		label := k + 1
		product.SetLabel(pi, label)
		educt.SetLabel(product.Atom(pi).EductIdx, label)
	}
}

// closestIndices returns the members of filter whose minimum topological
// distance to any reference atom is smallest.  Ties are all returned.
// Unreachable pairs (separate fragments) count as infinitely far.
func closestIndices(m *chem.Mol, reference, filter []int) []int {
	dist := m.DistanceMatrix()

	const unreachable = int(^uint(0) >> 1)
	minTo := func(at int) int {
		best := unreachable
		for _, ref := range reference {
			if d := dist[at][ref]; d >= 0 && d < best {
				best = d
			}
		}
		return best
	}

	best := unreachable
	perAtom := make([]int, len(filter))
	for i, at := range filter {
		perAtom[i] = minTo(at)
		if perAtom[i] < best {
			best = perAtom[i]
		}
	}
	if best == unreachable {
		return nil
	}

	var out []int
	for i, at := range filter {
		if perAtom[i] == best {
			out = append(out, at)
		}
	}
	return out
}
