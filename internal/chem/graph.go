package chem

import "sort"

// ComponentIndices returns the connected components of the molecule as slices
// of atom indices.  Atoms within a component and components themselves are
// ordered by ascending lowest atom index.
func (m *Mol) ComponentIndices() [][]int {
	n := m.NumAtoms()
	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}
	var out [][]int
	for i := 0; i < n; i++ {
		if comp[i] >= 0 {
			continue
		}
		id := len(out)
		var members []int
		stack := []int{i}
		comp[i] = id
		for len(stack) > 0 {
			at := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			members = append(members, at)
			for _, nb := range m.Neighbors(at) {
				if comp[nb] < 0 {
					comp[nb] = id
					stack = append(stack, nb)
				}
			}
		}
		sort.Ints(members)
		out = append(out, members)
	}
	return out
}

// Fragments splits the molecule into its connected components, each as an
// independent molecule.  Atom provenance (EductIdx, TemplateMap) and site
// labels survive the split.
func (m *Mol) Fragments() []*Mol {
	comps := m.ComponentIndices()
	if len(comps) == 1 {
		return []*Mol{m.Copy()}
	}
	out := make([]*Mol, 0, len(comps))
	for _, members := range comps {
		frag := NewMol()
		remap := make(map[int]int, len(members))
		for _, i := range members {
			remap[i] = frag.AddAtom(m.atoms[i])
		}
		for _, b := range m.bonds {
			a, okA := remap[b.A]
			c, okB := remap[b.B]
			if okA && okB {
				frag.AddBond(a, c, b.Order)
			}
		}
		out = append(out, frag)
	}
	return out
}

// LargestFragment returns the component with the most heavy atoms.  Ties go
// to the earlier component so the choice is deterministic.
func (m *Mol) LargestFragment() *Mol {
	frags := m.Fragments()
	best := frags[0]
	for _, f := range frags[1:] {
		if f.NumHeavyAtoms() > best.NumHeavyAtoms() {
			best = f
		}
	}
	return best
}

// DistanceMatrix returns pairwise topological distances (bond counts along
// shortest paths).  Unreachable pairs, i.e. atoms in different fragments, are
// -1.
func (m *Mol) DistanceMatrix() [][]int {
	n := m.NumAtoms()
	dist := make([][]int, n)
	for src := 0; src < n; src++ {
		row := make([]int, n)
		for i := range row {
			row[i] = -1
		}
		row[src] = 0
		queue := []int{src}
		for len(queue) > 0 {
			at := queue[0]
			queue = queue[1:]
			for _, nb := range m.Neighbors(at) {
				if row[nb] < 0 {
					row[nb] = row[at] + 1
					queue = append(queue, nb)
				}
			}
		}
		dist[src] = row
	}
	return dist
}
