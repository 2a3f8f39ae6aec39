package chem

import "sort"

// BondOrder encodes the bond types the engine distinguishes.
type BondOrder int

const (
	Single   BondOrder = 1
	Double   BondOrder = 2
	Triple   BondOrder = 3
	Aromatic BondOrder = 4
)

// valenceContribution returns the contribution of a bond to the valence sum
// of each endpoint.  Aromatic bonds contribute 1.5, expressed in half-units
// so integer arithmetic stays exact (single = 2, aromatic = 3).
func (o BondOrder) valenceContribution() int {
	switch o {
	case Aromatic:
		return 3
	default:
		return int(o) * 2
	}
}

// Atom is one node of the molecular graph.  Atoms are addressed by index
// within their Mol; indices are stable under copy but not under deletion.
type Atom struct {
	// AtomicNum is the element (1 = hydrogen, 6 = carbon, ...).
	AtomicNum int

	// Charge is the formal charge.
	Charge int

	// Aromatic marks atoms in aromatic rings (SMILES lowercase forms).
	Aromatic bool

	// ImplicitH is the number of implied hydrogens not present as explicit
	// atoms.  AddHs materializes them; RemoveHs folds explicit ones back in.
	ImplicitH int

	// MapNum is the site label (0 = unlabeled, positive = labeled).  At most
	// one atom of a molecule holds a given label at a time.
	MapNum int

	// EductIdx records, on product atoms created by a Transform, the index of
	// the educt atom this atom derives from; -1 when the atom was added by
	// the transformation (or the molecule is not a reaction product).
	EductIdx int

	// TemplateMap records, on product atoms, the atom-map number of the
	// reactant-template atom that matched this atom's educt ancestor
	// (0 when the ancestor was outside the matched substructure).
	TemplateMap int
}

// IsHydrogen reports whether the atom is an explicit hydrogen.
func (a *Atom) IsHydrogen() bool { return a.AtomicNum == H }

// Bond is one edge of the molecular graph.
type Bond struct {
	A, B  int
	Order BondOrder
}

// Other returns the endpoint of the bond that is not idx.
func (b *Bond) Other(idx int) int {
	if b.A == idx {
		return b.B
	}
	return b.A
}

// Mol is a mutable molecular graph.  The zero value is an empty molecule.
//
// Mutation is confined by convention to the enumeration and annotation
// stages, which operate on private copies; everything downstream treats a
// Mol as read-only.
type Mol struct {
	atoms []Atom
	bonds []Bond

	// adj[i] lists bond indices incident to atom i.
	adj [][]int
}

// NewMol returns an empty molecule.
func NewMol() *Mol {
	return &Mol{}
}

// NewAtom returns an Atom for the given element with no reaction provenance.
func NewAtom(atomicNum int) Atom {
	return Atom{AtomicNum: atomicNum, EductIdx: -1}
}

// NumAtoms returns the total atom count, explicit hydrogens included.
func (m *Mol) NumAtoms() int { return len(m.atoms) }

// NumBonds returns the bond count.
func (m *Mol) NumBonds() int { return len(m.bonds) }

// Atom returns a pointer to the atom at idx.  The pointer stays valid until
// the next AddAtom call.
func (m *Mol) Atom(idx int) *Atom { return &m.atoms[idx] }

// Bond returns a pointer to the bond at idx.
func (m *Mol) Bond(idx int) *Bond { return &m.bonds[idx] }

// AddAtom appends an atom and returns its index.  Callers that are not
// building reaction products must pass EductIdx: -1 (NewAtom does).
func (m *Mol) AddAtom(a Atom) int {
	m.atoms = append(m.atoms, a)
	m.adj = append(m.adj, nil)
	return len(m.atoms) - 1
}

// AddBond appends a bond between atoms a and b and returns its index.
// Duplicate bonds are not checked; parsers guarantee uniqueness.
func (m *Mol) AddBond(a, b int, order BondOrder) int {
	m.bonds = append(m.bonds, Bond{A: a, B: b, Order: order})
	idx := len(m.bonds) - 1
	m.adj[a] = append(m.adj[a], idx)
	m.adj[b] = append(m.adj[b], idx)
	return idx
}

// BondBetween returns the bond connecting atoms a and b, or nil.
func (m *Mol) BondBetween(a, b int) *Bond {
	for _, bi := range m.adj[a] {
		if m.bonds[bi].Other(a) == b {
			return &m.bonds[bi]
		}
	}
	return nil
}

// Neighbors returns the atom indices adjacent to idx.
func (m *Mol) Neighbors(idx int) []int {
	out := make([]int, 0, len(m.adj[idx]))
	for _, bi := range m.adj[idx] {
		out = append(out, m.bonds[bi].Other(idx))
	}
	return out
}

// Degree returns the number of explicit neighbors of idx.
func (m *Mol) Degree(idx int) int { return len(m.adj[idx]) }

// Copy returns a deep copy of the molecule.
func (m *Mol) Copy() *Mol {
	c := &Mol{
		atoms: make([]Atom, len(m.atoms)),
		bonds: make([]Bond, len(m.bonds)),
		adj:   make([][]int, len(m.adj)),
	}
	copy(c.atoms, m.atoms)
	copy(c.bonds, m.bonds)
	for i, bs := range m.adj {
		c.adj[i] = append([]int(nil), bs...)
	}
	return c
}

// NumHeavyAtoms returns the count of non-hydrogen atoms.
func (m *Mol) NumHeavyAtoms() int {
	n := 0
	for i := range m.atoms {
		if !m.atoms[i].IsHydrogen() {
			n++
		}
	}
	return n
}

// TotalHCount returns the hydrogen count of an atom: implicit hydrogens plus
// explicit hydrogen neighbors.
func (m *Mol) TotalHCount(idx int) int {
	n := m.atoms[idx].ImplicitH
	for _, nb := range m.Neighbors(idx) {
		if m.atoms[nb].IsHydrogen() {
			n++
		}
	}
	return n
}

// valenceSum returns twice the bond-order sum of an atom (half-unit
// arithmetic keeps aromatic contributions exact).
func (m *Mol) valenceSum(idx int) int {
	sum := 0
	for _, bi := range m.adj[idx] {
		sum += m.bonds[bi].Order.valenceContribution()
	}
	return sum
}

// ─────────────────────────────────────────────────────────────────────────────
// Site labels
// ─────────────────────────────────────────────────────────────────────────────

// SetLabel assigns a site label to the atom at idx.  Any other atom holding
// the same label is cleared first, preserving the one-atom-per-label
// invariant.
func (m *Mol) SetLabel(idx, label int) {
	if label != 0 {
		for i := range m.atoms {
			if m.atoms[i].MapNum == label {
				m.atoms[i].MapNum = 0
			}
		}
	}
	m.atoms[idx].MapNum = label
}

// Labels returns the distinct positive site labels present, ascending.
func (m *Mol) Labels() []int {
	seen := map[int]bool{}
	var out []int
	for i := range m.atoms {
		if l := m.atoms[i].MapNum; l > 0 && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out
}

// AtomWithLabel returns the index of the atom carrying the given label,
// or -1 when absent.
func (m *Mol) AtomWithLabel(label int) int {
	for i := range m.atoms {
		if m.atoms[i].MapNum == label {
			return i
		}
	}
	return -1
}

// ClearLabels removes every site label.
func (m *Mol) ClearLabels() {
	for i := range m.atoms {
		m.atoms[i].MapNum = 0
	}
}

// WithoutLabels returns a label-free copy, used when computing structural
// identity (labels must never influence dedup).
func (m *Mol) WithoutLabels() *Mol {
	c := m.Copy()
	c.ClearLabels()
	return c
}

// ─────────────────────────────────────────────────────────────────────────────
// Explicit hydrogens
// ─────────────────────────────────────────────────────────────────────────────

// AddHs returns a copy in which every implicit hydrogen has been materialized
// as an explicit hydrogen atom bonded by a single bond.  Transformation
// patterns that reference hydrogen match against this form.
func (m *Mol) AddHs() *Mol {
	c := m.Copy()
	heavy := c.NumAtoms()
	for i := 0; i < heavy; i++ {
		n := c.atoms[i].ImplicitH
		c.atoms[i].ImplicitH = 0
		for k := 0; k < n; k++ {
			h := c.AddAtom(Atom{AtomicNum: H, EductIdx: -1})
			c.AddBond(i, h, Single)
		}
	}
	return c
}

// RemoveHs returns a copy in which explicit hydrogens bonded to heavy atoms
// are folded back into the neighbor's implicit count.  Hydrogens that carry a
// site label, are charged, or have no heavy neighbor (e.g. [H][H]) are kept.
// Provenance markers survive on the remaining atoms.
func (m *Mol) RemoveHs() *Mol {
	keep := make([]bool, len(m.atoms))
	extraH := make([]int, len(m.atoms))
	for i := range m.atoms {
		a := &m.atoms[i]
		if !a.IsHydrogen() || a.MapNum != 0 || a.Charge != 0 {
			keep[i] = true
			continue
		}
		nbs := m.Neighbors(i)
		if len(nbs) != 1 || m.atoms[nbs[0]].IsHydrogen() {
			keep[i] = true
			continue
		}
		extraH[nbs[0]]++
	}

	c := &Mol{}
	remap := make([]int, len(m.atoms))
	for i := range m.atoms {
		remap[i] = -1
	}
	for i := range m.atoms {
		if !keep[i] {
			continue
		}
		a := m.atoms[i]
		a.ImplicitH += extraH[i]
		remap[i] = c.AddAtom(a)
	}
	for _, b := range m.bonds {
		if remap[b.A] >= 0 && remap[b.B] >= 0 {
			c.AddBond(remap[b.A], remap[b.B], b.Order)
		}
	}
	return c
}
