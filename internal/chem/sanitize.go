package chem

import (
	"fmt"

	"github.com/metaborank/metaborank/pkg/errors"
)

// Sanitize validates atom valences after a transformation has rewritten the
// graph.  An atom passes when its total valence (bond-order sum plus implicit
// hydrogens) fits one of the element's admissible states for its charge.
// Elements without a valence model pass unconditionally.
//
// Transformation products that fail sanitization are discarded by the
// enumerator rather than propagated as errors.
func (m *Mol) Sanitize() error {
	for i := range m.atoms {
		a := &m.atoms[i]
		allowed := allowedValences(a.AtomicNum, a.Charge)
		if allowed == nil {
			continue
		}
		if len(allowed) == 0 {
			return valenceError(m, i, "no admissible valence state for charge")
		}
		// Half-unit arithmetic: aromatic bonds contribute 3 per endpoint, a
		// single bond 2.  An aromatic atom is granted one half-unit of slack
		// to absorb the 1.5-order rounding.
		total := m.valenceSum(i) + 2*a.ImplicitH
		limit := 2 * allowed[len(allowed)-1]
		if a.Aromatic {
			limit++
		}
		if total > limit {
			return valenceError(m, i, "valence exceeds admissible states")
		}
	}
	return nil
}

func valenceError(m *Mol, idx int, msg string) error {
	a := m.Atom(idx)
	return errors.New(errors.CodeMoleculeInvalidValence, msg).
		WithDetail(fmt.Sprintf("atom=%d element=%s charge=%d", idx, SymbolFor(a.AtomicNum), a.Charge))
}
