// Package reaction turns abstract biotransformation rules into concrete
// educt→product reactions for a given molecule.
package reaction

import (
	"github.com/metaborank/metaborank/internal/chem"
	"github.com/metaborank/metaborank/internal/domain/rules"
)

// ConcreteReaction is one rule application to one educt, annotated with site
// labels.  Educt and Product are stored with implicit hydrogens; product atom
// provenance refers to the educt's atom numbering.
//
// Reactions split out of a multi-fragment product share the same Educt
// instance and Rule; the molecules must be treated as read-only after
// enumeration.
type ConcreteReaction struct {
	Rule    *rules.Rule
	Educt   *chem.Mol
	Product *chem.Mol
}

// EductSMILES renders the educt.  With clean set, site labels are stripped.
func (r *ConcreteReaction) EductSMILES(clean bool) string {
	if clean {
		return chem.CanonicalIdentity(r.Educt)
	}
	return chem.Canonical(r.Educt)
}

// ProductSMILES renders the product.  With clean set, site labels are
// stripped, which is the form used for deduplication and reporting.
func (r *ConcreteReaction) ProductSMILES(clean bool) string {
	if clean {
		return chem.CanonicalIdentity(r.Product)
	}
	return chem.Canonical(r.Product)
}
