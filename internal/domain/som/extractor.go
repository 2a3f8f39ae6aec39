package som

import (
	"github.com/metaborank/metaborank/internal/chem"
)

// SiteView is a rendering of a labeled molecule reduced to a single site:
// every other label is cleared so the string pins down exactly one atom.
type SiteView struct {
	Label  int
	SMILES string
}

// ExtractSiteViews returns one view per site label present on the molecule,
// in ascending label order.  A molecule without labels yields nil, which the
// scorer turns into a score of NaN.
func ExtractSiteViews(m *chem.Mol) []SiteView {
	labels := m.Labels()
	if len(labels) == 0 {
		return nil
	}
	views := make([]SiteView, 0, len(labels))
	for _, label := range labels {
		single := m.Copy()
		keep := single.AtomWithLabel(label)
		single.ClearLabels()
		single.SetLabel(keep, label)
		views = append(views, SiteView{Label: label, SMILES: chem.Canonical(single)})
	}
	return views
}
