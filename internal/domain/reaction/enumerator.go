package reaction

import (
	"github.com/metaborank/metaborank/internal/chem"
	"github.com/metaborank/metaborank/internal/domain/rules"
	"github.com/metaborank/metaborank/internal/domain/som"
	"github.com/metaborank/metaborank/internal/infrastructure/monitoring/logging"
)

// Enumerator applies every rule of a table to educt molecules.  It is
// immutable after construction and safe for concurrent use; each call works
// on private molecule copies.
type Enumerator struct {
	table     *rules.Table
	annotator som.Annotator
	log       logging.Logger
}

// NewEnumerator builds an Enumerator.  strictSites selects the strict
// site-annotation policy.
func NewEnumerator(table *rules.Table, strictSites bool, log logging.Logger) *Enumerator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Enumerator{
		table:     table,
		annotator: som.Annotator{Strict: strictSites},
		log:       log.Named("enumerator"),
	}
}

// Enumerate returns every concrete reaction the rule table produces for the
// educt, annotated with site labels and split into one reaction per product
// fragment.  The input molecule is not modified.
//
// Within a single rule, products with the same label-stripped canonical
// identity are collapsed to the first occurrence.  Products that fail
// valence sanitization are dropped silently apart from a debug log entry,
// mirroring the discard-and-continue contract of rule application.
func (e *Enumerator) Enumerate(educt *chem.Mol) []*ConcreteReaction {
	// Normalize so product provenance indices line up with the stored educt:
	// explicit input hydrogens are folded first, then re-materialized, which
	// keeps heavy-atom numbering identical between both forms.
	normalized := educt.RemoveHs()
	eductH := normalized.AddHs()

	var concrete []*ConcreteReaction
	for _, rule := range e.table.Rules() {
		concrete = append(concrete, e.applyRule(rule, normalized, eductH)...)
	}

	for _, cr := range concrete {
		e.annotator.Annotate(cr.Educt, cr.Product)
	}

	var out []*ConcreteReaction
	for _, cr := range concrete {
		out = append(out, splitProducts(cr)...)
	}
	return out
}

func (e *Enumerator) applyRule(rule *rules.Rule, educt, eductH *chem.Mol) []*ConcreteReaction {
	products := rule.Transform.Apply(eductH)
	if len(products) == 0 {
		return nil
	}

	seen := map[string]bool{}
	var out []*ConcreteReaction
	for _, product := range products {
		if err := product.Sanitize(); err != nil {
			e.log.Debug("discarding unsanitizable product",
				logging.String("rule", rule.Name),
				logging.Err(err),
			)
			continue
		}
		normalized := product.RemoveHs()
		identity := chem.CanonicalIdentity(normalized)
		if seen[identity] {
			continue
		}
		seen[identity] = true

		out = append(out, &ConcreteReaction{
			Rule:    rule,
			Educt:   educt.Copy(),
			Product: normalized,
		})
	}
	return out
}

// splitProducts separates a multi-fragment product into one reaction per
// fragment.  The fragments keep their labels and provenance and share the
// educt and rule of the combined reaction.
func splitProducts(cr *ConcreteReaction) []*ConcreteReaction {
	frags := cr.Product.Fragments()
	if len(frags) == 1 {
		return []*ConcreteReaction{cr}
	}
	out := make([]*ConcreteReaction, 0, len(frags))
	for _, frag := range frags {
		out = append(out, &ConcreteReaction{
			Rule:    cr.Rule,
			Educt:   cr.Educt,
			Product: frag,
		})
	}
	return out
}
