// Package rules defines biotransformation rules and the rule table loaded
// from CSV.  A rule couples a compiled graph transform with the metadata the
// scoring stage needs: the subset that selects the probability model and the
// priority level that weights the final score.
package rules

import (
	"github.com/metaborank/metaborank/internal/chem"
)

// Priority is the empirical likelihood class of a rule.
type Priority string

const (
	PriorityCommon   Priority = "common"
	PriorityUncommon Priority = "uncommon"
)

// Score weights per priority level.  An uncommon rule's predictions are
// dampened to a fifth of a common rule's.
const (
	commonWeight   = 1.0
	uncommonWeight = 0.2
)

// Weight returns the multiplicative score factor for the priority level.
func (p Priority) Weight() float64 {
	if p == PriorityUncommon {
		return uncommonWeight
	}
	return commonWeight
}

// Valid reports whether the priority is one of the two known levels.
func (p Priority) Valid() bool {
	return p == PriorityCommon || p == PriorityUncommon
}

// Rule is one biotransformation rule.  Rules are immutable after loading and
// safe for concurrent use.
type Rule struct {
	// Name identifies the reaction type (e.g. "aromatic hydroxylation").
	Name string

	// SMIRKS is the source text the Transform was compiled from, kept for
	// reporting.
	SMIRKS string

	// Transform is the compiled rewrite.
	Transform *chem.Transform

	// Priority selects the score weight.
	Priority Priority

	// Subset names the rule grouping that selects the probability model.
	Subset string
}

// Weight returns the rule's score factor.
func (r *Rule) Weight() float64 { return r.Priority.Weight() }
