// Package scoring computes site-of-metabolism probabilities for concrete
// reactions: a circular-environment descriptor vectorizer, per-subset
// probability models, and the scorer that combines both with rule priority
// weights.
package scoring

import (
	"fmt"
	"math"

	"github.com/metaborank/metaborank/internal/chem"
)

// DefaultRadius is the topological radius of the descriptor environment.
const DefaultRadius = 5

// shellFeatures are the aggregate features computed over the atoms of each
// distance shell around the site atom.
var shellFeatures = []string{
	"count", "carbon", "nitrogen", "oxygen", "sulfur",
	"halogen", "aromatic", "hydrogens", "degree", "charge",
}

// Vectorizer turns a single-site SMILES rendering into a fixed-width
// descriptor vector.  For every topological distance d in [0, Radius] it
// aggregates the atoms exactly d bonds away from the labeled atom.
//
// A rendering that does not contain exactly one labeled atom, or does not
// parse, yields a vector of NaN: the site cannot be described, and the
// scorer maps such vectors to a probability of zero.
type Vectorizer struct {
	radius int
	names  []string
}

// NewVectorizer builds a Vectorizer.  A radius < 1 falls back to
// DefaultRadius.
func NewVectorizer(radius int) *Vectorizer {
	if radius < 1 {
		radius = DefaultRadius
	}
	v := &Vectorizer{radius: radius}
	for d := 0; d <= radius; d++ {
		for _, f := range shellFeatures {
			v.names = append(v.names, fmt.Sprintf("shell%d_%s", d, f))
		}
	}
	return v
}

// FeatureNames returns the descriptor names in vector order.
func (v *Vectorizer) FeatureNames() []string { return v.names }

// FeatureCount returns the vector width.
func (v *Vectorizer) FeatureCount() int { return len(v.names) }

// TransformOne computes the descriptor vector for a single-site SMILES.
func (v *Vectorizer) TransformOne(smiles string) []float64 {
	m, err := chem.ParseSMILES(smiles)
	if err != nil {
		return v.nanVector()
	}
	labels := m.Labels()
	if len(labels) != 1 {
		return v.nanVector()
	}
	site := m.AtomWithLabel(labels[0])

	dist := m.DistanceMatrix()
	out := make([]float64, 0, len(v.names))
	for d := 0; d <= v.radius; d++ {
		var count, nC, nN, nO, nS, nHal, nArom, hSum, degSum, chargeSum float64
		for i := 0; i < m.NumAtoms(); i++ {
			if dist[site][i] != d {
				continue
			}
			a := m.Atom(i)
			count++
			switch a.AtomicNum {
			case chem.C:
				nC++
			case chem.N:
				nN++
			case chem.O:
				nO++
			case chem.S:
				nS++
			case chem.F, chem.Cl, chem.Br, chem.I:
				nHal++
			}
			if a.Aromatic {
				nArom++
			}
			hSum += float64(m.TotalHCount(i))
			degSum += float64(m.Degree(i))
			chargeSum += float64(a.Charge)
		}
		out = append(out, count, nC, nN, nO, nS, nHal, nArom, hSum, degSum, chargeSum)
	}
	return out
}

func (v *Vectorizer) nanVector() []float64 {
	out := make([]float64, len(v.names))
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// HasNaN reports whether any component of the vector is NaN.
func HasNaN(vec []float64) bool {
	for _, x := range vec {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}
