package scoring

import (
	"math"

	"github.com/metaborank/metaborank/internal/domain/reaction"
	"github.com/metaborank/metaborank/internal/domain/som"
	"github.com/metaborank/metaborank/internal/infrastructure/monitoring/logging"
)

// Scorer assigns a probability score to concrete reactions.  Per reaction it
// renders one view per labeled educt site, vectorizes each, queries the
// subset's model, weights by rule priority and keeps the maximum.
//
// A reaction whose educt carries no site labels scores NaN: the reaction
// happened on paper but no atom can be credited, and downstream ranking
// sorts NaN behind every real score.  A site whose descriptor vector cannot
// be computed contributes zero.
type Scorer struct {
	vectorizer *Vectorizer
	models     ModelProvider
	log        logging.Logger
}

// NewScorer builds a Scorer.
func NewScorer(vectorizer *Vectorizer, models ModelProvider, log logging.Logger) *Scorer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Scorer{
		vectorizer: vectorizer,
		models:     models,
		log:        log.Named("scorer"),
	}
}

// Score computes the reaction's score.
func (s *Scorer) Score(cr *reaction.ConcreteReaction) (float64, error) {
	views := som.ExtractSiteViews(cr.Educt)
	if len(views) == 0 {
		return math.NaN(), nil
	}

	weight := cr.Rule.Weight()
	best := math.Inf(-1)
	for _, view := range views {
		vec := s.vectorizer.TransformOne(view.SMILES)
		var prob float64
		if HasNaN(vec) {
			s.log.Debug("site view could not be vectorized",
				logging.String("rule", cr.Rule.Name),
				logging.Int("label", view.Label),
			)
			prob = 0
		} else {
			var err error
			prob, err = s.models.PredictProba(cr.Rule.Subset, vec)
			if err != nil {
				return 0, err
			}
		}
		if score := prob * weight; score > best {
			best = score
		}
	}
	return best, nil
}
