// Package prediction is the application service that drives the full
// pipeline: enumerate concrete reactions, score them, aggregate per-product
// results and run batches of molecules concurrently.
package prediction

import (
	"context"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/metaborank/metaborank/internal/chem"
	"github.com/metaborank/metaborank/internal/domain/reaction"
	"github.com/metaborank/metaborank/internal/domain/scoring"
	"github.com/metaborank/metaborank/internal/infrastructure/monitoring"
	"github.com/metaborank/metaborank/internal/infrastructure/monitoring/logging"
	"github.com/metaborank/metaborank/pkg/errors"
)

// minHeavyAtoms is the smallest product size worth reporting; anything
// below is a leaving group, not a metabolite.
const minHeavyAtoms = 3

// Prediction is one scored metabolite candidate.
type Prediction struct {
	Reaction *reaction.ConcreteReaction
	Score    float64
}

// Row flattens a prediction into the output schema.
type Row struct {
	ParentIdentity     string  `json:"parent_identity"`
	ProductIdentity    string  `json:"product_identity"`
	RuleName           string  `json:"rule_name"`
	RuleSubset         string  `json:"rule_subset"`
	SiteRepresentation string  `json:"site_representation"`
	Score              float64 `json:"score"`
}

// ToRow renders the prediction.
func (p *Prediction) ToRow() Row {
	return Row{
		ParentIdentity:     p.Reaction.EductSMILES(true),
		ProductIdentity:    p.Reaction.ProductSMILES(true),
		RuleName:           p.Reaction.Rule.Name,
		RuleSubset:         p.Reaction.Rule.Subset,
		SiteRepresentation: p.Reaction.EductSMILES(false),
		Score:              p.Score,
	}
}

// Service wires the pipeline stages together.  It is safe for concurrent
// use.
type Service struct {
	enumerator *reaction.Enumerator
	scorer     *scoring.Scorer
	log        logging.Logger
	metrics    *monitoring.PipelineMetrics
	workers    int
}

// NewService builds the pipeline service.  workers limits batch parallelism;
// values below 1 use one worker per CPU.  metrics may be nil.
func NewService(
	enumerator *reaction.Enumerator,
	scorer *scoring.Scorer,
	log logging.Logger,
	metrics *monitoring.PipelineMetrics,
	workers int,
) *Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Service{
		enumerator: enumerator,
		scorer:     scorer,
		log:        log.Named("prediction"),
		metrics:    metrics,
		workers:    workers,
	}
}

// PredictOne runs the pipeline for a single molecule and returns its
// aggregated predictions, ranked by descending score.
func (s *Service) PredictOne(ctx context.Context, educt *chem.Mol) ([]Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reactions := s.enumerator.Enumerate(educt)
	s.metrics.ReactionsEnumerated(len(reactions))

	scored := make([]Prediction, 0, len(reactions))
	for _, cr := range reactions {
		score, err := s.scorer.Score(cr)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodePredictionFailed, "failed to score reaction").
				WithDetail("rule=" + cr.Rule.Name)
		}
		scored = append(scored, Prediction{Reaction: cr, Score: score})
	}

	out := aggregate(scored)
	s.metrics.PredictionsEmitted(len(out))
	return out, nil
}

// aggregate drops NaN-scored predictions (reactions with no annotated site
// contribute nothing to the output), groups the rest by label-stripped
// product identity keeping the best-scoring representative per product,
// drops products below the heavy atom floor and ranks by descending score.
//
// NaN removal happens before grouping so a scoreless route to a product can
// never hold the slot against a scored one.  Replacement requires a strictly
// greater score, so the earliest prediction wins ties.
func aggregate(scored []Prediction) []Prediction {
	best := map[string]int{}
	var out []Prediction
	for _, p := range scored {
		if math.IsNaN(p.Score) {
			continue
		}
		identity := p.Reaction.ProductSMILES(true)
		if idx, ok := best[identity]; ok {
			if out[idx].Score < p.Score {
				out[idx] = p
			}
			continue
		}
		best[identity] = len(out)
		out = append(out, p)
	}

	filtered := out[:0]
	for _, p := range out {
		if p.Reaction.Product.NumHeavyAtoms() >= minHeavyAtoms {
			filtered = append(filtered, p)
		}
	}
	out = filtered

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Batch execution
// ─────────────────────────────────────────────────────────────────────────────

// MoleculeInput is one batch entry: an identifier and a SMILES string.
type MoleculeInput struct {
	Name   string
	SMILES string
}

// FailedMolecule records an input that could not be processed.
type FailedMolecule struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	SMILES string `json:"smiles"`
	Reason string `json:"reason"`
}

// BatchResult is the outcome of a batch run.  Rows are ordered by input
// position first, score second, so output is reproducible regardless of
// worker scheduling.
type BatchResult struct {
	RunID     string
	Rows      []Row
	Failed    []FailedMolecule
	Molecules int
	Took      time.Duration
}

// PredictBatch runs the pipeline over the inputs with bounded parallelism.
// A molecule that fails to parse or score is recorded in Failed and does not
// abort the batch; context cancellation does.
func (s *Service) PredictBatch(ctx context.Context, inputs []MoleculeInput) (*BatchResult, error) {
	runID := uuid.NewString()
	log := s.log.With(logging.String("run_id", runID))
	log.Info("starting batch run",
		logging.Int("molecules", len(inputs)),
		logging.Int("workers", s.workers),
	)
	s.metrics.BatchStarted(len(inputs))
	start := time.Now()

	type moleculeOutcome struct {
		rows   []Row
		failed *FailedMolecule
	}
	outcomes := make([]moleculeOutcome, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			begin := time.Now()
			rows, err := s.predictInput(gctx, input)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.metrics.MoleculeProcessed("failed", time.Since(begin))
				log.Warn("molecule failed",
					logging.String("name", input.Name),
					logging.Err(err),
				)
				outcomes[i] = moleculeOutcome{failed: &FailedMolecule{
					Index:  i,
					Name:   input.Name,
					SMILES: input.SMILES,
					Reason: err.Error(),
				}}
				return nil
			}
			s.metrics.MoleculeProcessed("ok", time.Since(begin))
			outcomes[i] = moleculeOutcome{rows: rows}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.CodeBatchAborted, "batch run aborted")
	}

	result := &BatchResult{
		RunID:     runID,
		Molecules: len(inputs),
		Took:      time.Since(start),
	}
	for _, oc := range outcomes {
		result.Rows = append(result.Rows, oc.rows...)
		if oc.failed != nil {
			result.Failed = append(result.Failed, *oc.failed)
		}
	}

	log.Info("batch run finished",
		logging.Int("predictions", len(result.Rows)),
		logging.Int("failed", len(result.Failed)),
		logging.Duration("took", result.Took),
	)
	return result, nil
}

func (s *Service) predictInput(ctx context.Context, input MoleculeInput) ([]Row, error) {
	educt, err := chem.ParseSMILES(input.SMILES)
	if err != nil {
		return nil, err
	}
	predictions, err := s.PredictOne(ctx, educt)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(predictions))
	for i := range predictions {
		rows = append(rows, predictions[i].ToRow())
	}
	return rows, nil
}
