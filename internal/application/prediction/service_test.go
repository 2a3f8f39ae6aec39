package prediction

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaborank/metaborank/internal/chem"
	"github.com/metaborank/metaborank/internal/domain/reaction"
	"github.com/metaborank/metaborank/internal/domain/rules"
	"github.com/metaborank/metaborank/internal/domain/scoring"
	"github.com/metaborank/metaborank/pkg/errors"
)

const header = "SMIRKS,Reaction name,Priority level,Name of rule subset\n"

func newService(t *testing.T, csv string, models scoring.ModelProvider) *Service {
	t.Helper()
	table, err := rules.Load(strings.NewReader(csv))
	require.NoError(t, err)
	enumerator := reaction.NewEnumerator(table, false, nil)
	scorer := scoring.NewScorer(scoring.NewVectorizer(scoring.DefaultRadius), models, nil)
	return NewService(enumerator, scorer, nil, nil, 2)
}

func staticModels(prob float64) scoring.ModelProvider {
	return &scoring.StaticModelProvider{Probabilities: map[string]float64{"cyp": prob}}
}

func TestPredictOneSymmetricDedup(t *testing.T) {
	s := newService(t,
		header+"[c:1][H]>>[c:1]O[H],aromatic hydroxylation,common,cyp\n",
		staticModels(0.5))

	out, err := s.PredictOne(context.Background(), chem.MustParseSMILES("c1ccccc1"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "aromatic hydroxylation", out[0].Reaction.Rule.Name)
	assert.InDelta(t, 0.5, out[0].Score, 1e-12)

	row := out[0].ToRow()
	assert.Equal(t, chem.Canonical(chem.MustParseSMILES("Oc1ccccc1")), row.ProductIdentity)
	assert.Equal(t, chem.Canonical(chem.MustParseSMILES("c1ccccc1")), row.ParentIdentity)
	assert.Contains(t, row.SiteRepresentation, ":1]")
}

func TestPredictOnePriorityWeighting(t *testing.T) {
	// The same product reached by a common and an uncommon rule keeps the
	// common rule's score after aggregation: 0.5 beats 0.5*0.2.
	csv := header +
		"[c:1][H]>>[c:1]O[H],hydroxylation common,common,cyp\n" +
		"[c:1][H]>>[c:1]O[H],hydroxylation uncommon,uncommon,cyp\n"
	s := newService(t, csv, staticModels(0.5))

	out, err := s.PredictOne(context.Background(), chem.MustParseSMILES("c1ccccc1"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "hydroxylation common", out[0].Reaction.Rule.Name)
	assert.InDelta(t, 0.5, out[0].Score, 1e-12)
}

func TestPredictOneSizeFilter(t *testing.T) {
	// Splitting ethanol down the middle leaves only fragments below the
	// three-heavy-atom floor, so nothing is reported.
	s := newService(t,
		header+"[C:1][C:2]>>[C:1].[C:2],homolysis,common,cyp\n",
		staticModels(0.5))

	out, err := s.PredictOne(context.Background(), chem.MustParseSMILES("CCO"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPredictOneRanksDescending(t *testing.T) {
	csv := header +
		"[c:1][H]>>[c:1]O[H],aromatic hydroxylation,common,cyp\n" +
		"[c:2][C:1][H]>>[c:2][C:1]O[H],benzylic hydroxylation,uncommon,cyp\n"
	s := newService(t, csv, staticModels(0.8))

	out, err := s.PredictOne(context.Background(), chem.MustParseSMILES("Cc1ccccc1"))
	require.NoError(t, err)
	require.NotEmpty(t, out)
	for i := 1; i < len(out); i++ {
		assert.False(t, math.IsNaN(out[i].Score))
		assert.True(t, out[i-1].Score >= out[i].Score)
	}
}

func TestPredictOneDeterministic(t *testing.T) {
	csv := header +
		"[C:1][H]>>[C:1]O[H],aliphatic hydroxylation,common,cyp\n" +
		"[c:1][H]>>[c:1]O[H],aromatic hydroxylation,common,cyp\n"
	s := newService(t, csv, staticModels(0.4))

	educt := chem.MustParseSMILES("CCc1ccccc1")
	first, err := s.PredictOne(context.Background(), educt)
	require.NoError(t, err)
	second, err := s.PredictOne(context.Background(), educt)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ToRow(), second[i].ToRow())
	}
}

func TestAggregateIdempotent(t *testing.T) {
	s := newService(t,
		header+"[c:1][H]>>[c:1]O[H],aromatic hydroxylation,common,cyp\n",
		staticModels(0.5))

	out, err := s.PredictOne(context.Background(), chem.MustParseSMILES("Cc1ccccc1"))
	require.NoError(t, err)
	again := aggregate(out)
	require.Equal(t, len(out), len(again))
	for i := range out {
		assert.Equal(t, out[i].ToRow(), again[i].ToRow())
	}
}

func TestAggregateKeepsFirstOnTies(t *testing.T) {
	table, err := rules.Load(strings.NewReader(header +
		"[c:1][H]>>[c:1]O[H],first rule,common,cyp\n" +
		"[c:1][H]>>[c:1]O[H],second rule,common,cyp\n"))
	require.NoError(t, err)
	enumerator := reaction.NewEnumerator(table, false, nil)

	reactions := enumerator.Enumerate(chem.MustParseSMILES("c1ccccc1"))
	require.Len(t, reactions, 2)

	scored := []Prediction{
		{Reaction: reactions[0], Score: 0.5},
		{Reaction: reactions[1], Score: 0.5},
	}
	out := aggregate(scored)
	require.Len(t, out, 1)
	assert.Equal(t, "first rule", out[0].Reaction.Rule.Name)
}

func TestAggregateDropsNaNScores(t *testing.T) {
	table, err := rules.Load(strings.NewReader(header +
		"[c:1][H]>>[c:1]O[H],first rule,common,cyp\n" +
		"[c:1][H]>>[c:1]O[H],second rule,common,cyp\n"))
	require.NoError(t, err)
	enumerator := reaction.NewEnumerator(table, false, nil)

	reactions := enumerator.Enumerate(chem.MustParseSMILES("c1ccccc1"))
	require.Len(t, reactions, 2)

	// A scoreless route must neither appear in the output nor hold the
	// product slot against a scored route to the same product.
	scored := []Prediction{
		{Reaction: reactions[0], Score: math.NaN()},
		{Reaction: reactions[1], Score: 0.25},
	}
	out := aggregate(scored)
	require.Len(t, out, 1)
	assert.Equal(t, "second rule", out[0].Reaction.Rule.Name)
	assert.Equal(t, 0.25, out[0].Score)
}

func TestPredictOneExcludesUnannotatedReactions(t *testing.T) {
	// Under strict annotation an identity rewrite yields zero sites, so its
	// reaction scores NaN and must not reach the output.
	table, err := rules.Load(strings.NewReader(header +
		"[C:1][O:2]>>[C:1][O:2],identity rewrite,common,cyp\n"))
	require.NoError(t, err)
	enumerator := reaction.NewEnumerator(table, true, nil)
	scorer := scoring.NewScorer(scoring.NewVectorizer(scoring.DefaultRadius), staticModels(0.5), nil)
	s := NewService(enumerator, scorer, nil, nil, 2)

	out, err := s.PredictOne(context.Background(), chem.MustParseSMILES("CCCO"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPredictBatch(t *testing.T) {
	s := newService(t,
		header+"[c:1][H]>>[c:1]O[H],aromatic hydroxylation,common,cyp\n",
		staticModels(0.5))

	result, err := s.PredictBatch(context.Background(), []MoleculeInput{
		{Name: "benzene", SMILES: "c1ccccc1"},
		{Name: "broken", SMILES: "C1CC"},
		{Name: "toluene", SMILES: "Cc1ccccc1"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Molecules)

	require.Len(t, result.Failed, 1)
	assert.Equal(t, 1, result.Failed[0].Index)
	assert.Equal(t, "broken", result.Failed[0].Name)
	assert.NotEmpty(t, result.Failed[0].Reason)

	// Rows are grouped by input order: benzene's phenol first, then the
	// toluene products.
	require.NotEmpty(t, result.Rows)
	assert.Equal(t,
		chem.Canonical(chem.MustParseSMILES("c1ccccc1")),
		result.Rows[0].ParentIdentity)
}

func TestPredictBatchHonorsCancellation(t *testing.T) {
	s := newService(t,
		header+"[c:1][H]>>[c:1]O[H],aromatic hydroxylation,common,cyp\n",
		staticModels(0.5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.PredictBatch(ctx, []MoleculeInput{{Name: "benzene", SMILES: "c1ccccc1"}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeBatchAborted))
}

func TestPredictOneScoringErrorPropagates(t *testing.T) {
	s := newService(t,
		header+"[c:1][H]>>[c:1]O[H],aromatic hydroxylation,common,other\n",
		&scoring.StaticModelProvider{Policy: scoring.MissingModelError})

	_, err := s.PredictOne(context.Background(), chem.MustParseSMILES("c1ccccc1"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodePredictionFailed))
}
