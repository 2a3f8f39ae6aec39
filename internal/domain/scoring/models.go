package scoring

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/metaborank/metaborank/pkg/errors"
)

// ModelProvider resolves a rule subset to its probability model and applies
// it.  PredictProba returns the positive-class (site of metabolism)
// probability for a descriptor vector.
type ModelProvider interface {
	PredictProba(subset string, descriptors []float64) (float64, error)
}

// MissingModelPolicy controls what happens when a rule subset has no model.
type MissingModelPolicy string

const (
	// MissingModelZero scores sites of unmodeled subsets as zero and keeps
	// the pipeline running.  This is the default.
	MissingModelZero MissingModelPolicy = "zero"

	// MissingModelError fails the prediction instead.
	MissingModelError MissingModelPolicy = "error"
)

// Valid reports whether the policy is one of the known values.
func (p MissingModelPolicy) Valid() bool {
	return p == MissingModelZero || p == MissingModelError
}

// logisticModel is a binary logistic regression in the stored form:
// probability = sigmoid(intercept + coefficients · descriptors).
type logisticModel struct {
	Subset       string    `json:"subset"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

func (m *logisticModel) predict(descriptors []float64) (float64, error) {
	if len(descriptors) != len(m.Coefficients) {
		return 0, errors.New(errors.CodeModelDimension, "descriptor width does not match model").
			WithDetail(m.Subset)
	}
	z := m.Intercept
	for i, c := range m.Coefficients {
		z += c * descriptors[i]
	}
	return 1.0 / (1.0 + math.Exp(-z)), nil
}

// LocalModelProvider loads one JSON model per rule subset from a directory.
// Model files are named <subset>.json.  The provider is immutable after
// construction and safe for concurrent use.
type LocalModelProvider struct {
	models map[string]*logisticModel
	policy MissingModelPolicy
}

// NewLocalModelProvider reads every *.json model under dir.
func NewLocalModelProvider(dir string, policy MissingModelPolicy) (*LocalModelProvider, error) {
	if !policy.Valid() {
		policy = MissingModelZero
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeModelLoadFailed, "failed to list model directory").
			WithDetail(dir)
	}
	sort.Strings(matches)

	p := &LocalModelProvider{models: map[string]*logisticModel{}, policy: policy}
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeModelLoadFailed, "failed to read model file").
				WithDetail(path)
		}
		var model logisticModel
		if err := json.Unmarshal(data, &model); err != nil {
			return nil, errors.Wrap(err, errors.CodeModelLoadFailed, "model file is not valid JSON").
				WithDetail(path)
		}
		if model.Subset == "" {
			model.Subset = strings.TrimSuffix(filepath.Base(path), ".json")
		}
		if len(model.Coefficients) == 0 {
			return nil, errors.New(errors.CodeModelLoadFailed, "model has no coefficients").
				WithDetail(path)
		}
		p.models[model.Subset] = &model
	}
	return p, nil
}

// Subsets returns the subsets with a loaded model, sorted.
func (p *LocalModelProvider) Subsets() []string {
	out := make([]string, 0, len(p.models))
	for s := range p.models {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// PredictProba implements ModelProvider.
func (p *LocalModelProvider) PredictProba(subset string, descriptors []float64) (float64, error) {
	model, ok := p.models[subset]
	if !ok {
		if p.policy == MissingModelError {
			return 0, errors.New(errors.CodeModelMissing, "no model for rule subset").
				WithDetail(subset)
		}
		return 0, nil
	}
	return model.predict(descriptors)
}

// StaticModelProvider serves fixed probabilities per subset.  It backs unit
// tests and calibration experiments where model behavior must be exact.
type StaticModelProvider struct {
	Probabilities map[string]float64
	Policy        MissingModelPolicy
}

// PredictProba implements ModelProvider.
func (p *StaticModelProvider) PredictProba(subset string, _ []float64) (float64, error) {
	prob, ok := p.Probabilities[subset]
	if !ok {
		if p.Policy == MissingModelError {
			return 0, errors.New(errors.CodeModelMissing, "no model for rule subset").
				WithDetail(subset)
		}
		return 0, nil
	}
	return prob, nil
}
