package prediction

import (
	"fmt"

	"github.com/phasecast/phasecast/internal/artifact"
)

// Ensemble blends two independently trained classifiers that share one
// ordered class list and one feature order. Purely functional given the
// loaded model state.
type Ensemble struct {
	classes   []string
	weight    float64
	primary   artifact.Scorer
	secondary artifact.Scorer
}

// NewEnsemble wires the two scorers together with the configured blend
// weight: final = weight*primary + (1-weight)*secondary.
func NewEnsemble(classes []string, weight float64, primary, secondary artifact.Scorer) *Ensemble {
	return &Ensemble{
		classes:   classes,
		weight:    weight,
		primary:   primary,
		secondary: secondary,
	}
}

// BlendResult carries the blended distribution, each model's own
// distribution, and the arg-max class index.
type BlendResult struct {
	Final     []float64
	Primary   []float64
	Secondary []float64

	PredictedIndex int
}

// Blend scores the feature vector with both models and combines them. Any
// scorer failure aborts the request; nothing downstream (including the
// history write) may happen on a partial score.
func (e *Ensemble) Blend(features []float64) (*BlendResult, error) {
	pa, err := e.primary.Score(features)
	if err != nil {
		return nil, fmt.Errorf("primary model: %w", err)
	}
	pb, err := e.secondary.Score(features)
	if err != nil {
		return nil, fmt.Errorf("secondary model: %w", err)
	}
	if len(pa) != len(e.classes) || len(pb) != len(e.classes) {
		return nil, fmt.Errorf("ensemble: probability length mismatch (%d/%d vs %d classes)", len(pa), len(pb), len(e.classes))
	}

	final := make([]float64, len(e.classes))
	for i := range final {
		final[i] = e.weight*pa[i] + (1-e.weight)*pb[i]
	}

	return &BlendResult{
		Final:          final,
		Primary:        pa,
		Secondary:      pb,
		PredictedIndex: argmax(final),
	}, nil
}

// Classes returns the canonical class order.
func (e *Ensemble) Classes() []string {
	return e.classes
}

// argmax returns the index of the largest value. Ties resolve to the lowest
// index in the canonical class order; that is a deliberate policy, not an
// accident of iteration order.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

// distribution maps a probability vector onto the class list.
func distribution(classes []string, probs []float64) map[string]float64 {
	m := make(map[string]float64, len(classes))
	for i, c := range classes {
		m[c] = probs[i]
	}
	return m
}
