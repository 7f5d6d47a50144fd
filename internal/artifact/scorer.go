package artifact

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Scorer produces a probability distribution over the bundle's class list for
// one engineered feature vector. Implementations are stateless after load and
// safe to invoke concurrently.
type Scorer interface {
	Score(features []float64) ([]float64, error)
}

// LinearScorer is a softmax-linear classifier. The training pipeline exports
// both production models to this form (weights per class over the engineered
// feature space plus a bias term), which keeps inference dependency-free and
// bit-reproducible.
type LinearScorer struct {
	weights [][]float64
	bias    []float64
}

type scorerFile struct {
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

// NewLinearScorer builds a scorer from explicit coefficients, validating
// dimensions against the expected feature and class counts.
func NewLinearScorer(weights [][]float64, bias []float64, numFeatures, numClasses int) (*LinearScorer, error) {
	if len(weights) != numClasses {
		return nil, fmt.Errorf("scorer: %d weight rows, want %d classes", len(weights), numClasses)
	}
	if len(bias) != numClasses {
		return nil, fmt.Errorf("scorer: %d bias terms, want %d classes", len(bias), numClasses)
	}
	for i, row := range weights {
		if len(row) != numFeatures {
			return nil, fmt.Errorf("scorer: class %d has %d weights, want %d features", i, len(row), numFeatures)
		}
	}
	return &LinearScorer{weights: weights, bias: bias}, nil
}

// LoadScorer reads a scorer artifact file and checks its shape.
func LoadScorer(path string, numFeatures, numClasses int) (*LinearScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scorer: %w", err)
	}

	var f scorerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scorer: %w", err)
	}

	return NewLinearScorer(f.Weights, f.Bias, numFeatures, numClasses)
}

// Score computes softmax(Wx + b). The max-logit shift keeps the exponentials
// in range for extreme inputs.
func (s *LinearScorer) Score(features []float64) ([]float64, error) {
	if len(features) != len(s.weights[0]) {
		return nil, fmt.Errorf("scorer: got %d features, want %d", len(features), len(s.weights[0]))
	}

	logits := make([]float64, len(s.weights))
	maxLogit := math.Inf(-1)
	for c, row := range s.weights {
		sum := s.bias[c]
		for i, w := range row {
			sum += w * features[i]
		}
		logits[c] = sum
		if sum > maxLogit {
			maxLogit = sum
		}
	}

	var total float64
	probs := make([]float64, len(logits))
	for c, l := range logits {
		probs[c] = math.Exp(l - maxLogit)
		total += probs[c]
	}
	for c := range probs {
		probs[c] /= total
	}

	return probs, nil
}
