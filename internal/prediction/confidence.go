package prediction

import "fmt"

// highConfidenceMargin is how far above a class threshold the blended score
// must land to earn the high-confidence recommendation.
const highConfidenceMargin = 0.15

// ConfidenceGate maps a predicted class and its blended probability to a
// binary confidence flag and a tiered recommendation message.
type ConfidenceGate struct {
	thresholds map[string]float64
}

// NewConfidenceGate creates a gate from the per-class threshold table.
func NewConfidenceGate(thresholds map[string]float64) *ConfidenceGate {
	return &ConfidenceGate{thresholds: thresholds}
}

// Evaluate returns the class threshold, whether the score clears it, and the
// recommendation text for the tier the score falls in.
func (g *ConfidenceGate) Evaluate(phase string, score float64) (threshold float64, confident bool, recommendation string) {
	threshold = g.thresholds[phase]
	confident = score >= threshold

	switch {
	case score >= threshold+highConfidenceMargin:
		recommendation = fmt.Sprintf("High confidence - %s phase", phase)
	case score >= threshold:
		recommendation = fmt.Sprintf("Moderate confidence - Likely %s phase", phase)
	default:
		recommendation = fmt.Sprintf("Low confidence - %s phase suggested, manual review recommended", phase)
	}

	return threshold, confident, recommendation
}
