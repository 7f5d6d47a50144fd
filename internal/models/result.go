// Package models contains data structures used throughout the application
package models

// PredictionResult is the response for a single predict call.
type PredictionResult struct {
	PredictedPhase      string             `json:"predicted_phase"`
	Confidence          float64            `json:"confidence"`
	ConfidenceThreshold float64            `json:"confidence_threshold"`
	IsConfident         bool               `json:"is_confident"`
	AllProbabilities    map[string]float64 `json:"all_probabilities"`

	// PerModelProbabilities holds each classifier's own distribution, keyed
	// "primary" and "secondary" to match the ensemble weight orientation.
	PerModelProbabilities map[string]map[string]float64 `json:"per_model_probabilities"`

	Recommendation string              `json:"recommendation"`
	Analytics      PredictionAnalytics `json:"analytics"`
}

// PredictionAnalytics reports how the prediction was produced alongside the
// user's current cycle statistics.
type PredictionAnalytics struct {
	// LHEstimated is true when the input LH was absent and a heuristic
	// substitute was used. The substitution is always reported, never hidden.
	LHEstimated            bool    `json:"lh_estimated"`
	LHEstimationConfidence float64 `json:"lh_estimation_confidence"`

	HasHistory  bool `json:"has_history"`
	HistoryDays int  `json:"history_days"`

	CycleStats
}

// CycleStats is derived from the stored timeline on every request and never
// persisted. Fields are additive: a nil field means its precondition (enough
// history, enough menstrual markers) was not met.
type CycleStats struct {
	DaysSinceLastMenstrual *int     `json:"days_since_menstruation,omitempty"`
	LastMenstrualDate      *string  `json:"last_menstrual_date,omitempty"`
	AverageCycleLength     *float64 `json:"average_cycle_length,omitempty"`
	CycleStd               *float64 `json:"cycle_std,omitempty"`
	IsRegular              *bool    `json:"is_regular,omitempty"`
	EstrogenTrend          string   `json:"estrogen_trend,omitempty"`
}

// IsEmpty reports whether no statistic could be computed.
func (s CycleStats) IsEmpty() bool {
	return s.DaysSinceLastMenstrual == nil &&
		s.LastMenstrualDate == nil &&
		s.AverageCycleLength == nil &&
		s.CycleStd == nil &&
		s.IsRegular == nil &&
		s.EstrogenTrend == ""
}
