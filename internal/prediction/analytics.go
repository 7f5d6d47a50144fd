package prediction

import (
	"math"

	"github.com/sajari/regression"

	"github.com/phasecast/phasecast/internal/models"
)

// MenstrualPhase is the class label that marks the start-of-cycle entries the
// analytics key off.
const MenstrualPhase = "Menstrual"

// minAnalyticsEntries is the history length below which cycle statistics are
// not computed. Insufficient data is a signal, not an error.
const minAnalyticsEntries = 7

// regularityStdLimit is the gap standard deviation (in days) under which a
// cycle counts as regular.
const regularityStdLimit = 3.0

// trendWindow is how many trailing entries feed the hormone trend fit.
const trendWindow = 7

// ComputeCycleStats derives cycle statistics from a user's timeline
// (ascending order, typically the 30 most recent entries). Fields are
// additive: each is set only when its precondition is met, and fewer than
// minAnalyticsEntries entries yields an empty result.
func ComputeCycleStats(history []models.HistoryEntry) models.CycleStats {
	var stats models.CycleStats

	if len(history) < minAnalyticsEntries {
		return stats
	}

	var markers []int
	for i := range history {
		if history[i].PredictedPhase != nil && *history[i].PredictedPhase == MenstrualPhase {
			markers = append(markers, i)
		}
	}

	if len(markers) >= 1 {
		last := markers[len(markers)-1]
		days := len(history) - last - 1
		stats.DaysSinceLastMenstrual = &days
		stats.LastMenstrualDate = &history[last].Date
	}

	if len(markers) >= 2 {
		gaps := make([]float64, len(markers)-1)
		for i := 1; i < len(markers); i++ {
			gaps[i-1] = float64(markers[i] - markers[i-1])
		}
		avg := mean(gaps)
		std := populationStd(gaps)
		regular := std < regularityStdLimit

		stats.AverageCycleLength = &avg
		stats.CycleStd = &std
		stats.IsRegular = &regular
	}

	stats.EstrogenTrend = estrogenTrend(history)

	return stats
}

// estrogenTrend fits a first-degree regression of estrogen against sequence
// index over the last trendWindow entries and reports the slope direction.
// Returns "" when no values are available.
func estrogenTrend(history []models.HistoryEntry) string {
	start := len(history) - trendWindow
	if start < 0 {
		start = 0
	}

	var values []float64
	for _, e := range history[start:] {
		values = append(values, e.Estrogen)
	}
	if len(values) == 0 {
		return ""
	}

	slope := fitSlope(values)
	if slope > 0 {
		return "rising"
	}
	return "falling"
}

// fitSlope regresses values against their indices. An underdetermined fit
// (too few points for the regression) is treated as a zero slope.
func fitSlope(values []float64) float64 {
	r := new(regression.Regression)
	r.SetObserved("estrogen")
	r.SetVar(0, "day")
	for i, v := range values {
		r.Train(regression.DataPoint(v, []float64{float64(i)}))
	}
	if err := r.Run(); err != nil {
		return 0
	}

	slope := r.Coeff(1)
	if math.IsNaN(slope) {
		return 0
	}
	return slope
}
