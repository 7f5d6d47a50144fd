package prediction

import (
	"fmt"
	"math"

	"github.com/phasecast/phasecast/internal/models"
)

// coldStartThreshold is the history length below which rolling and lag
// features fall back to the current reading's values.
const coldStartThreshold = 3

var (
	rollWindows = []int{3, 7, 14, 21}
	lagOffsets  = []int{1, 3, 7}
)

// FeatureEngineer turns "today's reading plus recent history" into the fixed
// feature vector the classifiers were trained on. The target feature list
// comes from model metadata; any name the engineering step does not produce
// is zero-filled, and extras are dropped.
type FeatureEngineer struct {
	features []string
}

// NewFeatureEngineer creates an engineer targeting the given feature order.
func NewFeatureEngineer(features []string) *FeatureEngineer {
	return &FeatureEngineer{features: features}
}

// Vector engineers the feature vector for the current reading. The reading's
// LH must already be resolved (measured or estimated). History is the user's
// timeline in chronologically ascending order.
func (fe *FeatureEngineer) Vector(current models.Reading, history []models.HistoryEntry) []float64 {
	produced := fe.engineer(current, history)

	vec := make([]float64, len(fe.features))
	for i, name := range fe.features {
		vec[i] = produced[name] // missing names stay zero
	}
	return vec
}

func (fe *FeatureEngineer) engineer(current models.Reading, history []models.HistoryEntry) map[string]float64 {
	f := make(map[string]float64, 128)

	f["rmssd_mean"] = current.RMSSDMean
	f["wrist_temp_mean"] = current.WristTempMean
	f["estrogen"] = current.Estrogen
	f["pdg"] = current.PDG
	f["lh"] = current.Column("lh")
	f["stress_score_mean"] = current.StressScoreMean
	f["oxygen_ratio_mean"] = current.OxygenRatioMean
	f["day_in_study"] = current.DayInStudy

	// Cyclical encodings of the 28-day cycle and its 14-day harmonic.
	day := current.DayInStudy
	f["cycle_sin_28"] = math.Sin(2 * math.Pi * pymod(day, 28) / 28)
	f["cycle_cos_28"] = math.Cos(2 * math.Pi * pymod(day, 28) / 28)
	f["cycle_sin_14"] = math.Sin(2 * math.Pi * pymod(day, 14) / 14)
	f["cycle_cos_14"] = math.Cos(2 * math.Pi * pymod(day, 14) / 14)

	// Hormone ratios with stabilized denominators.
	lh := current.Column("lh")
	f["estrogen_pdg_ratio"] = current.Estrogen / (math.Abs(current.PDG) + 0.1)
	f["pdg_estrogen_ratio"] = current.PDG / (math.Abs(current.Estrogen) + 0.1)
	f["lh_estrogen_ratio"] = lh / (math.Abs(current.Estrogen) + 0.1)
	f["lh_pdg_ratio"] = lh / (math.Abs(current.PDG) + 0.1)

	f["lh_surge"] = indicator(lh > 0.5)
	f["lh_very_high"] = indicator(lh > 1.0)

	f["hormone_sum"] = lh + current.Estrogen + current.PDG
	f["hormone_product"] = lh * current.Estrogen * current.PDG

	if len(history) >= coldStartThreshold {
		fe.warmFeatures(f, current, history)
	} else {
		fe.coldFeatures(f, current)
	}

	return f
}

// warmFeatures computes rolling, lag, delta and dispersion features from real
// history. Each statistic falls back to the current value (or zero for
// deltas and std) when the column has too few historical values for it.
func (fe *FeatureEngineer) warmFeatures(f map[string]float64, current models.Reading, history []models.HistoryEntry) {
	for _, col := range models.TrackedColumns {
		values := columnValues(history, col)
		cur := current.Column(col)
		n := len(values)

		for _, w := range rollWindows {
			if n >= w {
				f[featName(col, "roll", w)] = mean(values[n-w:])
			} else {
				f[featName(col, "roll", w)] = cur
			}
		}

		for _, lag := range lagOffsets {
			if n >= lag {
				f[featName(col, "lag", lag)] = values[n-lag]
			} else {
				f[featName(col, "lag", lag)] = cur
			}
		}

		if n >= 1 {
			f[col+"_change1"] = cur - values[n-1]
		} else {
			f[col+"_change1"] = 0
		}

		if n >= 3 {
			f[col+"_change3"] = cur - values[n-3]
		} else {
			f[col+"_change3"] = 0
		}

		if n >= 7 {
			f[col+"_std7"] = populationStd(values[n-7:])
		} else {
			f[col+"_std7"] = 0
		}
	}
}

// coldFeatures proxies every rolling and lag feature with the current value
// and zeroes the delta and dispersion features.
func (fe *FeatureEngineer) coldFeatures(f map[string]float64, current models.Reading) {
	for _, col := range models.TrackedColumns {
		cur := current.Column(col)
		for _, w := range rollWindows {
			f[featName(col, "roll", w)] = cur
		}
		for _, lag := range lagOffsets {
			f[featName(col, "lag", lag)] = cur
		}
		f[col+"_change1"] = 0
		f[col+"_change3"] = 0
		f[col+"_std7"] = 0
	}
}

// columnValues collects a column's non-null values from the timeline in
// chronological order. Only LH can be null in stored history; the remaining
// columns are always written by the predict path.
func columnValues(history []models.HistoryEntry, col string) []float64 {
	values := make([]float64, 0, len(history))
	for i := range history {
		if col == "lh" && history[i].LH == nil {
			continue
		}
		values = append(values, history[i].Reading.Column(col))
	}
	return values
}

func featName(col, kind string, n int) string {
	return fmt.Sprintf("%s_%s%d", col, kind, n)
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// populationStd matches numpy's default ddof=0 standard deviation, which is
// what the models were trained against.
func populationStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
