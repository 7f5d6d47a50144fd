// Package models contains data structures used throughout the application
package models

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the calendar-date format used for history keys.
const DateLayout = "2006-01-02"

// Reading is a single day's biometric and hormone measurements for one user.
// All values are normalized by the ingestion pipeline before they reach us.
// LH is a pointer because it is the one input that may be unmeasured; when it
// is nil (or NaN) the serving engine substitutes an estimate.
type Reading struct {
	RMSSDMean       float64  `json:"rmssd_mean"`
	WristTempMean   float64  `json:"wrist_temp_mean"`
	Estrogen        float64  `json:"estrogen"`
	PDG             float64  `json:"pdg"`
	LH              *float64 `json:"lh"`
	StressScoreMean float64  `json:"stress_score_mean"`
	OxygenRatioMean float64  `json:"oxygen_ratio_mean"`
	DayInStudy      float64  `json:"day_in_study"`
}

// TrackedColumns are the reading fields that receive rolling-window, lag and
// delta features during feature engineering.
var TrackedColumns = []string{
	"wrist_temp_mean",
	"rmssd_mean",
	"stress_score_mean",
	"lh",
	"estrogen",
	"pdg",
}

// HasLH reports whether the reading carries a usable LH measurement.
func (r *Reading) HasLH() bool {
	return r.LH != nil && !math.IsNaN(*r.LH)
}

// Column returns the reading's value for a tracked column name. LH must be
// resolved before Column is called for "lh".
func (r *Reading) Column(name string) float64 {
	switch name {
	case "wrist_temp_mean":
		return r.WristTempMean
	case "rmssd_mean":
		return r.RMSSDMean
	case "stress_score_mean":
		return r.StressScoreMean
	case "lh":
		if r.LH != nil {
			return *r.LH
		}
		return 0
	case "estrogen":
		return r.Estrogen
	case "pdg":
		return r.PDG
	case "oxygen_ratio_mean":
		return r.OxygenRatioMean
	case "day_in_study":
		return r.DayInStudy
	}
	return 0
}

// Validate checks the required numeric fields. LH is exempt: a missing or NaN
// LH is handled by estimation, not rejection.
func (r *Reading) Validate() error {
	required := map[string]float64{
		"rmssd_mean":        r.RMSSDMean,
		"wrist_temp_mean":   r.WristTempMean,
		"estrogen":          r.Estrogen,
		"pdg":               r.PDG,
		"stress_score_mean": r.StressScoreMean,
		"oxygen_ratio_mean": r.OxygenRatioMean,
		"day_in_study":      r.DayInStudy,
	}
	for name, v := range required {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Field: name, Reason: "must be a finite number"}
		}
	}
	return nil
}

// ValidationError is returned when a request fails input validation. The HTTP
// layer maps it to a 400 response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateDate checks a calendar-date string against DateLayout.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return nil
}

// HistoryEntry is a persisted reading plus the prediction it produced, keyed
// by (user_id, date). At most one entry exists per key; writes are upserts.
type HistoryEntry struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Reading

	PredictedPhase *string   `json:"predicted_phase"`
	Confidence     *float64  `json:"confidence"`
	CreatedAt      time.Time `json:"created_at"`
}
