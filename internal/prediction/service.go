package prediction

import (
	"fmt"
	"time"

	"github.com/phasecast/phasecast/internal/artifact"
	"github.com/phasecast/phasecast/internal/models"
	"github.com/phasecast/phasecast/internal/storage"
)

// Window sizes, in entries, for the store queries behind each operation.
const (
	historyWindow   = 21 // feature engineering looks this far back
	analyticsWindow = 30 // cycle statistics window
	exportWindow    = 90 // full user export

	// DefaultHistoryDays is the default slice size for the history call.
	DefaultHistoryDays = 21
)

// Service composes the serving engine into the user-facing operations:
// predict, analytics, history, export and delete. It is constructed once at
// startup with the loaded model bundle and passed by reference into request
// handlers; it holds no per-request state of its own.
type Service struct {
	store    storage.Store
	bundle   *artifact.Bundle
	engineer *FeatureEngineer
	ensemble *Ensemble
	gate     *ConfidenceGate
}

// NewService creates a Service over the given store and model bundle.
func NewService(store storage.Store, bundle *artifact.Bundle) *Service {
	meta := bundle.Metadata
	return &Service{
		store:    store,
		bundle:   bundle,
		engineer: NewFeatureEngineer(meta.Features),
		ensemble: NewEnsemble(meta.Classes, meta.EnsembleWeight, bundle.Primary, bundle.Secondary),
		gate:     NewConfidenceGate(meta.ConfidenceThresholds),
	}
}

// Metadata exposes the loaded model contract (for the info endpoint).
func (s *Service) Metadata() *artifact.Metadata {
	return s.bundle.Metadata
}

// Predict runs the full pipeline for one user-day: validate, resolve LH,
// fetch history, engineer features, score, gate, persist, and attach
// analytics. The history write happens only after scoring succeeded; a
// prediction is never partially persisted.
func (s *Service) Predict(userID, date string, reading models.Reading) (*models.PredictionResult, error) {
	if userID == "" {
		return nil, &models.ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if err := models.ValidateDate(date); err != nil {
		return nil, err
	}
	if err := reading.Validate(); err != nil {
		return nil, err
	}

	// Resolve LH, estimating from the other signals when unmeasured. The
	// substitution is reported back to the caller, never hidden.
	lhEstimated := false
	lhConfidence := 1.0
	if !reading.HasLH() {
		estimate, conf := EstimateLH(reading.Estrogen, reading.PDG, reading.DayInStudy, reading.WristTempMean)
		reading.LH = &estimate
		lhConfidence = conf
		lhEstimated = true
	}

	history, err := s.store.GetRecent(userID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}

	features := s.engineer.Vector(reading, history)

	blend, err := s.ensemble.Blend(features)
	if err != nil {
		return nil, err
	}

	classes := s.ensemble.Classes()
	phase := classes[blend.PredictedIndex]
	confidence := blend.Final[blend.PredictedIndex]
	threshold, confident, recommendation := s.gate.Evaluate(phase, confidence)

	entry := models.HistoryEntry{
		UserID:         userID,
		Date:           date,
		Reading:        reading,
		PredictedPhase: &phase,
		Confidence:     &confidence,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.AppendOrUpdate(userID, date, entry); err != nil {
		return nil, fmt.Errorf("saving prediction: %w", err)
	}

	stats, err := s.Analytics(userID)
	if err != nil {
		return nil, fmt.Errorf("computing analytics: %w", err)
	}

	return &models.PredictionResult{
		PredictedPhase:      phase,
		Confidence:          confidence,
		ConfidenceThreshold: threshold,
		IsConfident:         confident,
		AllProbabilities:    distribution(classes, blend.Final),
		PerModelProbabilities: map[string]map[string]float64{
			"primary":   distribution(classes, blend.Primary),
			"secondary": distribution(classes, blend.Secondary),
		},
		Recommendation: recommendation,
		Analytics: models.PredictionAnalytics{
			LHEstimated:            lhEstimated,
			LHEstimationConfidence: lhConfidence,
			HasHistory:             len(history) >= coldStartThreshold,
			HistoryDays:            len(history),
			CycleStats:             stats,
		},
	}, nil
}

// Analytics recomputes the user's cycle statistics from the stored timeline.
// Insufficient history yields an empty result, never an error.
func (s *Service) Analytics(userID string) (models.CycleStats, error) {
	history, err := s.store.GetRecent(userID, analyticsWindow)
	if err != nil {
		return models.CycleStats{}, fmt.Errorf("fetching history: %w", err)
	}
	return ComputeCycleStats(history), nil
}

// History returns the user's timeline slice, ascending, at most days entries.
func (s *Service) History(userID string, days int) ([]models.HistoryEntry, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	return s.store.GetRecent(userID, days)
}

// Export returns the user's full retained timeline for data portability.
func (s *Service) Export(userID string) ([]models.HistoryEntry, error) {
	return s.store.GetRecent(userID, exportWindow)
}

// DeleteUser removes every stored entry for the user and reports the count.
func (s *Service) DeleteUser(userID string) (int64, error) {
	return s.store.DeleteUser(userID)
}

// Users lists the user ids currently present in the store.
func (s *Service) Users() ([]string, error) {
	return s.store.ListUsers()
}
