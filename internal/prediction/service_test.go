package prediction

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/phasecast/phasecast/internal/artifact"
	"github.com/phasecast/phasecast/internal/models"
	"github.com/phasecast/phasecast/internal/storage"
)

// captureScorer records the feature vector it was last scored with.
type captureScorer struct {
	probs []float64
	last  []float64
}

func (c *captureScorer) Score(features []float64) ([]float64, error) {
	c.last = append([]float64(nil), features...)
	return c.probs, nil
}

func testBundle(primary, secondary artifact.Scorer, features []string) *artifact.Bundle {
	return &artifact.Bundle{
		Metadata: &artifact.Metadata{
			Features:       features,
			Classes:        []string{"Menstrual", "Follicular", "Fertility", "Luteal"},
			EnsembleWeight: 0.6,
			ConfidenceThresholds: map[string]float64{
				"Menstrual":  0.50,
				"Follicular": 0.50,
				"Fertility":  0.55,
				"Luteal":     0.60,
			},
		},
		Primary:   primary,
		Secondary: secondary,
	}
}

func testStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), 30)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// recentDate yields dates inside the retention window, newest at offset 0.
func recentDate(daysAgo int) string {
	return time.Now().UTC().AddDate(0, 0, -daysAgo).Format("2006-01-02")
}

func serviceReading(estrogen float64, lh *float64) models.Reading {
	return models.Reading{
		RMSSDMean:       0.1,
		WristTempMean:   0.2,
		Estrogen:        estrogen,
		PDG:             -0.1,
		LH:              lh,
		StressScoreMean: 0,
		OxygenRatioMean: 0,
		DayInStudy:      1,
	}
}

func TestService_Predict_ColdStart(t *testing.T) {
	store := testStore(t)
	probs := []float64{0.1, 0.7, 0.1, 0.1}
	svc := NewService(store, testBundle(&stubScorer{probs: probs}, &stubScorer{probs: probs}, []string{"estrogen", "lh"}))

	lh := 0.3
	result, err := svc.Predict("alice", recentDate(0), serviceReading(0.5, &lh))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if result.PredictedPhase != "Follicular" {
		t.Errorf("PredictedPhase = %q, want Follicular", result.PredictedPhase)
	}
	if math.Abs(result.Confidence-0.7) > 1e-12 {
		t.Errorf("Confidence = %v, want 0.7", result.Confidence)
	}
	if !result.IsConfident {
		t.Error("IsConfident = false, want true for 0.7 over a 0.50 threshold")
	}
	if result.Analytics.HasHistory {
		t.Error("HasHistory = true on first prediction, want false")
	}
	if result.Analytics.HistoryDays != 0 {
		t.Errorf("HistoryDays = %d, want 0", result.Analytics.HistoryDays)
	}
	if result.Analytics.LHEstimated {
		t.Error("LHEstimated = true for a measured lh value")
	}
	if len(result.AllProbabilities) != 4 {
		t.Errorf("AllProbabilities has %d classes, want 4", len(result.AllProbabilities))
	}

	n, err := store.Count("alice")
	if err != nil || n != 1 {
		t.Errorf("stored entries = %d (err %v), want 1", n, err)
	}
}

func TestService_Predict_EstimatesMissingLH(t *testing.T) {
	store := testStore(t)
	probs := []float64{0.25, 0.25, 0.25, 0.25}
	svc := NewService(store, testBundle(&stubScorer{probs: probs}, &stubScorer{probs: probs}, []string{"lh"}))

	result, err := svc.Predict("bob", recentDate(0), serviceReading(0.5, nil))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if !result.Analytics.LHEstimated {
		t.Error("LHEstimated = false for a missing lh value")
	}
	if result.Analytics.LHEstimationConfidence >= 1 {
		t.Errorf("LHEstimationConfidence = %v, want below 1", result.Analytics.LHEstimationConfidence)
	}

	// The estimate must also be persisted with the entry.
	history, err := store.GetRecent("bob", 1)
	if err != nil || len(history) != 1 {
		t.Fatalf("GetRecent = %d entries (err %v), want 1", len(history), err)
	}
	if history[0].LH == nil {
		t.Error("stored entry has nil lh, want the estimate")
	}
}

func TestService_Predict_WarmHistoryFeedsFeatures(t *testing.T) {
	store := testStore(t)
	primary := &captureScorer{probs: []float64{0.7, 0.1, 0.1, 0.1}}
	secondary := &stubScorer{probs: []float64{0.7, 0.1, 0.1, 0.1}}
	features := []string{"estrogen", "estrogen_roll3", "estrogen_lag1"}
	svc := NewService(store, testBundle(primary, secondary, features))

	// 14 prior days, oldest first, estrogen 0.1 .. 1.4.
	for i := 14; i >= 1; i-- {
		entry := models.HistoryEntry{
			UserID:  "carol",
			Date:    recentDate(i),
			Reading: serviceReading(0.1*float64(15-i), nil),
		}
		if err := store.AppendOrUpdate("carol", entry.Date, entry); err != nil {
			t.Fatalf("seeding history: %v", err)
		}
	}

	lh := 0.2
	result, err := svc.Predict("carol", recentDate(0), serviceReading(2.0, &lh))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if !result.Analytics.HasHistory {
		t.Error("HasHistory = false with 14 stored days")
	}
	if result.Analytics.HistoryDays != 14 {
		t.Errorf("HistoryDays = %d, want 14", result.Analytics.HistoryDays)
	}

	if len(primary.last) != len(features) {
		t.Fatalf("scored vector length = %d, want %d", len(primary.last), len(features))
	}
	if primary.last[0] != 2.0 {
		t.Errorf("estrogen feature = %v, want 2.0", primary.last[0])
	}
	// roll3 is the mean of the three most recent stored values (1.2, 1.3, 1.4).
	if math.Abs(primary.last[1]-1.3) > 1e-9 {
		t.Errorf("estrogen_roll3 = %v, want 1.3", primary.last[1])
	}
	if math.Abs(primary.last[2]-1.4) > 1e-9 {
		t.Errorf("estrogen_lag1 = %v, want 1.4", primary.last[2])
	}
}

func TestService_Predict_ScorerFailureWritesNothing(t *testing.T) {
	store := testStore(t)
	fail := errors.New("corrupt weights")
	svc := NewService(store, testBundle(&stubScorer{err: fail}, &stubScorer{probs: []float64{1, 0, 0, 0}}, []string{"lh"}))

	lh := 0.1
	if _, err := svc.Predict("dave", recentDate(0), serviceReading(0.2, &lh)); !errors.Is(err, fail) {
		t.Fatalf("Predict error = %v, want wrapped %v", err, fail)
	}

	n, err := store.Count("dave")
	if err != nil || n != 0 {
		t.Errorf("stored entries after failed scoring = %d (err %v), want 0", n, err)
	}
}

func TestService_Predict_Validation(t *testing.T) {
	store := testStore(t)
	probs := []float64{0.25, 0.25, 0.25, 0.25}
	svc := NewService(store, testBundle(&stubScorer{probs: probs}, &stubScorer{probs: probs}, []string{"lh"}))

	lh := 0.1
	good := serviceReading(0.2, &lh)
	bad := good
	bad.Estrogen = math.NaN()

	tests := []struct {
		name    string
		userID  string
		date    string
		reading models.Reading
	}{
		{"empty user id", "", recentDate(0), good},
		{"malformed date", "eve", "02-03-2024", good},
		{"non-finite value", "eve", recentDate(0), bad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Predict(tt.userID, tt.date, tt.reading)
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}

	if n, _ := store.Count("eve"); n != 0 {
		t.Errorf("stored entries after rejected requests = %d, want 0", n)
	}
}

func TestService_HistoryDefaultsDays(t *testing.T) {
	store := testStore(t)
	probs := []float64{0.25, 0.25, 0.25, 0.25}
	svc := NewService(store, testBundle(&stubScorer{probs: probs}, &stubScorer{probs: probs}, []string{"lh"}))

	for i := 0; i < 5; i++ {
		entry := models.HistoryEntry{
			UserID:  "fay",
			Date:    recentDate(i),
			Reading: serviceReading(0.1, nil),
		}
		if err := store.AppendOrUpdate("fay", entry.Date, entry); err != nil {
			t.Fatalf("seeding history: %v", err)
		}
	}

	history, err := svc.History("fay", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 5 {
		t.Errorf("history length = %d, want 5", len(history))
	}

	history, err = svc.History("fay", 2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2", len(history))
	}
	if history[0].Date >= history[1].Date {
		t.Errorf("history not ascending: %s then %s", history[0].Date, history[1].Date)
	}
}
