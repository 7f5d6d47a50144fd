package prediction

import (
	"strings"
	"testing"
)

func TestConfidenceGate_Tiers(t *testing.T) {
	gate := NewConfidenceGate(map[string]float64{
		"Luteal":     0.60,
		"Fertility":  0.55,
		"Follicular": 0.50,
		"Menstrual":  0.50,
	})

	tests := []struct {
		name          string
		phase         string
		score         float64
		wantConfident bool
		wantTier      string
	}{
		{"well above threshold", "Luteal", 0.80, true, "High confidence"},
		{"moderate band", "Luteal", 0.62, true, "Moderate confidence"},
		{"exactly at threshold", "Luteal", 0.60, true, "Moderate confidence"},
		{"exactly at high margin", "Luteal", 0.75, true, "High confidence"},
		{"below threshold", "Luteal", 0.45, false, "Low confidence"},
		{"different class threshold", "Fertility", 0.56, true, "Moderate confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threshold, confident, rec := gate.Evaluate(tt.phase, tt.score)
			if confident != tt.wantConfident {
				t.Errorf("confident = %v, want %v", confident, tt.wantConfident)
			}
			if !strings.HasPrefix(rec, tt.wantTier) {
				t.Errorf("recommendation = %q, want prefix %q", rec, tt.wantTier)
			}
			if !strings.Contains(rec, tt.phase) {
				t.Errorf("recommendation %q does not name phase %s", rec, tt.phase)
			}
			if tt.phase == "Luteal" && threshold != 0.60 {
				t.Errorf("threshold = %v, want 0.60", threshold)
			}
		})
	}
}
