// Package prediction implements the cycle-phase serving engine: LH
// estimation, feature engineering over a user's rolling history, the
// two-model ensemble blend with confidence gating, and cycle analytics.
package prediction

import "math"

// EstimateLH produces a substitute LH value and an estimation confidence when
// the input reading carries no usable measurement. Pure and deterministic.
//
// The heuristic leans on the LH surge peaking mid-cycle (position 0.5 in the
// normalized cycle), rising estrogen, falling PdG, and the temperature shift
// that flips sign at ovulation.
func EstimateLH(estrogen, pdg, dayInCycle, temp float64) (estimate, confidence float64) {
	cyclePosition := pymod(dayInCycle, 1.0)

	dayFactor := 1.0 - math.Abs(cyclePosition-0.5)*2
	estrogenFactor := math.Max(0, estrogen)
	pdgFactor := math.Max(0, -pdg)

	var tempFactor float64
	if cyclePosition < 0.5 {
		tempFactor = math.Max(0, -temp)
	} else {
		tempFactor = math.Max(0, temp)
	}

	raw := 0.4*dayFactor + 0.3*estrogenFactor + 0.2*pdgFactor + 0.1*tempFactor
	estimate = raw*2 - 1
	confidence = (dayFactor + estrogenFactor) / 2

	return estimate, confidence
}

// pymod is the floored modulo: the result always carries the sign of the
// divisor, matching how day-in-cycle positions wrap for negative inputs.
func pymod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}
