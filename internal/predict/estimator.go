// Package predict defines the estimator seam. The statistical model behind
// it is an external collaborator; the core only depends on the Estimator
// interface and ships a deterministic heuristic default so the service runs
// without a model artifact.
package predict

import "raincast/internal/types"

// Features are the inputs the estimator sees for one observation.
type Features struct {
	TempC       float64
	HumidityPct float64
	PressureHPa float64
	WindKmh     float64
	Location    string
	Mode        types.AdvisoryMode
}

// Estimator produces a rain label and a corrected temperature estimate.
// Implementations must be deterministic for identical inputs and must not
// fail: a degraded estimate beats a failed observation.
type Estimator interface {
	Predict(f Features) (label string, tempC float64)
}

// Rain labels. These are free-text predictions stored on the observation,
// not trust labels.
const (
	LabelRainExpected = "Rain Expected"
	LabelNoRain       = "No Rain"
)

// maxCorrection caps how far the estimate may move from the measured
// temperature. An estimator that disagrees wildly with the station reading
// is producing a correction, not a replacement.
const maxCorrection = 3.5

// Heuristic is the default estimator: a rule-of-thumb rain classifier and a
// bounded temperature correction derived from humidity and pressure.
type Heuristic struct{}

// Predict classifies rain from humidity and pressure and nudges the
// temperature by at most maxCorrection degrees.
func (Heuristic) Predict(f Features) (string, float64) {
	label := LabelNoRain
	// High humidity with falling pressure is the classic precipitation
	// setup; saturated air rains regardless of pressure.
	if f.HumidityPct >= 85 || (f.HumidityPct >= 70 && f.PressureHPa < 1005) {
		label = LabelRainExpected
	}

	// Raw estimate: humid air feels and trends warmer, wind cools.
	raw := f.TempC + (f.HumidityPct-50)/20 - f.WindKmh/25

	diff := raw - f.TempC
	corrected := raw
	if diff > maxCorrection {
		corrected = f.TempC + maxCorrection
	} else if diff < -maxCorrection {
		corrected = f.TempC - maxCorrection
	}

	// Dry air caps the upward correction: low humidity cannot spike the
	// heat estimate.
	if f.HumidityPct < 30 && corrected > f.TempC+2.5 {
		corrected = f.TempC + 2.0
	}

	return label, roundTenth(corrected)
}

func roundTenth(f float64) float64 {
	if f >= 0 {
		return float64(int(f*10+0.5)) / 10
	}
	return float64(int(f*10-0.5)) / 10
}
