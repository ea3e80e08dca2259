// Package advisory derives human-readable guidance from a weather snapshot
// and the model prediction. It is a pure presentation projection: given
// identical inputs it produces identical output, it never fails, and it
// never mutates the observation it describes.
package advisory

import "raincast/internal/types"

// Advisory is the guidance block shown next to an observation.
type Advisory struct {
	Headline string `json:"headline"`
	Dos      string `json:"dos"`
}

// rainyCodes are the WMO weather interpretation codes that count as
// precipitation for advisory purposes.
var rainyCodes = map[int]struct{}{
	51: {}, 53: {}, 55: {},
	61: {}, 63: {}, 65: {},
	80: {}, 81: {}, 82: {},
	95: {}, 96: {}, 99: {},
}

// Derive builds the advisory for a snapshot, prediction, and audience mode.
// Unknown modes get the standard guidance.
func Derive(w types.WeatherSnapshot, prediction string, mode types.AdvisoryMode) Advisory {
	_, rainy := rainyCodes[w.WeatherCode]

	adv := Advisory{Headline: prediction}
	switch mode {
	case types.ModeFarmer:
		if rainy {
			adv.Dos = "Rain detected. Check drainage."
		} else {
			adv.Dos = "Optimal for soil testing."
		}
	case types.ModeConstruction:
		if rainy {
			adv.Dos = "Halt exterior work."
		} else {
			adv.Dos = "Safe for structural work."
		}
	default:
		if rainy {
			adv.Dos = "Carry an umbrella."
		} else {
			adv.Dos = "Perfect for travel."
		}
	}
	return adv
}
