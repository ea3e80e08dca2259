package advisory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"raincast/internal/types"
)

func TestDeriveByModeAndCode(t *testing.T) {
	rainy := types.WeatherSnapshot{WeatherCode: 61}
	clear := types.WeatherSnapshot{WeatherCode: 0}

	cases := []struct {
		name string
		w    types.WeatherSnapshot
		mode types.AdvisoryMode
		want string
	}{
		{"farmer rain", rainy, types.ModeFarmer, "Rain detected. Check drainage."},
		{"farmer clear", clear, types.ModeFarmer, "Optimal for soil testing."},
		{"construction rain", rainy, types.ModeConstruction, "Halt exterior work."},
		{"construction clear", clear, types.ModeConstruction, "Safe for structural work."},
		{"standard rain", rainy, types.ModeStandard, "Carry an umbrella."},
		{"standard clear", clear, types.ModeStandard, "Perfect for travel."},
		{"unknown mode falls back to standard", rainy, types.AdvisoryMode("pilot"), "Carry an umbrella."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Derive(tc.w, "Rain Expected", tc.mode)
			assert.Equal(t, tc.want, got.Dos)
			assert.Equal(t, "Rain Expected", got.Headline)
		})
	}
}

func TestDeriveDeterministic(t *testing.T) {
	w := types.WeatherSnapshot{WeatherCode: 95}
	assert.Equal(t, Derive(w, "x", types.ModeFarmer), Derive(w, "x", types.ModeFarmer))
}
