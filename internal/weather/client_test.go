package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raincast/internal/external"
	"raincast/internal/types"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := external.NewBaseClient(srv.Client(), "weather-test",
		external.RetryPolicy{MaxRetries: 1, MinWait: time.Millisecond, MaxWait: time.Millisecond},
		"RainCast-Test/1.0",
		external.WithSleepFunc(func(time.Duration) {}),
	)
	return New(base, srv.URL, srv.URL, time.Hour), srv
}

const forecastBody = `{
	"current": {
		"time": "2026-08-28T10:00",
		"temperature_2m": 28.5,
		"relative_humidity_2m": 74,
		"surface_pressure": 1004.2,
		"wind_speed_10m": 11.3,
		"weather_code": 61
	},
	"hourly": {
		"time": ["2026-08-28T09:00","2026-08-28T10:00","2026-08-28T11:00","2026-08-28T12:00"],
		"temperature_2m": [27.1, 28.5, 29.0, 29.4],
		"weather_code": [3, 61, 61, 63]
	}
}`

func TestGeocodeResolvesAndCaches(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Pune", r.URL.Query().Get("name"))
		fmt.Fprint(w, `{"results":[{"name":"Pune","latitude":18.52,"longitude":73.85}]}`)
	})
	c, _ := newTestClient(t, mux)

	place, err := c.Geocode(context.Background(), "Pune")
	require.NoError(t, err)
	assert.Equal(t, "Pune", place.Name)
	assert.Equal(t, 18.52, place.Latitude)

	// Cache hit: folded key, no second upstream call.
	_, err = c.Geocode(context.Background(), "  PUNE ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGeocodeUnknownLocation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[]}`)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.Geocode(context.Background(), "Atlantis")
	require.Error(t, err)

	appErr, ok := err.(*types.AppError)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeNotFoundLocation, appErr.Code)
}

func TestCurrentBuildsSnapshotAndOutlook(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, forecastBody)
	})
	c, _ := newTestClient(t, mux)

	cond, err := c.Current(context.Background(), Place{Name: "Pune", Latitude: 18.52, Longitude: 73.85})
	require.NoError(t, err)

	assert.Equal(t, 28.5, cond.Snapshot.TempC)
	assert.Equal(t, 74.0, cond.Snapshot.HumidityPct)
	assert.Equal(t, 61, cond.Snapshot.WeatherCode)
	assert.Equal(t, 18.52, cond.Snapshot.Latitude)

	// Outlook starts at the current hour, not the series start.
	require.Len(t, cond.Hourly, 3)
	assert.Equal(t, "2026-08-28T10:00", cond.Hourly[0].Time)
	assert.Equal(t, 29.4, cond.Hourly[2].TempC)
}

func TestCurrentMissingStationData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"hourly":{"time":[],"temperature_2m":[],"weather_code":[]}}`)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.Current(context.Background(), Place{Latitude: 1, Longitude: 1})
	require.Error(t, err)

	appErr, ok := err.(*types.AppError)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeUpstreamWeather, appErr.Code)
}

func TestUpstreamFailureMapsToUpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.Current(context.Background(), Place{Latitude: 1, Longitude: 1})
	require.Error(t, err)

	appErr, ok := err.(*types.AppError)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeUpstreamWeather, appErr.Code)
}
