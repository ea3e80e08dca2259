// Package weather retrieves live conditions from the Open-Meteo APIs:
// geocoding to resolve a free-text location, then the forecast endpoint for
// current conditions and a short hourly outlook.
//
// Geocoding results are cached with a TTL (city coordinates do not move) and
// concurrent condition fetches for the same location are collapsed through
// singleflight so a burst of queries costs one upstream call.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"raincast/internal/external"
	"raincast/internal/types"
)

// Place is a resolved location.
type Place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HourlyPoint is one entry of the short-term outlook.
type HourlyPoint struct {
	Time        string  `json:"time"`
	TempC       float64 `json:"temp_c"`
	WeatherCode int     `json:"weather_code"`
}

// Conditions bundles the current snapshot with the hourly outlook.
type Conditions struct {
	Snapshot types.WeatherSnapshot `json:"snapshot"`
	Hourly   []HourlyPoint         `json:"hourly"`
}

// outlookHours is how many hourly points the outlook carries, starting at
// the current hour.
const outlookHours = 8

// Client talks to the Open-Meteo geocoding and forecast APIs through the
// resilient BaseClient.
type Client struct {
	base            *external.BaseClient
	geocodeBaseURL  string
	forecastBaseURL string

	geocodeCache *gocache.Cache
	flight       singleflight.Group
}

// New constructs a weather client. geocodeTTL bounds how long resolved
// coordinates are reused without asking the geocoder again.
func New(base *external.BaseClient, geocodeBaseURL, forecastBaseURL string, geocodeTTL time.Duration) *Client {
	return &Client{
		base:            base,
		geocodeBaseURL:  geocodeBaseURL,
		forecastBaseURL: forecastBaseURL,
		geocodeCache:    gocache.New(geocodeTTL, 2*geocodeTTL),
	}
}

// Geocode resolves a free-text location to coordinates. Unknown locations
// map to not_found_location so callers can surface a clean rejection rather
// than a transient upstream failure.
func (c *Client) Geocode(ctx context.Context, location string) (Place, error) {
	key := types.FoldLocation(location)
	if cached, ok := c.geocodeCache.Get(key); ok {
		return cached.(Place), nil
	}

	u := fmt.Sprintf("%s/v1/search?name=%s&count=1&language=en&format=json",
		c.geocodeBaseURL, url.QueryEscape(location))

	var payload struct {
		Results []struct {
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return Place{}, err
	}
	if len(payload.Results) == 0 {
		return Place{}, types.NewAppError(types.ErrCodeNotFoundLocation,
			fmt.Sprintf("location %q not found", location), nil)
	}

	place := Place{
		Name:      payload.Results[0].Name,
		Latitude:  payload.Results[0].Latitude,
		Longitude: payload.Results[0].Longitude,
	}
	c.geocodeCache.SetDefault(key, place)
	return place, nil
}

// Current fetches current conditions and the hourly outlook for a resolved
// place. Concurrent calls for the same place share one upstream request.
func (c *Client) Current(ctx context.Context, place Place) (Conditions, error) {
	key := fmt.Sprintf("%.4f,%.4f", place.Latitude, place.Longitude)
	v, err, _ := c.flight.Do(key, func() (any, error) {
		return c.fetchCurrent(ctx, place)
	})
	if err != nil {
		return Conditions{}, err
	}
	return v.(Conditions), nil
}

func (c *Client) fetchCurrent(ctx context.Context, place Place) (Conditions, error) {
	u := fmt.Sprintf("%s/v1/forecast?latitude=%f&longitude=%f"+
		"&current=temperature_2m,relative_humidity_2m,surface_pressure,wind_speed_10m,weather_code"+
		"&hourly=temperature_2m,weather_code&timezone=auto",
		c.forecastBaseURL, place.Latitude, place.Longitude)

	var payload struct {
		Current struct {
			Time        string  `json:"time"`
			Temperature float64 `json:"temperature_2m"`
			Humidity    float64 `json:"relative_humidity_2m"`
			Pressure    float64 `json:"surface_pressure"`
			WindSpeed   float64 `json:"wind_speed_10m"`
			WeatherCode int     `json:"weather_code"`
		} `json:"current"`
		Hourly struct {
			Time        []string  `json:"time"`
			Temperature []float64 `json:"temperature_2m"`
			WeatherCode []int     `json:"weather_code"`
		} `json:"hourly"`
	}
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return Conditions{}, err
	}
	if payload.Current.Time == "" {
		return Conditions{}, types.NewAppError(types.ErrCodeUpstreamWeather,
			"station data unavailable for location", nil)
	}

	cond := Conditions{
		Snapshot: types.WeatherSnapshot{
			TempC:       payload.Current.Temperature,
			HumidityPct: payload.Current.Humidity,
			PressureHPa: payload.Current.Pressure,
			WindKmh:     payload.Current.WindSpeed,
			WeatherCode: payload.Current.WeatherCode,
			Latitude:    place.Latitude,
			Longitude:   place.Longitude,
		},
	}

	// Align the outlook to the current hour; fall back to the series start
	// when the timestamps do not line up.
	start := 0
	for i, ts := range payload.Hourly.Time {
		if ts == payload.Current.Time {
			start = i
			break
		}
	}
	for i := start; i < start+outlookHours && i < len(payload.Hourly.Time); i++ {
		if i >= len(payload.Hourly.Temperature) || i >= len(payload.Hourly.WeatherCode) {
			break
		}
		cond.Hourly = append(cond.Hourly, HourlyPoint{
			Time:        payload.Hourly.Time[i],
			TempC:       payload.Hourly.Temperature[i],
			WeatherCode: payload.Hourly.WeatherCode[i],
		})
	}
	return cond, nil
}

// getJSON performs a GET through the BaseClient and decodes a 200 response.
func (c *Client) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected,
			"building upstream request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NewAppError(types.ErrCodeUpstreamWeather,
			fmt.Sprintf("upstream returned status %d", resp.StatusCode), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamWeather,
			"decoding upstream response", err)
	}
	return nil
}
