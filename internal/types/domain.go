// Package types defines the RainCast domain model: observations, claims,
// consensus state, the application error taxonomy, and request-scoped
// context helpers. It has no dependencies on other internal packages so
// every layer can import it freely.
package types

import (
	"strings"
	"time"
)

// WeatherSnapshot captures the upstream conditions at the moment a location
// was queried. The snapshot is immutable once the observation is appended.
type WeatherSnapshot struct {
	TempC       float64 `json:"temp_c"`
	HumidityPct float64 `json:"humidity_pct"`
	PressureHPa float64 `json:"pressure_hpa"`
	WindKmh     float64 `json:"wind_kmh"`
	WeatherCode int     `json:"weather_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Observation is one stored weather query result, optionally annotated later
// with a human claim and a community vote tally. Field mutability after
// Append:
//
//   - ID, CreatedAt, Location, Weather, Prediction, PredictedTempC, Mode:
//     immutable.
//   - Claim, ProofRef, TrustLabel: written by the claim attachment flow;
//     Claim is written at most once.
//   - TrustLabel, SupportVotes, OpposeVotes: mutated by the vote aggregator.
type Observation struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Location  string    `json:"location"`

	Weather        WeatherSnapshot `json:"weather"`
	Prediction     string          `json:"prediction"`
	PredictedTempC float64         `json:"predicted_temp_c"`
	Mode           AdvisoryMode    `json:"mode"`

	Claim        string     `json:"claim,omitempty"`
	ProofRef     string     `json:"proof_ref,omitempty"`
	TrustLabel   TrustLabel `json:"trust_label"`
	SupportVotes int        `json:"support_votes"`
	OpposeVotes  int        `json:"oppose_votes"`
}

// ClaimOpen reports whether the observation is still awaiting a claim.
func (o *Observation) ClaimOpen() bool {
	return o.Claim == ""
}

// MatchesLocation reports whether the observation belongs to the given
// location. Locations are free text and compared case-insensitively.
func (o *Observation) MatchesLocation(location string) bool {
	return strings.EqualFold(strings.TrimSpace(o.Location), strings.TrimSpace(location))
}

// ObservationFilter narrows a store scan. Zero value matches everything.
type ObservationFilter struct {
	// Location, when non-empty, selects records for that location
	// (case-insensitive).
	Location string
	// OpenOnly, when true, selects records whose claim is still empty.
	OpenOnly bool
}

// Matches reports whether the observation passes the filter.
func (f ObservationFilter) Matches(o *Observation) bool {
	if f.Location != "" && !o.MatchesLocation(f.Location) {
		return false
	}
	if f.OpenOnly && !o.ClaimOpen() {
		return false
	}
	return true
}

// PendingConsensus is the transient swarm tally for one location: many
// independent clients reporting the same condition at nearly the same time.
// It is best-effort, in-memory only, and never authoritative; losing it
// (process restart) must not affect the durable observation store.
type PendingConsensus struct {
	Location   string    `json:"location"`
	ClaimType  string    `json:"claim_type"`
	Count      int       `json:"count"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// SwarmStatus is the externally visible projection of a pending consensus
// entry, with lazy TTL expiry already applied.
type SwarmStatus struct {
	State     SwarmState `json:"state"`
	ClaimType string     `json:"claim_type,omitempty"`
	Count     int        `json:"count"`
}

// AuthenticityVerdict is the outcome of proof metadata validation. Verdict
// maps directly onto a trust label; CaptureTime is set only when the
// embedded timestamp parsed successfully.
type AuthenticityVerdict struct {
	Label       TrustLabel
	CaptureTime time.Time
	Detail      string
}

// FoldLocation normalizes a location for use as a map key: trimmed and
// lowercased. Display strings keep the user's original casing.
func FoldLocation(location string) string {
	return strings.ToLower(strings.TrimSpace(location))
}
