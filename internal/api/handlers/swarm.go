package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"raincast/internal/core"
	"raincast/internal/observability"
	"raincast/internal/types"
)

// SwarmReporter is the ephemeral peer-consensus tally.
type SwarmReporter interface {
	Report(location, claimType string) types.SwarmStatus
	Status(location string) types.SwarmStatus
	Broadcast(location string) (active bool, claimType string, count int)
}

// SwarmReportRequest is the request body for POST /v1/swarm/reports.
type SwarmReportRequest struct {
	Location  string `json:"location" validate:"required,max=120"`
	ClaimType string `json:"claim_type" validate:"required,max=60"`
}

// BroadcastResponse tells peer clients whether to keep relaying a claim.
type BroadcastResponse struct {
	Active    bool   `json:"active"`
	ClaimType string `json:"claim_type,omitempty"`
	Count     int    `json:"count"`
}

// SwarmHandler exposes the peer swarm surface: anonymous corroborating
// reports, the per-location tally state, and the relay broadcast signal.
type SwarmHandler struct {
	swarm          SwarmReporter
	validator      *core.Validator
	logger         *slog.Logger
	metrics        *observability.Metrics
	alertThreshold int
}

// NewSwarmHandler creates a SwarmHandler. metrics may be nil in tests.
func NewSwarmHandler(sr SwarmReporter, v *core.Validator, l *slog.Logger, m *observability.Metrics, alertThreshold int) *SwarmHandler {
	if l == nil {
		l = slog.Default()
	}
	return &SwarmHandler{swarm: sr, validator: v, logger: l, metrics: m, alertThreshold: alertThreshold}
}

// RegisterRoutes mounts swarm routes on the provided chi.Router.
func (h *SwarmHandler) RegisterRoutes(r chi.Router) {
	r.Route("/swarm", func(r chi.Router) {
		r.Post("/reports", h.Report)
		r.Get("/{location}/status", h.Status)
		r.Get("/{location}/broadcast", h.Broadcast)
	})
}

// Report handles POST /v1/swarm/reports. Reports are anonymous and
// best-effort; the tally lives only in memory and expires when idle.
func (h *SwarmHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req SwarmReportRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	status := h.swarm.Report(req.Location, req.ClaimType)

	if h.metrics != nil {
		h.metrics.SwarmReports.Inc()
		// Count each swarm once, at the exact crossing.
		if status.State == types.SwarmVerified && status.Count == h.alertThreshold {
			h.metrics.SwarmAlerts.Inc()
		}
	}

	core.JSON(w, r, http.StatusAccepted, core.APIResponse{Data: status})
}

// Status handles GET /v1/swarm/{location}/status. Expired tallies read as
// clear; expiry is applied lazily on access.
func (h *SwarmHandler) Status(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")
	if location == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField,
			"location is required", nil))
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.swarm.Status(location)})
}

// Broadcast handles GET /v1/swarm/{location}/broadcast. The relay signal is
// active only while a tally is counting below the alert threshold; verified
// and clear locations both read as inactive so peers stop relaying.
func (h *SwarmHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")
	if location == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField,
			"location is required", nil))
		return
	}

	active, claimType, count := h.swarm.Broadcast(location)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: BroadcastResponse{
		Active:    active,
		ClaimType: claimType,
		Count:     count,
	}})
}
