// Package handlers contains the HTTP handler implementations for the
// RainCast API: observation creation and listing, claim submission,
// community votes, swarm reports, and the admin surface.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzip"

	"raincast/internal/advisory"
	"raincast/internal/core"
	"raincast/internal/observability"
	"raincast/internal/predict"
	"raincast/internal/store"
	"raincast/internal/types"
	"raincast/internal/weather"
)

// --- Service Interfaces ---
//
// Interfaces are declared locally in each handler file so tests can inject
// small stubs without depending on the concrete implementations.

// ObsStore is the observation persistence contract used by this handler.
type ObsStore interface {
	Append(obs types.Observation) (int64, error)
	Scan(filter types.ObservationFilter) []types.Observation
	ExportSnapshot(format store.ExportFormat) ([]byte, error)
}

// ObsWeatherProvider resolves a location and fetches current conditions.
type ObsWeatherProvider interface {
	Geocode(ctx context.Context, location string) (weather.Place, error)
	Current(ctx context.Context, place weather.Place) (weather.Conditions, error)
}

// --- Request/Response Models ---

// CreateObservationRequest is the request body for POST /v1/observations.
type CreateObservationRequest struct {
	Location string `json:"location" validate:"required,max=120"`
	Mode     string `json:"mode,omitempty"`
}

// ObservationDetail is the create/list response item: the stored record
// plus derived advisory text and the short hourly outlook.
type ObservationDetail struct {
	types.Observation
	Advisory advisory.Advisory     `json:"advisory"`
	Outlook  []weather.HourlyPoint `json:"outlook,omitempty"`
}

// --- Handler ---

// ObservationHandler manages observation creation, listing, and export.
type ObservationHandler struct {
	store     ObsStore
	weather   ObsWeatherProvider
	estimator predict.Estimator
	validator *core.Validator
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewObservationHandler creates an ObservationHandler with the provided
// dependencies. metrics may be nil in tests.
func NewObservationHandler(
	st ObsStore,
	wp ObsWeatherProvider,
	est predict.Estimator,
	v *core.Validator,
	l *slog.Logger,
	m *observability.Metrics,
) *ObservationHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ObservationHandler{
		store:     st,
		weather:   wp,
		estimator: est,
		validator: v,
		logger:    l,
		metrics:   m,
	}
}

// RegisterRoutes mounts observation routes on the provided chi.Router.
func (h *ObservationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/observations", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/export", h.Export)
	})
}

// Create handles POST /v1/observations.
//
// Flow:
//  1. Decode and validate the request; resolve the advisory mode.
//  2. Geocode the location, then fetch current conditions.
//  3. Run the rain estimator on the snapshot.
//  4. Append a new open observation (TrustLabel=Pending, zero votes).
//  5. Return 201 with the record, advisory text, and hourly outlook.
func (h *ObservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateObservationRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	mode := types.ModeStandard
	if req.Mode != "" {
		mode = types.AdvisoryMode(strings.ToLower(req.Mode))
		if !mode.IsValid() {
			core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidMode,
				"mode must be one of: standard, farmer, construction", nil))
			return
		}
	}

	place, err := h.weather.Geocode(r.Context(), req.Location)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	cond, err := h.weather.Current(r.Context(), place)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	label, estTemp := h.estimator.Predict(predict.Features{
		TempC:       cond.Snapshot.TempC,
		HumidityPct: cond.Snapshot.HumidityPct,
		PressureHPa: cond.Snapshot.PressureHPa,
		WindKmh:     cond.Snapshot.WindKmh,
		Location:    place.Name,
		Mode:        mode,
	})

	obs := types.Observation{
		CreatedAt:      time.Now().UTC(),
		Location:       place.Name,
		Weather:        cond.Snapshot,
		Prediction:     label,
		PredictedTempC: estTemp,
		Mode:           mode,
		TrustLabel:     types.TrustPending,
	}

	id, err := h.store.Append(obs)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	obs.ID = id

	if h.metrics != nil {
		h.metrics.ObservationsCreated.Inc()
	}

	h.logger.InfoContext(r.Context(), "observation created",
		slog.Int64("observation_id", id),
		slog.String("location", place.Name),
		slog.String("prediction", label),
	)

	detail := ObservationDetail{
		Observation: obs,
		Advisory:    advisory.Derive(cond.Snapshot, label, mode),
		Outlook:     cond.Hourly,
	}
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: detail})
}

// List handles GET /v1/observations. Query parameters:
//
//	location  filter to one location (case-insensitive)
//	open      "true" selects only records whose claim is still open
func (h *ObservationHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := types.ObservationFilter{
		Location: r.URL.Query().Get("location"),
		OpenOnly: r.URL.Query().Get("open") == "true",
	}

	records := h.store.Scan(filter)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: records})
}

// Export handles GET /v1/observations/export. The snapshot format is chosen
// with ?format=csv|json (default csv). When the client advertises gzip the
// payload is compressed on the way out.
func (h *ObservationHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := store.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = store.ExportCSV
	}
	if format != store.ExportCSV && format != store.ExportJSON {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField,
			"format must be csv or json", nil))
		return
	}

	payload, err := h.store.ExportSnapshot(format)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	filename := "observation_history.csv"
	if format == store.ExportJSON {
		contentType = "application/json"
		filename = "observation_history.json"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusOK)

		gz := gzip.NewWriter(w)
		if _, err := gz.Write(payload); err != nil {
			h.logger.ErrorContext(r.Context(), "export write failed", slog.Any("error", err))
			return
		}
		if err := gz.Close(); err != nil {
			h.logger.ErrorContext(r.Context(), "export flush failed", slog.Any("error", err))
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		h.logger.ErrorContext(r.Context(), "export write failed", slog.Any("error", err))
	}
}
