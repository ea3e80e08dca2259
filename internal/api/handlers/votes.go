package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"raincast/internal/core"
	"raincast/internal/observability"
	"raincast/internal/types"
)

// VoteCaster applies one community vote to the persisted tally.
type VoteCaster interface {
	CastVote(ctx context.Context, location string, direction types.VoteDirection, voterID string) (types.Observation, error)
}

// CastVoteRequest is the request body for POST /v1/votes.
type CastVoteRequest struct {
	Location  string `json:"location" validate:"required,max=120"`
	Direction string `json:"direction" validate:"required"`
}

// VoteHandler accepts community votes on the most recent claimed
// observation for a location.
type VoteHandler struct {
	votes     VoteCaster
	validator *core.Validator
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewVoteHandler creates a VoteHandler. metrics may be nil in tests.
func NewVoteHandler(vc VoteCaster, v *core.Validator, l *slog.Logger, m *observability.Metrics) *VoteHandler {
	if l == nil {
		l = slog.Default()
	}
	return &VoteHandler{votes: vc, validator: v, logger: l, metrics: m}
}

// RegisterRoutes mounts vote routes on the provided chi.Router.
func (h *VoteHandler) RegisterRoutes(r chi.Router) {
	r.Post("/votes", h.Cast)
}

// Cast handles POST /v1/votes. The voter identity comes from the request
// context (X-Voter-Id header or remote address) and is used for best-effort
// duplicate vote rejection.
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	var req CastVoteRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	direction := types.VoteDirection(req.Direction)
	voter := types.GetVoterID(r.Context())

	obs, err := h.votes.CastVote(r.Context(), req.Location, direction, voter)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.VotesCast.WithLabelValues(string(direction)).Inc()
	}

	h.logger.InfoContext(r.Context(), "vote recorded",
		slog.Int64("observation_id", obs.ID),
		slog.String("direction", string(direction)),
		slog.String("trust_label", string(obs.TrustLabel)),
	)

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: obs})
}
