package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"raincast/internal/claims"
	"raincast/internal/core"
	"raincast/internal/observability"
	"raincast/internal/types"
)

// ClaimSubmitter runs the claim attachment flow.
type ClaimSubmitter interface {
	Submit(ctx context.Context, location, claim, proofName string, proofBytes []byte) (claims.Result, error)
}

// ClaimHandler accepts community claims with photographic proof.
type ClaimHandler struct {
	claims         ClaimSubmitter
	logger         *slog.Logger
	metrics        *observability.Metrics
	maxUploadBytes int64
}

// NewClaimHandler creates a ClaimHandler. maxUploadBytes caps the whole
// multipart body; metrics may be nil in tests.
func NewClaimHandler(cs ClaimSubmitter, l *slog.Logger, m *observability.Metrics, maxUploadBytes int64) *ClaimHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ClaimHandler{claims: cs, logger: l, metrics: m, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes mounts claim routes on the provided chi.Router.
func (h *ClaimHandler) RegisterRoutes(r chi.Router) {
	r.Post("/claims", h.Submit)
}

// Submit handles POST /v1/claims as a multipart form:
//
//	location  text field, required
//	claim     text field, required
//	proof     file field, required (photo with EXIF metadata)
//
// The claim binds to the most recent open observation for the location and
// is immutable once attached. The response carries the verdict trust label.
func (h *ClaimHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationProofRequired,
			"request must be a multipart form within the upload size limit", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	location := r.FormValue("location")
	claim := r.FormValue("claim")

	file, header, err := r.FormFile("proof")
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationProofRequired,
			"a proof photo is required", err))
		return
	}
	defer file.Close()

	proofBytes, err := io.ReadAll(file)
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationProofRequired,
			"failed to read proof upload", err))
		return
	}

	result, err := h.claims.Submit(r.Context(), location, claim, header.Filename, proofBytes)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ClaimsSubmitted.WithLabelValues(string(result.TrustLabel)).Inc()
	}

	h.logger.InfoContext(r.Context(), "claim attached",
		slog.Int64("observation_id", result.ObservationID),
		slog.String("location", location),
		slog.String("trust_label", string(result.TrustLabel)),
	)

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: result})
}
