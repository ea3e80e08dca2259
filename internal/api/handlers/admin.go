package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"raincast/internal/core"
	"raincast/internal/types"
)

// AdminStore is the destructive subset of the observation store.
type AdminStore interface {
	Delete(id int64) (types.Observation, error)
	Reset() error
}

// AdminArtifactRemover deletes stored proof artifacts.
type AdminArtifactRemover interface {
	Remove(ref string)
}

// AdminHandler exposes the operator surface: purging single observations
// and wiping the store. Every route requires the admin key.
type AdminHandler struct {
	store     AdminStore
	artifacts AdminArtifactRemover
	logger    *slog.Logger

	// keyHash is the bcrypt hash of the admin key. Empty disables the
	// whole admin surface.
	keyHash string
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(st AdminStore, ar AdminArtifactRemover, l *slog.Logger, keyHash string) *AdminHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AdminHandler{store: st, artifacts: ar, logger: l, keyHash: keyHash}
}

// RegisterRoutes mounts the admin routes on the provided chi.Router.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requireAdminKey)
		r.Delete("/observations/{id}", h.PurgeObservation)
		r.Post("/reset", h.Reset)
	})
}

// requireAdminKey checks the X-Admin-Key header against the configured
// bcrypt hash. With no hash configured the surface is disabled and every
// request is rejected.
func (h *AdminHandler) requireAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Admin-Key")
		if key == "" {
			core.Error(w, r, types.NewAppError(types.ErrCodeAuthAdminKeyMissing,
				"admin key is required", nil))
			return
		}

		if h.keyHash == "" {
			core.Error(w, r, types.NewAppError(types.ErrCodeAuthAdminKeyInvalid,
				"admin access is not configured", nil))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(h.keyHash), []byte(key)); err != nil {
			h.logger.WarnContext(r.Context(), "admin key rejected",
				slog.String("remote_addr", r.RemoteAddr))
			core.Error(w, r, types.NewAppError(types.ErrCodeAuthAdminKeyInvalid,
				"admin key is invalid", nil))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// PurgeObservation handles DELETE /v1/admin/observations/{id}. The record
// is removed from the durable store and its proof artifact, if any, is
// deleted best-effort afterwards.
func (h *AdminHandler) PurgeObservation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField,
			"observation id must be an integer", err))
		return
	}

	removed, err := h.store.Delete(id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if removed.ProofRef != "" && h.artifacts != nil {
		h.artifacts.Remove(removed.ProofRef)
	}

	h.logger.InfoContext(r.Context(), "observation purged",
		slog.Int64("observation_id", id),
		slog.String("location", removed.Location),
	)

	w.WriteHeader(http.StatusNoContent)
}

// Reset handles POST /v1/admin/reset: the durable store is truncated back
// to an empty history. Proof artifacts for the purged records are not
// swept here; a separate cleanup can reclaim orphans.
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.WarnContext(r.Context(), "observation store reset")
	w.WriteHeader(http.StatusNoContent)
}
