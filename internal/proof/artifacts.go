package proof

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"raincast/internal/types"
)

// ArtifactStore persists uploaded proof images on disk. Artifacts are
// write-once: they are stored under a generated name at submission time and
// removed (best-effort) when the owning observation is purged.
type ArtifactStore struct {
	dir    string
	logger *slog.Logger
}

// NewArtifactStore creates the uploads directory if needed.
func NewArtifactStore(dir string, logger *slog.Logger) (*ArtifactStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.NewAppError(types.ErrCodeStorageWrite,
			"creating uploads directory", err)
	}
	return &ArtifactStore{dir: dir, logger: logger}, nil
}

// Save writes the proof bytes under a fresh uuid-derived name and returns
// the opaque reference stored on the observation. The original filename
// contributes only its extension; everything else is discarded to keep
// user-controlled strings out of filesystem paths.
func (a *ArtifactStore) Save(originalName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" || len(ext) > 8 || strings.ContainsAny(ext, "/\\") {
		ext = ".jpg"
	}
	ref := fmt.Sprintf("proof-%s%s", uuid.New().String(), ext)

	if err := os.WriteFile(filepath.Join(a.dir, ref), data, 0o644); err != nil {
		return "", types.NewAppError(types.ErrCodeStorageWrite,
			"writing proof artifact", err)
	}
	return ref, nil
}

// Remove deletes the artifact behind ref. Failures are logged and swallowed:
// artifact cleanup is best-effort and must never fail the owning delete.
func (a *ArtifactStore) Remove(ref string) {
	if ref == "" {
		return
	}
	// Refuse anything that could escape the uploads directory.
	if ref != filepath.Base(ref) {
		a.logger.Warn("refusing to remove suspicious proof reference", "ref", ref)
		return
	}
	if err := os.Remove(filepath.Join(a.dir, ref)); err != nil && !os.IsNotExist(err) {
		a.logger.Warn("failed to remove proof artifact", "ref", ref, "error", err)
	}
}
