package store

import (
	"bytes"
	"encoding/json"

	"raincast/internal/types"
)

// ExportFormat selects the serialization of an export snapshot.
type ExportFormat string

const (
	// ExportJSON is the document-oriented export for dashboards.
	ExportJSON ExportFormat = "json"
	// ExportCSV mirrors the durable table byte-for-byte in layout.
	ExportCSV ExportFormat = "csv"
)

// ExportSnapshot serializes the full current store contents in a
// read-friendly form for external consumers. The snapshot is purely derived:
// it can be rebuilt at any time from the store and is never a write target.
func (s *Store) ExportSnapshot(format ExportFormat) ([]byte, error) {
	records := s.Scan(types.ObservationFilter{})

	switch format {
	case ExportCSV:
		var buf bytes.Buffer
		if err := writeAll(&buf, records); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected,
				"encoding CSV export", err)
		}
		return buf.Bytes(), nil
	default:
		if records == nil {
			records = []types.Observation{}
		}
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected,
				"encoding JSON export", err)
		}
		return out, nil
	}
}
