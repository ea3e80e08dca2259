package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raincast/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.csv"), nil)
	require.NoError(t, err)
	return s
}

func sampleObservation(location string) types.Observation {
	return types.Observation{
		CreatedAt: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
		Location:  location,
		Weather: types.WeatherSnapshot{
			TempC:       28.5,
			HumidityPct: 74,
			PressureHPa: 1004.2,
			WindKmh:     11.3,
			WeatherCode: 61,
			Latitude:    18.52,
			Longitude:   73.85,
		},
		Prediction:     "Rain Expected",
		PredictedTempC: 27.9,
		Mode:           types.ModeStandard,
	}
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.Append(sampleObservation("Pune"))
	require.NoError(t, err)
	id2, err := s.Append(sampleObservation("Delhi"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)
}

func TestAppendDefaultsTrustLabelToPending(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Append(sampleObservation("Pune"))
	require.NoError(t, err)

	obs, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, types.TrustPending, obs.TrustLabel)
}

func TestScanFilters(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Append(sampleObservation("Pune"))
	require.NoError(t, err)
	_, err = s.Append(sampleObservation("Delhi"))
	require.NoError(t, err)
	id3, err := s.Append(sampleObservation("pune"))
	require.NoError(t, err)

	// Case-insensitive location filter.
	pune := s.Scan(types.ObservationFilter{Location: "PUNE"})
	require.Len(t, pune, 2)

	// Store order is oldest first.
	assert.Equal(t, int64(1), pune[0].ID)
	assert.Equal(t, id3, pune[1].ID)

	// Open-only filter excludes claimed records.
	_, err = s.Update(id3, func(o *types.Observation) error {
		o.Claim = "Rain"
		return nil
	})
	require.NoError(t, err)

	open := s.Scan(types.ObservationFilter{Location: "Pune", OpenOnly: true})
	require.Len(t, open, 1)
	assert.Equal(t, int64(1), open[0].ID)
}

func TestUpdatePersistsWholeRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.csv")

	s, err := Open(path, nil)
	require.NoError(t, err)

	id, err := s.Append(sampleObservation("Pune"))
	require.NoError(t, err)

	_, err = s.Update(id, func(o *types.Observation) error {
		o.Claim = "Rain"
		o.ProofRef = "proof-abc.jpg"
		o.TrustLabel = types.TrustGenuine
		return nil
	})
	require.NoError(t, err)

	// Reopen from disk: every field must round-trip.
	reopened, err := Open(path, nil)
	require.NoError(t, err)

	obs, err := reopened.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Rain", obs.Claim)
	assert.Equal(t, "proof-abc.jpg", obs.ProofRef)
	assert.Equal(t, types.TrustGenuine, obs.TrustLabel)
	assert.Equal(t, 61, obs.Weather.WeatherCode)
	assert.Equal(t, 28.5, obs.Weather.TempC)
}

func TestUpdateCannotChangeSequenceID(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Append(sampleObservation("Pune"))
	require.NoError(t, err)

	obs, err := s.Update(id, func(o *types.Observation) error {
		o.ID = 99
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, id, obs.ID)
}

func TestUpdateMutatorErrorLeavesRecordUntouched(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Append(sampleObservation("Pune"))
	require.NoError(t, err)

	wantErr := types.NewAppError(types.ErrCodeConflictClaimAttached, "already claimed", nil)
	_, err = s.Update(id, func(o *types.Observation) error {
		o.Claim = "Rain"
		return wantErr
	})
	assert.Equal(t, wantErr, err)

	obs, err := s.Get(id)
	require.NoError(t, err)
	assert.Empty(t, obs.Claim)
}

func TestUpdateUnknownIDReturnsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Update(42, func(o *types.Observation) error { return nil })
	require.Error(t, err)

	appErr, ok := err.(*types.AppError)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeNotFoundObservation, appErr.Code)
}

func TestDeleteRemovesRecord(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.Append(sampleObservation("Pune"))
	require.NoError(t, err)
	id2, err := s.Append(sampleObservation("Delhi"))
	require.NoError(t, err)

	removed, err := s.Delete(id1)
	require.NoError(t, err)
	assert.Equal(t, "Pune", removed.Location)

	_, err = s.Get(id1)
	assert.Error(t, err)

	// The surviving record keeps its ID; new appends continue the sequence.
	_, err = s.Get(id2)
	assert.NoError(t, err)
	id3, err := s.Append(sampleObservation("Mumbai"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), id3)
}

func TestResetLeavesEmptyTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.csv")

	s, err := Open(path, nil)
	require.NoError(t, err)
	_, err = s.Append(sampleObservation("Pune"))
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	assert.Equal(t, 0, s.Len())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Len())
}

// TestConcurrentUpdatesLoseNoIncrements drives the read-increment-write race
// the serialization discipline exists for: the final count must equal the
// number of accepted update calls.
func TestConcurrentUpdatesLoseNoIncrements(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Append(sampleObservation("Pune"))
	require.NoError(t, err)
	_, err = s.Update(id, func(o *types.Observation) error {
		o.Claim = "Rain"
		return nil
	})
	require.NoError(t, err)

	const voters = 25
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(id, func(o *types.Observation) error {
				o.SupportVotes++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	obs, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, voters, obs.SupportVotes)
}

func TestExportSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.csv")

	s, err := Open(path, nil)
	require.NoError(t, err)
	_, err = s.Append(sampleObservation("Pune"))
	require.NoError(t, err)
	_, err = s.Append(sampleObservation("Delhi"))
	require.NoError(t, err)

	// JSON export mirrors the same fields the durable table holds.
	out, err := s.ExportSnapshot(ExportJSON)
	require.NoError(t, err)

	var exported []types.Observation
	require.NoError(t, json.Unmarshal(out, &exported))
	assert.Equal(t, s.Scan(types.ObservationFilter{}), exported)

	// CSV export written back as a store file yields the same records.
	csvOut, err := s.ExportSnapshot(ExportCSV)
	require.NoError(t, err)

	copyPath := filepath.Join(dir, "copy.csv")
	require.NoError(t, os.WriteFile(copyPath, csvOut, 0o644))

	reread, err := Open(copyPath, nil)
	require.NoError(t, err)
	assert.Equal(t, s.Scan(types.ObservationFilter{}), reread.Scan(types.ObservationFilter{}))
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,created_at\n1,notatime\n"), 0o644))

	_, err := Open(path, nil)
	require.Error(t, err)

	appErr, ok := err.(*types.AppError)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeStorageRead, appErr.Code)
}
