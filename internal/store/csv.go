package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"raincast/internal/types"
)

// header defines the persisted column order. The typed codec below is the
// only writer and reader of rows, so there is no positional-index mutation
// anywhere else in the codebase.
var header = []string{
	"id", "created_at", "location",
	"temp_c", "humidity_pct", "pressure_hpa", "wind_kmh", "weather_code",
	"latitude", "longitude",
	"prediction", "predicted_temp_c", "mode",
	"claim", "proof_ref", "trust_label", "support_votes", "oppose_votes",
}

// writeAll emits the header row followed by one row per record.
func writeAll(w io.Writer, records []types.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range records {
		if err := cw.Write(marshalRow(&records[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// readAll parses the durable file back into records, rejecting structural
// problems (wrong column count, malformed fields) rather than guessing.
func readAll(path string) ([]types.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeStorageRead,
			"opening store file", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = len(header)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeStorageRead,
			"parsing store file", err)
	}
	if len(rows) == 0 {
		return nil, types.NewAppError(types.ErrCodeStorageRead,
			"store file is missing its header row", nil)
	}

	records := make([]types.Observation, 0, len(rows)-1)
	for _, row := range rows[1:] {
		obs, err := unmarshalRow(row)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeStorageRead,
				"decoding store row", err)
		}
		records = append(records, obs)
	}
	return records, nil
}

func marshalRow(o *types.Observation) []string {
	return []string{
		strconv.FormatInt(o.ID, 10),
		o.CreatedAt.UTC().Format(time.RFC3339),
		o.Location,
		formatFloat(o.Weather.TempC),
		formatFloat(o.Weather.HumidityPct),
		formatFloat(o.Weather.PressureHPa),
		formatFloat(o.Weather.WindKmh),
		strconv.Itoa(o.Weather.WeatherCode),
		formatFloat(o.Weather.Latitude),
		formatFloat(o.Weather.Longitude),
		o.Prediction,
		formatFloat(o.PredictedTempC),
		string(o.Mode),
		o.Claim,
		o.ProofRef,
		string(o.TrustLabel),
		strconv.Itoa(o.SupportVotes),
		strconv.Itoa(o.OpposeVotes),
	}
}

func unmarshalRow(row []string) (types.Observation, error) {
	var o types.Observation
	if len(row) != len(header) {
		return o, fmt.Errorf("expected %d columns, got %d", len(header), len(row))
	}

	var err error
	if o.ID, err = strconv.ParseInt(row[0], 10, 64); err != nil {
		return o, fmt.Errorf("id: %w", err)
	}
	if o.CreatedAt, err = time.Parse(time.RFC3339, row[1]); err != nil {
		return o, fmt.Errorf("created_at: %w", err)
	}
	o.Location = row[2]
	if o.Weather.TempC, err = strconv.ParseFloat(row[3], 64); err != nil {
		return o, fmt.Errorf("temp_c: %w", err)
	}
	if o.Weather.HumidityPct, err = strconv.ParseFloat(row[4], 64); err != nil {
		return o, fmt.Errorf("humidity_pct: %w", err)
	}
	if o.Weather.PressureHPa, err = strconv.ParseFloat(row[5], 64); err != nil {
		return o, fmt.Errorf("pressure_hpa: %w", err)
	}
	if o.Weather.WindKmh, err = strconv.ParseFloat(row[6], 64); err != nil {
		return o, fmt.Errorf("wind_kmh: %w", err)
	}
	if o.Weather.WeatherCode, err = strconv.Atoi(row[7]); err != nil {
		return o, fmt.Errorf("weather_code: %w", err)
	}
	if o.Weather.Latitude, err = strconv.ParseFloat(row[8], 64); err != nil {
		return o, fmt.Errorf("latitude: %w", err)
	}
	if o.Weather.Longitude, err = strconv.ParseFloat(row[9], 64); err != nil {
		return o, fmt.Errorf("longitude: %w", err)
	}
	o.Prediction = row[10]
	if o.PredictedTempC, err = strconv.ParseFloat(row[11], 64); err != nil {
		return o, fmt.Errorf("predicted_temp_c: %w", err)
	}
	o.Mode = types.AdvisoryMode(row[12])
	o.Claim = row[13]
	o.ProofRef = row[14]
	o.TrustLabel = types.TrustLabel(row[15])
	if !o.TrustLabel.IsValid() {
		return o, fmt.Errorf("trust_label: unknown value %q", row[15])
	}
	if o.SupportVotes, err = strconv.Atoi(row[16]); err != nil {
		return o, fmt.Errorf("support_votes: %w", err)
	}
	if o.OpposeVotes, err = strconv.Atoi(row[17]); err != nil {
		return o, fmt.Errorf("oppose_votes: %w", err)
	}
	return o, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
