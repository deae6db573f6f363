package kafka

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	rec := domain.UnifiedRecord{
		EventID:              "2024_113001",
		Timestamp:            domain.Text("2024-04-03T12:34:56"),
		Magnitude:            domain.Float(5.2),
		MaxIntensityObserved: domain.Int(4),
		SourceType:           domain.SourceDetailedStation,
		AffectedLocations: []domain.AffectedLocation{
			{County: domain.Text("臺北市"), Intensity: domain.Int(4)},
		},
	}

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("2024_113001"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "source_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("detailed_station"), msg.Headers[0].Value)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "2024_113001", decoded["event_id"])
	assert.Equal(t, "detailed_station", decoded["source_type"])
	assert.Nil(t, decoded["depth_km"])
	assert.Contains(t, string(msg.Value), `"magnitude":5.2`)
}

func TestWriter_PublishEmpty(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:0"}, KafkaTopic: "unused"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer w.Close()

	assert.NoError(t, w.Publish(t.Context(), nil))
}
