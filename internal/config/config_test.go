package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.InputDir)
	assert.Equal(t, "./earthquake_data", cfg.BulletinDir)
	assert.Equal(t, "./earthquake_data/json", cfg.ParsedDir)
	assert.Equal(t, "./earthquake_data/json_with_city", cfg.EnrichedDir)
	assert.Equal(t, "./earthquake_regional_data", cfg.RegionalDir)
	assert.Equal(t, "./unified_earthquake_data", cfg.UnifiedDir)
	assert.Equal(t, "https://scweb.cwa.gov.tw/zh-tw/earthquake", cfg.CWABaseURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.Second, cfg.DownloadPause)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.PublishEnabled())
	assert.Equal(t, "unified-earthquake-events", cfg.KafkaTopic)
	assert.Equal(t, "0 0 * * * *", cfg.ScheduleCron)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("INPUT_DIR", "/data/csv")
	t.Setenv("UNIFIED_DIR", "/data/unified")
	t.Setenv("CWA_BASE_URL", "http://localhost:8081/eq/")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("DOWNLOAD_PAUSE", "0s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092,")
	t.Setenv("KAFKA_TOPIC", "quakes")
	t.Setenv("SCHEDULE_CRON", "@every 1h")

	cfg, err := load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "/data/csv", cfg.InputDir)
	assert.Equal(t, "/data/unified", cfg.UnifiedDir)
	assert.Equal(t, "http://localhost:8081/eq", cfg.CWABaseURL)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Zero(t, cfg.DownloadPause)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.PublishEnabled())
	assert.Equal(t, "quakes", cfg.KafkaTopic)
	assert.Equal(t, "@every 1h", cfg.ScheduleCron)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "bulletin_dir: /srv/bulletins\ndownload_pause: 250ms\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "etl.yaml"), []byte(yaml), 0o644))

	cfg, err := load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/srv/bulletins", cfg.BulletinDir)
	assert.Equal(t, 250*time.Millisecond, cfg.DownloadPause)

	t.Setenv("BULLETIN_DIR", "/env/wins")
	cfg, err = load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/env/wins", cfg.BulletinDir)
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "etl.yaml"), []byte("bulletin_dir: [\n"), 0o644))

	_, err := load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad http timeout", map[string]string{"HTTP_TIMEOUT": "soon"}, "HTTP_TIMEOUT"},
		{"zero http timeout", map[string]string{"HTTP_TIMEOUT": "0s"}, "HTTP_TIMEOUT must be positive"},
		{"negative pause", map[string]string{"DOWNLOAD_PAUSE": "-1s"}, "DOWNLOAD_PAUSE"},
		{"bad shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "x"}, "SHUTDOWN_TIMEOUT"},
		{"relative base url", map[string]string{"CWA_BASE_URL": "scweb.cwa.gov.tw"}, "CWA_BASE_URL"},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_FlagOverrides(t *testing.T) {
	cfg, err := load(t.TempDir())
	require.NoError(t, err)

	cfg.ParsedDir = ""
	assert.EqualError(t, cfg.Validate(), "PARSED_DIR is required")

	cfg.ParsedDir = "out"
	cfg.KafkaBrokers = []string{"localhost:9092"}
	cfg.KafkaTopic = ""
	assert.EqualError(t, cfg.Validate(), "KAFKA_TOPIC is required when KAFKA_BROKERS is set")
}
