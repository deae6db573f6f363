package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all pipeline settings, populated from environment variables
// and an optional etl.yaml in the working directory.
type Config struct {
	InputDir    string
	BulletinDir string
	ParsedDir   string
	EnrichedDir string
	RegionalDir string
	UnifiedDir  string

	// CWA retrieval.
	CWABaseURL    string
	HTTPTimeout   time.Duration
	DownloadPause time.Duration
	UserAgent     string

	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Optional unified-record publishing; disabled when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string

	ScheduleCron string
}

// PublishEnabled reports whether unified records should be sent to Kafka.
func (c *Config) PublishEnabled() bool { return len(c.KafkaBrokers) > 0 }

var defaults = map[string]string{
	"INPUT_DIR":        ".",
	"BULLETIN_DIR":     "./earthquake_data",
	"PARSED_DIR":       "./earthquake_data/json",
	"ENRICHED_DIR":     "./earthquake_data/json_with_city",
	"REGIONAL_DIR":     "./earthquake_regional_data",
	"UNIFIED_DIR":      "./unified_earthquake_data",
	"CWA_BASE_URL":     "https://scweb.cwa.gov.tw/zh-tw/earthquake",
	"HTTP_TIMEOUT":     "30s",
	"DOWNLOAD_PAUSE":   "1s",
	"USER_AGENT":       "quake-data-etl/1.0",
	"LOG_LEVEL":        "info",
	"LOG_FORMAT":       "text",
	"HTTP_ADDR":        "",
	"KAFKA_BROKERS":    "",
	"KAFKA_TOPIC":      "unified-earthquake-events",
	"SCHEDULE_CRON":    "0 0 * * * *",
	"SHUTDOWN_TIMEOUT": "10s",
}

// Load reads configuration, applying defaults where unset.
func Load() (*Config, error) {
	return load(".")
}

func load(configPath string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName("etl")
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	httpTimeout, err := parseDuration(v, "HTTP_TIMEOUT")
	if err != nil {
		return nil, err
	}
	if httpTimeout <= 0 {
		return nil, errors.New("HTTP_TIMEOUT must be positive")
	}
	downloadPause, err := parseDuration(v, "DOWNLOAD_PAUSE")
	if err != nil {
		return nil, err
	}
	if downloadPause < 0 {
		return nil, errors.New("DOWNLOAD_PAUSE must not be negative")
	}
	shutdownTimeout, err := parseDuration(v, "SHUTDOWN_TIMEOUT")
	if err != nil {
		return nil, err
	}
	if shutdownTimeout <= 0 {
		return nil, errors.New("SHUTDOWN_TIMEOUT must be positive")
	}

	cfg := &Config{
		InputDir:        v.GetString("INPUT_DIR"),
		BulletinDir:     v.GetString("BULLETIN_DIR"),
		ParsedDir:       v.GetString("PARSED_DIR"),
		EnrichedDir:     v.GetString("ENRICHED_DIR"),
		RegionalDir:     v.GetString("REGIONAL_DIR"),
		UnifiedDir:      v.GetString("UNIFIED_DIR"),
		CWABaseURL:      strings.TrimRight(v.GetString("CWA_BASE_URL"), "/"),
		HTTPTimeout:     httpTimeout,
		DownloadPause:   downloadPause,
		UserAgent:       v.GetString("USER_AGENT"),
		LogLevel:        strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:       strings.ToLower(v.GetString("LOG_FORMAT")),
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		ShutdownTimeout: shutdownTimeout,
		KafkaBrokers:    parseBrokers(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:      v.GetString("KAFKA_TOPIC"),
		ScheduleCron:    v.GetString("SCHEDULE_CRON"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that may also be overridden after Load, e.g. by
// command-line flags.
func (c *Config) Validate() error {
	for name, dir := range map[string]string{
		"INPUT_DIR":    c.InputDir,
		"BULLETIN_DIR": c.BulletinDir,
		"PARSED_DIR":   c.ParsedDir,
		"ENRICHED_DIR": c.EnrichedDir,
		"REGIONAL_DIR": c.RegionalDir,
		"UNIFIED_DIR":  c.UnifiedDir,
	} {
		if dir == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	u, err := url.Parse(c.CWABaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid CWA_BASE_URL %q", c.CWABaseURL)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}

	if c.PublishEnabled() && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
