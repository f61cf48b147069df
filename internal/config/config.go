// Package config loads the orchestrator's configuration.
//
// The primary path is environment variables, read once at startup; an
// optional YAML file layered on top supplies operational tunables that
// don't belong in the environment (scene/source names and stream URLs).
// Poll intervals, CSV locations, secrets and endpoints are read from the
// environment only.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete orchestrator configuration.
type Config struct {
	Compositor CompositorConfig
	Ingest     IngestConfig
	Recording  RecordingConfig
	Notify     NotifyConfig

	SwapInterval   time.Duration
	AlsoRecord     bool
	ControlPort    int
	MetricsPort    int
	LogLevel       string
	QueueSnapshot  string
	HealthCSVDir   string
	JobTimingCSV   string
	OBSJobDelay    time.Duration
	HealthPoll     time.Duration
	SwitchTickRate time.Duration

	AccountsBaseURL  string
	IngestAdminToken string

	Overlay Overlay
}

// CompositorConfig describes how to reach the scene compositor.
type CompositorConfig struct {
	Host     string
	Port     int
	Password string
}

// IngestConfig describes the ingest RTMP server's admin surface.
type IngestConfig struct {
	Host      string
	RTMPPort  int
	AdminPort int
}

// RecordingConfig describes the recording controller's HTTP surface.
type RecordingConfig struct {
	Host string
	Port int
}

// NotifyConfig describes the chat notification webhook.
type NotifyConfig struct {
	WebhookURL string
}

// Overlay holds operational tunables that are safe to check into a
// config file alongside the repository rather than set as secrets.
type Overlay struct {
	SceneName           string            `yaml:"scene_name"`
	SourceName           string            `yaml:"source_name"`
	TimerSourceName      string            `yaml:"timer_source_name"`
	TimerTextSourceName  string            `yaml:"timer_text_source_name"`
	LoadingSourceName    string            `yaml:"loading_source_name"`
	MotherstreamURL      string            `yaml:"motherstream_url"`
	RecordingIngestURL   string            `yaml:"recording_ingest_url"`
	ExtraEnv             map[string]string `yaml:"extra_env,omitempty"`
}

func setOverlayDefaults(o *Overlay) {
	if o.SceneName == "" {
		o.SceneName = "MOTHERSTREAM"
	}
	if o.SourceName == "" {
		o.SourceName = "GMOTHERSTREAM"
	}
	if o.TimerSourceName == "" {
		o.TimerSourceName = "TIMER1"
	}
	if o.TimerTextSourceName == "" {
		o.TimerTextSourceName = "TIME REMAINING"
	}
	if o.LoadingSourceName == "" {
		o.LoadingSourceName = "LOADING"
	}
	if o.MotherstreamURL == "" {
		o.MotherstreamURL = "rtmp://127.0.0.1:1935/motherstream/live"
	}
	if o.RecordingIngestURL == "" {
		o.RecordingIngestURL = "rtmp://127.0.0.1:1935/recording/live"
	}
}

// Load reads configuration from the environment and, if CONFIG_FILE is
// set, layers an optional YAML overlay on top.
func Load(getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	required := map[string]string{
		"COMPOSITOR_HOST":   getenv("COMPOSITOR_HOST"),
		"INGEST_HOST":       getenv("INGEST_HOST"),
		"NOTIFY_WEBHOOK_URL": getenv("NOTIFY_WEBHOOK_URL"),
	}
	for name, val := range required {
		if val == "" {
			return nil, fmt.Errorf("missing required environment variable %s", name)
		}
	}

	cfg := &Config{
		Compositor: CompositorConfig{
			Host:     getenv("COMPOSITOR_HOST"),
			Port:     envInt(getenv, "COMPOSITOR_PORT", 4455),
			Password: getenv("COMPOSITOR_PASSWORD"),
		},
		Ingest: IngestConfig{
			Host:      getenv("INGEST_HOST"),
			RTMPPort:  envInt(getenv, "INGEST_RTMP_PORT", 1935),
			AdminPort: envInt(getenv, "INGEST_ADMIN_PORT", 1985),
		},
		Recording: RecordingConfig{
			Host: envOr(getenv, "RECORDING_HOST", "localhost"),
			Port: envInt(getenv, "RECORDING_PORT", 1936),
		},
		Notify: NotifyConfig{
			WebhookURL: getenv("NOTIFY_WEBHOOK_URL"),
		},
		SwapInterval:   time.Duration(envInt(getenv, "SWAP_INTERVAL_SECONDS", 12000)) * time.Second,
		AlsoRecord:     envBool(getenv, "ALSO_RECORD", false),
		ControlPort:    envInt(getenv, "CONTROL_HTTP_PORT", 8080),
		MetricsPort:    envInt(getenv, "METRICS_PORT", 9090),
		LogLevel:       envOr(getenv, "LOG_LEVEL", "info"),
		QueueSnapshot:  envOr(getenv, "QUEUE_SNAPSHOT_PATH", "./QUEUE.json"),
		HealthCSVDir:   envOr(getenv, "HEALTH_CSV_DIR", "./health-logs"),
		JobTimingCSV:   envOr(getenv, "JOB_TIMING_CSV_PATH", "./job-timing.csv"),
		OBSJobDelay:    time.Duration(envInt(getenv, "OBS_JOB_DELAY_MS", 2000)) * time.Millisecond,
		HealthPoll:     time.Duration(envInt(getenv, "HEALTH_POLL_MS", 1000)) * time.Millisecond,
		SwitchTickRate: time.Duration(envInt(getenv, "SWITCH_TICK_SECONDS", 3)) * time.Second,

		AccountsBaseURL:  envOr(getenv, "ACCOUNTS_BASE_URL", "http://localhost:8000"),
		IngestAdminToken: getenv("INGEST_ADMIN_TOKEN"),
	}

	if path := getenv("CONFIG_FILE"); path != "" {
		overlay, err := loadOverlay(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay config: %w", err)
		}
		cfg.Overlay = *overlay
	}
	setOverlayDefaults(&cfg.Overlay)

	return cfg, nil
}

func loadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overlay file: %w", err)
	}

	var overlay Overlay
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&overlay); err != nil {
		return nil, fmt.Errorf("decode overlay: %w", err)
	}
	return &overlay, nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(getenv func(string) string, key string, fallback int) int {
	v := getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(getenv func(string) string, key string, fallback bool) bool {
	v := getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
