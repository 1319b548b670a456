// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and VIBRA_* environment variables.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"runtime"
	"strings"
	"time"
)

// Model adapter kinds.
const (
	ModelKindFile   = "file"
	ModelKindRemote = "remote"
)

// Report store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CORSOrigins is a comma separated list of origins allowed to call the API.
	CORSOrigins string `koanf:"cors_origins"`

	// AccessLog enables Apache combined access logs on stdout.
	AccessLog bool `koanf:"access_log"`

	// ModelKind selects the classifier adapter: file or remote.
	ModelKind string `koanf:"model_kind"`

	// ModelPath is the serialized classifier loaded once at startup (file kind).
	ModelPath string `koanf:"model_path"`

	// ModelURL is the base URL of the inference sidecar (remote kind).
	ModelURL string `koanf:"model_url"`

	// ModelTimeoutMS bounds each call to the inference sidecar.
	ModelTimeoutMS int `koanf:"model_timeout_ms"`

	// MaxUploadBytes caps the accepted CSV size.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// ReportStore selects where analysis reports are kept: memory or redis.
	ReportStore string `koanf:"report_store"`

	// ReportTTLSeconds is how long a report stays retrievable.
	ReportTTLSeconds int `koanf:"report_ttl_seconds"`

	// MaxReports caps the in-memory store; oldest reports are evicted first.
	MaxReports int `koanf:"max_reports"`

	// MaxReportListLimit caps GET /api/v1/reports?limit.
	MaxReportListLimit int `koanf:"max_report_list_limit"`

	// Redis connection used when ReportStore is redis.
	RedisAddr     string `koanf:"redis_addr"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPassword string `koanf:"redis_password"`

	// NotifyQueueSize bounds the pending notification queue.
	NotifyQueueSize int `koanf:"notify_queue_size"`

	// NotifyWorkerCount sets the number of notification workers.
	NotifyWorkerCount int `koanf:"notify_worker_count"`

	// DedupeSize sets how many upload digests are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// KafkaBrokers is a comma separated broker list; empty disables alert publishing.
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`

	// Archive (S3 compatible) for raw uploads; empty endpoint disables archiving.
	ArchiveEndpoint  string `koanf:"archive_endpoint"`
	ArchiveBucket    string `koanf:"archive_bucket"`
	ArchiveAccessKey string `koanf:"archive_access_key"`
	ArchiveSecretKey string `koanf:"archive_secret_key"`
	ArchiveUseSSL    bool   `koanf:"archive_use_ssl"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		ModelKind:          ModelKindFile,
		ModelPath:          "models/esp_failure_model_multi.yaml",
		ModelTimeoutMS:     5_000,
		MaxUploadBytes:     10 << 20,
		ReportStore:        StoreMemory,
		ReportTTLSeconds:   3_600,
		MaxReports:         1_000,
		MaxReportListLimit: 100,
		RedisAddr:          "localhost:6379",
		NotifyQueueSize:    1_024,
		NotifyWorkerCount:  runtime.NumCPU(),
		DedupeSize:         10_000,
		KafkaTopic:         "vibrapulse.alerts",
		ArchiveBucket:      "vibrapulse-uploads",
	}
}

// ModelTimeout returns ModelTimeoutMS as a duration.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutMS) * time.Millisecond
}

// ReportTTL returns ReportTTLSeconds as a duration.
func (c *Config) ReportTTL() time.Duration {
	return time.Duration(c.ReportTTLSeconds) * time.Second
}

// KafkaBrokerList splits KafkaBrokers, dropping blanks.
func (c *Config) KafkaBrokerList() []string { return splitList(c.KafkaBrokers) }

// CORSOriginList splits CORSOrigins, dropping blanks.
func (c *Config) CORSOriginList() []string { return splitList(c.CORSOrigins) }

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
