// Package config loads forge.yaml: the host's extension list, data
// registry sizing, reclamation strategy, and optional notify/audit/metrics
// backends.
package config

import (
	"fmt"
	"time"
)

// Config is the root of forge.yaml.
type Config struct {
	Extensions   []ExtensionConfig `yaml:"extensions"`
	DataRegistry DataRegistryConfig `yaml:"data_registry"`
	Reclaim      ReclaimConfig     `yaml:"reclaim"`
	Notify       NotifyConfig      `yaml:"notify"`
	Audit        AuditConfig       `yaml:"audit"`
	Metrics      MetricsConfig     `yaml:"metrics"`
}

// ExtensionConfig names one extension the host loads at startup.
type ExtensionConfig struct {
	Name         string `yaml:"name"`
	LoadSymbol   string `yaml:"load_symbol,omitempty"`
	UnloadSymbol string `yaml:"unload_symbol,omitempty"`
	Reloadable   bool   `yaml:"reloadable"`
}

// DataRegistryConfig sizes the Data Registry's fixed id pool.
type DataRegistryConfig struct {
	Capacity int `yaml:"capacity"`
}

// ReclaimConfig selects and configures the reclamation policy.
type ReclaimConfig struct {
	Strategy       string   `yaml:"strategy"` // "strict" (default), "buffered", "streaming", "noop"
	MaxQueueDepth  int      `yaml:"max_queue_depth,omitempty"`
	MaxBytes       int64    `yaml:"max_bytes,omitempty"`
	Interval       Duration `yaml:"interval,omitempty"`
}

// NotifyConfig configures zero or more lifecycle event sinks.
type NotifyConfig struct {
	Webhook *WebhookConfig `yaml:"webhook,omitempty"`
	Redis   *RedisConfig   `yaml:"redis,omitempty"`
}

// WebhookConfig mirrors notify/webhook.Config.
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries int               `yaml:"retries,omitempty"`
}

// RedisConfig mirrors notify/redis.Config.
type RedisConfig struct {
	URL     string   `yaml:"url"`
	Channel string   `yaml:"channel,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
	Retries int      `yaml:"retries,omitempty"`
}

// AuditConfig configures the audit trail backend. At most one of File or
// S3 should be set; File wins if both are.
type AuditConfig struct {
	File *FileAuditConfig `yaml:"file,omitempty"`
	S3   *S3AuditConfig   `yaml:"s3,omitempty"`
}

// FileAuditConfig configures audit.FileTrail.
type FileAuditConfig struct {
	Dir string `yaml:"dir"`
}

// S3AuditConfig mirrors audit.S3Config.
type S3AuditConfig struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix,omitempty"`
	Region       string `yaml:"region,omitempty"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	UsePathStyle bool   `yaml:"use_path_style,omitempty"`
}

// MetricsConfig gates the optional Prometheus exposition surface. Off by
// default, consistent with the core's "no networking" non-goal: metrics
// HTTP exposition is opt-in tooling, never required to run the host.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
