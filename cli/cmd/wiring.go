package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/forge-engine/forge/api"
	"github.com/forge-engine/forge/audit"
	"github.com/forge-engine/forge/config"
	"github.com/forge-engine/forge/corelog"
	"github.com/forge-engine/forge/data"
	"github.com/forge-engine/forge/dylib"
	"github.com/forge-engine/forge/extension"
	"github.com/forge-engine/forge/host"
	"github.com/forge-engine/forge/notify"
	"github.com/forge-engine/forge/notify/redis"
	"github.com/forge-engine/forge/notify/webhook"
	"github.com/forge-engine/forge/reclaim"
	"github.com/forge-engine/forge/telemetry"
)

// assembled bundles everything buildHost wires up, so callers (run, stats)
// can reach the pieces config alone can't expose (e.g. the telemetry
// collector for the stats dashboard).
type assembled struct {
	Config    *config.Config
	Host      *host.Host
	Telemetry *telemetry.Collector
}

func buildHost(c *cli.Context) (*assembled, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := corelog.New(corelog.RunContext{RunEpoch: epochFromPID(), Host: "forge"})
	collector := telemetry.NewCollector()

	sinks := buildNotifySinks(cfg)
	trail, err := buildAuditTrail(cfg)
	if err != nil {
		return nil, err
	}

	apiRegistry := api.New(nil)

	dataOpts := []data.Option{data.WithCapacity(cfg.DataRegistry.Capacity)}
	if factory := reclaimFactory(cfg.Reclaim); factory != nil {
		dataOpts = append(dataOpts, data.WithPolicyFactory(factory))
	}
	dataRegistry := data.NewRegistry(dataOpts...)

	appDir := c.String("app-dir")
	appName := c.String("app-name")
	libDir := appDir
	transientDir := filepath.Join(appDir, ".transient")
	lockPath := filepath.Join(appDir, "lock.tmp")

	loader := dylib.New(dylib.Config{})

	extOpts := []extension.Option{
		extension.WithNotifySink(sinks),
		extension.WithAuditTrail(trail),
		extension.WithTelemetry(collector),
		extension.WithRunEpoch(epochFromPID()),
	}
	if watcher, err := dylib.NewWatcher(); err == nil {
		extOpts = append(extOpts, extension.WithWatcher(watcher))
	}

	extRegistry := extension.NewRegistry(apiRegistry, loader, libDir, transientDir, lockPath, extOpts...)

	h := host.New(apiRegistry, dataRegistry, extRegistry, loader, logger, appDir, appName)

	return &assembled{Config: cfg, Host: h, Telemetry: collector}, nil
}

func buildNotifySinks(cfg *config.Config) notify.Sink {
	var sinks []notify.Sink
	if cfg.Notify.Webhook != nil {
		s, err := webhook.New(webhook.Config{
			URL:     cfg.Notify.Webhook.URL,
			Headers: cfg.Notify.Webhook.Headers,
			Timeout: cfg.Notify.Webhook.Timeout.Duration,
			Retries: cfg.Notify.Webhook.Retries,
		})
		if err == nil {
			sinks = append(sinks, s)
		}
	}
	if cfg.Notify.Redis != nil {
		s, err := redis.New(redis.Config{
			URL:     cfg.Notify.Redis.URL,
			Channel: cfg.Notify.Redis.Channel,
			Timeout: cfg.Notify.Redis.Timeout.Duration,
			Retries: cfg.Notify.Redis.Retries,
		})
		if err == nil {
			sinks = append(sinks, s)
		}
	}
	if len(sinks) == 0 {
		return notify.Noop{}
	}
	return notify.NewFanout(sinks...)
}

func buildAuditTrail(cfg *config.Config) (audit.Trail, error) {
	switch {
	case cfg.Audit.File != nil:
		return audit.NewFileTrail(cfg.Audit.File.Dir)
	case cfg.Audit.S3 != nil:
		return nil, fmt.Errorf("S3 audit trail requires a context-aware constructor; configure it programmatically")
	default:
		return audit.Noop{}, nil
	}
}

func reclaimFactory(cfg config.ReclaimConfig) func(reclaim.RetireFunc) reclaim.Policy {
	switch cfg.Strategy {
	case "buffered":
		return func(onRetire reclaim.RetireFunc) reclaim.Policy {
			return reclaim.NewBuffered(cfg.MaxQueueDepth, cfg.MaxBytes, onRetire)
		}
	case "streaming":
		return func(onRetire reclaim.RetireFunc) reclaim.Policy {
			return reclaim.NewStreaming(cfg.Interval.Duration, onRetire)
		}
	case "noop":
		return func(onRetire reclaim.RetireFunc) reclaim.Policy {
			return reclaim.NewNoop()
		}
	default:
		return nil // data.NewRegistry defaults to Strict
	}
}

// epochFromPID stands in for a monotonically increasing run identifier;
// real deployments would persist and increment this across restarts.
func epochFromPID() int64 {
	return int64(processID())
}
