package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/forge-engine/forge/telemetry"
)

// frameInterval is the fixed tick period the run loop uses in the
// absence of a platform backend driving real frame pacing.
const frameInterval = time.Second / 60

// RunCommand starts the host loop: publish singletons, load every
// configured extension, load the application, then tick until a SIGINT
// or SIGTERM arrives or the application clears Running.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start the host main loop",
		Flags: RunFlags(),
		Action: func(c *cli.Context) error {
			asm, err := buildHost(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			h := asm.Host

			if err := h.PublishSingletons(); err != nil {
				return cli.Exit(err.Error(), 1)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if addr := metricsAddr(c, asm); addr != "" {
				srv := startMetricsServer(addr, asm.Telemetry)
				defer srv.Close()
			}

			for _, ext := range asm.Config.Extensions {
				if err := h.Extensions.Load(ctx, ext.Name, ext.LoadSymbol, ext.UnloadSymbol, ext.Reloadable); err != nil {
					fmt.Fprintf(os.Stderr, "forge: extension %q failed to load: %v\n", ext.Name, err)
				}
			}
			h.Extensions.StartWatching(ctx)

			if !h.AppLibraryExists() {
				return cli.Exit("no application library found in --app-dir", 1)
			}
			if err := h.LoadApplication(ctx); err != nil {
				return cli.Exit(err.Error(), 1)
			}

			ticker := time.NewTicker(frameInterval)
			defer ticker.Stop()

			for h.Running() {
				select {
				case <-ctx.Done():
					return h.Shutdown(context.Background())
				case <-ticker.C:
					if err := h.Tick(ctx, frameInterval.Seconds()); err != nil {
						fmt.Fprintf(os.Stderr, "forge: tick error: %v\n", err)
					}
				}
			}
			return h.Shutdown(context.Background())
		},
	}
}

// metricsAddr resolves the effective metrics listen address: the
// --metrics-addr flag takes precedence over forge.yaml's metrics.addr,
// matching the CLI-flags-override-config precedence the rest of the
// engine's wiring follows. Empty means disabled.
func metricsAddr(c *cli.Context, asm *assembled) string {
	if addr := c.String("metrics-addr"); addr != "" {
		return addr
	}
	return asm.Config.Metrics.Addr
}

// startMetricsServer serves a Prometheus /metrics endpoint over collector,
// off by default and only started when metricsAddr resolves non-empty.
// Listen errors are logged, not fatal: a broken metrics port should never
// take down the frame loop.
func startMetricsServer(addr string, collector *telemetry.Collector) *http.Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(telemetry.NewRegisterer(collector))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "forge: metrics server: %v\n", err)
		}
	}()
	return srv
}
