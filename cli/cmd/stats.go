package cmd

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/forge-engine/forge/internal/tui"
	"github.com/forge-engine/forge/telemetry"
)

// dashboardSource adapts an assembled host + collector to tui.Source.
type dashboardSource struct {
	asm *assembled
}

func (d dashboardSource) TelemetrySnapshot() telemetry.Snapshot {
	return d.asm.Telemetry.Snapshot()
}

func (d dashboardSource) ExtensionNames() []string {
	return d.asm.Host.Extensions.Names()
}

func (d dashboardSource) ExtensionLoaded(name string) bool {
	return d.asm.Host.Extensions.Loaded(name)
}

// StatsCommand launches the Bubble Tea dashboard against a freshly
// started host instance: it loads the configured extensions and
// application, drives the frame loop in the background at the engine's
// normal rate, and polls telemetry counters into a live view. There is
// no attach-to-a-running-process mode; stats always starts its own
// host, the same way run does.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Launch a live dashboard of frame rate, object counts, and extension state",
		Flags: CommonFlags(),
		Action: func(c *cli.Context) error {
			asm, err := buildHost(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			h := asm.Host
			if err := h.PublishSingletons(); err != nil {
				return cli.Exit(err.Error(), 1)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			for _, ext := range asm.Config.Extensions {
				_ = h.Extensions.Load(ctx, ext.Name, ext.LoadSymbol, ext.UnloadSymbol, ext.Reloadable)
			}
			h.Extensions.StartWatching(ctx)
			if h.AppLibraryExists() {
				if err := h.LoadApplication(ctx); err != nil {
					return cli.Exit(err.Error(), 1)
				}
			}

			done := make(chan struct{})
			go func() {
				defer close(done)
				ticker := time.NewTicker(frameInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						_ = h.Tick(ctx, frameInterval.Seconds())
					}
				}
			}()

			err = tui.Run(dashboardSource{asm: asm})
			cancel()
			<-done
			_ = h.Shutdown(context.Background())
			return err
		},
	}
}
