package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/forge-engine/forge/ioloop"
	"github.com/forge-engine/forge/replay"
)

// ReplayCommand feeds a previously recorded stream into a host instance's
// ioloop in place of a live platform backend, one Tick per recorded
// input event, for deterministic reload/input testing.
func ReplayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Feed a recorded input/lifecycle stream into a host instance",
		ArgsUsage: "<file>",
		Flags:     CommonFlags(),
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("replay requires a recorded file path", 1)
			}

			f, err := os.Open(path)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			defer f.Close()

			asm, err := buildHost(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			h := asm.Host
			if err := h.PublishSingletons(); err != nil {
				return cli.Exit(err.Error(), 1)
			}

			ctx := context.Background()
			for _, ext := range asm.Config.Extensions {
				_ = h.Extensions.Load(ctx, ext.Name, ext.LoadSymbol, ext.UnloadSymbol, ext.Reloadable)
			}
			h.Extensions.StartWatching(ctx)
			if h.AppLibraryExists() {
				if err := h.LoadApplication(ctx); err != nil {
					return cli.Exit(err.Error(), 1)
				}
			}

			player := replay.NewPlayer(f)
			count := 0
			for {
				ev, err := player.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}

				if in, ok := ev.(ioloop.InputEvent); ok {
					h.IO.Replay(in)
					if err := h.Tick(ctx, frameInterval.Seconds()); err != nil {
						fmt.Fprintf(os.Stderr, "forge: tick error: %v\n", err)
					}
				}
				count++
			}

			fmt.Printf("replayed %d events from %s\n", count, path)
			return h.Shutdown(ctx)
		},
	}
}
