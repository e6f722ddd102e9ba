package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Version is the forge engine's release version, lockstep across the
// host and every core package.
const Version = "0.1.0"

// VersionCommand prints the engine version and commit.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			fmt.Printf("forge %s (commit: %s)\n", Version, commit)
			return nil
		},
	}
}
