package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/forge-engine/forge/config"
)

func loadConfigOnly(c *cli.Context) (*config.Config, error) {
	return config.Load(c.String("config"))
}
