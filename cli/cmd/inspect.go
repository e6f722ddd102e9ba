package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// InspectCommand dumps the configured settings for one extension by
// name. Like ListCommand, it inspects forge.yaml rather than a live
// process.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show configured details for one extension",
		ArgsUsage: "<name>",
		Flags:     []cli.Flag{ConfigFlag},
		Action: func(c *cli.Context) error {
			name := c.Args().First()
			if name == "" {
				return cli.Exit("inspect requires an extension name", 1)
			}
			cfg, err := loadConfigOnly(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			for _, ext := range cfg.Extensions {
				if ext.Name == name {
					fmt.Printf("name:          %s\n", ext.Name)
					fmt.Printf("reloadable:    %v\n", ext.Reloadable)
					fmt.Printf("load symbol:   %s\n", orDefault(ext.LoadSymbol, "LoadExt"))
					fmt.Printf("unload symbol: %s\n", orDefault(ext.UnloadSymbol, "UnloadExt"))
					return nil
				}
			}
			return cli.Exit(fmt.Sprintf("no extension named %q in config", name), 1)
		},
	}
}
