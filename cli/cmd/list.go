package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// ListCommand prints the extensions declared in forge.yaml and whether
// each participates in hot reload. It reads configuration only: there is
// no cross-process channel to a running `forge run` instance, so this
// reports declared, not live, state.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List extensions declared in the config file",
		Flags: []cli.Flag{ConfigFlag},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigOnly(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if len(cfg.Extensions) == 0 {
				fmt.Println("no extensions configured")
				return nil
			}
			for _, ext := range cfg.Extensions {
				fmt.Printf("%-24s reloadable=%-5v load=%s unload=%s\n",
					ext.Name, ext.Reloadable, orDefault(ext.LoadSymbol, "LoadExt"), orDefault(ext.UnloadSymbol, "UnloadExt"))
			}
			return nil
		},
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
