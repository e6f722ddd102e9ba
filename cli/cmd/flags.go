// Package cmd provides the CLI subcommands for the forge binary.
package cmd

import "github.com/urfave/cli/v2"

// ConfigFlag names the forge.yaml path every subcommand reads from.
var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "Path to forge.yaml",
	Value:   "forge.yaml",
}

// AppDirFlag names the directory the host and its extensions' shared
// libraries live in.
var AppDirFlag = &cli.StringFlag{
	Name:  "app-dir",
	Usage: "Directory containing the application and extension libraries",
	Value: ".",
}

// AppNameFlag names the application library (without platform suffix).
var AppNameFlag = &cli.StringFlag{
	Name:  "app-name",
	Usage: "Application library base name",
	Value: "app",
}

// MetricsAddrFlag gates the Prometheus /metrics HTTP endpoint. Empty
// (the default) means no metrics server is started.
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Usage: "Address to serve Prometheus /metrics on (empty disables it)",
	Value: "",
}

// CommonFlags returns the flags shared by every subcommand that loads a
// host configuration.
func CommonFlags() []cli.Flag {
	return []cli.Flag{ConfigFlag, AppDirFlag, AppNameFlag}
}

// RunFlags returns CommonFlags plus the flags only `run` supports.
func RunFlags() []cli.Flag {
	return append(CommonFlags(), MetricsAddrFlag)
}
