package main

import (
	"context"
	"os"

	"github.com/paularlott/cli"
	"github.com/paularlott/cli/env"

	"github.com/martinsuchenak/netcanvas/cmd/network"
	"github.com/martinsuchenak/netcanvas/cmd/server"
	"github.com/martinsuchenak/netcanvas/cmd/snapshot"
	"github.com/martinsuchenak/netcanvas/internal/config"
	"github.com/martinsuchenak/netcanvas/internal/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Load .env file if it exists
	env.Load()

	log.Configure("info", log.DefaultFormat(os.Stderr))

	rootCmd := &cli.Command{
		Name:        "netcanvas",
		Version:     version,
		Usage:       "Network topology designer with MCP server support",
		Description: "Model hosts, switches, cables, groups, VLANs and addressing as a topology graph served over HTTP and MCP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:         "log-level",
				Usage:        "Log level (trace, debug, info, warn, error)",
				DefaultValue: "info",
				EnvVars:      []string{config.EnvPrefix + "LOG_LEVEL"},
				Global:       true,
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (console, json); defaults to console on a terminal",
				EnvVars: []string{config.EnvPrefix + "LOG_FORMAT"},
				Global:  true,
			},
		},
		PreRun: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logFormat := cmd.GetString("log-format")
			if logFormat == "" {
				logFormat = log.DefaultFormat(os.Stderr)
			}
			log.Configure(cmd.GetString("log-level"), logFormat)
			log.Debug("netcanvas starting", "version", version, "commit", commit, "date", date)
			return ctx, nil
		},
		Commands: []*cli.Command{
			server.Command(),
			{
				Name:        "snapshot",
				Usage:       "Snapshot commands",
				Description: "Export and verify the stored topology",
				Commands:    snapshot.Commands(),
			},
			{
				Name:        "network",
				Usage:       "Network planning commands",
				Description: "Inspect and merge CIDR blocks",
				Commands:    network.Commands(),
			},
		},
	}

	if err := rootCmd.Execute(context.Background()); err != nil {
		log.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
