package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/netcanvas/internal/codec"
	"github.com/martinsuchenak/netcanvas/internal/errs"
	"github.com/martinsuchenak/netcanvas/internal/worker"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "NETCANVAS_"

// Config holds the application configuration
type Config struct {
	DataDir      string
	ListenAddr   string
	APIAuthToken string
	MCPAuthToken string

	GridWidth       int
	GridHeight      int
	ComponentMargin int
	LayoutEngine    string

	MirrorWorkers int
	MirrorQueue   int

	CheckpointSchedule string // cron spec; empty disables checkpoints
	CheckpointFormat   string // "json" or "yaml"

	SNMPCommunity string
	SNMPTimeout   time.Duration
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		DataDir:            "./data",
		ListenAddr:         ":8080",
		GridWidth:          200,
		GridHeight:         200,
		ComponentMargin:    1,
		LayoutEngine:       "grid",
		MirrorWorkers:      4,
		MirrorQueue:        256,
		CheckpointSchedule: "@hourly",
		CheckpointFormat:   "json",
		SNMPCommunity:      "public",
		SNMPTimeout:        5 * time.Second,
	}
}

func env(name string) []string {
	return []string{EnvPrefix + name}
}

// GetFlags returns the server flags. Each flag also reads its
// NETCANVAS_* environment variable; the .env file is loaded into the
// environment before flags are parsed.
func GetFlags() []cli.Flag {
	d := Defaults()
	return []cli.Flag{
		&cli.StringFlag{
			Name:         "data-dir",
			Usage:        "Directory holding the mirror database and checkpoints",
			DefaultValue: d.DataDir,
			EnvVars:      env("DATA_DIR"),
		},
		&cli.StringFlag{
			Name:         "listen-addr",
			Usage:        "HTTP listen address",
			DefaultValue: d.ListenAddr,
			EnvVars:      env("LISTEN_ADDR"),
		},
		&cli.StringFlag{
			Name:     "api-token",
			Usage:    "Bearer token required on /api requests",
			EnvVars:  env("API_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:     "mcp-token",
			Usage:    "Bearer token required on /mcp requests",
			EnvVars:  env("MCP_AUTH_TOKEN"),
		},
		&cli.IntFlag{
			Name:         "grid-width",
			Usage:        "Width of the global layer in grid units",
			DefaultValue: d.GridWidth,
			EnvVars:      env("GRID_WIDTH"),
		},
		&cli.IntFlag{
			Name:         "grid-height",
			Usage:        "Height of the global layer in grid units",
			DefaultValue: d.GridHeight,
			EnvVars:      env("GRID_HEIGHT"),
		},
		&cli.IntFlag{
			Name:         "component-margin",
			Usage:        "Margin added around components on sides with interfaces",
			DefaultValue: d.ComponentMargin,
			EnvVars:      env("COMPONENT_MARGIN"),
		},
		&cli.StringFlag{
			Name:         "layout-engine",
			Usage:        "Default layout engine",
			DefaultValue: d.LayoutEngine,
			EnvVars:      env("LAYOUT_ENGINE"),
		},
		&cli.IntFlag{
			Name:         "mirror-workers",
			Usage:        "Number of mirror writer workers",
			DefaultValue: d.MirrorWorkers,
			EnvVars:      env("MIRROR_WORKERS"),
		},
		&cli.IntFlag{
			Name:         "mirror-queue",
			Usage:        "Pending mirror writes per worker",
			DefaultValue: d.MirrorQueue,
			EnvVars:      env("MIRROR_QUEUE"),
		},
		&cli.StringFlag{
			Name:         "checkpoint-schedule",
			Usage:        "Cron schedule for snapshot checkpoints (empty to disable)",
			DefaultValue: d.CheckpointSchedule,
			EnvVars:      env("CHECKPOINT_SCHEDULE"),
		},
		&cli.StringFlag{
			Name:         "checkpoint-format",
			Usage:        "Checkpoint encoding (json, yaml)",
			DefaultValue: d.CheckpointFormat,
			EnvVars:      env("CHECKPOINT_FORMAT"),
		},
		&cli.StringFlag{
			Name:         "snmp-community",
			Usage:        "SNMP v2c community used by switch import",
			DefaultValue: d.SNMPCommunity,
			EnvVars:      env("SNMP_COMMUNITY"),
		},
		&cli.StringFlag{
			Name:         "snmp-timeout",
			Usage:        "SNMP request timeout",
			DefaultValue: d.SNMPTimeout.String(),
			EnvVars:      env("SNMP_TIMEOUT"),
		},
	}
}

// Flags is the part of *cli.Command Load reads from
type Flags interface {
	GetString(name string) string
	GetInt(name string) int
}

// Load assembles the configuration from the parsed server flags and
// validates it.
func Load(f Flags) (*Config, error) {
	cfg := Config{
		DataDir:            f.GetString("data-dir"),
		ListenAddr:         f.GetString("listen-addr"),
		APIAuthToken:       f.GetString("api-token"),
		MCPAuthToken:       f.GetString("mcp-token"),
		GridWidth:          f.GetInt("grid-width"),
		GridHeight:         f.GetInt("grid-height"),
		ComponentMargin:    f.GetInt("component-margin"),
		LayoutEngine:       f.GetString("layout-engine"),
		MirrorWorkers:      f.GetInt("mirror-workers"),
		MirrorQueue:        f.GetInt("mirror-queue"),
		CheckpointSchedule: strings.TrimSpace(f.GetString("checkpoint-schedule")),
		CheckpointFormat:   f.GetString("checkpoint-format"),
		SNMPCommunity:      f.GetString("snmp-community"),
	}
	raw := strings.TrimSpace(f.GetString("snmp-timeout"))
	timeout, err := time.ParseDuration(raw)
	if err != nil {
		return nil, errs.Invalidf("snmp timeout %q", raw)
	}
	cfg.SNMPTimeout = timeout
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var _ Flags = (*cli.Command)(nil)

// Validate checks value ranges and formats
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errs.Invalidf("empty data directory")
	}
	if c.GridWidth <= 0 || c.GridHeight <= 0 {
		return errs.Invalidf("grid %dx%d", c.GridWidth, c.GridHeight)
	}
	if c.ComponentMargin < 0 {
		return errs.Invalidf("component margin %d", c.ComponentMargin)
	}
	if c.MirrorWorkers < 1 || c.MirrorQueue < 1 {
		return errs.Invalidf("mirror workers %d, queue %d", c.MirrorWorkers, c.MirrorQueue)
	}
	if _, err := codec.ParseFormat(c.CheckpointFormat); err != nil {
		return err
	}
	if c.CheckpointSchedule != "" {
		if err := worker.ValidateSpec(c.CheckpointSchedule); err != nil {
			return err
		}
	}
	if c.SNMPTimeout <= 0 {
		return errs.Invalidf("snmp timeout %s", c.SNMPTimeout)
	}
	return nil
}

// IsAPIAuthEnabled checks if API authentication is configured
func (c *Config) IsAPIAuthEnabled() bool {
	return c.APIAuthToken != ""
}

// IsMCPEnabled checks if MCP authentication is configured
func (c *Config) IsMCPEnabled() bool {
	return c.MCPAuthToken != ""
}

// IsCheckpointEnabled reports whether scheduled checkpoints are on
func (c *Config) IsCheckpointEnabled() bool {
	return c.CheckpointSchedule != ""
}

// String returns a loggable summary without secrets
func (c *Config) String() string {
	return fmt.Sprintf("data_dir=%s listen_addr=%s grid=%dx%d layout=%s checkpoints=%q",
		c.DataDir, c.ListenAddr, c.GridWidth, c.GridHeight, c.LayoutEngine, c.CheckpointSchedule)
}
