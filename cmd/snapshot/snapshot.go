package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/netcanvas/internal/api"
	"github.com/martinsuchenak/netcanvas/internal/checkpoint"
	"github.com/martinsuchenak/netcanvas/internal/codec"
	"github.com/martinsuchenak/netcanvas/internal/config"
	"github.com/martinsuchenak/netcanvas/internal/geometry"
	"github.com/martinsuchenak/netcanvas/internal/mirror"
	"github.com/martinsuchenak/netcanvas/internal/topology"
)

func storeFlags() []cli.Flag {
	d := config.Defaults()
	return []cli.Flag{
		&cli.StringFlag{
			Name:         "data-dir",
			Usage:        "Directory holding the mirror database",
			DefaultValue: d.DataDir,
			EnvVars:      []string{config.EnvPrefix + "DATA_DIR"},
		},
		&cli.IntFlag{
			Name:         "grid-width",
			Usage:        "Canvas width in grid cells",
			DefaultValue: d.GridWidth,
			EnvVars:      []string{config.EnvPrefix + "GRID_WIDTH"},
		},
		&cli.IntFlag{
			Name:         "grid-height",
			Usage:        "Canvas height in grid cells",
			DefaultValue: d.GridHeight,
			EnvVars:      []string{config.EnvPrefix + "GRID_HEIGHT"},
		},
	}
}

// Load rebuilds the topology held in the mirror under dataDir without
// attaching a mirror, so nothing is written back.
func Load(ctx context.Context, dataDir string, grid geometry.Dimension) (*topology.Store, error) {
	if _, err := os.Stat(dataDir); err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	db, err := mirror.OpenSQLite(dataDir)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rec, err := db.Load(ctx)
	if err != nil {
		return nil, err
	}
	store := topology.New(topology.WithGrid(grid))
	if err := mirror.Rebuild(ctx, store, rec); err != nil {
		return nil, err
	}
	return store, nil
}

func loadFromFlags(ctx context.Context, cmd *cli.Command) (*topology.Store, error) {
	return Load(ctx, cmd.GetString("data-dir"), geometry.Dimension{
		Width:  cmd.GetInt("grid-width"),
		Height: cmd.GetInt("grid-height"),
	})
}

// ExportCommand writes the mirrored topology as a snapshot document
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:        "export",
		Usage:       "Export the stored topology",
		Description: "Rebuild the topology from the mirror database and write it as JSON or YAML",
		Flags: append(storeFlags(),
			&cli.StringFlag{
				Name:         "format",
				Usage:        "Output format: json or yaml",
				DefaultValue: "json",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Output file (defaults to stdout)",
			},
		),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			format, err := codec.ParseFormat(cmd.GetString("format"))
			if err != nil {
				return err
			}
			store, err := loadFromFlags(ctx, cmd)
			if err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			if out := cmd.GetString("out"); out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			return codec.Encode(w, format, store.Snapshot())
		},
	}
}

// VerifyCommand rebuilds the mirrored topology and reports what it holds
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:        "verify",
		Usage:       "Check the stored topology can be rebuilt",
		Description: "Rebuild the topology from the mirror database and print its entity counts and ETag",
		Flags:       storeFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			store, err := loadFromFlags(ctx, cmd)
			if err != nil {
				return fmt.Errorf("rebuild failed: %w", err)
			}
			body, err := codec.Marshal(codec.JSON, store.Snapshot())
			if err != nil {
				return err
			}
			return printReport(os.Stdout, store.Stats(), api.SnapshotETag(body))
		},
	}
}

// CheckpointCommand writes one checkpoint file immediately
func CheckpointCommand() *cli.Command {
	return &cli.Command{
		Name:        "checkpoint",
		Usage:       "Write a checkpoint now",
		Description: "Rebuild the topology from the mirror database and write it to the checkpoint directory",
		Flags: append(storeFlags(),
			&cli.StringFlag{
				Name:         "format",
				Usage:        "Checkpoint format: json or yaml",
				DefaultValue: "json",
			},
		),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			format, err := codec.ParseFormat(cmd.GetString("format"))
			if err != nil {
				return err
			}
			store, err := loadFromFlags(ctx, cmd)
			if err != nil {
				return err
			}
			path, err := checkpoint.NewWriter(cmd.GetString("data-dir"), format, checkpoint.DefaultKeep).Write(store.Snapshot())
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

func printReport(w io.Writer, st topology.Stats, etag string) error {
	_, err := fmt.Fprintf(w, "Components: %d\nInterfaces: %d\nCables: %d\nGroups: %d\nGroup switches: %d\nGroup interfaces: %d\nVirtual interfaces: %d\nVLANs: %d\nNetworks: %d\nETag: %s\n",
		st.Components, st.Interfaces, st.Cables, st.Groups, st.GroupSwitches,
		st.GroupInterfaces, st.VirtualInterfaces, st.VLANs, st.Networks, etag)
	return err
}

func Commands() []*cli.Command {
	return []*cli.Command{
		ExportCommand(),
		VerifyCommand(),
		CheckpointCommand(),
	}
}
