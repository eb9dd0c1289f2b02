package network

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/EvilSuperstars/go-cidrman"
	"github.com/dustin/go-humanize"
	"github.com/paularlott/cli"

	"github.com/martinsuchenak/netcanvas/internal/ipam"
)

// PlanCommand prints the addressing facts of a network
func PlanCommand() *cli.Command {
	return &cli.Command{
		Name:        "plan",
		Usage:       "Show the usable range of a network",
		Description: "Print the version, usable host count and address range of a CIDR block",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "cidr",
				Usage:    "Network in CIDR notation (e.g., 10.0.0.0/24)",
				Required: true,
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			return plan(os.Stdout, cmd.GetString("cidr"))
		},
	}
}

// MergeCommand collapses a list of networks into covering prefixes
func MergeCommand() *cli.Command {
	return &cli.Command{
		Name:        "merge",
		Usage:       "Merge networks into the fewest covering prefixes",
		Description: "Collapse adjacent and overlapping CIDR blocks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "cidrs",
				Usage:    "Comma separated networks",
				Required: true,
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			return merge(os.Stdout, cmd.GetString("cidrs"))
		},
	}
}

func plan(w io.Writer, cidr string) error {
	n, err := ipam.ParseCIDR(cidr)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Network: %s\n", n)
	fmt.Fprintf(w, "Version: IPv%d\n", int(n.Version()))
	fmt.Fprintf(w, "Usable hosts: %s\n", humanize.BigComma(n.Size()))

	first, ok := n.PeekFree()
	last, _ := n.LastUsable()
	if !ok {
		fmt.Fprintln(w, "Range: none")
		return nil
	}
	fmt.Fprintf(w, "Range: %s - %s\n", first, last)
	return nil
}

func merge(w io.Writer, list string) error {
	var cidrs []string
	for _, c := range strings.Split(list, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cidrs = append(cidrs, c)
		}
	}
	if len(cidrs) == 0 {
		return fmt.Errorf("no networks given")
	}
	merged, err := cidrman.MergeCIDRs(cidrs)
	if err != nil {
		return fmt.Errorf("merging networks: %w", err)
	}
	for _, c := range merged {
		fmt.Fprintln(w, c)
	}
	return nil
}

func Commands() []*cli.Command {
	return []*cli.Command{
		PlanCommand(),
		MergeCommand(),
	}
}
