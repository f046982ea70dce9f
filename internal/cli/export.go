package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nuno18084/Ampflux-sub000/pkg/render"
	"github.com/nuno18084/Ampflux-sub000/pkg/schematic"
)

// exportCommand creates the "export" command.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		format   string
		out      string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "export <snapshot.json>",
		Short: "Convert a snapshot file to DOT or SVG",
		Long:  `Export reads a saved diagram snapshot and writes a Graphviz rendering of it. Components stay pinned at their canvas positions.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			snap, err := schematic.UnmarshalSnapshot(data)
			if err != nil {
				return fmt.Errorf("parse snapshot: %w", err)
			}

			dot := render.ToDOT(snap, render.Options{Detailed: detailed})

			var output []byte
			switch format {
			case "dot":
				output = []byte(dot)
			case "svg":
				output, err = render.SVG(dot)
				if err != nil {
					return fmt.Errorf("render svg: %w", err)
				}
			default:
				return fmt.Errorf("unknown format %q (want dot or svg)", format)
			}

			if out == "" {
				base := strings.TrimSuffix(args[0], filepath.Ext(args[0]))
				out = base + "." + format
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(output)
				return err
			}
			if err := os.WriteFile(out, output, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			printSuccess("Exported %d components, %d connections", len(snap.Components), len(snap.Connections))
			printFile(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: dot or svg")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default: input name with new extension, - for stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include kind and properties in node labels")
	return cmd
}
