package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qbridge/qbridge/pkg/format"
	"github.com/qbridge/qbridge/pkg/graph"
	"github.com/qbridge/qbridge/pkg/transpile"
)

// graphCommand creates the graph inspection command.
func (c *CLI) graphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect the conversion graph",
	}

	cmd.AddCommand(c.graphListCommand())
	cmd.AddCommand(c.graphCheckCommand())
	cmd.AddCommand(c.graphBrowseCommand())
	cmd.AddCommand(c.graphRenderCommand())

	return cmd
}

// graphListCommand creates the "graph list" subcommand.
func (c *CLI) graphListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered conversions",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := transpile.DefaultGraph()
			if err != nil {
				return err
			}

			printInfo("%d formats, %d conversions", g.NodeCount(), g.EdgeCount())
			for _, e := range g.Edges() {
				line := fmt.Sprintf("%s %s %s",
					StyleHighlight.Render(string(e.Source())),
					StyleDim.Render(iconArrow),
					StyleHighlight.Render(string(e.Target())))
				fmt.Println("  " + line)
			}
			return nil
		},
	}
}

// graphCheckCommand creates the "graph check" subcommand.
func (c *CLI) graphCheckCommand() *cobra.Command {
	var topN int

	cmd := &cobra.Command{
		Use:   "check [source] [target]",
		Short: "Check whether a conversion path exists between two formats",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := transpile.DefaultGraph()
			if err != nil {
				return err
			}
			return runGraphCheck(g, format.Format(args[0]), format.Format(args[1]), topN)
		},
	}

	cmd.Flags().IntVarP(&topN, "paths", "n", transpile.DefaultMaxPaths, "number of candidate paths to show")

	return cmd
}

func runGraphCheck(g *graph.ConversionGraph, source, target format.Format, topN int) error {
	if !g.HasPath(source, target) {
		printWarning("No conversion path from %s to %s", source, target)
		return nil
	}

	paths, err := g.TopPaths(source, target, topN)
	if err != nil {
		return err
	}

	printSuccess("%s is reachable from %s", target, source)
	for i, p := range paths {
		printDetail("%d. %s (%d steps)", i+1, p.String(), len(p))
	}
	return nil
}

// graphRenderCommand creates the "graph render" subcommand.
func (c *CLI) graphRenderCommand() *cobra.Command {
	var (
		output  string
		asDOT   bool
		weights bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the conversion graph as SVG or DOT",
		Long: `Render the conversion graph as SVG (via Graphviz) or raw DOT.

Example:

  qbridge graph render -o conversions.svg
  qbridge graph render --dot`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := transpile.DefaultGraph()
			if err != nil {
				return err
			}
			return c.runGraphRender(cmd.Context(), g, output, asDOT, weights)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&asDOT, "dot", false, "emit raw DOT instead of SVG")
	cmd.Flags().BoolVar(&weights, "weights", false, "label edges with declared weights")

	return cmd
}

func (c *CLI) runGraphRender(ctx context.Context, g *graph.ConversionGraph, output string, asDOT, weights bool) error {
	dot := graph.ToDOT(g, graph.DOTOptions{Weights: weights})

	var data []byte
	if asDOT {
		data = []byte(dot)
	} else {
		spinner := newSpinnerWithContext(ctx, "Rendering conversion graph...")
		spinner.Start()
		svg, err := graph.RenderSVG(dot)
		if err != nil {
			spinner.StopWithError(fmt.Sprintf("Render failed: %v", err))
			return err
		}
		spinner.Stop()
		data = svg
	}

	if output == "" {
		fmt.Println(strings.TrimRight(string(data), "\n"))
		return nil
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printSuccess("Rendered conversion graph")
	printFile(output)
	return nil
}
