package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	graphio "github.com/matzehuels/linlog/pkg/io"
	"github.com/matzehuels/linlog/pkg/pipeline"
)

// Output formats of the layout command.
const (
	formatJSON = "json"
	formatDOT  = "dot"
)

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		format  string
		noCache bool
		scale   float64
		labels  bool
	)

	cmd := &cobra.Command{
		Use:   "layout [graph.json|edges.csv]",
		Short: "Compute a LinLog layout of a weighted graph",
		Long: `Compute a LinLog layout of a weighted graph.

The graph is read from JSON ({"nodes": [...], "edges": [...]}) or from a CSV
or TSV edge list (source,target[,weight]). The graph is symmetrized, laid out
by minimizing the LinLog energy and clustered by modularity. The result is
written as layout JSON or, with --format dot, as Graphviz DOT with pinned
positions (render with 'neato -n2').

Results are cached for runs with a fixed seed.`,
		Args: cobra.ExactArgs(1),
	}
	flags := newOptionFlags(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		opts := flags.resolve(c.cfg.Options())
		return c.runLayout(cmd.Context(), args[0], output, format, noCache, graphio.DOTOptions{Scale: scale, Labels: labels}, opts)
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json or .dot)")
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format: json, dot")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().Float64Var(&scale, "scale", 0, "DOT coordinate scale (default 100)")
	cmd.Flags().BoolVar(&labels, "labels", false, "DOT node labels")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input, output, format string, noCache bool, dot graphio.DOTOptions, opts pipeline.Options) error {
	if format != formatJSON && format != formatDOT {
		return fmt.Errorf("unknown format %q (want json or dot)", format)
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	g, err := graphio.ReadGraphFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	runner := c.newRunner(ctx, noCache)
	defer runner.Close()

	logger := loggerFromContext(ctx)
	prog := newProgress(logger)
	spinner := newSpinner(ctx, fmt.Sprintf("Laying out %d nodes...", g.NodeCount()))
	spinner.Start()

	res, cached, err := runner.ComputeLayout(ctx, g, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	prog.done("layout", "nodes", len(res.Nodes), "cached", cached)

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		if format == formatDOT {
			outputPath = base + ".dot"
		} else {
			outputPath = base + ".layout.json"
		}
	}

	l := res.Layout()
	switch format {
	case formatDOT:
		err = os.WriteFile(outputPath, []byte(graphio.ToDOT(l, dot)), 0o644)
	default:
		err = graphio.WriteLayoutFile(l, outputPath)
	}
	if err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(layoutStats{
		nodes:      len(res.Nodes),
		edges:      len(l.Edges),
		clusters:   res.Clusters.Count(),
		modularity: res.Modularity,
		cached:     cached,
	})
	if format == formatJSON {
		printNewline()
		printNextStep("Export to Graphviz", "linlog layout --format dot "+input)
	}
	return nil
}
