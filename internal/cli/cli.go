// Package cli implements the linlog command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/linlog/internal/config"
	"github.com/matzehuels/linlog/pkg/buildinfo"
	"github.com/matzehuels/linlog/pkg/cache"
	"github.com/matzehuels/linlog/pkg/pipeline"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
	cfg        config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Config returns the loaded configuration.
func (c *CLI) Config() config.Config { return c.cfg }

// RootCommand creates the root cobra command with all subcommands registered.
// The config file is loaded before any subcommand runs; flags given on the
// command line override it.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "linlog",
		Short: "linlog lays out and clusters weighted graphs",
		Long: `linlog computes LinLog force-directed layouts of weighted graphs and
groups their nodes into clusters of high modularity.

Graphs are read from JSON or CSV edge lists. Layouts are written as JSON or
Graphviz DOT with pinned positions. 'linlog serve' exposes the same engine
over HTTP, including live sessions that relayout as edges arrive.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/linlog/config.toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.clusterCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner on the configured cache. A cache that
// cannot be opened is logged and replaced by no cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) *pipeline.Runner {
	var store cache.Cache = cache.NewNullCache()
	if !noCache {
		opened, err := cache.Open(ctx, c.cfg.Cache)
		if err != nil {
			c.Logger.Warn("cache disabled", "err", err)
		} else {
			store = opened
		}
	}
	return pipeline.NewRunner(store, nil, c.Logger)
}

// fileCache opens the configured file cache directory.
func (c *CLI) fileCache() (*cache.FileCache, error) {
	if c.cfg.Cache.Dir == "" {
		return nil, fmt.Errorf("no cache directory configured")
	}
	return cache.NewFileCache(c.cfg.Cache.Dir)
}
