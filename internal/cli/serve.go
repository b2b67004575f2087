package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/matzehuels/linlog/pkg/api"
	"github.com/matzehuels/linlog/pkg/buildinfo"
	"github.com/matzehuels/linlog/pkg/observability"
	"github.com/matzehuels/linlog/pkg/session"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noCache   bool
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts and live sessions over HTTP",
		Long: `Serve layouts and live sessions over HTTP.

POST /v1/layout lays out a posted graph. POST /v1/sessions creates a live
session whose graph is edited through /v1/sessions/{id}/edits; each edit
batch triggers one relayout, pushed to clients of /v1/sessions/{id}/stream.
Prometheus metrics are served at /metrics.

Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := c.cfg.Server
			if cmd.Flags().Changed("addr") {
				srv.Addr = addr
			}
			if noMetrics {
				srv.Metrics = false
			}
			return c.runServe(cmd.Context(), srv.Addr, srv.Metrics, noCache)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the layout cache")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable /metrics")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, metrics, noCache bool) error {
	runner := c.newRunner(ctx, noCache)
	defer runner.Close()

	store := session.NewMemoryStore()
	defer store.Close()

	var metricsHandler http.Handler
	if metrics {
		collector := observability.NewCollector("linlog")
		collector.Install()
		defer observability.Reset()
		metricsHandler = collector.Handler()
	}

	srv := c.cfg.Server
	server := api.New(api.Config{
		Addr:            addr,
		Runner:          runner,
		Sessions:        store,
		Defaults:        c.cfg.Options(),
		SessionTTL:      srv.SessionTTL,
		CleanupInterval: srv.CleanupInterval,
		MaxBodyBytes:    srv.MaxBodyBytes,
		Metrics:         metricsHandler,
		Logger:          loggerFromContext(ctx),
	})

	fmt.Println(StyleTitle.Render("linlog " + buildinfo.Version))
	printSuccess("Serving on %s", StyleValue.Render(addr))
	printKeyValue("sessions", srv.SessionTTL.String()+" idle timeout")
	if metrics {
		printKeyValue("metrics", "/metrics")
	} else {
		printWarning("metrics disabled")
	}

	return server.ListenAndServe(ctx)
}
