// ABOUTME: Long-running subcommands: MCP server, TUI, web UI and metrics
// ABOUTME: Each blocks until its context is cancelled or the session ends
package cli

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harperreed/grainbroker/contracts"
	"github.com/harperreed/grainbroker/handlers"
	"github.com/harperreed/grainbroker/logger"
	"github.com/harperreed/grainbroker/tui"
	"github.com/harperreed/grainbroker/web"
)

// MCPCommand starts the MCP server on stdio
func MCPCommand(ctx context.Context, svc *contracts.Service, log *logger.Logger, version string) error {
	log.Info("starting MCP server", "version", version)
	server := handlers.NewServer(svc, version)
	return server.Run(ctx, &mcp.StdioTransport{})
}

// TUICommand runs the full-screen contract browser.
func TUICommand(ctx context.Context, svc *contracts.Service) error {
	p := tea.NewProgram(tui.NewModel(ctx, svc), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// WebCommand serves the read-only web UI.
func WebCommand(ctx context.Context, svc *contracts.Service, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	port := fs.Int("port", 8080, "Port to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	server, err := web.NewServer(svc, log)
	if err != nil {
		return err
	}
	return server.Start(ctx, *port)
}

// MetricsHandler exposes gatherer in the Prometheus text format.
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// ServeMetrics serves /metrics on addr until ctx is done.
func ServeMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer, log *logger.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           MetricsHandler(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		log.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()
}
