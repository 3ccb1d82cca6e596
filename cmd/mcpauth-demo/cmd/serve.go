package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	serverauth "github.com/ArcadeAI/mcp-server-auth"
)

const shutdownTimeout = 10 * time.Second

var configFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the protected MCP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "mcpauth.yaml", "path to the configuration file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := LoadConfigFile(configFile)
	if err != nil {
		return err
	}

	if !verbose {
		level, err := logrus.ParseLevel(config.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", config.LogLevel, err)
		}
		log.SetLevel(level)
	}

	options := []serverauth.Option{
		serverauth.WithConfig(config.resourceConfig()),
		serverauth.WithLogger(serverauth.NewLogrusLogger(log)),
	}
	if config.Metrics {
		options = append(options,
			serverauth.WithMetrics(serverauth.NewPrometheusMetrics()),
			serverauth.WithExcludedPaths([]string{"/metrics"}),
		)
	}

	middleware, err := serverauth.New(options...)
	if err != nil {
		return fmt.Errorf("could not build auth middleware: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(
		newMCPServer(),
		server.WithEndpointPath("/mcp"),
	))
	if config.Metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	httpServer := &http.Server{
		Addr:    config.Address,
		Handler: middleware.Handler(mux),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"address":  config.Address,
			"resource": middleware.CanonicalURL(),
		}).Info("MCP resource server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
