package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/naka-gawa/activity-stats/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the combined activity report over HTTP",
	Long: `Starts an HTTP server. GET / gathers activity from every configured
target concurrently and returns {"<name>": <count|null|-1>, ...}.
GET /summary returns aggregate statistics, GET /healthz a liveness probe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Verbose, false)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync() //nolint:errcheck

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return runServe(ctx, cfg, logger)
	},
}

func runServe(ctx context.Context, cfg appConfig, logger *zap.Logger) error {
	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	aggregator, err := newAggregator(cfg, logger)
	if err != nil {
		return err
	}

	// Request logging goes through zap; gin's debug output would land on stdout.
	gin.SetMode(gin.ReleaseMode)
	srv := server.NewServer(server.Config{
		Addr:       cfg.Addr,
		Strict:     cfg.Strict,
		CORSOrigin: cfg.CORSOrigin,
	}, registry, aggregator, logger.Named("http"))
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}
	logger.Info("activity-stats serving",
		zap.String("addr", srv.Addr()),
		zap.Strings("targets", registry.Names()),
		zap.Duration("fetch_timeout", cfg.FetchTimeout),
		zap.Bool("strict", cfg.Strict),
	)

	<-ctx.Done()
	logger.Info("activity-stats shutting down")
	return srv.Stop()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd.Flags())
}

func addServeFlags(fs *pflag.FlagSet) {
	fs.StringP("addr", "a", defaultAddr, "Address to listen on")
	fs.String("cors-origin", defaultCORSOrigin, "Value of Access-Control-Allow-Origin")
}
