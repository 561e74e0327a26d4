package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/naka-gawa/activity-stats/internal/domain"
	"github.com/naka-gawa/activity-stats/internal/gateway"
	"github.com/naka-gawa/activity-stats/internal/usecase"
)

const (
	defaultAddr         = "127.0.0.1:8080"
	defaultFetchTimeout = gateway.DefaultTimeout
	defaultCORSOrigin   = "*"
)

// appConfig is the runtime configuration shared by every command.
type appConfig struct {
	Addr         string        `mapstructure:"addr"`
	TargetsFile  string        `mapstructure:"targets-file"`
	FetchTimeout time.Duration `mapstructure:"fetch-timeout"`
	Strict       bool          `mapstructure:"strict"`
	CORSOrigin   string        `mapstructure:"cors-origin"`
	UserAgent    string        `mapstructure:"user-agent"`
	Verbose      bool          `mapstructure:"verbose"`
}

// loadConfig merges defaults, the optional config file, ACTIVITY_* environment
// variables and the command's flags, in increasing order of precedence.
func loadConfig(cmd *cobra.Command) (appConfig, error) {
	var cfg appConfig

	v := viper.New()
	v.SetEnvPrefix("ACTIVITY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", defaultAddr)
	v.SetDefault("targets-file", "")
	v.SetDefault("fetch-timeout", defaultFetchTimeout)
	v.SetDefault("strict", false)
	v.SetDefault("cors-origin", defaultCORSOrigin)
	v.SetDefault("user-agent", gateway.DefaultUserAgent)
	v.SetDefault("verbose", false)

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return cfg, fmt.Errorf("binding flags: %w", err)
	}

	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("activity-stats")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "activity-stats"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &configFileNotFound) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.FetchTimeout <= 0 {
		return cfg, fmt.Errorf("invalid fetch-timeout: %s", cfg.FetchTimeout)
	}
	return cfg, nil
}

// loadRegistry returns the targets file registry, or the built-in one.
func loadRegistry(cfg appConfig) (*domain.Registry, error) {
	if cfg.TargetsFile == "" {
		return domain.DefaultRegistry(), nil
	}
	return domain.LoadRegistry(cfg.TargetsFile)
}

// newAggregator wires the shared HTTP gateway into the fan-out use case.
func newAggregator(cfg appConfig, logger *zap.Logger) (*usecase.Aggregator, error) {
	gw, err := gateway.NewHTTPGateway(gateway.Options{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
	}, logger.Named("gateway"))
	if err != nil {
		return nil, fmt.Errorf("failed to create http gateway: %w", err)
	}
	return usecase.NewAggregator(gw, logger.Named("aggregator"), usecase.WithFetchTimeout(cfg.FetchTimeout)), nil
}

// newLogger returns a production logger for long-running commands, or a
// development logger on stderr when verbose. quiet discards everything
// unless verbose is set.
func newLogger(verbose, quiet bool) (*zap.Logger, error) {
	switch {
	case verbose:
		return zap.NewDevelopment()
	case quiet:
		return zap.NewNop(), nil
	default:
		return zap.NewProduction()
	}
}
