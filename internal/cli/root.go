// Package cli holds the metalsentinel command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"MetalSentinel/internal/collector"
	"MetalSentinel/internal/config"
	"MetalSentinel/internal/dashboard"
	"MetalSentinel/internal/engine"
	"MetalSentinel/internal/logger"
	"MetalSentinel/internal/recorder"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgPath string
	envPath string
	cfg     *config.Config
	flushFn func()
)

var rootCMD = &cobra.Command{
	Use:   "metalsentinel",
	Short: "Gold and silver price analytics and forecasting",
	Long: `MetalSentinel loads daily gold, silver and USD/INR history, reports monthly and
yearly price movements, and forecasts prices with a trend + seasonality model.
Run "serve" for the Telegram bot, or use the query commands from a terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(cfgPath, envPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
		flushFn, err = logger.Init(cfg.Log)
		return err
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if flushFn != nil {
			flushFn()
		}
	},
}

// Execute runs the command tree.
func Execute() {
	if err := rootCMD.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	rootCMD.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultCfg, "path to the YAML config file")
	rootCMD.PersistentFlags().StringVar(&envPath, "env", ".env", "optional .env file")
	rootCMD.AddCommand(serveCMD, predictCMD, monthlyCMD, yearlyCMD, forecastCMD, runsCMD)
}

// app is the wired dependency graph shared by all commands.
type app struct {
	service  *dashboard.Service
	recorder recorder.Recorder
	store    collector.Store
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		zap.L().Warn("close recorder", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		zap.L().Warn("close cache store", zap.Error(err))
	}
}

func newFetcher(c *config.Config) collector.Fetcher {
	switch c.DataSource.Provider {
	case config.ProviderREST:
		return collector.NewRESTFetcher(c.DataSource.BaseURL, c.DataSource.APIKey, c.Proxy, c.DataSource.Timeout)
	case config.ProviderMock:
		return &collector.MockFetcher{Price: 2000, Days: 3 * 365}
	}
	return collector.NewYahooFetcher(c.Proxy, c.DataSource.Timeout)
}

func newStore(ctx context.Context, c *config.Config) collector.Store {
	if c.Redis.Addr == "" {
		return collector.NewMemoryStore()
	}
	store, err := collector.NewRedisStore(ctx, c.Redis.Addr, c.Redis.Password, c.Redis.DB)
	if err != nil {
		zap.L().Warn("redis unavailable, caching in memory", zap.String("addr", c.Redis.Addr), zap.Error(err))
		return collector.NewMemoryStore()
	}
	zap.L().Info("redis cache connected", zap.String("addr", c.Redis.Addr))
	return store
}

func newRecorder(c *config.Config) recorder.Recorder {
	if c.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(c.Database.SQLitePath)
	if err != nil {
		zap.L().Warn("init sqlite recorder failed, using noop", zap.Error(err))
		return recorder.NewNoopRecorder()
	}
	return sr
}

func buildApp(ctx context.Context, c *config.Config) (*app, error) {
	start, err := c.Start()
	if err != nil {
		return nil, err
	}
	fetcher := newFetcher(c)
	store := newStore(ctx, c)
	cached := collector.NewCachedFetcher(fetcher, store, c.Redis.TTL)
	zap.L().Info("data source", zap.String("provider", cached.Name()))

	rec := newRecorder(c)
	eng := engine.NewEngine(c.Forecast.Options, c.Forecast.TrainTimeout)
	svc := dashboard.NewService(collector.NewCollector(cached), eng, rec, dashboard.Instruments{
		Gold:     c.Instruments.Gold,
		Silver:   c.Instruments.Silver,
		FX:       c.Instruments.FX,
		Currency: c.Instruments.Currency,
		Grams:    c.Instruments.Grams,
	}, start)
	return &app{service: svc, recorder: rec, store: store}, nil
}
