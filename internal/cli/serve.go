package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"MetalSentinel/internal/notifier"
	"MetalSentinel/internal/scheduler"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCMD = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot with scheduled refresh and forecast digests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.ValidateServe(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
		zap.L().Info("MetalSentinel starting")

		// Context for graceful shutdown
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

		sched := scheduler.NewScheduler(ctx, a.service, tn, a.recorder, cfg.Forecast.DigestDays)
		if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.DigestCron); err != nil {
			return fmt.Errorf("register cron tasks: %w", err)
		}

		// Models must exist before the first command arrives; a failed initial load is
		// retried by the refresh job.
		if err := sched.RunRefreshNow(); err != nil {
			zap.L().Error("initial refresh failed", zap.Error(err))
		}

		sched.Start()
		defer sched.Stop()

		go tn.StartPolling(ctx, sched.HandleCommand)
		zap.L().Info("MetalSentinel is running, press Ctrl+C to stop")

		<-ctx.Done()
		zap.L().Info("shutdown signal received, stopping")
		return nil
	},
}
