package cli

import (
	"context"
	"fmt"
	"strconv"

	"MetalSentinel/internal/model"
	"MetalSentinel/internal/notifier"
	"MetalSentinel/internal/scheduler"

	"github.com/spf13/cobra"
)

// withApp builds the dependency graph for a one-shot query and prints its result.
func withApp(cmd *cobra.Command, run func(ctx context.Context, a *app) (string, error)) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	out, err := run(ctx, a)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), notifier.PlainText(out))
	return nil
}

var predictCMD = &cobra.Command{
	Use:   "predict YYYY-MM-DD",
	Short: "Predict gold and silver prices for a date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := model.ParseDate(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) (string, error) {
			p, err := a.service.PredictDate(ctx, date)
			if err != nil {
				return "", err
			}
			return notifier.FormatPrediction(p), nil
		})
	},
}

var monthlyCMD = &cobra.Command{
	Use:   "monthly MONTH YEAR",
	Short: "Show start, end, change, high and low for a month",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		month, err := model.ParseMonth(args[0])
		if err != nil {
			return err
		}
		year, err := scheduler.ParseYear(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) (string, error) {
			r, err := a.service.Monthly(ctx, month, year)
			if err != nil {
				return "", err
			}
			return notifier.FormatMonthlyStats(r), nil
		})
	},
}

var yearlyCMD = &cobra.Command{
	Use:   "yearly YEAR",
	Short: "Show month-by-month price changes for a year",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := scheduler.ParseYear(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) (string, error) {
			reports, err := a.service.Yearly(ctx, year)
			if err != nil {
				return "", err
			}
			return notifier.FormatYearlyReport(year, reports), nil
		})
	},
}

var forecastCMD = &cobra.Command{
	Use:   "forecast [DAYS]",
	Short: "Forecast the next DAYS days (default 30)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days := 30
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return &model.RangeError{Field: "days", Value: args[0], Reason: "not a number"}
			}
			days = n
		}
		record, _ := cmd.Flags().GetBool("record")
		return withApp(cmd, func(ctx context.Context, a *app) (string, error) {
			fcs, err := a.service.Forecast(ctx, days)
			if err != nil {
				return "", err
			}
			if record {
				if err := a.service.RecordForecasts(fcs); err != nil {
					return "", err
				}
			}
			return notifier.FormatForecastSummary(fcs), nil
		})
	},
}

var runsCMD = &cobra.Command{
	Use:   "runs [SYMBOL]",
	Short: "List recent model training runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := ""
		if len(args) == 1 {
			symbol = args[0]
		}
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd, func(_ context.Context, a *app) (string, error) {
			runs, err := a.recorder.RecentRuns(symbol, limit)
			if err != nil {
				return "", err
			}
			return notifier.FormatRuns(runs), nil
		})
	},
}

func init() {
	forecastCMD.Flags().Bool("record", false, "store the forecast in the database")
	runsCMD.Flags().Int("limit", 10, "maximum number of runs to list")
}
