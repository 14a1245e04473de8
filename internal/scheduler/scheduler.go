package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"MetalSentinel/internal/dashboard"
	"MetalSentinel/internal/model"
	"MetalSentinel/internal/notifier"
	"MetalSentinel/internal/recorder"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sender delivers messages to the chat.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks and answers chat commands.
type Scheduler struct {
	Cron       *cron.Cron
	Service    *dashboard.Service
	Notifier   Sender
	Recorder   recorder.Recorder
	DigestDays int
	Ctx        context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, svc *dashboard.Service, sender Sender, rec recorder.Recorder, digestDays int) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Service:    svc,
		Notifier:   sender,
		Recorder:   rec,
		DigestDays: digestDays,
		Ctx:        ctx,
	}
}

// RegisterAll registers the data refresh and forecast digest tasks.
func (s *Scheduler) RegisterAll(refreshCron, digestCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(digestCron, s.digestTask); err != nil {
		return fmt.Errorf("register digest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	zap.L().Info("scheduler started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	zap.L().Info("scheduler stopped")
}

// RunRefreshNow loads data and trains models immediately (startup / RUN_ON_START).
func (s *Scheduler) RunRefreshNow() error {
	return s.Service.Refresh(s.Ctx)
}

func (s *Scheduler) refreshTask() {
	zap.L().Info("running refresh task")
	if err := s.Service.Refresh(s.Ctx); err != nil {
		zap.L().Error("refresh failed", zap.Error(err))
		s.trySend("❌ Data refresh failed\n" + notifier.FormatError(err))
	}
}

func (s *Scheduler) digestTask() {
	zap.L().Info("running digest task", zap.Int("days", s.DigestDays))
	fcs, err := s.Service.Forecast(s.Ctx, s.DigestDays)
	if err != nil {
		zap.L().Error("digest forecast failed", zap.Error(err))
		s.trySend(notifier.FormatError(err))
		return
	}
	if err := s.Service.RecordForecasts(fcs); err != nil {
		zap.L().Error("record digest forecast", zap.Error(err))
	}
	s.trySend(notifier.FormatForecastSummary(fcs))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	name := strings.ToLower(fields[0])
	if i := strings.Index(name, "@"); i > 0 {
		name = name[:i] // "/predict@MetalSentinelBot"
	}
	args := fields[1:]

	reply, err := s.dispatch(ctx, name, args)
	if err != nil {
		zap.L().Warn("command failed", zap.String("command", command), zap.Error(err))
		return notifier.FormatError(err)
	}
	return reply
}

func (s *Scheduler) dispatch(ctx context.Context, name string, args []string) (string, error) {
	switch name {
	case "/predict":
		if len(args) != 1 {
			return "Usage: /predict YYYY-MM-DD", nil
		}
		date, err := model.ParseDate(args[0])
		if err != nil {
			return "", err
		}
		p, err := s.Service.PredictDate(ctx, date)
		if err != nil {
			return "", err
		}
		return notifier.FormatPrediction(p), nil

	case "/monthly":
		if len(args) != 2 {
			return "Usage: /monthly &lt;Month&gt; &lt;Year&gt;", nil
		}
		month, err := model.ParseMonth(args[0])
		if err != nil {
			return "", err
		}
		year, err := ParseYear(args[1])
		if err != nil {
			return "", err
		}
		r, err := s.Service.Monthly(ctx, month, year)
		if err != nil {
			return "", err
		}
		return notifier.FormatMonthlyStats(r), nil

	case "/yearly":
		if len(args) != 1 {
			return "Usage: /yearly &lt;Year&gt;", nil
		}
		year, err := ParseYear(args[0])
		if err != nil {
			return "", err
		}
		reports, err := s.Service.Yearly(ctx, year)
		if err != nil {
			return "", err
		}
		return notifier.FormatYearlyReport(year, reports), nil

	case "/forecast":
		days := s.DigestDays
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return "", &model.RangeError{Field: "days", Value: args[0], Reason: "not a number"}
			}
			days = n
		}
		fcs, err := s.Service.Forecast(ctx, days)
		if err != nil {
			return "", err
		}
		return notifier.FormatForecastSummary(fcs), nil

	case "/runs":
		runs, err := s.Recorder.RecentRuns("", 6)
		if err != nil {
			return "", err
		}
		return notifier.FormatRuns(runs), nil

	case "/refresh":
		if err := s.Service.Refresh(ctx); err != nil {
			return "", err
		}
		return "✅ Data refreshed and models retrained.", nil
	}
	return notifier.FormatHelp(), nil
}

// ParseYear parses a calendar year within the supported bounds.
func ParseYear(s string) (int, error) {
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, &model.RangeError{Field: "year", Value: s, Reason: "not a number"}
	}
	if err := model.ValidateYear(year); err != nil {
		return 0, err
	}
	return year, nil
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		zap.L().Error("send notification", zap.Error(err))
	}
}
