package recorder

import (
	"time"

	"MetalSentinel/internal/forecast"
	"MetalSentinel/internal/model"

	"github.com/google/uuid"
)

// TrainingRun summarizes one model fit.
type TrainingRun struct {
	ID               string
	Symbol           string
	TrainedAt        time.Time
	DataStart        time.Time
	DataEnd          time.Time
	Observations     int
	Changepoints     int
	ResidualVariance float64
	Took             time.Duration
}

// NewTrainingRun describes a freshly fitted model under a new run ID.
func NewTrainingRun(symbol string, m *forecast.Model, took time.Duration) *TrainingRun {
	return &TrainingRun{
		ID:               uuid.NewString(),
		Symbol:           symbol,
		TrainedAt:        time.Now().UTC(),
		DataStart:        m.Start(),
		DataEnd:          m.End(),
		Observations:     m.Observations(),
		Changepoints:     len(m.Changepoints()),
		ResidualVariance: m.ResidualVariance(),
		Took:             took,
	}
}

// ForecastRecord is a batch of published forecast points, in the currency/unit they were
// shown in.
type ForecastRecord struct {
	RunID    string
	Symbol   string
	Currency string
	Points   []model.ForecastPoint
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordTraining(run *TrainingRun) error
	RecordForecast(rec *ForecastRecord) error
	RecordMonthly(symbol string, stats *model.MonthlyStats) error
	RecentRuns(symbol string, limit int) ([]TrainingRun, error)
	Close() error
}
