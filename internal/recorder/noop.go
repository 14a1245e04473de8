package recorder

import "MetalSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTraining(_ *TrainingRun) error                { return nil }
func (n *NoopRecorder) RecordForecast(_ *ForecastRecord) error             { return nil }
func (n *NoopRecorder) RecordMonthly(_ string, _ *model.MonthlyStats) error { return nil }
func (n *NoopRecorder) RecentRuns(_ string, _ int) ([]TrainingRun, error)  { return nil, nil }
func (n *NoopRecorder) Close() error                                       { return nil }
