// Package dashboard answers the questions the bot and CLI ask about gold and silver: a price
// for a date, a month's statistics, a year's monthly changes and a forward curve.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MetalSentinel/internal/calculator"
	"MetalSentinel/internal/collector"
	"MetalSentinel/internal/engine"
	"MetalSentinel/internal/forecast"
	"MetalSentinel/internal/model"
	"MetalSentinel/internal/recorder"

	"go.uber.org/zap"
)

// MaxYearsAhead bounds how far into the future a single-date prediction may be requested.
const MaxYearsAhead = 5

// MaxForecastDays bounds the forward curve length.
const MaxForecastDays = MaxYearsAhead * 365

// Instruments names the series the dashboard works with.
type Instruments struct {
	Gold     string
	Silver   string
	FX       string
	Currency string
	Grams    float64
}

// Metal is one commodity tracked by the dashboard.
type Metal struct {
	Name   string
	Symbol string
}

func (in Instruments) metals() []Metal {
	return []Metal{{Name: "Gold", Symbol: in.Gold}, {Name: "Silver", Symbol: in.Silver}}
}

// Unit renders the converted price unit, e.g. "INR/1g".
func (in Instruments) Unit() string {
	return fmt.Sprintf("%s/%gg", in.Currency, in.Grams)
}

// Quote is one metal's prediction at a date in native USD/oz and converted units.
type Quote struct {
	Metal     Metal
	Native    model.ForecastPoint
	Converted model.ForecastPoint
}

// Prediction answers a single-date query.
type Prediction struct {
	Date time.Time
	// Historical is set for dates before today; the value is then an in-model estimate.
	Historical bool
	Rate       float64
	Unit       string
	Quotes     []Quote
}

// MetalMonth is one metal's converted statistics for a month. Stats is nil when the month has
// no data.
type MetalMonth struct {
	Metal  Metal
	Stats  *model.MonthlyStats
	Window *model.PriceSeries
}

// MonthlyReport answers a month query.
type MonthlyReport struct {
	Year   int
	Month  time.Month
	Unit   string
	Metals []MetalMonth
}

// MetalYear is one metal's yearly report in native USD/oz.
type MetalYear struct {
	Metal  Metal
	Report *model.YearlyReport
}

// MetalForecast is one metal's converted curve: fitted history followed by future days.
type MetalForecast struct {
	Metal   Metal
	RunID   string
	Rate    float64
	Unit    string
	Points  []model.ForecastPoint
	Horizon int
}

// Future returns only the points after the training range.
func (f *MetalForecast) Future() []model.ForecastPoint {
	return f.Points[len(f.Points)-f.Horizon:]
}

// Service holds the latest loaded series and serves queries against them.
type Service struct {
	collector *collector.Collector
	engine    *engine.Engine
	recorder  recorder.Recorder
	inst      Instruments
	start     time.Time
	now       func() time.Time

	mu     sync.RWMutex
	series map[string]*model.PriceSeries
	runs   map[string]string // symbol -> run ID of the serving model
}

// NewService wires a Service and registers it to record every training run.
func NewService(col *collector.Collector, eng *engine.Engine, rec recorder.Recorder, inst Instruments, start time.Time) *Service {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	s := &Service{
		collector: col,
		engine:    eng,
		recorder:  rec,
		inst:      inst,
		start:     model.DateOf(start),
		now:       time.Now,
		series:    make(map[string]*model.PriceSeries),
		runs:      make(map[string]string),
	}
	eng.OnTrain(s.recordTraining)
	return s
}

func (s *Service) Instruments() Instruments { return s.inst }

func (s *Service) recordTraining(symbol string, m *forecast.Model, took time.Duration) {
	run := recorder.NewTrainingRun(symbol, m, took)
	s.mu.Lock()
	s.runs[symbol] = run.ID
	s.mu.Unlock()
	if err := s.recorder.RecordTraining(run); err != nil {
		zap.L().Warn("record training run failed", zap.String("symbol", symbol), zap.Error(err))
	}
}

// Refresh reloads every series from the provider and refits both metal models. A metal whose
// refit fails keeps serving its previous model.
func (s *Service) Refresh(ctx context.Context) error {
	loaded := make(map[string]*model.PriceSeries, 3)
	for _, sym := range []string{s.inst.Gold, s.inst.Silver, s.inst.FX} {
		series, err := s.collector.Load(collector.Fresh(ctx), sym, s.start)
		if err != nil {
			return fmt.Errorf("refresh %s: %w", sym, err)
		}
		loaded[sym] = series
	}

	s.mu.Lock()
	for sym, series := range loaded {
		s.series[sym] = series
	}
	s.mu.Unlock()

	return s.engine.TrainAll(ctx, map[string]*model.PriceSeries{
		s.inst.Gold:   loaded[s.inst.Gold],
		s.inst.Silver: loaded[s.inst.Silver],
	}, true)
}

// Series returns the loaded series for symbol, loading everything on first use.
func (s *Service) Series(ctx context.Context, symbol string) (*model.PriceSeries, error) {
	s.mu.RLock()
	series, ok := s.series[symbol]
	s.mu.RUnlock()
	if ok {
		return series, nil
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if series, ok = s.series[symbol]; !ok {
		return nil, &model.DataError{Symbol: symbol, Reason: "not a configured instrument"}
	}
	return series, nil
}

// load fetches series without training, for analytics-only callers.
func (s *Service) load(ctx context.Context) error {
	for _, sym := range []string{s.inst.Gold, s.inst.Silver, s.inst.FX} {
		s.mu.RLock()
		_, ok := s.series[sym]
		s.mu.RUnlock()
		if ok {
			continue
		}
		series, err := s.collector.Load(ctx, sym, s.start)
		if err != nil {
			return fmt.Errorf("load %s: %w", sym, err)
		}
		s.mu.Lock()
		s.series[sym] = series
		s.mu.Unlock()
	}
	return nil
}

func (s *Service) model(ctx context.Context, symbol string) (*forecast.Model, error) {
	if m, ok := s.engine.Model(symbol); ok {
		return m, nil
	}
	series, err := s.Series(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return s.engine.TrainOnce(ctx, symbol, series)
}

func (s *Service) rate(ctx context.Context) (float64, error) {
	fx, err := s.Series(ctx, s.inst.FX)
	if err != nil {
		return 0, err
	}
	return calculator.LatestRate(fx)
}

func (s *Service) unitFactor() float64 { return model.GramFactor(s.inst.Grams) }

// PredictDate predicts both metals at date, converted with the latest exchange rate.
func (s *Service) PredictDate(ctx context.Context, date time.Time) (*Prediction, error) {
	d := model.DateOf(date)
	today := model.DateOf(s.now())
	if limit := today.Year() + MaxYearsAhead; d.Year() > limit {
		return nil, &model.RangeError{Field: "year", Value: fmt.Sprint(d.Year()), Reason: fmt.Sprintf("must be <= %d", limit)}
	}
	if err := model.ValidateYear(d.Year()); err != nil {
		return nil, err
	}
	rate, err := s.rate(ctx)
	if err != nil {
		return nil, err
	}

	out := &Prediction{Date: d, Historical: d.Before(today), Rate: rate, Unit: s.inst.Unit()}
	for _, metal := range s.inst.metals() {
		m, err := s.model(ctx, metal.Symbol)
		if err != nil {
			return nil, err
		}
		p, err := engine.PredictDate(m, d)
		if err != nil {
			return nil, err
		}
		conv, err := engine.ApplyCurrencyAndUnit([]model.ForecastPoint{p}, rate, s.unitFactor())
		if err != nil {
			return nil, err
		}
		out.Quotes = append(out.Quotes, Quote{Metal: metal, Native: p, Converted: conv[0]})
	}
	return out, nil
}

// Monthly converts each metal to the display currency and unit and summarizes the month.
func (s *Service) Monthly(ctx context.Context, month time.Month, year int) (*MonthlyReport, error) {
	if err := model.ValidateMonth(month); err != nil {
		return nil, err
	}
	if err := model.ValidateYear(year); err != nil {
		return nil, err
	}
	fx, err := s.Series(ctx, s.inst.FX)
	if err != nil {
		return nil, err
	}

	out := &MonthlyReport{Year: year, Month: month, Unit: s.inst.Unit()}
	for _, metal := range s.inst.metals() {
		series, err := s.Series(ctx, metal.Symbol)
		if err != nil {
			return nil, err
		}
		converted := calculator.Convert(series, fx, s.unitFactor())
		stats, window, err := calculator.MonthlyStats(converted, month, year)
		if err != nil {
			return nil, err
		}
		if stats != nil {
			if err := s.recorder.RecordMonthly(converted.Symbol, stats); err != nil {
				zap.L().Warn("record monthly stats failed", zap.String("symbol", converted.Symbol), zap.Error(err))
			}
		}
		out.Metals = append(out.Metals, MetalMonth{Metal: metal, Stats: stats, Window: window})
	}
	return out, nil
}

// Yearly reports month-over-month changes for each metal in native USD/oz.
func (s *Service) Yearly(ctx context.Context, year int) ([]MetalYear, error) {
	if err := model.ValidateYear(year); err != nil {
		return nil, err
	}
	out := make([]MetalYear, 0, 2)
	for _, metal := range s.inst.metals() {
		series, err := s.Series(ctx, metal.Symbol)
		if err != nil {
			return nil, err
		}
		report, err := calculator.YearlyReport(series, year)
		if err != nil {
			return nil, err
		}
		out = append(out, MetalYear{Metal: metal, Report: report})
	}
	return out, nil
}

// Forecast returns each metal's fitted history plus periods future days, converted with the
// latest exchange rate.
func (s *Service) Forecast(ctx context.Context, periods int) ([]MetalForecast, error) {
	if periods < 1 || periods > MaxForecastDays {
		return nil, &model.RangeError{Field: "periods", Value: fmt.Sprint(periods), Reason: fmt.Sprintf("must be in [1, %d]", MaxForecastDays)}
	}
	rate, err := s.rate(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MetalForecast, 0, 2)
	for _, metal := range s.inst.metals() {
		m, err := s.model(ctx, metal.Symbol)
		if err != nil {
			return nil, err
		}
		points, err := engine.PredictHorizon(m, periods)
		if err != nil {
			return nil, err
		}
		conv, err := engine.ApplyCurrencyAndUnit(points, rate, s.unitFactor())
		if err != nil {
			return nil, err
		}
		s.mu.RLock()
		runID := s.runs[metal.Symbol]
		s.mu.RUnlock()
		out = append(out, MetalForecast{Metal: metal, RunID: runID, Rate: rate, Unit: s.inst.Unit(), Points: conv, Horizon: periods})
	}
	return out, nil
}

// RecordForecasts stores the future part of each curve.
func (s *Service) RecordForecasts(fcs []MetalForecast) error {
	var errs []error
	for i := range fcs {
		fc := &fcs[i]
		if err := s.recorder.RecordForecast(&recorder.ForecastRecord{
			RunID:    fc.RunID,
			Symbol:   fc.Metal.Symbol,
			Currency: fc.Unit,
			Points:   fc.Future(),
		}); err != nil {
			errs = append(errs, fmt.Errorf("record %s forecast: %w", fc.Metal.Symbol, err))
		}
	}
	return errors.Join(errs...)
}
