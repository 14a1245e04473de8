package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"MetalSentinel/internal/forecast"
	"MetalSentinel/internal/model"

	"go.uber.org/zap"
)

// TrainHook is called after every successful fit, e.g. to record the run.
type TrainHook func(symbol string, m *forecast.Model, took time.Duration)

// Engine owns the trained model for each instrument. A model is fitted once per symbol and then
// served read-only until Reload replaces it.
type Engine struct {
	opts    forecast.Options
	timeout time.Duration
	onTrain TrainHook

	models sync.Map // symbol -> *forecast.Model

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates an Engine. A zero timeout disables the fit guard.
func NewEngine(opts forecast.Options, timeout time.Duration) *Engine {
	return &Engine{
		opts:    opts,
		timeout: timeout,
		locks:   make(map[string]*sync.Mutex),
	}
}

// OnTrain registers a hook invoked after each successful fit.
func (e *Engine) OnTrain(h TrainHook) { e.onTrain = h }

// Model returns the trained model for symbol without blocking.
func (e *Engine) Model(symbol string) (*forecast.Model, bool) {
	v, ok := e.models.Load(symbol)
	if !ok {
		return nil, false
	}
	return v.(*forecast.Model), true
}

// TrainOnce returns the cached model for symbol, fitting it from series if none exists yet.
// Concurrent callers for the same symbol wait for a single fit.
func (e *Engine) TrainOnce(ctx context.Context, symbol string, series *model.PriceSeries) (*forecast.Model, error) {
	if m, ok := e.Model(symbol); ok {
		return m, nil
	}
	lock := e.keyLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	if m, ok := e.Model(symbol); ok {
		return m, nil
	}
	return e.fit(ctx, symbol, series)
}

// Reload refits symbol from series and replaces the cached model. On failure the previous
// model, if any, stays in place.
func (e *Engine) Reload(ctx context.Context, symbol string, series *model.PriceSeries) (*forecast.Model, error) {
	lock := e.keyLock(symbol)
	lock.Lock()
	defer lock.Unlock()
	return e.fit(ctx, symbol, series)
}

// Evict drops the cached model for symbol.
func (e *Engine) Evict(symbol string) {
	e.models.Delete(symbol)
}

// TrainAll fits every instrument concurrently. When reload is false, symbols that already have
// a model are left alone. The returned error joins every per-symbol failure.
func (e *Engine) TrainAll(ctx context.Context, series map[string]*model.PriceSeries, reload bool) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for symbol, s := range series {
		wg.Add(1)
		go func(symbol string, s *model.PriceSeries) {
			defer wg.Done()
			var err error
			if reload {
				_, err = e.Reload(ctx, symbol, s)
			} else {
				_, err = e.TrainOnce(ctx, symbol, s)
			}
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(symbol, s)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (e *Engine) keyLock(symbol string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		e.locks[symbol] = l
	}
	return l
}

// fit runs one guarded fit; the caller holds the symbol's lock.
func (e *Engine) fit(ctx context.Context, symbol string, series *model.PriceSeries) (*forecast.Model, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	started := time.Now()
	m, err := forecast.Fit(ctx, series, e.opts)
	if err != nil {
		zap.L().Warn("model fit failed", zap.String("symbol", symbol), zap.Error(err))
		return nil, err
	}
	took := time.Since(started)
	e.models.Store(symbol, m)

	zap.L().Info("model trained",
		zap.String("symbol", symbol),
		zap.Int("observations", m.Observations()),
		zap.Time("start", m.Start()),
		zap.Time("end", m.End()),
		zap.Float64("residual_variance", m.ResidualVariance()),
		zap.Duration("took", took),
	)
	if e.onTrain != nil {
		e.onTrain(symbol, m, took)
	}
	return m, nil
}

// PredictDate evaluates m at a single date.
func PredictDate(m *forecast.Model, date time.Time) (model.ForecastPoint, error) {
	return m.PredictAt(date)
}

// PredictHorizon returns the in-sample curve followed by n future days.
func PredictHorizon(m *forecast.Model, n int) ([]model.ForecastPoint, error) {
	return m.PredictHorizon(n)
}

// ApplyCurrencyAndUnit restates native-currency forecast points using an observed exchange rate
// and a unit factor. The input slice is not modified.
func ApplyCurrencyAndUnit(points []model.ForecastPoint, rate, unitFactor float64) ([]model.ForecastPoint, error) {
	factor := rate * unitFactor
	if !(factor > 0) || math.IsInf(factor, 0) {
		return nil, &model.DataError{Reason: fmt.Sprintf("conversion factor %g (rate %g x unit %g) must be positive and finite", factor, rate, unitFactor)}
	}
	out := make([]model.ForecastPoint, len(points))
	for i, p := range points {
		out[i] = p.Scale(factor)
	}
	return out, nil
}
