package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"MetalSentinel/internal/forecast"
	"MetalSentinel/internal/model"
)

func trendSeries(t *testing.T, symbol string, days int, slope float64) *model.PriceSeries {
	t.Helper()
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, days)
	for i := range bars {
		c := 1000 + slope*float64(i)
		bars[i] = model.PriceBar{Date: start.AddDate(0, 0, i), High: c, Low: c, Close: c}
	}
	s, err := model.NewPriceSeries(symbol, bars)
	if err != nil {
		t.Fatalf("build series: %v", err)
	}
	return s
}

func trendOnly() forecast.Options {
	opts := forecast.DefaultOptions()
	opts.YearlyOrder = 0
	opts.WeeklyOrder = 0
	return opts
}

func TestTrainOnce_CachesModel(t *testing.T) {
	e := NewEngine(trendOnly(), time.Minute)
	var trained int32
	e.OnTrain(func(string, *forecast.Model, time.Duration) { atomic.AddInt32(&trained, 1) })

	first, err := e.TrainOnce(context.Background(), "GC=F", trendSeries(t, "GC=F", 120, 1))
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	// A different series must not trigger an implicit refit.
	second, err := e.TrainOnce(context.Background(), "GC=F", trendSeries(t, "GC=F", 200, 5))
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if first != second {
		t.Error("expected the cached model to be returned")
	}
	if trained != 1 {
		t.Errorf("expected 1 fit, got %d", trained)
	}

	reloaded, err := e.Reload(context.Background(), "GC=F", trendSeries(t, "GC=F", 200, 5))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded == first {
		t.Error("expected Reload to replace the model")
	}
	if m, ok := e.Model("GC=F"); !ok || m != reloaded {
		t.Error("expected Model to return the reloaded model")
	}
	if slope := reloaded.SegmentSlopes()[0]; math.Abs(slope-5) > 1e-3 {
		t.Errorf("expected slope 5 after reload, got %.4f", slope)
	}
}

func TestTrainOnce_ConcurrentCallersShareOneFit(t *testing.T) {
	e := NewEngine(trendOnly(), time.Minute)
	var trained int32
	e.OnTrain(func(string, *forecast.Model, time.Duration) { atomic.AddInt32(&trained, 1) })
	s := trendSeries(t, "SI=F", 300, 0.1)

	var wg sync.WaitGroup
	results := make([]*forecast.Model, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := e.TrainOnce(context.Background(), "SI=F", s)
			if err != nil {
				t.Errorf("train: %v", err)
				return
			}
			results[i] = m
		}(i)
	}
	wg.Wait()
	if trained != 1 {
		t.Errorf("expected exactly one fit, got %d", trained)
	}
	for i, m := range results {
		if m != results[0] {
			t.Errorf("caller %d got a different model", i)
		}
	}
}

func TestReload_FailureKeepsPreviousModel(t *testing.T) {
	e := NewEngine(trendOnly(), time.Minute)
	good, err := e.TrainOnce(context.Background(), "GC=F", trendSeries(t, "GC=F", 50, 1))
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	_, err = e.Reload(context.Background(), "GC=F", model.EmptySeries("GC=F"))
	var fe *model.ModelFitError
	if !errors.As(err, &fe) {
		t.Fatalf("expected ModelFitError, got %v", err)
	}
	if m, _ := e.Model("GC=F"); m != good {
		t.Error("failed reload must not drop the previous model")
	}
	e.Evict("GC=F")
	if _, ok := e.Model("GC=F"); ok {
		t.Error("expected model to be evicted")
	}
}

func TestTrainAll(t *testing.T) {
	e := NewEngine(trendOnly(), time.Minute)
	err := e.TrainAll(context.Background(), map[string]*model.PriceSeries{
		"GC=F": trendSeries(t, "GC=F", 100, 1),
		"SI=F": trendSeries(t, "SI=F", 100, 0.02),
		"BAD":  trendSeries(t, "BAD", 1, 0),
	}, false)
	var fe *model.ModelFitError
	if !errors.As(err, &fe) || fe.Symbol != "BAD" {
		t.Fatalf("expected joined ModelFitError for BAD, got %v", err)
	}
	for _, sym := range []string{"GC=F", "SI=F"} {
		if _, ok := e.Model(sym); !ok {
			t.Errorf("expected %s to be trained", sym)
		}
	}
}

func TestFitTimeout(t *testing.T) {
	e := NewEngine(forecast.DefaultOptions(), time.Nanosecond)
	_, err := e.TrainOnce(context.Background(), "GC=F", trendSeries(t, "GC=F", 900, 1))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	var fe *model.ModelFitError
	if !errors.As(err, &fe) {
		t.Errorf("expected ModelFitError wrapper, got %T", err)
	}
}

func TestPredictDateAndHorizon(t *testing.T) {
	e := NewEngine(trendOnly(), time.Minute)
	m, err := e.TrainOnce(context.Background(), "GC=F", trendSeries(t, "GC=F", 100, 2))
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	p, err := PredictDate(m, m.End().AddDate(0, 0, 10))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if want := 1000 + 2*float64(99+10); math.Abs(p.Yhat-want) > 1e-3 {
		t.Errorf("expected %.2f, got %.4f", want, p.Yhat)
	}
	points, err := PredictHorizon(m, 7)
	if err != nil || len(points) != 107 {
		t.Errorf("expected 107 points, got %d (%v)", len(points), err)
	}
}

func TestApplyCurrencyAndUnit(t *testing.T) {
	in := []model.ForecastPoint{
		{Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Yhat: 2000, YhatLower: 1900, YhatUpper: 2100},
	}
	out, err := ApplyCurrencyAndUnit(in, 83, model.GramFactor(10))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	factor := 83 * 10 / model.TroyOunceGrams
	if math.Abs(out[0].Yhat-2000*factor) > 1e-9 ||
		math.Abs(out[0].YhatLower-1900*factor) > 1e-9 ||
		math.Abs(out[0].YhatUpper-2100*factor) > 1e-9 {
		t.Errorf("unexpected conversion: %+v", out[0])
	}
	if in[0].Yhat != 2000 {
		t.Error("input points were modified")
	}
	for _, bad := range [][2]float64{{0, 1}, {-83, 1}, {83, 0}, {math.NaN(), 1}, {math.Inf(1), 1}} {
		if _, err := ApplyCurrencyAndUnit(in, bad[0], bad[1]); err == nil {
			t.Errorf("expected error for rate %g unit %g", bad[0], bad[1])
		}
	}
}
