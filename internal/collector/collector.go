package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"MetalSentinel/internal/model"

	"go.uber.org/zap"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	// Bars holds fixed history per symbol; symbols missing here get generated bars.
	Bars  map[string][]model.PriceBar
	Price float64
	Days  int
	Err   error
	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchHistory(_ context.Context, symbol string, start time.Time) ([]model.PriceBar, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	from := model.DateOf(start)
	src, ok := m.Bars[symbol]
	if !ok {
		src = generateMockBars(m.Price, m.Days)
	}
	out := make([]model.PriceBar, 0, len(src))
	for _, b := range src {
		if !b.Date.Before(from) {
			out = append(out, b)
		}
	}
	return out, nil
}

// generateMockBars produces count consecutive daily bars ending yesterday, drifting up with a
// small weekly wobble.
func generateMockBars(basePrice float64, count int) []model.PriceBar {
	bars := make([]model.PriceBar, count)
	today := model.DateOf(time.Now())
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001 + 0.002*math.Sin(float64(i)*2*math.Pi/7))
		bars[i] = model.PriceBar{
			Date:   today.AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector turns raw provider bars into validated price series.
type Collector struct {
	Fetcher Fetcher
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{Fetcher: fetcher}
}

// Load fetches the daily history of symbol from start. A provider that has no data yields an
// empty series, not an error.
func (c *Collector) Load(ctx context.Context, symbol string, start time.Time) (*model.PriceSeries, error) {
	bars, err := c.Fetcher.FetchHistory(ctx, symbol, start)
	if err != nil {
		return nil, fmt.Errorf("fetch %s from %s: %w", symbol, c.Fetcher.Name(), err)
	}
	if len(bars) == 0 {
		zap.L().Warn("provider returned no data",
			zap.String("symbol", symbol),
			zap.String("provider", c.Fetcher.Name()),
			zap.Time("start", start),
		)
		return model.EmptySeries(symbol), nil
	}
	series, err := model.NewPriceSeries(symbol, bars)
	if err != nil {
		return nil, err
	}
	first, _ := series.First()
	last, _ := series.Last()
	zap.L().Debug("history loaded",
		zap.String("symbol", symbol),
		zap.Int("bars", series.Len()),
		zap.String("from", first.Date.Format(model.DateLayout)),
		zap.String("to", last.Date.Format(model.DateLayout)),
	)
	return series, nil
}
