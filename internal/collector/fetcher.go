package collector

import (
	"context"
	"time"

	"MetalSentinel/internal/model"
)

// Fetcher is the market data provider: daily bars for a symbol from an inclusive start date,
// ascending by date. An empty slice means no data and is not an error.
type Fetcher interface {
	FetchHistory(ctx context.Context, symbol string, start time.Time) ([]model.PriceBar, error)
	Name() string
}

// dedupeByDate keeps the last bar seen for each date. bars must be sorted by date.
func dedupeByDate(bars []model.PriceBar) []model.PriceBar {
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
