package model

import (
	"sort"
	"time"
)

// TroyOunceGrams is the number of grams in one troy ounce.
const TroyOunceGrams = 31.1035

// GramFactor returns the multiplier that turns a per-troy-ounce price into a price for the given grams.
func GramFactor(grams float64) float64 {
	return grams / TroyOunceGrams
}

// PriceBar represents a single daily candlestick bar.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries is an ordered, date-unique sequence of daily bars for one instrument.
// An ExchangeRateSeries uses the same shape with Close holding quote units per base unit.
type PriceSeries struct {
	Symbol string
	bars   []PriceBar
}

// ExchangeRateSeries is a PriceSeries whose close is the quote-per-base rate.
type ExchangeRateSeries = PriceSeries

// NewPriceSeries builds a series from bars in any order. Dates are truncated to UTC calendar
// days; two bars on the same day are rejected.
func NewPriceSeries(symbol string, bars []PriceBar) (*PriceSeries, error) {
	sorted := make([]PriceBar, len(bars))
	for i, b := range bars {
		b.Date = DateOf(b.Date)
		sorted[i] = b
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Date.Equal(sorted[i-1].Date) {
			return nil, &DataError{Symbol: symbol, Reason: "duplicate bar for " + sorted[i].Date.Format(DateLayout)}
		}
	}
	return &PriceSeries{Symbol: symbol, bars: sorted}, nil
}

// EmptySeries returns a series with no bars.
func EmptySeries(symbol string) *PriceSeries {
	return &PriceSeries{Symbol: symbol}
}

// Bars returns a copy of the bars in date order.
func (s *PriceSeries) Bars() []PriceBar {
	if s == nil {
		return nil
	}
	out := make([]PriceBar, len(s.bars))
	copy(out, s.bars)
	return out
}

func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.bars)
}

func (s *PriceSeries) Empty() bool { return s.Len() == 0 }

// At returns the i-th bar in date order.
func (s *PriceSeries) At(i int) PriceBar { return s.bars[i] }

// First returns the earliest bar. ok is false for an empty series.
func (s *PriceSeries) First() (bar PriceBar, ok bool) {
	if s.Empty() {
		return PriceBar{}, false
	}
	return s.bars[0], true
}

// Last returns the most recent bar. ok is false for an empty series.
func (s *PriceSeries) Last() (bar PriceBar, ok bool) {
	if s.Empty() {
		return PriceBar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// Filter returns the bars matching keep, preserving order.
func (s *PriceSeries) Filter(keep func(PriceBar) bool) *PriceSeries {
	if s == nil {
		return &PriceSeries{}
	}
	out := &PriceSeries{Symbol: s.Symbol}
	for _, b := range s.bars {
		if keep(b) {
			out.bars = append(out.bars, b)
		}
	}
	return out
}

// Closes extracts close prices in date order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, s.Len())
	for i := range closes {
		closes[i] = s.bars[i].Close
	}
	return closes
}

// Derive wraps bars taken in order from an existing series. The caller guarantees the bars are
// still sorted and date-unique.
func Derive(symbol string, bars []PriceBar) *PriceSeries {
	return &PriceSeries{Symbol: symbol, bars: bars}
}
