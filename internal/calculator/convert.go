package calculator

import (
	"time"

	"MetalSentinel/internal/model"
)

// Convert restates a commodity series in the fx quote currency and the requested unit.
// Only dates present in both series survive; Close, High and Low are multiplied by
// rate*unitFactor while Open and Volume pass through unchanged.
func Convert(commodity *model.PriceSeries, fx *model.ExchangeRateSeries, unitFactor float64) *model.PriceSeries {
	symbol := convertedSymbol(commodity, fx)
	if commodity.Empty() || fx.Empty() {
		return model.EmptySeries(symbol)
	}

	rates := make(map[time.Time]float64, fx.Len())
	for i := 0; i < fx.Len(); i++ {
		b := fx.At(i)
		rates[b.Date] = b.Close
	}

	var out []model.PriceBar
	for i := 0; i < commodity.Len(); i++ {
		b := commodity.At(i)
		rate, ok := rates[b.Date]
		if !ok {
			continue
		}
		factor := rate * unitFactor
		b.Close *= factor
		b.High *= factor
		b.Low *= factor
		out = append(out, b)
	}
	return model.Derive(symbol, out)
}

// LatestRate returns the most recent observed close of an exchange-rate series.
func LatestRate(fx *model.ExchangeRateSeries) (float64, error) {
	last, ok := fx.Last()
	if !ok {
		symbol := ""
		if fx != nil {
			symbol = fx.Symbol
		}
		return 0, &model.DataError{Symbol: symbol, Reason: "no exchange rate observed"}
	}
	return last.Close, nil
}

func convertedSymbol(commodity, fx *model.PriceSeries) string {
	var c, f string
	if commodity != nil {
		c = commodity.Symbol
	}
	if fx != nil {
		f = fx.Symbol
	}
	return c + "@" + f
}
