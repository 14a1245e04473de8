package calculator

import (
	"math"

	"MetalSentinel/internal/model"
)

// windowRange scans the bars and returns the highest High and lowest Low.
// ok is false when bars is empty.
func windowRange(bars []model.PriceBar) (high, low float64, ok bool) {
	if len(bars) == 0 {
		return 0, 0, false
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, true
}

// windowChange returns the first and last close of bars in date order.
func windowChange(bars []model.PriceBar) (start, end float64) {
	return bars[0].Close, bars[len(bars)-1].Close
}
