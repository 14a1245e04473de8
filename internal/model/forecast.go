package model

import "time"

// ForecastPoint is a model evaluation at one date with its confidence band.
type ForecastPoint struct {
	Date      time.Time
	Yhat      float64
	YhatLower float64
	YhatUpper float64
}

// Scale multiplies the estimate and both band edges by factor.
func (p ForecastPoint) Scale(factor float64) ForecastPoint {
	return ForecastPoint{
		Date:      p.Date,
		Yhat:      p.Yhat * factor,
		YhatLower: p.YhatLower * factor,
		YhatUpper: p.YhatUpper * factor,
	}
}
