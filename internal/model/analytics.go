package model

import "time"

// Trend is the direction of a period's price change.
type Trend string

const (
	Uptrend   Trend = "Uptrend"
	Downtrend Trend = "Downtrend"
)

// TrendOf classifies a change. A zero change counts as a downtrend.
func TrendOf(change float64) Trend {
	if change > 0 {
		return Uptrend
	}
	return Downtrend
}

// MonthlyStats summarizes one calendar month of a series.
type MonthlyStats struct {
	Year       int
	Month      time.Month
	StartPrice float64
	EndPrice   float64
	Change     float64
	High       float64
	Low        float64
	Trend      Trend
}

// MonthChange is one month's entry in a YearlyReport.
type MonthChange struct {
	Month  time.Month
	Change float64
	High   float64
	Low    float64
}

// YearlyReport lists per-month changes in month order. Best and Worst point into Months and
// are nil when no month had data.
type YearlyReport struct {
	Year   int
	Months []MonthChange
	Best   *MonthChange
	Worst  *MonthChange
}

func (r *YearlyReport) Empty() bool { return r == nil || len(r.Months) == 0 }
