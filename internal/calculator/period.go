package calculator

import (
	"time"

	"MetalSentinel/internal/model"
)

// MonthlyStats summarizes the bars of series that fall in month/year. When no bar matches it
// returns a nil summary and an empty series; an error is returned only for an invalid month or
// a year outside the supported range.
func MonthlyStats(series *model.PriceSeries, month time.Month, year int) (*model.MonthlyStats, *model.PriceSeries, error) {
	if err := model.ValidateMonth(month); err != nil {
		return nil, nil, err
	}
	if err := model.ValidateYear(year); err != nil {
		return nil, nil, err
	}

	window := series.Filter(inMonth(year, month))
	bars := window.Bars()
	high, low, ok := windowRange(bars)
	if !ok {
		return nil, window, nil
	}

	start, end := windowChange(bars)
	change := end - start
	return &model.MonthlyStats{
		Year:       year,
		Month:      month,
		StartPrice: start,
		EndPrice:   end,
		Change:     change,
		High:       high,
		Low:        low,
		Trend:      model.TrendOf(change),
	}, window, nil
}

// YearlyReport computes the change, high and low of every month of year that has data, and
// picks the best and worst months. Ties go to the earlier month.
func YearlyReport(series *model.PriceSeries, year int) (*model.YearlyReport, error) {
	if err := model.ValidateYear(year); err != nil {
		return nil, err
	}

	report := &model.YearlyReport{Year: year}
	yearBars := series.Filter(func(b model.PriceBar) bool { return b.Date.Year() == year })
	if yearBars.Empty() {
		return report, nil
	}

	for m := time.January; m <= time.December; m++ {
		bars := yearBars.Filter(inMonth(year, m)).Bars()
		high, low, ok := windowRange(bars)
		if !ok {
			continue
		}
		start, end := windowChange(bars)
		report.Months = append(report.Months, model.MonthChange{
			Month:  m,
			Change: end - start,
			High:   high,
			Low:    low,
		})
	}

	best, worst := 0, 0
	for i, mc := range report.Months {
		if mc.Change > report.Months[best].Change {
			best = i
		}
		if mc.Change < report.Months[worst].Change {
			worst = i
		}
	}
	report.Best = &report.Months[best]
	report.Worst = &report.Months[worst]
	return report, nil
}

func inMonth(year int, month time.Month) func(model.PriceBar) bool {
	return func(b model.PriceBar) bool {
		return b.Date.Year() == year && b.Date.Month() == month
	}
}
