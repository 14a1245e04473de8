package forecast

import (
	"math"
	"time"
)

const (
	SeasonalityYearly = "yearly"
	SeasonalityWeekly = "weekly"
)

// seasonality is one truncated Fourier series occupying 2*order columns starting at offset.
type seasonality struct {
	name   string
	period float64
	order  int
	offset int
}

// fill writes sin/cos pairs for harmonics 1..order evaluated at absolute day t.
func (s seasonality) fill(row []float64, t float64) {
	for n := 1; n <= s.order; n++ {
		x := 2 * math.Pi * float64(n) * t / s.period
		row[s.offset+2*(n-1)] = math.Sin(x)
		row[s.offset+2*(n-1)+1] = math.Cos(x)
	}
}

func (s seasonality) eval(beta []float64, t float64) float64 {
	v := 0.0
	for n := 1; n <= s.order; n++ {
		x := 2 * math.Pi * float64(n) * t / s.period
		v += beta[s.offset+2*(n-1)]*math.Sin(x) + beta[s.offset+2*(n-1)+1]*math.Cos(x)
	}
	return v
}

// layout describes the column order of the design matrix:
// intercept, base slope, one hinge per changepoint, then the seasonal blocks.
type layout struct {
	changepoints []float64 // positions on the scaled [0, 1] time axis
	seasonal     []seasonality
	width        int
}

func newLayout(changepoints []float64, opts Options) layout {
	l := layout{changepoints: changepoints}
	col := 2 + len(changepoints)
	if opts.YearlyOrder > 0 {
		l.seasonal = append(l.seasonal, seasonality{name: SeasonalityYearly, period: yearlyPeriod, order: opts.YearlyOrder, offset: col})
		col += 2 * opts.YearlyOrder
	}
	if opts.WeeklyOrder > 0 {
		l.seasonal = append(l.seasonal, seasonality{name: SeasonalityWeekly, period: weeklyPeriod, order: opts.WeeklyOrder, offset: col})
		col += 2 * opts.WeeklyOrder
	}
	l.width = col
	return l
}

func (l layout) deltaIndex(j int) int { return 2 + j }

func (l layout) isSeasonal(col int) bool { return col >= 2+len(l.changepoints) }

// row fills the design row for scaled time ts and absolute day t.
func (l layout) row(row []float64, ts, t float64) {
	row[0] = 1
	row[1] = ts
	for j, s := range l.changepoints {
		row[l.deltaIndex(j)] = math.Max(0, ts-s)
	}
	for _, s := range l.seasonal {
		s.fill(row, t)
	}
}

// trend evaluates the piecewise-linear trend at scaled time ts.
func (l layout) trend(beta []float64, ts float64) float64 {
	v := beta[0] + beta[1]*ts
	for j, s := range l.changepoints {
		if ts > s {
			v += beta[l.deltaIndex(j)] * (ts - s)
		}
	}
	return v
}

// placeChangepoints spreads k positions evenly over the centered span fraction of [0, 1].
func placeChangepoints(k int, span float64) []float64 {
	if k <= 0 {
		return nil
	}
	lo := (1 - span) / 2
	hi := 1 - lo
	if k == 1 {
		return []float64{(lo + hi) / 2}
	}
	out := make([]float64, k)
	for j := range out {
		out[j] = lo + (hi-lo)*float64(j)/float64(k-1)
	}
	return out
}

// epochDays converts a date into fractional days since the Unix epoch.
func epochDays(t time.Time) float64 {
	return float64(t.Unix()) / 86400
}
