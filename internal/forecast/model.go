// Package forecast fits an additive trend + seasonality regression to a daily price series.
//
// The trend is piecewise linear with hinge terms at fixed changepoints; slope changes carry a
// Laplace prior so most of them shrink to zero. Yearly and weekly effects are truncated Fourier
// series. Everything is estimated in one penalized least-squares problem, so the fitted
// breakpoints, slopes and coefficients are plain numbers that can be inspected and tested.
package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"MetalSentinel/internal/model"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Changepoint is a date where the trend slope may change, with the fitted change in price/day.
type Changepoint struct {
	Date       time.Time
	SlopeDelta float64
}

// Components splits a fitted value into its additive parts, in price units.
type Components struct {
	Trend  float64
	Yearly float64
	Weekly float64
}

// Model is a fitted forecast. It is immutable and safe for concurrent use.
type Model struct {
	symbol string
	opts   Options
	layout layout
	beta   []float64

	start, end time.Time
	startDay   float64
	spanDays   float64
	yScale     float64

	history []time.Time
	// observed marks the weekdays present in the training data.
	observed [7]bool
	// noiseVar is the in-sample residual variance on the scaled axis.
	noiseVar float64
	// driftVar scales the cubic growth of trend variance past the training range.
	driftVar float64
	z        float64
}

// Fit estimates a model from series. It fails with *model.ModelFitError when the series is too
// short, the design is degenerate, or ctx is done before the solve finishes.
func Fit(ctx context.Context, series *model.PriceSeries, opts Options) (*Model, error) {
	symbol := ""
	if series != nil {
		symbol = series.Symbol
	}
	fail := func(reason string, err error) (*Model, error) {
		return nil, &model.ModelFitError{Symbol: symbol, Reason: reason, Err: err}
	}

	if err := opts.Validate(); err != nil {
		return fail("invalid options", err)
	}
	n := series.Len()
	if n < 2 {
		return fail(fmt.Sprintf("need at least 2 observations, got %d", n), nil)
	}
	first, _ := series.First()
	last, _ := series.Last()
	span := last.Date.Sub(first.Date)
	if need := opts.minSpan(); span < need {
		return fail(fmt.Sprintf("training span %.0f days is shorter than the required %.0f days",
			span.Hours()/24, need.Hours()/24), nil)
	}

	m := &Model{
		symbol:   symbol,
		opts:     opts,
		start:    first.Date,
		end:      last.Date,
		startDay: epochDays(first.Date),
		spanDays: span.Hours() / 24,
		history:  make([]time.Time, n),
	}

	ys := series.Closes()
	for i, y := range ys {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return fail(fmt.Sprintf("non-finite close at %s", series.At(i).Date.Format(model.DateLayout)), nil)
		}
		m.yScale = math.Max(m.yScale, math.Abs(y))
	}
	if m.yScale == 0 {
		m.yScale = 1
	}

	k := opts.Changepoints
	if k > n-2 {
		k = n - 2
	}
	m.layout = newLayout(placeChangepoints(k, opts.ChangepointRange), opts)

	rows := make([][]float64, n)
	scaled := make([]float64, n)
	ne := newNormalEquations(m.layout.width)
	for i := 0; i < n; i++ {
		d := series.At(i).Date
		m.history[i] = d
		m.observed[d.Weekday()] = true
		rows[i] = make([]float64, m.layout.width)
		m.layout.row(rows[i], m.scaledTime(d), epochDays(d))
		scaled[i] = ys[i] / m.yScale
		ne.add(rows[i], scaled[i])
	}
	if err := ctx.Err(); err != nil {
		return fail("cancelled", err)
	}

	sse := func(beta []float64) float64 {
		s := 0.0
		for i, row := range rows {
			r := scaled[i] - floats.Dot(row, beta)
			s += r * r
		}
		return s
	}

	beta, err := fitMAP(ctx, ne, m.layout, sse, n, opts)
	if err != nil {
		if ctx.Err() != nil {
			return fail("cancelled", err)
		}
		return fail("numerically degenerate fit", err)
	}
	m.beta = beta
	m.noiseVar = sse(beta) / float64(n)

	// Future slope changes are assumed to arrive at the historical changepoint rate with the
	// historical mean magnitude; their accumulated effect has variance rate·2b²·h³/3.
	if k > 0 {
		b := 0.0
		for j := 0; j < k; j++ {
			b += math.Abs(beta[m.layout.deltaIndex(j)])
		}
		b /= float64(k)
		m.driftVar = float64(k) * 2 * b * b / 3
	}
	m.z = distuv.UnitNormal.Quantile(0.5 + opts.IntervalWidth/2)
	return m, nil
}

func (m *Model) scaledTime(d time.Time) float64 {
	return (epochDays(d) - m.startDay) / m.spanDays
}

func (m *Model) Symbol() string       { return m.symbol }
func (m *Model) Start() time.Time     { return m.start }
func (m *Model) End() time.Time       { return m.end }
func (m *Model) Observations() int    { return len(m.history) }
func (m *Model) Options() Options     { return m.opts }
func (m *Model) History() []time.Time { return append([]time.Time(nil), m.history...) }

// ResidualVariance is the in-sample residual variance in squared price units.
func (m *Model) ResidualVariance() float64 {
	return m.noiseVar * m.yScale * m.yScale
}

// Changepoints returns the trend breakpoints with their fitted slope changes in price/day.
func (m *Model) Changepoints() []Changepoint {
	out := make([]Changepoint, len(m.layout.changepoints))
	for j, s := range m.layout.changepoints {
		out[j] = Changepoint{
			Date:       m.start.Add(time.Duration(s * m.spanDays * float64(24*time.Hour))),
			SlopeDelta: m.beta[m.layout.deltaIndex(j)] * m.yScale / m.spanDays,
		}
	}
	return out
}

// SegmentSlopes returns the trend slope in price/day for each segment, earliest first.
// The last entry is the slope used for extrapolation.
func (m *Model) SegmentSlopes() []float64 {
	slopes := make([]float64, 0, len(m.layout.changepoints)+1)
	k := m.beta[1]
	slopes = append(slopes, k*m.yScale/m.spanDays)
	for j := range m.layout.changepoints {
		k += m.beta[m.layout.deltaIndex(j)]
		slopes = append(slopes, k*m.yScale/m.spanDays)
	}
	return slopes
}

// SeasonalCoefficients returns the sin/cos coefficient pairs of the named seasonality in price
// units, or nil if it is disabled.
func (m *Model) SeasonalCoefficients(name string) []float64 {
	for _, s := range m.layout.seasonal {
		if s.name != name {
			continue
		}
		out := make([]float64, 2*s.order)
		for i := range out {
			out[i] = m.beta[s.offset+i] * m.yScale
		}
		return out
	}
	return nil
}

// Decompose evaluates the additive components at date without any range check.
func (m *Model) Decompose(date time.Time) Components {
	d := model.DateOf(date)
	t := epochDays(d)
	c := Components{Trend: m.layout.trend(m.beta, m.scaledTime(d)) * m.yScale}
	for _, s := range m.layout.seasonal {
		switch s.name {
		case SeasonalityYearly:
			c.Yearly = s.eval(m.beta, t) * m.yScale
		case SeasonalityWeekly:
			c.Weekly = m.weeklyEffect(s, d) * m.yScale
		}
	}
	return c
}

// weeklyEffect evaluates the weekly term at d. A weekday the training data never covers has no
// fitted effect of its own and takes the mean effect of the observed weekdays.
func (m *Model) weeklyEffect(s seasonality, d time.Time) float64 {
	if m.observed[d.Weekday()] {
		return s.eval(m.beta, epochDays(d))
	}
	sum, n := 0.0, 0
	for k := 1; k < 7; k++ {
		o := d.AddDate(0, 0, k)
		if m.observed[o.Weekday()] {
			sum += s.eval(m.beta, epochDays(o))
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// distance is the number of days date lies outside the training range (0 inside it).
func (m *Model) distance(d time.Time) float64 {
	switch {
	case d.After(m.end):
		return d.Sub(m.end).Hours() / 24
	case d.Before(m.start):
		return m.start.Sub(d).Hours() / 24
	}
	return 0
}

// bandHalfWidth grows with the distance h (in days) from the training range and never shrinks.
func (m *Model) bandHalfWidth(h float64) float64 {
	hs := h / m.spanDays
	v := m.noiseVar + m.driftVar*hs*hs*hs
	return m.z * math.Sqrt(v) * m.yScale
}

// PredictAt evaluates the model at date. Past the training range the trend continues with the
// last segment's slope (the first segment's slope before it) and the band widens with distance.
func (m *Model) PredictAt(date time.Time) (model.ForecastPoint, error) {
	d := model.DateOf(date)
	h := m.distance(d)
	if m.opts.MaxExtrapolationDays > 0 && h > float64(m.opts.MaxExtrapolationDays) {
		return model.ForecastPoint{}, &model.PredictionError{
			Date:   d.Format(model.DateLayout),
			Reason: fmt.Sprintf("%.0f days outside training range exceeds cap of %d", h, m.opts.MaxExtrapolationDays),
		}
	}
	c := m.Decompose(d)
	yhat := c.Trend + c.Yearly + c.Weekly
	w := m.bandHalfWidth(h)
	return model.ForecastPoint{Date: d, Yhat: yhat, YhatLower: yhat - w, YhatUpper: yhat + w}, nil
}

// PredictHorizon returns fitted values for every training date followed by exactly periods
// consecutive daily forecasts starting the day after the last training date.
func (m *Model) PredictHorizon(periods int) ([]model.ForecastPoint, error) {
	if periods < 0 {
		return nil, &model.RangeError{Field: "periods", Value: fmt.Sprint(periods), Reason: "must be >= 0"}
	}
	out := make([]model.ForecastPoint, 0, len(m.history)+periods)
	for _, d := range m.history {
		p, err := m.PredictAt(d)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	for i := 1; i <= periods; i++ {
		p, err := m.PredictAt(m.end.AddDate(0, 0, i))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
