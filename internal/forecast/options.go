package forecast

import (
	"fmt"
	"time"
)

// Options controls the structure and regularization of a Model.
type Options struct {
	// Changepoints is the number of potential trend breaks, evenly spaced over the centered
	// ChangepointRange fraction of the training span.
	Changepoints     int     `yaml:"changepoints"`
	ChangepointRange float64 `yaml:"changepoint_range"`
	// ChangepointPriorScale is the Laplace scale on slope changes. Smaller values give a
	// stiffer trend.
	ChangepointPriorScale float64 `yaml:"changepoint_prior_scale"`

	YearlyOrder int `yaml:"yearly_order"` // 0 disables yearly seasonality
	WeeklyOrder int `yaml:"weekly_order"` // 0 disables weekly seasonality
	// SeasonalityPriorScale is the Gaussian scale on Fourier coefficients.
	SeasonalityPriorScale float64 `yaml:"seasonality_prior_scale"`

	// IntervalWidth is the probability mass covered by [YhatLower, YhatUpper].
	IntervalWidth float64 `yaml:"interval_width"`
	// MaxExtrapolationDays caps how far outside the training range a prediction may reach.
	// Zero means uncapped.
	MaxExtrapolationDays int `yaml:"max_extrapolation_days"`
}

const (
	yearlyPeriod = 365.25
	weeklyPeriod = 7.0

	// minSeasonalCycles is how many full periods of the longest enabled seasonality the
	// training span must cover.
	minSeasonalCycles = 2
)

// DefaultOptions returns the settings used for daily precious-metal closes.
func DefaultOptions() Options {
	return Options{
		Changepoints:          10,
		ChangepointRange:      0.8,
		ChangepointPriorScale: 0.05,
		YearlyOrder:           10,
		WeeklyOrder:           3,
		SeasonalityPriorScale: 10,
		IntervalWidth:         0.8,
	}
}

// Validate reports the first out-of-range setting.
func (o Options) Validate() error {
	if o.Changepoints < 0 {
		return fmt.Errorf("changepoints must be >= 0, got %d", o.Changepoints)
	}
	if o.ChangepointRange <= 0 || o.ChangepointRange > 1 {
		return fmt.Errorf("changepoint_range must be in (0, 1], got %g", o.ChangepointRange)
	}
	if o.ChangepointPriorScale <= 0 {
		return fmt.Errorf("changepoint_prior_scale must be positive, got %g", o.ChangepointPriorScale)
	}
	if o.YearlyOrder < 0 || o.WeeklyOrder < 0 {
		return fmt.Errorf("seasonal orders must be >= 0")
	}
	if o.SeasonalityPriorScale <= 0 {
		return fmt.Errorf("seasonality_prior_scale must be positive, got %g", o.SeasonalityPriorScale)
	}
	if o.IntervalWidth <= 0 || o.IntervalWidth >= 1 {
		return fmt.Errorf("interval_width must be in (0, 1), got %g", o.IntervalWidth)
	}
	if o.MaxExtrapolationDays < 0 {
		return fmt.Errorf("max_extrapolation_days must be >= 0")
	}
	return nil
}

// minSpan is the shortest training span able to support the enabled seasonalities.
func (o Options) minSpan() time.Duration {
	longest := 0.0
	if o.WeeklyOrder > 0 {
		longest = weeklyPeriod
	}
	if o.YearlyOrder > 0 {
		longest = yearlyPeriod
	}
	return time.Duration(minSeasonalCycles * longest * float64(24*time.Hour))
}
