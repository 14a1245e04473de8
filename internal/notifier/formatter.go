package notifier

import (
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"MetalSentinel/internal/dashboard"
	"MetalSentinel/internal/model"
	"MetalSentinel/internal/recorder"

	"github.com/dustin/go-humanize"
)

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// money renders v with thousands separators and two decimals, e.g. ₹5,039.63.
func money(v float64, currency string) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := humanize.CommafWithDigits(math.Round(v*100)/100, 2)
	if !strings.Contains(s, ".") {
		s += ".00"
	} else if len(s)-strings.Index(s, ".") == 2 {
		s += "0"
	}
	if sym, ok := currencySymbols[currency]; ok {
		return sign + sym + s
	}
	return sign + currency + " " + s
}

func signedMoney(v float64, currency string) string {
	if v > 0 {
		return "+" + money(v, currency)
	}
	return money(v, currency)
}

func currencyOf(unit string) string {
	if i := strings.Index(unit, "/"); i > 0 {
		return unit[:i]
	}
	return unit
}

func trendIcon(t model.Trend) string {
	if t == model.Uptrend {
		return "📈"
	}
	return "📉"
}

// FormatPrediction renders a single-date prediction.
func FormatPrediction(p *dashboard.Prediction) string {
	cur := currencyOf(p.Unit)
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔮 <b>Prediction for %s</b>\n\n", p.Date.Format("02-January-2006")))
	if p.Historical {
		b.WriteString("⚠️ Past date: showing the model's historical estimate.\n\n")
	}
	for _, q := range p.Quotes {
		b.WriteString(fmt.Sprintf("<b>%s</b> (%s): %s\n", q.Metal.Name, p.Unit, money(q.Converted.Yhat, cur)))
		b.WriteString(fmt.Sprintf("   range %s – %s\n", money(q.Converted.YhatLower, cur), money(q.Converted.YhatUpper, cur)))
		b.WriteString(fmt.Sprintf("   USD/oz: %s\n", money(q.Native.Yhat, "USD")))
	}
	b.WriteString(fmt.Sprintf("\nBased on current USD%s rate (~%s)", cur, money(p.Rate, cur)))
	return b.String()
}

// FormatMonthlyStats renders a month's statistics for each metal.
func FormatMonthlyStats(r *dashboard.MonthlyReport) string {
	cur := currencyOf(r.Unit)
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 <b>%s %d</b> (%s)\n", r.Month, r.Year, r.Unit))
	for _, mm := range r.Metals {
		b.WriteString(fmt.Sprintf("\n<b>%s</b>\n", mm.Metal.Name))
		if mm.Stats == nil {
			b.WriteString("   No data available for this month.\n")
			continue
		}
		s := mm.Stats
		b.WriteString(fmt.Sprintf("   Start: %s | End: %s\n", money(s.StartPrice, cur), money(s.EndPrice, cur)))
		b.WriteString(fmt.Sprintf("   Change: %s %s %s\n", signedMoney(s.Change, cur), trendIcon(s.Trend), s.Trend))
		b.WriteString(fmt.Sprintf("   High: %s | Low: %s\n", money(s.High, cur), money(s.Low, cur)))
		b.WriteString(fmt.Sprintf("   Trading days: %d\n", mm.Window.Len()))
	}
	return b.String()
}

// FormatYearlyReport renders month-over-month changes in USD/oz.
func FormatYearlyReport(year int, reports []dashboard.MetalYear) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗓 <b>%d monthly changes</b> (USD/oz)\n", year))
	for _, my := range reports {
		b.WriteString(fmt.Sprintf("\n<b>%s</b>\n", my.Metal.Name))
		if my.Report.Empty() {
			b.WriteString("   No data available for this year.\n")
			continue
		}
		for _, mc := range my.Report.Months {
			b.WriteString(fmt.Sprintf("   %-3s %s\n", mc.Month.String()[:3], signedMoney(mc.Change, "USD")))
		}
		b.WriteString(fmt.Sprintf("   Best: %s (%s) | Worst: %s (%s)\n",
			my.Report.Best.Month, signedMoney(my.Report.Best.Change, "USD"),
			my.Report.Worst.Month, signedMoney(my.Report.Worst.Change, "USD")))
	}
	return b.String()
}

// FormatForecastSummary renders the end of each forward curve against its start.
func FormatForecastSummary(fcs []dashboard.MetalForecast) string {
	if len(fcs) == 0 {
		return "No forecast available."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%d-day forecast</b> (%s)\n", fcs[0].Horizon, fcs[0].Unit))
	for _, fc := range fcs {
		cur := currencyOf(fc.Unit)
		future := fc.Future()
		if len(future) == 0 {
			continue
		}
		first, last := future[0], future[len(future)-1]
		pct := 0.0
		if first.Yhat != 0 {
			pct = (last.Yhat - first.Yhat) / first.Yhat * 100
		}
		b.WriteString(fmt.Sprintf("\n<b>%s</b>\n", fc.Metal.Name))
		b.WriteString(fmt.Sprintf("   %s: %s\n", first.Date.Format(model.DateLayout), money(first.Yhat, cur)))
		b.WriteString(fmt.Sprintf("   %s: %s (%+.2f%%)\n", last.Date.Format(model.DateLayout), money(last.Yhat, cur), pct))
		b.WriteString(fmt.Sprintf("   range %s – %s\n", money(last.YhatLower, cur), money(last.YhatUpper, cur)))
	}
	b.WriteString(fmt.Sprintf("\nUSD%s rate: ~%s", currencyOf(fcs[0].Unit), money(fcs[0].Rate, currencyOf(fcs[0].Unit))))
	return b.String()
}

// FormatRuns lists recent training runs.
func FormatRuns(runs []recorder.TrainingRun) string {
	if len(runs) == 0 {
		return "No training runs recorded."
	}
	var b strings.Builder
	b.WriteString("🧮 <b>Recent training runs</b>\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("\n%s %s\n", r.Symbol, r.TrainedAt.Format("2006-01-02 15:04")))
		b.WriteString(fmt.Sprintf("   data %s → %s (%s bars)\n",
			r.DataStart.Format(model.DateLayout), r.DataEnd.Format(model.DateLayout), humanize.Comma(int64(r.Observations))))
		b.WriteString(fmt.Sprintf("   residual σ² %.2f | %s\n", r.ResidualVariance, r.Took.Round(time.Millisecond)))
	}
	return b.String()
}

// FormatError renders a failed command for the chat. Error text can quote user input and
// provider responses, so it is escaped for HTML parse mode.
func FormatError(err error) string {
	var (
		re *model.RangeError
		de *model.DataError
		fe *model.ModelFitError
		pe *model.PredictionError
	)
	switch {
	case errors.As(err, &re):
		return fmt.Sprintf("⚠️ Invalid input: %s", html.EscapeString(re.Error()))
	case errors.As(err, &de):
		return fmt.Sprintf("⚠️ Not enough data: %s", html.EscapeString(de.Error()))
	case errors.As(err, &fe):
		return fmt.Sprintf("❌ Model unavailable: %s", html.EscapeString(fe.Error()))
	case errors.As(err, &pe):
		return fmt.Sprintf("⚠️ Cannot predict: %s", html.EscapeString(pe.Error()))
	}
	return "❌ " + html.EscapeString(err.Error())
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return `🤖 <b>MetalSentinel commands</b>

/predict YYYY-MM-DD - gold and silver price for a date
/monthly &lt;Month&gt; &lt;Year&gt; - monthly statistics
/yearly &lt;Year&gt; - month-by-month changes
/forecast &lt;days&gt; - forward curve summary
/runs - recent model training runs
/refresh - reload data and retrain`
}

var tagStripper = strings.NewReplacer("<b>", "", "</b>", "")

// PlainText strips the chat markup from a formatted message for terminal output.
func PlainText(msg string) string {
	return html.UnescapeString(tagStripper.Replace(msg))
}
