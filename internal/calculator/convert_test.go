package calculator

import (
	"math"
	"testing"
	"time"

	"MetalSentinel/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustSeries(t *testing.T, symbol string, bars []model.PriceBar) *model.PriceSeries {
	t.Helper()
	s, err := model.NewPriceSeries(symbol, bars)
	if err != nil {
		t.Fatalf("build series: %v", err)
	}
	return s
}

func TestConvert_SingleBar(t *testing.T) {
	gold := mustSeries(t, "GC=F", []model.PriceBar{
		{Date: day(2023, 6, 1), Open: 1890, High: 1910, Low: 1880, Close: 1900, Volume: 1200},
	})
	fx := mustSeries(t, "USDINR=X", []model.PriceBar{{Date: day(2023, 6, 1), Close: 82.5}})

	out := Convert(gold, fx, model.GramFactor(1))
	if out.Len() != 1 {
		t.Fatalf("expected 1 bar, got %d", out.Len())
	}
	b := out.At(0)
	want := 1900 * 82.5 / 31.1035
	if math.Abs(b.Close-want) > 1e-9 || math.Abs(b.Close-5039.63) > 0.01 {
		t.Errorf("expected converted close %.4f, got %.4f", want, b.Close)
	}
	if math.Abs(b.High-1910*82.5/31.1035) > 1e-9 || math.Abs(b.Low-1880*82.5/31.1035) > 1e-9 {
		t.Errorf("high/low not scaled: %.4f / %.4f", b.High, b.Low)
	}
	if b.Open != 1890 || b.Volume != 1200 {
		t.Errorf("open/volume should pass through, got %.2f / %.0f", b.Open, b.Volume)
	}
}

func TestConvert_IdentityAtUnitRate(t *testing.T) {
	var bars, rates []model.PriceBar
	for i := 0; i < 40; i++ {
		d := day(2023, 1, 1).AddDate(0, 0, i)
		p := 1800 + float64(i)*1.7
		bars = append(bars, model.PriceBar{Date: d, Open: p - 1, High: p + 3, Low: p - 4, Close: p, Volume: float64(100 + i)})
		rates = append(rates, model.PriceBar{Date: d, Close: 1.0})
	}
	s := mustSeries(t, "GC=F", bars)
	out := Convert(s, mustSeries(t, "FX", rates), 1.0)
	if out.Len() != s.Len() {
		t.Fatalf("expected %d bars, got %d", s.Len(), out.Len())
	}
	for i := 0; i < s.Len(); i++ {
		if out.At(i) != s.At(i) {
			t.Fatalf("bar %d changed: %+v vs %+v", i, out.At(i), s.At(i))
		}
	}
}

func TestConvert_InnerJoinDropsUnmatchedDates(t *testing.T) {
	gold := mustSeries(t, "GC=F", []model.PriceBar{
		{Date: day(2023, 6, 1), Close: 100, High: 100, Low: 100},
		{Date: day(2023, 6, 2), Close: 110, High: 110, Low: 110},
		{Date: day(2023, 6, 5), Close: 120, High: 120, Low: 120},
	})
	fx := mustSeries(t, "FX", []model.PriceBar{
		{Date: day(2023, 6, 2), Close: 2},
		{Date: day(2023, 6, 3), Close: 2},
		{Date: day(2023, 6, 5), Close: 3},
	})
	out := Convert(gold, fx, 1)
	if out.Len() != 2 {
		t.Fatalf("expected 2 joined bars, got %d", out.Len())
	}
	if out.At(0).Close != 220 || out.At(1).Close != 360 {
		t.Errorf("unexpected closes %.0f, %.0f", out.At(0).Close, out.At(1).Close)
	}
}

func TestConvert_EmptyAndDisjoint(t *testing.T) {
	gold := mustSeries(t, "GC=F", []model.PriceBar{{Date: day(2023, 6, 1), Close: 100}})
	fx := mustSeries(t, "FX", []model.PriceBar{{Date: day(2023, 7, 1), Close: 80}})

	if out := Convert(gold, fx, 1); !out.Empty() {
		t.Errorf("expected empty result for disjoint dates, got %d bars", out.Len())
	}
	if out := Convert(model.EmptySeries("GC=F"), fx, 1); !out.Empty() {
		t.Error("expected empty result for empty commodity")
	}
	if out := Convert(gold, nil, 1); !out.Empty() {
		t.Error("expected empty result for nil fx")
	}
}

func TestLatestRate(t *testing.T) {
	fx := mustSeries(t, "USDINR=X", []model.PriceBar{
		{Date: day(2023, 6, 2), Close: 83.1},
		{Date: day(2023, 6, 1), Close: 82.5},
	})
	rate, err := LatestRate(fx)
	if err != nil || rate != 83.1 {
		t.Errorf("expected 83.1, got %v (%v)", rate, err)
	}
	if _, err := LatestRate(model.EmptySeries("USDINR=X")); err == nil {
		t.Error("expected error for empty fx series")
	}
}
