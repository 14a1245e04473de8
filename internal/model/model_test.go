package model

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewPriceSeries_SortsAndTruncates(t *testing.T) {
	bars := []PriceBar{
		{Date: day(2023, 1, 3).Add(14 * time.Hour), Close: 3},
		{Date: day(2023, 1, 1), Close: 1},
		{Date: day(2023, 1, 2).Add(5 * time.Minute), Close: 2},
	}
	s, err := NewPriceSeries("GC=F", bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 bars, got %d", s.Len())
	}
	for i, want := range []float64{1, 2, 3} {
		b := s.At(i)
		if b.Close != want {
			t.Errorf("bar %d: expected close %.0f, got %.0f", i, want, b.Close)
		}
		if b.Date.Hour() != 0 || b.Date.Minute() != 0 {
			t.Errorf("bar %d: date not truncated: %v", i, b.Date)
		}
	}
	// Caller's slice must be untouched.
	if bars[0].Close != 3 {
		t.Error("input slice was reordered")
	}
}

func TestNewPriceSeries_RejectsDuplicateDates(t *testing.T) {
	_, err := NewPriceSeries("GC=F", []PriceBar{
		{Date: day(2023, 1, 1), Close: 1},
		{Date: day(2023, 1, 1).Add(3 * time.Hour), Close: 2},
	})
	var de *DataError
	if !errors.As(err, &de) {
		t.Fatalf("expected DataError, got %v", err)
	}
}

func TestEmptySeriesAccessors(t *testing.T) {
	s := EmptySeries("SI=F")
	if !s.Empty() {
		t.Error("expected empty series")
	}
	if _, ok := s.Last(); ok {
		t.Error("Last on empty series should report !ok")
	}
	var nilSeries *PriceSeries
	if nilSeries.Len() != 0 || nilSeries.Bars() != nil {
		t.Error("nil series should behave as empty")
	}
}

func TestNewDate(t *testing.T) {
	if _, err := NewDate(2024, time.April, 31); err == nil {
		t.Error("expected April 31 to be rejected")
	} else {
		var re *RangeError
		if !errors.As(err, &re) {
			t.Errorf("expected RangeError, got %T", err)
		}
	}
	if _, err := NewDate(2023, time.February, 29); err == nil {
		t.Error("expected 2023-02-29 to be rejected")
	}
	d, err := NewDate(2024, time.February, 29)
	if err != nil {
		t.Fatalf("leap day rejected: %v", err)
	}
	if !d.Equal(day(2024, 2, 29)) {
		t.Errorf("unexpected date %v", d)
	}
	if _, err := NewDate(2024, 13, 1); err == nil {
		t.Error("expected month 13 to be rejected")
	}
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in   string
		want time.Month
		ok   bool
	}{
		{"January", time.January, true},
		{"july", time.July, true},
		{"Aug", time.August, true},
		{"12", time.December, true},
		{"13", 0, false},
		{"Smarch", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseMonth(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("ParseMonth(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
		if !tt.ok && err == nil {
			t.Errorf("ParseMonth(%q) expected error", tt.in)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-12-25")
	if err != nil || !d.Equal(day(2026, 12, 25)) {
		t.Errorf("ParseDate: got %v, %v", d, err)
	}
	if _, err := ParseDate("2026-06-31"); err == nil {
		t.Error("expected invalid calendar day to fail")
	}
	if d, err := ParseDate(" 2024-02-29 "); err != nil || !d.Equal(day(2024, 2, 29)) {
		t.Errorf("ParseDate with padding: got %v, %v", d, err)
	}
	for _, bad := range []string{"tomorrow", "2026-12-25junk", "2026-+1-05", "2026--1-05", "-2026-1-5", "2026-1-5", "20261225", ""} {
		_, err := ParseDate(bad)
		var re *RangeError
		if !errors.As(err, &re) {
			t.Errorf("ParseDate(%q): expected RangeError, got %v", bad, err)
		}
	}
}

func TestTrendOf(t *testing.T) {
	if TrendOf(1) != Uptrend || TrendOf(-1) != Downtrend || TrendOf(0) != Downtrend {
		t.Error("unexpected trend classification")
	}
}

func TestGramFactor(t *testing.T) {
	if got := GramFactor(TroyOunceGrams); got != 1 {
		t.Errorf("expected 1, got %f", got)
	}
	if got := GramFactor(10) / GramFactor(1); got < 9.9999 || got > 10.0001 {
		t.Errorf("expected 10g factor to be 10x 1g factor, got %f", got)
	}
}
