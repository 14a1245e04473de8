package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MetalSentinel/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const yahooBody = `{"chart":{"result":[{"meta":{"currency":"USD","gmtoffset":-18000},
"timestamp":[1704171600,1704258000,1704344400,1704344460,1704430800],
"indicators":{"quote":[{
"open":[2070,2060,2050,2049,null],
"high":[2080,2065,2055,2052,null],
"low":[2060,2040,2044,2041,null],
"close":[2072.5,2050,2047,2045,null],
"volume":[100,200,250,300,null]}]}}],"error":null}}`

func TestYahooFetcher_FetchHistory(t *testing.T) {
	var gotPath, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		fmt.Fprint(w, yahooBody)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", time.Second)
	f.BaseURL = srv.URL
	bars, err := f.FetchHistory(context.Background(), "GOLD", day(2024, 1, 1))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/v8/finance/chart/GC=F" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotInterval != "1d" {
		t.Errorf("expected daily interval, got %q", gotInterval)
	}
	// The null bar is skipped and the two Jan 4 stamps collapse into the later one.
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d: %+v", len(bars), bars)
	}
	if !bars[0].Date.Equal(day(2024, 1, 2)) || bars[0].Close != 2072.5 {
		t.Errorf("unexpected first bar %+v", bars[0])
	}
	if !bars[1].Date.Equal(day(2024, 1, 3)) || bars[1].Close != 2050 {
		t.Errorf("unexpected second bar %+v", bars[1])
	}
	if !bars[2].Date.Equal(day(2024, 1, 4)) || bars[2].Close != 2045 {
		t.Errorf("expected the later Jan 4 stamp to win, got %+v", bars[2])
	}
}

func TestYahooFetcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http status", http.StatusTooManyRequests, "slow down"},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`},
		{"bad json", http.StatusOK, `{"chart":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()
			f := NewYahooFetcher("", time.Second)
			f.BaseURL = srv.URL
			if _, err := f.FetchHistory(context.Background(), "GC=F", day(2024, 1, 1)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestYahooFetcher_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{},"timestamp":[],"indicators":{"quote":[]}}],"error":null}}`)
	}))
	defer srv.Close()
	f := NewYahooFetcher("", time.Second)
	f.BaseURL = srv.URL
	bars, err := f.FetchHistory(context.Background(), "GC=F", day(2024, 1, 1))
	if err != nil || len(bars) != 0 {
		t.Errorf("expected no bars and no error, got %d, %v", len(bars), err)
	}
}

func TestRESTFetcher_FetchHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("start") != "2024-01-03" || r.URL.Query().Get("symbol") != "SI=F" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		// Deliberately out of order.
		fmt.Fprint(w, `[{"timestamp":1704326400,"close":23.1,"high":23.5,"low":22.9},
			{"timestamp":1704240000,"close":23.4,"high":23.6,"low":23.0},
			{"timestamp":1704153600,"close":23.9,"high":24.0,"low":23.7}]`)
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "k", "", time.Second)
	bars, err := f.FetchHistory(context.Background(), "SI=F", day(2024, 1, 3))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars from the start date on, got %d", len(bars))
	}
	if !bars[0].Date.Equal(day(2024, 1, 3)) || !bars[1].Date.Equal(day(2024, 1, 4)) {
		t.Errorf("bars not sorted: %v, %v", bars[0].Date, bars[1].Date)
	}

	f.APIKey = "wrong"
	if _, err := f.FetchHistory(context.Background(), "SI=F", day(2024, 1, 3)); err == nil {
		t.Error("expected error on 401")
	}
}

func TestCollector_Load(t *testing.T) {
	mock := &MockFetcher{Bars: map[string][]model.PriceBar{
		"GC=F": {
			{Date: day(2024, 1, 3), Close: 2050, High: 2060, Low: 2040},
			{Date: day(2024, 1, 2), Close: 2040, High: 2045, Low: 2030},
		},
		"EMPTY": {},
	}}
	c := NewCollector(mock)

	s, err := c.Load(context.Background(), "GC=F", day(2024, 1, 1))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Len() != 2 || s.Symbol != "GC=F" {
		t.Fatalf("unexpected series %s len %d", s.Symbol, s.Len())
	}
	if first, _ := s.First(); !first.Date.Equal(day(2024, 1, 2)) {
		t.Errorf("series not sorted, first %v", first.Date)
	}

	empty, err := c.Load(context.Background(), "EMPTY", day(2024, 1, 1))
	if err != nil || !empty.Empty() {
		t.Errorf("expected empty series without error, got %v", err)
	}

	mock.Err = errors.New("boom")
	if _, err := c.Load(context.Background(), "GC=F", day(2024, 1, 1)); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected wrapped provider error, got %v", err)
	}
}

func TestMockFetcher_Generated(t *testing.T) {
	m := &MockFetcher{Price: 2000, Days: 30}
	bars, err := m.FetchHistory(context.Background(), "GC=F", time.Time{})
	if err != nil || len(bars) != 30 {
		t.Fatalf("expected 30 generated bars, got %d (%v)", len(bars), err)
	}
	if _, err := model.NewPriceSeries("GC=F", bars); err != nil {
		t.Errorf("generated bars should form a valid series: %v", err)
	}
}

func TestCachedFetcher(t *testing.T) {
	mock := &MockFetcher{Bars: map[string][]model.PriceBar{
		"GC=F": {{Date: day(2024, 1, 2), Close: 2040, High: 2045, Low: 2030}},
	}}
	store := NewMemoryStore()
	now := day(2024, 1, 5).Add(10 * time.Hour)
	store.now = func() time.Time { return now }
	cf := NewCachedFetcher(mock, store, time.Hour)
	cf.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		bars, err := cf.FetchHistory(context.Background(), "GC=F", day(2024, 1, 1))
		if err != nil || len(bars) != 1 || bars[0].Close != 2040 || !bars[0].Date.Equal(day(2024, 1, 2)) {
			t.Fatalf("call %d: unexpected result %+v, %v", i, bars, err)
		}
	}
	if mock.Calls != 1 {
		t.Errorf("expected 1 provider call, got %d", mock.Calls)
	}

	now = now.Add(2 * time.Hour)
	if _, err := cf.FetchHistory(context.Background(), "GC=F", day(2024, 1, 1)); err != nil {
		t.Fatal(err)
	}
	if mock.Calls != 2 {
		t.Errorf("expected expired entry to refetch, got %d calls", mock.Calls)
	}

	if _, err := cf.FetchHistory(context.Background(), "GC=F", day(2023, 6, 1)); err != nil {
		t.Fatal(err)
	}
	if mock.Calls != 3 {
		t.Errorf("expected a different start date to miss, got %d calls", mock.Calls)
	}
}

func TestCachedFetcher_Fresh(t *testing.T) {
	mock := &MockFetcher{Bars: map[string][]model.PriceBar{
		"GC=F": {{Date: day(2024, 1, 2), Close: 2040, High: 2045, Low: 2030}},
	}}
	cf := NewCachedFetcher(mock, NewMemoryStore(), time.Hour)
	ctx := context.Background()
	if _, err := cf.FetchHistory(ctx, "GC=F", day(2024, 1, 1)); err != nil {
		t.Fatal(err)
	}

	mock.Bars["GC=F"] = append(mock.Bars["GC=F"], model.PriceBar{Date: day(2024, 1, 3), Close: 2050, High: 2055, Low: 2044})
	bars, err := cf.FetchHistory(Fresh(ctx), "GC=F", day(2024, 1, 1))
	if err != nil || len(bars) != 2 {
		t.Fatalf("expected fresh read to see 2 bars, got %+v, %v", bars, err)
	}
	if mock.Calls != 2 {
		t.Errorf("expected fresh read to reach the provider, got %d calls", mock.Calls)
	}

	// The fresh response replaces the cached entry.
	bars, err = cf.FetchHistory(ctx, "GC=F", day(2024, 1, 1))
	if err != nil || len(bars) != 2 || mock.Calls != 2 {
		t.Errorf("expected cached 2-bar entry, got %d bars after %d calls (%v)", len(bars), mock.Calls, err)
	}
}

func TestMemoryStore_Miss(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}
