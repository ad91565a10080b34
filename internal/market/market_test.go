package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSimQuoteInsideBand(t *testing.T) {
	s := NewSim(42, "mor")
	ctx := context.Background()
	cases := map[string]priceRange{
		"AAPL": {140, 170},
		"GOOG": {2500, 3000},
		"TSLA": {700, 900},
		"MSFT": {280, 350},
		"SPY":  {400, 450},
		"XXXX": {100, 1000},
	}
	for ticker, want := range cases {
		price, err := s.Quote(ctx, ticker)
		if err != nil {
			t.Fatalf("Quote(%s): %v", ticker, err)
		}
		if price < want.lo || price > want.hi {
			t.Fatalf("Quote(%s) = %v, want within [%v, %v]", ticker, price, want.lo, want.hi)
		}
	}
}

func TestSimQuoteStableBetweenTicks(t *testing.T) {
	s := NewSim(7, "calm")
	ctx := context.Background()
	a, _ := s.Quote(ctx, "AAPL")
	b, _ := s.Quote(ctx, "AAPL")
	if a != b {
		t.Fatalf("quotes without a tick differ: %v vs %v", a, b)
	}
	s.Tick()
	c, _ := s.Quote(ctx, "AAPL")
	if c <= 0 {
		t.Fatalf("price after tick = %v", c)
	}
}

func TestSimDeterministic(t *testing.T) {
	ctx := context.Background()
	run := func() []float64 {
		s := NewSim(99, "wild")
		var out []float64
		for i := 0; i < 20; i++ {
			p, _ := s.Quote(ctx, "TSLA")
			out = append(out, p)
			s.Tick()
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("tick %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestSimPricesStayPositive(t *testing.T) {
	s := NewSim(3, "wild")
	ctx := context.Background()
	s.Quote(ctx, "AAPL")
	s.Quote(ctx, "SPY")
	for i := 0; i < 500; i++ {
		s.Tick()
	}
	for _, ticker := range []string{"AAPL", "SPY"} {
		p, _ := s.Quote(ctx, ticker)
		if p <= 0 {
			t.Fatalf("%s price = %v after 500 ticks", ticker, p)
		}
	}
}

func TestParseQuoteCSV(t *testing.T) {
	body := "Symbol,Date,Time,Open,High,Low,Close,Volume\nAAPL.US,2026-08-28,22:00:05,230.1,233.4,229.2,232.56,40211000\n"
	price, err := parseQuoteCSV(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parseQuoteCSV: %v", err)
	}
	if price != 232.56 {
		t.Fatalf("close = %v, want 232.56", price)
	}
}

func TestParseQuoteCSVRejectsNoData(t *testing.T) {
	body := "Symbol,Date,Time,Open,High,Low,Close,Volume\nBOGUS.US,N/D,N/D,N/D,N/D,N/D,N/D,N/D\n"
	if _, err := parseQuoteCSV(strings.NewReader(body)); err == nil {
		t.Fatal("expected error for N/D close")
	}
}

func TestLiveQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("s"); got != "msft.us" {
			t.Errorf("symbol = %q, want msft.us", got)
		}
		w.Write([]byte("Symbol,Date,Time,Open,High,Low,Close,Volume\nMSFT.US,2026-08-28,22:00:05,410,415,405,412.5,20000000\n"))
	}))
	defer srv.Close()

	l := NewLive(srv.URL, time.Second, NewSim(1, "mor"))
	price, err := l.Quote(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if price != 412.5 {
		t.Fatalf("price = %v, want 412.5", price)
	}
}

func TestLiveQuoteFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	l := NewLive(srv.URL, time.Second, NewSim(5, "mor"))
	price, err := l.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("fallback Quote: %v", err)
	}
	if price < 140 || price > 170 {
		t.Fatalf("fallback price = %v, want inside AAPL band", price)
	}
}
