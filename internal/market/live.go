package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Live fetches closing prices from a stooq-style CSV quote endpoint. Every
// failure (network, bad status, malformed CSV, N/D quote) falls back to the
// simulated market so a run never stalls on a dead feed.
type Live struct {
	endpoint string
	client   *http.Client
	fallback *Sim
}

func NewLive(endpoint string, timeout time.Duration, fallback *Sim) *Live {
	return &Live{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		fallback: fallback,
	}
}

func (l *Live) Quote(ctx context.Context, ticker string) (float64, error) {
	price, err := l.fetch(ctx, ticker)
	if err != nil {
		return l.fallback.Quote(ctx, ticker)
	}
	return price, nil
}

func (l *Live) Tick() {
	l.fallback.Tick()
}

func (l *Live) fetch(ctx context.Context, ticker string) (float64, error) {
	symbol := strings.ToLower(strings.TrimSpace(ticker))
	if symbol == "" {
		return 0, ErrUnknownTicker
	}
	if !strings.Contains(symbol, ".") {
		symbol += ".us"
	}
	q := url.Values{}
	q.Set("s", symbol)
	q.Set("f", "sd2t2ohlcv")
	q.Set("h", "")
	q.Set("e", "csv")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint+"/?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("quote status %d", resp.StatusCode)
	}
	return parseQuoteCSV(resp.Body)
}

// parseQuoteCSV reads a header row plus one quote row and returns the Close
// column.
func parseQuoteCSV(r io.Reader) (float64, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("quote csv header: %w", err)
	}
	closeIdx := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), "Close") {
			closeIdx = i
		}
	}
	if closeIdx < 0 {
		return 0, fmt.Errorf("quote csv has no Close column")
	}
	row, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("quote csv row: %w", err)
	}
	if closeIdx >= len(row) {
		return 0, fmt.Errorf("quote csv row too short")
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(row[closeIdx]), 64)
	if err != nil {
		return 0, fmt.Errorf("quote csv close %q: %w", row[closeIdx], err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("quote csv close %v out of range", price)
	}
	return price, nil
}
