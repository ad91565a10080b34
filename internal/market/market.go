// Package market supplies share prices to the portfolio engine, either from a
// seeded simulated market or from a live quote endpoint with a simulated
// fallback.
package market

import (
	"context"
	"errors"
	"strings"
)

var ErrUnknownTicker = errors.New("unknown ticker")

// Quoter returns the current price for a ticker.
type Quoter interface {
	Quote(ctx context.Context, ticker string) (float64, error)
}

// Ticker advances simulated prices by one step. The live quoter satisfies it
// as a no-op so callers can tick whatever quoter they hold.
type Ticker interface {
	Tick()
}

type priceRange struct {
	lo, hi float64
}

var defaultRanges = map[string]priceRange{
	"AAPL": {140, 170},
	"GOOG": {2500, 3000},
	"TSLA": {700, 900},
	"MSFT": {280, 350},
	"SPY":  {400, 450},
}

// fallbackRange covers tickers outside the default book.
var fallbackRange = priceRange{100, 1000}

func rangeFor(ticker string) priceRange {
	if r, ok := defaultRanges[strings.ToUpper(strings.TrimSpace(ticker))]; ok {
		return r
	}
	return fallbackRange
}
