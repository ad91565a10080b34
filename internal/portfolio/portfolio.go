// Package portfolio implements the turn-based stock portfolio game: a fixed
// asset book rebalanced toward a target allocation each turn, priced by a
// market.Quoter and shaken by an adaptive market AI.
package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrFinished     = errors.New("portfolio run already finished")
	ErrInvalidTurns = errors.New("turn count must be > 0")
)

// DefaultAllocDist is the fallback allocation split across the default book
// (AAPL/GOOG/TSLA/MSFT/SPY).
var DefaultAllocDist = []int{30, 20, 10, 20, 20}

// IndexTicker is the benchmark the portfolio is measured against.
const IndexTicker = "SPY"

type Asset struct {
	Name       string  `json:"name"`
	Ticker     string  `json:"ticker"`
	Quantity   int64   `json:"quantity"`
	Volatility float64 `json:"volatility"`
	Liquidity  float64 `json:"liquidity"`
	BuyDate    string  `json:"buy_date,omitempty"`
	BuyValue   float64 `json:"buy_value,omitempty"`

	price float64
}

// Price reports the asset's price from the most recent turn.
func (a *Asset) Price() float64 { return a.price }

// Value is quantity at the most recent price.
func (a *Asset) Value() float64 { return float64(a.Quantity) * a.price }

// Conditions is the market weather the AI reacts to, each component clamped
// to [0,1].
type Conditions struct {
	Fear       float64 `json:"fear_index"`
	Liquidity  float64 `json:"liquidity"`
	Volatility float64 `json:"volatility"`
}

type LogKind string

const (
	LogInfo  LogKind = "info"
	LogWin   LogKind = "win"
	LogLoss  LogKind = "loss"
	LogTrade LogKind = "trade"
	LogAI    LogKind = "ai"
	LogEvent LogKind = "event"
)

type LogEntry struct {
	Turn    int     `json:"turn"`
	Kind    LogKind `json:"kind"`
	Message string  `json:"message"`
}

// Record is the per-turn export row.
type Record struct {
	Turn             int      `json:"turn"`
	PortfolioValue   float64  `json:"portfolio_value"`
	Cash             float64  `json:"cash"`
	MarketFear       float64  `json:"market_fear"`
	MarketLiquidity  float64  `json:"market_liquidity"`
	MarketVolatility float64  `json:"market_volatility"`
	Personality      Stance   `json:"ai_personality"`
	Phase            Phase    `json:"ai_phase,omitempty"`
	CenterControl    float64  `json:"center_control,omitempty"`
	RiskTension      float64  `json:"risk_tension,omitempty"`
	Tactics          []string `json:"tactics"`
	BeatMarket       bool     `json:"beat_market"`
}

// DefaultAssets returns the standard five-asset book.
func DefaultAssets() []*Asset {
	return []*Asset{
		{Name: "Apple", Ticker: "AAPL", Quantity: 20, Volatility: 0.18, Liquidity: 0.95},
		{Name: "Google", Ticker: "GOOG", Quantity: 3, Volatility: 0.22, Liquidity: 0.97},
		{Name: "Tesla", Ticker: "TSLA", Quantity: 8, Volatility: 0.35, Liquidity: 0.90},
		{Name: "Microsoft", Ticker: "MSFT", Quantity: 10, Volatility: 0.12, Liquidity: 0.98},
		{Name: "S&P 500 ETF", Ticker: "SPY", Quantity: 10, Volatility: 0.09, Liquidity: 1.0},
	}
}

// Book is the serializable portfolio position.
type Book struct {
	Cash   float64  `json:"cash"`
	Stocks []*Asset `json:"stocks"`
}

// SaveFile writes the position as indented JSON.
func (b Book) SaveFile(path string) error {
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(path, raw, 0o600)
}

// LoadBook reads a position written by SaveFile.
func LoadBook(path string) (Book, error) {
	var b Book
	raw, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal(raw, &b); err != nil {
		return b, fmt.Errorf("decode portfolio: %w", err)
	}
	return b, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
