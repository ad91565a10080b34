package portfolio

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"stratsim/internal/config"
	"stratsim/internal/market"
)

// Options configures a new portfolio run.
type Options struct {
	Seed      int64
	Stance    Stance // empty = random draw
	ChessAI   bool
	AllocDist []int // percent split across the book; nil = default
	TurnLimit int
	Cash      float64  // 0 = default 10000
	Assets    []*Asset // nil = default book
	Tuning    config.PortfolioTuning
}

// Engine plays the portfolio game against a quoter. As with the campaign
// engine, a fixed seed and a deterministic quoter replay an identical run.
type Engine struct {
	tuning config.PortfolioTuning
	rng    *rand.Rand
	quoter market.Quoter
	ai     *MarketAI

	assets []*Asset
	cash   float64
	alloc  []int
	cond   Conditions

	turn      int
	turnLimit int
	finished  bool

	logs    []LogEntry
	history []Record
}

func New(quoter market.Quoter, opts Options) (*Engine, error) {
	if opts.TurnLimit <= 0 {
		return nil, ErrInvalidTurns
	}
	if opts.Tuning.MemoryLen == 0 {
		opts.Tuning = config.DefaultTuning().Portfolio
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	stance := opts.Stance
	if stance == "" {
		stance = RandomStance(rng)
	}
	assets := opts.Assets
	if len(assets) == 0 {
		assets = DefaultAssets()
	}
	cash := opts.Cash
	if cash == 0 {
		cash = 10000
	}
	alloc := opts.AllocDist
	if len(alloc) != len(assets) {
		alloc = make([]int, len(assets))
		copy(alloc, DefaultAllocDist)
	}

	memoryLen := opts.Tuning.MemoryLen
	if opts.ChessAI {
		memoryLen = opts.Tuning.ChessMemoryLen
	}
	ai := NewMarketAI(stance, opts.ChessAI, MarketAIParams{
		MemoryLen:           memoryLen,
		BullishThreshold:    opts.Tuning.BullishThreshold,
		BearishThreshold:    opts.Tuning.BearishThreshold,
		SurpriseRallyOdds:   opts.Tuning.SurpriseRallyOdds,
		TensionFearWeight:   opts.Tuning.TensionFearWeight,
		TensionVolWeight:    opts.Tuning.TensionVolWeight,
		TensionLiqWeight:    opts.Tuning.TensionLiqWeight,
		MiddlegameThreshold: opts.Tuning.MiddlegameThreshold,
		EndgameThreshold:    opts.Tuning.EndgameThreshold,
	})

	return &Engine{
		tuning: opts.Tuning,
		rng:    rng,
		quoter: quoter,
		ai:     ai,
		assets: assets,
		cash:   cash,
		alloc:  alloc,
		cond: Conditions{
			Fear:       0.1 + rng.Float64()*0.8,
			Liquidity:  0.5 + rng.Float64()*0.5,
			Volatility: 0.1 + rng.Float64()*0.3,
		},
		turnLimit: opts.TurnLimit,
	}, nil
}

func (e *Engine) Assets() []*Asset { return e.assets }
func (e *Engine) Cash() float64 { return e.cash }
func (e *Engine) Conditions() Conditions { return e.cond }
func (e *Engine) AI() *MarketAI { return e.ai }
func (e *Engine) Turn() int { return e.turn }
func (e *Engine) Finished() bool { return e.finished }
func (e *Engine) Logs() []LogEntry { return e.logs }
func (e *Engine) History() []Record { return e.history }

// TotalValue is cash plus the book at current prices.
func (e *Engine) TotalValue() float64 {
	v := e.cash
	for _, a := range e.assets {
		v += a.Value()
	}
	return v
}

// Allocation is the value share per asset of the whole position.
func (e *Engine) Allocation() []float64 {
	total := e.TotalValue()
	out := make([]float64, len(e.assets))
	if total <= 0 {
		return out
	}
	for i, a := range e.assets {
		out[i] = a.Value() / total
	}
	return out
}

// Book returns the serializable position.
func (e *Engine) Book() Book {
	return Book{Cash: e.cash, Stocks: e.assets}
}

// Advance plays up to n turns, stopping early when the portfolio is wiped
// out.
func (e *Engine) Advance(ctx context.Context, n int) error {
	if n <= 0 {
		return ErrInvalidTurns
	}
	if e.finished {
		return ErrFinished
	}
	for i := 0; i < n && !e.finished; i++ {
		if err := e.runTurn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run plays the game out to its turn limit.
func (e *Engine) Run(ctx context.Context) error {
	if e.finished {
		return ErrFinished
	}
	for !e.finished {
		if err := e.runTurn(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runTurn(ctx context.Context) error {
	e.turn++
	e.logf(LogInfo, "--- Turn %d ---", e.turn)

	if ticker, ok := e.quoter.(market.Ticker); ok {
		ticker.Tick()
	}
	if err := e.refreshPrices(ctx); err != nil {
		return err
	}
	e.driftConditions()

	valueBefore := e.TotalValue()
	indexStart, err := e.quoter.Quote(ctx, IndexTicker)
	if err != nil {
		return fmt.Errorf("index quote: %w", err)
	}

	tension := e.ai.RiskTension(e.cond)
	control := CenterControl(e.assets)
	tactics := e.advise(tension, control)
	for _, rec := range tactics {
		e.logf(LogAI, "AI Strategy: %s", rec)
	}

	e.rebalance()
	e.applyReaction()

	newValue := e.TotalValue()
	indexEnd, err := e.quoter.Quote(ctx, IndexTicker)
	if err != nil {
		return fmt.Errorf("index quote: %w", err)
	}
	beatMarket := (newValue - valueBefore) > (indexEnd - indexStart)

	allocation := e.Allocation()
	e.ai.Observe(Observation{
		BeatMarket:    beatMarket,
		Allocation:    allocation,
		RiskTension:   tension,
		CenterControl: control,
	})
	e.correctConcentration(allocation)

	e.logf(LogInfo, "Total portfolio value: $%.2f (Cash: $%.2f)", newValue, e.cash)
	for _, a := range e.assets {
		e.logf(LogInfo, "  %s: %d units @ $%.2f each, Total=$%.2f", a.Ticker, a.Quantity, a.price, a.Value())
	}

	rec := Record{
		Turn:             e.turn,
		PortfolioValue:   newValue,
		Cash:             e.cash,
		MarketFear:       e.cond.Fear,
		MarketLiquidity:  e.cond.Liquidity,
		MarketVolatility: e.cond.Volatility,
		Personality:      e.ai.Stance(),
		Tactics:          tactics,
		BeatMarket:       beatMarket,
	}
	if e.ai.chess {
		rec.Phase = e.ai.Phase()
		rec.CenterControl = control
		rec.RiskTension = tension
	}
	e.history = append(e.history, rec)

	if newValue <= 0 {
		e.finished = true
		e.logf(LogLoss, "Portfolio lost. Simulation ended.")
		return nil
	}
	if e.turn >= e.turnLimit {
		e.finished = true
	}
	return nil
}

func (e *Engine) refreshPrices(ctx context.Context) error {
	for _, a := range e.assets {
		price, err := e.quoter.Quote(ctx, a.Ticker)
		if err != nil {
			return fmt.Errorf("quote %s: %w", a.Ticker, err)
		}
		a.price = price
	}
	return nil
}

func (e *Engine) driftConditions() {
	t := e.tuning
	e.cond.Fear = clamp01(e.cond.Fear + (e.rng.Float64()*2-1)*t.FearDrift)
	e.cond.Liquidity = clamp01(e.cond.Liquidity + (e.rng.Float64()*2-1)*t.LiquidityDrift)
	e.cond.Volatility = clamp01(e.cond.Volatility + (e.rng.Float64()*2-1)*t.VolatilityDrift)
}

// advise produces the per-asset strategy lines; the chess AI reads tension,
// control and phase, the plain AI reads raw market weather.
func (e *Engine) advise(tension, control float64) []string {
	var recs []string
	c := e.cond
	for _, a := range e.assets {
		if e.ai.chess {
			switch {
			case tension > 0.7 && c.Liquidity < 0.5:
				recs = append(recs, fmt.Sprintf("[DEFENSE] Reduce %s, high tension and low liquidity.", a.Ticker))
			case control > 0.55 && e.cash > a.price:
				recs = append(recs, fmt.Sprintf("[ATTACK] Strengthen %s, central market control (>55%%).", a.Ticker))
			case tension < 0.4:
				recs = append(recs, fmt.Sprintf("[ENDGAME] Stabilize %s: low tension, aim for regular returns.", a.Ticker))
			case c.Volatility > 0.6 && a.Quantity > 0:
				recs = append(recs, fmt.Sprintf("[FLEXIBILITY] Sell part of %s due to excessive volatility.", a.Ticker))
			case c.Liquidity < 0.4:
				recs = append(recs, "[CAUTION] Preserve liquidity, avoid overly aggressive moves.")
			}
			switch e.ai.Phase() {
			case Opening:
				recs = append(recs, fmt.Sprintf("[PREPARATION] Position %s for next cycle.", a.Ticker))
			case Middlegame:
				recs = append(recs, fmt.Sprintf("[TENSION] Exploit imbalances, play on mobility of %s.", a.Ticker))
			case Endgame:
				recs = append(recs, fmt.Sprintf("[SIMPLIFICATION] Reduce risks, liquidate %s if necessary.", a.Ticker))
			case Stability:
				recs = append(recs, "[STABLE] Maximize returns without high risk.")
			}
			if e.turn%4 == 0 {
				recs = append(recs, fmt.Sprintf("[PROPHYLAXIS] Re-evaluate %s (anticipate market change, turn %d).", a.Ticker, e.turn))
			}
			continue
		}
		switch {
		case c.Fear > 0.7 && c.Liquidity > 0.5 && e.cash > a.price:
			recs = append(recs, fmt.Sprintf("Buy more %s: market is fearful, opportunity to attack.", a.Ticker))
		case c.Volatility > 0.6 && a.Quantity > 0:
			recs = append(recs, fmt.Sprintf("Consider selling part of %s: market is volatile, reduce risk.", a.Ticker))
		case c.Liquidity < 0.4:
			recs = append(recs, "Hold cash, liquidity is low: avoid aggressive moves.")
		}
		if e.turn%5 == 0 {
			recs = append(recs, fmt.Sprintf("Reassess strategy for %s on turn %d.", a.Ticker, e.turn))
		}
	}
	return recs
}

// rebalance moves each asset toward its target value share, buys limited by
// available cash.
func (e *Engine) rebalance() {
	total := e.TotalValue()
	for i, a := range e.assets {
		if a.price <= 0 {
			continue
		}
		target := total * float64(e.alloc[i]) / 100
		diff := int64(target/a.price) - a.Quantity
		if diff > 0 {
			cost := float64(diff) * a.price
			if cost <= e.cash {
				e.cash -= cost
				a.Quantity += diff
				e.logf(LogTrade, "Bought %d %s.", diff, a.Ticker)
			}
		} else if diff < 0 {
			e.cash += float64(-diff) * a.price
			a.Quantity += diff
			e.logf(LogTrade, "Sold %d %s.", -diff, a.Ticker)
		}
	}
}

func (e *Engine) applyReaction() {
	t := e.tuning
	react := e.ai.React(e.rng)
	if react.StrongDrop {
		e.logf(LogLoss, "Market crash! Aggressive positions penalized!")
		for _, a := range e.assets {
			drop := t.DropMin + e.rng.Float64()*(t.DropMax-t.DropMin)
			if e.rng.Float64() < t.DropChance {
				a.Quantity = int64(float64(a.Quantity) * (1 - drop))
				if a.Quantity < 0 {
					a.Quantity = 0
				}
			}
		}
	}
	if react.SurpriseRally {
		e.logf(LogWin, "Surprise rally: Weak positions surge!")
		for _, a := range e.assets {
			gain := t.RallyMin + e.rng.Float64()*(t.RallyMax-t.RallyMin)
			if e.rng.Float64() < t.RallyChance {
				a.Quantity = int64(float64(a.Quantity) * (1 + gain))
			}
		}
	}
}

// correctConcentration is the market's counter-strategy against an
// overweight book: it tightens liquidity and turns more erratic, steering
// the position toward the AI's suggested mix.
func (e *Engine) correctConcentration(allocation []float64) {
	t := e.tuning
	maxIdx := -1
	for i, v := range allocation {
		if maxIdx < 0 || v > allocation[maxIdx] {
			maxIdx = i
		}
	}
	if maxIdx < 0 || allocation[maxIdx] <= t.ConcentrationLimit {
		return
	}
	shift := e.ai.SuggestShift()
	e.cond.Volatility = clamp01(e.cond.Volatility + t.ConcentrationVolPush)
	e.cond.Liquidity = clamp01(e.cond.Liquidity - t.ConcentrationLiqCut)
	e.logf(LogAI, "Market corrects against the %s overweight; suggested mix %s.",
		e.assets[maxIdx].Ticker, formatWeights(shift))
}

func formatWeights(w []float64) string {
	parts := make([]string, len(w))
	for i, v := range w {
		parts[i] = fmt.Sprintf("%.2f", v)
	}
	return strings.Join(parts, "/")
}

func (e *Engine) logf(kind LogKind, format string, args ...any) {
	e.logs = append(e.logs, LogEntry{
		Turn:    e.turn,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}
