package portfolio

import (
	"math"
	"math/rand"
)

type Stance string

const (
	Bullish  Stance = "bullish"
	Bearish  Stance = "bearish"
	Sideways Stance = "sideways"
)

var Stances = []Stance{Bullish, Bearish, Sideways}

// Phase mirrors the arc of a chess game; only the chess-style AI acts on it.
type Phase string

const (
	Opening    Phase = "opening"
	Middlegame Phase = "middlegame"
	Endgame    Phase = "endgame"
	Stability  Phase = "stability"
)

// Observation is one remembered turn.
type Observation struct {
	BeatMarket    bool      `json:"beat_market"`
	Allocation    []float64 `json:"allocation"`
	RiskTension   float64   `json:"risk_tension"`
	CenterControl float64   `json:"center_control"`
}

// Reaction is the market move the AI imposes on the book this turn.
type Reaction struct {
	Volatile      bool
	StrongDrop    bool
	SurpriseRally bool
}

type MarketAIParams struct {
	MemoryLen           int
	BullishThreshold    float64
	BearishThreshold    float64
	SurpriseRallyOdds   float64
	TensionFearWeight   float64
	TensionVolWeight    float64
	TensionLiqWeight    float64
	MiddlegameThreshold float64
	EndgameThreshold    float64
}

// MarketAI is the adaptive counterpart of the investor. The chess variant
// carries a longer memory and a game-phase model that gates its crash move
// to the middlegame.
type MarketAI struct {
	stance    Stance
	chess     bool
	memoryLen int
	memory    []Observation
	lastAlloc []float64
	tension   []float64
	phase     Phase
	turnCount int
	params    MarketAIParams
}

func NewMarketAI(stance Stance, chess bool, p MarketAIParams) *MarketAI {
	if p.MemoryLen < 1 {
		p.MemoryLen = 5
	}
	return &MarketAI{
		stance:    stance,
		chess:     chess,
		memoryLen: p.MemoryLen,
		phase:     Opening,
		params:    p,
	}
}

func (ai *MarketAI) Stance() Stance { return ai.stance }
func (ai *MarketAI) Phase() Phase { return ai.phase }

// RiskTension blends market weather into one scalar, the strategic pressure
// on the position.
func (ai *MarketAI) RiskTension(c Conditions) float64 {
	p := ai.params
	return p.TensionFearWeight*c.Fear + p.TensionVolWeight*c.Volatility + p.TensionLiqWeight*(1-c.Liquidity)
}

// CenterControl is the value share held in the anchor tickers, the chess
// notion of holding the center.
func CenterControl(assets []*Asset) float64 {
	center := map[string]bool{"AAPL": true, "GOOG": true, "MSFT": true}
	var central, total float64
	for _, a := range assets {
		v := a.Value()
		total += v
		if center[a.Ticker] {
			central += v
		}
	}
	if total <= 0 {
		return 0
	}
	return central / total
}

// Observe appends a turn outcome, evicting the oldest past the window, and
// advances the phase model.
func (ai *MarketAI) Observe(o Observation) {
	ai.memory = append(ai.memory, o)
	if len(ai.memory) > ai.memoryLen {
		ai.memory = ai.memory[1:]
	}
	ai.lastAlloc = append([]float64(nil), o.Allocation...)
	ai.tension = append(ai.tension, o.RiskTension)
	ai.turnCount++
	ai.updatePhase()
}

// SuggestShift proposes the market's counter-weights to the last seen
// allocation: when the heaviest position is one of the two anchor assets it
// is dampened and the rest pick up the slack. Before any observation the
// stock anchor-heavy mix is returned.
func (ai *MarketAI) SuggestShift() []float64 {
	p := ai.lastAlloc
	if len(p) == 0 {
		return []float64{0.5, 0.2, 0.1, 0.1, 0.1}
	}
	maxIdx := 0
	for i, v := range p {
		if v > p[maxIdx] {
			maxIdx = i
		}
	}
	weights := append([]float64(nil), p...)
	if maxIdx <= 1 {
		for i := range weights {
			if i == maxIdx {
				weights[i] = p[i] * 0.7
			} else {
				weights[i] = p[i] + 0.1
			}
		}
	}
	var norm float64
	for _, w := range weights {
		norm += w
	}
	if norm == 0 {
		return []float64{0.5, 0.2, 0.1, 0.1, 0.1}
	}
	for i := range weights {
		weights[i] = math.Round(weights[i]/norm*100) / 100
	}
	return weights
}

func (ai *MarketAI) decideStance() {
	if len(ai.memory) < ai.memoryLen {
		return
	}
	wins := 0
	for _, m := range ai.memory {
		if m.BeatMarket {
			wins++
		}
	}
	rate := float64(wins) / float64(len(ai.memory))
	switch {
	case rate > ai.params.BullishThreshold:
		ai.stance = Bullish
	case rate < ai.params.BearishThreshold:
		ai.stance = Bearish
	default:
		ai.stance = Sideways
	}
}

func (ai *MarketAI) updatePhase() {
	if ai.turnCount < 3 {
		ai.phase = Opening
		return
	}
	recent := ai.tension
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	maxT, minT := recent[0], recent[0]
	for _, v := range recent[1:] {
		if v > maxT {
			maxT = v
		}
		if v < minT {
			minT = v
		}
	}
	switch {
	case maxT > ai.params.MiddlegameThreshold:
		ai.phase = Middlegame
	case minT < ai.params.EndgameThreshold:
		ai.phase = Endgame
	default:
		ai.phase = Stability
	}
}

// React re-evaluates the stance and picks this turn's market move.
func (ai *MarketAI) React(rng *rand.Rand) Reaction {
	ai.decideStance()
	drop := ai.stance == Bearish
	if ai.chess {
		drop = drop && ai.phase == Middlegame
	}
	return Reaction{
		Volatile:      ai.stance == Sideways,
		StrongDrop:    drop,
		SurpriseRally: ai.stance == Bullish && rng.Float64() < ai.params.SurpriseRallyOdds,
	}
}

// RandomStance draws a starting temperament.
func RandomStance(rng *rand.Rand) Stance {
	return Stances[rng.Intn(len(Stances))]
}
