package market

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
)

type dynamics struct {
	NoiseScale        float64
	ShockProb         float64
	ShockScale        float64
	ExtremeShockProb  float64
	ExtremeShockScale float64
	MeanReversion     float64
	AnchorNoiseScale  float64
	RegimeSwitchProb  float64
	MaxDropPerTick    float64
}

func volatilityParams(mode string) dynamics {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "calm":
		return dynamics{
			NoiseScale:        0.020,
			ShockProb:         0.05,
			ShockScale:        0.09,
			ExtremeShockProb:  0.008,
			ExtremeShockScale: 0.22,
			MeanReversion:     0.03,
			AnchorNoiseScale:  0.012,
			RegimeSwitchProb:  0.04,
			MaxDropPerTick:    1.20,
		}
	case "wild":
		return dynamics{
			NoiseScale:        0.060,
			ShockProb:         0.18,
			ShockScale:        0.20,
			ExtremeShockProb:  0.050,
			ExtremeShockScale: 0.60,
			MeanReversion:     0.010,
			AnchorNoiseScale:  0.038,
			RegimeSwitchProb:  0.11,
			MaxDropPerTick:    2.60,
		}
	default:
		return dynamics{
			NoiseScale:        0.038,
			ShockProb:         0.11,
			ShockScale:        0.14,
			ExtremeShockProb:  0.020,
			ExtremeShockScale: 0.35,
			MeanReversion:     0.018,
			AnchorNoiseScale:  0.022,
			RegimeSwitchProb:  0.07,
			MaxDropPerTick:    2.00,
		}
	}
}

type simState struct {
	price  float64
	anchor float64
}

// Sim is a deterministic pseudo-market. Each ticker starts inside its
// historical band and then follows a drift/noise/mean-reversion walk with
// occasional shocks, so consecutive quotes for the same ticker are related
// rather than independent draws.
type Sim struct {
	mu     sync.Mutex
	rng    *rand.Rand
	params dynamics
	regime string
	states map[string]*simState
}

func NewSim(seed int64, volatility string) *Sim {
	rng := rand.New(rand.NewSource(seed))
	return &Sim{
		rng:    rng,
		params: volatilityParams(volatility),
		regime: randomRegime(rng.Float64()),
		states: make(map[string]*simState),
	}
}

func (s *Sim) Quote(_ context.Context, ticker string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateFor(ticker).price, nil
}

// Tick evolves every known price by one step. Unknown tickers join the table
// on first Quote, so a Tick before any Quote is a no-op.
func (s *Sim) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.params.RegimeSwitchProb {
		s.regime = randomRegime(s.rng.Float64())
	}
	for _, st := range s.states {
		anchorRet := (0.30 * regimeDrift(s.regime)) + s.params.AnchorNoiseScale*normalish(s.rng.Float64())
		if s.rng.Float64() < s.params.ShockProb*0.20 {
			anchorRet += signedShock(s.rng.Float64(), s.rng.Float64(), s.params.ShockScale*0.40)
		}
		st.anchor = evolvePrice(st.anchor, anchorRet, s.params.MaxDropPerTick)

		ret := regimeDrift(s.regime) + s.params.NoiseScale*normalish(s.rng.Float64()) + meanReversion(st.price, st.anchor, s.params.MeanReversion)
		if s.rng.Float64() < s.params.ShockProb {
			ret += signedShock(s.rng.Float64(), s.rng.Float64(), s.params.ShockScale)
		}
		if s.rng.Float64() < s.params.ExtremeShockProb {
			ret += signedShock(s.rng.Float64(), s.rng.Float64(), s.params.ExtremeShockScale)
		}
		st.price = evolvePrice(st.price, ret, s.params.MaxDropPerTick)
	}
}

// Regime reports the current drift regime (bull, bear or neutral).
func (s *Sim) Regime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regime
}

func (s *Sim) stateFor(ticker string) *simState {
	key := strings.ToUpper(strings.TrimSpace(ticker))
	if st, ok := s.states[key]; ok {
		return st
	}
	r := rangeFor(key)
	start := r.lo + s.rng.Float64()*(r.hi-r.lo)
	st := &simState{price: start, anchor: start}
	s.states[key] = st
	return st
}

func randomRegime(seed float64) string {
	switch {
	case seed < 0.33:
		return "bear"
	case seed < 0.66:
		return "neutral"
	default:
		return "bull"
	}
}

func regimeDrift(regime string) float64 {
	switch regime {
	case "bull":
		return 0.0085
	case "bear":
		return -0.0085
	default:
		return 0.0000
	}
}

func meanReversion(price, anchor, strength float64) float64 {
	if anchor <= 0 {
		return 0
	}
	return strength * ((anchor - price) / anchor)
}

func normalish(seed float64) float64 {
	return (seed + seed - 1)
}

func signedShock(magSeed, signSeed, base float64) float64 {
	mag := base * (0.35 + 2.8*magSeed*magSeed)
	if signSeed < 0.5 {
		return -mag
	}
	return mag
}

func evolvePrice(price, ret, maxDropPerTick float64) float64 {
	if price <= 0 {
		return 0.01
	}
	// Bound only the downside; upside can run.
	if ret < -maxDropPerTick {
		ret = -maxDropPerTick
	}
	next := price * math.Exp(ret)
	if next < 0.01 {
		next = 0.01
	}
	return next
}
