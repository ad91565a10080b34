package portfolio

import (
	"math/rand"
	"testing"

	"stratsim/internal/config"
)

func testAI(stance Stance, chess bool) *MarketAI {
	t := config.DefaultTuning().Portfolio
	memoryLen := t.MemoryLen
	if chess {
		memoryLen = t.ChessMemoryLen
	}
	return NewMarketAI(stance, chess, MarketAIParams{
		MemoryLen:           memoryLen,
		BullishThreshold:    t.BullishThreshold,
		BearishThreshold:    t.BearishThreshold,
		SurpriseRallyOdds:   t.SurpriseRallyOdds,
		TensionFearWeight:   t.TensionFearWeight,
		TensionVolWeight:    t.TensionVolWeight,
		TensionLiqWeight:    t.TensionLiqWeight,
		MiddlegameThreshold: t.MiddlegameThreshold,
		EndgameThreshold:    t.EndgameThreshold,
	})
}

func TestStanceAllWinsTurnsBullish(t *testing.T) {
	ai := testAI(Sideways, false)
	for i := 0; i < 5; i++ {
		ai.Observe(Observation{BeatMarket: true, RiskTension: 0.5})
	}
	ai.React(rand.New(rand.NewSource(1)))
	if got := ai.Stance(); got != Bullish {
		t.Fatalf("stance after 5 market beats = %s, want %s", got, Bullish)
	}
}

func TestStanceAllLossesTurnsBearish(t *testing.T) {
	ai := testAI(Bullish, false)
	for i := 0; i < 5; i++ {
		ai.Observe(Observation{BeatMarket: false, RiskTension: 0.5})
	}
	ai.React(rand.New(rand.NewSource(1)))
	if got := ai.Stance(); got != Bearish {
		t.Fatalf("stance after 5 misses = %s, want %s", got, Bearish)
	}
}

func TestChessMemoryIsSeven(t *testing.T) {
	ai := testAI(Sideways, true)
	for i := 0; i < 10; i++ {
		ai.Observe(Observation{BeatMarket: true, RiskTension: 0.5})
	}
	if len(ai.memory) != 7 {
		t.Fatalf("chess memory length = %d, want 7", len(ai.memory))
	}
}

func TestChessDropGatedOnMiddlegame(t *testing.T) {
	ai := testAI(Bearish, true)
	// Low tension keeps the phase out of the middlegame.
	for i := 0; i < 7; i++ {
		ai.Observe(Observation{BeatMarket: false, RiskTension: 0.2})
	}
	r := ai.React(rand.New(rand.NewSource(1)))
	if ai.Phase() == Middlegame {
		t.Fatalf("phase = %s with low tension", ai.Phase())
	}
	if r.StrongDrop {
		t.Fatal("bearish chess AI dropped outside the middlegame")
	}

	// High tension pushes the phase into the middlegame.
	for i := 0; i < 3; i++ {
		ai.Observe(Observation{BeatMarket: false, RiskTension: 0.9})
	}
	r = ai.React(rand.New(rand.NewSource(1)))
	if ai.Phase() != Middlegame {
		t.Fatalf("phase = %s, want middlegame", ai.Phase())
	}
	if !r.StrongDrop {
		t.Fatal("bearish chess AI must drop in the middlegame")
	}
}

func TestPlainBearishAlwaysDrops(t *testing.T) {
	ai := testAI(Bearish, false)
	r := ai.React(rand.New(rand.NewSource(1)))
	if !r.StrongDrop {
		t.Fatal("bearish plain AI must drop regardless of phase")
	}
}

func TestRiskTensionWeights(t *testing.T) {
	ai := testAI(Sideways, true)
	got := ai.RiskTension(Conditions{Fear: 1, Volatility: 1, Liquidity: 0})
	if got != 1 {
		t.Fatalf("max tension = %v, want 1", got)
	}
	got = ai.RiskTension(Conditions{Fear: 0, Volatility: 0, Liquidity: 1})
	if got != 0 {
		t.Fatalf("min tension = %v, want 0", got)
	}
}

func TestSuggestShiftDefaultMix(t *testing.T) {
	ai := testAI(Sideways, false)
	want := []float64{0.5, 0.2, 0.1, 0.1, 0.1}
	got := ai.SuggestShift()
	if len(got) != len(want) {
		t.Fatalf("shift length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("shift[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSuggestShiftDampensAnchorOverweight(t *testing.T) {
	ai := testAI(Sideways, false)
	alloc := []float64{0.6, 0.1, 0.1, 0.1, 0.1}
	ai.Observe(Observation{BeatMarket: true, Allocation: alloc, RiskTension: 0.5})

	got := ai.SuggestShift()
	if got[0] >= alloc[0] {
		t.Fatalf("overweight share = %v after shift, want < %v", got[0], alloc[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= alloc[i] {
			t.Fatalf("share[%d] = %v after shift, want > %v", i, got[i], alloc[i])
		}
	}
	var sum float64
	for _, w := range got {
		sum += w
	}
	if sum < 0.97 || sum > 1.03 {
		t.Fatalf("shift weights sum = %v, want ~1", sum)
	}
}

func TestSuggestShiftLeavesNonAnchorHeavyMix(t *testing.T) {
	ai := testAI(Sideways, false)
	alloc := []float64{0.1, 0.1, 0.6, 0.1, 0.1}
	ai.Observe(Observation{BeatMarket: true, Allocation: alloc, RiskTension: 0.5})

	got := ai.SuggestShift()
	for i := range alloc {
		if got[i] != alloc[i] {
			t.Fatalf("shift[%d] = %v, want %v unchanged", i, got[i], alloc[i])
		}
	}
}

func TestCenterControl(t *testing.T) {
	assets := []*Asset{
		{Ticker: "AAPL", Quantity: 1, price: 100},
		{Ticker: "TSLA", Quantity: 1, price: 100},
	}
	if got := CenterControl(assets); got != 0.5 {
		t.Fatalf("center control = %v, want 0.5", got)
	}
	if got := CenterControl(nil); got != 0 {
		t.Fatalf("empty center control = %v, want 0", got)
	}
}
