package campaign

import "math/rand"

type Personality string

const (
	Aggressive Personality = "aggressive"
	Defensive  Personality = "defensive"
	Deceptive  Personality = "deceptive"
)

// Personalities lists the valid opponent temperaments.
var Personalities = []Personality{Aggressive, Defensive, Deceptive}

// Outcome is one remembered round from the opponent's point of view.
type Outcome struct {
	PlayerWin  bool      `json:"player_win"`
	PlayerDist []float64 `json:"player_dist"`
}

// Behavior is the opponent's stance for one round.
type Behavior struct {
	Confidence bool
	Avoid      bool
	Feint      bool
}

// Opponent adapts its personality from a bounded window of observed rounds.
// Until the window fills it keeps the personality it was created with; after
// that the personality is a pure function of the remembered win rate.
type Opponent struct {
	personality Personality
	memoryLen   int
	memory      []Outcome
	lastDist    []float64

	aggressiveThreshold float64
	defensiveThreshold  float64
	feintChance         float64
}

type OpponentParams struct {
	MemoryLen           int
	AggressiveThreshold float64
	DefensiveThreshold  float64
	FeintChance         float64
}

func NewOpponent(personality Personality, p OpponentParams) *Opponent {
	if p.MemoryLen < 1 {
		p.MemoryLen = 5
	}
	return &Opponent{
		personality:         personality,
		memoryLen:           p.MemoryLen,
		lastDist:            []float64{0.7, 0.15, 0.1, 0.05, 0, 0, 0},
		aggressiveThreshold: p.AggressiveThreshold,
		defensiveThreshold:  p.DefensiveThreshold,
		feintChance:         p.FeintChance,
	}
}

func (o *Opponent) Personality() Personality { return o.personality }

// SetPersonality overrides the current temperament; used when restoring a
// saved campaign.
func (o *Opponent) SetPersonality(p Personality) { o.personality = p }

// Observe appends a round outcome, evicting the oldest once the window is
// full.
func (o *Opponent) Observe(out Outcome) {
	o.memory = append(o.memory, out)
	if len(o.memory) > o.memoryLen {
		o.memory = o.memory[1:]
	}
	if len(out.PlayerDist) > 0 {
		o.lastDist = out.PlayerDist
	}
}

func (o *Opponent) decidePersonality() {
	if len(o.memory) < o.memoryLen {
		return
	}
	wins := 0
	for _, m := range o.memory {
		if m.PlayerWin {
			wins++
		}
	}
	rate := float64(wins) / float64(len(o.memory))
	switch {
	case rate > o.aggressiveThreshold:
		o.personality = Aggressive
	case rate < o.defensiveThreshold:
		o.personality = Defensive
	default:
		o.personality = Deceptive
	}
}

// AdjustBehavior re-evaluates the personality and derives this round's
// stance. The single random draw feeds the baseline feint chance.
func (o *Opponent) AdjustBehavior(rng *rand.Rand) Behavior {
	o.decidePersonality()
	return Behavior{
		Confidence: o.personality == Aggressive,
		Avoid:      o.personality == Defensive,
		Feint:      o.personality == Deceptive || rng.Float64() < o.feintChance,
	}
}

// SuggestDistribution counters the player's heaviest allocation: it discounts
// the dominant slot, shifts weight toward answers to it, and normalizes.
func (o *Opponent) SuggestDistribution() []float64 {
	p := o.lastDist
	if len(p) < len(UnitKeys) {
		padded := make([]float64, len(UnitKeys))
		copy(padded, p)
		p = padded
	}
	maxIdx := 0
	for i, v := range p {
		if v > p[maxIdx] {
			maxIdx = i
		}
	}
	weights := make([]float64, len(p))
	copy(weights, p)
	switch maxIdx {
	case 0: // sales push: answer with marketing and product
		weights[0] = p[0] * 0.7
		weights[1] = p[1] + 0.1
		weights[2] = p[2] + 0.2
	case 1: // marketing push: answer with sales and legal cover
		weights[0] = p[0] + 0.1
		weights[1] = p[1] * 0.7
		weights[3] = p[3] + 0.2
	case 2: // R&D push: answer with sales and patents
		weights[0] = p[0] + 0.2
		weights[2] = p[2] * 0.7
		weights[3] = p[3] + 0.1
	}
	var norm float64
	for _, w := range weights {
		norm += w
	}
	if norm == 0 {
		return []float64{0.7, 0.15, 0.1, 0.05, 0, 0, 0}
	}
	for i := range weights {
		weights[i] /= norm
	}
	return weights
}

// RandomPersonality draws a starting temperament.
func RandomPersonality(rng *rand.Rand) Personality {
	return Personalities[rng.Intn(len(Personalities))]
}
