// Package campaign implements the turn-based business campaign: seven-unit
// company books on both sides, an adaptive opponent, and a quarterly
// resolution loop driven by a seeded random source.
package campaign

import "errors"

var (
	ErrFinished        = errors.New("campaign already finished")
	ErrInvalidTurns    = errors.New("turn count must be > 0")
	ErrNoCompetitors   = errors.New("campaign needs at least one competitor")
	ErrSnapshotVersion = errors.New("unsupported snapshot version")
)

// UnitKeys fixes the canonical unit order; distributions and snapshots index
// into it.
var UnitKeys = []string{
	"sales_team", "marketing", "rnd", "legal", "finance", "analytics", "intelligence",
}

// DefaultInvestDist is the fallback investment split across UnitKeys.
var DefaultInvestDist = []int{30, 20, 15, 10, 15, 5, 5}

type Unit struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	Budget     int64   `json:"budget"`
	Impact     float64 `json:"impact"`
	Resilience float64 `json:"resilience"`
	Agility    float64 `json:"agility"`
	Talent     float64 `json:"talent"`
	BrandBoost bool    `json:"brand_boost,omitempty"`
	Innovation bool    `json:"innovation,omitempty"`
	Patent     bool    `json:"patent,omitempty"`
	Espionage  int     `json:"espionage,omitempty"`
}

type Resources struct {
	Cash             int64 `json:"cash"`
	InvestmentPoints int64 `json:"investment_points"`
	BrandStrength    int64 `json:"brand_strength"`
}

type Competitor struct {
	Name      string
	Units     []*Unit
	AI        *Opponent
	Sentiment float64
}

type LogKind string

const (
	LogInfo       LogKind = "info"
	LogSuccess    LogKind = "success"
	LogFailure    LogKind = "failure"
	LogInvestment LogKind = "investment"
	LogSabotage   LogKind = "sabotage"
	LogIntel      LogKind = "intel"
	LogEvent      LogKind = "event"
)

type LogEntry struct {
	Turn    int     `json:"turn"`
	Kind    LogKind `json:"kind"`
	Message string  `json:"message"`
}

// TurnRecord is the immutable snapshot appended after each quarter resolves.
type TurnRecord struct {
	Turn                int         `json:"quarter"`
	Quarter             string      `json:"quarter_label"`
	MarketShare         int64       `json:"market_share"`
	CompetitorShare     int64       `json:"competitor_share"`
	Sentiment           float64     `json:"sentiment"`
	CompetitorSentiment float64     `json:"competitor_sentiment"`
	Stress              float64     `json:"stress"`
	Liquidity           float64     `json:"liquidity"`
	Resources           Resources   `json:"resources"`
	Market              string      `json:"market"`
	Economy             string      `json:"economy"`
	Actions             []string    `json:"actions"`
	StrategicActions    int         `json:"strategic_actions"`
	OpponentPersonality Personality `json:"competitor_ai"`
}

type Verdict string

const (
	VerdictRunning  Verdict = "running"
	VerdictWon      Verdict = "won"
	VerdictLost     Verdict = "lost"
	VerdictBankrupt Verdict = "bankrupt"
	VerdictVictory  Verdict = "victory" // competitor wiped out before the turn limit
)

var marketTypes = []string{
	"stable", "volatile", "regulated", "expanding", "recessive", "emerging", "saturated", "niche",
}

var economicConditions = []string{
	"growth", "recession", "inflation", "stagnation", "boom", "crisis",
}

var quarterCycle = []string{"Q1", "Q2", "Q3", "Q4"}

// DefaultPlayerUnits returns the standard player book.
func DefaultPlayerUnits() []*Unit {
	return []*Unit{
		{Key: "sales_team", Name: "Sales Team", Budget: 3000, Impact: 8, Resilience: 6, Agility: 7, Talent: 0.6},
		{Key: "marketing", Name: "Marketing", Budget: 1500, Impact: 10, Resilience: 5, Agility: 6, Talent: 0.5, BrandBoost: true},
		{Key: "rnd", Name: "R&D", Budget: 800, Impact: 15, Resilience: 8, Agility: 5, Talent: 0.7, Innovation: true},
		{Key: "legal", Name: "Legal", Budget: 400, Impact: 4, Resilience: 13, Agility: 3, Talent: 0.4, Patent: true},
		{Key: "finance", Name: "Finance", Budget: 1000, Impact: 6, Resilience: 10, Agility: 4, Talent: 0.5},
		{Key: "analytics", Name: "Analytics", Budget: 300, Impact: 5, Resilience: 7, Agility: 4, Talent: 0.5},
		{Key: "intelligence", Name: "Market Intelligence", Budget: 100, Impact: 2, Resilience: 2, Agility: 7, Talent: 0.6, Espionage: 9},
	}
}

// DefaultCompetitorUnits returns a slightly weaker mirror of the player book.
func DefaultCompetitorUnits(prefix string) []*Unit {
	return []*Unit{
		{Key: "sales_team", Name: prefix + " Sales Team", Budget: 2800, Impact: 8, Resilience: 6, Agility: 7, Talent: 0.6},
		{Key: "marketing", Name: prefix + " Marketing", Budget: 1400, Impact: 10, Resilience: 5, Agility: 6, Talent: 0.5, BrandBoost: true},
		{Key: "rnd", Name: prefix + " R&D", Budget: 700, Impact: 15, Resilience: 8, Agility: 5, Talent: 0.7, Innovation: true},
		{Key: "legal", Name: prefix + " Legal", Budget: 350, Impact: 4, Resilience: 13, Agility: 3, Talent: 0.4, Patent: true},
		{Key: "finance", Name: prefix + " Finance", Budget: 900, Impact: 6, Resilience: 10, Agility: 4, Talent: 0.5},
		{Key: "analytics", Name: prefix + " Analytics", Budget: 250, Impact: 5, Resilience: 7, Agility: 4, Talent: 0.5},
		{Key: "intelligence", Name: prefix + " Intelligence", Budget: 90, Impact: 2, Resilience: 2, Agility: 7, Talent: 0.6, Espionage: 8},
	}
}

// TotalAssets sums the budgets of a unit book.
func TotalAssets(units []*Unit) int64 {
	var total int64
	for _, u := range units {
		total += u.Budget
	}
	return total
}

func unitByKey(units []*Unit, key string) *Unit {
	for _, u := range units {
		if u.Key == key {
			return u
		}
	}
	return nil
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
