package campaign

import (
	"fmt"
	"math/rand"

	"stratsim/internal/config"
)

// Options configures a new campaign.
type Options struct {
	Seed        int64
	Personality Personality // empty = random draw
	InvestDist  []int       // percent split across UnitKeys; nil = default
	Competitors []string    // competitor names; nil = single "Competitor"
	TurnLimit   int
	Tuning      config.CampaignTuning
}

// State is the mutable campaign position between turns.
type State struct {
	Units       []*Unit
	Competitors []*Competitor

	Leadership float64
	Resources  Resources

	Stress             float64
	Liquidity          float64
	Sentiment          float64
	IntelEffectiveness float64

	Market  string
	Economy string
	Quarter string
}

// Engine drives a campaign turn by turn. All randomness flows through one
// seeded source, so a fixed seed replays an identical campaign.
type Engine struct {
	tuning     config.CampaignTuning
	rng        *rand.Rand
	seed       int64
	state      *State
	investDist []int

	turn      int
	turnLimit int
	verdict   Verdict

	logs    []LogEntry
	history []TurnRecord
}

func New(opts Options) (*Engine, error) {
	if opts.TurnLimit <= 0 {
		return nil, ErrInvalidTurns
	}
	if opts.Tuning.MemoryLen == 0 {
		opts.Tuning = config.DefaultTuning().Campaign
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	personality := opts.Personality
	if personality == "" {
		personality = RandomPersonality(rng)
	}
	names := opts.Competitors
	if len(names) == 0 {
		names = []string{"Competitor"}
	}
	dist := opts.InvestDist
	if len(dist) != len(UnitKeys) {
		dist = DefaultInvestDist
	}

	state := &State{
		Units:      DefaultPlayerUnits(),
		Leadership: 0.85,
		Resources:  Resources{Cash: 2000, InvestmentPoints: 300},
		Stress:     0.0,
		Liquidity:  1.0,
		Sentiment:  0.7,
		Market:     marketTypes[rng.Intn(len(marketTypes))],
		Economy:    economicConditions[rng.Intn(len(economicConditions))],
		Quarter:    quarterCycle[rng.Intn(len(quarterCycle))],
	}
	for _, name := range names {
		state.Competitors = append(state.Competitors, &Competitor{
			Name:      name,
			Units:     DefaultCompetitorUnits(name),
			AI:        NewOpponent(personality, opponentParams(opts.Tuning)),
			Sentiment: 0.6,
		})
	}

	return &Engine{
		tuning:     opts.Tuning,
		rng:        rng,
		seed:       opts.Seed,
		state:      state,
		investDist: dist,
		turnLimit:  opts.TurnLimit,
		verdict:    VerdictRunning,
	}, nil
}

func opponentParams(t config.CampaignTuning) OpponentParams {
	return OpponentParams{
		MemoryLen:           t.MemoryLen,
		AggressiveThreshold: t.AggressiveThreshold,
		DefensiveThreshold:  t.DefensiveThreshold,
		FeintChance:         t.FeintChance,
	}
}

func (e *Engine) State() *State { return e.state }
func (e *Engine) Seed() int64 { return e.seed }
func (e *Engine) Turn() int { return e.turn }
func (e *Engine) TurnLimit() int { return e.turnLimit }
func (e *Engine) Verdict() Verdict { return e.verdict }
func (e *Engine) Finished() bool { return e.verdict != VerdictRunning }
func (e *Engine) Logs() []LogEntry { return e.logs }
func (e *Engine) History() []TurnRecord { return e.history }
func (e *Engine) InvestDist() []int { return e.investDist }

// Advance runs up to n turns, stopping early when the campaign resolves.
func (e *Engine) Advance(n int) error {
	if n <= 0 {
		return ErrInvalidTurns
	}
	if e.Finished() {
		return ErrFinished
	}
	for i := 0; i < n && !e.Finished(); i++ {
		e.runTurn()
	}
	return nil
}

// Run plays the campaign out to its turn limit.
func (e *Engine) Run() error {
	if e.Finished() {
		return ErrFinished
	}
	for !e.Finished() {
		e.runTurn()
	}
	return nil
}

func (e *Engine) runTurn() {
	t := e.tuning
	e.turn++
	e.logf(LogInfo, "--- Quarter %d ---", e.turn)

	if e.turn%2 == 0 {
		e.state.Economy = economicConditions[e.rng.Intn(len(economicConditions))]
	}
	e.state.Quarter = quarterCycle[(e.turn-1)%len(quarterCycle)]
	if e.rng.Float64() < t.MarketShiftChance {
		e.state.Market = marketTypes[e.rng.Intn(len(marketTypes))]
	}

	e.environmentEffects()
	e.externalEvent()
	e.liquidityEvent()

	var actions []string
	for _, comp := range e.state.Competitors {
		actions = append(actions, e.tacticalPlays(comp)...)
	}
	actions = append(actions, e.intelOperations()...)

	e.resourceManagement()
	e.state.Sentiment = e.recomputeSentiment()

	var playerLosses, competitorLosses int64
	rounds := make([]roundResult, 0, len(e.state.Competitors))
	for _, comp := range e.state.Competitors {
		pl, cl := e.resolveAgainst(comp)
		playerLosses += pl
		competitorLosses += cl
		rounds = append(rounds, roundResult{comp: comp, playerLosses: pl, competitorLosses: cl})
	}

	stressGain := t.BaseStressGain + float64(playerLosses)/t.StressLossDivisor
	e.state.Stress = clamp01(e.state.Stress + stressGain)
	e.state.Liquidity = clamp01(e.state.Liquidity - (t.LiquidityDecay + stressGain*0.5))

	e.postCompetitionEffects(playerLosses, competitorLosses)
	e.updateOpponents(rounds)

	e.appendRecord(actions)
	e.checkTermination()
}

func (e *Engine) environmentEffects() {
	t := e.tuning
	if e.state.Quarter == "Q4" {
		e.logf(LogEvent, "Year-end effect: increased stress and tighter budgets.")
		e.state.Stress = clamp01(e.state.Stress + t.QuarterFourStress)
	}
	switch e.state.Economy {
	case "inflation":
		e.logf(LogEvent, "Inflation: profitability of marketing and innovation reduced.")
		cutBudget(unitByKey(e.state.Units, "marketing"), t.InflationBudgetCut)
		for _, comp := range e.state.Competitors {
			cutBudget(unitByKey(comp.Units, "marketing"), t.InflationBudgetCut)
		}
	case "growth":
		e.logf(LogEvent, "Growth: liquidity strengthened.")
		e.state.Liquidity = clamp01(e.state.Liquidity + t.GrowthLiquidity)
	}
}

// externalEvent fires at most one market-wide shock per quarter.
func (e *Engine) externalEvent() {
	t := e.tuning
	if e.rng.Float64() >= t.ExternalEventOdds {
		return
	}
	switch e.rng.Intn(3) {
	case 0:
		e.logf(LogEvent, "Tech breakthrough: R&D effectiveness surges.")
		if u := unitByKey(e.state.Units, "rnd"); u != nil {
			u.Impact *= t.TechImpactBoost
		}
	case 1:
		e.logf(LogEvent, "Market crash: liquidity evaporates, stress spikes.")
		e.state.Liquidity = clamp01(e.state.Liquidity - t.CrashLiquidityHit)
		e.state.Stress = clamp01(e.state.Stress + t.CrashStressHit)
	default:
		e.logf(LogEvent, "Regulatory change: legal departments staff up.")
		if u := unitByKey(e.state.Units, "legal"); u != nil {
			u.Budget += t.RegulatoryLegalGrant
		}
		for _, comp := range e.state.Competitors {
			if u := unitByKey(comp.Units, "legal"); u != nil {
				u.Budget += t.RegulatoryLegalGrant
			}
		}
	}
}

func (e *Engine) liquidityEvent() {
	t := e.tuning
	var intelBudget int64
	for _, comp := range e.state.Competitors {
		if u := unitByKey(comp.Units, "intelligence"); u != nil && u.Budget > intelBudget {
			intelBudget = u.Budget
		}
	}
	chance := t.LiquidityEventBase + float64(intelBudget)/t.LiquidityIntelDivisor
	if e.rng.Float64() < chance && e.state.Liquidity < t.LiquidityEventFloor {
		penalty := t.LiquidityPenaltyMin + e.rng.Float64()*t.LiquidityPenaltyRange
		e.state.Stress = clamp01(e.state.Stress + penalty)
		e.logf(LogSabotage, "Liquidity issue! Stress increased by %.2f.", penalty)
	}
}

func (e *Engine) tacticalPlays(comp *Competitor) []string {
	var actions []string
	playerAssets := TotalAssets(e.state.Units)
	compAssets := TotalAssets(comp.Units)

	if comp.Sentiment > 0.7 && e.turn%3 == 0 {
		actions = append(actions, fmt.Sprintf("Aggressive marketing campaign distracts %s.", comp.Name))
		comp.Sentiment = clamp01(comp.Sentiment - 0.1)
	}
	if playerAssets > compAssets*12/10 && comp.Sentiment < 0.4 {
		actions = append(actions, fmt.Sprintf("Leave a %s niche unchallenged to avoid a price war.", comp.Name))
		comp.Sentiment = clamp01(comp.Sentiment + 0.05)
	}
	if compAssets > playerAssets && e.turn%4 == 0 {
		actions = append(actions, fmt.Sprintf("Disrupt %s supply chain to weaken distribution.", comp.Name))
		shrinkBook(comp.Units, 0.05)
	}
	if compAssets > playerAssets && comp.Sentiment > 0.5 && e.turn%5 == 0 {
		actions = append(actions, "Launch a product earlier to surprise the competitor.")
		if e.rng.Float64() > 0.5 {
			actions = append(actions, fmt.Sprintf("Successful launch! %s market share decreased.", comp.Name))
			shrinkBook(comp.Units, 0.10)
		} else {
			actions = append(actions, "Failed launch, internal confusion.")
		}
	}
	for _, a := range actions {
		e.logf(LogEvent, "%s", a)
	}
	return actions
}

func (e *Engine) intelOperations() []string {
	t := e.tuning
	var actions []string
	intel := unitByKey(e.state.Units, "intelligence")
	if intel == nil || intel.Budget <= 0 {
		msg := "No market intelligence resource available."
		e.logf(LogIntel, "%s", msg)
		e.state.IntelEffectiveness = 0
		return []string{msg}
	}
	scale := float64(intel.Budget) / 100
	if e.rng.Float64() < t.SabotageOddsFactor*scale {
		damage := 0.05 + e.rng.Float64()*0.07
		e.state.Liquidity = clamp01(e.state.Liquidity - damage)
		msg := "Market intelligence successfully sabotaged a competitor's supply chain."
		actions = append(actions, msg)
		e.logf(LogSabotage, "%s", msg)
		for _, comp := range e.state.Competitors {
			comp.Sentiment = clamp01(comp.Sentiment - 0.05)
		}
	}
	if e.rng.Float64() < t.MisinfoOddsFactor*scale {
		msg := "Market intelligence spread misinformation, competitor confused."
		actions = append(actions, msg)
		e.logf(LogIntel, "%s", msg)
		for _, comp := range e.state.Competitors {
			comp.Sentiment = clamp01(comp.Sentiment - 0.07)
		}
	}
	eff := float64(intel.Budget) / t.IntelBudgetCeiling
	if eff > 1 {
		eff = 1
	}
	e.state.IntelEffectiveness = eff
	return actions
}

func (e *Engine) resourceManagement() {
	t := e.tuning
	investGain := int64(float64(e.state.Resources.InvestmentPoints) * t.InvestGainRate)
	cashSpent := int64(float64(investGain) * t.InvestCashRate)
	if e.state.Resources.Cash >= cashSpent && investGain > 0 {
		e.state.Resources.Cash -= cashSpent
		for i, key := range UnitKeys {
			add := investGain * int64(e.investDist[i]) / 100
			if add <= 0 {
				continue
			}
			u := unitByKey(e.state.Units, key)
			u.Budget += add
			e.logf(LogInvestment, "Invested %d in %s.", add, u.Name)
		}
	} else {
		e.logf(LogFailure, "Not enough cash to invest.")
	}

	if e.state.Resources.BrandStrength > 0 {
		if e.state.Resources.Cash >= t.BrandUpkeepCost {
			e.state.Resources.Cash -= t.BrandUpkeepCost
			e.state.Stress = clamp01(e.state.Stress - t.BrandUpkeepEase)
			e.logf(LogEvent, "Brand strength maintained, stress reduced.")
		} else {
			e.state.Stress = clamp01(e.state.Stress + t.BrandUpkeepEase)
			e.logf(LogFailure, "Insufficient brand maintenance, stress increased.")
		}
	}
}

func (e *Engine) recomputeSentiment() float64 {
	s := e.state
	leadershipBonus := (s.Leadership - 0.5) * 0.3
	intelBonus := (s.IntelEffectiveness - 0.5) * 0.2
	economicPenalty := 0.0
	if s.Economy == "recession" || s.Economy == "crisis" {
		economicPenalty = -0.1
	}
	v := s.Sentiment - s.Stress*0.5 + (s.Liquidity-0.5)*0.4 + leadershipBonus + intelBonus + economicPenalty
	return clamp01(v)
}

// resolveAgainst scores one quarter of head-to-head competition and applies
// the resulting budget losses to both books.
func (e *Engine) resolveAgainst(comp *Competitor) (playerLosses, competitorLosses int64) {
	t := e.tuning
	playerScore := e.bookScore(e.state.Units)
	competitorScore := e.bookScore(comp.Units)

	behavior := comp.AI.AdjustBehavior(e.rng)
	if behavior.Avoid {
		e.logf(LogEvent, "%s avoids direct confrontation on key sector.", comp.Name)
		competitorScore *= t.AvoidFactor
	}
	if behavior.Feint {
		e.logf(LogIntel, "%s launches diversion operations.", comp.Name)
		playerScore *= t.FeintFactor
	}

	if playerScore > competitorScore {
		competitorLosses = int64((playerScore - competitorScore) * t.WinLossRate)
		playerLosses = int64(competitorScore * t.WinBleedRate)
		e.logf(LogSuccess, "Your company gained %d market share from %s.", competitorLosses, comp.Name)
		e.logf(LogFailure, "Your company lost %d market share.", playerLosses)
	} else {
		playerLosses = int64((competitorScore - playerScore) * t.DefeatLossRate)
		competitorLosses = int64(playerScore * t.DefeatBleedRate)
		e.logf(LogFailure, "Your company lost %d market share.", playerLosses)
		e.logf(LogSuccess, "%s lost %d market share.", comp.Name, competitorLosses)
	}

	applyLosses(e.state.Units, playerLosses)
	applyLosses(comp.Units, competitorLosses)
	return playerLosses, competitorLosses
}

// bookScore is the weighted-sum strength of one company book under the
// current stress level.
func (e *Engine) bookScore(units []*Unit) float64 {
	t := e.tuning
	var total float64
	for _, u := range units {
		impact := u.Impact + u.Impact*u.Talent*t.TalentBonusFactor
		score := impact * float64(u.Budget) * (1 - e.state.Stress*t.StressScorePenalty)
		if u.BrandBoost {
			score *= t.BrandBoostFactor
		}
		total += score
	}
	// Regulation and turbulence blunt innovation and marketing spend.
	switch e.state.Market {
	case "regulated", "volatile", "saturated":
		for _, key := range []string{"marketing", "rnd", "analytics"} {
			if u := unitByKey(units, key); u != nil {
				total -= u.Impact * float64(u.Budget) * t.HostileMarketCut
			}
		}
	}
	if total < 0 {
		return 0
	}
	return total
}

func (e *Engine) postCompetitionEffects(playerLosses, competitorLosses int64) {
	t := e.tuning
	sentimentChange := float64(competitorLosses-playerLosses) / 10000
	e.state.Resources.InvestmentPoints += int64(sentimentChange * 40)
	if e.state.Resources.InvestmentPoints < t.MinInvestPoints {
		e.state.Resources.InvestmentPoints = t.MinInvestPoints
	}
	if sentimentChange > 0 {
		e.logf(LogSuccess, "Market confidence increased! More investment points.")
	} else {
		e.logf(LogFailure, "Market nervousness, confidence fell.")
	}
	if e.state.Stress > 0.8 {
		e.logf(LogFailure, "High stress: reputation drops, reduced gains.")
		e.state.Resources.Cash -= 100
		if e.state.Resources.Cash < 0 {
			e.state.Resources.Cash = 0
		}
	}
}

type roundResult struct {
	comp             *Competitor
	playerLosses     int64
	competitorLosses int64
}

// updateOpponents feeds each opponent the round it just played: the player
// won it when its losses were the smaller side.
func (e *Engine) updateOpponents(rounds []roundResult) {
	dist := playerDistribution(e.state.Units)
	for _, r := range rounds {
		r.comp.AI.Observe(Outcome{
			PlayerWin:  r.playerLosses < r.competitorLosses,
			PlayerDist: dist,
		})
		e.logf(LogIntel, "%s AI switches to %s.", r.comp.Name, r.comp.AI.Personality())
	}
}

func playerDistribution(units []*Unit) []float64 {
	total := TotalAssets(units)
	dist := make([]float64, len(UnitKeys))
	if total == 0 {
		return dist
	}
	for i, key := range UnitKeys {
		if u := unitByKey(units, key); u != nil {
			dist[i] = float64(u.Budget) / float64(total)
		}
	}
	return dist
}

func (e *Engine) appendRecord(actions []string) {
	var compShare int64
	compSentiment := 0.0
	personality := Deceptive
	if len(e.state.Competitors) > 0 {
		for _, comp := range e.state.Competitors {
			compShare += TotalAssets(comp.Units)
			compSentiment += comp.Sentiment
		}
		compSentiment /= float64(len(e.state.Competitors))
		personality = e.state.Competitors[0].AI.Personality()
	}
	if actions == nil {
		actions = []string{}
	}
	e.history = append(e.history, TurnRecord{
		Turn:                e.turn,
		Quarter:             e.state.Quarter,
		MarketShare:         TotalAssets(e.state.Units),
		CompetitorShare:     compShare,
		Sentiment:           e.state.Sentiment,
		CompetitorSentiment: compSentiment,
		Stress:              e.state.Stress,
		Liquidity:           e.state.Liquidity,
		Resources:           e.state.Resources,
		Market:              e.state.Market,
		Economy:             e.state.Economy,
		Actions:             actions,
		StrategicActions:    len(actions),
		OpponentPersonality: personality,
	})
}

func (e *Engine) checkTermination() {
	if TotalAssets(e.state.Units) == 0 {
		e.verdict = VerdictBankrupt
		e.logf(LogFailure, "Your company has gone bankrupt! Simulation ended.")
		return
	}
	allGone := true
	var compShare int64
	for _, comp := range e.state.Competitors {
		total := TotalAssets(comp.Units)
		compShare += total
		if total > 0 {
			allGone = false
		}
	}
	if allGone {
		e.verdict = VerdictVictory
		e.logf(LogSuccess, "Competitor has been exceeded! Simulation won!")
		return
	}
	if e.turn >= e.turnLimit {
		if TotalAssets(e.state.Units) > compShare {
			e.verdict = VerdictWon
			e.logf(LogSuccess, "Simulation successful! Congratulations!")
		} else {
			e.verdict = VerdictLost
			e.logf(LogFailure, "Simulation lost or suspended.")
		}
	}
}

func (e *Engine) logf(kind LogKind, format string, args ...any) {
	e.logs = append(e.logs, LogEntry{
		Turn:    e.turn,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

func cutBudget(u *Unit, amount int64) {
	if u == nil {
		return
	}
	u.Budget -= amount
	if u.Budget < 0 {
		u.Budget = 0
	}
}

func shrinkBook(units []*Unit, ratio float64) {
	for _, u := range units {
		u.Budget -= int64(float64(u.Budget) * ratio)
		if u.Budget < 0 {
			u.Budget = 0
		}
	}
}

func applyLosses(units []*Unit, losses int64) {
	total := TotalAssets(units)
	if total == 0 || losses == 0 {
		return
	}
	ratio := float64(losses) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	for _, u := range units {
		lost := int64(float64(u.Budget) * ratio)
		u.Budget -= lost
		if u.Budget < 0 {
			u.Budget = 0
		}
	}
}
