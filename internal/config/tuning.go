package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning collects the magnitude constants that steer both simulation engines.
// Zero values in a loaded file fall back to the defaults, so a tuning file
// only needs to name the knobs it changes.
type Tuning struct {
	Campaign  CampaignTuning  `yaml:"campaign"`
	Portfolio PortfolioTuning `yaml:"portfolio"`
}

type CampaignTuning struct {
	MemoryLen           int     `yaml:"memory_len"`
	AggressiveThreshold float64 `yaml:"aggressive_threshold"`
	DefensiveThreshold  float64 `yaml:"defensive_threshold"`
	FeintChance         float64 `yaml:"feint_chance"`

	MarketShiftChance  float64 `yaml:"market_shift_chance"`
	ExternalEventOdds  float64 `yaml:"external_event_odds"`
	QuarterFourStress  float64 `yaml:"quarter_four_stress"`
	InflationBudgetCut int64   `yaml:"inflation_budget_cut"`
	GrowthLiquidity    float64 `yaml:"growth_liquidity"`

	TechImpactBoost      float64 `yaml:"tech_impact_boost"`
	CrashLiquidityHit    float64 `yaml:"crash_liquidity_hit"`
	CrashStressHit       float64 `yaml:"crash_stress_hit"`
	RegulatoryLegalGrant int64   `yaml:"regulatory_legal_grant"`

	LiquidityEventBase    float64 `yaml:"liquidity_event_base"`
	LiquidityIntelDivisor float64 `yaml:"liquidity_intel_divisor"`
	LiquidityEventFloor   float64 `yaml:"liquidity_event_floor"`
	LiquidityPenaltyMin   float64 `yaml:"liquidity_penalty_min"`
	LiquidityPenaltyRange float64 `yaml:"liquidity_penalty_range"`

	StressScorePenalty float64 `yaml:"stress_score_penalty"`
	BrandBoostFactor   float64 `yaml:"brand_boost_factor"`
	TalentBonusFactor  float64 `yaml:"talent_bonus_factor"`
	HostileMarketCut   float64 `yaml:"hostile_market_cut"`
	AvoidFactor        float64 `yaml:"avoid_factor"`
	FeintFactor        float64 `yaml:"feint_factor"`

	WinLossRate     float64 `yaml:"win_loss_rate"`
	WinBleedRate    float64 `yaml:"win_bleed_rate"`
	DefeatLossRate  float64 `yaml:"defeat_loss_rate"`
	DefeatBleedRate float64 `yaml:"defeat_bleed_rate"`

	BaseStressGain    float64 `yaml:"base_stress_gain"`
	StressLossDivisor float64 `yaml:"stress_loss_divisor"`
	LiquidityDecay    float64 `yaml:"liquidity_decay"`

	SabotageOddsFactor float64 `yaml:"sabotage_odds_factor"`
	MisinfoOddsFactor  float64 `yaml:"misinfo_odds_factor"`
	IntelBudgetCeiling float64 `yaml:"intel_budget_ceiling"`

	InvestGainRate  float64 `yaml:"invest_gain_rate"`
	InvestCashRate  float64 `yaml:"invest_cash_rate"`
	BrandUpkeepCost int64   `yaml:"brand_upkeep_cost"`
	BrandUpkeepEase float64 `yaml:"brand_upkeep_ease"`

	MinInvestPoints int64 `yaml:"min_invest_points"`
}

type PortfolioTuning struct {
	MemoryLen           int     `yaml:"memory_len"`
	ChessMemoryLen      int     `yaml:"chess_memory_len"`
	BullishThreshold    float64 `yaml:"bullish_threshold"`
	BearishThreshold    float64 `yaml:"bearish_threshold"`
	SurpriseRallyOdds   float64 `yaml:"surprise_rally_odds"`
	DropChance          float64 `yaml:"drop_chance"`
	DropMin             float64 `yaml:"drop_min"`
	DropMax             float64 `yaml:"drop_max"`
	RallyChance         float64 `yaml:"rally_chance"`
	RallyMin            float64 `yaml:"rally_min"`
	RallyMax            float64 `yaml:"rally_max"`
	FearDrift           float64 `yaml:"fear_drift"`
	LiquidityDrift      float64 `yaml:"liquidity_drift"`
	VolatilityDrift     float64 `yaml:"volatility_drift"`
	TensionFearWeight   float64 `yaml:"tension_fear_weight"`
	TensionVolWeight    float64 `yaml:"tension_vol_weight"`
	TensionLiqWeight    float64 `yaml:"tension_liq_weight"`
	MiddlegameThreshold float64 `yaml:"middlegame_threshold"`
	EndgameThreshold    float64 `yaml:"endgame_threshold"`

	ConcentrationLimit   float64 `yaml:"concentration_limit"`
	ConcentrationVolPush float64 `yaml:"concentration_vol_push"`
	ConcentrationLiqCut  float64 `yaml:"concentration_liq_cut"`
}

// DefaultTuning returns the stock parameter set.
func DefaultTuning() Tuning {
	return Tuning{
		Campaign: CampaignTuning{
			MemoryLen:           5,
			AggressiveThreshold: 0.7,
			DefensiveThreshold:  0.3,
			FeintChance:         0.1,

			MarketShiftChance:  0.12,
			ExternalEventOdds:  0.15,
			QuarterFourStress:  0.05,
			InflationBudgetCut: 10,
			GrowthLiquidity:    0.10,

			TechImpactBoost:      1.3,
			CrashLiquidityHit:    0.3,
			CrashStressHit:       0.2,
			RegulatoryLegalGrant: 100,

			LiquidityEventBase:    0.1,
			LiquidityIntelDivisor: 2000,
			LiquidityEventFloor:   0.6,
			LiquidityPenaltyMin:   0.1,
			LiquidityPenaltyRange: 0.1,

			StressScorePenalty: 0.5,
			BrandBoostFactor:   1.2,
			TalentBonusFactor:  0.2,
			HostileMarketCut:   0.2,
			AvoidFactor:        0.8,
			FeintFactor:        0.9,

			WinLossRate:     0.08,
			WinBleedRate:    0.04,
			DefeatLossRate:  0.07,
			DefeatBleedRate: 0.03,

			BaseStressGain:    0.05,
			StressLossDivisor: 15000,
			LiquidityDecay:    0.09,

			SabotageOddsFactor: 0.2,
			MisinfoOddsFactor:  0.18,
			IntelBudgetCeiling: 150,

			InvestGainRate:  0.1,
			InvestCashRate:  5,
			BrandUpkeepCost: 50,
			BrandUpkeepEase: 0.05,

			MinInvestPoints: 40,
		},
		Portfolio: PortfolioTuning{
			MemoryLen:           5,
			ChessMemoryLen:      7,
			BullishThreshold:    0.7,
			BearishThreshold:    0.3,
			SurpriseRallyOdds:   0.15,
			DropChance:          0.8,
			DropMin:             0.05,
			DropMax:             0.15,
			RallyChance:         0.7,
			RallyMin:            0.04,
			RallyMax:            0.09,
			FearDrift:           0.1,
			LiquidityDrift:      0.05,
			VolatilityDrift:     0.07,
			TensionFearWeight:   0.4,
			TensionVolWeight:    0.3,
			TensionLiqWeight:    0.3,
			MiddlegameThreshold: 0.65,
			EndgameThreshold:    0.35,

			ConcentrationLimit:   0.5,
			ConcentrationVolPush: 0.05,
			ConcentrationLiqCut:  0.05,
		},
	}
}

// LoadTuning reads a YAML tuning file and overlays it onto the defaults.
// An empty path returns the defaults unchanged.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning file: %w", err)
	}
	var overlay Tuning
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return t, fmt.Errorf("parse tuning file: %w", err)
	}
	mergeCampaign(&t.Campaign, overlay.Campaign)
	mergePortfolio(&t.Portfolio, overlay.Portfolio)
	return t, nil
}

func mergeCampaign(dst *CampaignTuning, src CampaignTuning) {
	if src.MemoryLen > 0 {
		dst.MemoryLen = src.MemoryLen
	}
	overlayFloat(&dst.AggressiveThreshold, src.AggressiveThreshold)
	overlayFloat(&dst.DefensiveThreshold, src.DefensiveThreshold)
	overlayFloat(&dst.FeintChance, src.FeintChance)
	overlayFloat(&dst.MarketShiftChance, src.MarketShiftChance)
	overlayFloat(&dst.ExternalEventOdds, src.ExternalEventOdds)
	overlayFloat(&dst.QuarterFourStress, src.QuarterFourStress)
	if src.InflationBudgetCut > 0 {
		dst.InflationBudgetCut = src.InflationBudgetCut
	}
	overlayFloat(&dst.GrowthLiquidity, src.GrowthLiquidity)
	overlayFloat(&dst.TechImpactBoost, src.TechImpactBoost)
	overlayFloat(&dst.CrashLiquidityHit, src.CrashLiquidityHit)
	overlayFloat(&dst.CrashStressHit, src.CrashStressHit)
	if src.RegulatoryLegalGrant > 0 {
		dst.RegulatoryLegalGrant = src.RegulatoryLegalGrant
	}
	overlayFloat(&dst.LiquidityEventBase, src.LiquidityEventBase)
	overlayFloat(&dst.LiquidityIntelDivisor, src.LiquidityIntelDivisor)
	overlayFloat(&dst.LiquidityEventFloor, src.LiquidityEventFloor)
	overlayFloat(&dst.LiquidityPenaltyMin, src.LiquidityPenaltyMin)
	overlayFloat(&dst.LiquidityPenaltyRange, src.LiquidityPenaltyRange)
	overlayFloat(&dst.StressScorePenalty, src.StressScorePenalty)
	overlayFloat(&dst.BrandBoostFactor, src.BrandBoostFactor)
	overlayFloat(&dst.TalentBonusFactor, src.TalentBonusFactor)
	overlayFloat(&dst.HostileMarketCut, src.HostileMarketCut)
	overlayFloat(&dst.AvoidFactor, src.AvoidFactor)
	overlayFloat(&dst.FeintFactor, src.FeintFactor)
	overlayFloat(&dst.WinLossRate, src.WinLossRate)
	overlayFloat(&dst.WinBleedRate, src.WinBleedRate)
	overlayFloat(&dst.DefeatLossRate, src.DefeatLossRate)
	overlayFloat(&dst.DefeatBleedRate, src.DefeatBleedRate)
	overlayFloat(&dst.BaseStressGain, src.BaseStressGain)
	overlayFloat(&dst.StressLossDivisor, src.StressLossDivisor)
	overlayFloat(&dst.LiquidityDecay, src.LiquidityDecay)
	overlayFloat(&dst.SabotageOddsFactor, src.SabotageOddsFactor)
	overlayFloat(&dst.MisinfoOddsFactor, src.MisinfoOddsFactor)
	overlayFloat(&dst.IntelBudgetCeiling, src.IntelBudgetCeiling)
	overlayFloat(&dst.InvestGainRate, src.InvestGainRate)
	overlayFloat(&dst.InvestCashRate, src.InvestCashRate)
	if src.BrandUpkeepCost > 0 {
		dst.BrandUpkeepCost = src.BrandUpkeepCost
	}
	overlayFloat(&dst.BrandUpkeepEase, src.BrandUpkeepEase)
	if src.MinInvestPoints > 0 {
		dst.MinInvestPoints = src.MinInvestPoints
	}
}

func mergePortfolio(dst *PortfolioTuning, src PortfolioTuning) {
	if src.MemoryLen > 0 {
		dst.MemoryLen = src.MemoryLen
	}
	if src.ChessMemoryLen > 0 {
		dst.ChessMemoryLen = src.ChessMemoryLen
	}
	overlayFloat(&dst.BullishThreshold, src.BullishThreshold)
	overlayFloat(&dst.BearishThreshold, src.BearishThreshold)
	overlayFloat(&dst.SurpriseRallyOdds, src.SurpriseRallyOdds)
	overlayFloat(&dst.DropChance, src.DropChance)
	overlayFloat(&dst.DropMin, src.DropMin)
	overlayFloat(&dst.DropMax, src.DropMax)
	overlayFloat(&dst.RallyChance, src.RallyChance)
	overlayFloat(&dst.RallyMin, src.RallyMin)
	overlayFloat(&dst.RallyMax, src.RallyMax)
	overlayFloat(&dst.FearDrift, src.FearDrift)
	overlayFloat(&dst.LiquidityDrift, src.LiquidityDrift)
	overlayFloat(&dst.VolatilityDrift, src.VolatilityDrift)
	overlayFloat(&dst.TensionFearWeight, src.TensionFearWeight)
	overlayFloat(&dst.TensionVolWeight, src.TensionVolWeight)
	overlayFloat(&dst.TensionLiqWeight, src.TensionLiqWeight)
	overlayFloat(&dst.MiddlegameThreshold, src.MiddlegameThreshold)
	overlayFloat(&dst.EndgameThreshold, src.EndgameThreshold)
	overlayFloat(&dst.ConcentrationLimit, src.ConcentrationLimit)
	overlayFloat(&dst.ConcentrationVolPush, src.ConcentrationVolPush)
	overlayFloat(&dst.ConcentrationLiqCut, src.ConcentrationLiqCut)
}

func overlayFloat(dst *float64, src float64) {
	if src != 0 {
		*dst = src
	}
}
