// Package sim ties the engines to the store: it owns campaign and portfolio
// lifecycles for the API server and the autopilot worker.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stratsim/internal/alloc"
	"stratsim/internal/campaign"
	"stratsim/internal/config"
	"stratsim/internal/market"
	"stratsim/internal/portfolio"
	"stratsim/internal/store"
)

var (
	ErrInvalidPersonality = errors.New("invalid opponent personality")
	ErrInvalidStance      = errors.New("invalid market stance")
)

type Service struct {
	store      *store.Store
	tuning     config.Tuning
	volatility string

	liveQuotes    bool
	quoteEndpoint string
	quoteTimeout  time.Duration
}

type ServiceOptions struct {
	Tuning        config.Tuning
	Volatility    string
	LiveQuotes    bool
	QuoteEndpoint string
	QuoteTimeout  time.Duration
}

func NewService(st *store.Store, opts ServiceOptions) *Service {
	if opts.Volatility == "" {
		opts.Volatility = "mor"
	}
	if opts.Tuning.Campaign.MemoryLen == 0 {
		opts.Tuning = config.DefaultTuning()
	}
	return &Service{
		store:         st,
		tuning:        opts.Tuning,
		volatility:    opts.Volatility,
		liveQuotes:    opts.LiveQuotes,
		quoteEndpoint: opts.QuoteEndpoint,
		quoteTimeout:  opts.QuoteTimeout,
	}
}

func (s *Service) quoter(seed int64) market.Quoter {
	sim := market.NewSim(seed, s.volatility)
	if s.liveQuotes && s.quoteEndpoint != "" {
		return market.NewLive(s.quoteEndpoint, s.quoteTimeout, sim)
	}
	return sim
}

// ---- campaigns ----

type CreateCampaignInput struct {
	Seed        int64    `json:"seed"`
	Turns       int      `json:"turns"`
	InvestDist  string   `json:"invest_dist"`
	Personality string   `json:"personality"`
	Competitors []string `json:"competitors"`
	Autopilot   bool     `json:"autopilot"`
}

func (s *Service) CreateCampaign(ctx context.Context, in CreateCampaignInput) (store.Campaign, error) {
	personality, err := parsePersonality(in.Personality)
	if err != nil {
		return store.Campaign{}, err
	}
	if in.Turns <= 0 {
		return store.Campaign{}, campaign.ErrInvalidTurns
	}
	if in.Seed == 0 {
		in.Seed = time.Now().UnixNano()
	}
	dist := alloc.Parse(in.InvestDist, campaign.DefaultInvestDist)

	eng, err := campaign.New(campaign.Options{
		Seed:        in.Seed,
		Personality: personality,
		InvestDist:  dist,
		Competitors: in.Competitors,
		TurnLimit:   in.Turns,
		Tuning:      s.tuning.Campaign,
	})
	if err != nil {
		return store.Campaign{}, err
	}

	row := store.Campaign{
		ID:        uuid.NewString(),
		Seed:      in.Seed,
		Autopilot: in.Autopilot,
		Snapshot:  eng.Snapshot(),
	}
	if err := s.store.CreateCampaign(ctx, row); err != nil {
		return store.Campaign{}, fmt.Errorf("persist campaign: %w", err)
	}
	return row, nil
}

func (s *Service) GetCampaign(ctx context.Context, id string) (store.Campaign, error) {
	return s.store.GetCampaign(ctx, id)
}

func (s *Service) ListCampaigns(ctx context.Context) ([]store.Campaign, error) {
	return s.store.ListCampaigns(ctx)
}

func (s *Service) DeleteCampaign(ctx context.Context, id string) error {
	return s.store.DeleteCampaign(ctx, id)
}

func (s *Service) SetCampaignAutopilot(ctx context.Context, id string, enabled bool) error {
	return s.store.SetCampaignAutopilot(ctx, id, enabled)
}

// AdvanceCampaign plays n more turns of a stored campaign and persists the
// result. Each continuation reseeds from the base seed and the turn already
// reached, so repeating a failed persist replays the same turns.
func (s *Service) AdvanceCampaign(ctx context.Context, id string, n int) (store.Campaign, error) {
	row, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return store.Campaign{}, err
	}
	eng, err := s.restoreCampaign(row)
	if err != nil {
		return store.Campaign{}, err
	}
	if err := eng.Advance(n); err != nil {
		return store.Campaign{}, err
	}
	return s.persistCampaign(ctx, row, eng)
}

func (s *Service) restoreCampaign(row store.Campaign) (*campaign.Engine, error) {
	seed := row.Seed + int64(row.Snapshot.State.Turn)
	return campaign.Restore(row.Snapshot, seed, campaign.Options{
		TurnLimit: row.Snapshot.State.TurnLimit,
		Tuning:    s.tuning.Campaign,
	})
}

func (s *Service) persistCampaign(ctx context.Context, row store.Campaign, eng *campaign.Engine) (store.Campaign, error) {
	row.Snapshot = eng.Snapshot()
	if err := s.store.UpdateCampaignSnapshot(ctx, row.ID, row.Snapshot); err != nil {
		return store.Campaign{}, fmt.Errorf("persist campaign: %w", err)
	}
	if err := s.store.AppendCampaignTurns(ctx, row.ID, eng.History()); err != nil {
		return store.Campaign{}, fmt.Errorf("persist campaign turns: %w", err)
	}
	if eng.Finished() && row.Autopilot {
		if err := s.store.SetCampaignAutopilot(ctx, row.ID, false); err != nil {
			return store.Campaign{}, err
		}
		row.Autopilot = false
	}
	return row, nil
}

func (s *Service) CampaignHistory(ctx context.Context, id string) ([]campaign.TurnRecord, error) {
	row, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	return row.Snapshot.SimData, nil
}

// AdvanceAutopilotCampaigns steps every autopilot campaign, returning how
// many advanced. Finished campaigns drop out of autopilot.
func (s *Service) AdvanceAutopilotCampaigns(ctx context.Context, turns int) (int, error) {
	rows, err := s.store.ListAutopilotCampaigns(ctx)
	if err != nil {
		return 0, err
	}
	advanced := 0
	for _, row := range rows {
		if _, err := s.AdvanceCampaign(ctx, row.ID, turns); err != nil {
			if errors.Is(err, campaign.ErrFinished) {
				if err := s.store.SetCampaignAutopilot(ctx, row.ID, false); err != nil {
					return advanced, err
				}
				continue
			}
			return advanced, fmt.Errorf("advance campaign %s: %w", row.ID, err)
		}
		advanced++
	}
	return advanced, nil
}

// ---- portfolios ----

type CreatePortfolioInput struct {
	Seed    int64  `json:"seed"`
	Turns   int    `json:"turns"`
	Alloc   string `json:"alloc"`
	Stance  string `json:"stance"`
	ChessAI bool   `json:"chess_ai"`
}

func (s *Service) CreatePortfolio(ctx context.Context, in CreatePortfolioInput) (store.Portfolio, error) {
	stance, err := parseStance(in.Stance)
	if err != nil {
		return store.Portfolio{}, err
	}
	if in.Turns <= 0 {
		return store.Portfolio{}, portfolio.ErrInvalidTurns
	}
	if in.Seed == 0 {
		in.Seed = time.Now().UnixNano()
	}
	dist := alloc.Parse(in.Alloc, portfolio.DefaultAllocDist)

	eng, err := s.buildPortfolio(in.Seed, stance, in.ChessAI, dist, in.Turns)
	if err != nil {
		return store.Portfolio{}, err
	}
	row := store.Portfolio{
		ID:        uuid.NewString(),
		Seed:      in.Seed,
		ChessAI:   in.ChessAI,
		Stance:    string(stance),
		Alloc:     formatDist(dist),
		TurnLimit: in.Turns,
		Book:      eng.Book(),
	}
	if err := s.store.CreatePortfolio(ctx, row); err != nil {
		return store.Portfolio{}, fmt.Errorf("persist portfolio: %w", err)
	}
	return row, nil
}

func (s *Service) GetPortfolio(ctx context.Context, id string) (store.Portfolio, error) {
	return s.store.GetPortfolio(ctx, id)
}

func (s *Service) ListPortfolios(ctx context.Context) ([]store.Portfolio, error) {
	return s.store.ListPortfolios(ctx)
}

// AdvancePortfolio replays the run from its seed to where it stopped, plays
// n more turns, and persists the new position. Replay is exact because the
// stored run always prices from the deterministic simulated market.
func (s *Service) AdvancePortfolio(ctx context.Context, id string, n int) (store.Portfolio, error) {
	row, err := s.store.GetPortfolio(ctx, id)
	if err != nil {
		return store.Portfolio{}, err
	}
	if row.Finished {
		return store.Portfolio{}, portfolio.ErrFinished
	}
	stance, err := parseStance(row.Stance)
	if err != nil {
		return store.Portfolio{}, err
	}
	dist := alloc.Parse(row.Alloc, portfolio.DefaultAllocDist)
	eng, err := s.buildPortfolio(row.Seed, stance, row.ChessAI, dist, row.TurnLimit)
	if err != nil {
		return store.Portfolio{}, err
	}
	if row.TurnsPlayed > 0 {
		if err := eng.Advance(ctx, row.TurnsPlayed); err != nil {
			return store.Portfolio{}, fmt.Errorf("replay portfolio: %w", err)
		}
	}
	if err := eng.Advance(ctx, n); err != nil {
		return store.Portfolio{}, err
	}

	row.TurnsPlayed = eng.Turn()
	row.Finished = eng.Finished()
	row.Book = eng.Book()
	if err := s.store.UpdatePortfolioProgress(ctx, row.ID, row.TurnsPlayed, row.Finished, row.Book); err != nil {
		return store.Portfolio{}, fmt.Errorf("persist portfolio: %w", err)
	}
	if err := s.store.AppendPortfolioTurns(ctx, row.ID, eng.History()); err != nil {
		return store.Portfolio{}, fmt.Errorf("persist portfolio turns: %w", err)
	}
	return row, nil
}

func (s *Service) PortfolioHistory(ctx context.Context, id string) ([]portfolio.Record, error) {
	if _, err := s.store.GetPortfolio(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListPortfolioTurns(ctx, id)
}

func (s *Service) buildPortfolio(seed int64, stance portfolio.Stance, chess bool, dist []int, turns int) (*portfolio.Engine, error) {
	// Stored runs always price from the deterministic simulated market so
	// replay stays exact; live quotes are a CLI-only mode.
	return portfolio.New(market.NewSim(seed, s.volatility), portfolio.Options{
		Seed:      seed,
		Stance:    stance,
		ChessAI:   chess,
		AllocDist: dist,
		TurnLimit: turns,
		Tuning:    s.tuning.Portfolio,
	})
}

func parsePersonality(raw string) (campaign.Personality, error) {
	if raw == "" {
		return "", nil
	}
	for _, p := range campaign.Personalities {
		if string(p) == raw {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPersonality, raw)
}

func parseStance(raw string) (portfolio.Stance, error) {
	if raw == "" {
		return "", nil
	}
	for _, st := range portfolio.Stances {
		if string(st) == raw {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStance, raw)
}

func formatDist(dist []int) string {
	out := ""
	for i, v := range dist {
		if i > 0 {
			out += "/"
		}
		out += fmt.Sprintf("%d", v)
	}
	return out
}

// Quoter exposes the configured price source for local (CLI) runs.
func (s *Service) Quoter(seed int64) market.Quoter {
	return s.quoter(seed)
}
