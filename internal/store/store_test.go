package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"stratsim/internal/campaign"
	"stratsim/internal/portfolio"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{
		Dialect:    "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSnapshot(t *testing.T, seed int64, turns int) campaign.Snapshot {
	t.Helper()
	e, err := campaign.New(campaign.Options{Seed: seed, Personality: campaign.Deceptive, TurnLimit: 10})
	if err != nil {
		t.Fatalf("campaign.New: %v", err)
	}
	if turns > 0 {
		if err := e.Advance(turns); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}
	return e.Snapshot()
}

func TestCampaignCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := uuid.NewString()
	snap := testSnapshot(t, 3, 4)
	if err := s.CreateCampaign(ctx, Campaign{ID: id, Seed: 3, Snapshot: snap}); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}

	got, err := s.GetCampaign(ctx, id)
	if err != nil {
		t.Fatalf("GetCampaign: %v", err)
	}
	if got.Seed != 3 || got.Autopilot {
		t.Fatalf("row = %+v", got)
	}
	if got.Snapshot.State.Turn != 4 {
		t.Fatalf("stored turn = %d, want 4", got.Snapshot.State.Turn)
	}
	if len(got.Snapshot.SimData) != 4 {
		t.Fatalf("stored records = %d, want 4", len(got.Snapshot.SimData))
	}

	list, err := s.ListCampaigns(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListCampaigns = %v, %v", list, err)
	}

	if err := s.SetCampaignAutopilot(ctx, id, true); err != nil {
		t.Fatalf("SetCampaignAutopilot: %v", err)
	}
	autos, err := s.ListAutopilotCampaigns(ctx)
	if err != nil || len(autos) != 1 {
		t.Fatalf("ListAutopilotCampaigns = %v, %v", autos, err)
	}

	snap2 := testSnapshot(t, 3, 6)
	if err := s.UpdateCampaignSnapshot(ctx, id, snap2); err != nil {
		t.Fatalf("UpdateCampaignSnapshot: %v", err)
	}
	got, err = s.GetCampaign(ctx, id)
	if err != nil || got.Snapshot.State.Turn != 6 {
		t.Fatalf("after update: %+v, %v", got.Snapshot.State, err)
	}

	if err := s.DeleteCampaign(ctx, id); err != nil {
		t.Fatalf("DeleteCampaign: %v", err)
	}
	if _, err := s.GetCampaign(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetCampaign after delete = %v, want ErrNotFound", err)
	}
}

func TestCampaignTurnsAppendIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := uuid.NewString()
	snap := testSnapshot(t, 5, 5)
	if err := s.CreateCampaign(ctx, Campaign{ID: id, Seed: 5, Snapshot: snap}); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if err := s.AppendCampaignTurns(ctx, id, snap.SimData); err != nil {
		t.Fatalf("AppendCampaignTurns: %v", err)
	}
	// Re-appending the same turns must not duplicate rows.
	if err := s.AppendCampaignTurns(ctx, id, snap.SimData); err != nil {
		t.Fatalf("AppendCampaignTurns (again): %v", err)
	}
	turns, err := s.ListCampaignTurns(ctx, id)
	if err != nil {
		t.Fatalf("ListCampaignTurns: %v", err)
	}
	if len(turns) != len(snap.SimData) {
		t.Fatalf("stored turns = %d, want %d", len(turns), len(snap.SimData))
	}
	for i, rec := range turns {
		if rec.Turn != i+1 {
			t.Fatalf("turn %d out of order: %d", i, rec.Turn)
		}
	}
}

func TestMissingRowsReturnNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.GetCampaign(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetCampaign = %v, want ErrNotFound", err)
	}
	if err := s.SetCampaignAutopilot(ctx, "nope", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetCampaignAutopilot = %v, want ErrNotFound", err)
	}
	if _, err := s.GetPortfolio(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPortfolio = %v, want ErrNotFound", err)
	}
	if err := s.UpdatePortfolioProgress(ctx, "nope", 1, false, portfolio.Book{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdatePortfolioProgress = %v, want ErrNotFound", err)
	}
}

func TestPortfolioCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := uuid.NewString()
	row := Portfolio{
		ID:        id,
		Seed:      7,
		ChessAI:   true,
		Stance:    "sideways",
		Alloc:     "30/20/10/20/20",
		TurnLimit: 12,
		Book:      portfolio.Book{Cash: 10000, Stocks: portfolio.DefaultAssets()},
	}
	if err := s.CreatePortfolio(ctx, row); err != nil {
		t.Fatalf("CreatePortfolio: %v", err)
	}

	got, err := s.GetPortfolio(ctx, id)
	if err != nil {
		t.Fatalf("GetPortfolio: %v", err)
	}
	if !got.ChessAI || got.TurnLimit != 12 || got.TurnsPlayed != 0 {
		t.Fatalf("row = %+v", got)
	}
	if len(got.Book.Stocks) != 5 {
		t.Fatalf("stored book has %d stocks, want 5", len(got.Book.Stocks))
	}

	book := portfolio.Book{Cash: 5000, Stocks: portfolio.DefaultAssets()}
	if err := s.UpdatePortfolioProgress(ctx, id, 3, false, book); err != nil {
		t.Fatalf("UpdatePortfolioProgress: %v", err)
	}
	got, err = s.GetPortfolio(ctx, id)
	if err != nil || got.TurnsPlayed != 3 || got.Book.Cash != 5000 {
		t.Fatalf("after progress: %+v, %v", got, err)
	}

	recs := []portfolio.Record{
		{Turn: 1, PortfolioValue: 20000, Tactics: []string{}},
		{Turn: 2, PortfolioValue: 21000, Tactics: []string{}},
	}
	if err := s.AppendPortfolioTurns(ctx, id, recs); err != nil {
		t.Fatalf("AppendPortfolioTurns: %v", err)
	}
	turns, err := s.ListPortfolioTurns(ctx, id)
	if err != nil || len(turns) != 2 {
		t.Fatalf("ListPortfolioTurns = %v, %v", turns, err)
	}
	if turns[1].PortfolioValue != 21000 {
		t.Fatalf("turn 2 value = %v", turns[1].PortfolioValue)
	}
}
