package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"stratsim/internal/campaign"
	"stratsim/internal/portfolio"
)

func sampleRecords(t *testing.T) []campaign.TurnRecord {
	t.Helper()
	e, err := campaign.New(campaign.Options{Seed: 2, Personality: campaign.Aggressive, TurnLimit: 6})
	if err != nil {
		t.Fatalf("campaign.New: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return e.History()
}

func TestWriteCampaignXLSX(t *testing.T) {
	records := sampleRecords(t)
	var buf bytes.Buffer
	if err := WriteCampaignXLSX(&buf, records); err != nil {
		t.Fatalf("WriteCampaignXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Business Simulation")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != len(records)+1 {
		t.Fatalf("workbook rows = %d, want %d", len(rows), len(records)+1)
	}
	if rows[0][0] != "Quarter" || rows[0][14] != "Competitor AI Strategy" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][10] != records[0].Market {
		t.Fatalf("market column = %q, want %q", rows[1][10], records[0].Market)
	}
}

func TestWriteCampaignJSON(t *testing.T) {
	records := sampleRecords(t)
	var buf bytes.Buffer
	if err := WriteCampaignJSON(&buf, records); err != nil {
		t.Fatalf("WriteCampaignJSON: %v", err)
	}
	var decoded []campaign.TurnRecord
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(decoded) != len(records) {
		t.Fatalf("decoded %d records, want %d", len(decoded), len(records))
	}
	if decoded[0].Turn != 1 {
		t.Fatalf("first record turn = %d", decoded[0].Turn)
	}
}

func TestWritePortfolioJSON(t *testing.T) {
	records := []portfolio.Record{
		{Turn: 1, PortfolioValue: 20000, Cash: 900, Personality: portfolio.Bullish, Tactics: []string{"hold"}},
	}
	var buf bytes.Buffer
	if err := WritePortfolioJSON(&buf, records); err != nil {
		t.Fatalf("WritePortfolioJSON: %v", err)
	}
	var decoded []portfolio.Record
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if decoded[0].Personality != portfolio.Bullish {
		t.Fatalf("personality = %s", decoded[0].Personality)
	}
}

func TestEmptyExportsRejected(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCampaignXLSX(&buf, nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("xlsx = %v, want ErrNoData", err)
	}
	if err := WriteCampaignJSON(&buf, nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("json = %v, want ErrNoData", err)
	}
	if err := WritePortfolioJSON(&buf, nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("portfolio json = %v, want ErrNoData", err)
	}
}
