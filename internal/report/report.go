// Package report renders campaign and portfolio histories as spreadsheet or
// JSON artifacts.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"stratsim/internal/campaign"
	"stratsim/internal/portfolio"
)

var ErrNoData = errors.New("no data to export")

var campaignHeaders = []string{
	"Quarter", "Market Share", "Competitor Share", "Sentiment", "Competitor Sentiment",
	"Stress", "Liquidity", "Cash", "Investment Points", "Brand Strength", "Market",
	"Economic Context", "Main Actions", "Strategic Actions", "Competitor AI Strategy",
}

// WriteCampaignXLSX renders the turn records as a one-sheet workbook.
func WriteCampaignXLSX(w io.Writer, records []campaign.TurnRecord) error {
	if len(records) == 0 {
		return ErrNoData
	}
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Business Simulation"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for col, h := range campaignHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for i, rec := range records {
		row := []any{
			rec.Turn,
			rec.MarketShare,
			rec.CompetitorShare,
			round2(rec.Sentiment),
			round2(rec.CompetitorSentiment),
			round2(rec.Stress),
			round2(rec.Liquidity),
			rec.Resources.Cash,
			rec.Resources.InvestmentPoints,
			rec.Resources.BrandStrength,
			rec.Market,
			rec.Economy,
			strings.Join(rec.Actions, "; "),
			rec.StrategicActions,
			string(rec.OpponentPersonality),
		}
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	_, err := f.WriteTo(w)
	return err
}

// WriteCampaignJSON emits the records as an indented JSON array.
func WriteCampaignJSON(w io.Writer, records []campaign.TurnRecord) error {
	if len(records) == 0 {
		return ErrNoData
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WritePortfolioJSON emits portfolio records as an indented JSON array.
func WritePortfolioJSON(w io.Writer, records []portfolio.Record) error {
	if len(records) == 0 {
		return ErrNoData
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// CampaignFilename builds the default export filename for a timestamp tag.
func CampaignFilename(tag, ext string) string {
	return fmt.Sprintf("business_report_%s.%s", tag, ext)
}

// PortfolioFilename builds the default export filename for a timestamp tag.
func PortfolioFilename(tag string) string {
	return fmt.Sprintf("portfolio_report_%s.json", tag)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
