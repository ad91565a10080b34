package main

import (
	"encoding/json"
	"os"

	"stratsim/internal/campaign"
	"stratsim/internal/portfolio"

	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	intel   = color.New(color.FgMagenta)
	event   = color.New(color.FgBlue)
	neutral = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderCampaignLogs(logs []campaign.LogEntry) {
	lastTurn := 0
	for _, entry := range logs {
		if entry.Turn != lastTurn {
			lastTurn = entry.Turn
			accent.Printf("\n== Turn %d ==\n", entry.Turn)
		}
		switch entry.Kind {
		case campaign.LogSuccess, campaign.LogInvestment:
			success.Println("  " + entry.Message)
		case campaign.LogFailure:
			danger.Println("  " + entry.Message)
		case campaign.LogSabotage:
			warn.Println("  " + entry.Message)
		case campaign.LogIntel:
			intel.Println("  " + entry.Message)
		case campaign.LogEvent:
			event.Println("  " + entry.Message)
		default:
			neutral.Println("  " + entry.Message)
		}
	}
}

func renderCampaignSummary(eng *campaign.Engine) {
	st := eng.State()
	player := campaign.TotalAssets(st.Units)
	var competitor int64
	for _, c := range st.Competitors {
		competitor += campaign.TotalAssets(c.Units)
	}

	accent.Printf("\n== Campaign after %d turn(s) ==\n", eng.Turn())
	neutral.Printf("  Your assets:       %d\n", player)
	neutral.Printf("  Competitor assets: %d\n", competitor)
	neutral.Printf("  Cash: %d  Investment points: %d  Brand: %d\n",
		st.Resources.Cash, st.Resources.InvestmentPoints, st.Resources.BrandStrength)
	neutral.Printf("  Sentiment: %.2f  Stress: %.2f  Liquidity: %.2f\n",
		st.Sentiment, st.Stress, st.Liquidity)
	neutral.Printf("  Market: %s  Economy: %s  Quarter: %s\n", st.Market, st.Economy, st.Quarter)

	switch eng.Verdict() {
	case campaign.VerdictWon, campaign.VerdictVictory:
		success.Println("  Result: you outgrew the competition.")
	case campaign.VerdictLost:
		danger.Println("  Result: the competition outgrew you.")
	case campaign.VerdictBankrupt:
		danger.Println("  Result: your business collapsed.")
	default:
		neutral.Println("  Result: still running.")
	}
}

func renderPortfolioLogs(logs []portfolio.LogEntry) {
	lastTurn := 0
	for _, entry := range logs {
		if entry.Turn != lastTurn {
			lastTurn = entry.Turn
			accent.Printf("\n== Turn %d ==\n", entry.Turn)
		}
		switch entry.Kind {
		case portfolio.LogWin:
			success.Println("  " + entry.Message)
		case portfolio.LogLoss:
			danger.Println("  " + entry.Message)
		case portfolio.LogTrade:
			warn.Println("  " + entry.Message)
		case portfolio.LogAI:
			intel.Println("  " + entry.Message)
		case portfolio.LogEvent:
			event.Println("  " + entry.Message)
		default:
			neutral.Println("  " + entry.Message)
		}
	}
}

func renderPortfolioSummary(eng *portfolio.Engine) {
	accent.Printf("\n== Portfolio after %d turn(s) ==\n", eng.Turn())
	for _, a := range eng.Assets() {
		neutral.Printf("  %-20s %-5s x%-4d %10.2f\n", a.Name, a.Ticker, a.Quantity, a.Value())
	}
	neutral.Printf("  Cash:  %10.2f\n", eng.Cash())
	neutral.Printf("  Total: %10.2f\n", eng.TotalValue())

	cond := eng.Conditions()
	neutral.Printf("  Fear: %.2f  Liquidity: %.2f  Volatility: %.2f\n",
		cond.Fear, cond.Liquidity, cond.Volatility)

	wins, losses := 0, 0
	for _, rec := range eng.History() {
		if rec.BeatMarket {
			wins++
		} else {
			losses++
		}
	}
	if wins >= losses {
		success.Printf("  Beat the index %d of %d turn(s).\n", wins, wins+losses)
	} else {
		danger.Printf("  Beat the index %d of %d turn(s).\n", wins, wins+losses)
	}
}
