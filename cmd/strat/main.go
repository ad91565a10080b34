package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"stratsim/internal/alloc"
	"stratsim/internal/campaign"
	cl "stratsim/internal/cli"
	"stratsim/internal/config"
	"stratsim/internal/market"
	"stratsim/internal/portfolio"
	"stratsim/internal/report"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "strat",
		Short:        "Turn-based business strategy simulator",
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newResumeCmd(),
		newExportCmd(),
		newPortfolioCmd(),
		newQuoteCmd(),
		newRemoteCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var (
		seed        int64
		turns       int
		personality string
		invest      string
		competitors []string
		saveSlot    string
		tuningPath  string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play a business campaign against the adaptive opponent",
		RunE: func(cmd *cobra.Command, args []string) error {
			tuning, err := config.LoadTuning(tuningPath)
			if err != nil {
				return err
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			if personality != "" && !validPersonality(personality) {
				return fmt.Errorf("unknown personality %q", personality)
			}
			eng, err := campaign.New(campaign.Options{
				Seed:        seed,
				Personality: campaign.Personality(personality),
				InvestDist:  alloc.Parse(invest, campaign.DefaultInvestDist),
				Competitors: competitors,
				TurnLimit:   turns,
				Tuning:      tuning.Campaign,
			})
			if err != nil {
				return err
			}
			if err := eng.Run(); err != nil {
				return err
			}
			renderCampaignLogs(eng.Logs())
			renderCampaignSummary(eng)
			if saveSlot != "" {
				path, err := cl.SavePath(saveSlot)
				if err != nil {
					return err
				}
				if err := eng.Snapshot().SaveFile(path); err != nil {
					return err
				}
				printInfo("Saved campaign to " + path)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "simulation seed (0 picks one)")
	cmd.Flags().IntVar(&turns, "turns", 12, "number of quarters to play")
	cmd.Flags().StringVar(&personality, "personality", "", "opponent personality: aggressive, defensive, deceptive (empty = random)")
	cmd.Flags().StringVar(&invest, "invest", "", "investment split, e.g. 30/20/15/10/15/5/5")
	cmd.Flags().StringSliceVar(&competitors, "competitor", nil, "competitor name (repeatable)")
	cmd.Flags().StringVar(&saveSlot, "save", "", "save slot or path for the finished campaign")
	cmd.Flags().StringVar(&tuningPath, "tuning", "", "YAML tuning overrides")
	return cmd
}

func newResumeCmd() *cobra.Command {
	var (
		turns      int
		tuningPath string
	)
	cmd := &cobra.Command{
		Use:   "resume <slot>",
		Short: "Continue a saved campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tuning, err := config.LoadTuning(tuningPath)
			if err != nil {
				return err
			}
			path, err := cl.SavePath(args[0])
			if err != nil {
				return err
			}
			snap, err := campaign.LoadFile(path)
			if err != nil {
				return err
			}
			seed := snap.State.Seed + int64(snap.State.Turn)
			eng, err := campaign.Restore(snap, seed, campaign.Options{
				TurnLimit: snap.State.TurnLimit,
				Tuning:    tuning.Campaign,
			})
			if err != nil {
				return err
			}
			before := len(eng.Logs())
			if turns > 0 {
				err = eng.Advance(turns)
			} else {
				err = eng.Run()
			}
			if err != nil {
				return err
			}
			renderCampaignLogs(eng.Logs()[before:])
			renderCampaignSummary(eng)
			if err := eng.Snapshot().SaveFile(path); err != nil {
				return err
			}
			printInfo("Saved campaign to " + path)
			return nil
		},
	}
	cmd.Flags().IntVar(&turns, "turns", 0, "quarters to play (0 = to the end)")
	cmd.Flags().StringVar(&tuningPath, "tuning", "", "YAML tuning overrides")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export <slot>",
		Short: "Export a saved campaign as a spreadsheet or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cl.SavePath(args[0])
			if err != nil {
				return err
			}
			snap, err := campaign.LoadFile(path)
			if err != nil {
				return err
			}
			if out == "" {
				out = report.CampaignFilename(strings.TrimSuffix(args[0], ".json"), format)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			switch format {
			case "xlsx":
				err = report.WriteCampaignXLSX(f, snap.SimData)
			case "json":
				err = report.WriteCampaignJSON(f, snap.SimData)
			default:
				err = fmt.Errorf("unknown export format %q", format)
			}
			if err != nil {
				return err
			}
			printSuccess("Exported " + out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "xlsx", "export format: xlsx or json")
	cmd.Flags().StringVar(&out, "out", "", "output file (default derived from slot)")
	return cmd
}

func newPortfolioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Run the AI-driven portfolio game",
	}
	cmd.AddCommand(newPortfolioRunCmd(), newPortfolioExportCmd())
	return cmd
}

func newPortfolioRunCmd() *cobra.Command {
	var (
		seed       int64
		turns      int
		allocSpec  string
		stance     string
		chess      bool
		live       bool
		loadSlot   string
		saveSlot   string
		tuningPath string
		volatility string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play portfolio turns against the market AI",
		RunE: func(cmd *cobra.Command, args []string) error {
			tuning, err := config.LoadTuning(tuningPath)
			if err != nil {
				return err
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			if stance != "" && !validStance(stance) {
				return fmt.Errorf("unknown stance %q", stance)
			}
			opts := portfolio.Options{
				Seed:      seed,
				Stance:    portfolio.Stance(stance),
				ChessAI:   chess,
				AllocDist: alloc.Parse(allocSpec, portfolio.DefaultAllocDist),
				TurnLimit: turns,
				Tuning:    tuning.Portfolio,
			}
			if loadSlot != "" {
				path, err := cl.SavePath(loadSlot)
				if err != nil {
					return err
				}
				book, err := portfolio.LoadBook(path)
				if err != nil {
					return err
				}
				opts.Cash = book.Cash
				opts.Assets = book.Stocks
			}
			eng, err := portfolio.New(newQuoter(seed, volatility, live), opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			if err := eng.Run(ctx); err != nil {
				return err
			}
			renderPortfolioLogs(eng.Logs())
			renderPortfolioSummary(eng)
			if saveSlot != "" {
				path, err := cl.SavePath(saveSlot)
				if err != nil {
					return err
				}
				if err := eng.Book().SaveFile(path); err != nil {
					return err
				}
				printInfo("Saved portfolio to " + path)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "simulation seed (0 picks one)")
	cmd.Flags().IntVar(&turns, "turns", 10, "number of turns to play")
	cmd.Flags().StringVar(&allocSpec, "alloc", "", "target allocation, e.g. 30/20/10/20/20")
	cmd.Flags().StringVar(&stance, "stance", "", "market AI stance: bullish, bearish, sideways (empty = random)")
	cmd.Flags().BoolVar(&chess, "chess", false, "use the chess-style market AI")
	cmd.Flags().BoolVar(&live, "live", false, "price from live quotes, falling back to the simulator")
	cmd.Flags().StringVar(&loadSlot, "load", "", "start from a saved portfolio")
	cmd.Flags().StringVar(&saveSlot, "save", "", "save slot or path for the finished position")
	cmd.Flags().StringVar(&tuningPath, "tuning", "", "YAML tuning overrides")
	cmd.Flags().StringVar(&volatility, "volatility", "mor", "simulated market mood: calm, mor, wild")
	return cmd
}

func newPortfolioExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Replay a run and export its per-turn records as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := cmd.Flags().GetInt64("seed")
			if err != nil {
				return err
			}
			turns, err := cmd.Flags().GetInt("turns")
			if err != nil {
				return err
			}
			chess, err := cmd.Flags().GetBool("chess")
			if err != nil {
				return err
			}
			stance, err := cmd.Flags().GetString("stance")
			if err != nil {
				return err
			}
			eng, err := portfolio.New(market.NewSim(seed, "mor"), portfolio.Options{
				Seed:      seed,
				Stance:    portfolio.Stance(stance),
				ChessAI:   chess,
				TurnLimit: turns,
			})
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			if err := eng.Run(ctx); err != nil {
				return err
			}
			if out == "" {
				out = report.PortfolioFilename(fmt.Sprintf("seed%d", seed))
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := report.WritePortfolioJSON(f, eng.History()); err != nil {
				return err
			}
			printSuccess("Exported " + out)
			return nil
		},
	}
	cmd.Flags().Int64("seed", 1, "simulation seed to replay")
	cmd.Flags().Int("turns", 10, "number of turns")
	cmd.Flags().Bool("chess", false, "use the chess-style market AI")
	cmd.Flags().String("stance", "", "market AI stance")
	cmd.Flags().StringVar(&out, "out", "", "output file")
	return cmd
}

func newQuoteCmd() *cobra.Command {
	var (
		endpoint string
		live     bool
	)
	cmd := &cobra.Command{
		Use:   "quote <ticker>...",
		Short: "Fetch current prices, falling back to the simulator",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quoter := newQuoterWithEndpoint(time.Now().UnixNano(), "mor", live, endpoint)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			for _, ticker := range args {
				price, err := quoter.Quote(ctx, strings.ToUpper(ticker))
				if err != nil {
					printError(fmt.Sprintf("%s: %v", ticker, err))
					continue
				}
				printInfo(fmt.Sprintf("%-6s %10.2f", strings.ToUpper(ticker), price))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "https://stooq.com/q/l/", "quote endpoint")
	cmd.Flags().BoolVar(&live, "live", true, "query the endpoint before falling back")
	return cmd
}

func validPersonality(raw string) bool {
	for _, p := range campaign.Personalities {
		if string(p) == raw {
			return true
		}
	}
	return false
}

func validStance(raw string) bool {
	for _, st := range portfolio.Stances {
		if string(st) == raw {
			return true
		}
	}
	return false
}

func newQuoter(seed int64, volatility string, live bool) market.Quoter {
	return newQuoterWithEndpoint(seed, volatility, live, "https://stooq.com/q/l/")
}

func newQuoterWithEndpoint(seed int64, volatility string, live bool, endpoint string) market.Quoter {
	sim := market.NewSim(seed, volatility)
	if live {
		return market.NewLive(endpoint, 10*time.Second, sim)
	}
	return sim
}
