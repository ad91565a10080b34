package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cl "stratsim/internal/cli"

	"github.com/spf13/cobra"
)

func newRemoteCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Drive campaigns and portfolios on a strat API server",
	}
	cmd.PersistentFlags().StringVar(apiBase, "api", *apiBase, "API base URL")
	cmd.AddCommand(
		newRemoteCampaignCmd(apiBase),
		newRemotePortfolioCmd(apiBase),
	)
	return cmd
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newRemoteCampaignCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Manage server-side campaigns",
	}

	var (
		seed        int64
		turns       int
		personality string
		invest      string
		autopilot   bool
	)
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create a campaign",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).CreateCampaign(ctx, map[string]any{
				"seed":        seed,
				"turns":       turns,
				"personality": personality,
				"invest_dist": invest,
				"autopilot":   autopilot,
			})
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	newCmd.Flags().Int64Var(&seed, "seed", 0, "simulation seed (0 lets the server pick)")
	newCmd.Flags().IntVar(&turns, "turns", 12, "number of quarters")
	newCmd.Flags().StringVar(&personality, "personality", "", "opponent personality")
	newCmd.Flags().StringVar(&invest, "invest", "", "investment split")
	newCmd.Flags().BoolVar(&autopilot, "autopilot", false, "let the worker advance it")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List campaigns",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ListCampaigns(ctx)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	var advanceTurns int
	advanceCmd := &cobra.Command{
		Use:   "advance <id>",
		Short: "Play more quarters of a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			out, err := newClient(apiBase).AdvanceCampaign(ctx, args[0], advanceTurns)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	advanceCmd.Flags().IntVar(&advanceTurns, "turns", 1, "quarters to play")

	var (
		format string
		out    string
	)
	exportCmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Download a campaign report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			body, suggested, err := newClient(apiBase).ExportCampaign(ctx, args[0], format)
			if err != nil {
				return err
			}
			if out == "" {
				out = suggested
			}
			if out == "" {
				out = args[0] + "." + format
			}
			if err := os.WriteFile(out, body, 0o600); err != nil {
				return err
			}
			printSuccess("Exported " + out)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&format, "format", "xlsx", "export format: xlsx or json")
	exportCmd.Flags().StringVar(&out, "out", "", "output file")

	var enabled bool
	autopilotCmd := &cobra.Command{
		Use:   "autopilot <id>",
		Short: "Toggle worker-driven advancement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).SetCampaignAutopilot(ctx, args[0], enabled)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	autopilotCmd.Flags().BoolVar(&enabled, "enabled", true, "autopilot on or off")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := newClient(apiBase).DeleteCampaign(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted " + args[0])
			return nil
		},
	}

	cmd.AddCommand(newCmd, listCmd, advanceCmd, exportCmd, autopilotCmd, deleteCmd)
	return cmd
}

func newRemotePortfolioCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Manage server-side portfolios",
	}

	var (
		seed      int64
		turns     int
		allocSpec string
		stance    string
		chess     bool
	)
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create a portfolio run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).CreatePortfolio(ctx, map[string]any{
				"seed":     seed,
				"turns":    turns,
				"alloc":    allocSpec,
				"stance":   stance,
				"chess_ai": chess,
			})
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	newCmd.Flags().Int64Var(&seed, "seed", 0, "simulation seed (0 lets the server pick)")
	newCmd.Flags().IntVar(&turns, "turns", 10, "number of turns")
	newCmd.Flags().StringVar(&allocSpec, "alloc", "", "target allocation")
	newCmd.Flags().StringVar(&stance, "stance", "", "market AI stance")
	newCmd.Flags().BoolVar(&chess, "chess", false, "use the chess-style market AI")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List portfolio runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ListPortfolios(ctx)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	var advanceTurns int
	advanceCmd := &cobra.Command{
		Use:   "advance <id>",
		Short: "Play more turns of a portfolio run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			out, err := newClient(apiBase).AdvancePortfolio(ctx, args[0], advanceTurns)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	advanceCmd.Flags().IntVar(&advanceTurns, "turns", 1, "turns to play")

	var out string
	exportCmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Download a portfolio report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			body, suggested, err := newClient(apiBase).ExportPortfolio(ctx, args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = suggested
			}
			if out == "" {
				out = fmt.Sprintf("%s.json", args[0])
			}
			if err := os.WriteFile(out, body, 0o600); err != nil {
				return err
			}
			printSuccess("Exported " + out)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&out, "out", "", "output file")

	cmd.AddCommand(newCmd, listCmd, advanceCmd, exportCmd)
	return cmd
}
