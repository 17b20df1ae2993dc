package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/core"
	"ledger/internal/engine"
	"ledger/internal/ledger"
	"ledger/internal/storage"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show balances and this month's status for every obligation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.svc.Overview(cmd.Context(), a.now)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, cli.RenderTitle("Ledger"))
			fmt.Fprint(a.out, cli.RenderPortfolio(p))
			return nil
		},
	}
}

func newScheduleCmd(a *app) *cobra.Command {
	var payoffs []string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Project the month-by-month payment plan",
		Example: "  ledger schedule\n" +
			"  ledger schedule --payoff car@2026-12 --payoff card@2027-03",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides := make([]core.EarlySettlementOverride, 0, len(payoffs))
			for _, p := range payoffs {
				ov, err := core.ParseOverride(p)
				if err != nil {
					return err
				}
				overrides = append(overrides, ov)
			}
			s, err := a.svc.Schedule(cmd.Context(), a.now, overrides)
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, cli.RenderSchedule(s))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&payoffs, "payoff", nil, "Pay an obligation off in full in a month, <id>@YYYY-MM (repeatable)")
	return cmd
}

func newSeriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "series",
		Short: "Show the balance trend of each installment obligation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := a.svc.Series(cmd.Context(), a.now)
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, cli.RenderSeries(set))
			return nil
		},
	}
}

func newToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Mark this month paid, or undo this month's payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.svc.TogglePeriod(cmd.Context(), args[0], a.now)
			if errors.Is(err, core.ErrStatusNotApplicable) {
				return fmt.Errorf("%s has no recurring amount or due day, so it has no monthly status", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: %s -> %s\n", args[0], label(t.From), label(t.To))
			for _, e := range t.Added {
				fmt.Fprintf(a.out, "  + settlement %s on %s\n", e.Amount, e.Date.Format("2006-01-02"))
			}
			for _, e := range t.Removed {
				fmt.Fprintf(a.out, "  - settlement %s on %s\n", e.Amount, e.Date.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func label(s engine.PeriodStatus) string {
	if l := s.Label(); l != "" {
		return l
	}
	return "n/a"
}

func newAddCmd(a *app) *cobra.Command {
	var amount, kind, note, date string
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Record a settlement or a principal adjustment",
		Example: "  ledger add car --amount 1,000,000\n" +
			"  ledger add home --amount 50000000 --kind principal_adjustment --note \"borrowed more\"",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := core.ParseAmount(amount)
			if err != nil {
				return fmt.Errorf("--amount %q: %w", amount, err)
			}
			d := core.Date{Time: a.now}
			if date != "" {
				t, err := parseNow(date)
				if err != nil {
					return err
				}
				d = core.Date{Time: t}
			}
			e, err := a.svc.AddEntry(cmd.Context(), args[0], core.LedgerEntry{
				Date:   d,
				Amount: m,
				Note:   strings.TrimSpace(note),
				Kind:   core.EntryKind(kind),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: recorded %s %s (%s)\n", args[0], e.Kind, e.Amount, e.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "Amount in whole currency units")
	cmd.Flags().StringVar(&kind, "kind", string(core.Settlement), "settlement or principal_adjustment")
	cmd.Flags().StringVar(&note, "note", "", "Free text note")
	cmd.Flags().StringVar(&date, "date", "", "Entry date, YYYY-MM-DD (default --now)")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and tag legacy ledger entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo := a.backend.SQLite
			if repo == nil {
				return fmt.Errorf("migrate needs the sqlite backend (use --backend sqlite)")
			}
			// Opening the repository already applied both steps; this run
			// reports the state and catches anything written since.
			n, err := repo.MigrateLegacyKinds(cmd.Context())
			if err != nil {
				return err
			}
			version, dirty, err := storage.MigrationVersion(a.cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "schema version %d (dirty: %v), %d legacy entries tagged\n", version, dirty, n)
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <seed.toml>",
		Short: "Load obligations from a TOML seed file, replacing ones with the same id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obligations, err := ledger.LoadSeedFile(args[0])
			if err != nil {
				return err
			}
			if err := backend.ImportSeed(cmd.Context(), a.svc, obligations); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "imported %d obligations\n", len(obligations))
			return nil
		},
	}
}
