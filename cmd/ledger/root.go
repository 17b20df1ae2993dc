package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/engine"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/services"
)

// app is the state shared by every subcommand once the root pre-run has
// opened the backend.
type app struct {
	flagBackend  string
	flagDB       string
	flagSeed     string
	flagNow      string
	flagLogLevel string

	cfg     *config.Config
	backend *backend.BackendResult
	events  *amqp.Client
	svc     *services.LedgerService
	now     time.Time
	out     io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "ledger",
		Short:         "Personal obligation ledger",
		Long:          "Track loans, credit cards and fixed expenses: balances, monthly status, payoff schedules and balance trends.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.flagBackend, "backend", "", "Store backend: memory or sqlite (default from DATA_BACKEND)")
	root.PersistentFlags().StringVar(&a.flagDB, "db", "", "SQLite database path (default from SQLITE_DB_PATH)")
	root.PersistentFlags().StringVar(&a.flagSeed, "seed", "", "TOML seed file (default from LEDGER_SEED_FILE)")
	root.PersistentFlags().StringVar(&a.flagNow, "now", "", "Evaluate as of this date, YYYY-MM-DD or RFC 3339 (default: current time)")
	root.PersistentFlags().StringVar(&a.flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		newStatusCmd(a),
		newScheduleCmd(a),
		newSeriesCmd(a),
		newToggleCmd(a),
		newAddCmd(a),
		newMigrateCmd(a),
		newImportCmd(a),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cli.LoadEnvFile()

	cfg := config.Load()
	if a.flagBackend != "" {
		cfg.DataBackend = a.flagBackend
	}
	if a.flagDB != "" {
		cfg.SQLiteDBPath = a.flagDB
	}
	if a.flagSeed != "" {
		cfg.SeedFile = a.flagSeed
	}
	if a.flagLogLevel != "" {
		cfg.LogLevel = a.flagLogLevel
	} else if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	cli.SetupLogger(os.Stderr, cfg.LogLevel, log.ComponentCLI)

	now, err := parseNow(a.flagNow)
	if err != nil {
		return err
	}
	a.now = now

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(slog.Default()).CreateBackend(cmd.Context(), bcfg)
	if err != nil {
		return err
	}
	a.backend = res

	var events ledger.EventPublisher
	if cfg.HasAMQP() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Warn("Failed to connect to AMQP, changes will not be announced", "error", err)
		} else {
			a.events = client
			events = client
		}
	}

	eng := engine.New(cache.NewLRUCache[engine.Balance](cfg.CacheSize, cfg.CacheTTL))
	a.svc = services.NewLedgerService(res.Store, events, eng)
	return nil
}

func (a *app) close() error {
	if a.events != nil {
		_ = a.events.Close()
	}
	return a.backend.Close()
}

func parseNow(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now %q: use YYYY-MM-DD or RFC 3339", s)
	}
	// Midday keeps the date stable across zone conversions.
	return t.Add(12 * time.Hour), nil
}
