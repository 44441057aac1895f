// Package cmd contains all Cobra commands for asksql.
//
// Design decision: the root command launches the TUI directly. Backend
// and database settings come from ~/.asksql/config.json and ASKSQL_*
// variables; the persistent flags override both for one run.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/DachengChen/asksql/applog"
	"github.com/DachengChen/asksql/config"
	"github.com/DachengChen/asksql/db"
	"github.com/DachengChen/asksql/transport"
	"github.com/DachengChen/asksql/tui"
)

// Version is overridden at build time with -ldflags "-X ...cmd.Version=...".
var Version = "0.1.0"

// flags holds the persistent overrides.
type flags struct {
	mode       string
	backend    string
	noFallback bool
	profile    string
}

var (
	rootFlags flags
	appConfig *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "asksql",
	Short: "Ask questions about your data and get explained SQL",
	Long: `asksql is a terminal front end for a natural-language-to-SQL service:
  • Chat view with clarification forms and refusals
  • SQL panel with tables, joins, filters and validation
  • Optional read-only execution through pgx (with SSH tunnel)
  • Offline mock backend for development

Run 'asksql' to start the TUI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		applog.Init("")
		cfg, err := loadConfig(rootFlags)
		if err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
	// Running with no subcommand launches the TUI.
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, err := transport.New(appConfig.Backend)
		if err != nil {
			return err
		}

		opts := tui.Options{Transport: tr, Version: Version}
		database, err := openDatabase(cmd.Context(), appConfig.Database)
		if err != nil {
			return err
		}
		if database != nil {
			defer database.Close()
			opts.Runner = database
		}

		applog.Event("APP", "starting TUI (backend %s)", tr.Name())
		err = tui.Start(cmd.Context(), opts)
		if errors.Is(err, tea.ErrProgramKilled) && cmd.Context().Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.mode, "mode", "", "backend mode: http or mock")
	pf.StringVar(&rootFlags.backend, "backend", "", "backend base URL, e.g. http://localhost:8080")
	pf.BoolVar(&rootFlags.noFallback, "no-fallback", false, "do not answer from the mock when the backend is unreachable")
	pf.StringVar(&rootFlags.profile, "profile", "", "connection profile from ~/.asksql/connections.json used by :run")
}

// loadConfig reads the config file and environment, then applies f.
func loadConfig(f flags) (*config.AppConfig, error) {
	cfg, err := config.LoadAppConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, f)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.AppConfig, f flags) {
	if f.mode != "" {
		cfg.Backend.Mode = f.mode
	}
	if f.backend != "" {
		cfg.Backend.BaseURL = f.backend
	}
	if f.noFallback {
		cfg.Backend.MockFallback = false
	}
	if f.profile != "" {
		cfg.Database.Profile = f.profile
	}
}

// openDatabase connects to the configured profile, or returns nil when
// none is set.
func openDatabase(ctx context.Context, dbCfg config.DatabaseConfig) (*db.DB, error) {
	if dbCfg.Profile == "" {
		return nil, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	conns, err := config.NewConnectionStore(dir)
	if err != nil {
		return nil, fmt.Errorf("load connections: %w", err)
	}
	pgCfg, ok, err := conns.Resolve(dbCfg)
	if err != nil || !ok {
		return nil, err
	}
	return db.Connect(ctx, pgCfg)
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer applog.Close()
	return rootCmd.ExecuteContext(ctx)
}
