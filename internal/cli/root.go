// Package cli provides the command-line interface for the trading journal.
package cli

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trading-journal/internal/config"
	"trading-journal/internal/journal"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
	"trading-journal/internal/notify"
	"trading-journal/internal/paper"
	"trading-journal/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// commandTimeout bounds a single non-interactive command.
const commandTimeout = 30 * time.Second

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.KV
	Journal  *journal.Journal
	Paper    *paper.Simulator
	Notifier *notify.MultiNotifier

	// Terminal prints simulator notifications; it is started by commands
	// that want live output.
	Terminal *notify.TerminalNotifier
}

// NewRootCmd creates the root command. Dependencies are built from the
// configuration directory selected by --config before any subcommand runs.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{})
}

// NewRootCmdWithApp creates the root command around pre-built dependencies.
// Fields left nil are built as usual.
func NewRootCmdWithApp(app *App) *cobra.Command {
	return newRootCmd(app)
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trading journal and paper trading simulator",
		Long: `Trading Journal records closed trades, computes performance statistics
and runs a paper trading simulator with up to five simulated positions.

Use 'journal <command> --help' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trading-journal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addStatsCommands(rootCmd, app)
	addPaperCommands(rootCmd, app)
	addHelpCommands(rootCmd, app)

	return rootCmd
}

// setup builds whatever the App is still missing.
func (app *App) setup(cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")

	if app.Config == nil {
		dir, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		app.Config = cfg

		logCfg := logging.DefaultLogConfig()
		logCfg.Level = cfg.Logging.Level
		logCfg.Console = cfg.Logging.Console
		logCfg.File = cfg.Logging.File
		logCfg.FilePath = cfg.LogFilePath()
		if cfg.Logging.MaxSizeMB > 0 {
			logCfg.MaxSize = cfg.Logging.MaxSizeMB
		}
		if cfg.Logging.MaxBackups > 0 {
			logCfg.MaxBackups = cfg.Logging.MaxBackups
		}
		if cfg.Logging.MaxAgeDays > 0 {
			logCfg.MaxAge = cfg.Logging.MaxAgeDays
		}
		if debug {
			logCfg.Level = "debug"
			logCfg.Console = true
		}
		app.Logger = logging.NewLoggerWithConfig(logCfg)
		if cfg.Created {
			app.Logger.Info().Str("path", config.ConfigPath(cfg.Dir)).Msg("Created configuration template")
		}
	} else if debug {
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}

	if app.Store == nil {
		kv, err := store.NewSQLiteStore(app.Config.Journal.DBPath)
		if err != nil {
			return err
		}
		app.Store = kv
		app.Logger.Debug().Str("path", app.Config.Journal.DBPath).Msg("SQLite store initialized")
	}

	if app.Notifier == nil {
		app.Notifier = app.buildNotifier(cmd)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	if app.Journal == nil {
		j := journal.New(journal.Options{
			Store:  app.Store,
			Logger: app.Logger,
			Settings: models.Settings{
				InitialBalance: app.Config.Journal.InitialBalance,
				Currency:       app.Config.Journal.Currency,
			},
		})
		if err := j.Init(ctx); err != nil {
			return err
		}
		app.Journal = j
	}

	if app.Paper == nil {
		sim, err := paper.Open(ctx, paper.Options{
			Store:    app.Store,
			Notifier: app.Notifier,
			Logger:   app.Logger,
			Config:   app.Config.Paper,
		})
		if err != nil {
			app.Logger.Warn().Err(err).Msg("Paper trading state partially loaded")
		}
		app.Paper = sim
	}
	return nil
}

func (app *App) buildNotifier(cmd *cobra.Command) *notify.MultiNotifier {
	cfg := app.Config.Notifications
	mn := notify.NewMultiNotifier(notify.NotificationLevel(cfg.Level),
		notify.NewLogNotifier(app.Logger))
	if !cfg.Enabled {
		return mn
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		return mn
	}
	colorOn := cfg.Color && isTerminal(cmd.OutOrStdout())
	tn := notify.NewTerminalNotifier(64)
	tn.SetOutput(cmd.ErrOrStderr())
	tn.SetBellEnabled(cfg.Bell)
	tn.AddHandler(notify.DefaultTerminalHandler(cmd.ErrOrStderr(), colorOn))
	app.Terminal = tn
	mn.AddChannel(tn)
	return mn
}

// Close flushes pending notifications and closes the store. It is safe to
// call more than once.
func (app *App) Close() error {
	if app.Terminal != nil {
		app.Terminal.Drain()
	}
	if app.Store == nil {
		return nil
	}
	err := app.Store.Close()
	app.Store = nil
	return err
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Trading Journal v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := config.ConfigPath(app.Config.Dir)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Journal")
	output.Printf("  Database:        %s\n", cfg.Journal.DBPath)
	output.Printf("  Initial Balance: %.2f\n", cfg.Journal.InitialBalance)
	output.Printf("  Currency:        %s\n", cfg.Journal.Currency)
	output.Println()

	output.Bold("Paper Trading")
	output.Printf("  Max Open Trades: %d\n", cfg.Paper.MaxOpenTrades)
	output.Printf("  Default TP:      %.0f pips\n", cfg.Paper.DefaultTPPips)
	output.Printf("  Default SL:      %.0f pips\n", cfg.Paper.DefaultSLPips)
	output.Printf("  Max Duration:    %s\n", cfg.Paper.MaxDuration)
	output.Printf("  Warning After:   %s\n", cfg.Paper.WarningAfter)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  File:            %v\n", cfg.Logging.File)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:         %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:           %s\n", cfg.Notifications.Level)
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	app := &App{}
	err := newRootCmd(app).ExecuteContext(ctx)
	if err != nil {
		// PersistentPostRunE is skipped when a command fails.
		_ = app.Close()
		NewErrorOutput().Error("Error: %v", err)
		return 1
	}
	return 0
}

// NewErrorOutput returns an Output writing to stderr.
func NewErrorOutput() *Output {
	return &Output{writer: os.Stderr, colorEnabled: isTerminal(os.Stderr)}
}
