package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trading-journal/internal/export"
	"trading-journal/internal/journal"
	"trading-journal/internal/models"
)

// addTradeCommands adds journal trade commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "trade",
		Aliases: []string{"trades"},
		Short:   "Journal trade management",
		Long:    "Record, list, import, export and back up journaled trades.",
	}

	cmd.AddCommand(newTradeAddCmd(app))
	cmd.AddCommand(newTradeListCmd(app))
	cmd.AddCommand(newTradeShowCmd(app))
	cmd.AddCommand(newTradeDeleteCmd(app))
	cmd.AddCommand(newTradeImportCmd(app))
	cmd.AddCommand(newTradeExportCmd(app))
	cmd.AddCommand(newTradeBackupCmd(app))
	cmd.AddCommand(newTradeRestoreCmd(app))
	cmd.AddCommand(newTradeClearCmd(app))

	rootCmd.AddCommand(cmd)
}

func newTradeAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <symbol>",
		Short: "Record a closed trade",
		Example: `  journal trade add EURUSD --pnl 125.50 --direction long --signals breakout,trend
  journal trade add XAUUSD --pnl=-40 --date 2024-05-02 --lessons "moved stop"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			pnl, _ := cmd.Flags().GetFloat64("pnl")
			date, _ := cmd.Flags().GetString("date")
			if date == "" {
				date = time.Now().Format(models.DateLayout)
			}
			direction, _ := cmd.Flags().GetString("direction")
			timeframe, _ := cmd.Flags().GetString("timeframe")
			entry, _ := cmd.Flags().GetFloat64("entry")
			exit, _ := cmd.Flags().GetFloat64("exit")
			stopLoss, _ := cmd.Flags().GetFloat64("sl")
			takeProfit, _ := cmd.Flags().GetFloat64("tp")
			volume, _ := cmd.Flags().GetFloat64("volume")
			signals, _ := cmd.Flags().GetStringSlice("signals")
			reason, _ := cmd.Flags().GetString("reason")
			lessons, _ := cmd.Flags().GetString("lessons")

			t, err := app.Journal.AddTrade(ctx, models.Trade{
				Date:        date,
				Symbol:      args[0],
				Timeframe:   timeframe,
				Direction:   models.Direction(strings.ToLower(direction)),
				EntryPrice:  entry,
				ExitPrice:   exit,
				StopLoss:    stopLoss,
				TakeProfit:  takeProfit,
				Volume:      volume,
				PnL:         pnl,
				Signals:     signals,
				EntryReason: reason,
				Lessons:     lessons,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(t)
			}
			output.Success("✓ Trade %s recorded: %s %s", t.ID, t.Symbol,
				output.FormatPnL(t.PnL, app.Journal.Settings().Currency))
			return nil
		},
	}

	cmd.Flags().Float64("pnl", 0, "realized profit or loss (required)")
	cmd.Flags().String("date", "", "trade date YYYY-MM-DD (default: today)")
	cmd.Flags().String("direction", "long", "long or short")
	cmd.Flags().String("timeframe", "15m", "chart timeframe")
	cmd.Flags().Float64("entry", 0, "entry price")
	cmd.Flags().Float64("exit", 0, "exit price")
	cmd.Flags().Float64("sl", 0, "stop loss price")
	cmd.Flags().Float64("tp", 0, "take profit price")
	cmd.Flags().Float64("volume", 0, "position size")
	cmd.Flags().StringSlice("signals", nil, "comma separated signal tags")
	cmd.Flags().String("reason", "", "entry reason")
	cmd.Flags().String("lessons", "", "lessons learned")
	_ = cmd.MarkFlagRequired("pnl")

	return cmd
}

func newTradeListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled trades",
		Example: `  journal trade list --period weekly
  journal trade list --search xau --sort pnl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			trades := app.Journal.Filter(f)

			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Info("No trades found.")
				return nil
			}

			currency := app.Journal.Settings().Currency
			table := NewTable(output, "Date", "Symbol", "Dir", "TF", "P&L", "Signals", "ID")
			var total float64
			var wins int
			for _, t := range trades {
				total += t.PnL
				if t.IsWin() {
					wins++
				}
				table.AddRow(
					t.DayKey(),
					t.Symbol,
					string(t.Direction),
					t.Timeframe,
					output.FormatPnL(t.PnL, currency),
					TruncateString(strings.Join(t.Signals, ","), 24),
					t.ID,
				)
			}
			table.Render()

			output.Println()
			output.Printf("  %d trades, %d wins (%.1f%%), total %s\n", len(trades), wins,
				float64(wins)/float64(len(trades))*100, output.FormatPnL(total, currency))
			return nil
		},
	}

	addFilterFlags(cmd)
	return cmd
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("period", "all", "all, daily, weekly, monthly or custom")
	cmd.Flags().String("from", "", "custom period start YYYY-MM-DD")
	cmd.Flags().String("to", "", "custom period end YYYY-MM-DD")
	cmd.Flags().String("search", "", "match symbol, direction or pnl")
	cmd.Flags().String("sort", "date", "date, pnl or symbol")
	cmd.Flags().Bool("asc", false, "sort ascending")
}

func filterFromFlags(cmd *cobra.Command) (journal.Filter, error) {
	period, _ := cmd.Flags().GetString("period")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	search, _ := cmd.Flags().GetString("search")
	sortBy, _ := cmd.Flags().GetString("sort")
	asc, _ := cmd.Flags().GetBool("asc")

	f := journal.Filter{
		Period: journal.ParsePeriod(period),
		Query:  search,
		SortBy: journal.SortField(strings.ToLower(sortBy)),
		Desc:   !asc,
	}
	if from != "" || to != "" {
		f.Period = journal.PeriodCustom
	}
	var err error
	if from != "" {
		if f.From, err = time.Parse(models.DateLayout, from); err != nil {
			return f, fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if to != "" {
		if f.To, err = time.Parse(models.DateLayout, to); err != nil {
			return f, fmt.Errorf("invalid --to date: %w", err)
		}
	}
	return f, nil
}

func newTradeShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <trade-id>",
		Short: "Show one trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			t, err := app.Journal.GetTrade(args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(t)
			}

			currency := app.Journal.Settings().Currency
			lines := []string{
				fmt.Sprintf("Date:       %s %s-%s", t.DayKey(), t.EntryTime, t.ExitTime),
				fmt.Sprintf("Direction:  %s (%s)", t.Direction, t.Timeframe),
				fmt.Sprintf("Entry/Exit: %s / %s", FormatPrice(t.EntryPrice), FormatPrice(t.ExitPrice)),
				fmt.Sprintf("SL/TP:      %s / %s", FormatPrice(t.StopLoss), FormatPrice(t.TakeProfit)),
				fmt.Sprintf("Volume:     %g", t.Volume),
				fmt.Sprintf("P&L:        %s", output.FormatPnL(t.PnL, currency)),
				fmt.Sprintf("Signals:    %s", strings.Join(t.Signals, ", ")),
			}
			if t.EntryReason != "" {
				lines = append(lines, "Reason:     "+t.EntryReason)
			}
			if t.Lessons != "" {
				lines = append(lines, "Lessons:    "+t.Lessons)
			}
			output.Box(t.Symbol+"  "+t.ID, lines)
			return nil
		},
	}
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <trade-id>",
		Short: "Delete a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			t, err := app.Journal.DeleteTrade(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(t)
			}
			output.Success("✓ Deleted %s (%s %s)", t.ID, t.Symbol, t.DayKey())
			return nil
		},
	}
}

func newTradeImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Replace trades with an exported JSON document",
		Long: `Import trades from a JSON document containing a "trades" array.
Every trade needs symbol, date and pnl. The current journal is backed up first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := app.Journal.Import(ctx, f)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]int{"imported": n})
			}
			output.Success("✓ Imported %d trades", n)
			return nil
		},
	}
}

func newTradeExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export trades as JSON or CSV",
		Example: `  journal trade export > journal.json
  journal trade export --format csv --period monthly -o may.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			path, _ := cmd.Flags().GetString("output")

			w := cmd.OutOrStdout()
			if path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			switch strings.ToLower(format) {
			case "json":
				return app.Journal.Export(w)
			case "csv":
				f, err := filterFromFlags(cmd)
				if err != nil {
					return err
				}
				f.Desc = false
				return export.WriteTradesCSV(w, app.Journal.Filter(f), app.Journal.StatsFor(f))
			default:
				return fmt.Errorf("unknown format %q (json or csv)", format)
			}
		},
	}

	cmd.Flags().String("format", "json", "json or csv")
	cmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	addFilterFlags(cmd)
	return cmd
}

func newTradeBackupCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create or list journal backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			list, _ := cmd.Flags().GetBool("list")
			if list {
				keys, err := app.Journal.Backups(ctx)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(keys)
				}
				if len(keys) == 0 {
					output.Info("No backups.")
				}
				for _, k := range keys {
					output.Println(k)
				}
				return nil
			}

			key, err := app.Journal.Backup(ctx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"backup": key})
			}
			output.Success("✓ Backup created: %s", key)
			return nil
		},
	}
	cmd.Flags().Bool("list", false, "list existing backups")
	return cmd
}

func newTradeRestoreCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-key>",
		Short: "Restore the journal from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			if err := app.Journal.Restore(ctx, args[0]); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]int{"trades": len(app.Journal.Trades())})
			}
			output.Success("✓ Restored %d trades", len(app.Journal.Trades()))
			return nil
		},
	}
}

func newTradeClearCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every trade after taking a backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				output.Warning("This removes all journaled trades. Re-run with --yes to confirm.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			key, err := app.Journal.Clear(ctx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"backup": key})
			}
			output.Success("✓ Journal cleared. Restore with: journal trade restore %s", key)
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "confirm clearing the journal")
	return cmd
}
