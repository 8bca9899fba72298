package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"trading-journal/internal/journal"
	"trading-journal/internal/stats"
	"trading-journal/pkg/utils"
)

// addStatsCommands adds journal statistics commands.
func addStatsCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Journal performance statistics",
		Long: `Compute performance statistics over the journaled trades.

Filters match 'trade list': --period, --from/--to and --search.`,
		Example: `  journal stats
  journal stats --period monthly --signals
  journal stats --calendar 2024-05`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			s := app.Journal.StatsFor(f)

			if output.IsJSON() {
				return output.JSON(s)
			}

			currency := app.Journal.Settings().Currency
			renderStats(output, s, currency)

			showSignals, _ := cmd.Flags().GetBool("signals")
			if showSignals {
				output.Println()
				renderSignals(output, s, currency)
			}

			month, _ := cmd.Flags().GetString("calendar")
			if month != "" {
				output.Println()
				renderCalendar(output, s, month, currency)
			}
			return nil
		},
	}

	addFilterFlags(cmd)
	cmd.Flags().Bool("signals", false, "show per-signal breakdown")
	cmd.Flags().String("calendar", "", "show daily P&L for a month (YYYY-MM)")

	cmd.AddCommand(newStatsSettingsCmd(app))
	rootCmd.AddCommand(cmd)
}

func renderStats(output *Output, s stats.Stats, currency string) {
	if s.TotalTrades == 0 {
		output.Info("No trades recorded for this period.")
		output.Printf("  Balance: %s\n", utils.FormatCurrency(s.CurrentBalance, currency))
		return
	}

	lines := []string{
		fmt.Sprintf("Trades:         %d (%d W / %d L / %d BE)", s.TotalTrades, s.Wins, s.Losses, s.BreakEven),
		fmt.Sprintf("Win Rate:       %.1f%%", s.WinRatePercent()),
		fmt.Sprintf("Total P&L:      %s (%s)", output.FormatPnL(s.TotalPnL, currency), output.FormatPercent(s.TotalPnLPercent)),
		fmt.Sprintf("Balance:        %s (%s)", utils.FormatCurrency(s.CurrentBalance, currency), output.FormatPercent(s.BalanceChangePercent)),
		fmt.Sprintf("Best / Worst:   %s / %s", output.FormatPnL(s.BestTrade, currency), output.FormatPnL(s.WorstTrade, currency)),
		fmt.Sprintf("Avg Win/Loss:   %s / %s", output.FormatPnL(s.AvgWin, currency), output.FormatPnL(-s.AvgLoss, currency)),
		fmt.Sprintf("Profit Factor:  %s", utils.FormatRatio(s.ProfitFactor, stats.ProfitFactorCap)),
		fmt.Sprintf("Payoff Ratio:   %.2f", s.PayoffRatio),
		fmt.Sprintf("Expectancy:     %s", output.FormatPnL(s.Expectancy, currency)),
		fmt.Sprintf("Sharpe Ratio:   %.2f", s.SharpeRatio),
		fmt.Sprintf("Max Drawdown:   %.2f%%", s.MaxDrawdown),
		fmt.Sprintf("Streaks:        %d wins / %d losses", s.LongestWinStreak, s.LongestLossStreak),
	}
	output.Box("Performance", lines)

	if len(s.Monthly) > 0 {
		output.Println()
		table := NewTable(output, "Month", "P&L")
		for _, k := range sortedKeys(s.Monthly) {
			table.AddRow(k, output.FormatPnL(s.Monthly[k], currency))
		}
		table.Render()
	}
}

func renderSignals(output *Output, s stats.Stats, currency string) {
	names := s.SignalNames()
	if len(names) == 0 {
		output.Info("No signals recorded.")
		return
	}
	table := NewTable(output, "Signal", "Trades", "Wins", "Losses", "Win Rate", "P&L")
	for _, name := range names {
		sig := s.Signals[name]
		table.AddRow(
			name,
			fmt.Sprintf("%d", sig.Count),
			fmt.Sprintf("%d", sig.Wins),
			fmt.Sprintf("%d", sig.Losses),
			fmt.Sprintf("%.1f%%", sig.WinRate()),
			output.FormatPnL(sig.TotalPnL, currency),
		)
	}
	table.Render()
}

func renderCalendar(output *Output, s stats.Stats, month, currency string) {
	prefix := strings.TrimSpace(month) + "-"
	var days []string
	for day := range s.Calendar {
		if strings.HasPrefix(day, prefix) {
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		output.Info("No trades in %s.", month)
		return
	}
	sort.Strings(days)

	table := NewTable(output, "Day", "Trades", "W/L", "P&L")
	for _, day := range days {
		d := s.Calendar[day]
		table.AddRow(day, fmt.Sprintf("%d", d.Trades),
			fmt.Sprintf("%d/%d", d.Wins, d.Losses), output.FormatPnL(d.PnL, currency))
	}
	table.Render()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newStatsSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change journal settings",
		Example: `  journal stats settings
  journal stats settings --balance 25000 --currency EUR`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var patch journal.SettingsPatch
			if cmd.Flags().Changed("balance") {
				v, _ := cmd.Flags().GetFloat64("balance")
				patch.InitialBalance = &v
			}
			if cmd.Flags().Changed("currency") {
				v, _ := cmd.Flags().GetString("currency")
				patch.Currency = &v
			}
			if cmd.Flags().Changed("theme") {
				v, _ := cmd.Flags().GetString("theme")
				patch.Theme = &v
			}
			if cmd.Flags().Changed("signals") {
				patch.CustomSignals, _ = cmd.Flags().GetStringSlice("signals")
			}

			settings := app.Journal.Settings()
			changed := patch.InitialBalance != nil || patch.Currency != nil ||
				patch.Theme != nil || patch.CustomSignals != nil
			if changed {
				ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
				defer cancel()
				var err error
				if settings, err = app.Journal.UpdateSettings(ctx, patch); err != nil {
					return err
				}
			}

			if output.IsJSON() {
				return output.JSON(settings)
			}
			output.Printf("  Initial Balance: %s\n", utils.FormatCurrency(settings.InitialBalance, settings.Currency))
			output.Printf("  Currency:        %s\n", settings.Currency)
			output.Printf("  Theme:           %s\n", settings.Theme)
			output.Printf("  Custom Signals:  %s\n", strings.Join(settings.CustomSignals, ", "))
			return nil
		},
	}

	cmd.Flags().Float64("balance", 0, "initial account balance")
	cmd.Flags().String("currency", "", "account currency code")
	cmd.Flags().String("theme", "", "dark or light")
	cmd.Flags().StringSlice("signals", nil, "custom signal tags")
	return cmd
}
