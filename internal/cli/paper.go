package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trading-journal/internal/export"
	"trading-journal/internal/models"
	"trading-journal/internal/notify"
	"trading-journal/internal/paper"
	"trading-journal/internal/stats"
)

// addPaperCommands adds paper trading simulator commands.
func addPaperCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "paper",
		Aliases: []string{"sim"},
		Short:   "Paper trading simulator",
		Long: `Simulate trades on the built-in instruments.

At most five positions are open at once, one per instrument. Positions close
automatically after eight hours. Trades closed at TP or SL wait for a review
before they are added to the history.`,
	}

	cmd.AddCommand(newPaperOpenCmd(app))
	cmd.AddCommand(newPaperCloseCmd(app))
	cmd.AddCommand(newPaperStatusCmd(app))
	cmd.AddCommand(newPaperPendingCmd(app))
	cmd.AddCommand(newPaperReviewCmd(app))
	cmd.AddCommand(newPaperSkipCmd(app))
	cmd.AddCommand(newPaperHistoryCmd(app))
	cmd.AddCommand(newPaperStatsCmd(app))
	cmd.AddCommand(newPaperStrategiesCmd(app))
	cmd.AddCommand(newPaperInstrumentsCmd(app))
	cmd.AddCommand(newPaperConvertCmd(app))
	cmd.AddCommand(newPaperResetCmd(app))
	cmd.AddCommand(newPaperExportCmd(app))
	cmd.AddCommand(newPaperWatchCmd(app))

	rootCmd.AddCommand(cmd)
}

// paperContext returns a command context after catching up on positions
// that warned or expired while no process was running.
func paperContext(cmd *cobra.Command, app *App) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	app.Paper.Tick(ctx)
	return ctx, cancel
}

func newPaperOpenCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open <instrument>",
		Short: "Open a simulated position",
		Example: `  journal paper open EURUSD --strategy Scalping
  journal paper open XAUUSD --strategy "Swing Trading" --direction sell`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := paperContext(cmd, app)
			defer cancel()

			strategy, _ := cmd.Flags().GetString("strategy")
			direction, _ := cmd.Flags().GetString("direction")
			notes, _ := cmd.Flags().GetString("notes")

			p, err := app.Paper.OpenTrade(ctx, paper.OpenRequest{
				Instrument: args[0],
				Strategy:   strategy,
				Direction:  models.PaperDirection(strings.ToLower(direction)),
				Notes:      notes,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(p)
			}
			output.Printf("  %s %s @ %s  %s\n", strings.ToUpper(string(p.Direction)), p.Instrument,
				FormatInstrumentPrice(p.Instrument, p.EntryPrice), output.DimText(p.ID))
			return nil
		},
	}

	cmd.Flags().StringP("strategy", "s", "", "strategy name (required)")
	cmd.Flags().StringP("direction", "d", "buy", "buy or sell")
	cmd.Flags().String("notes", "", "trade notes")
	return cmd
}

func parseOutcome(s string) (models.Outcome, error) {
	switch o := models.Outcome(strings.ToUpper(strings.TrimSpace(s))); o {
	case "NA", "NONE", "TIMEOUT":
		return models.OutcomeNoAction, nil
	default:
		if !o.Valid() {
			return "", fmt.Errorf("unknown outcome %q (TP, SL, BE or NO_ACTION)", s)
		}
		return o, nil
	}
}

func newPaperCloseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <id|instrument> <TP|SL|BE|NO_ACTION>",
		Short: "Close a simulated position",
		Long: `Close a position with a manual outcome.

Without --pips or --percent the configured defaults are used: TP and SL take
the default take profit and stop loss distances, BE and NO_ACTION book zero.`,
		Example: `  journal paper close EURUSD TP
  journal paper close pt_3f2a SL --pips 35
  journal paper close XAUUSD TP --percent 0.4`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := paperContext(cmd, app)
			defer cancel()

			outcome, err := parseOutcome(args[1])
			if err != nil {
				return err
			}
			p, err := app.Paper.Resolve(args[0])
			if err != nil {
				return err
			}

			var closed models.ClosedPosition
			switch {
			case cmd.Flags().Changed("percent"):
				pct, _ := cmd.Flags().GetFloat64("percent")
				pips, err := app.Paper.ConvertPercentToPips(p.ID, pct)
				if err != nil {
					return err
				}
				closed, err = app.Paper.CloseWithCustomPips(ctx, p.ID, outcome, &pips)
				if err != nil {
					return err
				}
			case cmd.Flags().Changed("pips"):
				pips, _ := cmd.Flags().GetFloat64("pips")
				if closed, err = app.Paper.CloseWithCustomPips(ctx, p.ID, outcome, &pips); err != nil {
					return err
				}
			default:
				if closed, err = app.Paper.CloseTrade(ctx, p.ID, outcome, nil); err != nil {
					return err
				}
			}

			if output.IsJSON() {
				return output.JSON(closed)
			}
			output.Printf("  %s %s  %s  %s\n", closed.Instrument, closed.Outcome.Label(),
				output.FormatPips(closed.Pips), closed.DurationLabel())
			if closed.Outcome.NeedsReview() {
				output.Info("Review it with: journal paper review %s", closed.ID)
			}
			return nil
		},
	}

	cmd.Flags().Float64("pips", 0, "custom pip result")
	cmd.Flags().Float64("percent", 0, "custom result as a percent move from entry")
	cmd.MarkFlagsMutuallyExclusive("pips", "percent")
	return cmd
}

// openRow is an open position as shown by status.
type openRow struct {
	ID           string                `json:"id"`
	Instrument   string                `json:"instrument"`
	Direction    models.PaperDirection `json:"direction"`
	Strategy     string                `json:"strategy"`
	EntryTime    time.Time             `json:"entryTime"`
	EntryPrice   float64               `json:"entryPrice"`
	WarningShown bool                  `json:"warningShown"`
	FloatingPips float64               `json:"floatingPips"`
	Elapsed      time.Duration         `json:"elapsed"`
	Remaining    time.Duration         `json:"remaining"`
}

func newPaperStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show open positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			_, cancel := paperContext(cmd, app)
			defer cancel()

			rows := openRows(app.Paper)
			if output.IsJSON() {
				return output.JSON(rows)
			}
			renderOpen(output, app.Paper, rows)
			return nil
		},
	}
}

func openRows(sim *paper.Simulator) []openRow {
	maxDuration := sim.Config().MaxDuration
	open := sim.OpenPositions()
	rows := make([]openRow, 0, len(open))
	for _, p := range open {
		floating, err := sim.FloatingPips(p.ID)
		if err != nil {
			// Closed by a concurrent tick.
			continue
		}
		elapsed := sim.Elapsed(p)
		rows = append(rows, openRow{
			ID:           p.ID,
			Instrument:   p.Instrument,
			Direction:    p.Direction,
			Strategy:     p.Strategy,
			EntryTime:    p.EntryTime,
			EntryPrice:   p.EntryPrice,
			WarningShown: p.WarningShown,
			FloatingPips: floating,
			Elapsed:      elapsed,
			Remaining:    maxDuration - elapsed,
		})
	}
	return rows
}

func renderOpen(output *Output, sim *paper.Simulator, rows []openRow) {
	output.Bold("Open Positions (%d/%d)", len(rows), sim.Config().MaxOpenTrades)
	if len(rows) == 0 {
		output.Dim("  No open positions.")
		return
	}
	table := NewTable(output, "ID", "Instrument", "Side", "Entry", "Strategy", "Floating", "Open", "Closes In")
	for _, r := range rows {
		remaining := FormatDuration(r.Remaining)
		if r.WarningShown {
			remaining = output.Yellow(remaining)
		}
		table.AddRow(
			TruncateString(r.ID, 11),
			r.Instrument,
			strings.ToUpper(string(r.Direction)),
			FormatInstrumentPrice(r.Instrument, r.EntryPrice),
			r.Strategy,
			output.FormatPips(r.FloatingPips),
			FormatDuration(r.Elapsed),
			remaining,
		)
	}
	table.Render()
}

func newPaperPendingCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List trades awaiting review",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			pending := app.Paper.PendingReviews()
			if output.IsJSON() {
				return output.JSON(pending)
			}
			if len(pending) == 0 {
				output.Info("No trades awaiting review.")
				return nil
			}
			table := NewTable(output, "#", "ID", "Instrument", "Outcome", "Pips", "Closed")
			for i, p := range pending {
				table.AddRow(fmt.Sprintf("%d", i+1), p.ID, p.Instrument, p.Outcome.Label(),
					output.FormatPips(p.Pips), FormatDateTime(p.ExitTime))
			}
			table.Render()
			output.Dim("Reviews are taken in order; review or skip #1 first.")
			return nil
		},
	}
}

func parseAnswer(s string) models.Answer {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true":
		return models.Yes
	case "n", "no", "false":
		return models.No
	case "":
		return models.Unanswered
	}
	// Left as is so review validation rejects it.
	return models.Answer(s)
}

func newPaperReviewCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review [id]",
		Short: "Submit the review of the oldest pending trade",
		Long: `Answer the post-trade questionnaire and move the trade into history.

Answers are yes or no and may be left out. The id defaults to the oldest
pending trade.`,
		Example: `  journal paper review --followed yes --fomo no --emotion confident
  journal paper review pt_3f2a --respected-sl no --notes "moved stop twice"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			id, err := pendingID(app, args)
			if err != nil {
				return err
			}

			answer := func(name string) models.Answer {
				v, _ := cmd.Flags().GetString(name)
				return parseAnswer(v)
			}
			emotion, _ := cmd.Flags().GetString("emotion")
			notes, _ := cmd.Flags().GetString("notes")

			closed, err := app.Paper.SubmitReview(ctx, id, models.TradeReview{
				FollowedStrategy: answer("followed"),
				WasFOMO:          answer("fomo"),
				WasEmotional:     answer("emotional"),
				CorrectEntry:     answer("correct-entry"),
				RespectedSL:      answer("respected-sl"),
				MovedSLTP:        answer("moved-sltp"),
				ExitedEarly:      answer("exited-early"),
				Emotion:          models.Emotion(strings.ToLower(emotion)),
				Notes:            notes,
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(closed)
			}
			output.Success("✓ Review saved for %s %s", closed.Instrument, closed.Outcome.Label())
			return nil
		},
	}

	cmd.Flags().String("followed", "", "followed the strategy (yes/no)")
	cmd.Flags().String("fomo", "", "entered out of FOMO (yes/no)")
	cmd.Flags().String("emotional", "", "traded emotionally (yes/no)")
	cmd.Flags().String("correct-entry", "", "entry matched the plan (yes/no)")
	cmd.Flags().String("respected-sl", "", "respected the stop loss (yes/no)")
	cmd.Flags().String("moved-sltp", "", "moved SL or TP (yes/no)")
	cmd.Flags().String("exited-early", "", "exited early (yes/no)")
	cmd.Flags().String("emotion", "", "confident, neutral, fear, greed, frustration or revenge")
	cmd.Flags().String("notes", "", "review notes")
	return cmd
}

func pendingID(app *App, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	head, ok := app.Paper.PendingReview()
	if !ok {
		return "", fmt.Errorf("no trade awaiting review")
	}
	return head.ID, nil
}

func newPaperSkipCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "skip [id]",
		Short: "Skip the review of the oldest pending trade",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			id, err := pendingID(app, args)
			if err != nil {
				return err
			}
			closed, err := app.Paper.SkipReview(ctx, id)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(closed)
			}
			output.Success("✓ %s %s added to history without review", closed.Instrument, closed.Outcome.Label())
			return nil
		},
	}
}

func newPaperHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show finalized paper trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			_, cancel := paperContext(cmd, app)
			defer cancel()

			limit, _ := cmd.Flags().GetInt("limit")
			history := app.Paper.History()
			if limit > 0 && len(history) > limit {
				history = history[len(history)-limit:]
			}

			if output.IsJSON() {
				return output.JSON(history)
			}
			if len(history) == 0 {
				output.Info("No paper trades yet.")
				return nil
			}
			table := NewTable(output, "Closed", "Instrument", "Side", "Strategy", "Outcome", "Pips", "Duration", "Reviewed")
			for i := len(history) - 1; i >= 0; i-- {
				p := history[i]
				reviewed := output.DimText("-")
				if p.Review != nil {
					reviewed = "yes"
				}
				table.AddRow(
					FormatDateTime(p.ExitTime),
					p.Instrument,
					strings.ToUpper(string(p.Direction)),
					p.Strategy,
					p.Outcome.Label(),
					output.FormatPips(p.Pips),
					p.DurationLabel(),
					reviewed,
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "number of trades to show (0 for all)")
	return cmd
}

func newPaperStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize paper trading results",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			_, cancel := paperContext(cmd, app)
			defer cancel()

			summary := app.Paper.Summary()
			periods := app.Paper.Periods()
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"summary": summary,
					"periods": periods,
				})
			}

			renderPaperSummary(output, "All Time", summary)
			output.Println()

			table := NewTable(output, "Period", "Trades", "Win Rate", "Pips", "Best", "Worst")
			for _, row := range []struct {
				name string
				s    stats.PaperSummary
			}{
				{"Today", periods.Daily},
				{"7 days", periods.Weekly},
				{"30 days", periods.Monthly},
			} {
				table.AddRow(row.name, fmt.Sprintf("%d", row.s.TotalTrades),
					fmt.Sprintf("%.1f%%", row.s.WinRate), output.FormatPips(row.s.TotalPips),
					output.FormatPips(row.s.BestTrade), output.FormatPips(row.s.WorstTrade))
			}
			table.Render()
			return nil
		},
	}
}

func renderPaperSummary(output *Output, title string, s stats.PaperSummary) {
	lines := []string{
		fmt.Sprintf("Trades:     %d (%d W / %d L)", s.TotalTrades, s.Wins, s.Losses),
		fmt.Sprintf("Win Rate:   %.1f%%", s.WinRate),
		fmt.Sprintf("Total Pips: %s", output.FormatPips(s.TotalPips)),
		fmt.Sprintf("Avg Pips:   %s", output.FormatPips(s.AvgPips)),
	}
	if len(s.FailingStrategies) > 0 {
		lines = append(lines, output.Red("Failing:    "+strings.Join(s.FailingStrategies, ", ")))
	}
	output.Box(title, lines)
}

func newPaperStrategiesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "List strategies and their results",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			list := app.Paper.Strategies()
			if output.IsJSON() {
				return output.JSON(list)
			}
			table := NewTable(output, "Strategy", "Trades", "Wins", "Losses", "Win Rate", "Pips")
			for _, s := range list {
				table.AddRow(s.Name, fmt.Sprintf("%d", s.Trades()), fmt.Sprintf("%d", s.Wins),
					fmt.Sprintf("%d", s.Losses), fmt.Sprintf("%.1f%%", s.WinRate()), output.FormatPips(s.TotalPips))
			}
			table.Render()
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			s, err := app.Paper.AddStrategy(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(s)
			}
			output.Success("✓ Strategy %q added", s.Name)
			return nil
		},
	})
	return cmd
}

func newPaperInstrumentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instruments",
		Short: "List tradable instruments",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			list := app.Paper.Instruments()
			if output.IsJSON() {
				return output.JSON(list)
			}
			output.Println(strings.Join(list, "  "))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <symbol>",
		Short: "Add a custom instrument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			symbol, err := app.Paper.AddInstrument(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"instrument": symbol})
			}
			output.Success("✓ Instrument %s added", symbol)
			return nil
		},
	})
	return cmd
}

func newPaperConvertCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "convert <id|instrument> <percent>",
		Short:   "Convert a percent move of an open position into pips",
		Example: `  journal paper convert EURUSD 0.25`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var pct float64
			if _, err := fmt.Sscanf(args[1], "%g", &pct); err != nil {
				return fmt.Errorf("invalid percent %q: %w", args[1], err)
			}
			p, err := app.Paper.Resolve(args[0])
			if err != nil {
				return err
			}
			pips, err := app.Paper.ConvertPercentToPips(p.ID, pct)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]float64{"percent": pct, "pips": pips})
			}
			output.Printf("  %s %.2f%% = %s\n", p.Instrument, pct, output.FormatPips(pips))
			return nil
		},
	}
}

func newPaperResetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear open positions, pending reviews and history",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				output.Warning("This removes all paper positions and history. Re-run with --yes to confirm.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			app.Paper.Reset(ctx)
			if output.IsJSON() {
				return output.JSON(map[string]bool{"reset": true})
			}
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "confirm the reset")
	return cmd
}

func newPaperExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export paper trading history",
		Example: `  journal paper export > paper.json
  journal paper export --format csv -o paper.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			path, _ := cmd.Flags().GetString("output")

			var w io.Writer = cmd.OutOrStdout()
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
				return app.Paper.Export(w)
			case "csv":
				return export.WritePaperCSV(w, app.Paper.History())
			default:
				return fmt.Errorf("unknown format %q (json or csv)", format)
			}
		},
	}
	cmd.Flags().String("format", "json", "json or csv")
	cmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	return cmd
}

func newPaperWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the auto-close timer with a live position view",
		Long: `Keep the simulator running: positions are warned before and closed at
the maximum duration while open positions are redrawn every refresh.

Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			refresh, _ := cmd.Flags().GetDuration("refresh")
			if refresh <= 0 {
				refresh = time.Second
			}

			overlay := notify.NewNotificationOverlay(3, 10*time.Second)
			app.Notifier.AddChannel(overlay)
			if app.Terminal != nil {
				// The overlay replaces line-by-line notification output.
				app.Terminal.SetEnabled(false)
			}

			done := make(chan error, 1)
			go func() { done <- app.Paper.Run(ctx) }()

			ticker := time.NewTicker(refresh)
			defer ticker.Stop()
			for {
				if output.IsJSON() {
					if err := output.JSON(openRows(app.Paper)); err != nil {
						return err
					}
				} else {
					output.Printf("\033[H\033[2J")
					output.Dim("%s  refresh %s  (Ctrl+C to quit)", FormatTime(app.Paper.Now()), refresh)
					output.Println()
					renderOpen(output, app.Paper, openRows(app.Paper))
					if n := len(app.Paper.PendingReviews()); n > 0 {
						output.Warning("%d trade(s) awaiting review", n)
					}
					if toast := overlay.Render(output.colorEnabled); toast != "" {
						output.Println()
						output.Printf("%s\n", toast)
					}
				}

				select {
				case err := <-done:
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().Duration("refresh", 2*time.Second, "screen refresh interval")
	return cmd
}
