package cli

import (
	"github.com/spf13/cobra"
)

// addHelpCommands adds help and documentation commands.
func addHelpCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newQuickstartCmd(app))
}

func newQuickstartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quickstart",
		Short: "New user guide",
		Long:  "Step-by-step guide for new users.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Trading Journal - Quick Start Guide")
			output.Println()

			steps := []struct {
				title string
				desc  string
				cmd   string
			}{
				{
					title: "Set Your Account",
					desc:  "Starting balance and currency drive the balance statistics.",
					cmd:   "journal stats settings --balance 10000 --currency USD",
				},
				{
					title: "Record a Trade",
					desc:  "Journal a closed trade with its P&L and signal tags.",
					cmd:   "journal trade add EURUSD --pnl 125.50 --signals breakout,trend",
				},
				{
					title: "Review Performance",
					desc:  "Win rate, profit factor, drawdown and per-signal results.",
					cmd:   "journal stats --period monthly --signals",
				},
				{
					title: "Open a Paper Trade",
					desc:  "Practice on simulated prices; up to five positions at once.",
					cmd:   "journal paper open XAUUSD --strategy Scalping",
				},
				{
					title: "Close and Review",
					desc:  "TP and SL closes wait for a short questionnaire.",
					cmd:   "journal paper close XAUUSD TP && journal paper review --followed yes",
				},
				{
					title: "Keep the Timer Running",
					desc:  "Positions close automatically after eight hours.",
					cmd:   "journal paper watch",
				},
			}

			for i, s := range steps {
				output.Printf("→ Step %d: %s\n", i+1, s.title)
				output.Printf("  %s\n", s.desc)
				output.Printf("  %s\n\n", output.DimText(s.cmd))
			}

			output.Bold("Files")
			output.Println()
			output.Printf("  config.toml  - journal, paper trading and logging settings\n")
			output.Printf("  .env         - environment overrides (JOURNAL_*)\n")
			output.Println()

			output.Bold("Getting Help")
			output.Println()
			output.Printf("  %s - Help for any command\n", output.Yellow("journal help <command>"))
			return nil
		},
	}
}
