// Package integration provides end-to-end tests that drive the CLI against a
// real SQLite database.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trading-journal/internal/cli"
	"trading-journal/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Journal: config.JournalConfig{
			DBPath:         filepath.Join(dir, "journal.db"),
			InitialBalance: 10000,
			Currency:       "USD",
		},
		Paper: config.DefaultPaperConfig(),
		Notifications: config.NotificationConfig{
			Enabled: true,
			Level:   "all",
		},
		Dir: dir,
	}
}

// run executes one CLI invocation in a fresh process-like App, so every call
// reloads state from the database.
func run(t *testing.T, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app := &cli.App{Config: cfg, Logger: zerolog.Nop()}
	root := cli.NewRootCmdWithApp(app)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err != nil {
		_ = app.Close()
	}
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, cfg *config.Config, args ...string) string {
	t.Helper()
	out, _, err := run(t, cfg, args...)
	if err != nil {
		t.Fatalf("journal %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func decode(t *testing.T, out string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
}

// TestEndToEndWorkflow records trades and reads the statistics back.
func TestEndToEndWorkflow(t *testing.T) {
	cfg := testConfig(t)

	mustRun(t, cfg, "trade", "add", "eurusd", "--pnl", "100", "--date", "2024-05-01", "--signals", "breakout,trend")
	mustRun(t, cfg, "trade", "add", "GBPUSD", "--pnl=-50", "--date", "2024-05-02", "--signals", "breakout")
	mustRun(t, cfg, "trade", "add", "XAUUSD", "--pnl", "200", "--date", "2024-05-03", "--direction", "short")

	var trades []map[string]interface{}
	decode(t, mustRun(t, cfg, "--json", "trade", "list", "--sort", "pnl"), &trades)
	if len(trades) != 3 {
		t.Fatalf("Expected 3 trades, got %d", len(trades))
	}
	if trades[0]["symbol"] != "XAUUSD" {
		t.Errorf("Expected largest P&L first, got %v", trades[0]["symbol"])
	}
	if trades[2]["symbol"] != "GBPUSD" {
		t.Errorf("Expected smallest P&L last, got %v", trades[2]["symbol"])
	}

	var s struct {
		TotalTrades    int                               `json:"totalTrades"`
		Wins           int                               `json:"wins"`
		Losses         int                               `json:"losses"`
		TotalPnL       float64                           `json:"totalPnL"`
		ProfitFactor   float64                           `json:"profitFactor"`
		CurrentBalance float64                           `json:"currentBalance"`
		Signals        map[string]map[string]interface{} `json:"signals"`
	}
	decode(t, mustRun(t, cfg, "--json", "stats"), &s)

	if s.TotalTrades != 3 || s.Wins != 2 || s.Losses != 1 {
		t.Errorf("Unexpected counts: %+v", s)
	}
	if s.TotalPnL != 250 {
		t.Errorf("Expected total P&L 250, got %v", s.TotalPnL)
	}
	if s.ProfitFactor != 6 {
		t.Errorf("Expected profit factor 6, got %v", s.ProfitFactor)
	}
	if s.CurrentBalance != 10250 {
		t.Errorf("Expected balance 10250, got %v", s.CurrentBalance)
	}
	if got := s.Signals["breakout"]["count"]; got != float64(2) {
		t.Errorf("Expected breakout on 2 trades, got %v", got)
	}
}

// TestTradeValidation checks that invalid trades are rejected and not stored.
func TestTradeValidation(t *testing.T) {
	cfg := testConfig(t)

	if _, _, err := run(t, cfg, "trade", "add", "EURUSD", "--pnl", "10", "--date", "05/01/2024"); err == nil {
		t.Error("Expected malformed date to be rejected")
	}
	if _, _, err := run(t, cfg, "trade", "add", "EURUSD"); err == nil {
		t.Error("Expected missing --pnl to be rejected")
	}

	var trades []map[string]interface{}
	decode(t, mustRun(t, cfg, "--json", "trade", "list"), &trades)
	if len(trades) != 0 {
		t.Errorf("Expected no stored trades, got %d", len(trades))
	}
}

// TestPaperTradingSimulation opens, closes and reviews a simulated trade.
func TestPaperTradingSimulation(t *testing.T) {
	cfg := testConfig(t)

	out, stderr, err := run(t, cfg, "paper", "open", "EURUSD", "--strategy", "Scalping")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !strings.Contains(out, "EURUSD") {
		t.Errorf("Expected open output to name the instrument, got %q", out)
	}
	if !strings.Contains(stderr, "BUY opened on EURUSD") {
		t.Errorf("Expected open notification, got %q", stderr)
	}

	// One position per instrument.
	if _, stderr, err := run(t, cfg, "paper", "open", "eurusd", "--strategy", "Scalping"); err == nil {
		t.Error("Expected duplicate instrument to be rejected")
	} else if !strings.Contains(stderr, "already have an active trade on EURUSD") {
		t.Errorf("Expected rejection notification, got %q", stderr)
	}

	// Unknown strategy.
	if _, _, err := run(t, cfg, "paper", "open", "GBPUSD", "--strategy", "Nope"); err == nil {
		t.Error("Expected unknown strategy to be rejected")
	}

	var open []map[string]interface{}
	decode(t, mustRun(t, cfg, "--json", "paper", "status"), &open)
	if len(open) != 1 {
		t.Fatalf("Expected 1 open position, got %d", len(open))
	}
	id := open[0]["id"].(string)

	var closed map[string]interface{}
	decode(t, mustRun(t, cfg, "--json", "paper", "close", "EURUSD", "TP"), &closed)
	if closed["id"] != id || closed["pips"] != float64(100) {
		t.Errorf("Unexpected close result: %v", closed)
	}

	var history []map[string]interface{}
	decode(t, mustRun(t, cfg, "--json", "paper", "history"), &history)
	if len(history) != 0 {
		t.Fatalf("Expected TP close to wait for review, history has %d", len(history))
	}

	var pending []map[string]interface{}
	decode(t, mustRun(t, cfg, "--json", "paper", "pending"), &pending)
	if len(pending) != 1 || pending[0]["id"] != id {
		t.Fatalf("Expected %s pending, got %v", id, pending)
	}

	if _, _, err := run(t, cfg, "paper", "review", "--followed", "maybe"); err == nil {
		t.Error("Expected invalid answer to be rejected")
	}
	mustRun(t, cfg, "paper", "review", "--followed", "yes", "--fomo", "no", "--emotion", "confident")

	decode(t, mustRun(t, cfg, "--json", "paper", "history"), &history)
	if len(history) != 1 {
		t.Fatalf("Expected 1 finalized trade, got %d", len(history))
	}
	review, ok := history[0]["review"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected review to be attached, got %v", history[0])
	}
	if review["followedStrategy"] != "yes" || review["wasEmotional"] != nil {
		t.Errorf("Unexpected review: %v", review)
	}

	var strategies []map[string]interface{}
	decode(t, mustRun(t, cfg, "--json", "paper", "strategies"), &strategies)
	for _, s := range strategies {
		if s["name"] == "Scalping" && (s["wins"] != float64(1) || s["totalPips"] != float64(100)) {
			t.Errorf("Expected Scalping to record the win, got %v", s)
		}
	}
}

// TestPaperCapacity checks the open position limit across invocations.
func TestPaperCapacity(t *testing.T) {
	cfg := testConfig(t)

	for _, inst := range []string{"EURUSD", "GBPUSD", "USDJPY", "XAUUSD", "BTCUSD"} {
		mustRun(t, cfg, "paper", "open", inst, "--strategy", "Day Trading")
	}
	if _, _, err := run(t, cfg, "paper", "open", "ETHUSD", "--strategy", "Day Trading"); err == nil {
		t.Error("Expected sixth position to be rejected")
	}

	mustRun(t, cfg, "paper", "close", "USDJPY", "BE")
	mustRun(t, cfg, "paper", "open", "ETHUSD", "--strategy", "Day Trading")

	var open []map[string]interface{}
	decode(t, mustRun(t, cfg, "--json", "paper", "status"), &open)
	if len(open) != 5 {
		t.Errorf("Expected 5 open positions, got %d", len(open))
	}
}

// TestImportExportRoundTrip moves a journal between two databases.
func TestImportExportRoundTrip(t *testing.T) {
	src := testConfig(t)
	mustRun(t, src, "trade", "add", "EURUSD", "--pnl", "12.345", "--date", "2024-04-01")
	mustRun(t, src, "trade", "add", "US30", "--pnl", "-3", "--date", "2024-04-02", "--signals", "news")

	path := filepath.Join(src.Dir, "export.json")
	mustRun(t, src, "trade", "export", "-o", path)

	dst := testConfig(t)
	mustRun(t, dst, "trade", "add", "GBPUSD", "--pnl", "1", "--date", "2024-01-01")
	mustRun(t, dst, "trade", "import", path)

	var trades []map[string]interface{}
	decode(t, mustRun(t, dst, "--json", "trade", "list", "--asc"), &trades)
	if len(trades) != 2 {
		t.Fatalf("Expected import to replace trades, got %d", len(trades))
	}
	if trades[0]["pnl"] != 12.35 {
		t.Errorf("Expected P&L rounded to cents, got %v", trades[0]["pnl"])
	}

	var backups []string
	decode(t, mustRun(t, dst, "--json", "trade", "backup", "--list"), &backups)
	if len(backups) != 1 {
		t.Errorf("Expected import to create one backup, got %v", backups)
	}

	bad := filepath.Join(src.Dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"trades":[{"symbol":"EURUSD"}]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := run(t, dst, "trade", "import", bad); err == nil {
		t.Error("Expected import without date and pnl to fail")
	}
}

// TestPaperCSVExport checks the CSV export of finalized trades.
func TestPaperCSVExport(t *testing.T) {
	cfg := testConfig(t)
	mustRun(t, cfg, "paper", "open", "GBPUSD", "--strategy", "Swing Trading", "--direction", "sell")
	mustRun(t, cfg, "paper", "close", "GBPUSD", "BE")

	out := mustRun(t, cfg, "paper", "export", "--format", "csv")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header and one row, got %q", out)
	}
	if !strings.Contains(lines[1], "GBPUSD") || !strings.Contains(lines[1], "Swing Trading") {
		t.Errorf("Unexpected CSV row: %q", lines[1])
	}
}
