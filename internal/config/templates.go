package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trading Journal Configuration

[journal]
# SQLite database file. Empty means journal.db next to this file.
db_path = ""
# Starting account balance used for balance and return statistics
initial_balance = 10000.0
# Currency code for display
currency = "USD"

[paper]
# Maximum simultaneously open paper positions
max_open_trades = 5
# Pips credited for a take-profit close without a custom value
default_tp_pips = 100.0
# Pips debited for a stop-loss close without a custom value
default_sl_pips = 50.0
# Positions are closed with NO_ACTION after this long
max_duration = "8h"
# A one-time warning is sent after this long
warning_after = "7h30m"
# How often open positions are checked
tick_interval = "1s"
# Random price variation as a fraction of the base price
price_jitter = 0.0005

[logging]
# Log level: debug, info, warn, error
level = "info"
# Log to the console (stderr)
console = false
# Log to a rotated file under the config directory
file = true
max_size_mb = 10
max_backups = 3
max_age_days = 30

[notifications]
# Enable terminal notifications
enabled = true
# Notification level: all, trades_only, errors_only
level = "all"
# Colored output
color = true
# Ring the terminal bell on warnings
bell = false
`

const envTemplate = `# Environment overrides for the trading journal
# JOURNAL_DB_PATH=
# JOURNAL_INITIAL_BALANCE=10000
# JOURNAL_LOG_LEVEL=info
`

func createTemplateConfig(configDir, name string) (string, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}

	envPath := filepath.Join(configDir, ".env")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		if err := os.WriteFile(envPath, []byte(envTemplate), 0600); err != nil {
			return "", fmt.Errorf("writing env template: %w", err)
		}
	}

	return path, nil
}
