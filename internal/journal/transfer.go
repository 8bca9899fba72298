package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
)

// ExportVersion identifies the export document format.
const ExportVersion = "1.0.0"

type exportDocument struct {
	Document
	ExportDate    time.Time `json:"exportDate"`
	ExportVersion string    `json:"exportVersion"`
}

// Export writes the whole document as indented JSON.
func (j *Journal) Export(w io.Writer) error {
	j.mu.RLock()
	doc := exportDocument{
		Document:      j.doc,
		ExportDate:    j.now(),
		ExportVersion: ExportVersion,
	}
	doc.Trades = append([]models.Trade{}, j.doc.Trades...)
	j.mu.RUnlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return apperrors.Wrap(err, "failed to encode journal export")
	}
	return nil
}

var requiredImportFields = []string{"symbol", "date", "pnl"}

// Import replaces the trades, and the settings when present, with those in
// r. The current document is backed up first. Every trade must carry
// symbol, date and pnl; nothing changes when any is missing.
func (j *Journal) Import(ctx context.Context, r io.Reader) (int, error) {
	var raw struct {
		Trades   []map[string]json.RawMessage `json:"trades"`
		Settings *models.Settings             `json:"settings"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return 0, apperrors.NewDataError("import", "", "invalid JSON", apperrors.Wrap(apperrors.ErrInvalidImportData, err.Error()))
	}
	if raw.Trades == nil {
		return 0, apperrors.NewDataError("import", "trades", "trades array is required", apperrors.ErrInvalidImportData)
	}

	trades := make([]models.Trade, 0, len(raw.Trades))
	for i, fields := range raw.Trades {
		for _, name := range requiredImportFields {
			if _, ok := fields[name]; !ok {
				return 0, apperrors.NewDataError("import", fmt.Sprintf("trades[%d]", i),
					fmt.Sprintf("missing %s", name), apperrors.ErrInvalidImportData)
			}
		}
		encoded, err := json.Marshal(fields)
		if err != nil {
			return 0, apperrors.Wrap(err, "failed to re-encode imported trade")
		}
		var t models.Trade
		if err := json.Unmarshal(encoded, &t); err != nil {
			return 0, apperrors.NewDataError("import", fmt.Sprintf("trades[%d]", i),
				"malformed trade", apperrors.Wrap(apperrors.ErrInvalidImportData, err.Error()))
		}
		normalize(&t)
		if t.ID == "" {
			t.ID = newTradeID()
		}
		trades = append(trades, t)
	}

	if _, err := j.Backup(ctx); err != nil {
		return 0, apperrors.Wrap(err, "backup before import failed")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.doc.Trades = trades
	if raw.Settings != nil && raw.Settings.Currency != "" {
		j.doc.Settings = *raw.Settings
		if j.doc.Settings.CustomSignals == nil {
			j.doc.Settings.CustomSignals = []string{}
		}
	}
	j.logger.Info().Int("trades", len(trades)).Msg("Journal imported")
	return len(trades), j.saveLocked(ctx)
}
