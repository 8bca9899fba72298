package paper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/market"
	"trading-journal/internal/models"
	"trading-journal/internal/notify"
	"trading-journal/internal/stats"
)

// Strategies returns the strategy list in creation order.
func (s *Simulator) Strategies() []models.Strategy {
	s.lock()
	defer s.unlock()
	return append([]models.Strategy(nil), s.state.Strategies...)
}

func (s *Simulator) strategyIndex(name string) int {
	for i, st := range s.state.Strategies {
		if st.Name == name {
			return i
		}
	}
	return -1
}

// AddStrategy creates an empty strategy. Names are case sensitive.
func (s *Simulator) AddStrategy(ctx context.Context, name string) (models.Strategy, error) {
	s.lock()
	defer s.unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Strategy{}, s.reject(ctx, notify.SeverityError, "", "", "add_strategy",
			apperrors.ErrStrategyRequired, "Please enter a strategy name")
	}
	if s.strategyIndex(name) >= 0 {
		return models.Strategy{}, s.reject(ctx, notify.SeverityWarning, "", "", "add_strategy",
			apperrors.ErrStrategyExists, "Strategy already exists")
	}

	st := models.Strategy{Name: name}
	s.state.Strategies = append(s.state.Strategies, st)
	s.dirty = true
	s.persistStrategies(ctx)
	s.notify(ctx, notify.KindInfo, notify.SeveritySuccess, "", fmt.Sprintf("Strategy %q added", name))
	return st, nil
}

// Instruments returns the built-in catalogue followed by custom instruments.
func (s *Simulator) Instruments() []string {
	s.lock()
	defer s.unlock()
	out := append([]string(nil), market.DefaultInstruments...)
	return append(out, s.state.CustomInstruments...)
}

// AddInstrument adds an uppercased symbol to the custom catalogue.
func (s *Simulator) AddInstrument(ctx context.Context, symbol string) (string, error) {
	s.lock()
	defer s.unlock()

	symbol = market.NormalizeSymbol(symbol)
	if symbol == "" {
		return "", s.reject(ctx, notify.SeverityError, "", "", "add_instrument",
			apperrors.ErrInstrumentRequired, "Please enter an instrument symbol")
	}
	for _, existing := range market.DefaultInstruments {
		if existing == symbol {
			return "", s.reject(ctx, notify.SeverityWarning, "", symbol, "add_instrument",
				apperrors.ErrInstrumentExists, "Instrument already exists")
		}
	}
	for _, existing := range s.state.CustomInstruments {
		if existing == symbol {
			return "", s.reject(ctx, notify.SeverityWarning, "", symbol, "add_instrument",
				apperrors.ErrInstrumentExists, "Instrument already exists")
		}
	}

	s.state.CustomInstruments = append(s.state.CustomInstruments, symbol)
	s.dirty = true
	s.persistInstruments(ctx)
	s.notify(ctx, notify.KindInfo, notify.SeveritySuccess, symbol, fmt.Sprintf("Instrument %s added", symbol))
	return symbol, nil
}

// PaperStats is the headline of the paper trading history.
type PaperStats struct {
	TotalTrades int     `json:"totalTrades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	TotalPips   float64 `json:"totalPips"`
	WinRate     float64 `json:"winRate"`
}

// Stats summarizes finalized positions. Break-even counts as a win.
func (s *Simulator) Stats() PaperStats {
	s.lock()
	defer s.unlock()

	var ps PaperStats
	for _, p := range s.state.History {
		ps.TotalTrades++
		if p.IsWin() {
			ps.Wins++
		} else {
			ps.Losses++
		}
		ps.TotalPips += p.Pips
	}
	if ps.TotalTrades > 0 {
		ps.WinRate = float64(ps.Wins) / float64(ps.TotalTrades) * 100
	}
	return ps
}

// Summary returns the full analysis of the finalized history.
func (s *Simulator) Summary() stats.PaperSummary {
	return stats.SummarizePaper(s.History())
}

// Periods returns the daily, weekly and monthly summaries as of now.
func (s *Simulator) Periods() stats.PaperPeriodSummaries {
	return stats.PaperPeriods(s.History(), s.clock.Now())
}

type exportDocument struct {
	PaperTrades []models.ClosedPosition `json:"paperTrades"`
	Strategies  []models.Strategy       `json:"strategies"`
	ExportDate  time.Time               `json:"exportDate"`
}

// Export writes the history and strategies as an indented JSON document.
func (s *Simulator) Export(w io.Writer) error {
	s.lock()
	doc := exportDocument{
		PaperTrades: append([]models.ClosedPosition{}, s.state.History...),
		Strategies:  append([]models.Strategy{}, s.state.Strategies...),
		ExportDate:  s.clock.Now(),
	}
	s.unlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return apperrors.Wrap(err, "failed to encode paper export")
	}
	return nil
}
