// Package export writes journal and paper trading data as CSV.
package export

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/internal/stats"
)

// TradeRow is one journal trade in CSV form.
type TradeRow struct {
	Date        string `csv:"Date"`
	EntryTime   string `csv:"Entry Time"`
	ExitTime    string `csv:"Exit Time"`
	Symbol      string `csv:"Symbol"`
	Direction   string `csv:"Direction"`
	Timeframe   string `csv:"Timeframe"`
	EntryPrice  string `csv:"Entry Price"`
	ExitPrice   string `csv:"Exit Price"`
	StopLoss    string `csv:"Stop Loss"`
	TakeProfit  string `csv:"Take Profit"`
	Volume      string `csv:"Volume"`
	PnL         string `csv:"P&L"`
	Signals     string `csv:"Signals"`
	EntryReason string `csv:"Entry Reason"`
	Lessons     string `csv:"Lessons"`
}

// PaperRow is one finalized paper position in CSV form.
type PaperRow struct {
	ID         string `csv:"ID"`
	Instrument string `csv:"Instrument"`
	Direction  string `csv:"Direction"`
	Strategy   string `csv:"Strategy"`
	EntryTime  string `csv:"Entry Time"`
	ExitTime   string `csv:"Exit Time"`
	Duration   string `csv:"Duration"`
	EntryPrice string `csv:"Entry Price"`
	ExitPrice  string `csv:"Exit Price"`
	Outcome    string `csv:"Outcome"`
	Pips       string `csv:"Pips"`
	Reviewed   string `csv:"Reviewed"`
	Emotion    string `csv:"Emotion"`
	Notes      string `csv:"Notes"`
}

// fixed renders v rounded to places decimals. Non-finite values render as 0.
func fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

func money(v float64) string { return fixed(v, 2) }

func price(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TradeRows converts journal trades to CSV rows.
func TradeRows(trades []models.Trade) []*TradeRow {
	rows := make([]*TradeRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, &TradeRow{
			Date:        t.DayKey(),
			EntryTime:   t.EntryTime,
			ExitTime:    t.ExitTime,
			Symbol:      t.Symbol,
			Direction:   string(t.Direction),
			Timeframe:   t.Timeframe,
			EntryPrice:  price(t.EntryPrice),
			ExitPrice:   price(t.ExitPrice),
			StopLoss:    price(t.StopLoss),
			TakeProfit:  price(t.TakeProfit),
			Volume:      price(t.Volume),
			PnL:         money(t.PnL),
			Signals:     strings.Join(t.Signals, ";"),
			EntryReason: t.EntryReason,
			Lessons:     t.Lessons,
		})
	}
	return rows
}

// WriteTradesCSV writes the trades followed by a blank line and a summary
// block built from s.
func WriteTradesCSV(w io.Writer, trades []models.Trade, s stats.Stats) error {
	rows := TradeRows(trades)
	if len(rows) == 0 {
		rows = append(rows, &TradeRow{})
		if err := writeHeaderOnly(w, rows); err != nil {
			return err
		}
	} else if err := gocsv.Marshal(rows, w); err != nil {
		return apperrors.Wrap(err, "failed to write trades CSV")
	}

	summary := [][]string{
		{},
		{"Summary"},
		{"Total Trades", strconv.Itoa(s.TotalTrades)},
		{"Wins", strconv.Itoa(s.Wins)},
		{"Losses", strconv.Itoa(s.Losses)},
		{"Win Rate %", money(s.WinRatePercent())},
		{"Total P&L", money(s.TotalPnL)},
		{"Profit Factor", money(s.ProfitFactor)},
		{"Max Drawdown %", money(s.MaxDrawdown)},
		{"Sharpe Ratio", money(s.SharpeRatio)},
		{"Expectancy", money(s.Expectancy)},
		{"Initial Balance", money(s.InitialBalance)},
		{"Current Balance", money(s.CurrentBalance)},
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(summary); err != nil {
		return apperrors.Wrap(err, "failed to write CSV summary")
	}
	return nil
}

// writeHeaderOnly writes the CSV header of an empty export.
func writeHeaderOnly(w io.Writer, placeholder []*TradeRow) error {
	var buf strings.Builder
	if err := gocsv.Marshal(placeholder, &buf); err != nil {
		return apperrors.Wrap(err, "failed to write trades CSV")
	}
	header := buf.String()
	if i := strings.IndexByte(header, '\n'); i >= 0 {
		header = header[:i+1]
	}
	_, err := io.WriteString(w, header)
	return err
}

// PaperRows converts closed paper positions to CSV rows.
func PaperRows(closed []models.ClosedPosition) []*PaperRow {
	rows := make([]*PaperRow, 0, len(closed))
	for _, p := range closed {
		row := &PaperRow{
			ID:         p.ID,
			Instrument: p.Instrument,
			Direction:  string(p.Direction),
			Strategy:   p.Strategy,
			EntryTime:  p.EntryTime.Format(time.RFC3339),
			ExitTime:   p.ExitTime.Format(time.RFC3339),
			Duration:   p.DurationLabel(),
			EntryPrice: price(p.EntryPrice),
			ExitPrice:  price(p.ExitPrice),
			Outcome:    p.Outcome.Label(),
			Pips:       fixed(p.Pips, 1),
			Reviewed:   "no",
			Notes:      p.Notes,
		}
		if p.Review != nil {
			row.Reviewed = "yes"
			row.Emotion = string(p.Review.Emotion)
		}
		rows = append(rows, row)
	}
	return rows
}

// WritePaperCSV writes finalized paper positions.
func WritePaperCSV(w io.Writer, closed []models.ClosedPosition) error {
	rows := PaperRows(closed)
	if err := gocsv.Marshal(rows, w); err != nil {
		return apperrors.Wrap(err, "failed to write paper trades CSV")
	}
	return nil
}
