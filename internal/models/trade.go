package models

import "time"

// DateLayout is the calendar date format used by journal trades.
const DateLayout = "2006-01-02"

// Direction represents the side of a journaled trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Trade represents a closed, journaled trade.
type Trade struct {
	ID          string    `json:"id"`
	Date        string    `json:"date" validate:"required,datetime=2006-01-02"`
	EntryTime   string    `json:"entryTime,omitempty"`
	ExitTime    string    `json:"exitTime,omitempty"`
	Symbol      string    `json:"symbol" validate:"required"`
	Timeframe   string    `json:"timeframe,omitempty"`
	Direction   Direction `json:"direction" validate:"omitempty,oneof=long short"`
	EntryPrice  float64   `json:"entryPrice"`
	ExitPrice   float64   `json:"exitPrice"`
	StopLoss    float64   `json:"stopLoss"`
	TakeProfit  float64   `json:"takeProfit"`
	Volume      float64   `json:"volume"`
	PnL         float64   `json:"pnl"`
	Signals     []string  `json:"signals"`
	EntryReason string    `json:"entryReason,omitempty"`
	Lessons     string    `json:"lessons,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks the trade's required fields and numeric values.
func (t Trade) Validate() error {
	if err := Validate(t); err != nil {
		return err
	}
	return checkFinite(map[string]float64{
		"EntryPrice": t.EntryPrice,
		"ExitPrice":  t.ExitPrice,
		"StopLoss":   t.StopLoss,
		"TakeProfit": t.TakeProfit,
		"Volume":     t.Volume,
		"PnL":        t.PnL,
	})
}

// IsWin reports whether the trade made money.
func (t Trade) IsWin() bool { return t.PnL > 0 }

// Day parses the trade date. The zero time is returned for malformed dates.
func (t Trade) Day() time.Time {
	d, err := time.Parse(DateLayout, dayPart(t.Date))
	if err != nil {
		return time.Time{}
	}
	return d
}

// DayKey returns the YYYY-MM-DD bucket of the trade.
func (t Trade) DayKey() string { return dayPart(t.Date) }

func dayPart(date string) string {
	if len(date) >= len(DateLayout) {
		return date[:len(DateLayout)]
	}
	return date
}

// Settings holds account level journal configuration.
type Settings struct {
	InitialBalance float64  `json:"initialBalance"`
	Currency       string   `json:"currency"`
	Theme          string   `json:"theme"`
	CustomSignals  []string `json:"customSignals"`
}

// DefaultSettings returns the settings of a fresh journal.
func DefaultSettings() Settings {
	return Settings{
		InitialBalance: 10000,
		Currency:       "USD",
		Theme:          "dark",
		CustomSignals:  []string{},
	}
}
