package journal

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"trading-journal/internal/models"
)

// Period selects a date window of trades.
type Period string

const (
	PeriodAll     Period = "all"
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodCustom  Period = "custom"
)

// SortField selects the ordering of filtered trades.
type SortField string

const (
	SortByDate   SortField = "date"
	SortByPnL    SortField = "pnl"
	SortBySymbol SortField = "symbol"
)

// Filter narrows and orders the trade list.
type Filter struct {
	Period Period
	// From and To bound a custom period, inclusive. Either may be zero.
	From time.Time
	To   time.Time
	// Query matches symbol, direction or pnl, case insensitive.
	Query  string
	SortBy SortField
	Desc   bool
}

// ParsePeriod maps a user supplied name to a Period, defaulting to all.
func ParsePeriod(name string) Period {
	switch p := Period(strings.ToLower(strings.TrimSpace(name))); p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodCustom:
		return p
	}
	return PeriodAll
}

// Filter returns the trades matching f.
func (j *Journal) Filter(f Filter) []models.Trade {
	return ApplyFilter(j.Trades(), f, j.now())
}

// ApplyFilter filters and sorts trades as of now. Dates are compared as
// calendar days.
func ApplyFilter(trades []models.Trade, f Filter, now time.Time) []models.Trade {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var from, to string
	switch f.Period {
	case PeriodDaily:
		from = today.Format(models.DateLayout)
	case PeriodWeekly:
		from = today.AddDate(0, 0, -7).Format(models.DateLayout)
	case PeriodMonthly:
		from = today.AddDate(0, -1, 0).Format(models.DateLayout)
	case PeriodCustom:
		if !f.From.IsZero() {
			from = f.From.Format(models.DateLayout)
		}
		if !f.To.IsZero() {
			to = f.To.Format(models.DateLayout)
		}
	}
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		day := t.DayKey()
		if from != "" && day < from {
			continue
		}
		if to != "" && day > to {
			continue
		}
		if query != "" && !matches(t, query) {
			continue
		}
		out = append(out, t)
	}

	less := lessFunc(f.SortBy)
	sort.SliceStable(out, func(a, b int) bool {
		if f.Desc {
			return less(out[b], out[a])
		}
		return less(out[a], out[b])
	})
	return out
}

func matches(t models.Trade, query string) bool {
	return strings.Contains(strings.ToLower(t.Symbol), query) ||
		strings.Contains(strings.ToLower(string(t.Direction)), query) ||
		strings.Contains(strconv.FormatFloat(t.PnL, 'f', -1, 64), query)
}

func lessFunc(field SortField) func(a, b models.Trade) bool {
	switch field {
	case SortByPnL:
		return func(a, b models.Trade) bool { return a.PnL < b.PnL }
	case SortBySymbol:
		return func(a, b models.Trade) bool { return a.Symbol < b.Symbol }
	default:
		return func(a, b models.Trade) bool { return a.DayKey() < b.DayKey() }
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
