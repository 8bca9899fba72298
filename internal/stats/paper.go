package stats

import (
	"sort"
	"time"

	"trading-journal/internal/models"
)

// Thresholds below which a strategy is reported as failing.
const (
	FailingWinRate = 30.0
	FailingPips    = -50.0
)

// PaperSummary aggregates closed paper positions. Break-even counts as a win.
type PaperSummary struct {
	TotalTrades int     `json:"totalTrades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"winRate"` // percent
	TotalPips   float64 `json:"totalPips"`
	AvgPips     float64 `json:"avgPips"`
	BestTrade   float64 `json:"bestTrade"`
	WorstTrade  float64 `json:"worstTrade"`

	Strategies        []StrategySummary `json:"strategies"`
	FailingStrategies []string          `json:"failingStrategies"`
}

// StrategySummary is the per-strategy slice of a PaperSummary.
type StrategySummary struct {
	Name   string  `json:"name"`
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	Pips   float64 `json:"pips"`
}

// WinRate returns the strategy's win percentage.
func (s StrategySummary) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades) * 100
}

// Failing reports whether the strategy is losing badly enough to flag.
func (s StrategySummary) Failing() bool {
	return s.WinRate() < FailingWinRate || s.Pips < FailingPips
}

// UnassignedStrategy labels positions persisted without a strategy.
const UnassignedStrategy = "Unassigned"

// SummarizePaper aggregates closed paper positions.
func SummarizePaper(closed []models.ClosedPosition) PaperSummary {
	sum := PaperSummary{
		Strategies:        []StrategySummary{},
		FailingStrategies: []string{},
	}
	if len(closed) == 0 {
		return sum
	}

	byStrategy := map[string]*StrategySummary{}
	sum.TotalTrades = len(closed)
	sum.BestTrade = finite(closed[0].Pips)
	sum.WorstTrade = sum.BestTrade

	for _, p := range closed {
		pips := finite(p.Pips)
		win := finite(p.PnL) >= 0

		if win {
			sum.Wins++
		} else {
			sum.Losses++
		}
		sum.TotalPips += pips
		if pips > sum.BestTrade {
			sum.BestTrade = pips
		}
		if pips < sum.WorstTrade {
			sum.WorstTrade = pips
		}

		name := p.Strategy
		if name == "" {
			name = UnassignedStrategy
		}
		st, ok := byStrategy[name]
		if !ok {
			st = &StrategySummary{Name: name}
			byStrategy[name] = st
		}
		st.Trades++
		if win {
			st.Wins++
		} else {
			st.Losses++
		}
		st.Pips += pips
	}

	sum.WinRate = float64(sum.Wins) / float64(sum.TotalTrades) * 100
	sum.AvgPips = sum.TotalPips / float64(sum.TotalTrades)

	for _, st := range byStrategy {
		sum.Strategies = append(sum.Strategies, *st)
	}
	sort.Slice(sum.Strategies, func(i, j int) bool {
		return sum.Strategies[i].Name < sum.Strategies[j].Name
	})
	for _, st := range sum.Strategies {
		if st.Failing() {
			sum.FailingStrategies = append(sum.FailingStrategies, st.Name)
		}
	}

	return sum
}

// PaperPeriodSummaries holds the rolling summaries shown for paper trading.
type PaperPeriodSummaries struct {
	Daily   PaperSummary `json:"daily"`
	Weekly  PaperSummary `json:"weekly"`
	Monthly PaperSummary `json:"monthly"`
}

// PaperPeriods summarizes positions that exited on now's calendar day, in
// the last 7 days and in the last 30 days.
func PaperPeriods(closed []models.ClosedPosition, now time.Time) PaperPeriodSummaries {
	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)
	y, m, d := now.Date()

	var daily, weekly, monthly []models.ClosedPosition
	for _, p := range closed {
		exit := p.ExitTime.In(now.Location())
		if ey, em, ed := exit.Date(); ey == y && em == m && ed == d {
			daily = append(daily, p)
		}
		if !exit.Before(weekAgo) {
			weekly = append(weekly, p)
		}
		if !exit.Before(monthAgo) {
			monthly = append(monthly, p)
		}
	}

	return PaperPeriodSummaries{
		Daily:   SummarizePaper(daily),
		Weekly:  SummarizePaper(weekly),
		Monthly: SummarizePaper(monthly),
	}
}
