// Package stats derives performance metrics from closed trades. Every
// function is pure: the same input always produces the same output and no
// ratio is ever NaN or infinite.
package stats

import (
	"fmt"
	"math"
	"sort"

	"trading-journal/internal/models"
)

// ProfitFactorCap replaces an infinite profit factor when there are wins but
// no losses.
const ProfitFactorCap = 999.0

// Stats holds the aggregate performance of a list of journaled trades.
type Stats struct {
	TotalTrades int `json:"totalTrades"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	BreakEven   int `json:"breakEven"`

	TotalPnL   float64 `json:"totalPnL"`
	WinSum     float64 `json:"winSum"`
	LossSum    float64 `json:"lossSum"`
	BestTrade  float64 `json:"bestTrade"`
	WorstTrade float64 `json:"worstTrade"`
	AvgWin     float64 `json:"avgWin"`
	AvgLoss    float64 `json:"avgLoss"`

	// WinRate is a fraction in [0, 1].
	WinRate      float64 `json:"winRate"`
	ProfitFactor float64 `json:"profitFactor"`
	AvgReturn    float64 `json:"avgReturn"`
	StdDev       float64 `json:"stdDev"`
	SharpeRatio  float64 `json:"sharpeRatio"`
	// MaxDrawdown is a percentage of the running equity peak.
	MaxDrawdown float64 `json:"maxDrawdown"`
	Expectancy  float64 `json:"expectancy"`
	PayoffRatio float64 `json:"payoffRatio"`

	InitialBalance       float64 `json:"initialBalance"`
	CurrentBalance       float64 `json:"currentBalance"`
	BalanceChangePercent float64 `json:"balanceChangePercent"`
	TotalPnLPercent      float64 `json:"totalPnLPercent"`

	LongestWinStreak  int `json:"longestWinStreak"`
	LongestLossStreak int `json:"longestLossStreak"`

	Signals  map[string]SignalStats `json:"signals"`
	Calendar map[string]DayStats    `json:"calendar"`
	Monthly  map[string]float64     `json:"monthly"`
	Weekly   map[string]float64     `json:"weekly"`
}

// SignalStats aggregates every trade tagged with one signal. A trade with
// several signals contributes its full P&L to each of them.
type SignalStats struct {
	Count    int     `json:"count"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	TotalPnL float64 `json:"totalPnL"`
}

// WinRate returns the signal's win percentage.
func (s SignalStats) WinRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Count) * 100
}

// DayStats aggregates the trades of one calendar day.
type DayStats struct {
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	PnL    float64 `json:"pnl"`
}

// WinRatePercent returns WinRate scaled to 0..100.
func (s Stats) WinRatePercent() float64 { return s.WinRate * 100 }

// SignalNames returns the signal names sorted by total P&L, best first.
func (s Stats) SignalNames() []string {
	names := make([]string, 0, len(s.Signals))
	for name := range s.Signals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := s.Signals[names[i]], s.Signals[names[j]]
		if a.TotalPnL != b.TotalPnL {
			return a.TotalPnL > b.TotalPnL
		}
		return names[i] < names[j]
	})
	return names
}

func empty(settings models.Settings) Stats {
	return Stats{
		InitialBalance: settings.InitialBalance,
		CurrentBalance: settings.InitialBalance,
		Signals:        map[string]SignalStats{},
		Calendar:       map[string]DayStats{},
		Monthly:        map[string]float64{},
		Weekly:         map[string]float64{},
	}
}

// finite maps NaN and infinities to 0 so malformed values contribute nothing.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Compute derives Stats from trades and the account settings.
func Compute(trades []models.Trade, settings models.Settings) Stats {
	s := empty(settings)
	if len(trades) == 0 {
		return s
	}

	n := len(trades)
	s.TotalTrades = n

	pnls := make([]float64, n)
	currentWins, currentLosses := 0, 0
	for i, t := range trades {
		pnl := finite(t.PnL)
		pnls[i] = pnl
		s.TotalPnL += pnl

		// Partition by sign and track streaks in input order
		switch {
		case pnl > 0:
			s.Wins++
			s.WinSum += pnl
			currentWins++
			currentLosses = 0
			if pnl > s.BestTrade {
				s.BestTrade = pnl
			}
			if currentWins > s.LongestWinStreak {
				s.LongestWinStreak = currentWins
			}
		case pnl < 0:
			s.Losses++
			s.LossSum += -pnl
			currentLosses++
			currentWins = 0
			if pnl < s.WorstTrade {
				s.WorstTrade = pnl
			}
			if currentLosses > s.LongestLossStreak {
				s.LongestLossStreak = currentLosses
			}
		default:
			s.BreakEven++
		}

		accumulateBuckets(&s, t, pnl)
	}

	s.ProfitFactor = profitFactor(s.WinSum, s.LossSum)

	s.AvgReturn = (s.WinSum - s.LossSum) / float64(n)
	s.StdDev = sampleStdDev(pnls, s.AvgReturn)
	if s.StdDev > 0 {
		s.SharpeRatio = finite(s.AvgReturn / s.StdDev)
	}

	s.MaxDrawdown = maxDrawdown(trades)

	s.WinRate = float64(s.Wins) / float64(n)
	if s.Wins > 0 {
		s.AvgWin = s.WinSum / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = s.LossSum / float64(s.Losses)
	}
	s.Expectancy = s.WinRate*s.AvgWin - (1-s.WinRate)*s.AvgLoss
	if s.AvgLoss > 0 {
		s.PayoffRatio = s.AvgWin / s.AvgLoss
	}

	s.CurrentBalance = settings.InitialBalance + s.TotalPnL
	if settings.InitialBalance != 0 {
		s.BalanceChangePercent = finite((s.CurrentBalance - settings.InitialBalance) / settings.InitialBalance * 100)
		s.TotalPnLPercent = finite(s.TotalPnL / settings.InitialBalance * 100)
	}

	return s
}

func accumulateBuckets(s *Stats, t models.Trade, pnl float64) {
	for _, signal := range t.Signals {
		sig := s.Signals[signal]
		sig.Count++
		sig.TotalPnL += pnl
		if pnl > 0 {
			sig.Wins++
		} else if pnl < 0 {
			sig.Losses++
		}
		s.Signals[signal] = sig
	}

	dayKey := t.DayKey()
	if dayKey != "" {
		day := s.Calendar[dayKey]
		day.Trades++
		day.PnL += pnl
		if pnl > 0 {
			day.Wins++
		} else if pnl < 0 {
			day.Losses++
		}
		s.Calendar[dayKey] = day
	}

	d := t.Day()
	if d.IsZero() {
		return
	}
	s.Monthly[d.Format("2006-01")] += pnl
	year, week := d.ISOWeek()
	s.Weekly[fmt.Sprintf("%d-W%02d", year, week)] += pnl
}

func profitFactor(winSum, lossSum float64) float64 {
	switch {
	case lossSum > 0:
		return finite(winSum / lossSum)
	case winSum > 0:
		return ProfitFactorCap
	default:
		return 0
	}
}

// sampleStdDev uses Bessel's correction with the denominator floored at 1.
func sampleStdDev(values []float64, mean float64) float64 {
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	denom := float64(len(values) - 1)
	if denom < 1 {
		denom = 1
	}
	return finite(math.Sqrt(sq / denom))
}

// maxDrawdown walks the equity curve in chronological order and returns the
// largest decline from a positive peak as a percentage of that peak.
func maxDrawdown(trades []models.Trade) float64 {
	ordered := make([]models.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Day().Before(ordered[j].Day())
	})

	var total, peak, maxDD float64
	for _, t := range ordered {
		total += finite(t.PnL)
		if total > peak {
			peak = total
		}
		if peak > 0 {
			if dd := (peak - total) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
