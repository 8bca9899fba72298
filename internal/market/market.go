// Package market provides reference data for the simulated instruments:
// the default catalogue, pip sizes and simulated prices.
package market

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// DefaultInstruments is the built-in instrument catalogue.
var DefaultInstruments = []string{
	"XAUUSD", "XAGUSD",
	"EURUSD", "GBPUSD", "USDJPY", "EURJPY", "AUDJPY", "AUDUSD",
	"USDCHF", "USDCAD", "GBPCAD", "EURPLN",
	"BTCUSD", "ETHUSD",
	"US30", "US500", "NAS100",
}

// DefaultBasePrice is used for instruments missing from BasePrices.
const DefaultBasePrice = 1.0

// BasePrices holds the reference price of each simulated instrument.
var BasePrices = map[string]float64{
	"XAUUSD": 2050.00,
	"XAGUSD": 30.50,
	"EURUSD": 1.0850,
	"GBPUSD": 1.2750,
	"USDJPY": 148.50,
	"BTCUSD": 43500.00,
	"ETHUSD": 2250.00,
	"US30":   38500.00,
	"US500":  6000.00,
	"NAS100": 17250.00,
}

// BasePrice returns the reference price of instrument.
func BasePrice(instrument string) float64 {
	if p, ok := BasePrices[instrument]; ok {
		return p
	}
	return DefaultBasePrice
}

type pipRule struct {
	substrings []string
	size       float64
}

// Rules are checked in order; the first substring match wins.
var pipRules = []pipRule{
	{[]string{"JPY"}, 0.01},
	{[]string{"XAU"}, 0.1},
	{[]string{"XAG"}, 0.01},
	{[]string{"XTI", "OIL", "WTI"}, 0.01},
	{[]string{"US30", "DOW"}, 1},
	{[]string{"NAS", "NDX"}, 1},
	{[]string{"US500", "SPX"}, 0.1},
	{[]string{"GER", "DAX"}, 0.1},
	{[]string{"UK100", "FTSE"}, 0.1},
	{[]string{"BTC"}, 1},
	{[]string{"ETH"}, 0.1},
}

// StandardPipSize is the pip size of ordinary forex pairs.
const StandardPipSize = 0.0001

// PipSize returns the smallest standardized price increment of instrument.
func PipSize(instrument string) float64 {
	for _, rule := range pipRules {
		for _, s := range rule.substrings {
			if strings.Contains(instrument, s) {
				return rule.size
			}
		}
	}
	return StandardPipSize
}

// PipMultiplier converts a price difference into pips for floating P&L.
func PipMultiplier(instrument string) float64 {
	switch {
	case strings.Contains(instrument, "JPY"):
		return 100
	case strings.Contains(instrument, "XAU"):
		return 10
	case strings.Contains(instrument, "BTC"), strings.Contains(instrument, "ETH"):
		return 1
	case strings.Contains(instrument, "30"), strings.Contains(instrument, "100"):
		return 1
	default:
		return 10000
	}
}

// PercentToPips converts a percentage move from entryPrice into whole pips,
// keeping the sign of percent.
func PercentToPips(instrument string, entryPrice, percent float64) float64 {
	if math.IsNaN(percent) || math.IsNaN(entryPrice) {
		return 0
	}
	raw := entryPrice * (math.Abs(percent) / 100) / PipSize(instrument)
	pips := math.Round(raw)
	if percent < 0 {
		return -pips
	}
	return pips
}

// FloatingPips returns the unrealized pips of a position at current.
func FloatingPips(instrument string, direction, entryPrice, current float64) float64 {
	return (current - entryPrice) * direction * PipMultiplier(instrument)
}

// PriceSource supplies simulated prices.
type PriceSource interface {
	Price(instrument string) float64
}

// RandomPriceSource returns the base price plus a uniform jitter of up to
// Jitter (a fraction of the base) in either direction.
type RandomPriceSource struct {
	Jitter float64

	mu  sync.Mutex
	rng *rand.Rand
}

// DefaultJitter bounds simulated prices to ±0.05% of the base.
const DefaultJitter = 0.0005

// NewRandomPriceSource creates a jittered price source. A zero seed uses the
// current time.
func NewRandomPriceSource(jitter float64, seed int64) *RandomPriceSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if jitter < 0 {
		jitter = 0
	}
	return &RandomPriceSource{
		Jitter: jitter,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Price implements PriceSource.
func (s *RandomPriceSource) Price(instrument string) float64 {
	base := BasePrice(instrument)
	s.mu.Lock()
	r := s.rng.Float64()
	s.mu.Unlock()
	return base + (r-0.5)*2*s.Jitter*base
}

// FixedPriceSource returns configured prices, falling back to base prices.
type FixedPriceSource map[string]float64

// Price implements PriceSource.
func (f FixedPriceSource) Price(instrument string) float64 {
	if p, ok := f[instrument]; ok {
		return p
	}
	return BasePrice(instrument)
}

// NormalizeSymbol trims and uppercases a user supplied instrument symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
