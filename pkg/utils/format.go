// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// FormatCurrency formats an amount with thousands separators and the
// currency's symbol, falling back to the ISO code as a suffix.
func FormatCurrency(amount float64, currency string) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	if str == "0.00" {
		negative = false
	}
	parts := strings.Split(str, ".")
	formatted := groupThousands(parts[0]) + "." + parts[1]

	if symbol, ok := currencySymbols[strings.ToUpper(currency)]; ok {
		formatted = symbol + formatted
	} else if currency != "" {
		formatted = formatted + " " + strings.ToUpper(currency)
	}
	if negative {
		formatted = "-" + formatted
	}
	return formatted
}

// groupThousands inserts commas every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatPnL formats P&L with an explicit sign for gains.
func FormatPnL(pnl float64, currency string) string {
	formatted := FormatCurrency(pnl, currency)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatPips formats a pip count with sign.
func FormatPips(pips float64) string {
	if pips > 0 {
		return fmt.Sprintf("+%.1f", pips)
	}
	return fmt.Sprintf("%.1f", pips)
}

// FormatRatio formats a ratio, showing the capped profit factor as "∞".
func FormatRatio(v, limit float64) string {
	if limit > 0 && v >= limit {
		return "∞"
	}
	return fmt.Sprintf("%.2f", v)
}
