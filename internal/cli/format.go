package cli

import (
	"fmt"
	"strings"
	"time"

	"trading-journal/internal/market"
)

// FormatPrice formats a price with appropriate decimal places.
func FormatPrice(price float64) string {
	switch {
	case price == 0:
		return "-"
	case price >= 10:
		return fmt.Sprintf("%.2f", price)
	}
	return fmt.Sprintf("%.4f", price)
}

// FormatInstrumentPrice formats a price with the precision implied by the
// instrument's pip size.
func FormatInstrumentPrice(instrument string, price float64) string {
	switch pip := market.PipSize(instrument); {
	case pip <= 0.0001:
		return fmt.Sprintf("%.5f", price)
	case pip <= 0.01:
		return fmt.Sprintf("%.3f", price)
	}
	return fmt.Sprintf("%.2f", price)
}

// FormatTime formats a time of day in local time.
func FormatTime(t time.Time) string {
	return t.Local().Format("15:04:05")
}

// FormatDateTime formats a datetime in local time.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("02-Jan-2006 15:04")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// PadRight pads a string to the right.
func PadRight(s string, length int) string {
	if w := displayWidth(s); w < length {
		return s + strings.Repeat(" ", length-w)
	}
	return s
}
