package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// PaperDirection is the side of a simulated position.
type PaperDirection string

const (
	Buy  PaperDirection = "buy"
	Sell PaperDirection = "sell"
)

// Sign returns +1 for buys and -1 for sells.
func (d PaperDirection) Sign() float64 {
	if d == Sell {
		return -1
	}
	return 1
}

// Valid reports whether d is buy or sell.
func (d PaperDirection) Valid() bool { return d == Buy || d == Sell }

// Outcome is the manual result bucket used to close a simulated position.
type Outcome string

const (
	OutcomeTP       Outcome = "TP"
	OutcomeSL       Outcome = "SL"
	OutcomeBE       Outcome = "BE"
	OutcomeNoAction Outcome = "NO_ACTION"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeTP, OutcomeSL, OutcomeBE, OutcomeNoAction:
		return true
	}
	return false
}

// NeedsReview reports whether closing with o goes through the review gate.
func (o Outcome) NeedsReview() bool { return o == OutcomeTP || o == OutcomeSL }

// Label is the user facing name of the outcome.
func (o Outcome) Label() string {
	if o == OutcomeNoAction {
		return "TIMEOUT"
	}
	return string(o)
}

// Position status values as they appear in persisted JSON.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Position holds the fields shared by open and closed simulated positions.
type Position struct {
	ID         string         `json:"id"`
	Instrument string         `json:"instrument"`
	Direction  PaperDirection `json:"direction"`
	EntryTime  time.Time      `json:"entryTime"`
	EntryPrice float64        `json:"entryPrice"`
	Strategy   string         `json:"strategy"`
	Notes      string         `json:"notes"`
}

// OpenPosition is a simulated position that is still running.
type OpenPosition struct {
	Position
	WarningShown bool `json:"warningShown"`
}

// Status returns "open".
func (p OpenPosition) Status() string { return StatusOpen }

// Elapsed returns how long the position has been open at now.
func (p OpenPosition) Elapsed(now time.Time) time.Duration {
	return now.Sub(p.EntryTime)
}

func (p OpenPosition) MarshalJSON() ([]byte, error) {
	type plain OpenPosition
	return json.Marshal(struct {
		plain
		Status string `json:"status"`
	}{plain(p), StatusOpen})
}

// Close turns the position into a closed one.
func (p OpenPosition) Close(exitTime time.Time, exitPrice float64, outcome Outcome, pips float64) ClosedPosition {
	return ClosedPosition{
		Position:  p.Position,
		ExitTime:  exitTime,
		ExitPrice: exitPrice,
		Outcome:   outcome,
		Pips:      pips,
		PnL:       pips,
		Duration:  exitTime.Sub(p.EntryTime),
	}
}

// ClosedPosition is a finalized or review-pending simulated position.
type ClosedPosition struct {
	Position
	ExitTime  time.Time     `json:"exitTime"`
	ExitPrice float64       `json:"exitPrice"`
	Outcome   Outcome       `json:"outcome"`
	Pips      float64       `json:"pips"`
	PnL       float64       `json:"pnl"`
	Duration  time.Duration `json:"duration"`
	Review    *TradeReview  `json:"review,omitempty"`
}

// Status returns "closed".
func (p ClosedPosition) Status() string { return StatusClosed }

// IsWin uses the simulator's convention that break-even counts as a win.
func (p ClosedPosition) IsWin() bool { return p.PnL >= 0 }

// DurationLabel formats the holding time as "Xh Ym" or "Ym".
func (p ClosedPosition) DurationLabel() string {
	return FormatDuration(p.Duration)
}

// PipsLabel formats the pip result for notifications.
func (p ClosedPosition) PipsLabel() string {
	if p.Pips == 0 {
		return "Break Even"
	}
	return fmt.Sprintf("%+.0f pips", p.Pips)
}

func (p ClosedPosition) MarshalJSON() ([]byte, error) {
	type plain ClosedPosition
	return json.Marshal(struct {
		plain
		Status string `json:"status"`
	}{plain(p), StatusClosed})
}

// FormatDuration formats d as "Xh Ym", dropping hours when zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// Answer is a yes/no questionnaire answer. The empty value means unanswered.
type Answer string

const (
	Unanswered Answer = ""
	Yes        Answer = "yes"
	No         Answer = "no"
)

func (a Answer) MarshalJSON() ([]byte, error) {
	if a == Unanswered {
		return []byte("null"), nil
	}
	return json.Marshal(string(a))
}

// Emotion is the dominant feeling reported during a trade.
type Emotion string

const (
	EmotionUnset       Emotion = ""
	EmotionConfident   Emotion = "confident"
	EmotionNeutral     Emotion = "neutral"
	EmotionFear        Emotion = "fear"
	EmotionGreed       Emotion = "greed"
	EmotionFrustration Emotion = "frustration"
	EmotionRevenge     Emotion = "revenge"
)

func (e Emotion) MarshalJSON() ([]byte, error) {
	if e == EmotionUnset {
		return []byte("null"), nil
	}
	return json.Marshal(string(e))
}

// TradeReview is the post-trade psychological questionnaire.
type TradeReview struct {
	Timestamp        time.Time `json:"timestamp"`
	FollowedStrategy Answer    `json:"followedStrategy" validate:"omitempty,oneof=yes no"`
	WasFOMO          Answer    `json:"wasFomo" validate:"omitempty,oneof=yes no"`
	WasEmotional     Answer    `json:"wasEmotional" validate:"omitempty,oneof=yes no"`
	CorrectEntry     Answer    `json:"correctEntry" validate:"omitempty,oneof=yes no"`
	RespectedSL      Answer    `json:"respectedSL" validate:"omitempty,oneof=yes no"`
	MovedSLTP        Answer    `json:"movedSLTP" validate:"omitempty,oneof=yes no"`
	ExitedEarly      Answer    `json:"exitedEarly" validate:"omitempty,oneof=yes no"`
	Emotion          Emotion   `json:"emotion" validate:"omitempty,oneof=confident neutral fear greed frustration revenge"`
	Notes            string    `json:"notes"`
}

// Validate checks that every answer is one of the allowed values.
func (r TradeReview) Validate() error {
	return Validate(r)
}

// Strategy accumulates the results of paper trades tagged with it.
type Strategy struct {
	Name      string  `json:"name" validate:"required"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	TotalPips float64 `json:"totalPips"`
}

// Record adds a finalized trade result to the strategy.
func (s *Strategy) Record(pnl float64) {
	if pnl >= 0 {
		s.Wins++
	} else {
		s.Losses++
	}
	s.TotalPips += pnl
}

// Trades returns the number of trades recorded.
func (s Strategy) Trades() int { return s.Wins + s.Losses }

// WinRate returns the win percentage, 0 when no trades were recorded.
func (s Strategy) WinRate() float64 {
	if s.Trades() == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades()) * 100
}
