// Package notify provides notification functionality for the trading journal.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Notifier receives fire-and-forget user notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Severity is the user facing tone of a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Kind classifies notifications for level filtering.
type Kind string

const (
	KindTrade Kind = "trade"
	KindAlert Kind = "alert"
	KindError Kind = "error"
	KindInfo  Kind = "info"
)

// Notification represents a notification message.
type Notification struct {
	Kind      Kind
	Severity  Severity
	Title     string
	Message   string
	Symbol    string
	Timestamp time.Time
}

// NotificationLevel represents the notification level filter.
type NotificationLevel string

const (
	LevelAll        NotificationLevel = "all"
	LevelTradesOnly NotificationLevel = "trades_only"
	LevelErrorsOnly NotificationLevel = "errors_only"
)

// MultiNotifier fans notifications out to several channels.
type MultiNotifier struct {
	channels []Notifier
	level    NotificationLevel
	mu       sync.RWMutex
}

// NewMultiNotifier creates a new MultiNotifier with the given level filter.
func NewMultiNotifier(level NotificationLevel, channels ...Notifier) *MultiNotifier {
	if level == "" {
		level = LevelAll
	}
	return &MultiNotifier{
		channels: channels,
		level:    level,
	}
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch Notifier) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// shouldSend checks if a notification should be sent based on the level filter.
func (mn *MultiNotifier) shouldSend(n Notification) bool {
	switch mn.level {
	case LevelTradesOnly:
		return n.Kind == KindTrade || n.Kind == KindAlert
	case LevelErrorsOnly:
		return n.Kind == KindError || n.Severity == SeverityError
	default:
		return true
	}
}

// Notify sends a notification to every channel.
func (mn *MultiNotifier) Notify(ctx context.Context, n Notification) {
	if !mn.shouldSend(n) {
		return
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	for _, ch := range channels {
		ch.Notify(ctx, n)
	}
}

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that logs every notification.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

// Notify implements Notifier.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) {
	var event *zerolog.Event
	switch n.Severity {
	case SeverityError:
		event = l.logger.Error()
	case SeverityWarning:
		event = l.logger.Warn()
	default:
		event = l.logger.Info()
	}
	event.
		Str("kind", string(n.Kind)).
		Str("severity", string(n.Severity)).
		Str("symbol", n.Symbol).
		Str("title", n.Title).
		Msg(n.Message)
}

// NoOpNotifier is a notifier that does nothing.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new no-op notifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Notify does nothing.
func (NoOpNotifier) Notify(ctx context.Context, n Notification) {}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, n Notification)

// Notify calls f.
func (f Func) Notify(ctx context.Context, n Notification) { f(ctx, n) }
