package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// TerminalNotifier handles real-time terminal notifications.
type TerminalNotifier struct {
	notifications chan Notification
	handlers      []TerminalNotificationHandler
	mu            sync.RWMutex
	enabled       bool
	bellEnabled   bool
	out           io.Writer
}

// TerminalNotificationHandler is a function that handles terminal notifications.
type TerminalNotificationHandler func(n Notification)

// NewTerminalNotifier creates a terminal notifier with a bounded buffer.
func NewTerminalNotifier(bufferSize int) *TerminalNotifier {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &TerminalNotifier{
		notifications: make(chan Notification, bufferSize),
		handlers:      make([]TerminalNotificationHandler, 0),
		enabled:       true,
		out:           os.Stdout,
	}
}

// SetBellEnabled enables or disables the terminal bell.
func (tn *TerminalNotifier) SetBellEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.bellEnabled = enabled
}

// SetEnabled enables or disables the notifier.
func (tn *TerminalNotifier) SetEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.enabled = enabled
}

// SetOutput sets where the bell is written.
func (tn *TerminalNotifier) SetOutput(w io.Writer) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.out = w
}

// AddHandler registers a handler.
func (tn *TerminalNotifier) AddHandler(handler TerminalNotificationHandler) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.handlers = append(tn.handlers, handler)
}

// Notify queues a notification. It never blocks; when the buffer is full the
// oldest notification is dropped.
func (tn *TerminalNotifier) Notify(ctx context.Context, n Notification) {
	tn.mu.RLock()
	enabled := tn.enabled
	tn.mu.RUnlock()

	if !enabled {
		return
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	for {
		select {
		case tn.notifications <- n:
			return
		default:
		}
		// Buffer full, drop oldest notification
		select {
		case <-tn.notifications:
		default:
		}
	}
}

// Start processes queued notifications until ctx is done.
func (tn *TerminalNotifier) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-tn.notifications:
				tn.processNotification(n)
			}
		}
	}()
}

// Drain synchronously processes every queued notification.
func (tn *TerminalNotifier) Drain() {
	for {
		select {
		case n := <-tn.notifications:
			tn.processNotification(n)
		default:
			return
		}
	}
}

// processNotification processes a single notification.
func (tn *TerminalNotifier) processNotification(n Notification) {
	tn.mu.RLock()
	handlers := tn.handlers
	bellEnabled := tn.bellEnabled
	out := tn.out
	tn.mu.RUnlock()

	// Ring bell for warnings and errors
	if bellEnabled && (n.Severity == SeverityWarning || n.Severity == SeverityError) {
		fmt.Fprint(out, "\a")
	}

	for _, handler := range handlers {
		handler(n)
	}
}

var severityStyles = map[Severity]struct {
	label string
	color *color.Color
}{
	SeveritySuccess: {"✅ SUCCESS", color.New(color.FgGreen)},
	SeverityError:   {"❌ ERROR", color.New(color.FgRed)},
	SeverityWarning: {"⚠️  WARNING", color.New(color.FgYellow)},
	SeverityInfo:    {"ℹ️  INFO", color.New(color.FgCyan)},
}

// FormatNotification formats a notification for terminal display.
func FormatNotification(n Notification, colorEnabled bool) string {
	var sb strings.Builder

	style, ok := severityStyles[n.Severity]
	if !ok {
		style = severityStyles[SeverityInfo]
	}

	header := fmt.Sprintf("[%s] %s", n.Timestamp.Format("15:04:05"), style.label)
	if colorEnabled {
		header = style.color.Sprint(header)
	}
	sb.WriteString(header)

	if n.Symbol != "" {
		sb.WriteString(fmt.Sprintf(" | %s", n.Symbol))
	}
	if n.Title != "" {
		sb.WriteString(fmt.Sprintf(" | %s", n.Title))
	}
	sb.WriteString(fmt.Sprintf(" | %s", n.Message))

	return sb.String()
}

// DefaultTerminalHandler returns a handler that prints to w.
func DefaultTerminalHandler(w io.Writer, colorEnabled bool) TerminalNotificationHandler {
	return func(n Notification) {
		fmt.Fprintln(w, FormatNotification(n, colorEnabled))
	}
}

// NotificationOverlay keeps the most recent notifications for watch mode.
type NotificationOverlay struct {
	notifications []Notification
	maxVisible    int
	mu            sync.RWMutex
	ttl           time.Duration
	now           func() time.Time
}

// NewNotificationOverlay creates a new notification overlay.
func NewNotificationOverlay(maxVisible int, ttl time.Duration) *NotificationOverlay {
	if maxVisible <= 0 {
		maxVisible = 5
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &NotificationOverlay{
		notifications: make([]Notification, 0, maxVisible),
		maxVisible:    maxVisible,
		ttl:           ttl,
		now:           time.Now,
	}
}

// Notify implements Notifier so the overlay can be used as a channel.
func (no *NotificationOverlay) Notify(ctx context.Context, n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = no.now()
	}
	no.Add(n)
}

// Add adds a notification to the overlay.
func (no *NotificationOverlay) Add(n Notification) {
	no.mu.Lock()
	defer no.mu.Unlock()

	no.notifications = append(no.active(no.now()), n)

	if len(no.notifications) > no.maxVisible {
		no.notifications = no.notifications[len(no.notifications)-no.maxVisible:]
	}
}

func (no *NotificationOverlay) active(now time.Time) []Notification {
	active := make([]Notification, 0, len(no.notifications))
	for _, n := range no.notifications {
		if now.Sub(n.Timestamp) < no.ttl {
			active = append(active, n)
		}
	}
	return active
}

// Visible returns the notifications that have not expired.
func (no *NotificationOverlay) Visible() []Notification {
	no.mu.RLock()
	defer no.mu.RUnlock()
	return no.active(no.now())
}

// Clear clears all notifications.
func (no *NotificationOverlay) Clear() {
	no.mu.Lock()
	defer no.mu.Unlock()
	no.notifications = no.notifications[:0]
}

// Render renders the overlay as a string for display.
func (no *NotificationOverlay) Render(colorEnabled bool) string {
	visible := no.Visible()
	if len(visible) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("┌─ Notifications ─────────────────────────────────────────────────────────┐\n")
	for _, n := range visible {
		sb.WriteString("│ ")
		sb.WriteString(FormatNotification(n, colorEnabled))
		sb.WriteString("\n")
	}
	sb.WriteString("└─────────────────────────────────────────────────────────────────────────┘")
	return sb.String()
}
