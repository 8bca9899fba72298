// Package paper implements the paper trading simulator: up to a configured
// number of simulated positions, a single scheduler that warns about and
// expires old positions, manual outcome closing and a review queue that gates
// TP/SL closes before they reach history.
package paper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trading-journal/internal/config"
	"trading-journal/internal/logging"
	"trading-journal/internal/market"
	"trading-journal/internal/models"
	"trading-journal/internal/notify"
	"trading-journal/internal/store"
	"trading-journal/pkg/utils"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// DefaultStrategies are created when no strategies have been persisted.
var DefaultStrategies = []string{"Scalping", "Swing Trading", "Day Trading", "News Trading"}

// State is the simulator's owned state.
type State struct {
	Open              []models.OpenPosition
	History           []models.ClosedPosition
	Pending           []models.ClosedPosition
	Strategies        []models.Strategy
	CustomInstruments []string
}

// Options configures a Simulator. Zero values select defaults.
type Options struct {
	Store    store.KV
	Notifier notify.Notifier
	Prices   market.PriceSource
	Clock    Clock
	Logger   zerolog.Logger
	// OnChange is invoked after every operation that mutated state, outside
	// the simulator's lock.
	OnChange func()
	Config   config.PaperConfig
	Retry    utils.RetryConfig
}

type outgoing struct {
	ctx context.Context
	n   notify.Notification
}

// Simulator owns the paper trading state. All methods are safe for
// concurrent use; each runs to completion before the next starts.
type Simulator struct {
	mu    sync.Mutex
	state State

	cfg      config.PaperConfig
	kv       store.KV
	notifier notify.Notifier
	prices   market.PriceSource
	clock    Clock
	logger   zerolog.Logger
	onChange func()
	retry    utils.RetryConfig

	dirty  bool
	outbox []outgoing
}

// New creates a simulator with default strategies and no positions. Call
// Load to restore persisted state.
func New(opts Options) *Simulator {
	cfg := opts.Config
	if cfg == (config.PaperConfig{}) {
		cfg = config.DefaultPaperConfig()
	}

	s := &Simulator{
		cfg:      cfg,
		kv:       opts.Store,
		notifier: opts.Notifier,
		prices:   opts.Prices,
		clock:    opts.Clock,
		logger:   logging.WithComponent(opts.Logger, "paper"),
		onChange: opts.OnChange,
		retry:    opts.Retry,
	}
	if s.kv == nil {
		s.kv = store.NewMemoryStore()
	}
	if s.notifier == nil {
		s.notifier = notify.NewNoOpNotifier()
	}
	if s.prices == nil {
		s.prices = market.NewRandomPriceSource(cfg.PriceJitter, 0)
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	if s.retry.MaxAttempts == 0 {
		s.retry = utils.DefaultRetryConfig()
	}
	s.state.Strategies = defaultStrategies()
	return s
}

// Open creates a simulator and loads its persisted state.
func Open(ctx context.Context, opts Options) (*Simulator, error) {
	s := New(opts)
	if err := s.Load(ctx); err != nil {
		return s, err
	}
	return s, nil
}

func defaultStrategies() []models.Strategy {
	out := make([]models.Strategy, len(DefaultStrategies))
	for i, name := range DefaultStrategies {
		out[i] = models.Strategy{Name: name}
	}
	return out
}

// Config returns the simulator configuration.
func (s *Simulator) Config() config.PaperConfig { return s.cfg }

// lock acquires the state lock. Pair with unlock.
func (s *Simulator) lock() { s.mu.Lock() }

// unlock releases the state lock, then delivers queued notifications and
// the change hook so that they may call back into the simulator.
func (s *Simulator) unlock() {
	dirty := s.dirty
	outbox := s.outbox
	s.dirty = false
	s.outbox = nil
	s.mu.Unlock()

	for _, o := range outbox {
		s.notifier.Notify(o.ctx, o.n)
	}
	if dirty && s.onChange != nil {
		s.onChange()
	}
}

func (s *Simulator) notify(ctx context.Context, kind notify.Kind, severity notify.Severity, symbol, message string) {
	s.outbox = append(s.outbox, outgoing{ctx: ctx, n: notify.Notification{
		Kind:      kind,
		Severity:  severity,
		Title:     "Paper Trading",
		Message:   message,
		Symbol:    symbol,
		Timestamp: s.clock.Now(),
	}})
}

// OpenPositions returns a copy of the open positions in opening order.
func (s *Simulator) OpenPositions() []models.OpenPosition {
	s.lock()
	defer s.unlock()
	return append([]models.OpenPosition(nil), s.state.Open...)
}

// History returns a copy of the finalized positions in closing order.
func (s *Simulator) History() []models.ClosedPosition {
	s.lock()
	defer s.unlock()
	return append([]models.ClosedPosition(nil), s.state.History...)
}

// Snapshot returns a deep enough copy of the whole state for rendering.
func (s *Simulator) Snapshot() State {
	s.lock()
	defer s.unlock()
	return State{
		Open:              append([]models.OpenPosition(nil), s.state.Open...),
		History:           append([]models.ClosedPosition(nil), s.state.History...),
		Pending:           append([]models.ClosedPosition(nil), s.state.Pending...),
		Strategies:        append([]models.Strategy(nil), s.state.Strategies...),
		CustomInstruments: append([]string(nil), s.state.CustomInstruments...),
	}
}

// Now returns the simulator clock's current time.
func (s *Simulator) Now() time.Time { return s.clock.Now() }
