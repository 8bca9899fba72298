package paper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trading-journal/internal/config"
	"trading-journal/internal/market"
	"trading-journal/internal/notify"
	"trading-journal/internal/store"
	"trading-journal/pkg/utils"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recorder) Notify(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
}

func (r *recorder) All() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.sent...)
}

func (r *recorder) Last() notify.Notification {
	all := r.All()
	if len(all) == 0 {
		return notify.Notification{}
	}
	return all[len(all)-1]
}

func (r *recorder) Count(severity notify.Severity) int {
	n := 0
	for _, x := range r.All() {
		if x.Severity == severity {
			n++
		}
	}
	return n
}

type harness struct {
	sim     *Simulator
	kv      *store.MemoryStore
	clock   *fakeClock
	notes   *recorder
	changes int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStore(t, store.NewMemoryStore())
}

func newHarnessWithStore(t *testing.T, kv *store.MemoryStore) *harness {
	t.Helper()
	h := &harness{kv: kv, clock: newFakeClock(), notes: &recorder{}}
	h.sim = New(Options{
		Store:    kv,
		Notifier: h.notes,
		Prices:   market.FixedPriceSource{},
		Clock:    h.clock,
		Logger:   zerolog.Nop(),
		OnChange: func() { h.changes++ },
		Config:   config.DefaultPaperConfig(),
		Retry:    utils.RetryConfig{MaxAttempts: 1},
	})
	if err := h.sim.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return h
}

func pips(v float64) *float64 { return &v }
