package paper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/internal/notify"
	"trading-journal/internal/store"
)

func TestOpenTradeAssignsEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pos, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: " xauusd ", Strategy: "Scalping", Direction: models.Sell})
	require.NoError(t, err)

	assert.Equal(t, "XAUUSD", pos.Instrument)
	assert.Equal(t, models.Sell, pos.Direction)
	assert.Equal(t, 2050.0, pos.EntryPrice)
	assert.Equal(t, h.clock.Now(), pos.EntryTime)
	assert.Regexp(t, `^pt_`, pos.ID)
	assert.False(t, pos.WarningShown)

	last := h.notes.Last()
	assert.Equal(t, notify.SeveritySuccess, last.Severity)
	assert.Equal(t, "Trade #1 SELL opened on XAUUSD", last.Message)

	_, err = h.kv.Load(ctx, store.KeyPaperOpen)
	assert.NoError(t, err)
}

func TestOpenTradeDefaultsToBuy(t *testing.T) {
	h := newHarness(t)
	pos, err := h.sim.OpenTrade(context.Background(), OpenRequest{Instrument: "EURUSD", Strategy: "Scalping"})
	require.NoError(t, err)
	assert.Equal(t, models.Buy, pos.Direction)
}

func TestOpenTradeRejections(t *testing.T) {
	tests := []struct {
		name     string
		req      OpenRequest
		want     error
		severity notify.Severity
	}{
		{"no instrument", OpenRequest{Strategy: "Scalping"}, apperrors.ErrInstrumentRequired, notify.SeverityError},
		{"no strategy", OpenRequest{Instrument: "EURUSD"}, apperrors.ErrStrategyRequired, notify.SeverityError},
		{"unknown strategy", OpenRequest{Instrument: "EURUSD", Strategy: "Martingale"}, apperrors.ErrStrategyNotFound, notify.SeverityError},
		{"bad direction", OpenRequest{Instrument: "EURUSD", Strategy: "Scalping", Direction: "up"}, apperrors.ErrInputValidation, notify.SeverityError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.sim.OpenTrade(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, h.sim.OpenPositions())
			assert.Equal(t, tt.severity, h.notes.Last().Severity)
		})
	}
}

func TestOpenTradeRejectsDuplicateInstrument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "EURUSD", Strategy: "Scalping"})
	require.NoError(t, err)

	_, err = h.sim.OpenTrade(ctx, OpenRequest{Instrument: "eurusd", Strategy: "Day Trading"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateInstrument)
	assert.Len(t, h.sim.OpenPositions(), 1)
	assert.Equal(t, notify.SeverityWarning, h.notes.Last().Severity)
	assert.Contains(t, h.notes.Last().Message, "EURUSD")
}

func TestOpenTradeCapacity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, inst := range []string{"EURUSD", "GBPUSD", "USDJPY", "XAUUSD", "BTCUSD"} {
		_, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: inst, Strategy: "Scalping"})
		require.NoError(t, err)
	}

	_, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "ETHUSD", Strategy: "Scalping"})
	assert.ErrorIs(t, err, apperrors.ErrCapacityReached)
	assert.Len(t, h.sim.OpenPositions(), 5)
	assert.Equal(t, "Maximum 5 active trades allowed", h.notes.Last().Message)
}

func TestNormalizePips(t *testing.T) {
	tests := []struct {
		outcome models.Outcome
		custom  *float64
		want    float64
	}{
		{models.OutcomeTP, nil, 100},
		{models.OutcomeSL, nil, -50},
		{models.OutcomeBE, nil, 0},
		{models.OutcomeNoAction, nil, 0},
		{models.OutcomeTP, pips(-30), 30},
		{models.OutcomeSL, pips(25), -25},
		{models.OutcomeSL, pips(-25), -25},
		{models.OutcomeBE, pips(40), 0},
		{models.OutcomeNoAction, pips(-12), -12},
		{models.OutcomeSL, pips(0), 0},
	}
	for _, tt := range tests {
		got := NormalizePips(tt.outcome, tt.custom, 100, 50)
		assert.Equal(t, tt.want, got, "%s", tt.outcome)
		assert.False(t, got == 0 && 1/got < 0, "negative zero for %s", tt.outcome)
	}
}

func TestCloseTradeBreakEvenFinalizes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pos, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "EURUSD", Strategy: "Scalping"})
	require.NoError(t, err)
	h.clock.Advance(90 * time.Minute)

	closed, err := h.sim.CloseTrade(ctx, pos.ID, models.OutcomeBE, pips(40))
	require.NoError(t, err)
	assert.Equal(t, 0.0, closed.Pips)
	assert.Equal(t, 90*time.Minute, closed.Duration)
	assert.Equal(t, "1h 30m", closed.DurationLabel())

	assert.Empty(t, h.sim.OpenPositions())
	require.Len(t, h.sim.History(), 1)
	assert.Equal(t, "EURUSD closed: BE | Break Even", h.notes.Last().Message)

	st := h.sim.Strategies()[0]
	assert.Equal(t, "Scalping", st.Name)
	assert.Equal(t, 1, st.Wins)
	assert.Equal(t, 0, st.Losses)

	_, err = h.kv.Load(ctx, store.KeyPaperOpen)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCloseTradeUnknownID(t *testing.T) {
	h := newHarness(t)
	_, err := h.sim.CloseTrade(context.Background(), "pt_missing", models.OutcomeTP, nil)
	assert.ErrorIs(t, err, apperrors.ErrTradeNotFound)

	_, err = h.sim.CloseTrade(context.Background(), "pt_missing", "WIN", nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOutcome)
}

func TestCloseWithCustomPipsRequiresValue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pos, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "EURUSD", Strategy: "Scalping"})
	require.NoError(t, err)

	_, err = h.sim.CloseWithCustomPips(ctx, pos.ID, models.OutcomeTP, nil)
	assert.ErrorIs(t, err, apperrors.ErrPipsRequired)
	assert.Len(t, h.sim.OpenPositions(), 1)
	assert.Equal(t, notify.SeverityWarning, h.notes.Last().Severity)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err = h.sim.CloseWithCustomPips(ctx, pos.ID, models.OutcomeSL, pips(v))
		assert.ErrorIs(t, err, apperrors.ErrPipsRequired, "pips %v", v)
	}
	assert.Len(t, h.sim.OpenPositions(), 1)
	assert.Empty(t, h.sim.PendingReviews())

	closed, err := h.sim.CloseWithCustomPips(ctx, pos.ID, models.OutcomeTP, pips(-30))
	require.NoError(t, err)
	assert.Equal(t, 30.0, closed.Pips)
	assert.Equal(t, 30.0, closed.PnL)
}

func TestReviewGateHoldsTPAndSL(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "EURUSD", Strategy: "Scalping"})
	require.NoError(t, err)
	b, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "GBPUSD", Strategy: "Swing Trading"})
	require.NoError(t, err)

	_, err = h.sim.CloseTrade(ctx, a.ID, models.OutcomeTP, nil)
	require.NoError(t, err)
	_, err = h.sim.CloseTrade(ctx, b.ID, models.OutcomeSL, nil)
	require.NoError(t, err)

	assert.Empty(t, h.sim.OpenPositions())
	assert.Empty(t, h.sim.History())
	require.Len(t, h.sim.PendingReviews(), 2)

	head, ok := h.sim.PendingReview()
	require.True(t, ok)
	assert.Equal(t, a.ID, head.ID)

	_, err = h.sim.SkipReview(ctx, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrReviewOutOfOrder)

	reviewed, err := h.sim.SubmitReview(ctx, a.ID, models.TradeReview{
		FollowedStrategy: models.Yes,
		WasFOMO:          models.No,
		Emotion:          models.EmotionConfident,
		Notes:            "clean breakout",
	})
	require.NoError(t, err)
	require.NotNil(t, reviewed.Review)
	assert.Equal(t, h.clock.Now(), reviewed.Review.Timestamp)
	assert.Equal(t, "EURUSD closed: TP | +100 pips", h.notes.Last().Message)

	history := h.sim.History()
	require.Len(t, history, 1)
	assert.Equal(t, a.ID, history[0].ID)
	assert.Equal(t, 100.0, history[0].PnL)

	_, err = h.sim.SkipReview(ctx, b.ID)
	require.NoError(t, err)
	history = h.sim.History()
	require.Len(t, history, 2)
	assert.Nil(t, history[1].Review)
	assert.Equal(t, -50.0, history[1].Pips)

	_, ok = h.sim.PendingReview()
	assert.False(t, ok)
	_, err = h.sim.SkipReview(ctx, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrNoPendingReview)

	_, err = h.kv.Load(ctx, store.KeyPaperPending)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubmitReviewRejectsInvalidAnswers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pos, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "EURUSD", Strategy: "Scalping"})
	require.NoError(t, err)
	_, err = h.sim.CloseTrade(ctx, pos.ID, models.OutcomeTP, nil)
	require.NoError(t, err)

	_, err = h.sim.SubmitReview(ctx, pos.ID, models.TradeReview{Emotion: "bored"})
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
	assert.Len(t, h.sim.PendingReviews(), 1)
	assert.Empty(t, h.sim.History())
}

func TestTickWarnsOnceThenExpires(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pos, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "NAS100", Strategy: "Day Trading"})
	require.NoError(t, err)

	h.clock.Advance(7 * time.Hour)
	report := h.sim.Tick(ctx)
	assert.Empty(t, report.Warned)
	assert.Empty(t, report.Expired)

	h.clock.Advance(30 * time.Minute)
	report = h.sim.Tick(ctx)
	assert.Equal(t, []string{pos.ID}, report.Warned)
	assert.Equal(t, "NAS100 will close in 30 minutes", h.notes.Last().Message)
	assert.True(t, h.sim.OpenPositions()[0].WarningShown)

	h.clock.Advance(time.Minute)
	report = h.sim.Tick(ctx)
	assert.Empty(t, report.Warned)
	assert.Equal(t, 1, h.notes.Count(notify.SeverityWarning))

	h.clock.Advance(45 * time.Minute)
	report = h.sim.Tick(ctx)
	require.Len(t, report.Expired, 1)
	expired := report.Expired[0]
	assert.Equal(t, models.OutcomeNoAction, expired.Outcome)
	assert.Equal(t, 0.0, expired.Pips)
	assert.Equal(t, 8*time.Hour, expired.Duration)
	assert.Equal(t, pos.EntryTime.Add(8*time.Hour), expired.ExitTime)

	assert.Empty(t, h.sim.OpenPositions())
	assert.Empty(t, h.sim.PendingReviews())
	require.Len(t, h.sim.History(), 1)
	assert.Equal(t, "NAS100 closed: TIMEOUT | Break Even", h.notes.Last().Message)

	var sawAuto bool
	for _, n := range h.notes.All() {
		if n.Message == "NAS100 closed automatically (8 hours)" {
			sawAuto = true
		}
	}
	assert.True(t, sawAuto)
}

func TestTickWarnsBeforeExpiringOverduePosition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pos, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "EURUSD", Strategy: "Scalping"})
	require.NoError(t, err)

	h.clock.Advance(12 * time.Hour)
	report := h.sim.Tick(ctx)
	assert.Equal(t, []string{pos.ID}, report.Warned)
	require.Len(t, report.Expired, 1)
	assert.Equal(t, 8*time.Hour, report.Expired[0].Duration)

	var messages []string
	for _, n := range h.notes.All() {
		if n.Symbol == "EURUSD" && n.Severity == notify.SeverityWarning {
			messages = append(messages, n.Message)
		}
	}
	assert.Equal(t, []string{
		"EURUSD will close in 1 minute",
		"EURUSD closed automatically (8 hours)",
	}, messages)

	report = h.sim.Tick(ctx)
	assert.Empty(t, report.Warned)
	assert.Empty(t, report.Expired)
}

func TestTickNotBlockedByPendingReview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "EURUSD", Strategy: "Scalping"})
	require.NoError(t, err)
	_, err = h.sim.OpenTrade(ctx, OpenRequest{Instrument: "GBPUSD", Strategy: "Scalping"})
	require.NoError(t, err)
	_, err = h.sim.CloseTrade(ctx, a.ID, models.OutcomeTP, nil)
	require.NoError(t, err)

	h.clock.Advance(9 * time.Hour)
	report := h.sim.Tick(ctx)
	require.Len(t, report.Expired, 1)
	assert.Equal(t, "GBPUSD", report.Expired[0].Instrument)
	assert.Len(t, h.sim.PendingReviews(), 1)
	assert.Len(t, h.sim.History(), 1)
}

func TestLoadRestoresStateAndExpiresStalePositions(t *testing.T) {
	kv := store.NewMemoryStore()
	first := newHarnessWithStore(t, kv)
	ctx := context.Background()

	_, err := first.sim.AddStrategy(ctx, "Breakout")
	require.NoError(t, err)
	_, err = first.sim.AddInstrument(ctx, "ger40")
	require.NoError(t, err)
	pos, err := first.sim.OpenTrade(ctx, OpenRequest{Instrument: "XAUUSD", Strategy: "Breakout"})
	require.NoError(t, err)
	other, err := first.sim.OpenTrade(ctx, OpenRequest{Instrument: "EURUSD", Strategy: "Scalping"})
	require.NoError(t, err)
	_, err = first.sim.CloseTrade(ctx, other.ID, models.OutcomeSL, nil)
	require.NoError(t, err)

	second := newHarnessWithStore(t, kv)
	snap := second.sim.Snapshot()
	require.Len(t, snap.Open, 1)
	assert.Equal(t, pos.ID, snap.Open[0].ID)
	assert.True(t, pos.EntryTime.Equal(snap.Open[0].EntryTime))
	require.Len(t, snap.Pending, 1)
	assert.Equal(t, other.ID, snap.Pending[0].ID)
	assert.Len(t, snap.Strategies, 5)
	assert.Equal(t, []string{"GER40"}, snap.CustomInstruments)

	second.clock.Advance(10 * time.Hour)
	report := second.sim.Tick(ctx)
	require.Len(t, report.Expired, 1)
	assert.Equal(t, pos.ID, report.Expired[0].ID)
}

func TestLoadIgnoresCorruptValues(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, kv.Save(ctx, store.KeyPaperHistory, []byte(`{not json`)))
	require.NoError(t, kv.Save(ctx, store.KeyPaperStrategies, []byte(`"oops"`)))

	h := newHarnessWithStore(t, kv)
	assert.Empty(t, h.sim.History())
	assert.Len(t, h.sim.Strategies(), len(DefaultStrategies))
}

func TestFailingStoreKeepsInMemoryState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.kv.FailSaves(errors.New("disk full"))

	pos, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "EURUSD", Strategy: "Scalping"})
	require.NoError(t, err)
	_, err = h.sim.CloseTrade(ctx, pos.ID, models.OutcomeBE, nil)
	require.NoError(t, err)

	assert.Len(t, h.sim.History(), 1)
	_, err = h.kv.Load(ctx, store.KeyPaperHistory)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOnChangeFiresAfterMutations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	before := h.changes

	_, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "EURUSD", Strategy: "Scalping"})
	require.NoError(t, err)
	assert.Equal(t, before+1, h.changes)

	_, _ = h.sim.OpenTrade(ctx, OpenRequest{Instrument: "EURUSD", Strategy: "Scalping"})
	assert.Equal(t, before+1, h.changes)

	h.sim.Tick(ctx)
	assert.Equal(t, before+1, h.changes)
}

func TestOnChangeMayReadSimulator(t *testing.T) {
	var sim *Simulator
	var seen int
	sim = New(Options{OnChange: func() { seen = len(sim.OpenPositions()) }})
	_, err := sim.OpenTrade(context.Background(), OpenRequest{Instrument: "EURUSD", Strategy: "Scalping"})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}

func TestAddStrategyAndInstrument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.sim.AddStrategy(ctx, "  ")
	assert.ErrorIs(t, err, apperrors.ErrStrategyRequired)
	_, err = h.sim.AddStrategy(ctx, "Scalping")
	assert.ErrorIs(t, err, apperrors.ErrStrategyExists)
	assert.Equal(t, notify.SeverityWarning, h.notes.Last().Severity)

	st, err := h.sim.AddStrategy(ctx, "Range")
	require.NoError(t, err)
	assert.Equal(t, "Range", st.Name)

	_, err = h.sim.AddInstrument(ctx, "eurusd")
	assert.ErrorIs(t, err, apperrors.ErrInstrumentExists)
	sym, err := h.sim.AddInstrument(ctx, "uk100")
	require.NoError(t, err)
	assert.Equal(t, "UK100", sym)
	_, err = h.sim.AddInstrument(ctx, "UK100")
	assert.ErrorIs(t, err, apperrors.ErrInstrumentExists)

	instruments := h.sim.Instruments()
	assert.Equal(t, "UK100", instruments[len(instruments)-1])
}

func TestConvertAndFloatingPips(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pos, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "XAUUSD", Strategy: "Scalping"})
	require.NoError(t, err)

	got, err := h.sim.ConvertPercentToPips(pos.ID, -0.94)
	require.NoError(t, err)
	assert.Equal(t, -193.0, got)

	floating, err := h.sim.FloatingPips(pos.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, floating)

	_, err = h.sim.ConvertPercentToPips("pt_missing", 1)
	assert.ErrorIs(t, err, apperrors.ErrTradeNotFound)
}

func TestResolve(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pos, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "XAUUSD", Strategy: "Scalping"})
	require.NoError(t, err)

	for _, ref := range []string{pos.ID, "xauusd", pos.ID[:8]} {
		got, err := h.sim.Resolve(ref)
		require.NoError(t, err, ref)
		assert.Equal(t, pos.ID, got.ID)
	}
	_, err = h.sim.Resolve("GBPUSD")
	assert.ErrorIs(t, err, apperrors.ErrTradeNotFound)
}

func TestStatsAndReset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, c := range []struct {
		inst    string
		outcome models.Outcome
	}{{"EURUSD", models.OutcomeBE}, {"GBPUSD", models.OutcomeNoAction}} {
		pos, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: c.inst, Strategy: "Scalping"})
		require.NoError(t, err)
		_, err = h.sim.CloseTrade(ctx, pos.ID, c.outcome, nil)
		require.NoError(t, err)
	}
	pos, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "USDJPY", Strategy: "Scalping"})
	require.NoError(t, err)
	_, err = h.sim.CloseTrade(ctx, pos.ID, models.OutcomeSL, nil)
	require.NoError(t, err)
	_, err = h.sim.SkipReview(ctx, pos.ID)
	require.NoError(t, err)

	st := h.sim.Stats()
	assert.Equal(t, 3, st.TotalTrades)
	assert.Equal(t, 2, st.Wins)
	assert.Equal(t, 1, st.Losses)
	assert.Equal(t, -50.0, st.TotalPips)
	assert.InDelta(t, 66.67, st.WinRate, 0.01)

	summary := h.sim.Summary()
	assert.Equal(t, 3, summary.TotalTrades)
	assert.Equal(t, 3, h.sim.Periods().Daily.TotalTrades)

	h.sim.Reset(ctx)
	assert.Empty(t, h.sim.History())
	assert.Equal(t, 0, h.sim.Stats().TotalTrades)
	assert.Equal(t, 3, h.sim.Strategies()[0].Trades())
}

func TestExportDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pos, err := h.sim.OpenTrade(ctx, OpenRequest{Instrument: "EURUSD", Strategy: "Scalping"})
	require.NoError(t, err)
	_, err = h.sim.CloseTrade(ctx, pos.ID, models.OutcomeBE, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, h.sim.Export(&buf))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Contains(t, doc, "paperTrades")
	assert.Contains(t, doc, "strategies")
	assert.Contains(t, doc, "exportDate")

	var trades []map[string]interface{}
	require.NoError(t, json.Unmarshal(doc["paperTrades"], &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, "closed", trades[0]["status"])
	assert.Equal(t, "BE", trades[0]["outcome"])
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.sim.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
