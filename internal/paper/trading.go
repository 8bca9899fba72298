package paper

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/market"
	"trading-journal/internal/models"
	"trading-journal/internal/notify"
)

// OpenRequest describes a position to open.
type OpenRequest struct {
	Instrument string
	Strategy   string
	Direction  models.PaperDirection
	Notes      string
}

func newTradeID() string {
	return "pt_" + uuid.NewString()
}

// reject queues a user facing rejection and returns the typed error.
func (s *Simulator) reject(ctx context.Context, severity notify.Severity, id, instrument, action string, err error, message string) error {
	s.notify(ctx, notify.KindError, severity, instrument, message)
	logger := logging.WithTradeID(logging.WithInstrument(s.logger, instrument), id)
	logger.Warn().
		Str("action", action).
		Err(err).
		Msg("Paper trading operation rejected")
	return apperrors.NewTradeError(id, instrument, action, err)
}

// OpenTrade opens a simulated position at a jittered base price.
//
// Preconditions are checked in order: instrument set, strategy set, strategy
// known, no open position on the instrument, capacity left. A rejection
// leaves the state unchanged.
func (s *Simulator) OpenTrade(ctx context.Context, req OpenRequest) (models.OpenPosition, error) {
	s.lock()
	defer s.unlock()

	instrument := market.NormalizeSymbol(req.Instrument)
	strategy := strings.TrimSpace(req.Strategy)

	if instrument == "" {
		return models.OpenPosition{}, s.reject(ctx, notify.SeverityError, "", "", "open",
			apperrors.ErrInstrumentRequired, "Please select an instrument")
	}
	if strategy == "" {
		return models.OpenPosition{}, s.reject(ctx, notify.SeverityError, "", instrument, "open",
			apperrors.ErrStrategyRequired, "Please select a strategy")
	}
	if s.strategyIndex(strategy) < 0 {
		return models.OpenPosition{}, s.reject(ctx, notify.SeverityError, "", instrument, "open",
			apperrors.ErrStrategyNotFound, fmt.Sprintf("Strategy %q does not exist", strategy))
	}
	for _, p := range s.state.Open {
		if p.Instrument == instrument {
			return models.OpenPosition{}, s.reject(ctx, notify.SeverityWarning, p.ID, instrument, "open",
				apperrors.ErrDuplicateInstrument, fmt.Sprintf("You already have an active trade on %s", instrument))
		}
	}
	if len(s.state.Open) >= s.cfg.MaxOpenTrades {
		return models.OpenPosition{}, s.reject(ctx, notify.SeverityWarning, "", instrument, "open",
			apperrors.ErrCapacityReached, fmt.Sprintf("Maximum %d active trades allowed", s.cfg.MaxOpenTrades))
	}

	direction := req.Direction
	if direction == "" {
		direction = models.Buy
	}
	if !direction.Valid() {
		err := apperrors.NewValidationError("direction", req.Direction, "must be buy or sell")
		return models.OpenPosition{}, s.reject(ctx, notify.SeverityError, "", instrument, "open",
			err, "Direction must be buy or sell")
	}

	pos := models.OpenPosition{
		Position: models.Position{
			ID:         newTradeID(),
			Instrument: instrument,
			Direction:  direction,
			EntryTime:  s.clock.Now(),
			EntryPrice: s.prices.Price(instrument),
			Strategy:   strategy,
			Notes:      strings.TrimSpace(req.Notes),
		},
	}
	s.state.Open = append(s.state.Open, pos)
	s.dirty = true

	s.persistOpen(ctx)
	logging.LogPaperOpen(s.logger, pos.ID, instrument, string(direction), strategy, pos.EntryPrice)
	s.notify(ctx, notify.KindTrade, notify.SeveritySuccess, instrument,
		fmt.Sprintf("Trade #%d %s opened on %s", len(s.state.Open), strings.ToUpper(string(direction)), instrument))

	return pos, nil
}

// NormalizePips resolves the pips recorded for a close. A custom value has its
// sign forced by the outcome (TP positive, SL negative, BE zero); without one
// the configured defaults apply.
func NormalizePips(outcome models.Outcome, custom *float64, defaultTP, defaultSL float64) float64 {
	var pips float64
	if custom != nil && !math.IsNaN(*custom) && !math.IsInf(*custom, 0) {
		pips = *custom
		switch outcome {
		case models.OutcomeTP:
			pips = math.Abs(pips)
		case models.OutcomeSL:
			pips = -math.Abs(pips)
		case models.OutcomeBE:
			pips = 0
		}
	} else {
		switch outcome {
		case models.OutcomeTP:
			pips = defaultTP
		case models.OutcomeSL:
			pips = -defaultSL
		default:
			pips = 0
		}
	}
	if pips == 0 {
		// avoid persisting negative zero
		return 0
	}
	return pips
}

// CloseTrade closes an open position with a manual outcome. TP and SL closes
// are staged for review and only reach history through SubmitReview or
// SkipReview; BE and NO_ACTION closes are finalized immediately.
func (s *Simulator) CloseTrade(ctx context.Context, id string, outcome models.Outcome, customPips *float64) (models.ClosedPosition, error) {
	s.lock()
	defer s.unlock()
	return s.closeLocked(ctx, id, outcome, customPips)
}

// CloseWithCustomPips closes a position with a user supplied pip count. A
// missing or non-finite value is rejected without touching the position.
func (s *Simulator) CloseWithCustomPips(ctx context.Context, id string, outcome models.Outcome, pips *float64) (models.ClosedPosition, error) {
	s.lock()
	defer s.unlock()

	if pips == nil || math.IsNaN(*pips) || math.IsInf(*pips, 0) {
		instrument := ""
		if idx := s.openIndex(id); idx >= 0 {
			instrument = s.state.Open[idx].Instrument
		}
		return models.ClosedPosition{}, s.reject(ctx, notify.SeverityWarning, id, instrument, "close",
			apperrors.ErrPipsRequired, "Please enter the pips or percentage")
	}
	return s.closeLocked(ctx, id, outcome, pips)
}

func (s *Simulator) closeLocked(ctx context.Context, id string, outcome models.Outcome, customPips *float64) (models.ClosedPosition, error) {
	if !outcome.Valid() {
		return models.ClosedPosition{}, s.reject(ctx, notify.SeverityError, id, "", "close",
			apperrors.ErrInvalidOutcome, fmt.Sprintf("Unknown outcome %q", outcome))
	}

	idx := s.openIndex(id)
	if idx < 0 {
		return models.ClosedPosition{}, s.reject(ctx, notify.SeverityError, id, "", "close",
			apperrors.ErrTradeNotFound, "Trade not found")
	}

	pos := s.state.Open[idx]
	pips := NormalizePips(outcome, customPips, s.cfg.DefaultTPPips, s.cfg.DefaultSLPips)
	closed := pos.Close(s.clock.Now(), s.prices.Price(pos.Instrument), outcome, pips)

	s.removeOpen(idx)
	s.persistOpen(ctx)

	if outcome.NeedsReview() {
		s.state.Pending = append(s.state.Pending, closed)
		s.persistPending(ctx)
		s.notify(ctx, notify.KindTrade, notify.SeverityInfo, closed.Instrument,
			fmt.Sprintf("%s closed with %s, review pending", closed.Instrument, outcome.Label()))
		return closed, nil
	}

	s.finalizeLocked(ctx, closed)
	return closed, nil
}

// finalizeLocked commits a closed position to history and credits its
// strategy. History and strategies are persisted under separate keys.
func (s *Simulator) finalizeLocked(ctx context.Context, closed models.ClosedPosition) {
	s.state.History = append(s.state.History, closed)
	if i := s.strategyIndex(closed.Strategy); i >= 0 {
		s.state.Strategies[i].Record(closed.PnL)
	}
	s.dirty = true

	s.persistHistory(ctx)
	s.persistStrategies(ctx)

	logging.LogPaperClose(s.logger, closed.ID, closed.Instrument, string(closed.Outcome), closed.Pips, closed.Duration)

	severity := notify.SeveritySuccess
	if closed.PnL < 0 {
		severity = notify.SeverityError
	}
	s.notify(ctx, notify.KindTrade, severity, closed.Instrument,
		fmt.Sprintf("%s closed: %s | %s", closed.Instrument, closed.Outcome.Label(), closed.PipsLabel()))
}

func (s *Simulator) removeOpen(idx int) {
	s.state.Open = append(s.state.Open[:idx:idx], s.state.Open[idx+1:]...)
	s.dirty = true
}

func (s *Simulator) openIndex(id string) int {
	for i, p := range s.state.Open {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Resolve finds an open position by ID, instrument or unique ID prefix.
func (s *Simulator) Resolve(ref string) (models.OpenPosition, error) {
	s.lock()
	defer s.unlock()

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.OpenPosition{}, apperrors.NewTradeError("", "", "resolve", apperrors.ErrTradeNotFound)
	}
	if i := s.openIndex(ref); i >= 0 {
		return s.state.Open[i], nil
	}
	symbol := market.NormalizeSymbol(ref)
	for _, p := range s.state.Open {
		if p.Instrument == symbol {
			return p, nil
		}
	}
	var match *models.OpenPosition
	for i := range s.state.Open {
		if strings.HasPrefix(s.state.Open[i].ID, ref) {
			if match != nil {
				return models.OpenPosition{}, apperrors.NewTradeError(ref, "", "resolve",
					apperrors.Wrapf(apperrors.ErrTradeNotFound, "ambiguous prefix %q", ref))
			}
			match = &s.state.Open[i]
		}
	}
	if match == nil {
		return models.OpenPosition{}, apperrors.NewTradeError(ref, "", "resolve", apperrors.ErrTradeNotFound)
	}
	return *match, nil
}

// FloatingPips returns the unrealized pips of an open position at the
// current simulated price.
func (s *Simulator) FloatingPips(id string) (float64, error) {
	s.lock()
	defer s.unlock()

	idx := s.openIndex(id)
	if idx < 0 {
		return 0, apperrors.NewTradeError(id, "", "floating", apperrors.ErrTradeNotFound)
	}
	p := s.state.Open[idx]
	current := s.prices.Price(p.Instrument)
	return market.FloatingPips(p.Instrument, p.Direction.Sign(), p.EntryPrice, current), nil
}

// ConvertPercentToPips converts a percentage move of an open position into
// whole pips using the instrument's pip size.
func (s *Simulator) ConvertPercentToPips(id string, percent float64) (float64, error) {
	s.lock()
	defer s.unlock()

	idx := s.openIndex(id)
	if idx < 0 {
		return 0, apperrors.NewTradeError(id, "", "convert", apperrors.ErrTradeNotFound)
	}
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		return 0, apperrors.NewValidationError("percent", percent, "must be a number")
	}
	p := s.state.Open[idx]
	return market.PercentToPips(p.Instrument, p.EntryPrice, percent), nil
}

// Reset clears open positions, pending reviews and history. Strategies and
// custom instruments are kept.
func (s *Simulator) Reset(ctx context.Context) {
	s.lock()
	defer s.unlock()

	s.state.Open = nil
	s.state.Pending = nil
	s.state.History = nil
	s.dirty = true

	s.persistHistory(ctx)
	s.persistOpen(ctx)
	s.persistPending(ctx)
	s.logger.Info().Msg("Paper trading reset")
	s.notify(ctx, notify.KindInfo, notify.SeveritySuccess, "", "Paper trading reset")
}

// Elapsed returns how long a position has been open.
func (s *Simulator) Elapsed(p models.OpenPosition) time.Duration {
	return p.Elapsed(s.clock.Now())
}
