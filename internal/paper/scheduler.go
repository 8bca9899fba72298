package paper

import (
	"context"
	"fmt"
	"time"

	"trading-journal/internal/models"
	"trading-journal/internal/notify"
)

// TickReport lists the positions a Tick acted on.
type TickReport struct {
	Warned  []string
	Expired []models.ClosedPosition
}

// Tick evaluates every open position once. A position past WarningAfter is
// warned about exactly once; a position past MaxDuration is then closed with
// NO_ACTION and finalized without review. The recorded exit time is the
// deadline itself so a late tick does not stretch the duration.
func (s *Simulator) Tick(ctx context.Context) TickReport {
	s.lock()
	defer s.unlock()

	var report TickReport
	now := s.clock.Now()

	var expired []int
	for i := range s.state.Open {
		p := &s.state.Open[i]
		elapsed := p.Elapsed(now)
		// A position first seen past its deadline still gets its warning
		// ahead of the auto-close.
		if elapsed >= s.cfg.WarningAfter && !p.WarningShown {
			p.WarningShown = true
			s.dirty = true
			report.Warned = append(report.Warned, p.ID)
			remaining := s.cfg.MaxDuration - elapsed
			s.notify(ctx, notify.KindAlert, notify.SeverityWarning, p.Instrument,
				fmt.Sprintf("%s will close in %s", p.Instrument, remainingLabel(remaining)))
		}
		if elapsed >= s.cfg.MaxDuration {
			expired = append(expired, i)
		}
	}

	if len(report.Warned) > 0 && len(expired) == 0 {
		s.persistOpen(ctx)
	}

	// Walk backwards so earlier indexes stay valid.
	for j := len(expired) - 1; j >= 0; j-- {
		idx := expired[j]
		p := s.state.Open[idx]
		exit := p.EntryTime.Add(s.cfg.MaxDuration)
		closed := p.Close(exit, s.prices.Price(p.Instrument), models.OutcomeNoAction, 0)
		s.removeOpen(idx)
		report.Expired = append([]models.ClosedPosition{closed}, report.Expired...)
	}
	if len(expired) > 0 {
		s.persistOpen(ctx)
		for _, closed := range report.Expired {
			s.notify(ctx, notify.KindAlert, notify.SeverityWarning, closed.Instrument,
				fmt.Sprintf("%s closed automatically (%s)", closed.Instrument, hoursLabel(s.cfg.MaxDuration)))
			s.finalizeLocked(ctx, closed)
		}
	}

	return report
}

// Run drives Tick at the configured interval until ctx is done.
func (s *Simulator) Run(ctx context.Context) error {
	interval := s.cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("Paper trading scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Paper trading scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

func remainingLabel(d time.Duration) string {
	minutes := int(d.Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

func hoursLabel(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d.Hours())
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return models.FormatDuration(d)
}
