package paper

import (
	"context"
	"fmt"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/internal/notify"
)

// PendingReview returns the position at the head of the review queue.
func (s *Simulator) PendingReview() (models.ClosedPosition, bool) {
	s.lock()
	defer s.unlock()
	if len(s.state.Pending) == 0 {
		return models.ClosedPosition{}, false
	}
	return s.state.Pending[0], true
}

// PendingReviews returns the review queue in closing order.
func (s *Simulator) PendingReviews() []models.ClosedPosition {
	s.lock()
	defer s.unlock()
	return append([]models.ClosedPosition(nil), s.state.Pending...)
}

// SubmitReview attaches a questionnaire to the position awaiting review and
// finalizes it. Only the head of the queue may be resolved.
func (s *Simulator) SubmitReview(ctx context.Context, id string, review models.TradeReview) (models.ClosedPosition, error) {
	s.lock()
	defer s.unlock()

	if err := s.checkReviewHead(ctx, id, "review"); err != nil {
		return models.ClosedPosition{}, err
	}
	if err := review.Validate(); err != nil {
		return models.ClosedPosition{}, s.reject(ctx, notify.SeverityError, id, s.state.Pending[0].Instrument,
			"review", err, "Review answers are invalid")
	}
	if review.Timestamp.IsZero() {
		review.Timestamp = s.clock.Now()
	}

	closed := s.popReview(ctx)
	closed.Review = &review
	s.finalizeLocked(ctx, closed)
	s.logger.Info().
		Str("trade_id", closed.ID).
		Str("followed_strategy", string(review.FollowedStrategy)).
		Str("emotion", string(review.Emotion)).
		Msg("Trade review submitted")
	return closed, nil
}

// SkipReview finalizes the position awaiting review without a questionnaire.
func (s *Simulator) SkipReview(ctx context.Context, id string) (models.ClosedPosition, error) {
	s.lock()
	defer s.unlock()

	if err := s.checkReviewHead(ctx, id, "skip"); err != nil {
		return models.ClosedPosition{}, err
	}
	closed := s.popReview(ctx)
	s.finalizeLocked(ctx, closed)
	return closed, nil
}

func (s *Simulator) checkReviewHead(ctx context.Context, id, action string) error {
	if len(s.state.Pending) == 0 {
		return s.reject(ctx, notify.SeverityWarning, id, "", action,
			apperrors.ErrNoPendingReview, "No trade is awaiting review")
	}
	head := s.state.Pending[0]
	if head.ID == id {
		return nil
	}
	for _, p := range s.state.Pending[1:] {
		if p.ID == id {
			return s.reject(ctx, notify.SeverityWarning, id, p.Instrument, action, apperrors.ErrReviewOutOfOrder,
				fmt.Sprintf("Review the %s trade first", head.Instrument))
		}
	}
	return s.reject(ctx, notify.SeverityError, id, "", action,
		apperrors.ErrTradeNotFound, "Trade not found")
}

func (s *Simulator) popReview(ctx context.Context) models.ClosedPosition {
	closed := s.state.Pending[0]
	s.state.Pending = append([]models.ClosedPosition(nil), s.state.Pending[1:]...)
	s.dirty = true
	s.persistPending(ctx)
	return closed
}
