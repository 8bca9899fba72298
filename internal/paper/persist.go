package paper

import (
	"context"
	"encoding/json"
	"time"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
	"trading-journal/internal/store"
	"trading-journal/pkg/utils"
)

// Load restores state from the store. Missing keys keep their defaults and
// undecodable values are logged and ignored, so Load only fails when the
// store itself cannot be read.
func (s *Simulator) Load(ctx context.Context) error {
	s.lock()
	defer s.unlock()

	var firstErr error
	load := func(key string, dst interface{}) bool {
		data, err := s.kv.Load(ctx, key)
		if err != nil {
			if apperrors.Is(err, store.ErrNotFound) {
				return false
			}
			s.logger.Error().Err(err).Str("key", key).Msg("Failed to read paper trading state")
			if firstErr == nil {
				firstErr = err
			}
			return false
		}
		if err := json.Unmarshal(data, dst); err != nil {
			s.logger.Error().
				Err(apperrors.NewDataError("paper", key, "corrupt value", err)).
				Msg("Ignoring unreadable paper trading state")
			return false
		}
		return true
	}

	var history []models.ClosedPosition
	if load(store.KeyPaperHistory, &history) {
		s.state.History = history
	}
	var open []models.OpenPosition
	if load(store.KeyPaperOpen, &open) {
		s.state.Open = open
	}
	var pending []models.ClosedPosition
	if load(store.KeyPaperPending, &pending) {
		s.state.Pending = pending
	}
	var strategies []models.Strategy
	if load(store.KeyPaperStrategies, &strategies) && len(strategies) > 0 {
		s.state.Strategies = strategies
	}
	var instruments []string
	if load(store.KeyCustomInstruments, &instruments) {
		s.state.CustomInstruments = instruments
	}

	s.logger.Info().
		Int("open", len(s.state.Open)).
		Int("history", len(s.state.History)).
		Int("pending", len(s.state.Pending)).
		Int("strategies", len(s.state.Strategies)).
		Msg("Paper trading state loaded")
	s.dirty = true
	return firstErr
}

func (s *Simulator) persistHistory(ctx context.Context) {
	s.saveJSON(ctx, store.KeyPaperHistory, nonNil(s.state.History))
}

func (s *Simulator) persistOpen(ctx context.Context) {
	if len(s.state.Open) == 0 {
		s.deleteKey(ctx, store.KeyPaperOpen)
		return
	}
	s.saveJSON(ctx, store.KeyPaperOpen, s.state.Open)
}

func (s *Simulator) persistPending(ctx context.Context) {
	if len(s.state.Pending) == 0 {
		s.deleteKey(ctx, store.KeyPaperPending)
		return
	}
	s.saveJSON(ctx, store.KeyPaperPending, s.state.Pending)
}

func (s *Simulator) persistStrategies(ctx context.Context) {
	s.saveJSON(ctx, store.KeyPaperStrategies, nonNil(s.state.Strategies))
}

func (s *Simulator) persistInstruments(ctx context.Context) {
	s.saveJSON(ctx, store.KeyCustomInstruments, nonNil(s.state.CustomInstruments))
}

// saveJSON writes v under key. Failures are logged; in-memory state is kept.
func (s *Simulator) saveJSON(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to encode paper trading state")
		return
	}
	start := time.Now()
	err = utils.Retry(ctx, s.retry, func() error {
		return s.kv.Save(ctx, key, data)
	})
	logging.LogStoreCall(s.logger, "save", key, time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Paper trading state not persisted")
	}
}

func (s *Simulator) deleteKey(ctx context.Context, key string) {
	start := time.Now()
	err := utils.Retry(ctx, s.retry, func() error {
		return s.kv.Delete(ctx, key)
	})
	logging.LogStoreCall(s.logger, "delete", key, time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Paper trading state not persisted")
	}
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
