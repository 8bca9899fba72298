// Package journal stores the trade journal document: the closed trades a
// user records by hand, their account settings and backups of both.
package journal

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
	"trading-journal/internal/stats"
	"trading-journal/internal/store"
	"trading-journal/pkg/utils"
)

// DocumentVersion is written to the metadata of new documents.
const DocumentVersion = "1.0.0"

// Metadata describes the stored document.
type Metadata struct {
	Version      string     `json:"version"`
	CreatedAt    *time.Time `json:"createdAt"`
	LastModified *time.Time `json:"lastModified"`
}

// Document is the value stored under store.KeyJournal.
type Document struct {
	Trades   []models.Trade  `json:"trades"`
	Settings models.Settings `json:"settings"`
	Metadata Metadata        `json:"metadata"`
}

// Options configures a Journal. Zero values select defaults.
type Options struct {
	Store    store.KV
	Logger   zerolog.Logger
	Settings models.Settings
	Now      func() time.Time
	Retry    utils.RetryConfig
}

// Journal is the trade journal. It is safe for concurrent use.
type Journal struct {
	mu     sync.RWMutex
	doc    Document
	kv     store.KV
	logger zerolog.Logger
	now    func() time.Time
	retry  utils.RetryConfig
}

// New creates a journal with default settings. Call Init to load the stored
// document.
func New(opts Options) *Journal {
	j := &Journal{
		kv:     opts.Store,
		logger: logging.WithComponent(opts.Logger, "journal"),
		now:    opts.Now,
		retry:  opts.Retry,
	}
	if j.kv == nil {
		j.kv = store.NewMemoryStore()
	}
	if j.now == nil {
		j.now = time.Now
	}
	if j.retry.MaxAttempts == 0 {
		j.retry = utils.DefaultRetryConfig()
	}

	settings := models.DefaultSettings()
	if opts.Settings.InitialBalance != 0 {
		settings.InitialBalance = opts.Settings.InitialBalance
	}
	if opts.Settings.Currency != "" {
		settings.Currency = opts.Settings.Currency
	}
	if opts.Settings.Theme != "" {
		settings.Theme = opts.Settings.Theme
	}
	if opts.Settings.CustomSignals != nil {
		settings.CustomSignals = opts.Settings.CustomSignals
	}
	j.doc = Document{
		Trades:   []models.Trade{},
		Settings: settings,
		Metadata: Metadata{Version: DocumentVersion},
	}
	return j
}

// Init loads the stored document, creating and saving a fresh one when none
// exists or the stored one cannot be decoded.
func (j *Journal) Init(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := j.kv.Load(ctx, store.KeyJournal)
	if apperrors.Is(err, store.ErrNotFound) {
		created := j.now()
		j.doc.Metadata.CreatedAt = &created
		j.logger.Info().Msg("Creating new trading journal")
		return j.saveLocked(ctx)
	}
	if err != nil {
		return err
	}

	var stored Document
	if err := json.Unmarshal(data, &stored); err != nil {
		return j.recoverLocked(ctx, data, apperrors.NewDataError("journal", store.KeyJournal, "corrupt document", err))
	}
	j.merge(stored)
	j.logger.Info().Int("trades", len(j.doc.Trades)).Msg("Trading journal loaded")
	return nil
}

// recoverLocked replaces an undecodable document with a fresh one. The raw
// bytes are kept under a backup key first.
func (j *Journal) recoverLocked(ctx context.Context, raw []byte, cause error) error {
	j.logger.Error().Err(cause).Msg("Trading journal is corrupt, starting a new one")

	key, err := j.nextBackupKeyLocked(ctx)
	if err == nil {
		err = j.saveRaw(ctx, key, raw)
	}
	if err != nil {
		j.logger.Warn().Err(err).Msg("Failed to back up corrupt journal")
	} else {
		j.logger.Info().Str("key", key).Msg("Corrupt journal backed up")
	}

	created := j.now()
	j.doc.Metadata.CreatedAt = &created
	if err := j.saveLocked(ctx); err != nil {
		j.logger.Warn().Err(err).Msg("Failed to save new trading journal")
	}
	return nil
}

// merge overlays a decoded document on the defaults.
func (j *Journal) merge(stored Document) {
	if stored.Trades != nil {
		j.doc.Trades = stored.Trades
	}
	if stored.Settings.Currency != "" {
		j.doc.Settings = stored.Settings
		if j.doc.Settings.CustomSignals == nil {
			j.doc.Settings.CustomSignals = []string{}
		}
	}
	if stored.Metadata.Version != "" {
		j.doc.Metadata = stored.Metadata
	}
}

func (j *Journal) saveLocked(ctx context.Context) error {
	modified := j.now()
	j.doc.Metadata.LastModified = &modified
	return j.saveValue(ctx, store.KeyJournal, j.doc)
}

func (j *Journal) saveValue(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode journal")
	}
	return j.saveRaw(ctx, key, data)
}

func (j *Journal) saveRaw(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	err := utils.Retry(ctx, j.retry, func() error {
		return j.kv.Save(ctx, key, data)
	})
	logging.LogStoreCall(j.logger, "save", key, time.Since(start), err)
	return err
}

func newTradeID() string {
	return "trade_" + uuid.NewString()
}

// normalize cleans user input before validation.
func normalize(t *models.Trade) {
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	t.Date = strings.TrimSpace(t.Date)
	if t.Signals == nil {
		t.Signals = []string{}
	}
	if !isFinite(t.PnL) {
		return
	}
	t.PnL = decimal.NewFromFloat(t.PnL).Round(2).InexactFloat64()
}

// AddTrade validates t, assigns an ID and timestamps and appends it.
func (j *Journal) AddTrade(ctx context.Context, t models.Trade) (models.Trade, error) {
	normalize(&t)
	if err := t.Validate(); err != nil {
		return models.Trade{}, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	t.ID = newTradeID()
	t.CreatedAt = now
	t.UpdatedAt = now
	j.doc.Trades = append(j.doc.Trades, t)

	logging.LogJournalChange(j.logger, "add", t.ID, t.Symbol)
	return t, j.saveLocked(ctx)
}

// UpdateTrade replaces the trade with the given ID. The ID and creation
// time are preserved.
func (j *Journal) UpdateTrade(ctx context.Context, id string, t models.Trade) (models.Trade, error) {
	normalize(&t)
	if err := t.Validate(); err != nil {
		return models.Trade{}, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	idx := j.indexLocked(id)
	if idx < 0 {
		return models.Trade{}, apperrors.NewTradeError(id, "", "update", apperrors.ErrTradeNotFound)
	}
	t.ID = id
	t.CreatedAt = j.doc.Trades[idx].CreatedAt
	t.UpdatedAt = j.now()
	j.doc.Trades[idx] = t

	logging.LogJournalChange(j.logger, "update", id, t.Symbol)
	return t, j.saveLocked(ctx)
}

// DeleteTrade removes and returns the trade with the given ID.
func (j *Journal) DeleteTrade(ctx context.Context, id string) (models.Trade, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	idx := j.indexLocked(id)
	if idx < 0 {
		return models.Trade{}, apperrors.NewTradeError(id, "", "delete", apperrors.ErrTradeNotFound)
	}
	deleted := j.doc.Trades[idx]
	j.doc.Trades = append(j.doc.Trades[:idx:idx], j.doc.Trades[idx+1:]...)

	logging.LogJournalChange(j.logger, "delete", id, deleted.Symbol)
	return deleted, j.saveLocked(ctx)
}

// GetTrade returns the trade with the given ID.
func (j *Journal) GetTrade(id string) (models.Trade, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	idx := j.indexLocked(id)
	if idx < 0 {
		return models.Trade{}, apperrors.NewTradeError(id, "", "get", apperrors.ErrTradeNotFound)
	}
	return j.doc.Trades[idx], nil
}

func (j *Journal) indexLocked(id string) int {
	for i, t := range j.doc.Trades {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Trades returns a copy of every trade in insertion order.
func (j *Journal) Trades() []models.Trade {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]models.Trade(nil), j.doc.Trades...)
}

// Metadata returns the document metadata.
func (j *Journal) Metadata() Metadata {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.doc.Metadata
}

// Settings returns the account settings.
func (j *Journal) Settings() models.Settings {
	j.mu.RLock()
	defer j.mu.RUnlock()
	s := j.doc.Settings
	s.CustomSignals = append([]string{}, s.CustomSignals...)
	return s
}

// SettingsPatch lists the settings to change. Nil fields are left alone.
type SettingsPatch struct {
	InitialBalance *float64
	Currency       *string
	Theme          *string
	CustomSignals  []string
}

// UpdateSettings merges patch into the settings.
func (j *Journal) UpdateSettings(ctx context.Context, patch SettingsPatch) (models.Settings, error) {
	if patch.InitialBalance != nil {
		if !isFinite(*patch.InitialBalance) || *patch.InitialBalance < 0 {
			return models.Settings{}, apperrors.NewValidationError("initialBalance", *patch.InitialBalance,
				"must be a non-negative number")
		}
	}
	if patch.Currency != nil && strings.TrimSpace(*patch.Currency) == "" {
		return models.Settings{}, apperrors.NewValidationError("currency", *patch.Currency, "is required")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	s := &j.doc.Settings
	if patch.InitialBalance != nil {
		s.InitialBalance = *patch.InitialBalance
	}
	if patch.Currency != nil {
		s.Currency = strings.ToUpper(strings.TrimSpace(*patch.Currency))
	}
	if patch.Theme != nil {
		s.Theme = *patch.Theme
	}
	if patch.CustomSignals != nil {
		s.CustomSignals = append([]string{}, patch.CustomSignals...)
	}

	j.logger.Info().Float64("initial_balance", s.InitialBalance).Str("currency", s.Currency).Msg("Settings updated")
	return *s, j.saveLocked(ctx)
}

// Stats computes the statistics of every trade.
func (j *Journal) Stats() stats.Stats {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return stats.Compute(j.doc.Trades, j.doc.Settings)
}

// StatsFor computes statistics over a filtered subset of the trades.
func (j *Journal) StatsFor(f Filter) stats.Stats {
	trades := j.Filter(f)
	return stats.Compute(trades, j.Settings())
}
