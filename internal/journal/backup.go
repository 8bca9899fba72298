package journal

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/internal/store"
)

// KeepBackups is the number of backups retained.
const KeepBackups = 3

// Backup snapshots the current document under a timestamped key and prunes
// all but the newest KeepBackups backups.
func (j *Journal) Backup(ctx context.Context) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.backupLocked(ctx)
}

func (j *Journal) backupLocked(ctx context.Context) (string, error) {
	key, err := j.nextBackupKeyLocked(ctx)
	if err != nil {
		return "", err
	}
	if err := j.saveValue(ctx, key, j.doc); err != nil {
		return "", err
	}
	j.logger.Info().Str("key", key).Msg("Journal backup created")

	if err := j.pruneLocked(ctx); err != nil {
		j.logger.Warn().Err(err).Msg("Failed to prune old backups")
	}
	return key, nil
}

// nextBackupKeyLocked returns an unused backup key stamped with the current
// time. Two backups in the same millisecond get consecutive stamps.
func (j *Journal) nextBackupKeyLocked(ctx context.Context) (string, error) {
	stamp := j.now().UnixMilli()
	existing, err := j.kv.Keys(ctx, store.KeyJournalBackup)
	if err != nil {
		return "", err
	}
	for _, k := range existing {
		if ts, ok := backupStamp(k); ok && ts >= stamp {
			stamp = ts + 1
		}
	}
	return store.KeyJournalBackup + strconv.FormatInt(stamp, 10), nil
}

func (j *Journal) pruneLocked(ctx context.Context) error {
	keys, err := j.backupKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) <= KeepBackups {
		return nil
	}
	for _, k := range keys[KeepBackups:] {
		if err := j.kv.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// backupKeys lists backup keys newest first.
func (j *Journal) backupKeys(ctx context.Context) ([]string, error) {
	keys, err := j.kv.Keys(ctx, store.KeyJournalBackup)
	if err != nil {
		return nil, err
	}
	valid := keys[:0]
	for _, k := range keys {
		if _, ok := backupStamp(k); ok {
			valid = append(valid, k)
		}
	}
	sort.Slice(valid, func(a, b int) bool {
		ta, _ := backupStamp(valid[a])
		tb, _ := backupStamp(valid[b])
		return ta > tb
	})
	return valid, nil
}

func backupStamp(key string) (int64, bool) {
	ts, err := strconv.ParseInt(strings.TrimPrefix(key, store.KeyJournalBackup), 10, 64)
	return ts, err == nil
}

// Backups lists backup keys newest first.
func (j *Journal) Backups(ctx context.Context) ([]string, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.backupKeys(ctx)
}

// Restore replaces the document with the backup stored under key.
func (j *Journal) Restore(ctx context.Context, key string) error {
	if !strings.HasPrefix(key, store.KeyJournalBackup) {
		key = store.KeyJournalBackup + key
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := j.kv.Load(ctx, key)
	if apperrors.Is(err, store.ErrNotFound) {
		return apperrors.NewDataError("backup", key, "not found", apperrors.ErrDataNotFound)
	}
	if err != nil {
		return err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return apperrors.NewDataError("backup", key, "corrupt backup", err)
	}

	j.doc.Trades = []models.Trade{}
	j.merge(doc)
	j.logger.Info().Str("key", key).Int("trades", len(j.doc.Trades)).Msg("Journal restored from backup")
	return j.saveLocked(ctx)
}

// Clear backs up the document, then drops every trade. Settings are kept.
func (j *Journal) Clear(ctx context.Context) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	key, err := j.backupLocked(ctx)
	if err != nil {
		return "", apperrors.Wrap(err, "backup before clear failed")
	}
	j.doc.Trades = []models.Trade{}
	j.logger.Info().Msg("Journal cleared")
	return key, j.saveLocked(ctx)
}
