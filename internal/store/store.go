// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when a key has never been saved.
var ErrNotFound = errors.New("key not found")

// Keys under which the journal and the paper trading simulator persist state.
const (
	KeyJournal           = "tradingJournal"
	KeyJournalBackup     = "tradingJournal_backup_"
	KeyPaperHistory      = "paperTrades"
	KeyPaperOpen         = "activePaperTrades"
	KeyPaperPending      = "pendingPaperReviews"
	KeyPaperStrategies   = "paperStrategies"
	KeyCustomInstruments = "customInstruments"
)

// KV defines a last-write-wins key-value store of serialized documents.
// Writes to different keys are independent; there are no multi-key
// transactions.
type KV interface {
	// Load returns the stored value or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists the stored keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
