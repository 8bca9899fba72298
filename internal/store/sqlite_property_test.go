package store

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Feature: trading-journal, Property 3: KV round-trip consistency
//
// Property: For any key and value, saving then loading returns the same bytes,
// and saving again replaces the value (last write wins).
func TestProperty_KVRoundTripConsistency(t *testing.T) {
	stores := map[string]KV{
		"sqlite": newTestSQLiteStore(t),
		"memory": NewMemoryStore(),
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	for name, kv := range stores {
		kv := kv
		properties.Property(fmt.Sprintf("%s: save then load returns last value", name), prop.ForAll(
			func(key string, first, second []byte) bool {
				ctx := context.Background()
				key = "k_" + key

				if err := kv.Save(ctx, key, first); err != nil {
					t.Logf("Failed to save: %v", err)
					return false
				}
				if err := kv.Save(ctx, key, second); err != nil {
					t.Logf("Failed to save: %v", err)
					return false
				}
				got, err := kv.Load(ctx, key)
				if err != nil {
					t.Logf("Failed to load: %v", err)
					return false
				}
				return bytes.Equal(got, second)
			},
			gen.Identifier(),
			gen.SliceOf(gen.UInt8()),
			gen.SliceOf(gen.UInt8()),
		))
	}

	properties.TestingRun(t)
}

// Feature: trading-journal, Property 4: Prefix listing is exact
//
// Property: Keys(prefix) returns exactly the saved keys that start with the
// prefix, treating '_' literally.
func TestProperty_KeysPrefixExact(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("sqlite and memory stores agree on prefix listing", prop.ForAll(
		func(suffixes []string) bool {
			ctx := context.Background()
			sqlite := newTestSQLiteStore(t)
			memory := NewMemoryStore()

			for i, suffix := range suffixes {
				key := fmt.Sprintf("%s%d%s", KeyJournalBackup, i, suffix)
				decoy := fmt.Sprintf("tradingJournalXbackupX%d", i)
				for _, kv := range []KV{sqlite, memory} {
					if err := kv.Save(ctx, key, []byte("v")); err != nil {
						return false
					}
					if err := kv.Save(ctx, decoy, []byte("v")); err != nil {
						return false
					}
				}
			}

			a, err := sqlite.Keys(ctx, KeyJournalBackup)
			if err != nil {
				return false
			}
			b, err := memory.Keys(ctx, KeyJournalBackup)
			if err != nil {
				return false
			}
			if len(a) != len(suffixes) || len(a) != len(b) {
				t.Logf("Count mismatch: sqlite=%d memory=%d want=%d", len(a), len(b), len(suffixes))
				return false
			}
			for i := range a {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, gen.AlphaString()),
	))

	properties.TestingRun(t)
}
