package testsupport

import (
	"context"
	"testing"

	"subforge/internal/config"
	"subforge/internal/ledger"
)

// MustOpenLedger opens a ledger.Store for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedStatus upserts one status row and fails the test on error.
func SeedStatus(t testing.TB, store *ledger.Store, status ledger.Status) {
	t.Helper()

	if err := store.Upsert(context.Background(), status); err != nil {
		t.Fatalf("ledger.Upsert: %v", err)
	}
}
