package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/gitlab-import/internal/model"
	"github.com/nhle/gitlab-import/internal/store"
)

// NewTestStore opens an in-memory record store, closed when the test ends.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err, "opening record store")

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing record store: %v", err)
		}
	})

	return s
}

// SeedRecords upserts recs into s in order and fails the test on the
// first error.
func SeedRecords(t *testing.T, s store.Store, recs ...*model.HostRecord) {
	t.Helper()

	ctx := context.Background()
	for _, rec := range recs {
		require.NoError(t, s.UpsertRecord(ctx, rec), "seeding %s", rec.UniqueID)
	}
}
