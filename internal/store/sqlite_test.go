package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retention-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_ListRuns_NewestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }

	first, err := st.CreateRun(ctx, model.RunSource{Kind: model.SourceUpload, Name: "feb.csv"})
	require.NoError(t, err)
	clock = clock.Add(time.Hour)
	second, err := st.CreateRun(ctx, model.RunSource{Kind: model.SourceUpload, Name: "mar.csv"})
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.True(t, runs[0].CreatedAt.Equal(clock))
}

func TestSQLite_SheetCache_ExpiresWithClock(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }

	require.NoError(t, st.SetCachedSheet(ctx, "k", [][]string{{"x"}}, 10*time.Minute))

	clock = clock.Add(9 * time.Minute)
	got, err := st.GetCachedSheet(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x"}}, got)

	clock = clock.Add(2 * time.Minute)
	got, err = st.GetCachedSheet(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := st.DeleteExpiredSheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_DeleteCachedSheet_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.DeleteCachedSheet(context.Background(), "never-set"))
}

func TestSQLite_ClosedDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "closed.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = st.CreateRun(context.Background(), model.RunSource{Kind: model.SourceUpload, Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: insert run")

	_, err = st.GetCachedSheet(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: get cached sheet")
}
