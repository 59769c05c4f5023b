package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retention-cli/internal/cache"
	"github.com/sells-group/retention-cli/internal/config"
	"github.com/sells-group/retention-cli/internal/store"
)

// withConfig installs the default configuration with a temp SQLite store
// for the duration of the test.
func withConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	c, err := config.Load()
	require.NoError(t, err)
	c.Store.DatabaseURL = filepath.Join(dir, "retention.db")

	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
	return c
}

func TestInitStore_SQLite(t *testing.T) {
	withConfig(t)

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	_, ok := st.(*store.SQLiteStore)
	assert.True(t, ok)
}

func TestInitStore_None(t *testing.T) {
	c := withConfig(t)
	c.Store.Driver = "none"

	st, err := initStore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestInitStore_Unsupported(t *testing.T) {
	c := withConfig(t)
	c.Store.Driver = "mysql"

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitCache_Backends(t *testing.T) {
	c := withConfig(t)
	ctx := context.Background()

	c.Cache.Backend = cache.BackendMemory
	got, closeFn, err := initCache(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, closeFn)
	assert.IsType(t, &cache.Memory{}, got)

	c.Cache.Backend = cache.BackendNone
	got, _, err = initCache(ctx, nil)
	require.NoError(t, err)
	assert.IsType(t, cache.Nop{}, got)

	st, err := initStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	c.Cache.Backend = cache.BackendStore
	got, _, err = initCache(ctx, st)
	require.NoError(t, err)
	assert.IsType(t, &cache.StoreCache{}, got)
}

func TestInitCache_Errors(t *testing.T) {
	c := withConfig(t)
	ctx := context.Background()

	c.Cache.Backend = cache.BackendStore
	_, _, err := initCache(ctx, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a store driver")

	c.Cache.Backend = cache.BackendRedis
	c.Cache.RedisURL = "not a url"
	_, _, err = initCache(ctx, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis url")
}

func TestInitLoader(t *testing.T) {
	c := withConfig(t)
	ctx := context.Background()

	loader, err := initLoader(ctx, cache.Nop{})
	require.NoError(t, err)
	assert.Nil(t, loader, "no spreadsheet configured")

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	c.Sheets.SpreadsheetID = "sheet-id"
	c.Sheets.Endpoint = srv.URL

	loader, err = initLoader(ctx, cache.Nop{})
	require.NoError(t, err)
	require.NotNil(t, loader)

	// The fake endpoint 404s, which the loader reports as no data.
	assert.Equal(t, 0, loader.Load(ctx, "2024").Len())
}

func TestInitEnv_ServesHealth(t *testing.T) {
	withConfig(t)

	env, err := initEnv(context.Background())
	require.NoError(t, err)
	defer env.Close()

	require.NotNil(t, env.Analyzer)
	require.NotNil(t, env.Store)
	assert.Nil(t, env.Loader)

	srv := httptest.NewServer(newServer(env).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/v1/runs")
	require.NoError(t, err)
	defer resp2.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestInitEnv_NoStore(t *testing.T) {
	c := withConfig(t)
	c.Store.Driver = "none"

	env, err := initEnv(context.Background())
	require.NoError(t, err)
	defer env.Close()

	assert.Nil(t, env.Store)
	assert.NotNil(t, env.Analyzer)
}

func TestServerPort(t *testing.T) {
	c := withConfig(t)
	c.Server.Port = 9090

	assert.Equal(t, 9090, serverPort())

	servePort = 7070
	t.Cleanup(func() { servePort = 0 })
	assert.Equal(t, 7070, serverPort())
}

func TestNewRouter(t *testing.T) {
	withConfig(t)
	r := newRouter()
	assert.NotNil(t, r.HTTP)
	assert.NotNil(t, r.FTP)
}
