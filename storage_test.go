package authclient_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	authclient "github.com/armelot/go-authclient"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	require.NoError(t, authclient.CreateTokenTables(context.Background(), db))
	return db
}

func TestBunTokenStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	storage := authclient.NewBunTokenStorage(db, "console:token")

	// empty store loads the zero token
	token, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, storage.Save(ctx, "token-one"))
	token, err = storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-one", token)
}

func TestBunTokenStorageOverwrites(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	storage := authclient.NewBunTokenStorage(db, "console:token")

	require.NoError(t, storage.Save(ctx, "token-one"))
	require.NoError(t, storage.Save(ctx, "token-two"))

	token, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-two", token)
}

func TestBunTokenStorageClear(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	storage := authclient.NewBunTokenStorage(db, "console:token")

	require.NoError(t, storage.Save(ctx, "token-one"))
	require.NoError(t, storage.Clear(ctx))

	token, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	// clearing an empty store is fine
	require.NoError(t, storage.Clear(ctx))
}

func TestBunTokenStorageKeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	first := authclient.NewBunTokenStorage(db, "console:token")
	second := authclient.NewBunTokenStorage(db, "cli:token")

	require.NoError(t, first.Save(ctx, "token-console"))
	require.NoError(t, second.Save(ctx, "token-cli"))
	require.NoError(t, first.Clear(ctx))

	token, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-cli", token)
}

func TestMemoryTokenStorage(t *testing.T) {
	ctx := context.Background()
	storage := authclient.NewMemoryTokenStorage()

	token, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, storage.Save(ctx, "tok"))
	token, err = storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	require.NoError(t, storage.Clear(ctx))
	token, err = storage.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}
