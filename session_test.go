package authclient_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/armelot/go-authclient"
)

func TestSessionStoreLoginWritesThrough(t *testing.T) {
	ctx := context.Background()
	storage := authclient.NewMemoryTokenStorage()
	store := authclient.NewSessionStore(storage).WithLogger(nopLogger{})

	token := mintToken(t, time.Now().Add(time.Hour), nil)
	require.NoError(t, store.Login(ctx, token))

	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, token, store.Token())
	require.NotNil(t, store.Claims())
	assert.Equal(t, "usr-1", store.Claims().SubjectID())

	stored, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, stored)
}

func TestSessionStoreLoginRejectsMalformedToken(t *testing.T) {
	ctx := context.Background()
	store := authclient.NewSessionStore(nil).WithLogger(nopLogger{})

	err := store.Login(ctx, "garbage")
	require.Error(t, err)
	assert.True(t, authclient.IsMalformedError(err))
	assert.False(t, store.IsAuthenticated())
}

func TestSessionStoreLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := authclient.NewMemoryTokenStorage()

	var changes []authclient.SessionSnapshot
	store := authclient.NewSessionStore(storage).
		WithLogger(nopLogger{}).
		WithOnChange(func(s authclient.SessionSnapshot) {
			changes = append(changes, s)
		})

	token := mintToken(t, time.Now().Add(time.Hour), nil)
	require.NoError(t, store.Login(ctx, token))

	store.Logout(ctx)
	store.Logout(ctx)
	store.Logout(ctx)

	// one login change, one logout change; repeated teardown has no effect
	require.Len(t, changes, 2)
	assert.True(t, changes[0].Authenticated)
	assert.False(t, changes[1].Authenticated)

	stored, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSessionStoreUpdateIdentity(t *testing.T) {
	ctx := context.Background()
	store := authclient.NewSessionStore(nil).WithLogger(nopLogger{})

	token := mintToken(t, time.Now().Add(time.Hour), nil)
	require.NoError(t, store.Login(ctx, token))

	store.UpdateIdentity(map[string]any{
		"name":       "Pepe R.",
		"email":      "pepe@example.com",
		"department": "identity",
	})

	claims := store.Claims()
	require.NotNil(t, claims)
	assert.Equal(t, "Pepe R.", claims.Name)
	assert.Equal(t, "pepe@example.com", claims.Email)
	assert.Equal(t, "identity", claims.Metadata["department"])

	// the token itself is untouched
	assert.Equal(t, token, store.Token())
}

func TestSessionStoreUpdateIdentityWithoutSession(t *testing.T) {
	store := authclient.NewSessionStore(nil).WithLogger(nopLogger{})

	// no panic, no phantom session
	store.UpdateIdentity(map[string]any{"name": "ghost"})
	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.Claims())
}

func TestSessionStoreAdoptSkipsStorageWrite(t *testing.T) {
	ctx := context.Background()
	storage := authclient.NewMemoryTokenStorage()
	store := authclient.NewSessionStore(storage).WithLogger(nopLogger{})

	token := mintToken(t, time.Now().Add(time.Hour), nil)
	require.NoError(t, store.Adopt(token))

	assert.True(t, store.IsAuthenticated())
	stored, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSessionStoreSnapshotConsistency(t *testing.T) {
	ctx := context.Background()
	store := authclient.NewSessionStore(nil).WithLogger(nopLogger{})

	snap := store.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.Claims)

	token := mintToken(t, time.Now().Add(time.Hour), nil)
	require.NoError(t, store.Login(ctx, token))

	snap = store.Snapshot()
	assert.True(t, snap.Authenticated)
	assert.Equal(t, token, snap.Token)
	require.NotNil(t, snap.Claims)
	assert.Equal(t, snap.Claims.SubjectID(), "usr-1")
}
