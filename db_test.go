package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo_TokenRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "calview.db")
	repo, err := NewRepo(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	token, err := repo.LoadToken()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, repo.SaveToken("first"))
	require.NoError(t, repo.SaveToken("second"))

	token, err = repo.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "second", token)

	require.NoError(t, repo.ClearToken())
	token, err = repo.LoadToken()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestRepo_TokenSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "calview.db")

	repo, err := NewRepo(dbPath)
	require.NoError(t, err)
	require.NoError(t, repo.SaveToken(testToken))
	require.NoError(t, repo.Close())

	repo, err = NewRepo(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	token, err := repo.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, testToken, token)
}

func TestMemoryTokenStore(t *testing.T) {
	var store TokenStore = &MemoryTokenStore{}

	token, err := store.LoadToken()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.SaveToken(testToken))
	token, _ = store.LoadToken()
	assert.Equal(t, testToken, token)

	require.NoError(t, store.ClearToken())
	token, _ = store.LoadToken()
	assert.Empty(t, token)
}

func TestSession_PersistsThroughRepo(t *testing.T) {
	_, srv := newFakeAPI(t)
	dbPath := filepath.Join(t.TempDir(), "calview.db")

	repo, err := NewRepo(dbPath)
	require.NoError(t, err)
	session := NewSession(newTestClient(srv, nil), repo, discardLogger())
	_, err = session.Login(t.Context(), testUser, testPassword)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// a later run picks the session up again
	repo, err = NewRepo(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	restored := NewSession(newTestClient(srv, nil), repo, discardLogger())
	require.NoError(t, restored.Restore())
	assert.Equal(t, testToken, restored.Token())
}
