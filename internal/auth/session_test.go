package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	MemoryStore
	err error
}

func (f *failingStore) SaveToken(context.Context, string) error { return f.err }
func (f *failingStore) DeleteToken(context.Context) error       { return f.err }

func TestOpenSession_RestoresToken(t *testing.T) {
	store := &MemoryStore{token: "persisted"}

	s, err := OpenSession(context.Background(), store)
	require.NoError(t, err)

	assert.True(t, s.HasToken())
	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "persisted", tok.AccessToken)
}

func TestToken_EmptySession(t *testing.T) {
	s, err := OpenSession(context.Background(), &MemoryStore{})
	require.NoError(t, err)

	assert.False(t, s.HasToken())
	_, err = s.Token()
	assert.ErrorIs(t, err, ErrNoToken)
}

// SetAuthHeader is what the API client relies on; make sure the token the
// session produces formats as a bearer header.
func TestToken_FormatsBearerHeader(t *testing.T) {
	s, _ := OpenSession(context.Background(), &MemoryStore{})
	require.NoError(t, s.SetToken(context.Background(), "abc"))

	tok, err := s.Token()
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	tok.SetAuthHeader(req)
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
}

func TestSetToken_PersistsAndClears(t *testing.T) {
	ctx := context.Background()
	store := &MemoryStore{}
	s, _ := OpenSession(ctx, store)

	require.NoError(t, s.SetToken(ctx, "tok"))
	stored, _ := store.GetToken(ctx)
	assert.Equal(t, "tok", stored)

	require.NoError(t, s.Clear(ctx))
	stored, _ = store.GetToken(ctx)
	assert.Empty(t, stored)
	assert.False(t, s.HasToken())
}

func TestSetToken_RejectsEmpty(t *testing.T) {
	s, _ := OpenSession(context.Background(), &MemoryStore{})
	assert.Error(t, s.SetToken(context.Background(), ""))
}

func TestSetToken_StoreFailureKeepsOldToken(t *testing.T) {
	store := &failingStore{err: errors.New("disk full")}
	store.token = "old"
	s, _ := OpenSession(context.Background(), store)

	err := s.SetToken(context.Background(), "new")
	require.Error(t, err)

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "old", tok.AccessToken)

	require.Error(t, s.Clear(context.Background()))
	assert.True(t, s.HasToken())
}
