package auth

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func newTestSession(t *testing.T) (*Session, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewSession(store, zerolog.Nop()), store
}

func TestSession_AuthenticatedIffAccessToken(t *testing.T) {
	s, _ := newTestSession(t)
	assert.False(t, s.IsAuthenticated())

	require.NoError(t, s.SetTokens("A1", "R1"))
	assert.True(t, s.IsAuthenticated())

	require.NoError(t, s.SetTokens("", "R1"))
	assert.False(t, s.IsAuthenticated())
}

func TestSession_MutationsPersist(t *testing.T) {
	s, store := newTestSession(t)

	require.NoError(t, s.SetTokens("A1", "R1"))
	require.NoError(t, s.SetUser(User{ID: 7, Email: "ann@example.com", FirstName: "Ann"}))

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "A1", saved.AccessToken)
	assert.Equal(t, "R1", saved.RefreshToken)
	require.NotNil(t, saved.User)
	assert.Equal(t, 7, saved.User.ID)
	assert.Equal(t, 2, store.Saves())

	restored := NewSession(store, zerolog.Nop())
	require.NoError(t, restored.Restore())
	assert.Equal(t, s.Snapshot(), restored.Snapshot())
}

func TestSession_LogoutClearsEverything(t *testing.T) {
	s, store := newTestSession(t)
	require.NoError(t, s.SetTokens("A1", "R1"))
	require.NoError(t, s.SetUser(User{Email: "ann@example.com"}))

	require.NoError(t, s.Logout())

	assert.Equal(t, State{}, s.Snapshot())
	assert.False(t, s.IsAuthenticated())
	saved, _ := store.Load()
	assert.Equal(t, State{}, saved)
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.SetUser(User{FirstName: "Ann"}))

	snap := s.Snapshot()
	snap.User.FirstName = "Mallory"

	assert.Equal(t, "Ann", s.User().FirstName)
}

func TestSession_ApplyRefresh(t *testing.T) {
	t.Run("keeps refresh credential when not rotated", func(t *testing.T) {
		s, _ := newTestSession(t)
		require.NoError(t, s.SetTokens("A1", "R1"))

		applied, err := s.ApplyRefresh("R1", "A2", "")
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, "A2", s.AccessToken())
		assert.Equal(t, "R1", s.RefreshToken())
	})

	t.Run("uses rotated refresh credential", func(t *testing.T) {
		s, _ := newTestSession(t)
		require.NoError(t, s.SetTokens("A1", "R1"))

		applied, err := s.ApplyRefresh("R1", "A2", "R2")
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, "R2", s.RefreshToken())
	})

	t.Run("ignored after logout", func(t *testing.T) {
		s, _ := newTestSession(t)
		require.NoError(t, s.SetTokens("A1", "R1"))
		require.NoError(t, s.Logout())

		applied, err := s.ApplyRefresh("R1", "A2", "")
		require.NoError(t, err)
		assert.False(t, applied)
		assert.False(t, s.IsAuthenticated())
	})

	t.Run("ignored when credential was replaced", func(t *testing.T) {
		s, _ := newTestSession(t)
		require.NoError(t, s.SetTokens("A9", "R9"))

		applied, err := s.ApplyRefresh("R1", "A2", "")
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, "A9", s.AccessToken())
	})
}

func TestSession_EndIf(t *testing.T) {
	s, store := newTestSession(t)
	require.NoError(t, s.SetTokens("A1", "R1"))

	ended, err := s.EndIf("A0", "R0")
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Equal(t, "A1", s.AccessToken())

	ended, err = s.EndIf("A1", "R1")
	require.NoError(t, err)
	assert.True(t, ended)
	assert.False(t, s.IsAuthenticated())
	saved, _ := store.Load()
	assert.Equal(t, State{}, saved)

	ended, err = s.EndIf("", "")
	require.NoError(t, err)
	assert.False(t, ended, "an empty session has nothing to end")
}

func TestSession_ConcurrentMutations(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.SetTokens("A0", "R0"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.SetTokens(fmt.Sprintf("A%d", i), fmt.Sprintf("R%d", i))
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	// Access and refresh come from the same SetTokens call.
	assert.Equal(t, snap.AccessToken[1:], snap.RefreshToken[1:])
}

func TestKeyringStore_RoundTrip(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStore("staging")

	empty, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, State{}, empty)

	st := State{AccessToken: "A1", RefreshToken: "R1", User: &User{Email: "ann@example.com"}}
	require.NoError(t, store.Save(st))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, st, got)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	got, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, State{}, got)
}

func TestStoreKey(t *testing.T) {
	assert.Equal(t, Namespace, StoreKey(""))
	assert.Equal(t, Namespace+"-http://localhost:8000/api", StoreKey("http://localhost:8000/api"))
	assert.NotEqual(t, StoreKey("http://localhost:8000/api"), StoreKey("https://shop.example.com/api"))
	assert.Equal(t, StoreKey("staging"), NewKeyringStore("staging").key)
}

func TestAccessExpiry(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)

	got, ok := AccessExpiry(token)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = AccessExpiry("opaque-token")
	assert.False(t, ok)
	_, ok = AccessExpiry("")
	assert.False(t, ok)
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Ann Lee", (&User{FirstName: "Ann", LastName: "Lee", Email: "a@x"}).DisplayName())
	assert.Equal(t, "a@x", (&User{Email: "a@x"}).DisplayName())
	var u *User
	assert.Equal(t, "", u.DisplayName())
}
