package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	repo, err := NewMemoryUserRepoFromSeeds([]OperatorSeed{
		{Username: "Builder", PasswordHash: hash, Admin: true},
	})
	require.NoError(t, err)

	a, err := NewAuthenticator(repo, []byte(strings.Repeat("k", 32)), time.Minute)
	require.NoError(t, err)
	return a
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "pw"))
	assert.False(t, CheckPassword(hash, "PW"))
}

func TestLoginAndValidate(t *testing.T) {
	a := newTestAuthenticator(t)

	token, user, err := a.Login("builder", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Builder", user.Username)
	assert.False(t, user.LastLogin.IsZero())

	// Проверяем, что токен содержит точки (разделители частей JWT)
	assert.Equal(t, 2, strings.Count(token, "."))

	claims, err := a.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "Builder", claims.Subject)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a := newTestAuthenticator(t)

	_, _, err := a.Login("builder", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = a.Login("nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateJWT_Rejects(t *testing.T) {
	a := newTestAuthenticator(t)
	user, err := a.repo.GetUserByUsername("builder")
	require.NoError(t, err)

	token, err := a.GenerateJWT(user)
	require.NoError(t, err)

	t.Run("Tampered", func(t *testing.T) {
		_, err := a.ValidateJWT(token + "x")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Other secret", func(t *testing.T) {
		other, err := NewAuthenticator(a.repo, []byte(strings.Repeat("z", 32)), time.Minute)
		require.NoError(t, err)
		_, err = other.ValidateJWT(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { a.now = time.Now }()
		_, err := a.ValidateJWT(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := a.ValidateJWT("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewAuthenticator_Secret(t *testing.T) {
	repo := NewMemoryUserRepo()

	_, err := NewAuthenticator(repo, []byte("short"), time.Minute)
	assert.Error(t, err)

	a, err := NewAuthenticator(repo, nil, 0)
	require.NoError(t, err)
	assert.Len(t, a.secret, 32)
	assert.Equal(t, time.Hour, a.TokenExpiry())
}

func TestDecodeSecret(t *testing.T) {
	s := GenerateSecureSecret()
	b, err := DecodeSecret(s)
	require.NoError(t, err)
	assert.Len(t, b, 32)

	b, err = DecodeSecret("")
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = DecodeSecret("!!!")
	assert.Error(t, err)
}

func TestMemoryUserRepo(t *testing.T) {
	repo := NewMemoryUserRepo()

	u, err := repo.CreateUser("Alice", "hash", false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.ID)

	_, err = repo.CreateUser("alice", "hash", false)
	assert.ErrorIs(t, err, ErrUserExists)

	got, err := repo.GetUserByID(1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Username)

	_, err = repo.GetUserByID(7)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = NewMemoryUserRepoFromSeeds([]OperatorSeed{{Username: "x"}})
	assert.Error(t, err)
}
