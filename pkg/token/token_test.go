package token

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestManagerIssueAndParse(t *testing.T) {
	manager := NewManager("secret", time.Hour)
	userID := uuid.New()

	raw, issued, err := manager.Issue(userID, "admin")
	require.NoError(t, err)
	require.Equal(t, "ADMIN", issued.Role)
	require.NotEmpty(t, issued.ID)

	claims, err := manager.Parse(raw)
	require.NoError(t, err)
	parsedID, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, userID, parsedID)
	require.Equal(t, issued.ID, claims.ID)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestManagerRejectsExpiredAndForeignTokens(t *testing.T) {
	manager := NewManager("secret", time.Hour)
	manager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := manager.Issue(uuid.New(), "STUDENT")
	require.NoError(t, err)

	manager.now = time.Now
	_, err = manager.Parse(expired)
	require.ErrorIs(t, err, ErrInvalidToken)

	other := NewManager("other-secret", time.Hour)
	foreign, _, err := other.Issue(uuid.New(), "STUDENT")
	require.NoError(t, err)
	_, err = manager.Parse(foreign)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = manager.Parse("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestManagerRejectsNonUUIDSubject(t *testing.T) {
	manager := NewManager("secret", time.Hour)
	claims := Claims{
		Role: "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = manager.Parse(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRedisBlacklist(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	blacklist := NewRedisBlacklist(client)
	ctx := context.Background()

	revoked, err := blacklist.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, blacklist.Revoke(ctx, "abc", time.Now().Add(time.Minute)))
	revoked, err = blacklist.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	require.True(t, revoked)

	server.FastForward(2 * time.Minute)
	revoked, err = blacklist.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	require.False(t, revoked, "revocation lapses with the token")

	require.NoError(t, blacklist.Revoke(ctx, "old", time.Now().Add(-time.Minute)))
	revoked, err = blacklist.IsRevoked(ctx, "old")
	require.NoError(t, err)
	require.False(t, revoked)
}
