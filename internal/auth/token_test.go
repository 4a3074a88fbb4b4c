package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	playerID := uuid.New()
	roomID := uuid.New()

	token, err := issuer.Issue(playerID, roomID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	gotPlayer, gotRoom, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, playerID, gotPlayer)
	assert.Equal(t, roomID, gotRoom)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Hour)
	token, err := issuer.Issue(uuid.New(), uuid.New())
	require.NoError(t, err)

	other := NewTokenIssuer("secret-b", time.Hour)
	_, _, err = other.Verify(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)
	token, err := issuer.Issue(uuid.New(), uuid.New())
	require.NoError(t, err)

	_, _, err = issuer.Verify(token)
	assert.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	_, _, err := issuer.Verify("not-a-token")
	assert.Error(t, err)
}
