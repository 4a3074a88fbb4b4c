package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ResumeClaims bind a signed resume token to one identity in one room, so a
// reconnecting client can reclaim its seat instead of joining as a stranger.
type ResumeClaims struct {
	PlayerID string `json:"playerId"`
	RoomID   string `json:"roomId"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("resume token is not valid")

// TokenIssuer signs and verifies resume tokens with a shared HMAC secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer. TTL bounds how long a dropped client may
// wait before its token expires along with its seat claim.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a resume token for one identity in one room.
func (t *TokenIssuer) Issue(playerID, roomID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &ResumeClaims{
		PlayerID: playerID.String(),
		RoomID:   roomID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses a resume token and returns the identity and room it was
// issued for.
func (t *TokenIssuer) Verify(raw string) (playerID, roomID uuid.UUID, err error) {
	claims := &ResumeClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}
	playerID, err = uuid.Parse(claims.PlayerID)
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}
	roomID, err = uuid.Parse(claims.RoomID)
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}
	return playerID, roomID, nil
}
