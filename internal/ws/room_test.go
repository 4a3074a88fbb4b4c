package ws

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blanco-cards/blanco/internal/auth"
	"github.com/blanco-cards/blanco/internal/config"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testRoom(t *testing.T) *Room {
	t.Helper()
	cfg := config.Config{
		MinPlayers:        2,
		MaxPlayers:        6,
		MaxNicknameLength: 20,
		RoundResetDelay:   time.Hour,
		ResumeTokenTTL:    time.Hour,
	}
	r := NewRoom(cfg, nil, auth.NewTokenIssuer("test-secret", time.Hour), 1, testLogger())
	t.Cleanup(r.Shutdown)
	return r
}

// seatPlayer registers an identity with an attached queue but no real
// connection; enqueued messages pile up in the client buffer for inspection.
func seatPlayer(t *testing.T, r *Room) (uuid.UUID, *client) {
	t.Helper()
	p := r.registry.Join(nil, false)
	cl := newClient(p.ID, nil, testLogger())
	r.clients[p.ID] = cl
	return p.ID, cl
}

type envelope struct {
	Type    ServerEventType `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func drain(t *testing.T, cl *client) []envelope {
	t.Helper()
	var out []envelope
	for {
		select {
		case data := <-cl.send:
			var env envelope
			require.NoError(t, json.Unmarshal(data, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func findEvent(events []envelope, typ ServerEventType) (envelope, bool) {
	for _, ev := range events {
		if ev.Type == typ {
			return ev, true
		}
	}
	return envelope{}, false
}

func TestDrawBroadcastOmitsActorFlags(t *testing.T) {
	r := testRoom(t)
	p1, cl1 := seatPlayer(t, r)
	p2, cl2 := seatPlayer(t, r)

	require.NoError(t, r.session.InitializeRound([]uuid.UUID{p1, p2}))
	drain(t, cl1)
	drain(t, cl2)

	r.handleDrawCard(p1)

	// The drawing player sees its hand and its turn entitlements.
	ownEvents := drain(t, cl1)
	_, ok := findEvent(ownEvents, EventCardDrawn)
	assert.True(t, ok, "the drawn card goes to the actor")

	ownUpdate, ok := findEvent(ownEvents, EventGameUpdate)
	require.True(t, ok)
	var private map[string]interface{}
	require.NoError(t, json.Unmarshal(ownUpdate.Payload, &private))
	assert.Contains(t, private, "playerHand")
	assert.Contains(t, private, "canDrawCard")
	assert.Contains(t, private, "canPassTurn")
	assert.Contains(t, private, "hasDrawnCard")

	// Everyone else sees only the public delta.
	otherEvents := drain(t, cl2)
	_, ok = findEvent(otherEvents, EventCardDrawn)
	assert.False(t, ok)

	otherUpdate, ok := findEvent(otherEvents, EventGameUpdate)
	require.True(t, ok)
	var shared map[string]interface{}
	require.NoError(t, json.Unmarshal(otherUpdate.Payload, &shared))
	assert.Contains(t, shared, "currentPlayer")
	assert.Contains(t, shared, "otherPlayersCards")
	assert.NotContains(t, shared, "playerHand")
	assert.NotContains(t, shared, "canDrawCard")
	assert.NotContains(t, shared, "canPassTurn")
	assert.NotContains(t, shared, "hasDrawnCard")
	assert.NotContains(t, shared, "hasSkippedTurn")
}

func TestStaleDisconnectDoesNotEvictResumedClient(t *testing.T) {
	r := testRoom(t)
	playerID, oldCl := seatPlayer(t, r)

	// A resume replaces the registered client while the first connection's
	// read loop is still winding down.
	newCl := newClient(playerID, nil, testLogger())
	r.clients[playerID] = newCl

	r.handleDisconnect(playerID, oldCl)

	assert.Same(t, newCl, r.clients[playerID], "the resumed client must survive the stale teardown")
	p, ok := r.registry.Get(playerID)
	require.True(t, ok)
	assert.True(t, p.Connected)

	// The owning client's own disconnect still tears the identity down.
	r.handleDisconnect(playerID, newCl)
	_, ok = r.clients[playerID]
	assert.False(t, ok)
	_, ok = r.registry.Get(playerID)
	assert.False(t, ok)
}
