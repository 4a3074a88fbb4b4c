package lobby

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testLimits() Limits {
	return Limits{
		MaxPlayers:        6,
		MaxNicknameLength: 20,
		ProfileKickAfter:  0, // timers disabled unless a test arms them
	}
}

func completeProfile(t *testing.T, r *Registry, id uuid.UUID) {
	t.Helper()
	require.NoError(t, r.SetNickname(id, "player"))
	require.NoError(t, r.SetAvatar(id, "avatar.png"))
	require.NoError(t, r.SetMusic(id, "track-1"))
}

func TestJoinAndLeave(t *testing.T) {
	r := NewRegistry(testLimits(), testLogger())

	p1 := r.Join(nil, false)
	p2 := r.Join(nil, false)
	sp := r.Join(nil, true)

	assert.Equal(t, 2, r.ActiveCount())
	assert.Len(t, r.Spectators(), 1)
	assert.Len(t, r.All(), 3)

	_, ok := r.Leave(p1.ID)
	require.True(t, ok)
	assert.Equal(t, 1, r.ActiveCount())

	active := r.ActivePlayers()
	require.Len(t, active, 1)
	assert.Equal(t, p2.ID, active[0].ID)
	assert.True(t, sp.IsSpectator)

	_, ok = r.Leave(p1.ID)
	assert.False(t, ok, "double leave must be a no-op")
}

func TestNicknameValidation(t *testing.T) {
	r := NewRegistry(testLimits(), testLogger())
	p := r.Join(nil, false)

	assert.ErrorIs(t, r.SetNickname(p.ID, "   "), ErrNicknameEmpty)
	assert.ErrorIs(t, r.SetNickname(p.ID, strings.Repeat("x", 21)), ErrNicknameTooLong)
	assert.NoError(t, r.SetNickname(p.ID, "  trimmed  "))
	assert.Equal(t, "trimmed", p.Profile.Nickname)

	assert.ErrorIs(t, r.SetNickname(uuid.New(), "ghost"), ErrUnknownPlayer)
}

func TestAllReady(t *testing.T) {
	r := NewRegistry(testLimits(), testLogger())
	assert.False(t, r.AllReady(), "an empty roster is never ready")

	p1 := r.Join(nil, false)
	p2 := r.Join(nil, false)
	sp := r.Join(nil, true)

	completeProfile(t, r, p1.ID)
	assert.False(t, r.AllReady())

	completeProfile(t, r, p2.ID)
	assert.True(t, r.AllReady(), "spectator profiles do not gate readiness")
	_ = sp
}

func TestSeatingRespectsCapacity(t *testing.T) {
	limits := testLimits()
	limits.MaxPlayers = 2
	r := NewRegistry(limits, testLogger())

	r.Join(nil, false)
	r.Join(nil, false)
	assert.False(t, r.HasSeat())

	sp := r.Join(nil, true)
	assert.False(t, r.SeatSpectator(sp.ID), "no seat while the table is full")

	promoted := r.PromoteSpectators()
	assert.Empty(t, promoted)
}

func TestPromoteSpectatorsInJoinOrder(t *testing.T) {
	limits := testLimits()
	limits.MaxPlayers = 3
	r := NewRegistry(limits, testLogger())

	r.Join(nil, false)
	sp1 := r.Join(nil, true)
	sp2 := r.Join(nil, true)
	sp3 := r.Join(nil, true)

	promoted := r.PromoteSpectators()
	assert.Equal(t, []uuid.UUID{sp1.ID, sp2.ID}, promoted)
	assert.False(t, sp1.IsSpectator)
	assert.False(t, sp2.IsSpectator)
	assert.True(t, sp3.IsSpectator, "overflow stays in the gallery")
}

func TestKickTimerFiresForIncompleteProfile(t *testing.T) {
	limits := testLimits()
	limits.ProfileKickAfter = 10 * time.Millisecond
	r := NewRegistry(limits, testLogger())

	var mu sync.Mutex
	fired := make(map[uuid.UUID]int)
	done := make(chan struct{}, 1)
	r.SetKickFunc(func(id uuid.UUID, epoch int) {
		mu.Lock()
		fired[id] = epoch
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})

	p := r.Join(nil, false)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("kick timer never fired")
	}

	mu.Lock()
	epoch, ok := fired[p.ID]
	mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, r.KickEpoch(p.ID), epoch, "a live timer's epoch matches the registry")
}

func TestCompletedProfileCancelsKick(t *testing.T) {
	limits := testLimits()
	limits.ProfileKickAfter = 20 * time.Millisecond
	r := NewRegistry(limits, testLogger())

	var mu sync.Mutex
	var firedEpoch, registryEpoch int
	var fired bool
	r.SetKickFunc(func(id uuid.UUID, epoch int) {
		mu.Lock()
		fired = true
		firedEpoch = epoch
		mu.Unlock()
	})

	p := r.Join(nil, false)
	completeProfile(t, r, p.ID)
	registryEpoch = r.KickEpoch(p.ID)

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired {
		// A timer that raced completion must carry a stale epoch, which the
		// room discards.
		assert.NotEqual(t, registryEpoch, firedEpoch)
	}
}

func TestIncompleteProfileUpdateRestartsKickTimer(t *testing.T) {
	limits := testLimits()
	limits.ProfileKickAfter = 200 * time.Millisecond
	r := NewRegistry(limits, testLogger())

	type firing struct {
		epoch int
		at    time.Time
	}
	fired := make(chan firing, 4)
	r.SetKickFunc(func(id uuid.UUID, epoch int) {
		fired <- firing{epoch: epoch, at: time.Now()}
	})

	p := r.Join(nil, false)

	// An update that leaves the profile incomplete must re-arm the timer,
	// pushing the deadline out past the original join deadline.
	time.Sleep(100 * time.Millisecond)
	updatedAt := time.Now()
	require.NoError(t, r.SetNickname(p.ID, "still-editing"))
	liveEpoch := r.KickEpoch(p.ID)

	select {
	case f := <-fired:
		assert.Equal(t, liveEpoch, f.epoch, "only the re-armed timer may fire with a live epoch")
		assert.GreaterOrEqual(t, f.at.Sub(updatedAt), limits.ProfileKickAfter,
			"the deadline must be measured from the last profile update")
	case <-time.After(2 * time.Second):
		t.Fatal("re-armed kick timer never fired")
	}
}

func TestAllReadyIgnoresDisconnectedSeats(t *testing.T) {
	r := NewRegistry(testLimits(), testLogger())
	p1 := r.Join(nil, false)
	p2 := r.Join(nil, false)

	completeProfile(t, r, p1.ID)
	require.False(t, r.AllReady(), "p2 is connected and incomplete")

	r.MarkDisconnected(p2.ID)
	assert.True(t, r.AllReady(), "a seat held for resume does not gate readiness")

	r.MarkDisconnected(p1.ID)
	assert.False(t, r.AllReady(), "a fully detached roster is never ready")
}

func TestReapDisconnectedFreesSeats(t *testing.T) {
	limits := testLimits()
	limits.MaxPlayers = 2
	r := NewRegistry(limits, testLogger())

	p1 := r.Join(nil, false)
	p2 := r.Join(nil, false)
	sp := r.Join(nil, true)
	require.False(t, r.HasSeat())

	r.MarkDisconnected(p2.ID)
	reaped := r.ReapDisconnected()
	assert.Equal(t, []uuid.UUID{p2.ID}, reaped)
	assert.True(t, r.HasSeat(), "the abandoned seat is free again")
	assert.Equal(t, 1, r.ActiveCount())

	promoted := r.PromoteSpectators()
	assert.Equal(t, []uuid.UUID{sp.ID}, promoted)
	assert.False(t, sp.IsSpectator)

	_, ok := r.Get(p1.ID)
	assert.True(t, ok, "connected seats are untouched")
	_, ok = r.Get(p2.ID)
	assert.False(t, ok)
}

func TestRejoinReattaches(t *testing.T) {
	r := NewRegistry(testLimits(), testLogger())
	p := r.Join(nil, false)
	r.MarkDisconnected(p.ID)
	assert.False(t, p.Connected)

	got, ok := r.Rejoin(p.ID, nil)
	require.True(t, ok)
	assert.True(t, got.Connected)
	assert.Equal(t, p.ID, got.ID)

	_, ok = r.Rejoin(uuid.New(), nil)
	assert.False(t, ok)
}
