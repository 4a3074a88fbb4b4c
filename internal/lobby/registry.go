package lobby

import (
	"errors"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blanco-cards/blanco/internal/models"
)

var (
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrNicknameEmpty   = errors.New("nickname cannot be empty")
	ErrNicknameTooLong = errors.New("nickname exceeds the maximum length")
)

// Limits carries the roster bounds the registry enforces.
type Limits struct {
	MaxPlayers        int
	MaxNicknameLength int
	ProfileKickAfter  time.Duration
}

// Registry tracks every identity attached to a room: active players in join
// order, spectators waiting for a seat, profile state, and the timers that
// evict identities who never complete a profile.
//
// Registry methods are not internally synchronized; the owning room
// serializes all calls. Kick timers fire on their own goroutines and only
// invoke the onKick callback, which must re-enter through the room's lock and
// validate the epoch before acting.
type Registry struct {
	limits Limits

	players map[uuid.UUID]*models.Player
	order   []uuid.UUID

	kickEpochs map[uuid.UUID]int
	kickTimers map[uuid.UUID]*time.Timer
	onKick     func(id uuid.UUID, epoch int)

	log logrus.FieldLogger
}

// NewRegistry creates an empty roster.
func NewRegistry(limits Limits, log logrus.FieldLogger) *Registry {
	return &Registry{
		limits:     limits,
		players:    make(map[uuid.UUID]*models.Player),
		kickEpochs: make(map[uuid.UUID]int),
		kickTimers: make(map[uuid.UUID]*time.Timer),
		log:        log,
	}
}

// SetKickFunc installs the callback invoked when a profile kick timer fires.
// The callback runs on the timer goroutine.
func (r *Registry) SetKickFunc(fn func(id uuid.UUID, epoch int)) {
	r.onKick = fn
}

// Join admits a new identity. Whether it seats as a player or a spectator is
// the room's call, since the registry does not know round state.
func (r *Registry) Join(conn *websocket.Conn, asSpectator bool) *models.Player {
	p := &models.Player{
		ID:          uuid.New(),
		Conn:        conn,
		IsSpectator: asSpectator,
		Connected:   true,
	}
	r.players[p.ID] = p
	r.order = append(r.order, p.ID)
	if !asSpectator {
		r.scheduleKick(p.ID)
	}
	r.log.WithFields(logrus.Fields{"player": p.ID, "spectator": asSpectator}).
		Info("identity joined lobby")
	return p
}

// Rejoin reattaches a connection to an existing identity, used by the resume
// handshake. Returns false if the identity is gone.
func (r *Registry) Rejoin(id uuid.UUID, conn *websocket.Conn) (*models.Player, bool) {
	p, ok := r.players[id]
	if !ok {
		return nil, false
	}
	p.Conn = conn
	p.Connected = true
	return p, true
}

// Leave removes an identity entirely and cancels any pending kick.
func (r *Registry) Leave(id uuid.UUID) (*models.Player, bool) {
	p, ok := r.players[id]
	if !ok {
		return nil, false
	}
	r.cancelKick(id)
	delete(r.players, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.log.WithFields(logrus.Fields{"player": id}).Info("identity left lobby")
	return p, true
}

// MarkDisconnected flags an identity as detached without removing it, so a
// resume within the grace window finds its seat intact.
func (r *Registry) MarkDisconnected(id uuid.UUID) {
	if p, ok := r.players[id]; ok {
		p.Connected = false
		p.Conn = nil
	}
}

// Get looks up one identity.
func (r *Registry) Get(id uuid.UUID) (*models.Player, bool) {
	p, ok := r.players[id]
	return p, ok
}

// SetNickname validates and applies a nickname update.
func (r *Registry) SetNickname(id uuid.UUID, nickname string) error {
	p, ok := r.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return ErrNicknameEmpty
	}
	if len([]rune(nickname)) > r.limits.MaxNicknameLength {
		return ErrNicknameTooLong
	}
	p.Profile.Nickname = nickname
	r.settleKick(p)
	return nil
}

// SetAvatar applies an avatar update.
func (r *Registry) SetAvatar(id uuid.UUID, avatar string) error {
	p, ok := r.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	p.Profile.Avatar = avatar
	r.settleKick(p)
	return nil
}

// SetMusic applies a music selection update.
func (r *Registry) SetMusic(id uuid.UUID, musicID string) error {
	p, ok := r.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	p.Profile.MusicID = musicID
	r.settleKick(p)
	return nil
}

// ActivePlayers returns the non-spectator roster in join order.
func (r *Registry) ActivePlayers() []*models.Player {
	var out []*models.Player
	for _, id := range r.order {
		if p := r.players[id]; p != nil && !p.IsSpectator {
			out = append(out, p)
		}
	}
	return out
}

// Spectators returns the spectator roster in join order.
func (r *Registry) Spectators() []*models.Player {
	var out []*models.Player
	for _, id := range r.order {
		if p := r.players[id]; p != nil && p.IsSpectator {
			out = append(out, p)
		}
	}
	return out
}

// All returns every identity in join order.
func (r *Registry) All() []*models.Player {
	out := make([]*models.Player, 0, len(r.order))
	for _, id := range r.order {
		if p := r.players[id]; p != nil {
			out = append(out, p)
		}
	}
	return out
}

// ActiveCount returns the number of seated players.
func (r *Registry) ActiveCount() int {
	n := 0
	for _, p := range r.players {
		if !p.IsSpectator {
			n++
		}
	}
	return n
}

// HasSeat reports whether another player can be seated.
func (r *Registry) HasSeat() bool {
	return r.ActiveCount() < r.limits.MaxPlayers
}

// AllReady reports whether every seated, connected player has a complete
// profile. Detached seats awaiting a resume do not gate readiness; an empty
// (or fully detached) roster is not ready.
func (r *Registry) AllReady() bool {
	connected := 0
	for _, p := range r.ActivePlayers() {
		if !p.Connected {
			continue
		}
		if !p.Profile.Complete() {
			return false
		}
		connected++
	}
	return connected > 0
}

// ReapDisconnected removes seated identities that dropped and never resumed.
// Called by the room when a round ends, before waiting spectators are seated.
func (r *Registry) ReapDisconnected() []uuid.UUID {
	var reaped []uuid.UUID
	for _, id := range append([]uuid.UUID(nil), r.order...) {
		p := r.players[id]
		if p != nil && !p.IsSpectator && !p.Connected {
			r.Leave(id)
			reaped = append(reaped, id)
		}
	}
	return reaped
}

// SeatSpectator converts one waiting spectator into a seated player, if a
// seat is free.
func (r *Registry) SeatSpectator(id uuid.UUID) bool {
	p, ok := r.players[id]
	if !ok || !p.IsSpectator || !r.HasSeat() {
		return false
	}
	p.IsSpectator = false
	if !p.Profile.Complete() {
		r.scheduleKick(id)
	}
	return true
}

// PromoteSpectators converts waiting spectators into seated players, in join
// order, until the table is full. Returns the promoted identities. Called by
// the room at round end, never mid-round.
func (r *Registry) PromoteSpectators() []uuid.UUID {
	var promoted []uuid.UUID
	for _, id := range r.order {
		p := r.players[id]
		if p == nil || !p.IsSpectator {
			continue
		}
		if !r.SeatSpectator(id) {
			break
		}
		promoted = append(promoted, id)
	}
	if len(promoted) > 0 {
		r.log.WithFields(logrus.Fields{"promoted": len(promoted)}).
			Info("spectators seated as players")
	}
	return promoted
}

// KickEpoch returns the current kick epoch for an identity. A fired timer
// whose epoch no longer matches must be ignored.
func (r *Registry) KickEpoch(id uuid.UUID) int {
	return r.kickEpochs[id]
}

// scheduleKick arms the incomplete-profile eviction timer for one identity.
// Re-arming bumps the epoch so a previously fired timer cannot act.
func (r *Registry) scheduleKick(id uuid.UUID) {
	if r.limits.ProfileKickAfter <= 0 {
		return
	}
	r.cancelKick(id)
	r.kickEpochs[id]++
	epoch := r.kickEpochs[id]
	r.kickTimers[id] = time.AfterFunc(r.limits.ProfileKickAfter, func() {
		if r.onKick != nil {
			r.onKick(id, epoch)
		}
	})
}

// settleKick restarts the eviction timer after a profile change, or cancels
// it for good once the profile is complete. An actively editing player keeps
// earning a fresh window.
func (r *Registry) settleKick(p *models.Player) {
	if p.Profile.Complete() {
		r.cancelKick(p.ID)
		return
	}
	if !p.IsSpectator {
		r.scheduleKick(p.ID)
	}
}

func (r *Registry) cancelKick(id uuid.UUID) {
	r.kickEpochs[id]++
	if t, ok := r.kickTimers[id]; ok {
		t.Stop()
		delete(r.kickTimers, id)
	}
}

// StopTimers stops every pending kick timer, used on room shutdown.
func (r *Registry) StopTimers() {
	for id, t := range r.kickTimers {
		t.Stop()
		delete(r.kickTimers, id)
	}
}
