package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blanco-cards/blanco/internal/auth"
	"github.com/blanco-cards/blanco/internal/config"
	"github.com/blanco-cards/blanco/internal/game"
	"github.com/blanco-cards/blanco/internal/history"
	"github.com/blanco-cards/blanco/internal/lobby"
	"github.com/blanco-cards/blanco/internal/models"
)

// Room is the orchestrator binding one game session to its roster and its
// connections. Every inbound action and every timer callback funnels through
// r.mu, so the session and registry below it never see concurrent mutation.
type Room struct {
	ID uuid.UUID

	mu       sync.Mutex
	session  *game.Session
	registry *lobby.Registry
	clients  map[uuid.UUID]*client

	historian *history.Historian
	tokens    *auth.TokenIssuer
	cfg       config.Config

	playerSeq    int
	spectatorSeq int
	actionIndex  int

	resetEpoch int
	resetTimer *time.Timer

	log logrus.FieldLogger
}

// NewRoom assembles a room with an idle session and an empty roster.
func NewRoom(cfg config.Config, historian *history.Historian, tokens *auth.TokenIssuer, seed uint64, log logrus.FieldLogger) *Room {
	r := &Room{
		ID: uuid.New(),
		registry: lobby.NewRegistry(lobby.Limits{
			MaxPlayers:        cfg.MaxPlayers,
			MaxNicknameLength: cfg.MaxNicknameLength,
			ProfileKickAfter:  cfg.ProfileKickTimeout,
		}, log),
		clients:   make(map[uuid.UUID]*client),
		historian: historian,
		tokens:    tokens,
		cfg:       cfg,
		log:       log,
	}
	r.session = game.NewSession(seed, log)
	r.registry.SetKickFunc(r.handleKickTimeout)
	return r
}

// HandleConnection runs the lifecycle of one websocket: admit (or resume) the
// identity, pump messages until the peer goes away, then detach. Blocks until
// the connection closes.
func (r *Room) HandleConnection(ctx context.Context, conn *websocket.Conn, resumeToken string) {
	playerID, cl := r.admit(ctx, conn, resumeToken)

	defer func() {
		cl.stop()
		conn.Close(websocket.StatusNormalClosure, "goodbye")
		r.handleDisconnect(playerID, cl)
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg models.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.Close(websocket.StatusPolicyViolation, "malformed message")
			return
		}
		if r.dispatch(playerID, msg) {
			r.handleLeave(playerID)
			return
		}
	}
}

// admit seats a fresh identity or reattaches a resumed one, registers the
// client, and sends the initial view.
func (r *Room) admit(ctx context.Context, conn *websocket.Conn, resumeToken string) (uuid.UUID, *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if resumeToken != "" {
		if id, cl, ok := r.resume(ctx, conn, resumeToken); ok {
			return id, cl
		}
	}

	asSpectator := r.session.InProgress() || !r.registry.HasSeat()
	p := r.registry.Join(conn, asSpectator)
	if asSpectator {
		r.spectatorSeq++
		p.Profile.Nickname = fmt.Sprintf("Spectator %d", r.spectatorSeq)
	} else {
		r.playerSeq++
		p.Profile.Nickname = fmt.Sprintf("Player %d", r.playerSeq)
	}

	cl := newClient(p.ID, conn, r.log)
	r.clients[p.ID] = cl
	go cl.writePump(ctx)

	token, err := r.tokens.Issue(p.ID, r.ID)
	if err != nil {
		r.log.WithError(err).Error("failed to issue resume token")
	}
	cl.enqueue(ServerMessage{Type: EventWelcome, Payload: WelcomePayload{
		PlayerID:    p.ID,
		ResumeToken: token,
		IsSpectator: asSpectator,
	}})

	if asSpectator && r.session.InProgress() {
		cl.enqueue(ServerMessage{Type: EventSpectatorJoined, Payload: SpectatorJoinedPayload{
			GameState: r.buildStateFor(p.ID, true),
		}})
	}
	r.broadcastLobbyUpdate()
	r.recordAction(p.ID, "join", map[string]interface{}{"spectator": asSpectator})
	return p.ID, cl
}

// resume reattaches a connection to the seat its token names. Fails closed:
// any mismatch falls back to a fresh join.
func (r *Room) resume(ctx context.Context, conn *websocket.Conn, token string) (uuid.UUID, *client, bool) {
	playerID, roomID, err := r.tokens.Verify(token)
	if err != nil || roomID != r.ID {
		return uuid.Nil, nil, false
	}
	p, ok := r.registry.Rejoin(playerID, conn)
	if !ok {
		return uuid.Nil, nil, false
	}

	if old, ok := r.clients[playerID]; ok {
		old.stop()
	}
	cl := newClient(playerID, conn, r.log)
	r.clients[playerID] = cl
	go cl.writePump(ctx)

	cl.enqueue(ServerMessage{Type: EventWelcome, Payload: WelcomePayload{
		PlayerID:    playerID,
		ResumeToken: token,
		IsSpectator: p.IsSpectator,
		Resumed:     true,
	}})
	if r.session.InProgress() {
		if p.IsSpectator {
			cl.enqueue(ServerMessage{Type: EventSpectatorJoined, Payload: SpectatorJoinedPayload{
				GameState: r.buildStateFor(playerID, true),
			}})
		} else {
			cl.enqueue(ServerMessage{Type: EventGameInitialized, Payload: r.buildStateFor(playerID, false)})
		}
	}
	r.broadcastLobbyUpdate()
	r.log.WithFields(logrus.Fields{"player": playerID}).Info("identity resumed")
	return playerID, cl, true
}

// dispatch routes one decoded client message. Returns true when the
// connection should close.
func (r *Room) dispatch(actor uuid.UUID, msg models.ClientMessage) (closeConn bool) {
	switch msg.Type {
	case models.ActionStartGame:
		r.handleStartGame(actor)
	case models.ActionPlayCard:
		var p models.PlayCardPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			r.sendError(actor, "malformed playCard payload")
			return false
		}
		r.handlePlayCard(actor, p.Card, p.SelectedColor)
	case models.ActionDrawCard:
		r.handleDrawCard(actor)
	case models.ActionPassTurn:
		r.handlePassTurn(actor)
	case models.ActionUpdateNickname, models.ActionUpdateAvatar, models.ActionUpdateMusic:
		var p models.UpdateValuePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			r.sendError(actor, "malformed profile payload")
			return false
		}
		r.handleProfileUpdate(actor, msg.Type, p.Value)
	case models.ActionRejoinLobby:
		r.handleRejoinLobby(actor)
	case models.ActionLeaveLobby:
		return true
	default:
		r.sendError(actor, fmt.Sprintf("unknown action %q", msg.Type))
	}
	return false
}

func (r *Room) handleStartGame(actor uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.registry.Get(actor); !ok {
		r.sendErrorLocked(actor, "player not found")
		return
	}

	var seating []uuid.UUID
	for _, p := range r.registry.ActivePlayers() {
		if p.Connected {
			seating = append(seating, p.ID)
		}
	}
	if !r.registry.AllReady() {
		r.sendErrorLocked(actor, game.ErrPlayersNotReady.Error())
		return
	}
	if len(seating) < r.cfg.MinPlayers {
		r.sendErrorLocked(actor, game.ErrNotEnoughPlayers.Error())
		return
	}
	if r.session.InProgress() {
		r.sendErrorLocked(actor, game.ErrRoundInProgress.Error())
		return
	}

	if err := r.session.InitializeRound(seating); err != nil {
		r.sendErrorLocked(actor, err.Error())
		return
	}

	r.broadcastLocked(ServerMessage{Type: EventGameStarted})
	for _, id := range seating {
		r.unicastLocked(id, ServerMessage{Type: EventGameInitialized, Payload: r.buildStateFor(id, false)})
	}
	for _, sp := range r.registry.Spectators() {
		r.unicastLocked(sp.ID, ServerMessage{Type: EventGameInitialized, Payload: r.buildStateFor(sp.ID, true)})
	}
	r.broadcastLobbyUpdate()
	r.recordAction(actor, string(models.ActionStartGame), map[string]interface{}{"players": len(seating)})
}

func (r *Room) handlePlayCard(actor uuid.UUID, card models.Card, selected models.CardColor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.session.PlayCard(actor, card, selected)
	if err != nil {
		r.sendErrorLocked(actor, err.Error())
		return
	}
	r.recordAction(actor, string(models.ActionPlayCard), map[string]interface{}{
		"card":  card,
		"color": string(res.ColorToPlay),
	})

	if res.Winner {
		var winnerMusic string
		if p, ok := r.registry.Get(actor); ok {
			winnerMusic = p.Profile.MusicID
		}
		r.broadcastLocked(ServerMessage{Type: EventGameUpdate, Payload: GameUpdatePayload{
			CurrentCard:       &res.CurrentCard,
			Message:           fmt.Sprintf("%s wins!", r.nickname(actor)),
			CurrentPlayer:     res.CurrentPlayer,
			OtherPlayersCards: r.session.HandCounts(),
			ColorToPlay:       res.ColorToPlay,
			Nicknames:         r.nicknames(),
			Avatars:           r.avatars(),
			GameDirection:     res.Direction,
			Winner:            actor,
			WinnerMusic:       winnerMusic,
			GameEnding:        true,
		}})
		r.scheduleRoundReset()
		return
	}

	// Plus-one and shuffle may have touched every hand, so each seated
	// player gets a fresh private view.
	for _, id := range r.session.Players() {
		r.unicastLocked(id, ServerMessage{Type: EventPlayerHandUpdate, Payload: HandPayload{
			PlayerHand: r.session.Hand(id),
		}})
	}
	r.broadcastLocked(ServerMessage{Type: EventGameUpdate, Payload: GameUpdatePayload{
		CurrentCard:       &res.CurrentCard,
		Message:           res.Message,
		CurrentPlayer:     res.CurrentPlayer,
		OtherPlayersCards: r.session.HandCounts(),
		ColorToPlay:       res.ColorToPlay,
		Nicknames:         r.nicknames(),
		Avatars:           r.avatars(),
		GameDirection:     res.Direction,
	}})
}

func (r *Room) handleDrawCard(actor uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.session.DrawForPlayer(actor)
	if err != nil {
		r.sendErrorLocked(actor, err.Error())
		return
	}
	r.recordAction(actor, string(models.ActionDrawCard), map[string]interface{}{
		"autoAdvanced": res.AutoAdvanced,
	})

	r.unicastLocked(actor, ServerMessage{Type: EventCardDrawn, Payload: res.Card})

	// Turn-entitlement flags describe the actor only; everyone else just
	// sees the pointer move and the counts change.
	shared := GameUpdatePayload{
		CurrentPlayer:     res.CurrentPlayer,
		OtherPlayersCards: r.session.HandCounts(),
		Nicknames:         r.nicknames(),
		Avatars:           r.avatars(),
		GameDirection:     r.session.Direction(),
	}
	private := shared
	private.PlayerHand = r.session.Hand(actor)
	private.CanDrawCard = boolPtr(false)
	private.CanPassTurn = boolPtr(res.CanPass)
	private.HasDrawnCard = boolPtr(!res.AutoAdvanced)
	private.HasSkippedTurn = boolPtr(false)

	r.unicastLocked(actor, ServerMessage{Type: EventGameUpdate, Payload: private})
	r.broadcastExceptLocked(actor, ServerMessage{Type: EventGameUpdate, Payload: shared})
}

func (r *Room) handlePassTurn(actor uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.session.PassTurn(actor); err != nil {
		r.sendErrorLocked(actor, err.Error())
		return
	}
	r.recordAction(actor, string(models.ActionPassTurn), nil)

	r.broadcastLocked(ServerMessage{Type: EventGameUpdate, Payload: GameUpdatePayload{
		CurrentPlayer:  r.session.CurrentPlayer(),
		Message:        fmt.Sprintf("%s passed their turn", r.nickname(actor)),
		Nicknames:      r.nicknames(),
		Avatars:        r.avatars(),
		CanPassTurn:    boolPtr(false),
		HasSkippedTurn: boolPtr(true),
		HasDrawnCard:   boolPtr(false),
	}})
}

func (r *Room) handleProfileUpdate(actor uuid.UUID, action models.ActionType, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	switch action {
	case models.ActionUpdateNickname:
		err = r.registry.SetNickname(actor, value)
	case models.ActionUpdateAvatar:
		err = r.registry.SetAvatar(actor, value)
	case models.ActionUpdateMusic:
		err = r.registry.SetMusic(actor, value)
	}
	if err != nil {
		r.sendErrorLocked(actor, err.Error())
		return
	}
	r.broadcastLobbyUpdate()
	r.recordAction(actor, string(action), map[string]interface{}{"value": value})
}

// handleRejoinLobby seats a spectator as a player between rounds.
func (r *Room) handleRejoinLobby(actor uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session.InProgress() {
		r.sendErrorLocked(actor, game.ErrRoundInProgress.Error())
		return
	}
	if r.registry.SeatSpectator(actor) {
		r.broadcastLobbyUpdate()
		r.recordAction(actor, string(models.ActionRejoinLobby), nil)
	}
}

// handleLeave removes an identity that asked to go, aborting the round if
// the table thins below the minimum.
func (r *Room) handleLeave(playerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.registry.Leave(playerID)
	if !ok {
		return
	}
	delete(r.clients, playerID)
	r.recordAction(playerID, string(models.ActionLeaveLobby), nil)

	if r.session.InProgress() && !p.IsSpectator && r.connectedSeatedCount() < r.cfg.MinPlayers {
		r.endRoundEarly("not_enough_players")
		return
	}
	r.broadcastLobbyUpdate()
}

// handleDisconnect detaches a connection. Mid-round the seat is held for a
// resume; otherwise the identity leaves the lobby entirely. A stale caller
// whose client was already superseded by a resume is a no-op, so the dying
// first connection cannot tear down the second.
func (r *Room) handleDisconnect(playerID uuid.UUID, cl *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.clients[playerID]; !ok || cur != cl {
		return
	}
	delete(r.clients, playerID)

	p, ok := r.registry.Get(playerID)
	if !ok {
		return
	}
	seated := !p.IsSpectator

	if r.session.InProgress() && seated {
		r.registry.MarkDisconnected(playerID)
		if r.connectedSeatedCount() < r.cfg.MinPlayers {
			r.endRoundEarly("not_enough_players")
			return
		}
	} else {
		r.registry.Leave(playerID)
	}
	r.broadcastLobbyUpdate()
	r.recordAction(playerID, "disconnect", nil)
}

// handleKickTimeout fires on the registry's timer goroutine when a seated
// identity never completed its profile. The epoch check discards timers that
// were superseded before the lock was acquired.
func (r *Room) handleKickTimeout(playerID uuid.UUID, epoch int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.registry.KickEpoch(playerID) != epoch {
		return
	}
	p, ok := r.registry.Get(playerID)
	if !ok || p.Profile.Complete() {
		return
	}
	r.log.WithFields(logrus.Fields{"player": playerID}).Info("kicking identity with incomplete profile")

	r.unicastLocked(playerID, ServerMessage{Type: EventKicked, Payload: MessagePayload{
		Message: "You were removed for not completing your profile in time",
	}})
	if cl, ok := r.clients[playerID]; ok {
		cl.stop()
		cl.conn.Close(websocket.StatusNormalClosure, "kicked")
		delete(r.clients, playerID)
	}
	r.registry.Leave(playerID)
	r.broadcastLobbyUpdate()
	r.recordAction(playerID, "kick", map[string]interface{}{"reason": "incomplete_profile"})
}

// scheduleRoundReset arms the post-win grace timer. Bumping the epoch makes
// any previously armed timer a no-op if it fires late.
func (r *Room) scheduleRoundReset() {
	r.resetEpoch++
	epoch := r.resetEpoch
	if r.resetTimer != nil {
		r.resetTimer.Stop()
	}
	r.resetTimer = time.AfterFunc(r.cfg.RoundResetDelay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if epoch != r.resetEpoch {
			return
		}
		r.finishRound()
	})
}

// finishRound clears the session after the grace window, seats waiting
// spectators, and reopens the lobby. Lock held by caller.
func (r *Room) finishRound() {
	r.session.Reset()
	r.registry.ReapDisconnected()
	r.registry.PromoteSpectators()
	r.broadcastLocked(ServerMessage{Type: EventGameEnded, Payload: GameEndedPayload{
		Message:         "The round is over. You can start a new one.",
		CanStartNewGame: true,
	}})
	r.broadcastLobbyUpdate()
	r.recordAction(uuid.Nil, "roundReset", nil)
}

// endRoundEarly aborts a live round, used when the table thins below the
// minimum. Lock held by caller.
func (r *Room) endRoundEarly(reason string) {
	r.resetEpoch++
	if r.resetTimer != nil {
		r.resetTimer.Stop()
		r.resetTimer = nil
	}
	r.session.Reset()
	r.registry.ReapDisconnected()
	r.registry.PromoteSpectators()
	r.broadcastLocked(ServerMessage{Type: EventGameEnded, Payload: GameEndedPayload{
		Reason:          reason,
		CanStartNewGame: true,
	}})
	r.broadcastLocked(ServerMessage{Type: EventGameReset, Payload: MessagePayload{
		Message: "The round was reset",
	}})
	r.broadcastLobbyUpdate()
	r.recordAction(uuid.Nil, "roundAborted", map[string]interface{}{"reason": reason})
}

// Shutdown stops the room's timers. Connections close with the server.
func (r *Room) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetEpoch++
	if r.resetTimer != nil {
		r.resetTimer.Stop()
	}
	r.registry.StopTimers()
}

// ---------------------------------------------------------------------------
// Views
// ---------------------------------------------------------------------------

// buildStateFor assembles the full round view for one recipient. Spectators
// get an empty hand; nobody ever sees another identity's cards.
func (r *Room) buildStateFor(viewer uuid.UUID, spectator bool) GameStatePayload {
	state := GameStatePayload{
		PlayerHand:        []models.Card{},
		CurrentCard:       r.session.CurrentCard(),
		Players:           r.session.Players(),
		CurrentPlayer:     r.session.CurrentPlayer(),
		OtherPlayersCards: r.session.HandCounts(),
		Nicknames:         r.nicknames(),
		Avatars:           r.avatars(),
		ColorToPlay:       r.session.ColorToPlay(),
		GameDirection:     r.session.Direction(),
		IsSpectator:       spectator,
	}
	if !spectator {
		state.PlayerHand = r.session.Hand(viewer)
		state.CanDrawCard = !r.session.HasDrawn(viewer)
		state.HasDrawnCard = r.session.HasDrawn(viewer)
		state.CanPassTurn = r.session.HasDrawn(viewer) && r.session.HasPlayableCard(viewer)
	}
	return state
}

func (r *Room) buildLobbyUpdate() LobbyUpdatePayload {
	all := r.registry.All()
	payload := LobbyUpdatePayload{
		Players:       make([]LobbyPlayerInfo, 0, len(all)),
		IsGameStarted: r.session.InProgress(),
	}
	for _, p := range all {
		payload.Players = append(payload.Players, LobbyPlayerInfo{
			ID:          p.ID,
			Nickname:    p.Profile.Nickname,
			Avatar:      p.Profile.Avatar,
			MusicID:     p.Profile.MusicID,
			IsSpectator: p.IsSpectator,
			Connected:   p.Connected,
		})
		if p.IsSpectator {
			payload.SpectatorCount++
		} else {
			payload.PlayerCount++
		}
	}
	return payload
}

func (r *Room) nicknames() map[uuid.UUID]string {
	out := make(map[uuid.UUID]string)
	for _, p := range r.registry.All() {
		out[p.ID] = p.Profile.Nickname
	}
	return out
}

func (r *Room) avatars() map[uuid.UUID]string {
	out := make(map[uuid.UUID]string)
	for _, p := range r.registry.All() {
		out[p.ID] = p.Profile.Avatar
	}
	return out
}

func (r *Room) nickname(id uuid.UUID) string {
	if p, ok := r.registry.Get(id); ok {
		return p.Profile.Nickname
	}
	return id.String()
}

func (r *Room) connectedSeatedCount() int {
	n := 0
	for _, p := range r.registry.ActivePlayers() {
		if p.Connected {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Delivery
// ---------------------------------------------------------------------------

func (r *Room) broadcastLocked(msg ServerMessage) {
	for _, cl := range r.clients {
		cl.enqueue(msg)
	}
}

func (r *Room) broadcastExceptLocked(skip uuid.UUID, msg ServerMessage) {
	for id, cl := range r.clients {
		if id == skip {
			continue
		}
		cl.enqueue(msg)
	}
}

func (r *Room) unicastLocked(id uuid.UUID, msg ServerMessage) {
	if cl, ok := r.clients[id]; ok {
		cl.enqueue(msg)
	}
}

func (r *Room) broadcastLobbyUpdate() {
	r.broadcastLocked(ServerMessage{Type: EventLobbyUpdate, Payload: r.buildLobbyUpdate()})
}

func (r *Room) sendErrorLocked(id uuid.UUID, message string) {
	r.unicastLocked(id, ServerMessage{Type: EventGameError, Payload: MessagePayload{Message: message}})
}

func (r *Room) sendError(id uuid.UUID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendErrorLocked(id, message)
}

func (r *Room) recordAction(actor uuid.UUID, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	r.historian.Record(history.ActionRecord{
		GameID:      r.session.ID,
		ActionIndex: r.actionIndex,
		ActorID:     actor,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	})
}
