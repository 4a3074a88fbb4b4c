package ws

import (
	"github.com/google/uuid"

	"github.com/blanco-cards/blanco/internal/models"
)

// ServerEventType enumerates outbound message kinds.
type ServerEventType string

const (
	EventWelcome          ServerEventType = "welcome"
	EventLobbyUpdate      ServerEventType = "lobbyUpdate"
	EventSpectatorJoined  ServerEventType = "spectatorJoined"
	EventGameStarted      ServerEventType = "gameStarted"
	EventGameInitialized  ServerEventType = "gameInitialized"
	EventGameUpdate       ServerEventType = "gameUpdate"
	EventPlayerHandUpdate ServerEventType = "playerHandUpdate"
	EventCardDrawn        ServerEventType = "cardDrawn"
	EventGameEnded        ServerEventType = "gameEnded"
	EventGameReset        ServerEventType = "gameReset"
	EventGameError        ServerEventType = "gameError"
	EventKicked           ServerEventType = "kicked"
)

// ServerMessage is the outbound wire envelope.
type ServerMessage struct {
	Type    ServerEventType `json:"type"`
	Payload interface{}     `json:"payload,omitempty"`
}

// WelcomePayload is sent once per connection: the assigned identity and the
// token that lets a dropped client reclaim it.
type WelcomePayload struct {
	PlayerID    uuid.UUID `json:"playerId"`
	ResumeToken string    `json:"resumeToken,omitempty"`
	IsSpectator bool      `json:"isSpectator"`
	Resumed     bool      `json:"resumed,omitempty"`
}

// LobbyPlayerInfo is one roster row in a lobby update.
type LobbyPlayerInfo struct {
	ID          uuid.UUID `json:"id"`
	Nickname    string    `json:"nickname"`
	Avatar      string    `json:"avatar"`
	MusicID     string    `json:"musicId"`
	IsSpectator bool      `json:"isSpectator"`
	Connected   bool      `json:"connected"`
}

// LobbyUpdatePayload is broadcast on every roster or profile change.
type LobbyUpdatePayload struct {
	Players        []LobbyPlayerInfo `json:"players"`
	PlayerCount    int               `json:"playerCount"`
	SpectatorCount int               `json:"spectatorCount"`
	IsGameStarted  bool              `json:"isGameStarted"`
}

// GameStatePayload is the full view of a live round, sent to each player at
// round start and to spectators when they attach. PlayerHand is empty for
// spectators.
type GameStatePayload struct {
	PlayerHand        []models.Card        `json:"playerHand"`
	CurrentCard       *models.Card         `json:"currentCard"`
	Players           []uuid.UUID          `json:"players"`
	CurrentPlayer     uuid.UUID            `json:"currentPlayer"`
	OtherPlayersCards map[uuid.UUID]int    `json:"otherPlayersCards"`
	Nicknames         map[uuid.UUID]string `json:"nicknames"`
	Avatars           map[uuid.UUID]string `json:"avatars"`
	ColorToPlay       models.CardColor     `json:"colorToPlay"`
	GameDirection     int                  `json:"gameDirection"`
	CanDrawCard       bool                 `json:"canDrawCard"`
	CanPassTurn       bool                 `json:"canPassTurn"`
	HasDrawnCard      bool                 `json:"hasDrawnCard"`
	IsSpectator       bool                 `json:"isSpectator"`
	Message           string               `json:"message,omitempty"`
}

// SpectatorJoinedPayload wraps the redacted state handed to a new spectator.
type SpectatorJoinedPayload struct {
	GameState GameStatePayload `json:"gameState"`
}

// GameUpdatePayload is the delta broadcast after every committed move. Fields
// with zero values are omitted so recipients only see what changed; PlayerHand
// is populated only on the copy unicast to the acting player.
type GameUpdatePayload struct {
	CurrentCard       *models.Card         `json:"currentCard,omitempty"`
	Message           string               `json:"message,omitempty"`
	CurrentPlayer     uuid.UUID            `json:"currentPlayer"`
	OtherPlayersCards map[uuid.UUID]int    `json:"otherPlayersCards,omitempty"`
	ColorToPlay       models.CardColor     `json:"colorToPlay,omitempty"`
	Nicknames         map[uuid.UUID]string `json:"nicknames,omitempty"`
	Avatars           map[uuid.UUID]string `json:"avatars,omitempty"`
	GameDirection     int                  `json:"gameDirection,omitempty"`
	PlayerHand        []models.Card        `json:"playerHand,omitempty"`
	CanDrawCard       *bool                `json:"canDrawCard,omitempty"`
	CanPassTurn       *bool                `json:"canPassTurn,omitempty"`
	HasDrawnCard      *bool                `json:"hasDrawnCard,omitempty"`
	HasSkippedTurn    *bool                `json:"hasSkippedTurn,omitempty"`
	Winner            uuid.UUID            `json:"winner,omitempty"`
	WinnerMusic       string               `json:"winnerMusic,omitempty"`
	GameEnding        bool                 `json:"gameEnding,omitempty"`
}

// HandPayload carries one player's private hand.
type HandPayload struct {
	PlayerHand []models.Card `json:"playerHand"`
}

// GameEndedPayload announces that the round is over and the lobby is open.
type GameEndedPayload struct {
	Message         string `json:"message,omitempty"`
	Reason          string `json:"reason,omitempty"`
	CanStartNewGame bool   `json:"canStartNewGame"`
}

// MessagePayload is a bare human-readable notice.
type MessagePayload struct {
	Message string `json:"message"`
}

func boolPtr(b bool) *bool { return &b }
