package models

import "encoding/json"

// ActionType enumerates the inbound message kinds a client may send.
type ActionType string

const (
	ActionStartGame      ActionType = "startGame"
	ActionDrawCard       ActionType = "drawCard"
	ActionPassTurn       ActionType = "passTurn"
	ActionPlayCard       ActionType = "playCard"
	ActionUpdateNickname ActionType = "updateNickname"
	ActionUpdateAvatar   ActionType = "updateAvatar"
	ActionUpdateMusic    ActionType = "updateMusic"
	ActionRejoinLobby    ActionType = "rejoinLobby"
	ActionLeaveLobby     ActionType = "leaveLobby"
)

// ClientMessage is the wire envelope for inbound player actions. Payload is
// decoded per action type by the protocol layer.
type ClientMessage struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PlayCardPayload carries the card being played and, for wild cards, the
// color the player chose.
type PlayCardPayload struct {
	Card          Card      `json:"card"`
	SelectedColor CardColor `json:"selectedColor,omitempty"`
}

// UpdateValuePayload carries a single profile field update.
type UpdateValuePayload struct {
	Value string `json:"value"`
}
