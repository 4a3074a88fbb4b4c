package models

import (
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Profile holds the lobby-collected presentation fields for one identity.
// The fields are filled in by the client before a round may start.
type Profile struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	MusicID  string `json:"musicId"`
}

// Complete reports whether every profile field has been provided.
func (p Profile) Complete() bool {
	return strings.TrimSpace(p.Nickname) != "" && p.Avatar != "" && p.MusicID != ""
}

// Player is one connected identity: its profile, connection, and roster
// standing. Mutated only under the owning room's lock.
type Player struct {
	ID      uuid.UUID       `json:"id"`
	Profile Profile         `json:"profile"`
	Conn    *websocket.Conn `json:"-"`

	IsSpectator bool `json:"isSpectator"`
	Connected   bool `json:"connected"`
}
