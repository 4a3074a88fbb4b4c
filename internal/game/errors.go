package game

import "errors"

// Rejected-action errors are reported only to the acting identity; game state
// is unchanged when they are returned.
var (
	ErrNotYourTurn  = errors.New("not your turn")
	ErrInvalidMove  = errors.New("card cannot be played on the current card")
	ErrCardNotHeld  = errors.New("card is not in your hand")
	ErrAlreadyDrawn = errors.New("you have already drawn a card this turn")
	ErrCannotPass   = errors.New("you must draw a card before passing")
)

// Configuration errors are fatal to the current round.
var (
	ErrEmptyRoster      = errors.New("cannot initialize a round with no players")
	ErrDeckExhausted    = errors.New("no cards available in deck or discard pile")
	ErrRoundInProgress  = errors.New("a round is already in progress")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrPlayersNotReady  = errors.New("all players must complete their profile")
)
