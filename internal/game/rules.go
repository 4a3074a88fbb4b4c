package game

import (
	"github.com/google/uuid"

	"github.com/blanco-cards/blanco/internal/models"
)

// TurnState is the snapshot steering whose move comes next: the fixed seating
// order for the round, the current player pointer, the play direction, the
// color the next play must satisfy, and the card on top of the table.
type TurnState struct {
	Players            []uuid.UUID
	CurrentPlayerIndex int
	Direction          int
	ColorToPlay        models.CardColor
	CurrentCard        *models.Card
}

// CurrentPlayer returns the identity whose turn it is.
func (ts TurnState) CurrentPlayer() uuid.UUID {
	return ts.Players[ts.CurrentPlayerIndex]
}

// nextIndex computes one step from idx in the active direction. The double
// modulo keeps the result positive when Direction is negative.
func (ts TurnState) nextIndex(idx int) int {
	n := len(ts.Players)
	return ((idx+ts.Direction)%n + n) % n
}

// advanced returns a copy of ts with the current player moved the given
// number of steps in the active direction.
func (ts TurnState) advanced(steps int) TurnState {
	for i := 0; i < steps; i++ {
		ts.CurrentPlayerIndex = ts.nextIndex(ts.CurrentPlayerIndex)
	}
	return ts
}

// Effects gives ApplyEffect controlled access to the collaborators a card
// effect may touch: the hands (plusone, shuffle), the draw pile (plusone),
// and the color source for an unresolved wild.
type Effects struct {
	Hands     map[uuid.UUID][]models.Card
	Draw      func() (models.Card, error)
	RandColor func() models.CardColor
}

// ApplyEffect is the turn rule engine: a pure transition from (turn state,
// played card) to the next turn state. It assumes the played card has already
// been committed as ts.CurrentCard and ts.ColorToPlay resolved by the session
// when the player supplied an explicit wild color; the RandColor branch fires
// only when no choice was made.
func ApplyEffect(ts TurnState, played models.Card, fx Effects) TurnState {
	switch played.Value {
	case models.ValueSkip:
		return ts.advanced(2)

	case models.ValueReverse:
		ts.Direction = -ts.Direction
		return ts.advanced(1)

	case models.ValuePlusOne:
		actor := ts.CurrentPlayerIndex
		for i, id := range ts.Players {
			if i == actor {
				continue
			}
			card, err := fx.Draw()
			if err != nil {
				break
			}
			fx.Hands[id] = append(fx.Hands[id], card)
		}
		return ts.advanced(1)

	case models.ValueWild:
		if ts.ColorToPlay == models.ColorWild || ts.ColorToPlay == "" {
			ts.ColorToPlay = fx.RandColor()
		}
		return ts.advanced(1)

	case models.ValueShuffle:
		if len(ts.Players) >= 2 {
			actor := ts.Players[ts.CurrentPlayerIndex]
			next := ts.Players[ts.nextIndex(ts.CurrentPlayerIndex)]
			fx.Hands[actor], fx.Hands[next] = fx.Hands[next], fx.Hands[actor]
		}
		if ts.ColorToPlay == models.ColorWild || ts.ColorToPlay == "" {
			ts.ColorToPlay = fx.RandColor()
		}
		return ts.advanced(1)

	default:
		return ts.advanced(1)
	}
}

// IsValidPlay implements the legality rule. A nil currentCard means no card
// has been played yet (opening only); a wild in play constrains the next card
// to the chosen color or another wild; otherwise colors match, values match,
// or either card is wild.
func IsValidPlay(currentCard *models.Card, played models.Card, colorToPlay models.CardColor) bool {
	if currentCard == nil {
		return !played.IsWild()
	}
	if currentCard.IsWild() && currentCard.Value == models.ValueWild {
		return played.Color == colorToPlay || played.IsWild()
	}
	return currentCard.Color == played.Color ||
		currentCard.Value == played.Value ||
		played.IsWild() ||
		currentCard.IsWild()
}
