package game

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blanco-cards/blanco/internal/models"
)

// HandSize is the number of cards dealt to each player at round start.
const HandSize = 7

// Session is the authoritative aggregate for one game room: it owns the deck,
// every hand, and the turn state, and it is the only place moves are
// validated and committed. It performs no I/O; the protocol layer reads the
// results of each operation and broadcasts after the mutation completes.
//
// Session is not safe for concurrent use. All mutations must be serialized by
// the owning room (single-writer discipline).
type Session struct {
	ID uuid.UUID

	deck  *Deck
	hands map[uuid.UUID][]models.Card
	turn  TurnState

	hasDrawn   map[uuid.UUID]bool
	hasSkipped map[uuid.UUID]bool

	inProgress bool
	hasWinner  bool
	isEnding   bool
	winner     uuid.UUID

	seed uint64
	log  logrus.FieldLogger
}

// NewSession creates an idle session. The seed drives deck shuffling and the
// wild-color fallback; rounds reseed from it deterministically.
func NewSession(seed uint64, log logrus.FieldLogger) *Session {
	s := &Session{
		ID:   uuid.New(),
		seed: seed,
		log:  log,
	}
	s.clear()
	return s
}

func (s *Session) clear() {
	s.seed = s.seed*6364136223846793005 + 1442695040888963407
	s.deck = NewDeck(s.seed)
	s.hands = make(map[uuid.UUID][]models.Card)
	s.hasDrawn = make(map[uuid.UUID]bool)
	s.hasSkipped = make(map[uuid.UUID]bool)
	s.turn = TurnState{Direction: 1}
	s.inProgress = false
	s.hasWinner = false
	s.isEnding = false
	s.winner = uuid.Nil
}

// InitializeRound deals a fresh round to the given seating order: seven cards
// per player, then a face-up opener that is guaranteed non-wild.
func (s *Session) InitializeRound(players []uuid.UUID) error {
	if len(players) == 0 {
		return ErrEmptyRoster
	}
	s.clear()

	seating := make([]uuid.UUID, len(players))
	copy(seating, players)

	for _, id := range seating {
		hand := make([]models.Card, 0, HandSize)
		for i := 0; i < HandSize; i++ {
			card, err := s.deck.Draw()
			if err != nil {
				return err
			}
			hand = append(hand, card)
		}
		s.hands[id] = hand
	}

	opener, err := s.deck.DrawOpener()
	if err != nil {
		return err
	}

	s.turn = TurnState{
		Players:            seating,
		CurrentPlayerIndex: 0,
		Direction:          1,
		ColorToPlay:        opener.Color,
		CurrentCard:        &opener,
	}
	s.inProgress = true

	s.log.WithFields(logrus.Fields{
		"game_id": s.ID,
		"players": len(seating),
		"opener":  opener,
		"current": s.turn.CurrentPlayer(),
	}).Info("round initialized")
	return nil
}

// PlayResult reports the outcome of a successful PlayCard.
type PlayResult struct {
	Winner        bool
	Message       string
	CurrentPlayer uuid.UUID
	CurrentCard   models.Card
	ColorToPlay   models.CardColor
	Direction     int
}

// PlayCard validates and commits a play by actor. For wild-colored cards a
// player-chosen color takes precedence; the rule engine's random pick is the
// fallback when none was supplied. An emptied hand ends the round immediately
// with actor as winner and no effect resolution.
func (s *Session) PlayCard(actor uuid.UUID, card models.Card, chosen models.CardColor) (PlayResult, error) {
	if !s.inProgress || s.hasWinner {
		return PlayResult{}, ErrInvalidMove
	}
	if actor != s.turn.CurrentPlayer() {
		return PlayResult{}, ErrNotYourTurn
	}
	if !IsValidPlay(s.turn.CurrentCard, card, s.turn.ColorToPlay) {
		return PlayResult{}, ErrInvalidMove
	}
	idx := s.findCardIndex(actor, card)
	if idx < 0 {
		return PlayResult{}, ErrCardNotHeld
	}

	if s.turn.CurrentCard != nil {
		s.deck.Discard(*s.turn.CurrentCard)
	}
	s.hands[actor] = append(s.hands[actor][:idx], s.hands[actor][idx+1:]...)
	s.turn.CurrentCard = &card

	if card.IsWild() && isConcrete(chosen) {
		s.turn.ColorToPlay = chosen
	} else {
		s.turn.ColorToPlay = card.Color
	}

	if len(s.hands[actor]) == 0 {
		s.hasWinner = true
		s.isEnding = true
		s.winner = actor
		s.log.WithFields(logrus.Fields{"game_id": s.ID, "winner": actor}).Info("round won")
		return PlayResult{
			Winner:        true,
			Message:       "Victory!",
			CurrentPlayer: actor,
			CurrentCard:   card,
			ColorToPlay:   s.turn.ColorToPlay,
			Direction:     s.turn.Direction,
		}, nil
	}

	s.turn = ApplyEffect(s.turn, card, Effects{
		Hands:     s.hands,
		Draw:      s.deck.Draw,
		RandColor: s.randColor,
	})
	s.resetTurnFlags(s.turn.CurrentPlayer())

	return PlayResult{
		Message:       playMessage(card.Value),
		CurrentPlayer: s.turn.CurrentPlayer(),
		CurrentCard:   card,
		ColorToPlay:   s.turn.ColorToPlay,
		Direction:     s.turn.Direction,
	}, nil
}

// DrawResult reports the outcome of a successful DrawForPlayer.
type DrawResult struct {
	Card          models.Card
	AutoAdvanced  bool
	CanPass       bool
	CurrentPlayer uuid.UUID
}

// DrawForPlayer draws one card into actor's hand. If the enlarged hand still
// has no legal play, the turn auto-advances without an explicit pass.
func (s *Session) DrawForPlayer(actor uuid.UUID) (DrawResult, error) {
	if !s.inProgress || s.hasWinner {
		return DrawResult{}, ErrNotYourTurn
	}
	if actor != s.turn.CurrentPlayer() {
		return DrawResult{}, ErrNotYourTurn
	}
	if s.hasDrawn[actor] {
		return DrawResult{}, ErrAlreadyDrawn
	}

	card, err := s.deck.Draw()
	if err != nil {
		return DrawResult{}, err
	}
	s.hands[actor] = append(s.hands[actor], card)
	s.hasDrawn[actor] = true

	res := DrawResult{Card: card, CurrentPlayer: actor}
	if !s.HasPlayableCard(actor) {
		s.advanceTurn()
		res.AutoAdvanced = true
		res.CurrentPlayer = s.turn.CurrentPlayer()
		s.log.WithFields(logrus.Fields{"game_id": s.ID, "player": actor}).
			Info("no playable card after draw, turn auto-advanced")
	} else {
		res.CanPass = true
	}
	return res, nil
}

// PassTurn advances the turn voluntarily. Only the current player may pass,
// and only after drawing this turn.
func (s *Session) PassTurn(actor uuid.UUID) error {
	if !s.inProgress || s.hasWinner {
		return ErrNotYourTurn
	}
	if actor != s.turn.CurrentPlayer() {
		return ErrNotYourTurn
	}
	if !s.hasDrawn[actor] {
		return ErrCannotPass
	}
	s.hasSkipped[actor] = true
	s.advanceTurn()
	return nil
}

// Reset discards all round state and builds a fresh shuffled deck. The
// session object survives; the round does not.
func (s *Session) Reset() {
	s.log.WithFields(logrus.Fields{"game_id": s.ID}).Info("session reset")
	s.clear()
}

// advanceTurn moves one step in the active direction and clears the new
// current player's per-turn flags.
func (s *Session) advanceTurn() {
	s.turn = s.turn.advanced(1)
	s.resetTurnFlags(s.turn.CurrentPlayer())
}

func (s *Session) resetTurnFlags(player uuid.UUID) {
	s.hasDrawn[player] = false
	s.hasSkipped[player] = false
}

func (s *Session) findCardIndex(player uuid.UUID, card models.Card) int {
	for i, c := range s.hands[player] {
		if c == card {
			return i
		}
	}
	return -1
}

func (s *Session) randColor() models.CardColor {
	return models.ConcreteColors[s.deck.randN(len(models.ConcreteColors))]
}

func isConcrete(c models.CardColor) bool {
	for _, cc := range models.ConcreteColors {
		if c == cc {
			return true
		}
	}
	return false
}

func playMessage(v models.CardValue) string {
	switch v {
	case models.ValuePlusOne:
		return "Plus One: everyone else draws a card!"
	case models.ValueShuffle:
		return "Hands have been shuffled!"
	case models.ValueSkip:
		return "Turn skipped!"
	case models.ValueReverse:
		return "Direction reversed!"
	case models.ValueWild:
		return "Color changed!"
	default:
		return "Card played"
	}
}

// ---------------------------------------------------------------------------
// Queries (read after mutation, never interleaved with it)
// ---------------------------------------------------------------------------

// InProgress reports whether a round is live.
func (s *Session) InProgress() bool { return s.inProgress }

// HasWinner reports whether the current round has been won.
func (s *Session) HasWinner() bool { return s.hasWinner }

// IsEnding reports whether the round is in its post-win grace window.
func (s *Session) IsEnding() bool { return s.isEnding }

// Winner returns the winning identity, or uuid.Nil.
func (s *Session) Winner() uuid.UUID { return s.winner }

// Players returns the seating order fixed at round start.
func (s *Session) Players() []uuid.UUID { return s.turn.Players }

// CurrentPlayer returns the identity whose turn it is, or uuid.Nil when no
// round is live.
func (s *Session) CurrentPlayer() uuid.UUID {
	if len(s.turn.Players) == 0 {
		return uuid.Nil
	}
	return s.turn.CurrentPlayer()
}

// CurrentCard returns the card on top of the table, if any.
func (s *Session) CurrentCard() *models.Card { return s.turn.CurrentCard }

// ColorToPlay returns the color the next play must satisfy.
func (s *Session) ColorToPlay() models.CardColor { return s.turn.ColorToPlay }

// Direction returns +1 or -1.
func (s *Session) Direction() int { return s.turn.Direction }

// Hand returns the cards held by one player. The returned slice is the
// session's own; callers must not mutate it.
func (s *Session) Hand(player uuid.UUID) []models.Card { return s.hands[player] }

// HandCounts returns per-player card counts, the only hand information ever
// broadcast beyond the owning identity.
func (s *Session) HandCounts() map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int, len(s.hands))
	for id, hand := range s.hands {
		counts[id] = len(hand)
	}
	return counts
}

// HasDrawn reports whether the player has drawn this turn.
func (s *Session) HasDrawn(player uuid.UUID) bool { return s.hasDrawn[player] }

// HasPlayableCard reports whether the player holds any legal play against the
// current card and color.
func (s *Session) HasPlayableCard(player uuid.UUID) bool {
	for _, c := range s.hands[player] {
		if c.IsWild() || IsValidPlay(s.turn.CurrentCard, c, s.turn.ColorToPlay) {
			return true
		}
	}
	return false
}

// DeckState returns the draw and discard pile sizes.
func (s *Session) DeckState() (drawSize, discardSize int) {
	return s.deck.DrawSize(), s.deck.DiscardSize()
}
