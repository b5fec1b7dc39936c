package game

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// BattleState represents the lifecycle of a battle session.
type BattleState int

const (
	BattleStateAwaitingDecks BattleState = iota
	BattleStateInProgress
	BattleStateFinished
)

func (s BattleState) String() string {
	switch s {
	case BattleStateAwaitingDecks:
		return "AWAITING_DECKS"
	case BattleStateInProgress:
		return "IN_PROGRESS"
	case BattleStateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// ActionCode identifies why an action could not be resolved. The negative
// values are part of the wire protocol.
type ActionCode int

const (
	CodeActorDeckNotFound  ActionCode = -1
	CodeTargetDeckNotFound ActionCode = -2
	CodeActorCardNotFound  ActionCode = -3
	CodeTargetCardNotFound ActionCode = -4
	CodeNotYourTurn        ActionCode = -5
	CodeInsufficientEnergy ActionCode = -6
)

func (c ActionCode) String() string {
	switch c {
	case CodeActorDeckNotFound:
		return "ACTOR_DECK_NOT_FOUND"
	case CodeTargetDeckNotFound:
		return "TARGET_DECK_NOT_FOUND"
	case CodeActorCardNotFound:
		return "ACTOR_CARD_NOT_FOUND"
	case CodeTargetCardNotFound:
		return "TARGET_CARD_NOT_FOUND"
	case CodeNotYourTurn:
		return "NOT_YOUR_TURN"
	case CodeInsufficientEnergy:
		return "INSUFFICIENT_ENERGY"
	default:
		return "UNKNOWN"
	}
}

// ActionError is a coded, per-event failure. The session it occurred in is
// unaffected and continues.
type ActionError struct {
	Code    ActionCode
	Message string
}

func (e *ActionError) Error() string {
	return e.Message
}

func actionError(code ActionCode, message string) *ActionError {
	return &ActionError{Code: code, Message: message}
}

const criticalMultiplier = 1.5

// Battle is one match between exactly two participants. It owns both decks;
// neither deck outlives the battle.
type Battle struct {
	id    string
	userA *deck
	userB *deck

	state BattleState
	turn  int64 // identity holding the current turn, 0 before start

	rng func() float64
	mu  sync.Mutex
}

// NewBattle creates a battle between two distinct participants, awaiting
// both decks.
func NewBattle(userA, userB int64) *Battle {
	return &Battle{
		id:    uuid.New().String(),
		userA: newDeck(userA),
		userB: newDeck(userB),
		state: BattleStateAwaitingDecks,
		rng:   rand.Float64,
	}
}

// ID returns the battle's unique identifier.
func (b *Battle) ID() string {
	return b.id
}

// State returns the current lifecycle state.
func (b *Battle) State() BattleState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsParticipant reports whether id belongs to this battle.
func (b *Battle) IsParticipant(id int64) bool {
	return b.userA.userID == id || b.userB.userID == id
}

// Opponent returns the other participant of the battle.
func (b *Battle) Opponent(id int64) int64 {
	if b.userA.userID == id {
		return b.userB.userID
	}
	return b.userA.userID
}

// TurnHolder returns the identity whose turn it is, or 0 before the battle
// starts.
func (b *Battle) TurnHolder() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.turn
}

// CardIDs returns the ids of the cards currently in id's deck.
func (b *Battle) CardIDs(id int64) []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.deckOf(id)
	if d == nil {
		return nil
	}
	return d.cardIDs()
}

// CardCount returns the number of cards left in id's deck.
func (b *Battle) CardCount(id int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.deckOf(id)
	if d == nil {
		return 0
	}
	return len(d.cards)
}

// SubmitDeck validates and stores id's deck. Any invalid card rejects the
// whole submission and leaves the previously stored deck untouched.
// Resubmitting before the battle starts overwrites; once both decks are
// non-empty the battle starts and a coin flip picks the first turn holder.
// Returns true when this submission started the battle.
func (b *Battle) SubmitDeck(id int64, cards []CardData) (started bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BattleStateAwaitingDecks {
		return false, fmt.Errorf("battle %s already %s", b.id, b.state)
	}

	d := b.deckOf(id)
	if d == nil {
		return false, fmt.Errorf("user %d is not part of battle %s", id, b.id)
	}

	if len(cards) == 0 {
		return false, fmt.Errorf("deck must contain at least one card")
	}
	for _, c := range cards {
		if err := validateCard(c); err != nil {
			return false, fmt.Errorf("invalid deck: %w", err)
		}
	}

	d.setCards(cards)

	if !b.userA.empty() && !b.userB.empty() {
		b.state = BattleStateInProgress
		// Unweighted coin flip for the first turn.
		if b.rng() < 0.5 {
			b.turn = b.userA.userID
		} else {
			b.turn = b.userB.userID
		}
		return true, nil
	}
	return false, nil
}

// ResolveAction resolves an attack from actor's card against the opponent's
// card. On success the returned damage has already been applied: a card
// reduced to zero or below is removed from its deck entirely.
func (b *Battle) ResolveAction(actor, cardID, targetID int64) (float64, *ActionError) {
	b.mu.Lock()
	defer b.mu.Unlock()

	actorDeck := b.deckOf(actor)
	if actorDeck == nil {
		return 0, actionError(CodeActorDeckNotFound, "user deck could not be found")
	}
	targetDeck := b.deckOf(b.Opponent(actor))
	if targetDeck == nil {
		return 0, actionError(CodeTargetDeckNotFound, "enemy deck could not be found")
	}

	card := actorDeck.card(cardID)
	if card == nil {
		return 0, actionError(CodeActorCardNotFound, "the card could not be found")
	}
	target := targetDeck.card(targetID)
	if target == nil {
		return 0, actionError(CodeTargetCardNotFound, "the target card could not be found")
	}

	if b.state != BattleStateInProgress || b.turn != actor {
		return 0, actionError(CodeNotYourTurn, "it is not your turn")
	}
	if card.CurrentEnergy < card.EnergyCost {
		return 0, actionError(CodeInsufficientEnergy, "the card does not have enough energy to attack")
	}

	card.CurrentEnergy -= card.EnergyCost

	multiplier := 1.0
	if b.rng() < 0.5 {
		multiplier = criticalMultiplier
	}
	damage := math.Max(card.Attack*multiplier-target.Defence, 0)

	if target.CurrentHP-damage <= 0 {
		targetDeck.remove(targetID)
	} else {
		target.CurrentHP -= damage
	}

	return damage, nil
}

// EndTurn passes the turn to the opponent and refills the energy of the
// cards in the opponent's deck. Only the current turn holder may pass.
func (b *Battle) EndTurn(id int64) *ActionError {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BattleStateInProgress {
		return actionError(CodeNotYourTurn, "the battle is not in progress")
	}
	if b.turn != id {
		return actionError(CodeNotYourTurn, "it is not your turn")
	}

	next := b.Opponent(id)
	if d := b.deckOf(next); d != nil {
		d.refillEnergy()
	}
	b.turn = next
	return nil
}

// CheckOutcome reports the winner once exactly one deck has emptied. The
// winner is reported exactly once: the reporting check moves the battle to
// Finished and later checks return no outcome. Callers invoke this after
// every successful action.
func (b *Battle) CheckOutcome() (winner int64, over bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BattleStateInProgress {
		return 0, false
	}

	switch {
	case b.userA.empty():
		b.state = BattleStateFinished
		return b.userB.userID, true
	case b.userB.empty():
		b.state = BattleStateFinished
		return b.userA.userID, true
	}
	return 0, false
}

func (b *Battle) deckOf(id int64) *deck {
	switch id {
	case b.userA.userID:
		return b.userA
	case b.userB.userID:
		return b.userB
	}
	return nil
}
