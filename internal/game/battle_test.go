package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBattle returns a started battle between users 1 and 2 where user 1
// holds the first turn and no critical hits occur unless crit is true.
func testBattle(t *testing.T, crit bool) *Battle {
	t.Helper()

	b := NewBattle(1, 2)
	// Deterministic coin flip: user 1 starts.
	b.rng = func() float64 { return 0.1 }

	_, err := b.SubmitDeck(1, []CardData{
		NewCardData(10, 10, 5, 2, 20),
		NewCardData(11, 3, 10, 1, 5),
	})
	require.NoError(t, err)

	started, err := b.SubmitDeck(2, []CardData{
		NewCardData(20, 10, 5, 2, 20),
		NewCardData(21, 3, 10, 1, 5),
	})
	require.NoError(t, err)
	require.True(t, started)
	require.Equal(t, int64(1), b.TurnHolder())

	if crit {
		b.rng = func() float64 { return 0.1 } // always critical
	} else {
		b.rng = func() float64 { return 0.9 } // never critical
	}
	return b
}

func TestSubmitDeckRejectsInvalidCardWholesale(t *testing.T) {
	b := NewBattle(1, 2)

	_, err := b.SubmitDeck(1, []CardData{NewCardData(10, 10, 5, 2, 20)})
	require.NoError(t, err)
	require.Equal(t, []int64{10}, b.CardIDs(1))

	// One bad card fails the whole submission; the stored deck is unchanged.
	_, err = b.SubmitDeck(1, []CardData{
		NewCardData(30, 10, 5, 2, 20),
		NewCardData(31, -1, 5, 2, 20),
	})
	assert.Error(t, err)
	assert.Equal(t, []int64{10}, b.CardIDs(1))
}

func TestSubmitDeckResubmissionOverwrites(t *testing.T) {
	b := NewBattle(1, 2)

	_, err := b.SubmitDeck(1, []CardData{NewCardData(10, 10, 5, 2, 20)})
	require.NoError(t, err)
	_, err = b.SubmitDeck(1, []CardData{NewCardData(30, 1, 1, 1, 1)})
	require.NoError(t, err)
	assert.Equal(t, []int64{30}, b.CardIDs(1))
	assert.Equal(t, BattleStateAwaitingDecks, b.State())
}

func TestSubmitDeckRejectedOnceInProgress(t *testing.T) {
	b := testBattle(t, false)
	_, err := b.SubmitDeck(1, []CardData{NewCardData(30, 1, 1, 1, 1)})
	assert.Error(t, err)
}

func TestSubmitDeckRejectsEmptyAndStrangers(t *testing.T) {
	b := NewBattle(1, 2)
	_, err := b.SubmitDeck(1, nil)
	assert.Error(t, err)
	_, err = b.SubmitDeck(99, []CardData{NewCardData(10, 1, 1, 1, 1)})
	assert.Error(t, err)
}

func TestResolveActionDamageBounds(t *testing.T) {
	// attack=10, defence=5: damage 5 without crit, 10 with.
	b := testBattle(t, false)
	damage, actErr := b.ResolveAction(1, 10, 20)
	require.Nil(t, actErr)
	assert.Equal(t, 5.0, damage)

	b = testBattle(t, true)
	damage, actErr = b.ResolveAction(1, 10, 20)
	require.Nil(t, actErr)
	assert.Equal(t, 10.0, damage)
}

func TestResolveActionDamageFloorsAtZero(t *testing.T) {
	// attack=3 vs defence=10: damage 0 even with a critical.
	b := testBattle(t, true)
	damage, actErr := b.ResolveAction(1, 11, 20)
	require.Nil(t, actErr)
	assert.Equal(t, 0.0, damage)
	assert.Equal(t, 2, b.CardCount(2))
}

func TestResolveActionLethalRemovesCard(t *testing.T) {
	// attack=10 vs defence=10 card with 5 hp: crit deals 5, exactly lethal.
	b := testBattle(t, true)
	damage, actErr := b.ResolveAction(1, 10, 21)
	require.Nil(t, actErr)
	assert.Equal(t, 5.0, damage)

	// The defeated card vanishes; no zero-hp entry remains.
	assert.Equal(t, []int64{20}, b.CardIDs(2))
	assert.Equal(t, 1, b.CardCount(2))
}

func TestResolveActionFailureCodes(t *testing.T) {
	b := testBattle(t, false)

	_, actErr := b.ResolveAction(99, 10, 20)
	require.NotNil(t, actErr)
	assert.Equal(t, CodeActorDeckNotFound, actErr.Code)

	_, actErr = b.ResolveAction(1, 99, 20)
	require.NotNil(t, actErr)
	assert.Equal(t, CodeActorCardNotFound, actErr.Code)

	_, actErr = b.ResolveAction(1, 10, 99)
	require.NotNil(t, actErr)
	assert.Equal(t, CodeTargetCardNotFound, actErr.Code)
}

func TestResolveActionTurnEnforcement(t *testing.T) {
	b := testBattle(t, false)

	// User 2 acts out of turn: rejected, nothing mutated.
	_, actErr := b.ResolveAction(2, 20, 10)
	require.NotNil(t, actErr)
	assert.Equal(t, CodeNotYourTurn, actErr.Code)
	assert.Equal(t, 2, b.CardCount(1))
}

func TestResolveActionEnergyEnforcement(t *testing.T) {
	b := testBattle(t, false)

	// First attack spends card 10's energy.
	_, actErr := b.ResolveAction(1, 10, 20)
	require.Nil(t, actErr)

	// Second attack with the same card is out of energy.
	_, actErr = b.ResolveAction(1, 10, 20)
	require.NotNil(t, actErr)
	assert.Equal(t, CodeInsufficientEnergy, actErr.Code)

	// A different card can still act.
	_, actErr = b.ResolveAction(1, 11, 20)
	require.Nil(t, actErr)
}

func TestEndTurnRefillsOpponentEnergy(t *testing.T) {
	b := testBattle(t, false)

	_, actErr := b.ResolveAction(1, 10, 20)
	require.Nil(t, actErr)

	require.Nil(t, b.EndTurn(1))
	assert.Equal(t, int64(2), b.TurnHolder())

	// User 2 attacks, passes back, and user 1's card can attack again.
	_, actErr = b.ResolveAction(2, 20, 10)
	require.Nil(t, actErr)
	require.Nil(t, b.EndTurn(2))

	_, actErr = b.ResolveAction(1, 10, 20)
	require.Nil(t, actErr)
}

func TestEndTurnOutOfTurnRejected(t *testing.T) {
	b := testBattle(t, false)
	actErr := b.EndTurn(2)
	require.NotNil(t, actErr)
	assert.Equal(t, CodeNotYourTurn, actErr.Code)
	assert.Equal(t, int64(1), b.TurnHolder())
}

func TestCheckOutcomeReportsWinnerExactlyOnce(t *testing.T) {
	b := NewBattle(1, 2)
	b.rng = func() float64 { return 0.1 } // user 1 starts

	_, err := b.SubmitDeck(1, []CardData{NewCardData(10, 20, 0, 1, 10)})
	require.NoError(t, err)
	started, err := b.SubmitDeck(2, []CardData{NewCardData(20, 1, 0, 1, 5)})
	require.NoError(t, err)
	require.True(t, started)

	winner, over := b.CheckOutcome()
	assert.False(t, over)
	assert.Equal(t, int64(0), winner)

	b.rng = func() float64 { return 0.9 } // no crit: 20 damage, lethal vs 5 hp
	_, actErr := b.ResolveAction(1, 10, 20)
	require.Nil(t, actErr)

	winner, over = b.CheckOutcome()
	require.True(t, over)
	assert.Equal(t, int64(1), winner)
	assert.Equal(t, BattleStateFinished, b.State())

	// Terminal state is reported once.
	_, over = b.CheckOutcome()
	assert.False(t, over)
}

func TestOpponentAndParticipants(t *testing.T) {
	b := NewBattle(7, 9)
	assert.Equal(t, int64(9), b.Opponent(7))
	assert.Equal(t, int64(7), b.Opponent(9))
	assert.True(t, b.IsParticipant(7))
	assert.True(t, b.IsParticipant(9))
	assert.False(t, b.IsParticipant(8))
}

func TestCoinFlipPicksEitherSide(t *testing.T) {
	decks := func(b *Battle) {
		_, err := b.SubmitDeck(b.userA.userID, []CardData{NewCardData(10, 1, 1, 1, 1)})
		require.NoError(t, err)
		_, err = b.SubmitDeck(b.userB.userID, []CardData{NewCardData(20, 1, 1, 1, 1)})
		require.NoError(t, err)
	}

	b := NewBattle(1, 2)
	b.rng = func() float64 { return 0.0 }
	decks(b)
	assert.Equal(t, int64(1), b.TurnHolder())

	b = NewBattle(1, 2)
	b.rng = func() float64 { return 0.99 }
	decks(b)
	assert.Equal(t, int64(2), b.TurnHolder())
}
