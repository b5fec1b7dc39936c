package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardDataUnmarshalTracksPresence(t *testing.T) {
	var c CardData
	err := json.Unmarshal([]byte(`{"id":1,"attack":10,"defence":5,"energy":2,"hp":20}`), &c)
	require.NoError(t, err)
	assert.True(t, c.HasID)
	assert.True(t, c.HasAttack)
	assert.True(t, c.HasDefence)
	assert.True(t, c.HasEnergy)
	assert.True(t, c.HasHP)
	assert.Equal(t, int64(1), c.ID)
	assert.Equal(t, 10.0, c.Attack)
}

func TestCardDataUnmarshalMissingField(t *testing.T) {
	var c CardData
	err := json.Unmarshal([]byte(`{"id":1,"attack":10,"defence":5,"hp":20}`), &c)
	require.NoError(t, err)
	assert.False(t, c.HasEnergy)
	assert.Error(t, validateCard(c))
}

func TestValidateCard(t *testing.T) {
	tests := []struct {
		name    string
		card    CardData
		wantErr bool
	}{
		{"valid", NewCardData(1, 10, 5, 2, 20), false},
		{"zero attack ok", NewCardData(1, 0, 5, 2, 20), false},
		{"negative attack", NewCardData(1, -1, 5, 2, 20), true},
		{"negative defence", NewCardData(1, 10, -5, 2, 20), true},
		{"negative energy", NewCardData(1, 10, 5, -2, 20), true},
		{"zero hp", NewCardData(1, 10, 5, 2, 0), true},
		{"negative hp", NewCardData(1, 10, 5, 2, -3), true},
		{"negative id", NewCardData(-1, 10, 5, 2, 20), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCard(tt.card)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeckRemoveAndLookup(t *testing.T) {
	d := newDeck(1)
	d.setCards([]CardData{
		NewCardData(10, 5, 1, 1, 10),
		NewCardData(11, 5, 1, 1, 10),
		NewCardData(12, 5, 1, 1, 10),
	})

	require.NotNil(t, d.card(11))
	d.remove(11)
	assert.Nil(t, d.card(11))
	assert.Len(t, d.cards, 2)
	assert.Equal(t, []int64{10, 12}, d.cardIDs())

	// Removing an absent card is a no-op.
	d.remove(99)
	assert.Len(t, d.cards, 2)
}

func TestDeckRefillEnergy(t *testing.T) {
	d := newDeck(1)
	d.setCards([]CardData{NewCardData(10, 5, 1, 3, 10)})

	d.cards[0].CurrentEnergy = 0
	d.refillEnergy()
	assert.Equal(t, 3.0, d.cards[0].CurrentEnergy)
}
