package game

import (
	"encoding/json"
	"fmt"
)

// CardData is the wire shape of a card as submitted by a client. The Has*
// flags record which fields were actually present in the payload; a card
// with any field absent is invalid.
type CardData struct {
	ID         int64
	Attack     float64
	Defence    float64
	Energy     float64
	HP         float64
	HasID      bool
	HasAttack  bool
	HasDefence bool
	HasEnergy  bool
	HasHP      bool
}

// NewCardData builds fully populated wire data, mainly for tests and for
// echoing decks back to clients.
func NewCardData(id int64, attack, defence, energy, hp float64) CardData {
	return CardData{
		ID: id, Attack: attack, Defence: defence, Energy: energy, HP: hp,
		HasID: true, HasAttack: true, HasDefence: true, HasEnergy: true, HasHP: true,
	}
}

// UnmarshalJSON tracks field presence so validation can distinguish a
// missing field from an explicit zero.
func (c *CardData) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID      *int64   `json:"id"`
		Attack  *float64 `json:"attack"`
		Defence *float64 `json:"defence"`
		Energy  *float64 `json:"energy"`
		HP      *float64 `json:"hp"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.ID != nil {
		c.ID, c.HasID = *raw.ID, true
	}
	if raw.Attack != nil {
		c.Attack, c.HasAttack = *raw.Attack, true
	}
	if raw.Defence != nil {
		c.Defence, c.HasDefence = *raw.Defence, true
	}
	if raw.Energy != nil {
		c.Energy, c.HasEnergy = *raw.Energy, true
	}
	if raw.HP != nil {
		c.HP, c.HasHP = *raw.HP, true
	}
	return nil
}

// MarshalJSON emits the plain five-field wire shape.
func (c CardData) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID      int64   `json:"id"`
		Attack  float64 `json:"attack"`
		Defence float64 `json:"defence"`
		Energy  float64 `json:"energy"`
		HP      float64 `json:"hp"`
	}{c.ID, c.Attack, c.Defence, c.Energy, c.HP})
}

// Card is a fighting card owned by one deck inside one battle.
type Card struct {
	ID            int64
	Attack        float64
	Defence       float64
	EnergyCost    float64
	MaxHP         float64
	CurrentHP     float64
	CurrentEnergy float64
}

// newCard builds a Card from validated wire data. Current HP starts at max
// and current energy at the card's cost, so every card can attack once
// before its owner's energy refills.
func newCard(data CardData) *Card {
	return &Card{
		ID:            data.ID,
		Attack:        data.Attack,
		Defence:       data.Defence,
		EnergyCost:    data.Energy,
		MaxHP:         data.HP,
		CurrentHP:     data.HP,
		CurrentEnergy: data.Energy,
	}
}

// validateCard checks a single submitted card. All five fields must be
// present, attack/defence/energy non-negative and max HP strictly positive.
func validateCard(data CardData) error {
	if !data.HasID || !data.HasAttack || !data.HasDefence || !data.HasEnergy || !data.HasHP {
		return fmt.Errorf("card is missing required fields")
	}
	if data.ID < 0 {
		return fmt.Errorf("card id %d must not be negative", data.ID)
	}
	if data.Attack < 0 {
		return fmt.Errorf("card %d attack must not be negative", data.ID)
	}
	if data.Defence < 0 {
		return fmt.Errorf("card %d defence must not be negative", data.ID)
	}
	if data.Energy < 0 {
		return fmt.Errorf("card %d energy must not be negative", data.ID)
	}
	if data.HP <= 0 {
		return fmt.Errorf("card %d hp must be positive", data.ID)
	}
	return nil
}

// deck is the ordered set of cards owned by one participant within a battle.
type deck struct {
	userID int64
	cards  []*Card
}

func newDeck(userID int64) *deck {
	return &deck{userID: userID}
}

// setCards replaces the deck contents wholesale from validated wire data.
func (d *deck) setCards(data []CardData) {
	d.cards = make([]*Card, 0, len(data))
	for _, c := range data {
		d.cards = append(d.cards, newCard(c))
	}
}

func (d *deck) card(id int64) *Card {
	for _, c := range d.cards {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// remove drops the card with the given id. Defeated cards leave the deck
// entirely; a zero-HP card is never retained.
func (d *deck) remove(id int64) {
	for i, c := range d.cards {
		if c.ID == id {
			d.cards = append(d.cards[:i], d.cards[i+1:]...)
			return
		}
	}
}

func (d *deck) cardIDs() []int64 {
	ids := make([]int64, 0, len(d.cards))
	for _, c := range d.cards {
		ids = append(ids, c.ID)
	}
	return ids
}

// refillEnergy restores every card's energy to its cost at turn start.
func (d *deck) refillEnergy() {
	for _, c := range d.cards {
		c.CurrentEnergy = c.EnergyCost
	}
}

func (d *deck) empty() bool {
	return len(d.cards) == 0
}
