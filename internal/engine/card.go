package engine

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// Suit is one of the four French suits, encoded as a single letter on the wire.
type Suit string

const (
	SuitSpades   Suit = "S"
	SuitHearts   Suit = "H"
	SuitDiamonds Suit = "D"
	SuitClubs    Suit = "C"
)

// Suits lists every suit in deck construction order.
var Suits = []Suit{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool {
	switch s {
	case SuitSpades, SuitHearts, SuitDiamonds, SuitClubs:
		return true
	}
	return false
}

// IsRed reports whether s is hearts or diamonds.
func (s Suit) IsRed() bool {
	return s == SuitHearts || s == SuitDiamonds
}

// Rank is a card rank: "A", "2".."10", "J", "Q", "K".
type Rank string

const (
	RankAce   Rank = "A"
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankEight Rank = "8"
	RankNine  Rank = "9"
	RankTen   Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
)

// Ranks lists every rank in ascending numeric order.
var Ranks = []Rank{
	RankAce, RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven,
	RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing,
}

var rankValues = map[Rank]int{
	RankAce: 1, RankTwo: 2, RankThree: 3, RankFour: 4, RankFive: 5, RankSix: 6, RankSeven: 7,
	RankEight: 8, RankNine: 9, RankTen: 10, RankJack: 11, RankQueen: 12, RankKing: 13,
}

// Value returns the numeric position of the rank used for run adjacency (A=1 .. K=13),
// or 0 for an unknown rank.
func (r Rank) Value() int {
	return rankValues[r]
}

// IsPower reports whether the rank has a non-default resolution effect.
func (r Rank) IsPower() bool {
	switch r {
	case RankAce, RankTwo, RankEight, RankJack, RankQueen, RankKing:
		return true
	}
	return false
}

// DeckSize is the number of cards in one standard deck.
const DeckSize = 52

// Card is a single physical card. ID distinguishes instances for the lifetime of a match.
type Card struct {
	ID   uuid.UUID `json:"id"`
	Rank Rank      `json:"rank"`
	Suit Suit      `json:"suit"`
}

// IsPower reports whether the card is an Ace, 2, 8, Jack, Queen or King.
func (c Card) IsPower() bool {
	return c.Rank.IsPower()
}

func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// NewDeck returns all 52 rank×suit combinations in a fixed order, each with a fresh ID.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, Card{ID: uuid.New(), Rank: r, Suit: s})
		}
	}
	return deck
}

// NewShuffledDeck returns a fresh 52-card deck in uniformly random order.
func NewShuffledDeck(r *rand.Rand) []Card {
	deck := NewDeck()
	shuffle(r, deck)
	return deck
}

// shuffle is an in-place Fisher–Yates shuffle.
func shuffle(r *rand.Rand, cards []Card) {
	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
