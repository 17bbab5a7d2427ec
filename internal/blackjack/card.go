package blackjack

import (
	"fmt"

	"casino-bot/internal/random"
)

type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

var suitSymbols = [...]string{"♠", "♥", "♦", "♣"}

func (s Suit) String() string {
	if s < Spades || s > Clubs {
		return "?"
	}
	return suitSymbols[s]
}

type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

var rankNames = [...]string{"", "A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

func (r Rank) String() string {
	if r < Ace || r > King {
		return "?"
	}
	return rankNames[r]
}

// Points is the face value of the rank. Aces count 11 here; HandValue
// downgrades them.
func (r Rank) Points() int {
	switch {
	case r == Ace:
		return 11
	case r >= Ten:
		return 10
	default:
		return int(r)
	}
}

// Card encodes as text such as "10♦".
type Card struct {
	Rank Rank
	Suit Suit
}

func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(text []byte) error {
	s := string(text)
	for suit := Spades; suit <= Clubs; suit++ {
		sym := suit.String()
		if len(s) <= len(sym) || s[len(s)-len(sym):] != sym {
			continue
		}
		prefix := s[:len(s)-len(sym)]
		for rank := Ace; rank <= King; rank++ {
			if rank.String() == prefix {
				c.Rank, c.Suit = rank, suit
				return nil
			}
		}
	}
	return fmt.Errorf("invalid card: %q", s)
}

// NewDeck returns the 52 distinct cards in suit-major order.
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Ace; rank <= King; rank++ {
			deck = append(deck, Card{Rank: rank, Suit: suit})
		}
	}
	return deck
}

// Shuffle applies a uniform Fisher-Yates permutation drawn from src.
func Shuffle(cards []Card, src random.Source) {
	for i := len(cards) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// HandValue scores a hand. Aces start at 11 and drop to 1 one at a time
// while the total is over 21.
func HandValue(hand []Card) int {
	value, aces := 0, 0
	for _, c := range hand {
		value += c.Rank.Points()
		if c.Rank == Ace {
			aces++
		}
	}
	for value > 21 && aces > 0 {
		value -= 10
		aces--
	}
	return value
}

// IsSoft reports whether the hand's value still counts an ace as 11.
func IsSoft(hand []Card) bool {
	hard := 0
	hasAce := false
	for _, c := range hand {
		if c.Rank == Ace {
			hard++
			hasAce = true
			continue
		}
		hard += c.Rank.Points()
	}
	return hasAce && hard+10 <= 21
}
