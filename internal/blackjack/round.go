// Package blackjack implements the rules of a single 21-point round
// against a house dealer.
//
// A Round is a plain state machine. It never touches balances; callers read
// Payout once the round is finished and settle it elsewhere.
package blackjack

import (
	"errors"

	"casino-bot/internal/random"
)

const (
	Target          = 21
	DealerStandsOn  = 17
	BlackjackNumer  = 5
	BlackjackDenom  = 2
	WinMultiplier   = 2
	PushMultiplier  = 1
	InitialHandSize = 2
)

var (
	ErrRoundFinished = errors.New("round already finished")
	ErrShoeEmpty     = errors.New("shoe is empty")
	ErrNotDealt      = errors.New("round has not been dealt")
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

type Outcome string

const (
	OutcomeNone      Outcome = "none"
	OutcomeBlackjack Outcome = "blackjack"
	OutcomeWin       Outcome = "win"
	OutcomeLose      Outcome = "lose"
	OutcomePush      Outcome = "push"
	OutcomeBust      Outcome = "bust"
)

// Won reports whether the outcome counts toward a player's wins.
func (o Outcome) Won() bool {
	return o == OutcomeWin || o == OutcomeBlackjack
}

type Round struct {
	Bet     int64   `json:"bet"`
	Shoe    []Card  `json:"-"`
	Player  []Card  `json:"player_hand"`
	Dealer  []Card  `json:"dealer_hand"`
	Status  Status  `json:"status"`
	Outcome Outcome `json:"outcome"`
	// Acted is set once the player has hit or stood.
	Acted bool `json:"acted"`
	dealt bool
}

// NewRound creates a round with a freshly shuffled 52-card shoe.
func NewRound(bet int64, src random.Source) *Round {
	shoe := NewDeck()
	Shuffle(shoe, src)
	return NewRoundWithShoe(bet, shoe)
}

// NewRoundWithShoe creates a round that draws from shoe front to back.
func NewRoundWithShoe(bet int64, shoe []Card) *Round {
	return &Round{
		Bet:     bet,
		Shoe:    shoe,
		Status:  StatusInProgress,
		Outcome: OutcomeNone,
	}
}

func (r *Round) draw() (Card, error) {
	if len(r.Shoe) == 0 {
		return Card{}, ErrShoeEmpty
	}
	c := r.Shoe[0]
	r.Shoe = r.Shoe[1:]
	return c, nil
}

func (r *Round) finish(o Outcome) {
	r.Status = StatusFinished
	r.Outcome = o
}

func (r *Round) Finished() bool {
	return r.Status == StatusFinished
}

func (r *Round) PlayerValue() int {
	return HandValue(r.Player)
}

func (r *Round) DealerValue() int {
	return HandValue(r.Dealer)
}

// DealerCardCount is the number of cards the dealer holds so far. Callers
// decide how many of them to reveal.
func (r *Round) DealerCardCount() int {
	return len(r.Dealer)
}

// Deal gives two cards to the player, then two to the dealer. A two-card
// 21 ends the round at once: blackjack, or push if the dealer also has 21.
func (r *Round) Deal() error {
	if r.Finished() {
		return ErrRoundFinished
	}
	if r.dealt {
		return nil
	}
	for _, hand := range []*[]Card{&r.Player, &r.Player, &r.Dealer, &r.Dealer} {
		c, err := r.draw()
		if err != nil {
			return err
		}
		*hand = append(*hand, c)
	}
	r.dealt = true

	if r.PlayerValue() == Target {
		if r.DealerValue() == Target {
			r.finish(OutcomePush)
		} else {
			r.finish(OutcomeBlackjack)
		}
	}
	return nil
}

// Hit draws one card for the player. Going over 21 busts the round.
// Reaching exactly 21 returns autoStand so the caller runs the dealer.
func (r *Round) Hit() (autoStand bool, err error) {
	if r.Finished() {
		return false, ErrRoundFinished
	}
	if !r.dealt {
		return false, ErrNotDealt
	}
	c, err := r.draw()
	if err != nil {
		return false, err
	}
	r.Player = append(r.Player, c)
	r.Acted = true

	switch v := r.PlayerValue(); {
	case v > Target:
		r.finish(OutcomeBust)
		return false, nil
	case v == Target:
		return true, nil
	}
	return false, nil
}

// DealerPlay draws for the dealer until 17 or more (soft 17 stands) and
// decides the round.
func (r *Round) DealerPlay() error {
	if r.Finished() {
		return ErrRoundFinished
	}
	if !r.dealt {
		return ErrNotDealt
	}
	r.Acted = true
	for r.DealerValue() < DealerStandsOn {
		c, err := r.draw()
		if err != nil {
			return err
		}
		r.Dealer = append(r.Dealer, c)
	}

	player, dealer := r.PlayerValue(), r.DealerValue()
	switch {
	case dealer > Target:
		r.finish(OutcomeWin)
	case player > dealer:
		r.finish(OutcomeWin)
	case player < dealer:
		r.finish(OutcomeLose)
	default:
		r.finish(OutcomePush)
	}
	return nil
}

// Payout is the total returned to the player, stake included. Blackjack
// pays 2.5x truncated toward zero.
func (r *Round) Payout() int64 {
	switch r.Outcome {
	case OutcomeBlackjack:
		return r.Bet * BlackjackNumer / BlackjackDenom
	case OutcomeWin:
		return r.Bet * WinMultiplier
	case OutcomePush:
		return r.Bet * PushMultiplier
	default:
		return 0
	}
}
