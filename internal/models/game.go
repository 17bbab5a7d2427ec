package models

import (
	"casino-bot/internal/blackjack"
	"casino-bot/internal/slots"
)

// RoundView is what a player may see of a card round. While the round is
// open and the player has not acted, only the dealer's first card shows.
type RoundView struct {
	ID           string            `json:"id"`
	Bet          int64             `json:"bet"`
	Status       blackjack.Status  `json:"status"`
	Outcome      blackjack.Outcome `json:"outcome"`
	PlayerHand   []blackjack.Card  `json:"player_hand"`
	PlayerValue  int               `json:"player_value"`
	PlayerSoft   bool              `json:"player_soft,omitempty"`
	DealerHand   []blackjack.Card  `json:"dealer_hand"`
	DealerValue  int               `json:"dealer_value,omitempty"`
	DealerHidden int               `json:"dealer_hidden"`
}

func NewRoundView(id string, r *blackjack.Round) *RoundView {
	v := &RoundView{
		ID:          id,
		Bet:         r.Bet,
		Status:      r.Status,
		Outcome:     r.Outcome,
		PlayerHand:  append([]blackjack.Card(nil), r.Player...),
		PlayerValue: r.PlayerValue(),
		PlayerSoft:  blackjack.IsSoft(r.Player),
	}
	if r.Finished() || r.Acted || r.DealerCardCount() < 2 {
		v.DealerHand = append([]blackjack.Card(nil), r.Dealer...)
		v.DealerValue = r.DealerValue()
		return v
	}
	v.DealerHand = []blackjack.Card{r.Dealer[0]}
	v.DealerHidden = r.DealerCardCount() - 1
	return v
}

type SpinView struct {
	Reels slots.Reels `json:"reels"`
	Tier  slots.Tier  `json:"tier"`
}

// Result is the structured answer to a Request. Rendering is left to the
// dispatcher.
type Result struct {
	Action     Action         `json:"action"`
	PlayerID   string         `json:"player_id"`
	Outcome    string         `json:"outcome,omitempty"`
	Round      *RoundView     `json:"round,omitempty"`
	Spin       *SpinView      `json:"spin,omitempty"`
	Bet        int64          `json:"bet,omitempty"`
	Payout     int64          `json:"payout"`
	Balance    int64          `json:"balance"`
	JackpotWon bool           `json:"jackpot_won,omitempty"`
	Jackpot    *JackpotView   `json:"jackpot,omitempty"`
	Account    *Account       `json:"account,omitempty"`
	WinRate    float64        `json:"win_rate,omitempty"`
	Rankings   []RankEntry    `json:"rankings,omitempty"`
	History    []*Transaction `json:"history,omitempty"`
}
