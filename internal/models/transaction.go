package models

type GameType string

const (
	GameTypeBlackjack GameType = "blackjack"
	GameTypeSlots     GameType = "slots"
	GameTypeBonus     GameType = "bonus"
)

// Settlement is one game outcome to be applied to the ledger. ID makes the
// application idempotent: replaying the same ID returns the stored result.
type Settlement struct {
	ID       string
	PlayerID string
	Game     GameType
	Outcome  string
	Bet      int64
	Payout   int64
	Won      bool
	// Contribution is added to the jackpot unconditionally.
	Contribution int64
	// JackpotPayout replaces Payout with the whole pot and resets it.
	JackpotPayout bool
}

type SettlementResult struct {
	Payout        int64 `json:"payout"`
	BalanceBefore int64 `json:"balance_before"`
	BalanceAfter  int64 `json:"balance_after"`
	JackpotAfter  int64 `json:"jackpot_after"`
	JackpotWon    bool  `json:"jackpot_won"`
	Replayed      bool  `json:"-"`
}

// Transaction is the persisted record of one settlement.
type Transaction struct {
	ID            string   `json:"id" redis:"id" gorm:"primaryKey;size:64"`
	PlayerID      string   `json:"player_id" redis:"player_id" gorm:"size:64;index"`
	Game          GameType `json:"game" redis:"game" gorm:"size:16"`
	Outcome       string   `json:"outcome" redis:"outcome" gorm:"size:16"`
	Bet           int64    `json:"bet" redis:"bet"`
	Payout        int64    `json:"payout" redis:"payout"`
	BalanceBefore int64    `json:"balance_before" redis:"balance_before"`
	BalanceAfter  int64    `json:"balance_after" redis:"balance_after"`
	JackpotAfter  int64    `json:"jackpot_after" redis:"jackpot_after"`
	JackpotWon    bool     `json:"jackpot_won" redis:"jackpot_won"`
	CreatedAt     int64    `json:"created_at" redis:"created_at" gorm:"index;autoCreateTime:false"`
}

func (Transaction) TableName() string { return "transactions" }

func (t *Transaction) Result(replayed bool) *SettlementResult {
	return &SettlementResult{
		Payout:        t.Payout,
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		JackpotAfter:  t.JackpotAfter,
		JackpotWon:    t.JackpotWon,
		Replayed:      replayed,
	}
}
