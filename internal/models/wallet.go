package models

const (
	JackpotFloor = 10000
	JackpotRowID = 1
)

// Jackpot is the singleton progressive pot shared by every slot spin.
// Amount never drops below JackpotFloor.
type Jackpot struct {
	ID            int    `json:"-" redis:"-" gorm:"primaryKey"`
	Amount        int64  `json:"amount" redis:"amount"`
	LastWinner    string `json:"last_winner,omitempty" redis:"last_winner" gorm:"size:64"`
	LastWinAmount int64  `json:"last_win_amount,omitempty" redis:"last_win_amount"`
	LastWinDate   int64  `json:"last_win_date,omitempty" redis:"last_win_date"`
}

func (Jackpot) TableName() string { return "jackpots" }

func (j *Jackpot) HasWinner() bool {
	return j.LastWinner != ""
}

type JackpotView struct {
	Amount              int64  `json:"amount"`
	LastWinner          string `json:"last_winner,omitempty"`
	LastWinAmount       int64  `json:"last_win_amount,omitempty"`
	LastWinDate         int64  `json:"last_win_date,omitempty"`
	ContributionPercent int    `json:"contribution_percent"`
}
