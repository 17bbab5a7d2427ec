package models

const (
	StartingCoins = 1000
	BonusCoins    = 500
	DefaultBet    = 10
)

// Account is a player's balance and lifetime statistics. It is created
// lazily with StartingCoins and never deleted.
type Account struct {
	PlayerID        string `json:"player_id" redis:"player_id" gorm:"primaryKey;size:64"`
	Coins           int64  `json:"coins" redis:"coins" gorm:"index"`
	TotalWins       int64  `json:"total_wins" redis:"total_wins"`
	TotalLosses     int64  `json:"total_losses" redis:"total_losses"`
	BiggestWin      int64  `json:"biggest_win" redis:"biggest_win"`
	BankruptcyCount int64  `json:"bankruptcy_count" redis:"bankruptcy_count" gorm:"index"`

	CreatedAt  int64 `json:"created_at" redis:"created_at" gorm:"autoCreateTime:false"`
	LastPlayed int64 `json:"last_played" redis:"last_played"`
}

func (Account) TableName() string { return "accounts" }

func (a *Account) TotalPlays() int64 {
	return a.TotalWins + a.TotalLosses
}

// WinRate is the percentage of plays counted as wins, 0 with no plays.
func (a *Account) WinRate() float64 {
	plays := a.TotalPlays()
	if plays == 0 {
		return 0
	}
	return float64(a.TotalWins) / float64(plays) * 100
}

type RankEntry struct {
	Rank            int    `json:"rank"`
	PlayerID        string `json:"player_id"`
	Coins           int64  `json:"coins"`
	TotalWins       int64  `json:"total_wins"`
	TotalLosses     int64  `json:"total_losses"`
	BankruptcyCount int64  `json:"bankruptcy_count"`
}
