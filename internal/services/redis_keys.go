package services

import "time"

const (
	KeyPlayer         = "casino:player:%s"
	KeyPlayerHistory  = "casino:player:%s:history"
	KeyJackpot        = "casino:jackpot"
	KeyTransaction    = "casino:tx:%s"
	KeyRankCoins      = "casino:rank:coins"
	KeyRankBankruptcy = "casino:rank:bankruptcy"
	KeyRateLimit      = "casino:ratelimit:%s:%s"

	TTLTransaction = 30 * 24 * time.Hour // 30 days

	HistoryLimit        = 100
	DefaultHistoryLimit = 20
	DefaultRankingLimit = 10
	MaxRankingLimit     = 100

	DefaultRateLimitBets    = 30 // Max 30 bets per minute
	DefaultRateLimitActions = 60 // Max 60 hits/stands per minute
)
