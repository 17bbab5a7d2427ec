package services

import (
	"context"

	"casino-bot/internal/models"
)

// Store is the durable ledger. Only the Settler calls the mutating methods.
type Store interface {
	// GetAccount returns the player's account, creating it on first access.
	GetAccount(ctx context.Context, playerID string) (*models.Account, error)
	GetJackpot(ctx context.Context) (*models.Jackpot, error)

	// ApplySettlement debits the bet, credits the payout, updates statistics
	// and the jackpot, and records the transaction, all atomically. Applying
	// an ID twice returns the first result with Replayed set.
	ApplySettlement(ctx context.Context, s *models.Settlement) (*models.SettlementResult, error)
	// ApplyBonus grants amount to a player holding zero coins and counts a
	// bankruptcy. It fails with ErrFundsRemaining otherwise.
	ApplyBonus(ctx context.Context, playerID string, amount int64) (*models.Account, error)

	TopByCoins(ctx context.Context, limit int64) ([]models.RankEntry, error)
	TopByBankruptcy(ctx context.Context, limit int64) ([]models.RankEntry, error)
	GetHistory(ctx context.Context, playerID string, limit int64) ([]*models.Transaction, error)

	Close() error
}

func clampLimit(limit, def, max int64) int64 {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
