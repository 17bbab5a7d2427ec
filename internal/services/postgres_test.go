package services_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"casino-bot/internal/config"
	"casino-bot/internal/models"
	"casino-bot/internal/services"

	"github.com/google/uuid"
)

func newPostgresStore(t *testing.T) *services.PostgresService {
	t.Helper()
	dsn := os.Getenv("CASINO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CASINO_TEST_POSTGRES_DSN not set")
	}

	store, err := services.NewPostgresService(&config.Config{PostgresDSN: dsn, DBAutoMigrate: true})
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// Tables are shared between runs, so every player id is unique.
func uniquePlayer(name string) string {
	return name + "_" + uuid.NewString()[:8]
}

func TestPostgresSettlement(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	player := uniquePlayer("alice")

	account, err := store.GetAccount(ctx, player)
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	if account.Coins != models.StartingCoins {
		t.Fatalf("Expected %d starting coins, got %d", models.StartingCoins, account.Coins)
	}

	st := &models.Settlement{
		ID: models.GenerateRoundID(), PlayerID: player, Game: models.GameTypeBlackjack,
		Outcome: "blackjack", Bet: 10, Payout: 25, Won: true,
	}
	res, err := store.ApplySettlement(ctx, st)
	if err != nil {
		t.Fatalf("Failed to settle: %v", err)
	}
	if res.BalanceAfter != 1015 {
		t.Errorf("Expected 1015, got %d", res.BalanceAfter)
	}

	replay, err := store.ApplySettlement(ctx, st)
	if err != nil || !replay.Replayed || replay.BalanceAfter != 1015 {
		t.Errorf("Expected idempotent replay, got %+v, %v", replay, err)
	}

	_, err = store.ApplySettlement(ctx, &models.Settlement{
		ID: models.GenerateTransactionID(), PlayerID: player, Game: models.GameTypeSlots, Bet: 5000,
	})
	if !errors.Is(err, services.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}

	history, err := store.GetHistory(ctx, player, 0)
	if err != nil || len(history) != 1 {
		t.Errorf("Expected one history record, got %v, %v", history, err)
	}
}

func TestPostgresConcurrentContributions(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	before, err := store.GetJackpot(ctx)
	if err != nil {
		t.Fatalf("Failed to get jackpot: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.ApplySettlement(ctx, &models.Settlement{
				ID:           models.GenerateTransactionID(),
				PlayerID:     uniquePlayer(fmt.Sprintf("spinner%d", i)),
				Game:         models.GameTypeSlots,
				Outcome:      "none",
				Bet:          100,
				Contribution: 5,
			})
			if err != nil {
				t.Errorf("Settlement %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	after, err := store.GetJackpot(ctx)
	if err != nil {
		t.Fatalf("Failed to get jackpot: %v", err)
	}
	if after.Amount-before.Amount != n*5 {
		t.Errorf("Lost contribution: jackpot moved by %d, expected %d", after.Amount-before.Amount, n*5)
	}
}

func TestPostgresConcurrentJackpotWins(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	if _, err := store.ApplySettlement(ctx, &models.Settlement{
		ID: models.GenerateTransactionID(), PlayerID: uniquePlayer("feeder"), Game: models.GameTypeSlots,
		Outcome: "none", Bet: 500, Contribution: 500,
	}); err != nil {
		t.Fatalf("Failed to feed the jackpot: %v", err)
	}
	before, err := store.GetJackpot(ctx)
	if err != nil {
		t.Fatalf("Failed to get jackpot: %v", err)
	}

	winners := []string{uniquePlayer("winner"), uniquePlayer("winner")}
	payouts := make([]int64, len(winners))
	var wg sync.WaitGroup
	for i, player := range winners {
		wg.Add(1)
		go func(i int, player string) {
			defer wg.Done()
			res, err := store.ApplySettlement(ctx, &models.Settlement{
				ID:            models.GenerateTransactionID(),
				PlayerID:      player,
				Game:          models.GameTypeSlots,
				Outcome:       "jackpot",
				Bet:           10,
				Won:           true,
				JackpotPayout: true,
			})
			if err != nil {
				t.Errorf("Jackpot settlement %d failed: %v", i, err)
				return
			}
			payouts[i] = res.Payout
		}(i, player)
	}
	wg.Wait()

	if payouts[0]+payouts[1] != before.Amount+models.JackpotFloor ||
		(payouts[0] != before.Amount && payouts[1] != before.Amount) {
		t.Errorf("Expected one payout of %d and one of the floor, got %v", before.Amount, payouts)
	}

	after, err := store.GetJackpot(ctx)
	if err != nil {
		t.Fatalf("Failed to get jackpot: %v", err)
	}
	if after.Amount != models.JackpotFloor {
		t.Errorf("Expected jackpot reset to floor, got %d", after.Amount)
	}
	if after.LastWinner != winners[0] && after.LastWinner != winners[1] {
		t.Errorf("Winner not recorded: %+v", after)
	}
}

func TestPostgresBonus(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	player := uniquePlayer("dave")

	if _, err := store.ApplySettlement(ctx, &models.Settlement{
		ID: models.GenerateTransactionID(), PlayerID: player, Game: models.GameTypeSlots, Bet: 1000,
	}); err != nil {
		t.Fatalf("Failed to settle: %v", err)
	}

	account, err := store.ApplyBonus(ctx, player, models.BonusCoins)
	if err != nil {
		t.Fatalf("Failed to claim bonus: %v", err)
	}
	if account.Coins != models.BonusCoins || account.BankruptcyCount != 1 {
		t.Errorf("Unexpected account: %+v", account)
	}
	if _, err := store.ApplyBonus(ctx, player, models.BonusCoins); !errors.Is(err, services.ErrFundsRemaining) {
		t.Errorf("Expected ErrFundsRemaining, got %v", err)
	}
}
