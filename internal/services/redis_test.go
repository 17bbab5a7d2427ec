package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"casino-bot/internal/models"
	"casino-bot/internal/services"
)

func TestRedisAccountCreatedLazily(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	account, err := store.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	if account.Coins != models.StartingCoins {
		t.Errorf("Expected %d starting coins, got %d", models.StartingCoins, account.Coins)
	}
	if account.PlayerID != "alice" || account.CreatedAt == 0 {
		t.Errorf("Account not initialised: %+v", account)
	}

	// A second read must not reset anything.
	mr.HSet("casino:player:alice", "coins", "42")
	account, err = store.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	if account.Coins != 42 {
		t.Errorf("Expected existing balance 42, got %d", account.Coins)
	}
}

func TestRedisJackpotStartsAtFloor(t *testing.T) {
	store, _ := newRedisStore(t)

	jackpot, err := store.GetJackpot(context.Background())
	if err != nil {
		t.Fatalf("Failed to get jackpot: %v", err)
	}
	if jackpot.Amount != models.JackpotFloor || jackpot.HasWinner() {
		t.Errorf("Expected untouched jackpot at floor, got %+v", jackpot)
	}
}

func TestRedisApplySettlement(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	res, err := store.ApplySettlement(ctx, &models.Settlement{
		ID:       "bj_1",
		PlayerID: "alice",
		Game:     models.GameTypeBlackjack,
		Outcome:  "blackjack",
		Bet:      10,
		Payout:   25,
		Won:      true,
	})
	if err != nil {
		t.Fatalf("Failed to settle: %v", err)
	}
	if res.BalanceBefore != 1000 || res.BalanceAfter != 1015 || res.Payout != 25 || res.Replayed {
		t.Errorf("Unexpected result: %+v", res)
	}

	account, _ := store.GetAccount(ctx, "alice")
	if account.TotalWins != 1 || account.TotalLosses != 0 || account.BiggestWin != 25 || account.LastPlayed == 0 {
		t.Errorf("Statistics not updated: %+v", account)
	}

	if _, err := store.ApplySettlement(ctx, &models.Settlement{
		ID: "bj_2", PlayerID: "alice", Game: models.GameTypeBlackjack, Outcome: "push", Bet: 10, Payout: 10,
	}); err != nil {
		t.Fatalf("Failed to settle: %v", err)
	}
	account, _ = store.GetAccount(ctx, "alice")
	if account.Coins != 1015 || account.TotalLosses != 1 || account.BiggestWin != 25 {
		t.Errorf("Push should leave balance and biggest win alone: %+v", account)
	}

	if ttl := mr.TTL("casino:tx:bj_1"); ttl <= 0 || ttl > services.TTLTransaction {
		t.Errorf("Expected transaction TTL, got %v", ttl)
	}
}

func TestRedisSettlementIsIdempotent(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()
	st := &models.Settlement{ID: "tx_same", PlayerID: "bob", Game: models.GameTypeSlots, Outcome: "pair", Bet: 10, Payout: 20, Won: true}

	first, err := store.ApplySettlement(ctx, st)
	if err != nil {
		t.Fatalf("Failed to settle: %v", err)
	}
	second, err := store.ApplySettlement(ctx, st)
	if err != nil {
		t.Fatalf("Failed to replay: %v", err)
	}

	if !second.Replayed || second.BalanceAfter != first.BalanceAfter {
		t.Errorf("Expected replay of %+v, got %+v", first, second)
	}
	account, _ := store.GetAccount(ctx, "bob")
	if account.Coins != 1010 || account.TotalWins != 1 {
		t.Errorf("Replay applied twice: %+v", account)
	}
}

func TestRedisInsufficientFunds(t *testing.T) {
	store, _ := newRedisStore(t)

	_, err := store.ApplySettlement(context.Background(), &models.Settlement{
		ID: "tx_big", PlayerID: "carol", Game: models.GameTypeSlots, Outcome: "none", Bet: 5000,
	})
	if !errors.Is(err, services.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
}

func TestRedisConcurrentContributions(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.ApplySettlement(ctx, &models.Settlement{
				ID:           fmt.Sprintf("tx_%d", i),
				PlayerID:     fmt.Sprintf("player_%d", i%7),
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

	jackpot, _ := store.GetJackpot(ctx)
	if want := int64(models.JackpotFloor + n*5); jackpot.Amount != want {
		t.Errorf("Lost contribution: expected %d, got %d", want, jackpot.Amount)
	}
}

func TestRedisConcurrentJackpotWins(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	mr.HSet("casino:jackpot", "amount", "25000")

	payouts := make([]int64, 2)
	var wg sync.WaitGroup
	for i := range payouts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := store.ApplySettlement(ctx, &models.Settlement{
				ID:            fmt.Sprintf("tx_jp_%d", i),
				PlayerID:      fmt.Sprintf("winner_%d", i),
				Game:          models.GameTypeSlots,
				Outcome:       "jackpot",
				Bet:           10,
				Won:           true,
				JackpotPayout: true,
			})
			if err != nil {
				t.Errorf("Jackpot settlement failed: %v", err)
				return
			}
			payouts[i] = res.Payout
		}(i)
	}
	wg.Wait()

	if payouts[0]+payouts[1] != 25000+models.JackpotFloor || (payouts[0] != 25000 && payouts[1] != 25000) {
		t.Errorf("Expected one payout of 25000 and one of the floor, got %v", payouts)
	}

	jackpot, _ := store.GetJackpot(ctx)
	if jackpot.Amount != models.JackpotFloor {
		t.Errorf("Expected jackpot reset to floor, got %d", jackpot.Amount)
	}
	if !jackpot.HasWinner() || jackpot.LastWinDate == 0 {
		t.Errorf("Winner not recorded: %+v", jackpot)
	}
}

func TestRedisBonus(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	if _, err := store.ApplyBonus(ctx, "dave", models.BonusCoins); !errors.Is(err, services.ErrFundsRemaining) {
		t.Fatalf("Expected ErrFundsRemaining for a fresh account, got %v", err)
	}

	if _, err := store.ApplySettlement(ctx, &models.Settlement{
		ID: "tx_all_in", PlayerID: "dave", Game: models.GameTypeSlots, Outcome: "none", Bet: 1000,
	}); err != nil {
		t.Fatalf("Failed to settle: %v", err)
	}

	account, err := store.ApplyBonus(ctx, "dave", models.BonusCoins)
	if err != nil {
		t.Fatalf("Failed to claim bonus: %v", err)
	}
	if account.Coins != models.BonusCoins || account.BankruptcyCount != 1 {
		t.Errorf("Unexpected account after bonus: %+v", account)
	}

	if _, err := store.ApplyBonus(ctx, "dave", models.BonusCoins); !errors.Is(err, services.ErrFundsRemaining) {
		t.Errorf("Expected ErrFundsRemaining on second claim, got %v", err)
	}

	ranking, err := store.TopByBankruptcy(ctx, 0)
	if err != nil {
		t.Fatalf("Failed to read ranking: %v", err)
	}
	if len(ranking) != 1 || ranking[0].PlayerID != "dave" || ranking[0].BankruptcyCount != 1 {
		t.Errorf("Unexpected bankruptcy ranking: %+v", ranking)
	}
}

func TestRedisRankings(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	for i, payout := range []int64{0, 50, 20} {
		if _, err := store.ApplySettlement(ctx, &models.Settlement{
			ID:       fmt.Sprintf("tx_rank_%d", i),
			PlayerID: fmt.Sprintf("p%d", i),
			Game:     models.GameTypeSlots,
			Bet:      10,
			Payout:   payout,
		}); err != nil {
			t.Fatalf("Failed to settle: %v", err)
		}
	}

	ranking, err := store.TopByCoins(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to read ranking: %v", err)
	}
	if len(ranking) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(ranking))
	}
	if ranking[0].PlayerID != "p1" || ranking[0].Coins != 1040 || ranking[0].Rank != 1 {
		t.Errorf("Unexpected leader: %+v", ranking[0])
	}
	if ranking[1].PlayerID != "p2" || ranking[1].Coins != 1010 {
		t.Errorf("Unexpected runner-up: %+v", ranking[1])
	}

	empty, err := store.TopByBankruptcy(ctx, 10)
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty bankruptcy ranking, got %v, %v", empty, err)
	}
}

func TestRedisHistory(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.ApplySettlement(ctx, &models.Settlement{
			ID: fmt.Sprintf("tx_hist_%d", i), PlayerID: "erin", Game: models.GameTypeSlots, Outcome: "none", Bet: 10,
		}); err != nil {
			t.Fatalf("Failed to settle: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	history, err := store.GetHistory(ctx, "erin", 2)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(history))
	}
	if history[0].ID != "tx_hist_2" || history[1].ID != "tx_hist_1" {
		t.Errorf("Expected newest first, got %s, %s", history[0].ID, history[1].ID)
	}
	if history[0].BalanceBefore != 980 || history[0].BalanceAfter != 970 || history[0].Game != models.GameTypeSlots {
		t.Errorf("Unexpected record: %+v", history[0])
	}

	none, err := store.GetHistory(ctx, "nobody", 0)
	if err != nil || len(none) != 0 {
		t.Errorf("Expected no history, got %v, %v", none, err)
	}
}

func TestRedisRateLimit(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, err := store.CheckRateLimit(ctx, "frank", "spin", 2, time.Minute)
		if err != nil {
			t.Fatalf("Failed to check rate limit: %v", err)
		}
		if want := i <= 2; allowed != want {
			t.Errorf("Request %d: expected allowed=%v", i, want)
		}
	}

	if err := store.ClearRateLimit(ctx, "frank", "spin"); err != nil {
		t.Fatalf("Failed to clear rate limit: %v", err)
	}
	if allowed, _ := store.CheckRateLimit(ctx, "frank", "spin", 2, time.Minute); !allowed {
		t.Error("Expected requests to be allowed after clearing")
	}
}
