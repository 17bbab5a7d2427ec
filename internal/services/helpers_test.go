package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"casino-bot/internal/blackjack"
	"casino-bot/internal/config"
	"casino-bot/internal/models"
	"casino-bot/internal/services"

	"github.com/alicebob/miniredis/v2"
)

func newRedisStore(t *testing.T) (*services.RedisService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	store, err := services.NewRedisService(&config.Config{RedisURL: mr.Addr()})
	if err != nil {
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, mr
}

// shoe stacks ranks (all spades) in front of a full deck so the dealer can
// never run the shoe dry.
func shoe(ranks ...blackjack.Rank) []blackjack.Card {
	cards := make([]blackjack.Card, 0, len(ranks)+52)
	for _, r := range ranks {
		cards = append(cards, blackjack.Card{Rank: r, Suit: blackjack.Spades})
	}
	return append(cards, blackjack.NewDeck()...)
}

func stackedRounds(ranks ...blackjack.Rank) func(int64) *blackjack.Round {
	return func(bet int64) *blackjack.Round {
		return blackjack.NewRoundWithShoe(bet, shoe(ranks...))
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyStore fails the next failures settlements with a transient error.
type flakyStore struct {
	services.Store

	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyStore) ApplySettlement(ctx context.Context, st *models.Settlement) (*models.SettlementResult, error) {
	f.mu.Lock()
	f.calls++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()

	if fail {
		return nil, errors.New("connection reset by peer")
	}
	return f.Store.ApplySettlement(ctx, st)
}

func (f *flakyStore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	balances map[string]int64
	jackpots []int64
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{balances: make(map[string]int64)}
}

func (b *recordingBroadcaster) BroadcastBalance(playerID string, coins int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[playerID] = coins
}

func (b *recordingBroadcaster) BroadcastJackpot(amount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jackpots = append(b.jackpots, amount)
}

func ptr(v int64) *int64 { return &v }
