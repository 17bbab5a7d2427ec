package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"casino-bot/internal/config"
	"casino-bot/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{client: client, now: time.Now}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func playerKey(playerID string) string {
	return fmt.Sprintf(KeyPlayer, playerID)
}

func historyKey(playerID string) string {
	return fmt.Sprintf(KeyPlayerHistory, playerID)
}

func transactionKey(id string) string {
	return fmt.Sprintf(KeyTransaction, id)
}

// Shared by every script that may touch an account or the jackpot first.
const ensureLua = `
local function ensure_account(key, rank_key, player_id, start, now)
	if redis.call("HSETNX", key, "coins", start) == 1 then
		redis.call("HSET", key, "player_id", player_id, "total_wins", 0, "total_losses", 0,
			"biggest_win", 0, "bankruptcy_count", 0, "created_at", now, "last_played", 0)
		redis.call("ZADD", rank_key, start, player_id)
	end
end

local function ensure_jackpot(key, floor)
	redis.call("HSETNX", key, "amount", floor)
end
`

var ensureAccountScript = redis.NewScript(ensureLua + `
	ensure_account(KEYS[1], KEYS[2], ARGV[1], tonumber(ARGV[2]), ARGV[3])
	return 1
`)

var settleScript = redis.NewScript(ensureLua + `
	local player_key, jackpot_key, tx_key, history_key, rank_key = KEYS[1], KEYS[2], KEYS[3], KEYS[4], KEYS[5]
	local player_id = ARGV[1]
	local bet = tonumber(ARGV[2])
	local payout = tonumber(ARGV[3])
	local won = ARGV[4] == "1"
	local contribution = tonumber(ARGV[5])
	local take_jackpot = ARGV[6] == "1"
	local now = ARGV[7]
	local floor = tonumber(ARGV[8])

	if redis.call("EXISTS", tx_key) == 1 then
		local r = redis.call("HMGET", tx_key, "payout", "balance_before", "balance_after", "jackpot_after", "jackpot_won")
		return {tonumber(r[1]), tonumber(r[2]), tonumber(r[3]), tonumber(r[4]), tonumber(r[5]), 1}
	end

	ensure_account(player_key, rank_key, player_id, tonumber(ARGV[9]), now)
	ensure_jackpot(jackpot_key, floor)

	local before = tonumber(redis.call("HGET", player_key, "coins"))
	if before < bet then
		return redis.error_reply("insufficient funds")
	end

	local pot = tonumber(redis.call("HGET", jackpot_key, "amount"))
	local jackpot_won = 0
	if take_jackpot then
		payout = pot
		pot = floor
		jackpot_won = 1
		redis.call("HSET", jackpot_key, "amount", pot, "last_winner", player_id,
			"last_win_amount", payout, "last_win_date", now)
	end
	if contribution > 0 then
		pot = redis.call("HINCRBY", jackpot_key, "amount", contribution)
	end

	local after = before - bet + payout
	redis.call("HSET", player_key, "coins", after, "last_played", now)
	if won then
		redis.call("HINCRBY", player_key, "total_wins", 1)
	else
		redis.call("HINCRBY", player_key, "total_losses", 1)
	end
	if payout > tonumber(redis.call("HGET", player_key, "biggest_win")) then
		redis.call("HSET", player_key, "biggest_win", payout)
	end
	redis.call("ZADD", rank_key, after, player_id)

	redis.call("HSET", tx_key, "id", ARGV[12], "player_id", player_id, "game", ARGV[10],
		"outcome", ARGV[11], "bet", bet, "payout", payout, "balance_before", before,
		"balance_after", after, "jackpot_after", pot, "jackpot_won", jackpot_won, "created_at", now)
	redis.call("EXPIRE", tx_key, tonumber(ARGV[13]))
	redis.call("ZADD", history_key, tonumber(ARGV[14]), ARGV[12])
	redis.call("ZREMRANGEBYRANK", history_key, 0, -(tonumber(ARGV[15]) + 1))

	return {payout, before, after, pot, jackpot_won, 0}
`)

var bonusScript = redis.NewScript(ensureLua + `
	local player_key, rank_key, bankrupt_key, tx_key, history_key = KEYS[1], KEYS[2], KEYS[3], KEYS[4], KEYS[5]
	local player_id = ARGV[1]
	local amount = tonumber(ARGV[2])
	local now = ARGV[4]

	ensure_account(player_key, rank_key, player_id, tonumber(ARGV[3]), now)

	local coins = tonumber(redis.call("HGET", player_key, "coins"))
	if coins > 0 then
		return redis.error_reply("funds remaining")
	end

	redis.call("HSET", player_key, "coins", amount)
	local count = redis.call("HINCRBY", player_key, "bankruptcy_count", 1)
	redis.call("ZADD", rank_key, amount, player_id)
	redis.call("ZADD", bankrupt_key, count, player_id)

	redis.call("HSET", tx_key, "id", ARGV[5], "player_id", player_id, "game", "bonus",
		"outcome", "bonus", "bet", 0, "payout", amount, "balance_before", coins,
		"balance_after", amount, "jackpot_after", 0, "jackpot_won", 0, "created_at", now)
	redis.call("EXPIRE", tx_key, tonumber(ARGV[6]))
	redis.call("ZADD", history_key, tonumber(ARGV[7]), ARGV[5])
	redis.call("ZREMRANGEBYRANK", history_key, 0, -(tonumber(ARGV[8]) + 1))

	return {amount, count}
`)

// scriptError maps error replies raised inside the Lua scripts.
func scriptError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return ErrInsufficientFunds
	case strings.Contains(msg, "funds remaining"):
		return ErrFundsRemaining
	}
	return err
}

func (s *RedisService) GetAccount(ctx context.Context, playerID string) (*models.Account, error) {
	key := playerKey(playerID)
	now := s.now().Unix()

	if err := ensureAccountScript.Run(ctx, s.client, []string{key, KeyRankCoins},
		playerID, models.StartingCoins, now).Err(); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	var account models.Account
	if err := s.client.HGetAll(ctx, key).Scan(&account); err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (s *RedisService) GetJackpot(ctx context.Context) (*models.Jackpot, error) {
	if err := s.client.HSetNX(ctx, KeyJackpot, "amount", models.JackpotFloor).Err(); err != nil {
		return nil, fmt.Errorf("failed to init jackpot: %w", err)
	}

	jackpot := models.Jackpot{ID: models.JackpotRowID}
	if err := s.client.HGetAll(ctx, KeyJackpot).Scan(&jackpot); err != nil {
		return nil, fmt.Errorf("failed to get jackpot: %w", err)
	}
	return &jackpot, nil
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (s *RedisService) ApplySettlement(ctx context.Context, st *models.Settlement) (*models.SettlementResult, error) {
	now := s.now()
	keys := []string{
		playerKey(st.PlayerID),
		KeyJackpot,
		transactionKey(st.ID),
		historyKey(st.PlayerID),
		KeyRankCoins,
	}

	vals, err := settleScript.Run(ctx, s.client, keys,
		st.PlayerID,
		st.Bet,
		st.Payout,
		boolArg(st.Won),
		st.Contribution,
		boolArg(st.JackpotPayout),
		now.Unix(),
		models.JackpotFloor,
		models.StartingCoins,
		string(st.Game),
		st.Outcome,
		st.ID,
		int64(TTLTransaction.Seconds()),
		now.UnixMilli(),
		HistoryLimit,
	).Int64Slice()
	if err != nil {
		if mapped := scriptError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to apply settlement: %w", err)
	}
	if len(vals) != 6 {
		return nil, fmt.Errorf("unexpected settlement reply: %v", vals)
	}

	return &models.SettlementResult{
		Payout:        vals[0],
		BalanceBefore: vals[1],
		BalanceAfter:  vals[2],
		JackpotAfter:  vals[3],
		JackpotWon:    vals[4] == 1,
		Replayed:      vals[5] == 1,
	}, nil
}

func (s *RedisService) ApplyBonus(ctx context.Context, playerID string, amount int64) (*models.Account, error) {
	now := s.now()
	txID := models.GenerateTransactionID()
	keys := []string{
		playerKey(playerID),
		KeyRankCoins,
		KeyRankBankruptcy,
		transactionKey(txID),
		historyKey(playerID),
	}

	err := bonusScript.Run(ctx, s.client, keys,
		playerID,
		amount,
		models.StartingCoins,
		now.Unix(),
		txID,
		int64(TTLTransaction.Seconds()),
		now.UnixMilli(),
		HistoryLimit,
	).Err()
	if err != nil {
		if mapped := scriptError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to apply bonus: %w", err)
	}

	return s.GetAccount(ctx, playerID)
}

func (s *RedisService) TopByCoins(ctx context.Context, limit int64) ([]models.RankEntry, error) {
	return s.ranking(ctx, KeyRankCoins, clampLimit(limit, DefaultRankingLimit, MaxRankingLimit))
}

func (s *RedisService) TopByBankruptcy(ctx context.Context, limit int64) ([]models.RankEntry, error) {
	return s.ranking(ctx, KeyRankBankruptcy, clampLimit(limit, DefaultRankingLimit, MaxRankingLimit))
}

func (s *RedisService) ranking(ctx context.Context, key string, limit int64) ([]models.RankEntry, error) {
	members, err := s.client.ZRevRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ranking: %w", err)
	}
	if len(members) == 0 {
		return []models.RankEntry{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(members))
	for i, id := range members {
		cmds[i] = pipe.HGetAll(ctx, playerKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	entries := make([]models.RankEntry, 0, len(members))
	for i, cmd := range cmds {
		var account models.Account
		if err := cmd.Scan(&account); err != nil || account.PlayerID == "" {
			continue
		}
		entries = append(entries, models.RankEntry{
			Rank:            i + 1,
			PlayerID:        account.PlayerID,
			Coins:           account.Coins,
			TotalWins:       account.TotalWins,
			TotalLosses:     account.TotalLosses,
			BankruptcyCount: account.BankruptcyCount,
		})
	}
	return entries, nil
}

func (s *RedisService) GetHistory(ctx context.Context, playerID string, limit int64) ([]*models.Transaction, error) {
	limit = clampLimit(limit, DefaultHistoryLimit, HistoryLimit)

	ids, err := s.client.ZRevRange(ctx, historyKey(playerID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction IDs: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Transaction{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, transactionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	transactions := make([]*models.Transaction, 0, len(ids))
	for _, cmd := range cmds {
		var tx models.Transaction
		// Expired records leave an empty hash behind their history entry.
		if err := cmd.Scan(&tx); err != nil || tx.ID == "" {
			continue
		}
		transactions = append(transactions, &tx)
	}
	return transactions, nil
}

func (s *RedisService) CheckRateLimit(ctx context.Context, playerID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, playerID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, playerID, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, playerID, action)).Err()
}

// Ping is used by readiness checks; liveness never touches Redis.
func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
