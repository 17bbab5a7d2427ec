package services

import (
	"context"
	"fmt"
	"time"

	"casino-bot/internal/models"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	settleInitialInterval = 50 * time.Millisecond
	settleMaxInterval     = time.Second
)

// Settler is the only writer of balances and the jackpot.
type Settler struct {
	store       Store
	broadcaster Broadcaster
	logger      *zap.Logger
	maxTries    uint
	newBackOff  func() backoff.BackOff
}

func NewSettler(store Store, broadcaster Broadcaster, logger *zap.Logger, maxTries uint) *Settler {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTries == 0 {
		maxTries = 1
	}
	return &Settler{
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
		maxTries:    maxTries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = settleInitialInterval
			b.MaxInterval = settleMaxInterval
			return b
		},
	}
}

// Settle applies st to the ledger, retrying transient store failures. The
// settlement ID makes retries safe: a write that landed before its reply was
// lost is replayed rather than applied twice.
func (s *Settler) Settle(ctx context.Context, st *models.Settlement) (*models.SettlementResult, error) {
	log := s.logger.With(
		zap.String("player_id", st.PlayerID),
		zap.String("settlement_id", st.ID),
		zap.String("game", string(st.Game)),
	)

	op := func() (*models.SettlementResult, error) {
		res, err := s.store.ApplySettlement(ctx, st)
		if err != nil && IsUserError(err) {
			return nil, backoff.Permanent(err)
		}
		return res, err
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(s.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("settlement attempt failed", zap.Error(err), zap.Duration("retry_in", next))
		}),
	)
	if err != nil {
		if IsUserError(err) {
			return nil, err
		}
		log.Error("settlement not persisted", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	log.Info("settled",
		zap.String("outcome", st.Outcome),
		zap.Int64("bet", st.Bet),
		zap.Int64("payout", res.Payout),
		zap.Int64("balance", res.BalanceAfter),
		zap.Bool("jackpot_won", res.JackpotWon),
		zap.Bool("replayed", res.Replayed),
	)

	if !res.Replayed {
		s.broadcaster.BroadcastBalance(st.PlayerID, res.BalanceAfter)
		if res.JackpotWon || st.Contribution > 0 {
			s.broadcaster.BroadcastJackpot(res.JackpotAfter)
		}
	}
	return res, nil
}

// ClaimBonus grants BonusCoins to a bankrupt player. It is not retried: a
// lost reply followed by a retry would report ErrFundsRemaining for a grant
// that succeeded.
func (s *Settler) ClaimBonus(ctx context.Context, playerID string) (*models.Account, error) {
	account, err := s.store.ApplyBonus(ctx, playerID, models.BonusCoins)
	if err != nil {
		if IsUserError(err) {
			return nil, err
		}
		s.logger.Error("bonus not persisted", zap.String("player_id", playerID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	s.logger.Info("bonus granted",
		zap.String("player_id", playerID),
		zap.Int64("balance", account.Coins),
		zap.Int64("bankruptcy_count", account.BankruptcyCount),
	)
	s.broadcaster.BroadcastBalance(playerID, account.Coins)
	return account, nil
}
