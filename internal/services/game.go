package services

import (
	"context"
	"fmt"
	"time"

	"casino-bot/internal/blackjack"
	"casino-bot/internal/models"
	"casino-bot/internal/random"
	"casino-bot/internal/slots"

	"go.uber.org/zap"
)

const DefaultRoundTimeout = 5 * time.Minute

type EngineOptions struct {
	RoundTimeout   time.Duration
	SettleMaxTries uint
	Broadcaster    Broadcaster
	Logger         *zap.Logger

	// Rand drives shuffles and reels. A crypto-seeded source is used when nil.
	Rand random.Source
	// NewRound overrides how card rounds are built; tests stack the shoe.
	NewRound func(bet int64) *blackjack.Round
	Now      func() time.Time
}

// GameEngine is the entry point for every player action. Dispatchers call
// Dispatch, or the typed methods directly.
type GameEngine struct {
	store    Store
	locks    *PlayerLocks
	settler  *Settler
	sessions *SessionManager
	rand     random.Source
	logger   *zap.Logger
}

func NewGameEngine(store Store, opts EngineOptions) (*GameEngine, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RoundTimeout <= 0 {
		opts.RoundTimeout = DefaultRoundTimeout
	}
	if opts.Rand == nil {
		seed, err := random.NewSeed()
		if err != nil {
			return nil, err
		}
		opts.Rand = random.New(seed)
	}
	if opts.NewRound == nil {
		src := opts.Rand
		opts.NewRound = func(bet int64) *blackjack.Round {
			return blackjack.NewRound(bet, src)
		}
	}

	locks := NewPlayerLocks()
	settler := NewSettler(store, opts.Broadcaster, opts.Logger, opts.SettleMaxTries)

	return &GameEngine{
		store:    store,
		locks:    locks,
		settler:  settler,
		sessions: NewSessionManager(store, settler, locks, opts.NewRound, opts.RoundTimeout, opts.Now, opts.Logger),
		rand:     opts.Rand,
		logger:   opts.Logger,
	}, nil
}

func (ge *GameEngine) roundResult(ctx context.Context, action models.Action, playerID string, play *Play) (*models.Result, error) {
	result := &models.Result{
		Action:   action,
		PlayerID: playerID,
		Outcome:  string(play.Round.Outcome),
		Round:    models.NewRoundView(play.ID, play.Round),
		Bet:      play.Round.Bet,
	}

	if play.Settlement != nil {
		result.Payout = play.Settlement.Payout
		result.Balance = play.Settlement.BalanceAfter
		return result, nil
	}

	account, err := ge.store.GetAccount(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	result.Balance = account.Coins
	return result, nil
}

func (ge *GameEngine) StartRound(ctx context.Context, playerID string, bet int64) (*models.Result, error) {
	play, err := ge.sessions.Start(ctx, playerID, bet)
	if err != nil {
		return nil, err
	}
	return ge.roundResult(ctx, models.ActionStartCardRound, playerID, play)
}

func (ge *GameEngine) Hit(ctx context.Context, playerID string) (*models.Result, error) {
	play, err := ge.sessions.Hit(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return ge.roundResult(ctx, models.ActionHit, playerID, play)
}

func (ge *GameEngine) Stand(ctx context.Context, playerID string) (*models.Result, error) {
	play, err := ge.sessions.Stand(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return ge.roundResult(ctx, models.ActionStand, playerID, play)
}

func (ge *GameEngine) CurrentRound(ctx context.Context, playerID string) (*models.Result, error) {
	play, err := ge.sessions.Current(playerID)
	if err != nil {
		return nil, err
	}
	return ge.roundResult(ctx, models.ActionQueryRound, playerID, play)
}

// Spin plays one slot spin. It shares the player's lock with card rounds so
// the balance check and the settlement see the same balance, and it cannot
// spend the bet of the player's open round.
func (ge *GameEngine) Spin(ctx context.Context, playerID string, bet int64) (*models.Result, error) {
	if bet < 1 {
		return nil, ErrInvalidBet
	}

	unlock := ge.locks.Lock(playerID)
	defer unlock()

	account, err := ge.store.GetAccount(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account.Coins-ge.sessions.Committed(playerID) < bet {
		return nil, ErrInsufficientFunds
	}

	reels := slots.Spin(ge.rand)
	outcome := slots.Evaluate(reels, bet)

	res, err := ge.settler.Settle(ctx, &models.Settlement{
		ID:            models.GenerateTransactionID(),
		PlayerID:      playerID,
		Game:          models.GameTypeSlots,
		Outcome:       string(outcome.Tier),
		Bet:           bet,
		Payout:        outcome.Payout,
		Won:           outcome.Payout > 0 || outcome.JackpotTriggered,
		Contribution:  outcome.Contribution,
		JackpotPayout: outcome.JackpotTriggered,
	})
	if err != nil {
		return nil, err
	}

	return &models.Result{
		Action:     models.ActionSpinSlot,
		PlayerID:   playerID,
		Outcome:    string(outcome.Tier),
		Spin:       &models.SpinView{Reels: reels, Tier: outcome.Tier},
		Bet:        bet,
		Payout:     res.Payout,
		Balance:    res.BalanceAfter,
		JackpotWon: res.JackpotWon,
		Jackpot: &models.JackpotView{
			Amount:              res.JackpotAfter,
			ContributionPercent: slots.ContributionPercent,
		},
	}, nil
}

func (ge *GameEngine) ClaimBonus(ctx context.Context, playerID string) (*models.Result, error) {
	unlock := ge.locks.Lock(playerID)
	defer unlock()

	account, err := ge.settler.ClaimBonus(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return &models.Result{
		Action:   models.ActionClaimBonus,
		PlayerID: playerID,
		Outcome:  string(models.GameTypeBonus),
		Payout:   models.BonusCoins,
		Balance:  account.Coins,
		Account:  account,
	}, nil
}

func (ge *GameEngine) Stats(ctx context.Context, playerID string) (*models.Result, error) {
	account, err := ge.store.GetAccount(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &models.Result{
		Action:   models.ActionQueryStats,
		PlayerID: playerID,
		Balance:  account.Coins,
		Account:  account,
		WinRate:  account.WinRate(),
	}, nil
}

func (ge *GameEngine) Jackpot(ctx context.Context) (*models.Result, error) {
	jackpot, err := ge.store.GetJackpot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get jackpot: %w", err)
	}
	return &models.Result{
		Action: models.ActionQueryJackpot,
		Jackpot: &models.JackpotView{
			Amount:              jackpot.Amount,
			LastWinner:          jackpot.LastWinner,
			LastWinAmount:       jackpot.LastWinAmount,
			LastWinDate:         jackpot.LastWinDate,
			ContributionPercent: slots.ContributionPercent,
		},
	}, nil
}

func (ge *GameEngine) Rankings(ctx context.Context, limit int64) (*models.Result, error) {
	entries, err := ge.store.TopByCoins(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &models.Result{Action: models.ActionQueryRanking, Rankings: entries}, nil
}

func (ge *GameEngine) BankruptcyRankings(ctx context.Context, limit int64) (*models.Result, error) {
	entries, err := ge.store.TopByBankruptcy(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &models.Result{Action: models.ActionQueryBankruptcyRanking, Rankings: entries}, nil
}

func (ge *GameEngine) History(ctx context.Context, playerID string, limit int64) (*models.Result, error) {
	history, err := ge.store.GetHistory(ctx, playerID, limit)
	if err != nil {
		return nil, err
	}
	return &models.Result{Action: models.ActionQueryHistory, PlayerID: playerID, History: history}, nil
}

// Dispatch routes one dispatcher request to the matching operation.
func (ge *GameEngine) Dispatch(ctx context.Context, req models.Request) (*models.Result, error) {
	if req.PlayerID == "" {
		return nil, ErrMissingPlayer
	}

	switch req.Action {
	case models.ActionStartCardRound:
		return ge.StartRound(ctx, req.PlayerID, models.ResolveBet(req.Bet))
	case models.ActionHit:
		return ge.Hit(ctx, req.PlayerID)
	case models.ActionStand:
		return ge.Stand(ctx, req.PlayerID)
	case models.ActionSpinSlot:
		return ge.Spin(ctx, req.PlayerID, models.ResolveBet(req.Bet))
	case models.ActionClaimBonus:
		return ge.ClaimBonus(ctx, req.PlayerID)
	case models.ActionQueryStats:
		return ge.Stats(ctx, req.PlayerID)
	case models.ActionQueryJackpot:
		return ge.Jackpot(ctx)
	case models.ActionQueryRound:
		return ge.CurrentRound(ctx, req.PlayerID)
	case models.ActionQueryRanking:
		return ge.Rankings(ctx, req.Limit)
	case models.ActionQueryBankruptcyRanking:
		return ge.BankruptcyRankings(ctx, req.Limit)
	case models.ActionQueryHistory:
		return ge.History(ctx, req.PlayerID, req.Limit)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
}

// CleanupStaleGames tears down idle card rounds and retries settlements
// that failed earlier. The sweeper calls it on a schedule.
func (ge *GameEngine) CleanupStaleGames(ctx context.Context) {
	abandoned, settled := ge.sessions.Sweep(ctx)
	if abandoned > 0 || settled > 0 {
		ge.logger.Info("stale rounds swept", zap.Int("abandoned", abandoned), zap.Int("settled", settled))
	}
}

// OpenRounds is the number of rounds currently tracked.
func (ge *GameEngine) OpenRounds() int {
	return ge.sessions.Len()
}
