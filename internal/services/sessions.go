package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"casino-bot/internal/blackjack"
	"casino-bot/internal/models"

	"go.uber.org/zap"
)

// Play is the state of a card round after one action. Settlement is nil
// while the round is still in progress.
type Play struct {
	ID         string
	Round      *blackjack.Round
	Settlement *models.SettlementResult
}

type session struct {
	id         string
	round      *blackjack.Round
	lastActive time.Time
}

// SessionManager owns the table of open card rounds, at most one per
// player. Every operation runs under the player's lock; the table itself
// has its own short-lived mutex so players never wait on each other.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session

	locks    *PlayerLocks
	store    Store
	settler  *Settler
	newRound func(bet int64) *blackjack.Round
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewSessionManager(store Store, settler *Settler, locks *PlayerLocks, newRound func(bet int64) *blackjack.Round,
	timeout time.Duration, now func() time.Time, logger *zap.Logger) *SessionManager {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		sessions: make(map[string]*session),
		locks:    locks,
		store:    store,
		settler:  settler,
		newRound: newRound,
		timeout:  timeout,
		now:      now,
		logger:   logger,
	}
}

func (m *SessionManager) get(playerID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[playerID]
}

func (m *SessionManager) put(playerID string, s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[playerID] = s
}

func (m *SessionManager) drop(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, playerID)
}

// Len is the number of open or unsettled rounds.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) expired(s *session, now time.Time) bool {
	return !s.round.Finished() && now.Sub(s.lastActive) > m.timeout
}

// abandon tears down an idle round. Nothing was debited at start, so there
// is nothing to refund.
func (m *SessionManager) abandon(playerID string, s *session) {
	m.drop(playerID)
	m.logger.Info("round abandoned",
		zap.String("player_id", playerID),
		zap.String("round_id", s.id),
		zap.Duration("idle", m.now().Sub(s.lastActive)),
	)
}

// settle persists a finished round and removes it from the table. A round
// whose settlement could not be persisted stays so the next action, or the
// sweeper, can retry it under the same id.
func (m *SessionManager) settle(ctx context.Context, playerID string, s *session) (*models.SettlementResult, error) {
	outcome := s.round.Outcome
	res, err := m.settler.Settle(ctx, &models.Settlement{
		ID:       s.id,
		PlayerID: playerID,
		Game:     models.GameTypeBlackjack,
		Outcome:  string(outcome),
		Bet:      s.round.Bet,
		Payout:   s.round.Payout(),
		Won:      outcome.Won(),
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			// Only reachable when the ledger changed outside this process.
			m.drop(playerID)
			m.logger.Warn("round voided, balance below bet",
				zap.String("player_id", playerID), zap.String("round_id", s.id))
		}
		return nil, err
	}
	m.drop(playerID)
	return res, nil
}

func (m *SessionManager) play(s *session, res *models.SettlementResult) *Play {
	return &Play{ID: s.id, Round: s.round, Settlement: res}
}

// Committed is the bet held by the player's open or unsettled round, 0 when
// there is none. The caller holds the player's lock.
func (m *SessionManager) Committed(playerID string) int64 {
	s := m.get(playerID)
	if s == nil || m.expired(s, m.now()) {
		return 0
	}
	return s.round.Bet
}

// Start opens a round for playerID. An expired idle round is discarded and a
// finished but unsettled one is settled before the new round is dealt.
func (m *SessionManager) Start(ctx context.Context, playerID string, bet int64) (*Play, error) {
	unlock := m.locks.Lock(playerID)
	defer unlock()

	now := m.now()
	if s := m.get(playerID); s != nil {
		switch {
		case s.round.Finished():
			if _, err := m.settle(ctx, playerID, s); err != nil && !errors.Is(err, ErrInsufficientFunds) {
				return nil, err
			}
		case m.expired(s, now):
			m.abandon(playerID, s)
		default:
			return nil, ErrAlreadyInProgress
		}
	}

	if bet < 1 {
		return nil, ErrInvalidBet
	}

	account, err := m.store.GetAccount(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account.Coins < bet {
		return nil, ErrInsufficientFunds
	}

	round := m.newRound(bet)
	if err := round.Deal(); err != nil {
		m.logger.DPanic("deal failed", zap.String("player_id", playerID), zap.Error(err))
		return nil, fmt.Errorf("failed to deal: %w", err)
	}

	s := &session{id: models.GenerateRoundID(), round: round, lastActive: now}
	m.put(playerID, s)

	if !round.Finished() {
		return m.play(s, nil), nil
	}
	res, err := m.settle(ctx, playerID, s)
	if err != nil {
		return nil, err
	}
	return m.play(s, res), nil
}

// active returns the player's round, dropping it if it sat idle too long.
func (m *SessionManager) active(playerID string) (*session, error) {
	s := m.get(playerID)
	if s == nil {
		return nil, ErrNoActiveRound
	}
	if m.expired(s, m.now()) {
		m.abandon(playerID, s)
		return nil, ErrNoActiveRound
	}
	return s, nil
}

func (m *SessionManager) Hit(ctx context.Context, playerID string) (*Play, error) {
	return m.act(ctx, playerID, func(r *blackjack.Round) error {
		autoStand, err := r.Hit()
		if err != nil || !autoStand {
			return err
		}
		return r.DealerPlay()
	})
}

func (m *SessionManager) Stand(ctx context.Context, playerID string) (*Play, error) {
	return m.act(ctx, playerID, func(r *blackjack.Round) error {
		return r.DealerPlay()
	})
}

func (m *SessionManager) act(ctx context.Context, playerID string, step func(*blackjack.Round) error) (*Play, error) {
	unlock := m.locks.Lock(playerID)
	defer unlock()

	s, err := m.active(playerID)
	if err != nil {
		return nil, err
	}

	// A finished round still in the table is waiting on its settlement.
	if s.round.Finished() {
		res, err := m.settle(ctx, playerID, s)
		if err != nil {
			return nil, err
		}
		return m.play(s, res), nil
	}

	if err := step(s.round); err != nil {
		m.logger.DPanic("round action failed",
			zap.String("player_id", playerID), zap.String("round_id", s.id), zap.Error(err))
		return nil, fmt.Errorf("round %s: %w", s.id, err)
	}
	s.lastActive = m.now()

	if !s.round.Finished() {
		return m.play(s, nil), nil
	}
	res, err := m.settle(ctx, playerID, s)
	if err != nil {
		return nil, err
	}
	return m.play(s, res), nil
}

// Current returns the player's open round without changing it.
func (m *SessionManager) Current(playerID string) (*Play, error) {
	unlock := m.locks.Lock(playerID)
	defer unlock()

	s, err := m.active(playerID)
	if err != nil {
		return nil, err
	}
	return m.play(s, nil), nil
}

// Sweep drops idle rounds and retries pending settlements.
func (m *SessionManager) Sweep(ctx context.Context) (abandoned, settled int) {
	m.mu.Lock()
	players := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		players = append(players, id)
	}
	m.mu.Unlock()

	for _, playerID := range players {
		if ctx.Err() != nil {
			return
		}

		unlock := m.locks.Lock(playerID)
		s := m.get(playerID)
		switch {
		case s == nil:
		case s.round.Finished():
			if _, err := m.settle(ctx, playerID, s); err == nil {
				settled++
			}
		case m.expired(s, m.now()):
			m.abandon(playerID, s)
			abandoned++
		}
		unlock()
	}
	return abandoned, settled
}
