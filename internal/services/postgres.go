package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casino-bot/internal/config"
	"casino-bot/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresService is the SQL ledger. A settlement is one transaction that
// locks the account row, then the jackpot row.
type PostgresService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPostgresService(cfg *config.Config) (*PostgresService, error) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := &PostgresService{db: db, now: time.Now}

	if cfg.DBAutoMigrate {
		if err := db.AutoMigrate(&models.Account{}, &models.Jackpot{}, &models.Transaction{}); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to auto-migrate: %w", err)
		}
	}
	if err := ensureJackpotRow(db); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureJackpotRow(tx *gorm.DB) error {
	row := models.Jackpot{ID: models.JackpotRowID, Amount: models.JackpotFloor}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to seed jackpot: %w", err)
	}
	return nil
}

func (s *PostgresService) ensureAccount(tx *gorm.DB, playerID string) error {
	account := models.Account{
		PlayerID:  playerID,
		Coins:     models.StartingCoins,
		CreatedAt: s.now().Unix(),
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&account).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *PostgresService) lockAccount(tx *gorm.DB, playerID string) (*models.Account, error) {
	if err := s.ensureAccount(tx, playerID); err != nil {
		return nil, err
	}
	var account models.Account
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("player_id = ?", playerID).
		First(&account).Error; err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return &account, nil
}

func lockJackpot(tx *gorm.DB) (*models.Jackpot, error) {
	if err := ensureJackpotRow(tx); err != nil {
		return nil, err
	}
	var jackpot models.Jackpot
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", models.JackpotRowID).
		First(&jackpot).Error; err != nil {
		return nil, fmt.Errorf("failed to lock jackpot: %w", err)
	}
	return &jackpot, nil
}

func (s *PostgresService) GetAccount(ctx context.Context, playerID string) (*models.Account, error) {
	db := s.db.WithContext(ctx)
	if err := s.ensureAccount(db, playerID); err != nil {
		return nil, err
	}
	var account models.Account
	if err := db.Where("player_id = ?", playerID).First(&account).Error; err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (s *PostgresService) GetJackpot(ctx context.Context) (*models.Jackpot, error) {
	db := s.db.WithContext(ctx)
	if err := ensureJackpotRow(db); err != nil {
		return nil, err
	}
	var jackpot models.Jackpot
	if err := db.Where("id = ?", models.JackpotRowID).First(&jackpot).Error; err != nil {
		return nil, fmt.Errorf("failed to get jackpot: %w", err)
	}
	return &jackpot, nil
}

func (s *PostgresService) ApplySettlement(ctx context.Context, st *models.Settlement) (*models.SettlementResult, error) {
	var result *models.SettlementResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Transaction
		err := tx.Where("id = ?", st.ID).Take(&existing).Error
		if err == nil {
			result = existing.Result(true)
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up transaction: %w", err)
		}

		account, err := s.lockAccount(tx, st.PlayerID)
		if err != nil {
			return err
		}
		if account.Coins < st.Bet {
			return ErrInsufficientFunds
		}

		jackpot, err := lockJackpot(tx)
		if err != nil {
			return err
		}

		now := s.now().Unix()
		payout := st.Payout
		if st.JackpotPayout {
			payout = jackpot.Amount
			jackpot.Amount = models.JackpotFloor
			jackpot.LastWinner = st.PlayerID
			jackpot.LastWinAmount = payout
			jackpot.LastWinDate = now
		}
		jackpot.Amount += st.Contribution
		if st.JackpotPayout || st.Contribution > 0 {
			if err := tx.Save(jackpot).Error; err != nil {
				return fmt.Errorf("failed to update jackpot: %w", err)
			}
		}

		before := account.Coins
		account.Coins = before - st.Bet + payout
		account.LastPlayed = now
		if st.Won {
			account.TotalWins++
		} else {
			account.TotalLosses++
		}
		if payout > account.BiggestWin {
			account.BiggestWin = payout
		}
		if err := tx.Save(account).Error; err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}

		record := models.Transaction{
			ID:            st.ID,
			PlayerID:      st.PlayerID,
			Game:          st.Game,
			Outcome:       st.Outcome,
			Bet:           st.Bet,
			Payout:        payout,
			BalanceBefore: before,
			BalanceAfter:  account.Coins,
			JackpotAfter:  jackpot.Amount,
			JackpotWon:    st.JackpotPayout,
			CreatedAt:     now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}

		result = record.Result(false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresService) ApplyBonus(ctx context.Context, playerID string, amount int64) (*models.Account, error) {
	var account *models.Account

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = s.lockAccount(tx, playerID)
		if err != nil {
			return err
		}
		if account.Coins > 0 {
			return ErrFundsRemaining
		}

		before := account.Coins
		account.Coins = amount
		account.BankruptcyCount++
		if err := tx.Save(account).Error; err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}

		return tx.Create(&models.Transaction{
			ID:            models.GenerateTransactionID(),
			PlayerID:      playerID,
			Game:          models.GameTypeBonus,
			Outcome:       string(models.GameTypeBonus),
			Payout:        amount,
			BalanceBefore: before,
			BalanceAfter:  amount,
			CreatedAt:     s.now().Unix(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *PostgresService) TopByCoins(ctx context.Context, limit int64) ([]models.RankEntry, error) {
	var accounts []models.Account
	if err := s.db.WithContext(ctx).
		Order("coins DESC, player_id").
		Limit(int(clampLimit(limit, DefaultRankingLimit, MaxRankingLimit))).
		Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to read ranking: %w", err)
	}
	return rankEntries(accounts), nil
}

func (s *PostgresService) TopByBankruptcy(ctx context.Context, limit int64) ([]models.RankEntry, error) {
	var accounts []models.Account
	if err := s.db.WithContext(ctx).
		Where("bankruptcy_count > 0").
		Order("bankruptcy_count DESC, player_id").
		Limit(int(clampLimit(limit, DefaultRankingLimit, MaxRankingLimit))).
		Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to read ranking: %w", err)
	}
	return rankEntries(accounts), nil
}

func rankEntries(accounts []models.Account) []models.RankEntry {
	entries := make([]models.RankEntry, len(accounts))
	for i, a := range accounts {
		entries[i] = models.RankEntry{
			Rank:            i + 1,
			PlayerID:        a.PlayerID,
			Coins:           a.Coins,
			TotalWins:       a.TotalWins,
			TotalLosses:     a.TotalLosses,
			BankruptcyCount: a.BankruptcyCount,
		}
	}
	return entries
}

func (s *PostgresService) GetHistory(ctx context.Context, playerID string, limit int64) ([]*models.Transaction, error) {
	var history []*models.Transaction
	if err := s.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("created_at DESC, id DESC").
		Limit(int(clampLimit(limit, DefaultHistoryLimit, HistoryLimit))).
		Find(&history).Error; err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return history, nil
}
