package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateRoundID() string {
	return fmt.Sprintf("bj_%s_%s", time.Now().Format("20060102"), uuid.NewString())
}

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%s", time.Now().Format("20060102"), uuid.NewString())
}

// ResolveBet applies DefaultBet when a dispatcher leaves the bet out.
func ResolveBet(bet *int64) int64 {
	if bet == nil {
		return DefaultBet
	}
	return *bet
}
