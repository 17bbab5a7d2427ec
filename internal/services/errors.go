package services

import "errors"

// User-facing failures. None of them is fatal to the process.
var (
	ErrInvalidBet        = errors.New("bet must be at least 1")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyInProgress = errors.New("a round is already in progress")
	ErrNoActiveRound     = errors.New("no active round")
	ErrFundsRemaining    = errors.New("bonus is only available with zero coins")
	ErrUnknownAction     = errors.New("unknown action")
	ErrMissingPlayer     = errors.New("player id is required")
)

// ErrSettlementFailed means an outcome could not be persisted after retries.
var ErrSettlementFailed = errors.New("settlement could not be persisted")

// IsUserError reports whether err should be shown to the player rather than
// treated as an infrastructure failure.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrInvalidBet, ErrInsufficientFunds, ErrAlreadyInProgress,
		ErrNoActiveRound, ErrFundsRemaining, ErrUnknownAction, ErrMissingPlayer,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
