package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"casino-bot/internal/blackjack"
	"casino-bot/internal/models"
	"casino-bot/internal/services"
)

func cards(hand []blackjack.Card) string {
	parts := make([]string, len(hand))
	for i, c := range hand {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

var outcomeText = map[blackjack.Outcome]string{
	blackjack.OutcomeBlackjack: "Blackjack!",
	blackjack.OutcomeWin:       "You win!",
	blackjack.OutcomeLose:      "Dealer wins.",
	blackjack.OutcomePush:      "Push, your bet is returned.",
	blackjack.OutcomeBust:      "Bust!",
}

// Render formats a result as plain text.
func Render(r *models.Result) string {
	var b strings.Builder

	switch {
	case r.Round != nil:
		renderRound(&b, r)
	case r.Spin != nil:
		renderSpin(&b, r)
	case r.Action == models.ActionClaimBonus:
		fmt.Fprintf(&b, "Bonus granted: %d coins. Balance: %d", r.Payout, r.Balance)
		if r.Account != nil {
			fmt.Fprintf(&b, " (bankruptcies: %d)", r.Account.BankruptcyCount)
		}
	case r.Action == models.ActionQueryStats && r.Account != nil:
		a := r.Account
		fmt.Fprintf(&b, "Coins: %d\nPlays: %d (W %d / L %d, %.1f%%)\nBiggest win: %d\nBankruptcies: %d",
			a.Coins, a.TotalPlays(), a.TotalWins, a.TotalLosses, r.WinRate, a.BiggestWin, a.BankruptcyCount)
	case r.Jackpot != nil:
		renderJackpot(&b, r.Jackpot)
	case r.Action == models.ActionQueryRanking || r.Action == models.ActionQueryBankruptcyRanking:
		renderRanking(&b, r)
	case r.Action == models.ActionQueryHistory:
		if len(r.History) == 0 {
			b.WriteString("No plays yet.")
		}
		for _, tx := range r.History {
			fmt.Fprintf(&b, "%s %s %s: bet %d, paid %d, balance %d\n",
				time.Unix(tx.CreatedAt, 0).UTC().Format("01-02 15:04"), tx.Game, tx.Outcome, tx.Bet, tx.Payout, tx.BalanceAfter)
		}
	default:
		fmt.Fprintf(&b, "Balance: %d", r.Balance)
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderRound(b *strings.Builder, r *models.Result) {
	v := r.Round
	soft := ""
	if v.PlayerSoft {
		soft = "soft "
	}
	fmt.Fprintf(b, "Your hand: %s (%s%d)\n", cards(v.PlayerHand), soft, v.PlayerValue)
	if v.DealerHidden > 0 {
		fmt.Fprintf(b, "Dealer: %s%s\n", cards(v.DealerHand), strings.Repeat(" ??", v.DealerHidden))
	} else {
		fmt.Fprintf(b, "Dealer: %s (%d)\n", cards(v.DealerHand), v.DealerValue)
	}

	if v.Status == blackjack.StatusInProgress {
		fmt.Fprintf(b, "Bet: %d. Use /bj hit or /bj stand.", v.Bet)
		return
	}
	fmt.Fprintf(b, "%s Payout: %d. Balance: %d", outcomeText[v.Outcome], r.Payout, r.Balance)
}

func renderSpin(b *strings.Builder, r *models.Result) {
	reels := make([]string, len(r.Spin.Reels))
	for i, s := range r.Spin.Reels {
		reels[i] = "[" + string(s) + "]"
	}
	fmt.Fprintf(b, "%s\n", strings.Join(reels, " "))

	switch {
	case r.JackpotWon:
		fmt.Fprintf(b, "JACKPOT! You won %d coins.", r.Payout)
	case r.Payout > 0:
		fmt.Fprintf(b, "%s pays %d.", r.Spin.Tier, r.Payout)
	default:
		b.WriteString("No match.")
	}
	fmt.Fprintf(b, " Balance: %d", r.Balance)
	if r.Jackpot != nil {
		fmt.Fprintf(b, "\nJackpot: %d", r.Jackpot.Amount)
	}
}

func renderJackpot(b *strings.Builder, j *models.JackpotView) {
	fmt.Fprintf(b, "Jackpot: %d coins (%d%% of every losing spin)", j.Amount, j.ContributionPercent)
	if j.LastWinner != "" {
		fmt.Fprintf(b, "\nLast won by <@%s> for %d on %s",
			j.LastWinner, j.LastWinAmount, time.Unix(j.LastWinDate, 0).UTC().Format("2006-01-02"))
	}
}

func renderRanking(b *strings.Builder, r *models.Result) {
	if len(r.Rankings) == 0 {
		b.WriteString("Nobody here yet.")
		return
	}
	for _, e := range r.Rankings {
		if r.Action == models.ActionQueryBankruptcyRanking {
			fmt.Fprintf(b, "%d. <@%s> %d bankruptcies\n", e.Rank, e.PlayerID, e.BankruptcyCount)
			continue
		}
		fmt.Fprintf(b, "%d. <@%s> %d coins\n", e.Rank, e.PlayerID, e.Coins)
	}
}

// RenderError hides infrastructure failures behind a retry hint.
func RenderError(err error) string {
	switch {
	case errors.Is(err, services.ErrSettlementFailed):
		return "The result could not be saved yet. Please try again in a moment."
	case services.IsUserError(err):
		return err.Error()
	}
	return "Something went wrong. Please try again."
}
