// Package slots implements one spin of a weighted three-reel slot machine.
package slots

import "casino-bot/internal/random"

type Symbol string

const (
	Cherry  Symbol = "cherry"
	Lemon   Symbol = "lemon"
	Orange  Symbol = "orange"
	Grape   Symbol = "grape"
	Diamond Symbol = "diamond"
	Seven   Symbol = "seven"
)

// Symbols and Weights are parallel, most common first. Weights sum to 100.
var (
	Symbols = [...]Symbol{Cherry, Lemon, Orange, Grape, Diamond, Seven}
	Weights = [...]int{30, 25, 20, 15, 7, 3}
)

const (
	ReelCount = 3

	DiamondMultiplier = 20
	TripleMultiplier  = 10
	PairMultiplier    = 2

	// ContributionPercent of a losing bet feeds the jackpot.
	ContributionPercent = 5
)

type Tier string

const (
	TierJackpot Tier = "jackpot"
	TierDiamond Tier = "diamond"
	TierTriple  Tier = "triple"
	TierPair    Tier = "pair"
	TierNone    Tier = "none"
)

type Reels [ReelCount]Symbol

type Outcome struct {
	Tier Tier `json:"tier"`
	// Payout is a bet multiple. It is zero for a jackpot trigger; the
	// jackpot amount is resolved at settlement.
	Payout           int64 `json:"payout"`
	JackpotTriggered bool  `json:"jackpot_triggered"`
	Contribution     int64 `json:"contribution"`
}

func totalWeight() int {
	sum := 0
	for _, w := range Weights {
		sum += w
	}
	return sum
}

// Draw picks one symbol from the weighted distribution.
func Draw(src random.Source) Symbol {
	n := src.Intn(totalWeight())
	for i, w := range Weights {
		if n < w {
			return Symbols[i]
		}
		n -= w
	}
	return Symbols[len(Symbols)-1]
}

// Spin draws each reel independently.
func Spin(src random.Source) Reels {
	var r Reels
	for i := range r {
		r[i] = Draw(src)
	}
	return r
}

// Evaluate scores reels for bet. Only a zero-payout, non-jackpot spin
// contributes to the jackpot.
func Evaluate(r Reels, bet int64) Outcome {
	a, b, c := r[0], r[1], r[2]

	switch {
	case a == b && b == c && a == Seven:
		return Outcome{Tier: TierJackpot, JackpotTriggered: true}
	case a == b && b == c && a == Diamond:
		return Outcome{Tier: TierDiamond, Payout: bet * DiamondMultiplier}
	case a == b && b == c:
		return Outcome{Tier: TierTriple, Payout: bet * TripleMultiplier}
	case a == b || b == c || a == c:
		return Outcome{Tier: TierPair, Payout: bet * PairMultiplier}
	}
	return Outcome{Tier: TierNone, Contribution: bet * ContributionPercent / 100}
}
