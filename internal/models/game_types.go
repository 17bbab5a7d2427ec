package models

type Action string

const (
	ActionStartCardRound         Action = "start_card_round"
	ActionHit                    Action = "hit"
	ActionStand                  Action = "stand"
	ActionSpinSlot               Action = "spin_slot"
	ActionClaimBonus             Action = "claim_bonus"
	ActionQueryStats             Action = "query_stats"
	ActionQueryJackpot           Action = "query_jackpot"
	ActionQueryRound             Action = "query_round"
	ActionQueryRanking           Action = "query_ranking"
	ActionQueryBankruptcyRanking Action = "query_bankruptcy_ranking"
	ActionQueryHistory           Action = "query_history"
)

func (a Action) Valid() bool {
	switch a {
	case ActionStartCardRound, ActionHit, ActionStand, ActionSpinSlot, ActionClaimBonus,
		ActionQueryStats, ActionQueryJackpot, ActionQueryRound, ActionQueryRanking,
		ActionQueryBankruptcyRanking, ActionQueryHistory:
		return true
	}
	return false
}

// Request is one invocation from a dispatcher.
type Request struct {
	PlayerID string `json:"player_id"`
	Action   Action `json:"action"`
	Bet      *int64 `json:"bet,omitempty"`
	Limit    int64  `json:"limit,omitempty"`
}
