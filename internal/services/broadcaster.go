package services

// Broadcaster pushes ledger changes to connected clients.
type Broadcaster interface {
	BroadcastBalance(playerID string, coins int64)
	BroadcastJackpot(amount int64)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastBalance(string, int64) {}
func (noopBroadcaster) BroadcastJackpot(int64)         {}
