package game

// Player is a seat at the table. Chips mirror the physical stack in front of
// the player; CurrentBet is what they have committed in the active betting
// round and TotalBet across the whole hand.
type Player struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Chips      int    `json:"chips"`
	CurrentBet int    `json:"currentBet"`
	TotalBet   int    `json:"totalBet"`
	IsActive   bool   `json:"isActive"`
	HasFolded  bool   `json:"hasFolded"`
	HasActed   bool   `json:"hasActed"`
	IsAllIn    bool   `json:"isAllIn"`
}

// canBet reports whether the player may still put chips in this hand.
func (p *Player) canBet() bool {
	return !p.HasFolded && !p.IsAllIn
}
