package game

import (
	"fmt"
	"time"
)

// Round is one of the five betting phases of a hand.
type Round int

const (
	PreFlop Round = iota
	Flop
	Turn
	River
	// AwaitingResolution means all betting rounds are complete and the hand
	// is frozen until the admin declares a winner.
	AwaitingResolution
)

func (r Round) String() string {
	return [...]string{"preflop", "flop", "turn", "river", "awaiting_resolution"}[r]
}

// Action is a player betting action.
type Action int

const (
	Fold Action = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

func (a Action) String() string {
	return [...]string{"fold", "check", "call", "bet", "raise", "allin"}[a]
}

// ParseAction converts the wire form of an action back to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "fold":
		return Fold, nil
	case "check":
		return Check, nil
	case "call":
		return Call, nil
	case "bet":
		return Bet, nil
	case "raise":
		return Raise, nil
	case "allin":
		return AllIn, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// ActionResult is returned from a successful PerformAction.
type ActionResult struct {
	Action      Action `json:"action"`
	Amount      int    `json:"amount"`
	PlayerChips int    `json:"playerChips"`
	Pot         int    `json:"pot"`
}

// CanAct reports whether the player is entitled to act right now.
func (r *Room) CanAct(playerID string) bool {
	p, ok := r.players[playerID]
	if !ok || !p.canBet() {
		return false
	}
	if !r.gameStarted || r.gameEnded || r.bettingRound >= AwaitingResolution {
		return false
	}
	return r.currentPlayer == playerID
}

// ValidActions returns the actions the player may take right now. Empty if
// it is not their turn or they cannot act.
func (r *Room) ValidActions(playerID string) []Action {
	if !r.CanAct(playerID) {
		return nil
	}
	p := r.players[playerID]
	callAmount := r.currentBet - p.CurrentBet

	actions := []Action{Fold}
	if callAmount == 0 {
		actions = append(actions, Check)
	}
	if callAmount > 0 && p.Chips > 0 {
		if p.Chips >= callAmount {
			actions = append(actions, Call)
		} else {
			// Short stack: calling puts them all-in for less.
			actions = append(actions, AllIn)
		}
	}
	if p.Chips > 0 {
		if r.currentBet == 0 {
			actions = append(actions, Bet)
		} else if p.Chips > callAmount {
			actions = append(actions, Raise)
		}
	}
	return actions
}

// PerformAction validates and applies one player action, advances the turn,
// and completes the betting round if everyone has matched. All validation
// happens before any chips move.
func (r *Room) PerformAction(playerID string, action Action, amount int, now time.Time) (ActionResult, error) {
	if !r.CanAct(playerID) {
		return ActionResult{}, ErrOutOfTurn
	}
	p := r.players[playerID]
	if !containsAction(r.ValidActions(playerID), action) {
		return ActionResult{}, fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}

	callAmount := r.currentBet - p.CurrentBet
	var paid int

	switch action {
	case Fold:
		p.HasFolded = true
		p.IsActive = false

	case Check:
		// No chips move.

	case Call:
		paid = min(callAmount, p.Chips)
		r.commitChips(p, paid)

	case Bet, Raise:
		if amount <= 0 {
			return ActionResult{}, fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
		}
		total := callAmount + amount
		if total > p.Chips {
			return ActionResult{}, fmt.Errorf("%w: %d exceeds remaining chips", ErrInvalidAmount, total)
		}
		paid = total
		r.commitChips(p, paid)
		r.currentBet = p.CurrentBet
		if action == Raise {
			r.reopenAction(playerID)
		}

	case AllIn:
		paid = p.Chips
		r.commitChips(p, paid)
		if p.CurrentBet > r.currentBet {
			r.currentBet = p.CurrentBet
			r.reopenAction(playerID)
		}
	}

	p.HasActed = true
	r.history = append(r.history, HistoryEntry{
		Action:     action.String(),
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Amount:     paid,
		TotalBet:   p.CurrentBet,
		Timestamp:  now,
	})

	r.nextPlayer()
	if r.isBettingRoundComplete() {
		r.completeBettingRound(now)
	}
	r.Touch(now)

	return ActionResult{
		Action:      action,
		Amount:      paid,
		PlayerChips: p.Chips,
		Pot:         r.pot,
	}, nil
}

// commitChips moves amount from the player's stack into the pot, tracking
// per-round and per-hand totals and flagging an emptied stack all-in.
func (r *Room) commitChips(p *Player, amount int) {
	p.Chips -= amount
	p.CurrentBet += amount
	p.TotalBet += amount
	r.pot += amount
	if p.Chips == 0 {
		p.IsAllIn = true
	}
}

// reopenAction clears HasActed on every other non-folded player so they must
// respond to a raised bet.
func (r *Room) reopenAction(raiserID string) {
	for _, p := range r.players {
		if p.ID != raiserID && !p.HasFolded {
			p.HasActed = false
		}
	}
}

// nextPlayer advances the turn pointer to the next seat that can still act,
// skipping folded and all-in players. Bounded by one full lap so it
// terminates even when nobody is eligible.
func (r *Room) nextPlayer() {
	order := r.TurnOrder()
	if len(order) == 0 {
		r.currentPlayer = ""
		return
	}
	for attempts := 0; ; attempts++ {
		r.currentPlayerIndex = (r.currentPlayerIndex + 1) % len(order)
		r.currentPlayer = order[r.currentPlayerIndex]
		p := r.players[r.currentPlayer]
		if attempts >= len(order) || p.canBet() {
			return
		}
	}
}

// isBettingRoundComplete reports whether the current betting round is over:
// at most one player is still able to act, or every such player has acted
// and matched the table bet. Repeated calls without intervening actions
// always agree.
func (r *Room) isBettingRoundComplete() bool {
	eligible := 0
	for _, p := range r.players {
		if p.IsActive && p.canBet() {
			eligible++
		}
	}
	if eligible <= 1 {
		return true
	}
	for _, p := range r.players {
		if p.IsActive && p.canBet() {
			if !p.HasActed || p.CurrentBet != r.currentBet {
				return false
			}
		}
	}
	return true
}

// completeBettingRound resets per-round state, advances to the next round,
// and rotates the turn back to the seat after the dealer. A single remaining
// contender wins the hand outright; reaching the final round with two or
// more contenders freezes the hand until the admin declares a winner.
func (r *Room) completeBettingRound(now time.Time) {
	for _, p := range r.players {
		p.HasActed = false
		p.CurrentBet = 0
	}
	r.currentBet = 0
	if r.bettingRound < AwaitingResolution {
		r.bettingRound++
	}

	r.currentPlayerIndex = r.dealerIndex
	r.nextPlayer()

	if ids := r.contenders(); len(ids) == 1 {
		r.endHand(ids[0], now)
	}
	// bettingRound == AwaitingResolution with multiple contenders: wait for
	// DeclareWinner.
}

// contenders returns the ids of players who have not folded, in turn order.
func (r *Room) contenders() []string {
	var ids []string
	for _, id := range r.TurnOrder() {
		if !r.players[id].HasFolded {
			ids = append(ids, id)
		}
	}
	return ids
}

// endHand awards the pot and rotates the dealer. An empty winnerID awards
// the pot to the first remaining contender (legacy fallback; the normal
// paths always name a winner).
func (r *Room) endHand(winnerID string, now time.Time) {
	if winnerID == "" {
		if ids := r.contenders(); len(ids) > 0 {
			winnerID = ids[0]
		}
	}
	if w, ok := r.players[winnerID]; ok {
		w.Chips += r.pot
		r.winner = winnerID
		r.lastPotWon = r.pot
	}
	r.pot = 0
	if n := len(r.TurnOrder()); n > 0 {
		r.dealerIndex = (r.dealerIndex + 1) % n
	}
	r.Touch(now)
}

func containsAction(actions []Action, a Action) bool {
	for _, v := range actions {
		if v == a {
			return true
		}
	}
	return false
}
