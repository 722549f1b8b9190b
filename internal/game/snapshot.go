package game

import (
	"fmt"
	"time"
)

// Snapshot is the persisted form of a Room. Players are stored as a slice in
// seat (join) order so the default turn order survives the round trip; the
// full betting history is kept, not the truncated client view.
type Snapshot struct {
	Code               string         `json:"code"`
	Players            []Player       `json:"players"`
	PlayerOrder        []string       `json:"playerOrder,omitempty"`
	Admin              string         `json:"admin,omitempty"`
	OriginalAdmin      string         `json:"originalAdmin,omitempty"`
	DealerIndex        int            `json:"dealerIndex"`
	CurrentPlayerIndex int            `json:"currentPlayerIndex"`
	CurrentPlayer      string         `json:"currentPlayer,omitempty"`
	Pot                int            `json:"pot"`
	CurrentBet         int            `json:"currentBet"`
	BettingRound       int            `json:"bettingRound"`
	BettingHistory     []HistoryEntry `json:"bettingHistory,omitempty"`
	GameStarted        bool           `json:"gameStarted"`
	GameEnded          bool           `json:"gameEnded"`
	Winner             string         `json:"winner,omitempty"`
	SmallBlind         int            `json:"smallBlind"`
	BigBlind           int            `json:"bigBlind"`
	StartingChips      int            `json:"startingChips"`
	MaxPlayers         int            `json:"maxPlayers"`
	CreatedAt          time.Time      `json:"createdAt"`
	LastActivity       time.Time      `json:"lastActivity"`
}

// Snapshot captures the room's full state for persistence.
func (r *Room) Snapshot() Snapshot {
	players := make([]Player, 0, len(r.players))
	for _, id := range r.seatOrder {
		players = append(players, *r.players[id])
	}
	return Snapshot{
		Code:               r.code,
		Players:            players,
		PlayerOrder:        append([]string(nil), r.playerOrder...),
		Admin:              r.admin,
		OriginalAdmin:      r.originalAdmin,
		DealerIndex:        r.dealerIndex,
		CurrentPlayerIndex: r.currentPlayerIndex,
		CurrentPlayer:      r.currentPlayer,
		Pot:                r.pot,
		CurrentBet:         r.currentBet,
		BettingRound:       int(r.bettingRound),
		BettingHistory:     append([]HistoryEntry(nil), r.history...),
		GameStarted:        r.gameStarted,
		GameEnded:          r.gameEnded,
		Winner:             r.winner,
		SmallBlind:         r.smallBlind,
		BigBlind:           r.bigBlind,
		StartingChips:      r.startingChips,
		MaxPlayers:         r.maxPlayers,
		CreatedAt:          r.createdAt,
		LastActivity:       r.lastActivity,
	}
}

// FromSnapshot rebuilds a Room from its persisted form, validating every
// cross-reference instead of merging fields blindly. A snapshot that fails
// validation is rejected whole. The session timeout is not persisted; it
// comes from the server's current configuration.
func FromSnapshot(s Snapshot, sessionTimeout time.Duration) (*Room, error) {
	if s.Code == "" {
		return nil, fmt.Errorf("snapshot: missing room code")
	}
	if s.Pot < 0 || s.CurrentBet < 0 {
		return nil, fmt.Errorf("snapshot %s: negative pot or bet", s.Code)
	}
	if s.BettingRound < int(PreFlop) || s.BettingRound > int(AwaitingResolution) {
		return nil, fmt.Errorf("snapshot %s: betting round %d out of range", s.Code, s.BettingRound)
	}

	cfg := Config{
		SmallBlind:     s.SmallBlind,
		BigBlind:       s.BigBlind,
		StartingChips:  s.StartingChips,
		MaxPlayers:     s.MaxPlayers,
		SessionTimeout: sessionTimeout,
	}
	r := NewRoom(s.Code, cfg, s.CreatedAt)
	r.lastActivity = s.LastActivity

	for _, p := range s.Players {
		if p.ID == "" {
			return nil, fmt.Errorf("snapshot %s: player with empty id", s.Code)
		}
		if _, dup := r.players[p.ID]; dup {
			return nil, fmt.Errorf("snapshot %s: duplicate player id %s", s.Code, p.ID)
		}
		if p.Chips < 0 || p.CurrentBet < 0 || p.TotalBet < 0 {
			return nil, fmt.Errorf("snapshot %s: player %s has negative chip fields", s.Code, p.ID)
		}
		cp := p
		r.players[p.ID] = &cp
		r.seatOrder = append(r.seatOrder, p.ID)
	}

	ref := func(field, id string) error {
		if id == "" {
			return nil
		}
		if _, ok := r.players[id]; !ok {
			return fmt.Errorf("snapshot %s: %s references unknown player %s", s.Code, field, id)
		}
		return nil
	}
	if err := ref("admin", s.Admin); err != nil {
		return nil, err
	}
	if err := ref("originalAdmin", s.OriginalAdmin); err != nil {
		return nil, err
	}
	if err := ref("currentPlayer", s.CurrentPlayer); err != nil {
		return nil, err
	}
	if err := ref("winner", s.Winner); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(s.PlayerOrder))
	for _, id := range s.PlayerOrder {
		if err := ref("playerOrder", id); err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, fmt.Errorf("snapshot %s: playerOrder repeats %s", s.Code, id)
		}
		seen[id] = true
	}
	r.playerOrder = append([]string(nil), s.PlayerOrder...)

	if n := len(r.TurnOrder()); n > 0 {
		if s.DealerIndex < 0 || s.DealerIndex >= n {
			return nil, fmt.Errorf("snapshot %s: dealer index %d out of range", s.Code, s.DealerIndex)
		}
		if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= n {
			return nil, fmt.Errorf("snapshot %s: current player index %d out of range", s.Code, s.CurrentPlayerIndex)
		}
	}

	r.admin = s.Admin
	r.originalAdmin = s.OriginalAdmin
	r.dealerIndex = s.DealerIndex
	r.currentPlayerIndex = s.CurrentPlayerIndex
	r.currentPlayer = s.CurrentPlayer
	r.pot = s.Pot
	r.currentBet = s.CurrentBet
	r.bettingRound = Round(s.BettingRound)
	r.history = append([]HistoryEntry(nil), s.BettingHistory...)
	r.gameStarted = s.GameStarted
	r.gameEnded = s.GameEnded
	r.winner = s.Winner

	return r, nil
}
