package game

import (
	"time"
)

// Defaults for a new room.
const (
	DefaultSmallBlind     = 10
	DefaultBigBlind       = 20
	DefaultStartingChips  = 1000
	DefaultMaxPlayers     = 10
	DefaultSessionTimeout = 4 * time.Hour

	// historyWindow caps the betting history surfaced to clients. The full
	// log is retained internally and in persisted snapshots.
	historyWindow = 10
)

// Config holds the table parameters a room is created with.
type Config struct {
	SmallBlind     int
	BigBlind       int
	StartingChips  int
	MaxPlayers     int
	SessionTimeout time.Duration
}

// DefaultConfig returns the standard 10/20 table with 1000 starting chips.
func DefaultConfig() Config {
	return Config{
		SmallBlind:     DefaultSmallBlind,
		BigBlind:       DefaultBigBlind,
		StartingChips:  DefaultStartingChips,
		MaxPlayers:     DefaultMaxPlayers,
		SessionTimeout: DefaultSessionTimeout,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SmallBlind <= 0 {
		c.SmallBlind = d.SmallBlind
	}
	if c.BigBlind <= 0 {
		c.BigBlind = d.BigBlind
	}
	if c.StartingChips <= 0 {
		c.StartingChips = d.StartingChips
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = d.MaxPlayers
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = d.SessionTimeout
	}
	return c
}

// Room is one table's complete state.
type Room struct {
	code    string
	players map[string]*Player

	// seatOrder is the join order of live players and is the default turn
	// order. playerOrder, when non-empty, is an admin-set override.
	seatOrder   []string
	playerOrder []string

	admin         string
	originalAdmin string

	dealerIndex        int
	currentPlayerIndex int
	currentPlayer      string

	pot          int
	currentBet   int
	bettingRound Round
	history      []HistoryEntry

	gameStarted bool
	gameEnded   bool
	winner      string
	lastPotWon  int

	smallBlind     int
	bigBlind       int
	startingChips  int
	maxPlayers     int
	sessionTimeout time.Duration

	createdAt    time.Time
	lastActivity time.Time
}

// NewRoom creates an empty room under the given code.
func NewRoom(code string, cfg Config, now time.Time) *Room {
	cfg = cfg.withDefaults()
	return &Room{
		code:           code,
		players:        make(map[string]*Player),
		smallBlind:     cfg.SmallBlind,
		bigBlind:       cfg.BigBlind,
		startingChips:  cfg.StartingChips,
		maxPlayers:     cfg.MaxPlayers,
		sessionTimeout: cfg.SessionTimeout,
		createdAt:      now,
		lastActivity:   now,
	}
}

// Code returns the room's unique identifier.
func (r *Room) Code() string { return r.code }

// Admin returns the current admin's player id, empty if none.
func (r *Room) Admin() string { return r.admin }

// Winner returns the winner of the most recently concluded hand, empty if
// the hand is still open.
func (r *Room) Winner() string { return r.winner }

// LastPotWon returns the amount awarded when the most recent hand ended.
func (r *Room) LastPotWon() int { return r.lastPotWon }

// PlayerCount returns the number of seated players.
func (r *Room) PlayerCount() int { return len(r.players) }

// Player returns the player with the given id, or nil.
func (r *Room) Player(id string) *Player { return r.players[id] }

// TurnOrder returns the effective turn order: the admin-set order filtered
// to live players if one is set, otherwise join order. Never map iteration
// order.
func (r *Room) TurnOrder() []string {
	if len(r.playerOrder) > 0 {
		order := make([]string, 0, len(r.playerOrder))
		for _, id := range r.playerOrder {
			if _, ok := r.players[id]; ok {
				order = append(order, id)
			}
		}
		return order
	}
	return r.seatOrder
}

// Touch refreshes the room's activity timestamp.
func (r *Room) Touch(now time.Time) { r.lastActivity = now }

// IsExpired reports whether the room has been idle past its session timeout.
func (r *Room) IsExpired(now time.Time) bool {
	return now.Sub(r.lastActivity) > r.sessionTimeout
}

// AddPlayer seats a new player with the starting stack. The first player to
// join (or an explicit isAdmin request) becomes admin; whoever becomes admin
// first is recorded permanently as the original admin.
func (r *Room) AddPlayer(id, name string, isAdmin bool, now time.Time) (*Player, error) {
	if len(r.players) >= r.maxPlayers {
		return nil, ErrRoomFull
	}
	for _, p := range r.players {
		if p.Name == name && p.ID != id {
			return nil, ErrDuplicateName
		}
	}

	p := &Player{
		ID:       id,
		Name:     name,
		Chips:    r.startingChips,
		IsActive: true,
	}
	r.players[id] = p
	r.seatOrder = append(r.seatOrder, id)

	if isAdmin || r.admin == "" {
		r.admin = id
		if r.originalAdmin == "" {
			r.originalAdmin = id
		}
	}

	r.Touch(now)
	return p, nil
}

// Rejoin returns the existing player for id, refreshing room activity. The
// second return is false when the id is unknown; callers fall back to
// AddPlayer.
func (r *Room) Rejoin(id string, now time.Time) (*Player, bool) {
	p, ok := r.players[id]
	if !ok {
		return nil, false
	}
	r.Touch(now)
	return p, true
}

// RemovePlayer unseats a player (leave or disconnect cleanup). Admin passes
// to the earliest remaining seat. An emptied room is marked ended so the
// registry can collect it.
func (r *Room) RemovePlayer(id string) {
	if _, ok := r.players[id]; !ok {
		return
	}
	if r.currentPlayer == id && r.gameStarted && !r.gameEnded {
		r.nextPlayer()
	}

	delete(r.players, id)
	for i, sid := range r.seatOrder {
		if sid == id {
			r.seatOrder = append(r.seatOrder[:i], r.seatOrder[i+1:]...)
			break
		}
	}
	r.reindex()

	if r.admin == id {
		r.admin = ""
		if order := r.TurnOrder(); len(order) > 0 {
			r.admin = order[0]
		}
	}
	if len(r.players) == 0 {
		r.gameEnded = true
	}
}

// Kick removes another player on the admin's authority. Kicking the player
// whose turn it is advances the turn first; a hand left with one contender
// resolves to them, and a hand left with none ends the game.
func (r *Room) Kick(adminID, targetID string, now time.Time) error {
	if r.admin != adminID || targetID == adminID {
		return ErrNotAuthorized
	}
	if _, ok := r.players[targetID]; !ok {
		return ErrUnknownPlayer
	}

	r.RemovePlayer(targetID)

	if r.gameStarted && !r.gameEnded {
		switch ids := r.contenders(); len(ids) {
		case 1:
			r.endHand(ids[0], now)
		case 0:
			r.gameEnded = true
		}
	}

	r.Touch(now)
	return nil
}

// reindex re-derives the turn pointer after a membership change so indices
// never refer into a stale order.
func (r *Room) reindex() {
	order := r.TurnOrder()
	if len(order) == 0 {
		r.currentPlayerIndex = 0
		r.currentPlayer = ""
		r.dealerIndex = 0
		return
	}
	if r.dealerIndex >= len(order) {
		r.dealerIndex = 0
	}
	r.currentPlayerIndex = 0
	for i, id := range order {
		if id == r.currentPlayer {
			r.currentPlayerIndex = i
			return
		}
	}
	// Current player left; leave the pointer at the top of the order.
	r.currentPlayer = order[r.currentPlayerIndex]
}

// EditPot sets the pot to an explicit value. This is the admin's escape
// hatch for correcting a miscount at the physical table.
func (r *Room) EditPot(adminID string, value int, now time.Time) error {
	if r.admin != adminID {
		return ErrNotAuthorized
	}
	if value < 0 {
		return ErrInvalidValue
	}
	r.pot = value
	r.Touch(now)
	return nil
}

// StartGame begins play. The starting player, when given, becomes the dealer
// reference point; otherwise the first seat does. The first hand starts
// immediately.
func (r *Room) StartGame(startingPlayerID string, now time.Time) error {
	if len(r.players) < 2 {
		return ErrNotEnoughPlayers
	}
	r.gameStarted = true

	// An explicit starting player wins; otherwise keep whatever
	// SetStartingPlayer chose, defaulting to the first seat.
	order := r.TurnOrder()
	if startingPlayerID != "" {
		for i, id := range order {
			if id == startingPlayerID {
				r.dealerIndex = i
				break
			}
		}
	} else if r.dealerIndex < 0 || r.dealerIndex >= len(order) {
		r.dealerIndex = 0
	}
	r.currentPlayer = order[r.dealerIndex]

	return r.StartNewHand(now)
}

// SetStartingPlayer moves the dealer reference point before the game starts.
func (r *Room) SetStartingPlayer(adminID, playerID string, now time.Time) error {
	if r.admin != adminID || r.gameStarted {
		return ErrNotAuthorized
	}
	order := r.TurnOrder()
	for i, id := range order {
		if id == playerID {
			r.dealerIndex = i
			r.Touch(now)
			return nil
		}
	}
	return ErrUnknownPlayer
}

// SetPlayerOrder replaces the turn order before the game starts. The new
// order must be a permutation of exactly the current roster.
func (r *Room) SetPlayerOrder(adminID string, order []string, now time.Time) error {
	if r.admin != adminID || r.gameStarted {
		return ErrNotAuthorized
	}
	if len(order) != len(r.players) {
		return ErrInvalidOrder
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if _, ok := r.players[id]; !ok || seen[id] {
			return ErrInvalidOrder
		}
		seen[id] = true
	}
	r.playerOrder = append([]string(nil), order...)
	r.Touch(now)
	return nil
}

// StartNewHand resets per-hand state, posts blinds, and puts the action on
// the seat after the big blind.
func (r *Room) StartNewHand(now time.Time) error {
	order := r.TurnOrder()
	if len(order) < 2 {
		return ErrNotEnoughPlayers
	}

	for _, p := range r.players {
		p.CurrentBet = 0
		p.TotalBet = 0
		p.HasFolded = false
		p.HasActed = false
		p.IsAllIn = false
		p.IsActive = true
	}
	r.pot = 0
	r.currentBet = 0
	r.bettingRound = PreFlop
	r.history = nil
	r.winner = ""
	r.lastPotWon = 0

	r.postBlinds(now)

	bigBlindIndex := (r.dealerIndex + 2) % len(order)
	r.currentPlayerIndex = (bigBlindIndex + 1) % len(order)
	r.currentPlayer = order[r.currentPlayerIndex]

	r.Touch(now)
	return nil
}

// postBlinds takes the forced bets from the two seats after the dealer. A
// short stack posts whatever it has and is all-in on the blind.
func (r *Room) postBlinds(now time.Time) {
	order := r.TurnOrder()
	if len(order) < 2 {
		return
	}

	post := func(seat, blind int) BlindPosting {
		p := r.players[order[seat]]
		amount := min(blind, p.Chips)
		r.commitChips(p, amount)
		return BlindPosting{PlayerID: p.ID, Amount: amount}
	}

	sb := post((r.dealerIndex+1)%len(order), r.smallBlind)
	bb := post((r.dealerIndex+2)%len(order), r.bigBlind)
	r.currentBet = bb.Amount

	r.history = append(r.history, HistoryEntry{
		Action:     historyBlinds,
		SmallBlind: &sb,
		BigBlind:   &bb,
		Timestamp:  now,
	})
}

// DeclareWinnerResult reports the outcome of a manual hand resolution.
type DeclareWinnerResult struct {
	WinnerID       string `json:"winnerId"`
	WinnerName     string `json:"winnerName"`
	PotWon         int    `json:"potWon"`
	NewDealerIndex int    `json:"newDealerIndex"`
}

// DeclareWinner resolves the hand to the named player on the admin's
// authority, awarding the whole pot and rotating the dealer for the next
// hand.
func (r *Room) DeclareWinner(adminID, winnerID string, now time.Time) (DeclareWinnerResult, error) {
	if r.admin != adminID || !r.gameStarted {
		return DeclareWinnerResult{}, ErrNotAuthorized
	}
	w, ok := r.players[winnerID]
	if !ok {
		return DeclareWinnerResult{}, ErrUnknownPlayer
	}
	if w.HasFolded {
		return DeclareWinnerResult{}, ErrInvalidWinner
	}

	potWon := r.pot
	w.Chips += potWon
	r.winner = winnerID
	r.lastPotWon = potWon
	r.pot = 0

	r.history = append(r.history, HistoryEntry{
		Action:     historyWinnerDeclared,
		PlayerID:   winnerID,
		PlayerName: w.Name,
		Amount:     potWon,
		Timestamp:  now,
	})

	if n := len(r.TurnOrder()); n > 0 {
		r.dealerIndex = (r.dealerIndex + 1) % n
	}
	r.Touch(now)

	return DeclareWinnerResult{
		WinnerID:       winnerID,
		WinnerName:     w.Name,
		PotWon:         potWon,
		NewDealerIndex: r.dealerIndex,
	}, nil
}

// ReclaimAdmin restores admin to the room's original admin. Nobody else may
// take admin back.
func (r *Room) ReclaimAdmin(playerID string, now time.Time) error {
	if r.originalAdmin != playerID {
		return ErrNotAuthorized
	}
	if _, ok := r.players[playerID]; !ok {
		return ErrUnknownPlayer
	}
	r.admin = playerID
	r.Touch(now)
	return nil
}

// Reset restarts the session with the same roster: every stack back to the
// starting amount, all hand state cleared, dealer back to the first seat.
func (r *Room) Reset(now time.Time) {
	for _, p := range r.players {
		p.Chips = r.startingChips
		p.CurrentBet = 0
		p.TotalBet = 0
		p.IsActive = true
		p.HasFolded = false
		p.HasActed = false
		p.IsAllIn = false
	}
	r.pot = 0
	r.currentBet = 0
	r.bettingRound = PreFlop
	r.history = nil
	r.gameEnded = false
	r.winner = ""
	r.lastPotWon = 0
	r.dealerIndex = 0
	r.currentPlayerIndex = 0
	r.currentPlayer = ""
	if order := r.TurnOrder(); len(order) > 0 {
		r.currentPlayer = order[0]
	}
	r.Touch(now)
}

// State is the externally surfaced view of a room, broadcast to every
// subscriber after a successful mutation. Betting history is truncated to
// the most recent entries.
type State struct {
	RoomCode       string            `json:"roomCode"`
	Players        map[string]Player `json:"players"`
	PlayerOrder    []string          `json:"playerOrder"`
	Admin          string            `json:"admin,omitempty"`
	OriginalAdmin  string            `json:"originalAdmin,omitempty"`
	CurrentPlayer  string            `json:"currentPlayer,omitempty"`
	GameStarted    bool              `json:"gameStarted"`
	GameEnded      bool              `json:"gameEnded"`
	Winner         string            `json:"winner,omitempty"`
	Pot            int               `json:"pot"`
	CurrentBet     int               `json:"currentBet"`
	BettingRound   int               `json:"bettingRound"`
	BettingHistory []HistoryEntry    `json:"bettingHistory"`
	DealerIndex    int               `json:"dealerIndex"`
}

// GameState returns the client-facing snapshot of the room.
func (r *Room) GameState() State {
	players := make(map[string]Player, len(r.players))
	for id, p := range r.players {
		players[id] = *p
	}

	history := r.history
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	return State{
		RoomCode:       r.code,
		Players:        players,
		PlayerOrder:    append([]string(nil), r.TurnOrder()...),
		Admin:          r.admin,
		OriginalAdmin:  r.originalAdmin,
		CurrentPlayer:  r.currentPlayer,
		GameStarted:    r.gameStarted,
		GameEnded:      r.gameEnded,
		Winner:         r.winner,
		Pot:            r.pot,
		CurrentBet:     r.currentBet,
		BettingRound:   int(r.bettingRound),
		BettingHistory: append([]HistoryEntry(nil), history...),
		DealerIndex:    r.dealerIndex,
	}
}
