package game

import "time"

// History entry kinds that are not player actions.
const (
	historyBlinds         = "blinds"
	historyWinnerDeclared = "winner_declared"
)

// BlindPosting records one forced blind bet.
type BlindPosting struct {
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
}

// HistoryEntry is one record in a room's betting log. Player actions carry
// PlayerID/Action/Amount/TotalBet; a "blinds" entry carries the two postings
// instead.
type HistoryEntry struct {
	Action     string        `json:"action"`
	PlayerID   string        `json:"playerId,omitempty"`
	PlayerName string        `json:"playerName,omitempty"`
	Amount     int           `json:"amount,omitempty"`
	TotalBet   int           `json:"totalBet,omitempty"`
	SmallBlind *BlindPosting `json:"smallBlind,omitempty"`
	BigBlind   *BlindPosting `json:"bigBlind,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}
