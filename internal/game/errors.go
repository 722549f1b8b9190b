package game

import "errors"

// Command errors. All of these are recoverable: they are reported to the
// caller that issued the command and leave the room untouched.
var (
	ErrRoomFull         = errors.New("room is full")
	ErrDuplicateName    = errors.New("player name already taken")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrNotEnoughPlayers = errors.New("need at least 2 players")
	ErrOutOfTurn        = errors.New("player cannot act right now")
	ErrInvalidAction    = errors.New("action is not currently valid")
	ErrInvalidAmount    = errors.New("invalid bet amount")
	ErrInvalidValue     = errors.New("invalid value")
	ErrInvalidWinner    = errors.New("winner must be a player who has not folded")
	ErrInvalidOrder     = errors.New("order must contain every current player exactly once")
	ErrUnknownPlayer    = errors.New("unknown player")
)
