// Package game implements the betting engine for a single room.
//
// The engine tracks chips, blinds, turn order and pots for a table playing
// with physical cards: there is no dealing and no hand evaluation. A hand
// resolves either automatically, when every player but one has folded, or
// manually, when the room admin declares a winner after the final betting
// round.
//
// Room is a pure state machine. Commands either apply fully or fail with one
// of the sentinel errors in errors.go before any state changes; the engine
// performs no I/O and never looks at the wall clock itself (callers pass
// time.Time values in). Serializing commands per room is the caller's job,
// see internal/registry.
package game
