// Package registry owns room lifecycle: creation, lookup, expiry, and the
// per-room locking discipline that serializes commands.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"homegame/internal/game"
	"homegame/internal/roomcode"
)

// ErrRoomNotFound is returned when a command names a room that does not
// exist (or has been swept).
var ErrRoomNotFound = errors.New("room not found")

// DefaultSweepInterval matches the expiry check cadence of the original
// deployment.
const DefaultSweepInterval = 2 * time.Minute

// createAttempts bounds the collision retry loop for generated codes.
const createAttempts = 10

// entry pairs a room with the mutex that serializes all commands against it.
type entry struct {
	mu   sync.Mutex
	room *game.Room
}

// Registry tracks live rooms. The registry mutex guards only the map; each
// room has its own lock, so commands against different rooms run in
// parallel while commands against one room are strictly serialized.
type Registry struct {
	logger zerolog.Logger
	clock  quartz.Clock
	cfg    game.Config
	codes  *roomcode.Generator

	mu    sync.RWMutex
	rooms map[string]*entry
}

// New constructs an empty registry. Rooms it creates use cfg for their
// table parameters.
func New(logger zerolog.Logger, clock quartz.Clock, cfg game.Config, codes *roomcode.Generator) *Registry {
	if codes == nil {
		codes = roomcode.NewGenerator(nil)
	}
	return &Registry{
		logger: logger.With().Str("component", "registry").Logger(),
		clock:  clock,
		cfg:    cfg,
		codes:  codes,
		rooms:  make(map[string]*entry),
	}
}

// Create allocates an empty room under a freshly generated code that does
// not collide with any live room.
func (r *Registry) Create() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < createAttempts; i++ {
		code := r.codes.Generate()
		if _, taken := r.rooms[code]; taken {
			continue
		}
		r.rooms[code] = &entry{room: game.NewRoom(code, r.cfg, r.clock.Now())}
		r.logger.Info().Str("room", code).Msg("room created")
		return code, nil
	}
	return "", fmt.Errorf("could not generate a unique room code after %d attempts", createAttempts)
}

// With runs fn against the named room under its exclusive lock.
func (r *Registry) With(code string, fn func(*game.Room) error) error {
	r.mu.RLock()
	e, ok := r.rooms[code]
	r.mu.RUnlock()
	if !ok {
		return ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.room)
}

// WithCreate is With, except the room is created lazily under the given
// fixed code. Single-room deployments use this with their well-known code.
func (r *Registry) WithCreate(code string, fn func(*game.Room) error) error {
	r.mu.Lock()
	e, ok := r.rooms[code]
	if !ok {
		e = &entry{room: game.NewRoom(code, r.cfg, r.clock.Now())}
		r.rooms[code] = e
		r.logger.Info().Str("room", code).Msg("room created")
	}
	r.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.room)
}

// Remove deletes a room outright (used when the last player leaves).
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	if _, ok := r.rooms[code]; ok {
		delete(r.rooms, code)
		r.logger.Info().Str("room", code).Msg("room removed")
	}
	r.mu.Unlock()
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// SweepExpired removes every room idle past its session timeout and returns
// how many were removed. Safe to call repeatedly.
func (r *Registry) SweepExpired() int {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for code, e := range r.rooms {
		e.mu.Lock()
		expired := e.room.IsExpired(now)
		e.mu.Unlock()
		if expired {
			delete(r.rooms, code)
			removed++
			r.logger.Info().Str("room", code).Msg("expired room swept")
		}
	}
	return removed
}

// RunSweeper sweeps expired rooms on the given interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.SweepExpired()
		case <-ctx.Done():
			return
		}
	}
}

// Snapshots returns a point-in-time copy of every live room, taking each
// room's lock only long enough to copy it. The result is safe to serialize
// outside any lock.
func (r *Registry) Snapshots() []game.Snapshot {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.rooms))
	for _, e := range r.rooms {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	snaps := make([]game.Snapshot, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		snaps = append(snaps, e.room.Snapshot())
		e.mu.Unlock()
	}
	return snaps
}

// Restore rebuilds rooms from persisted snapshots, discarding any that fail
// validation or have already expired. Returns the number restored.
func (r *Registry) Restore(snaps []game.Snapshot) int {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	restored := 0
	for _, s := range snaps {
		room, err := game.FromSnapshot(s, r.cfg.SessionTimeout)
		if err != nil {
			r.logger.Warn().Err(err).Str("room", s.Code).Msg("discarding malformed room snapshot")
			continue
		}
		if room.IsExpired(now) {
			r.logger.Info().Str("room", s.Code).Msg("discarding expired room snapshot")
			continue
		}
		r.rooms[room.Code()] = &entry{room: room}
		restored++
	}
	if restored > 0 {
		r.logger.Info().Int("rooms", restored).Msg("restored rooms from snapshot")
	}
	return restored
}
