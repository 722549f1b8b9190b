package registry

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"homegame/internal/game"
	"homegame/internal/roomcode"
)

// seqSource makes room codes deterministic in tests.
type seqSource struct{ next int }

func (s *seqSource) Intn(n int) int {
	v := s.next % n
	s.next++
	return v
}

func newTestRegistry(t *testing.T) (*Registry, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	r := New(zerolog.Nop(), clock, game.DefaultConfig(), roomcode.NewGenerator(&seqSource{}))
	return r, clock
}

func TestCreateAndWith(t *testing.T) {
	r, _ := newTestRegistry(t)

	code, err := r.Create()
	require.NoError(t, err)
	require.NoError(t, roomcode.Validate(code))
	assert.Equal(t, 1, r.Len())

	err = r.With(code, func(room *game.Room) error {
		_, err := room.AddPlayer("a", "Alice", false, time.Now())
		return err
	})
	require.NoError(t, err)

	err = r.With(code, func(room *game.Room) error {
		assert.Equal(t, 1, room.PlayerCount())
		return nil
	})
	require.NoError(t, err)
}

func TestWith_UnknownRoom(t *testing.T) {
	r, _ := newTestRegistry(t)

	err := r.With("NOSUCH", func(room *game.Room) error { return nil })
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestWithCreate_LazyCreation(t *testing.T) {
	r, _ := newTestRegistry(t)

	err := r.WithCreate("MAIN", func(room *game.Room) error {
		_, err := room.AddPlayer("a", "Alice", false, time.Now())
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	// Second call reuses the same room rather than replacing it.
	err = r.WithCreate("MAIN", func(room *game.Room) error {
		assert.Equal(t, 1, room.PlayerCount())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())
}

func TestRemove(t *testing.T) {
	r, _ := newTestRegistry(t)

	code, err := r.Create()
	require.NoError(t, err)
	r.Remove(code)
	assert.Equal(t, 0, r.Len())
	assert.ErrorIs(t, r.With(code, func(*game.Room) error { return nil }), ErrRoomNotFound)

	// Removing a room twice is harmless.
	r.Remove(code)
}

func TestSweepExpired(t *testing.T) {
	r, clock := newTestRegistry(t)

	stale, err := r.Create()
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	fresh, err := r.Create()
	require.NoError(t, err)

	// The first room is now idle past the 4h timeout, the second is not.
	clock.Advance(game.DefaultSessionTimeout - time.Hour)
	assert.Equal(t, 1, r.SweepExpired())
	assert.Equal(t, 1, r.Len())

	assert.ErrorIs(t, r.With(stale, func(*game.Room) error { return nil }), ErrRoomNotFound)
	assert.NoError(t, r.With(fresh, func(*game.Room) error { return nil }))
}

func TestSweepExpired_ActivityDefersSweep(t *testing.T) {
	r, clock := newTestRegistry(t)

	code, err := r.Create()
	require.NoError(t, err)

	clock.Advance(3 * time.Hour)
	require.NoError(t, r.With(code, func(room *game.Room) error {
		room.Touch(clock.Now())
		return nil
	}))

	clock.Advance(3 * time.Hour)
	assert.Equal(t, 0, r.SweepExpired(), "Touched room must survive the sweep")
}

func TestSnapshotsAndRestore(t *testing.T) {
	r, clock := newTestRegistry(t)

	code, err := r.Create()
	require.NoError(t, err)
	require.NoError(t, r.With(code, func(room *game.Room) error {
		if _, err := room.AddPlayer("a", "Alice", false, clock.Now()); err != nil {
			return err
		}
		if _, err := room.AddPlayer("b", "Bob", false, clock.Now()); err != nil {
			return err
		}
		return room.StartGame("", clock.Now())
	}))

	snaps := r.Snapshots()
	require.Len(t, snaps, 1)

	restoredReg, _ := newTestRegistry(t)
	assert.Equal(t, 1, restoredReg.Restore(snaps))
	require.NoError(t, restoredReg.With(code, func(room *game.Room) error {
		assert.Equal(t, 2, room.PlayerCount())
		assert.Equal(t, "a", room.Admin())
		return nil
	}))
}

func TestRestore_DiscardsExpiredAndMalformed(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Create()
	require.NoError(t, err)
	snaps := r.Snapshots()
	require.Len(t, snaps, 1)

	// Same snapshot again, but with a broken cross-reference.
	bad := snaps[0]
	bad.Code = "BADBAD"
	bad.Admin = "ghost"
	snaps = append(snaps, bad)

	// A registry whose clock sits past the session timeout sees the valid
	// snapshot as expired; the malformed one is rejected outright.
	lateReg, lateClock := newTestRegistry(t)
	lateClock.Advance(game.DefaultSessionTimeout + time.Minute)
	assert.Equal(t, 0, lateReg.Restore(snaps))
	assert.Equal(t, 0, lateReg.Len())
}

func TestWith_SerializesRoomCommands(t *testing.T) {
	r, clock := newTestRegistry(t)

	code, err := r.Create()
	require.NoError(t, err)

	// Concurrent joins against one room must all be applied exactly once.
	var g errgroup.Group
	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		g.Go(func() error {
			return r.With(code, func(room *game.Room) error {
				_, err := room.AddPlayer(id, "Player "+id, false, clock.Now())
				return err
			})
		})
	}
	require.NoError(t, g.Wait())

	require.NoError(t, r.With(code, func(room *game.Room) error {
		assert.Equal(t, len(ids), room.PlayerCount())
		return nil
	}))
}
