// Package store persists room snapshots to a JSON file on disk so a server
// restart does not lose an evening's game.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"homegame/internal/fileutil"
	"homegame/internal/game"
)

// DefaultSaveInterval matches the snapshot cadence of the original
// deployment.
const DefaultSaveInterval = 2 * time.Minute

// snapshotFile is the on-disk layout: one record per room keyed by code.
type snapshotFile struct {
	SavedAt time.Time                `json:"savedAt"`
	Rooms   map[string]game.Snapshot `json:"rooms"`
}

// Store writes and reads room snapshots. Save failures are logged and
// retried on the next cycle; they never surface as command errors.
type Store struct {
	path    string
	logger  zerolog.Logger
	clock   quartz.Clock
	saveReq chan struct{}
}

// New creates a store writing to path.
func New(path string, logger zerolog.Logger, clock quartz.Clock) *Store {
	return &Store{
		path:    path,
		logger:  logger.With().Str("component", "store").Logger(),
		clock:   clock,
		saveReq: make(chan struct{}, 1),
	}
}

// Save atomically writes the given snapshots, replacing the previous file.
func (s *Store) Save(snaps []game.Snapshot) error {
	file := snapshotFile{
		SavedAt: s.clock.Now(),
		Rooms:   make(map[string]game.Snapshot, len(snaps)),
	}
	for _, snap := range snaps {
		file.Rooms[snap.Code] = snap
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot file. A missing file is not an error: it returns
// no snapshots, and the caller starts empty.
func (s *Store) Load() ([]game.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	snaps := make([]game.Snapshot, 0, len(file.Rooms))
	for _, snap := range file.Rooms {
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// RequestSave nudges the autosave loop to save soon, without blocking. The
// transport layer calls this after every successful mutation.
func (s *Store) RequestSave() {
	select {
	case s.saveReq <- struct{}{}:
	default:
	}
}

// RunAutosave saves on the given interval and whenever RequestSave fires,
// and performs a final save when ctx is cancelled. source must return a
// consistent point-in-time copy of the live rooms; it is called outside any
// room lock.
func (s *Store) RunAutosave(ctx context.Context, interval time.Duration, source func() []game.Snapshot) {
	if interval <= 0 {
		interval = DefaultSaveInterval
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	save := func() {
		if err := s.Save(source()); err != nil {
			s.logger.Error().Err(err).Msg("snapshot save failed, will retry next cycle")
			return
		}
		s.logger.Debug().Msg("snapshot saved")
	}

	for {
		select {
		case <-ticker.C:
			save()
		case <-s.saveReq:
			save()
		case <-ctx.Done():
			save()
			return
		}
	}
}
