// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package catalog holds the quality levels announced by the current manifest.
package catalog

import (
	"fmt"

	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
)

// Snapshot is an immutable view of the catalog.
type Snapshot struct {
	Levels []model.QualityLevel
}

// Len returns the number of levels.
func (s Snapshot) Len() int { return len(s.Levels) }

// Lookup returns the level with the given id.
func (s Snapshot) Lookup(id int) (model.QualityLevel, bool) {
	for _, l := range s.Levels {
		if l.ID == id {
			return l, true
		}
	}
	return model.QualityLevel{}, false
}

// Highest returns the level with the largest height (bitrate breaks ties).
func (s Snapshot) Highest() (model.QualityLevel, bool) {
	if len(s.Levels) == 0 {
		return model.QualityLevel{}, false
	}
	best := s.Levels[0]
	for _, l := range s.Levels[1:] {
		if l.Height > best.Height || (l.Height == best.Height && l.Bitrate > best.Bitrate) {
			best = l
		}
	}
	return best, true
}

// Catalog owns the level set of one session. It is not safe for concurrent
// use; the controller serializes access.
type Catalog struct {
	current Snapshot
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{}
}

// Replace swaps the whole level set. The input slice is copied.
func (c *Catalog) Replace(levels []model.QualityLevel) Snapshot {
	cp := make([]model.QualityLevel, len(levels))
	copy(cp, levels)
	c.current = Snapshot{Levels: cp}
	return c.Snapshot()
}

// Snapshot returns a copy of the current level set.
func (c *Catalog) Snapshot() Snapshot {
	cp := make([]model.QualityLevel, len(c.current.Levels))
	copy(cp, c.current.Levels)
	return Snapshot{Levels: cp}
}

// Select validates a selection against the catalog. Auto is always valid.
func (c *Catalog) Select(sel model.QualitySelection) error {
	id, ok := sel.LevelID()
	if !ok {
		return nil
	}
	if _, found := c.current.Lookup(id); !found {
		return fmt.Errorf("%w: level %d not in catalog (%d levels)", model.ErrInvalidSelection, id, c.current.Len())
	}
	return nil
}
