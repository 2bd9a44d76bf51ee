// Package progression tracks experience points and the level derived from
// them. Experience only ever grows.
package progression

import (
	"fmt"

	"github.com/atmx/stockquest/internal/model"
)

// PointsPerLevel is the experience needed to advance one level.
const PointsPerLevel = 100

// LevelFor returns the level for an experience total: floor(xp/100) + 1.
func LevelFor(experience int64) int64 {
	return experience/PointsPerLevel + 1
}

// LevelUp is raised when a grant moves the tracker to a higher level.
type LevelUp struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Tracker owns the experience total of a session.
type Tracker struct {
	experience int64
	level      int64 // cached projection of experience
}

// NewTracker returns a tracker at level 1 with no experience.
func NewTracker() *Tracker {
	return &Tracker{level: LevelFor(0)}
}

// GrantExperience adds points and reports a level-up if one happened.
// Points must be positive; how many a given action is worth is the caller's
// policy.
func (t *Tracker) GrantExperience(points int64) (LevelUp, bool) {
	if points <= 0 {
		panic(fmt.Sprintf("progression: non-positive experience grant %d", points))
	}
	t.experience += points

	prev := t.level
	t.level = LevelFor(t.experience)
	if t.level > prev {
		return LevelUp{From: prev, To: t.level}, true
	}
	return LevelUp{}, false
}

// Experience returns the experience total.
func (t *Tracker) Experience() int64 { return t.experience }

// Level returns the current level.
func (t *Tracker) Level() int64 { return t.level }

// Snapshot returns the read-only progression view.
func (t *Tracker) Snapshot() model.Progression {
	return model.Progression{
		Experience:      t.experience,
		Level:           t.level,
		ProgressInLevel: t.experience % PointsPerLevel,
	}
}
