// Package notify is the outward event queue between the core and the
// presentation layer. The core pushes; the presentation layer shows one
// notification at a time and dismisses it to reveal the next.
package notify

import (
	"time"

	"github.com/atmx/stockquest/internal/model"
	"github.com/atmx/stockquest/internal/progression"
)

// Kind identifies a notification type.
type Kind string

const (
	KindAchievementUnlocked Kind = "achievement_unlocked"
	KindLevelUp             Kind = "level_up"
)

// Notification is one queued event.
type Notification struct {
	Kind        Kind                 `json:"kind"`
	Achievement *model.Achievement   `json:"achievement,omitempty"`
	LevelUp     *progression.LevelUp `json:"level_up,omitempty"`
	At          time.Time            `json:"at"`
}

// Achievement wraps an unlocked achievement.
func Achievement(a model.Achievement, at time.Time) Notification {
	return Notification{Kind: KindAchievementUnlocked, Achievement: &a, At: at}
}

// LevelUp wraps a level increase.
func LevelUp(ev progression.LevelUp, at time.Time) Notification {
	return Notification{Kind: KindLevelUp, LevelUp: &ev, At: at}
}

// Queue is a FIFO of notifications whose head is the one being displayed.
// It is not safe for concurrent use; the owning session serializes access.
type Queue struct {
	items []Notification
}

// Push appends notifications in the given order.
func (q *Queue) Push(ns ...Notification) {
	q.items = append(q.items, ns...)
}

// Active returns the notification currently on display, if any.
func (q *Queue) Active() (Notification, bool) {
	if len(q.items) == 0 {
		return Notification{}, false
	}
	return q.items[0], true
}

// Dismiss clears the active notification and reports whether there was one.
func (q *Queue) Dismiss() bool {
	if len(q.items) == 0 {
		return false
	}
	q.items[0] = Notification{}
	q.items = q.items[1:]
	return true
}

// Pending returns the number of queued notifications, including the active one.
func (q *Queue) Pending() int {
	return len(q.items)
}
