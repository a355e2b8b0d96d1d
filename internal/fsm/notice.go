package fsm

import (
	"context"
	"time"

	"github.com/roach88/smartscale/internal/mealog"
	"github.com/roach88/smartscale/internal/nutrition"
)

// NoticeKind is what the display should tell the operator.
type NoticeKind string

const (
	NoticeRejected        NoticeKind = "rejected"
	NoticeNothingToCommit NoticeKind = "nothing_to_commit"
	NoticeInvalidGroup    NoticeKind = "invalid_group"
	NoticeDishCommitted   NoticeKind = "dish_committed"
	NoticeDishDeleted     NoticeKind = "dish_deleted"
	NoticeDishDiscarded   NoticeKind = "dish_discarded"
	NoticeMealSaved       NoticeKind = "meal_saved"
	NoticeSaveFailed      NoticeKind = "save_failed"
)

// Notice is a user-visible message produced by the machine.
type Notice struct {
	Kind  NoticeKind
	State State
	Event Event
	Err   error
}

// Notifier receives notices, typically to drive the display.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// SavedMeal is a committed meal handed off for persistence and delivery.
type SavedMeal struct {
	SessionID string
	At        time.Time
	Meal      nutrition.Meal
	Lines     []mealog.Line
}

// MealSink persists and forwards saved meals.
type MealSink interface {
	SaveMeal(ctx context.Context, m SavedMeal) error
}

// Tarer zeroes the scale reading.
type Tarer interface {
	Tare()
}
