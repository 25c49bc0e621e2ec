// internal/models/task.go
package models

import "time"

// Task is the scheduler's read-only view of a task record. Tasks are owned
// by the task-storage service; the reminder engine only evaluates them.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	OwnerID     string    `json:"ownerId"`
	AssigneeIDs []string  `json:"assigneeIds,omitempty"`
	StartAt     time.Time `json:"startAt"`
	DueAt       time.Time `json:"dueAt"`
	Completed   bool      `json:"completed"`
}

// IsDeadlineTask reports whether the task's whole lifespan falls on a single
// calendar day. Multi-day tasks that merely end today do not qualify for a
// deadline-day alert.
func (t Task) IsDeadlineTask() bool {
	return SameCalendarDay(t.StartAt, t.DueAt)
}

// DaysOverdue returns how many whole calendar days the task is past its due
// date at the given instant. Zero if the task is not overdue.
func (t Task) DaysOverdue(now time.Time) int {
	if !now.After(t.DueAt) {
		return 0
	}
	dueDay := truncateToDay(t.DueAt)
	nowDay := truncateToDay(now)
	days := int(nowDay.Sub(dueDay).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Recipients returns the owner plus all assignees, deduplicated, preserving
// owner-first order. A task notifies each distinct person once.
func (t Task) Recipients() []string {
	seen := make(map[string]struct{}, len(t.AssigneeIDs)+1)
	out := make([]string, 0, len(t.AssigneeIDs)+1)
	for _, id := range append([]string{t.OwnerID}, t.AssigneeIDs...) {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SameCalendarDay compares two instants in the process's local time zone.
func SameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Local().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// DayBounds returns [start, end) of the calendar day containing the given
// instant, in local time.
func DayBounds(now time.Time) (time.Time, time.Time) {
	start := truncateToDay(now)
	return start, start.AddDate(0, 0, 1)
}
