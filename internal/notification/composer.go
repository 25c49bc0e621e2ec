// internal/notification/composer.go
package notification

import (
	"fmt"
	"time"

	"taskhub-notifier/internal/models"
)

// Composers are pure: (task, user, context) in, channel-agnostic content
// out. Channel adapters decide how subject/body map onto their transport.

// ComposeReminder builds the generic nudge for an upcoming task.
func ComposeReminder(task models.Task) models.Content {
	return models.Content{
		Subject: fmt.Sprintf("Reminder: %s", task.Title),
		Body: fmt.Sprintf("Your task %q is due %s.",
			task.Title, task.DueAt.Local().Format("Mon, 02 Jan 15:04")),
		Urgency: models.UrgencyNormal,
	}
}

// ComposeDeadline builds the deadline-day alert for a task that starts and
// ends today.
func ComposeDeadline(task models.Task) models.Content {
	return models.Content{
		Subject: fmt.Sprintf("Due today: %s", task.Title),
		Body: fmt.Sprintf("Your task %q is due today at %s. Don't let it slip!",
			task.Title, task.DueAt.Local().Format("15:04")),
		Urgency: models.UrgencyHigh,
	}
}

// ComposeOverdue scales its framing with how long the task has been overdue.
func ComposeOverdue(task models.Task, now time.Time) models.Content {
	days := task.DaysOverdue(now)

	urgency := models.UrgencyHigh
	var subject string
	switch {
	case days <= 1:
		subject = fmt.Sprintf("Overdue: %s", task.Title)
	case days < 3:
		subject = fmt.Sprintf("Still overdue: %s", task.Title)
	default:
		urgency = models.UrgencyCritical
		subject = fmt.Sprintf("Overdue %d days: %s", days, task.Title)
	}

	return models.Content{
		Subject: subject,
		Body: fmt.Sprintf("Your task %q was due %s and is still open (%s overdue).",
			task.Title, task.DueAt.Local().Format("Mon, 02 Jan"), pluralDays(days)),
		Urgency: urgency,
	}
}

// ComposeDailyDigest summarises a user's tasks for one named slot.
func ComposeDailyDigest(user models.User, tasks []models.Task, slot string, now time.Time) models.Content {
	pending, completed, dueToday := 0, 0, 0
	for _, task := range tasks {
		if task.Completed {
			completed++
			continue
		}
		pending++
		if models.SameCalendarDay(task.DueAt, now) {
			dueToday++
		}
	}

	body := fmt.Sprintf("Hi %s, here is your task overview: %d pending, %d completed.",
		firstNonEmpty(user.Name, "there"), pending, completed)
	if dueToday > 0 {
		body += fmt.Sprintf(" %d of your pending tasks are due today.", dueToday)
	}

	return models.Content{
		Subject: fmt.Sprintf("Your %s task digest", slot),
		Body:    body,
		Urgency: models.UrgencyNormal,
	}
}

// ComposeWeeklyReport covers the trailing seven days.
func ComposeWeeklyReport(user models.User, tasks []models.Task, now time.Time) models.Content {
	weekAgo := now.AddDate(0, 0, -7)
	created, completed, overdue := 0, 0, 0
	for _, task := range tasks {
		if task.StartAt.After(weekAgo) {
			created++
		}
		if task.Completed {
			completed++
		} else if task.DueAt.Before(now) {
			overdue++
		}
	}

	return models.Content{
		Subject: "Your weekly task report",
		Body: fmt.Sprintf("Hi %s, this week: %d new tasks, %d completed, %d currently overdue.",
			firstNonEmpty(user.Name, "there"), created, completed, overdue),
		Urgency: models.UrgencyNormal,
	}
}

// ComposeCustom wraps an operator-supplied message.
func ComposeCustom(subject, body, urgency string) models.Content {
	if urgency == "" {
		urgency = models.UrgencyNormal
	}
	return models.Content{
		Subject: subject,
		Body:    body,
		Urgency: urgency,
	}
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
