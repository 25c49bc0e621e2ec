// internal/notification/composer_test.go
package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"taskhub-notifier/internal/models"
)

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02T15:04", value, time.Local)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", value, err)
	}
	return parsed
}

func TestComposeReminder(t *testing.T) {
	task := models.Task{ID: "T1", Title: "File taxes", DueAt: ts(t, "2024-01-12T17:00")}

	content := ComposeReminder(task)

	assert.Contains(t, content.Subject, "Reminder: File taxes")
	assert.Contains(t, content.Body, "Fri, 12 Jan 17:00")
	assert.Equal(t, models.UrgencyNormal, content.Urgency)
}

func TestComposeDeadline(t *testing.T) {
	task := models.Task{ID: "T1", Title: "File taxes", DueAt: ts(t, "2024-01-10T17:00")}

	content := ComposeDeadline(task)

	assert.Contains(t, content.Subject, "File taxes")
	assert.Contains(t, content.Subject, "Due today")
	assert.Contains(t, content.Body, "17:00")
	assert.Equal(t, models.UrgencyHigh, content.Urgency)
}

func TestComposeOverdue_UrgencyScalesWithDays(t *testing.T) {
	tests := []struct {
		name        string
		dueAt       string
		now         string
		wantUrgency string
		wantSubject string
	}{
		{
			name:        "one day overdue",
			dueAt:       "2024-01-10T17:00",
			now:         "2024-01-11T12:00",
			wantUrgency: models.UrgencyHigh,
			wantSubject: "Overdue:",
		},
		{
			name:        "two days overdue",
			dueAt:       "2024-01-10T17:00",
			now:         "2024-01-12T12:00",
			wantUrgency: models.UrgencyHigh,
			wantSubject: "Still overdue:",
		},
		{
			name:        "five days overdue",
			dueAt:       "2024-01-10T17:00",
			now:         "2024-01-15T12:00",
			wantUrgency: models.UrgencyCritical,
			wantSubject: "Overdue 5 days:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := models.Task{ID: "T1", Title: "Ship release", DueAt: ts(t, tt.dueAt)}

			content := ComposeOverdue(task, ts(t, tt.now))

			assert.Equal(t, tt.wantUrgency, content.Urgency)
			assert.Contains(t, content.Subject, tt.wantSubject)
			assert.Contains(t, content.Subject, "Ship release")
		})
	}
}

func TestComposeDailyDigest(t *testing.T) {
	now := ts(t, "2024-01-10T08:00")
	user := models.User{ID: "U1", Name: "Ada"}
	tasks := []models.Task{
		{ID: "T1", DueAt: ts(t, "2024-01-10T17:00")},                  // pending, due today
		{ID: "T2", DueAt: ts(t, "2024-01-12T17:00")},                  // pending
		{ID: "T3", DueAt: ts(t, "2024-01-09T17:00"), Completed: true}, // completed
	}

	content := ComposeDailyDigest(user, tasks, "morning", now)

	assert.Contains(t, content.Subject, "morning")
	assert.Contains(t, content.Body, "Ada")
	assert.Contains(t, content.Body, "2 pending")
	assert.Contains(t, content.Body, "1 completed")
	assert.Contains(t, content.Body, "1 of your pending tasks are due today")
}

func TestComposeDailyDigest_NamelessUser(t *testing.T) {
	content := ComposeDailyDigest(models.User{ID: "U1"}, nil, "evening", ts(t, "2024-01-10T19:00"))

	assert.Contains(t, content.Body, "Hi there")
}

func TestComposeWeeklyReport(t *testing.T) {
	now := ts(t, "2024-01-10T09:00")
	tasks := []models.Task{
		{ID: "T1", StartAt: ts(t, "2024-01-08T09:00"), DueAt: ts(t, "2024-01-09T17:00")},                  // new, overdue
		{ID: "T2", StartAt: ts(t, "2024-01-01T09:00"), DueAt: ts(t, "2024-01-05T17:00"), Completed: true}, // old, done
	}

	content := ComposeWeeklyReport(models.User{ID: "U1", Name: "Ada"}, tasks, now)

	assert.Contains(t, content.Body, "1 new tasks")
	assert.Contains(t, content.Body, "1 completed")
	assert.Contains(t, content.Body, "1 currently overdue")
}

func TestComposeCustom_DefaultUrgency(t *testing.T) {
	content := ComposeCustom("Maintenance tonight", "Expect downtime.", "")

	assert.Equal(t, models.UrgencyNormal, content.Urgency)
	assert.Equal(t, "Maintenance tonight", content.Subject)
}
