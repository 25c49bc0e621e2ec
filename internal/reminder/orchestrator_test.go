// internal/reminder/orchestrator_test.go
package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub-notifier/internal/common/logger"
	"taskhub-notifier/internal/dedup"
	"taskhub-notifier/internal/models"
)

// ==========================
// Mocks
// ==========================

type MockTaskStore struct {
	FindDueInRangeFunc        func(ctx context.Context, start, end time.Time) ([]models.Task, error)
	FindOverdueFunc           func(ctx context.Context, now time.Time) ([]models.Task, error)
	FindByOwnerOrAssigneeFunc func(ctx context.Context, userID string) ([]models.Task, error)
}

func (m *MockTaskStore) FindDueInRange(ctx context.Context, start, end time.Time) ([]models.Task, error) {
	if m.FindDueInRangeFunc != nil {
		return m.FindDueInRangeFunc(ctx, start, end)
	}
	return nil, nil
}

func (m *MockTaskStore) FindOverdue(ctx context.Context, now time.Time) ([]models.Task, error) {
	if m.FindOverdueFunc != nil {
		return m.FindOverdueFunc(ctx, now)
	}
	return nil, nil
}

func (m *MockTaskStore) FindByOwnerOrAssignee(ctx context.Context, userID string) ([]models.Task, error) {
	if m.FindByOwnerOrAssigneeFunc != nil {
		return m.FindByOwnerOrAssigneeFunc(ctx, userID)
	}
	return nil, nil
}

type MockUserStore struct {
	FindWithContactChannelFunc func(ctx context.Context) ([]models.User, error)
	GetByIDFunc                func(ctx context.Context, userID string) (models.User, error)
	GetPreferencesFunc         func(ctx context.Context, userID string) (models.NotificationPreference, error)
}

func (m *MockUserStore) FindWithContactChannel(ctx context.Context) ([]models.User, error) {
	if m.FindWithContactChannelFunc != nil {
		return m.FindWithContactChannelFunc(ctx)
	}
	return nil, nil
}

func (m *MockUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, userID)
	}
	return models.User{ID: userID, Name: "User " + userID, Email: userID + "@example.com"}, nil
}

func (m *MockUserStore) GetPreferences(ctx context.Context, userID string) (models.NotificationPreference, error) {
	if m.GetPreferencesFunc != nil {
		return m.GetPreferencesFunc(ctx, userID)
	}
	return models.DefaultPreferences(), nil
}

type MockDispatcher struct {
	DispatchFunc func(ctx context.Context, user models.User, prefs models.NotificationPreference, notificationType string, content models.Content) models.Result
	Calls        int
}

func (m *MockDispatcher) Dispatch(ctx context.Context, user models.User, prefs models.NotificationPreference, notificationType string, content models.Content) models.Result {
	m.Calls++
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, user, prefs, notificationType, content)
	}
	return models.Result{Success: true, SentVia: []string{models.ChannelEmail}}
}

// ==========================
// Helpers
// ==========================

var baseNow = time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local)

func newTestOrchestrator(tasks *MockTaskStore, users *MockUserStore, dispatcher *MockDispatcher) *Orchestrator {
	o := New(tasks, users, dispatcher, dedup.NewMemoryLedger(), 7, nil, logger.NewNoOpLogger())
	o.nowFn = func() time.Time { return baseNow }
	return o
}

func singleDayTask(id, owner string) models.Task {
	return models.Task{
		ID:      id,
		Title:   "Task " + id,
		OwnerID: owner,
		StartAt: time.Date(2024, 1, 10, 8, 0, 0, 0, time.Local),
		DueAt:   time.Date(2024, 1, 10, 17, 0, 0, 0, time.Local),
	}
}

// ==========================
// Deadline sweep
// ==========================

func TestDeadlineSweep_SendsOncePerDay(t *testing.T) {
	tasks := &MockTaskStore{
		FindDueInRangeFunc: func(ctx context.Context, start, end time.Time) ([]models.Task, error) {
			return []models.Task{singleDayTask("T1", "U1")}, nil
		},
	}
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(tasks, &MockUserStore{}, dispatcher)

	stats, err := o.RunDeadlineSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)

	// The next sweep on the same day finds the ledger record and stays quiet.
	stats, err = o.RunDeadlineSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sent)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, dispatcher.Calls)
}

func TestDeadlineSweep_IgnoresMultiDayTasks(t *testing.T) {
	multiDay := singleDayTask("T1", "U1")
	multiDay.StartAt = time.Date(2024, 1, 8, 8, 0, 0, 0, time.Local)

	tasks := &MockTaskStore{
		FindDueInRangeFunc: func(ctx context.Context, start, end time.Time) ([]models.Task, error) {
			return []models.Task{multiDay}, nil
		},
	}
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(tasks, &MockUserStore{}, dispatcher)

	stats, err := o.RunDeadlineSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, stats.Processed)
	assert.Equal(t, 0, dispatcher.Calls)
}

func TestDeadlineSweep_QueriesTodayBounds(t *testing.T) {
	var gotStart, gotEnd time.Time
	tasks := &MockTaskStore{
		FindDueInRangeFunc: func(ctx context.Context, start, end time.Time) ([]models.Task, error) {
			gotStart, gotEnd = start, end
			return nil, nil
		},
	}
	o := newTestOrchestrator(tasks, &MockUserStore{}, &MockDispatcher{})

	_, err := o.RunDeadlineSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local), gotStart)
	assert.Equal(t, time.Date(2024, 1, 11, 0, 0, 0, 0, time.Local), gotEnd)
}

func TestDeadlineSweep_NotifiesOwnerAndAssigneesOnce(t *testing.T) {
	task := singleDayTask("T1", "U1")
	task.AssigneeIDs = []string{"U2", "U1"} // owner listed twice

	tasks := &MockTaskStore{
		FindDueInRangeFunc: func(ctx context.Context, start, end time.Time) ([]models.Task, error) {
			return []models.Task{task}, nil
		},
	}
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(tasks, &MockUserStore{}, dispatcher)

	stats, err := o.RunDeadlineSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 2, stats.Sent)
	assert.Equal(t, 2, dispatcher.Calls)
}

// ==========================
// Overdue sweep
// ==========================

func TestOverdueSweep_RetriesAfterTotalFailure(t *testing.T) {
	overdue := singleDayTask("T1", "U1")
	overdue.DueAt = time.Date(2024, 1, 9, 17, 0, 0, 0, time.Local)

	tasks := &MockTaskStore{
		FindOverdueFunc: func(ctx context.Context, now time.Time) ([]models.Task, error) {
			return []models.Task{overdue}, nil
		},
	}
	failing := true
	dispatcher := &MockDispatcher{
		DispatchFunc: func(ctx context.Context, user models.User, prefs models.NotificationPreference, notificationType string, content models.Content) models.Result {
			if failing {
				return models.Result{Success: false, Errors: []string{"Email: smtp down"}}
			}
			return models.Result{Success: true, SentVia: []string{models.ChannelEmail}}
		},
	}
	o := newTestOrchestrator(tasks, &MockUserStore{}, dispatcher)

	// Every channel fails, so nothing is marked and the candidate stays live.
	stats, err := o.RunOverdueSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Sent)

	failing = false
	stats, err = o.RunOverdueSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 2, dispatcher.Calls)
}

func TestOverdueSweep_FiresAgainNextDay(t *testing.T) {
	overdue := singleDayTask("T1", "U1")
	overdue.DueAt = time.Date(2024, 1, 9, 17, 0, 0, 0, time.Local)

	tasks := &MockTaskStore{
		FindOverdueFunc: func(ctx context.Context, now time.Time) ([]models.Task, error) {
			return []models.Task{overdue}, nil
		},
	}
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(tasks, &MockUserStore{}, dispatcher)

	stats, err := o.RunOverdueSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)

	o.nowFn = func() time.Time { return baseNow.AddDate(0, 0, 1) }

	stats, err = o.RunOverdueSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent, "a new calendar day resets suppression")
	assert.Equal(t, 2, dispatcher.Calls)
}

func TestOverdueSweep_StorageErrorAbortsRun(t *testing.T) {
	tasks := &MockTaskStore{
		FindOverdueFunc: func(ctx context.Context, now time.Time) ([]models.Task, error) {
			return nil, errors.New("connection refused")
		},
	}
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(tasks, &MockUserStore{}, dispatcher)

	_, err := o.RunOverdueSweep(context.Background())

	assert.Error(t, err)
	assert.Equal(t, 0, dispatcher.Calls)
}

func TestOverdueSweep_RecipientFailureIsIsolated(t *testing.T) {
	task := singleDayTask("T1", "U1")
	task.AssigneeIDs = []string{"U2"}

	tasks := &MockTaskStore{
		FindOverdueFunc: func(ctx context.Context, now time.Time) ([]models.Task, error) {
			return []models.Task{task}, nil
		},
	}
	users := &MockUserStore{
		GetByIDFunc: func(ctx context.Context, userID string) (models.User, error) {
			if userID == "U1" {
				return models.User{}, errors.New("user service timeout")
			}
			return models.User{ID: userID, Email: userID + "@example.com"}, nil
		},
	}
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(tasks, users, dispatcher)

	stats, err := o.RunOverdueSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Sent, "the second recipient is unaffected")
}

func TestOverdueSweep_RespectsReminderOptOut(t *testing.T) {
	tasks := &MockTaskStore{
		FindOverdueFunc: func(ctx context.Context, now time.Time) ([]models.Task, error) {
			return []models.Task{singleDayTask("T1", "U1")}, nil
		},
	}
	users := &MockUserStore{
		GetPreferencesFunc: func(ctx context.Context, userID string) (models.NotificationPreference, error) {
			prefs := models.DefaultPreferences()
			prefs.Categories.TaskReminders = false
			return prefs, nil
		},
	}
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(tasks, users, dispatcher)

	stats, err := o.RunOverdueSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, dispatcher.Calls)
}

// ==========================
// Daily digest
// ==========================

func digestTaskStore() *MockTaskStore {
	return &MockTaskStore{
		FindByOwnerOrAssigneeFunc: func(ctx context.Context, userID string) ([]models.Task, error) {
			return []models.Task{singleDayTask("T1", userID)}, nil
		},
	}
}

func TestDailyDigest_SlotsDedupIndependently(t *testing.T) {
	users := &MockUserStore{
		FindWithContactChannelFunc: func(ctx context.Context) ([]models.User, error) {
			return []models.User{{ID: "U1", Name: "Ada", Email: "ada@example.com"}}, nil
		},
	}
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(digestTaskStore(), users, dispatcher)

	stats, err := o.RunDailyDigest(context.Background(), "morning")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)

	// Re-firing the morning slot is suppressed, the evening slot is not.
	stats, err = o.RunDailyDigest(context.Background(), "morning")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)

	stats, err = o.RunDailyDigest(context.Background(), "evening")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 2, dispatcher.Calls)
}

func TestDailyDigest_FailingUserDoesNotAbortBatch(t *testing.T) {
	users := &MockUserStore{
		FindWithContactChannelFunc: func(ctx context.Context) ([]models.User, error) {
			return []models.User{{ID: "U1", Email: "a@x.com"}, {ID: "U2", Email: "b@x.com"}}, nil
		},
		GetPreferencesFunc: func(ctx context.Context, userID string) (models.NotificationPreference, error) {
			if userID == "U1" {
				return models.NotificationPreference{}, errors.New("preferences table locked")
			}
			return models.DefaultPreferences(), nil
		},
	}
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(digestTaskStore(), users, dispatcher)

	stats, err := o.RunDailyDigest(context.Background(), "morning")

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Sent)
}

func TestDailyDigest_NoReachableUsers(t *testing.T) {
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(digestTaskStore(), &MockUserStore{}, dispatcher)

	stats, err := o.RunDailyDigest(context.Background(), "morning")

	require.NoError(t, err)
	assert.Equal(t, 0, stats.Processed)
	assert.Equal(t, 0, dispatcher.Calls)
}

func TestDailyDigest_SkipsUsersWithNoTasks(t *testing.T) {
	users := &MockUserStore{
		FindWithContactChannelFunc: func(ctx context.Context) ([]models.User, error) {
			return []models.User{{ID: "U1", Email: "a@x.com"}}, nil
		},
	}
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(&MockTaskStore{}, users, dispatcher)

	stats, err := o.RunDailyDigest(context.Background(), "morning")

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, dispatcher.Calls, "an empty digest is noise, not a notification")
}

// ==========================
// Hourly sweep
// ==========================

func TestHourlySweep_DeadlineFailureDoesNotStopOverdue(t *testing.T) {
	overdue := singleDayTask("T1", "U1")
	overdue.DueAt = time.Date(2024, 1, 9, 17, 0, 0, 0, time.Local)

	tasks := &MockTaskStore{
		FindDueInRangeFunc: func(ctx context.Context, start, end time.Time) ([]models.Task, error) {
			return nil, errors.New("db down")
		},
		FindOverdueFunc: func(ctx context.Context, now time.Time) ([]models.Task, error) {
			return []models.Task{overdue}, nil
		},
	}
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(tasks, &MockUserStore{}, dispatcher)

	o.RunHourlySweep(context.Background())

	assert.Equal(t, 1, dispatcher.Calls)
}

// ==========================
// Weekly report
// ==========================

func TestWeeklyReport_RespectsOptOutAndDedups(t *testing.T) {
	users := &MockUserStore{
		FindWithContactChannelFunc: func(ctx context.Context) ([]models.User, error) {
			return []models.User{{ID: "U1", Email: "a@x.com"}, {ID: "U2", Email: "b@x.com"}}, nil
		},
		GetPreferencesFunc: func(ctx context.Context, userID string) (models.NotificationPreference, error) {
			prefs := models.DefaultPreferences()
			if userID == "U2" {
				prefs.Categories.WeeklyReports = false
			}
			return prefs, nil
		},
	}
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(&MockTaskStore{}, users, dispatcher)

	stats, err := o.RunWeeklyReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 1, stats.Skipped)

	stats, err = o.RunWeeklyReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sent)
	assert.Equal(t, 1, dispatcher.Calls)
}

// ==========================
// Custom messages
// ==========================

func TestSendCustom_RejectsInvalidPayload(t *testing.T) {
	o := newTestOrchestrator(&MockTaskStore{}, &MockUserStore{}, &MockDispatcher{})

	_, err := o.SendCustom(context.Background(), "U1", []byte(`{"subject": "hi"}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYLOAD_INVALID")
}

func TestSendCustom_DeliversAndDedupsOnKey(t *testing.T) {
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(&MockTaskStore{}, &MockUserStore{}, dispatcher)
	payload := []byte(`{"subject": "Maintenance", "body": "Downtime at 22:00.", "dedupKey": "maint-2024-01-10"}`)

	result, err := o.SendCustom(context.Background(), "U1", payload)
	require.NoError(t, err)
	assert.True(t, result.Success)

	result, err = o.SendCustom(context.Background(), "U1", payload)
	require.NoError(t, err)
	assert.False(t, result.Success, "same dedup key on the same day is suppressed")
	assert.Equal(t, 1, dispatcher.Calls)
}

func TestSendCustom_WithoutKeyAlwaysSends(t *testing.T) {
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(&MockTaskStore{}, &MockUserStore{}, dispatcher)
	payload := []byte(`{"subject": "Ping", "body": "Hello."}`)

	_, err := o.SendCustom(context.Background(), "U1", payload)
	require.NoError(t, err)
	_, err = o.SendCustom(context.Background(), "U1", payload)
	require.NoError(t, err)

	assert.Equal(t, 2, dispatcher.Calls)
}

func TestSendCustom_RespectsCategoryOptOut(t *testing.T) {
	users := &MockUserStore{
		GetPreferencesFunc: func(ctx context.Context, userID string) (models.NotificationPreference, error) {
			prefs := models.DefaultPreferences()
			prefs.Categories.CustomMessages = false
			return prefs, nil
		},
	}
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(&MockTaskStore{}, users, dispatcher)

	result, err := o.SendCustom(context.Background(), "U1", []byte(`{"subject": "Hi", "body": "There."}`))

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 0, dispatcher.Calls)
}

// ==========================
// Ops helpers
// ==========================

func TestClearDedupRecords_ReopensTheDay(t *testing.T) {
	tasks := &MockTaskStore{
		FindOverdueFunc: func(ctx context.Context, now time.Time) ([]models.Task, error) {
			overdue := singleDayTask("T1", "U1")
			overdue.DueAt = time.Date(2024, 1, 9, 17, 0, 0, 0, time.Local)
			return []models.Task{overdue}, nil
		},
	}
	dispatcher := &MockDispatcher{}
	o := newTestOrchestrator(tasks, &MockUserStore{}, dispatcher)

	_, err := o.RunOverdueSweep(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, o.DedupSnapshot())

	o.ClearDedupRecords()

	assert.Empty(t, o.DedupSnapshot())
	_, err = o.RunOverdueSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, dispatcher.Calls)
}
