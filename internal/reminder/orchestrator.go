// internal/reminder/orchestrator.go
package reminder

import (
	"context"
	"encoding/json"
	"time"

	apperrors "taskhub-notifier/internal/common/errors"
	"taskhub-notifier/internal/common/logger"
	"taskhub-notifier/internal/common/metrics"
	"taskhub-notifier/internal/common/observability"
	"taskhub-notifier/internal/common/validation"
	"taskhub-notifier/internal/dedup"
	"taskhub-notifier/internal/models"
	"taskhub-notifier/internal/notification"
)

// TaskStore is the orchestrator's read-only view of task storage.
type TaskStore interface {
	FindDueInRange(ctx context.Context, start, end time.Time) ([]models.Task, error)
	FindOverdue(ctx context.Context, now time.Time) ([]models.Task, error)
	FindByOwnerOrAssignee(ctx context.Context, userID string) ([]models.Task, error)
}

// UserStore resolves recipients and their notification preferences.
type UserStore interface {
	FindWithContactChannel(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetPreferences(ctx context.Context, userID string) (models.NotificationPreference, error)
}

// Dispatcher fans one notification out across channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, user models.User, prefs models.NotificationPreference, notificationType string, content models.Content) models.Result
}

// Orchestrator drives every reminder run: the slot digests, the deadline and
// overdue sweeps, the weekly report and the manual custom-message path. Each
// run is batch-isolated: a failing recipient is logged and counted, never
// allowed to abort the rest of the batch. The dedup ledger is only marked
// after at least one channel delivered, so a fully failed send is retried on
// the next trigger of the same day.
type Orchestrator struct {
	tasks      TaskStore
	users      UserStore
	dispatcher Dispatcher
	ledger     dedup.Ledger
	obs        *observability.Observability
	log        logger.Logger

	retentionDays int
	nowFn         func() time.Time
}

func New(tasks TaskStore, users UserStore, dispatcher Dispatcher, ledger dedup.Ledger, retentionDays int, obs *observability.Observability, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		tasks:         tasks,
		users:         users,
		dispatcher:    dispatcher,
		ledger:        ledger,
		obs:           obs,
		log:           log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		retentionDays: retentionDays,
		nowFn:         time.Now,
	}
}

// RunDailyDigest sends the per-slot task overview to every user reachable on
// at least one channel. Each slot dedups independently, so the morning and
// evening digests both go out on the same day.
func (o *Orchestrator) RunDailyDigest(ctx context.Context, slot string) (models.BatchStats, error) {
	trigger := models.DailyDigestType(slot)
	return o.run(ctx, trigger, func(now time.Time, stats *models.BatchStats) error {
		users, err := o.users.FindWithContactChannel(ctx)
		if err != nil {
			return err
		}

		for _, user := range users {
			stats.Processed++

			if o.ledger.HasFired(user.ID, user.ID, trigger, now) {
				stats.Skipped++
				metrics.DedupSuppressed.WithLabelValues(trigger).Inc()
				continue
			}

			prefs, err := o.users.GetPreferences(ctx, user.ID)
			if err != nil {
				o.recipientFailed(stats, trigger, user.ID, user.ID, err)
				continue
			}
			if !prefs.Categories.TaskReminders {
				stats.Skipped++
				continue
			}

			userTasks, err := o.tasks.FindByOwnerOrAssignee(ctx, user.ID)
			if err != nil {
				o.recipientFailed(stats, trigger, user.ID, user.ID, err)
				continue
			}
			if len(userTasks) == 0 {
				stats.Skipped++
				continue
			}

			content := notification.ComposeDailyDigest(user, userTasks, slot, now)
			result := o.dispatcher.Dispatch(ctx, user, prefs, trigger, content)
			o.settle(stats, trigger, user.ID, user.ID, now, result)
		}
		return nil
	})
}

// RunDeadlineSweep alerts on single-day tasks whose due date is today.
// Multi-day tasks ending today are excluded; the overdue sweep picks them up
// tomorrow if they stay open.
func (o *Orchestrator) RunDeadlineSweep(ctx context.Context) (models.BatchStats, error) {
	return o.run(ctx, models.TypeDeadline, func(now time.Time, stats *models.BatchStats) error {
		start, end := models.DayBounds(now)
		tasks, err := o.tasks.FindDueInRange(ctx, start, end)
		if err != nil {
			return err
		}

		for _, task := range tasks {
			if !task.IsDeadlineTask() {
				continue
			}
			o.notifyRecipients(ctx, stats, task, models.TypeDeadline, notification.ComposeDeadline(task), now)
		}
		return nil
	})
}

// RunOverdueSweep nags about incomplete tasks past their due date, at most
// once per task/recipient per calendar day.
func (o *Orchestrator) RunOverdueSweep(ctx context.Context) (models.BatchStats, error) {
	return o.run(ctx, models.TypeOverdue, func(now time.Time, stats *models.BatchStats) error {
		tasks, err := o.tasks.FindOverdue(ctx, now)
		if err != nil {
			return err
		}

		for _, task := range tasks {
			o.notifyRecipients(ctx, stats, task, models.TypeOverdue, notification.ComposeOverdue(task, now), now)
		}
		return nil
	})
}

// RunHourlySweep is the fixed-interval discovery pass: prune stale dedup
// records, then run the deadline and overdue sweeps back to back. A failed
// deadline sweep does not stop the overdue sweep.
func (o *Orchestrator) RunHourlySweep(ctx context.Context) {
	o.ledger.CleanupOlderThan(o.retentionDays, o.nowFn())

	if _, err := o.RunDeadlineSweep(ctx); err != nil {
		o.log.WithError(err).Error("Deadline sweep failed", nil)
	}
	if _, err := o.RunOverdueSweep(ctx); err != nil {
		o.log.WithError(err).Error("Overdue sweep failed", nil)
	}
}

// RunWeeklyReport sends each opted-in user a trailing-seven-day summary.
func (o *Orchestrator) RunWeeklyReport(ctx context.Context) (models.BatchStats, error) {
	return o.run(ctx, models.TypeWeeklyReport, func(now time.Time, stats *models.BatchStats) error {
		users, err := o.users.FindWithContactChannel(ctx)
		if err != nil {
			return err
		}

		for _, user := range users {
			stats.Processed++

			if o.ledger.HasFired(user.ID, user.ID, models.TypeWeeklyReport, now) {
				stats.Skipped++
				metrics.DedupSuppressed.WithLabelValues(models.TypeWeeklyReport).Inc()
				continue
			}

			prefs, err := o.users.GetPreferences(ctx, user.ID)
			if err != nil {
				o.recipientFailed(stats, models.TypeWeeklyReport, user.ID, user.ID, err)
				continue
			}
			if !prefs.Categories.WeeklyReports {
				stats.Skipped++
				continue
			}

			userTasks, err := o.tasks.FindByOwnerOrAssignee(ctx, user.ID)
			if err != nil {
				o.recipientFailed(stats, models.TypeWeeklyReport, user.ID, user.ID, err)
				continue
			}

			content := notification.ComposeWeeklyReport(user, userTasks, now)
			result := o.dispatcher.Dispatch(ctx, user, prefs, models.TypeWeeklyReport, content)
			o.settle(stats, models.TypeWeeklyReport, user.ID, user.ID, now, result)
		}
		return nil
	})
}

// customMessage mirrors the payload accepted by ValidateCustomMessage.
type customMessage struct {
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Urgency  string `json:"urgency"`
	DedupKey string `json:"dedupKey"`
}

// SendCustom delivers an operator-supplied message to one user. The payload
// is schema-validated; an optional dedupKey opts the send into the per-day
// ledger so repeated manual triggers collapse to one delivery.
func (o *Orchestrator) SendCustom(ctx context.Context, userID string, payload []byte) (models.Result, error) {
	if err := validation.ValidateCustomMessage(payload); err != nil {
		return models.Result{}, err
	}

	var msg customMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return models.Result{}, apperrors.NewPayloadInvalidError(err.Error())
	}

	now := o.nowFn()

	if msg.DedupKey != "" && o.ledger.HasFired(msg.DedupKey, userID, models.TypeCustom, now) {
		metrics.DedupSuppressed.WithLabelValues(models.TypeCustom).Inc()
		o.log.Info("Custom message suppressed by dedup", map[string]interface{}{
			"userId":   userID,
			"dedupKey": msg.DedupKey,
		})
		return models.Result{}, nil
	}

	user, err := o.users.GetByID(ctx, userID)
	if err != nil {
		return models.Result{}, err
	}
	prefs, err := o.users.GetPreferences(ctx, userID)
	if err != nil {
		return models.Result{}, err
	}
	if !prefs.Categories.CustomMessages {
		o.log.Info("Custom message suppressed by preference", map[string]interface{}{"userId": userID})
		return models.Result{}, nil
	}

	content := notification.ComposeCustom(msg.Subject, msg.Body, msg.Urgency)
	result := o.dispatcher.Dispatch(ctx, user, prefs, models.TypeCustom, content)
	if result.Success && msg.DedupKey != "" {
		o.ledger.MarkFired(msg.DedupKey, userID, models.TypeCustom, now)
	}
	return result, nil
}

// ClearDedupRecords wipes the ledger. Exposed on the ops plane for support
// cases where a day's suppressions must be replayed.
func (o *Orchestrator) ClearDedupRecords() {
	o.ledger.Clear()
	o.log.Warn("Dedup ledger cleared", nil)
}

// DedupSnapshot exposes the ledger's current buckets for debugging.
func (o *Orchestrator) DedupSnapshot() map[string][]string {
	return o.ledger.Snapshot()
}

// notifyRecipients runs one task's fan-out to every distinct recipient with
// per-recipient isolation and at-most-once-per-day suppression.
func (o *Orchestrator) notifyRecipients(ctx context.Context, stats *models.BatchStats, task models.Task, notificationType string, content models.Content, now time.Time) {
	for _, userID := range task.Recipients() {
		stats.Processed++

		if o.ledger.HasFired(task.ID, userID, notificationType, now) {
			stats.Skipped++
			metrics.DedupSuppressed.WithLabelValues(notificationType).Inc()
			continue
		}

		user, err := o.users.GetByID(ctx, userID)
		if err != nil {
			o.recipientFailed(stats, notificationType, task.ID, userID, err)
			continue
		}
		prefs, err := o.users.GetPreferences(ctx, userID)
		if err != nil {
			o.recipientFailed(stats, notificationType, task.ID, userID, err)
			continue
		}
		if !prefs.Categories.TaskReminders {
			stats.Skipped++
			continue
		}

		result := o.dispatcher.Dispatch(ctx, user, prefs, notificationType, content)
		o.settle(stats, notificationType, task.ID, userID, now, result)
	}
}

// settle applies the mark-on-success rule and updates the batch counters.
func (o *Orchestrator) settle(stats *models.BatchStats, notificationType, entityID, userID string, now time.Time, result models.Result) {
	if result.Success {
		o.ledger.MarkFired(entityID, userID, notificationType, now)
		stats.Sent++
		return
	}
	if len(result.Errors) > 0 {
		stats.Failed++
		o.log.Warn("All channels failed for recipient", map[string]interface{}{
			"type":     notificationType,
			"entityId": entityID,
			"userId":   userID,
			"errors":   result.Errors,
		})
		return
	}
	// No eligible channel at all. Not marked, so a channel coming back later
	// today still delivers.
	stats.Skipped++
}

func (o *Orchestrator) recipientFailed(stats *models.BatchStats, notificationType, entityID, userID string, err error) {
	stats.Failed++
	o.log.WithError(apperrors.NewRecipientError(entityID, userID, err)).Error("Recipient processing failed", map[string]interface{}{
		"type":     notificationType,
		"entityId": entityID,
		"userId":   userID,
	})
}

// run wraps one trigger execution with timing, metrics and the final stats
// log line.
func (o *Orchestrator) run(ctx context.Context, trigger string, fn func(now time.Time, stats *models.BatchStats) error) (models.BatchStats, error) {
	now := o.nowFn()
	started := time.Now()
	stats := models.BatchStats{Trigger: trigger}

	err := fn(now, &stats)

	elapsed := time.Since(started)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}

	metrics.SweepRuns.WithLabelValues(trigger, outcome).Inc()
	metrics.SweepDuration.WithLabelValues(trigger).Observe(elapsed.Seconds())
	if o.obs != nil {
		o.obs.RecordRun(ctx, trigger, outcome)
		o.obs.RecordRunDuration(ctx, trigger, elapsed)
	}

	if err != nil {
		o.log.WithError(err).Error("Run aborted", map[string]interface{}{"trigger": trigger})
		return stats, err
	}

	o.log.Info("Run finished", map[string]interface{}{
		"trigger":   trigger,
		"processed": stats.Processed,
		"sent":      stats.Sent,
		"failed":    stats.Failed,
		"skipped":   stats.Skipped,
		"elapsedMs": elapsed.Milliseconds(),
	})
	return stats, nil
}
