// internal/notification/dispatcher.go
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskhub-notifier/internal/channels"
	"taskhub-notifier/internal/common/logger"
	"taskhub-notifier/internal/common/metrics"
	"taskhub-notifier/internal/models"
)

// Dispatcher fans one logical notification out across the configured
// channels. Any single channel succeeding makes the whole dispatch a
// success; per-channel failures are collected, never raised.
type Dispatcher struct {
	adapters []channels.Adapter
	log      logger.Logger
}

func NewDispatcher(adapters []channels.Adapter, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		adapters: adapters,
		log:      log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

// Dispatch filters the candidate channels down to those available,
// preference-enabled and reachable for this user, then attempts each in
// order. Zero eligible channels is "nothing to do", not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, user models.User, prefs models.NotificationPreference, notificationType string, content models.Content) models.Result {
	result := models.Result{
		NotificationID: uuid.New().String(),
		SentAt:         time.Now().UTC(),
	}

	for _, adapter := range d.adapters {
		if !adapter.Available() {
			continue
		}
		if !prefs.ChannelEnabled(adapter.Name()) {
			continue
		}
		if !adapter.Reaches(user) {
			continue
		}

		if err := d.sendSafe(ctx, adapter, user, content); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", adapter.Name(), err))
			metrics.NotificationsFailed.WithLabelValues(adapter.Name(), notificationType).Inc()
			continue
		}

		result.SentVia = append(result.SentVia, adapter.Name())
		metrics.NotificationsSent.WithLabelValues(adapter.Name(), notificationType).Inc()
	}

	result.Success = len(result.SentVia) > 0

	d.log.Debug("dispatch finished", map[string]interface{}{
		"notificationId": result.NotificationID,
		"type":           notificationType,
		"userId":         user.ID,
		"sentVia":        result.SentVia,
		"errors":         len(result.Errors),
	})

	return result
}

// sendSafe guards against an adapter panicking; a panic becomes a
// per-channel error like any other transport failure.
func (d *Dispatcher) sendSafe(ctx context.Context, adapter channels.Adapter, user models.User, content models.Content) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel panicked: %v", r)
		}
	}()
	return adapter.Send(ctx, user, content)
}

// ChannelStatuses reports every adapter's diagnostic snapshot.
func (d *Dispatcher) ChannelStatuses() []channels.Status {
	out := make([]channels.Status, 0, len(d.adapters))
	for _, adapter := range d.adapters {
		out = append(out, adapter.Status())
	}
	return out
}
