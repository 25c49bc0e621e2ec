// internal/models/notification.go
package models

import "time"

// Channel names as they appear in results, logs and metrics.
const (
	ChannelWhatsApp = "WhatsApp"
	ChannelEmail    = "Email"
	ChannelPush     = "Push"
)

// Notification types. Daily digests are typed per slot ("daily-morning",
// "daily-evening", ...) so each slot dedups independently.
const (
	TypeReminder     = "reminder"
	TypeDeadline     = "deadline"
	TypeOverdue      = "overdue"
	TypeWeeklyReport = "weekly-report"
	TypeCustom       = "custom"

	DailyDigestTypePrefix = "daily-"
)

// DailyDigestType builds the dedup type for a named slot.
func DailyDigestType(slot string) string {
	return DailyDigestTypePrefix + slot
}

// Urgency framing attached to composed content.
const (
	UrgencyNormal   = "normal"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// Content is channel-agnostic message content produced by the composer.
type Content struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Urgency string `json:"urgency"`
}

// Result aggregates one fan-out across channels. Ephemeral, never persisted.
type Result struct {
	NotificationID string    `json:"notificationId"`
	Success        bool      `json:"success"`
	SentVia        []string  `json:"sentVia"`
	Errors         []string  `json:"errors,omitempty"`
	SentAt         time.Time `json:"sentAt"`
}

// BatchStats is the per-run accounting the orchestrator logs after each
// digest or sweep cycle.
type BatchStats struct {
	Trigger   string `json:"trigger"`
	Processed int    `json:"processed"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}
