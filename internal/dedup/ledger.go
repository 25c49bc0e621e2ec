// internal/dedup/ledger.go
package dedup

import "time"

// Ledger answers "did notification X already fire today". Keys combine the
// calendar day, the notification type, the entity and the recipient; a
// present record suppresses any further send of that combination until the
// next local calendar day.
type Ledger interface {
	// HasFired reports whether the composite key was marked under the
	// calendar day containing now.
	HasFired(entityID, userID, notificationType string, now time.Time) bool

	// MarkFired records the composite key under today's bucket. Idempotent.
	MarkFired(entityID, userID, notificationType string, now time.Time)

	// CleanupOlderThan drops records created more than the given number of
	// days before now. Safe to call when nothing is stale.
	CleanupOlderThan(days int, now time.Time)

	// Clear wipes all records (test/ops reset path).
	Clear()

	// Snapshot returns a read-only debugging view: bucket -> member keys.
	Snapshot() map[string][]string
}

// DayKey truncates an instant to its local calendar day.
func DayKey(now time.Time) string {
	return now.Local().Format("2006-01-02")
}

// bucketKey groups records by day and notification type.
func bucketKey(dayKey, notificationType string) string {
	return dayKey + "-" + notificationType
}

// memberKey identifies one (entity, user) pair inside a bucket.
func memberKey(entityID, userID string) string {
	return entityID + "-" + userID
}
