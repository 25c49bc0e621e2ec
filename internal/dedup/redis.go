// internal/dedup/redis.go
package dedup

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"taskhub-notifier/internal/common/logger"
)

const redisKeyPrefix = "dedup:"

// RedisLedger is the persisted configuration choice: dedup records survive a
// process restart, bounded by a per-key TTL instead of an explicit sweep.
// Redis errors degrade toward sending (HasFired false) rather than silently
// dropping notifications.
type RedisLedger struct {
	client    *redis.Client
	retention time.Duration
	log       logger.Logger
}

func NewRedisLedger(client *redis.Client, retentionDays int, log logger.Logger) *RedisLedger {
	if retentionDays <= 0 {
		retentionDays = 7
	}
	return &RedisLedger{
		client:    client,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		log:       log.WithFields(map[string]interface{}{"component": "dedup-redis"}),
	}
}

func (l *RedisLedger) key(entityID, userID, notificationType string, now time.Time) string {
	return redisKeyPrefix + bucketKey(DayKey(now), notificationType) + ":" + memberKey(entityID, userID)
}

func (l *RedisLedger) HasFired(entityID, userID, notificationType string, now time.Time) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	n, err := l.client.Exists(ctx, l.key(entityID, userID, notificationType, now)).Result()
	if err != nil {
		l.log.Warn("dedup lookup failed, treating as not fired", map[string]interface{}{
			"error":    err.Error(),
			"entityId": entityID,
			"userId":   userID,
		})
		return false
	}
	return n > 0
}

func (l *RedisLedger) MarkFired(entityID, userID, notificationType string, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// SETNX keeps the first record's TTL; marking twice is a no-op.
	err := l.client.SetNX(ctx, l.key(entityID, userID, notificationType, now), "1", l.retention).Err()
	if err != nil {
		l.log.Error("dedup mark failed", map[string]interface{}{
			"error":    err.Error(),
			"entityId": entityID,
			"userId":   userID,
		})
	}
}

// CleanupOlderThan is satisfied by the per-key TTL; there is nothing to
// sweep explicitly.
func (l *RedisLedger) CleanupOlderThan(days int, now time.Time) {}

func (l *RedisLedger) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	iter := l.client.Scan(ctx, 0, redisKeyPrefix+"*", 500).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		l.log.Error("dedup clear scan failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(keys) > 0 {
		if err := l.client.Del(ctx, keys...).Err(); err != nil {
			l.log.Error("dedup clear delete failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (l *RedisLedger) Snapshot() map[string][]string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out := make(map[string][]string)
	iter := l.client.Scan(ctx, 0, redisKeyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		trimmed := strings.TrimPrefix(iter.Val(), redisKeyPrefix)
		// bucket and member are separated by the last ":".
		idx := strings.LastIndex(trimmed, ":")
		if idx < 0 {
			continue
		}
		bucket, member := trimmed[:idx], trimmed[idx+1:]
		out[bucket] = append(out[bucket], member)
	}
	if err := iter.Err(); err != nil {
		l.log.Error("dedup snapshot scan failed", map[string]interface{}{"error": err.Error()})
	}
	for _, members := range out {
		sort.Strings(members)
	}
	return out
}

// Size returns the total record count, used by the ops status endpoint.
func (l *RedisLedger) Size() int {
	n := 0
	for _, members := range l.Snapshot() {
		n += len(members)
	}
	return n
}
