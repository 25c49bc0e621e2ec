// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"taskhub-notifier/internal/common/config"
	"taskhub-notifier/internal/common/logger"
)

// Hooks are the callbacks fired on each timer. Implementations own their
// error handling and logging; the scheduler never inspects outcomes.
type Hooks struct {
	DailyDigest  func(ctx context.Context, slot string)
	HourlySweep  func(ctx context.Context)
	WeeklyReport func(ctx context.Context)
}

// Status is a point-in-time snapshot of the registered timers, exposed on
// the ops plane.
type Status struct {
	Running       bool                 `json:"running"`
	ActiveTimers  int                  `json:"active_timers"`
	NextFireTimes map[string]time.Time `json:"next_fire_times"`
}

// Scheduler owns the recurring timers: one per named daily slot, the
// fixed-interval discovery sweep, and the weekly report. Fire times are
// recomputed from the wall clock after every run, so a laptop waking from
// sleep fires at the next scheduled wall-clock time instead of drifting.
type Scheduler struct {
	cron  *cron.Cron
	hooks Hooks
	log   logger.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	started bool
}

// New registers every configured timer but does not start the clock.
func New(cfg config.ScheduleConfig, hooks Hooks, log logger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		hooks:   hooks,
		log:     log,
		entries: make(map[string]cron.EntryID),
	}

	for name, hhmm := range cfg.Slots {
		hour, minute, err := config.ParseSlotTime(hhmm)
		if err != nil {
			return nil, err
		}
		slot := name
		id, err := s.cron.AddFunc(fmt.Sprintf("%d %d * * *", minute, hour), func() {
			s.log.Info("Daily digest slot fired", map[string]interface{}{"slot": slot})
			hooks.DailyDigest(context.Background(), slot)
		})
		if err != nil {
			return nil, fmt.Errorf("registering slot %s: %w", name, err)
		}
		s.entries["slot:"+name] = id
	}

	sweepID, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", cfg.SweepIntervalMinutes), func() {
		hooks.HourlySweep(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("registering sweep: %w", err)
	}
	s.entries["sweep"] = sweepID

	if hooks.WeeklyReport != nil {
		weekday, err := cronWeekday(cfg.WeeklyReportDay)
		if err != nil {
			return nil, err
		}
		hour, minute, err := config.ParseSlotTime(cfg.WeeklyReportTime)
		if err != nil {
			return nil, err
		}
		weeklyID, err := s.cron.AddFunc(fmt.Sprintf("%d %d * * %s", minute, hour, weekday), func() {
			hooks.WeeklyReport(context.Background())
		})
		if err != nil {
			return nil, fmt.Errorf("registering weekly report: %w", err)
		}
		s.entries["weekly-report"] = weeklyID
	}

	return s, nil
}

// Start arms all timers and fires the discovery sweep once immediately, so
// deadline and overdue notifications go out without waiting up to a full
// sweep interval after process start.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.cron.Start()
	s.log.Info("Scheduler started", map[string]interface{}{
		"timers": len(s.entries),
	})

	go s.hooks.HourlySweep(context.Background())
}

// Stop disarms all timers and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped", nil)
}

// Status reports the registered timers and their next wall-clock fire
// times. Before Start the next fire times are zero.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]time.Time, len(s.entries))
	for name, id := range s.entries {
		next[name] = s.cron.Entry(id).Next
	}
	return Status{
		Running:       s.started,
		ActiveTimers:  len(s.entries),
		NextFireTimes: next,
	}
}

// TimerNames lists the registered timers in stable order, for logs.
func (s *Scheduler) TimerNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func cronWeekday(day string) (string, error) {
	switch strings.ToLower(day) {
	case "sunday":
		return "SUN", nil
	case "monday":
		return "MON", nil
	case "tuesday":
		return "TUE", nil
	case "wednesday":
		return "WED", nil
	case "thursday":
		return "THU", nil
	case "friday":
		return "FRI", nil
	case "saturday":
		return "SAT", nil
	}
	return "", fmt.Errorf("invalid weekly report day %q", day)
}
