package service

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron *cron.Cron
	loc  *time.Location
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	if loc == nil {
		loc = time.Local
	}
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		loc:  loc,
	}
}

// ScheduleDaily registers a daily job at the given HH:MM time string.
func (s *SchedulerService) ScheduleDaily(timeStr string, job func()) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

// ScheduleWindow runs job every interval with the half-open window (prev, now]
// covered since the previous run. The first window starts when the job is registered.
func (s *SchedulerService) ScheduleWindow(interval time.Duration, job func(from, to time.Time)) (cron.EntryID, error) {
	spec, err := buildIntervalSpec(interval)
	if err != nil {
		return 0, err
	}
	w := &window{last: time.Now().In(s.loc)}
	return s.cron.AddFunc(spec, func() {
		from, to := w.advance(time.Now().In(s.loc))
		job(from, to)
	})
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

type window struct {
	mu   sync.Mutex
	last time.Time
}

func (w *window) advance(now time.Time) (time.Time, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	from := w.last
	if now.After(w.last) {
		w.last = now
	}
	return from, w.last
}

func buildIntervalSpec(interval time.Duration) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("@every %ds", seconds), nil
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
