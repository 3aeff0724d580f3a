package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrTaskNotFound = errors.New("scheduler: task not found")

// TaskFn is a scheduled job. The context is cancelled when the scheduler
// stops.
type TaskFn func(ctx context.Context) error

// TaskInfo describes a registered periodic task.
type TaskInfo struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Runs      int64         `json:"runs"`
	Failures  int64         `json:"failures"`
	LastRun   time.Time     `json:"last_run"`
	LastError string        `json:"last_error,omitempty"`
}

type task struct {
	fn     TaskFn
	stopCh chan struct{}
	info   TaskInfo
}

// Scheduler runs periodic and delayed tasks on their own goroutines.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[string]*task
	timers map[string]*time.Timer
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tasks:  make(map[string]*task),
		timers: make(map[string]*time.Timer),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// run executes fn, converting a panic into an error.
func (s *Scheduler) run(fn TaskFn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(s.ctx)
}

func (s *Scheduler) record(name string, err error) {
	s.mu.Lock()
	if t, ok := s.tasks[name]; ok {
		t.info.Runs++
		t.info.LastRun = time.Now()
		t.info.LastError = ""
		if err != nil {
			t.info.Failures++
			t.info.LastError = err.Error()
		}
	}
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("scheduler task failed", zap.String("task", name), zap.Error(err))
	}
}

// AddTicker registers a task to run on a fixed interval.
// If a task with the same name exists, it is replaced.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tasks[name]; ok {
		close(old.stopCh)
	}
	t := &task{
		fn:     fn,
		stopCh: make(chan struct{}),
		info:   TaskInfo{Name: name, Interval: interval},
	}
	s.tasks[name] = t

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.record(name, s.run(fn))
			case <-t.stopCh:
				return
			case <-s.ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

// AddDelay runs fn once after the given delay.
func (s *Scheduler) AddDelay(name string, delay time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[name]; ok {
		old.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		if err := s.run(fn); err != nil {
			s.logger.Error("delay task failed", zap.String("task", name), zap.Error(err))
		}
		s.mu.Lock()
		if s.timers[name] == timer {
			delete(s.timers, name)
		}
		s.mu.Unlock()
	})
	s.timers[name] = timer
}

// RunNow runs a registered periodic task immediately on the caller's
// goroutine.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return ErrTaskNotFound
	}
	err := s.run(t.fn)
	s.record(name, err)
	return err
}

// Remove stops and removes a ticker or delay task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[name]; ok {
		close(t.stopCh)
		delete(s.tasks, name)
	}
	if t, ok := s.timers[name]; ok {
		t.Stop()
		delete(s.timers, name)
	}
}

// Stop cancels all tasks and waits for running tickers to return.
// It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.cancel()
	s.mu.Lock()
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Tasks returns the registered periodic tasks sorted by name.
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
