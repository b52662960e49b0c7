// Package scheduler runs periodic platform jobs (SLA checks, digests) on
// cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/metrics"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

// JobStatus reports the last run of a job.
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Runs      int        `json:"runs"`
	Next      *time.Time `json:"next,omitempty"`
}

type job struct {
	name     string
	schedule string
	fn       JobFunc
	entry    cron.EntryID
	status   JobStatus
}

// Scheduler owns a cron runner. It implements system.Service.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger

	mu     sync.Mutex
	jobs   map[string]*job
	ctx    context.Context
	cancel context.CancelFunc
}

// New returns a scheduler. Overlapping runs of the same job are skipped and
// panics are recovered.
func New(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault("scheduler")
	}
	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		log:    log,
		jobs:   make(map[string]*job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Descriptor advertises the scheduler.
func (s *Scheduler) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "scheduler", Domain: "jobs", Layer: service.LayerCore, Capabilities: s.names()}
}

// Add registers fn under name. schedule accepts five-field cron expressions
// and descriptors such as "@every 1m" or "@daily".
func (s *Scheduler) Add(name, schedule string, fn JobFunc) error {
	name = strings.TrimSpace(name)
	schedule = strings.TrimSpace(schedule)
	if name == "" || fn == nil {
		return fmt.Errorf("job name and function are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %s already registered", name)
	}
	j := &job{name: name, schedule: schedule, fn: fn, status: JobStatus{Name: name, Schedule: schedule}}
	id, err := s.cron.AddFunc(schedule, func() { s.run(j) })
	if err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", name, schedule, err)
	}
	j.entry = id
	s.jobs[name] = j
	return nil
}

func (s *Scheduler) run(j *job) {
	started := time.Now().UTC()
	err := j.fn(s.ctx)

	s.mu.Lock()
	j.status.LastRun = &started
	j.status.Runs++
	j.status.LastError = ""
	if err != nil {
		j.status.LastError = err.Error()
	}
	s.mu.Unlock()
	metrics.RecordJobRun(j.name, time.Since(started), err == nil)

	entry := s.log.WithField("job", j.name).WithField("duration_ms", time.Since(started).Milliseconds())
	if err != nil {
		entry.WithError(err).Error("scheduled job failed")
		return
	}
	entry.Debug("scheduled job finished")
}

// RunNow executes the named job synchronously.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not registered", name)
	}
	s.run(j)
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.status.LastError != "" {
		return fmt.Errorf("%s", j.status.LastError)
	}
	return nil
}

// Status lists every job sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		st := j.status
		if e := s.cron.Entry(j.entry); !e.Next.IsZero() {
			next := e.Next
			st.Next = &next
		}
		out = append(out, st)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

func (s *Scheduler) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Scheduler) Name() string { return "scheduler" }

func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	s.log.Infof("scheduler started with %d jobs", len(s.names()))
	return nil
}

// Stop halts the cron runner and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts the component logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
