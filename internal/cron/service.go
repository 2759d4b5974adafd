// Package cron runs the service's periodic maintenance jobs, such as
// refreshing the cached MCP tool catalog.
//
// Schedules use the standard five-field cron syntax plus the robfig
// descriptors ("@every 10m", "@hourly", ...).
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	robfigcron "github.com/robfig/cron/v3"
)

// JobFunc is the work done when a job fires.
type JobFunc func(ctx context.Context) error

// JobStatus reports a job's schedule and last outcome.
type JobStatus struct {
	Name      string    `json:"name"`
	Spec      string    `json:"spec"`
	NextRunAt time.Time `json:"nextRunAt,omitzero"`
	LastRunAt time.Time `json:"lastRunAt,omitzero"`
	LastError string    `json:"lastError,omitempty"`
	Runs      int       `json:"runs"`
}

type job struct {
	status  JobStatus
	fn      JobFunc
	entryID robfigcron.EntryID
	running sync.Mutex
}

// Service schedules named jobs.
type Service struct {
	robfig *robfigcron.Cron

	mu     sync.Mutex
	jobs   map[string]*job
	runCtx context.Context
}

// NewService creates an empty scheduler.
func NewService() *Service {
	parser := robfigcron.NewParser(
		robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow | robfigcron.Descriptor,
	)
	return &Service{
		robfig: robfigcron.New(robfigcron.WithParser(parser)),
		jobs:   make(map[string]*job),
		runCtx: context.Background(),
	}
}

// AddJob schedules fn under name. An invalid spec or a duplicate name is an
// error.
func (s *Service) AddJob(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("cron: job %q already exists", name)
	}
	j := &job{status: JobStatus{Name: name, Spec: spec}, fn: fn}
	id, err := s.robfig.AddFunc(spec, func() { s.execute(s.context(), j) })
	if err != nil {
		return fmt.Errorf("cron: invalid schedule %q for job %q: %w", spec, name, err)
	}
	j.entryID = id
	s.jobs[name] = j
	return nil
}

// Start runs the scheduler until ctx is cancelled. Jobs fired by the
// schedule receive ctx.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	n := len(s.jobs)
	s.mu.Unlock()

	s.robfig.Start()
	slog.Info("cron: started", "jobs", n)

	<-ctx.Done()

	<-s.robfig.Stop().Done()
	slog.Info("cron: stopped")
	return ctx.Err()
}

// RunJob runs the named job now, outside its schedule.
func (s *Service) RunJob(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("cron: unknown job %q", name)
	}
	return s.execute(ctx, j)
}

// Jobs lists every job ordered by name.
func (s *Service) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		st := j.status
		st.NextRunAt = s.robfig.Entry(j.entryID).Next
		out = append(out, st)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

func (s *Service) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCtx
}

// execute runs j once. Overlapping runs of the same job are serialised.
func (s *Service) execute(ctx context.Context, j *job) error {
	j.running.Lock()
	defer j.running.Unlock()

	start := time.Now()
	slog.Debug("cron: executing job", "name", j.status.Name)
	err := j.fn(ctx)
	if err != nil {
		slog.Error("cron: job failed", "name", j.status.Name, "err", err)
	}

	s.mu.Lock()
	j.status.LastRunAt = start
	j.status.Runs++
	j.status.LastError = ""
	if err != nil {
		j.status.LastError = err.Error()
	}
	s.mu.Unlock()
	return err
}
