// Package heartbeat periodically probes the MCP server and keeps the latest
// availability status for the health endpoint.
package heartbeat

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ProbeFunc checks the remote server; a nil error means it is available.
type ProbeFunc func(ctx context.Context) error

// Status is the result of the latest probe.
type Status struct {
	Available bool      `json:"available"`
	CheckedAt time.Time `json:"checkedAt"`
	Error     string    `json:"error,omitempty"`
}

// Service runs the probe on a fixed interval.
type Service struct {
	probe    ProbeFunc
	interval time.Duration
	timeout  time.Duration

	mu     sync.RWMutex
	status Status
}

// NewService creates a health monitor.
// interval defaults to 30 seconds if zero.
func NewService(probe ProbeFunc, interval time.Duration) *Service {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Service{
		probe:    probe,
		interval: interval,
		timeout:  10 * time.Second,
	}
}

// Start probes once immediately and then on every tick until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("heartbeat: started", "interval", s.interval)
	s.Check(ctx)

	for {
		select {
		case <-ticker.C:
			s.Check(ctx)
		case <-ctx.Done():
			slog.Info("heartbeat: stopped")
			return ctx.Err()
		}
	}
}

// Check runs the probe now and records the outcome.
func (s *Service) Check(ctx context.Context) Status {
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	st := Status{Available: true, CheckedAt: time.Now().UTC()}
	if err := s.probe(probeCtx); err != nil {
		st.Available = false
		st.Error = err.Error()
	}

	s.mu.Lock()
	prev := s.status
	s.status = st
	s.mu.Unlock()

	if prev.CheckedAt.IsZero() || prev.Available != st.Available {
		if st.Available {
			slog.Info("heartbeat: MCP server available")
		} else {
			slog.Warn("heartbeat: MCP server unavailable", "err", st.Error)
		}
	}
	return st
}

// Status returns the latest probe result. Before the first probe it reports
// unavailable with a zero CheckedAt.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
