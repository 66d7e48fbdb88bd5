// Package scheduler wires up the cron job that periodically probes the
// service's backing stores and publishes the result to gRPC health and
// Prometheus.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"jobmate/jobs-service/internal/metrics"
)

// Pinger is anything that can answer a liveness probe. *pgxpool.Pool
// satisfies it directly; Redis goes through PingFunc.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

const probeTimeout = 3 * time.Second

// Scheduler wraps robfig/cron and manages the probe loop.
type Scheduler struct {
	cron   *cron.Cron
	deps   map[string]Pinger
	health *health.Server
	spec   string // cron spec, e.g. "@every 30s"
	log    *zap.Logger

	mu      sync.Mutex
	serving bool
}

// New creates a Scheduler that probes deps on spec and reports the
// aggregate status on hs. hs may be nil.
func New(spec string, deps map[string]Pinger, hs *health.Server, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		deps:   deps,
		health: hs,
		spec:   spec,
		log:    log.Named("scheduler"),
	}
}

// Start registers the job and starts the scheduler. Also runs one probe
// immediately so health is known without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.Probe(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("cron started", zap.String("spec", s.spec))

	s.Probe(ctx)
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running probe.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron stopped")
}

// Serving reports the result of the last probe.
func (s *Scheduler) Serving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serving
}

// Probe pings every dependency once. The service is SERVING only when all
// of them answer.
func (s *Scheduler) Probe(ctx context.Context) {
	allUp := true
	for name, dep := range s.deps {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := dep.Ping(pctx)
		cancel()

		if err != nil {
			allUp = false
			metrics.DependencyUp.WithLabelValues(name).Set(0)
			s.log.Warn("dependency probe failed", zap.String("dependency", name), zap.Error(err))
			continue
		}
		metrics.DependencyUp.WithLabelValues(name).Set(1)
	}

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if allUp {
		status = healthpb.HealthCheckResponse_SERVING
	}
	if s.health != nil {
		s.health.SetServingStatus("", status)
	}

	s.mu.Lock()
	changed := s.serving != allUp
	s.serving = allUp
	s.mu.Unlock()
	if changed {
		s.log.Info("health changed", zap.Stringer("status", status))
	}
}
