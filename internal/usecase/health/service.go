// Package health aggregates component checks into a service status.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/logger"
)

// Status is the aggregated health.
type Status string

// Aggregated statuses.
const (
	Healthy  Status = "ok"
	Degraded Status = "degraded"
)

// CheckResult is the outcome of one component check.
type CheckResult string

// Component check outcomes.
const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

const defaultCheckTimeout = 5 * time.Second

// Report aggregates component results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type component struct {
	name  string
	check func(ctx context.Context) error
}

// Service runs the component checks.
type Service struct {
	components []component
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures Service.
type Option func(*Service)

// WithProvider adds a model provider check under name. A nil checker is skipped.
func WithProvider(name string, c ProviderChecker) Option {
	return func(s *Service) {
		if c != nil {
			s.components = append(s.components, component{name: name, check: c.HealthCheck})
		}
	}
}

// WithTimeout bounds every component check.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Service that always checks the database.
func New(db Pinger, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		components: []component{{name: "database", check: db.Ping}},
		timeout:    defaultCheckTimeout,
		logger:     log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check runs all component checks concurrently. Any failure degrades the status.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.components))

	var wg sync.WaitGroup
	for i, c := range s.components {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := c.check(cctx); err != nil {
				logger.OrContext(ctx, s.logger).Warn("Health check failed",
					zap.String("component", c.name), zap.Error(err))
				results[i] = CheckError
				return
			}
			results[i] = CheckOK
		}()
	}
	wg.Wait()

	report := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(results))}
	for i, c := range s.components {
		report.Checks[c.name] = results[i]
		if results[i] == CheckError {
			report.Status = Degraded
		}
	}
	return report
}
