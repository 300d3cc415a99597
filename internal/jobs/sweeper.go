package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Maneldor/la-publica-new-sub022/internal/services"
	"github.com/Maneldor/la-publica-new-sub022/pkg/logger"
)

const (
	defaultExpirySpec         = "@hourly"
	defaultAuditSpec          = "@daily"
	defaultAuditRetentionDays = 90
)

// Sweeper runs periodic maintenance: flipping stale pending requests to
// expired and pruning old audit logs. Lazy expiry keeps the system correct
// without it; the sweep just keeps listings from filling with dead requests.
type Sweeper struct {
	requests *services.RequestService
	audit    *services.AuditService
	cron     *cron.Cron
	log      *zap.Logger

	expirySchedule string
	auditSchedule  string
	retention      int
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithExpirySchedule overrides the cron specification for the request sweep.
func WithExpirySchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.expirySchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention.
func WithAuditSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.auditSchedule = spec
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are kept.
func WithAuditRetentionDays(days int) Option {
	return func(s *Sweeper) {
		if days > 0 {
			s.retention = days
		}
	}
}

// NewSweeper constructs a Sweeper. A nil dependency skips its job.
func NewSweeper(requests *services.RequestService, audit *services.AuditService, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		requests:       requests,
		audit:          audit,
		log:            logger.WithModule("jobs"),
		expirySchedule: defaultExpirySpec,
		auditSchedule:  defaultAuditSpec,
		retention:      defaultAuditRetentionDays,
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return sweeper
}

// Start registers the jobs and launches the scheduler.
func (s *Sweeper) Start() error {
	if s.requests != nil {
		if _, err := s.cron.AddFunc(s.expirySchedule, func() {
			if _, err := s.requests.ExpireStale(context.Background()); err != nil {
				s.log.Warn("request expiry sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if s.audit != nil && s.retention > 0 {
		if _, err := s.cron.AddFunc(s.auditSchedule, func() {
			if _, err := s.audit.CleanupOlderThan(context.Background(), s.retention); err != nil {
				s.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any running jobs to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes every configured job sequentially. Used by tests and
// during graceful shutdown.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if s.requests != nil {
		if _, err := s.requests.ExpireStale(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if s.audit != nil && s.retention > 0 {
		if _, err := s.audit.CleanupOlderThan(ctx, s.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
