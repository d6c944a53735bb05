package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chatbill/internal/services"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "not_started"
	}
}

var ErrAlreadyStarted = errors.New("scheduler already started")

// Supervisor owns the single background billing worker. Exactly one
// reconciliation runs at a time: a tick that fires while the previous pass is
// still going is dropped, not queued. Duplicate Start calls (framework
// reloads) are rejected instead of spawning a second worker.
type Supervisor struct {
	mu       sync.Mutex
	state    State
	cron     *cron.Cron
	interval time.Duration
	timeout  time.Duration
	billing  services.BillingServiceInterface
	logger   *zap.Logger
}

func NewSupervisor(billing services.BillingServiceInterface, interval, timeout time.Duration, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		state:    StateNotStarted,
		interval: interval,
		timeout:  timeout,
		billing:  billing,
		logger:   logger,
	}
}

func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNotStarted {
		return ErrAlreadyStarted
	}

	cronLogger := &zapCronLogger{logger: s.logger}
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), s.tick); err != nil {
		return err
	}
	c.Start()

	s.cron = c
	s.state = StateRunning
	s.logger.Info("billing scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts ticking and waits for an in-flight pass to finish. Safe to call
// more than once.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.state = StateStopped
	s.logger.Info("billing scheduler stopped")
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) Interval() time.Duration {
	return s.interval
}

func (s *Supervisor) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.billing.Reconcile(ctx, time.Now())
	if err != nil {
		// Per-account errors were already contained and logged; this only
		// means one or more due-list queries failed.
		s.logger.Error("reconciliation tick completed with errors", zap.Error(err))
		return
	}
	s.logger.Info("reconciliation tick completed",
		zap.Int("cancellations_due", report.Cancellations.Due),
		zap.Int("plan_changes_due", report.PlanChanges.Due),
		zap.Int("payments_due", report.Payments.Due))
}

type zapCronLogger struct {
	logger *zap.Logger
}

func (l *zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Infow(msg, keysAndValues...)
}

func (l *zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
