package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/gfl-labs/divineos/internal/branding"
)

// DefaultInterval is the wait between scheduled invocations.
const DefaultInterval = 300 * time.Second

// Action is the update routine the supervisor drives. Only its error matters.
type Action func(ctx context.Context) error

// SleepFunc blocks for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Supervisor runs an Action once at startup and then on a fixed interval.
type Supervisor struct {
	action        Action
	out           io.Writer
	clock         clock.Clock
	sleep         SleepFunc
	interval      time.Duration
	policy        FailurePolicy
	log           logrus.FieldLogger
	startupBanner string
	readyBanner   string
	newBackOff    func() backoff.BackOff

	invocations int
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithOutput sets where the two banners are written. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Supervisor) { s.out = w }
}

// WithClock sets the clock used for timing and the default sleep.
func WithClock(c clock.Clock) Option {
	return func(s *Supervisor) { s.clock = c }
}

// WithSleep replaces the interval wait.
func WithSleep(fn SleepFunc) Option {
	return func(s *Supervisor) { s.sleep = fn }
}

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.interval = d }
}

// WithFailurePolicy sets how scheduled failures are handled.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(s *Supervisor) { s.policy = p }
}

// WithLogger sets the logger. Defaults to logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Supervisor) { s.log = l }
}

// WithBanners overrides the branding banners.
func WithBanners(startup, ready string) Option {
	return func(s *Supervisor) {
		s.startupBanner = startup
		s.readyBanner = ready
	}
}

// WithBackOff sets the backoff factory used by FailRetry.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(s *Supervisor) { s.newBackOff = fn }
}

// New creates a Supervisor for action.
func New(action Action, opts ...Option) *Supervisor {
	s := &Supervisor{
		action:        action,
		out:           os.Stdout,
		clock:         clock.New(),
		interval:      DefaultInterval,
		policy:        FailExit,
		log:           logrus.StandardLogger(),
		startupBanner: branding.StartupBanner(),
		readyBanner:   branding.ReadyBanner(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sleep == nil {
		s.sleep = ClockSleep(s.clock)
	}
	if s.newBackOff == nil {
		s.newBackOff = s.defaultBackOff
	}
	return s
}

// Invocations returns how many times the action has been started.
func (s *Supervisor) Invocations() int {
	return s.invocations
}

// Run prints the startup banner, invokes the action, prints the readiness
// banner and then loops forever: sleep the interval, invoke the action.
//
// Run only returns on a fatal action failure or when ctx is done. The first
// invocation failing is always fatal and suppresses the readiness banner.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fmt.Fprintln(s.out, s.startupBanner)
	if err := s.RunOnce(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, s.readyBanner)

	s.log.WithFields(logrus.Fields{
		"interval": s.interval,
		"policy":   s.policy,
	}).Info("supervisor started")

	for {
		if err := s.sleep(ctx, s.interval); err != nil {
			return err
		}
		if err := s.scheduled(ctx); err != nil {
			return err
		}
	}
}

// RunOnce invokes the action a single time. A panic in the action is
// recovered and returned as an *ActionError.
func (s *Supervisor) RunOnce(ctx context.Context) (err error) {
	s.invocations++
	n := s.invocations
	log := s.log.WithField("invocation", n)
	start := s.clock.Now()

	defer func() {
		if r := recover(); r != nil {
			err = &ActionError{Invocation: n, Panicked: true, Err: fmt.Errorf("%v", r)}
		}
		entry := log.WithField("elapsed", s.clock.Since(start))
		if err != nil {
			entry.WithError(err).Error("update failed")
			return
		}
		entry.Info("update finished")
	}()

	log.Debug("update started")
	if actionErr := s.action(ctx); actionErr != nil {
		return &ActionError{Invocation: n, Err: actionErr}
	}
	return nil
}

func (s *Supervisor) scheduled(ctx context.Context) error {
	var err error
	if s.policy == FailRetry {
		err = s.retry(ctx)
	} else {
		err = s.RunOnce(ctx)
	}
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if s.policy == FailExit {
		return err
	}
	s.log.WithError(err).WithField("next_in", s.interval).Warn("keeping supervisor alive after failed update")
	return nil
}

func (s *Supervisor) retry(ctx context.Context) error {
	notify := func(err error, wait time.Duration) {
		s.log.WithError(err).WithField("retry_in", wait).Info("retrying update")
	}
	b := backoff.WithContext(s.newBackOff(), ctx)
	return backoff.RetryNotify(func() error { return s.RunOnce(ctx) }, b, notify)
}

// defaultBackOff gives up after half an interval.
func (s *Supervisor) defaultBackOff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     5 * time.Second,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         time.Minute,
		MaxElapsedTime:      s.interval / 2,
		Stop:                backoff.Stop,
		Clock:               s.clock,
	}
	b.Reset()
	return b
}

// ClockSleep returns a SleepFunc backed by c's timers.
func ClockSleep(c clock.Clock) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		t := c.Timer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
}
