package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/metrics"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/models"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/notify"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/nse"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/strategy"
	"github.com/sirupsen/logrus"
)

var errProviderUnavailable = errors.New("snapshot provider unavailable")

// Config controls the scan cadence and failure handling.
type Config struct {
	Interval         time.Duration `mapstructure:"interval"`
	TradingStart     string        `mapstructure:"trading_start"`
	TradingEnd       string        `mapstructure:"trading_end"`
	Timezone         string        `mapstructure:"timezone"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	RecoveryCooldown time.Duration `mapstructure:"recovery_cooldown"`
	NotifyTimeout    time.Duration `mapstructure:"notify_timeout"`
	RecentEvents     int           `mapstructure:"recent_events"`
}

func DefaultConfig() Config {
	return Config{
		Interval:         60 * time.Second,
		TradingStart:     "09:30",
		TradingEnd:       "15:00",
		Timezone:         "Asia/Kolkata",
		FailureThreshold: 5,
		RecoveryCooldown: 10 * time.Second,
		NotifyTimeout:    10 * time.Second,
		RecentEvents:     defaultRecentEvents,
	}
}

// ProviderFactory builds a fresh snapshot provider. The scanner calls it at
// start-up and again after repeated failures.
type ProviderFactory func() (nse.Provider, error)

// SnapshotRecorder persists successful snapshots.
type SnapshotRecorder interface {
	Record(snap *models.Snapshot, collectedAt time.Time) error
}

type Option func(*Scanner)

func WithSleeper(sleep nse.Sleeper) Option {
	return func(s *Scanner) {
		s.sleep = sleep
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

func WithRecorder(r SnapshotRecorder) Option {
	return func(s *Scanner) {
		s.recorder = r
	}
}

// Scanner drives the provider and strategy engine on a fixed interval
// during trading hours.
type Scanner struct {
	cfg      Config
	hours    TradingHours
	factory  ProviderFactory
	provider nse.Provider
	engine   *strategy.Engine
	notifier notify.Notifier
	recorder SnapshotRecorder
	status   *Status
	sleep    nse.Sleeper
	now      func() time.Time
	logger   *logrus.Logger

	failures int
	resets   int
}

func New(cfg Config, factory ProviderFactory, engine *strategy.Engine, notifier notify.Notifier, logger *logrus.Logger, opts ...Option) (*Scanner, error) {
	if cfg.FailureThreshold <= 0 {
		return nil, fmt.Errorf("failure threshold must be positive, got %d", cfg.FailureThreshold)
	}
	hours, err := ParseTradingHours(cfg.TradingStart, cfg.TradingEnd, cfg.Timezone)
	if err != nil {
		return nil, err
	}
	provider, err := factory()
	if err != nil {
		return nil, fmt.Errorf("create snapshot provider: %w", err)
	}

	s := &Scanner{
		cfg:      cfg,
		hours:    hours,
		factory:  factory,
		provider: provider,
		engine:   engine,
		notifier: notifier,
		status:   NewStatus(cfg.RecentEvents),
		sleep:    nse.SleepContext,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status.update(func(st *StatusSnapshot) {
		st.TradingHours = hours.String()
	})
	return s, nil
}

func (s *Scanner) Status() *Status {
	return s.status
}

func (s *Scanner) Hours() TradingHours {
	return s.hours
}

// Run scans until ctx is cancelled, then sends the shutdown notification.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"interval":      s.cfg.Interval.String(),
		"trading_hours": s.hours.String(),
		"timezone":      s.cfg.Timezone,
	}).Info("Starting options scanner")

	s.status.update(func(st *StatusSnapshot) {
		st.Running = true
		st.StartedAt = s.now()
	})
	s.notify(ctx, notify.StartupMessage(formatClock(s.hours.Start), formatClock(s.hours.End)))

	for ctx.Err() == nil {
		s.Cycle(ctx)
		if err := s.sleep(ctx, s.cfg.Interval); err != nil {
			break
		}
	}

	s.logger.Info("Received shutdown signal")
	s.status.update(func(st *StatusSnapshot) {
		st.Running = false
	})

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout())
	defer cancel()
	s.notify(shutdownCtx, notify.ShutdownMessage())

	s.logger.Info("Options scanner stopped")
	return nil
}

// Cycle performs one scan. It never panics and never returns an error;
// failures are counted toward the recovery threshold.
func (s *Scanner) Cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("Recovered from panic in scan cycle")
			s.onFailure(ctx, fmt.Errorf("panic: %v", r))
		}
	}()

	now := s.now()
	open := s.hours.Open(now)
	s.status.update(func(st *StatusSnapshot) {
		st.MarketOpen = open
	})
	if !open {
		metrics.ScansTotal.WithLabelValues("skipped").Inc()
		s.logger.WithField("time", now.In(s.hours.Location).Format(time.Kitchen)).Debug("Outside trading hours")
		return
	}

	if s.provider == nil {
		s.onFailure(ctx, errProviderUnavailable)
		return
	}

	snap, err := s.provider.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.onFailure(ctx, err)
		return
	}
	s.onSnapshot(ctx, snap)
}

func (s *Scanner) onSnapshot(ctx context.Context, snap *models.Snapshot) {
	metrics.ScansTotal.WithLabelValues("success").Inc()
	s.failures = 0
	metrics.ConsecutiveFailures.Set(0)

	if s.recorder != nil {
		if err := s.recorder.Record(snap, s.now()); err != nil {
			s.logger.WithError(err).Warn("Failed to record snapshot")
		}
	}

	events := s.engine.Process(snap)
	params := s.engine.Params()
	for _, ev := range events {
		metrics.EventsTotal.WithLabelValues(string(ev.Type), string(ev.Key.Side)).Inc()
		s.status.publish(ev)
		if text := notify.EventMessage(ev, params.MaxConsecutive, s.hours.Location); text != "" {
			s.notify(ctx, text)
		}
	}

	pos := s.engine.OpenPosition()
	if pos != nil {
		metrics.OpenPosition.Set(1)
	} else {
		metrics.OpenPosition.Set(0)
	}
	consecutive := map[models.OptionSide]int{}
	for _, side := range []models.OptionSide{models.SideCall, models.SidePut} {
		consecutive[side] = s.engine.Consecutive(side)
		metrics.ConsecutiveTargets.WithLabelValues(string(side)).Set(float64(consecutive[side]))
	}

	now := s.now()
	s.status.update(func(st *StatusSnapshot) {
		st.LastScan = &now
		st.LastSuccess = &now
		st.LastError = ""
		st.ConsecutiveFailures = 0
		st.SpotPrice = snap.SpotPrice
		st.ATMStrike = snap.ATMStrike
		st.Expiry = snap.Expiry
		st.Quotes = len(snap.Quotes)
		st.TrackedContracts = s.engine.Store().Len()
		st.OpenPosition = pos
		st.Consecutive = consecutive
	})

	s.logger.WithFields(logrus.Fields{
		"spot":   snap.SpotPrice,
		"atm":    snap.ATMStrike,
		"quotes": len(snap.Quotes),
		"events": len(events),
	}).Info("Scan completed")
}

func (s *Scanner) onFailure(ctx context.Context, err error) {
	metrics.ScansTotal.WithLabelValues("failure").Inc()
	s.failures++
	metrics.ConsecutiveFailures.Set(float64(s.failures))

	now := s.now()
	failures := s.failures
	s.status.update(func(st *StatusSnapshot) {
		st.LastScan = &now
		st.LastError = err.Error()
		st.ConsecutiveFailures = failures
	})

	s.logger.WithError(err).WithFields(logrus.Fields{
		"failures":  s.failures,
		"threshold": s.cfg.FailureThreshold,
	}).Warn("Scan failed")

	if s.failures < s.cfg.FailureThreshold {
		return
	}

	s.logger.WithField("failures", s.failures).Error("Failure threshold reached, recreating provider")
	s.notify(ctx, notify.RecoveryMessage(s.failures, err))
	s.resetProvider()

	s.failures = 0
	metrics.ConsecutiveFailures.Set(0)
	resets := s.resets
	s.status.update(func(st *StatusSnapshot) {
		st.ConsecutiveFailures = 0
		st.ProviderResets = resets
	})

	_ = s.sleep(ctx, s.cfg.RecoveryCooldown)
}

func (s *Scanner) resetProvider() {
	metrics.ProviderResets.Inc()
	s.resets++

	provider, err := s.factory()
	if err != nil {
		s.logger.WithError(err).Error("Failed to recreate snapshot provider")
		s.provider = nil
		return
	}
	s.provider = provider
}

func (s *Scanner) notify(ctx context.Context, text string) {
	if err := s.notifier.Send(ctx, text); err != nil {
		metrics.NotificationFailures.Inc()
		s.logger.WithError(err).Warn("Failed to send notification")
	}
}

func (s *Scanner) notifyTimeout() time.Duration {
	if s.cfg.NotifyTimeout > 0 {
		return s.cfg.NotifyTimeout
	}
	return 10 * time.Second
}
