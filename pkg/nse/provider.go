package nse

import (
	"context"
	"errors"
	"time"

	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/metrics"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/models"
	"github.com/sirupsen/logrus"
)

// Provider produces one market snapshot per call. A returned error is always
// an *AcquisitionError.
type Provider interface {
	Acquire(ctx context.Context) (*models.Snapshot, error)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type action int

const (
	actionSuccess action = iota
	actionRetry
	actionRetryAfterReauth
	actionGiveUp
)

func (a action) String() string {
	switch a {
	case actionSuccess:
		return "success"
	case actionRetry:
		return "retry"
	case actionRetryAfterReauth:
		return "reauth"
	default:
		return "give_up"
	}
}

func classify(ctx context.Context, err error) action {
	switch {
	case err == nil:
		return actionSuccess
	case ctx.Err() != nil:
		return actionGiveUp
	case errors.Is(err, ErrAuthExpired):
		return actionRetryAfterReauth
	default:
		return actionRetry
	}
}

type ProviderOption func(*ChainProvider)

func WithSleeper(sleep Sleeper) ProviderOption {
	return func(p *ChainProvider) {
		p.sleep = sleep
	}
}

func WithNow(now func() time.Time) ProviderOption {
	return func(p *ChainProvider) {
		p.now = now
	}
}

// ChainProvider acquires snapshots from the NSE option chain API.
type ChainProvider struct {
	client *Client
	opts   Options
	sleep  Sleeper
	now    func() time.Time
	logger *logrus.Logger
}

func NewProvider(opts Options, logger *logrus.Logger, popts ...ProviderOption) (*ChainProvider, error) {
	opts = opts.withDefaults()
	client, err := NewClient(opts, logger)
	if err != nil {
		return nil, err
	}
	p := &ChainProvider{
		client: client,
		opts:   opts,
		sleep:  SleepContext,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range popts {
		opt(p)
	}
	return p, nil
}

// Acquire runs the bootstrap/spot/chain sequence with bounded retries.
func (p *ChainProvider) Acquire(ctx context.Context) (*models.Snapshot, error) {
	var lastErr error
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		snap, err := p.attempt(ctx)
		act := classify(ctx, err)
		metrics.AcquisitionAttempts.WithLabelValues(act.String()).Inc()

		switch act {
		case actionSuccess:
			return snap, nil
		case actionGiveUp:
			return nil, &AcquisitionError{Attempts: attempt, Err: err}
		}

		lastErr = err
		entry := p.logger.WithError(err).WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": p.opts.MaxAttempts,
		})

		if act == actionRetryAfterReauth {
			entry.Warn("NSE rejected session, re-bootstrapping")
			p.client.Invalidate()
			continue
		}

		entry.Warn("Snapshot acquisition failed")
		if attempt < p.opts.MaxAttempts {
			if err := p.sleep(ctx, p.opts.Backoff); err != nil {
				return nil, &AcquisitionError{Attempts: attempt, Err: err}
			}
		}
	}
	return nil, &AcquisitionError{Attempts: p.opts.MaxAttempts, Err: lastErr}
}

func (p *ChainProvider) attempt(ctx context.Context) (*models.Snapshot, error) {
	if !p.client.HasSession() {
		if err := p.client.Bootstrap(ctx); err != nil {
			return nil, err
		}
	}

	spot, err := p.client.SpotPrice(ctx, p.opts.IndexName)
	if err != nil {
		return nil, err
	}
	atm := ATMStrike(spot, p.opts.StrikeIncrement)

	chain, err := p.client.OptionChain(ctx, p.opts.Symbol)
	if err != nil {
		return nil, err
	}

	now := p.now()
	expiry, quotes, err := SelectQuotes(chain, atm, p.opts.StrikeIncrement, p.opts.StrikeWindow, now)
	if err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"spot":   spot,
		"atm":    atm,
		"expiry": expiry,
		"quotes": len(quotes),
	}).Debug("Snapshot acquired")

	return &models.Snapshot{
		SpotPrice: spot,
		ATMStrike: atm,
		Expiry:    expiry,
		Quotes:    quotes,
		Timestamp: models.NewTimestamp(now),
	}, nil
}
