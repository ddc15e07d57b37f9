package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/citysmiles/dental-admin/internal/model"
	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/internal/remote/feed"
	"github.com/citysmiles/dental-admin/pkg/logger"
	"github.com/citysmiles/dental-admin/pkg/messaging"
	"github.com/citysmiles/dental-admin/pkg/metrics"
)

type RelayConfig struct {
	Buffer        int
	RetryAttempts int
	RetryDelay    time.Duration
}

// Relay forwards database change notifications to the broker, one channel
// per table, in the order they were received.
type Relay struct {
	source  remote.Subscriber
	broker  messaging.Broker
	config  RelayConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	tables  []string
}

func NewRelay(
	source remote.Subscriber,
	broker messaging.Broker,
	config RelayConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Relay {
	// Config validation instead of defaults
	if config.Buffer <= 0 {
		panic("Buffer must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &Relay{
		source:  source,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		tables:  model.Tables,
	}
}

// Start blocks until ctx is done.
func (r *Relay) Start(ctx context.Context) error {
	events := make(chan remote.ChangeEvent, r.config.Buffer)

	for _, table := range r.tables {
		cancel, err := r.source.Subscribe(ctx, table, func(ev remote.ChangeEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", table, err)
		}
		defer cancel()
	}

	r.logger.Info("Starting change relay")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Shutting down change relay")
			return nil
		case ev := <-events:
			if err := r.forward(ctx, ev); err != nil {
				r.logger.Error(err, "Failed to relay change",
					"table", ev.Table,
					"type", string(ev.Type))
			}
		}
	}
}

func (r *Relay) forward(ctx context.Context, ev remote.ChangeEvent) error {
	attempt := 0
	err := retry(ctx, r.config.RetryAttempts, r.config.RetryDelay, func() error {
		if attempt > 0 {
			r.metrics.RelayRetries.WithLabelValues(ev.Table).Inc()
		}
		attempt++
		return r.broker.Publish(ctx, feed.ChannelFor(ev.Table), ev)
	})
	if err != nil {
		r.metrics.RelayFailed.Inc()
		return fmt.Errorf("publish after %d attempts: %w", attempt, err)
	}
	r.metrics.RelayPublished.Inc()
	return nil
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
