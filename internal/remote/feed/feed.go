// Package feed delivers table change events through a message broker, so API
// instances need no database connection of their own to stay current.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/citysmiles/dental-admin/internal/model"
	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/pkg/logger"
	"github.com/citysmiles/dental-admin/pkg/messaging"
)

const ChannelPrefix = "clinic:changes:"

// ChannelFor names the broker channel carrying changes of table.
func ChannelFor(table string) string {
	return ChannelPrefix + table
}

type Subscriber struct {
	broker  messaging.Broker
	log     *logger.Logger
	backoff time.Duration
}

func NewSubscriber(broker messaging.Broker, log *logger.Logger) *Subscriber {
	return &Subscriber{broker: broker, log: log, backoff: time.Second}
}

// Subscribe forwards broker messages for table to fn. When the broker drops
// the subscription it is re-established and fn receives a RESYNC event,
// since changes may have been missed in between.
func (s *Subscriber) Subscribe(ctx context.Context, table string, fn func(remote.ChangeEvent)) (remote.CancelFunc, error) {
	if err := remote.CheckTable(table); err != nil {
		return nil, err
	}
	subCtx, cancel := context.WithCancel(ctx)
	msgs, err := s.broker.Subscribe(subCtx, ChannelFor(table))
	if err != nil {
		cancel()
		return nil, err
	}

	go s.consume(subCtx, table, msgs, fn)
	return remote.CancelFunc(cancel), nil
}

func (s *Subscriber) consume(ctx context.Context, table string, msgs <-chan []byte, fn func(remote.ChangeEvent)) {
	log := s.log.With("table", table)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if ok {
				var ev remote.ChangeEvent
				if err := json.Unmarshal(msg, &ev); err != nil {
					log.Warn(err, "dropping malformed change message")
					continue
				}
				if ev.Table == table && ctx.Err() == nil {
					fn(ev)
				}
				continue
			}
		}

		log.Warn(nil, "change feed subscription lost, resubscribing")
		msgs = s.resubscribe(ctx, table)
		if msgs == nil {
			return
		}
		fn(remote.ChangeEvent{Table: table, Type: model.ChangeResync, At: time.Now()})
	}
}

func (s *Subscriber) resubscribe(ctx context.Context, table string) <-chan []byte {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.backoff):
		}
		msgs, err := s.broker.Subscribe(ctx, ChannelFor(table))
		if err == nil {
			return msgs
		}
		s.log.Warn(err, "resubscribe failed", "table", table)
	}
}
