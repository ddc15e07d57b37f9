package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/citysmiles/dental-admin/internal/model"
	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/pkg/logger"
)

// Channel is the NOTIFY channel the table triggers publish on.
const Channel = "clinic_changes"

// Listener fans database notifications out to per-table subscribers.
type Listener struct {
	listener *pq.Listener
	log      *logger.Logger

	mu   sync.RWMutex
	subs map[string]map[int]func(remote.ChangeEvent)
	next int
}

func NewListener(dsn string, log *logger.Logger) (*Listener, error) {
	l := &Listener{
		log:  log,
		subs: make(map[string]map[int]func(remote.ChangeEvent)),
	}
	l.listener = pq.NewListener(dsn, 2*time.Second, time.Minute, l.onEvent)
	if err := l.listener.Listen(Channel); err != nil {
		l.listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}
	return l, nil
}

func (l *Listener) onEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
		l.log.Warn(err, "change listener connection lost")
	case pq.ListenerEventReconnected:
		l.log.Info("change listener reconnected")
	}
}

// Run dispatches notifications until ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ping.C:
			go func() {
				if err := l.listener.Ping(); err != nil {
					l.log.Warn(err, "change listener ping failed")
				}
			}()
		case n, ok := <-l.listener.Notify:
			if !ok {
				return nil
			}
			if n == nil {
				// reconnected: anything may have been missed
				l.resync()
				continue
			}
			ev, err := ParsePayload(n.Extra)
			if err != nil {
				l.log.Warn(err, "dropping malformed change notification")
				continue
			}
			l.dispatch(ev)
		}
	}
}

// ParsePayload decodes the JSON body sent by the notify trigger.
func ParsePayload(payload string) (remote.ChangeEvent, error) {
	var ev remote.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("decode change payload: %w", err)
	}
	if err := remote.CheckTable(ev.Table); err != nil {
		return ev, err
	}
	switch ev.Type {
	case model.ChangeInsert, model.ChangeUpdate, model.ChangeDelete:
	default:
		return ev, fmt.Errorf("unknown change type %q", ev.Type)
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	return ev, nil
}

func (l *Listener) Subscribe(ctx context.Context, table string, fn func(remote.ChangeEvent)) (remote.CancelFunc, error) {
	if err := remote.CheckTable(table); err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.next++
	key := l.next
	if l.subs[table] == nil {
		l.subs[table] = make(map[int]func(remote.ChangeEvent))
	}
	l.subs[table][key] = fn
	l.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs[table], key)
			l.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, cancel)
	return func() {
		stop()
		cancel()
	}, nil
}

func (l *Listener) dispatch(ev remote.ChangeEvent) {
	l.mu.RLock()
	fns := make([]func(remote.ChangeEvent), 0, len(l.subs[ev.Table]))
	for _, fn := range l.subs[ev.Table] {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (l *Listener) resync() {
	now := time.Now()
	for _, table := range model.Tables {
		l.dispatch(remote.ChangeEvent{Table: table, Type: model.ChangeResync, At: now})
	}
}

func (l *Listener) Close() error {
	return l.listener.Close()
}
