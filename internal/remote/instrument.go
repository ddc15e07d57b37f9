package remote

import (
	"context"
	"time"

	"github.com/citysmiles/dental-admin/pkg/metrics"
)

type instrumented struct {
	next Service
	m    *metrics.Metrics
}

// Instrument records latency and outcome of every call made through svc.
func Instrument(svc Service, m *metrics.Metrics) Service {
	if m == nil {
		return svc
	}
	return &instrumented{next: svc, m: m}
}

func (s *instrumented) observe(op, table string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.m.RemoteOperations.WithLabelValues(op, table, status).Inc()
	s.m.RemoteLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *instrumented) Select(ctx context.Context, table string, q Query) (res *Result, err error) {
	defer func(start time.Time) { s.observe("select", table, start, err) }(time.Now())
	return s.next.Select(ctx, table, q)
}

func (s *instrumented) Insert(ctx context.Context, table string, rows ...Row) (out []Row, err error) {
	defer func(start time.Time) { s.observe("insert", table, start, err) }(time.Now())
	return s.next.Insert(ctx, table, rows...)
}

func (s *instrumented) Update(ctx context.Context, table, id string, patch Row) (err error) {
	defer func(start time.Time) { s.observe("update", table, start, err) }(time.Now())
	return s.next.Update(ctx, table, id, patch)
}

func (s *instrumented) Delete(ctx context.Context, table, id string) (err error) {
	defer func(start time.Time) { s.observe("delete", table, start, err) }(time.Now())
	return s.next.Delete(ctx, table, id)
}

func (s *instrumented) Subscribe(ctx context.Context, table string, fn func(ChangeEvent)) (CancelFunc, error) {
	return s.next.Subscribe(ctx, table, func(ev ChangeEvent) {
		s.m.ChangeEvents.WithLabelValues(ev.Table, string(ev.Type)).Inc()
		fn(ev)
	})
}
