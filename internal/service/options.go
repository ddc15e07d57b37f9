// Package service holds what the entity views share.
package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/citysmiles/dental-admin/internal/readmodel"
	"github.com/citysmiles/dental-admin/pkg/errors"
	"github.com/citysmiles/dental-admin/pkg/logger"
	"github.com/citysmiles/dental-admin/pkg/metrics"
)

type Options struct {
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	// Clock decides what "today" is.
	Clock func() time.Time
}

func (o Options) WithDefaults() Options {
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Today formats the clock's date like the date columns.
func (o Options) Today() string {
	return o.Clock().Format("2006-01-02")
}

// Matches reports whether any field contains query, ignoring case. An empty
// query matches everything.
func Matches(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(strings.Join(fields, " ")), q)
}

// Refresher returns the refresh callback forms call after a save.
func Refresher(refresh func(context.Context) error, log *logger.Logger) func(context.Context) {
	return func(ctx context.Context) {
		if err := refresh(ctx); err != nil && !stderrors.Is(err, readmodel.ErrInactive) {
			log.Warn(err, "refresh after save failed")
		}
	}
}

// RemoteErr passes application errors through and marks anything else as a
// remote failure with its message kept verbatim.
func RemoteErr(err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return errors.Remote(err)
}
