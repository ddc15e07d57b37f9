package readmodel

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/citysmiles/dental-admin/internal/model"
	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/pkg/logger"
)

// Lookup loads the patient selection list once and never refreshes it.
type Lookup struct {
	reader remote.Reader
	log    *logger.Logger

	once     sync.Once
	patients []model.PatientRef
}

func NewLookup(reader remote.Reader, log *logger.Logger) *Lookup {
	if log == nil {
		log = logger.Nop()
	}
	return &Lookup{reader: reader, log: log}
}

// Patients returns the list, loading it on first use. A failed load leaves
// the list empty for the lifetime of the Lookup.
func (l *Lookup) Patients(ctx context.Context) []model.PatientRef {
	l.once.Do(func() {
		l.patients = []model.PatientRef{}
		res, err := l.reader.Select(context.WithoutCancel(ctx), model.TablePatients, remote.Query{
			Columns: []string{"id", "first_name", "last_name"},
			Order:   &remote.Order{Column: "last_name", Ascending: true},
		})
		if err != nil {
			l.log.Warn(err, "patient lookup failed")
			return
		}
		var refs []model.PatientRef
		if err := remote.Decode(res.Rows, &refs); err != nil {
			l.log.Warn(err, "patient lookup failed")
			return
		}
		l.patients = refs
	})
	out := make([]model.PatientRef, len(l.patients))
	copy(out, l.patients)
	return out
}

const lookupKey = "patients"

// LookupCache shares one Lookup between callers for ttl, after which the
// next caller gets a fresh one.
type LookupCache struct {
	reader remote.Reader
	log    *logger.Logger
	cache  *cache.Cache
}

func NewLookupCache(reader remote.Reader, ttl time.Duration, log *logger.Logger) *LookupCache {
	return &LookupCache{
		reader: reader,
		log:    log,
		cache:  cache.New(ttl, 2*ttl),
	}
}

func (c *LookupCache) Patients(ctx context.Context) []model.PatientRef {
	if v, ok := c.cache.Get(lookupKey); ok {
		return v.(*Lookup).Patients(ctx)
	}
	l := NewLookup(c.reader, c.log)
	if err := c.cache.Add(lookupKey, l, cache.DefaultExpiration); err != nil {
		// lost the race to another caller
		if v, ok := c.cache.Get(lookupKey); ok {
			l = v.(*Lookup)
		}
	}
	return l.Patients(ctx)
}

// Invalidate drops the shared Lookup.
func (c *LookupCache) Invalidate() {
	c.cache.Delete(lookupKey)
}
