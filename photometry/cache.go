package photometry

import (
	"context"
	"sync"

	"github.com/signalsfoundry/hawki-etc/model"
)

// CacheRecorder receives the current number of memoized entries after every
// cache mutation. The observability collector implements it.
type CacheRecorder interface {
	SetCacheEntries(n int)
}

type skyKey struct {
	Filter  model.Filter
	Airmass float64
	PWV     float64
}

type zeroPointKey struct {
	Filter      model.Filter
	Instrument  model.Instrument
	Observatory model.Observatory
}

// Cached memoizes sky-background and zero-point lookups in front of another
// Service. Because the underlying service is a pure function of its inputs,
// memoization is observably transparent. Source-flux lookups are derived
// from the zero point and are not cached separately.
//
// Errors are never cached; a failed lookup is retried on the next call.
type Cached struct {
	inner Service

	mu         sync.RWMutex
	sky        map[skyKey]float64
	zeroPoints map[zeroPointKey]float64

	recorder CacheRecorder
}

// NewCached wraps inner with a memoizing layer. recorder may be nil.
func NewCached(inner Service, recorder CacheRecorder) *Cached {
	return &Cached{
		inner:      inner,
		sky:        make(map[skyKey]float64),
		zeroPoints: make(map[zeroPointKey]float64),
		recorder:   recorder,
	}
}

// SkyBackground implements Service.
func (c *Cached) SkyBackground(ctx context.Context, f model.Filter, airmass, pwv float64) (float64, error) {
	key := skyKey{Filter: f, Airmass: airmass, PWV: pwv}

	c.mu.RLock()
	rate, ok := c.sky[key]
	c.mu.RUnlock()
	if ok {
		return rate, nil
	}

	rate, err := c.inner.SkyBackground(ctx, f, airmass, pwv)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.sky[key] = rate
	n := len(c.sky) + len(c.zeroPoints)
	c.mu.Unlock()
	c.reportEntries(n)

	return rate, nil
}

// SourcePhotonFlux implements Service. It delegates directly: the flux is a
// pure scaling of the zero point, so caching it per magnitude would only
// bloat the key space.
func (c *Cached) SourcePhotonFlux(ctx context.Context, f model.Filter, magnitude float64, inst model.Instrument, obs model.Observatory) (float64, error) {
	return c.inner.SourcePhotonFlux(ctx, f, magnitude, inst, obs)
}

// ZeroPointFlux implements Service.
func (c *Cached) ZeroPointFlux(ctx context.Context, f model.Filter, inst model.Instrument, obs model.Observatory) (float64, error) {
	key := zeroPointKey{Filter: f, Instrument: inst, Observatory: obs}

	c.mu.RLock()
	zp, ok := c.zeroPoints[key]
	c.mu.RUnlock()
	if ok {
		return zp, nil
	}

	zp, err := c.inner.ZeroPointFlux(ctx, f, inst, obs)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.zeroPoints[key] = zp
	n := len(c.sky) + len(c.zeroPoints)
	c.mu.Unlock()
	c.reportEntries(n)

	return zp, nil
}

func (c *Cached) reportEntries(n int) {
	if c.recorder != nil {
		c.recorder.SetCacheEntries(n)
	}
}
