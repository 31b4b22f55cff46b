package feed

import (
	"context"

	"github.com/zeromicro/go-zero/core/syncx"
	"github.com/zeromicro/go-zero/core/threading"

	"cointrack/pkg/market"
)

// Deduplicator collapses concurrent identical page fetches into one upstream
// call. The registration for a key is dropped as soon as its call settles.
type Deduplicator struct {
	flight syncx.SingleFlight
}

// NewDeduplicator constructs an empty Deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{flight: syncx.NewSingleFlight()}
}

type flightResult struct {
	assets []market.Asset
	fresh  bool
	err    error
}

// Do runs fn unless a call for key is already in flight, in which case it
// waits for and returns that call's result. shared reports whether the result
// came from another caller's fetch.
//
// fn runs under a context detached from ctx's cancellation, so one caller
// giving up does not fail the call for the others sharing it. ctx only bounds
// how long this caller waits.
func (d *Deduplicator) Do(ctx context.Context, key string, fn func(ctx context.Context) ([]market.Asset, error)) (assets []market.Asset, shared bool, err error) {
	detached := context.WithoutCancel(ctx)
	done := make(chan flightResult, 1)
	threading.GoSafe(func() {
		val, fresh, err := d.flight.DoEx(key, func() (any, error) {
			return fn(detached)
		})
		assets, _ := val.([]market.Asset)
		done <- flightResult{assets: assets, fresh: fresh, err: err}
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, !r.fresh, r.err
		}
		return r.assets, !r.fresh, nil
	}
}
