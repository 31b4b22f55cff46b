package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cointrack/pkg/market"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// makeAssets returns n assets with ids prefix-0..prefix-(n-1) and strictly
// decreasing market caps starting at top.
func makeAssets(prefix string, n int, top float64) []market.Asset {
	out := make([]market.Asset, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, market.Asset{
			ID:           fmt.Sprintf("%s-%d", prefix, i),
			Symbol:       fmt.Sprintf("%s%d", prefix, i),
			Name:         fmt.Sprintf("%s %d", prefix, i),
			CurrentPrice: float64(i + 1),
			MarketCap:    top - float64(i),
		})
	}
	return out
}

func ids(assets []market.Asset) []string {
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.ID)
	}
	return out
}

type scriptedProvider struct {
	mu    sync.Mutex
	calls map[int]int
	fn    func(q market.PageQuery) ([]market.Asset, error)
}

func newScriptedProvider(fn func(q market.PageQuery) ([]market.Asset, error)) *scriptedProvider {
	return &scriptedProvider{calls: map[int]int{}, fn: fn}
}

func (p *scriptedProvider) FetchPage(_ context.Context, q market.PageQuery) ([]market.Asset, error) {
	p.mu.Lock()
	p.calls[q.Page]++
	p.mu.Unlock()
	return p.fn(q)
}

func (p *scriptedProvider) Calls(page int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[page]
}

func newTestFetcher(p market.Provider, pageSize int) *Fetcher {
	backoff := NewBackoff(BackoffConfig{}, WithSleeper(noSleep))
	return NewFetcher(p, NewCache(0), NewDeduplicator(), backoff, FetcherConfig{PageSize: pageSize})
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (l *eventLog) last(kind EventKind) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Kind == kind {
			return l.events[i], true
		}
	}
	return Event{}, false
}
