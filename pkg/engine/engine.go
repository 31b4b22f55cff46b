// Package engine owns one market-data sync pipeline and the user's ledger and
// exposes them to a presentation layer as queries and commands.
package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"

	"cointrack/pkg/feed"
	"cointrack/pkg/journal"
	"cointrack/pkg/market"
	"cointrack/pkg/portfolio"
)

const (
	defaultListingPageSize = 20
	maxListingPageSize     = 250
	mirrorTimeout          = 10 * time.Second
	journalTopAssets       = 5
)

// ErrClosed is returned by commands issued after Close.
var ErrClosed = errors.New("engine: closed")

// Config tunes an Engine.
type Config struct {
	Provider        string
	Fetcher         feed.FetcherConfig
	Backoff         feed.BackoffConfig
	Scheduler       feed.SchedulerConfig
	CacheTTL        time.Duration
	CacheSnapshot   string // msgpack dump of the response cache, restored on Start
	ListingPageSize int
}

// Option customises an Engine.
type Option func(*Engine)

// WithJournal records every completed sync to w.
func WithJournal(w *journal.Writer) Option {
	return func(e *Engine) {
		e.journal = w
	}
}

// WithMirror copies every completed listing to p.
func WithMirror(p market.Persistence) Option {
	return func(e *Engine) {
		e.mirror = p
	}
}

// WithSleeper replaces both the retry wait and the inter-page wait.
func WithSleeper(s feed.Sleeper) Option {
	return func(e *Engine) {
		e.sleep = s
	}
}

// Engine is one sync engine instance. It owns its cache, deduplicator, merge
// set and scheduler; nothing is shared between instances.
type Engine struct {
	cfg       Config
	cache     *feed.Cache
	merge     *feed.MergeSet
	fetcher   *feed.Fetcher
	scheduler *feed.Scheduler
	ledger    *portfolio.Ledger
	journal   *journal.Writer
	mirror    market.Persistence
	sleep     feed.Sleeper

	visible atomic.Bool
	closed  atomic.Bool

	mu           sync.RWMutex
	assets       []market.Asset
	lastErr      error
	lastUpdate   time.Time
	search       string
	page         int
	pageSize     int
	positionSort portfolio.PositionSort
	cycle        cycleState

	subMu   sync.Mutex
	subs    map[int]chan Change
	nextSub int

	writes sync.WaitGroup
}

// cycleState tracks the load in progress for the journal.
type cycleState struct {
	started  time.Time
	forced   bool
	sort     market.Sort
	degraded []int
}

// New wires an Engine around provider and ledger. A nil ledger is replaced by
// an empty in-memory one.
func New(provider market.Provider, ledger *portfolio.Ledger, cfg Config, opts ...Option) *Engine {
	if ledger == nil {
		ledger = portfolio.LoadLedger(context.Background(), nil)
	}
	if cfg.ListingPageSize <= 0 || cfg.ListingPageSize > maxListingPageSize {
		cfg.ListingPageSize = defaultListingPageSize
	}
	e := &Engine{
		cfg:          cfg,
		ledger:       ledger,
		page:         1,
		pageSize:     cfg.ListingPageSize,
		positionSort: portfolio.DefaultPositionSort,
		subs:         map[int]chan Change{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.visible.Store(true)

	var backoffOpts []feed.BackoffOption
	schedOpts := []feed.SchedulerOption{
		feed.WithVisibility(e.visible.Load),
		feed.WithListener(e.onEvent),
	}
	if e.sleep != nil {
		backoffOpts = append(backoffOpts, feed.WithSleeper(e.sleep))
		schedOpts = append(schedOpts, feed.WithPageSleeper(e.sleep))
	}

	e.cache = feed.NewCache(cfg.CacheTTL)
	e.merge = feed.NewMergeSet(market.DefaultSort)
	e.fetcher = feed.NewFetcher(provider, e.cache, feed.NewDeduplicator(), feed.NewBackoff(cfg.Backoff, backoffOpts...), cfg.Fetcher)
	e.scheduler = feed.NewScheduler(e.fetcher, e.merge, cfg.Scheduler, schedOpts...)
	return e
}

// Ledger exposes the purchases and favorites store.
func (e *Engine) Ledger() *portfolio.Ledger { return e.ledger }

// Start restores the cache snapshot, runs the first load and launches the
// refresh ticker. A failed first load is recorded in LastError.
func (e *Engine) Start(ctx context.Context) {
	e.restoreSnapshot(ctx)
	if _, err := e.RequestRefresh(ctx, false); err != nil {
		logx.WithContext(ctx).Errorf("engine: initial load err=%v", err)
	}
	e.scheduler.Start()
}

// Wait blocks until the running load and all journal and mirror writes are done.
func (e *Engine) Wait() {
	e.scheduler.Wait()
	e.writes.Wait()
}

// Close stops the refresh ticker and background pages, waits for pending
// writes and saves the cache snapshot. Subscriber channels are closed.
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.scheduler.Stop()
	e.writes.Wait()
	e.ledger.Flush()

	e.subMu.Lock()
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
	e.subMu.Unlock()

	return e.saveSnapshot()
}

// RequestRefresh runs a sync cycle. It returns false without error when an
// unforced request finds a load already running.
func (e *Engine) RequestRefresh(ctx context.Context, force bool) (bool, error) {
	if e.closed.Load() {
		return false, ErrClosed
	}
	return e.scheduler.Load(ctx, force)
}

// SetSortOrder reorders the current listing at once and reloads it from the
// provider under the new ordering, bypassing the cache.
func (e *Engine) SetSortOrder(ctx context.Context, sort market.Sort) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if _, err := market.ParseSort(sort.Key.Field(), string(sort.Direction)); err != nil {
		return err
	}
	listing := e.merge.Resort(sort)
	e.mu.Lock()
	e.assets = listing
	e.mu.Unlock()
	e.notify(ChangeAssets)

	_, err := e.scheduler.Load(ctx, true)
	return err
}

// Sort returns the active listing order.
func (e *Engine) Sort() market.Sort { return e.merge.Sort() }

// SetVisible toggles the liveness probe consulted before each background page
// and refresh tick.
func (e *Engine) SetVisible(visible bool) {
	if e.visible.Swap(visible) != visible {
		e.notify(ChangeStatus)
	}
}

// Visible reports the liveness probe state.
func (e *Engine) Visible() bool { return e.visible.Load() }

// Assets returns the merged listing in the active order.
func (e *Engine) Assets() []market.Asset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.assets)
}

// Loading reports whether a sync cycle is in progress.
func (e *Engine) Loading() bool { return e.scheduler.Running() }

// LastError returns the error of the last failed sync, or nil once a later
// sync succeeds.
func (e *Engine) LastError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

// LastUpdate returns the completion time of the last successful sync.
func (e *Engine) LastUpdate() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastUpdate
}

// MarketStats summarises the current listing.
func (e *Engine) MarketStats() market.Stats {
	return market.Summarize(e.Assets())
}

// TopGainers returns up to n assets with the best 24h change.
func (e *Engine) TopGainers(n int) []market.Asset {
	return market.TopGainers(e.Assets(), n)
}

// Status is the sync state snapshot shown next to the listing.
type Status struct {
	Provider      string    `json:"provider"`
	Loading       bool      `json:"loading"`
	Visible       bool      `json:"visible"`
	LastError     string    `json:"lastError,omitempty"`
	LastUpdate    time.Time `json:"lastUpdate"`
	Assets        int       `json:"assets"`
	SortKey       string    `json:"sortKey"`
	Direction     string    `json:"direction"`
	DegradedPages []int     `json:"degradedPages,omitempty"`
	CachedPages   int       `json:"cachedPages"`
}

// Status reports the current sync state.
func (e *Engine) Status() Status {
	sort := e.merge.Sort()
	st := Status{
		Provider:    e.cfg.Provider,
		Loading:     e.scheduler.Running(),
		Visible:     e.visible.Load(),
		SortKey:     sort.Key.Field(),
		Direction:   string(sort.Direction),
		CachedPages: e.cache.Len(),
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	st.LastUpdate = e.lastUpdate
	st.Assets = len(e.assets)
	st.DegradedPages = slices.Clone(e.cycle.degraded)
	return st
}

func (e *Engine) onEvent(ev feed.Event) {
	switch ev.Kind {
	case feed.EventStarted:
		e.mu.Lock()
		e.cycle = cycleState{started: ev.At, forced: ev.Forced, sort: e.merge.Sort()}
		e.mu.Unlock()
		e.notify(ChangeStatus)
	case feed.EventPage:
		// Events of overlapping loads may arrive out of order; the merge set
		// holds the authoritative listing.
		listing := e.merge.Snapshot()
		e.mu.Lock()
		e.assets = listing
		if ev.Page == 1 {
			e.lastErr = nil
		}
		e.mu.Unlock()
		e.notify(ChangeAssets)
	case feed.EventDegraded:
		e.mu.Lock()
		e.cycle.degraded = append(e.cycle.degraded, ev.Page)
		e.mu.Unlock()
	case feed.EventFailed:
		e.mu.Lock()
		e.lastErr = ev.Err
		cycle := e.cycle
		e.mu.Unlock()
		e.record(cycle, ev, nil)
		e.notify(ChangeStatus)
	case feed.EventDone:
		e.mu.Lock()
		e.lastUpdate = ev.At
		cycle := e.cycle
		assets := slices.Clone(e.assets)
		e.mu.Unlock()
		e.record(cycle, ev, assets)
		e.publish(assets)
		e.notify(ChangeStatus)
	}
}

// record writes the finished cycle to the journal in the background.
func (e *Engine) record(cycle cycleState, ev feed.Event, assets []market.Asset) {
	if e.journal == nil {
		return
	}
	rec := &journal.SyncRecord{
		Timestamp: ev.At,
		Provider:  e.cfg.Provider,
		Sort:      cycle.sort.Order(),
		Forced:    cycle.forced,
		Pages:     ev.Pages,
		Assets:    len(assets),
		Degraded:  slices.Clone(cycle.degraded),
		Success:   ev.Kind == feed.EventDone,
	}
	if !cycle.started.IsZero() {
		rec.Duration = ev.At.Sub(cycle.started)
	}
	if ev.Err != nil {
		rec.ErrorMsg = ev.Err.Error()
	}
	for i := 0; i < len(assets) && i < journalTopAssets; i++ {
		rec.TopAssets = append(rec.TopAssets, assets[i].ID)
	}
	e.writes.Add(1)
	threading.GoSafe(func() {
		defer e.writes.Done()
		if _, err := e.journal.WriteSync(rec); err != nil {
			logx.Errorf("engine: journal write err=%v", err)
		}
	})
}

// publish mirrors a completed listing in the background.
func (e *Engine) publish(assets []market.Asset) {
	if e.mirror == nil || len(assets) == 0 {
		return
	}
	e.writes.Add(1)
	threading.GoSafe(func() {
		defer e.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := e.mirror.RecordAssets(ctx, e.cfg.Provider, assets); err != nil {
			logx.WithContext(ctx).Errorf("engine: mirror provider=%s err=%v", e.cfg.Provider, err)
		}
	})
}

func (e *Engine) restoreSnapshot(ctx context.Context) {
	if e.cfg.CacheSnapshot == "" {
		return
	}
	f, err := os.Open(e.cfg.CacheSnapshot)
	if err != nil {
		if !os.IsNotExist(err) {
			logx.WithContext(ctx).Errorf("engine: open cache snapshot path=%s err=%v", e.cfg.CacheSnapshot, err)
		}
		return
	}
	defer f.Close()
	if err := e.cache.Restore(f); err != nil {
		logx.WithContext(ctx).Errorf("engine: restore cache snapshot path=%s err=%v", e.cfg.CacheSnapshot, err)
		return
	}
	logx.WithContext(ctx).Infof("engine: restored cache snapshot entries=%d", e.cache.Len())
}

func (e *Engine) saveSnapshot() error {
	path := e.cfg.CacheSnapshot
	if path == "" || e.cache.Len() == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := e.cache.Dump(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
