package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"

	"cointrack/pkg/market"
)

const (
	defaultMaxPages        = 5
	defaultPageDelay       = 1500 * time.Millisecond
	defaultRefreshInterval = 30 * time.Second
)

// FailurePolicy decides what a background load does after a page fails.
type FailurePolicy string

const (
	// PolicyContinue logs the failed page and moves on to the next one.
	PolicyContinue FailurePolicy = "continue"
	// PolicyStop logs the failed page and ends the background load.
	PolicyStop FailurePolicy = "stop"
)

// ParseFailurePolicy validates a policy name; empty selects PolicyContinue.
func ParseFailurePolicy(name string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return PolicyContinue, nil
	case PolicyContinue, PolicyStop:
		return p, nil
	default:
		return "", fmt.Errorf("feed: unknown page failure policy %q", name)
	}
}

// SchedulerConfig tunes multi-page acquisition.
type SchedulerConfig struct {
	MaxPages        int
	PageDelay       time.Duration
	RefreshInterval time.Duration
	OnPageError     FailurePolicy
}

// EventKind enumerates scheduler notifications.
type EventKind int

const (
	// EventPage: a page was merged; Assets holds the whole listing.
	EventPage EventKind = iota
	// EventDegraded: a background page failed and was absorbed.
	EventDegraded
	// EventFailed: page 1 failed with nothing to fall back to.
	EventFailed
	// EventDone: the load finished or was stopped by the liveness probe.
	EventDone
	// EventStarted: a load claimed the running flag; Forced mirrors its flag.
	EventStarted
)

// Event is delivered to the scheduler listener.
type Event struct {
	Kind   EventKind
	Page   int
	Source Source
	Assets []market.Asset
	Pages  int // pages merged by the load, set on EventDone
	Forced bool
	Err    error
	At     time.Time
}

// Scheduler loads page 1 synchronously, then pages 2..MaxPages one at a time
// in the background, and re-runs the whole load on a refresh ticker.
type Scheduler struct {
	fetcher  *Fetcher
	merge    *MergeSet
	cfg      SchedulerConfig
	sleep    Sleeper
	visible  func() bool
	listener func(Event)
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	gen     uint64
	ticking bool

	background sync.WaitGroup
	loops      sync.WaitGroup
}

// SchedulerOption customises a Scheduler.
type SchedulerOption func(*Scheduler)

// WithPageSleeper replaces the wait between background pages.
func WithPageSleeper(s Sleeper) SchedulerOption {
	return func(sc *Scheduler) {
		if s != nil {
			sc.sleep = s
		}
	}
}

// WithVisibility installs the liveness probe checked before each background
// page and each refresh tick.
func WithVisibility(visible func() bool) SchedulerOption {
	return func(sc *Scheduler) {
		if visible != nil {
			sc.visible = visible
		}
	}
}

// WithListener receives every Event. It is called synchronously and must not
// call back into Load.
func WithListener(fn func(Event)) SchedulerOption {
	return func(sc *Scheduler) {
		sc.listener = fn
	}
}

// NewScheduler wires a Scheduler over fetcher and merge.
func NewScheduler(fetcher *Fetcher, merge *MergeSet, cfg SchedulerConfig, opts ...SchedulerOption) *Scheduler {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.PageDelay < 0 {
		cfg.PageDelay = 0
	} else if cfg.PageDelay == 0 {
		cfg.PageDelay = defaultPageDelay
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.OnPageError == "" {
		cfg.OnPageError = PolicyContinue
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		fetcher: fetcher,
		merge:   merge,
		cfg:     cfg,
		sleep:   SleepContext,
		visible: func() bool { return true },
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Running reports whether a load is in progress.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Load runs one sync cycle. Without force it is a no-op while another load
// runs; started reports whether this call did any work. A forced load
// supersedes the running one, whose background pages stop at their next
// checkpoint. Load returns once page 1 is merged; the remaining pages load in
// the background (see Wait).
func (s *Scheduler) Load(ctx context.Context, force bool) (started bool, err error) {
	s.mu.Lock()
	if s.running && !force {
		s.mu.Unlock()
		return false, nil
	}
	s.running = true
	s.gen++
	gen := s.gen
	s.mu.Unlock()
	s.emit(Event{Kind: EventStarted, Forced: force})

	sort := s.merge.Sort()
	page, err := s.fetcher.Fetch(ctx, 1, sort, force)
	if err == nil && len(page.Assets) == 0 {
		if stale, ok := s.fetcher.Stale(1, sort); ok {
			page = Page{Number: 1, Assets: stale, Source: SourceStale}
		}
	}
	if err != nil || len(page.Assets) == 0 {
		failure := &FetchError{Kind: ErrNoDataAvailable, Page: 1, Err: err}
		if s.finish(gen) {
			logx.WithContext(ctx).Errorf("feed: sync failed err=%v", failure)
			s.emit(Event{Kind: EventFailed, Page: 1, Err: failure})
		}
		return true, failure
	}
	listing, ok := s.mergeCurrent(gen, func() []market.Asset { return s.merge.Replace(page.Assets) })
	if !ok {
		return true, nil
	}
	s.emit(Event{Kind: EventPage, Page: 1, Source: page.Source, Assets: listing})

	if s.cfg.MaxPages < 2 || len(page.Assets) < s.fetcher.PageSize() {
		if s.finish(gen) {
			s.emit(Event{Kind: EventDone, Pages: 1})
		}
		return true, nil
	}

	s.background.Add(1)
	threading.GoSafe(func() {
		defer s.background.Done()
		s.loadRemaining(gen, sort, force)
	})
	return true, nil
}

func (s *Scheduler) loadRemaining(gen uint64, sort market.Sort, force bool) {
	merged := 1
	stopped := false
	for number := 2; number <= s.cfg.MaxPages; number++ {
		if err := s.sleep(s.ctx, s.cfg.PageDelay); err != nil {
			s.finish(gen)
			return
		}
		if !s.current(gen) {
			return
		}
		if !s.visible() {
			logx.Infof("feed: surface hidden, background load stopped before page=%d", number)
			stopped = true
			break
		}

		page, err := s.fetcher.Fetch(s.ctx, number, sort, force)
		if err != nil {
			if s.ctx.Err() != nil {
				s.finish(gen)
				return
			}
			logx.Errorf("feed: degraded sync page=%d policy=%s err=%v", number, s.cfg.OnPageError, err)
			s.emit(Event{Kind: EventDegraded, Page: number, Err: err})
			if s.cfg.OnPageError == PolicyStop {
				break
			}
			continue
		}
		if len(page.Assets) == 0 {
			if !s.current(gen) {
				return
			}
			break
		}
		listing, ok := s.mergeCurrent(gen, func() []market.Asset { return s.merge.Add(page.Assets) })
		if !ok {
			return
		}
		merged++
		s.emit(Event{Kind: EventPage, Page: number, Source: page.Source, Assets: listing})
		if len(page.Assets) < s.fetcher.PageSize() {
			break
		}
	}
	if s.finish(gen) {
		if stopped {
			logx.Infof("feed: partial load pages=%d", merged)
		}
		s.emit(Event{Kind: EventDone, Pages: merged})
	}
}

// current reports whether gen is still the newest load.
func (s *Scheduler) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// mergeCurrent applies fn to the merge set only while gen is the newest load.
// The generation check and the merge happen under one lock.
func (s *Scheduler) mergeCurrent(gen uint64, fn func() []market.Asset) ([]market.Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, false
	}
	return fn(), true
}

// finish clears the running flag if gen is still the newest load.
func (s *Scheduler) finish(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.running = false
	return true
}

func (s *Scheduler) emit(e Event) {
	if s.listener == nil {
		return
	}
	if e.At.IsZero() {
		e.At = s.now()
	}
	s.listener(e)
}

// Start launches the refresh ticker. Ticks are skipped while a load runs or
// the surface is hidden. Calling Start twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.ticking || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.ticking = true
	s.mu.Unlock()

	s.loops.Add(1)
	threading.GoSafe(func() {
		defer s.loops.Done()
		ticker := time.NewTicker(s.cfg.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	})
}

func (s *Scheduler) tick() {
	if !s.visible() || s.Running() {
		return
	}
	if _, err := s.Load(s.ctx, false); err != nil {
		logx.Errorf("feed: periodic refresh err=%v", err)
	}
}

// Wait blocks until every background page loop has returned.
func (s *Scheduler) Wait() {
	s.background.Wait()
}

// Stop clears the refresh ticker, cancels in-flight background waits and
// blocks until all scheduler goroutines are gone.
func (s *Scheduler) Stop() {
	s.cancel()
	s.loops.Wait()
	s.background.Wait()
}
