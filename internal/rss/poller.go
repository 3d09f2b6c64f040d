package rss

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/bryan-buckman/feedsync/internal/loop"
	"github.com/bryan-buckman/feedsync/internal/model"
	"github.com/bryan-buckman/feedsync/internal/state"
)

// DefaultInterval is the delay between the end of one cycle and the start
// of the next.
const DefaultInterval = 5 * time.Second

// ErrCycleInProgress is returned when a cycle is requested while another runs.
var ErrCycleInProgress = errors.New("refresh cycle already in progress")

var (
	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedsync_refresh_cycles_total",
		Help: "Completed refresh cycles",
	})
	fetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_refresh_failures_total",
		Help: "Feeds that failed during a refresh cycle, by kind",
	}, []string{"kind"})
	newPostsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedsync_refresh_new_posts_total",
		Help: "Posts discovered by refresh cycles",
	})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedsync_refresh_cycle_duration_seconds",
		Help:    "Duration of refresh cycles",
		Buckets: prometheus.DefBuckets,
	})
)

// NewID returns a fresh post identifier.
func NewID() string {
	return uuid.NewString()
}

// MergePosts prepends the candidates whose title is not already present to
// existing. Candidates keep their relative order; the first of several
// candidates sharing a title wins. It returns the merged collection and the
// posts that were added.
func MergePosts(existing []model.Post, candidates []ParsedItem, newID func() string) ([]model.Post, []model.Post) {
	known := lo.KeyBy(existing, func(p model.Post) string { return p.Title })
	fresh := lo.Filter(lo.UniqBy(candidates, func(it ParsedItem) string { return it.Title }),
		func(it ParsedItem, _ int) bool {
			_, seen := known[it.Title]
			return !seen
		})
	if len(fresh) == 0 {
		return existing, nil
	}
	added := lo.Map(fresh, func(it ParsedItem, _ int) model.Post {
		return model.Post{
			ID:          newID(),
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
		}
	})
	merged := make([]model.Post, 0, len(added)+len(existing))
	merged = append(merged, added...)
	merged = append(merged, existing...)
	return merged, added
}

// CycleResult summarises one refresh cycle.
type CycleResult struct {
	Feeds  int `json:"feeds"`
	Failed int `json:"failed"`
	Added  int `json:"added"`
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the delay between cycles.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) { p.interval = d }
}

// WithTimer replaces time.After, letting tests drive the schedule.
func WithTimer(after func(time.Duration) <-chan time.Time) PollerOption {
	return func(p *Poller) { p.after = after }
}

// WithIDs replaces the post ID generator.
func WithIDs(newID func() string) PollerOption {
	return func(p *Poller) { p.newID = newID }
}

// Poller keeps the post collection in sync with every registered feed.
type Poller struct {
	store    *state.Store
	loop     loop.Dispatcher
	source   Source
	interval time.Duration
	after    func(time.Duration) <-chan time.Time
	newID    func() string
	cycle    sync.Mutex
}

// NewPoller creates a poller reading and writing store through dispatcher.
func NewPoller(store *state.Store, dispatcher loop.Dispatcher, source Source, opts ...PollerOption) *Poller {
	p := &Poller{
		store:    store,
		loop:     dispatcher,
		source:   source,
		interval: DefaultInterval,
		after:    time.After,
		newID:    NewID,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval returns the delay between cycles.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run executes cycles until ctx is cancelled. The next cycle is scheduled
// after the previous one completes, whatever its outcome.
func (p *Poller) Run(ctx context.Context) error {
	for {
		res, err := p.RunCycle(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			log.Warnf("Poller: cycle skipped: %v", err)
		case res.Added > 0:
			log.Infof("Poller: %d new posts from %d feeds (%d failed)", res.Added, res.Feeds, res.Failed)
		default:
			log.Debugf("Poller: no new posts from %d feeds (%d failed)", res.Feeds, res.Failed)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.after(p.interval):
		}
	}
}

// RunCycle fetches every feed in parallel, waits for all of them, and
// prepends newly discovered posts to the store. Per-feed failures are
// logged and counted, never returned.
func (p *Poller) RunCycle(ctx context.Context) (CycleResult, error) {
	if !p.cycle.TryLock() {
		return CycleResult{}, ErrCycleInProgress
	}
	defer p.cycle.Unlock()

	start := time.Now()
	defer func() { cycleDuration.Observe(time.Since(start).Seconds()) }()

	// Loop tasks write into this frame, so they must finish before
	// RunCycle returns; cancellation of ctx only aborts the fetches.
	detached := context.WithoutCancel(ctx)

	var feeds []model.Feed
	if err := p.loop.Do(detached, func() { feeds = p.store.Feeds() }); err != nil {
		return CycleResult{}, err
	}

	res := CycleResult{Feeds: len(feeds)}
	items := p.fetchAll(ctx, feeds)
	for _, it := range items {
		if it == nil {
			res.Failed++
		}
	}

	var setErr error
	err := p.loop.Do(detached, func() {
		merged, added := MergePosts(p.store.Posts(), lo.Flatten(items), p.newID)
		if len(added) == 0 {
			return
		}
		if setErr = p.store.Set(state.PathPosts, merged); setErr == nil {
			res.Added = len(added)
		}
	})
	if err != nil {
		return res, err
	}
	if setErr != nil {
		return res, setErr
	}

	cyclesTotal.Inc()
	newPostsTotal.Add(float64(res.Added))
	return res, nil
}

// fetchAll fetches and parses every feed concurrently. The result is
// indexed like feeds; a nil entry marks a failed feed.
func (p *Poller) fetchAll(ctx context.Context, feeds []model.Feed) [][]ParsedItem {
	results := make([][]ParsedItem, len(feeds))
	var wg sync.WaitGroup
	for i, feed := range feeds {
		wg.Add(1)
		go func(i int, feed model.Feed) {
			defer wg.Done()
			parsed, err := FetchAndParse(ctx, p.source, feed.Link)
			if err != nil {
				fetchFailures.WithLabelValues(failureKind(err)).Inc()
				log.WithField("feed", feed.Link).Warnf("Poller: %v", err)
				return
			}
			results[i] = append([]ParsedItem{}, parsed.Items...)
		}(i, feed)
	}
	wg.Wait()
	return results
}

// FetchAndParse retrieves feedURL from source and parses the content.
func FetchAndParse(ctx context.Context, source Source, feedURL string) (*ParsedFeed, error) {
	raw, err := source.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func failureKind(err error) string {
	var perr *ParseError
	if errors.As(err, &perr) {
		return "parse"
	}
	return "network"
}
