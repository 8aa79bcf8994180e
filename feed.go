package spacetraveling

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eringen/spacetraveling/logger"
)

// ErrLoadInProgress is returned by LoadMore while another load of the same
// feed has not finished.
var ErrLoadInProgress = errors.New("load already in progress")

// PageSource returns listing pages. *ContentClient implements it.
type PageSource interface {
	ListPosts(ctx context.Context, pageSize int, cursor *string) (PaginatedListing, error)
}

// PostFeed is the incrementally loaded post listing: the summaries shown so
// far plus the cursor of the next page. At most one load runs at a time.
type PostFeed struct {
	mu       sync.Mutex
	source   PageSource
	pageSize int
	results  []PostSummary
	cursor   *string
	loading  bool
	seen     map[string]struct{}
	dups     []string
}

// NewPostFeed starts a feed from an already fetched first page.
func NewPostFeed(first PaginatedListing, pageSize int, source PageSource) *PostFeed {
	f := &PostFeed{
		source:   source,
		pageSize: pageSize,
		results:  make([]PostSummary, 0, len(first.Results)),
		cursor:   first.NextPage,
		seen:     make(map[string]struct{}, len(first.Results)),
	}
	f.appendLocked(first.Results)
	return f
}

// LoadMore fetches the page at the current cursor, appends it and advances
// the cursor. It returns the appended summaries. When the feed is exhausted
// it does nothing and returns (nil, nil). On error the feed is unchanged.
func (f *PostFeed) LoadMore(ctx context.Context) ([]PostSummary, error) {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return nil, ErrLoadInProgress
	}
	if f.cursor == nil {
		f.mu.Unlock()
		return nil, nil
	}
	cursor := *f.cursor
	f.loading = true
	f.mu.Unlock()

	page, err := f.source.ListPosts(ctx, f.pageSize, &cursor)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		return nil, err
	}
	f.appendLocked(page.Results)
	f.cursor = page.NextPage
	return page.Results, nil
}

// appendLocked keeps duplicates in place and records them for diagnostics.
func (f *PostFeed) appendLocked(posts []PostSummary) {
	for _, p := range posts {
		if _, ok := f.seen[p.UID]; ok {
			f.dups = append(f.dups, p.UID)
			logger.Warn("duplicate post in feed", logger.Fields{"uid": p.UID})
		}
		f.seen[p.UID] = struct{}{}
		f.results = append(f.results, p)
	}
}

// Results returns a copy of every summary loaded so far, in load order.
func (f *PostFeed) Results() []PostSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PostSummary, len(f.results))
	copy(out, f.results)
	return out
}

// Cursor returns the next page cursor, or nil when the feed is exhausted.
func (f *PostFeed) Cursor() *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursor == nil {
		return nil
	}
	c := *f.cursor
	return &c
}

// HasMore reports whether a further page exists.
func (f *PostFeed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor != nil
}

// Loading reports whether a load is in flight.
func (f *PostFeed) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// Duplicates returns the UIDs that appeared more than once, once per repeat.
func (f *PostFeed) Duplicates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.dups))
	copy(out, f.dups)
	return out
}

type feedEntry struct {
	feed    *PostFeed
	touched time.Time
}

// FeedRegistry keeps the feeds of visitors between "load more" requests.
// Feeds not touched within ttl are dropped, and at most max feeds are kept:
// adding to a full registry evicts the least recently touched feed.
type FeedRegistry struct {
	mu    sync.Mutex
	feeds map[string]*feedEntry
	ttl   time.Duration
	max   int
	stop  chan struct{}
	once  sync.Once
}

// NewFeedRegistry creates a FeedRegistry and starts its cleanup loop.
// A max of zero or less means no size limit.
func NewFeedRegistry(ttl time.Duration, max int) *FeedRegistry {
	r := &FeedRegistry{
		feeds: make(map[string]*feedEntry),
		ttl:   ttl,
		max:   max,
		stop:  make(chan struct{}),
	}
	go r.cleanup()
	return r
}

func (r *FeedRegistry) cleanup() {
	ticker := time.NewTicker(r.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.expire(time.Now())
		}
	}
}

func (r *FeedRegistry) expire(now time.Time) {
	cutoff := now.Add(-r.ttl)
	r.mu.Lock()
	for id, e := range r.feeds {
		if e.touched.Before(cutoff) {
			delete(r.feeds, id)
		}
	}
	r.mu.Unlock()
}

// Add stores f and returns its id.
func (r *FeedRegistry) Add(f *PostFeed) string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 && len(r.feeds) >= r.max {
		r.evictOldestLocked()
	}
	r.feeds[id] = &feedEntry{feed: f, touched: time.Now()}
	return id
}

func (r *FeedRegistry) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range r.feeds {
		if oldestID == "" || e.touched.Before(oldest) {
			oldestID, oldest = id, e.touched
		}
	}
	delete(r.feeds, oldestID)
}

// Get returns the feed with the given id and refreshes its lifetime.
func (r *FeedRegistry) Get(id string) (*PostFeed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.feeds[id]
	if !ok {
		return nil, false
	}
	e.touched = time.Now()
	return e.feed, true
}

// Remove drops the feed with the given id.
func (r *FeedRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.feeds, id)
	r.mu.Unlock()
}

// Len returns the number of live feeds.
func (r *FeedRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.feeds)
}

// Close stops the cleanup loop.
func (r *FeedRegistry) Close() {
	r.once.Do(func() { close(r.stop) })
}
