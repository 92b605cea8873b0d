// Package query implements the read-through cache every portal view reads from:
// stale-time revalidation, one in-flight request per key, invalidation by key
// prefix, and direct patches from mutation results.
package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"golang.org/x/sync/singleflight"

	"github.com/infokelas/kelas/internal/logging"
)

// Forever marks data that never goes stale on its own; only invalidation
// or a patch changes it.
const Forever = time.Duration(math.MaxInt64)

// Status is the lifecycle state of a cache entry.
type Status int

const (
	StatusIdle    Status = iota // Entry exists but nothing was requested yet.
	StatusLoading               // First fetch in progress, no data yet.
	StatusSuccess               // Data present, last fetch (or patch) succeeded.
	StatusError                 // Last fetch failed; data may still hold the last good value.
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Fetcher loads the current value of a query from the remote service.
type Fetcher func(ctx context.Context) (any, error)

// Options are the per-query settings.
type Options struct {
	// StaleTime is how long fetched data is served without revalidation.
	// Zero means data is stale as soon as it arrives.
	StaleTime time.Duration
	// RefetchOnAccess overrides Policy.RefetchOnAccess when set.
	RefetchOnAccess *bool
}

// Policy holds the client-wide fetch behavior.
type Policy struct {
	Retry           int           // Extra attempts after a failed fetch.
	RetryDelay      time.Duration // Pause between attempts.
	RefetchOnAccess bool          // Revalidate stale data when it is read.
}

// DefaultPolicy retries once without delay and revalidates on access.
func DefaultPolicy() Policy {
	return Policy{Retry: 1, RefetchOnAccess: true}
}

// Snapshot is a point-in-time copy of a cache entry.
type Snapshot struct {
	Key       Key
	Data      any
	HasData   bool
	Status    Status
	Err       error
	FetchedAt time.Time
	Stale     bool
	Fetching  bool
}

// EventType classifies cache notifications.
type EventType int

const (
	EventUpdated     EventType = iota + 1 // Fetch or patch stored new data.
	EventFailed                           // Fetch failed after retries.
	EventInvalidated                      // Entry marked stale by Invalidate.
	EventCleared                          // All entries dropped.
)

// Event notifies subscribers of a change to an entry.
// Key is nil for EventCleared.
type Event struct {
	Type EventType
	Key  Key
	Err  error
}

// entry is the mutable state behind one key. Guarded by Client.mu.
type entry struct {
	key         Key
	data        any
	hasData     bool
	status      Status
	err         error
	fetchedAt   time.Time
	invalidated bool
	gen         uint64 // Bumped by Invalidate and patches.
	flight      string // singleflight key of the running fetch, "" when idle.
}

// flight captures what a running fetch needs to apply its result.
type flight struct {
	id    string
	hash  string
	key   Key
	fetch Fetcher
	gen   uint64
	epoch uint64
}

// Client is the query cache. Create one per process (or per test) with New;
// it is safe for concurrent use. Fetches run on background goroutines and
// report back through Subscribe.
type Client struct {
	mu      sync.Mutex
	entries map[string]*entry
	epoch   uint64 // Bumped by Clear; results from older epochs are dropped.
	seq     uint64
	flights singleflight.Group
	wg      sync.WaitGroup

	subs    map[int]func(Event)
	nextSub int

	policy Policy
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPolicy sets the retry and refetch policy.
func WithPolicy(p Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates an empty cache.
func New(opts ...Option) *Client {
	c := &Client{
		entries: make(map[string]*entry),
		subs:    make(map[int]func(Event)),
		policy:  DefaultPolicy(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Discard("query")
	}
	if c.policy.Retry < 0 {
		c.policy.Retry = 0
	}
	return c
}

// Get returns the best data available for key without blocking.
// Fresh data is returned as is. Stale data is returned and revalidated in the
// background unless a fetch is already running. A missing entry comes back
// with StatusLoading while the first fetch runs.
func (c *Client) Get(ctx context.Context, key Key, fetch Fetcher, opts Options) Snapshot {
	c.mu.Lock()
	e := c.lookupLocked(key)
	now := c.now()
	if e.flight == "" && c.shouldFetchLocked(e, opts, now) {
		c.startLocked(ctx, e, fetch)
	}
	snap := c.snapshotLocked(e, opts.StaleTime, now)
	c.mu.Unlock()
	return snap
}

// Fetch returns fresh data for key, waiting for a fetch when the cached value
// is missing or stale. It joins a fetch already in flight instead of issuing
// another. On failure the last good data (if any) is returned with the error.
func (c *Client) Fetch(ctx context.Context, key Key, fetch Fetcher, opts Options) (any, error) {
	c.mu.Lock()
	e := c.lookupLocked(key)
	now := c.now()
	if e.hasData && !c.staleLocked(e, opts.StaleTime, now) {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	ch := c.joinLocked(ctx, e, fetch)
	c.mu.Unlock()

	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val, nil
		}
		if snap, ok := c.Peek(key); ok && snap.HasData {
			return snap.Data, res.Err
		}
		return nil, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate marks every entry whose key starts with prefix as stale, so the
// next access fetches again. Returns the number of entries affected.
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	var events []Event
	for _, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		e.fetchedAt = time.Time{}
		e.invalidated = true
		e.gen++
		events = append(events, Event{Type: EventInvalidated, Key: e.key})
	}
	c.mu.Unlock()

	c.logger.Debugf("invalidate %s: %d entries", prefix, len(events))
	c.publish(events...)
	return len(events)
}

// SetEntry stores data under key as freshly fetched, without a round trip.
func (c *Client) SetEntry(key Key, data any) {
	c.Update(key, func(any, bool) any { return data })
}

// Update patches the entry for key with fn(old, hasOld). fn runs under the
// cache lock and must not call back into the Client.
func (c *Client) Update(key Key, fn func(old any, ok bool) any) {
	c.mu.Lock()
	e := c.lookupLocked(key)
	e.data = fn(e.data, e.hasData)
	e.hasData = true
	e.status = StatusSuccess
	e.err = nil
	e.fetchedAt = c.now()
	e.invalidated = false
	e.gen++
	c.mu.Unlock()

	c.publish(Event{Type: EventUpdated, Key: key})
}

// Clear drops every entry. Fetches still running complete, but their results
// are discarded.
func (c *Client) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.epoch++
	c.mu.Unlock()

	c.logger.Debugf("clear: dropped %d entries", n)
	c.publish(Event{Type: EventCleared})
}

// Peek returns the entry for key without triggering a fetch.
func (c *Client) Peek(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.Hash()]
	if !ok {
		return Snapshot{Key: key}, false
	}
	// Peek has no stale time to judge by; report staleness only when known.
	snap := c.snapshotLocked(e, Forever, c.now())
	return snap, true
}

// Len returns the number of entries.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Subscribe registers fn for cache events and returns a function that
// removes it. fn is called outside the cache lock from whichever goroutine
// caused the change.
func (c *Client) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Wait blocks until every background fetch has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Retryable reports whether a failed fetch may be attempted again.
// Errors opt out by implementing Retryable() bool; cancellation never retries.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// --- internals ---

func (c *Client) lookupLocked(key Key) *entry {
	h := key.Hash()
	e, ok := c.entries[h]
	if !ok {
		e = &entry{key: key, status: StatusIdle}
		c.entries[h] = e
	}
	return e
}

func (c *Client) staleLocked(e *entry, staleTime time.Duration, now time.Time) bool {
	if e.invalidated || e.fetchedAt.IsZero() {
		return true
	}
	if staleTime == Forever {
		return false
	}
	return now.Sub(e.fetchedAt) >= staleTime
}

func (c *Client) shouldFetchLocked(e *entry, opts Options, now time.Time) bool {
	if !e.hasData {
		return true
	}
	if !c.staleLocked(e, opts.StaleTime, now) {
		return false
	}
	if e.invalidated {
		return true
	}
	refetch := c.policy.RefetchOnAccess
	if opts.RefetchOnAccess != nil {
		refetch = *opts.RefetchOnAccess
	}
	return refetch
}

func (c *Client) snapshotLocked(e *entry, staleTime time.Duration, now time.Time) Snapshot {
	return Snapshot{
		Key:       e.key,
		Data:      e.data,
		HasData:   e.hasData,
		Status:    e.status,
		Err:       e.err,
		FetchedAt: e.fetchedAt,
		Stale:     e.hasData && c.staleLocked(e, staleTime, now),
		Fetching:  e.flight != "",
	}
}

// joinLocked returns the result channel of the fetch running for e,
// starting one if none is.
func (c *Client) joinLocked(ctx context.Context, e *entry, fetch Fetcher) <-chan singleflight.Result {
	if e.flight == "" {
		return c.startLocked(ctx, e, fetch)
	}
	// The running flight cannot finish while c.mu is held, so this joins it.
	return c.flights.DoChan(e.flight, func() (any, error) { return nil, errFlightGone })
}

// startLocked launches a background fetch for e. The fetch is detached from
// the caller's cancellation so its result still reaches the cache.
func (c *Client) startLocked(ctx context.Context, e *entry, fetch Fetcher) <-chan singleflight.Result {
	c.seq++
	f := flight{
		id:    fmt.Sprintf("%s#%d", e.key.Hash(), c.seq),
		hash:  e.key.Hash(),
		key:   e.key,
		fetch: fetch,
		gen:   e.gen,
		epoch: c.epoch,
	}
	e.flight = f.id
	if !e.hasData {
		e.status = StatusLoading
	}

	bg := context.WithoutCancel(ctx)
	c.wg.Add(1)
	c.logger.Debugf("fetch %s: start", e.key)
	return c.flights.DoChan(f.id, func() (any, error) {
		defer c.wg.Done()
		return c.run(bg, f)
	})
}

// errFlightGone is returned to a joiner if its flight vanished, which the
// locking in joinLocked rules out.
var errFlightGone = errors.New("query: in-flight request not found")

func (c *Client) run(ctx context.Context, f flight) (any, error) {
	data, err := c.attempt(ctx, f)

	c.mu.Lock()
	ev, ok := c.completeLocked(f, data, err)
	c.mu.Unlock()

	if ok {
		c.publish(ev)
	}
	return data, err
}

// attempt calls the fetcher, retrying retryable failures up to Policy.Retry times.
func (c *Client) attempt(ctx context.Context, f flight) (any, error) {
	attempts := c.policy.Retry + 1
	for n := 1; ; n++ {
		data, err := f.fetch(ctx)
		if err == nil {
			return data, nil
		}
		if n >= attempts || !Retryable(err) {
			c.logger.Warnf("fetch %s: giving up after %d attempt(s): %v", f.key, n, err)
			return nil, err
		}
		c.logger.Debugf("fetch %s: attempt %d failed, retrying: %v", f.key, n, err)
		if !sleepCtx(ctx, c.policy.RetryDelay) {
			return nil, err
		}
	}
}

// completeLocked applies a fetch result. Results from before a Clear are
// dropped. A result that raced an invalidation or patch is stored but left
// stale so the next access fetches again.
func (c *Client) completeLocked(f flight, data any, err error) (Event, bool) {
	if f.epoch != c.epoch {
		c.logger.Debugf("fetch %s: cache cleared, result discarded", f.key)
		return Event{}, false
	}
	e, ok := c.entries[f.hash]
	if !ok || e.flight != f.id {
		return Event{}, false
	}
	e.flight = ""

	if err != nil {
		e.status = StatusError
		e.err = err
		return Event{Type: EventFailed, Key: e.key, Err: err}, true
	}

	e.data = data
	e.hasData = true
	e.status = StatusSuccess
	e.err = nil
	if e.gen == f.gen {
		e.fetchedAt = c.now()
		e.invalidated = false
	} else {
		e.fetchedAt = time.Time{}
		e.invalidated = true
	}
	return Event{Type: EventUpdated, Key: e.key}, true
}

func (c *Client) publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	c.mu.Lock()
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
