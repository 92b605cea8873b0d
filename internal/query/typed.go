package query

import (
	"context"
	"time"
)

// Query describes a cached read of type T.
type Query[T any] struct {
	Key             Key
	Fetch           func(ctx context.Context) (T, error)
	StaleTime       time.Duration
	RefetchOnAccess *bool
}

func (q Query[T]) options() Options {
	return Options{StaleTime: q.StaleTime, RefetchOnAccess: q.RefetchOnAccess}
}

func (q Query[T]) fetcher() Fetcher {
	return func(ctx context.Context) (any, error) {
		return q.Fetch(ctx)
	}
}

// Result is a typed Snapshot.
type Result[T any] struct {
	Data      T
	HasData   bool
	Status    Status
	Err       error
	FetchedAt time.Time
	Stale     bool
	Fetching  bool
}

// Loading reports whether the first fetch is still running.
func (r Result[T]) Loading() bool { return r.Status == StatusLoading }

// Failed reports whether there is an error and no data to show instead.
func (r Result[T]) Failed() bool { return r.Err != nil && !r.HasData }

func resultOf[T any](s Snapshot) Result[T] {
	r := Result[T]{
		Status:    s.Status,
		Err:       s.Err,
		FetchedAt: s.FetchedAt,
		Stale:     s.Stale,
		Fetching:  s.Fetching,
	}
	if s.HasData {
		r.Data, r.HasData = s.Data.(T)
	}
	return r
}

// Get is the typed form of Client.Get.
func Get[T any](ctx context.Context, c *Client, q Query[T]) Result[T] {
	return resultOf[T](c.Get(ctx, q.Key, q.fetcher(), q.options()))
}

// Fetch is the typed form of Client.Fetch.
func Fetch[T any](ctx context.Context, c *Client, q Query[T]) (T, error) {
	v, err := c.Fetch(ctx, q.Key, q.fetcher(), q.options())
	data, _ := v.(T)
	return data, err
}

// Lookup is the typed form of Client.Peek.
func Lookup[T any](c *Client, key Key) (Result[T], bool) {
	s, ok := c.Peek(key)
	return resultOf[T](s), ok
}

// Bool returns a pointer to b, for RefetchOnAccess overrides.
func Bool(b bool) *bool { return &b }
