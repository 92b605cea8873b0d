package query

import "context"

// Reconciler updates the cache after a mutation succeeded.
type Reconciler[A, R any] func(c *Client, args A, result R)

// Mutation is a write against the remote service followed by cache
// reconciliation. Do runs exactly once per Exec; it is never retried.
type Mutation[A, R any] struct {
	Do        func(ctx context.Context, args A) (R, error)
	Reconcile []Reconciler[A, R]
}

// Exec performs the mutation. On success the reconcilers run in order; on
// failure the error from Do is returned unchanged and the cache is untouched.
func (m Mutation[A, R]) Exec(ctx context.Context, c *Client, args A) (R, error) {
	res, err := m.Do(ctx, args)
	if err != nil {
		return res, err
	}
	for _, r := range m.Reconcile {
		r(c, args, res)
	}
	return res, nil
}

// InvalidateOnSuccess invalidates each key (as a prefix) after success.
func InvalidateOnSuccess[A, R any](keys ...Key) Reconciler[A, R] {
	return func(c *Client, _ A, _ R) {
		for _, k := range keys {
			c.Invalidate(k)
		}
	}
}

// SetOnSuccess stores value(args, result) under key after success.
func SetOnSuccess[A, R any](key Key, value func(A, R) any) Reconciler[A, R] {
	return func(c *Client, args A, res R) {
		c.SetEntry(key, value(args, res))
	}
}

// UpdateOnSuccess merges the result into the entry under key after success.
func UpdateOnSuccess[A, R any](key Key, merge func(old any, ok bool, res R) any) Reconciler[A, R] {
	return func(c *Client, _ A, res R) {
		c.Update(key, func(old any, ok bool) any {
			return merge(old, ok, res)
		})
	}
}
