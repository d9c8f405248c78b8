package state

import "context"

// Store records order submissions by correlation ref so a restarted process
// does not resubmit a ref it already sent.
type Store interface {
	Get(ctx context.Context, ref string) (string, bool, error)
	Put(ctx context.Context, ref, payload string) error
	Delete(ctx context.Context, ref string) error
	Close() error
}
