package exec

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"fm-arb-bot/internal/market"
	"fm-arb-bot/internal/state"
)

// Transport carries one order to the marketplace.
type Transport interface {
	Submit(ctx context.Context, o market.Order) error
}

// Executor submits orders at most once per ref. Refs already recorded in
// the store are skipped, so a restart cannot resend a submission that
// already went out.
type Executor struct {
	transport Transport
	store     state.Store
	log       *zap.Logger
	timeout   time.Duration

	mu   sync.Mutex
	sent map[string]struct{}
}

func New(transport Transport, store state.Store, timeout time.Duration, log *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Executor{
		transport: transport,
		store:     store,
		log:       log,
		timeout:   timeout,
		sent:      make(map[string]struct{}),
	}
}

func (e *Executor) Submit(o market.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if o.Ref != "" {
		e.mu.Lock()
		_, seen := e.sent[o.Ref]
		e.mu.Unlock()
		if seen {
			e.log.Warn("duplicate ref skipped", zap.String("ref", o.Ref))
			return nil
		}
		if e.store != nil {
			if _, ok, err := e.store.Get(ctx, o.Ref); err != nil {
				return err
			} else if ok {
				e.log.Warn("ref already submitted", zap.String("ref", o.Ref))
				e.markSent(o.Ref)
				return nil
			}
		}
	}

	if err := e.submitWithRetry(ctx, o); err != nil {
		return err
	}

	if o.Ref != "" {
		if e.store != nil {
			if err := e.store.Put(ctx, o.Ref, o.String()); err != nil {
				e.log.Warn("failed to persist submission", zap.String("ref", o.Ref), zap.Error(err))
			}
		}
		e.markSent(o.Ref)
	}
	return nil
}

func (e *Executor) markSent(ref string) {
	e.mu.Lock()
	e.sent[ref] = struct{}{}
	e.mu.Unlock()
}

// submitWithRetry blocks the caller, which for the engine means the
// notification path. Worst case is two sleeps, 600ms total; the schedule
// must stay well under the feed cadence.
func (e *Executor) submitWithRetry(ctx context.Context, o market.Order) error {
	backoff := 200 * time.Millisecond
	for attempt := 0; attempt < 3; attempt++ {
		if err := e.transport.Submit(ctx, o); err != nil {
			if attempt == 2 {
				return fmt.Errorf("submit failed: %w", err)
			}
			e.log.Warn("submit retry", zap.String("ref", o.Ref), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
			continue
		}
		return nil
	}
	return nil
}
