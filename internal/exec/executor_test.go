package exec

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"fm-arb-bot/internal/account"
	"fm-arb-bot/internal/market"
	"fm-arb-bot/internal/metrics"
	"fm-arb-bot/internal/strategy"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Get(ctx context.Context, ref string) (string, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[ref]
	return val, ok, nil
}

func (m *memoryStore) Put(ctx context.Context, ref, payload string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[ref] = payload
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, ref string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, ref)
	return nil
}

func (m *memoryStore) Close() error { return nil }

type mockTransport struct {
	mu    sync.Mutex
	calls int
	fail  int
	err   error
}

func (m *mockTransport) Submit(ctx context.Context, o market.Order) error {
	_ = ctx
	_ = o
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail > 0 {
		m.fail--
		return m.err
	}
	return nil
}

func takerOrder(ref string) market.Order {
	return market.Order{
		MarketID: 2681,
		Side:     market.SideBuy,
		Kind:     market.KindLimit,
		Price:    490,
		Units:    1,
		Ref:      ref,
	}
}

func TestExecutorIdempotentSubmission(t *testing.T) {
	store := newMemoryStore()
	transport := &mockTransport{}
	logger := zap.NewNop()
	executor := New(transport, store, time.Second, logger)

	order := takerOrder("take-BUY-490-1")
	if err := executor.Submit(order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := executor.Submit(order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transport.calls != 1 {
		t.Fatalf("expected 1 transport call, got %d", transport.calls)
	}

	transport2 := &mockTransport{}
	executor2 := New(transport2, store, time.Second, logger)
	if err := executor2.Submit(order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transport2.calls != 0 {
		t.Fatalf("expected no transport calls on restart, got %d", transport2.calls)
	}
}

// A restarted process shares the dedupe store with its previous lifetime;
// fresh entries at the same prices must still reach the marketplace.
func TestRestartedEngineStillReachesTransport(t *testing.T) {
	store := newMemoryStore()
	transport := &mockTransport{}
	logger := zap.NewNop()

	cfg := strategy.Config{
		Public:       market.Market{ID: 2681, Name: "stock", Tick: 1},
		Private:      market.Market{ID: 2682, Name: "note", Tick: 1, Private: true},
		Counterparty: "M000",
		Threshold:    10,
	}
	book := []market.Order{
		{ID: 1, MarketID: 2681, Side: market.SideBuy, Kind: market.KindLimit, Price: 485, Units: 5},
		{ID: 2, MarketID: 2681, Side: market.SideSell, Kind: market.KindLimit, Price: 490, Units: 5},
		{ID: 3, MarketID: 2682, Side: market.SideBuy, Kind: market.KindLimit, Price: 505, Units: 1},
	}

	for lifetime := 0; lifetime < 2; lifetime++ {
		executor := New(transport, store, time.Second, logger)
		tracker := account.NewTracker(logger)
		engine := strategy.NewEngine(cfg, executor, tracker, metrics.NewNoop(), logger)
		engine.OnHoldings(account.Holdings{
			Cash:          1000,
			CashAvailable: 1000,
			Assets:        map[int]account.Asset{2681: {}, 2682: {}},
		})
		engine.OnOrders(book)
		if engine.State() != strategy.StatePublicSent {
			t.Fatalf("lifetime %d: expected PUBLIC_SENT, got %v", lifetime, engine.State())
		}
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if transport.calls != 2 {
		t.Fatalf("expected a taker per lifetime, got %d transport calls", transport.calls)
	}
}

func TestExecutorRetriesTransient(t *testing.T) {
	transport := &mockTransport{fail: 1, err: errors.New("ws not connected")}
	executor := New(transport, newMemoryStore(), time.Second, zap.NewNop())

	if err := executor.Submit(takerOrder("take-BUY-490-2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transport.calls != 2 {
		t.Fatalf("expected 2 transport calls, got %d", transport.calls)
	}
}

func TestExecutorSurfacesPermanentFailure(t *testing.T) {
	transport := &mockTransport{fail: 10, err: errors.New("ws not connected")}
	executor := New(transport, newMemoryStore(), 5*time.Second, zap.NewNop())

	if err := executor.Submit(takerOrder("take-BUY-490-3")); err == nil {
		t.Fatalf("expected submit failure")
	}

	// A failed ref is not marked sent; a later attempt goes out again.
	transport.mu.Lock()
	transport.fail = 0
	calls := transport.calls
	transport.mu.Unlock()
	if err := executor.Submit(takerOrder("take-BUY-490-3")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	transport.mu.Lock()
	defer transport.mu.Unlock()
	if transport.calls != calls+1 {
		t.Fatalf("expected resubmit after failure, got %d calls", transport.calls)
	}
}
