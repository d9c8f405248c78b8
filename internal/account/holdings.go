package account

import (
	"sync"

	"go.uber.org/zap"
)

// Asset is the per-market holding of the traded good.
type Asset struct {
	Units          int
	UnitsAvailable int
}

// Holdings is the full account snapshot pushed by the marketplace. The agent
// never computes holdings itself; it only reads the latest push.
type Holdings struct {
	Cash          int64
	CashAvailable int64
	Assets        map[int]Asset
}

// Tracker keeps the most recent holdings snapshot.
type Tracker struct {
	log *zap.Logger

	mu       sync.RWMutex
	latest   *Holdings
	received bool
}

func NewTracker(log *zap.Logger) *Tracker {
	return &Tracker{log: log}
}

func (t *Tracker) Update(h Holdings) {
	t.mu.Lock()
	t.latest = &h
	t.received = true
	t.mu.Unlock()
	if t.log != nil {
		t.log.Info("holdings updated",
			zap.Int64("cash", h.Cash),
			zap.Int64("cash_available", h.CashAvailable),
			zap.Int("markets", len(h.Assets)),
		)
	}
}

// Latest returns the newest snapshot, or false before the first push.
func (t *Tracker) Latest() (Holdings, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.received {
		return Holdings{}, false
	}
	return *t.latest, true
}

// NetUnits is the combined unit position across the two markets. Zero means
// fully hedged; non-zero blocks new taker orders.
func (t *Tracker) NetUnits(publicID, privateID int) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.received {
		return 0, false
	}
	return t.latest.Assets[publicID].Units + t.latest.Assets[privateID].Units, true
}
