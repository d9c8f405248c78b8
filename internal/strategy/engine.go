package strategy

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"fm-arb-bot/internal/account"
	"fm-arb-bot/internal/market"
	"fm-arb-bot/internal/metrics"

	"go.uber.org/zap"
)

// Engine is the reactive decision core. It consumes the four marketplace
// notifications (order feed, holdings, order accepted, order rejected),
// derives a role and margin from the private-market signal, and drives the
// two-leg taker/hedge lifecycle. All notification handlers run under one
// mutex; the marketplace feed delivers them one at a time.
type Engine struct {
	log      *zap.Logger
	gw       Gateway
	metrics  *metrics.Metrics
	holdings *account.Tracker

	public       market.Market
	private      market.Market
	counterparty string
	threshold    int64

	mu         sync.Mutex
	sm         *StateMachine
	role       Role
	hasRole    bool
	pending    *PendingHedge
	inFlight   bool
	ownPublic  *market.Order
	ownPrivate *market.Order
	run        string
	seq        uint64
	recorder   Recorder
}

type Config struct {
	Public       market.Market
	Private      market.Market
	Counterparty string
	Threshold    int64
}

func NewEngine(cfg Config, gw Gateway, holdings *account.Tracker, m *metrics.Metrics, log *zap.Logger) *Engine {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Engine{
		log:          log,
		gw:           gw,
		metrics:      m,
		holdings:     holdings,
		public:       cfg.Public,
		private:      cfg.Private,
		counterparty: cfg.Counterparty,
		threshold:    cfg.Threshold,
		sm:           NewStateMachine(),
		// The dedupe store outlives the process, so refs carry a
		// per-lifetime token to stay unique across restarts.
		run: strconv.FormatInt(time.Now().UnixNano(), 36),
	}
}

// apply advances the state machine and mirrors the result into the gauge.
func (e *Engine) apply(ev Event) {
	e.metrics.EngineState.Set(stateValue(e.sm.Apply(ev)))
}

// SetRecorder attaches an optional observer for journal rows and alerts.
func (e *Engine) SetRecorder(r Recorder) {
	e.mu.Lock()
	e.recorder = r
	e.mu.Unlock()
}

func (e *Engine) OnSession(phase SessionPhase, sessionID int64) {
	switch phase {
	case SessionOpen:
		e.log.Info("marketplace open for trading", zap.Int64("session_id", sessionID))
	case SessionPaused:
		e.log.Info("marketplace paused")
	case SessionClosed:
		e.log.Info("marketplace closed")
	default:
		e.log.Warn("unknown session phase", zap.String("phase", string(phase)))
	}
}

func (e *Engine) OnHoldings(h account.Holdings) {
	e.holdings.Update(h)
}

// OnOrders handles a full order-feed snapshot: rebuild the book view,
// refresh standing-order tracking, re-derive role and margin, and enter a
// new taker leg when every guard is open.
func (e *Engine) OnOrders(orders []market.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()

	book := market.BuildBook(orders, e.public.ID, e.private.ID)
	e.ownPublic = book.OwnPublic
	e.ownPrivate = book.OwnPrivate

	// A hedge owed from a prior fill retries here when funds were short.
	if e.sm.Current() == StateAwaitingHedge && e.pending != nil && e.pending.TakerID != 0 {
		e.attemptHedge()
	}

	signal := book.PrivateSignal()
	if signal == nil {
		if e.hasRole {
			e.log.Info("private signal gone, role cleared")
		}
		e.hasRole = false
		e.record(CycleRecord{NetUnits: e.netUnits(), State: e.sm.Current()})
		return
	}

	role, _ := DeriveRole(signal)
	if !e.hasRole || role != e.role {
		e.log.Info("role updated",
			zap.String("role", string(role)),
			zap.String("signal_side", string(signal.Side)),
			zap.Int64("signal_price", signal.Price),
		)
	}
	e.role = role
	e.hasRole = true

	margin, ok := Margin(role, signal.Price, book)
	cycle := CycleRecord{
		Role:        role,
		HasRole:     true,
		Margin:      margin,
		HasMargin:   ok,
		SignalPrice: signal.Price,
		NetUnits:    e.netUnits(),
		State:       e.sm.Current(),
	}
	if book.BestPublicBuy != nil {
		cycle.BestPublicBuy = book.BestPublicBuy.Price
	}
	if book.BestPublicSell != nil {
		cycle.BestPublicSell = book.BestPublicSell.Price
	}
	defer e.record(cycle)

	if !ok {
		e.log.Debug("margin undefined, no opposing public best", zap.String("role", string(role)))
		return
	}
	if margin <= e.threshold {
		e.log.Debug("margin below threshold",
			zap.Int64("margin", margin),
			zap.Int64("threshold", e.threshold),
		)
		return
	}

	if net, known := e.holdings.NetUnits(e.public.ID, e.private.ID); known && net != 0 {
		e.log.Info("net units non-zero, blocking new taker orders", zap.Int("net_units", net))
		return
	}
	if e.inFlight {
		e.log.Debug("submission in flight, skipping entry")
		return
	}
	if e.pending != nil {
		e.log.Debug("pending hedge outstanding, skipping entry")
		return
	}
	if e.ownPublic != nil || e.ownPrivate != nil {
		e.log.Debug("standing order present, skipping entry")
		return
	}
	holdings, known := e.holdings.Latest()
	if !known {
		e.log.Debug("no holdings snapshot yet, cannot size order")
		return
	}

	switch role {
	case RoleBuyer:
		price := book.BestPublicSell.Price
		if holdings.CashAvailable < price {
			e.log.Info("insufficient cash for public buy",
				zap.Int64("need", price),
				zap.Int64("have", holdings.CashAvailable),
			)
			return
		}
		e.submitTaker(market.SideBuy, price, signal.Price, margin)
	case RoleSeller:
		// Short selling is permitted; no unit check on the public sell.
		e.submitTaker(market.SideSell, book.BestPublicBuy.Price, signal.Price, margin)
	}
}

func (e *Engine) submitTaker(side market.Side, price, signalPrice, margin int64) {
	e.seq++
	ref := fmt.Sprintf("take-%s-%d-%s-%d", side, price, e.run, e.seq)
	order := market.Order{
		MarketID: e.public.ID,
		Side:     side,
		Kind:     market.KindLimit,
		Price:    price,
		Units:    1,
		Mine:     true,
		Ref:      ref,
	}
	if err := e.gw.Submit(order); err != nil {
		e.log.Warn("taker submission failed", zap.Error(err))
		e.metrics.SubmitFailed.Inc()
		return
	}
	e.inFlight = true
	e.pending = &PendingHedge{
		Side:     side.Opposite(),
		Price:    signalPrice,
		TakerRef: ref,
	}
	e.apply(EventTakerSent)
	e.metrics.TakersSubmitted.Inc()
	e.log.Info("taker order submitted",
		zap.String("side", string(side)),
		zap.Int64("price", price),
		zap.Int64("margin", margin),
		zap.String("ref", ref),
	)
	e.recordEvent(OrderEvent{
		Event:    EventNameTakerSubmitted,
		MarketID: e.public.ID,
		Side:     side,
		Price:    price,
		Ref:      ref,
	})
}

// OnOrderAccepted resolves the public leg and keeps standing-order tracking
// current. Acceptance of any submission clears the in-flight guard.
func (e *Engine) OnOrderAccepted(o market.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight = false

	e.log.Info("order accepted",
		zap.Int("market", o.MarketID),
		zap.Int64("id", o.ID),
		zap.String("side", string(o.Side)),
		zap.Int64("price", o.Price),
		zap.Bool("traded", o.Traded),
		zap.Bool("cancelled", o.Cancelled),
	)

	if e.pending != nil && o.MarketID == e.public.ID {
		// Promote the correlation token to the assigned identity once.
		if e.pending.TakerID == 0 && o.Kind == market.KindLimit && o.Ref == e.pending.TakerRef {
			e.pending.TakerID = o.ID
		}
		switch {
		case o.ID == e.pending.TakerID && o.Traded:
			if e.sm.Current() != StateAwaitingHedge {
				e.apply(EventTakerFilled)
				e.metrics.TakersFilled.Inc()
				e.recordEvent(OrderEvent{
					Event:    EventNameTakerFilled,
					MarketID: o.MarketID,
					Side:     o.Side,
					Price:    o.Price,
					Ref:      o.Ref,
					OrderID:  o.ID,
				})
			}
			e.attemptHedge()
		case o.ID == e.pending.TakerID && o.Cancelled:
			e.log.Info("taker cancellation confirmed, abandoning hedge", zap.Int64("id", o.ID))
			e.abandonHedge(o)
		case o.ID == e.pending.TakerID && e.sm.Current() == StatePublicSent:
			// Rested instead of filling: cancel, but keep the hedge plan in
			// case the order trades before the cancel is processed.
			e.apply(EventTakerRested)
			e.submitCancel(o)
		case o.Cancelled:
			e.log.Debug("cancellation for untracked order ignored", zap.Int64("id", o.ID))
		}
	}

	e.trackStanding(o)
}

func (e *Engine) submitCancel(o market.Order) {
	cancel := market.CancelFor(o)
	cancel.Target = ""
	if err := e.gw.Submit(cancel); err != nil {
		e.log.Warn("cancel submission failed", zap.Int64("id", o.ID), zap.Error(err))
		e.metrics.SubmitFailed.Inc()
		return
	}
	e.inFlight = true
	e.metrics.CancelsSent.Inc()
	e.log.Info("cancelling rested taker order", zap.Int64("id", o.ID))
	e.recordEvent(OrderEvent{
		Event:    EventNameCancelSent,
		MarketID: o.MarketID,
		Side:     o.Side,
		Price:    o.Price,
		Ref:      cancel.Ref,
		OrderID:  o.ID,
	})
}

// attemptHedge sends the private leg owed by the current PendingHedge. A
// BUY hedge requires available cash; a SELL hedge is unconditional. On
// insufficient funds the plan stays intact for a later cycle.
func (e *Engine) attemptHedge() {
	if e.pending == nil || e.inFlight {
		return
	}
	holdings, known := e.holdings.Latest()
	if !known {
		e.log.Warn("no holdings snapshot, deferring hedge")
		return
	}
	if e.pending.Side == market.SideBuy && holdings.CashAvailable < e.pending.Price {
		e.log.Info("insufficient cash for private buy hedge, retrying later",
			zap.Int64("need", e.pending.Price),
			zap.Int64("have", holdings.CashAvailable),
		)
		return
	}
	e.seq++
	ref := fmt.Sprintf("hedge-%s-%d-%s-%d", e.pending.Side, e.pending.Price, e.run, e.seq)
	order := market.Order{
		MarketID: e.private.ID,
		Side:     e.pending.Side,
		Kind:     market.KindLimit,
		Price:    e.pending.Price,
		Units:    1,
		Mine:     true,
		Ref:      ref,
		Target:   e.counterparty,
	}
	if err := e.gw.Submit(order); err != nil {
		e.log.Warn("hedge submission failed, retrying later", zap.Error(err))
		e.metrics.SubmitFailed.Inc()
		return
	}
	e.inFlight = true
	placed := *e.pending
	e.pending = nil
	e.apply(EventHedgePlaced)
	e.metrics.HedgesPlaced.Inc()
	e.log.Info("hedge order submitted",
		zap.String("side", string(placed.Side)),
		zap.Int64("price", placed.Price),
		zap.String("ref", ref),
	)
	e.recordEvent(OrderEvent{
		Event:    EventNameHedgePlaced,
		MarketID: e.private.ID,
		Side:     placed.Side,
		Price:    placed.Price,
		Ref:      ref,
		OrderID:  placed.TakerID,
	})
}

func (e *Engine) abandonHedge(o market.Order) {
	abandoned := *e.pending
	e.pending = nil
	e.apply(EventAbandon)
	e.metrics.HedgesAbandoned.Inc()
	e.recordEvent(OrderEvent{
		Event:    EventNameHedgeAbandoned,
		MarketID: e.private.ID,
		Side:     abandoned.Side,
		Price:    abandoned.Price,
		Ref:      abandoned.TakerRef,
		OrderID:  o.ID,
	})
}

// OnOrderRejected absorbs a gateway rejection. A rejected CANCEL leaves the
// standing order (and the hedge plan) in place; a rejected taker limit
// abandons the plan.
func (e *Engine) OnOrderRejected(info map[string]string, o market.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight = false
	e.metrics.OrdersRejected.Inc()

	e.log.Warn("order rejected",
		zap.Int("market", o.MarketID),
		zap.String("ref", o.Ref),
		zap.Any("info", info),
	)
	e.recordEvent(OrderEvent{
		Event:    EventNameRejected,
		MarketID: o.MarketID,
		Side:     o.Side,
		Price:    o.Price,
		Ref:      o.Ref,
		OrderID:  o.ID,
	})

	if e.pending != nil && o.MarketID == e.public.ID {
		if o.Kind == market.KindCancel {
			e.log.Info("cancel rejected, standing order remains")
		} else if o.Ref == e.pending.TakerRef {
			e.log.Info("taker rejected, abandoning hedge plan")
			e.abandonHedge(o)
		}
	}

	// A rejected limit was never standing; match by ref since no identity
	// was ever assigned.
	if e.ownPublic != nil && e.ownPublic.Ref == o.Ref {
		e.ownPublic = nil
	}
	if e.ownPrivate != nil && e.ownPrivate.Ref == o.Ref {
		e.ownPrivate = nil
	}
}

// trackStanding maintains the at-most-one standing order per market: a live
// limit order replaces the tracked entry, a traded or cancelled one clears
// it, matched by identity.
func (e *Engine) trackStanding(o market.Order) {
	if o.Kind == market.KindLimit && !o.Traded && !o.Cancelled {
		switch o.MarketID {
		case e.public.ID:
			e.ownPublic = &o
		case e.private.ID:
			e.ownPrivate = &o
		}
		return
	}
	if e.ownPublic != nil && e.ownPublic.ID == o.ID {
		e.ownPublic = nil
	}
	if e.ownPrivate != nil && e.ownPrivate.ID == o.ID {
		e.ownPrivate = nil
	}
}

func (e *Engine) netUnits() int {
	net, _ := e.holdings.NetUnits(e.public.ID, e.private.ID)
	return net
}

func (e *Engine) record(c CycleRecord) {
	if e.recorder != nil {
		e.recorder.RecordCycle(c)
	}
}

func (e *Engine) recordEvent(ev OrderEvent) {
	if e.recorder != nil {
		e.recorder.RecordOrderEvent(ev)
	}
}

// State reports the current machine state.
func (e *Engine) State() State {
	return e.sm.Current()
}

// Pending returns a copy of the outstanding hedge plan, if any.
func (e *Engine) Pending() (PendingHedge, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return PendingHedge{}, false
	}
	return *e.pending, true
}

// Role reports the last derived role; false when no signal stands.
func (e *Engine) Role() (Role, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.role, e.hasRole
}

// InFlight reports whether a submission awaits its gateway acknowledgement.
func (e *Engine) InFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}
