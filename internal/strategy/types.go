package strategy

import "fm-arb-bot/internal/market"

type State string

type Event string

const (
	StateIdle           State = "IDLE"
	StatePublicSent     State = "PUBLIC_SENT"
	StateAwaitingHedge  State = "AWAITING_HEDGE"
	StatePublicStanding State = "PUBLIC_STANDING"
)

const (
	EventTakerSent   Event = "TAKER_SENT"
	EventTakerFilled Event = "TAKER_FILLED"
	EventTakerRested Event = "TAKER_RESTED"
	EventHedgePlaced Event = "HEDGE_PLACED"
	EventAbandon     Event = "ABANDON"
)

type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
)

type SessionPhase string

const (
	SessionOpen   SessionPhase = "OPEN"
	SessionPaused SessionPhase = "PAUSED"
	SessionClosed SessionPhase = "CLOSED"
)

// PendingHedge is the private-market order the agent owes once its public
// taker leg trades. TakerRef is the correlation token attached at
// submission; TakerID is the gateway-assigned identity, zero until the
// first acceptance promotes the binding. All matching after promotion is
// by identity only.
type PendingHedge struct {
	Side     market.Side
	Price    int64
	TakerRef string
	TakerID  int64
}

// Gateway submits an order and returns immediately; the outcome arrives
// later as an accepted or rejected notification.
type Gateway interface {
	Submit(o market.Order) error
}

// CycleRecord summarizes one evaluation cycle for the decision journal.
type CycleRecord struct {
	Role           Role
	HasRole        bool
	Margin         int64
	HasMargin      bool
	BestPublicBuy  int64
	BestPublicSell int64
	SignalPrice    int64
	NetUnits       int
	State          State
}

// OrderEvent is an order lifecycle event for the journal and alerting.
type OrderEvent struct {
	Event    string
	MarketID int
	Side     market.Side
	Price    int64
	Ref      string
	OrderID  int64
}

const (
	EventNameTakerSubmitted = "taker_submitted"
	EventNameTakerFilled    = "taker_filled"
	EventNameCancelSent     = "cancel_sent"
	EventNameHedgePlaced    = "hedge_placed"
	EventNameHedgeAbandoned = "hedge_abandoned"
	EventNameRejected       = "rejected"
)

// Recorder receives engine observations. Implementations must not block.
type Recorder interface {
	RecordCycle(c CycleRecord)
	RecordOrderEvent(e OrderEvent)
}
