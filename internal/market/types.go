package market

import "fmt"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type Kind string

const (
	KindLimit  Kind = "LIMIT"
	KindCancel Kind = "CANCEL"
)

// Market describes one of the two books the agent trades in. Exactly one
// public and one private market exist per session, resolved at startup.
type Market struct {
	ID      int
	Name    string
	Tick    int64
	Private bool
}

// Order is a marketplace order. ID is zero until the gateway assigns one;
// Ref is the caller-side correlation token used to match pre-identity
// rejections. Price is an integer in the smallest currency unit.
// Target carries the counterparty id for private-market orders.
type Order struct {
	ID        int64
	MarketID  int
	Side      Side
	Kind      Kind
	Price     int64
	Units     int
	Mine      bool
	Ref       string
	Traded    bool
	Cancelled bool
	Target    string
}

// CancelFor builds a CANCEL submission referencing an accepted limit order.
func CancelFor(o Order) Order {
	c := o
	c.Kind = KindCancel
	c.Ref = fmt.Sprintf("cancel-%d", o.ID)
	return c
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s %d@%d market=%d id=%d ref=%s", o.Kind, o.Side, o.Units, o.Price, o.MarketID, o.ID, o.Ref)
}
