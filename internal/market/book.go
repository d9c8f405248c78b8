package market

// Book is the reduced view of one order-feed notification: the best standing
// order per market and side excluding the agent's own, plus the agent's own
// standing limit order in each market. Rebuilt in full every cycle; no
// incremental state.
type Book struct {
	BestPublicBuy   *Order
	BestPublicSell  *Order
	BestPrivateBuy  *Order
	BestPrivateSell *Order

	OwnPublic  *Order
	OwnPrivate *Order
}

// BuildBook reduces the current live-order set. Non-limit orders are
// skipped. Own orders are tracked separately and never compete for a best
// price. Ties keep the first order seen; comparisons are strict.
func BuildBook(orders []Order, publicID, privateID int) Book {
	var book Book
	for i := range orders {
		o := &orders[i]
		if o.Kind != KindLimit {
			continue
		}
		if o.Mine {
			switch o.MarketID {
			case publicID:
				book.OwnPublic = o
			case privateID:
				book.OwnPrivate = o
			}
			continue
		}
		switch {
		case o.MarketID == publicID && o.Side == SideBuy:
			if book.BestPublicBuy == nil || o.Price > book.BestPublicBuy.Price {
				book.BestPublicBuy = o
			}
		case o.MarketID == publicID && o.Side == SideSell:
			if book.BestPublicSell == nil || o.Price < book.BestPublicSell.Price {
				book.BestPublicSell = o
			}
		case o.MarketID == privateID && o.Side == SideBuy:
			if book.BestPrivateBuy == nil || o.Price > book.BestPrivateBuy.Price {
				book.BestPrivateBuy = o
			}
		case o.MarketID == privateID && o.Side == SideSell:
			if book.BestPrivateSell == nil || o.Price < book.BestPrivateSell.Price {
				book.BestPrivateSell = o
			}
		}
	}
	return book
}

// PrivateSignal returns the order whose side dictates the agent's role: the
// best private buy when one stands, else the best private sell, else nil.
func (b Book) PrivateSignal() *Order {
	if b.BestPrivateBuy != nil {
		return b.BestPrivateBuy
	}
	return b.BestPrivateSell
}
